package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/mudra/internal/actuator"
	"github.com/ayusman/mudra/internal/actuator/robot"
	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/binding"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/metrics"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/tray"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start tracking (the default command)",
	Args:  cobra.NoArgs,
	RunE:  runTracking,
}

func runTracking(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	path, cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if profile != "" {
		cfg.Profile = profile
	}
	log := logger

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	settings := st.Settings()

	screenW, screenH := robot.ScreenSize()
	var backend actuator.Backend = robot.New()
	if dryRun {
		backend = actuator.NewLogBackend(log)
	}

	dispatcher, err := startPlugins(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer dispatcher.Stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	device := settings.Int(store.KeyCameraIndex, cfg.Camera.Index)
	if cameraIndex >= 0 {
		device = cameraIndex
		if err := settings.Set(store.KeyCameraIndex, strconv.Itoa(device)); err != nil {
			log.Warn("failed to remember camera", zap.Error(err))
		}
	}
	cam := capture.NewCamera(capture.Config{
		Device: device,
		Width:  cfg.Camera.Width,
		Height: cfg.Camera.Height,
		FPS:    cfg.Camera.FPS,
	})

	a := app.New(app.Config{
		Actuators: actuator.NewBuilder(backend, actuator.WithPlugins(dispatcher)),
		Camera:    cam,
		Detector:  newDetector(cfg.Detector, log),
		Activity: capture.ActivityConfig{
			MotionThreshold: cfg.Camera.MotionThreshold,
			IdleAfter:       time.Duration(cfg.Camera.IdleAfterMs) * time.Millisecond,
			IdleFPS:         cfg.Camera.IdleFPS,
			ActiveFPS:       cfg.Camera.FPS,
		},
		Profiles:     st.Profiles(),
		Metrics:      metrics.New(reg),
		Log:          log,
		ScreenWidth:  screenW,
		ScreenHeight: screenH,
	})
	if err := a.Reload(cfg); err != nil {
		return err
	}

	var tr *tray.Tray
	toggle := &enabledSync{App: a, settings: settings, log: log}
	toggle.SetEnabled(settings.Bool(store.KeyEnabled, true))
	if !headless {
		tr = tray.New(a.IsEnabled())
		toggle.tray = tr
		a.OnEdge(func(id string, edge binding.Edge) { tr.SetLast(id, string(edge)) })
	}

	watcher := config.NewWatcher(path, func(next *config.Config) error {
		if profile != "" {
			next.Profile = profile
		}
		return a.Reload(next)
	}, log)
	if err := watcher.Start(ctx); err != nil {
		log.Warn("config watcher not started", zap.Error(err))
	} else {
		defer watcher.Stop()
	}

	if err := a.Start(ctx); err != nil {
		return fmt.Errorf("start capture: %w", err)
	}
	defer a.Stop()

	// A failing server ends the whole run.
	g, gctx := errgroup.WithContext(ctx)
	if cfg.Server.Enabled {
		srv := server.New(server.Config{
			StaticDir: findWebDir(),
			Store:     st,
			Pipeline:  toggle,
			Frames:    a,
			Gatherer:  reg,
			Log:       log,
		})
		g.Go(func() error {
			if err := srv.Run(gctx, cfg.Server.Addr); err != nil {
				return fmt.Errorf("debug server: %w", err)
			}
			return nil
		})
	}

	if tr == nil {
		<-gctx.Done()
	} else {
		tr.OnToggle(func(enabled bool) { toggle.SetEnabled(enabled) })
		tr.OnOpen(func() { openBrowser("http://"+cfg.Server.Addr+"/", log) })
		tr.OnQuit(stop)
		go func() {
			<-gctx.Done()
			tr.Quit()
		}()
		tr.Run()
	}
	stop()
	return g.Wait()
}

// enabledSync keeps the app, the stored setting and the tray in agreement
// whichever surface flips the switch.
type enabledSync struct {
	*app.App
	settings *store.SettingsRepository
	tray     *tray.Tray
	log      *zap.Logger
}

func (e *enabledSync) SetEnabled(enabled bool) {
	e.App.SetEnabled(enabled)
	if err := e.settings.Set(store.KeyEnabled, strconv.FormatBool(enabled)); err != nil {
		e.log.Warn("failed to persist enabled state", zap.Error(err))
	}
	if e.tray != nil {
		e.tray.SetEnabled(enabled)
	}
}

func openStore(cfg *config.Config) (*store.Store, error) {
	path := cfg.Store.Path
	if path == "" {
		var err error
		if path, err = store.DefaultPath(); err != nil {
			return nil, err
		}
	}
	st, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	return st, nil
}

func startPlugins(ctx context.Context, cfg *config.Config, log *zap.Logger) (*plugin.Dispatcher, error) {
	dir := cfg.Plugins.Dir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		dir = filepath.Join(home, ".mudra", "plugins")
	}
	mgr := plugin.NewManager(dir, log)
	if err := mgr.Discover(); err != nil {
		log.Warn("plugin discovery failed", zap.String("dir", dir), zap.Error(err))
	}

	settings, err := cfg.Plugins.SettingsJSON()
	if err != nil {
		return nil, err
	}
	d := plugin.NewDispatcher(mgr, plugin.NewExecutor(cfg.Plugins.TimeoutMs), settings, log)
	d.Start(ctx)
	return d, nil
}

// newDetector starts the MediaPipe tracker. Without it the app still runs
// the camera and the debug server but sees no hands.
func newDetector(cfg config.Detector, log *zap.Logger) detector.Detector {
	dc := detector.DefaultConfig()
	dc.ScriptPath = cfg.Script
	dc.Python = cfg.Python
	if cfg.MaxHands > 0 {
		dc.MaxHands = cfg.MaxHands
	}
	if cfg.MinDetection > 0 {
		dc.MinConfidence = cfg.MinDetection
	}
	if cfg.MinTracking > 0 {
		dc.MinTrackingConf = cfg.MinTracking
	}

	d, err := detector.NewMediaPipeDetector(dc, log)
	if errors.Is(err, detector.ErrScriptNotFound) {
		log.Warn("hand tracker script not found; running without hand tracking")
		return nil
	}
	if err != nil {
		log.Error("hand tracker unavailable", zap.Error(err))
		return nil
	}
	return d
}

// findWebDir searches "web", "../web", "../../web" and ~/.mudra/web.
func findWebDir() string {
	for _, p := range []string{"web", "../web", "../../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	dir := filepath.Join(home, ".mudra", "web")
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		return dir
	}
	return ""
}

func openBrowser(url string, log *zap.Logger) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Warn("failed to open browser", zap.String("url", url), zap.Error(err))
		return
	}
	go cmd.Wait()
}
