// Command mudra turns tracked hand motion into pointer, scroll, key and plugin
// input.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ayusman/mudra/internal/config"
)

var (
	configPath string
	verbose    bool
	dryRun     bool
	headless   bool
	profile    string
	// cameraIndex is -1 unless --camera was given.
	cameraIndex int

	logger *zap.Logger
	level  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

var rootCmd = &cobra.Command{
	Use:   "mudra",
	Short: "Hand-tracking input for the desktop",
	Long: `mudra reads hand landmarks from the camera and drives the pointer,
scroll wheel, keyboard and plugins according to the bindings in the
configuration file.

Run without a subcommand to start tracking.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zc := zap.NewProductionConfig()
		zc.Encoding = "console"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		if verbose {
			level.SetLevel(zapcore.DebugLevel)
		}
		zc.Level = level
		var err error
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runTracking,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "configuration file (default ~/.mudra/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	for _, cmd := range []*cobra.Command{rootCmd, runCmd} {
		cmd.Flags().BoolVar(&dryRun, "dry-run", false, "log actuator calls instead of moving the pointer")
		cmd.Flags().BoolVar(&headless, "headless", false, "run without the menu bar icon")
		cmd.Flags().StringVarP(&profile, "profile", "p", "", "stored calibration profile (overrides the config file)")
		cmd.Flags().IntVar(&cameraIndex, "camera", -1, "camera device; remembered for later runs")
	}

	rootCmd.AddCommand(runCmd, checkCmd, featuresCmd, profileCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// resolveConfigPath returns --config or the default location.
func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.DefaultPath()
}

// loadConfig loads the configuration and applies its log level unless
// --verbose already chose one.
func loadConfig() (string, *config.Config, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return "", nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return "", nil, err
	}
	if !verbose && cfg.Logging.Level != "" {
		lvl, err := zapcore.ParseLevel(cfg.Logging.Level)
		if err != nil {
			return "", nil, fmt.Errorf("logging.level: %w", err)
		}
		level.SetLevel(lvl)
	}
	return path, cfg, nil
}
