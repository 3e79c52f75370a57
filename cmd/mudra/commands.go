package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ayusman/mudra/internal/actuator"
	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/feature"
	"github.com/ayusman/mudra/internal/store"
)

// Screen size used to resolve screen tokens when no display is queried.
const (
	checkScreenW = 1920
	checkScreenH = 1080
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configuration without touching the camera or pointer",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, cfg, err := loadConfig()
		if err != nil {
			return err
		}
		var profiles app.ProfileSource
		if cfg.Profile != "" {
			st, err := openStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()
			profiles = st.Profiles()
		}
		return checkConfig(cmd.OutOrStdout(), cfg, profiles)
	},
}

// checkConfig builds the full pipeline against a recording backend. Plugin
// actuators are accepted unresolved.
func checkConfig(w io.Writer, cfg *config.Config, profiles app.ProfileSource) error {
	a := app.New(app.Config{
		Actuators:    actuator.NewBuilder(actuator.NewRecorder(), actuator.WithPlugins(anyPlugin{})),
		Profiles:     profiles,
		Log:          logger,
		ScreenWidth:  checkScreenW,
		ScreenHeight: checkScreenH,
	})
	if err := a.Reload(cfg); err != nil {
		return err
	}
	fmt.Fprintf(w, "ok: %d bindings, %d features\n", len(cfg.Bindings), len(a.Features()))
	return nil
}

// anyPlugin accepts every plugin action and delivers nothing.
type anyPlugin struct{}

func (anyPlugin) Resolve(plugin, action string) error                  { return nil }
func (anyPlugin) Dispatch(plugin, action, binding, event string) error { return nil }

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "List every feature name a binding or gate can read",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, cfg, err := loadConfig()
		if err != nil {
			return err
		}
		idx := feature.NewIndex(cfg.CalibrationStore())
		for _, name := range idx.Names() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage stored calibration profiles",
}

var profileSaveCmd = &cobra.Command{
	Use:   "save <name>",
	Short: "Store the config file's calibration block as a profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		p := &store.Profile{Name: args[0], Entries: cfg.Calibration}
		if err := st.Profiles().Save(p); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "saved %s (%d entries)\n", p.Name, len(p.Entries))
		return nil
	},
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withProfiles(func(r *store.ProfileRepository) error {
			profiles, err := r.List()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tUPDATED")
			for _, p := range profiles {
				fmt.Fprintf(tw, "%s\t%s\n", p.Name, p.UpdatedAt.Format(time.RFC3339))
			}
			return tw.Flush()
		})
	},
}

var profileShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print a profile's calibration entries as YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withProfiles(func(r *store.ProfileRepository) error {
			p, err := r.Get(args[0])
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(map[string]any{"calibration": p.Entries}); err != nil {
				return err
			}
			return enc.Close()
		})
	},
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a stored profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withProfiles(func(r *store.ProfileRepository) error {
			return r.Delete(args[0])
		})
	},
}

func init() {
	profileCmd.AddCommand(profileSaveCmd, profileListCmd, profileShowCmd, profileDeleteCmd)
}

func withProfiles(fn func(*store.ProfileRepository) error) error {
	_, cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st.Profiles())
}
