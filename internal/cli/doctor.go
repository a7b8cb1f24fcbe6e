package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/elkbridge/internal/config"
	"github.com/matzehuels/elkbridge/pkg/errors"
	"github.com/matzehuels/elkbridge/pkg/layout"
)

// doctorCommand creates the doctor command.
func (c *CLI) doctorCommand() *cobra.Command {
	var showConfig bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check that the ELK server can be launched",
		Long: `Check that the ELK server can be launched.

Reports the configuration file in use, the Java runtime that would be picked
and whether the server distribution is already installed. Nothing is
downloaded; run 'elkbridge cache fetch' for that.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := c.cfg
			ok := true

			printTitle("elkbridge doctor")
			if path := c.configFile(); path != "" {
				printKeyValue("Config", path)
			} else {
				printKeyValue("Config", "built-in defaults")
			}
			printKeyValue("Engine", layout.EngineVersion(cfg))
			printKeyValue("Cache", cfg.Distribution.CacheDir)

			java, err := layout.Locator(cfg, c.Logger).Find(ctx)
			switch {
			case err != nil && cfg.Engine.Script != "":
				printWarning("Java: %s", errors.UserMessage(err))
			case err != nil:
				printError("Java: %s", errors.UserMessage(err))
				ok = false
			default:
				printSuccess("Java %d at %s", java.Version, java.Path)
			}

			if cfg.Engine.Script != "" {
				printInfo("Provisioning skipped: engine.script is set")
				if isFile(cfg.Engine.Script) {
					printSuccess("Server script %s", cfg.Engine.Script)
				} else {
					printError("Server script %s does not exist", cfg.Engine.Script)
					ok = false
				}
			} else {
				prov := layout.Provisioner(cfg, c.Logger)
				if prov.Installed() {
					printSuccess("elk server %s installed in %s", prov.Version(), prov.Dir())
				} else {
					printWarning("elk server %s not installed; it is downloaded on first use", prov.Version())
					printDetail("from %s", prov.ArchiveURL())
				}
			}

			if showConfig {
				fmt.Fprintln(cmd.OutOrStdout())
				fmt.Fprint(cmd.OutOrStdout(), cfg.String())
			}
			if !ok {
				return errors.New(errors.ErrCodeRuntimeNotFound, "elk server cannot be launched")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showConfig, "config-dump", false, "print the effective configuration")
	return cmd
}

// configFile returns the config file that was loaded, if any.
func (c *CLI) configFile() string {
	if c.configPath != "" {
		return c.configPath
	}
	if p := config.DefaultPath(); isFile(p) {
		return p
	}
	return ""
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
