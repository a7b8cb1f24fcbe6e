// Package cli implements the elkbridge command-line interface.
package cli

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/elkbridge/internal/config"
	"github.com/matzehuels/elkbridge/pkg/buildinfo"
	"github.com/matzehuels/elkbridge/pkg/layout"
	"github.com/matzehuels/elkbridge/pkg/observability"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	verbose    bool
	cfg        config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level), cfg: config.Default()}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
// The configuration is loaded before any subcommand runs.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "elkbridge",
		Short: "elkbridge runs the Eclipse Layout Kernel server as a local layout engine",
		Long: `elkbridge supervises an ELK layout server and talks to it over a line-delimited
JSON channel. It downloads the server on first use, checks for a suitable Java
runtime and exposes layout computation from the command line or over HTTP.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.verbose {
				c.SetLogLevel(LogDebug)
				registerLogHooks(c.Logger)
			}
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			c.cfg = cfg
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: "+config.DefaultPath()+")")

	root.AddCommand(c.runCommand())
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.doctorCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// Config returns the loaded configuration.
func (c *CLI) Config() config.Config { return c.cfg }

// openClient wires a layout client from the loaded configuration.
func (c *CLI) openClient() (*layout.Client, error) {
	return layout.Open(c.cfg, c.Logger)
}

// registerLogHooks routes observability events to the debug log.
func registerLogHooks(l *log.Logger) {
	h := logHooks{logger: l}
	observability.SetEngineHooks(h)
	observability.SetLayoutHooks(h)
	observability.SetCacheHooks(h)
	observability.SetHTTPHooks(h)
}
