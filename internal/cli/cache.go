package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/elkbridge/pkg/cache"
	"github.com/matzehuels/elkbridge/pkg/layout"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the downloaded server and cached layouts",
	}

	cmd.AddCommand(c.cachePathCommand())
	cmd.AddCommand(c.cacheFetchCommand())
	cmd.AddCommand(c.cacheClearCommand())

	return cmd
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), c.cfg.Distribution.CacheDir)
			return nil
		},
	}
}

// cacheFetchCommand creates the "cache fetch" subcommand.
func (c *CLI) cacheFetchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Download and unpack the ELK server ahead of first use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			prov := layout.Provisioner(c.cfg, c.Logger)
			spinner := newSpinnerWithContext(cmd.Context(), "Fetching elk server "+prov.Version()+"...")
			spinner.Start()
			d, err := prov.Ensure(cmd.Context())
			if err != nil {
				spinner.StopWithError("Fetch failed")
				return err
			}
			spinner.StopWithSuccess("elk server " + d.Version + " ready")
			printKeyValue("Script", d.Script)
			printKeyValue("Java", fmt.Sprintf("%d (%s)", d.Runtime.Version, d.Runtime.Path))
			return nil
		},
	}
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	var layoutsOnly bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove the downloaded server and cached layouts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fc, err := cache.NewFileCache(layoutCacheDir(c.cfg))
			if err != nil {
				return err
			}
			if err := fc.Clear(); err != nil {
				return fmt.Errorf("clear layouts: %w", err)
			}
			if !layoutsOnly {
				if err := layout.Provisioner(c.cfg, c.Logger).Clear(); err != nil {
					return fmt.Errorf("clear distribution: %w", err)
				}
			}
			printSuccess("Cache cleared")
			printDetail("%s", c.cfg.Distribution.CacheDir)
			return nil
		},
	}

	cmd.Flags().BoolVar(&layoutsOnly, "layouts", false, "only remove cached layouts")
	return cmd
}
