package cli

import (
	"context"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/elkbridge/internal/config"
	"github.com/matzehuels/elkbridge/internal/server"
	"github.com/matzehuels/elkbridge/pkg/cache"
	"github.com/matzehuels/elkbridge/pkg/store"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve layouts over HTTP",
		Long: `Serve layouts over HTTP.

POST an ELK graph to /v1/layout to receive its layout. Results are cached by
graph hash (in Redis when server.redis_url is set, on disk otherwise) and
archived (in MongoDB when server.mongo_uri is set, in memory otherwise) so they
can be fetched again from /v1/layouts/{id} or drawn from /v1/layouts/{id}/render.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := c.cfg
			if addr != "" {
				cfg.Server.Addr = addr
			}

			client, err := c.openClient()
			if err != nil {
				return err
			}
			defer client.Close()

			var lc cache.Cache = cache.NewNullCache()
			if !noCache {
				if lc, err = openCache(ctx, cfg); err != nil {
					return err
				}
			}
			defer lc.Close()

			st, err := openStore(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			srv := server.New(client, server.Options{
				Logger:       c.Logger,
				Cache:        lc,
				Keyer:        cacheKeyer(cfg),
				CacheTTL:     cfg.Server.CacheTTL.Duration,
				Store:        st,
				MaxBodyBytes: cfg.Server.MaxBodyBytes,
			})
			c.Logger.Info("serving layouts", "addr", cfg.Server.Addr, "engine", client.EngineVersion())
			return srv.ListenAndServe(ctx, cfg.Server.Addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default: server.addr)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the layout cache")
	return cmd
}

// layoutCacheDir holds cached layouts next to the server distribution.
func layoutCacheDir(cfg config.Config) string {
	return filepath.Join(cfg.Distribution.CacheDir, "layouts")
}

func cacheKeyer(cfg config.Config) cache.Keyer {
	if cfg.Server.CachePrefix == "" {
		return cache.NewDefaultKeyer()
	}
	return cache.NewScopedKeyer(nil, cfg.Server.CachePrefix)
}

func openCache(ctx context.Context, cfg config.Config) (cache.Cache, error) {
	if cfg.Server.RedisURL != "" {
		rc, err := cache.NewRedisCache(ctx, cfg.Server.RedisURL)
		if err != nil {
			return nil, err
		}
		return rc, nil
	}
	fc, err := cache.NewFileCache(layoutCacheDir(cfg))
	if err != nil {
		return nil, err
	}
	return fc, nil
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	if cfg.Server.MongoURI != "" {
		ms, err := store.NewMongoStore(ctx, cfg.Server.MongoURI, cfg.Server.MongoDatabase)
		if err != nil {
			return nil, err
		}
		return ms, nil
	}
	return store.NewMemoryStore(), nil
}
