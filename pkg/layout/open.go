package layout

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/elkbridge/internal/config"
	"github.com/matzehuels/elkbridge/pkg/distribution"
	"github.com/matzehuels/elkbridge/pkg/engine"
	"github.com/matzehuels/elkbridge/pkg/errors"
	"github.com/matzehuels/elkbridge/pkg/runtime"
)

// CustomVersion labels an engine launched from engine.script.
const CustomVersion = "custom"

// Open wires a client from configuration: a Java locator, the distribution
// provisioner (or the configured script) and a supervisor. Nothing is
// launched until the first request.
func Open(cfg config.Config, logger *log.Logger, opts ...Option) (*Client, error) {
	if logger == nil {
		logger = log.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	supOpts, err := SupervisorOptions(cfg, logger)
	if err != nil {
		return nil, err
	}
	sup := engine.New(Resolver(cfg, logger), supOpts...)

	opts = append([]Option{WithLogger(logger), WithEngineVersion(EngineVersion(cfg))}, opts...)
	return NewClient(sup, opts...), nil
}

// EngineVersion returns the distribution version, or CustomVersion when a
// script is configured.
func EngineVersion(cfg config.Config) string {
	if cfg.Engine.Script != "" {
		return CustomVersion
	}
	return cfg.Distribution.Version
}

// SupervisorOptions translates the [engine] section into supervisor options.
func SupervisorOptions(cfg config.Config, logger *log.Logger) ([]engine.Option, error) {
	trailer, err := engine.ParseTrailer(cfg.Engine.TrailerPattern)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "engine.trailer_pattern")
	}
	return []engine.Option{
		engine.WithLogger(logger),
		engine.WithChannel(engine.ChannelConfig{
			Trailer:     trailer,
			TrailerWait: cfg.Engine.TrailerWait.Duration,
			ReadTimeout: cfg.Engine.ReadTimeout.Duration,
		}),
		engine.WithShutdownTimeout(cfg.Engine.ShutdownTimeout.Duration),
	}, nil
}

// Locator returns the Java locator described by the [java] section.
func Locator(cfg config.Config, logger *log.Logger) *runtime.Locator {
	l := runtime.NewLocator(cfg.Java.Home, logger)
	l.MinVersion = cfg.Java.MinVersion
	l.MaxVersion = cfg.Java.MaxVersion
	return l
}

// Provisioner returns the distribution provisioner described by the
// [distribution] section.
func Provisioner(cfg config.Config, logger *log.Logger) *distribution.Provisioner {
	return distribution.New(distribution.Options{
		Version:  cfg.Distribution.Version,
		BaseURL:  cfg.Distribution.BaseURL,
		CacheDir: cfg.Distribution.CacheDir,
		SHA256:   cfg.Distribution.SHA256,
		Finder:   Locator(cfg, logger),
		Logger:   logger,
	})
}

// Resolver returns how to launch the server with the given mode flags
// (nil means stdio). A configured engine.script is launched as is, with
// JAVA_HOME exported only when java.home is set; otherwise the distribution
// is provisioned on first use.
func Resolver(cfg config.Config, logger *log.Logger, args ...string) engine.Resolver {
	if cfg.Engine.Script != "" {
		exe := engine.Executable{Path: cfg.Engine.Script, Args: args}
		if cfg.Java.Home != "" {
			exe.Env = []string{"JAVA_HOME=" + cfg.Java.Home}
		}
		return engine.StaticResolver(exe)
	}
	prov := Provisioner(cfg, logger)
	return engine.ResolverFunc(func(ctx context.Context) (engine.Executable, error) {
		d, err := prov.Ensure(ctx)
		if err != nil {
			return engine.Executable{}, err
		}
		return d.Executable(args...), nil
	})
}
