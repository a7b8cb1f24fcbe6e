package engine

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/elkbridge/pkg/observability"
)

const (
	// DefaultShutdownTimeout bounds how long a terminated engine gets to
	// exit before it is killed.
	DefaultShutdownTimeout = 1 * time.Second

	// DefaultTrailerWait is how long to wait for the diagnostic line that
	// follows a response on stderr.
	DefaultTrailerWait = 250 * time.Millisecond

	// DefaultDrainWait is how long to collect stderr after the engine closed
	// stdout without answering.
	DefaultDrainWait = 1 * time.Second

	defaultStderrBuffer = 256
)

// ChannelConfig tunes a single request/response exchange.
type ChannelConfig struct {
	// Trailer recognizes the benign diagnostic that follows a response.
	// Nil means SuffixTrailer(DefaultTrailer).
	Trailer TrailerMatcher

	// TrailerWait is how long to wait for a stderr line after the response.
	// Zero means DefaultTrailerWait.
	TrailerWait time.Duration

	// DrainWait is how long to collect stderr when the engine produced no
	// response. Zero means DefaultDrainWait.
	DrainWait time.Duration

	// ReadTimeout bounds writing the request and reading the response.
	// Zero disables it; a context deadline still applies.
	ReadTimeout time.Duration
}

func (c ChannelConfig) withDefaults() ChannelConfig {
	if c.Trailer == nil {
		c.Trailer = SuffixTrailer(DefaultTrailer)
	}
	if c.TrailerWait <= 0 {
		c.TrailerWait = DefaultTrailerWait
	}
	if c.DrainWait <= 0 {
		c.DrainWait = DefaultDrainWait
	}
	if c.ReadTimeout < 0 {
		c.ReadTimeout = 0
	}
	return c
}

// Options configures a Supervisor.
type Options struct {
	Logger          *log.Logger
	Hooks           observability.EngineHooks
	Channel         ChannelConfig
	ShutdownTimeout time.Duration
}

// Option mutates Options.
type Option func(*Options)

// WithLogger sets the logger for lifecycle and stderr diagnostics.
// A nil logger is ignored.
func WithLogger(l *log.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// WithHooks overrides the engine hooks registered with the observability
// package.
func WithHooks(h observability.EngineHooks) Option {
	return func(o *Options) {
		if h != nil {
			o.Hooks = h
		}
	}
}

// WithChannel replaces the exchange configuration.
func WithChannel(c ChannelConfig) Option {
	return func(o *Options) {
		o.Channel = c
	}
}

// WithReadTimeout bounds each exchange with the engine.
func WithReadTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.Channel.ReadTimeout = d
	}
}

// WithTrailer sets the matcher for benign stderr diagnostics.
func WithTrailer(m TrailerMatcher) Option {
	return func(o *Options) {
		if m != nil {
			o.Channel.Trailer = m
		}
	}
}

// WithShutdownTimeout sets how long a terminated engine may take to exit.
// Non-positive values are ignored.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.ShutdownTimeout = d
		}
	}
}

func resolveOptions(opts []Option) Options {
	o := Options{
		ShutdownTimeout: DefaultShutdownTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	if o.Hooks == nil {
		o.Hooks = observability.Engine()
	}
	o.Channel = o.Channel.withDefaults()
	return o
}
