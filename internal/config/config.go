// Package config loads elkbridge settings from a TOML file.
//
// Every setting has a default, so the file is optional. The default location
// is $XDG_CONFIG_HOME/elkbridge/config.toml (or ~/.config/elkbridge/...).
//
//	[engine]
//	read_timeout = "30s"
//
//	[distribution]
//	version = "0.2.0"
//	cache_dir = "/var/cache/elkbridge"
//
//	[server]
//	addr = ":8080"
//	redis_url = "redis://localhost:6379/0"
//	cache_prefix = "staging:"
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/elkbridge/pkg/distribution"
	"github.com/matzehuels/elkbridge/pkg/engine"
	"github.com/matzehuels/elkbridge/pkg/errors"
	"github.com/matzehuels/elkbridge/pkg/runtime"
)

// Environment overrides.
const (
	EnvCacheDir = "ELKBRIDGE_CACHE_DIR"
	EnvConfig   = "ELKBRIDGE_CONFIG"
)

// Duration is a time.Duration written as a string ("250ms", "1m").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config is the complete configuration.
type Config struct {
	Engine       Engine       `toml:"engine"`
	Java         Java         `toml:"java"`
	Distribution Distribution `toml:"distribution"`
	Server       Server       `toml:"server"`
}

// Engine tunes the supervised process.
type Engine struct {
	// Script launches a preinstalled server and skips provisioning.
	Script          string   `toml:"script"`
	ReadTimeout     Duration `toml:"read_timeout"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
	TrailerWait     Duration `toml:"trailer_wait"`
	// TrailerPattern is a regular expression for benign stderr lines.
	TrailerPattern string `toml:"trailer_pattern"`
}

// Java selects the runtime.
type Java struct {
	Home       string `toml:"home"`
	MinVersion int    `toml:"min_version"`
	MaxVersion int    `toml:"max_version"`
}

// Distribution controls where the server comes from.
type Distribution struct {
	Version  string `toml:"version"`
	BaseURL  string `toml:"base_url"`
	CacheDir string `toml:"cache_dir"`
	SHA256   string `toml:"sha256"`
}

// Server configures "elkbridge serve".
type Server struct {
	Addr     string `toml:"addr"`
	RedisURL string `toml:"redis_url"`
	// CachePrefix namespaces cache keys so deployments can share a Redis.
	CachePrefix   string   `toml:"cache_prefix"`
	CacheTTL      Duration `toml:"cache_ttl"`
	MongoURI      string   `toml:"mongo_uri"`
	MongoDatabase string   `toml:"mongo_database"`
	MaxBodyBytes  int64    `toml:"max_body_bytes"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Engine: Engine{
			ShutdownTimeout: Duration{engine.DefaultShutdownTimeout},
			TrailerWait:     Duration{engine.DefaultTrailerWait},
		},
		Java: Java{
			MinVersion: runtime.MinVersion,
			MaxVersion: runtime.MaxVersion,
		},
		Distribution: Distribution{
			Version:  distribution.DefaultVersion,
			BaseURL:  distribution.DefaultBaseURL,
			CacheDir: DefaultCacheDir(),
		},
		Server: Server{
			Addr:          ":8080",
			CacheTTL:      Duration{24 * time.Hour},
			MongoDatabase: "elkbridge",
			MaxBodyBytes:  8 << 20,
		},
	}
}

// DefaultCacheDir returns $ELKBRIDGE_CACHE_DIR, $XDG_CACHE_HOME/elkbridge
// or ~/.cache/elkbridge.
func DefaultCacheDir() string {
	if dir := os.Getenv(EnvCacheDir); dir != "" {
		return dir
	}
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return filepath.Join(xdg, "elkbridge")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "elkbridge")
	}
	return filepath.Join(home, ".cache", "elkbridge")
}

// DefaultPath returns $ELKBRIDGE_CONFIG or the per-user config file.
func DefaultPath() string {
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "elkbridge", "config.toml")
}

// Load reads path on top of the defaults. An empty path loads DefaultPath
// if it exists; an explicit path must exist. Unknown keys are an error.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path == "" {
		return cfg, cfg.Validate()
	}
	if _, err := os.Stat(path); err != nil {
		if !explicit && os.IsNotExist(err) {
			return cfg, cfg.Validate()
		}
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config")
	}

	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse %s", path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return Config{}, errors.New(errors.ErrCodeInvalidConfig, "%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return cfg, cfg.Validate()
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var fe errors.FieldErrors
	if c.Engine.ReadTimeout.Duration < 0 {
		fe.Add("engine.read_timeout", "must not be negative")
	}
	if c.Engine.ShutdownTimeout.Duration <= 0 {
		fe.Add("engine.shutdown_timeout", "must be positive")
	}
	if c.Engine.TrailerWait.Duration <= 0 {
		fe.Add("engine.trailer_wait", "must be positive")
	}
	if _, err := engine.ParseTrailer(c.Engine.TrailerPattern); err != nil {
		fe.Add("engine.trailer_pattern", "%v", err)
	}
	if c.Java.MinVersion <= 0 || c.Java.MaxVersion < c.Java.MinVersion {
		fe.Add("java", "version range %d-%d is empty", c.Java.MinVersion, c.Java.MaxVersion)
	}
	if c.Engine.Script == "" {
		if strings.TrimSpace(c.Distribution.Version) == "" {
			fe.Add("distribution.version", "is required")
		}
		if c.Distribution.CacheDir == "" {
			fe.Add("distribution.cache_dir", "is required")
		}
	}
	if c.Server.MaxBodyBytes <= 0 {
		fe.Add("server.max_body_bytes", "must be positive")
	}
	if err := fe.Err("config"); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfig, err, "check configuration")
	}
	return nil
}

// String renders the configuration as TOML.
func (c Config) String() string {
	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(c); err != nil {
		return fmt.Sprintf("<config: %v>", err)
	}
	return b.String()
}
