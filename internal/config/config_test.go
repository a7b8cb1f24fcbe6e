package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/elkbridge/pkg/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	t.Setenv(EnvCacheDir, "")
	t.Setenv("XDG_CACHE_HOME", "/xdg")

	cfg := Default()
	if cfg.Engine.ShutdownTimeout.Duration != time.Second {
		t.Errorf("shutdown_timeout = %v, want 1s", cfg.Engine.ShutdownTimeout)
	}
	if cfg.Engine.ReadTimeout.Duration != 0 {
		t.Errorf("read_timeout = %v, want 0 (disabled)", cfg.Engine.ReadTimeout)
	}
	if cfg.Java.MinVersion != 17 || cfg.Java.MaxVersion != 23 {
		t.Errorf("java range = %d-%d", cfg.Java.MinVersion, cfg.Java.MaxVersion)
	}
	if cfg.Distribution.Version != "0.2.0" {
		t.Errorf("version = %s", cfg.Distribution.Version)
	}
	if cfg.Distribution.CacheDir != filepath.Join("/xdg", "elkbridge") {
		t.Errorf("cache_dir = %s", cfg.Distribution.CacheDir)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestDefaultCacheDirOverride(t *testing.T) {
	t.Setenv(EnvCacheDir, "/srv/elk")
	if got := DefaultCacheDir(); got != "/srv/elk" {
		t.Errorf("DefaultCacheDir() = %s", got)
	}
}

func TestLoad(t *testing.T) {
	t.Setenv(EnvCacheDir, "/env/cache")
	path := writeConfig(t, `
[engine]
read_timeout = "30s"
trailer_pattern = "End of input"

[java]
home = "/opt/jdk-21"

[server]
addr = "127.0.0.1:9000"
redis_url = "redis://localhost:6379/0"
cache_prefix = "staging:"
cache_ttl = "1h"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Engine.ReadTimeout.Duration != 30*time.Second {
		t.Errorf("read_timeout = %v", cfg.Engine.ReadTimeout)
	}
	if cfg.Engine.TrailerWait.Duration != 250*time.Millisecond {
		t.Errorf("unset trailer_wait should keep its default, got %v", cfg.Engine.TrailerWait)
	}
	if cfg.Java.Home != "/opt/jdk-21" || cfg.Java.MinVersion != 17 {
		t.Errorf("java = %+v", cfg.Java)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" || cfg.Server.CacheTTL.Duration != time.Hour {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Server.CachePrefix != "staging:" {
		t.Errorf("cache_prefix = %q", cfg.Server.CachePrefix)
	}
	if cfg.Distribution.CacheDir != "/env/cache" {
		t.Errorf("cache_dir = %s", cfg.Distribution.CacheDir)
	}
}

func TestLoadCacheDirFromFile(t *testing.T) {
	t.Setenv(EnvCacheDir, "/env/cache")
	cfg, err := Load(writeConfig(t, "[distribution]\ncache_dir = \"/file/cache\"\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Distribution.CacheDir != "/file/cache" {
		t.Errorf("cache_dir = %s, want the file value", cfg.Distribution.CacheDir)
	}
}

func TestLoadMissing(t *testing.T) {
	t.Setenv(EnvConfig, filepath.Join(t.TempDir(), "absent.toml"))
	if _, err := Load(""); err != nil {
		t.Errorf("missing default config should be ignored: %v", err)
	}

	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("missing explicit config: got %v, want %s", err, errors.ErrCodeInvalidConfig)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"syntax", "[engine\n", "parse"},
		{"bad duration", "[engine]\nread_timeout = \"soon\"\n", "parse"},
		{"unknown key", "[engine]\nread_timeot = \"1s\"\n", "engine.read_timeot"},
		{"negative timeout", "[engine]\nread_timeout = \"-1s\"\n", "engine.read_timeout"},
		{"empty java range", "[java]\nmin_version = 21\nmax_version = 17\n", "java"},
		{"bad trailer pattern", "[engine]\ntrailer_pattern = \"(\"\n", "engine.trailer_pattern"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Fatalf("got %v, want %s", err, errors.ErrCodeInvalidConfig)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q should mention %q", err, tt.want)
			}
		})
	}
}

func TestScriptSkipsDistributionChecks(t *testing.T) {
	cfg := Default()
	cfg.Engine.Script = "/opt/elk-server/bin/elk-server"
	cfg.Distribution.Version = ""
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}
}

func TestString(t *testing.T) {
	s := Default().String()
	for _, want := range []string{"[engine]", `shutdown_timeout = "1s"`, "[distribution]", `version = "0.2.0"`} {
		if !strings.Contains(s, want) {
			t.Errorf("String() missing %q:\n%s", want, s)
		}
	}
}
