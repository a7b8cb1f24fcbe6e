// Package runtime locates a Java runtime suitable for the ELK server.
//
// The server distribution ships a launcher script that starts a JVM. The
// locator checks JAVA_HOME first and then the java on PATH, accepting the
// first one whose major version lies in the supported range.
package runtime

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/elkbridge/pkg/errors"
)

// Supported Java major versions.
const (
	MinVersion = 17
	MaxVersion = 23
)

// Java is a validated runtime.
type Java struct {
	Path    string // java executable
	Home    string // directory containing bin/java
	Version int    // major version
}

// Locator finds a Java runtime.
type Locator struct {
	// Home overrides $JAVA_HOME when set.
	Home string
	// MinVersion and MaxVersion bound the accepted major version.
	// Zero values mean MinVersion and MaxVersion.
	MinVersion int
	MaxVersion int
	Logger     *log.Logger

	getenv   func(string) string
	lookPath func(string) (string, error)
}

// NewLocator returns a locator using the process environment.
func NewLocator(home string, logger *log.Logger) *Locator {
	if logger == nil {
		logger = log.Default()
	}
	return &Locator{Home: home, Logger: logger}
}

// Find returns the first acceptable runtime: $JAVA_HOME/bin/java, then java
// on PATH. A candidate that exists but whose version cannot be determined is
// an error rather than being skipped.
func (l *Locator) Find(ctx context.Context) (Java, error) {
	lo, hi := l.bounds()

	home := l.Home
	if home == "" {
		home = l.env("JAVA_HOME")
	}
	if home != "" {
		path := filepath.Join(home, "bin", javaExe())
		if isFile(path) {
			v, err := Version(ctx, path)
			if err != nil {
				return Java{}, errors.Wrap(errors.ErrCodeRuntimeNotFound, err, "check java in JAVA_HOME")
			}
			if v >= lo && v <= hi {
				return Java{Path: path, Home: home, Version: v}, nil
			}
			l.logger().Debug("java outside supported range", "path", path, "version", v)
		}
	}

	path, err := l.look("java")
	if err == nil {
		v, err := Version(ctx, path)
		if err != nil {
			return Java{}, errors.Wrap(errors.ErrCodeRuntimeNotFound, err, "check java in PATH")
		}
		if v >= lo && v <= hi {
			return Java{Path: path, Home: homeOf(path), Version: v}, nil
		}
		l.logger().Debug("java outside supported range", "path", path, "version", v)
	}

	return Java{}, errors.New(errors.ErrCodeRuntimeNotFound,
		"no Java %d-%d installation found; install Java or set JAVA_HOME", lo, hi)
}

func (l *Locator) bounds() (int, int) {
	lo, hi := l.MinVersion, l.MaxVersion
	if lo == 0 {
		lo = MinVersion
	}
	if hi == 0 {
		hi = MaxVersion
	}
	return lo, hi
}

func (l *Locator) env(key string) string {
	if l.getenv != nil {
		return l.getenv(key)
	}
	return os.Getenv(key)
}

func (l *Locator) look(name string) (string, error) {
	if l.lookPath != nil {
		return l.lookPath(name)
	}
	return exec.LookPath(name)
}

func (l *Locator) logger() *log.Logger {
	if l.Logger == nil {
		return log.Default()
	}
	return l.Logger
}

// Version runs "java -version" and parses the major version from its output.
func Version(ctx context.Context, java string) (int, error) {
	cmd := exec.CommandContext(ctx, java, "-version")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return 0, errors.Wrap(errors.ErrCodeRuntimeNotFound, err, "run %s -version", java)
	}
	return ParseVersion(stderr.String())
}

// ParseVersion extracts the major version from "java -version" output. The
// first line carries the quoted version: "17.0.2", "21", "23-ea", or the
// legacy "1.8.0_292" form, which maps to 8.
func ParseVersion(output string) (int, error) {
	first, _, _ := strings.Cut(output, "\n")
	_, rest, ok := strings.Cut(first, `"`)
	if !ok {
		return 0, errors.New(errors.ErrCodeRuntimeNotFound, "no quoted version in %q", first)
	}
	quoted, _, ok := strings.Cut(rest, `"`)
	if !ok || quoted == "" {
		return 0, errors.New(errors.ErrCodeRuntimeNotFound, "no quoted version in %q", first)
	}

	parts := strings.Split(quoted, ".")
	major := parts[0]
	if major == "1" && len(parts) > 1 {
		major = parts[1]
	}
	if i := strings.IndexFunc(major, func(r rune) bool { return r < '0' || r > '9' }); i >= 0 {
		major = major[:i]
	}
	v, err := strconv.Atoi(major)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeRuntimeNotFound, err, "parse java version %q", quoted)
	}
	return v, nil
}

func javaExe() string {
	if goruntime.GOOS == "windows" {
		return "java.exe"
	}
	return "java"
}

// homeOf derives JAVA_HOME from a java executable, following symlinks such
// as /usr/bin/java -> /usr/lib/jvm/java-21/bin/java.
func homeOf(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}
	return filepath.Dir(filepath.Dir(path))
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
