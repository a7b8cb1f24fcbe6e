// Package distribution provisions the ELK server distribution on disk.
//
// The server is published as a zip archive containing a launcher script at
// elk-server-<version>/bin/elk-server. [Provisioner.Ensure] downloads the
// archive into a user cache directory on first use, unpacks it and makes the
// script executable; later calls find the script and return immediately.
//
// A Provisioner is an [engine.Resolver], so it can be handed straight to a
// supervisor:
//
//	prov := distribution.New(distribution.Options{CacheDir: dir, Finder: locator})
//	sup := engine.New(prov)
package distribution

import (
	"context"
	"io"
	"os"
	"path/filepath"
	goruntime "runtime"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/klauspost/compress/zip"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/elkbridge/pkg/engine"
	"github.com/matzehuels/elkbridge/pkg/errors"
	"github.com/matzehuels/elkbridge/pkg/httputil"
	"github.com/matzehuels/elkbridge/pkg/runtime"
)

const (
	// DefaultVersion is the ELK server release fetched by default.
	DefaultVersion = "0.2.0"
	// DefaultBaseURL is where releases are published. The archive URL is
	// <base>/v<version>/elk-server-<version>.zip.
	DefaultBaseURL = "https://github.com/TypeFox/elk-server/releases/download"
)

// Finder locates a Java runtime.
type Finder interface {
	Find(ctx context.Context) (runtime.Java, error)
}

// Distribution is an unpacked, runnable ELK server.
type Distribution struct {
	Version string
	Dir     string // unpacked distribution root
	Script  string // launcher script
	Runtime runtime.Java
}

// Env returns the environment the launcher needs to pick the validated
// runtime rather than whatever java is first on PATH.
func (d Distribution) Env() []string {
	if d.Runtime.Home == "" {
		return nil
	}
	return []string{"JAVA_HOME=" + d.Runtime.Home}
}

// Executable returns the launch description for the given mode flags.
// Nil args mean stdio mode.
func (d Distribution) Executable(args ...string) engine.Executable {
	return engine.Executable{Path: d.Script, Args: args, Env: d.Env()}
}

// Options configures a Provisioner. Zero values select defaults.
type Options struct {
	Version  string
	BaseURL  string
	CacheDir string
	// SHA256 pins the archive checksum (hex). Empty disables verification.
	SHA256     string
	Finder     Finder
	Downloader *httputil.Downloader
	Logger     *log.Logger
}

// Provisioner makes the distribution available locally.
type Provisioner struct {
	opts  Options
	group singleflight.Group
}

var _ engine.Resolver = (*Provisioner)(nil)

// New returns a provisioner. CacheDir is required; the other options have
// defaults.
func New(opts Options) *Provisioner {
	if opts.Version == "" {
		opts.Version = DefaultVersion
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Finder == nil {
		opts.Finder = runtime.NewLocator("", opts.Logger)
	}
	if opts.Downloader == nil {
		opts.Downloader = httputil.NewDownloader()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	return &Provisioner{opts: opts}
}

// Version returns the configured release.
func (p *Provisioner) Version() string { return p.opts.Version }

// CacheDir returns the directory holding archives and unpacked releases.
func (p *Provisioner) CacheDir() string { return p.opts.CacheDir }

// ArchiveName returns the archive file name, e.g. elk-server-0.2.0.zip.
func (p *Provisioner) ArchiveName() string {
	return "elk-server-" + p.opts.Version + ".zip"
}

// ArchiveURL returns the download URL of the archive.
func (p *Provisioner) ArchiveURL() string {
	return strings.TrimRight(p.opts.BaseURL, "/") + "/v" + p.opts.Version + "/" + p.ArchiveName()
}

// ArchivePath returns where the archive is cached.
func (p *Provisioner) ArchivePath() string {
	return filepath.Join(p.opts.CacheDir, p.ArchiveName())
}

// Dir returns the unpacked distribution directory.
func (p *Provisioner) Dir() string {
	return filepath.Join(p.opts.CacheDir, "elk-server-"+p.opts.Version)
}

// Script returns the launcher script path.
func (p *Provisioner) Script() string {
	name := "elk-server"
	if goruntime.GOOS == "windows" {
		name += ".bat"
	}
	return filepath.Join(p.Dir(), "bin", name)
}

// Installed reports whether the launcher script is present.
func (p *Provisioner) Installed() bool {
	return isFile(p.Script())
}

// Resolve implements engine.Resolver by ensuring the distribution and
// describing its stdio launch.
func (p *Provisioner) Resolve(ctx context.Context) (engine.Executable, error) {
	d, err := p.Ensure(ctx)
	if err != nil {
		return engine.Executable{}, err
	}
	return d.Executable(), nil
}

// Ensure returns the distribution, downloading and unpacking it if needed.
// A Java runtime is located first so a missing runtime fails before any
// download. Concurrent calls share one provisioning run.
func (p *Provisioner) Ensure(ctx context.Context) (Distribution, error) {
	v, err, _ := p.group.Do("ensure", func() (any, error) {
		return p.ensure(ctx)
	})
	if err != nil {
		return Distribution{}, err
	}
	return v.(Distribution), nil
}

func (p *Provisioner) ensure(ctx context.Context) (Distribution, error) {
	if p.opts.CacheDir == "" {
		return Distribution{}, errors.New(errors.ErrCodeInvalidConfig, "distribution cache directory is not set")
	}

	java, err := p.opts.Finder.Find(ctx)
	if err != nil {
		return Distribution{}, err
	}
	d := Distribution{Version: p.opts.Version, Dir: p.Dir(), Script: p.Script(), Runtime: java}

	if p.Installed() {
		return d, nil
	}

	if err := p.fetch(ctx); err != nil {
		return Distribution{}, err
	}
	if err := p.unpack(); err != nil {
		return Distribution{}, err
	}
	p.opts.Logger.Info("elk server installed", "version", p.opts.Version, "dir", p.Dir())
	return d, nil
}

// fetch downloads the archive unless a verified copy is already cached.
func (p *Provisioner) fetch(ctx context.Context) error {
	path := p.ArchivePath()
	if isFile(path) {
		if err := p.verify(path); err == nil {
			return nil
		}
		p.opts.Logger.Warn("cached archive failed verification, downloading again", "path", path)
		_ = os.Remove(path)
	}

	p.opts.Logger.Info("downloading elk server", "url", p.ArchiveURL())
	sum, err := p.opts.Downloader.Download(ctx, p.ArchiveURL(), path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeProvision, err, "download elk server %s", p.opts.Version)
	}
	if want := p.opts.SHA256; want != "" && !strings.EqualFold(sum, want) {
		_ = os.Remove(path)
		return errors.New(errors.ErrCodeProvision, "checksum mismatch for %s: got %s, want %s", p.ArchiveName(), sum, want)
	}
	return nil
}

func (p *Provisioner) verify(path string) error {
	if p.opts.SHA256 == "" {
		return nil
	}
	sum, err := httputil.SHA256File(path)
	if err != nil {
		return err
	}
	if !strings.EqualFold(sum, p.opts.SHA256) {
		return errors.New(errors.ErrCodeProvision, "checksum mismatch")
	}
	return nil
}

// unpack replaces any stale distribution directory with the archive's
// contents and marks the launcher executable.
func (p *Provisioner) unpack() error {
	if err := os.RemoveAll(p.Dir()); err != nil {
		return errors.Wrap(errors.ErrCodeProvision, err, "remove stale %s", p.Dir())
	}
	if err := extract(p.ArchivePath(), p.opts.CacheDir); err != nil {
		return errors.Wrap(errors.ErrCodeProvision, err, "extract %s", p.ArchiveName())
	}
	if !isFile(p.Script()) {
		return errors.New(errors.ErrCodeProvision, "archive %s has no %s", p.ArchiveName(), p.Script())
	}
	if err := os.Chmod(p.Script(), 0o755); err != nil {
		return errors.Wrap(errors.ErrCodeProvision, err, "chmod %s", p.Script())
	}
	return nil
}

// Clear removes cached archives and unpacked releases.
func (p *Provisioner) Clear() error {
	entries, err := os.ReadDir(p.opts.CacheDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "elk-server-") {
			if err := os.RemoveAll(filepath.Join(p.opts.CacheDir, e.Name())); err != nil {
				return err
			}
		}
	}
	return nil
}

func extract(archive, dest string) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer r.Close()

	root, err := filepath.Abs(dest)
	if err != nil {
		return err
	}
	for _, f := range r.File {
		if err := extractFile(f, root); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, root string) error {
	target := filepath.Join(root, filepath.FromSlash(f.Name))
	if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return errors.New(errors.ErrCodeProvision, "illegal path in archive: %s", f.Name)
	}

	mode := f.Mode()
	if mode.IsDir() {
		return os.MkdirAll(target, 0o755)
	}
	if mode&os.ModeSymlink != 0 {
		return errors.New(errors.ErrCodeProvision, "symlink in archive: %s", f.Name)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	perm := mode.Perm()
	if perm == 0 {
		perm = 0o644
	}
	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
