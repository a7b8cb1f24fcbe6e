package httputil

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/matzehuels/elkbridge/pkg/errors"
	"github.com/matzehuels/elkbridge/pkg/observability"
)

// DefaultTimeout bounds a whole download, including retries of the request.
const DefaultTimeout = 5 * time.Minute

// Downloader fetches files over HTTP into the local filesystem.
type Downloader struct {
	Client   *http.Client
	Attempts int           // total tries for transient failures; 0 means 3
	Delay    time.Duration // initial backoff; 0 means 1s
	Header   http.Header   // sent with every request
}

// NewDownloader returns a Downloader with default retry settings.
func NewDownloader() *Downloader {
	return &Downloader{Client: &http.Client{Timeout: DefaultTimeout}}
}

// Download streams rawURL into dst and returns the hex SHA-256 of the body.
// The file is written to a temporary sibling and renamed into place, so dst
// either holds a complete body or is left untouched. Network errors and 5xx
// or 429 responses are retried with backoff.
func (d *Downloader) Download(ctx context.Context, rawURL, dst string) (string, error) {
	var sum string
	fetch := func() error {
		s, err := d.fetchOnce(ctx, rawURL, dst)
		sum = s
		return err
	}

	attempts, delay := d.Attempts, d.Delay
	if attempts <= 0 {
		attempts = 3
	}
	if delay <= 0 {
		delay = time.Second
	}
	if err := Retry(ctx, attempts, delay, fetch); err != nil {
		if errors.GetCode(err) != "" {
			return "", err
		}
		return "", errors.Wrap(errors.ErrCodeNetwork, err, "download %s", rawURL)
	}
	return sum, nil
}

func (d *Downloader) fetchOnce(ctx context.Context, rawURL, dst string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidInput, err, "build request")
	}
	for k, vs := range d.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	host, path := describe(req.URL)
	hooks := observability.HTTP()
	hooks.OnRequest(ctx, req.Method, host, path)

	start := time.Now()
	resp, err := d.client().Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, host, path, err)
		return "", &RetryableError{Err: errors.Wrap(errors.ErrCodeNetwork, err, "GET %s", rawURL)}
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))

	if err := checkStatus(rawURL, resp.StatusCode); err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", errors.Wrap(errors.ErrCodeProvision, err, "create %s", filepath.Dir(dst))
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".*.part")
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeProvision, err, "create temp file")
	}
	defer os.Remove(tmp.Name())

	h := sha256.New()
	if _, err := io.Copy(io.MultiWriter(tmp, h), resp.Body); err != nil {
		tmp.Close()
		return "", &RetryableError{Err: errors.Wrap(errors.ErrCodeNetwork, err, "read body of %s", rawURL)}
	}
	if err := tmp.Close(); err != nil {
		return "", errors.Wrap(errors.ErrCodeProvision, err, "write %s", tmp.Name())
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", errors.Wrap(errors.ErrCodeProvision, err, "move download into place")
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (d *Downloader) client() *http.Client {
	if d.Client == nil {
		return http.DefaultClient
	}
	return d.Client
}

func checkStatus(rawURL string, code int) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return errors.New(errors.ErrCodeNotFound, "GET %s: status %d", rawURL, code)
	case code >= 500 || code == http.StatusTooManyRequests:
		return &RetryableError{Err: errors.New(errors.ErrCodeNetwork, "GET %s: status %d", rawURL, code)}
	default:
		return errors.New(errors.ErrCodeNetwork, "GET %s: status %d", rawURL, code)
	}
}

func describe(u *url.URL) (string, string) {
	if u == nil {
		return "", ""
	}
	return u.Host, u.Path
}

// SHA256File returns the hex SHA-256 of the file at path.
func SHA256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
