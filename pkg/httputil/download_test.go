package httputil

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	elkerrors "github.com/matzehuels/elkbridge/pkg/errors"
)

func TestDownload(t *testing.T) {
	body := []byte("PK\x03\x04 pretend archive")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "elkbridge-test" {
			t.Errorf("User-Agent = %q", r.Header.Get("User-Agent"))
		}
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	d := &Downloader{Header: http.Header{"User-Agent": {"elkbridge-test"}}}
	dst := filepath.Join(t.TempDir(), "nested", "elk.zip")
	sum, err := d.Download(context.Background(), srv.URL+"/elk.zip", dst)
	if err != nil {
		t.Fatalf("Download() error: %v", err)
	}

	want := sha256.Sum256(body)
	if sum != hex.EncodeToString(want[:]) {
		t.Errorf("sum = %s", sum)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(body) {
		t.Errorf("file content = %q", got)
	}
	if fileSum, _ := SHA256File(dst); fileSum != sum {
		t.Errorf("SHA256File() = %s, want %s", fileSum, sum)
	}

	parts, _ := filepath.Glob(filepath.Join(filepath.Dir(dst), "*.part"))
	if len(parts) != 0 {
		t.Errorf("temporary files left behind: %v", parts)
	}
}

func TestDownloadRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	d := &Downloader{Attempts: 3, Delay: time.Millisecond}
	if _, err := d.Download(context.Background(), srv.URL, filepath.Join(t.TempDir(), "f")); err != nil {
		t.Fatalf("Download() error: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestDownloadStatusErrors(t *testing.T) {
	tests := []struct {
		status int
		code   elkerrors.Code
		calls  int32
	}{
		{http.StatusNotFound, elkerrors.ErrCodeNotFound, 1},
		{http.StatusForbidden, elkerrors.ErrCodeNetwork, 1},
		{http.StatusServiceUnavailable, elkerrors.ErrCodeNetwork, 2},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			dst := filepath.Join(t.TempDir(), "f")
			d := &Downloader{Attempts: 2, Delay: time.Millisecond}
			_, err := d.Download(context.Background(), srv.URL, dst)
			if elkerrors.GetCode(err) != tt.code {
				t.Fatalf("got %v, want %s", err, tt.code)
			}
			if calls.Load() != tt.calls {
				t.Errorf("calls = %d, want %d", calls.Load(), tt.calls)
			}
			if _, err := os.Stat(dst); !os.IsNotExist(err) {
				t.Error("failed download should not create the destination")
			}
		})
	}
}

func TestRetry(t *testing.T) {
	ctx := context.Background()
	transient := &RetryableError{Err: errors.New("transient")}
	permanent := errors.New("permanent")

	t.Run("succeeds after transient failures", func(t *testing.T) {
		n := 0
		err := Retry(ctx, 3, time.Millisecond, func() error {
			n++
			if n < 3 {
				return transient
			}
			return nil
		})
		if err != nil || n != 3 {
			t.Errorf("Retry() = %v after %d calls", err, n)
		}
	})

	t.Run("stops on permanent error", func(t *testing.T) {
		n := 0
		err := Retry(ctx, 5, time.Millisecond, func() error {
			n++
			return permanent
		})
		if !errors.Is(err, permanent) || n != 1 {
			t.Errorf("Retry() = %v after %d calls", err, n)
		}
	})

	t.Run("returns the cause when exhausted", func(t *testing.T) {
		n := 0
		err := Retry(ctx, 2, time.Millisecond, func() error {
			n++
			return transient
		})
		if err != transient.Err || n != 2 {
			t.Errorf("Retry() = %v after %d calls, want the unwrapped cause after 2", err, n)
		}
	})

	t.Run("zero attempts still calls once", func(t *testing.T) {
		n := 0
		_ = Retry(ctx, 0, time.Millisecond, func() error {
			n++
			return transient
		})
		if n != 1 {
			t.Errorf("calls = %d, want 1", n)
		}
	})

	t.Run("honors cancellation", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		err := Retry(cctx, 3, time.Hour, func() error { return transient })
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Retry() = %v, want context.Canceled", err)
		}
	})
}
