package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/elkbridge/pkg/observability"
)

// newLogger creates a new logger with timestamp formatting.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time since progress was created.
// Example output: "Computed layout of 42 nodes (1.234s)"
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

// logHooks writes observability events at debug level. Engine lifecycle
// events are already logged by the supervisor, so only exchanges are traced.
type logHooks struct {
	observability.NoopEngineHooks
	logger *log.Logger
}

func (h logHooks) OnExchange(_ context.Context, req, resp int, d time.Duration, err error) {
	h.logger.Debug("exchange", "request_bytes", req, "response_bytes", resp, "elapsed", d.Round(time.Microsecond), "err", err)
}

func (h logHooks) OnLayoutStart(_ context.Context, algorithm string, nodes int) {
	h.logger.Debug("layout started", "algorithm", orDefault(algorithm), "nodes", nodes)
}

func (h logHooks) OnLayoutComplete(_ context.Context, algorithm string, d time.Duration, err error) {
	h.logger.Debug("layout finished", "algorithm", orDefault(algorithm), "elapsed", d.Round(time.Millisecond), "err", err)
}

func (h logHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h logHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h logHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}

func (h logHooks) OnRequest(_ context.Context, method, host, path string) {
	h.logger.Debug("http request", "method", method, "host", host, "path", path)
}

func (h logHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.logger.Debug("http response", "method", method, "host", host, "path", path, "status", status, "elapsed", d.Round(time.Millisecond))
}

func (h logHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.logger.Debug("http error", "method", method, "host", host, "path", path, "err", err)
}

func orDefault(algorithm string) string {
	if algorithm == "" {
		return "default"
	}
	return algorithm
}
