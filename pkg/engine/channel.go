package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	elkerrors "github.com/matzehuels/elkbridge/pkg/errors"
)

// maxDiagnosticLen caps engine stderr text carried in error messages.
const maxDiagnosticLen = 4096

// Channel runs one request/response exchange at a time against a Process.
// It holds no per-exchange state; callers serialize access.
type Channel struct {
	cfg    ChannelConfig
	logger *log.Logger
}

// NewChannel returns a channel with cfg's zero fields set to defaults.
func NewChannel(cfg ChannelConfig, logger *log.Logger) *Channel {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Channel{cfg: cfg.withDefaults(), logger: logger}
}

type readResult struct {
	line []byte
	err  error
}

// Exchange writes line to the engine and returns its response line.
//
// Stale stderr left over from earlier exchanges is logged and dropped first,
// so diagnostics are attributed to the request that caused them. After the
// response, the channel waits briefly for one stderr line: the known trailer
// is discarded, anything else fails the exchange with ErrCodeEngineError.
//
// Failure codes:
//   - ErrCodeInvalidInput: line spans several lines; nothing was written
//   - ErrCodeConnection: the write or read failed
//   - ErrCodeEngineFailure: stdout closed without a response
//   - ErrCodeTimeout: ctx or the read timeout expired
//   - ErrCodeEngineError: the engine reported an error on stderr
//   - ErrCodeMalformedResponse: the response is not valid JSON
func (c *Channel) Exchange(ctx context.Context, p *Process, line []byte) ([]byte, error) {
	resp, _, err := c.exchange(ctx, p, line)
	return resp, err
}

// exchange also reports whether any request bytes reached the engine. A
// failure before that leaves the conversation in sync.
func (c *Channel) exchange(ctx context.Context, p *Process, line []byte) (resp []byte, sent bool, err error) {
	line = bytes.TrimRight(line, "\r\n")
	if bytes.IndexByte(line, '\n') >= 0 {
		return nil, false, elkerrors.New(elkerrors.ErrCodeInvalidInput, "request must be a single line")
	}
	if err := ctx.Err(); err != nil {
		return nil, false, elkerrors.Wrap(elkerrors.ErrCodeTimeout, err, "exchange cancelled")
	}

	c.drainStale(p)

	if c.cfg.ReadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.ReadTimeout)
		defer cancel()
	}

	if sent, err := c.write(ctx, p, line); err != nil {
		return nil, sent, err
	}

	resp, err = c.read(ctx, p)
	if err != nil {
		return nil, true, err
	}

	if diag, ok := c.trailer(p); ok {
		if c.cfg.Trailer.Benign(diag) {
			c.logger.Debug("engine trailer", "pid", p.PID())
		} else {
			return nil, true, elkerrors.New(elkerrors.ErrCodeEngineError, "elk server error: %s", truncate(diag))
		}
	}

	if len(resp) == 0 || !json.Valid(resp) {
		return nil, true, elkerrors.New(elkerrors.ErrCodeMalformedResponse,
			"elk server returned malformed response: %q", truncate(string(resp)))
	}
	return resp, true, nil
}

// drainStale empties the stderr buffer without blocking.
func (c *Channel) drainStale(p *Process) {
	for {
		select {
		case l, ok := <-p.stderr:
			if !ok {
				return
			}
			c.logger.Warn("engine stderr", "pid", p.PID(), "line", l)
		default:
			return
		}
	}
}

// write reports whether any byte of line was written.
func (c *Channel) write(ctx context.Context, p *Process, line []byte) (bool, error) {
	buf := make([]byte, 0, len(line)+1)
	buf = append(buf, line...)
	buf = append(buf, '\n')

	if deadline, ok := ctx.Deadline(); ok {
		_ = p.stdin.SetWriteDeadline(deadline)
		defer func() { _ = p.stdin.SetWriteDeadline(time.Time{}) }()
	}

	n, err := p.stdin.Write(buf)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return n > 0, elkerrors.Wrap(elkerrors.ErrCodeTimeout, err, "elk server did not accept request")
		}
		return n > 0, elkerrors.Wrap(elkerrors.ErrCodeConnection, err, "elk server connection failed")
	}
	return true, nil
}

func (c *Channel) read(ctx context.Context, p *Process) ([]byte, error) {
	var res readResult
	if ctx.Done() == nil {
		res.line, res.err = p.reader.ReadBytes('\n')
	} else {
		ch := make(chan readResult, 1)
		go func() {
			l, err := p.reader.ReadBytes('\n')
			ch <- readResult{l, err}
		}()
		select {
		case res = <-ch:
		case <-ctx.Done():
			return nil, elkerrors.Wrap(elkerrors.ErrCodeTimeout, ctx.Err(), "no response from elk server")
		}
	}

	switch {
	case res.err == nil:
		return bytes.TrimRight(res.line, "\r\n"), nil
	case errors.Is(res.err, io.EOF):
		return nil, c.failure(p, res.line)
	default:
		return nil, elkerrors.Wrap(elkerrors.ErrCodeConnection, res.err, "elk server connection failed")
	}
}

// failure builds the error for a stdout that closed without a complete
// response, using whatever the engine wrote to stderr as it went down.
func (c *Channel) failure(p *Process, partial []byte) error {
	var lines []string
	timer := time.NewTimer(c.cfg.DrainWait)
	defer timer.Stop()
collect:
	for {
		select {
		case l, ok := <-p.stderr:
			if !ok {
				break collect
			}
			lines = append(lines, l)
		case <-timer.C:
			break collect
		}
	}

	c.logger.Debug("engine closed stdout", "pid", p.PID(), "partial", len(partial), "stderr_lines", len(lines))
	if len(lines) == 0 {
		return elkerrors.New(elkerrors.ErrCodeEngineFailure, "elk server failure: no response")
	}
	return elkerrors.New(elkerrors.ErrCodeEngineFailure, "elk server failure: %s", truncate(strings.Join(lines, "\n")))
}

// trailer waits up to TrailerWait for the line that follows a response.
func (c *Channel) trailer(p *Process) (string, bool) {
	timer := time.NewTimer(c.cfg.TrailerWait)
	defer timer.Stop()
	select {
	case l, ok := <-p.stderr:
		return l, ok
	case <-timer.C:
		return "", false
	}
}

// truncate caps s at maxDiagnosticLen bytes on a rune boundary.
func truncate(s string) string {
	if len(s) <= maxDiagnosticLen {
		return s
	}
	end := maxDiagnosticLen
	for end > 0 && !utf8.RuneStart(s[end]) {
		end--
	}
	return s[:end] + "..."
}
