package engine

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	elkerrors "github.com/matzehuels/elkbridge/pkg/errors"
	"github.com/matzehuels/elkbridge/pkg/observability"
)

// Supervisor owns at most one engine process and runs exchanges against it.
//
// A process is launched lazily on the first exchange and reused while it
// stays alive. Exchanges that fail with a connection, engine-failure or
// timeout error after the request reached the engine discard the process;
// the next exchange launches a new one. A request that expires while queued
// for its turn never touches the process.
// Engine errors and malformed responses leave the process in place.
type Supervisor struct {
	resolver Resolver
	channel  *Channel
	logger   *log.Logger
	hooks    observability.EngineHooks
	timeout  time.Duration

	turnMu sync.Mutex // serializes exchanges and launches

	mu       sync.Mutex // guards the fields below
	proc     *Process
	state    State
	gen      uint64 // bumped by Shutdown
	launches int
}

// New returns a supervisor that launches whatever resolver yields. No
// process is started until the first exchange.
func New(resolver Resolver, opts ...Option) *Supervisor {
	o := resolveOptions(opts)
	return &Supervisor{
		resolver: resolver,
		channel:  NewChannel(o.Channel, o.Logger),
		logger:   o.Logger,
		hooks:    o.Hooks,
		timeout:  o.ShutdownTimeout,
	}
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// PID returns the pid of the current process, or 0 if there is none.
func (s *Supervisor) PID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.proc == nil {
		return 0
	}
	return s.proc.PID()
}

// Launches returns how many processes this supervisor has started.
func (s *Supervisor) Launches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.launches
}

// EnsureProcess returns a live process, launching one if none exists or the
// previous one has exited.
func (s *Supervisor) EnsureProcess(ctx context.Context) (*Process, error) {
	s.turnMu.Lock()
	defer s.turnMu.Unlock()
	return s.ensure(ctx)
}

// Exchange encodes payload as one JSON line, sends it to the engine and
// returns the response. []byte and json.RawMessage payloads are sent as is.
func (s *Supervisor) Exchange(ctx context.Context, payload any) (json.RawMessage, error) {
	var line []byte
	switch v := payload.(type) {
	case json.RawMessage:
		line = v
	case []byte:
		line = v
	default:
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, elkerrors.Wrap(elkerrors.ErrCodeInvalidInput, err, "encode request")
		}
		line = data
	}
	return s.ExchangeLine(ctx, line)
}

// ExchangeLine sends a pre-encoded request line and returns the response.
func (s *Supervisor) ExchangeLine(ctx context.Context, line []byte) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, elkerrors.Wrap(elkerrors.ErrCodeTimeout, err, "exchange cancelled")
	}

	s.turnMu.Lock()
	defer s.turnMu.Unlock()

	// The deadline may have passed while waiting for the turn.
	if err := ctx.Err(); err != nil {
		return nil, elkerrors.Wrap(elkerrors.ErrCodeTimeout, err, "exchange cancelled")
	}

	p, err := s.ensure(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, sent, err := s.channel.exchange(ctx, p, line)
	s.hooks.OnExchange(ctx, len(line), len(resp), time.Since(start), err)
	if err != nil {
		if sent && elkerrors.Retryable(err) {
			s.discard(ctx, p, err)
		}
		return nil, err
	}
	return resp, nil
}

// Shutdown stops the current process, if any. It never fails, may be called
// any number of times and does not wait for an exchange in flight; that
// exchange fails once its process is gone. A later exchange launches a new
// process.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	p := s.proc
	s.proc = nil
	s.state = StateAbsent
	s.gen++
	s.mu.Unlock()

	if p == nil {
		return
	}
	p.Stop(s.timeout)
	s.logger.Info("engine stopped", "pid", p.PID())
	s.hooks.OnShutdown(context.Background(), p.PID())
}

// ensure must be called with turnMu held.
func (s *Supervisor) ensure(ctx context.Context) (*Process, error) {
	s.mu.Lock()
	if s.proc != nil {
		if s.proc.Alive() {
			p := s.proc
			s.mu.Unlock()
			return p, nil
		}
		dead := s.proc
		s.proc = nil
		s.state = StateCrashed
		s.mu.Unlock()

		dead.Stop(s.timeout)
		s.logger.Warn("engine exited", "pid", dead.PID(), "err", dead.ExitErr())
		s.hooks.OnDiscard(ctx, dead.PID(), dead.ExitErr())
		s.mu.Lock()
	}
	gen := s.gen
	s.state = StateStarting
	s.mu.Unlock()

	p, err := s.launch(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		if s.gen == gen {
			s.state = StateAbsent
		}
		s.hooks.OnLaunchFailed(ctx, err)
		return nil, err
	}
	if s.gen != gen {
		p.Stop(s.timeout)
		return nil, elkerrors.New(elkerrors.ErrCodeProcessLaunch, "supervisor shut down during launch")
	}
	s.proc = p
	s.state = StateReady
	s.launches++
	s.logger.Info("engine started", "pid", p.PID(), "path", p.Path())
	s.hooks.OnLaunch(ctx, p.PID(), p.Path())
	return p, nil
}

func (s *Supervisor) launch(ctx context.Context) (*Process, error) {
	exe, err := s.resolver.Resolve(ctx)
	if err != nil {
		if elkerrors.Is(err, elkerrors.ErrCodeProcessLaunch) {
			return nil, err
		}
		return nil, elkerrors.Wrap(elkerrors.ErrCodeProcessLaunch, err, "resolve elk server")
	}
	if exe.Path == "" {
		return nil, elkerrors.New(elkerrors.ErrCodeProcessLaunch, "resolve elk server: empty executable path")
	}
	s.logger.Debug("launching engine", "path", exe.Path, "args", exe.Args)
	return startProcess(exe, s.logger)
}

// discard drops p after a failed exchange, unless Shutdown already did.
func (s *Supervisor) discard(ctx context.Context, p *Process, reason error) {
	s.mu.Lock()
	current := s.proc == p
	if current {
		s.proc = nil
		s.state = StateCrashed
	}
	s.mu.Unlock()

	p.Stop(s.timeout)
	if current {
		s.logger.Warn("engine discarded", "pid", p.PID(), "reason", elkerrors.GetCode(reason))
		s.hooks.OnDiscard(ctx, p.PID(), reason)
	}
}
