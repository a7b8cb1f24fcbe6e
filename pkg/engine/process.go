package engine

import (
	"bufio"
	"context"
	"errors"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	elkerrors "github.com/matzehuels/elkbridge/pkg/errors"
)

// DefaultArgs are the arguments that put the ELK server in stdio mode.
var DefaultArgs = []string{"--stdio"}

// Executable describes how to start the engine.
type Executable struct {
	// Path is the launcher script or binary.
	Path string
	// Args are passed to Path. Nil means DefaultArgs.
	Args []string
	// Env is appended to the parent environment.
	Env []string
}

// Resolver locates the engine executable. It is called before every launch,
// so a resolver may provision the distribution lazily.
type Resolver interface {
	Resolve(ctx context.Context) (Executable, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(ctx context.Context) (Executable, error)

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(ctx context.Context) (Executable, error) { return f(ctx) }

// StaticResolver always resolves to the same executable.
func StaticResolver(exe Executable) Resolver {
	return ResolverFunc(func(context.Context) (Executable, error) { return exe, nil })
}

// Process is one running engine with its three pipes. The parent keeps the
// write end of stdin and the read ends of stdout and stderr.
type Process struct {
	cmd    *exec.Cmd
	path   string
	stdin  *os.File
	stdout *os.File
	reader *bufio.Reader
	stderr chan string

	done    chan struct{}
	waitErr error

	closeOnce sync.Once
}

// startProcess launches exe with piped stdio. The engine is not
// health-checked; a broken launcher surfaces on the first exchange.
func startProcess(exe Executable, logger *log.Logger) (*Process, error) {
	args := exe.Args
	if args == nil {
		args = DefaultArgs
	}

	inR, inW, err := os.Pipe()
	if err != nil {
		return nil, elkerrors.Wrap(elkerrors.ErrCodeProcessLaunch, err, "create stdin pipe")
	}
	outR, outW, err := os.Pipe()
	if err != nil {
		closeAll(inR, inW)
		return nil, elkerrors.Wrap(elkerrors.ErrCodeProcessLaunch, err, "create stdout pipe")
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		closeAll(inR, inW, outR, outW)
		return nil, elkerrors.Wrap(elkerrors.ErrCodeProcessLaunch, err, "create stderr pipe")
	}

	cmd := exec.Command(exe.Path, args...)
	cmd.Stdin = inR
	cmd.Stdout = outW
	cmd.Stderr = errW
	if len(exe.Env) > 0 {
		cmd.Env = append(os.Environ(), exe.Env...)
	}
	configureCommand(cmd)

	if err := cmd.Start(); err != nil {
		closeAll(inR, inW, outR, outW, errR, errW)
		return nil, elkerrors.Wrap(elkerrors.ErrCodeProcessLaunch, err, "start %s", exe.Path)
	}
	// The child holds its own copies now.
	closeAll(inR, outW, errW)

	p := &Process{
		cmd:    cmd,
		path:   exe.Path,
		stdin:  inW,
		stdout: outR,
		reader: bufio.NewReader(outR),
		stderr: make(chan string, defaultStderrBuffer),
		done:   make(chan struct{}),
	}

	go func() {
		p.waitErr = cmd.Wait()
		close(p.done)
	}()
	go p.pumpStderr(errR, logger)

	return p, nil
}

// pumpStderr forwards stderr lines to the buffered channel. Lines are dropped
// when nobody drains the buffer.
func (p *Process) pumpStderr(r *os.File, logger *log.Logger) {
	defer close(p.stderr)
	defer r.Close()

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		select {
		case p.stderr <- sc.Text():
		default:
			logger.Debug("stderr buffer full, dropping line", "pid", p.PID())
		}
	}
}

// PID returns the operating-system process id.
func (p *Process) PID() int {
	if p.cmd == nil || p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// Path returns the launched executable.
func (p *Process) Path() string { return p.path }

// Alive reports whether the process has not exited. It never blocks.
func (p *Process) Alive() bool {
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// Done is closed when the process has exited.
func (p *Process) Done() <-chan struct{} { return p.done }

// ExitErr returns the result of waiting on the process, or nil while it is
// still running.
func (p *Process) ExitErr() error {
	select {
	case <-p.done:
		return p.waitErr
	default:
		return nil
	}
}

// Stop closes stdin, asks the engine to terminate and kills it if it has not
// exited within timeout. Safe to call more than once.
func (p *Process) Stop(timeout time.Duration) {
	p.closeOnce.Do(func() {
		_ = p.stdin.Close()

		if p.Alive() {
			_ = terminateProcess(p.cmd.Process)
			select {
			case <-p.done:
			case <-time.After(timeout):
				_ = killProcess(p.cmd.Process)
				select {
				case <-p.done:
				case <-time.After(timeout):
				}
			}
		}

		// Unblocks a reader abandoned after a timeout.
		_ = p.stdout.Close()
	})
}

// signalProcess sends sig, returning nil if the process has already exited.
func signalProcess(proc *os.Process, sig os.Signal) error {
	err := proc.Signal(sig)
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

func closeAll(files ...*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}
