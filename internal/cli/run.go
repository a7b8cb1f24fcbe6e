package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/elkbridge/pkg/engine"
	"github.com/matzehuels/elkbridge/pkg/errors"
	"github.com/matzehuels/elkbridge/pkg/layout"
)

// Server modes accepted by "run --mode".
const (
	modeStdio  = "stdio"
	modeSocket = "socket"
)

// runCommand creates the run command, which starts the server in the
// foreground.
func (c *CLI) runCommand() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the ELK server in the foreground",
		Long: `Run the ELK server in the foreground.

In stdio mode every line read from standard input is sent to the server as one
request and the response is printed to standard output. Failures are reported
on standard error as "Error: ..." and the next line is processed.

In socket mode the server is started with --socket and its output is
forwarded to standard error until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch mode {
			case modeStdio:
				return c.runStdio(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
			case modeSocket:
				return c.runSocket(cmd.Context(), cmd.ErrOrStderr())
			default:
				return errors.New(errors.ErrCodeInvalidInput, "invalid mode %q: must be %s or %s", mode, modeStdio, modeSocket)
			}
		},
	}

	cmd.Flags().StringVar(&mode, "mode", modeStdio, "server mode: stdio or socket")
	return cmd
}

// runStdio relays request lines through a supervisor. It returns nil when
// input ends or the context is cancelled.
func (c *CLI) runStdio(ctx context.Context, in io.Reader, out, errOut io.Writer) error {
	opts, err := layout.SupervisorOptions(c.cfg, c.Logger)
	if err != nil {
		return err
	}
	sup := engine.New(layout.Resolver(c.cfg, c.Logger), opts...)
	defer sup.Shutdown()

	c.Logger.Info("running elk server", "mode", modeStdio)
	if _, err := sup.EnsureProcess(ctx); err != nil {
		return err
	}

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		sc.Buffer(make([]byte, 64*1024), 64*1024*1024)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			c.Logger.Info("stopping elk server")
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					if err != nil {
						return fmt.Errorf("read input: %w", err)
					}
				default:
				}
				return nil
			}
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			resp, err := sup.ExchangeLine(ctx, []byte(line))
			if err != nil {
				if ctx.Err() != nil {
					c.Logger.Info("stopping elk server")
					return nil
				}
				fmt.Fprintf(errOut, "Error: %s\n", errors.UserMessage(err))
				continue
			}
			fmt.Fprintln(out, string(resp))
		}
	}
}

// runSocket runs the server with --socket until it exits or ctx is cancelled.
func (c *CLI) runSocket(ctx context.Context, errOut io.Writer) error {
	exe, err := layout.Resolver(c.cfg, c.Logger, "--"+modeSocket).Resolve(ctx)
	if err != nil {
		return err
	}

	c.Logger.Info("running elk server", "mode", modeSocket, "command", exe.Path+" "+strings.Join(exe.Args, " "))
	cmd := exec.CommandContext(ctx, exe.Path, exe.Args...)
	cmd.Env = append(os.Environ(), exe.Env...)
	cmd.Stdout = errOut
	cmd.Stderr = errOut
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = c.cfg.Engine.ShutdownTimeout.Duration

	if err := cmd.Start(); err != nil {
		return errors.Wrap(errors.ErrCodeProcessLaunch, err, "start %s", exe.Path)
	}
	err = cmd.Wait()
	if ctx.Err() != nil {
		c.Logger.Info("stopping elk server")
		return nil
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeEngineFailure, err, "elk server exited")
	}
	return nil
}
