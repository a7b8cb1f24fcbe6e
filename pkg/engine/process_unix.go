//go:build !windows

package engine

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

// configureCommand starts the engine in its own process group so the JVM
// behind the launcher script is signalled together with it.
func configureCommand(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func terminateProcess(proc *os.Process) error {
	return signalGroup(proc, syscall.SIGTERM)
}

func killProcess(proc *os.Process) error {
	return signalGroup(proc, syscall.SIGKILL)
}

func signalGroup(proc *os.Process, sig syscall.Signal) error {
	err := syscall.Kill(-proc.Pid, sig)
	if err == nil || errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return signalProcess(proc, sig)
}
