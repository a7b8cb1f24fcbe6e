//go:build windows

package engine

import (
	"os"
	"os/exec"
)

func configureCommand(*exec.Cmd) {}

// Windows has no SIGTERM; termination is a kill.
func terminateProcess(proc *os.Process) error {
	return signalProcess(proc, os.Kill)
}

func killProcess(proc *os.Process) error {
	return signalProcess(proc, os.Kill)
}
