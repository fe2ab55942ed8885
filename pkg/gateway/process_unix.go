//go:build unix

package gateway

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

// terminate asks the process to exit with SIGTERM.
func terminate(p *os.Process) error {
	return unix.Kill(p.Pid, unix.SIGTERM)
}

// processAlive probes the process table with signal 0.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}
