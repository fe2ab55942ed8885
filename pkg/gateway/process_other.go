//go:build !unix

package gateway

import "os"

// terminate has no graceful signal to send outside Unix; it kills.
func terminate(p *os.Process) error {
	return p.Kill()
}

func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	_ = p.Release()
	return true
}
