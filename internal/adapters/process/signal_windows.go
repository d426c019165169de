//go:build windows

package process

import (
	"os"
	"syscall"
)

// sysProcAttr creates the child in a fresh process group.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}

// requestStop terminates the child. Windows has no cooperative equivalent
// of SIGTERM that works for arbitrary non-console children, so the stop is
// immediate and the grace period never comes into play.
func requestStop(p *os.Process) error {
	return p.Kill()
}

// forceKill terminates the child outright.
func forceKill(p *os.Process) error {
	return p.Kill()
}
