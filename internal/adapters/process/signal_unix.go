//go:build unix

package process

import (
	"os"
	"syscall"
)

// sysProcAttr places the child in its own process group so stop signals
// reach everything it spawned, not just the immediate child.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

// requestStop asks the child's process group to exit with SIGTERM.
// Falls back to signalling the pid directly when the group is already gone.
func requestStop(p *os.Process) error {
	if err := syscall.Kill(-p.Pid, syscall.SIGTERM); err != nil {
		return p.Signal(syscall.SIGTERM)
	}
	return nil
}

// forceKill sends SIGKILL to the child's process group.
func forceKill(p *os.Process) error {
	if err := syscall.Kill(-p.Pid, syscall.SIGKILL); err != nil {
		return p.Kill()
	}
	return nil
}
