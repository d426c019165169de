// Package process manages the supervised child command: spawn, cooperative
// stop, forced kill, relaunch. The child runs in its own process group so a
// stop reaches everything it spawned (go run's compiled binary, shell
// pipelines); the group mechanics live in the per-platform signal files.
package process

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// State is the supervisor's view of the child lifecycle.
type State int

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// SpawnError reports that the child command could not start at all.
// It is not fatal to the watch loop: the caller keeps watching and retries
// on the next change.
type SpawnError struct {
	Command []string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn %q: %v", strings.Join(e.Command, " "), e.Err)
}

func (e *SpawnError) Unwrap() error { return e.Err }

// Supervisor implements ports.Runner for a real OS process. At most one
// child is alive at a time; the handle of the previous child is fully
// reaped before the next Launch. Lifecycle calls must not overlap; the
// watch loop serializes them.
type Supervisor struct {
	command []string
	dir     string
	grace   time.Duration

	mu           sync.Mutex
	state        State
	cmd          *exec.Cmd
	exited       chan struct{} // closed by the reaper once cmd.Wait returns
	forcedStreak int           // consecutive terminations that needed a forced kill
}

// NewSupervisor creates a supervisor for the given command line, run with
// dir as working directory. grace bounds how long Terminate waits between
// the cooperative stop request and the forced kill.
func NewSupervisor(command []string, dir string, grace time.Duration) *Supervisor {
	return &Supervisor{
		command: command,
		dir:     dir,
		grace:   grace,
	}
}

// Launch starts a fresh child with inherited stdio.
func (s *Supervisor) Launch() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.command) == 0 {
		return &SpawnError{Command: s.command, Err: errors.New("empty command")}
	}
	if s.cmd != nil && !s.exitedLocked() {
		return fmt.Errorf("launch: child still running (pid %d)", s.cmd.Process.Pid)
	}
	s.state = StateStarting

	cmd := exec.Command(s.command[0], s.command[1:]...)
	cmd.Dir = s.dir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.SysProcAttr = sysProcAttr()

	if err := cmd.Start(); err != nil {
		s.state = StateStopped
		return &SpawnError{Command: s.command, Err: err}
	}

	exited := make(chan struct{})
	s.cmd = cmd
	s.exited = exited
	s.state = StateRunning
	slog.Info("process started", "pid", cmd.Process.Pid, "command", strings.Join(s.command, " "))

	go s.reap(cmd, exited)
	return nil
}

// reap owns cmd.Wait for one child. It runs exactly once per Launch and
// closing exited is the only signal that the handle has been released.
func (s *Supervisor) reap(cmd *exec.Cmd, exited chan struct{}) {
	err := cmd.Wait()

	s.mu.Lock()
	requested := s.state == StateStopping
	if s.cmd == cmd {
		s.state = StateStopped
	}
	s.mu.Unlock()
	close(exited)

	if !requested {
		slog.Info("process exited, waiting for changes", "pid", cmd.Process.Pid, "status", exitStatus(err))
	}
}

// Terminate stops the current child: cooperative stop request first, forced
// kill once the grace period runs out. A child that already exited on its
// own is detected and treated as success; the exit-vs-signal race is real
// (the child can die between our check and the signal), so signalling
// failures are not errors either.
func (s *Supervisor) Terminate() error {
	s.mu.Lock()
	cmd := s.cmd
	exited := s.exited
	if cmd == nil || s.exitedLocked() {
		s.state = StateStopped
		s.mu.Unlock()
		return nil
	}
	s.state = StateStopping
	pid := cmd.Process.Pid
	s.mu.Unlock()

	slog.Debug("stopping process", "pid", pid)
	if err := requestStop(cmd.Process); err != nil {
		slog.Debug("stop request failed, child likely exiting", "pid", pid, "error", err)
	}

	select {
	case <-exited:
		s.mu.Lock()
		s.forcedStreak = 0
		s.mu.Unlock()
	case <-time.After(s.grace):
		slog.Warn("process ignored stop request, killing", "pid", pid, "grace", s.grace)
		_ = forceKill(cmd.Process)
		<-exited
		s.noteForcedKill()
	}
	return nil
}

// WaitExited blocks until the reaper has released the child's handle.
func (s *Supervisor) WaitExited() {
	s.mu.Lock()
	exited := s.exited
	s.mu.Unlock()

	if exited == nil {
		return
	}
	<-exited
}

// Restart replaces the current child with a fresh one: Terminate,
// WaitExited, Launch as one unit.
func (s *Supervisor) Restart() error {
	if err := s.Terminate(); err != nil {
		return err
	}
	s.WaitExited()
	return s.Launch()
}

// Alive reports whether a launched child is still running.
func (s *Supervisor) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cmd != nil && !s.exitedLocked()
}

// Pid returns the current child's pid, or 0 when nothing is running.
func (s *Supervisor) Pid() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd == nil || s.exitedLocked() {
		return 0
	}
	return s.cmd.Process.Pid
}

// CurrentState returns the lifecycle state, for logs and tests.
func (s *Supervisor) CurrentState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// exitedLocked reports whether the current child's handle has been reaped.
// Caller holds s.mu.
func (s *Supervisor) exitedLocked() bool {
	if s.exited == nil {
		return true
	}
	select {
	case <-s.exited:
		return true
	default:
		return false
	}
}

func (s *Supervisor) noteForcedKill() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forcedStreak++
	if s.forcedStreak >= 3 {
		slog.Warn("process repeatedly ignores stop requests, consider raising the grace period", "consecutive", s.forcedStreak)
	}
}

func exitStatus(err error) string {
	if err == nil {
		return "exit status 0"
	}
	return err.Error()
}
