package ports

// Runner owns the lifecycle of the supervised child command. The concrete
// implementation lives in internal/adapters/process; the loop in
// internal/app drives it through this interface so tests can substitute
// a fake. Callers serialize: no two lifecycle calls run concurrently.
type Runner interface {
	// Launch starts a fresh child. It returns quickly (the child runs in
	// the background) and fails with *process.SpawnError when the command
	// can't start at all. Launching while a child is already alive is a
	// caller bug and returns an error.
	Launch() error

	// Restart replaces the current child: Terminate, WaitExited, Launch
	// as one unit. The previous child's handle is fully released before
	// the new one spawns.
	Restart() error

	// Terminate stops the current child: cooperative signal first, forced
	// kill after the grace period. A child that already exited on its own
	// is detected and treated as success. No-op when nothing was launched.
	Terminate() error

	// WaitExited blocks until the child's handle has been fully reaped.
	// Returns immediately when nothing is running.
	WaitExited()

	// Alive reports whether a launched child is still running.
	Alive() bool
}
