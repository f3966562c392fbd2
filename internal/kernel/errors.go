package kernel

import "errors"

var (
	// ErrNoSuchTask reports a pid that does not resolve to a live task. The
	// task has either already exited or never existed.
	ErrNoSuchTask = errors.New("no such task")
)
