package kernel

// SchedLock suspends task switching for its holder. It is reentrant: a
// nested Acquire only increments the nesting count, and switching resumes
// when the count returns to zero. Acquire and Release are infallible and
// must be paired; the lock must never be held across a call that can block
// or not return.
//
// Assumption: a single execution core. Holding this lock does not exclude
// interrupt-context state changes on another core; a multi-core port needs
// additional hardware-level exclusion around flag mutation.
type SchedLock struct {
	depth int
}

// Acquire suspends task switching for the caller. Reentrant.
func (l *SchedLock) Acquire() {
	l.depth++
}

// Release undoes one Acquire. Switching resumes when the count reaches zero.
func (l *SchedLock) Release() {
	if l.depth == 0 {
		panic("kernel: scheduler lock released more times than acquired")
	}
	l.depth--
}

// Held reports whether any acquisition is outstanding.
func (l *SchedLock) Held() bool {
	return l.depth > 0
}

// Depth returns the current nesting count.
func (l *SchedLock) Depth() int {
	return l.depth
}
