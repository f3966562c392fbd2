package kernel

// WaitKind identifies a wait queue category.
type WaitKind uint8

const (
	// WaitInvalid indicates an invalid wait key.
	WaitInvalid WaitKind = iota
	// WaitJoin indicates a queue of tasks waiting for another to complete.
	WaitJoin
	// WaitCancelPoint indicates a task suspended inside a cancellation point.
	WaitCancelPoint
	// WaitEvent indicates a queue keyed by an application-defined event id.
	WaitEvent
)

// String returns the string representation of WaitKind.
func (k WaitKind) String() string {
	switch k {
	case WaitJoin:
		return "join"
	case WaitCancelPoint:
		return "cancelpoint"
	case WaitEvent:
		return "event"
	default:
		return "invalid"
	}
}

// WaitKey identifies a wait queue entry.
type WaitKey struct {
	Kind WaitKind
	ID   uint64
}

// IsValid reports whether the key is usable for waiting.
func (k WaitKey) IsValid() bool {
	return k.Kind != WaitInvalid
}

// JoinKey builds a wait key for a target task's completion.
func JoinKey(target Pid) WaitKey {
	return WaitKey{Kind: WaitJoin, ID: uint64(target)}
}

// CancelPointKey builds a wait key for a task blocked inside one of its own
// cancellation points.
func CancelPointKey(owner Pid) WaitKey {
	return WaitKey{Kind: WaitCancelPoint, ID: uint64(owner)}
}

// EventKey builds a wait key for an application-defined event.
func EventKey(id uint64) WaitKey {
	return WaitKey{Kind: WaitEvent, ID: id}
}
