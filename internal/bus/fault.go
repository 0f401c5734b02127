package bus

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by EmitAsync once the bus no longer accepts firings.
	ErrClosed = errors.New("event bus is closed")
	// ErrListenerPanic matches faults produced by a recovered panic.
	ErrListenerPanic = errors.New("listener panicked")
	// ErrPayloadType is returned by Typed listeners that receive a payload of
	// an unexpected type.
	ErrPayloadType = errors.New("unexpected payload type")
)

// FaultKind classifies a listener failure.
type FaultKind string

const (
	FaultError   FaultKind = "error"
	FaultPanic   FaultKind = "panic"
	FaultTimeout FaultKind = "timeout"
)

// Fault is a listener failure captured at the dispatch boundary. Faults never
// escape Emit or EmitAsync; they go to the fault handler instead.
type Fault struct {
	Owner string `json:"owner"`
	Event string `json:"event"`
	// Resource is the resource of the payload being delivered, if any.
	Resource string    `json:"resource,omitempty"`
	Pattern  string    `json:"pattern"`
	Kind     FaultKind `json:"kind"`
	Err      error     `json:"-"`
	Message  string    `json:"message"`
	Stack    []byte    `json:"-"`
}

func (f *Fault) Error() string {
	owner := f.Owner
	if owner == "" {
		owner = "anonymous listener"
	}
	return fmt.Sprintf("%s failed on %s (%s): %v", owner, f.Event, f.Kind, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

// Is lets errors.Is match a panic fault against ErrListenerPanic.
func (f *Fault) Is(target error) bool {
	return target == ErrListenerPanic && f.Kind == FaultPanic
}
