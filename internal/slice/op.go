package slice

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
)

// OpKind names the operation an Op tracks.
type OpKind string

const (
	OpFetch  OpKind = "fetch"
	OpCreate OpKind = "create"
	OpUpdate OpKind = "update"
	OpDelete OpKind = "delete"
)

// OpStatus lifecycle of a single invocation.
type OpStatus int32

const (
	// StatusPending request in flight.
	StatusPending OpStatus = iota
	// StatusFulfilled result applied to the slice.
	StatusFulfilled
	// StatusRejected request failed; the slice items are unchanged.
	StatusRejected
	// StatusDropped the initiating context ended first; the result was discarded.
	StatusDropped
)

// String returns the string representation.
func (s OpStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusFulfilled:
		return "fulfilled"
	case StatusRejected:
		return "rejected"
	case StatusDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// Op is the handle of one operation invocation. It always settles; failures
// are carried as data in Err, never as panics.
type Op[R any] struct {
	ID   string
	Kind OpKind

	seq    uint64
	status atomic.Int32
	done   chan struct{}
	result R
	err    error
}

func newOp[R any](kind OpKind) *Op[R] {
	return &Op[R]{
		ID:   uuid.NewString(),
		Kind: kind,
		done: make(chan struct{}),
	}
}

// Done is closed once the op has settled.
func (o *Op[R]) Done() <-chan struct{} {
	return o.done
}

// Status returns the current lifecycle state.
func (o *Op[R]) Status() OpStatus {
	return OpStatus(o.status.Load())
}

// Wait blocks until the op settles and returns its outcome.
func (o *Op[R]) Wait() (R, error) {
	<-o.done
	return o.result, o.err
}

// WaitContext is Wait bounded by ctx. It does not cancel the op itself.
func (o *Op[R]) WaitContext(ctx context.Context) (R, error) {
	select {
	case <-o.done:
		return o.result, o.err
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}

// Err returns the settled error, nil while pending.
func (o *Op[R]) Err() error {
	select {
	case <-o.done:
		return o.err
	default:
		return nil
	}
}

func (o *Op[R]) settle(status OpStatus, result R, err error) {
	o.result = result
	o.err = err
	o.status.Store(int32(status))
	close(o.done)
}
