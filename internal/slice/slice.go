// Package slice implements the remote resource slice: a client-side mirror of one
// backend collection plus the fetch/create/update/delete operations that refresh it.
//
// The server is the source of truth. Items change only after the server confirms an
// operation. Every invocation gets its own Op handle, so concurrent operations
// cannot clobber each other's outcome, and an operation whose context ends before
// the response arrives is dropped instead of applied.
package slice

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/coachdesk/internal/clients"
	"github.com/vadiminshakov/coachdesk/internal/domain"
)

var (
	// ErrNotFound update target is not present in the current items.
	ErrNotFound = errors.New("entity not found in list")
	// ErrEmptyID update or delete was asked for without an identifier.
	ErrEmptyID = errors.New("entity id is empty")
	// ErrUnsupported the resource does not support the operation.
	ErrUnsupported = errors.New("operation not supported")
)

// Mutation is a confirmed server answer to a create, update or delete.
type Mutation[R any] struct {
	Value   R
	Success bool
	Message string
}

// Gateway performs the network side of each operation.
type Gateway[T domain.Entity] interface {
	List(ctx context.Context, params Params) (domain.Page[T], error)
	Create(ctx context.Context, draft T) (Mutation[T], error)
	Update(ctx context.Context, entity T) (Mutation[T], error)
	Delete(ctx context.Context, id string) (Mutation[string], error)
}

// Notifier shows transient user-facing messages.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// Placement where a created entity lands in the list.
type Placement int

const (
	Prepend Placement = iota
	Append
)

// Options describe a slice.
type Options struct {
	// Name resource name, e.g. "courses". Reported in Change.Resource.
	Name string
	// Plural used in messages. Defaults to Name.
	Plural string
	// Singular used in messages, e.g. "course".
	Singular  string
	Placement Placement
	Notifier  Notifier
	Logger    *zap.Logger
	// Changes receives a Change after every state transition. Optional.
	Changes *Broadcaster
}

// State is a snapshot of a slice.
type State[T any] struct {
	Items      []T
	Loading    bool
	Error      string
	Pagination *domain.Pagination
	Totals     domain.Totals
}

// Slice mirrors one backend collection.
type Slice[T domain.Entity] struct {
	opts Options
	gw   Gateway[T]

	mu         sync.Mutex
	items      []T
	pagination *domain.Pagination
	totals     domain.Totals
	pending    int
	errText    string
	statusSeq  uint64
	seq        uint64
	lastParams Params
	// fetchSeq seq of the newest fetch that settled; older results are discarded.
	fetchSeq uint64
}

// New creates an empty slice over gw.
func New[T domain.Entity](gw Gateway[T], opts Options) *Slice[T] {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Notifier == nil {
		opts.Notifier = nopNotifier{}
	}
	if opts.Plural == "" {
		opts.Plural = opts.Name
	}
	if opts.Singular == "" {
		opts.Singular = opts.Plural
	}
	return &Slice[T]{opts: opts, gw: gw}
}

// Name returns the plural resource name.
func (s *Slice[T]) Name() string {
	return s.opts.Name
}

// State returns a copy of the current state.
func (s *Slice[T]) State() State[T] {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]T, len(s.items))
	copy(items, s.items)
	var pagination *domain.Pagination
	if s.pagination != nil {
		p := *s.pagination
		pagination = &p
	}
	return State[T]{
		Items:      items,
		Loading:    s.pending > 0,
		Error:      s.errText,
		Pagination: pagination,
		Totals:     s.totals.Clone(),
	}
}

// LastParams returns the params of the most recent fetch.
func (s *Slice[T]) LastParams() Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastParams.Clone()
}

// Fetch reloads the items. On success items, pagination and totals are replaced
// wholesale in server order; on failure the previous items stay. A result that
// arrives after a newer fetch has settled is fulfilled but not applied.
func (s *Slice[T]) Fetch(ctx context.Context, params Params) *Op[domain.Page[T]] {
	op := newOp[domain.Page[T]](OpFetch)
	op.seq = s.begin(OpFetch, op.ID)
	s.mu.Lock()
	s.lastParams = params.Clone()
	s.mu.Unlock()

	go func() {
		page, err := s.gw.List(ctx, params)
		if s.dropped(ctx, op.seq) {
			op.settle(StatusDropped, domain.Page[T]{}, droppedErr(ctx))
			s.publish(OpFetch, op.ID, StatusDropped)
			return
		}
		if err != nil {
			s.mu.Lock()
			if op.seq > s.fetchSeq {
				s.fetchSeq = op.seq
			}
			s.mu.Unlock()
			msg := s.failure(op.seq, err, fmt.Sprintf("Failed to fetch %s", s.opts.Plural))
			op.settle(StatusRejected, domain.Page[T]{}, errors.Wrap(err, msg))
			s.publish(OpFetch, op.ID, StatusRejected)
			return
		}

		s.mu.Lock()
		if op.seq > s.fetchSeq {
			s.fetchSeq = op.seq
			s.items = append(make([]T, 0, len(page.Items)), page.Items...)
			s.pagination = page.Pagination
			s.totals = page.Totals.Clone()
		} else {
			s.opts.Logger.Debug("stale fetch discarded", zap.String("resource", s.opts.Name), zap.Uint64("seq", op.seq))
		}
		s.finish(op.seq)
		s.mu.Unlock()

		op.settle(StatusFulfilled, page, nil)
		s.publish(OpFetch, op.ID, StatusFulfilled)
	}()
	return op
}

// Create sends a draft and inserts the returned entity. If the returned id is
// already listed, the entry is replaced so the id appears exactly once.
func (s *Slice[T]) Create(ctx context.Context, draft T) *Op[T] {
	op := newOp[T](OpCreate)
	op.seq = s.begin(OpCreate, op.ID)

	go func() {
		res, err := s.gw.Create(ctx, draft)
		if s.dropped(ctx, op.seq) {
			var zero T
			op.settle(StatusDropped, zero, droppedErr(ctx))
			s.publish(OpCreate, op.ID, StatusDropped)
			return
		}
		if err != nil {
			var zero T
			msg := s.failure(op.seq, err, fmt.Sprintf("Failed to create %s", s.opts.Singular))
			op.settle(StatusRejected, zero, errors.Wrap(err, msg))
			s.publish(OpCreate, op.ID, StatusRejected)
			return
		}

		s.mu.Lock()
		if i := s.indexOf(res.Value.GetID()); i >= 0 {
			s.items[i] = res.Value
		} else if s.opts.Placement == Append {
			s.items = append(s.items, res.Value)
		} else {
			s.items = append([]T{res.Value}, s.items...)
		}
		s.finish(op.seq)
		s.mu.Unlock()

		s.confirm(res.Success, res.Message, "created")
		op.settle(StatusFulfilled, res.Value, nil)
		s.publish(OpCreate, op.ID, StatusFulfilled)
	}()
	return op
}

// Update sends the full entity and replaces the listed element with the same id,
// keeping its position. An id missing from the list rejects the op with ErrNotFound.
func (s *Slice[T]) Update(ctx context.Context, entity T) *Op[T] {
	id := entity.GetID()
	if id == "" {
		return rejected[T](OpUpdate, ErrEmptyID)
	}
	op := newOp[T](OpUpdate)
	op.seq = s.begin(OpUpdate, op.ID)

	go func() {
		var zero T
		res, err := s.gw.Update(ctx, entity)
		if s.dropped(ctx, op.seq) {
			op.settle(StatusDropped, zero, droppedErr(ctx))
			s.publish(OpUpdate, op.ID, StatusDropped)
			return
		}
		if err != nil {
			msg := s.failure(op.seq, err, fmt.Sprintf("Failed to update %s", s.opts.Singular))
			op.settle(StatusRejected, zero, errors.Wrap(err, msg))
			s.publish(OpUpdate, op.ID, StatusRejected)
			return
		}

		updatedID := res.Value.GetID()
		if updatedID == "" {
			updatedID = id
		}
		s.mu.Lock()
		i := s.indexOf(updatedID)
		if i >= 0 {
			s.items[i] = res.Value
			s.finish(op.seq)
		}
		s.mu.Unlock()

		if i < 0 {
			notFound := errors.Wrapf(ErrNotFound, "%s %s", s.opts.Singular, updatedID)
			s.failure(op.seq, notFound, notFound.Error())
			op.settle(StatusRejected, zero, notFound)
			s.publish(OpUpdate, op.ID, StatusRejected)
			return
		}

		s.confirm(res.Success, res.Message, "updated")
		op.settle(StatusFulfilled, res.Value, nil)
		s.publish(OpUpdate, op.ID, StatusFulfilled)
	}()
	return op
}

// Delete removes the entity on the server and then filters it out of the list.
// It is a no-op on the items when the id is not listed.
func (s *Slice[T]) Delete(ctx context.Context, id string) *Op[string] {
	if id == "" {
		return rejected[string](OpDelete, ErrEmptyID)
	}
	op := newOp[string](OpDelete)
	op.seq = s.begin(OpDelete, op.ID)

	go func() {
		res, err := s.gw.Delete(ctx, id)
		if s.dropped(ctx, op.seq) {
			op.settle(StatusDropped, "", droppedErr(ctx))
			s.publish(OpDelete, op.ID, StatusDropped)
			return
		}
		if err != nil {
			msg := s.failure(op.seq, err, fmt.Sprintf("Failed to delete %s", s.opts.Singular))
			op.settle(StatusRejected, "", errors.Wrap(err, msg))
			s.publish(OpDelete, op.ID, StatusRejected)
			return
		}

		s.mu.Lock()
		kept := s.items[:0:0]
		for _, item := range s.items {
			if item.GetID() != id {
				kept = append(kept, item)
			}
		}
		s.items = kept
		s.finish(op.seq)
		s.mu.Unlock()

		s.confirm(res.Success, res.Message, "deleted")
		op.settle(StatusFulfilled, id, nil)
		s.publish(OpDelete, op.ID, StatusFulfilled)
	}()
	return op
}

// begin registers a new in-flight op; the newest op owns the visible status.
func (s *Slice[T]) begin(kind OpKind, opID string) uint64 {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.pending++
	s.statusSeq = seq
	s.errText = ""
	s.mu.Unlock()

	s.opts.Logger.Debug("slice op started", zap.String("resource", s.opts.Name), zap.String("op", string(kind)))
	s.publish(kind, opID, StatusPending)
	return seq
}

// finish marks op seq fulfilled. Caller holds s.mu.
func (s *Slice[T]) finish(seq uint64) {
	s.pending--
	if seq >= s.statusSeq {
		s.statusSeq = seq
		s.errText = ""
	}
}

// failure marks op seq rejected, toasts and returns the user-facing message.
func (s *Slice[T]) failure(seq uint64, err error, fallback string) string {
	msg, ok := clients.MessageOf(err)
	if !ok {
		msg = fallback
	}

	s.mu.Lock()
	s.pending--
	if seq >= s.statusSeq {
		s.statusSeq = seq
		s.errText = msg
	}
	s.mu.Unlock()

	s.opts.Logger.Warn("slice op failed", zap.String("resource", s.opts.Name), zap.Error(err))
	s.opts.Notifier.Error(msg)
	return msg
}

// dropped reports whether ctx ended; if so the op is released without touching state.
func (s *Slice[T]) dropped(ctx context.Context, seq uint64) bool {
	if ctx.Err() == nil {
		return false
	}
	s.mu.Lock()
	s.pending--
	s.mu.Unlock()
	s.opts.Logger.Debug("slice op dropped", zap.String("resource", s.opts.Name), zap.Uint64("seq", seq))
	return true
}

func (s *Slice[T]) confirm(success bool, message, verb string) {
	if !success {
		return
	}
	if message == "" {
		message = fmt.Sprintf("%s %s", capitalize(s.opts.Singular), verb)
	}
	s.opts.Notifier.Success(message)
}

func (s *Slice[T]) publish(kind OpKind, opID string, status OpStatus) {
	if s.opts.Changes == nil {
		return
	}
	s.opts.Changes.Publish(Change{Resource: s.opts.Name, Kind: kind, OpID: opID, Status: status})
}

// indexOf caller holds s.mu.
func (s *Slice[T]) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i, item := range s.items {
		if item.GetID() == id {
			return i
		}
	}
	return -1
}

func rejected[R any](kind OpKind, err error) *Op[R] {
	op := newOp[R](kind)
	var zero R
	op.settle(StatusRejected, zero, err)
	return op
}

func droppedErr(ctx context.Context) error {
	return errors.Wrap(ctx.Err(), "operation dropped")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}

type nopNotifier struct{}

func (nopNotifier) Success(string) {}
func (nopNotifier) Error(string)   {}
