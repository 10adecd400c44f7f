package resources

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/pkg/errors"

	"github.com/vadiminshakov/coachdesk/internal/domain"
	"github.com/vadiminshakov/coachdesk/internal/forms"
	"github.com/vadiminshakov/coachdesk/internal/slice"
)

// Record is an entity that can be listed in a table.
type Record interface {
	domain.Entity
	domain.Tabular
}

// Pending is a dispatched operation; slice.Op satisfies it.
type Pending interface {
	Done() <-chan struct{}
	Status() slice.OpStatus
	Err() error
}

// Wait blocks until p settles or ctx ends.
func Wait(ctx context.Context, p Pending) error {
	select {
	case <-p.Done():
		return p.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// View is a presenter-ready snapshot of a slice.
type View struct {
	Name       string
	Title      string
	Columns    []string
	Rows       [][]string
	IDs        []string
	Items      any
	Loading    bool
	Error      string
	Pagination *domain.Pagination
	Totals     domain.Totals
}

// Handle is the type-erased face of one resource slice.
type Handle interface {
	Descriptor() Descriptor
	// Fetch reloads the list. Missing page and limit are filled with defaults.
	Fetch(ctx context.Context, params slice.Params) Pending
	// Params returns the params of the last fetch.
	Params() slice.Params
	View() View
	// Form opens a create form, or an edit form for the listed entity id.
	Form(id string) (Form, error)
	Delete(ctx context.Context, id string) Pending
}

// Form is a dialog bound to a resource.
type Form interface {
	Title() string
	IsEdit() bool
	// Values returns a pointer to the record being edited, for field binding.
	Values() any
	// Decode merges a JSON payload into the values.
	Decode(payload []byte) error
	// Submit validates and dispatches the create or update. Validation
	// failures come back as forms.FieldErrors and nothing is sent.
	Submit(ctx context.Context) (Pending, error)
	// Result returns the entity confirmed by the server once the op settled.
	Result() any
	Close()
}

type handle[T Record] struct {
	desc      Descriptor
	s         *slice.Slice[T]
	validator *forms.Validator
	defaults  func() T
	pageSize  int
}

func (h *handle[T]) Descriptor() Descriptor { return h.desc }

func (h *handle[T]) Fetch(ctx context.Context, params slice.Params) Pending {
	params = params.Clone()
	if params["page"] == "" {
		params["page"] = "1"
	}
	if params["limit"] == "" {
		params["limit"] = strconv.Itoa(h.pageSize)
	}
	return h.s.Fetch(ctx, params)
}

func (h *handle[T]) Params() slice.Params {
	return h.s.LastParams()
}

func (h *handle[T]) View() View {
	st := h.s.State()
	var zero T
	v := View{
		Name:       h.desc.Name,
		Title:      h.desc.Title,
		Columns:    zero.Columns(),
		Rows:       make([][]string, 0, len(st.Items)),
		IDs:        make([]string, 0, len(st.Items)),
		Items:      st.Items,
		Loading:    st.Loading,
		Error:      st.Error,
		Pagination: st.Pagination,
		Totals:     st.Totals,
	}
	for _, item := range st.Items {
		v.Rows = append(v.Rows, item.Cells())
		v.IDs = append(v.IDs, item.GetID())
	}
	return v
}

func (h *handle[T]) Form(id string) (Form, error) {
	if h.desc.ReadOnly {
		return nil, errors.Wrap(slice.ErrUnsupported, h.desc.Name)
	}
	f := &form[T]{h: h, id: id}
	f.dialog = forms.NewDialog(h.validator, h.defaults, f.dispatch, nil)
	if id == "" {
		f.dialog.Open(nil)
		return f, nil
	}
	for _, item := range h.s.State().Items {
		if item.GetID() == id {
			f.dialog.Open(&item)
			return f, nil
		}
	}
	return nil, errors.Wrapf(slice.ErrNotFound, "%s %s", h.desc.Singular, id)
}

func (h *handle[T]) Delete(ctx context.Context, id string) Pending {
	if h.desc.ReadOnly {
		return settled{err: errors.Wrap(slice.ErrUnsupported, h.desc.Name)}
	}
	return h.s.Delete(ctx, id)
}

type form[T Record] struct {
	h      *handle[T]
	id     string
	dialog *forms.Dialog[T]
	ctx    context.Context
	op     *slice.Op[T]
}

func (f *form[T]) Title() string {
	if f.id != "" {
		return "Edit " + f.h.desc.Singular
	}
	return "New " + f.h.desc.Singular
}

func (f *form[T]) IsEdit() bool { return f.dialog.IsEdit() }

func (f *form[T]) Values() any { return f.dialog.Values() }

func (f *form[T]) Decode(payload []byte) error {
	if !f.dialog.IsOpen() {
		return forms.ErrClosed
	}
	values := f.dialog.Values()
	if err := json.Unmarshal(payload, values); err != nil {
		return errors.Wrap(err, "decode payload")
	}
	if f.id != "" && (*values).GetID() != f.id {
		return errors.Errorf("payload id %q does not match %q", (*values).GetID(), f.id)
	}
	return nil
}

func (f *form[T]) Submit(ctx context.Context) (Pending, error) {
	f.ctx = ctx
	if err := f.dialog.Submit(); err != nil {
		return nil, err
	}
	return f.op, nil
}

func (f *form[T]) dispatch(values T, isEdit bool) {
	if isEdit {
		f.op = f.h.s.Update(f.ctx, values)
		return
	}
	f.op = f.h.s.Create(f.ctx, values)
}

func (f *form[T]) Result() any {
	if f.op == nil {
		return nil
	}
	select {
	case <-f.op.Done():
		v, _ := f.op.Wait()
		return v
	default:
		return nil
	}
}

func (f *form[T]) Close() { f.dialog.Close() }

// settled is an op that failed before dispatch.
type settled struct{ err error }

func (s settled) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

func (s settled) Status() slice.OpStatus { return slice.StatusRejected }

func (s settled) Err() error { return s.err }
