package forms

import "github.com/pkg/errors"

// ErrClosed Submit was called on a dialog that is not open.
var ErrClosed = errors.New("dialog is not open")

// Dialog pairs a validated form with the caller's create/update action.
// It owns only transient edit state: whether it is open and which record is edited.
type Dialog[T any] struct {
	validator *Validator
	defaults  func() T
	onSubmit  func(entity T, isEdit bool)
	onClose   func()

	open    bool
	editing bool
	values  T
	errs    FieldErrors
}

// NewDialog creates a closed dialog. defaults produces the values of an empty form.
func NewDialog[T any](v *Validator, defaults func() T, onSubmit func(T, bool), onClose func()) *Dialog[T] {
	if defaults == nil {
		defaults = func() T {
			var zero T
			return zero
		}
	}
	return &Dialog[T]{validator: v, defaults: defaults, onSubmit: onSubmit, onClose: onClose}
}

// Open shows the dialog, pre-filled from editing or reset to defaults when editing is nil.
func (d *Dialog[T]) Open(editing *T) {
	d.open = true
	d.errs = nil
	if editing != nil {
		d.editing = true
		d.values = *editing
		return
	}
	d.editing = false
	d.values = d.defaults()
}

// IsOpen reports whether the dialog is shown.
func (d *Dialog[T]) IsOpen() bool { return d.open }

// IsEdit reports whether the dialog edits an existing record.
func (d *Dialog[T]) IsEdit() bool { return d.open && d.editing }

// Values returns the form values for binding.
func (d *Dialog[T]) Values() *T { return &d.values }

// Errors returns the field errors of the last failed submit.
func (d *Dialog[T]) Errors() FieldErrors { return d.errs }

// Submit validates the values. On failure it keeps the dialog open and returns
// FieldErrors without calling onSubmit. On success it hands the values to onSubmit
// and closes, whatever the outcome of the caller's request turns out to be.
func (d *Dialog[T]) Submit() error {
	if !d.open {
		return ErrClosed
	}
	if err := d.validator.Validate(&d.values); err != nil {
		var fe FieldErrors
		if errors.As(err, &fe) {
			d.errs = fe
		}
		return err
	}

	values, isEdit := d.values, d.editing
	if d.onSubmit != nil {
		d.onSubmit(values, isEdit)
	}
	d.Close()
	return nil
}

// Close hides the dialog and clears the edit state.
func (d *Dialog[T]) Close() {
	wasOpen := d.open
	d.open = false
	d.editing = false
	d.errs = nil
	var zero T
	d.values = zero
	if wasOpen && d.onClose != nil {
		d.onClose()
	}
}
