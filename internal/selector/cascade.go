// Package selector coordinates the dependent pickers of the cashbook entry dialog:
// location -> batch -> student for student fees, and the director list for
// director transfers.
package selector

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/coachdesk/internal/domain"
)

// ErrClosed the selector is not open.
var ErrClosed = errors.New("selector is not open")

// Loader fetches the option lists.
type Loader interface {
	Batches(ctx context.Context, locationID string) ([]domain.Batch, error)
	Students(ctx context.Context, batchID string) ([]domain.Student, error)
	Directors(ctx context.Context) ([]domain.User, error)
}

// Selection is a snapshot of the picker state.
type Selection struct {
	Category   domain.Category
	LocationID string
	BatchID    string
	StudentID  string
	DirectorID string
	Batches    []domain.Batch
	Students   []domain.Student
	Directors  []domain.User
}

// Apply copies the picked ids into entry.
func (s Selection) Apply(entry *domain.CashbookEntry) {
	entry.Category = s.Category
	entry.LocationID = s.LocationID
	entry.BatchID = s.BatchID
	entry.StudentID = s.StudentID
	entry.DirectorID = s.DirectorID
}

// Cascade holds the picker state for one dialog session. Each dependent list is
// memoized by the key it was last fetched for; Close forgets every key so the
// next session fetches fresh lists.
type Cascade struct {
	loader Loader
	logger *zap.Logger

	mu      sync.Mutex
	open    bool
	session uint64
	ctx     context.Context
	cancel  context.CancelFunc
	sel     Selection

	batchKey        string
	studentKey      string
	directorsLoaded bool
}

// NewCascade creates a closed selector.
func NewCascade(loader Loader, logger *zap.Logger) *Cascade {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cascade{loader: loader, logger: logger}
}

// Open starts a dialog session bound to parent. Loads still running when the
// session ends are dropped.
func (c *Cascade) Open(parent context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.open {
		return
	}
	c.session++
	c.ctx, c.cancel = context.WithCancel(parent)
	c.open = true
}

// Close ends the session, cancels in-flight loads and resets selections and memo keys.
func (c *Cascade) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
	c.open = false
	c.ctx, c.cancel = nil, nil
	c.sel = Selection{}
	c.batchKey = ""
	c.studentKey = ""
	c.directorsLoaded = false
}

// Selection returns the current picker state.
func (c *Cascade) Selection() Selection {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.sel
	out.Batches = append([]domain.Batch(nil), c.sel.Batches...)
	out.Students = append([]domain.Student(nil), c.sel.Students...)
	out.Directors = append([]domain.User(nil), c.sel.Directors...)
	return out
}

// SetCategory switches the transaction category and loads whatever it needs.
func (c *Cascade) SetCategory(category domain.Category) error {
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return ErrClosed
	}
	c.sel.Category = category
	location := c.sel.LocationID
	c.mu.Unlock()

	switch category {
	case domain.CategoryStudentFee:
		if location != "" {
			return c.loadBatches(location)
		}
	case domain.CategoryDirectorTransfer:
		return c.loadDirectors()
	}
	return nil
}

// SelectLocation picks a location, clears the batch and student picks and loads
// its batches when student fees are active.
func (c *Cascade) SelectLocation(locationID string) error {
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.sel.LocationID != locationID {
		c.sel.BatchID = ""
		c.sel.StudentID = ""
		c.sel.Students = nil
		c.studentKey = ""
	}
	c.sel.LocationID = locationID
	active := c.sel.Category == domain.CategoryStudentFee
	c.mu.Unlock()

	if !active || locationID == "" {
		return nil
	}
	return c.loadBatches(locationID)
}

// SelectBatch picks a batch, clears the student pick and list and loads its students.
func (c *Cascade) SelectBatch(batchID string) error {
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.sel.BatchID != batchID {
		c.sel.StudentID = ""
		c.sel.Students = nil
		c.studentKey = ""
	}
	c.sel.BatchID = batchID
	c.mu.Unlock()

	if batchID == "" {
		return nil
	}
	return c.loadStudents(batchID)
}

// SelectStudent picks a student from the loaded list.
func (c *Cascade) SelectStudent(studentID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return ErrClosed
	}
	c.sel.StudentID = studentID
	return nil
}

// SelectDirector picks a director from the loaded list.
func (c *Cascade) SelectDirector(directorID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open {
		return ErrClosed
	}
	c.sel.DirectorID = directorID
	return nil
}

func (c *Cascade) loadBatches(locationID string) error {
	ctx, session, skip := c.begin(func() bool { return c.batchKey == locationID })
	if skip {
		return nil
	}
	batches, err := c.loader.Batches(ctx, locationID)
	if err != nil {
		return errors.Wrap(err, "load batches")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.current(session) || c.sel.LocationID != locationID {
		c.logger.Debug("dropping stale batch list", zap.String("location", locationID))
		return nil
	}
	c.sel.Batches = batches
	c.batchKey = locationID
	return nil
}

func (c *Cascade) loadStudents(batchID string) error {
	ctx, session, skip := c.begin(func() bool { return c.studentKey == batchID })
	if skip {
		return nil
	}
	students, err := c.loader.Students(ctx, batchID)
	if err != nil {
		return errors.Wrap(err, "load students")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.current(session) || c.sel.BatchID != batchID {
		c.logger.Debug("dropping stale student list", zap.String("batch", batchID))
		return nil
	}
	c.sel.Students = students
	c.studentKey = batchID
	return nil
}

func (c *Cascade) loadDirectors() error {
	ctx, session, skip := c.begin(func() bool { return c.directorsLoaded })
	if skip {
		return nil
	}
	directors, err := c.loader.Directors(ctx)
	if err != nil {
		return errors.Wrap(err, "load directors")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.current(session) {
		return nil
	}
	c.sel.Directors = directors
	c.directorsLoaded = true
	return nil
}

// begin returns the session context, or skip=true when memoized is satisfied or the
// selector was closed meanwhile.
func (c *Cascade) begin(memoized func() bool) (context.Context, uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.open || memoized() {
		return nil, 0, true
	}
	return c.ctx, c.session, false
}

// current caller holds c.mu.
func (c *Cascade) current(session uint64) bool {
	return c.open && c.session == session
}
