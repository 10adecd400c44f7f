package selector

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vadiminshakov/coachdesk/internal/domain"
)

type countingLoader struct {
	mu        sync.Mutex
	batches   []string
	students  []string
	directors int
	err       error
	// gate blocks Students until closed when set
	gate chan struct{}
}

func (l *countingLoader) Batches(_ context.Context, locationID string) ([]domain.Batch, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.batches = append(l.batches, locationID)
	if l.err != nil {
		return nil, l.err
	}
	return []domain.Batch{{ID: "B1", LocationID: locationID}, {ID: "B2", LocationID: locationID}}, nil
}

func (l *countingLoader) Students(ctx context.Context, batchID string) ([]domain.Student, error) {
	l.mu.Lock()
	l.students = append(l.students, batchID)
	gate := l.gate
	l.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return []domain.Student{{ID: "S-" + batchID, BatchID: batchID}}, nil
}

func (l *countingLoader) Directors(context.Context) ([]domain.User, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.directors++
	return []domain.User{{ID: "D1", Role: domain.RoleDirector}}, nil
}

func (l *countingLoader) studentCalls() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.students...)
}

func TestCascade(t *testing.T) {
	t.Run("student fetches are memoized per batch and reset on close", func(t *testing.T) {
		loader := &countingLoader{}
		c := NewCascade(loader, zap.NewNop())

		c.Open(context.Background())
		require.NoError(t, c.SetCategory(domain.CategoryStudentFee))
		require.NoError(t, c.SelectLocation("L1"))
		require.NoError(t, c.SelectBatch("B1"))
		require.NoError(t, c.SelectBatch("B1"))
		require.NoError(t, c.SelectBatch("B2"))
		assert.Equal(t, []string{"B1", "B2"}, loader.studentCalls())

		c.Close()
		c.Open(context.Background())
		require.NoError(t, c.SetCategory(domain.CategoryStudentFee))
		require.NoError(t, c.SelectLocation("L1"))
		require.NoError(t, c.SelectBatch("B1"))
		assert.Equal(t, []string{"B1", "B2", "B1"}, loader.studentCalls())
	})

	t.Run("batches load only for an active category and a new location", func(t *testing.T) {
		loader := &countingLoader{}
		c := NewCascade(loader, zap.NewNop())
		c.Open(context.Background())

		require.NoError(t, c.SelectLocation("L1"))
		assert.Empty(t, loader.batches)

		require.NoError(t, c.SetCategory(domain.CategoryStudentFee))
		require.NoError(t, c.SelectLocation("L1"))
		require.NoError(t, c.SelectLocation("L2"))
		assert.Equal(t, []string{"L1", "L2"}, loader.batches)

		sel := c.Selection()
		assert.Equal(t, "L2", sel.LocationID)
		require.Len(t, sel.Batches, 2)
		assert.Equal(t, "L2", sel.Batches[0].LocationID)
	})

	t.Run("changing location clears batch and student", func(t *testing.T) {
		c := NewCascade(&countingLoader{}, zap.NewNop())
		c.Open(context.Background())
		require.NoError(t, c.SetCategory(domain.CategoryStudentFee))
		require.NoError(t, c.SelectLocation("L1"))
		require.NoError(t, c.SelectBatch("B1"))
		require.NoError(t, c.SelectStudent("S-B1"))

		require.NoError(t, c.SelectLocation("L2"))
		sel := c.Selection()
		assert.Empty(t, sel.BatchID)
		assert.Empty(t, sel.StudentID)
		assert.Empty(t, sel.Students)
	})

	t.Run("changing batch hides the previous batch's students", func(t *testing.T) {
		loader := &countingLoader{}
		c := NewCascade(loader, zap.NewNop())
		c.Open(context.Background())
		require.NoError(t, c.SetCategory(domain.CategoryStudentFee))
		require.NoError(t, c.SelectLocation("L1"))
		require.NoError(t, c.SelectBatch("B1"))
		require.Len(t, c.Selection().Students, 1)

		loader.mu.Lock()
		loader.gate = make(chan struct{})
		loader.mu.Unlock()

		done := make(chan error, 1)
		go func() { done <- c.SelectBatch("B2") }()
		require.Eventually(t, func() bool { return len(loader.studentCalls()) == 2 }, timeout, tick)

		sel := c.Selection()
		assert.Equal(t, "B2", sel.BatchID)
		assert.Empty(t, sel.Students, "B1 students must not be offered while B2 loads")

		close(loader.gate)
		require.NoError(t, <-done)
		sel = c.Selection()
		require.Len(t, sel.Students, 1)
		assert.Equal(t, "S-B2", sel.Students[0].ID)
	})

	t.Run("directors load once per open", func(t *testing.T) {
		loader := &countingLoader{}
		c := NewCascade(loader, zap.NewNop())

		c.Open(context.Background())
		require.NoError(t, c.SetCategory(domain.CategoryDirectorTransfer))
		require.NoError(t, c.SetCategory(domain.CategoryOther))
		require.NoError(t, c.SetCategory(domain.CategoryDirectorTransfer))
		assert.Equal(t, 1, loader.directors)

		c.Close()
		c.Open(context.Background())
		require.NoError(t, c.SetCategory(domain.CategoryDirectorTransfer))
		assert.Equal(t, 2, loader.directors)
		assert.Len(t, c.Selection().Directors, 1)
	})

	t.Run("failed load is retried on the next selection", func(t *testing.T) {
		loader := &countingLoader{err: errors.New("boom")}
		c := NewCascade(loader, zap.NewNop())
		c.Open(context.Background())
		require.NoError(t, c.SetCategory(domain.CategoryStudentFee))

		assert.Error(t, c.SelectLocation("L1"))
		loader.mu.Lock()
		loader.err = nil
		loader.mu.Unlock()
		require.NoError(t, c.SelectLocation("L1"))
		assert.Equal(t, []string{"L1", "L1"}, loader.batches)
	})

	t.Run("close drops an in-flight load", func(t *testing.T) {
		loader := &countingLoader{gate: make(chan struct{})}
		c := NewCascade(loader, zap.NewNop())
		c.Open(context.Background())

		done := make(chan error, 1)
		go func() { done <- c.SelectBatch("B1") }()
		require.Eventually(t, func() bool { return len(loader.studentCalls()) == 1 }, timeout, tick)

		c.Close()
		assert.ErrorIs(t, <-done, context.Canceled)
		assert.Empty(t, c.Selection().Students)
	})

	t.Run("closed selector rejects selections", func(t *testing.T) {
		c := NewCascade(&countingLoader{}, nil)
		assert.ErrorIs(t, c.SelectLocation("L1"), ErrClosed)
		assert.ErrorIs(t, c.SelectBatch("B1"), ErrClosed)
		assert.ErrorIs(t, c.SetCategory(domain.CategoryOther), ErrClosed)
	})

	t.Run("apply copies picked ids", func(t *testing.T) {
		c := NewCascade(&countingLoader{}, nil)
		c.Open(context.Background())
		require.NoError(t, c.SetCategory(domain.CategoryStudentFee))
		require.NoError(t, c.SelectLocation("L1"))
		require.NoError(t, c.SelectBatch("B1"))
		require.NoError(t, c.SelectStudent("S-B1"))

		var entry domain.CashbookEntry
		c.Selection().Apply(&entry)
		assert.Equal(t, domain.CategoryStudentFee, entry.Category)
		assert.Equal(t, "L1", entry.LocationID)
		assert.Equal(t, "B1", entry.BatchID)
		assert.Equal(t, "S-B1", entry.StudentID)
	})
}

const (
	timeout = time.Second
	tick    = 5 * time.Millisecond
)
