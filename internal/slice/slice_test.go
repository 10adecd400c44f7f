package slice

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vadiminshakov/coachdesk/internal/clients"
	"github.com/vadiminshakov/coachdesk/internal/domain"
)

// fakeGateway answers from canned values; gate, when set, blocks List until closed.
type fakeGateway struct {
	mu        sync.Mutex
	page      domain.Page[domain.Course]
	listErr   error
	gate      chan struct{}
	created   domain.Course
	updated   domain.Course
	mutErr    error
	success   bool
	message   string
	calls     int
	lastQuery Params
}

func (g *fakeGateway) List(ctx context.Context, params Params) (domain.Page[domain.Course], error) {
	g.mu.Lock()
	g.calls++
	g.lastQuery = params
	gate, page, err := g.gate, g.page, g.listErr
	g.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return domain.Page[domain.Course]{}, ctx.Err()
		}
	}
	return page, err
}

func (g *fakeGateway) Create(ctx context.Context, draft domain.Course) (Mutation[domain.Course], error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.mutErr != nil {
		return Mutation[domain.Course]{}, g.mutErr
	}
	return Mutation[domain.Course]{Value: g.created, Success: g.success, Message: g.message}, nil
}

func (g *fakeGateway) Update(ctx context.Context, entity domain.Course) (Mutation[domain.Course], error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.mutErr != nil {
		return Mutation[domain.Course]{}, g.mutErr
	}
	if g.updated.ID != "" {
		return Mutation[domain.Course]{Value: g.updated, Success: g.success}, nil
	}
	return Mutation[domain.Course]{Value: entity, Success: g.success}, nil
}

func (g *fakeGateway) Delete(ctx context.Context, id string) (Mutation[string], error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.mutErr != nil {
		return Mutation[string]{}, g.mutErr
	}
	return Mutation[string]{Value: id, Success: g.success, Message: g.message}, nil
}

type recordingNotifier struct {
	mu        sync.Mutex
	successes []string
	errs      []string
}

func (n *recordingNotifier) Success(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successes = append(n.successes, msg)
}

func (n *recordingNotifier) Error(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errs = append(n.errs, msg)
}

func courses(ids ...string) []domain.Course {
	out := make([]domain.Course, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.Course{ID: id, Name: "course " + id})
	}
	return out
}

func ids(items []domain.Course) []string {
	out := make([]string, 0, len(items))
	for _, c := range items {
		out = append(out, c.ID)
	}
	return out
}

func newCourseSlice(gw *fakeGateway, n Notifier) *Slice[domain.Course] {
	return New[domain.Course](gw, Options{Name: "courses", Singular: "course", Notifier: n, Logger: zap.NewNop()})
}

func loaded(t *testing.T, s *Slice[domain.Course], gw *fakeGateway, ids ...string) {
	t.Helper()
	gw.page = domain.Page[domain.Course]{Items: courses(ids...)}
	_, err := s.Fetch(context.Background(), nil).Wait()
	require.NoError(t, err)
}

func TestSlice_Fetch(t *testing.T) {
	t.Run("success replaces items in server order", func(t *testing.T) {
		gw := &fakeGateway{page: domain.Page[domain.Course]{
			Items:      courses("c3", "c1", "c2"),
			Pagination: &domain.Pagination{CurrentPage: 1, Limit: 3, TotalPages: 2, TotalCount: 5},
		}}
		s := newCourseSlice(gw, nil)

		op := s.Fetch(context.Background(), Params{"page": "1"})
		_, err := op.Wait()
		require.NoError(t, err)

		st := s.State()
		assert.Equal(t, []string{"c3", "c1", "c2"}, ids(st.Items))
		assert.False(t, st.Loading)
		assert.Empty(t, st.Error)
		assert.Equal(t, 5, st.Pagination.TotalCount)
		assert.Equal(t, StatusFulfilled, op.Status())
	})

	t.Run("failure keeps previous items and records the server message", func(t *testing.T) {
		gw := &fakeGateway{}
		n := &recordingNotifier{}
		s := newCourseSlice(gw, n)
		loaded(t, s, gw, "c1", "c2")

		gw.listErr = &clients.APIError{Status: 500, Message: "database offline"}
		op := s.Fetch(context.Background(), nil)
		_, err := op.Wait()
		require.Error(t, err)

		st := s.State()
		assert.Equal(t, []string{"c1", "c2"}, ids(st.Items))
		assert.False(t, st.Loading)
		assert.Equal(t, "database offline", st.Error)
		assert.Equal(t, StatusRejected, op.Status())
		assert.Equal(t, []string{"database offline"}, n.errs)
	})

	t.Run("failure without server message uses the fallback", func(t *testing.T) {
		gw := &fakeGateway{listErr: errors.New("connection refused")}
		s := newCourseSlice(gw, nil)

		_, err := s.Fetch(context.Background(), nil).Wait()
		require.Error(t, err)
		assert.Equal(t, "Failed to fetch courses", s.State().Error)
	})

	t.Run("totals are replaced wholesale", func(t *testing.T) {
		gw := &fakeGateway{}
		s := newCourseSlice(gw, nil)
		gw.page = domain.Page[domain.Course]{Totals: domain.Totals{"balance": decimalOf(t, "10"), "credit": decimalOf(t, "10")}}
		_, _ = s.Fetch(context.Background(), nil).Wait()
		gw.page = domain.Page[domain.Course]{Totals: domain.Totals{"balance": decimalOf(t, "4")}}
		_, _ = s.Fetch(context.Background(), nil).Wait()

		st := s.State()
		assert.Len(t, st.Totals, 1)
		assert.Equal(t, "4", st.Totals.Get("balance").String())
	})

	t.Run("repeated fetch converges", func(t *testing.T) {
		gw := &fakeGateway{}
		s := newCourseSlice(gw, nil)
		loaded(t, s, gw, "a", "b")
		first := s.State()
		loaded(t, s, gw, "a", "b")
		assert.Equal(t, first, s.State())
	})

	t.Run("params are passed through", func(t *testing.T) {
		gw := &fakeGateway{}
		s := newCourseSlice(gw, nil)
		_, _ = s.Fetch(context.Background(), Params{"status": "ACTIVE", "search": "phy"}).Wait()
		assert.Equal(t, Params{"status": "ACTIVE", "search": "phy"}, gw.lastQuery)
		assert.Equal(t, Params{"status": "ACTIVE", "search": "phy"}, s.LastParams())
	})
}

func TestSlice_Create(t *testing.T) {
	t.Run("prepends and the id appears once", func(t *testing.T) {
		gw := &fakeGateway{}
		n := &recordingNotifier{}
		s := newCourseSlice(gw, n)
		loaded(t, s, gw, "c1")

		gw.created = domain.Course{ID: "c9", Name: "Chemistry"}
		gw.success = true
		gw.message = "Course added"
		created, err := s.Create(context.Background(), domain.Course{Name: "Chemistry"}).Wait()
		require.NoError(t, err)
		assert.Equal(t, "c9", created.ID)
		assert.Equal(t, []string{"c9", "c1"}, ids(s.State().Items))
		assert.Equal(t, []string{"Course added"}, n.successes)
	})

	t.Run("appends when configured", func(t *testing.T) {
		gw := &fakeGateway{created: domain.Course{ID: "c9"}}
		s := New[domain.Course](gw, Options{Name: "courses", Placement: Append})
		loaded(t, s, gw, "c1")
		_, err := s.Create(context.Background(), domain.Course{}).Wait()
		require.NoError(t, err)
		assert.Equal(t, []string{"c1", "c9"}, ids(s.State().Items))
	})

	t.Run("already listed id is replaced, not duplicated", func(t *testing.T) {
		gw := &fakeGateway{}
		s := newCourseSlice(gw, nil)
		loaded(t, s, gw, "c1", "c9")
		gw.created = domain.Course{ID: "c9", Name: "fresh"}
		_, err := s.Create(context.Background(), domain.Course{}).Wait()
		require.NoError(t, err)

		st := s.State()
		assert.Equal(t, []string{"c1", "c9"}, ids(st.Items))
		assert.Equal(t, "fresh", st.Items[1].Name)
	})

	t.Run("no toast without explicit success", func(t *testing.T) {
		gw := &fakeGateway{created: domain.Course{ID: "c2"}}
		n := &recordingNotifier{}
		s := newCourseSlice(gw, n)
		_, err := s.Create(context.Background(), domain.Course{}).Wait()
		require.NoError(t, err)
		assert.Empty(t, n.successes)
	})

	t.Run("failure leaves items and uses fallback", func(t *testing.T) {
		gw := &fakeGateway{}
		n := &recordingNotifier{}
		s := newCourseSlice(gw, n)
		loaded(t, s, gw, "c1")
		gw.mutErr = errors.New("boom")
		_, err := s.Create(context.Background(), domain.Course{}).Wait()
		require.Error(t, err)
		assert.Equal(t, []string{"c1"}, ids(s.State().Items))
		assert.Equal(t, []string{"Failed to create course"}, n.errs)
	})
}

func TestSlice_Update(t *testing.T) {
	t.Run("replaces in place", func(t *testing.T) {
		gw := &fakeGateway{}
		s := newCourseSlice(gw, nil)
		loaded(t, s, gw, "c1", "c2", "c3")

		_, err := s.Update(context.Background(), domain.Course{ID: "c2", Name: "renamed"}).Wait()
		require.NoError(t, err)

		st := s.State()
		assert.Equal(t, []string{"c1", "c2", "c3"}, ids(st.Items))
		assert.Equal(t, "renamed", st.Items[1].Name)
		assert.Equal(t, "course c1", st.Items[0].Name)
	})

	t.Run("applying the same update twice is idempotent", func(t *testing.T) {
		gw := &fakeGateway{}
		s := newCourseSlice(gw, nil)
		loaded(t, s, gw, "c1", "c2")
		upd := domain.Course{ID: "c1", Name: "same"}

		_, err := s.Update(context.Background(), upd).Wait()
		require.NoError(t, err)
		once := s.State().Items
		_, err = s.Update(context.Background(), upd).Wait()
		require.NoError(t, err)
		assert.Equal(t, once, s.State().Items)
	})

	t.Run("missing id is reported as not found", func(t *testing.T) {
		gw := &fakeGateway{}
		s := newCourseSlice(gw, nil)
		loaded(t, s, gw, "c1")

		op := s.Update(context.Background(), domain.Course{ID: "ghost"})
		_, err := op.Wait()
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, StatusRejected, op.Status())
		assert.Equal(t, []string{"c1"}, ids(s.State().Items))
		assert.False(t, s.State().Loading)
		assert.Contains(t, s.State().Error, "ghost")
	})

	t.Run("empty id is rejected before dispatch", func(t *testing.T) {
		gw := &fakeGateway{}
		s := newCourseSlice(gw, nil)
		_, err := s.Update(context.Background(), domain.Course{Name: "x"}).Wait()
		assert.ErrorIs(t, err, ErrEmptyID)
		assert.Zero(t, gw.calls)
	})
}

func TestSlice_Delete(t *testing.T) {
	t.Run("removes exactly the matching id", func(t *testing.T) {
		gw := &fakeGateway{}
		s := newCourseSlice(gw, nil)
		loaded(t, s, gw, "c1", "c2", "c3")

		id, err := s.Delete(context.Background(), "c2").Wait()
		require.NoError(t, err)
		assert.Equal(t, "c2", id)
		assert.Equal(t, []string{"c1", "c3"}, ids(s.State().Items))
	})

	t.Run("absent id leaves items untouched", func(t *testing.T) {
		gw := &fakeGateway{}
		s := newCourseSlice(gw, nil)
		loaded(t, s, gw, "c1", "c2")

		_, err := s.Delete(context.Background(), "nope").Wait()
		require.NoError(t, err)
		assert.Equal(t, []string{"c1", "c2"}, ids(s.State().Items))
	})

	t.Run("empty id is rejected before dispatch", func(t *testing.T) {
		gw := &fakeGateway{}
		s := newCourseSlice(gw, nil)
		op := s.Delete(context.Background(), "")
		_, err := op.Wait()
		assert.ErrorIs(t, err, ErrEmptyID)
		assert.Equal(t, StatusRejected, op.Status())
		assert.Zero(t, gw.calls)
	})
}

// searchGateway answers List with one course named after the search, released per search.
type searchGateway struct {
	fakeGateway
	gates map[string]chan struct{}
}

func (g *searchGateway) List(ctx context.Context, params Params) (domain.Page[domain.Course], error) {
	search := params["search"]
	select {
	case <-g.gates[search]:
	case <-ctx.Done():
		return domain.Page[domain.Course]{}, ctx.Err()
	}
	return domain.Page[domain.Course]{Items: courses("result-for-" + search)}, nil
}

func TestSlice_Concurrency(t *testing.T) {
	t.Run("older fetch answering last does not replace newer items", func(t *testing.T) {
		gw := &searchGateway{gates: map[string]chan struct{}{
			"ab":  make(chan struct{}),
			"abc": make(chan struct{}),
		}}
		s := New[domain.Course](gw, Options{Name: "courses"})

		older := s.Fetch(context.Background(), Params{"search": "ab"})
		newer := s.Fetch(context.Background(), Params{"search": "abc"})

		close(gw.gates["abc"])
		_, err := newer.Wait()
		require.NoError(t, err)
		close(gw.gates["ab"])
		page, err := older.Wait()
		require.NoError(t, err)
		assert.Equal(t, StatusFulfilled, older.Status())
		assert.Equal(t, []string{"result-for-ab"}, ids(page.Items), "caller still gets its own answer")

		st := s.State()
		assert.Equal(t, []string{"result-for-abc"}, ids(st.Items))
		assert.Equal(t, "abc", s.LastParams()["search"])
		assert.False(t, st.Loading)
	})

	t.Run("older fetch answering first is shown until the newer one lands", func(t *testing.T) {
		gw := &searchGateway{gates: map[string]chan struct{}{
			"ab":  make(chan struct{}),
			"abc": make(chan struct{}),
		}}
		s := New[domain.Course](gw, Options{Name: "courses"})

		older := s.Fetch(context.Background(), Params{"search": "ab"})
		newer := s.Fetch(context.Background(), Params{"search": "abc"})

		close(gw.gates["ab"])
		_, err := older.Wait()
		require.NoError(t, err)
		assert.Equal(t, []string{"result-for-ab"}, ids(s.State().Items))
		assert.True(t, s.State().Loading)

		close(gw.gates["abc"])
		_, err = newer.Wait()
		require.NoError(t, err)
		assert.Equal(t, []string{"result-for-abc"}, ids(s.State().Items))
	})

	t.Run("late failure of an older op does not clobber a newer success", func(t *testing.T) {
		gw := &fakeGateway{gate: make(chan struct{}), listErr: errors.New("timeout")}
		s := newCourseSlice(gw, nil)

		fetch := s.Fetch(context.Background(), nil)
		assert.True(t, s.State().Loading)

		gw.mu.Lock()
		gw.success = true
		gw.mu.Unlock()
		_, err := s.Delete(context.Background(), "c1").Wait()
		require.NoError(t, err)
		assert.True(t, s.State().Loading, "fetch still pending")

		close(gw.gate)
		_, err = fetch.Wait()
		require.Error(t, err)

		st := s.State()
		assert.False(t, st.Loading)
		assert.Empty(t, st.Error, "older fetch must not overwrite newer delete outcome")
		assert.Equal(t, StatusRejected, fetch.Status())
	})

	t.Run("cancelled context drops the result", func(t *testing.T) {
		gw := &fakeGateway{}
		s := newCourseSlice(gw, nil)
		loaded(t, s, gw, "keep")

		gw.mu.Lock()
		gw.gate = make(chan struct{})
		gw.page = domain.Page[domain.Course]{Items: courses("stale")}
		gw.mu.Unlock()

		ctx, cancel := context.WithCancel(context.Background())
		op := s.Fetch(ctx, nil)
		cancel()
		_, err := op.Wait()
		require.Error(t, err)
		assert.Equal(t, StatusDropped, op.Status())

		st := s.State()
		assert.Equal(t, []string{"keep"}, ids(st.Items))
		assert.False(t, st.Loading)
	})

	t.Run("changes are broadcast", func(t *testing.T) {
		b := NewBroadcaster(8)
		ch := b.Subscribe()
		defer b.Unsubscribe(ch)

		gw := &fakeGateway{}
		s := New[domain.Course](gw, Options{Name: "courses", Changes: b})
		op := s.Fetch(context.Background(), nil)
		_, _ = op.Wait()

		first := <-ch
		assert.Equal(t, StatusPending, first.Status)
		assert.Equal(t, op.ID, first.OpID)
		second := <-ch
		assert.Equal(t, StatusFulfilled, second.Status)
		assert.Equal(t, "courses", second.Resource)
	})
}
