package web

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vadiminshakov/coachdesk/internal/clients"
	"github.com/vadiminshakov/coachdesk/internal/notify"
	"github.com/vadiminshakov/coachdesk/internal/resources"
	"github.com/vadiminshakov/coachdesk/internal/slice"
)

type fakeBackend struct {
	*httptest.Server
	mu    sync.Mutex
	posts int
	query string
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	b := &fakeBackend{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /courses", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.query = r.URL.RawQuery
		b.mu.Unlock()
		_, _ = w.Write([]byte(`{"success":true,"data":{"courses":[{"id":"C1","name":"Physics","code":"PHY","durationMonths":6,"fee":1500,"status":"ACTIVE"}],"pagination":{"currentPage":1,"limit":10,"totalPages":2,"totalCount":11}}}`))
	})
	mux.HandleFunc("POST /courses", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.posts++
		b.mu.Unlock()
		_, _ = w.Write([]byte(`{"success":true,"message":"Course created","data":{"id":"C2","name":"Maths","code":"MTH","durationMonths":3,"fee":900,"status":"ACTIVE"}}`))
	})
	mux.HandleFunc("POST /bank-accounts", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.posts++
		b.mu.Unlock()
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("GET /cashbook", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":{"entries":[],"totals":{"income":1200,"expense":1500,"balance":-300}}}`))
	})
	mux.HandleFunc("GET /fees", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"message":"Database unavailable"}`))
	})
	b.Server = httptest.NewServer(mux)
	t.Cleanup(b.Close)
	return b
}

func (b *fakeBackend) postCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.posts
}

func newTestServer(t *testing.T, b *fakeBackend) (*Server, *notify.Feed) {
	t.Helper()
	feed := notify.NewFeed(10)
	changes := slice.NewBroadcaster(16)
	store := resources.NewStore(clients.NewAPIClient(b.URL, nil, zap.NewNop()), resources.StoreConfig{
		Notifier: feed,
		Changes:  changes,
	})
	srv, err := NewServer("127.0.0.1:0", store, changes, feed, zap.NewNop())
	require.NoError(t, err)
	return srv, feed
}

func do(t *testing.T, srv *Server, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func TestAPI(t *testing.T) {
	b := newFakeBackend(t)
	srv, feed := newTestServer(t, b)

	t.Run("list passes filters through", func(t *testing.T) {
		rec, env := do(t, srv, http.MethodGet, "/api/courses?search=phy&status=ACTIVE", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, env.Success)
		assert.Contains(t, rec.Body.String(), `"totalCount":11`)
		assert.Contains(t, rec.Body.String(), `"fee":1500`)

		b.mu.Lock()
		query := b.query
		b.mu.Unlock()
		assert.Contains(t, query, "search=phy")
		assert.Contains(t, query, "status=ACTIVE")
		assert.Contains(t, query, "limit=10")
	})

	t.Run("create returns the stored entity", func(t *testing.T) {
		rec, env := do(t, srv, http.MethodPost, "/api/courses", `{"name":"Maths","code":"MTH","durationMonths":3,"fee":900}`)
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.True(t, env.Success)
		assert.Contains(t, rec.Body.String(), `"id":"C2"`)

		toasts := feed.Drain()
		require.NotEmpty(t, toasts)
		assert.Equal(t, "Course created", toasts[len(toasts)-1].Message)
	})

	t.Run("invalid draft is rejected before the backend", func(t *testing.T) {
		before := b.postCount()
		rec, env := do(t, srv, http.MethodPost, "/api/bank-accounts", `{"accountName":"Main","bankName":"SBI","accountNumber":"123"}`)
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		require.Len(t, env.Errors, 1)
		assert.Equal(t, "accountNumber", env.Errors[0].Field)
		assert.Equal(t, before, b.postCount())
	})

	t.Run("malformed json", func(t *testing.T) {
		rec, _ := do(t, srv, http.MethodPost, "/api/courses", `{`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("update of an unlisted id", func(t *testing.T) {
		rec, _ := do(t, srv, http.MethodPut, "/api/courses/C404", `{"id":"C404"}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("reports are read only", func(t *testing.T) {
		rec, _ := do(t, srv, http.MethodDelete, "/api/reports/R1", "")
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})

	t.Run("unknown resource", func(t *testing.T) {
		rec, _ := do(t, srv, http.MethodGet, "/api/rockets", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("backend message is relayed", func(t *testing.T) {
		rec, env := do(t, srv, http.MethodGet, "/api/fees", "")
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, "Database unavailable", env.Message)
	})

	t.Run("refresh reloads with the last params", func(t *testing.T) {
		_, _ = do(t, srv, http.MethodGet, "/api/courses?search=phy", "")
		b.mu.Lock()
		b.query = ""
		b.mu.Unlock()

		rec, env := do(t, srv, http.MethodPost, "/api/refresh?resource=courses", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, env.Success)
		b.mu.Lock()
		query := b.query
		b.mu.Unlock()
		assert.Contains(t, query, "search=phy")

		rec, env = do(t, srv, http.MethodPost, "/api/refresh?resource=courses&resource=fees", "")
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, "Database unavailable", env.Message)

		rec, _ = do(t, srv, http.MethodPost, "/api/refresh?resource=rockets", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("toasts drain", func(t *testing.T) {
		feed.Success("hello")
		rec, env := do(t, srv, http.MethodGet, "/api/toasts", "")
		assert.True(t, env.Success)
		assert.Contains(t, rec.Body.String(), `"hello"`)
	})
}

func TestPages(t *testing.T) {
	b := newFakeBackend(t)
	srv, _ := newTestServer(t, b)

	t.Run("index lists resources", func(t *testing.T) {
		rec, _ := do(t, srv, http.MethodGet, "/", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `href="/r/bank-accounts"`)
	})

	t.Run("resource page renders rows and pager", func(t *testing.T) {
		rec, _ := do(t, srv, http.MethodGet, "/r/courses?search=phy", "")
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "Physics")
		assert.Contains(t, body, `value="phy"`)
		assert.Contains(t, body, "Page 1 of 2")
		assert.Contains(t, body, "page=2")
	})

	t.Run("totals cards", func(t *testing.T) {
		rec, _ := do(t, srv, http.MethodGet, "/r/cashbook", "")
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "-300.00")
		assert.Contains(t, body, `class="neg"`)
		assert.Contains(t, body, "No Cashbook")
	})

	t.Run("gzip when accepted", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)

		require.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
		gz, err := gzip.NewReader(rec.Body)
		require.NoError(t, err)
		html, err := io.ReadAll(gz)
		require.NoError(t, err)
		assert.Contains(t, string(html), "coachdesk")
	})

	t.Run("metrics", func(t *testing.T) {
		do(t, srv, http.MethodGet, "/health", "")
		rec, _ := do(t, srv, http.MethodGet, "/metrics", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "coachdesk_dashboard_requests_total")
		assert.Contains(t, rec.Body.String(), "coachdesk_api_requests_total")
	})
}

func TestEvents(t *testing.T) {
	b := newFakeBackend(t)
	srv, _ := newTestServer(t, b)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	h, err := srv.store.Handle(resources.Courses)
	require.NoError(t, err)
	require.NoError(t, resources.Wait(ctx, h.Fetch(ctx, nil)))

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data: ") {
			assert.Contains(t, line, `"resource":"courses"`)
			assert.Contains(t, line, `"status":"fulfilled"`)
			return
		}
	}
}
