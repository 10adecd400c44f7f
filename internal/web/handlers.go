package web

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/coachdesk/internal/clients"
	"github.com/vadiminshakov/coachdesk/internal/domain"
	"github.com/vadiminshakov/coachdesk/internal/forms"
	"github.com/vadiminshakov/coachdesk/internal/notify"
	"github.com/vadiminshakov/coachdesk/internal/resources"
	"github.com/vadiminshakov/coachdesk/internal/slice"
)

const maxBody = 1 << 20

// envelope mirrors the backend response shape so the page script handles both alike.
type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    any               `json:"data,omitempty"`
	Errors  forms.FieldErrors `json:"errors,omitempty"`
}

type listData struct {
	Items      any                `json:"items"`
	Pagination *domain.Pagination `json:"pagination,omitempty"`
	Totals     domain.Totals      `json:"totals,omitempty"`
}

var templateFuncs = template.FuncMap{
	"money": func(d any) string {
		if v, ok := d.(interface{ StringFixed(int32) string }); ok {
			return v.StringFixed(2)
		}
		return fmt.Sprint(d)
	},
	"title": func(s string) string {
		if s == "" {
			return s
		}
		return strings.ToUpper(s[:1]) + s[1:]
	},
	"add": func(a, b int) int { return a + b },
}

type nav struct {
	Name  string
	Title string
}

type pageData struct {
	Nav     []nav
	Current string
	View    resources.View
	Search  string
	Toasts  []notify.Toast
	Prev    string
	Next    string
}

func (s *Server) navigation() []nav {
	handles := s.store.Handles()
	out := make([]nav, 0, len(handles))
	for _, h := range handles {
		out = append(out, nav{Name: h.Descriptor().Name, Title: h.Descriptor().Title})
	}
	return out
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, "index.html", pageData{Nav: s.navigation(), Toasts: s.drain()})
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	h, ok := s.lookup(w, r)
	if !ok {
		return
	}
	params := paramsOf(r.URL.Query())
	err := resources.Wait(r.Context(), h.Fetch(r.Context(), params))
	if err != nil {
		s.logger.Debug("page fetch failed", zap.String("resource", h.Descriptor().Name), zap.Error(err))
	}

	view := h.View()
	data := pageData{
		Nav:     s.navigation(),
		Current: h.Descriptor().Name,
		View:    view,
		Search:  params["search"],
		Toasts:  s.drain(),
	}
	if p := view.Pagination; p != nil {
		if p.HasPrev() {
			data.Prev = pageLink(r.URL.Query(), p.CurrentPage-1)
		}
		if p.HasNext() {
			data.Next = pageLink(r.URL.Query(), p.CurrentPage+1)
		}
	}
	s.render(w, "resource.html", data)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	h, ok := s.lookup(w, r)
	if !ok {
		return
	}
	if err := resources.Wait(r.Context(), h.Fetch(r.Context(), paramsOf(r.URL.Query()))); err != nil {
		s.fail(w, h, err)
		return
	}
	view := h.View()
	respond(w, http.StatusOK, envelope{
		Success: true,
		Data:    listData{Items: view.Items, Pagination: view.Pagination, Totals: view.Totals},
	})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	h, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.submit(w, r, h, "", http.StatusCreated)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	h, ok := s.lookup(w, r)
	if !ok {
		return
	}
	s.submit(w, r, h, mux.Vars(r)["id"], http.StatusOK)
}

func (s *Server) submit(w http.ResponseWriter, r *http.Request, h resources.Handle, id string, okStatus int) {
	form, err := h.Form(id)
	if err != nil {
		s.fail(w, h, err)
		return
	}
	defer form.Close()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		respond(w, http.StatusBadRequest, envelope{Message: "Failed to read request"})
		return
	}
	if err := form.Decode(body); err != nil {
		respond(w, http.StatusBadRequest, envelope{Message: "Invalid JSON"})
		return
	}

	p, err := form.Submit(r.Context())
	var fe forms.FieldErrors
	if errors.As(err, &fe) {
		respond(w, http.StatusUnprocessableEntity, envelope{Message: "Validation failed", Errors: fe})
		return
	}
	if err != nil {
		s.fail(w, h, err)
		return
	}
	if err := resources.Wait(r.Context(), p); err != nil {
		s.fail(w, h, err)
		return
	}
	respond(w, okStatus, envelope{Success: true, Data: form.Result()})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	h, ok := s.lookup(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]
	if err := resources.Wait(r.Context(), h.Delete(r.Context(), id)); err != nil {
		s.fail(w, h, err)
		return
	}
	respond(w, http.StatusOK, envelope{Success: true, Data: id})
}

// handleRefresh re-fetches the resources named by ?resource=, all of them when none
// is given, each with the params of its last fetch.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	names := r.URL.Query()["resource"]
	if err := s.store.Refresh(r.Context(), names...); err != nil {
		switch {
		case errors.Is(err, resources.ErrUnknownResource):
			respond(w, http.StatusNotFound, envelope{Message: "Unknown resource"})
		case errors.Is(err, context.Canceled):
		default:
			msg, ok := clients.MessageOf(err)
			if !ok {
				msg = err.Error()
			}
			s.logger.Debug("dashboard refresh failed", zap.Strings("resources", names), zap.Error(err))
			respond(w, http.StatusBadGateway, envelope{Message: msg})
		}
		return
	}
	if len(names) == 0 {
		names = resources.Names()
	}
	respond(w, http.StatusOK, envelope{Success: true, Data: names})
}

func (s *Server) handleToasts(w http.ResponseWriter, r *http.Request) {
	respond(w, http.StatusOK, envelope{Success: true, Data: s.drain()})
}

// handleEvents streams slice changes so open pages can reload.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.changes == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "change stream not available")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := s.changes.Subscribe()
	defer s.changes.Unsubscribe(sub)

	// send a comment heartbeat every 30s so proxies keep connection
	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprintf(w, ": ping\n\n")
			flusher.Flush()
		case change, ok := <-sub:
			if !ok {
				return
			}
			if change.Status == slice.StatusPending {
				continue
			}
			payload, err := json.Marshal(map[string]string{
				"resource": change.Resource,
				"op":       string(change.Kind),
				"status":   change.Status.String(),
			})
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: change\n")
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (resources.Handle, bool) {
	h, err := s.store.Handle(mux.Vars(r)["resource"])
	if err != nil {
		respond(w, http.StatusNotFound, envelope{Message: "Unknown resource"})
		return nil, false
	}
	return h, true
}

// fail maps an operation error to a response. The slice has already toasted it.
func (s *Server) fail(w http.ResponseWriter, h resources.Handle, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, slice.ErrUnsupported):
		status = http.StatusMethodNotAllowed
	case errors.Is(err, slice.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, slice.ErrEmptyID):
		status = http.StatusBadRequest
	case errors.Is(err, context.Canceled):
		return
	}

	msg, ok := clients.MessageOf(err)
	if !ok {
		msg = errors.Cause(err).Error()
		if status == http.StatusBadGateway && h.View().Error != "" {
			msg = h.View().Error
		}
	}
	s.logger.Debug("dashboard request failed", zap.String("resource", h.Descriptor().Name), zap.Error(err))
	respond(w, status, envelope{Message: msg})
}

func (s *Server) drain() []notify.Toast {
	if s.feed == nil {
		return nil
	}
	return s.feed.Drain()
}

func (s *Server) render(w http.ResponseWriter, name string, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.pages.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error("render page", zap.String("page", name), zap.Error(err))
	}
}

func respond(w http.ResponseWriter, code int, payload envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}

// paramsOf passes query filters through as they are; only the first value of a key counts.
func paramsOf(q url.Values) slice.Params {
	params := make(slice.Params, len(q))
	for k, v := range q {
		if len(v) > 0 && v[0] != "" {
			params[k] = v[0]
		}
	}
	return params
}

func pageLink(q url.Values, page int) string {
	next := url.Values{}
	for k, v := range q {
		next[k] = v
	}
	next.Set("page", strconv.Itoa(page))
	return "?" + next.Encode()
}
