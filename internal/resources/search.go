package resources

import (
	"context"
	"sync"

	"github.com/vadiminshakov/coachdesk/internal/slice"
	"github.com/vadiminshakov/coachdesk/pkg/debounce"
)

// Search drives the filter inputs of one resource view. Keystrokes are debounced
// per input; page changes fetch immediately.
type Search struct {
	ctx     context.Context
	h       Handle
	d       *debounce.Debouncer
	onFetch func(Pending)

	mu     sync.Mutex
	params slice.Params
	keys   map[string]struct{}
}

// NewSearch creates a search over h. Fetches run with ctx; onFetch, if set,
// receives every dispatched fetch.
func NewSearch(ctx context.Context, h Handle, d *debounce.Debouncer, onFetch func(Pending)) *Search {
	return &Search{
		ctx:     ctx,
		h:       h,
		d:       d,
		onFetch: onFetch,
		params:  h.Params(),
		keys:    make(map[string]struct{}),
	}
}

// Set updates a filter field and schedules a refetch from the first page once
// the input has been idle for the debounce delay.
func (s *Search) Set(field, value string) {
	key := s.h.Descriptor().Name + "/" + field

	s.mu.Lock()
	s.params = s.params.With(field, value).WithPage(1)
	s.keys[key] = struct{}{}
	s.mu.Unlock()

	s.d.Trigger(key, func() {
		s.fetch()
	})
}

// Page fetches the given page with the current filters.
func (s *Search) Page(page int) Pending {
	s.mu.Lock()
	s.params = s.params.WithPage(page)
	s.mu.Unlock()
	return s.fetch()
}

// Params returns the current filters.
func (s *Search) Params() slice.Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.params.Clone()
}

// Close cancels every pending refetch of this search.
func (s *Search) Close() {
	s.mu.Lock()
	keys := s.keys
	s.keys = make(map[string]struct{})
	s.mu.Unlock()
	for key := range keys {
		s.d.Cancel(key)
	}
}

func (s *Search) fetch() Pending {
	p := s.h.Fetch(s.ctx, s.Params())
	if s.onFetch != nil {
		s.onFetch(p)
	}
	return p
}
