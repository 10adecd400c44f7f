package slice

import (
	"net/url"
	"sort"
	"strconv"
)

// Params free-form filter and paging parameters passed through to the backend
// unmodified: page, limit, search, from, to, status, category and so on.
type Params map[string]string

// Clone returns an independent copy.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// With returns a copy with key set to value; an empty value removes the key.
func (p Params) With(key, value string) Params {
	out := p.Clone()
	if value == "" {
		delete(out, key)
	} else {
		out[key] = value
	}
	return out
}

// WithPage returns a copy asking for the given page.
func (p Params) WithPage(page int) Params {
	return p.With("page", strconv.Itoa(page))
}

// Values encodes the params as a query string; empty values are skipped.
func (p Params) Values() url.Values {
	v := make(url.Values, len(p))
	for k, val := range p {
		if val != "" {
			v.Set(k, val)
		}
	}
	return v
}

// Key returns a canonical string form, usable as a memoization key.
func (p Params) Key() string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	v := url.Values{}
	for _, k := range keys {
		v.Set(k, p[k])
	}
	return v.Encode()
}
