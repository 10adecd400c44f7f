package resources

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/pkg/errors"

	"github.com/vadiminshakov/coachdesk/internal/clients"
	"github.com/vadiminshakov/coachdesk/internal/domain"
	"github.com/vadiminshakov/coachdesk/internal/slice"
)

// Requester sends one request to the backend and returns the decoded envelope.
type Requester interface {
	Do(ctx context.Context, method, path string, query url.Values, body any) (*clients.Envelope, error)
}

// RESTGateway talks to a collection endpoint of the backend.
type RESTGateway[T domain.Entity] struct {
	desc Descriptor
	req  Requester
}

// NewRESTGateway creates a gateway for desc.
func NewRESTGateway[T domain.Entity](desc Descriptor, req Requester) *RESTGateway[T] {
	return &RESTGateway[T]{desc: desc, req: req}
}

// List fetches one page. params are passed to the backend unmodified.
func (g *RESTGateway[T]) List(ctx context.Context, params slice.Params) (domain.Page[T], error) {
	env, err := g.req.Do(ctx, http.MethodGet, g.desc.Path, params.Values(), nil)
	if err != nil {
		return domain.Page[T]{}, err
	}
	page, err := decodePage[T](env.Data, g.desc.PluralKey)
	if err != nil {
		return domain.Page[T]{}, errors.Wrapf(err, "decode %s", g.desc.Name)
	}
	return page, nil
}

// Create posts a draft and returns the stored entity.
func (g *RESTGateway[T]) Create(ctx context.Context, draft T) (slice.Mutation[T], error) {
	env, err := g.req.Do(ctx, http.MethodPost, g.desc.Path, nil, draft)
	if err != nil {
		return slice.Mutation[T]{}, err
	}
	return g.entity(env)
}

// Update puts the full entity to its id endpoint.
func (g *RESTGateway[T]) Update(ctx context.Context, entity T) (slice.Mutation[T], error) {
	env, err := g.req.Do(ctx, http.MethodPut, g.itemPath(entity.GetID()), nil, entity)
	if err != nil {
		return slice.Mutation[T]{}, err
	}
	return g.entity(env)
}

// Delete removes the entity. The backend answers with the id, the deleted
// entity or nothing; the requested id is used as a fallback.
func (g *RESTGateway[T]) Delete(ctx context.Context, id string) (slice.Mutation[string], error) {
	env, err := g.req.Do(ctx, http.MethodDelete, g.itemPath(id), nil, nil)
	if err != nil {
		return slice.Mutation[string]{}, err
	}
	deleted := deletedID(env.Data)
	if deleted == "" {
		deleted = id
	}
	return slice.Mutation[string]{Value: deleted, Success: env.Succeeded(), Message: env.Message}, nil
}

func (g *RESTGateway[T]) itemPath(id string) string {
	return g.desc.Path + "/" + url.PathEscape(id)
}

func (g *RESTGateway[T]) entity(env *clients.Envelope) (slice.Mutation[T], error) {
	var v T
	if len(env.Data) > 0 && !bytes.Equal(env.Data, []byte("null")) {
		if err := json.Unmarshal(env.Data, &v); err != nil {
			return slice.Mutation[T]{}, errors.Wrapf(err, "decode %s", g.desc.Singular)
		}
	}
	return slice.Mutation[T]{Value: v, Success: env.Succeeded(), Message: env.Message}, nil
}

// decodePage accepts either a bare array or an object holding the list under
// pluralKey next to optional pagination and totals.
func decodePage[T any](data json.RawMessage, pluralKey string) (domain.Page[T], error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return domain.Page[T]{Items: []T{}}, nil
	}

	if data[0] == '[' {
		var items []T
		if err := json.Unmarshal(data, &items); err != nil {
			return domain.Page[T]{}, err
		}
		return domain.Page[T]{Items: items}, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return domain.Page[T]{}, err
	}
	page := domain.Page[T]{Items: []T{}}
	if raw, ok := obj[pluralKey]; ok {
		if err := json.Unmarshal(raw, &page.Items); err != nil {
			return domain.Page[T]{}, errors.Wrap(err, pluralKey)
		}
		if page.Items == nil {
			page.Items = []T{}
		}
	}
	if raw, ok := obj["pagination"]; ok && !bytes.Equal(raw, []byte("null")) {
		page.Pagination = &domain.Pagination{}
		if err := json.Unmarshal(raw, page.Pagination); err != nil {
			return domain.Page[T]{}, errors.Wrap(err, "pagination")
		}
	}
	if raw, ok := obj["totals"]; ok && !bytes.Equal(raw, []byte("null")) {
		if err := json.Unmarshal(raw, &page.Totals); err != nil {
			return domain.Page[T]{}, errors.Wrap(err, "totals")
		}
	}
	return page, nil
}

func deletedID(data json.RawMessage) string {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return ""
	}
	var id string
	if err := json.Unmarshal(data, &id); err == nil {
		return id
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		return obj.ID
	}
	return ""
}

// readOnly serves list requests and refuses mutations.
type readOnly[T domain.Entity] struct {
	*RESTGateway[T]
}

func (readOnly[T]) Create(context.Context, T) (slice.Mutation[T], error) {
	return slice.Mutation[T]{}, slice.ErrUnsupported
}

func (readOnly[T]) Update(context.Context, T) (slice.Mutation[T], error) {
	return slice.Mutation[T]{}, slice.ErrUnsupported
}

func (readOnly[T]) Delete(context.Context, string) (slice.Mutation[string], error) {
	return slice.Mutation[string]{}, slice.ErrUnsupported
}
