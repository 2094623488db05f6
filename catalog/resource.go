// Package catalog is the CRUD facade over the booking domain collections.
package catalog

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"

	"github.com/travelbook/admin-console/api"
	"github.com/travelbook/admin-console/httpclient"
)

// Requester sends one API request. *httpclient.Client implements it.
type Requester interface {
	Request(ctx context.Context, path string, opts httpclient.Options) (*httpclient.Response, error)
}

// Resource is CRUD over one collection endpoint.
type Resource[T any] struct {
	client Requester
	path   string
}

func NewResource[T any](client Requester, path string) *Resource[T] {
	return &Resource[T]{client: client, path: "/" + strings.Trim(path, "/")}
}

// Path returns the collection endpoint.
func (r *Resource[T]) Path() string {
	return r.path
}

func (r *Resource[T]) List(ctx context.Context, query url.Values) ([]T, error) {
	resp, err := r.client.Request(ctx, r.path, httpclient.Options{Method: http.MethodGet, Query: query})
	if err != nil {
		return nil, errors.Wrapf(err, "[Resource.List] %s", r.path)
	}
	items, err := api.DecodeData[[]T](resp)
	if err != nil {
		return nil, errors.Wrapf(err, "[Resource.List] %s decode", r.path)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func (r *Resource[T]) Get(ctx context.Context, id api.ID) (T, error) {
	return r.one(ctx, http.MethodGet, r.item(id), nil)
}

func (r *Resource[T]) Create(ctx context.Context, item T) (T, error) {
	return r.one(ctx, http.MethodPost, r.path, item)
}

func (r *Resource[T]) Update(ctx context.Context, id api.ID, item T) (T, error) {
	return r.one(ctx, http.MethodPut, r.item(id), item)
}

func (r *Resource[T]) Delete(ctx context.Context, id api.ID) error {
	if _, err := r.client.Request(ctx, r.item(id), httpclient.Options{Method: http.MethodDelete}); err != nil {
		return errors.Wrapf(err, "[Resource.Delete] %s", r.item(id))
	}
	return nil
}

func (r *Resource[T]) one(ctx context.Context, method, path string, body any) (T, error) {
	var zero T
	resp, err := r.client.Request(ctx, path, httpclient.Options{Method: method, Body: body})
	if err != nil {
		return zero, errors.Wrapf(err, "[Resource] %s %s", method, path)
	}
	item, err := api.DecodeData[T](resp)
	if err != nil {
		return zero, errors.Wrapf(err, "[Resource] %s %s decode", method, path)
	}
	return item, nil
}

func (r *Resource[T]) item(id api.ID) string {
	return r.path + "/" + url.PathEscape(id.String())
}
