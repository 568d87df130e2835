// Package rms holds the payload shapes of the restaurant-management backend.
// Field names follow the backend's camelCase JSON; optional fields are pointers.
package rms

import (
	"net/url"
	"strconv"
	"time"
)

// Entity carries the identity and audit fields every backend resource shares.
type Entity struct {
	ID               string     `json:"id,omitempty"`
	CreatedDate      *time.Time `json:"createdDate,omitempty"`
	LastModifiedDate *time.Time `json:"lastModifiedDate,omitempty"`
}

// GetID returns the resource identifier.
func (e Entity) GetID() string { return e.ID }

// SearchParams are the pagination and free-text options accepted by every _search endpoint.
type SearchParams struct {
	Query string
	Page  *int
	Size  *int
	Sort  []string
}

// Values encodes the params; unset values are omitted and Sort repeats.
func (p SearchParams) Values() url.Values {
	v := url.Values{}
	if p.Query != "" {
		v.Set("query", p.Query)
	}
	if p.Page != nil {
		v.Set("page", strconv.Itoa(*p.Page))
	}
	if p.Size != nil {
		v.Set("size", strconv.Itoa(*p.Size))
	}
	for _, s := range p.Sort {
		v.Add("sort", s)
	}
	return v
}

// Filter adds typed filter fields on top of SearchParams.
type Filter struct {
	SearchParams
	Bools   map[string]bool
	Strings map[string]string
}

// Values encodes the filter, omitting empty string filters.
func (f Filter) Values() url.Values {
	v := f.SearchParams.Values()
	for k, b := range f.Bools {
		v.Set(k, strconv.FormatBool(b))
	}
	for k, s := range f.Strings {
		if s != "" {
			v.Set(k, s)
		}
	}
	return v
}
