package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Pagination is the normalized pagination block. The backend spells some fields two ways
// (total/totalItems, limit/itemsPerPage, hasPrevPage/hasPreviousPage); both are accepted.
type Pagination struct {
	CurrentPage  int  `json:"currentPage"`
	TotalPages   int  `json:"totalPages"`
	TotalItems   int  `json:"totalItems"`
	ItemsPerPage int  `json:"itemsPerPage"`
	HasNextPage  bool `json:"hasNextPage"`
	HasPrevPage  bool `json:"hasPrevPage"`
}

type paginationWire struct {
	CurrentPage     *int  `json:"currentPage"`
	Page            *int  `json:"page"`
	TotalPages      *int  `json:"totalPages"`
	TotalItems      *int  `json:"totalItems"`
	Total           *int  `json:"total"`
	ItemsPerPage    *int  `json:"itemsPerPage"`
	Limit           *int  `json:"limit"`
	HasNextPage     *bool `json:"hasNextPage"`
	HasPrevPage     *bool `json:"hasPrevPage"`
	HasPreviousPage *bool `json:"hasPreviousPage"`
}

func firstInt(values ...*int) int {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return 0
}

func firstBool(values ...*bool) bool {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return false
}

// UnmarshalJSON accepts every observed spelling of the pagination fields.
func (p *Pagination) UnmarshalJSON(b []byte) error {
	var w paginationWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*p = Pagination{
		CurrentPage:  firstInt(w.CurrentPage, w.Page),
		TotalPages:   firstInt(w.TotalPages),
		TotalItems:   firstInt(w.TotalItems, w.Total),
		ItemsPerPage: firstInt(w.ItemsPerPage, w.Limit),
		HasNextPage:  firstBool(w.HasNextPage),
		HasPrevPage:  firstBool(w.HasPrevPage, w.HasPreviousPage),
	}
	return nil
}

// Envelope is a backend response after unwrapping. Data holds the payload, Pagination is set
// when the backend sent one, Meta keeps any other top-level fields (e.g. "total", "success").
type Envelope struct {
	Data       json.RawMessage
	Pagination *Pagination
	Meta       map[string]json.RawMessage
}

// UnwrapEnvelope normalizes the response shapes the backend produces:
//
//	{"data": [...], "pagination": {...}}
//	[...]                                   (bare list)
//	{...}                                   (bare object, no "data" key)
//	{"data": {"data": [...], "pagination": {...}}}
//	{"data": {"data": [...], "currentPage": 1, "totalPages": 3, ...}}  (legacy embedded pagination)
func UnwrapEnvelope(raw []byte) (*Envelope, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return &Envelope{}, nil
	}

	switch raw[0] {
	case '[':
		return &Envelope{Data: json.RawMessage(raw)}, nil
	case '{':
	default:
		// Scalars (ids, strings) pass through untouched
		return &Envelope{Data: json.RawMessage(raw)}, nil
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, fmt.Errorf("failed to parse response envelope: %w", err)
	}

	inner, hasData := top["data"]
	if !hasData {
		return &Envelope{Data: json.RawMessage(raw)}, nil
	}

	env := &Envelope{Data: inner, Meta: map[string]json.RawMessage{}}
	for k, v := range top {
		if k != "data" && k != "pagination" {
			env.Meta[k] = v
		}
	}
	if p, ok := top["pagination"]; ok && !isNull(p) {
		var pg Pagination
		if err := json.Unmarshal(p, &pg); err != nil {
			return nil, fmt.Errorf("failed to parse pagination: %w", err)
		}
		env.Pagination = &pg
	}

	inner = bytes.TrimSpace(inner)
	if len(inner) == 0 || inner[0] != '{' {
		return env, nil
	}

	var nested map[string]json.RawMessage
	if err := json.Unmarshal(inner, &nested); err != nil {
		return nil, fmt.Errorf("failed to parse nested data: %w", err)
	}
	innerData, doubleWrapped := nested["data"]
	if !doubleWrapped {
		return env, nil
	}

	env.Data = innerData
	if env.Pagination == nil {
		if p, ok := nested["pagination"]; ok && !isNull(p) {
			var pg Pagination
			if err := json.Unmarshal(p, &pg); err != nil {
				return nil, fmt.Errorf("failed to parse nested pagination: %w", err)
			}
			env.Pagination = &pg
		} else if hasPaginationFields(nested) {
			var pg Pagination
			if err := json.Unmarshal(inner, &pg); err != nil {
				return nil, fmt.Errorf("failed to parse embedded pagination: %w", err)
			}
			env.Pagination = &pg
		}
	}
	for k, v := range nested {
		if k != "data" && k != "pagination" {
			if _, exists := env.Meta[k]; !exists {
				env.Meta[k] = v
			}
		}
	}
	return env, nil
}

func isNull(b json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(b), []byte("null"))
}

func hasPaginationFields(m map[string]json.RawMessage) bool {
	for _, k := range []string{"currentPage", "totalPages", "totalItems", "itemsPerPage"} {
		if _, ok := m[k]; ok {
			return true
		}
	}
	return false
}

// Decode unmarshals the payload into v. An empty payload leaves v untouched.
func (e *Envelope) Decode(v interface{}) error {
	if e == nil || len(e.Data) == 0 || isNull(e.Data) {
		return nil
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}

// MetaInt reads an integer top-level field such as "total".
func (e *Envelope) MetaInt(key string) (int, bool) {
	if e == nil || e.Meta == nil {
		return 0, false
	}
	raw, ok := e.Meta[key]
	if !ok {
		return 0, false
	}
	var n int
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, false
	}
	return n, true
}

// Page returns the backend pagination with gaps filled, or synthesizes one from the
// item count when the backend did not paginate.
func (e *Envelope) Page(currentPage, limit, itemCount int) Pagination {
	if currentPage < 1 {
		currentPage = 1
	}
	if e != nil && e.Pagination != nil {
		p := *e.Pagination
		if p.CurrentPage == 0 {
			p.CurrentPage = currentPage
		}
		if p.TotalPages == 0 {
			p.TotalPages = 1
		}
		if p.TotalItems == 0 {
			p.TotalItems = itemCount
		}
		if p.ItemsPerPage == 0 {
			p.ItemsPerPage = limit
		}
		if !p.HasNextPage && p.CurrentPage < p.TotalPages {
			p.HasNextPage = true
		}
		if !p.HasPrevPage && p.CurrentPage > 1 {
			p.HasPrevPage = true
		}
		return p
	}

	if limit <= 0 {
		limit = itemCount
	}
	totalPages := 1
	if limit > 0 {
		totalPages = (itemCount + limit - 1) / limit
		if totalPages == 0 {
			totalPages = 1
		}
	}
	return Pagination{
		CurrentPage:  currentPage,
		TotalPages:   totalPages,
		TotalItems:   itemCount,
		ItemsPerPage: limit,
		HasNextPage:  currentPage < totalPages,
		HasPrevPage:  currentPage > 1,
	}
}
