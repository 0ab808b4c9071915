package store

import (
	"fmt"
	"sync"
)

// RequestFilters are the filters of the requests list page
type RequestFilters struct {
	Search    string `json:"search"`
	Status    string `json:"status"`
	Priority  string `json:"priority"`
	DateRange string `json:"dateRange"`
}

// DefaultRequestFilters is the unfiltered state
func DefaultRequestFilters() RequestFilters {
	return RequestFilters{Status: "all", Priority: "all", DateRange: "all"}
}

// RequestsPreferences is the persisted part of the requests store
type RequestsPreferences struct {
	Filters  RequestFilters `json:"filters"`
	ViewMode ViewMode       `json:"viewMode"`
}

func DefaultRequestsPreferences() RequestsPreferences {
	return RequestsPreferences{Filters: DefaultRequestFilters(), ViewMode: ViewTable}
}

// RequestsStore holds the requests list page state
type RequestsStore struct {
	mu    sync.RWMutex
	prefs RequestsPreferences
}

func NewRequestsStore(prefs RequestsPreferences) *RequestsStore {
	return &RequestsStore{prefs: prefs}
}

// SetFilter sets one of search, status, priority or dateRange
func (s *RequestsStore) SetFilter(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch key {
	case "search":
		s.prefs.Filters.Search = value
	case "status":
		s.prefs.Filters.Status = value
	case "priority":
		s.prefs.Filters.Priority = value
	case "dateRange":
		s.prefs.Filters.DateRange = value
	default:
		return fmt.Errorf("unknown filter %q", key)
	}
	return nil
}

func (s *RequestsStore) ResetFilters() {
	s.mu.Lock()
	s.prefs.Filters = DefaultRequestFilters()
	s.mu.Unlock()
}

func (s *RequestsStore) SetViewMode(mode ViewMode) error {
	if !mode.Valid() {
		return fmt.Errorf("invalid view mode %q", mode)
	}
	s.mu.Lock()
	s.prefs.ViewMode = mode
	s.mu.Unlock()
	return nil
}

// HasActiveFilters reports whether any filter differs from its default
func (s *RequestsStore) HasActiveFilters() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f := s.prefs.Filters
	return f.Search != "" || f.Status != "all" || f.Priority != "all" || f.DateRange != "all"
}

func (s *RequestsStore) Filters() RequestFilters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs.Filters
}

// Persisted returns the state written to storage
func (s *RequestsStore) Persisted() RequestsPreferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs
}
