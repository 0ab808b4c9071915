// Package store holds per-session UI state. Preferences survive restarts through a Persister; the
// driver selection buffer of an in-progress delivery log lives only in memory.
package store

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"transporter-dashboard/internal/metrics"
	"transporter-dashboard/internal/models"
)

// ErrNotSelected is returned by actions on a driver that is not in the selection
var ErrNotSelected = errors.New("driver is not selected")

// ViewMode is how list pages lay out their items
type ViewMode string

const (
	ViewGrid  ViewMode = "grid"
	ViewList  ViewMode = "list"
	ViewTable ViewMode = "table"
)

func (m ViewMode) Valid() bool {
	return m == ViewGrid || m == ViewList || m == ViewTable
}

// UIFilters are the dashboard-wide filters
type UIFilters struct {
	DateRange   string `json:"dateRange"`
	Status      string `json:"status"`
	Transporter string `json:"transporter"`
}

// DefaultUIFilters is the state ResetFilters returns to
func DefaultUIFilters() UIFilters {
	return UIFilters{DateRange: "last7days", Status: "all", Transporter: "all"}
}

// Preferences is the persisted part of the UI store
type Preferences struct {
	SidebarOpen bool      `json:"sidebarOpen"`
	Theme       string    `json:"theme"`
	ViewMode    ViewMode  `json:"viewMode"`
	Filters     UIFilters `json:"filters"`
}

// DefaultPreferences is what a new session starts with
func DefaultPreferences() Preferences {
	return Preferences{SidebarOpen: true, Theme: "light", ViewMode: ViewGrid, Filters: DefaultUIFilters()}
}

// SelectionRating is the rating being entered for a selected driver
type SelectionRating struct {
	models.RatingScores
	Overall  int    `json:"overall"`
	Comments string `json:"comments"`
}

// SelectedDriver is a driver picked for the delivery being logged. TempID identifies it until the
// delivery is saved, including drivers created inline that have no ID yet.
type SelectedDriver struct {
	models.Driver
	TempID string          `json:"tempId"`
	Rating SelectionRating `json:"rating"`
}

func (d SelectedDriver) matches(id string) bool {
	return d.TempID == id || (d.ID != "" && d.ID.String() == id)
}

// UISnapshot is the full UI state, preferences and session buffer
type UISnapshot struct {
	Preferences
	SelectedDrivers  []SelectedDriver `json:"selectedDrivers"`
	DriverSearchTerm string           `json:"driverSearchTerm"`
	ShowDriverSearch bool             `json:"showDriverSearch"`
}

// UIStore is safe for concurrent use
type UIStore struct {
	mu               sync.RWMutex
	prefs            Preferences
	selected         []SelectedDriver
	driverSearchTerm string
	showDriverSearch bool
}

// NewUIStore creates a store starting from prefs
func NewUIStore(prefs Preferences) *UIStore {
	return &UIStore{prefs: prefs, selected: []SelectedDriver{}}
}

func (s *UIStore) ToggleSidebar() {
	s.mu.Lock()
	s.prefs.SidebarOpen = !s.prefs.SidebarOpen
	s.mu.Unlock()
}

func (s *UIStore) SetTheme(theme string) {
	s.mu.Lock()
	s.prefs.Theme = theme
	s.mu.Unlock()
}

func (s *UIStore) SetViewMode(mode ViewMode) error {
	if !mode.Valid() {
		return fmt.Errorf("invalid view mode %q", mode)
	}
	s.mu.Lock()
	s.prefs.ViewMode = mode
	s.mu.Unlock()
	return nil
}

// SetFilter sets one of dateRange, status or transporter
func (s *UIStore) SetFilter(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch key {
	case "dateRange":
		s.prefs.Filters.DateRange = value
	case "status":
		s.prefs.Filters.Status = value
	case "transporter":
		s.prefs.Filters.Transporter = value
	default:
		return fmt.Errorf("unknown filter %q", key)
	}
	return nil
}

func (s *UIStore) ResetFilters() {
	s.mu.Lock()
	s.prefs.Filters = DefaultUIFilters()
	s.mu.Unlock()
}

// AddDriver appends d to the selection, assigning a temp ID and an empty rating when missing.
func (s *UIStore) AddDriver(d SelectedDriver) SelectedDriver {
	if d.TempID == "" {
		d.TempID = uuid.New().String()
	}
	s.mu.Lock()
	s.selected = append(s.selected, d)
	s.mu.Unlock()
	return d
}

// RemoveDriver drops the selected driver whose temp ID or ID is id
func (s *UIStore) RemoveDriver(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.selected[:0:0]
	for _, d := range s.selected {
		if !d.matches(id) {
			kept = append(kept, d)
		}
	}
	s.selected = kept
}

// UpdateDriverRating scores one criterion of a selected driver and recomputes its overall rating
func (s *UIStore) UpdateDriverRating(id, criterion string, value int) (SelectedDriver, error) {
	if value < 0 || value > 5 {
		return SelectedDriver{}, fmt.Errorf("rating must be between 0 and 5, got %d", value)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, d := range s.selected {
		if !d.matches(id) {
			continue
		}
		if !d.Rating.Set(criterion, value) {
			return SelectedDriver{}, fmt.Errorf("unknown rating criterion %q", criterion)
		}
		d.Rating.Overall = metrics.ComputeOverallRating(ratingType(d), d.Rating.Map())
		s.selected[i] = d
		return d, nil
	}
	return SelectedDriver{}, fmt.Errorf("%w: %s", ErrNotSelected, id)
}

// SetDriverComments sets the free-text comment of a selected driver's rating
func (s *UIStore) SetDriverComments(id, comments string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.selected {
		if s.selected[i].matches(id) {
			s.selected[i].Rating.Comments = comments
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotSelected, id)
}

// UpdateDriver replaces the driver details of a selected entry, keeping its temp ID and rating
func (s *UIStore) UpdateDriver(id string, d models.Driver) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.selected {
		if s.selected[i].matches(id) {
			s.selected[i].Driver = d
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrNotSelected, id)
}

func (s *UIStore) SetSelectedDrivers(drivers []SelectedDriver) {
	s.mu.Lock()
	s.selected = append([]SelectedDriver{}, drivers...)
	s.mu.Unlock()
}

func (s *UIStore) ClearSelectedDrivers() {
	s.mu.Lock()
	s.selected = []SelectedDriver{}
	s.mu.Unlock()
}

func (s *UIStore) SetDriverSearchTerm(term string) {
	s.mu.Lock()
	s.driverSearchTerm = term
	s.mu.Unlock()
}

func (s *UIStore) SetShowDriverSearch(show bool) {
	s.mu.Lock()
	s.showDriverSearch = show
	s.mu.Unlock()
}

// SelectedDrivers returns a copy of the selection
func (s *UIStore) SelectedDrivers() []SelectedDriver {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]SelectedDriver{}, s.selected...)
}

// Snapshot returns the whole state
func (s *UIStore) Snapshot() UISnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return UISnapshot{
		Preferences:      s.prefs,
		SelectedDrivers:  append([]SelectedDriver{}, s.selected...),
		DriverSearchTerm: s.driverSearchTerm,
		ShowDriverSearch: s.showDriverSearch,
	}
}

// Persisted returns only the fields written to storage
func (s *UIStore) Persisted() Preferences {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs
}

// ratingType falls back to the criteria that were scored when the driver has no type yet
func ratingType(d SelectedDriver) models.DriverType {
	if d.Type.Valid() {
		return d.Type
	}
	r := d.Rating
	if r.Safety > 0 || r.PolicyCompliance > 0 || r.FuelEfficiency > 0 {
		return models.DriverTypeInHouse
	}
	return models.DriverTypeTransporter
}
