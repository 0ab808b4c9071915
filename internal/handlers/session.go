package handlers

import (
	"errors"
	"log"
	"net/http"

	"transporter-dashboard/internal/models"
	"transporter-dashboard/internal/store"
	"transporter-dashboard/pkg/utils"

	"github.com/go-chi/chi/v5"
)

// SessionState is the UI state of the signed-in user
type SessionState struct {
	UI                      store.UISnapshot          `json:"ui"`
	Requests                store.RequestsPreferences `json:"requests"`
	HasActiveRequestFilters bool                      `json:"hasActiveRequestFilters"`
}

// PreferencesUpdate changes preferences. Absent fields are left alone; filters are applied key by key
// after any reset.
type PreferencesUpdate struct {
	SidebarOpen      *bool             `json:"sidebarOpen"`
	Theme            *string           `json:"theme"`
	ViewMode         *store.ViewMode   `json:"viewMode"`
	ResetFilters     bool              `json:"resetFilters"`
	Filters          map[string]string `json:"filters"`
	DriverSearchTerm *string           `json:"driverSearchTerm"`
	ShowDriverSearch *bool             `json:"showDriverSearch"`
	Requests         *struct {
		ViewMode     *store.ViewMode   `json:"viewMode"`
		ResetFilters bool              `json:"resetFilters"`
		Filters      map[string]string `json:"filters"`
	} `json:"requests"`
}

func sessionFor(w http.ResponseWriter, r *http.Request, reg *store.Registry) (*store.Session, bool) {
	id, ok := userID(r)
	if !ok {
		utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
		return nil, false
	}
	s, err := reg.Session(r.Context(), id)
	if err != nil {
		log.Printf("❌ Error loading session for user %s: %v", id, err)
		utils.RespondError(w, http.StatusInternalServerError, "Failed to load preferences")
		return nil, false
	}
	return s, true
}

func stateOf(s *store.Session) SessionState {
	return SessionState{
		UI:                      s.UI.Snapshot(),
		Requests:                s.Requests.Persisted(),
		HasActiveRequestFilters: s.Requests.HasActiveFilters(),
	}
}

// GetPreferences returns the user's UI state
// GET /api/session/preferences
func GetPreferences(reg *store.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := sessionFor(w, r, reg)
		if !ok {
			return
		}
		utils.RespondData(w, http.StatusOK, stateOf(s))
	}
}

// UpdatePreferences applies a preferences update and persists the result
// PUT /api/session/preferences
func UpdatePreferences(reg *store.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := sessionFor(w, r, reg)
		if !ok {
			return
		}
		var in PreferencesUpdate
		if !decodeBody(w, r, &in) {
			return
		}
		if err := applyPreferences(s, in); err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := reg.Save(r.Context(), s); err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to save preferences")
			return
		}
		utils.RespondData(w, http.StatusOK, stateOf(s))
	}
}

func applyPreferences(s *store.Session, in PreferencesUpdate) error {
	ui := s.UI
	if in.SidebarOpen != nil && *in.SidebarOpen != ui.Persisted().SidebarOpen {
		ui.ToggleSidebar()
	}
	if in.Theme != nil {
		ui.SetTheme(*in.Theme)
	}
	if in.ViewMode != nil {
		if err := ui.SetViewMode(*in.ViewMode); err != nil {
			return err
		}
	}
	if in.ResetFilters {
		ui.ResetFilters()
	}
	for key, value := range in.Filters {
		if err := ui.SetFilter(key, value); err != nil {
			return err
		}
	}
	if in.DriverSearchTerm != nil {
		ui.SetDriverSearchTerm(*in.DriverSearchTerm)
	}
	if in.ShowDriverSearch != nil {
		ui.SetShowDriverSearch(*in.ShowDriverSearch)
	}

	if req := in.Requests; req != nil {
		if req.ViewMode != nil {
			if err := s.Requests.SetViewMode(*req.ViewMode); err != nil {
				return err
			}
		}
		if req.ResetFilters {
			s.Requests.ResetFilters()
		}
		for key, value := range req.Filters {
			if err := s.Requests.SetFilter(key, value); err != nil {
				return err
			}
		}
	}
	return nil
}

func respondSelectionError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotSelected) {
		utils.RespondError(w, http.StatusNotFound, err.Error())
		return
	}
	utils.RespondError(w, http.StatusBadRequest, err.Error())
}

// GetSelectedDrivers returns the drivers picked for the delivery being logged
// GET /api/session/drivers
func GetSelectedDrivers(reg *store.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := sessionFor(w, r, reg)
		if !ok {
			return
		}
		utils.RespondData(w, http.StatusOK, s.UI.SelectedDrivers())
	}
}

// AddSelectedDriver adds a driver to the selection with an empty rating
// POST /api/session/drivers
func AddSelectedDriver(reg *store.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := sessionFor(w, r, reg)
		if !ok {
			return
		}
		var in store.SelectedDriver
		if !decodeBody(w, r, &in) {
			return
		}
		utils.RespondData(w, http.StatusCreated, s.UI.AddDriver(in))
	}
}

// ReplaceSelectedDrivers replaces the whole selection, e.g. when editing an existing delivery
// PUT /api/session/drivers
func ReplaceSelectedDrivers(reg *store.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := sessionFor(w, r, reg)
		if !ok {
			return
		}
		var in []store.SelectedDriver
		if !decodeBody(w, r, &in) {
			return
		}
		s.UI.SetSelectedDrivers(in)
		utils.RespondData(w, http.StatusOK, s.UI.SelectedDrivers())
	}
}

// ClearSelectedDrivers empties the selection
// DELETE /api/session/drivers
func ClearSelectedDrivers(reg *store.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := sessionFor(w, r, reg)
		if !ok {
			return
		}
		s.UI.ClearSelectedDrivers()
		utils.RespondData(w, http.StatusOK, []store.SelectedDriver{})
	}
}

// UpdateSelectedDriver replaces the details of a selected driver, keeping its rating
// PUT /api/session/drivers/{driverId}
func UpdateSelectedDriver(reg *store.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := sessionFor(w, r, reg)
		if !ok {
			return
		}
		var in models.Driver
		if !decodeBody(w, r, &in) {
			return
		}
		if err := s.UI.UpdateDriver(chi.URLParam(r, "driverId"), in); err != nil {
			respondSelectionError(w, err)
			return
		}
		utils.RespondData(w, http.StatusOK, s.UI.SelectedDrivers())
	}
}

// RemoveSelectedDriver drops a driver by temp ID or ID
// DELETE /api/session/drivers/{driverId}
func RemoveSelectedDriver(reg *store.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := sessionFor(w, r, reg)
		if !ok {
			return
		}
		s.UI.RemoveDriver(chi.URLParam(r, "driverId"))
		utils.RespondData(w, http.StatusOK, s.UI.SelectedDrivers())
	}
}

// RatingUpdate scores one criterion, sets the comment, or both
type RatingUpdate struct {
	Criterion string  `json:"criterion"`
	Value     int     `json:"value"`
	Comments  *string `json:"comments"`
}

// UpdateSelectedDriverRating scores a criterion of a selected driver; the overall rating is recomputed
// PATCH /api/session/drivers/{driverId}/rating
func UpdateSelectedDriverRating(reg *store.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := sessionFor(w, r, reg)
		if !ok {
			return
		}
		var in RatingUpdate
		if !decodeBody(w, r, &in) {
			return
		}
		if in.Criterion == "" && in.Comments == nil {
			utils.RespondError(w, http.StatusBadRequest, "criterion or comments is required")
			return
		}

		id := chi.URLParam(r, "driverId")
		if in.Comments != nil {
			if err := s.UI.SetDriverComments(id, *in.Comments); err != nil {
				respondSelectionError(w, err)
				return
			}
		}
		if in.Criterion != "" {
			if _, err := s.UI.UpdateDriverRating(id, in.Criterion, in.Value); err != nil {
				respondSelectionError(w, err)
				return
			}
		}

		for _, d := range s.UI.SelectedDrivers() {
			if d.TempID == id || d.ID.String() == id {
				utils.RespondData(w, http.StatusOK, d)
				return
			}
		}
		respondSelectionError(w, store.ErrNotSelected)
	}
}
