package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"transporter-dashboard/internal/models"
)

func TestUIStore_PreferenceActions(t *testing.T) {
	s := NewUIStore(DefaultPreferences())

	s.ToggleSidebar()
	s.SetTheme("dark")
	if err := s.SetViewMode(ViewTable); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.SetViewMode("carousel"); err == nil {
		t.Error("expected invalid view mode to be rejected")
	}
	if err := s.SetFilter("status", "completed"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.SetFilter("colour", "red"); err == nil {
		t.Error("expected unknown filter to be rejected")
	}

	p := s.Persisted()
	if p.SidebarOpen || p.Theme != "dark" || p.ViewMode != ViewTable || p.Filters.Status != "completed" {
		t.Errorf("unexpected preferences %+v", p)
	}

	s.ResetFilters()
	if f := s.Persisted().Filters; f != DefaultUIFilters() {
		t.Errorf("expected default filters, got %+v", f)
	}
}

func TestUIStore_AddDriverAssignsTempIDAndZeroRating(t *testing.T) {
	s := NewUIStore(DefaultPreferences())
	a := s.AddDriver(SelectedDriver{Driver: models.Driver{ID: "d1", Name: "Ana"}})
	b := s.AddDriver(SelectedDriver{Driver: models.Driver{Name: "New Driver"}})

	if a.TempID == "" || b.TempID == "" || a.TempID == b.TempID {
		t.Fatalf("expected distinct temp ids, got %q and %q", a.TempID, b.TempID)
	}
	if a.Rating.Overall != 0 || a.Rating.Punctuality != 0 || a.Rating.Comments != "" {
		t.Errorf("expected zero rating, got %+v", a.Rating)
	}

	kept := s.AddDriver(SelectedDriver{TempID: "fixed"})
	if kept.TempID != "fixed" {
		t.Errorf("expected provided temp id kept, got %q", kept.TempID)
	}
}

func TestUIStore_RemoveDriverByTempIDOrID(t *testing.T) {
	s := NewUIStore(DefaultPreferences())
	a := s.AddDriver(SelectedDriver{Driver: models.Driver{ID: "d1"}})
	b := s.AddDriver(SelectedDriver{Driver: models.Driver{Name: "inline"}})
	s.AddDriver(SelectedDriver{Driver: models.Driver{ID: "d3"}})

	s.RemoveDriver("d1")
	s.RemoveDriver(b.TempID)

	left := s.SelectedDrivers()
	if len(left) != 1 || left[0].ID != "d3" {
		t.Fatalf("expected only d3 left, got %+v", left)
	}
	s.RemoveDriver(a.TempID)
	if len(s.SelectedDrivers()) != 1 {
		t.Error("removing an absent driver must be a no-op")
	}
}

func TestUIStore_UpdateDriverRatingRecomputesOverall(t *testing.T) {
	s := NewUIStore(DefaultPreferences())
	d := s.AddDriver(SelectedDriver{Driver: models.Driver{ID: "d1", Type: models.DriverTypeTransporter}})

	s.UpdateDriverRating(d.TempID, models.CriterionPunctuality, 5)
	got, err := s.UpdateDriverRating("d1", models.CriterionProfessionalism, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Rating.Overall != 5 {
		t.Errorf("expected round(4.5)=5, got %d", got.Rating.Overall)
	}

	got, _ = s.UpdateDriverRating("d1", models.CriterionDeliveryQuality, 3)
	if got.Rating.Overall != 4 {
		t.Errorf("expected round(4)=4, got %d", got.Rating.Overall)
	}

	if _, err := s.UpdateDriverRating("d1", "charisma", 3); err == nil {
		t.Error("expected unknown criterion to be rejected")
	}
	if _, err := s.UpdateDriverRating("d1", models.CriterionPunctuality, 6); err == nil {
		t.Error("expected out of range score to be rejected")
	}
	if _, err := s.UpdateDriverRating("nobody", models.CriterionPunctuality, 3); err == nil {
		t.Error("expected unknown driver to be rejected")
	}
}

func TestUIStore_UntypedDriverUsesScoredCriteria(t *testing.T) {
	s := NewUIStore(DefaultPreferences())
	d := s.AddDriver(SelectedDriver{Driver: models.Driver{Name: "inline"}})
	got, _ := s.UpdateDriverRating(d.TempID, models.CriterionSafety, 2)
	if got.Rating.Overall != 2 {
		t.Errorf("expected safety to count for an untyped driver, got %d", got.Rating.Overall)
	}
}

func TestUIStore_UpdateDriverKeepsRating(t *testing.T) {
	s := NewUIStore(DefaultPreferences())
	d := s.AddDriver(SelectedDriver{Driver: models.Driver{Name: "inline", Type: models.DriverTypeTransporter}})
	s.UpdateDriverRating(d.TempID, models.CriterionPunctuality, 4)
	s.SetDriverComments(d.TempID, "Helpful")

	if err := s.UpdateDriver(d.TempID, models.Driver{ID: "d9", Name: "Saved Driver", Type: models.DriverTypeTransporter}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := s.SelectedDrivers()[0]
	if got.ID != "d9" || got.TempID != d.TempID || got.Rating.Punctuality != 4 || got.Rating.Comments != "Helpful" {
		t.Errorf("unexpected driver %+v", got)
	}
}

func TestUIStore_PersistedExcludesSelection(t *testing.T) {
	s := NewUIStore(DefaultPreferences())
	s.AddDriver(SelectedDriver{Driver: models.Driver{ID: "d1"}})
	s.SetDriverSearchTerm("ana")
	s.SetShowDriverSearch(true)

	b, err := json.Marshal(s.Persisted())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, field := range []string{"selectedDrivers", "driverSearchTerm", "showDriverSearch"} {
		if strings.Contains(string(b), field) {
			t.Errorf("persisted state must not contain %s: %s", field, b)
		}
	}

	snap := s.Snapshot()
	if len(snap.SelectedDrivers) != 1 || snap.DriverSearchTerm != "ana" || !snap.ShowDriverSearch {
		t.Errorf("unexpected snapshot %+v", snap)
	}

	s.ClearSelectedDrivers()
	if len(s.SelectedDrivers()) != 0 {
		t.Error("expected empty selection")
	}
}

func TestRequestsStore_HasActiveFilters(t *testing.T) {
	s := NewRequestsStore(DefaultRequestsPreferences())
	if s.HasActiveFilters() {
		t.Fatal("defaults must not count as active")
	}
	if s.Persisted().ViewMode != ViewTable {
		t.Errorf("expected table view by default, got %q", s.Persisted().ViewMode)
	}

	for _, key := range []string{"search", "status", "priority", "dateRange"} {
		s.ResetFilters()
		if err := s.SetFilter(key, "x"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !s.HasActiveFilters() {
			t.Errorf("expected %s to activate filters", key)
		}
	}
	s.ResetFilters()
	if s.HasActiveFilters() {
		t.Error("expected reset to clear filters")
	}
}

func TestFilePersister_RoundTripPerUser(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prefs", "ui.json")
	p := NewFilePersister(path)
	ctx := context.Background()

	if _, ok, err := p.Load(ctx, "u1"); err != nil || ok {
		t.Fatalf("expected nothing stored, got ok=%v err=%v", ok, err)
	}

	saved := DefaultSaved()
	saved.UI.Theme = "dark"
	if err := p.Save(ctx, "u1", saved); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.Save(ctx, "u2", DefaultSaved()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, ok, err := p.Load(ctx, "u1")
	if err != nil || !ok || got.UI.Theme != "dark" {
		t.Errorf("unexpected load %+v ok=%v err=%v", got, ok, err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file must not be left behind")
	}
}

func TestRegistry_RestoresAndSaves(t *testing.T) {
	p := NewFilePersister(filepath.Join(t.TempDir(), "ui.json"))
	ctx := context.Background()

	r := NewRegistry(p)
	s, err := r.Session(ctx, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again, _ := r.Session(ctx, "u1"); again != s {
		t.Error("expected the same session for the same user")
	}
	s.UI.SetTheme("dark")
	s.UI.AddDriver(SelectedDriver{Driver: models.Driver{ID: "d1"}})
	s.Requests.SetFilter("status", "pending")
	if err := r.Save(ctx, s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	restored, err := NewRegistry(p).Session(ctx, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if restored.UI.Persisted().Theme != "dark" || restored.Requests.Filters().Status != "pending" {
		t.Errorf("expected preferences restored, got %+v", restored.Saved())
	}
	if len(restored.UI.SelectedDrivers()) != 0 {
		t.Error("driver selection must not survive a restart")
	}
}

func TestRegistry_FillsMissingDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ui.json")
	os.WriteFile(path, []byte(`{"u1":{"ui":{"sidebarOpen":false,"theme":"dark"}}}`), 0o644)

	s, err := NewRegistry(NewFilePersister(path)).Session(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p := s.UI.Persisted()
	if p.ViewMode != ViewGrid || p.Filters != DefaultUIFilters() || p.SidebarOpen {
		t.Errorf("unexpected preferences %+v", p)
	}
	if s.Requests.Persisted().ViewMode != ViewTable {
		t.Errorf("expected default requests view mode")
	}
}
