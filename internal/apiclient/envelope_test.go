package apiclient

import (
	"testing"
)

type item struct {
	ID string `json:"id"`
}

func decodeItems(t *testing.T, env *Envelope) []item {
	t.Helper()
	var items []item
	if err := env.Decode(&items); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	return items
}

func TestUnwrapEnvelope_WrappedListWithPagination(t *testing.T) {
	env, err := UnwrapEnvelope([]byte(`{"success":true,"data":[{"id":"a"},{"id":"b"}],
		"pagination":{"currentPage":2,"totalPages":4,"total":31,"limit":10,"hasNextPage":true,"hasPreviousPage":true}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	items := decodeItems(t, env)
	if len(items) != 2 || items[1].ID != "b" {
		t.Fatalf("unexpected items: %+v", items)
	}
	if env.Pagination == nil {
		t.Fatal("expected pagination")
	}
	p := *env.Pagination
	if p.CurrentPage != 2 || p.TotalPages != 4 || p.TotalItems != 31 || p.ItemsPerPage != 10 || !p.HasNextPage || !p.HasPrevPage {
		t.Errorf("pagination not normalized: %+v", p)
	}
	if _, ok := env.Meta["success"]; !ok {
		t.Error("expected success to be kept in Meta")
	}
}

func TestUnwrapEnvelope_BareList(t *testing.T) {
	env, err := UnwrapEnvelope([]byte(`[{"id":"x"}]`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if items := decodeItems(t, env); len(items) != 1 || items[0].ID != "x" {
		t.Fatalf("unexpected items: %+v", items)
	}
	if env.Pagination != nil {
		t.Error("bare list should have no pagination")
	}
}

func TestUnwrapEnvelope_BareObject(t *testing.T) {
	env, err := UnwrapEnvelope([]byte(`{"id":"req-1","origin":"Dallas"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got item
	if err := env.Decode(&got); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if got.ID != "req-1" {
		t.Errorf("expected req-1, got %q", got.ID)
	}
}

func TestUnwrapEnvelope_DoubleWrapped(t *testing.T) {
	env, err := UnwrapEnvelope([]byte(`{"data":{"data":[{"id":"d1"}],"pagination":{"currentPage":1,"totalPages":1,"totalItems":1,"itemsPerPage":5}}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if items := decodeItems(t, env); len(items) != 1 || items[0].ID != "d1" {
		t.Fatalf("unexpected items: %+v", items)
	}
	if env.Pagination == nil || env.Pagination.ItemsPerPage != 5 {
		t.Errorf("expected nested pagination, got %+v", env.Pagination)
	}
}

func TestUnwrapEnvelope_LegacyEmbeddedPagination(t *testing.T) {
	env, err := UnwrapEnvelope([]byte(`{"data":{"data":[{"id":"d1"},{"id":"d2"}],"currentPage":1,"totalPages":3,"total":12,"limit":5}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if items := decodeItems(t, env); len(items) != 2 {
		t.Fatalf("unexpected items: %+v", items)
	}
	if env.Pagination == nil {
		t.Fatal("expected embedded pagination")
	}
	if env.Pagination.TotalItems != 12 || env.Pagination.TotalPages != 3 {
		t.Errorf("unexpected pagination: %+v", env.Pagination)
	}
}

func TestUnwrapEnvelope_WrappedObjectIsNotUnwrappedTwice(t *testing.T) {
	env, err := UnwrapEnvelope([]byte(`{"data":{"ratings":[],"summary":{"averageOverall":4.2}}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var payload struct {
		Summary struct {
			AverageOverall float64 `json:"averageOverall"`
		} `json:"summary"`
	}
	if err := env.Decode(&payload); err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if payload.Summary.AverageOverall != 4.2 {
		t.Errorf("expected 4.2, got %v", payload.Summary.AverageOverall)
	}
}

func TestUnwrapEnvelope_Empty(t *testing.T) {
	for _, raw := range []string{"", "  ", "null"} {
		env, err := UnwrapEnvelope([]byte(raw))
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", raw, err)
		}
		var items []item
		if err := env.Decode(&items); err != nil || items != nil {
			t.Errorf("empty payload %q should decode to nothing", raw)
		}
	}
}

func TestEnvelopePage_SynthesizesWhenMissing(t *testing.T) {
	env := &Envelope{}
	p := env.Page(2, 5, 12)
	if p.TotalPages != 3 || p.TotalItems != 12 || !p.HasNextPage || !p.HasPrevPage {
		t.Errorf("unexpected synthesized pagination: %+v", p)
	}

	p = env.Page(1, 5, 0)
	if p.TotalPages != 1 || p.HasNextPage || p.HasPrevPage {
		t.Errorf("empty list should be one page: %+v", p)
	}
}

func TestEnvelopePage_FillsGaps(t *testing.T) {
	env := &Envelope{Pagination: &Pagination{TotalPages: 2}}
	p := env.Page(1, 10, 10)
	if p.CurrentPage != 1 || p.ItemsPerPage != 10 || p.TotalItems != 10 || !p.HasNextPage {
		t.Errorf("unexpected pagination: %+v", p)
	}
}

func TestMetaInt(t *testing.T) {
	env, err := UnwrapEnvelope([]byte(`{"data":[],"total":7}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n, ok := env.MetaInt("total"); !ok || n != 7 {
		t.Errorf("expected total 7, got %d (%v)", n, ok)
	}
	if _, ok := env.MetaInt("missing"); ok {
		t.Error("missing key should not be found")
	}
}
