package metrics

import (
	"encoding/json"
	"errors"
	"testing"

	"transporter-dashboard/internal/models"
)

func request(trucks int, pickup string, cost float64) models.TransportationRequest {
	return models.TransportationRequest{
		ID:                    "req-1",
		TruckCount:            models.Int(trucks),
		PlannedPickupDateTime: models.MustTimestamp(pickup),
		EstimatedCost:         models.Float(cost),
	}
}

func delivery(trucks int, pickup string, invoice float64) models.Delivery {
	return models.Delivery{
		ActualTruckCount:     models.Int(trucks),
		ActualPickupDateTime: models.MustTimestamp(pickup),
		InvoiceAmount:        models.Float(invoice),
	}
}

func TestComputeVariance_EndToEndScenario(t *testing.T) {
	report, err := ComputeVariance(
		request(2, "2024-01-01T08:00", 1000),
		delivery(3, "2024-01-01T09:45", 1150),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tv := report.TruckVariance
	if tv.Planned != 2 || tv.Actual != 3 || tv.Variance != 1 {
		t.Errorf("unexpected truck variance %+v", tv)
	}
	if p, ok := tv.Percentage.Value(); !ok || p != 50.0 {
		t.Errorf("expected truck percentage 50.0, got %v (%v)", p, ok)
	}

	if report.TimeVariance.VarianceMinutes != 105 {
		t.Errorf("expected 105 minutes late, got %d", report.TimeVariance.VarianceMinutes)
	}

	cv := report.CostVariance
	if cv.Estimated != 1000 || cv.Actual != 1150 || cv.Variance != 150 {
		t.Errorf("unexpected cost variance %+v", cv)
	}
	if p, ok := cv.Percentage.Value(); !ok || p != 15.0 {
		t.Errorf("expected cost percentage 15.0, got %v (%v)", p, ok)
	}

	alerts := ClassifySeverity(report)
	if len(alerts) != 3 {
		t.Fatalf("expected exactly three component alerts, got %d: %+v", len(alerts), alerts)
	}
	want := []struct {
		typ      AlertType
		title    string
		severity Severity
	}{
		{AlertTruck, "More Trucks Used", SeverityMedium},
		{AlertTime, "Delivery Delay", SeverityMedium},
		{AlertCost, "Cost Overrun", SeverityMedium},
	}
	for i, w := range want {
		if alerts[i].Type != w.typ || alerts[i].Title != w.title || alerts[i].Severity != w.severity {
			t.Errorf("alert %d: expected %s/%q/%s, got %+v", i, w.typ, w.title, w.severity, alerts[i])
		}
	}
	if alerts[1].Message != "Delivery was 1h 45m late. Consider investigating traffic, loading delays, or route optimization." {
		t.Errorf("unexpected time message %q", alerts[1].Message)
	}
	if alerts[2].Message != "Cost exceeded estimate by $150 (15.0%). Review pricing accuracy and additional charges." {
		t.Errorf("unexpected cost message %q", alerts[2].Message)
	}
}

func TestComputeVariance_TruckVarianceMatchesDifference(t *testing.T) {
	for planned := 1; planned <= 5; planned++ {
		for actual := 0; actual <= 6; actual++ {
			report, err := ComputeVariance(request(planned, "2024-01-01T08:00", 500), delivery(actual, "2024-01-01T08:00", 500))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if report.TruckVariance.Variance != actual-planned {
				t.Errorf("planned %d actual %d: variance %d", planned, actual, report.TruckVariance.Variance)
			}
		}
	}
}

func TestComputeVariance_PercentageRoundsToOneDecimal(t *testing.T) {
	report, err := ComputeVariance(request(3, "2024-01-01T08:00", 300), delivery(4, "2024-01-01T08:00", 301))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p, _ := report.TruckVariance.Percentage.Value(); p != 33.3 {
		t.Errorf("expected 33.3, got %v", p)
	}
	if p, _ := report.CostVariance.Percentage.Value(); p != 0.3 {
		t.Errorf("expected 0.3, got %v", p)
	}
}

func TestComputeVariance_ZeroPlannedIsUnavailable(t *testing.T) {
	report, err := ComputeVariance(request(0, "2024-01-01T08:00", 0), delivery(2, "2024-01-01T08:00", 250))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.TruckVariance.Percentage.Available() {
		t.Error("truck percentage should be unavailable for zero planned trucks")
	}
	if report.CostVariance.Percentage.Available() {
		t.Error("cost percentage should be unavailable for zero estimate")
	}

	b, err := json.Marshal(report.CostVariance)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(b) != `{"estimated":0,"actual":250,"variance":250,"percentage":null}` {
		t.Errorf("unexpected JSON %s", b)
	}

	alerts := ClassifySeverity(report)
	var cost *Alert
	for i := range alerts {
		if alerts[i].Type == AlertCost {
			cost = &alerts[i]
		}
	}
	if cost == nil || cost.Severity != SeverityMedium {
		t.Fatalf("expected medium cost alert on amount alone, got %+v", alerts)
	}
	if cost.Message != "Cost exceeded estimate by $250. Review pricing accuracy and additional charges." {
		t.Errorf("unexpected message %q", cost.Message)
	}
}

func TestComputeVariance_MissingFieldsFailFast(t *testing.T) {
	req := request(2, "2024-01-01T08:00", 1000)
	req.EstimatedCost = nil
	d := delivery(2, "2024-01-01T08:00", 1000)
	d.ActualPickupDateTime = models.Timestamp{}

	_, err := ComputeVariance(req, d)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	want := "invalid variance input: missing or invalid request estimatedCost, delivery actualPickupDateTime"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}

	if _, err := ForRequest(request(2, "2024-01-01T08:00", 1000)); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("request without delivery should fail, got %v", err)
	}
}

func TestComputeVariance_IsDeterministic(t *testing.T) {
	req := request(4, "2024-05-01T10:00", 2000)
	d := delivery(3, "2024-05-01T09:20", 1700)
	a, errA := ComputeVariance(req, d)
	b, errB := ComputeVariance(req, d)
	if errA != nil || errB != nil {
		t.Fatalf("unexpected errors: %v %v", errA, errB)
	}
	ja, _ := json.Marshal(a)
	jb, _ := json.Marshal(b)
	if string(ja) != string(jb) {
		t.Errorf("reports differ:\n%s\n%s", ja, jb)
	}
	if a.TimeVariance.VarianceMinutes != -40 {
		t.Errorf("expected 40 minutes early, got %d", a.TimeVariance.VarianceMinutes)
	}
}

func TestVariancePreview(t *testing.T) {
	p, err := VariancePreview(request(2, "2024-01-01T08:00", 1000), 3, 900)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.TruckVariance != 1 || p.CostVariance != -100 || p.CostVariancePercentage != -10 {
		t.Errorf("unexpected preview %+v", p)
	}

	p, err = VariancePreview(request(2, "2024-01-01T08:00", 0), 2, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.CostVariancePercentage != 0 {
		t.Errorf("expected 0 percentage for zero estimate, got %v", p.CostVariancePercentage)
	}
}

func TestPercentJSON(t *testing.T) {
	var p Percent
	if err := json.Unmarshal([]byte(`"15.04"`), &p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.String() != "15.0" {
		t.Errorf("expected 15.0, got %s", p)
	}
	if err := json.Unmarshal([]byte(`null`), &p); err != nil || p.Available() {
		t.Errorf("null should be unavailable (%v)", err)
	}
}
