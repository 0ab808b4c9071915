// Package metrics derives planned-vs-actual variance, alerting severity and driver rating
// aggregates from already-fetched requests, deliveries and ratings. Everything here is pure.
package metrics

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"transporter-dashboard/internal/models"
)

// ErrInvalidInput is returned when a required request or delivery field is missing or not a number.
var ErrInvalidInput = errors.New("invalid variance input")

// Percent is a percentage rounded to one decimal, or unavailable when the base was zero.
type Percent struct {
	value float64
	ok    bool
}

// PercentUnavailable is the percentage of a change against a zero base.
var PercentUnavailable = Percent{}

// PercentOf returns variance/base*100 rounded to one decimal, or PercentUnavailable for a zero base.
func PercentOf(variance, base float64) Percent {
	if base == 0 || math.IsNaN(base) || math.IsInf(base, 0) {
		return PercentUnavailable
	}
	return Percent{value: round1(variance / base * 100), ok: true}
}

// Value returns the percentage and whether it is available.
func (p Percent) Value() (float64, bool) { return p.value, p.ok }

// Available reports whether the percentage could be computed.
func (p Percent) Available() bool { return p.ok }

// Abs returns |p|, keeping unavailability.
func (p Percent) Abs() Percent {
	if !p.ok {
		return p
	}
	return Percent{value: math.Abs(p.value), ok: true}
}

// String formats with one decimal ("15.0"), or "n/a".
func (p Percent) String() string {
	if !p.ok {
		return "n/a"
	}
	return strconv.FormatFloat(p.value, 'f', 1, 64)
}

func (p Percent) MarshalJSON() ([]byte, error) {
	if !p.ok {
		return []byte("null"), nil
	}
	return []byte(p.String()), nil
}

func (p *Percent) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "null" || s == "" {
		*p = PercentUnavailable
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("invalid percentage %q: %w", s, err)
	}
	*p = Percent{value: round1(v), ok: true}
	return nil
}

// TruckVariance compares planned and used trucks
type TruckVariance struct {
	Planned    int     `json:"planned"`
	Actual     int     `json:"actual"`
	Variance   int     `json:"variance"`
	Percentage Percent `json:"percentage"`
}

// TimeVariance compares planned and actual pickup. Positive minutes mean late.
type TimeVariance struct {
	Planned         time.Time `json:"planned"`
	Actual          time.Time `json:"actual"`
	VarianceMinutes int       `json:"varianceMinutes"`
}

// CostVariance compares the estimate with the invoice
type CostVariance struct {
	Estimated  float64 `json:"estimated"`
	Actual     float64 `json:"actual"`
	Variance   float64 `json:"variance"`
	Percentage Percent `json:"percentage"`
}

// VarianceReport is the planned-vs-actual comparison for one delivered request
type VarianceReport struct {
	TruckVariance TruckVariance `json:"truckVariance"`
	TimeVariance  TimeVariance  `json:"timeVariance"`
	CostVariance  CostVariance  `json:"costVariance"`
}

// ComputeVariance compares a request with its delivery. Missing required fields fail with ErrInvalidInput.
func ComputeVariance(req models.TransportationRequest, d models.Delivery) (VarianceReport, error) {
	var missing []string
	if req.TruckCount == nil {
		missing = append(missing, "request truckCount")
	}
	if req.PlannedPickupDateTime.IsZero() {
		missing = append(missing, "request plannedPickupDateTime")
	}
	if req.EstimatedCost == nil || !finite(*req.EstimatedCost) {
		missing = append(missing, "request estimatedCost")
	}
	if d.ActualTruckCount == nil {
		missing = append(missing, "delivery actualTruckCount")
	}
	if d.ActualPickupDateTime.IsZero() {
		missing = append(missing, "delivery actualPickupDateTime")
	}
	if d.InvoiceAmount == nil || !finite(*d.InvoiceAmount) {
		missing = append(missing, "delivery invoiceAmount")
	}
	if len(missing) > 0 {
		return VarianceReport{}, fmt.Errorf("%w: missing or invalid %s", ErrInvalidInput, strings.Join(missing, ", "))
	}

	plannedTrucks, actualTrucks := *req.TruckCount, *d.ActualTruckCount
	truckDiff := actualTrucks - plannedTrucks

	estimated, invoiced := *req.EstimatedCost, *d.InvoiceAmount
	costDiff := invoiced - estimated

	planned, actual := req.PlannedPickupDateTime.Time, d.ActualPickupDateTime.Time

	return VarianceReport{
		TruckVariance: TruckVariance{
			Planned:    plannedTrucks,
			Actual:     actualTrucks,
			Variance:   truckDiff,
			Percentage: PercentOf(float64(truckDiff), float64(plannedTrucks)),
		},
		TimeVariance: TimeVariance{
			Planned:         planned,
			Actual:          actual,
			VarianceMinutes: int(roundHalfUp(actual.Sub(planned).Minutes())),
		},
		CostVariance: CostVariance{
			Estimated:  estimated,
			Actual:     invoiced,
			Variance:   costDiff,
			Percentage: PercentOf(costDiff, estimated),
		},
	}, nil
}

// ForRequest computes the report for a request with an embedded delivery.
func ForRequest(req models.TransportationRequest) (VarianceReport, error) {
	if req.Delivery == nil {
		return VarianceReport{}, fmt.Errorf("%w: request %s has no delivery", ErrInvalidInput, req.ID)
	}
	return ComputeVariance(req, *req.Delivery)
}

// Preview is the live comparison shown while a delivery form is being filled in
type Preview struct {
	TruckVariance          int     `json:"truckVariance"`
	CostVariance           float64 `json:"costVariance"`
	CostVariancePercentage float64 `json:"costVariancePercentage"`
}

// VariancePreview compares form values with the request. The percentage is 0 when the estimate is not positive.
func VariancePreview(req models.TransportationRequest, actualTrucks int, invoice float64) (Preview, error) {
	if req.TruckCount == nil || req.EstimatedCost == nil {
		return Preview{}, fmt.Errorf("%w: request %s has no truckCount or estimatedCost", ErrInvalidInput, req.ID)
	}
	estimated := *req.EstimatedCost
	p := Preview{
		TruckVariance: actualTrucks - *req.TruckCount,
		CostVariance:  invoice - estimated,
	}
	if estimated > 0 {
		p.CostVariancePercentage = round1(p.CostVariance / estimated * 100)
	}
	return p, nil
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }

func round1(f float64) float64 { return math.Round(f*10) / 10 }

// roundHalfUp rounds .5 toward positive infinity.
func roundHalfUp(f float64) float64 { return math.Floor(f + 0.5) }
