package metrics

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Severity of a variance alert
type Severity string

const (
	SeverityLow     Severity = "low"
	SeverityMedium  Severity = "medium"
	SeverityHigh    Severity = "high"
	SeveritySuccess Severity = "success"
)

// AlertType names the metric an alert is about
type AlertType string

const (
	AlertTruck   AlertType = "truck"
	AlertTime    AlertType = "time"
	AlertCost    AlertType = "cost"
	AlertOverall AlertType = "overall"
)

// Alert is one performance alert for a delivered request
type Alert struct {
	Type     AlertType `json:"type"`
	Title    string    `json:"title"`
	Message  string    `json:"message"`
	Severity Severity  `json:"severity"`
}

// Thresholds
const (
	truckHighVariance = 2
	timeAlertMinutes  = 30
	timeHighMinutes   = 120
	costAlertAmount   = 100.0
	costAlertPercent  = 10.0
	costHighPercent   = 25.0
)

// ClassifySeverity turns a variance report into alerts: per-metric alerts first, then at most one overall alert.
// Favorable variances (fewer trucks, early, under budget) are always success.
func ClassifySeverity(r VarianceReport) []Alert {
	var alerts []Alert

	if a, ok := truckAlert(r.TruckVariance); ok {
		alerts = append(alerts, a)
	}
	if a, ok := timeAlert(r.TimeVariance); ok {
		alerts = append(alerts, a)
	}
	if a, ok := costAlert(r.CostVariance); ok {
		alerts = append(alerts, a)
	}

	allSuccess, anyHigh := len(alerts) > 0, false
	for _, a := range alerts {
		if a.Severity != SeveritySuccess {
			allSuccess = false
		}
		if a.Severity == SeverityHigh {
			anyHigh = true
		}
	}

	switch {
	case len(alerts) == 0:
		alerts = append(alerts, Alert{
			Type:     AlertOverall,
			Title:    "Perfect Execution",
			Message:  "All metrics met expectations. Excellent planning and execution!",
			Severity: SeveritySuccess,
		})
	case allSuccess:
		alerts = append(alerts, Alert{
			Type:     AlertOverall,
			Title:    "Outstanding Performance",
			Message:  "All variances were positive improvements. Exceptional delivery management!",
			Severity: SeveritySuccess,
		})
	case anyHigh:
		alerts = append(alerts, Alert{
			Type:     AlertOverall,
			Title:    "Review Required",
			Message:  "Significant variances detected. Consider reviewing processes and updating future estimates.",
			Severity: SeverityHigh,
		})
	}
	// Mixed medium/success alerts get no overall alert.
	return alerts
}

func truckAlert(v TruckVariance) (Alert, bool) {
	if v.Variance == 0 {
		return Alert{}, false
	}
	if v.Variance < 0 {
		return Alert{
			Type:     AlertTruck,
			Title:    "Fewer Trucks Used",
			Message:  fmt.Sprintf("%d fewer truck(s) than planned. Excellent optimization!", -v.Variance),
			Severity: SeveritySuccess,
		}, true
	}
	severity := SeverityMedium
	if v.Variance >= truckHighVariance {
		severity = SeverityHigh
	}
	return Alert{
		Type:     AlertTruck,
		Title:    "More Trucks Used",
		Message:  fmt.Sprintf("%d more truck(s) than planned. This may indicate insufficient planning or unexpected cargo volume.", v.Variance),
		Severity: severity,
	}, true
}

func timeAlert(v TimeVariance) (Alert, bool) {
	minutes := v.VarianceMinutes
	abs := minutes
	if abs < 0 {
		abs = -abs
	}
	if abs < timeAlertMinutes {
		return Alert{}, false
	}
	if minutes < 0 {
		return Alert{
			Type:     AlertTime,
			Title:    "Early Delivery",
			Message:  fmt.Sprintf("Delivery was %s early. Great time management!", FormatMinutes(abs)),
			Severity: SeveritySuccess,
		}, true
	}
	severity := SeverityMedium
	if abs >= timeHighMinutes {
		severity = SeverityHigh
	}
	return Alert{
		Type:     AlertTime,
		Title:    "Delivery Delay",
		Message:  fmt.Sprintf("Delivery was %s late. Consider investigating traffic, loading delays, or route optimization.", FormatMinutes(abs)),
		Severity: severity,
	}, true
}

func costAlert(v CostVariance) (Alert, bool) {
	pct, hasPct := v.Percentage.Abs().Value()
	if math.Abs(v.Variance) < costAlertAmount && (!hasPct || pct < costAlertPercent) {
		return Alert{}, false
	}
	if v.Variance < 0 {
		return Alert{
			Type:     AlertCost,
			Title:    "Cost Savings",
			Message:  fmt.Sprintf("Saved $%s%s from estimate. Excellent cost management!", FormatAmount(-v.Variance), percentSuffix(v.Percentage.Abs(), false)),
			Severity: SeveritySuccess,
		}, true
	}
	severity := SeverityMedium
	if hasPct && pct >= costHighPercent {
		severity = SeverityHigh
	}
	return Alert{
		Type:     AlertCost,
		Title:    "Cost Overrun",
		Message:  fmt.Sprintf("Cost exceeded estimate by $%s%s. Review pricing accuracy and additional charges.", FormatAmount(v.Variance), percentSuffix(v.Percentage, true)),
		Severity: severity,
	}, true
}

// percentSuffix renders " (15.0%)"; fixed keeps the trailing decimal, otherwise the shortest form is used.
func percentSuffix(p Percent, fixed bool) string {
	v, ok := p.Value()
	if !ok {
		return ""
	}
	if fixed {
		return " (" + p.String() + "%)"
	}
	return " (" + strconv.FormatFloat(v, 'f', -1, 64) + "%)"
}

// FormatMinutes renders a duration in minutes as "1h 45m" or "45m".
func FormatMinutes(minutes int) string {
	if minutes < 0 {
		minutes = -minutes
	}
	h, m := minutes/60, minutes%60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}

// FormatAmount renders a money amount with thousands separators and up to three decimals, e.g. "1,234.5".
func FormatAmount(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := strconv.FormatFloat(math.Round(v*1000)/1000, 'f', -1, 64)
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	b.WriteString(frac)
	return b.String()
}
