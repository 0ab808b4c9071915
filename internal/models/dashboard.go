package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// KPI is one executive dashboard card
type KPI struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Value          float64        `json:"value"`
	FormattedValue string         `json:"formattedValue,omitempty"`
	Unit           string         `json:"unit,omitempty"`
	Trend          float64        `json:"trend"`
	Comparison     *KPIComparison `json:"comparison,omitempty"`
	AIInsight      string         `json:"aiInsight,omitempty"`
	Icon           string         `json:"icon,omitempty"`
}

// KPIComparison is the change against the previous period
type KPIComparison struct {
	Change float64 `json:"change"`
	Unit   string  `json:"unit,omitempty"`
	Period string  `json:"period,omitempty"`
}

// kpiIcons maps KPI ids to the icon names the UI renders
var kpiIcons = map[string]string{
	"on-time-delivery":   "clock",
	"cost-variance":      "trending-up",
	"fleet-utilization":  "truck",
	"driver-performance": "users",
}

// WithIcon fills the icon name from the KPI id, defaulting to trending-up
func (k KPI) WithIcon() KPI {
	if k.Icon == "" {
		if icon, ok := kpiIcons[k.ID]; ok {
			k.Icon = icon
		} else {
			k.Icon = "trending-up"
		}
	}
	return k
}

// TrendPoint is one day of the trends chart. Series values are keyed by name.
type TrendPoint struct {
	Date   string             `json:"date"`
	Series map[string]float64 `json:"-"`
}

func (p *TrendPoint) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	p.Series = map[string]float64{}
	for k, v := range raw {
		if k == "date" {
			if err := json.Unmarshal(v, &p.Date); err != nil {
				return fmt.Errorf("invalid trend date: %w", err)
			}
			continue
		}
		var f float64
		if err := json.Unmarshal(v, &f); err == nil {
			p.Series[k] = f
		}
	}
	return nil
}

func (p TrendPoint) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(p.Series)+1)
	for k, v := range p.Series {
		out[k] = v
	}
	out["date"] = p.Date
	return json.Marshal(out)
}

// AIInsight is a generated observation shown on the dashboard
type AIInsight struct {
	ID             ID      `json:"id"`
	Title          string  `json:"title"`
	Description    string  `json:"description"`
	Recommendation string  `json:"recommendation,omitempty"`
	Severity       string  `json:"severity"`
	Confidence     float64 `json:"confidence,omitempty"`
	Category       string  `json:"category,omitempty"`
}

// TransporterComparison is one row of the transporter ranking
type TransporterComparison struct {
	ID              ID      `json:"id"`
	Company         string  `json:"company"`
	TotalDeliveries int     `json:"totalDeliveries"`
	Score           float64 `json:"score"`
	ScoreTrend      float64 `json:"scoreTrend"`
	OnTimeRate      float64 `json:"onTimeRate"`
	OnTimeTrend     float64 `json:"onTimeTrend"`
	CostVariance    float64 `json:"costVariance"`
	CostTrend       float64 `json:"costTrend"`
	DriverRating    float64 `json:"driverRating"`
	QualityScore    float64 `json:"qualityScore"`
}

// DashboardOverview is the four core aggregates fetched together
type DashboardOverview struct {
	Range                 DateRange               `json:"range"`
	Label                 string                  `json:"label"`
	KPIs                  []KPI                   `json:"kpis"`
	Trends                []TrendPoint            `json:"trends"`
	AIInsights            []AIInsight             `json:"aiInsights"`
	TransporterComparison []TransporterComparison `json:"transporterComparison"`
	Errors                map[string]string       `json:"errors,omitempty"`
}

// DateRange is an inclusive analytics window
type DateRange struct {
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
}

const isoDate = "2006-01-02"

// LastDays returns the window ending at now and starting days earlier.
func LastDays(now time.Time, days int) DateRange {
	return DateRange{StartDate: now.AddDate(0, 0, -days), EndDate: now}
}

// ParseDateRange parses YYYY-MM-DD bounds.
func ParseDateRange(start, end string) (DateRange, error) {
	s, err := time.Parse(isoDate, start)
	if err != nil {
		return DateRange{}, fmt.Errorf("invalid startDate %q: %w", start, err)
	}
	e, err := time.Parse(isoDate, end)
	if err != nil {
		return DateRange{}, fmt.Errorf("invalid endDate %q: %w", end, err)
	}
	if e.Before(s) {
		return DateRange{}, fmt.Errorf("endDate %s is before startDate %s", end, start)
	}
	return DateRange{StartDate: s, EndDate: e}, nil
}

// Start and End are the bounds as sent to the backend (YYYY-MM-DD, UTC).
func (r DateRange) Start() string { return r.StartDate.UTC().Format(isoDate) }
func (r DateRange) End() string   { return r.EndDate.UTC().Format(isoDate) }

// Key identifies the range in cache keys
func (r DateRange) Key() string { return r.Start() + ".." + r.End() }

// Days is the span rounded to whole days
func (r DateRange) Days() int {
	return int((r.EndDate.Sub(r.StartDate).Hours() / 24) + 0.5)
}

// Label is the human readable period, e.g. "Last 7 days"
func (r DateRange) Label() string {
	if r.StartDate.IsZero() || r.EndDate.IsZero() {
		return "Unknown period"
	}
	switch r.Days() {
	case 6, 7:
		return "Last 7 days"
	case 13, 14:
		return "Last 14 days"
	case 29, 30:
		return "Last 30 days"
	}
	return r.StartDate.Format("1/2/2006") + " - " + r.EndDate.Format("1/2/2006")
}
