package metrics

import "transporter-dashboard/internal/models"

// SummarySource records where a performance summary's numbers came from
type SummarySource string

const (
	SourceBackend SummarySource = "backend"
	SourceLocal   SummarySource = "local"
	SourceMixed   SummarySource = "mixed"
)

// CriterionAverage is the average score for one criterion
type CriterionAverage struct {
	Key     string        `json:"key"`
	Label   string        `json:"label"`
	Average float64       `json:"average"`
	Source  SummarySource `json:"source"`
}

// PerformanceSummary aggregates a driver's ratings across deliveries
type PerformanceSummary struct {
	Criteria       []CriterionAverage `json:"criteria"`
	Averages       map[string]float64 `json:"averages"`
	AverageOverall float64            `json:"averageOverall"`
	TotalRatings   int                `json:"totalRatings"`
	Source         SummarySource      `json:"source"`
}

// AggregatePerformanceSummary averages ratings per criterion of the driver type. Every field the backend
// summary supplies is used as is; the rest is computed from the raw ratings, ignoring absent scores.
func AggregatePerformanceSummary(ratings []models.DriverRating, t models.DriverType, backend *models.BackendPerformanceSummary) PerformanceSummary {
	s := PerformanceSummary{
		Criteria: []CriterionAverage{},
		Averages: map[string]float64{},
	}
	fromBackend, fromLocal := 0, 0

	for _, c := range criteriaByType[t] {
		avg := CriterionAverage{Key: c.Key, Label: c.Label}
		if v, ok := backend.Average(c.Key); ok {
			avg.Average, avg.Source = v, SourceBackend
			fromBackend++
		} else {
			avg.Average, avg.Source = localAverage(ratings, c.Key), SourceLocal
			fromLocal++
		}
		s.Criteria = append(s.Criteria, avg)
		s.Averages[c.Key] = avg.Average
	}

	if backend != nil && backend.AverageOverall != nil {
		s.AverageOverall = *backend.AverageOverall
		fromBackend++
	} else {
		s.AverageOverall = averageOverall(ratings)
		fromLocal++
	}

	if backend != nil && backend.TotalRatings != nil {
		s.TotalRatings = *backend.TotalRatings
		fromBackend++
	} else {
		s.TotalRatings = len(ratings)
		fromLocal++
	}

	switch {
	case fromLocal == 0:
		s.Source = SourceBackend
	case fromBackend == 0:
		s.Source = SourceLocal
	default:
		s.Source = SourceMixed
	}
	return s
}

func localAverage(ratings []models.DriverRating, key string) float64 {
	sum, n := 0, 0
	for _, r := range ratings {
		if v, ok := r.Score(key); ok {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float64(sum) / float64(n)
}

func averageOverall(ratings []models.DriverRating) float64 {
	if len(ratings) == 0 {
		return 0
	}
	sum := 0
	for _, r := range ratings {
		sum += r.Overall
	}
	return float64(sum) / float64(len(ratings))
}
