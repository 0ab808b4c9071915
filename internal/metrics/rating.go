package metrics

import (
	"sort"

	"transporter-dashboard/internal/models"
)

// Criterion is one rated aspect of a driver's performance
type Criterion struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

var criteriaByType = map[models.DriverType][]Criterion{
	models.DriverTypeTransporter: {
		{Key: models.CriterionPunctuality, Label: "Punctuality", Description: "On-time arrival and delivery"},
		{Key: models.CriterionProfessionalism, Label: "Professionalism", Description: "Professional conduct and appearance"},
		{Key: models.CriterionDeliveryQuality, Label: "Delivery Quality", Description: "Care in handling and delivery"},
		{Key: models.CriterionCommunication, Label: "Communication", Description: "Clear and timely communication"},
	},
	models.DriverTypeInHouse: {
		{Key: models.CriterionPunctuality, Label: "Punctuality", Description: "On-time arrival and adherence to schedule"},
		{Key: models.CriterionProfessionalism, Label: "Professionalism", Description: "Professional conduct and appearance"},
		{Key: models.CriterionSafety, Label: "Safety Performance", Description: "Adherence to safety protocols"},
		{Key: models.CriterionPolicyCompliance, Label: "Policy Adherence", Description: "Following company policies and procedures"},
		{Key: models.CriterionFuelEfficiency, Label: "Fuel Efficiency", Description: "Efficient driving and fuel usage"},
	},
}

// Criteria returns the criteria rated for a driver type. Unknown types have none.
func Criteria(t models.DriverType) []Criterion {
	c := criteriaByType[t]
	out := make([]Criterion, len(c))
	copy(out, c)
	return out
}

// CriteriaKeys returns just the keys of Criteria(t).
func CriteriaKeys(t models.DriverType) []string {
	c := criteriaByType[t]
	keys := make([]string, len(c))
	for i, cr := range c {
		keys[i] = cr.Key
	}
	return keys
}

// ComputeOverallRating is the mean of the scored (> 0) criteria of the driver type, rounded to a whole
// star. Scores for criteria of the other type are ignored. It is 0 when nothing is scored.
func ComputeOverallRating(t models.DriverType, scores models.CriteriaScores) int {
	sum, n := 0, 0
	for _, c := range criteriaByType[t] {
		if v := scores[c.Key]; v > 0 {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return int(roundHalfUp(float64(sum) / float64(n)))
}

// RatingValidation lists what is still missing before a rating can be submitted
type RatingValidation struct {
	Valid         bool     `json:"isValid"`
	MissingFields []string `json:"missingFields"`
	Errors        []string `json:"errors"`
}

// ValidateRating checks that every criterion of the type is scored and overall is at least 1.
func ValidateRating(t models.DriverType, scores models.CriteriaScores, overall int) RatingValidation {
	v := RatingValidation{MissingFields: []string{}, Errors: []string{}}
	for _, c := range criteriaByType[t] {
		if scores[c.Key] < 1 {
			v.MissingFields = append(v.MissingFields, c.Key)
			v.Errors = append(v.Errors, c.Label+" rating is required")
		}
	}
	v.Valid = len(v.MissingFields) == 0 && overall >= 1
	return v
}

// Rating sort orders
const (
	SortByDate   = "date"
	SortByRating = "rating"
)

// SortRatings returns a sorted copy: by date (deliveryDate, else createdAt) newest first, or by overall
// highest first. Other orders keep the input order.
func SortRatings(ratings []models.DriverRating, by string) []models.DriverRating {
	out := make([]models.DriverRating, len(ratings))
	copy(out, ratings)

	switch by {
	case SortByDate:
		when := func(r models.DriverRating) int64 {
			if !r.DeliveryDate.IsZero() {
				return r.DeliveryDate.UnixNano()
			}
			if !r.CreatedAt.IsZero() {
				return r.CreatedAt.UnixNano()
			}
			return 0
		}
		sort.SliceStable(out, func(i, j int) bool { return when(out[i]) > when(out[j]) })
	case SortByRating:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Overall > out[j].Overall })
	}
	return out
}
