package models

import "encoding/json"

// Rating criterion keys
const (
	CriterionPunctuality      = "punctuality"
	CriterionProfessionalism  = "professionalism"
	CriterionDeliveryQuality  = "deliveryQuality"
	CriterionCommunication    = "communication"
	CriterionSafety           = "safety"
	CriterionPolicyCompliance = "policyCompliance"
	CriterionFuelEfficiency   = "fuelEfficiency"
)

// CriteriaScores maps a criterion key to a 1-5 score; 0 or absent means not rated.
type CriteriaScores map[string]int

// Delivery is the factual record of how a request was fulfilled
type Delivery struct {
	ID                   ID             `json:"id"`
	RequestID            ID             `json:"requestId"`
	ActualPickupDateTime Timestamp      `json:"actualPickupDateTime"`
	ActualTruckCount     *int           `json:"actualTruckCount"`
	InvoiceAmount        *float64       `json:"invoiceAmount"`
	DeliveryNotes        string         `json:"deliveryNotes"`
	Drivers              []DriverRating `json:"drivers,omitempty"`
	ConfirmedAt          Timestamp      `json:"confirmedAt"`
}

// DriverRating is one driver's rating for one delivery. Criterion fields are nil when absent.
type DriverRating struct {
	RatingID   ID         `json:"ratingId,omitempty"`
	DeliveryID ID         `json:"deliveryId,omitempty"`
	DriverID   ID         `json:"driverId"`
	DriverType DriverType `json:"driverType,omitempty"`

	Punctuality      *int `json:"punctuality"`
	Professionalism  *int `json:"professionalism"`
	DeliveryQuality  *int `json:"deliveryQuality"`
	Communication    *int `json:"communication"`
	Safety           *int `json:"safety"`
	PolicyCompliance *int `json:"policyCompliance"`
	FuelEfficiency   *int `json:"fuelEfficiency"`

	Overall      int       `json:"overall"`
	Comments     string    `json:"comments"`
	Route        string    `json:"route,omitempty"`
	Trend        float64   `json:"trend,omitempty"`
	DeliveryDate Timestamp `json:"deliveryDate"`
	CreatedAt    Timestamp `json:"createdAt"`
}

// UnmarshalJSON accepts driver_id and overallRating as written by older endpoints.
func (r *DriverRating) UnmarshalJSON(b []byte) error {
	type plain DriverRating
	var wire struct {
		plain
		LegacyDriverID ID   `json:"driver_id"`
		OverallRating  *int `json:"overallRating"`
	}
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}
	*r = DriverRating(wire.plain)
	if r.DriverID == "" {
		r.DriverID = wire.LegacyDriverID
	}
	if r.Overall == 0 && wire.OverallRating != nil {
		r.Overall = *wire.OverallRating
	}
	return nil
}

func (r *DriverRating) field(key string) **int {
	switch key {
	case CriterionPunctuality:
		return &r.Punctuality
	case CriterionProfessionalism:
		return &r.Professionalism
	case CriterionDeliveryQuality:
		return &r.DeliveryQuality
	case CriterionCommunication:
		return &r.Communication
	case CriterionSafety:
		return &r.Safety
	case CriterionPolicyCompliance:
		return &r.PolicyCompliance
	case CriterionFuelEfficiency:
		return &r.FuelEfficiency
	}
	return nil
}

// Score returns the score for key and whether one is present.
func (r DriverRating) Score(key string) (int, bool) {
	f := r.field(key)
	if f == nil || *f == nil {
		return 0, false
	}
	return **f, true
}

// SetScore sets the score for key. Unknown keys are ignored.
func (r *DriverRating) SetScore(key string, value int) {
	if f := r.field(key); f != nil {
		v := value
		*f = &v
	}
}

// Scores returns the present criterion scores.
func (r DriverRating) Scores() CriteriaScores {
	scores := CriteriaScores{}
	for _, key := range []string{
		CriterionPunctuality, CriterionProfessionalism, CriterionDeliveryQuality, CriterionCommunication,
		CriterionSafety, CriterionPolicyCompliance, CriterionFuelEfficiency,
	} {
		if v, ok := r.Score(key); ok {
			scores[key] = v
		}
	}
	return scores
}

// InferredType guesses the driver type from the criteria present when DriverType is unset.
func (r DriverRating) InferredType() DriverType {
	if r.DriverType != "" {
		return r.DriverType
	}
	if r.FuelEfficiency != nil && *r.FuelEfficiency > 0 {
		return DriverTypeInHouse
	}
	return DriverTypeTransporter
}

// RatingScores holds the per-criterion stars sent to the backend. Zero means not rated.
type RatingScores struct {
	Punctuality      int `json:"punctuality,omitempty"`
	Professionalism  int `json:"professionalism,omitempty"`
	DeliveryQuality  int `json:"deliveryQuality,omitempty"`
	Communication    int `json:"communication,omitempty"`
	Safety           int `json:"safety,omitempty"`
	PolicyCompliance int `json:"policyCompliance,omitempty"`
	FuelEfficiency   int `json:"fuelEfficiency,omitempty"`
}

// Map returns the scores keyed by criterion.
func (s RatingScores) Map() CriteriaScores {
	return CriteriaScores{
		CriterionPunctuality:      s.Punctuality,
		CriterionProfessionalism:  s.Professionalism,
		CriterionDeliveryQuality:  s.DeliveryQuality,
		CriterionCommunication:    s.Communication,
		CriterionSafety:           s.Safety,
		CriterionPolicyCompliance: s.PolicyCompliance,
		CriterionFuelEfficiency:   s.FuelEfficiency,
	}
}

// Set updates one criterion. It returns false for unknown keys.
func (s *RatingScores) Set(key string, value int) bool {
	switch key {
	case CriterionPunctuality:
		s.Punctuality = value
	case CriterionProfessionalism:
		s.Professionalism = value
	case CriterionDeliveryQuality:
		s.DeliveryQuality = value
	case CriterionCommunication:
		s.Communication = value
	case CriterionSafety:
		s.Safety = value
	case CriterionPolicyCompliance:
		s.PolicyCompliance = value
	case CriterionFuelEfficiency:
		s.FuelEfficiency = value
	default:
		return false
	}
	return true
}

// DriverRatingInput is one driver entry when logging a delivery
type DriverRatingInput struct {
	DriverID   ID         `json:"driver_id"`
	DriverType DriverType `json:"driverType,omitempty"`
	RatingScores
	Overall  int    `json:"overall"`
	Comments string `json:"comments"`
}

// LogDeliveryInput is the payload for POST /deliveries/:requestId/log
type LogDeliveryInput struct {
	ActualPickupDateTime Timestamp           `json:"actualPickupDateTime"`
	ActualTruckCount     int                 `json:"actualTruckCount"`
	InvoiceAmount        *float64            `json:"invoiceAmount"`
	DeliveryNotes        string              `json:"deliveryNotes"`
	Drivers              []DriverRatingInput `json:"drivers"`
}

// DeliveryFields are the editable delivery facts
type DeliveryFields struct {
	ActualPickupDateTime Timestamp `json:"actualPickupDateTime"`
	ActualTruckCount     int       `json:"actualTruckCount"`
	InvoiceAmount        *float64  `json:"invoiceAmount"`
	DeliveryNotes        string    `json:"deliveryNotes"`
}

// UpdateDeliveryInput is the payload for PUT /deliveries/:id
type UpdateDeliveryInput struct {
	Delivery DeliveryFields       `json:"delivery"`
	Drivers  []UpdateDriverRating `json:"drivers"`
}

// RatingPayload is the nested ratings object of an existing delivery
type RatingPayload struct {
	RatingScores
	OverallRating int    `json:"overallRating"`
	Comments      string `json:"comments"`
}

// UpdateDriverRating re-rates a driver on an existing delivery
type UpdateDriverRating struct {
	DriverID   ID            `json:"driver_id"`
	RatingID   ID            `json:"ratingId,omitempty"`
	DriverType DriverType    `json:"driverType,omitempty"`
	Ratings    RatingPayload `json:"ratings"`
}

// DeliveryForEdit is the existing delivery plus its driver ratings
type DeliveryForEdit struct {
	Delivery Delivery            `json:"delivery"`
	Drivers  []DeliveryDriverRow `json:"drivers"`
}

// DeliveryDriverRow is one rated driver in a delivery-for-edit response
type DeliveryDriverRow struct {
	RatingID ID            `json:"ratingId"`
	Driver   Driver        `json:"driver"`
	Ratings  RatingPayload `json:"ratings"`
}

// BackendPerformanceSummary is the backend's pre-aggregated rating summary. Nil fields were not sent.
type BackendPerformanceSummary struct {
	AveragePunctuality      *float64 `json:"averagePunctuality"`
	AverageProfessionalism  *float64 `json:"averageProfessionalism"`
	AverageDeliveryQuality  *float64 `json:"averageDeliveryQuality"`
	AverageCommunication    *float64 `json:"averageCommunication"`
	AverageSafety           *float64 `json:"averageSafety"`
	AveragePolicyCompliance *float64 `json:"averagePolicyCompliance"`
	AverageFuelEfficiency   *float64 `json:"averageFuelEfficiency"`
	AverageOverall          *float64 `json:"averageOverall"`
	TotalRatings            *int     `json:"totalRatings"`
}

// Average returns the backend average for a criterion key, if sent.
func (s *BackendPerformanceSummary) Average(key string) (float64, bool) {
	if s == nil {
		return 0, false
	}
	var v *float64
	switch key {
	case CriterionPunctuality:
		v = s.AveragePunctuality
	case CriterionProfessionalism:
		v = s.AverageProfessionalism
	case CriterionDeliveryQuality:
		v = s.AverageDeliveryQuality
	case CriterionCommunication:
		v = s.AverageCommunication
	case CriterionSafety:
		v = s.AverageSafety
	case CriterionPolicyCompliance:
		v = s.AveragePolicyCompliance
	case CriterionFuelEfficiency:
		v = s.AverageFuelEfficiency
	}
	if v == nil {
		return 0, false
	}
	return *v, true
}

// DriverRatings is a driver's rating history with the optional backend summary
type DriverRatings struct {
	Ratings []DriverRating             `json:"ratings"`
	Summary *BackendPerformanceSummary `json:"summary,omitempty"`
}
