package services

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"

	"transporter-dashboard/internal/apiclient"
	"transporter-dashboard/internal/metrics"
	"transporter-dashboard/internal/models"
)

// DefaultPerformanceRange is the time range used when none is given
const DefaultPerformanceRange = "30d"

// DeliveriesService logs and confirms deliveries against requests
type DeliveriesService struct {
	api *apiclient.Client
}

// NewDeliveriesService creates a new deliveries service
func NewDeliveriesService(api *apiclient.Client) *DeliveriesService {
	return &DeliveriesService{api: api}
}

// Log validates and records the delivery for a request. Each driver's overall rating is
// recomputed from its criteria before sending.
func (s *DeliveriesService) Log(ctx context.Context, requestID string, in models.LogDeliveryInput) (models.Delivery, error) {
	return s.log(ctx, requestID, in, models.Timestamp{})
}

// LogForRequest is Log with the request known, so the actual pickup is checked against the plan.
func (s *DeliveriesService) LogForRequest(ctx context.Context, req models.TransportationRequest, in models.LogDeliveryInput) (models.Delivery, error) {
	return s.log(ctx, req.ID.String(), in, req.PlannedPickupDateTime)
}

func (s *DeliveriesService) log(ctx context.Context, requestID string, in models.LogDeliveryInput, planned models.Timestamp) (models.Delivery, error) {
	in.Drivers = withComputedOverall(in.Drivers)
	if err := ValidateLogDelivery(in, planned); err != nil {
		return models.Delivery{}, err
	}

	var d models.Delivery
	env, err := s.api.Post(ctx, "/deliveries/"+url.PathEscape(requestID)+"/log", in)
	if err != nil {
		return d, errorRules{
			http.StatusNotFound:   message(fmt.Sprintf("Request %s not found", requestID)),
			http.StatusBadRequest: backendOr("Invalid delivery data provided"),
			serverErrors:          message("Server error occurred while logging delivery"),
		}.apply(err)
	}
	if err := env.Decode(&d); err != nil {
		return d, apiclient.Unknown(0, "unexpected delivery payload", err)
	}
	log.Printf("✅ Logged delivery for request %s with %d driver(s)", requestID, len(in.Drivers))
	return d, nil
}

// ValidateLogDelivery runs the pre-flight checks for a delivery log. A zero planned pickup skips the
// pickup ordering check.
func ValidateLogDelivery(in models.LogDeliveryInput, planned models.Timestamp) error {
	if err := validateDeliveryFields(in.ActualPickupDateTime, in.ActualTruckCount, in.InvoiceAmount, len(in.Drivers)); err != nil {
		return err
	}
	for _, d := range in.Drivers {
		if d.Overall < 1 {
			return apiclient.Validationf("Overall rating is required for driver ID %s. Please rate all drivers before logging delivery.", d.DriverID)
		}
	}
	return checkPickupOrder(in.ActualPickupDateTime, planned)
}

func validateDeliveryFields(pickup models.Timestamp, trucks int, invoice *float64, drivers int) error {
	if pickup.IsZero() {
		return apiclient.Validation("Actual pickup date and time is required")
	}
	if trucks < 1 {
		return apiclient.Validation("Actual truck count must be at least 1")
	}
	if invoice == nil || *invoice < 0 {
		return apiclient.Validation("Invoice amount must be a positive number")
	}
	if drivers == 0 {
		return apiclient.Validation("At least one driver is required")
	}
	return nil
}

// checkPickupOrder skips the check when the planned pickup is unknown
func checkPickupOrder(actual, planned models.Timestamp) error {
	if !planned.IsZero() && actual.Before(planned.Time) {
		return apiclient.Validation("Actual pickup time cannot be before the planned pickup time")
	}
	return nil
}

// withComputedOverall returns a copy of drivers with Overall derived from the rated criteria. A driver
// with no rated criterion gets 0, whatever overall was supplied.
func withComputedOverall(drivers []models.DriverRatingInput) []models.DriverRatingInput {
	out := make([]models.DriverRatingInput, len(drivers))
	for i, d := range drivers {
		d.Overall = computedOverall(d.DriverType, d.RatingScores)
		out[i] = d
	}
	return out
}

func computedOverall(t models.DriverType, scores models.RatingScores) int {
	if !t.Valid() {
		t = inferType(scores)
	}
	return metrics.ComputeOverallRating(t, scores.Map())
}

// inferType treats any in-house-only criterion as an in-house driver
func inferType(s models.RatingScores) models.DriverType {
	if s.Safety > 0 || s.PolicyCompliance > 0 || s.FuelEfficiency > 0 {
		return models.DriverTypeInHouse
	}
	return models.DriverTypeTransporter
}

// Confirm marks the delivery of a request as complete
func (s *DeliveriesService) Confirm(ctx context.Context, requestID string) error {
	_, err := s.api.Post(ctx, "/deliveries/"+url.PathEscape(requestID)+"/confirm", nil)
	if err != nil {
		return errorRules{
			http.StatusNotFound:   message(fmt.Sprintf("Request %s not found", requestID)),
			http.StatusConflict:   message("Delivery has already been confirmed"),
			http.StatusBadRequest: message("Delivery cannot be confirmed in current state"),
			serverErrors:          message("Server error occurred while confirming delivery"),
		}.apply(err)
	}
	log.Printf("✅ Confirmed delivery for request %s", requestID)
	return nil
}

// Update replaces the delivery facts and re-rates its drivers
func (s *DeliveriesService) Update(ctx context.Context, deliveryID string, in models.UpdateDeliveryInput) (models.Delivery, error) {
	return s.update(ctx, deliveryID, in, models.Timestamp{})
}

// UpdateForRequest is Update with the request known, so the actual pickup is checked against the plan.
func (s *DeliveriesService) UpdateForRequest(ctx context.Context, req models.TransportationRequest, deliveryID string, in models.UpdateDeliveryInput) (models.Delivery, error) {
	return s.update(ctx, deliveryID, in, req.PlannedPickupDateTime)
}

func (s *DeliveriesService) update(ctx context.Context, deliveryID string, in models.UpdateDeliveryInput, planned models.Timestamp) (models.Delivery, error) {
	drivers := make([]models.UpdateDriverRating, len(in.Drivers))
	for i, d := range in.Drivers {
		d.Ratings.OverallRating = computedOverall(d.DriverType, d.Ratings.RatingScores)
		drivers[i] = d
	}
	in.Drivers = drivers
	if err := ValidateUpdateDelivery(in, planned); err != nil {
		return models.Delivery{}, err
	}

	var d models.Delivery
	env, err := s.api.Put(ctx, "/deliveries/"+url.PathEscape(deliveryID), in)
	if err != nil {
		return d, errorRules{
			http.StatusNotFound:   message(fmt.Sprintf("Delivery %s not found", deliveryID)),
			http.StatusBadRequest: backendOr("Invalid delivery data provided"),
		}.apply(err)
	}
	if err := env.Decode(&d); err != nil {
		return d, apiclient.Unknown(0, "unexpected delivery payload", err)
	}
	return d, nil
}

// ValidateUpdateDelivery runs the same pre-flight checks as ValidateLogDelivery for an edited delivery
func ValidateUpdateDelivery(in models.UpdateDeliveryInput, planned models.Timestamp) error {
	if err := validateDeliveryFields(in.Delivery.ActualPickupDateTime, in.Delivery.ActualTruckCount, in.Delivery.InvoiceAmount, len(in.Drivers)); err != nil {
		return err
	}
	for _, d := range in.Drivers {
		if d.Ratings.OverallRating < 1 {
			return apiclient.Validationf("Overall rating is required for driver ID %s. Please rate all drivers before updating delivery.", d.DriverID)
		}
	}
	return checkPickupOrder(in.Delivery.ActualPickupDateTime, planned)
}

// ForEdit returns the logged delivery of a completed request with its driver ratings
func (s *DeliveriesService) ForEdit(ctx context.Context, requestID string) (models.DeliveryForEdit, error) {
	var out models.DeliveryForEdit
	env, err := s.api.Get(ctx, "/requests/"+url.PathEscape(requestID)+"/delivery", nil)
	if err != nil {
		return out, errorRules{
			http.StatusNotFound: message(fmt.Sprintf("No delivery logged for request %s", requestID)),
		}.apply(err)
	}
	if err := env.Decode(&out); err != nil {
		return out, apiclient.Unknown(0, "unexpected delivery payload", err)
	}
	return out, nil
}

// DriverHistory lists the deliveries a driver took part in
func (s *DeliveriesService) DriverHistory(ctx context.Context, driverID string) ([]models.Delivery, error) {
	out := []models.Delivery{}
	env, err := s.api.Get(ctx, "/drivers/"+url.PathEscape(driverID)+"/deliveries", nil)
	if err != nil {
		return nil, errorRules{http.StatusNotFound: message(fmt.Sprintf("Driver %s not found", driverID))}.apply(err)
	}
	if err := env.Decode(&out); err != nil {
		return nil, apiclient.Unknown(0, "unexpected deliveries payload", err)
	}
	return out, nil
}

// DriverPerformance returns a driver's metrics over timeRange (default 30d)
func (s *DeliveriesService) DriverPerformance(ctx context.Context, driverID, timeRange string) (models.PerformanceMetrics, error) {
	if timeRange == "" {
		timeRange = DefaultPerformanceRange
	}
	out := models.PerformanceMetrics{}
	env, err := s.api.Get(ctx, "/drivers/"+url.PathEscape(driverID)+"/performance", url.Values{"timeRange": {timeRange}})
	if err != nil {
		return nil, errorRules{http.StatusNotFound: message(fmt.Sprintf("Driver %s not found", driverID))}.apply(err)
	}
	if err := env.Decode(&out); err != nil {
		return nil, apiclient.Unknown(0, "unexpected performance payload", err)
	}
	return out, nil
}
