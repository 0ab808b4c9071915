package handlers

import (
	"errors"
	"log"
	"net/http"

	"transporter-dashboard/internal/metrics"
	"transporter-dashboard/internal/models"
	"transporter-dashboard/internal/queries"
	"transporter-dashboard/pkg/utils"

	"github.com/go-chi/chi/v5"
)

// RequestMetrics is the derived view of a single request: its variance report when delivered,
// the alerts for that report and the actions the UI may offer.
type RequestMetrics struct {
	Request     models.TransportationRequest `json:"request"`
	Report      *metrics.VarianceReport      `json:"report,omitempty"`
	Alerts      []metrics.Alert              `json:"alerts"`
	Permissions models.Permissions           `json:"permissions"`
}

// GetRequests returns one filtered page of requests
// GET /api/requests?search=&status=&priority=&page=&limit=
func GetRequests(q *queries.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		filters := models.RequestFilters{
			Search:   query.Get("search"),
			Status:   query.Get("status"),
			Priority: query.Get("priority"),
			Page:     queryInt(r, "page", 1),
			Limit:    queryInt(r, "limit", 10),
		}

		page, err := q.Requests(r.Context(), filters)
		if err != nil {
			log.Printf("❌ Error fetching requests: %v", err)
			utils.RespondAPIError(w, err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success":    true,
			"data":       page.Data,
			"pagination": page.Pagination,
		})
	}
}

// GetRequest returns a request with its embedded delivery
// GET /api/requests/{id}
func GetRequest(q *queries.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := q.Request(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			utils.RespondAPIError(w, err)
			return
		}
		utils.RespondData(w, http.StatusOK, req)
	}
}

// GetRequestMetrics returns the variance report, alerts and permissions of a request
// GET /api/requests/{id}/metrics
func GetRequestMetrics(q *queries.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, err := q.Request(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			utils.RespondAPIError(w, err)
			return
		}

		out := RequestMetrics{
			Request:     req,
			Alerts:      []metrics.Alert{},
			Permissions: models.PermissionsFor(req.Status),
		}
		if req.Delivery != nil {
			report, err := metrics.ForRequest(req)
			if err != nil {
				log.Printf("⚠️  Request %s has an incomplete delivery: %v", req.ID, err)
				utils.RespondError(w, http.StatusUnprocessableEntity, err.Error())
				return
			}
			out.Report = &report
			out.Alerts = metrics.ClassifySeverity(report)
		}
		utils.RespondData(w, http.StatusOK, out)
	}
}

// CreateRequest creates a transportation request
// POST /api/requests
func CreateRequest(q *queries.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in models.CreateRequestInput
		if !decodeBody(w, r, &in) {
			return
		}
		req, err := q.CreateRequest(r.Context(), in)
		if err != nil {
			utils.RespondAPIError(w, err)
			return
		}
		log.Printf("✅ Request %s created: %s → %s", req.ID, req.Origin, req.Destination)
		utils.RespondData(w, http.StatusCreated, req)
	}
}

// UpdateRequest replaces a request's planned values
// PUT /api/requests/{id}
func UpdateRequest(q *queries.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in models.CreateRequestInput
		if !decodeBody(w, r, &in) {
			return
		}
		req, err := q.UpdateRequest(r.Context(), chi.URLParam(r, "id"), in)
		if err != nil {
			utils.RespondAPIError(w, err)
			return
		}
		utils.RespondData(w, http.StatusOK, req)
	}
}

// DeleteRequest deletes a request
// DELETE /api/requests/{id}
func DeleteRequest(q *queries.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := q.DeleteRequest(r.Context(), id); err != nil {
			utils.RespondAPIError(w, err)
			return
		}
		utils.RespondData(w, http.StatusOK, map[string]string{"id": id})
	}
}

// VarianceInput is a request and a delivery to compare
type VarianceInput struct {
	Request  models.TransportationRequest `json:"request"`
	Delivery *models.Delivery             `json:"delivery"`
}

// ComputeVariance computes the variance report and alerts for an arbitrary request/delivery pair
// POST /api/metrics/variance
func ComputeVariance() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in VarianceInput
		if !decodeBody(w, r, &in) {
			return
		}
		if in.Delivery == nil {
			in.Delivery = in.Request.Delivery
		}
		if in.Delivery == nil {
			utils.RespondError(w, http.StatusBadRequest, "delivery is required")
			return
		}

		report, err := metrics.ComputeVariance(in.Request, *in.Delivery)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, metrics.ErrInvalidInput) {
				status = http.StatusBadRequest
			}
			utils.RespondError(w, status, err.Error())
			return
		}
		utils.RespondData(w, http.StatusOK, map[string]interface{}{
			"report": report,
			"alerts": metrics.ClassifySeverity(report),
		})
	}
}

// VariancePreviewInput is the delivery form state being compared with its request
type VariancePreviewInput struct {
	Request          models.TransportationRequest `json:"request"`
	ActualTruckCount int                          `json:"actualTruckCount"`
	InvoiceAmount    float64                      `json:"invoiceAmount"`
}

// PreviewVariance returns the live variance shown while a delivery form is filled in
// POST /api/metrics/variance-preview
func PreviewVariance() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in VariancePreviewInput
		if !decodeBody(w, r, &in) {
			return
		}
		preview, err := metrics.VariancePreview(in.Request, in.ActualTruckCount, in.InvoiceAmount)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		utils.RespondData(w, http.StatusOK, preview)
	}
}

// OverallRatingInput is a set of criterion scores for one driver type
type OverallRatingInput struct {
	DriverType models.DriverType     `json:"driverType"`
	Scores     models.CriteriaScores `json:"scores"`
}

// ComputeOverallRating returns the rounded average of the rated criteria and what is still missing
// POST /api/metrics/overall-rating
func ComputeOverallRating() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in OverallRatingInput
		if !decodeBody(w, r, &in) {
			return
		}
		if !in.DriverType.Valid() {
			utils.RespondError(w, http.StatusBadRequest, "driverType must be transporter or in_house")
			return
		}
		overall := metrics.ComputeOverallRating(in.DriverType, in.Scores)
		utils.RespondData(w, http.StatusOK, map[string]interface{}{
			"overall":    overall,
			"criteria":   metrics.Criteria(in.DriverType),
			"validation": metrics.ValidateRating(in.DriverType, in.Scores, overall),
		})
	}
}
