package handlers

import (
	"log"
	"net/http"

	"transporter-dashboard/internal/metrics"
	"transporter-dashboard/internal/models"
	"transporter-dashboard/internal/queries"
	"transporter-dashboard/internal/services"
	"transporter-dashboard/pkg/utils"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
)

func driverFilters(r *http.Request) models.DriverFilters {
	return models.DriverFilters{
		Type:  r.URL.Query().Get("type"),
		Page:  queryInt(r, "page", 1),
		Limit: queryInt(r, "limit", 10),
	}
}

func respondDriverPage(w http.ResponseWriter, page models.DriverPage) {
	utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"data":       page.Data,
		"pagination": page.Pagination,
	})
}

// SearchDrivers searches drivers by name, company or employee id. Terms under two characters return no results.
// GET /api/drivers/search?q=&type=&page=&limit=
func SearchDrivers(q *queries.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := q.SearchDrivers(r.Context(), r.URL.Query().Get("q"), driverFilters(r))
		if err != nil {
			utils.RespondAPIError(w, err)
			return
		}
		respondDriverPage(w, page)
	}
}

// GetDrivers lists drivers
// GET /api/drivers?type=&page=&limit=
func GetDrivers(q *queries.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := q.ListDrivers(r.Context(), driverFilters(r))
		if err != nil {
			utils.RespondAPIError(w, err)
			return
		}
		respondDriverPage(w, page)
	}
}

// GetRecentDrivers returns the most recently used drivers
// GET /api/drivers/recent
func GetRecentDrivers(q *queries.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recent, err := q.RecentDrivers(r.Context())
		if err != nil {
			utils.RespondAPIError(w, err)
			return
		}
		utils.RespondData(w, http.StatusOK, recent)
	}
}

// GetDriverStats returns the fleet-wide driver summary
// GET /api/drivers/stats
func GetDriverStats(q *queries.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := q.DriverStats(r.Context())
		if err != nil {
			utils.RespondAPIError(w, err)
			return
		}
		utils.RespondData(w, http.StatusOK, stats)
	}
}

// GetDriver returns one driver
// GET /api/drivers/{id}
func GetDriver(q *queries.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := q.Driver(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			utils.RespondAPIError(w, err)
			return
		}
		utils.RespondData(w, http.StatusOK, d)
	}
}

// CreateDriver adds a driver
// POST /api/drivers
func CreateDriver(q *queries.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in models.CreateDriverInput
		if !decodeBody(w, r, &in) {
			return
		}
		d, err := q.CreateDriver(r.Context(), in)
		if err != nil {
			log.Printf("❌ Error creating driver %q: %v", in.Name, err)
			utils.RespondAPIError(w, err)
			return
		}
		utils.RespondData(w, http.StatusCreated, d)
	}
}

// UpdateDriver replaces a driver's details
// PUT /api/drivers/{id}
func UpdateDriver(q *queries.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in models.CreateDriverInput
		if !decodeBody(w, r, &in) {
			return
		}
		d, err := q.UpdateDriver(r.Context(), chi.URLParam(r, "id"), in)
		if err != nil {
			utils.RespondAPIError(w, err)
			return
		}
		utils.RespondData(w, http.StatusOK, d)
	}
}

// DeleteDriver deletes a driver
// DELETE /api/drivers/{id}
func DeleteDriver(q *queries.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := q.DeleteDriver(r.Context(), id); err != nil {
			utils.RespondAPIError(w, err)
			return
		}
		utils.RespondData(w, http.StatusOK, map[string]string{"id": id})
	}
}

// DriverRatingsResponse is a driver's sorted rating history and its performance summary
type DriverRatingsResponse struct {
	Driver   models.Driver              `json:"driver"`
	Ratings  []models.DriverRating      `json:"ratings"`
	Summary  metrics.PerformanceSummary `json:"summary"`
	Criteria []metrics.Criterion        `json:"criteria"`
}

// GetDriverRatings returns the rating history sorted by date (default) or rating, plus the aggregated summary
// GET /api/drivers/{id}/ratings?sort=date|rating
func GetDriverRatings(q *queries.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		sortBy := r.URL.Query().Get("sort")
		if sortBy == "" {
			sortBy = metrics.SortByDate
		}

		var (
			driver  models.Driver
			ratings models.DriverRatings
		)
		g, ctx := errgroup.WithContext(r.Context())
		g.Go(func() error {
			var err error
			driver, err = q.Driver(ctx, id)
			return err
		})
		g.Go(func() error {
			var err error
			ratings, err = q.DriverRatings(ctx, id)
			return err
		})
		if err := g.Wait(); err != nil {
			utils.RespondAPIError(w, err)
			return
		}

		driverType := driver.Type
		if !driverType.Valid() && len(ratings.Ratings) > 0 {
			driverType = ratings.Ratings[0].InferredType()
		}

		utils.RespondData(w, http.StatusOK, DriverRatingsResponse{
			Driver:   driver,
			Ratings:  metrics.SortRatings(ratings.Ratings, sortBy),
			Summary:  metrics.AggregatePerformanceSummary(ratings.Ratings, driverType, ratings.Summary),
			Criteria: metrics.Criteria(driverType),
		})
	}
}

// RateDriverInput is a standalone rating for one of the driver's deliveries
type RateDriverInput struct {
	DeliveryID string `json:"deliveryId"`
	services.RatingInput
}

// RateDriver records a rating for a driver's delivery
// POST /api/drivers/{id}/ratings
func RateDriver(q *queries.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in RateDriverInput
		if !decodeBody(w, r, &in) {
			return
		}
		if in.DeliveryID == "" {
			utils.RespondError(w, http.StatusBadRequest, "deliveryId is required")
			return
		}
		rating, err := q.RateDriver(r.Context(), chi.URLParam(r, "id"), in.DeliveryID, in.RatingInput)
		if err != nil {
			utils.RespondAPIError(w, err)
			return
		}
		utils.RespondData(w, http.StatusCreated, rating)
	}
}

// GenerateInsights asks the backend to summarize the driver's ratings. When the body carries no
// ratings the driver's cached history is used.
// POST /api/drivers/{id}/insights
func GenerateInsights(q *queries.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var in struct {
			Ratings []models.DriverRating `json:"ratings"`
		}
		if r.ContentLength != 0 && !decodeBody(w, r, &in) {
			return
		}
		if len(in.Ratings) == 0 {
			history, err := q.DriverRatings(r.Context(), id)
			if err != nil {
				utils.RespondAPIError(w, err)
				return
			}
			in.Ratings = history.Ratings
		}

		insights, err := q.GenerateInsights(r.Context(), id, in.Ratings)
		if err != nil {
			utils.RespondAPIError(w, err)
			return
		}
		utils.RespondData(w, http.StatusOK, insights)
	}
}

// UpdateInsights replaces the driver's insight text
// PUT /api/drivers/{id}/insights
func UpdateInsights(q *queries.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in struct {
			Insights string `json:"insights"`
		}
		if !decodeBody(w, r, &in) {
			return
		}
		d, err := q.UpdateInsights(r.Context(), chi.URLParam(r, "id"), in.Insights)
		if err != nil {
			utils.RespondAPIError(w, err)
			return
		}
		utils.RespondData(w, http.StatusOK, d)
	}
}

// GetDriverPerformance returns the driver's metrics over timeRange (default 30d)
// GET /api/drivers/{id}/performance?timeRange=
func GetDriverPerformance(q *queries.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		perf, err := q.DriverPerformance(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("timeRange"))
		if err != nil {
			utils.RespondAPIError(w, err)
			return
		}
		utils.RespondData(w, http.StatusOK, perf)
	}
}

// GetDriverDeliveries lists a driver's deliveries
// GET /api/drivers/{id}/deliveries?page=&limit=
func GetDriverDeliveries(q *queries.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deliveries, err := q.DriverDeliveries(r.Context(), chi.URLParam(r, "id"), queryInt(r, "page", 1), queryInt(r, "limit", 10))
		if err != nil {
			utils.RespondAPIError(w, err)
			return
		}
		utils.RespondData(w, http.StatusOK, deliveries)
	}
}
