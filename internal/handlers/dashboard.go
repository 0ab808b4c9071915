package handlers

import (
	"context"
	"log"
	"net/http"

	"transporter-dashboard/internal/models"
	"transporter-dashboard/internal/queries"
	"transporter-dashboard/pkg/utils"
)

// rangeHandler serves one dashboard aggregate parameterized by the request's date range
func rangeHandler[T any](fetch func(ctx context.Context, r models.DateRange) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dr, err := dateRange(r)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		data, err := fetch(r.Context(), dr)
		if err != nil {
			utils.RespondAPIError(w, err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data":    data,
			"range":   dr,
			"label":   dr.Label(),
		})
	}
}

// GetKPIs returns the KPI cards
// GET /api/dashboard/kpi?startDate=&endDate=
func GetKPIs(q *queries.Client) http.HandlerFunc { return rangeHandler(q.KPIs) }

// GetTrends returns the daily trend series
// GET /api/dashboard/trends?startDate=&endDate=
func GetTrends(q *queries.Client) http.HandlerFunc { return rangeHandler(q.Trends) }

// GetAIInsights returns the generated fleet insights
// GET /api/dashboard/ai-insights?startDate=&endDate=
func GetAIInsights(q *queries.Client) http.HandlerFunc { return rangeHandler(q.AIInsights) }

// GetTransporterComparison returns the transporter ranking
// GET /api/dashboard/transporter-comparison?startDate=&endDate=
func GetTransporterComparison(q *queries.Client) http.HandlerFunc {
	return rangeHandler(q.TransporterComparison)
}

// GetAnomalies returns detected anomalies
// GET /api/dashboard/anomalies?startDate=&endDate=
func GetAnomalies(q *queries.Client) http.HandlerFunc { return rangeHandler(q.Anomalies) }

// GetPerformanceComparison passes the query filters through to the backend comparison
// GET /api/dashboard/performance-comparison
func GetPerformanceComparison(q *queries.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := q.PerformanceComparison(r.Context(), r.URL.Query())
		if err != nil {
			utils.RespondAPIError(w, err)
			return
		}
		utils.RespondData(w, http.StatusOK, data)
	}
}

// GetPredictions passes the query parameters through to the backend predictions
// GET /api/dashboard/predictions
func GetPredictions(q *queries.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := q.Predictions(r.Context(), r.URL.Query())
		if err != nil {
			utils.RespondAPIError(w, err)
			return
		}
		utils.RespondData(w, http.StatusOK, data)
	}
}

// GetOverview returns the four core aggregates. Sections that failed are reported in errors and the
// rest is still returned; only a complete failure is an error response.
// GET /api/dashboard/overview?startDate=&endDate=
func GetOverview(q *queries.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dr, err := dateRange(r)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		overview, err := q.Overview(r.Context(), dr)
		respondOverview(w, overview, err)
	}
}

// RefreshDashboard drops every cached aggregate and reloads the overview
// POST /api/dashboard/refresh?startDate=&endDate=
func RefreshDashboard(q *queries.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dr, err := dateRange(r)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		overview, err := q.RefreshDashboard(r.Context(), dr)
		respondOverview(w, overview, err)
	}
}

func respondOverview(w http.ResponseWriter, overview models.DashboardOverview, err error) {
	if err != nil && len(overview.Errors) >= overviewSections {
		utils.RespondAPIError(w, err)
		return
	}
	if err != nil {
		log.Printf("⚠️  Dashboard overview partial: %d section(s) failed", len(overview.Errors))
	}
	utils.RespondData(w, http.StatusOK, overview)
}

// overviewSections is the number of aggregates in an overview
const overviewSections = 4
