package services

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"

	"golang.org/x/sync/errgroup"

	"transporter-dashboard/internal/apiclient"
	"transporter-dashboard/internal/models"
)

// DashboardService fetches the analytics aggregates for a date range
type DashboardService struct {
	api *apiclient.Client
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(api *apiclient.Client) *DashboardService {
	return &DashboardService{api: api}
}

func rangeParams(r models.DateRange) url.Values {
	return url.Values{
		"startDate": {r.Start()},
		"endDate":   {r.End()},
	}
}

// aggregateRules builds the error rules shared by the core dashboard endpoints
func aggregateRules(notFound, server, fallback string) errorRules {
	return errorRules{
		http.StatusNotFound:     message(notFound),
		serverErrors:            message(server),
		http.StatusBadRequest:   backendOr(fallback),
		http.StatusUnauthorized: backendOr(fallback),
		http.StatusForbidden:    backendOr(fallback),
		http.StatusConflict:     backendOr(fallback),
	}
}

// futureRules covers the endpoints the backend may not have shipped yet
func futureRules(notImplemented, fallback string) errorRules {
	return errorRules{
		http.StatusNotFound:     message(notImplemented),
		serverErrors:            backendOr(fallback),
		http.StatusBadRequest:   backendOr(fallback),
		http.StatusUnauthorized: backendOr(fallback),
		http.StatusForbidden:    backendOr(fallback),
		http.StatusConflict:     backendOr(fallback),
	}
}

// KPIs returns the executive KPI cards with their icon names filled in
func (s *DashboardService) KPIs(ctx context.Context, r models.DateRange) ([]models.KPI, error) {
	env, err := s.api.Get(ctx, "/dashboard/kpi", rangeParams(r))
	if err != nil {
		return nil, aggregateRules(
			"Dashboard KPI endpoint not found. Please ensure backend is running.",
			"Server error while fetching KPI data. Please try again later.",
			"Failed to fetch KPI data",
		).apply(err)
	}
	kpis := []models.KPI{}
	if err := env.Decode(&kpis); err != nil {
		return nil, apiclient.Unknown(0, "Failed to fetch KPI data", err)
	}
	for i := range kpis {
		kpis[i] = kpis[i].WithIcon()
	}
	return kpis, nil
}

// Trends returns the daily trend series
func (s *DashboardService) Trends(ctx context.Context, r models.DateRange) ([]models.TrendPoint, error) {
	params := rangeParams(r)
	params.Set("granularity", "daily")
	env, err := s.api.Get(ctx, "/dashboard/trends", params)
	if err != nil {
		return nil, aggregateRules(
			"Dashboard trends endpoint not found. Please ensure backend is running.",
			"Server error while fetching trends data. Please try again later.",
			"Failed to fetch trends data",
		).apply(err)
	}
	points := []models.TrendPoint{}
	if err := env.Decode(&points); err != nil {
		return nil, apiclient.Unknown(0, "Failed to fetch trends data", err)
	}
	return points, nil
}

// AIInsights returns up to ten generated insights
func (s *DashboardService) AIInsights(ctx context.Context, r models.DateRange) ([]models.AIInsight, error) {
	params := rangeParams(r)
	params.Set("limit", "10")
	env, err := s.api.Get(ctx, "/dashboard/ai-insights", params)
	if err != nil {
		return nil, aggregateRules(
			"AI insights endpoint not found. Please ensure backend is running.",
			"Server error while fetching AI insights. Please try again later.",
			"Failed to fetch AI insights",
		).apply(err)
	}
	insights := []models.AIInsight{}
	if err := env.Decode(&insights); err != nil {
		return nil, apiclient.Unknown(0, "Failed to fetch AI insights", err)
	}
	return insights, nil
}

// TransporterComparison ranks transporters with at least ten deliveries by score
func (s *DashboardService) TransporterComparison(ctx context.Context, r models.DateRange) ([]models.TransporterComparison, error) {
	params := rangeParams(r)
	params.Set("sortBy", "aiScore")
	params.Set("minDeliveries", "10")
	env, err := s.api.Get(ctx, "/dashboard/transporter-comparison", params)
	if err != nil {
		return nil, aggregateRules(
			"Transporter comparison endpoint not found. Please ensure backend is running.",
			"Server error while fetching transporter data. Please try again later.",
			"Failed to fetch transporter comparison data",
		).apply(err)
	}
	rows := []models.TransporterComparison{}
	if err := env.Decode(&rows); err != nil {
		return nil, apiclient.Unknown(0, "Failed to fetch transporter comparison data", err)
	}
	return rows, nil
}

// PerformanceComparison passes arbitrary filters through to the backend
func (s *DashboardService) PerformanceComparison(ctx context.Context, filters url.Values) (map[string]interface{}, error) {
	env, err := s.api.Get(ctx, "/dashboard/performance-comparison", filters)
	if err != nil {
		return nil, futureRules(
			"Performance comparison endpoint not implemented yet.",
			"Failed to fetch performance comparison data",
		).apply(err)
	}
	return decodeObject(env, "Failed to fetch performance comparison data")
}

// Anomalies returns the anomaly detection results for a range
func (s *DashboardService) Anomalies(ctx context.Context, r models.DateRange) (map[string]interface{}, error) {
	env, err := s.api.Get(ctx, "/dashboard/anomalies", rangeParams(r))
	if err != nil {
		return nil, futureRules(
			"Anomaly detection endpoint not implemented yet.",
			"Failed to fetch anomaly detection data",
		).apply(err)
	}
	return decodeObject(env, "Failed to fetch anomaly detection data")
}

// Predictions returns predictive analytics for the given parameters
func (s *DashboardService) Predictions(ctx context.Context, params url.Values) (map[string]interface{}, error) {
	env, err := s.api.Get(ctx, "/dashboard/predictions", params)
	if err != nil {
		return nil, futureRules(
			"Predictive analytics endpoint not implemented yet.",
			"Failed to fetch predictive analytics",
		).apply(err)
	}
	return decodeObject(env, "Failed to fetch predictive analytics")
}

// decodeObject wraps list payloads under "items" so callers always get an object
func decodeObject(env *apiclient.Envelope, failure string) (map[string]interface{}, error) {
	if len(env.Data) > 0 && env.Data[0] == '[' {
		var items []interface{}
		if err := env.Decode(&items); err != nil {
			return nil, apiclient.Unknown(0, failure, err)
		}
		return map[string]interface{}{"items": items}, nil
	}
	out := map[string]interface{}{}
	if err := env.Decode(&out); err != nil {
		return nil, apiclient.Unknown(0, failure, err)
	}
	return out, nil
}

// OverviewSource supplies the four core dashboard aggregates
type OverviewSource interface {
	KPIs(ctx context.Context, r models.DateRange) ([]models.KPI, error)
	Trends(ctx context.Context, r models.DateRange) ([]models.TrendPoint, error)
	AIInsights(ctx context.Context, r models.DateRange) ([]models.AIInsight, error)
	TransporterComparison(ctx context.Context, r models.DateRange) ([]models.TransporterComparison, error)
}

// Overview fetches the four core aggregates straight from the backend
func (s *DashboardService) Overview(ctx context.Context, r models.DateRange) (models.DashboardOverview, error) {
	return LoadOverview(ctx, s, r)
}

// LoadOverview fetches the four core aggregates in parallel. Every section that loaded is returned;
// failed sections are listed in Errors and the first failure is returned as the error.
func LoadOverview(ctx context.Context, src OverviewSource, r models.DateRange) (models.DashboardOverview, error) {
	out := models.DashboardOverview{
		Range:                 r,
		Label:                 r.Label(),
		KPIs:                  []models.KPI{},
		Trends:                []models.TrendPoint{},
		AIInsights:            []models.AIInsight{},
		TransporterComparison: []models.TransporterComparison{},
	}

	var mu sync.Mutex
	failures := map[string]string{}
	var g errgroup.Group
	section := func(name string, fetch func() error) {
		g.Go(func() error {
			if err := fetch(); err != nil {
				mu.Lock()
				failures[name] = err.Error()
				mu.Unlock()
				return fmt.Errorf("%s: %w", name, err)
			}
			return nil
		})
	}

	section("kpis", func() error {
		kpis, err := src.KPIs(ctx, r)
		if err == nil {
			out.KPIs = kpis
		}
		return err
	})
	section("trends", func() error {
		trends, err := src.Trends(ctx, r)
		if err == nil {
			out.Trends = trends
		}
		return err
	})
	section("aiInsights", func() error {
		insights, err := src.AIInsights(ctx, r)
		if err == nil {
			out.AIInsights = insights
		}
		return err
	})
	section("transporterComparison", func() error {
		rows, err := src.TransporterComparison(ctx, r)
		if err == nil {
			out.TransporterComparison = rows
		}
		return err
	})

	err := g.Wait()
	if len(failures) > 0 {
		out.Errors = failures
		log.Printf("⚠️  Dashboard overview for %s loaded with %d failed section(s)", r.Label(), len(failures))
	}
	return out, err
}
