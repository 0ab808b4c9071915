// Package queries is the read side of the dashboard: cached fetches over the domain services,
// keyed so mutations can invalidate exactly the views they affect.
package queries

import (
	"context"
	"net/url"
	"strings"

	"transporter-dashboard/internal/cache"
	"transporter-dashboard/internal/models"
	"transporter-dashboard/internal/notifications"
	"transporter-dashboard/internal/services"
)

// Client runs cached queries and invalidating mutations
type Client struct {
	cache         *cache.Cache
	requests      *services.RequestsService
	deliveries    *services.DeliveriesService
	drivers       *services.DriversService
	dashboard     *services.DashboardService
	notifications *notifications.Center
}

// Services bundles the domain services a Client reads through
type Services struct {
	Requests   *services.RequestsService
	Deliveries *services.DeliveriesService
	Drivers    *services.DriversService
	Dashboard  *services.DashboardService
}

// New creates a query client
func New(c *cache.Cache, svc Services, center *notifications.Center) *Client {
	return &Client{
		cache:         c,
		requests:      svc.Requests,
		deliveries:    svc.Deliveries,
		drivers:       svc.Drivers,
		dashboard:     svc.Dashboard,
		notifications: center,
	}
}

// Cache exposes the underlying cache for stats and scheduled sweeps
func (q *Client) Cache() *cache.Cache { return q.cache }

// Requests returns one filtered page of requests
func (q *Client) Requests(ctx context.Context, f models.RequestFilters) (models.RequestPage, error) {
	return cache.Fetch(ctx, q.cache, RequestList(f), RequestsOptions, func(ctx context.Context) (models.RequestPage, error) {
		return q.requests.List(ctx, f)
	})
}

// Request returns a single request
func (q *Client) Request(ctx context.Context, id string) (models.TransportationRequest, error) {
	return cache.Fetch(ctx, q.cache, RequestDetail(id), RequestsOptions, func(ctx context.Context) (models.TransportationRequest, error) {
		return q.requests.Get(ctx, id)
	})
}

// DeliveryForEdit returns the logged delivery of a request. It is not cached.
func (q *Client) DeliveryForEdit(ctx context.Context, requestID string) (models.DeliveryForEdit, error) {
	return q.deliveries.ForEdit(ctx, requestID)
}

// SearchDrivers runs a driver search. Terms shorter than two characters return an empty page
// without calling the backend.
func (q *Client) SearchDrivers(ctx context.Context, term string, f models.DriverFilters) (models.DriverPage, error) {
	term = strings.TrimSpace(term)
	if len(term) < 2 {
		return models.DriverPage{Data: []models.Driver{}, Pagination: models.Pagination{CurrentPage: 1, TotalPages: 1}}, nil
	}
	return cache.Fetch(ctx, q.cache, DriverSearch(term, f), DriversOptions, func(ctx context.Context) (models.DriverPage, error) {
		return q.drivers.Search(ctx, term, f)
	})
}

// ListDrivers returns one unfiltered page of drivers
func (q *Client) ListDrivers(ctx context.Context, f models.DriverFilters) (models.DriverPage, error) {
	return cache.Fetch(ctx, q.cache, DriverList(f), DriversOptions, func(ctx context.Context) (models.DriverPage, error) {
		return q.drivers.Search(ctx, "", f)
	})
}

// RecentDrivers returns the most recently used drivers
func (q *Client) RecentDrivers(ctx context.Context) (models.RecentDrivers, error) {
	return cache.Fetch(ctx, q.cache, RecentDrivers(), RecentOptions, func(ctx context.Context) (models.RecentDrivers, error) {
		return q.drivers.Recent(ctx, services.DefaultRecentLimit)
	})
}

// DriverStats returns the fleet-wide driver summary
func (q *Client) DriverStats(ctx context.Context) (models.DriverStats, error) {
	return cache.Fetch(ctx, q.cache, DriverStats(), StatsOptions, q.drivers.Stats)
}

// Driver returns a single driver
func (q *Client) Driver(ctx context.Context, id string) (models.Driver, error) {
	return cache.Fetch(ctx, q.cache, Driver(id), DriversOptions, func(ctx context.Context) (models.Driver, error) {
		return q.drivers.Get(ctx, id)
	})
}

// DriverRatings returns a driver's rating history
func (q *Client) DriverRatings(ctx context.Context, id string) (models.DriverRatings, error) {
	return cache.Fetch(ctx, q.cache, DriverRatings(id), DriversOptions, func(ctx context.Context) (models.DriverRatings, error) {
		return q.drivers.Ratings(ctx, id)
	})
}

// DriverPerformance returns a driver's metrics over timeRange. It is not cached.
func (q *Client) DriverPerformance(ctx context.Context, id, timeRange string) (models.PerformanceMetrics, error) {
	return q.deliveries.DriverPerformance(ctx, id, timeRange)
}

// DriverDeliveries lists a driver's deliveries. It is not cached.
func (q *Client) DriverDeliveries(ctx context.Context, id string, page, limit int) ([]models.Delivery, error) {
	return q.drivers.Deliveries(ctx, id, page, limit)
}

// KPIs returns the KPI cards for a range
func (q *Client) KPIs(ctx context.Context, r models.DateRange) ([]models.KPI, error) {
	return cache.Fetch(ctx, q.cache, Dashboard("kpi", r), DashboardOptions, func(ctx context.Context) ([]models.KPI, error) {
		return q.dashboard.KPIs(ctx, r)
	})
}

// Trends returns the daily trend series for a range
func (q *Client) Trends(ctx context.Context, r models.DateRange) ([]models.TrendPoint, error) {
	return cache.Fetch(ctx, q.cache, Dashboard("trends", r), DashboardOptions, func(ctx context.Context) ([]models.TrendPoint, error) {
		return q.dashboard.Trends(ctx, r)
	})
}

// AIInsights returns the generated insights for a range
func (q *Client) AIInsights(ctx context.Context, r models.DateRange) ([]models.AIInsight, error) {
	return cache.Fetch(ctx, q.cache, Dashboard("ai-insights", r), AIInsightsOptions, func(ctx context.Context) ([]models.AIInsight, error) {
		return q.dashboard.AIInsights(ctx, r)
	})
}

// TransporterComparison returns the transporter ranking for a range
func (q *Client) TransporterComparison(ctx context.Context, r models.DateRange) ([]models.TransporterComparison, error) {
	return cache.Fetch(ctx, q.cache, Dashboard("transporter-comparison", r), DashboardOptions, func(ctx context.Context) ([]models.TransporterComparison, error) {
		return q.dashboard.TransporterComparison(ctx, r)
	})
}

// PerformanceComparison returns the comparison for free-form filters
func (q *Client) PerformanceComparison(ctx context.Context, filters url.Values) (map[string]interface{}, error) {
	return cache.Fetch(ctx, q.cache, DashboardParams("performance-comparison", filters), DashboardOptions, func(ctx context.Context) (map[string]interface{}, error) {
		return q.dashboard.PerformanceComparison(ctx, filters)
	})
}

// Anomalies returns anomaly detection results for a range
func (q *Client) Anomalies(ctx context.Context, r models.DateRange) (map[string]interface{}, error) {
	return cache.Fetch(ctx, q.cache, Dashboard("anomalies", r), AnomaliesOptions, func(ctx context.Context) (map[string]interface{}, error) {
		return q.dashboard.Anomalies(ctx, r)
	})
}

// Predictions returns predictive analytics for free-form parameters
func (q *Client) Predictions(ctx context.Context, params url.Values) (map[string]interface{}, error) {
	return cache.Fetch(ctx, q.cache, DashboardParams("predictions", params), PredictionsOptions, func(ctx context.Context) (map[string]interface{}, error) {
		return q.dashboard.Predictions(ctx, params)
	})
}

// Overview loads the four core aggregates through the cache
func (q *Client) Overview(ctx context.Context, r models.DateRange) (models.DashboardOverview, error) {
	return services.LoadOverview(ctx, q, r)
}
