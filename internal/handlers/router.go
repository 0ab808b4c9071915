package handlers

import (
	"net/http"

	"transporter-dashboard/internal/middleware"
	"transporter-dashboard/internal/notifications"
	"transporter-dashboard/internal/queries"
	"transporter-dashboard/internal/store"
	"transporter-dashboard/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Deps are the services the routes are served from
type Deps struct {
	Queries            *queries.Client
	Sessions           *store.Registry
	Notifications      *notifications.Center
	Hub                *websocket.Hub
	JWTSecret          string
	CORSAllowedOrigins []string
}

// NewRouter builds the dashboard's HTTP routes
func NewRouter(d Deps) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// WebSocket endpoint (authentication handled in handler via query param)
	if d.Hub != nil {
		r.Get("/ws", websocket.HandleWebSocket(d.Hub, d.JWTSecret))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(d.JWTSecret))

		// Requests
		r.Get("/requests", GetRequests(d.Queries))
		r.Post("/requests", CreateRequest(d.Queries))
		r.Get("/requests/{id}", GetRequest(d.Queries))
		r.Put("/requests/{id}", UpdateRequest(d.Queries))
		r.Delete("/requests/{id}", DeleteRequest(d.Queries))
		r.Get("/requests/{id}/metrics", GetRequestMetrics(d.Queries))
		r.Get("/requests/{id}/delivery", GetDeliveryForEdit(d.Queries))
		r.Put("/requests/{id}/delivery/{deliveryId}", UpdateDelivery(d.Queries))

		// Deliveries
		r.Post("/deliveries/{requestId}/log", LogDelivery(d.Queries))
		r.Post("/deliveries/{requestId}/confirm", ConfirmDelivery(d.Queries))

		// Drivers
		r.Get("/drivers", GetDrivers(d.Queries))
		r.Post("/drivers", CreateDriver(d.Queries))
		r.Get("/drivers/search", SearchDrivers(d.Queries))
		r.Get("/drivers/recent", GetRecentDrivers(d.Queries))
		r.Get("/drivers/stats", GetDriverStats(d.Queries))
		r.Get("/drivers/{id}", GetDriver(d.Queries))
		r.Put("/drivers/{id}", UpdateDriver(d.Queries))
		r.Delete("/drivers/{id}", DeleteDriver(d.Queries))
		r.Get("/drivers/{id}/ratings", GetDriverRatings(d.Queries))
		r.Post("/drivers/{id}/ratings", RateDriver(d.Queries))
		r.Post("/drivers/{id}/insights", GenerateInsights(d.Queries))
		r.Put("/drivers/{id}/insights", UpdateInsights(d.Queries))
		r.Get("/drivers/{id}/performance", GetDriverPerformance(d.Queries))
		r.Get("/drivers/{id}/deliveries", GetDriverDeliveries(d.Queries))

		// Dashboard analytics
		r.Get("/dashboard/kpi", GetKPIs(d.Queries))
		r.Get("/dashboard/trends", GetTrends(d.Queries))
		r.Get("/dashboard/ai-insights", GetAIInsights(d.Queries))
		r.Get("/dashboard/transporter-comparison", GetTransporterComparison(d.Queries))
		r.Get("/dashboard/performance-comparison", GetPerformanceComparison(d.Queries))
		r.Get("/dashboard/anomalies", GetAnomalies(d.Queries))
		r.Get("/dashboard/predictions", GetPredictions(d.Queries))
		r.Get("/dashboard/overview", GetOverview(d.Queries))
		r.Post("/dashboard/refresh", RefreshDashboard(d.Queries))

		// Derived metrics
		r.Post("/metrics/variance", ComputeVariance())
		r.Post("/metrics/variance-preview", PreviewVariance())
		r.Post("/metrics/overall-rating", ComputeOverallRating())

		// Session UI state
		r.Get("/session/preferences", GetPreferences(d.Sessions))
		r.Put("/session/preferences", UpdatePreferences(d.Sessions))
		r.Get("/session/drivers", GetSelectedDrivers(d.Sessions))
		r.Post("/session/drivers", AddSelectedDriver(d.Sessions))
		r.Put("/session/drivers", ReplaceSelectedDrivers(d.Sessions))
		r.Delete("/session/drivers", ClearSelectedDrivers(d.Sessions))
		r.Put("/session/drivers/{driverId}", UpdateSelectedDriver(d.Sessions))
		r.Delete("/session/drivers/{driverId}", RemoveSelectedDriver(d.Sessions))
		r.Patch("/session/drivers/{driverId}/rating", UpdateSelectedDriverRating(d.Sessions))

		// Notifications
		r.Get("/notifications", GetNotifications(d.Notifications))
		r.Delete("/notifications", ClearNotifications(d.Notifications))
		r.Delete("/notifications/{id}", DismissNotification(d.Notifications))

		// Exports
		r.Get("/exports/requests.xlsx", ExportRequests(d.Queries))
		r.Get("/exports/transporters.xlsx", ExportTransporters(d.Queries))

		// Diagnostics
		r.Post("/logs/diagnostic", ReceiveDiagnosticLog())
		r.Get("/cache/stats", GetCacheStats(d.Queries.Cache()))
	})

	return r
}
