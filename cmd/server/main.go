package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"transporter-dashboard/internal/apiclient"
	"transporter-dashboard/internal/cache"
	"transporter-dashboard/internal/config"
	"transporter-dashboard/internal/database"
	"transporter-dashboard/internal/handlers"
	"transporter-dashboard/internal/jobs"
	"transporter-dashboard/internal/notifications"
	"transporter-dashboard/internal/queries"
	"transporter-dashboard/internal/services"
	"transporter-dashboard/internal/store"
	"transporter-dashboard/internal/websocket"
)

const (
	cacheMaxEntries = 1000
	shutdownTimeout = 15 * time.Second
)

func main() {
	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("🚀 TRANSPORTER DASHBOARD SERVER STARTING")
	log.Println("═══════════════════════════════════════════════════════════════════")

	log.Println("📂 Loading configuration...")
	cfg := config.Load()
	if cfg.JWTSecret == "" {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: APP_JWT_SECRET environment variable is required")
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal("APP_JWT_SECRET environment variable is required")
	}
	log.Printf("✅ Backend API: %s (timeout %s)", cfg.Backend.BaseURL, cfg.Backend.Timeout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Backend client. Requests carry the signed-in user's token; the service token covers scheduled jobs.
	var apiOpts []apiclient.Option
	if cfg.Backend.ServiceToken != "" {
		apiOpts = append(apiOpts, apiclient.WithTokenSource(apiclient.NewStaticToken(cfg.Backend.ServiceToken)))
		log.Println("✅ Service token configured for background jobs")
	} else {
		log.Println("⚠️  TRANSPORT_API_TOKEN not set, dashboard prefetch runs unauthenticated")
	}
	api := apiclient.New(cfg.Backend.BaseURL, cfg.Backend.Timeout, apiOpts...)

	// WebSocket hub
	wsHub := websocket.NewHub()
	go wsHub.Run(ctx)
	log.Println("✅ WebSocket hub started")

	// Notifications fan out to connected dashboards and, when configured, to managers' devices
	center := notifications.NewCenter(cfg.NotificationTTL)
	center.Subscribe(wsHub.NotificationSubscriber())
	if push := initPush(cfg.Firebase); push != nil {
		center.Subscribe(push.Subscriber())
	}

	// Query cache
	queryCache := cache.New(cacheMaxEntries)
	queryCache.OnInvalidate(wsHub.CacheListener())

	q := queries.New(queryCache, queries.Services{
		Requests:   services.NewRequestsService(api),
		Deliveries: services.NewDeliveriesService(api),
		Drivers:    services.NewDriversService(api),
		Dashboard:  services.NewDashboardService(api),
	}, center)

	// Preference storage
	persister, closeStore := initPersister(cfg.Preferences)
	defer closeStore()
	sessions := store.NewRegistry(persister)

	// Scheduled jobs
	scheduler := jobs.NewScheduler(queryCache, q)
	if err := scheduler.Start(cfg.Schedules.CacheSweep, cfg.Schedules.DashboardPrefetch); err != nil {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: Scheduler failed to start")
		log.Printf("   Error: %v", err)
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal(err)
	}
	defer scheduler.Stop()

	r := handlers.NewRouter(handlers.Deps{
		Queries:            q,
		Sessions:           sessions,
		Notifications:      center,
		Hub:                wsHub,
		JWTSecret:          cfg.JWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("✅ ALL INITIALIZATION COMPLETE")
	log.Printf("🚀 Server starting on http://localhost:%s", cfg.Port)
	log.Println("🔌 Ready to accept requests!")
	log.Println("═══════════════════════════════════════════════════════════════════")

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
			log.Println("❌ FATAL ERROR: Server failed to start")
			log.Printf("   Error: %v", err)
			log.Printf("   Port: %s", cfg.Port)
			log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
			log.Fatal(err)
		}
	case <-ctx.Done():
		log.Println("🛑 Shutdown signal received, draining connections...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("⚠️  Graceful shutdown incomplete: %v", err)
		}
		log.Println("👋 Server stopped")
	}
}

// initPush returns nil when Firebase is not configured or fails to initialize
func initPush(cfg config.FirebaseConfig) *services.PushService {
	var (
		push *services.PushService
		err  error
	)
	switch {
	case cfg.CredentialsBase64 != "":
		push, err = services.NewPushServiceFromBase64(cfg.CredentialsBase64, cfg.Topic)
		if err != nil {
			log.Printf("⚠️  Failed to initialize FCM from base64: %v (push notifications disabled)", err)
			return nil
		}
		log.Println("✅ Firebase Cloud Messaging initialized from base64 credentials")
	case cfg.CredentialsFile != "":
		push, err = services.NewPushService(cfg.CredentialsFile, cfg.Topic)
		if err != nil {
			log.Printf("⚠️  Failed to initialize FCM from file: %v (push notifications disabled)", err)
			return nil
		}
		log.Println("✅ Firebase Cloud Messaging initialized from file")
	default:
		log.Println("⚠️  Firebase credentials not set (push notifications disabled)")
		return nil
	}
	log.Printf("📲 Pushing notifications to topic %q", push.Topic())
	return push
}

// initPersister stores preferences in Postgres when DATABASE_URL is set, otherwise in a local JSON file
func initPersister(cfg config.PreferencesConfig) (store.Persister, func()) {
	if cfg.DatabaseURL == "" {
		log.Printf("📁 Storing UI preferences in %s", cfg.FilePath)
		return store.NewFilePersister(cfg.FilePath), func() {}
	}

	log.Println("🔌 Connecting to preferences database...")
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: Database connection failed")
		log.Printf("   Error: %v", err)
		log.Println("   This is usually caused by:")
		log.Println("   1. Wrong DATABASE_URL format")
		log.Println("   2. PostgreSQL service is down")
		log.Println("   3. Network connectivity issue")
		log.Println("   4. Invalid credentials")
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal(err)
	}

	log.Println("🔄 Running database migrations...")
	if err := database.Migrate(db); err != nil {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: Database migrations failed")
		log.Printf("   Error: %v", err)
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal(err)
	}
	log.Println("✅ Database migrations completed")

	return store.NewPostgresPersister(db), func() { db.Close() }
}
