package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultAPIURL = "http://localhost:3000/api"

// Config holds all dashboard service configuration
type Config struct {
	Port               string
	JWTSecret          string
	CORSAllowedOrigins []string
	Backend            BackendConfig
	Preferences        PreferencesConfig
	Firebase           FirebaseConfig
	Schedules          ScheduleConfig
	NotificationTTL    time.Duration
}

// BackendConfig describes the transportation REST backend the dashboard proxies to
type BackendConfig struct {
	BaseURL      string
	Timeout      time.Duration
	ServiceToken string
}

// PreferencesConfig selects where persisted UI preferences live
type PreferencesConfig struct {
	DatabaseURL string
	FilePath    string
}

// FirebaseConfig holds push notification credentials
type FirebaseConfig struct {
	CredentialsBase64 string
	CredentialsFile   string
	Topic             string
}

// ScheduleConfig holds cron expressions (seconds precision)
type ScheduleConfig struct {
	CacheSweep        string
	DashboardPrefetch string
}

// Load reads configuration from the environment, loading .env first when present
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  Warning: .env file not found, using environment variables from system")
	}

	baseURL := os.Getenv("TRANSPORT_API_URL")
	if baseURL == "" {
		// Legacy name used by the single-page build
		baseURL = getEnv("VITE_API_URL", defaultAPIURL)
	}

	return &Config{
		Port:               getEnv("PORT", "8080"),
		JWTSecret:          os.Getenv("APP_JWT_SECRET"),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		Backend: BackendConfig{
			BaseURL:      strings.TrimRight(baseURL, "/"),
			Timeout:      getDuration("TRANSPORT_API_TIMEOUT", 10*time.Second),
			ServiceToken: os.Getenv("TRANSPORT_API_TOKEN"),
		},
		Preferences: PreferencesConfig{
			DatabaseURL: os.Getenv("DATABASE_URL"),
			FilePath:    getEnv("PREFERENCES_FILE", "./ui-preferences.json"),
		},
		Firebase: FirebaseConfig{
			CredentialsBase64: os.Getenv("FIREBASE_CREDENTIALS_BASE64"),
			CredentialsFile:   os.Getenv("FIREBASE_CREDENTIALS_FILE"),
			Topic:             getEnv("FCM_NOTIFICATION_TOPIC", "dashboard-managers"),
		},
		Schedules: ScheduleConfig{
			CacheSweep:        getEnv("CACHE_SWEEP_SCHEDULE", "0 */10 * * * *"),
			DashboardPrefetch: getEnv("DASHBOARD_PREFETCH_SCHEDULE", "0 */5 * * * *"),
		},
		NotificationTTL: getDuration("NOTIFICATION_TTL", 3*time.Second),
	}
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("⚠️  Invalid duration for %s (%q), using %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
