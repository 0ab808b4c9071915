package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"transporter-dashboard/internal/cache"
	"transporter-dashboard/pkg/utils"
)

// DiagnosticLog is an error or warning reported by the dashboard UI
type DiagnosticLog struct {
	Timestamp string                 `json:"timestamp"`
	Context   string                 `json:"context"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data"`
	UserAgent string                 `json:"userAgent"`
}

// ReceiveDiagnosticLog writes UI-side diagnostics to the server log
// POST /api/logs/diagnostic
func ReceiveDiagnosticLog() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var entry DiagnosticLog
		if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		prefix := "🖥️"
		switch entry.Level {
		case "ERROR":
			prefix = "🔴"
		case "WARNING":
			prefix = "🟡"
		case "INFO":
			prefix = "🔵"
		}

		user := "anonymous"
		if id, ok := userID(r); ok {
			user = id
		}

		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Printf("%s DASHBOARD DIAGNOSTIC [%s]", prefix, entry.Level)
		log.Printf("   User:      %s", user)
		log.Printf("   Context:   %s", entry.Context)
		log.Printf("   Timestamp: %s", entry.Timestamp)
		log.Printf("   Message:   %s", entry.Message)
		if entry.UserAgent != "" {
			log.Printf("   Agent:     %s", entry.UserAgent)
		}
		if len(entry.Data) > 0 {
			log.Println("   Data:")
			if dataJSON, err := json.MarshalIndent(entry.Data, "      ", "  "); err == nil {
				log.Printf("      %s", string(dataJSON))
			}
		}
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

		w.WriteHeader(http.StatusNoContent)
	}
}

// GetCacheStats returns query cache statistics
// GET /api/cache/stats
func GetCacheStats(c *cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		utils.RespondData(w, http.StatusOK, c.GetStats())
	}
}
