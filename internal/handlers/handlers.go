// Package handlers is the dashboard's HTTP surface. Handlers read and mutate through the query client
// so every response shares the same cache and invalidation rules.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"transporter-dashboard/internal/middleware"
	"transporter-dashboard/internal/models"
	"transporter-dashboard/pkg/utils"
)

// defaultRangeDays matches the dashboard's "last7days" filter
const defaultRangeDays = 7

// now is swapped in tests
var now = time.Now

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		utils.RespondError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
		return false
	}
	return true
}

// dateRange reads startDate/endDate (YYYY-MM-DD) or days from the query, defaulting to the last 7 days
func dateRange(r *http.Request) (models.DateRange, error) {
	q := r.URL.Query()
	start, end := q.Get("startDate"), q.Get("endDate")
	if start != "" || end != "" {
		return models.ParseDateRange(start, end)
	}
	days := defaultRangeDays
	if v := q.Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return models.DateRange{}, fmt.Errorf("invalid days %q", v)
		}
		days = n
	}
	return models.LastDays(now(), days), nil
}

func queryInt(r *http.Request, name string, fallback int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func userID(r *http.Request) (string, bool) {
	claims, ok := middleware.GetUserFromContext(r)
	if !ok || claims.UserID == "" {
		return "", false
	}
	return claims.UserID, true
}
