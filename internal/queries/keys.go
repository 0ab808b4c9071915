package queries

import (
	"net/url"
	"strconv"
	"time"

	"transporter-dashboard/internal/cache"
	"transporter-dashboard/internal/models"
)

// Key roots
var (
	RequestsKey  = cache.NewKey("requests")
	RequestLists = RequestsKey.Append("paginated-list")
	DriversKey   = cache.NewKey("drivers")
	DashboardKey = cache.NewKey("dashboard")
)

// RequestList identifies one filtered page of requests
func RequestList(f models.RequestFilters) cache.Key {
	return RequestLists.Append(f.Search, strconv.Itoa(f.Page), strconv.Itoa(f.Limit), orAll(f.Status), orAll(f.Priority))
}

// RequestDetail identifies one request
func RequestDetail(id string) cache.Key { return RequestsKey.Append("detail", id) }

// DriverSearch identifies one search result page
func DriverSearch(term string, f models.DriverFilters) cache.Key {
	return DriversKey.Append("search", term, orAll(f.Type), strconv.Itoa(f.Page), strconv.Itoa(f.Limit))
}

// DriverList identifies one unfiltered driver list page
func DriverList(f models.DriverFilters) cache.Key {
	return DriversKey.Append("list", orAll(f.Type), strconv.Itoa(f.Page), strconv.Itoa(f.Limit))
}

func RecentDrivers() cache.Key {
	return DriversKey.Append("recent")
}

func DriverStats() cache.Key {
	return DriversKey.Append("stats")
}

// Driver identifies one driver; its ratings live under it
func Driver(id string) cache.Key {
	return DriversKey.Append(id)
}

func DriverRatings(id string) cache.Key {
	return DriversKey.Append(id, "ratings")
}

// Dashboard identifies one aggregate for a date range
func Dashboard(kind string, r models.DateRange) cache.Key {
	return DashboardKey.Append(kind, r.Key())
}

// DashboardParams identifies an aggregate keyed by free-form parameters
func DashboardParams(kind string, params url.Values) cache.Key {
	return DashboardKey.Append(kind, params.Encode())
}

func orAll(v string) string {
	if v == "" {
		return "all"
	}
	return v
}

// Staleness windows per query family
var (
	RequestsOptions    = cache.Options{StaleTime: 5 * time.Minute, GCTime: 10 * time.Minute}
	DriversOptions     = cache.Options{StaleTime: 5 * time.Minute, GCTime: 10 * time.Minute}
	RecentOptions      = cache.Options{StaleTime: 10 * time.Minute, GCTime: 15 * time.Minute}
	StatsOptions       = cache.Options{StaleTime: 15 * time.Minute, GCTime: 30 * time.Minute}
	DashboardOptions   = cache.Options{StaleTime: 5 * time.Minute, GCTime: 10 * time.Minute}
	AIInsightsOptions  = cache.Options{StaleTime: 2 * time.Minute, GCTime: 5 * time.Minute}
	AnomaliesOptions   = cache.Options{StaleTime: 3 * time.Minute, GCTime: 5 * time.Minute}
	PredictionsOptions = cache.Options{StaleTime: 10 * time.Minute, GCTime: 30 * time.Minute}
)
