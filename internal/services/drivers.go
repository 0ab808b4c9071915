package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"transporter-dashboard/internal/apiclient"
	"transporter-dashboard/internal/models"
)

// DefaultRecentLimit is how many recently used drivers are listed
const DefaultRecentLimit = 5

// minSearchLength is the shortest term sent as a search query
const minSearchLength = 2

// DriversService manages drivers and their ratings on the backend
type DriversService struct {
	api *apiclient.Client
	now func() time.Time
}

// NewDriversService creates a new drivers service
func NewDriversService(api *apiclient.Client) *DriversService {
	return &DriversService{api: api, now: time.Now}
}

func driverNotFound(id string) func(error) string {
	return message(fmt.Sprintf("Driver with ID %s not found", id))
}

func driverPath(id string, rest ...string) string {
	return "/drivers/" + url.PathEscape(id) + strings.Join(rest, "")
}

// Search lists drivers. Terms shorter than two characters list everything.
func (s *DriversService) Search(ctx context.Context, term string, f models.DriverFilters) (models.DriverPage, error) {
	params := url.Values{}
	if len(strings.TrimSpace(term)) >= minSearchLength {
		params.Set("q", strings.TrimSpace(term))
	}
	if f.Type != "" && f.Type != "all" {
		params.Set("type", f.Type)
	}
	if f.Page > 0 {
		params.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		params.Set("limit", strconv.Itoa(f.Limit))
	}

	env, err := s.api.Get(ctx, "/drivers/", params)
	if err != nil {
		return models.DriverPage{}, errorRules{http.StatusBadRequest: message("Invalid search parameters")}.apply(err)
	}
	page := models.DriverPage{Data: []models.Driver{}}
	if err := env.Decode(&page.Data); err != nil {
		return models.DriverPage{}, apiclient.Unknown(0, "unexpected drivers payload", err)
	}
	page.Pagination = models.Pagination(env.Page(f.Page, f.Limit, len(page.Data)))
	return page, nil
}

// Recent returns the most recently used drivers
func (s *DriversService) Recent(ctx context.Context, limit int) (models.RecentDrivers, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	env, err := s.api.Get(ctx, "/drivers/recent", url.Values{"limit": {strconv.Itoa(limit)}})
	if err != nil {
		return models.RecentDrivers{}, err
	}
	out := models.RecentDrivers{Data: []models.Driver{}}
	if err := env.Decode(&out.Data); err != nil {
		return models.RecentDrivers{}, apiclient.Unknown(0, "unexpected drivers payload", err)
	}
	out.Total = len(out.Data)
	if total, ok := env.MetaInt("total"); ok {
		out.Total = total
	} else if env.Pagination != nil && env.Pagination.TotalItems > 0 {
		out.Total = env.Pagination.TotalItems
	}
	return out, nil
}

// Get returns a single driver
func (s *DriversService) Get(ctx context.Context, id string) (models.Driver, error) {
	var d models.Driver
	env, err := s.api.Get(ctx, driverPath(id), nil)
	if err != nil {
		return d, errorRules{http.StatusNotFound: driverNotFound(id)}.apply(err)
	}
	if err := env.Decode(&d); err != nil {
		return d, apiclient.Unknown(0, "unexpected driver payload", err)
	}
	return d, nil
}

// Create validates the per-type required fields and creates the driver
func (s *DriversService) Create(ctx context.Context, in models.CreateDriverInput) (models.Driver, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := check(in, driverMessages); err != nil {
		return models.Driver{}, err
	}

	var d models.Driver
	env, err := s.api.Post(ctx, "/drivers", in)
	if err != nil {
		return d, errorRules{
			http.StatusBadRequest: backendOr("Invalid driver data provided"),
			http.StatusConflict:   message("Driver with this information already exists"),
		}.apply(err)
	}
	if err := env.Decode(&d); err != nil {
		return d, apiclient.Unknown(0, "unexpected driver payload", err)
	}
	log.Printf("✅ Created %s driver %s (%s)", d.Type.Label(), d.Name, d.ID)
	return d, nil
}

// Update replaces a driver's details
func (s *DriversService) Update(ctx context.Context, id string, in models.CreateDriverInput) (models.Driver, error) {
	var d models.Driver
	env, err := s.api.Put(ctx, driverPath(id), in)
	if err != nil {
		return d, errorRules{
			http.StatusNotFound:   driverNotFound(id),
			http.StatusBadRequest: backendOr("Invalid driver data provided"),
		}.apply(err)
	}
	if err := env.Decode(&d); err != nil {
		return d, apiclient.Unknown(0, "unexpected driver payload", err)
	}
	return d, nil
}

// Delete removes a driver that has no deliveries
func (s *DriversService) Delete(ctx context.Context, id string) error {
	if _, err := s.api.Delete(ctx, driverPath(id)); err != nil {
		return errorRules{
			http.StatusNotFound: driverNotFound(id),
			http.StatusConflict: message("Cannot delete driver with existing deliveries"),
		}.apply(err)
	}
	log.Printf("🗑️  Deleted driver %s", id)
	return nil
}

// Stats returns the fleet-wide driver summary
func (s *DriversService) Stats(ctx context.Context) (models.DriverStats, error) {
	env, err := s.api.Get(ctx, "/drivers/stats", nil)
	if err != nil {
		return nil, err
	}
	out := models.DriverStats{}
	if err := env.Decode(&out); err != nil {
		return nil, apiclient.Unknown(0, "unexpected stats payload", err)
	}
	return out, nil
}

// Performance returns a driver's overall performance metrics
func (s *DriversService) Performance(ctx context.Context, id string) (models.PerformanceMetrics, error) {
	env, err := s.api.Get(ctx, driverPath(id, "/performance"), nil)
	if err != nil {
		return nil, errorRules{http.StatusNotFound: driverNotFound(id)}.apply(err)
	}
	out := models.PerformanceMetrics{}
	if err := env.Decode(&out); err != nil {
		return nil, apiclient.Unknown(0, "unexpected performance payload", err)
	}
	return out, nil
}

// Deliveries lists a driver's deliveries, paginated when page or limit is set
func (s *DriversService) Deliveries(ctx context.Context, id string, page, limit int) ([]models.Delivery, error) {
	params := url.Values{}
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	env, err := s.api.Get(ctx, driverPath(id, "/deliveries"), params)
	if err != nil {
		return nil, errorRules{http.StatusNotFound: driverNotFound(id)}.apply(err)
	}
	out := []models.Delivery{}
	if err := env.Decode(&out); err != nil {
		return nil, apiclient.Unknown(0, "unexpected deliveries payload", err)
	}
	return out, nil
}

// Ratings returns a driver's rating history and the backend summary when one was sent.
// Both {ratings, summary} and a bare list are accepted.
func (s *DriversService) Ratings(ctx context.Context, id string) (models.DriverRatings, error) {
	env, err := s.api.Get(ctx, driverPath(id, "/ratings"), nil)
	if err != nil {
		return models.DriverRatings{}, errorRules{http.StatusNotFound: driverNotFound(id)}.apply(err)
	}

	out := models.DriverRatings{Ratings: []models.DriverRating{}}
	if len(env.Data) > 0 && env.Data[0] == '[' {
		if err := env.Decode(&out.Ratings); err != nil {
			return out, apiclient.Unknown(0, "unexpected ratings payload", err)
		}
	} else if err := env.Decode(&out); err != nil {
		return out, apiclient.Unknown(0, "unexpected ratings payload", err)
	}
	if out.Ratings == nil {
		out.Ratings = []models.DriverRating{}
	}
	if out.Summary == nil {
		if raw, ok := env.Meta["summary"]; ok {
			var summary models.BackendPerformanceSummary
			if json.Unmarshal(raw, &summary) == nil {
				out.Summary = &summary
			}
		}
	}
	return out, nil
}

// RatingInput is a standalone rating of a driver for one delivery
type RatingInput struct {
	models.RatingScores
	Overall  int    `json:"overall"`
	Comments string `json:"comments,omitempty"`
}

// Rate records a rating for a driver's delivery. Overall is derived from the rated criteria.
func (s *DriversService) Rate(ctx context.Context, driverID, deliveryID string, in RatingInput) (models.DriverRating, error) {
	in.Overall = computedOverall("", in.RatingScores)
	if in.Overall < 1 || in.Overall > 5 {
		return models.DriverRating{}, apiclient.Validation("Overall rating must be between 1 and 5")
	}
	body := struct {
		DeliveryID string `json:"deliveryId"`
		RatingInput
	}{deliveryID, in}

	var r models.DriverRating
	env, err := s.api.Post(ctx, driverPath(driverID, "/ratings"), body)
	if err != nil {
		return r, errorRules{
			http.StatusNotFound:   driverNotFound(driverID),
			http.StatusBadRequest: backendOr("Invalid rating data provided"),
		}.apply(err)
	}
	if err := env.Decode(&r); err != nil {
		return r, apiclient.Unknown(0, "unexpected rating payload", err)
	}
	return r, nil
}

// Insights is the generated summary of a driver's ratings
type Insights struct {
	AIInsights          string           `json:"aiInsights"`
	AIInsightsUpdatedAt models.Timestamp `json:"aiInsightsUpdatedAt"`
}

// GenerateInsights asks the backend to summarize the given ratings for a driver
func (s *DriversService) GenerateInsights(ctx context.Context, id string, ratings []models.DriverRating) (Insights, error) {
	if id == "" || id == "undefined" || id == "null" {
		return Insights{}, apiclient.Validationf("Invalid driver ID: %s", id)
	}

	env, err := s.api.Post(ctx, driverPath(id, "/insights"), map[string]interface{}{"ratingsData": ratings})
	if err != nil {
		switch apiclient.StatusOf(err) {
		case http.StatusNotFound:
			return Insights{}, apiclient.Refine(err, fmt.Sprintf("Driver with ID %s not found", id))
		case http.StatusBadRequest:
			return Insights{}, apiclient.Refine(err, backendOr(fmt.Sprintf("Invalid driver ID: %s", id))(err))
		}
		return Insights{}, apiclient.Refine(err, "Failed to generate insights: "+err.Error())
	}

	var out Insights
	if len(env.Data) > 0 && env.Data[0] == '"' {
		if err := env.Decode(&out.AIInsights); err != nil {
			return out, apiclient.Unknown(0, "unexpected insights payload", err)
		}
	} else if err := env.Decode(&out); err != nil {
		return out, apiclient.Unknown(0, "unexpected insights payload", err)
	}
	if out.AIInsightsUpdatedAt.IsZero() {
		out.AIInsightsUpdatedAt = models.Timestamp{Time: s.now().UTC()}
	}
	log.Printf("🤖 Generated insights for driver %s from %d rating(s)", id, len(ratings))
	return out, nil
}

// UpdateInsights stores edited insights text on a driver
func (s *DriversService) UpdateInsights(ctx context.Context, id, insights string) (models.Driver, error) {
	var d models.Driver
	env, err := s.api.Put(ctx, driverPath(id, "/insights"), map[string]string{"aiInsights": insights})
	if err != nil {
		return d, errorRules{http.StatusNotFound: driverNotFound(id)}.apply(err)
	}
	if err := env.Decode(&d); err != nil {
		return d, apiclient.Unknown(0, "unexpected driver payload", err)
	}
	return d, nil
}
