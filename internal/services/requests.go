package services

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"transporter-dashboard/internal/apiclient"
	"transporter-dashboard/internal/models"
)

// CostPerKilometer is the per-truck rate used for estimated costs
const CostPerKilometer = 2.5

// knownDistances are the route lengths in km used when the caller has no estimate
var knownDistances = map[string]float64{
	"dallas-houston":      362,
	"houston-dallas":      362,
	"dallas-austin":       312,
	"austin-dallas":       312,
	"houston-austin":      265,
	"austin-houston":      265,
	"dallas-san antonio":  435,
	"san antonio-dallas":  435,
	"houston-san antonio": 315,
	"san antonio-houston": 315,
}

// EstimateDistance returns the known distance between two cities, case-insensitively
func EstimateDistance(origin, destination string) (float64, bool) {
	o := strings.ToLower(strings.TrimSpace(origin))
	d := strings.ToLower(strings.TrimSpace(destination))
	if o == "" || d == "" || o == d {
		return 0, false
	}
	km, ok := knownDistances[o+"-"+d]
	return km, ok
}

// EstimateCost is distance × rate × trucks
func EstimateCost(distance float64, trucks int) float64 {
	return distance * CostPerKilometer * float64(trucks)
}

// RequestsService manages transportation requests on the backend
type RequestsService struct {
	api *apiclient.Client
}

// NewRequestsService creates a new requests service
func NewRequestsService(api *apiclient.Client) *RequestsService {
	return &RequestsService{api: api}
}

// List returns one page of requests. "all" status/priority filters are not sent.
func (s *RequestsService) List(ctx context.Context, f models.RequestFilters) (models.RequestPage, error) {
	params := url.Values{}
	if f.Search != "" {
		params.Set("search", f.Search)
	}
	if f.Status != "" && f.Status != "all" {
		params.Set("status", f.Status)
	}
	if f.Priority != "" && f.Priority != "all" {
		params.Set("priority", f.Priority)
	}
	if f.Page > 0 {
		params.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		params.Set("limit", strconv.Itoa(f.Limit))
	}

	env, err := s.api.Get(ctx, "/requests", params)
	if err != nil {
		return models.RequestPage{}, err
	}

	page := models.RequestPage{Data: []models.TransportationRequest{}}
	if err := env.Decode(&page.Data); err != nil {
		return models.RequestPage{}, apiclient.Unknown(0, "unexpected requests payload", err)
	}
	page.Pagination = models.Pagination(env.Page(f.Page, f.Limit, len(page.Data)))
	return page, nil
}

// Get returns a single request
func (s *RequestsService) Get(ctx context.Context, id string) (models.TransportationRequest, error) {
	var req models.TransportationRequest
	env, err := s.api.Get(ctx, "/requests/"+url.PathEscape(id), nil)
	if err != nil {
		return req, errorRules{http.StatusNotFound: message(fmt.Sprintf("Request %s not found", id))}.apply(err)
	}
	if err := env.Decode(&req); err != nil {
		return req, apiclient.Unknown(0, "unexpected request payload", err)
	}
	return req, nil
}

// Create validates and submits a new request. Missing distance and cost are estimated.
func (s *RequestsService) Create(ctx context.Context, in models.CreateRequestInput) (models.TransportationRequest, error) {
	in, err := prepareRequest(in)
	if err != nil {
		return models.TransportationRequest{}, err
	}

	var created models.TransportationRequest
	env, err := s.api.Post(ctx, "/requests", in)
	if err != nil {
		return created, err
	}
	if err := env.Decode(&created); err != nil {
		return created, apiclient.Unknown(0, "unexpected request payload", err)
	}
	log.Printf("✅ Created request %s (%s → %s)", created.ID, created.Origin, created.Destination)
	return created, nil
}

// Update validates and replaces an existing request
func (s *RequestsService) Update(ctx context.Context, id string, in models.CreateRequestInput) (models.TransportationRequest, error) {
	in, err := prepareRequest(in)
	if err != nil {
		return models.TransportationRequest{}, err
	}

	var updated models.TransportationRequest
	env, err := s.api.Put(ctx, "/requests/"+url.PathEscape(id), in)
	if err != nil {
		return updated, errorRules{http.StatusNotFound: message(fmt.Sprintf("Request %s not found", id))}.apply(err)
	}
	if err := env.Decode(&updated); err != nil {
		return updated, apiclient.Unknown(0, "unexpected request payload", err)
	}
	return updated, nil
}

// Delete removes a request
func (s *RequestsService) Delete(ctx context.Context, id string) error {
	if _, err := s.api.Delete(ctx, "/requests/"+url.PathEscape(id)); err != nil {
		return errorRules{http.StatusNotFound: message(fmt.Sprintf("Request %s not found", id))}.apply(err)
	}
	log.Printf("🗑️  Deleted request %s", id)
	return nil
}

func prepareRequest(in models.CreateRequestInput) (models.CreateRequestInput, error) {
	in.Origin = strings.TrimSpace(in.Origin)
	in.Destination = strings.TrimSpace(in.Destination)
	in.LoadDetails = strings.TrimSpace(in.LoadDetails)

	if err := check(in, requestMessages); err != nil {
		return in, err
	}
	if in.PickUpDateTime.IsZero() {
		return in, apiclient.Validation("Pick-up date and time is required")
	}

	if in.EstimatedDistance == 0 {
		if km, ok := EstimateDistance(in.Origin, in.Destination); ok {
			in.EstimatedDistance = km
		}
	}
	if in.EstimatedCost == nil {
		cost := EstimateCost(in.EstimatedDistance, in.TruckCount)
		in.EstimatedCost = &cost
	}
	return in, nil
}
