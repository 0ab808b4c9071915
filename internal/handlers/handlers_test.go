package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/xuri/excelize/v2"

	"transporter-dashboard/internal/apiclient"
	"transporter-dashboard/internal/cache"
	"transporter-dashboard/internal/notifications"
	"transporter-dashboard/internal/queries"
	"transporter-dashboard/internal/services"
	"transporter-dashboard/internal/store"
)

const testSecret = "test-secret"

// backend serves canned JSON per "METHOD /path" and records the Authorization header it saw
type backend struct {
	mu        sync.Mutex
	bodies    map[string]string
	status    map[string]int
	hits      map[string]int
	lastAuth  string
	lastQuery map[string]string
}

type testServer struct {
	backend *backend
	router  http.Handler
	center  *notifications.Center
	cache   *cache.Cache
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	b := &backend{bodies: map[string]string{}, status: map[string]int{}, hits: map[string]int{}}
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.Method + " " + strings.TrimPrefix(r.URL.Path, "/api")
		b.mu.Lock()
		b.hits[route]++
		b.lastAuth = r.Header.Get("Authorization")
		b.lastQuery = map[string]string{}
		for k := range r.URL.Query() {
			b.lastQuery[k] = r.URL.Query().Get(k)
		}
		body, ok := b.bodies[route]
		status := b.status[route]
		b.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(upstream.Close)

	api := apiclient.New(upstream.URL+"/api", time.Second)
	center := notifications.NewCenter(time.Minute)
	c := cache.New(100)
	q := queries.New(c, queries.Services{
		Requests:   services.NewRequestsService(api),
		Deliveries: services.NewDeliveriesService(api),
		Drivers:    services.NewDriversService(api),
		Dashboard:  services.NewDashboardService(api),
	}, center)

	router := NewRouter(Deps{
		Queries:            q,
		Sessions:           store.NewRegistry(nil),
		Notifications:      center,
		JWTSecret:          testSecret,
		CORSAllowedOrigins: []string{"*"},
	})
	return &testServer{backend: b, router: router, center: center, cache: c}
}

func (b *backend) on(route string, status int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bodies[route] = body
	b.status[route] = status
}

func (b *backend) count(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[route]
}

func tokenFor(t *testing.T, userID string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"email":   userID + "@example.com",
		"role":    "manager",
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

// do sends a request as user "u-1" unless the path is public
func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	return s.doAs(t, "u-1", method, path, body)
}

func (s *testServer) doAs(t *testing.T, user, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+tokenFor(t, user))
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success    bool                   `json:"success"`
	Data       json.RawMessage        `json:"data"`
	Error      string                 `json:"error"`
	Kind       string                 `json:"kind"`
	Pagination map[string]interface{} `json:"pagination"`
	Label      string                 `json:"label"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("invalid response %q: %v", rec.Body.String(), err)
	}
	if data != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, data); err != nil {
			t.Fatalf("invalid data %s: %v", env.Data, err)
		}
	}
	return env
}

func TestHealthIsPublicAndAPIRequiresToken(t *testing.T) {
	s := newTestServer(t)

	if rec := s.doAs(t, "", http.MethodGet, "/health", ""); rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("unexpected health response %d %q", rec.Code, rec.Body.String())
	}
	if rec := s.doAs(t, "", http.MethodGet, "/api/requests", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}
}

func TestGetRequests_ForwardsTokenAndPagination(t *testing.T) {
	s := newTestServer(t)
	s.backend.on("GET /requests", 200, `{"data":[{"id":1,"origin":"Dallas"}],"pagination":{"currentPage":2,"totalPages":3,"total":25,"limit":10}}`)

	rec := s.do(t, http.MethodGet, "/api/requests?status=pending&page=2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var data []map[string]interface{}
	env := decode(t, rec, &data)
	if len(data) != 1 || data[0]["id"] != "1" {
		t.Errorf("unexpected data %v", data)
	}
	if env.Pagination["totalItems"] != float64(25) || env.Pagination["hasNextPage"] != true {
		t.Errorf("unexpected pagination %v", env.Pagination)
	}
	if !strings.HasPrefix(s.backend.lastAuth, "Bearer ") {
		t.Errorf("expected the user token to be forwarded, got %q", s.backend.lastAuth)
	}
	if s.backend.lastQuery["status"] != "pending" || s.backend.lastQuery["page"] != "2" {
		t.Errorf("unexpected backend query %v", s.backend.lastQuery)
	}
}

func TestGetRequest_NotFound(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/requests/404", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	env := decode(t, rec, nil)
	if env.Success || env.Error != "Request 404 not found" || env.Kind != "not_found" {
		t.Errorf("unexpected error body %+v", env)
	}
}

func TestGetRequestMetrics_EndToEndScenario(t *testing.T) {
	s := newTestServer(t)
	s.backend.on("GET /requests/r-1", 200, `{"data":{
		"id":"r-1","status":"completed","truckCount":2,"estimatedCost":1000,
		"pickUpDateTime":"2024-01-01T08:00:00Z",
		"delivery":{"id":"d-1","actualTruckCount":3,"actualPickupDateTime":"2024-01-01T09:45:00Z","invoiceAmount":1150}
	}}`)

	rec := s.do(t, http.MethodGet, "/api/requests/r-1/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Report struct {
			TruckVariance struct {
				Variance   int     `json:"variance"`
				Percentage float64 `json:"percentage"`
			} `json:"truckVariance"`
			TimeVariance struct {
				VarianceMinutes int `json:"varianceMinutes"`
			} `json:"timeVariance"`
			CostVariance struct {
				Variance   float64 `json:"variance"`
				Percentage float64 `json:"percentage"`
			} `json:"costVariance"`
		} `json:"report"`
		Alerts []struct {
			Type     string `json:"type"`
			Title    string `json:"title"`
			Severity string `json:"severity"`
		} `json:"alerts"`
		Permissions map[string]bool `json:"permissions"`
	}
	decode(t, rec, &out)

	r := out.Report
	if r.TruckVariance.Variance != 1 || r.TruckVariance.Percentage != 50 {
		t.Errorf("unexpected truck variance %+v", r.TruckVariance)
	}
	if r.TimeVariance.VarianceMinutes != 105 {
		t.Errorf("expected 105 minutes late, got %d", r.TimeVariance.VarianceMinutes)
	}
	if r.CostVariance.Variance != 150 || r.CostVariance.Percentage != 15 {
		t.Errorf("unexpected cost variance %+v", r.CostVariance)
	}

	want := []string{"More Trucks Used", "Delivery Delay", "Cost Overrun"}
	if len(out.Alerts) != len(want) {
		t.Fatalf("expected %d alerts and no overall alert, got %+v", len(want), out.Alerts)
	}
	for i, title := range want {
		if out.Alerts[i].Title != title || out.Alerts[i].Severity != "medium" {
			t.Errorf("alert %d: expected medium %q, got %+v", i, title, out.Alerts[i])
		}
	}
	if out.Permissions["canEditDelivery"] != true || out.Permissions["canEditRequest"] != false {
		t.Errorf("unexpected permissions %v", out.Permissions)
	}
}

func TestGetRequestMetrics_PendingHasNoReport(t *testing.T) {
	s := newTestServer(t)
	s.backend.on("GET /requests/r-2", 200, `{"data":{"id":"r-2","status":"pending","truckCount":1}}`)

	rec := s.do(t, http.MethodGet, "/api/requests/r-2/metrics", "")
	var out map[string]interface{}
	decode(t, rec, &out)
	if _, ok := out["report"]; ok {
		t.Errorf("pending request must not have a report: %v", out)
	}
	if alerts, _ := out["alerts"].([]interface{}); alerts == nil || len(alerts) != 0 {
		t.Errorf("expected an empty alert list, got %v", out["alerts"])
	}
}

func TestComputeOverallRating(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		body    string
		code    int
		overall int
		valid   bool
	}{
		{`{"driverType":"transporter","scores":{"punctuality":5,"professionalism":5,"deliveryQuality":0,"communication":0}}`, 200, 5, false},
		{`{"driverType":"in_house","scores":{}}`, 200, 0, false},
		{`{"driverType":"transporter","scores":{"punctuality":4,"professionalism":4,"deliveryQuality":5,"communication":5}}`, 200, 5, true},
		{`{"driverType":"contractor","scores":{}}`, 400, 0, false},
	}
	for _, tt := range tests {
		rec := s.do(t, http.MethodPost, "/api/metrics/overall-rating", tt.body)
		if rec.Code != tt.code {
			t.Errorf("%s: expected %d, got %d", tt.body, tt.code, rec.Code)
			continue
		}
		if tt.code != http.StatusOK {
			continue
		}
		var out struct {
			Overall    int `json:"overall"`
			Validation struct {
				Valid bool `json:"isValid"`
			} `json:"validation"`
		}
		decode(t, rec, &out)
		if out.Overall != tt.overall || out.Validation.Valid != tt.valid {
			t.Errorf("%s: expected overall %d valid %v, got %+v", tt.body, tt.overall, tt.valid, out)
		}
	}
}

func TestComputeVariance_RequiresCompleteInput(t *testing.T) {
	s := newTestServer(t)

	if rec := s.do(t, http.MethodPost, "/api/metrics/variance", `{"request":{"truckCount":2}}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without delivery, got %d", rec.Code)
	}
	body := `{"request":{"truckCount":2},"delivery":{"actualTruckCount":2}}`
	if rec := s.do(t, http.MethodPost, "/api/metrics/variance", body); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing fields, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPost, "/api/metrics/variance", `{`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed body, got %d", rec.Code)
	}
}

func TestGetDriverRatings_SortedWithLocalSummary(t *testing.T) {
	s := newTestServer(t)
	s.backend.on("GET /drivers/d-1", 200, `{"data":{"id":"d-1","name":"Ana","type":"transporter"}}`)
	s.backend.on("GET /drivers/d-1/ratings", 200, `{"data":[
		{"driverId":"d-1","overall":4,"punctuality":4,"deliveryDate":"2024-03-01"},
		{"driverId":"d-1","overall":5,"punctuality":5,"deliveryDate":"2024-03-03"},
		{"driverId":"d-1","overall":3,"punctuality":3,"deliveryDate":"2024-03-02"}
	]}`)

	rec := s.do(t, http.MethodGet, "/api/drivers/d-1/ratings?sort=rating", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Ratings []struct {
			Overall int `json:"overall"`
		} `json:"ratings"`
		Summary struct {
			AverageOverall float64 `json:"averageOverall"`
			TotalRatings   int     `json:"totalRatings"`
			Source         string  `json:"source"`
		} `json:"summary"`
		Criteria []map[string]interface{} `json:"criteria"`
	}
	decode(t, rec, &out)

	if len(out.Ratings) != 3 || out.Ratings[0].Overall != 5 || out.Ratings[2].Overall != 3 {
		t.Errorf("expected ratings sorted by overall, got %+v", out.Ratings)
	}
	if out.Summary.AverageOverall != 4 || out.Summary.TotalRatings != 3 || out.Summary.Source != "local" {
		t.Errorf("unexpected summary %+v", out.Summary)
	}
	if len(out.Criteria) != 4 {
		t.Errorf("expected the four transporter criteria, got %d", len(out.Criteria))
	}
}

func TestCreateDriver_ConflictIsNotifiedAndVisible(t *testing.T) {
	s := newTestServer(t)
	s.backend.on("POST /drivers", 409, `{"message":"Driver with this information already exists"}`)

	body := `{"name":"Ana","type":"transporter","transportCompany":"ACME","phone":"555-0100"}`
	rec := s.do(t, http.MethodPost, "/api/drivers", body)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}

	var list []map[string]interface{}
	decode(t, s.do(t, http.MethodGet, "/api/notifications", ""), &list)
	if len(list) == 0 || list[0]["type"] != "error" {
		t.Fatalf("expected an error notification, got %v", list)
	}

	if rec := s.do(t, http.MethodDelete, "/api/notifications", ""); rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if len(s.center.List()) != 0 {
		t.Error("expected notifications cleared")
	}
}

func TestNotifications_FilteredByUser(t *testing.T) {
	s := newTestServer(t)
	s.center.Publish(notifications.Notification{Type: notifications.TypeInfo, Message: "for everyone"})
	s.center.Publish(notifications.Notification{Type: notifications.TypeInfo, Message: "for u-2", UserID: "u-2"})

	var list []map[string]interface{}
	decode(t, s.do(t, http.MethodGet, "/api/notifications", ""), &list)
	if len(list) != 1 || list[0]["message"] != "for everyone" {
		t.Errorf("unexpected notifications for u-1: %v", list)
	}
	decode(t, s.doAs(t, "u-2", http.MethodGet, "/api/notifications", ""), &list)
	if len(list) != 2 {
		t.Errorf("expected both notifications for u-2, got %v", list)
	}
}

func TestSessionPreferences_PerUser(t *testing.T) {
	s := newTestServer(t)

	body := `{"theme":"dark","sidebarOpen":false,"filters":{"status":"delivered"},"requests":{"filters":{"status":"pending"},"viewMode":"grid"}}`
	rec := s.do(t, http.MethodPut, "/api/session/preferences", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var state SessionState
	decode(t, s.do(t, http.MethodGet, "/api/session/preferences", ""), &state)
	if state.UI.Theme != "dark" || state.UI.SidebarOpen || state.UI.Filters.Status != "delivered" {
		t.Errorf("unexpected ui preferences %+v", state.UI.Preferences)
	}
	if !state.HasActiveRequestFilters || state.Requests.ViewMode != store.ViewGrid {
		t.Errorf("unexpected requests preferences %+v", state.Requests)
	}

	decode(t, s.doAs(t, "u-2", http.MethodGet, "/api/session/preferences", ""), &state)
	if state.UI.Theme != "light" || !state.UI.SidebarOpen || state.HasActiveRequestFilters {
		t.Errorf("another user must start from defaults, got %+v", state)
	}
}

func TestSessionPreferences_RejectsInvalidValues(t *testing.T) {
	s := newTestServer(t)

	if rec := s.do(t, http.MethodPut, "/api/session/preferences", `{"viewMode":"carousel"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid view mode, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPut, "/api/session/preferences", `{"filters":{"color":"red"}}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown filter, got %d", rec.Code)
	}
}

func TestSessionDrivers_RatingFlow(t *testing.T) {
	s := newTestServer(t)

	var added store.SelectedDriver
	rec := s.do(t, http.MethodPost, "/api/session/drivers", `{"id":"d-1","name":"Ana","type":"transporter"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	decode(t, rec, &added)
	if added.TempID == "" || added.Rating.Overall != 0 {
		t.Fatalf("expected temp id and empty rating, got %+v", added)
	}

	var d store.SelectedDriver
	decode(t, s.do(t, http.MethodPatch, "/api/session/drivers/d-1/rating", `{"criterion":"punctuality","value":5}`), &d)
	decode(t, s.do(t, http.MethodPatch, "/api/session/drivers/"+added.TempID+"/rating", `{"criterion":"professionalism","value":3,"comments":"late paperwork"}`), &d)
	if d.Rating.Overall != 4 || d.Rating.Comments != "late paperwork" {
		t.Errorf("expected overall 4 with comment, got %+v", d.Rating)
	}

	if rec := s.do(t, http.MethodPatch, "/api/session/drivers/d-1/rating", `{"criterion":"speed","value":5}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for an unknown criterion, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPatch, "/api/session/drivers/d-1/rating", `{"criterion":"punctuality","value":9}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for out of range value, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodPatch, "/api/session/drivers/missing/rating", `{"criterion":"punctuality","value":1}`); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unselected driver, got %d", rec.Code)
	}

	var list []store.SelectedDriver
	decode(t, s.do(t, http.MethodDelete, "/api/session/drivers/d-1", ""), &list)
	if len(list) != 0 {
		t.Errorf("expected selection empty after remove, got %+v", list)
	}
}

func TestOverview_PartialAndTotalFailure(t *testing.T) {
	s := newTestServer(t)
	s.backend.on("GET /dashboard/kpi", 500, `{}`)
	s.backend.on("GET /dashboard/trends", 200, `{"data":[{"date":"2024-03-24","onTime":93}]}`)
	s.backend.on("GET /dashboard/ai-insights", 200, `{"data":[]}`)
	s.backend.on("GET /dashboard/transporter-comparison", 200, `{"data":[{"company":"ACME","score":88}]}`)

	rec := s.do(t, http.MethodGet, "/api/dashboard/overview?startDate=2024-03-01&endDate=2024-03-31", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected partial overview to succeed, got %d: %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Label  string            `json:"label"`
		Errors map[string]string `json:"errors"`
	}
	decode(t, rec, &out)
	if out.Label != "Last 30 days" || out.Errors["kpis"] == "" || len(out.Errors) != 1 {
		t.Errorf("unexpected overview %+v", out)
	}

	for _, route := range []string{"GET /dashboard/trends", "GET /dashboard/ai-insights", "GET /dashboard/transporter-comparison"} {
		s.backend.on(route, 500, `{}`)
	}
	s.cache.Invalidate(queries.DashboardKey)
	rec = s.do(t, http.MethodGet, "/api/dashboard/overview?startDate=2024-03-01&endDate=2024-03-31", "")
	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected 502 when every section fails, got %d", rec.Code)
	}
}

func TestDashboardRange_Validation(t *testing.T) {
	s := newTestServer(t)
	s.backend.on("GET /dashboard/kpi", 200, `{"data":[]}`)

	if rec := s.do(t, http.MethodGet, "/api/dashboard/kpi?startDate=2024-03-31&endDate=2024-03-01", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for inverted range, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/api/dashboard/kpi?days=zero", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid days, got %d", rec.Code)
	}

	now = func() time.Time { return time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC) }
	defer func() { now = time.Now }()
	rec := s.do(t, http.MethodGet, "/api/dashboard/kpi", "")
	env := decode(t, rec, nil)
	if rec.Code != http.StatusOK || env.Label != "Last 7 days" {
		t.Errorf("expected default last 7 days, got %d %q", rec.Code, env.Label)
	}
	if s.backend.lastQuery["startDate"] != "2024-03-24" || s.backend.lastQuery["endDate"] != "2024-03-31" {
		t.Errorf("unexpected backend range %v", s.backend.lastQuery)
	}
}

func TestExportTransporters(t *testing.T) {
	s := newTestServer(t)
	s.backend.on("GET /dashboard/transporter-comparison", 200, `{"data":[{"company":"ACME","totalDeliveries":14,"score":88.5}]}`)

	rec := s.do(t, http.MethodGet, "/api/exports/transporters.xlsx?startDate=2024-03-01&endDate=2024-03-31", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), "transporters-2024-03-01_2024-03-31.xlsx") {
		t.Errorf("unexpected disposition %q", rec.Header().Get("Content-Disposition"))
	}
	f, err := excelize.OpenReader(rec.Body)
	if err != nil {
		t.Fatalf("invalid workbook: %v", err)
	}
	defer f.Close()
	rows, _ := f.GetRows("Transporters")
	if len(rows) != 2 || rows[1][0] != "ACME" {
		t.Errorf("unexpected rows %v", rows)
	}
}

func TestCacheStats(t *testing.T) {
	s := newTestServer(t)
	s.backend.on("GET /drivers/stats", 200, `{"data":{"total":12}}`)

	s.do(t, http.MethodGet, "/api/drivers/stats", "")
	s.do(t, http.MethodGet, "/api/drivers/stats", "")
	if n := s.backend.count("GET /drivers/stats"); n != 1 {
		t.Errorf("expected cached stats, got %d backend calls", n)
	}

	var stats map[string]interface{}
	decode(t, s.do(t, http.MethodGet, "/api/cache/stats", ""), &stats)
	if stats["hits"] != float64(1) || stats["misses"] != float64(1) {
		t.Errorf("unexpected cache stats %v", stats)
	}
}
