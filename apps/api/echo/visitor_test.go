package echoapi

import (
	"net/http"
	"testing"

	"github.com/trezcool/duka/core/stats"
	"github.com/trezcool/duka/core/visitor"
)

func TestVisitorAPIFlow(t *testing.T) {
	srv, _ := newTestServer(t)
	apiKey := apiKeyScheme + " " + testAPIKey

	// record a visit with a GeoJSON-style coordinates pair
	body := []byte(`{
		"ip_address": "203.0.113.7",
		"name": "Asha",
		"referrer": "https://duckduckgo.com",
		"location": {"country": "Kenya", "city": "Nairobi", "country_code": "KE", "coordinates": [10, 20]}
	}`)
	req, rec := newAuthRequest(http.MethodPost, "/v1/visitors", apiKey, body)
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /visitors code = %d, want 201; body %s", rec.Code, rec.Body.String())
	}

	var v visitor.Visitor
	unmarchallObj(t, rec.Body.Bytes(), &v)
	if v.VisitCount != 1 || v.Browser != "Chrome" || v.OS != "Windows" || v.DeviceInfo != "Desktop" {
		t.Errorf("unexpected visitor: %+v", v)
	}
	// the pair is [longitude, latitude]; scalars must be derived from it
	if v.Location == nil || v.Location.Latitude == nil || *v.Location.Latitude != 20 || *v.Location.Longitude != 10 {
		t.Fatalf("location not normalized: %+v", v.Location)
	}

	// a second visit increments the count and keeps the stored location
	req, rec = newAuthRequest(http.MethodPost, "/v1/visitors", apiKey, []byte(`{"ip_address": "203.0.113.7"}`))
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /visitors code = %d, want 201; body %s", rec.Code, rec.Body.String())
	}
	unmarchallObj(t, rec.Body.Bytes(), &v)
	if v.VisitCount != 2 {
		t.Errorf("VisitCount = %d, want 2", v.VisitCount)
	}
	if v.Location == nil || v.Location.City != "Nairobi" {
		t.Errorf("stored location lost: %+v", v.Location)
	}

	// lookup by IP
	req, rec = newAuthRequest(http.MethodGet, "/v1/visitors/ip/203.0.113.7", apiKey)
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /visitors/ip code = %d, want 200", rec.Code)
	}
	unmarchallObj(t, rec.Body.Bytes(), &v)

	// an admin edit with scalar coordinates rederives the pair; the
	// location DTO replaces the stored location wholesale
	req, rec = newAuthRequest(http.MethodPut, "/v1/visitors/"+v.ID, apiKey,
		[]byte(`{"location": {"country": "Kenya", "city": "Nairobi", "country_code": "KE", "latitude": 30, "longitude": 40}}`))
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT /visitors/:id code = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	unmarchallObj(t, rec.Body.Bytes(), &v)
	if len(v.Location.Coordinates) != 2 || v.Location.Coordinates[0] != 40 || v.Location.Coordinates[1] != 30 {
		t.Errorf("Coordinates = %v, want [40 30]", v.Location.Coordinates)
	}
	if v.VisitCount != 2 {
		t.Errorf("VisitCount bumped by edit: %d", v.VisitCount)
	}

	// paginated listing
	req, rec = newAuthRequest(http.MethodGet, "/v1/visitors?page=1&limit=10", apiKey)
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /visitors code = %d, want 200", rec.Code)
	}
	var page visitor.Page
	unmarchallObj(t, rec.Body.Bytes(), &page)
	if len(page.Visitors) != 1 || page.TotalPages != 1 || page.CurrentPage != 1 {
		t.Errorf("unexpected page: %+v", page)
	}

	// geography aggregation
	req, rec = newAuthRequest(http.MethodGet, "/v1/visitors/geography", apiKey)
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /visitors/geography code = %d, want 200", rec.Code)
	}
	var counts []visitor.CountryCount
	unmarchallObj(t, rec.Body.Bytes(), &counts)
	if len(counts) != 1 || counts[0].ID != "KE" || counts[0].Value != 2 {
		t.Errorf("counts = %+v, want [{KE 2}]", counts)
	}

	// map markers
	req, rec = newAuthRequest(http.MethodGet, "/v1/visitors/map", apiKey)
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /visitors/map code = %d, want 200", rec.Code)
	}
	var points []visitor.MapPoint
	unmarchallObj(t, rec.Body.Bytes(), &points)
	if len(points) != 1 || points[0].Latitude != 30 || points[0].Longitude != 40 {
		t.Errorf("points = %+v", points)
	}

	// dashboard statistics; both recorded visits touched the same session
	req, rec = newAuthRequest(http.MethodGet, "/v1/visitors/statistics", apiKey)
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /visitors/statistics code = %d, want 200", rec.Code)
	}
	var totals stats.Totals
	unmarchallObj(t, rec.Body.Bytes(), &totals)
	if totals.TotalVisitors != 1 || totals.ActiveVisitors != 1 {
		t.Errorf("totals = %+v", totals)
	}

	// delete, then the record is gone from reads
	req, rec = newAuthRequest(http.MethodDelete, "/v1/visitors/"+v.ID, apiKey)
	srv.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("DELETE /visitors/:id code = %d, want 204", rec.Code)
	}

	tests := []httpTest{
		{
			name: "deleted visitor not found by IP", method: http.MethodGet, path: "/v1/visitors/ip/203.0.113.7",
			auth: apiKey, wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Message: "visitor not found"}),
		},
		{
			name: "delete is not idempotent", method: http.MethodDelete, path: "/v1/visitors/" + v.ID,
			auth: apiKey, wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Message: "visitor not found"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.auth, tt.body)
			srv.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func TestVisitorAPIValidation(t *testing.T) {
	srv, _ := newTestServer(t)
	apiKey := apiKeyScheme + " " + testAPIKey

	tests := []httpTest{
		{
			name: "missing ip address", method: http.MethodPost, path: "/v1/visitors", auth: apiKey,
			body:     []byte(`{"name": "Asha"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"ip_address": "this field is required"}),
		},
		{
			name: "hostname is not an ip address", method: http.MethodPost, path: "/v1/visitors", auth: apiKey,
			body:     []byte(`{"ip_address": "duka.example.com"}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"ip_address": "must be a valid IP address"}),
		},
		{
			name: "latitude out of range", method: http.MethodPost, path: "/v1/visitors", auth: apiKey,
			body:     []byte(`{"ip_address": "203.0.113.11", "location": {"latitude": 95, "longitude": 10}}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"latitude": "must be a valid latitude (-90 to 90)"}),
		},
		{
			name: "longitude out of range", method: http.MethodPost, path: "/v1/visitors", auth: apiKey,
			body:     []byte(`{"ip_address": "203.0.113.11", "location": {"latitude": 10, "longitude": 200}}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"longitude": "must be a valid longitude (-180 to 180)"}),
		},
		{
			name: "zero visit count rejected", method: http.MethodPost, path: "/v1/visitors", auth: apiKey,
			body:     []byte(`{"ip_address": "203.0.113.9", "visit_count": 0, "name": ""}`),
			wantCode: http.StatusCreated, // zero means "not provided", defaults to 1
		},
		{
			name: "negative visit count rejected", method: http.MethodPost, path: "/v1/visitors", auth: apiKey,
			body:     []byte(`{"ip_address": "203.0.113.9", "visit_count": -2}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "malformed coordinates are dropped not rejected", method: http.MethodPost, path: "/v1/visitors", auth: apiKey,
			body:     []byte(`{"ip_address": "203.0.113.10", "location": {"latitude": "garbage", "longitude": []}}`),
			wantCode: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.auth, tt.body)
			srv.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
