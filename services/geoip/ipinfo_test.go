package geoipsvc

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/trezcool/duka/core"
)

func newTestService(t *testing.T, handler http.HandlerFunc) *IPInfoService {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	origHost := ipinfoHost
	ipinfoHost = ts.URL
	t.Cleanup(func() { ipinfoHost = origHost })

	return NewIPInfoService(&core.Config{
		GeoIP: core.GeoIPConfig{IPInfoToken: "test-token", Timeout: time.Second},
	})
}

func TestLookupIP(t *testing.T) {
	t.Run("successful lookup", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("token"); got != "test-token" {
				t.Errorf("token = %q, want %q", got, "test-token")
			}
			fmt.Fprint(w, `{"ip": "8.8.8.8", "city": "Mountain View", "region": "California", "country": "US", "loc": "37.4056,-122.0775"}`)
		})

		loc, err := svc.LookupIP(context.Background(), "8.8.8.8")
		if err != nil {
			t.Fatalf("LookupIP() failed: %v", err)
		}
		if loc.City != "Mountain View" || loc.CountryCode != "US" {
			t.Errorf("unexpected location: %+v", loc)
		}
		if loc.Latitude == nil || *loc.Latitude != 37.4056 || *loc.Longitude != -122.0775 {
			t.Errorf("coordinates not parsed: %+v", loc)
		}
	})

	t.Run("missing loc still yields city and country", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"ip": "8.8.8.8", "city": "Mountain View", "country": "US"}`)
		})

		loc, err := svc.LookupIP(context.Background(), "8.8.8.8")
		if err != nil {
			t.Fatalf("LookupIP() failed: %v", err)
		}
		if loc.City != "Mountain View" || loc.Latitude != nil {
			t.Errorf("unexpected location: %+v", loc)
		}
	})

	t.Run("error status", func(t *testing.T) {
		svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})

		if _, err := svc.LookupIP(context.Background(), "8.8.8.8"); err == nil {
			t.Error("LookupIP() expected an error")
		}
	})
}
