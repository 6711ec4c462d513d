package nav

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const osrmRouteBody = `{
	"code": "Ok",
	"routes": [{
		"legs": [{
			"steps": [
				{"name": "Main Street", "distance": 120.4,
				 "maneuver": {"type": "depart", "modifier": "straight"}},
				{"name": "Oak Avenue", "distance": 80.0,
				 "maneuver": {"type": "turn", "modifier": "left"}},
				{"name": "", "distance": 0,
				 "maneuver": {"type": "arrive", "modifier": ""}}
			]
		}]
	}]
}`

func TestOSRMRouter_Route(t *testing.T) {
	var gotPath, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Write([]byte(osrmRouteBody))
	}))
	defer srv.Close()

	router := NewOSRMRouter(srv.URL)
	steps, err := router.Route(context.Background(),
		Point{Lat: 52.5, Lon: 13.4}, Point{Lat: 52.52, Lon: 13.41})
	if err != nil {
		t.Fatalf("Route() = %v", err)
	}

	if !strings.HasPrefix(gotPath, "/route/v1/foot/") {
		t.Errorf("path = %q, want the foot profile", gotPath)
	}
	if !strings.Contains(gotQuery, "steps=true") {
		t.Errorf("query = %q, want steps=true", gotQuery)
	}

	want := []Step{
		{Instruction: "Head straight onto Main Street for 120 meters", DistanceM: 120.4},
		{Instruction: "Turn left onto Oak Avenue for 80 meters", DistanceM: 80},
		{Instruction: "You have arrived at your destination", DistanceM: 0},
	}
	if len(steps) != len(want) {
		t.Fatalf("got %d steps, want %d", len(steps), len(want))
	}
	for i := range want {
		if steps[i] != want[i] {
			t.Errorf("steps[%d] = %+v, want %+v", i, steps[i], want[i])
		}
	}
}

func TestOSRMRouter_Errors(t *testing.T) {
	t.Run("no route code", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"code": "NoRoute", "routes": []}`))
		}))
		defer srv.Close()

		_, err := NewOSRMRouter(srv.URL).Route(context.Background(), Point{}, Point{})
		if !errors.Is(err, ErrNoRoute) {
			t.Errorf("err = %v, want ErrNoRoute", err)
		}
	})

	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		_, err := NewOSRMRouter(srv.URL).Route(context.Background(), Point{}, Point{})
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("err = %v, want *APIError", err)
		}
		if apiErr.Service != "routing" || apiErr.Status != http.StatusInternalServerError {
			t.Errorf("apiErr = %+v", apiErr)
		}
	})
}

func TestNominatimGeocoder_Geocode(t *testing.T) {
	t.Run("resolves a query", func(t *testing.T) {
		var gotAgent, gotQuery string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAgent = r.Header.Get("User-Agent")
			gotQuery = r.URL.Query().Get("q")
			w.Write([]byte(`[{"lat": "52.5200", "lon": "13.4050"}]`))
		}))
		defer srv.Close()

		p, err := NewNominatimGeocoder(srv.URL).Geocode(context.Background(), "central pharmacy")
		if err != nil {
			t.Fatalf("Geocode() = %v", err)
		}
		if p.Lat != 52.52 || p.Lon != 13.405 {
			t.Errorf("point = %+v", p)
		}
		if gotQuery != "central pharmacy" {
			t.Errorf("query = %q", gotQuery)
		}
		if gotAgent == "" {
			t.Error("request carried no User-Agent; Nominatim requires one")
		}
	})

	t.Run("no results", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`[]`))
		}))
		defer srv.Close()

		_, err := NewNominatimGeocoder(srv.URL).Geocode(context.Background(), "xyzzy")
		if !errors.Is(err, ErrNoRoute) {
			t.Errorf("err = %v, want ErrNoRoute", err)
		}
	})

	t.Run("rate limited", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		_, err := NewNominatimGeocoder(srv.URL).Geocode(context.Background(), "pharmacy")
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("err = %v, want *APIError", err)
		}
		if apiErr.Service != "geocoding" || apiErr.Status != http.StatusTooManyRequests {
			t.Errorf("apiErr = %+v", apiErr)
		}
	})
}
