package prediction

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/safecity/dispatch/internal/shared/config"
	"github.com/safecity/dispatch/internal/shared/errors"
)

func testClient(url string) *Client {
	return NewClient(config.PredictionConfig{
		URL:     url,
		Enabled: true,
		Timeout: 2 * time.Second,
	})
}

func TestHotspots(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/hotspots" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("city"); got != "novigrad" {
			t.Errorf("unexpected city %q", got)
		}
		if got := r.URL.Query().Get("threshold"); got != "0.7" {
			t.Errorf("unexpected threshold %q", got)
		}

		json.NewEncoder(w).Encode(hotspotsResponse{
			City: "novigrad",
			Hotspots: []Hotspot{
				{Latitude: 45.25, Longitude: 19.84, District: "north", RiskScore: 0.91},
			},
		})
	}))
	defer srv.Close()

	hotspots, err := testClient(srv.URL).Hotspots(context.Background(), "novigrad", 0.7, "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(hotspots) != 1 {
		t.Fatalf("expected 1 hotspot, got %d", len(hotspots))
	}
	if hotspots[0].RiskScore != 0.91 {
		t.Errorf("unexpected risk score %v", hotspots[0].RiskScore)
	}
}

func TestForecast(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/predictions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(forecastResponse{
			City: "novigrad",
			Predictions: []Forecast{
				{District: "west", Window: "7d", Predicted: 14},
			},
		})
	}))
	defer srv.Close()

	forecasts, err := testClient(srv.URL).Forecast(context.Background(), "novigrad", "7d")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(forecasts) != 1 || forecasts[0].District != "west" {
		t.Errorf("unexpected forecasts %+v", forecasts)
	}
}

func TestServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Statistics(context.Background(), "novigrad")
	if !errors.Is(err, errors.ErrUnavailable) {
		t.Fatalf("expected Unavailable, got %v", err)
	}
}

func TestUnreachableServiceIsUnavailable(t *testing.T) {
	_, err := testClient("http://127.0.0.1:1").Statistics(context.Background(), "novigrad")
	if !errors.Is(err, errors.ErrUnavailable) {
		t.Fatalf("expected Unavailable, got %v", err)
	}
}

func TestTrainIsNotRetried(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).Train(context.Background(), TrainRequest{City: "novigrad"})
	if !errors.Is(err, errors.ErrUnavailable) {
		t.Fatalf("expected Unavailable, got %v", err)
	}
	if calls != 1 {
		t.Errorf("train must not be retried, saw %d calls", calls)
	}
}

func TestReadRetryOnServerError(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			http.Error(w, "transient", http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(Statistics{City: "novigrad", TotalCrimes: 120})
	}))
	defer srv.Close()

	stats, err := testClient(srv.URL).Statistics(context.Background(), "novigrad")
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if stats.TotalCrimes != 120 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if calls < 2 {
		t.Errorf("expected a retry, saw %d calls", calls)
	}
}
