package weather

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"agri-advisor/internal/models"
)

func newForecastServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/forecast" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("appid") != "test-key" || q.Get("units") != "metric" {
			t.Errorf("Unexpected query %s", r.URL.RawQuery)
		}
		if q.Get("lat") != "21.0285" || q.Get("lon") != "105.8542" {
			t.Errorf("Unexpected coordinates %s", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestForecast(baseURL string, timeout time.Duration) *OpenWeatherForecast {
	return NewOpenWeatherForecast(OpenWeatherConfig{
		APIKey:          "test-key",
		BaseURL:         baseURL,
		RainThresholdMM: 2.0,
		Timeout:         timeout,
	})
}

func TestFetchForecast(t *testing.T) {
	tests := []struct {
		name string
		body string
		want models.WeatherSignal
	}{
		{
			"heavy rain in first bucket",
			`{"list": [{"dt": 1, "rain": {"3h": 3.5}}, {"dt": 2}]}`,
			models.WeatherSignal{RainMM: 3.5, WillRainSoon: true},
		},
		{
			"light rain then dry",
			`{"list": [{"dt": 1, "rain": {"3h": 1.0}}, {"dt": 2}]}`,
			models.WeatherSignal{},
		},
		{
			"heavy rain in second bucket",
			`{"list": [{"dt": 1}, {"dt": 2, "rain": {"3h": 4.2}}]}`,
			models.WeatherSignal{RainMM: 4.2, WillRainSoon: true},
		},
		{
			"rain beyond lookahead is ignored",
			`{"list": [{"dt": 1}, {"dt": 2}, {"dt": 3, "rain": {"3h": 10}}]}`,
			models.WeatherSignal{},
		},
		{
			"exactly at threshold",
			`{"list": [{"dt": 1, "rain": {"3h": 2.0}}]}`,
			models.WeatherSignal{},
		},
		{
			"rain object without 3h key",
			`{"list": [{"dt": 1, "rain": {"1h": 5.0}}]}`,
			models.WeatherSignal{},
		},
		{
			"empty list",
			`{"list": []}`,
			models.WeatherSignal{},
		},
		{
			"malformed body",
			`{"list": [`,
			models.WeatherSignal{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newForecastServer(t, tt.body)
			p := newTestForecast(srv.URL, time.Second)

			got := p.FetchForecast(context.Background(), 21.0285, 105.8542)
			if got != tt.want {
				t.Errorf("Expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestFetchForecastTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		fmt.Fprint(w, `{"list": [{"rain": {"3h": 9.9}}]}`)
	}))
	defer srv.Close()

	p := newTestForecast(srv.URL, 50*time.Millisecond)

	start := time.Now()
	got := p.FetchForecast(context.Background(), 21.0285, 105.8542)
	if got != (models.WeatherSignal{}) {
		t.Errorf("Expected no rain on timeout, got %+v", got)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Timeout not honored, took %v", elapsed)
	}
}

func TestFetchForecastContextDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	p := newTestForecast(srv.URL, 5*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if got := p.FetchForecast(ctx, 21.0285, 105.8542); got.WillRainSoon {
		t.Errorf("Expected no rain on deadline, got %+v", got)
	}
}

func TestFetchForecastErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := newTestForecast(srv.URL, time.Second)
	if got := p.FetchForecast(context.Background(), 21.0285, 105.8542); got != (models.WeatherSignal{}) {
		t.Errorf("Expected no rain on 401, got %+v", got)
	}
}

func TestFetchForecastWithoutKeySkipsRequest(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	p := NewOpenWeatherForecast(OpenWeatherConfig{BaseURL: srv.URL, RainThresholdMM: 2.0})

	if p.IsAvailable() {
		t.Error("Provider without key should not be available")
	}
	if got := p.FetchForecast(context.Background(), 0, 0); got != (models.WeatherSignal{}) {
		t.Errorf("Expected no rain without key, got %+v", got)
	}
	if atomic.LoadInt32(&calls) != 0 {
		t.Error("No request should be sent without an API key")
	}
}
