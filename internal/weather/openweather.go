package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"agri-advisor/internal/logger"
	"agri-advisor/internal/models"
)

const (
	defaultBaseURL = "https://api.openweathermap.org/data/2.5"
	// Forecast entries are 3-hour buckets; the first two cover the next ~6 hours.
	lookaheadEntries = 2
)

// Forecaster returns a short-term rain signal for a location
type Forecaster interface {
	FetchForecast(ctx context.Context, lat, lon float64) models.WeatherSignal
}

// OpenWeatherConfig holds forecast adapter settings
type OpenWeatherConfig struct {
	APIKey          string
	BaseURL         string
	RainThresholdMM float64
	Timeout         time.Duration
}

// OpenWeatherForecast reads the OpenWeatherMap 5 day / 3 hour forecast
type OpenWeatherForecast struct {
	apiKey          string
	baseURL         string
	rainThresholdMM float64
	client          *http.Client
}

// NewOpenWeatherForecast creates a forecast adapter
func NewOpenWeatherForecast(cfg OpenWeatherConfig) *OpenWeatherForecast {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &OpenWeatherForecast{
		apiKey:          cfg.APIKey,
		baseURL:         baseURL,
		rainThresholdMM: cfg.RainThresholdMM,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// IsAvailable reports whether an API key is configured
func (p *OpenWeatherForecast) IsAvailable() bool {
	return p.apiKey != ""
}

// FetchForecast never fails: any error degrades to "no rain expected" so
// irrigation decisions are not blocked by the weather service.
func (p *OpenWeatherForecast) FetchForecast(ctx context.Context, lat, lon float64) models.WeatherSignal {
	if !p.IsAvailable() {
		logger.Warnf("Weather: no OpenWeatherMap API key configured, skipping forecast check")
		return models.WeatherSignal{}
	}

	signal, err := p.fetch(ctx, lat, lon)
	if err != nil {
		logger.Warnf("Weather: forecast unavailable, assuming no rain: %v", err)
		return models.WeatherSignal{}
	}
	return signal
}

type forecastResponse struct {
	List []struct {
		Dt   int64 `json:"dt"`
		Rain *struct {
			ThreeHour *float64 `json:"3h"`
		} `json:"rain"`
	} `json:"list"`
}

func (p *OpenWeatherForecast) fetch(ctx context.Context, lat, lon float64) (models.WeatherSignal, error) {
	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	query.Set("appid", p.apiKey)
	query.Set("units", "metric")

	reqURL := fmt.Sprintf("%s/forecast?%s", p.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return models.WeatherSignal{}, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return models.WeatherSignal{}, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusUnauthorized {
			return models.WeatherSignal{}, fmt.Errorf("invalid API key")
		}
		return models.WeatherSignal{}, fmt.Errorf("API error: status %d", resp.StatusCode)
	}

	var result forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return models.WeatherSignal{}, fmt.Errorf("failed to parse forecast JSON: %w", err)
	}

	return p.evaluate(&result), nil
}

// evaluate returns the first lookahead entry whose rain exceeds the threshold
func (p *OpenWeatherForecast) evaluate(result *forecastResponse) models.WeatherSignal {
	entries := result.List
	if len(entries) > lookaheadEntries {
		entries = entries[:lookaheadEntries]
	}

	for _, entry := range entries {
		if entry.Rain == nil || entry.Rain.ThreeHour == nil {
			continue
		}
		if rain := *entry.Rain.ThreeHour; rain > p.rainThresholdMM {
			return models.WeatherSignal{RainMM: rain, WillRainSoon: true}
		}
	}
	return models.WeatherSignal{}
}
