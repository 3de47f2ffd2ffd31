// Package simulator produces synthetic field telemetry for local testing
// of the ingest and advisory pipeline.
package simulator

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"agri-advisor/internal/logger"
	"agri-advisor/internal/models"
)

// TimestampLayout matches the zone-less ISO format the field gateways emit
const TimestampLayout = "2006-01-02T15:04:05.000000"

// Device is a simulated sensor node
type Device struct {
	ID         string
	SensorType string
}

// DefaultDevices mirrors the reference field deployment
var DefaultDevices = []Device{
	{ID: "SOIL-001", SensorType: models.SensorTypeSoilMoisture},
	{ID: "DHT-001", SensorType: models.SensorTypeAirHumidityTemperature},
	{ID: "LIGHT-001", SensorType: models.SensorTypeLightIntensity},
}

// ParseDevices reads "ID:TYPE" pairs separated by commas. A bare ID gets
// its type from the ID prefix.
func ParseDevices(list string) ([]Device, error) {
	var devices []Device
	for _, item := range strings.Split(list, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		id, sensorType, found := strings.Cut(item, ":")
		if !found {
			sensorType = typeFromID(id)
		}
		if id == "" || sensorType == "" {
			return nil, fmt.Errorf("invalid device %q, expected ID:TYPE", item)
		}
		devices = append(devices, Device{ID: id, SensorType: sensorType})
	}
	if len(devices) == 0 {
		return nil, fmt.Errorf("no devices given")
	}
	return devices, nil
}

func typeFromID(id string) string {
	switch {
	case strings.HasPrefix(id, "SOIL"):
		return models.SensorTypeSoilMoisture
	case strings.HasPrefix(id, "DHT"):
		return models.SensorTypeAirHumidityTemperature
	case strings.HasPrefix(id, "LIGHT"):
		return models.SensorTypeLightIntensity
	}
	return ""
}

// Generate builds one full payload for a device at local time now. Every
// device reports every field.
func Generate(d Device, now time.Time, rng *rand.Rand) *models.TelemetryPayload {
	hour := now.Hour()

	temp := 25.0 + float64(hour-12)*0.5 + uniform(rng, -1, 1)
	humidity := 70.0 + uniform(rng, -5, 5)
	soil := math.Max(20, 75-float64(now.Minute())*0.8+uniform(rng, -2, 2))

	var light float64
	if hour >= 7 && hour < 18 {
		light = uniform(rng, 15000, 45000)
	} else {
		light = uniform(rng, 10, 100)
	}
	ph := 6.5 + uniform(rng, -0.1, 0.1)

	return &models.TelemetryPayload{
		DeviceID:       d.ID,
		SensorType:     d.SensorType,
		Temperature:    round2(temp),
		Humidity:       round2(humidity),
		SoilMoisture:   round2(soil),
		LightIntensity: math.Round(light),
		PH:             round2(ph),
		Timestamp:      now.Format(TimestampLayout),
	}
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// TelemetryPublisher sends one payload to the broker
type TelemetryPublisher interface {
	PublishTelemetry(payload *models.TelemetryPayload) error
}

// Runner publishes a payload for every device on each tick
type Runner struct {
	publisher TelemetryPublisher
	devices   []Device
	interval  time.Duration
	rng       *rand.Rand

	now func() time.Time
}

// NewRunner creates a simulator loop
func NewRunner(publisher TelemetryPublisher, devices []Device, interval time.Duration, seed int64) *Runner {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Runner{
		publisher: publisher,
		devices:   devices,
		interval:  interval,
		rng:       rand.New(rand.NewSource(seed)),
		now:       time.Now,
	}
}

// Start publishes immediately and then on every interval until ctx is done
func (r *Runner) Start(ctx context.Context) {
	logger.Printf("Simulator: Publishing %d devices every %v", len(r.devices), r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.PublishRound()

	for {
		select {
		case <-ctx.Done():
			logger.Println("Simulator: Stopping...")
			return
		case <-ticker.C:
			r.PublishRound()
		}
	}
}

// PublishRound sends one payload per device and returns how many succeeded
func (r *Runner) PublishRound() int {
	sent := 0
	for _, d := range r.devices {
		payload := Generate(d, r.now(), r.rng)
		if err := r.publisher.PublishTelemetry(payload); err != nil {
			logger.Errorf("Simulator: Failed to publish for %s: %v", d.ID, err)
			continue
		}
		logger.Printf("Simulator: Published telemetry for %s (soil=%.2f%%, temp=%.2f°C)",
			d.ID, payload.SoilMoisture, payload.Temperature)
		sent++
	}
	return sent
}
