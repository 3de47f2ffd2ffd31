package services

import (
	"context"

	"agri-advisor/internal/logger"
	"agri-advisor/internal/models"
)

// TelemetryWriter is the part of the telemetry store used for ingest
type TelemetryWriter interface {
	SaveReading(ctx context.Context, reading *models.SensorReading) error
	UpsertDevice(ctx context.Context, device *models.Device) error
}

// DeviceTracker is notified of every device that reports telemetry
type DeviceTracker interface {
	RegisterDevice(deviceID string)
}

// TelemetryService persists readings delivered by the MQTT subscriber
type TelemetryService struct {
	store   TelemetryWriter
	tracker DeviceTracker

	// Input channel from MQTT subscriber
	TelemetryChan chan *models.SensorReading
}

// TelemetryServiceConfig holds configuration for telemetry service
type TelemetryServiceConfig struct {
	ChannelSize int
}

// DefaultTelemetryServiceConfig returns default configuration
func DefaultTelemetryServiceConfig() TelemetryServiceConfig {
	return TelemetryServiceConfig{
		ChannelSize: 100,
	}
}

// NewTelemetryService creates a new telemetry service. tracker may be nil.
func NewTelemetryService(store TelemetryWriter, tracker DeviceTracker, config TelemetryServiceConfig) *TelemetryService {
	return &TelemetryService{
		store:         store,
		tracker:       tracker,
		TelemetryChan: make(chan *models.SensorReading, config.ChannelSize),
	}
}

// Start processes readings until the context is cancelled or the channel closes
func (s *TelemetryService) Start(ctx context.Context) {
	logger.Println("TelemetryService: Starting...")

	for {
		select {
		case <-ctx.Done():
			logger.Println("TelemetryService: Shutting down...")
			return
		case reading, ok := <-s.TelemetryChan:
			if !ok {
				logger.Println("TelemetryService: Channel closed, shutting down...")
				return
			}
			s.process(ctx, reading)
		}
	}
}

// process handles a single reading
func (s *TelemetryService) process(ctx context.Context, reading *models.SensorReading) {
	if err := s.store.SaveReading(ctx, reading); err != nil {
		logger.Errorf("TelemetryService: Error saving reading from %s: %v", reading.DeviceID, err)
		return
	}

	logger.Debugf("TelemetryService: Saved reading: device=%s, soil=%.2f%%, temp=%.2f°C",
		reading.DeviceID, reading.SoilMoisture, reading.Temperature)

	s.registerDevice(ctx, reading)
}

// registerDevice auto-registers a device and refreshes its last_seen time
func (s *TelemetryService) registerDevice(ctx context.Context, reading *models.SensorReading) {
	device := &models.Device{
		DeviceID:     reading.DeviceID,
		SensorType:   reading.SensorType,
		RegisteredAt: reading.Timestamp,
		LastSeen:     reading.Timestamp,
	}

	// Best effort - don't fail if registration fails
	if err := s.store.UpsertDevice(ctx, device); err != nil {
		logger.Warnf("TelemetryService: Error registering device %s: %v", reading.DeviceID, err)
	}

	if s.tracker != nil {
		s.tracker.RegisterDevice(reading.DeviceID)
	}
}
