// Package aggregator buffers recent telemetry per device in process memory.
// It backs the "memory" storage driver for single-node deployments and
// local runs against the simulator.
package aggregator

import (
	"context"
	"sort"
	"sync"
	"time"

	"agri-advisor/internal/logger"
	"agri-advisor/internal/models"
)

// Config bounds how much history is kept per device
type Config struct {
	Retention     time.Duration
	MaxReadings   int
	MaxAdvisories int
}

// DefaultConfig keeps three days of readings, enough for the rule
// duration windows.
func DefaultConfig() Config {
	return Config{
		Retention:     72 * time.Hour,
		MaxReadings:   50000,
		MaxAdvisories: 100,
	}
}

// DeviceState holds the buffered history of one device
type DeviceState struct {
	device     models.Device
	readings   []models.SensorReading // oldest first
	advisories []models.Advisory
	mu         sync.RWMutex
}

// SensorAggregator is an in-memory telemetry store
type SensorAggregator struct {
	devices map[string]*DeviceState
	config  Config
	mu      sync.RWMutex

	now func() time.Time
}

// NewSensorAggregator creates a new sensor aggregator
func NewSensorAggregator(config Config) *SensorAggregator {
	defaults := DefaultConfig()
	if config.Retention <= 0 {
		config.Retention = defaults.Retention
	}
	if config.MaxReadings <= 0 {
		config.MaxReadings = defaults.MaxReadings
	}
	if config.MaxAdvisories <= 0 {
		config.MaxAdvisories = defaults.MaxAdvisories
	}
	logger.Printf("SensorAggregator: Buffering %v of telemetry per device in memory", config.Retention)
	return &SensorAggregator{
		devices: make(map[string]*DeviceState),
		config:  config,
		now:     time.Now,
	}
}

// getOrCreateDevice gets or creates a device state
func (sa *SensorAggregator) getOrCreateDevice(deviceID string) *DeviceState {
	sa.mu.Lock()
	defer sa.mu.Unlock()

	if device, exists := sa.devices[deviceID]; exists {
		return device
	}

	device := &DeviceState{
		device: models.Device{DeviceID: deviceID},
	}
	sa.devices[deviceID] = device
	return device
}

func (sa *SensorAggregator) getDevice(deviceID string) *DeviceState {
	sa.mu.RLock()
	defer sa.mu.RUnlock()
	return sa.devices[deviceID]
}

// SaveReading buffers a reading and prunes what falls outside retention
func (sa *SensorAggregator) SaveReading(ctx context.Context, reading *models.SensorReading) error {
	device := sa.getOrCreateDevice(reading.DeviceID)

	device.mu.Lock()
	defer device.mu.Unlock()

	n := len(device.readings)
	device.readings = append(device.readings, *reading)
	if n > 0 && reading.Timestamp.Before(device.readings[n-1].Timestamp) {
		// Late delivery: keep the buffer ordered
		sort.SliceStable(device.readings, func(i, j int) bool {
			return device.readings[i].Timestamp.Before(device.readings[j].Timestamp)
		})
	}

	// A reading stamped in the future must not evict real history
	anchor := device.readings[len(device.readings)-1].Timestamp
	if now := sa.now(); anchor.After(now) {
		anchor = now
	}
	cutoff := anchor.Add(-sa.config.Retention)
	drop := sort.Search(len(device.readings), func(i int) bool {
		return !device.readings[i].Timestamp.Before(cutoff)
	})
	if excess := len(device.readings) - drop - sa.config.MaxReadings; excess > 0 {
		drop += excess
	}
	if drop > 0 {
		device.readings = append([]models.SensorReading(nil), device.readings[drop:]...)
	}
	return nil
}

// ReadingsSince returns a device's readings at or after since, oldest first
func (sa *SensorAggregator) ReadingsSince(ctx context.Context, deviceID string, since time.Time) ([]models.SensorReading, error) {
	device := sa.getDevice(deviceID)
	if device == nil {
		return nil, nil
	}

	device.mu.RLock()
	defer device.mu.RUnlock()

	start := sort.Search(len(device.readings), func(i int) bool {
		return !device.readings[i].Timestamp.Before(since)
	})
	out := make([]models.SensorReading, len(device.readings)-start)
	copy(out, device.readings[start:])
	return out, nil
}

// UpsertDevice records a device, keeping its first registration time
func (sa *SensorAggregator) UpsertDevice(ctx context.Context, d *models.Device) error {
	device := sa.getOrCreateDevice(d.DeviceID)

	device.mu.Lock()
	defer device.mu.Unlock()

	if device.device.RegisteredAt.IsZero() {
		device.device.RegisteredAt = d.RegisteredAt
	}
	if d.SensorType != "" {
		device.device.SensorType = d.SensorType
	}
	if d.LastSeen.After(device.device.LastSeen) {
		device.device.LastSeen = d.LastSeen
	}
	return nil
}

// ListDevices returns registered devices sorted by ID
func (sa *SensorAggregator) ListDevices(ctx context.Context) ([]models.Device, error) {
	sa.mu.RLock()
	states := make([]*DeviceState, 0, len(sa.devices))
	for _, device := range sa.devices {
		states = append(states, device)
	}
	sa.mu.RUnlock()

	devices := make([]models.Device, 0, len(states))
	for _, state := range states {
		state.mu.RLock()
		if !state.device.RegisteredAt.IsZero() {
			devices = append(devices, state.device)
		}
		state.mu.RUnlock()
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].DeviceID < devices[j].DeviceID })
	return devices, nil
}

// SaveAdvisory keeps the most recent advisories per device
func (sa *SensorAggregator) SaveAdvisory(ctx context.Context, advisory *models.Advisory) error {
	device := sa.getOrCreateDevice(advisory.DeviceID)

	device.mu.Lock()
	defer device.mu.Unlock()

	record := *advisory
	record.Warnings = append([]models.Warning(nil), advisory.Warnings...)
	device.advisories = append(device.advisories, record)
	if excess := len(device.advisories) - sa.config.MaxAdvisories; excess > 0 {
		device.advisories = append([]models.Advisory(nil), device.advisories[excess:]...)
	}
	return nil
}

// Advisories returns the buffered advisories of a device, oldest first
func (sa *SensorAggregator) Advisories(deviceID string) []models.Advisory {
	device := sa.getDevice(deviceID)
	if device == nil {
		return nil
	}

	device.mu.RLock()
	defer device.mu.RUnlock()
	return append([]models.Advisory(nil), device.advisories...)
}

// Close releases nothing; the buffer lives and dies with the process
func (sa *SensorAggregator) Close() error {
	return nil
}
