package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"agri-advisor/internal/apperrors"
	"agri-advisor/internal/history"
	"agri-advisor/internal/logger"
	"agri-advisor/internal/models"
	"agri-advisor/internal/rules"
)

// AdvisoryStore is the part of the telemetry store used by the advisory loop
type AdvisoryStore interface {
	ListDevices(ctx context.Context) ([]models.Device, error)
	SaveAdvisory(ctx context.Context, advisory *models.Advisory) error
}

// AdvisoryService periodically evaluates every tracked device from its
// stored telemetry and emits an advisory whenever the recommended action
// or the set of rule warnings changes.
type AdvisoryService struct {
	store      AdvisoryStore
	deriver    *history.Deriver
	irrigation *IrrigationService
	checker    *rules.Checker

	pollingInterval time.Duration

	// Output channel for advisories (read by the MQTT publisher)
	AdvisoryChan chan *models.Advisory

	mu             sync.RWMutex
	trackedDevices map[string]bool
	lastSignature  map[string]string

	now func() time.Time
}

// AdvisoryServiceConfig holds configuration for advisory service
type AdvisoryServiceConfig struct {
	PollingInterval time.Duration
	ChannelSize     int
}

// DefaultAdvisoryServiceConfig returns default configuration
func DefaultAdvisoryServiceConfig() AdvisoryServiceConfig {
	return AdvisoryServiceConfig{
		PollingInterval: 10 * time.Minute,
		ChannelSize:     50,
	}
}

// NewAdvisoryService creates a new advisory service
func NewAdvisoryService(
	store AdvisoryStore,
	deriver *history.Deriver,
	irrigation *IrrigationService,
	checker *rules.Checker,
	config AdvisoryServiceConfig,
) *AdvisoryService {
	if config.PollingInterval <= 0 {
		config.PollingInterval = DefaultAdvisoryServiceConfig().PollingInterval
	}
	return &AdvisoryService{
		store:           store,
		deriver:         deriver,
		irrigation:      irrigation,
		checker:         checker,
		pollingInterval: config.PollingInterval,
		AdvisoryChan:    make(chan *models.Advisory, config.ChannelSize),
		trackedDevices:  make(map[string]bool),
		lastSignature:   make(map[string]string),
		now:             time.Now,
	}
}

// Start begins the polling loop
func (s *AdvisoryService) Start(ctx context.Context) {
	logger.Printf("AdvisoryService: Starting, polling every %v", s.pollingInterval)

	s.discoverDevices(ctx)

	ticker := time.NewTicker(s.pollingInterval)
	defer ticker.Stop()

	s.pollAllDevices(ctx)

	for {
		select {
		case <-ctx.Done():
			logger.Println("AdvisoryService: Shutting down...")
			close(s.AdvisoryChan)
			return
		case <-ticker.C:
			s.pollAllDevices(ctx)
		}
	}
}

// discoverDevices loads devices registered before this process started
func (s *AdvisoryService) discoverDevices(ctx context.Context) {
	devices, err := s.store.ListDevices(ctx)
	if err != nil {
		logger.Warnf("AdvisoryService: Could not load device registry: %v", err)
		return
	}
	for _, d := range devices {
		s.RegisterDevice(d.DeviceID)
	}
}

// pollAllDevices evaluates all tracked devices
func (s *AdvisoryService) pollAllDevices(ctx context.Context) {
	devices := s.GetTrackedDevices()
	if len(devices) == 0 {
		return
	}

	logger.Debugf("AdvisoryService: Polling %d devices", len(devices))

	for _, deviceID := range devices {
		if ctx.Err() != nil {
			return
		}
		s.checkDevice(ctx, deviceID)
	}
}

// checkDevice evaluates a single device and emits an advisory if it changed
func (s *AdvisoryService) checkDevice(ctx context.Context, deviceID string) {
	advisory, err := s.Evaluate(ctx, deviceID)
	if err != nil {
		var insufficient *apperrors.InsufficientDataError
		if errors.As(err, &insufficient) {
			logger.Debugf("AdvisoryService: Skipping %s: %v", deviceID, err)
		} else {
			logger.Errorf("AdvisoryService: Error evaluating %s: %v", deviceID, err)
		}
		return
	}

	reason, signature := s.triggerReason(advisory)
	if reason == "" {
		return
	}
	advisory.TriggerReason = reason

	// Send to channel (non-blocking with timeout). The signature is only
	// recorded once delivered, so a dropped advisory is retried next poll.
	select {
	case s.AdvisoryChan <- advisory:
		s.commitSignature(deviceID, signature)
		logger.Printf("AdvisoryService: Advisory sent for %s (reason: %s, action=%s, rules=%s)",
			deviceID, reason, advisory.Action, advisory.RuleStatus)
	case <-time.After(1 * time.Second):
		logger.Warnf("AdvisoryService: Advisory channel full, dropping advisory for %s", deviceID)
		return
	}

	if err := s.store.SaveAdvisory(ctx, advisory); err != nil {
		logger.Errorf("AdvisoryService: Error saving advisory for %s: %v", deviceID, err)
	}
}

// Evaluate builds the current advisory for a device. The irrigation part is
// left empty when there is not yet enough history for a prediction.
func (s *AdvisoryService) Evaluate(ctx context.Context, deviceID string) (*models.Advisory, error) {
	now := s.now()

	snapshot, err := s.deriver.RuleSnapshot(ctx, deviceID, now)
	if err != nil {
		return nil, err
	}
	check, err := s.checker.Check(snapshot)
	if err != nil {
		return nil, err
	}

	advisory := &models.Advisory{
		Timestamp:  now.UTC(),
		DeviceID:   deviceID,
		RuleStatus: check.Status,
		Warnings:   check.Warnings,
	}

	req, err := s.deriver.PredictRequest(ctx, deviceID, now)
	if err != nil {
		var insufficient *apperrors.InsufficientDataError
		if !errors.As(err, &insufficient) {
			return nil, err
		}
		logger.Debugf("AdvisoryService: No irrigation outlook for %s yet: %v", deviceID, err)
		return advisory, nil
	}

	prediction, err := s.irrigation.Predict(ctx, req)
	if err != nil {
		return nil, err
	}

	advisory.Action = prediction.Action
	advisory.PredictedSoilMoisture = prediction.PredictedSoilMoistureIn3h
	advisory.PredictedDelta = prediction.PredictedDelta
	advisory.Suggestion = prediction.Suggestion
	advisory.WeatherInfo = prediction.WeatherInfo
	return advisory, nil
}

// triggerReason compares the advisory with the last one delivered for the
// device. An empty reason means nothing changed.
func (s *AdvisoryService) triggerReason(advisory *models.Advisory) (reason, signature string) {
	codes := make([]string, len(advisory.Warnings))
	for i, w := range advisory.Warnings {
		codes[i] = w.WarningCode
	}
	sort.Strings(codes)
	signature = advisory.Action + "|" + strings.Join(codes, ",")

	s.mu.RLock()
	last, seen := s.lastSignature[advisory.DeviceID]
	s.mu.RUnlock()

	switch {
	case !seen:
		return "first_advisory", signature
	case last == signature:
		return "", signature
	case !strings.HasPrefix(last, advisory.Action+"|"):
		return "action_changed", signature
	default:
		return "warnings_changed", signature
	}
}

func (s *AdvisoryService) commitSignature(deviceID, signature string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSignature[deviceID] = signature
}

// RegisterDevice adds a device to the tracking list
func (s *AdvisoryService) RegisterDevice(deviceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.trackedDevices[deviceID] {
		s.trackedDevices[deviceID] = true
		logger.Printf("AdvisoryService: Now tracking device %s", deviceID)
	}
}

// GetTrackedDevices returns all tracked device IDs, sorted
func (s *AdvisoryService) GetTrackedDevices() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	devices := make([]string, 0, len(s.trackedDevices))
	for deviceID := range s.trackedDevices {
		devices = append(devices, deviceID)
	}
	sort.Strings(devices)
	return devices
}
