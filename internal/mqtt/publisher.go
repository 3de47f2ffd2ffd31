package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"agri-advisor/internal/logger"
	"agri-advisor/internal/models"
)

// Publisher handles MQTT publishing from channels
type Publisher struct {
	client mqtt.Client

	// Input channel (read by publisher, written by the advisory service)
	AdvisoryChan chan *models.Advisory

	// Topic patterns
	advisoryTopic  string // e.g., "advisory/{device_id}"
	telemetryTopic string // e.g., "sensor/{device_id}/data"
}

// PublisherConfig holds configuration for MQTT publisher
type PublisherConfig struct {
	AdvisoryTopic  string
	TelemetryTopic string
}

// NewPublisher creates a new MQTT publisher with channels
func NewPublisher(
	client mqtt.Client,
	config PublisherConfig,
	advisoryChan chan *models.Advisory,
) *Publisher {
	return &Publisher{
		client:         client,
		AdvisoryChan:   advisoryChan,
		advisoryTopic:  config.AdvisoryTopic,
		telemetryTopic: config.TelemetryTopic,
	}
}

// Start begins publishing advisories from the channel
// Runs until context is cancelled or channel is closed
func (p *Publisher) Start(ctx context.Context) {
	logger.Println("MQTT Publisher: Starting...")

	for {
		select {
		case <-ctx.Done():
			logger.Println("MQTT Publisher: Context cancelled, shutting down...")
			return

		case advisory, ok := <-p.AdvisoryChan:
			if !ok {
				logger.Println("MQTT Publisher: Advisory channel closed, shutting down...")
				return
			}

			if err := p.PublishAdvisory(advisory); err != nil {
				logger.Errorf("Error publishing advisory: %v", err)
			}
		}
	}
}

// PublishAdvisory publishes an advisory to its device topic
func (p *Publisher) PublishAdvisory(advisory *models.Advisory) error {
	topic := formatTopic(p.advisoryTopic, advisory.DeviceID)
	if err := p.publish(topic, advisory); err != nil {
		return fmt.Errorf("failed to publish advisory: %w", err)
	}

	logger.Printf("Published advisory for device %s to topic: %s (action=%s, rules=%s)",
		advisory.DeviceID, topic, advisory.Action, advisory.RuleStatus)
	return nil
}

// PublishTelemetry publishes a device reading, as a field device would
func (p *Publisher) PublishTelemetry(payload *models.TelemetryPayload) error {
	topic := formatTopic(p.telemetryTopic, payload.DeviceID)
	if err := p.publish(topic, payload); err != nil {
		return fmt.Errorf("failed to publish telemetry: %w", err)
	}

	logger.Debugf("Published telemetry for device %s to topic: %s", payload.DeviceID, topic)
	return nil
}

func (p *Publisher) publish(topic string, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	token := p.client.Publish(topic, 1, false, payload)
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}

// formatTopic replaces {device_id} placeholder with actual device ID
func formatTopic(topicPattern, deviceID string) string {
	return strings.ReplaceAll(topicPattern, "{device_id}", deviceID)
}
