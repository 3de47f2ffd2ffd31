package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"agri-advisor/internal/logger"
	"agri-advisor/internal/models"
)

// Timestamp layouts accepted in telemetry payloads. Layouts without a zone
// are read in the server's local time.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// Subscriber handles MQTT subscriptions and writes messages to channels
type Subscriber struct {
	client mqtt.Client

	// Output channel (written by subscriber, read by the telemetry service)
	TelemetryChan chan *models.SensorReading

	telemetryTopic string // e.g., "sensor/+/data"
}

// SubscriberConfig holds configuration for MQTT subscriber
type SubscriberConfig struct {
	TelemetryTopic string
}

// NewSubscriber creates a new MQTT subscriber with channels
func NewSubscriber(
	client mqtt.Client,
	config SubscriberConfig,
	telemetryChan chan *models.SensorReading,
) *Subscriber {
	return &Subscriber{
		client:         client,
		TelemetryChan:  telemetryChan,
		telemetryTopic: config.TelemetryTopic,
	}
}

// SubscribeAll subscribes to all configured sensor topics
func (s *Subscriber) SubscribeAll() error {
	if s.telemetryTopic == "" {
		return fmt.Errorf("no telemetry topic configured")
	}

	token := s.client.Subscribe(s.telemetryTopic, 1, s.handleTelemetry)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to telemetry topic: %w", token.Error())
	}

	logger.Printf("Subscribed to telemetry topic: %s", s.telemetryTopic)
	return nil
}

// handleTelemetry parses a device payload and writes it to the channel
func (s *Subscriber) handleTelemetry(client mqtt.Client, msg mqtt.Message) {
	reading, err := ParseTelemetry(msg.Topic(), msg.Payload(), time.Now())
	if err != nil {
		logger.Warnf("MQTT Subscriber: dropping message on %s: %v", msg.Topic(), err)
		return
	}

	logger.Debugf("Received telemetry from %s: soil=%.2f%% temp=%.2f°C humidity=%.2f%% light=%.0f",
		reading.DeviceID, reading.SoilMoisture, reading.Temperature, reading.Humidity, reading.LightIntensity)

	// Write to channel (non-blocking with timeout)
	select {
	case s.TelemetryChan <- reading:
	case <-time.After(1 * time.Second):
		logger.Warnf("Telemetry channel full, dropping message from %s", reading.DeviceID)
	}
}

// ParseTelemetry decodes a sensor/{device_id}/data payload. A missing or
// unparseable timestamp falls back to the receive time.
func ParseTelemetry(topic string, payload []byte, received time.Time) (*models.SensorReading, error) {
	var p models.TelemetryPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("invalid telemetry JSON: %w", err)
	}

	topicDevice := extractDeviceID(topic)
	deviceID := p.DeviceID
	if deviceID == "" {
		deviceID = topicDevice
	} else if topicDevice != "" && topicDevice != deviceID {
		logger.Warnf("MQTT Subscriber: payload device %s published on topic %s", deviceID, topic)
	}
	if deviceID == "" {
		return nil, fmt.Errorf("could not determine device ID")
	}

	timestamp, ok := parseTimestamp(p.Timestamp)
	if !ok {
		if p.Timestamp != "" {
			logger.Debugf("MQTT Subscriber: unparseable timestamp %q from %s, using receive time", p.Timestamp, deviceID)
		}
		timestamp = received
	}

	return &models.SensorReading{
		Timestamp:      timestamp.UTC(),
		DeviceID:       deviceID,
		SensorType:     p.SensorType,
		Temperature:    p.Temperature,
		Humidity:       p.Humidity,
		SoilMoisture:   p.SoilMoisture,
		LightIntensity: p.LightIntensity,
		PH:             p.PH,
	}, nil
}

func parseTimestamp(value string) (time.Time, bool) {
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

// extractDeviceID extracts device ID from MQTT topic
// Example: "sensor/SOIL-001/data" -> "SOIL-001"
func extractDeviceID(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) >= 2 {
		return parts[1]
	}
	return ""
}
