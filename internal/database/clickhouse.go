package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"agri-advisor/internal/logger"
	"agri-advisor/internal/models"
)

type ClickHouseDB struct {
	conn driver.Conn
}

// NewClickHouseDB creates a new ClickHouse database connection
func NewClickHouseDB(addr, database, username, password string) (*ClickHouseDB, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 5 * time.Second,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})

	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	logger.Printf("Connected to ClickHouse at %s", addr)

	db := &ClickHouseDB{conn: conn}

	if err := db.InitSchema(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// InitSchema creates the necessary tables if they don't exist
func (db *ClickHouseDB) InitSchema(ctx context.Context) error {
	for _, tableSQL := range AllTables() {
		if err := db.conn.Exec(ctx, tableSQL); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	logger.Println("Database schema initialized successfully")
	return nil
}

// SaveReading saves a telemetry sample
func (db *ClickHouseDB) SaveReading(ctx context.Context, reading *models.SensorReading) error {
	query := `
		INSERT INTO sensor_readings (timestamp, device_id, sensor_type, temperature, humidity, soil_moisture, light_intensity, ph)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := db.conn.Exec(ctx, query,
		reading.Timestamp,
		reading.DeviceID,
		reading.SensorType,
		reading.Temperature,
		reading.Humidity,
		reading.SoilMoisture,
		reading.LightIntensity,
		reading.PH,
	)

	if err != nil {
		return fmt.Errorf("failed to insert sensor reading: %w", err)
	}

	return nil
}

// ReadingsSince returns a device's readings at or after since, oldest first
func (db *ClickHouseDB) ReadingsSince(ctx context.Context, deviceID string, since time.Time) ([]models.SensorReading, error) {
	query := `
		SELECT timestamp, device_id, sensor_type, temperature, humidity, soil_moisture, light_intensity, ph
		FROM sensor_readings
		WHERE device_id = ? AND timestamp >= ?
		ORDER BY timestamp ASC
	`

	rows, err := db.conn.Query(ctx, query, deviceID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query sensor readings: %w", err)
	}
	defer rows.Close()

	var readings []models.SensorReading
	for rows.Next() {
		var r models.SensorReading
		if err := rows.Scan(
			&r.Timestamp,
			&r.DeviceID,
			&r.SensorType,
			&r.Temperature,
			&r.Humidity,
			&r.SoilMoisture,
			&r.LightIntensity,
			&r.PH,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sensor reading: %w", err)
		}
		readings = append(readings, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sensor readings: %w", err)
	}
	return readings, nil
}

// UpsertDevice appends a sighting of a device to the registry.
// AggregatingMergeTree folds sightings into one row per device.
func (db *ClickHouseDB) UpsertDevice(ctx context.Context, device *models.Device) error {
	query := `
		INSERT INTO device_registry (device_id, sensor_type, registered_at, last_seen)
		VALUES (?, ?, ?, ?)
	`

	err := db.conn.Exec(ctx, query,
		device.DeviceID,
		device.SensorType,
		device.RegisteredAt,
		device.LastSeen,
	)

	if err != nil {
		return fmt.Errorf("failed to upsert device: %w", err)
	}

	return nil
}

// ListDevices returns all registered devices
func (db *ClickHouseDB) ListDevices(ctx context.Context) ([]models.Device, error) {
	rows, err := db.conn.Query(ctx, ListDevicesSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to query device registry: %w", err)
	}
	defer rows.Close()

	var devices []models.Device
	for rows.Next() {
		var d models.Device
		if err := rows.Scan(&d.DeviceID, &d.SensorType, &d.RegisteredAt, &d.LastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate devices: %w", err)
	}
	return devices, nil
}

// SaveAdvisory records an advisory that was published for a device
func (db *ClickHouseDB) SaveAdvisory(ctx context.Context, advisory *models.Advisory) error {
	query := `
		INSERT INTO advisory_history (timestamp, device_id, action, predicted_soil_moisture, predicted_delta,
			suggestion, weather_info, rule_status, warning_codes, trigger_reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := db.conn.Exec(ctx, query,
		advisory.Timestamp,
		advisory.DeviceID,
		advisory.Action,
		advisory.PredictedSoilMoisture,
		advisory.PredictedDelta,
		advisory.Suggestion,
		advisory.WeatherInfo,
		advisory.RuleStatus,
		warningCodes(advisory),
		advisory.TriggerReason,
	)

	if err != nil {
		return fmt.Errorf("failed to insert advisory: %w", err)
	}

	return nil
}

// Close closes the ClickHouse connection
func (db *ClickHouseDB) Close() error {
	if db.conn != nil {
		if err := db.conn.Close(); err != nil {
			return fmt.Errorf("failed to close ClickHouse connection: %w", err)
		}
		logger.Println("ClickHouse connection closed")
	}
	return nil
}

// warningCodes flattens advisory warnings for storage
func warningCodes(advisory *models.Advisory) string {
	if advisory.WarningCodes != "" || len(advisory.Warnings) == 0 {
		return advisory.WarningCodes
	}
	codes := make([]string, len(advisory.Warnings))
	for i, w := range advisory.Warnings {
		codes[i] = w.WarningCode
	}
	return strings.Join(codes, ",")
}
