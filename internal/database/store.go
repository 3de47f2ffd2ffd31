package database

import (
	"context"
	"fmt"
	"time"

	"agri-advisor/internal/aggregator"
	"agri-advisor/internal/models"
)

// Storage drivers
const (
	DriverNone       = "none"
	DriverMemory     = "memory"
	DriverClickHouse = "clickhouse"
	DriverSQLite     = "sqlite"
	DriverPostgres   = "postgres"
	DriverMySQL      = "mysql"
)

// TelemetryStore persists device telemetry and the advisories derived from it
type TelemetryStore interface {
	SaveReading(ctx context.Context, reading *models.SensorReading) error
	// ReadingsSince returns a device's readings at or after since, oldest first
	ReadingsSince(ctx context.Context, deviceID string, since time.Time) ([]models.SensorReading, error)
	UpsertDevice(ctx context.Context, device *models.Device) error
	ListDevices(ctx context.Context) ([]models.Device, error)
	SaveAdvisory(ctx context.Context, advisory *models.Advisory) error
	Close() error
}

// Config selects and configures a storage backend
type Config struct {
	Driver string
	DSN    string // GORM drivers

	ClickHouseAddr string
	ClickHouseDB   string
	ClickHouseUser string
	ClickHousePass string
}

// Open connects to the configured backend and prepares its schema
func Open(cfg Config) (TelemetryStore, error) {
	switch cfg.Driver {
	case DriverClickHouse:
		db, err := NewClickHouseDB(cfg.ClickHouseAddr, cfg.ClickHouseDB, cfg.ClickHouseUser, cfg.ClickHousePass)
		if err != nil {
			return nil, err
		}
		return db, nil
	case DriverMemory:
		return aggregator.NewSensorAggregator(aggregator.DefaultConfig()), nil
	case DriverSQLite, DriverPostgres, DriverMySQL:
		store, err := NewGormStore(cfg.Driver, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "", DriverNone:
		return nil, fmt.Errorf("no storage driver configured")
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Driver)
	}
}
