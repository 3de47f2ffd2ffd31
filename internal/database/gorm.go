package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"agri-advisor/internal/logger"
	"agri-advisor/internal/models"
)

// GormStore keeps telemetry in a relational database through GORM
type GormStore struct {
	db     *gorm.DB
	driver string
}

// NewGormStore connects with the given driver and migrates the schema
func NewGormStore(driver, dsn string) (*GormStore, error) {
	var dialector gorm.Dialector

	switch driver {
	case DriverMySQL:
		dialector = mysql.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", driver)
	}

	logMode := gormlogger.Warn
	if logger.Level() == logger.DEBUG {
		logMode = gormlogger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(logMode),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if driver == DriverSQLite {
		// SQLite serializes writers; one connection avoids "database is locked"
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetMaxOpenConns(20)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := db.AutoMigrate(models.GetAllModels()...); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	logger.Printf("Connected to %s telemetry store", driver)

	return &GormStore{db: db, driver: driver}, nil
}

// SaveReading saves a telemetry sample
func (s *GormStore) SaveReading(ctx context.Context, reading *models.SensorReading) error {
	if err := s.db.WithContext(ctx).Create(reading).Error; err != nil {
		return fmt.Errorf("failed to insert sensor reading: %w", err)
	}
	return nil
}

// ReadingsSince returns a device's readings at or after since, oldest first
func (s *GormStore) ReadingsSince(ctx context.Context, deviceID string, since time.Time) ([]models.SensorReading, error) {
	var readings []models.SensorReading
	result := s.db.WithContext(ctx).
		Where("device_id = ? AND timestamp >= ?", deviceID, since).
		Order("timestamp ASC").
		Find(&readings)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to query sensor readings: %w", result.Error)
	}
	return readings, nil
}

// UpsertDevice registers a device or refreshes its last_seen time. A late
// sighting never moves last_seen back and an empty sensor type is ignored.
func (s *GormStore) UpsertDevice(ctx context.Context, device *models.Device) error {
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "device_id"}},
		DoUpdates: s.deviceConflictSet(),
	}).Create(device)
	if result.Error != nil {
		return fmt.Errorf("failed to upsert device: %w", result.Error)
	}
	return nil
}

func (s *GormStore) deviceConflictSet() clause.Set {
	incoming := func(col string) string { return "excluded." + col }
	current := func(col string) string { return "device_registry." + col }
	if s.driver == DriverMySQL {
		// ON DUPLICATE KEY UPDATE names the proposed row through VALUES()
		incoming = func(col string) string { return "VALUES(" + col + ")" }
		current = func(col string) string { return col }
	}

	return clause.Set{
		{
			Column: clause.Column{Name: "sensor_type"},
			Value: gorm.Expr(fmt.Sprintf("CASE WHEN %s <> '' THEN %s ELSE %s END",
				incoming("sensor_type"), incoming("sensor_type"), current("sensor_type"))),
		},
		{
			Column: clause.Column{Name: "last_seen"},
			Value: gorm.Expr(fmt.Sprintf("CASE WHEN %s > %s THEN %s ELSE %s END",
				incoming("last_seen"), current("last_seen"), incoming("last_seen"), current("last_seen"))),
		},
	}
}

// ListDevices returns all registered devices
func (s *GormStore) ListDevices(ctx context.Context) ([]models.Device, error) {
	var devices []models.Device
	if err := s.db.WithContext(ctx).Order("device_id").Find(&devices).Error; err != nil {
		return nil, fmt.Errorf("failed to query device registry: %w", err)
	}
	return devices, nil
}

// SaveAdvisory records an advisory that was published for a device
func (s *GormStore) SaveAdvisory(ctx context.Context, advisory *models.Advisory) error {
	record := *advisory
	record.WarningCodes = warningCodes(advisory)
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to insert advisory: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close %s connection: %w", s.driver, err)
	}
	logger.Printf("%s telemetry store closed", s.driver)
	return nil
}
