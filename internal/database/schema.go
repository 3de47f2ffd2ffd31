package database

// SQL schemas for the ClickHouse telemetry tables

const (
	// SensorReadingsTableSQL creates the sensor_readings table
	SensorReadingsTableSQL = `
		CREATE TABLE IF NOT EXISTS sensor_readings (
			timestamp DateTime64(3),
			device_id String,
			sensor_type LowCardinality(String),
			temperature Float64,
			humidity Float64,
			soil_moisture Float64,
			light_intensity Float64,
			ph Float64
		) ENGINE = MergeTree()
		ORDER BY (device_id, timestamp)
		PARTITION BY toYYYYMM(timestamp)
	`

	// DeviceRegistryTableSQL creates the device_registry table. Merges keep
	// the first registration and the latest sighting; an empty sensor_type
	// never replaces a known one.
	DeviceRegistryTableSQL = `
		CREATE TABLE IF NOT EXISTS device_registry (
			device_id String,
			sensor_type SimpleAggregateFunction(max, String),
			registered_at SimpleAggregateFunction(min, DateTime64(3)),
			last_seen SimpleAggregateFunction(max, DateTime64(3))
		) ENGINE = AggregatingMergeTree()
		ORDER BY device_id
	`

	// ListDevicesSQL folds the registry rows not yet merged
	ListDevicesSQL = `
		SELECT device_id, max(sensor_type), min(registered_at), max(last_seen)
		FROM device_registry
		GROUP BY device_id
		ORDER BY device_id
	`

	// AdvisoryHistoryTableSQL creates the advisory_history table
	AdvisoryHistoryTableSQL = `
		CREATE TABLE IF NOT EXISTS advisory_history (
			timestamp DateTime64(3),
			device_id String,
			action LowCardinality(String),
			predicted_soil_moisture Float64,
			predicted_delta Float64,
			suggestion String,
			weather_info String,
			rule_status LowCardinality(String),
			warning_codes String,
			trigger_reason String
		) ENGINE = MergeTree()
		ORDER BY (device_id, timestamp)
		PARTITION BY toYYYYMM(timestamp)
	`
)

// AllTables returns all table creation SQL statements
func AllTables() []string {
	return []string{
		SensorReadingsTableSQL,
		DeviceRegistryTableSQL,
		AdvisoryHistoryTableSQL,
	}
}
