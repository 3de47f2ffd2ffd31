package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// HTTP API
	HTTPAddr string

	// Soil moisture model
	ModelPath string

	// Disease classifier
	ClassIndicesPath    string
	ClassifierURL       string
	ClassifierInputSize int
	ClassifierMaxPixels int
	ClassifierTimeout   time.Duration

	// Weather forecast
	WeatherAPIKey   string
	WeatherBaseURL  string
	FarmLatitude    float64
	FarmLongitude   float64
	RainThresholdMM float64
	WeatherTimeout  time.Duration

	// Irrigation policy
	SoilMoistureThresholdLow float64

	// Rule checker
	RulesConfigPath string

	// Telemetry storage: none, memory, clickhouse, sqlite, postgres, mysql
	StorageDriver  string
	DatabaseDSN    string
	ClickHouseAddr string
	ClickHouseDB   string
	ClickHouseUser string
	ClickHousePass string

	// MQTT Configuration
	MQTTEnabled        bool
	MQTTBroker         string
	MQTTClientID       string
	MQTTUsername       string
	MQTTPassword       string
	MQTTTopicTelemetry string
	MQTTTopicAdvisory  string

	// Advisory loop (requires storage)
	AdvisoryEnabled  bool
	AdvisoryInterval time.Duration

	// Logging
	LogLevel     string
	LogFile      string
	LogToConsole bool
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		HTTPAddr: getEnv("HTTP_ADDR", ":5001"),

		ModelPath: getEnv("MODEL_PATH", "./model/soil_moisture_predictor.json"),

		ClassIndicesPath:    getEnv("CLASS_INDICES_PATH", ""),
		ClassifierURL:       getEnv("CLASSIFIER_URL", ""),
		ClassifierInputSize: getEnvInt("CLASSIFIER_INPUT_SIZE", 224),
		ClassifierMaxPixels: getEnvInt("CLASSIFIER_MAX_PIXELS", 40_000_000),
		ClassifierTimeout:   getEnvDuration("CLASSIFIER_TIMEOUT", 30*time.Second),

		WeatherAPIKey:   getEnv("WEATHER_API_KEY", ""),
		WeatherBaseURL:  getEnv("WEATHER_BASE_URL", "https://api.openweathermap.org/data/2.5"),
		FarmLatitude:    getEnvFloat("FARM_LATITUDE", 21.0285),
		FarmLongitude:   getEnvFloat("FARM_LONGITUDE", 105.8542),
		RainThresholdMM: getEnvFloat("RAIN_THRESHOLD_MM", 2.0),
		WeatherTimeout:  getEnvDuration("WEATHER_TIMEOUT", 5*time.Second),

		SoilMoistureThresholdLow: getEnvFloat("SOIL_MOISTURE_THRESHOLD_LOW", 30.0),

		RulesConfigPath: getEnv("RULES_CONFIG", ""),

		StorageDriver:  getEnv("STORAGE_DRIVER", "none"),
		DatabaseDSN:    getEnv("DATABASE_DSN", "telemetry.db"),
		ClickHouseAddr: getEnv("CLICKHOUSE_ADDR", "localhost:9000"),
		ClickHouseDB:   getEnv("CLICKHOUSE_DB", "agri"),
		ClickHouseUser: getEnv("CLICKHOUSE_USER", "default"),
		ClickHousePass: getEnv("CLICKHOUSE_PASS", ""),

		MQTTEnabled:        getEnvBool("MQTT_ENABLED", false),
		MQTTBroker:         getEnv("MQTT_BROKER", "tcp://localhost:1883"),
		MQTTClientID:       getEnv("MQTT_CLIENT_ID", "agri-advisor"),
		MQTTUsername:       getEnv("MQTT_USERNAME", ""),
		MQTTPassword:       getEnv("MQTT_PASSWORD", ""),
		MQTTTopicTelemetry: getEnv("MQTT_TOPIC_TELEMETRY", "sensor/+/data"),
		MQTTTopicAdvisory:  getEnv("MQTT_TOPIC_ADVISORY", "advisory/{device_id}"),

		AdvisoryEnabled:  getEnvBool("ADVISORY_ENABLED", true),
		AdvisoryInterval: getEnvDuration("ADVISORY_INTERVAL", 10*time.Minute),

		LogLevel:     getEnv("LOG_LEVEL", "info"),
		LogFile:      getEnv("LOG_FILE", ""),
		LogToConsole: getEnvBool("LOG_TO_CONSOLE", true),
	}
}

// StorageEnabled reports whether a telemetry store is configured
func (c *Config) StorageEnabled() bool {
	return c.StorageDriver != "" && c.StorageDriver != "none"
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("Warning: failed to parse %s as float, using default: %v", key, err)
		return defaultValue
	}
	return floatValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as int, using default: %v", key, err)
		return defaultValue
	}
	return intValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as bool, using default: %v", key, err)
		return defaultValue
	}
	return boolValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	durationValue, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Warning: failed to parse %s as duration, using default: %v", key, err)
		return defaultValue
	}
	return durationValue
}
