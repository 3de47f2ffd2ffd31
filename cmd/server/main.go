package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"agri-advisor/internal/api"
	"agri-advisor/internal/database"
	"agri-advisor/internal/decision"
	"agri-advisor/internal/diagnosis"
	"agri-advisor/internal/history"
	"agri-advisor/internal/logger"
	"agri-advisor/internal/ml"
	"agri-advisor/internal/models"
	"agri-advisor/internal/mqtt"
	"agri-advisor/internal/rules"
	"agri-advisor/internal/services"
	"agri-advisor/internal/weather"
	"agri-advisor/pkg/config"
)

var version = "1.0.0"

func main() {
	// Load configuration
	cfg := config.Load()

	if err := logger.Init(logger.Options{
		Level:     cfg.LogLevel,
		File:      cfg.LogFile,
		ToConsole: cfg.LogToConsole,
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Close()

	logger.Printf("Starting Agri Advisor v%s...", version)

	// === Soil moisture model (required) ===
	model, err := ml.LoadModel(cfg.ModelPath)
	if err != nil {
		logger.Fatalf("Failed to load soil moisture model: %v", err)
	}

	// === Rule checker ===
	thresholds, err := rules.LoadThresholds(cfg.RulesConfigPath)
	if err != nil {
		logger.Fatalf("Failed to load rule thresholds: %v", err)
	}
	checker := rules.NewDefaultChecker(thresholds)

	// === Weather forecast ===
	forecast := weather.NewOpenWeatherForecast(weather.OpenWeatherConfig{
		APIKey:          cfg.WeatherAPIKey,
		BaseURL:         cfg.WeatherBaseURL,
		RainThresholdMM: cfg.RainThresholdMM,
		Timeout:         cfg.WeatherTimeout,
	})
	if !forecast.IsAvailable() {
		logger.Warnf("WEATHER_API_KEY not set, assuming no rain for every prediction")
	}

	irrigationService := services.NewIrrigationService(model, forecast, services.IrrigationServiceConfig{
		Latitude:       cfg.FarmLatitude,
		Longitude:      cfg.FarmLongitude,
		WeatherTimeout: cfg.WeatherTimeout,
		Policy:         decision.Policy{LowThreshold: cfg.SoilMoistureThresholdLow},
	})

	// === Disease classifier (optional) ===
	var diagnoser api.Diagnoser
	classifierInfo := api.ClassifierInfo{}
	if cfg.ClassifierURL != "" && cfg.ClassIndicesPath != "" {
		labels, err := diagnosis.LoadLabels(cfg.ClassIndicesPath)
		if err != nil {
			logger.Fatalf("Failed to load class indices: %v", err)
		}
		classifier := diagnosis.NewTFServingClassifier(cfg.ClassifierURL, cfg.ClassifierTimeout)
		diagnosisService := diagnosis.NewService(classifier, labels, cfg.ClassifierInputSize)
		diagnosisService.SetMaxPixels(cfg.ClassifierMaxPixels)
		diagnoser = diagnosisService
		classifierInfo = api.ClassifierInfo{Enabled: true, Classes: diagnosisService.Classes()}
		logger.Printf("Disease classifier: %s (%d classes)", cfg.ClassifierURL, diagnosisService.Classes())
	} else {
		logger.Warnf("Disease classifier not configured, /diagnose will answer 503")
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// === Telemetry storage (optional) ===
	var store database.TelemetryStore
	var deriver api.HistoryDeriver
	var tracker services.DeviceTracker
	var advisoryChan chan *models.Advisory

	if cfg.StorageEnabled() {
		store, err = database.Open(database.Config{
			Driver:         cfg.StorageDriver,
			DSN:            cfg.DatabaseDSN,
			ClickHouseAddr: cfg.ClickHouseAddr,
			ClickHouseDB:   cfg.ClickHouseDB,
			ClickHouseUser: cfg.ClickHouseUser,
			ClickHousePass: cfg.ClickHousePass,
		})
		if err != nil {
			logger.Fatalf("Failed to open telemetry store: %v", err)
		}
		defer store.Close()

		historyDeriver := history.NewDeriver(store, thresholds)
		deriver = historyDeriver

		if cfg.AdvisoryEnabled {
			advisoryService := services.NewAdvisoryService(store, historyDeriver, irrigationService, checker,
				services.AdvisoryServiceConfig{
					PollingInterval: cfg.AdvisoryInterval,
					ChannelSize:     50,
				})
			tracker = advisoryService
			advisoryChan = advisoryService.AdvisoryChan
			go advisoryService.Start(ctx)
		}
	} else {
		logger.Println("Telemetry storage disabled, device endpoints will answer 503")
	}

	// === MQTT (optional) ===
	if cfg.MQTTEnabled {
		logger.Println("Connecting to MQTT broker...")
		mqttClient, err := mqtt.NewClient(mqtt.ClientConfig{
			Broker:   cfg.MQTTBroker,
			ClientID: cfg.MQTTClientID,
			Username: cfg.MQTTUsername,
			Password: cfg.MQTTPassword,
		})
		if err != nil {
			logger.Fatalf("Failed to initialize MQTT client: %v", err)
		}
		defer mqttClient.Close()

		if store != nil {
			telemetryService := services.NewTelemetryService(store, tracker, services.DefaultTelemetryServiceConfig())

			subscriber := mqtt.NewSubscriber(
				mqttClient.GetNativeClient(),
				mqtt.SubscriberConfig{TelemetryTopic: cfg.MQTTTopicTelemetry},
				telemetryService.TelemetryChan,
			)
			if err := subscriber.SubscribeAll(); err != nil {
				logger.Fatalf("Failed to subscribe to MQTT topics: %v", err)
			}

			go telemetryService.Start(ctx)
		} else {
			logger.Warnf("MQTT enabled without telemetry storage, incoming readings are not ingested")
		}

		if advisoryChan != nil {
			publisher := mqtt.NewPublisher(
				mqttClient.GetNativeClient(),
				mqtt.PublisherConfig{AdvisoryTopic: cfg.MQTTTopicAdvisory},
				advisoryChan,
			)
			go publisher.Start(ctx)
		}
	} else if advisoryChan != nil {
		go logAdvisories(advisoryChan)
	}

	// === HTTP API ===
	info := api.Info{
		Version: version,
		Model: api.ModelInfo{
			Name:         model.Name,
			Kind:         model.Kind,
			Target:       model.Target,
			HorizonHours: model.HorizonHours,
			R2Score:      model.R2Score,
			Features:     model.FeatureNames(),
		},
		Classifier:     classifierInfo,
		Rules:          checker.Codes(),
		Storage:        cfg.StorageDriver,
		WeatherEnabled: forecast.IsAvailable(),
	}

	handler := api.NewHandler(irrigationService, diagnoser, checker, deriver, info)
	server := api.NewServer(cfg.HTTPAddr, handler)

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// === Log startup info ===
	logger.Printf("=== Agri Advisor v%s is running ===", version)
	logger.Printf("HTTP API:       %s", cfg.HTTPAddr)
	logger.Printf("Storage:        %s", cfg.StorageDriver)
	if cfg.MQTTEnabled {
		logger.Printf("MQTT Topics:")
		logger.Printf("  - Telemetry:  %s", cfg.MQTTTopicTelemetry)
		logger.Printf("  - Advisory:   %s", cfg.MQTTTopicAdvisory)
	}
	logger.Println("Press Ctrl+C to exit...")

	// === Wait for interrupt signal ===
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// === Graceful shutdown ===
	logger.Println("Shutdown signal received, stopping services...")
	if err := server.Stop(); err != nil {
		logger.Errorf("HTTP server shutdown: %v", err)
	}
	cancel()

	// Give services time to finish processing
	time.Sleep(2 * time.Second)

	logger.Println("Shutdown complete. Goodbye!")
}

// logAdvisories consumes advisories when no broker is configured. The
// channel is closed by the advisory service on shutdown.
func logAdvisories(advisories <-chan *models.Advisory) {
	for a := range advisories {
		logger.Printf("Advisory for %s: action=%s rules=%s (%s)", a.DeviceID, a.Action, a.RuleStatus, a.TriggerReason)
	}
}
