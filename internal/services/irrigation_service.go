package services

import (
	"context"
	"fmt"
	"math"
	"time"

	"agri-advisor/internal/decision"
	"agri-advisor/internal/features"
	"agri-advisor/internal/logger"
	"agri-advisor/internal/ml"
	"agri-advisor/internal/models"
	"agri-advisor/internal/weather"
)

// IrrigationService runs the soil moisture prediction pipeline:
// features -> delta prediction -> fusion with the rain forecast.
// It holds no request state and is safe for concurrent use.
type IrrigationService struct {
	predictor  ml.Predictor
	forecaster weather.Forecaster

	latitude       float64
	longitude      float64
	weatherTimeout time.Duration
	policy         decision.Policy

	now func() time.Time
}

// IrrigationServiceConfig holds configuration for the irrigation service
type IrrigationServiceConfig struct {
	Latitude       float64
	Longitude      float64
	WeatherTimeout time.Duration
	Policy         decision.Policy
}

// NewIrrigationService creates a new irrigation service. The policy is used
// as given; config.Load supplies the default threshold.
func NewIrrigationService(predictor ml.Predictor, forecaster weather.Forecaster, config IrrigationServiceConfig) *IrrigationService {
	if config.WeatherTimeout <= 0 {
		config.WeatherTimeout = 5 * time.Second
	}
	return &IrrigationService{
		predictor:      predictor,
		forecaster:     forecaster,
		latitude:       config.Latitude,
		longitude:      config.Longitude,
		weatherTimeout: config.WeatherTimeout,
		policy:         config.Policy,
		now:            time.Now,
	}
}

// Predict computes the 3-hour soil moisture outlook and irrigation action
func (s *IrrigationService) Predict(ctx context.Context, req *models.PredictRequest) (*models.PredictResponse, error) {
	prediction, err := s.predict(req)
	if err != nil {
		return nil, err
	}

	weatherCtx, cancel := context.WithTimeout(ctx, s.weatherTimeout)
	signal := s.forecaster.FetchForecast(weatherCtx, s.latitude, s.longitude)
	cancel()

	d := decision.Fuse(prediction.PredictedMoisture, signal, s.policy)

	logger.Debugf("IrrigationService: delta=%.4f predicted=%.4f rain=%.2fmm action=%s",
		prediction.Delta, prediction.PredictedMoisture, signal.RainMM, d.Action)

	return &models.PredictResponse{
		PredictedSoilMoistureIn3h: round2(prediction.PredictedMoisture),
		PredictedDelta:            round2(prediction.Delta),
		Suggestion:                d.Suggestion,
		Action:                    d.Action,
		WeatherInfo:               decision.WeatherInfo(signal),
	}, nil
}

func (s *IrrigationService) predict(req *models.PredictRequest) (*models.Prediction, error) {
	vector, err := features.Build(req, s.now())
	if err != nil {
		return nil, err
	}

	ordered, extras, err := vector.Reorder(s.predictor.FeatureNames())
	if err != nil {
		return nil, err
	}
	if len(extras) > 0 {
		logger.Warnf("IrrigationService: model schema does not use features %v", extras)
	}

	delta, err := s.predictor.Predict(ordered)
	if err != nil {
		return nil, fmt.Errorf("soil moisture prediction failed: %w", err)
	}

	proxy := features.ProxyMoisture(req)
	return &models.Prediction{
		Delta:             delta,
		PredictedMoisture: proxy + delta,
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
