package decision

import (
	"fmt"
	"strconv"

	"agri-advisor/internal/models"
)

// DefaultLowThreshold is the soil moisture (%) below which irrigation is scheduled
const DefaultLowThreshold = 30.0

// Policy holds the irrigation thresholds
type Policy struct {
	LowThreshold float64
}

// DefaultPolicy returns the default irrigation policy
func DefaultPolicy() Policy {
	return Policy{LowThreshold: DefaultLowThreshold}
}

// Fuse picks the irrigation action. Rules are checked in order and the first
// match wins, so forecast rain always overrides dryness.
func Fuse(predictedMoisture float64, signal models.WeatherSignal, policy Policy) models.Decision {
	if signal.WillRainSoon {
		return models.Decision{
			Action: models.ActionSkipIrrigation,
			Suggestion: fmt.Sprintf("Rain is forecast (%smm). Irrigation can be skipped for now to save water.",
				formatFloat(signal.RainMM)),
		}
	}

	if predictedMoisture < policy.LowThreshold {
		return models.Decision{
			Action: models.ActionScheduleIrrigation,
			Suggestion: fmt.Sprintf("Soil moisture is expected to drop below the %s%% threshold. Irrigation should be scheduled.",
				formatFloat(policy.LowThreshold)),
		}
	}

	return models.Decision{
		Action:     models.ActionNone,
		Suggestion: "No action needed.",
	}
}

// WeatherInfo renders the forecast summary returned with every prediction
func WeatherInfo(signal models.WeatherSignal) string {
	return fmt.Sprintf("Rain forecast (%smm), Raining soon: %t", formatFloat(signal.RainMM), signal.WillRainSoon)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
