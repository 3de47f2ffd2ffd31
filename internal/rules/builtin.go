package rules

import (
	"agri-advisor/internal/models"
)

// Built-in warning codes
const (
	CodeFungusRisk      = "FUNGUS_RISK"
	CodeHeatStress      = "HEAT_STRESS"
	CodeDroughtStress   = "DROUGHT_STRESS"
	CodeWaterlogging    = "WATERLOGGING"
	CodeColdStress      = "COLD_STRESS"
	CodeLowLight        = "LOW_LIGHT"
	CodeSoilPHImbalance = "SOIL_PH_IMBALANCE"
)

// predicateRule adapts a match function into a Rule
type predicateRule struct {
	code       string
	riskLevel  string
	message    string
	suggestion string
	match      func(s *models.RuleSnapshot) bool
}

func (r *predicateRule) Code() string {
	return r.code
}

func (r *predicateRule) Evaluate(s *models.RuleSnapshot) *models.Warning {
	if !r.match(s) {
		return nil
	}
	return &models.Warning{
		RiskLevel:   r.riskLevel,
		WarningCode: r.code,
		Message:     r.message,
		Suggestion:  r.suggestion,
	}
}

// BuiltinRules returns the built-in rules in evaluation order
func BuiltinRules(t Thresholds) []Rule {
	return []Rule{
		&predicateRule{
			code:       CodeFungusRisk,
			riskLevel:  models.RiskHigh,
			message:    "High risk of fungal growth: humidity and temperature have stayed in the ideal range for too long.",
			suggestion: "Improve ventilation, reduce irrigation and inspect the crop.",
			match: func(s *models.RuleSnapshot) bool {
				temp := *s.Temperature
				return *s.Humidity > t.Fungus.HumidityAbove &&
					temp >= t.Fungus.TemperatureMin && temp <= t.Fungus.TemperatureMax &&
					above(s.DurationHighHumidityHr, t.Fungus.DurationHr)
			},
		},
		&predicateRule{
			code:       CodeHeatStress,
			riskLevel:  models.RiskMedium,
			message:    "Temperature has been too high for too long, plants may suffer heat stress.",
			suggestion: "Consider misting, shading and light irrigation.",
			match: func(s *models.RuleSnapshot) bool {
				return *s.Temperature > t.Heat.TemperatureAbove &&
					above(s.DurationHighTempHr, t.Heat.DurationHr)
			},
		},
		&predicateRule{
			code:       CodeDroughtStress,
			riskLevel:  models.RiskHigh,
			message:    "Soil moisture has stayed critically low, plants are at risk of drought stress.",
			suggestion: "Irrigate as soon as possible and check the irrigation system.",
			match: func(s *models.RuleSnapshot) bool {
				return below(s.SoilMoisture, t.Drought.SoilMoistureBelow) &&
					above(s.DurationLowSoilMoistureHr, t.Drought.DurationHr)
			},
		},
		&predicateRule{
			code:       CodeWaterlogging,
			riskLevel:  models.RiskMedium,
			message:    "Soil has been saturated for too long, roots may lack oxygen.",
			suggestion: "Stop irrigation and check field drainage.",
			match: func(s *models.RuleSnapshot) bool {
				return above(s.SoilMoisture, t.Waterlogging.SoilMoistureAbove) &&
					above(s.DurationHighSoilMoistureHr, t.Waterlogging.DurationHr)
			},
		},
		&predicateRule{
			code:       CodeColdStress,
			riskLevel:  models.RiskMedium,
			message:    "Temperature has stayed low for several hours, plants may suffer cold stress.",
			suggestion: "Cover sensitive plants and avoid irrigating at night.",
			match: func(s *models.RuleSnapshot) bool {
				return *s.Temperature < t.Cold.TemperatureBelow &&
					above(s.DurationLowTempHr, t.Cold.DurationHr)
			},
		},
		&predicateRule{
			code:       CodeLowLight,
			riskLevel:  models.RiskLow,
			message:    "Light intensity has been insufficient for a long period.",
			suggestion: "Remove shading or consider supplemental lighting.",
			match: func(s *models.RuleSnapshot) bool {
				return below(s.LightIntensity, t.LowLight.LightBelow) &&
					above(s.DurationLowLightHr, t.LowLight.DurationHr)
			},
		},
		&predicateRule{
			code:       CodeSoilPHImbalance,
			riskLevel:  models.RiskLow,
			message:    "Soil pH is outside the optimal range for nutrient uptake.",
			suggestion: "Test the soil and apply lime or sulfur amendments as needed.",
			match: func(s *models.RuleSnapshot) bool {
				return below(s.PH, t.SoilPH.Min) || above(s.PH, t.SoilPH.Max)
			},
		},
	}
}

// above reports v > limit; an absent value never matches
func above(v *float64, limit float64) bool {
	return v != nil && *v > limit
}

func below(v *float64, limit float64) bool {
	return v != nil && *v < limit
}
