package api

// Info describes the running service for GET /info
type Info struct {
	Version        string         `json:"version"`
	Model          ModelInfo      `json:"model"`
	Classifier     ClassifierInfo `json:"classifier"`
	Rules          []string       `json:"rules"`
	Storage        string         `json:"storage"`
	WeatherEnabled bool           `json:"weather_enabled"`
}

// ModelInfo summarizes the soil moisture model artifact
type ModelInfo struct {
	Name         string   `json:"name"`
	Kind         string   `json:"kind"`
	Target       string   `json:"target"`
	HorizonHours float64  `json:"horizon_hours"`
	R2Score      float64  `json:"r2_score"`
	Features     []string `json:"feature_names"`
}

// ClassifierInfo reports whether disease diagnosis is available
type ClassifierInfo struct {
	Enabled bool `json:"enabled"`
	Classes int  `json:"classes"`
}
