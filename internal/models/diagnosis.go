package models

// DiagnosisResponse is returned by POST /diagnose
type DiagnosisResponse struct {
	Disease    string `json:"disease"`
	Confidence string `json:"confidence"` // e.g. "97.31%"
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}
