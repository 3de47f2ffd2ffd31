package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"agri-advisor/internal/apperrors"
	"agri-advisor/internal/logger"
	"agri-advisor/internal/models"
)

const (
	maxJSONBody   = 1 << 20
	maxImageBody  = 16 << 20
	internalError = "An unexpected server error occurred"
)

// MoisturePredictor runs the soil moisture pipeline
type MoisturePredictor interface {
	Predict(ctx context.Context, req *models.PredictRequest) (*models.PredictResponse, error)
}

// Diagnoser classifies plant images
type Diagnoser interface {
	Diagnose(ctx context.Context, image []byte) (*models.DiagnosisResponse, error)
}

// RuleChecker evaluates a reading snapshot
type RuleChecker interface {
	Check(s *models.RuleSnapshot) (*models.RuleCheckResponse, error)
}

// HistoryDeriver builds request payloads from stored telemetry
type HistoryDeriver interface {
	PredictRequest(ctx context.Context, deviceID string, now time.Time) (*models.PredictRequest, error)
	RuleSnapshot(ctx context.Context, deviceID string, now time.Time) (*models.RuleSnapshot, error)
}

// Handler provides HTTP API endpoints. Diagnoser and HistoryDeriver are
// optional; their endpoints answer 503 when absent.
type Handler struct {
	predictor MoisturePredictor
	diagnoser Diagnoser
	checker   RuleChecker
	deriver   HistoryDeriver
	info      Info

	now func() time.Time
}

// NewHandler creates a new API handler
func NewHandler(
	predictor MoisturePredictor,
	diagnoser Diagnoser,
	checker RuleChecker,
	deriver HistoryDeriver,
	info Info,
) *Handler {
	return &Handler{
		predictor: predictor,
		diagnoser: diagnoser,
		checker:   checker,
		deriver:   deriver,
		info:      info,
		now:       time.Now,
	}
}

// RegisterRoutes sets up all API routes
func (h *Handler) RegisterRoutes(r *mux.Router) {
	// Health and info
	r.HandleFunc("/health", h.handleHealth).Methods("GET")
	r.HandleFunc("/info", h.handleInfo).Methods("GET")

	// Stateless decision endpoints
	r.HandleFunc("/predict/soil_moisture", h.handlePredictSoilMoisture).Methods("POST")
	r.HandleFunc("/diagnose", h.handleDiagnose).Methods("POST")
	r.HandleFunc("/check_rules", h.handleCheckRules).Methods("POST")

	// Same pipelines fed from stored telemetry
	r.HandleFunc("/devices/{deviceId}/predict/soil_moisture", h.handleDevicePredict).Methods("POST")
	r.HandleFunc("/devices/{deviceId}/check_rules", h.handleDeviceCheckRules).Methods("POST")
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Errorf("Error encoding response: %v", err)
	}
}

// respondError sends a JSON error response
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, models.ErrorResponse{Error: message})
}

// respondFailure maps an error to its status and logs server-side failures
func respondFailure(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Errorf("API: %s %s failed [%s]: %v", r.Method, r.URL.Path, RequestID(r.Context()), err)
	}
	respondError(w, status, err.Error())
}

// decodeJSON reads a JSON request body into v
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &apperrors.InvalidInputError{Message: "malformed JSON body", Err: err}
	}
	return nil
}

// handleHealth returns server health status
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleInfo returns loaded models and enabled features
func (h *Handler) handleInfo(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.info)
}

// handlePredictSoilMoisture predicts soil moisture in 3 hours and recommends an action
func (h *Handler) handlePredictSoilMoisture(w http.ResponseWriter, r *http.Request) {
	var req models.PredictRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondFailure(w, r, err)
		return
	}

	resp, err := h.predictor.Predict(r.Context(), &req)
	if err != nil {
		respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// handleDiagnose classifies an uploaded leaf image (multipart field "image")
func (h *Handler) handleDiagnose(w http.ResponseWriter, r *http.Request) {
	if h.diagnoser == nil {
		respondError(w, http.StatusServiceUnavailable, "disease classifier is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageBody)
	file, header, err := r.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			respondFailure(w, r, &apperrors.MissingFieldError{Field: "image"})
			return
		}
		respondFailure(w, r, &apperrors.InvalidInputError{Message: "could not read upload", Err: err})
		return
	}
	defer file.Close()

	if header.Filename == "" {
		respondError(w, http.StatusBadRequest, "empty file name")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		respondFailure(w, r, &apperrors.InvalidInputError{Message: "could not read upload", Err: err})
		return
	}

	resp, err := h.diagnoser.Diagnose(r.Context(), data)
	if err != nil {
		if apperrors.IsClientError(err) {
			respondFailure(w, r, err)
			return
		}
		logger.Errorf("API: diagnosis failed [%s]: %v", RequestID(r.Context()), err)
		respondError(w, http.StatusInternalServerError, internalError)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// handleCheckRules evaluates a flat reading snapshot against all rules
func (h *Handler) handleCheckRules(w http.ResponseWriter, r *http.Request) {
	var snapshot models.RuleSnapshot
	if err := decodeJSON(w, r, &snapshot); err != nil {
		respondFailure(w, r, err)
		return
	}

	resp, err := h.checker.Check(&snapshot)
	if err != nil {
		respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// handleDevicePredict runs the soil moisture pipeline on a device's stored telemetry
func (h *Handler) handleDevicePredict(w http.ResponseWriter, r *http.Request) {
	if h.deriver == nil {
		respondError(w, http.StatusServiceUnavailable, "telemetry storage is not configured")
		return
	}

	deviceID := mux.Vars(r)["deviceId"]
	req, err := h.deriver.PredictRequest(r.Context(), deviceID, h.now())
	if err != nil {
		respondFailure(w, r, err)
		return
	}

	resp, err := h.predictor.Predict(r.Context(), req)
	if err != nil {
		respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

// handleDeviceCheckRules runs the rule checker on a device's stored telemetry
func (h *Handler) handleDeviceCheckRules(w http.ResponseWriter, r *http.Request) {
	if h.deriver == nil {
		respondError(w, http.StatusServiceUnavailable, "telemetry storage is not configured")
		return
	}

	deviceID := mux.Vars(r)["deviceId"]
	snapshot, err := h.deriver.RuleSnapshot(r.Context(), deviceID, h.now())
	if err != nil {
		respondFailure(w, r, err)
		return
	}

	resp, err := h.checker.Check(snapshot)
	if err != nil {
		respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}
