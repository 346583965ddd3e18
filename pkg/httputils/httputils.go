package httputils

import (
	"net/http"
	"time"

	"github.com/IgorGrieder/linkhive/internal/constants"
	"github.com/IgorGrieder/linkhive/internal/infrastructure/logger"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const CorrelationIDHeader = "X-Correlation-Id"

// APIResponse wraps all API responses with metadata
type APIResponse struct {
	ResponseTime  time.Time `json:"responseTime"`
	CorrelationId string    `json:"correlationId"`
	Code          string    `json:"code,omitempty"`
	Data          any       `json:"data,omitempty"`
	Error         string    `json:"error,omitempty"`
	Message       string    `json:"message,omitempty"`
}

type SuccessResponse struct {
	Data any `json:"data"`
}

// GetCorrelationID extracts the correlation ID from the request header.
// If not present, generates a new UUID v4. The logging middleware stores the
// chosen id back on the request so every writer sees the same value.
func GetCorrelationID(r *http.Request) string {
	correlationID := r.Header.Get(CorrelationIDHeader)
	if correlationID == "" {
		correlationID = uuid.New().String()
		r.Header.Set(CorrelationIDHeader, correlationID)
	}
	return correlationID
}

// WriteAPIError writes an error response with metadata using a predefined APIError
func WriteAPIError(w http.ResponseWriter, r *http.Request, apiErr constants.APIError) {
	WriteAPIErrorWithData(w, r, apiErr, nil)
}

// WriteAPIErrorWithData is WriteAPIError plus a machine-readable data field.
func WriteAPIErrorWithData(w http.ResponseWriter, r *http.Request, apiErr constants.APIError, data any) {
	write(w, r, apiErr.Status, APIResponse{
		Error:   apiErr.Code,
		Message: apiErr.Message,
		Data:    data,
	})
}

// WriteAPISuccess writes a success response with metadata using a predefined APISuccess
func WriteAPISuccess(w http.ResponseWriter, r *http.Request, apiSuccess constants.APISuccess, data any) {
	write(w, r, apiSuccess.Status, APIResponse{
		Code: apiSuccess.Code,
		Data: data,
	})
}

func write(w http.ResponseWriter, r *http.Request, status int, response APIResponse) {
	correlationID := GetCorrelationID(r)
	response.ResponseTime = time.Now().UTC()
	response.CorrelationId = correlationID

	w.Header().Set(CorrelationIDHeader, correlationID)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error("failed to encode api response", zap.Error(err), zap.String("correlation_id", correlationID))
	}
}

func RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(SuccessResponse{Data: data}); err != nil {
		logger.Error("failed to encode json response", zap.Error(err))
	}
}

// DecodeJSON reads a JSON request body, rejecting unknown fields.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
