package model

import "time"

// APIResponse is the envelope of every JSON response body.
type APIResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message,omitempty"`
	Data      any       `json:"data,omitempty"`
	ErrorCode string    `json:"errorCode,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// SuccessResponse builds a successful envelope.
func SuccessResponse(message string, data any) APIResponse {
	return APIResponse{
		Success:   true,
		Message:   message,
		Data:      data,
		Timestamp: time.Now().UTC(),
	}
}

// ErrorResponse builds a failed envelope with a stable machine-readable code.
func ErrorResponse(code, message string) APIResponse {
	return APIResponse{
		Success:   false,
		Message:   message,
		ErrorCode: code,
		Timestamp: time.Now().UTC(),
	}
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	DB     string `json:"db"`
}
