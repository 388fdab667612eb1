package models

import "time"

// Envelope is the normalized body of every gateway route.
type Envelope struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	Data     any    `json:"data,omitempty"`
	Raw      string `json:"raw,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`
}

// StatusEnvelope is the body shape of the OTP and proxy routes.
type StatusEnvelope struct {
	Status  bool   `json:"status"`
	Message string `json:"message,omitempty"`
	OTP     string `json:"otp,omitempty"`
}

func Fail(message string) Envelope {
	return Envelope{Success: false, Message: message}
}

func OK(data any) Envelope {
	return Envelope{Success: true, Data: data}
}

type HealthCheckResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// LoginRequest carries the caller's own platform credentials.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type OTPRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}
