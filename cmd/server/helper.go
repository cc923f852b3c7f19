package main

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/yourorg/token-risk-engine/internal/model"
	"github.com/yourorg/token-risk-engine/internal/security"
)

// version is reported by the health and status endpoints.
const version = "1.0.0"

// setupLogging configures the logging for the application
func setupLogging() {
	logFormat := strings.ToLower(os.Getenv("LOG_FORMAT"))
	logLevel := strings.ToLower(os.Getenv("LOG_LEVEL"))

	switch logFormat {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	switch logLevel {
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "info":
		logrus.SetLevel(logrus.InfoLevel)
	case "warn", "warning":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}
}

// errorBody is the uniform error payload for all endpoints.
type errorBody struct {
	Error model.ItemError `json:"error"`
}

// errorResponse writes a structured error and records it in metrics.
func (s *Server) errorResponse(w http.ResponseWriter, endpoint string, statusCode int, code, message string) {
	logrus.WithFields(logrus.Fields{
		"endpoint": endpoint,
		"code":     code,
	}).Warn(message)

	if s.metrics != nil {
		s.metrics.requestCounter.WithLabelValues(endpoint, "error").Inc()
	}

	writeJSON(w, statusCode, errorBody{
		Error: model.ItemError{Code: code, Message: message},
	})
}

// signedPayload attaches the integrity envelope to a response body.
type signedPayload struct {
	Data      interface{}         `json:"data"`
	Signature *security.Signature `json:"_signature"`
}

// writeSigned writes a response body, wrapping it in an integrity envelope
// when signing is enabled.
func (s *Server) writeSigned(w http.ResponseWriter, statusCode int, payload interface{}) {
	sig, err := s.integrity.Sign(payload)
	if err != nil {
		logrus.Warnf("Failed to sign response: %v", err)
	}
	if sig != nil {
		writeJSON(w, statusCode, signedPayload{Data: payload, Signature: sig})
		return
	}
	writeJSON(w, statusCode, payload)
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logrus.Warnf("Failed to encode response: %v", err)
	}
}
