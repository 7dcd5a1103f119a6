package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"moneta/internal/domain/aggregation"
)

type okEnvelope struct {
	Status string `json:"status"`
	Data   any    `json:"data"`
}

type errorEnvelope struct {
	Status  string `json:"status"`
	Reason  string `json:"reason"`
	Details string `json:"details,omitempty"`
}

func respondOK(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(okEnvelope{Status: "ok", Data: data})
}

// respondError maps the aggregation error taxonomy onto HTTP status
// codes while keeping the status envelope the clients parse.
func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	reason := "internal-error"
	details := ""

	var missing *aggregation.MissingCredentialError
	var upstream *aggregation.UpstreamError

	switch {
	case errors.As(err, &missing):
		status = http.StatusBadRequest
		reason = "missing-credential"
		details = missing.Name
	case errors.Is(err, aggregation.ErrUnknownProvider):
		status = http.StatusNotFound
		reason = "unknown-provider"
	case errors.Is(err, aggregation.ErrUnsupported):
		status = http.StatusNotFound
		reason = "unsupported-operation"
	case errors.Is(err, aggregation.ErrPaginationLimit):
		status = http.StatusBadGateway
		reason = "pagination-limit-exceeded"
	case errors.Is(err, aggregation.ErrInvalidResponse):
		status = http.StatusBadGateway
		reason = "invalid-upstream-response"
	case errors.As(err, &upstream):
		status = http.StatusBadGateway
		reason = "upstream-error"
		details = upstream.Message
	default:
		logrus.WithError(err).Error("unhandled request error")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorEnvelope{Status: "error", Reason: reason, Details: details})
}
