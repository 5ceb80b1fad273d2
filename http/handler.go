package http

import (
	"net/http"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/spatial/geometry"
	"github.com/aukilabs/spatial/models"
	"github.com/aukilabs/spatial/spatial"
	"github.com/segmentio/encoding/json"
)

const (
	ErrTypeBadRequest = "bad_request"
	ErrTypeDisabled   = "feature_disabled"
)

func HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func HandleReadyCheck(readinessCheck func() bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !readinessCheck() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

func HandleVersion(version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(version))
	}
}

// ErrorResponse is the body sent when a request fails.
type ErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logs.Warn(errors.New("encoding response failed").Wrap(err))
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFromError(err)
	if status >= http.StatusInternalServerError {
		logs.WithTag("status", status).Error(err)
	} else {
		logs.WithTag("status", status).Debug(err)
	}

	writeJSON(w, status, ErrorResponse{
		Type:    errors.Type(err),
		Message: err.Error(),
	})
}

func statusFromError(err error) int {
	switch errors.Type(err) {
	case models.ErrTypeSpaceNotFound, models.ErrTypeEntityNotFound, spatial.ErrTypeItemNotFound:
		return http.StatusNotFound

	case models.ErrTypeSpaceExists:
		return http.StatusConflict

	case models.ErrTypeOutOfBounds:
		return http.StatusUnprocessableEntity

	case ErrTypeBadRequest, spatial.ErrTypeInvalidConfiguration, geometry.ErrTypeZeroDirection:
		return http.StatusBadRequest

	case ErrTypeDisabled, models.ErrTypeUnauthorized:
		return http.StatusForbidden

	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.New("decoding request body failed").
			WithType(ErrTypeBadRequest).
			WithTag("path", r.URL.Path).
			Wrap(err)
	}
	return nil
}
