package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/unalkalkan/pdf2epub/internal/conversion"
	"github.com/unalkalkan/pdf2epub/internal/extract"
	"github.com/unalkalkan/pdf2epub/internal/pipeline"
	"github.com/unalkalkan/pdf2epub/internal/storage"
)

func respondJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	var inputErr *pipeline.InputError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, conversion.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, extract.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, conversion.ErrInvalidEdits):
		return http.StatusBadRequest
	case errors.As(err, &inputErr), errors.Is(err, extract.ErrNoText):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
