// Package api exposes conversions over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/unalkalkan/pdf2epub/internal/conversion"
	"github.com/unalkalkan/pdf2epub/internal/packaging"
	"github.com/unalkalkan/pdf2epub/internal/progress"
	"github.com/unalkalkan/pdf2epub/pkg/types"
	"go.uber.org/zap"
)

// ConversionHandler handles conversion-related API endpoints
type ConversionHandler struct {
	service        *conversion.Service
	maxUploadBytes int64
	logger         *zap.Logger
}

// NewConversionHandler creates a new conversion handler
func NewConversionHandler(service *conversion.Service, maxUploadMB int, logger *zap.Logger) *ConversionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if maxUploadMB <= 0 {
		maxUploadMB = 100
	}
	return &ConversionHandler{
		service:        service,
		maxUploadBytes: int64(maxUploadMB) << 20,
		logger:         logger,
	}
}

// Routes registers the conversion endpoints on r
func (h *ConversionHandler) Routes(r chi.Router) {
	r.Route("/api/v1/conversions", func(r chi.Router) {
		r.Post("/", h.CreateConversion)
		r.Get("/", h.ListConversions)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetConversion)
			r.Delete("/", h.DeleteConversion)
			r.Post("/preview", h.Preview)
			r.Get("/edits", h.GetEdits)
			r.Put("/edits", h.PutEdits)
			r.Post("/epub", h.Convert)
			r.Get("/epub", h.DownloadEPUB)
		})
	})
}

// CreateConversion handles POST /api/v1/conversions
func (h *ConversionHandler) CreateConversion(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			respondError(w, "File too large", http.StatusRequestEntityTooLarge)
			return
		}
		respondError(w, "Failed to parse form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, "No file provided", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, "Failed to read file", http.StatusInternalServerError)
		return
	}

	c, err := h.service.Create(r.Context(), conversion.Upload{
		Filename: header.Filename,
		Title:    r.FormValue("title"),
		Author:   r.FormValue("author"),
		Language: r.FormValue("language"),
		Data:     data,
	})
	if err != nil {
		h.fail(w, r, "Failed to create conversion", err)
		return
	}

	respondJSON(w, c, http.StatusCreated)
}

// ListConversions handles GET /api/v1/conversions
func (h *ConversionHandler) ListConversions(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.fail(w, r, "Failed to list conversions", err)
		return
	}
	respondJSON(w, map[string]interface{}{
		"conversions": list,
		"count":       len(list),
	}, http.StatusOK)
}

// GetConversion handles GET /api/v1/conversions/{id}
func (h *ConversionHandler) GetConversion(w http.ResponseWriter, r *http.Request) {
	id, ok := conversionID(w, r)
	if !ok {
		return
	}
	c, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, "Failed to get conversion", err)
		return
	}
	respondJSON(w, c, http.StatusOK)
}

// DeleteConversion handles DELETE /api/v1/conversions/{id}
func (h *ConversionHandler) DeleteConversion(w http.ResponseWriter, r *http.Request) {
	id, ok := conversionID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.fail(w, r, "Failed to delete conversion", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Preview handles POST /api/v1/conversions/{id}/preview
func (h *ConversionHandler) Preview(w http.ResponseWriter, r *http.Request) {
	id, ok := conversionID(w, r)
	if !ok {
		return
	}
	opts, err := h.decodeOptions(r)
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	doc, err := h.service.Preview(r.Context(), id, opts)
	if err != nil {
		h.fail(w, r, "Failed to preview conversion", err)
		return
	}
	respondJSON(w, doc, http.StatusOK)
}

// GetEdits handles GET /api/v1/conversions/{id}/edits
func (h *ConversionHandler) GetEdits(w http.ResponseWriter, r *http.Request) {
	id, ok := conversionID(w, r)
	if !ok {
		return
	}
	edits, err := h.service.Edits(r.Context(), id)
	if err != nil {
		h.fail(w, r, "Failed to get edits", err)
		return
	}
	respondJSON(w, edits, http.StatusOK)
}

// PutEdits handles PUT /api/v1/conversions/{id}/edits
func (h *ConversionHandler) PutEdits(w http.ResponseWriter, r *http.Request) {
	id, ok := conversionID(w, r)
	if !ok {
		return
	}

	var edits types.EditSet
	if err := json.NewDecoder(r.Body).Decode(&edits); err != nil {
		respondError(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	if err := h.service.SaveEdits(r.Context(), id, edits); err != nil {
		h.fail(w, r, "Failed to save edits", err)
		return
	}
	respondJSON(w, edits, http.StatusOK)
}

// Convert handles POST /api/v1/conversions/{id}/epub. Clients accepting
// application/x-ndjson receive progress events followed by the result.
func (h *ConversionHandler) Convert(w http.ResponseWriter, r *http.Request) {
	id, ok := conversionID(w, r)
	if !ok {
		return
	}
	opts, err := h.decodeOptions(r)
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if !acceptsNDJSON(r) {
		c, err := h.service.Convert(r.Context(), id, opts, nil)
		if err != nil {
			h.fail(w, r, "Failed to convert", err)
			return
		}
		respondJSON(w, c, http.StatusOK)
		return
	}

	// Unknown conversions still get a plain 404 rather than a stream.
	if _, err := h.service.Get(r.Context(), id); err != nil {
		h.fail(w, r, "Failed to get conversion", err)
		return
	}

	w.Header().Set("Content-Type", progress.ContentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	pw := progress.NewWriter(w)
	c, err := h.service.Convert(r.Context(), id, opts, pw.Progress)
	if err != nil {
		h.logger.Warn("conversion failed", zap.String("id", id), zap.Error(err))
		pw.Error(err)
		return
	}
	if err := pw.Result(c); err != nil {
		h.logger.Debug("progress stream closed", zap.String("id", id), zap.Error(err))
	}
}

// DownloadEPUB handles GET /api/v1/conversions/{id}/epub
func (h *ConversionHandler) DownloadEPUB(w http.ResponseWriter, r *http.Request) {
	id, ok := conversionID(w, r)
	if !ok {
		return
	}
	c, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, "Failed to get conversion", err)
		return
	}

	reader, meta, err := h.service.OpenEPUB(r.Context(), id)
	if err != nil {
		h.fail(w, r, "EPUB not available", err)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", packaging.MediaType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": downloadName(c),
	}))
	if meta.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(meta.Size, 10))
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, reader); err != nil {
		h.logger.Debug("download interrupted", zap.String("id", id), zap.Error(err))
	}
}

// decodeOptions reads optional Options from the request body on top of the
// configured defaults
func (h *ConversionHandler) decodeOptions(r *http.Request) (types.Options, error) {
	opts := h.service.DefaultOptions()
	if r.Body == nil {
		return opts, nil
	}
	if err := json.NewDecoder(r.Body).Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
		return opts, fmt.Errorf("invalid options: %v", err)
	}
	switch opts.FlowMode {
	case "", types.FlowParagraphs, types.FlowCollapse:
	default:
		return opts, fmt.Errorf("invalid flow mode: %s", opts.FlowMode)
	}
	return opts, nil
}

func (h *ConversionHandler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(message, zap.String("path", r.URL.Path), zap.Error(err))
		respondError(w, message, status)
		return
	}
	respondError(w, fmt.Sprintf("%s: %v", message, err), status)
}

// conversionID returns the {id} URL parameter, answering 404 for values
// that cannot name a conversion
func conversionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		respondError(w, "Conversion not found", http.StatusNotFound)
		return "", false
	}
	return id, true
}

func acceptsNDJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), progress.ContentType)
}

func downloadName(c *types.Conversion) string {
	name := strings.TrimSpace(c.Title)
	if name == "" {
		name = c.ID
	}
	return name + ".epub"
}
