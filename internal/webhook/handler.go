package webhook

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/mattjoyce/hookprobe/internal/inspect"
)

//go:generate mockgen -destination=mocks/mock_sink.go -package=mocks github.com/mattjoyce/hookprobe/internal/webhook ReportSink

// ReportSink receives one complete report per request.
type ReportSink interface {
	Emit(report inspect.Report) error
}

// Response headers set on every inspected request.
const (
	DeliveryHeader = "X-Hookprobe-Delivery"
	OutcomeHeader  = "X-Hookprobe-Outcome"
)

// InspectResponse is the JSON body returned for inspected requests.
type InspectResponse struct {
	DeliveryID string `json:"delivery_id"`
	Outcome    string `json:"outcome"`
}

// ErrorResponse is the JSON body for requests rejected before inspection.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Inspect runs the verification and rendering pipeline for one request and
// returns the status to answer with along with the report to emit.
// Verification always uses the raw body bytes, never the rendered body.
func Inspect(v *Verifier, snap inspect.Snapshot, deliveryID string, receivedAt time.Time) (int, inspect.Report) {
	result := v.Verify(snap)
	status := result.Outcome.StatusCode()

	report := inspect.Report{
		DeliveryID: deliveryID,
		ReceivedAt: receivedAt,
		Request:    snap,
		Body:       inspect.RenderBody(snap.Body),
		Verification: inspect.Verification{
			Header:     SignatureHeader,
			Secret:     v.Secret(),
			Present:    result.Present,
			Algorithm:  result.Algorithm,
			Provided:   result.Provided,
			Calculated: result.Expected,
			Outcome:    result.Outcome.String(),
			Message:    result.Outcome.Message(),
		},
		Status: status,
	}
	return status, report
}

// Handler serves every path and method with the inspection pipeline.
type Handler struct {
	verifier    *Verifier
	sink        ReportSink
	maxBodySize int64
	logger      *slog.Logger
	metrics     *Metrics

	now   func() time.Time
	newID func() string
}

// NewHandler creates the catch-all inspection handler.
func NewHandler(verifier *Verifier, sink ReportSink, maxBodySize int64, logger *slog.Logger) *Handler {
	return &Handler{
		verifier:    verifier,
		sink:        sink,
		maxBodySize: maxBodySize,
		logger:      logger,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Enforce body size limit
	body, err := io.ReadAll(io.LimitReader(r.Body, h.maxBodySize+1))
	if err != nil {
		h.logger.Warn("failed to read request body", "path", r.URL.Path, "error", err)
		respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if int64(len(body)) > h.maxBodySize {
		h.logger.Warn("request body too large",
			"path", r.URL.Path,
			"max_body_size", h.maxBodySize,
		)
		respondError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	snap := inspect.Capture(r, body)
	deliveryID := h.newID()
	status, report := Inspect(h.verifier, snap, deliveryID, h.now())

	if err := h.sink.Emit(report); err != nil {
		h.logger.Error("failed to emit report", "delivery_id", deliveryID, "error", err)
	}

	outcome := report.Verification.Outcome
	h.metrics.observe(outcome, len(body))
	if status >= http.StatusBadRequest {
		h.logger.Warn("signature verification failed",
			"path", snap.Path,
			"delivery_id", deliveryID,
			"outcome", outcome,
		)
	}

	w.Header().Set(DeliveryHeader, deliveryID)
	w.Header().Set(OutcomeHeader, outcome)
	respondJSON(w, status, InspectResponse{DeliveryID: deliveryID, Outcome: outcome})
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends a JSON error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}
