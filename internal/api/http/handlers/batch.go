package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/flowmesh/schemagate/internal/event"
	"github.com/flowmesh/schemagate/internal/logger"
	"github.com/flowmesh/schemagate/internal/router"
	"github.com/flowmesh/schemagate/internal/sink"
)

// BatchRouter routes one decoded batch
type BatchRouter interface {
	RouteBatch(ctx context.Context, batch *event.Batch) (*router.Outcome, error)
}

// BatchResponse is returned once both sinks accepted the batch
type BatchResponse struct {
	Status  string `json:"status"`
	BatchID string `json:"batch_id"`
	Valid   int    `json:"valid"`
	Invalid int    `json:"invalid"`
}

// BatchHandler serves POST /v1/batch and POST /validate/segment
type BatchHandler struct {
	router       BatchRouter
	maxBodyBytes int64
	log          zerolog.Logger
}

// NewBatchHandler creates a batch handler. Bodies above maxBodyBytes are rejected.
func NewBatchHandler(r BatchRouter, maxBodyBytes int64) *BatchHandler {
	return &BatchHandler{
		router:       r,
		maxBodyBytes: maxBodyBytes,
		log:          logger.WithComponent("http.batch"),
	}
}

func (h *BatchHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method not allowed")
		return
	}

	body := r.Body
	if h.maxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, CodeBadRequest, "failed to read body: "+err.Error())
		return
	}

	batch, err := event.DecodeBatch(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	out, err := h.router.RouteBatch(r.Context(), batch)
	if err != nil {
		h.writeRouteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, BatchResponse{
		Status:  "ok",
		BatchID: out.BatchID,
		Valid:   out.Valid,
		Invalid: out.Invalid,
	})
}

// writeRouteError maps batch failures onto gateway-style statuses so the
// client knows the whole batch must be retried.
func (h *BatchHandler) writeRouteError(w http.ResponseWriter, err error) {
	var be router.BatchError
	if !errors.As(err, &be) {
		h.log.Error().Err(err).Msg("Unexpected routing error")
		writeError(w, http.StatusInternalServerError, CodeInternal, err.Error())
		return
	}

	resp := ErrorResponse{Message: be.Message, BatchID: be.BatchID}
	status := http.StatusInternalServerError

	switch be.Kind {
	case router.KindSchemaStoreUnavailable:
		status = http.StatusServiceUnavailable
		resp.Code = CodeSchemaStoreUnavailable
	case router.KindCanceled:
		status = http.StatusGatewayTimeout
		resp.Code = CodeTimeout
	case router.KindSinkDelivery:
		status = http.StatusBadGateway
		if be.Code == sink.CodeTimeout {
			status = http.StatusGatewayTimeout
		}
		resp.Code = be.Code
	default:
		resp.Code = CodeInternal
	}

	writeJSON(w, status, resp)
}
