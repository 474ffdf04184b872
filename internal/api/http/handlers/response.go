package handlers

import (
	"net/http"

	"github.com/flowmesh/schemagate/internal/jsoncodec"
)

// Error codes returned in ErrorResponse.Code
const (
	CodeBadRequest             = "bad_request"
	CodePayloadTooLarge        = "payload_too_large"
	CodeMethodNotAllowed       = "method_not_allowed"
	CodeSchemaStoreUnavailable = "schema_store_unavailable"
	CodeTimeout                = "timeout"
	CodeInternal               = "internal_error"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	BatchID string `json:"batch_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Status is already on the wire; an encode failure can only be a broken connection
	_ = jsoncodec.Encode(w, v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: msg})
}
