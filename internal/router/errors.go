package router

import "fmt"

// Kind classifies a batch-level failure
type Kind string

const (
	// KindSchemaStoreUnavailable means the schema source could not answer;
	// the caller should retry the whole batch.
	KindSchemaStoreUnavailable Kind = "schema_store_unavailable"
	// KindSinkDelivery means a flush failed after every event was classified
	KindSinkDelivery Kind = "sink_delivery"
	// KindCanceled means the batch context ended before the flush
	KindCanceled Kind = "canceled"
)

// BatchError is a batch-level failure. Per-event problems never surface as
// a BatchError.
type BatchError struct {
	Kind    Kind
	BatchID string
	// Sink and Code are set for KindSinkDelivery
	Sink    string
	Code    string
	Message string
	Err     error
}

func (e BatchError) Error() string {
	if e.Sink != "" {
		return fmt.Sprintf("batch %s: %s on sink %s (%s): %s", e.BatchID, e.Kind, e.Sink, e.Code, e.Message)
	}
	return fmt.Sprintf("batch %s: %s: %s", e.BatchID, e.Kind, e.Message)
}

func (e BatchError) Unwrap() error {
	return e.Err
}
