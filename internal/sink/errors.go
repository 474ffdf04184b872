package sink

import (
	"context"
	"errors"
	"fmt"
)

// Delivery error codes
const (
	CodeDeliveryFailed = "delivery_failed"
	CodeUnavailable    = "sink_unavailable"
	CodeTimeout        = "sink_timeout"
	CodeEncode         = "encode_failed"
)

// DeliveryError is a failed flush, carrying the code and message reported
// by the destination.
type DeliveryError struct {
	Sink    string
	Code    string
	Message string
	Err     error
}

func (e DeliveryError) Error() string {
	return fmt.Sprintf("sink %s: %s: %s", e.Sink, e.Code, e.Message)
}

func (e DeliveryError) Unwrap() error {
	return e.Err
}

// AsDeliveryError converts err into a DeliveryError for sinkName, keeping
// an existing code when err already is one.
func AsDeliveryError(sinkName string, err error) DeliveryError {
	var de DeliveryError
	if errors.As(err, &de) {
		if de.Sink == "" {
			de.Sink = sinkName
		}
		return de
	}

	code := CodeDeliveryFailed
	if errors.Is(err, context.DeadlineExceeded) {
		code = CodeTimeout
	}
	return DeliveryError{Sink: sinkName, Code: code, Message: err.Error(), Err: err}
}
