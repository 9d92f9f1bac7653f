package realtime

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidState is returned by Activate on a controller that is already loading or active.
	ErrInvalidState = errors.New("realtime: controller already active")
	// ErrDeactivated is returned when a controller was deactivated while an activation was in flight.
	ErrDeactivated = errors.New("realtime: controller deactivated")
)

// TransportError means a fetch, write or subscription failed at the network or service boundary.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ValidationError means the caller supplied invalid input. It is raised before any RPC is issued,
// or relayed from a server-side constraint violation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// ReconciliationAnomaly reports a feed event whose key matched neither a local record nor an
// in-flight write. It is non-fatal: the event is merged as a fresh insert.
type ReconciliationAnomaly struct {
	Table string
	Key   string
	Kind  Kind
}

func (e *ReconciliationAnomaly) Error() string {
	return fmt.Sprintf("reconciliation anomaly: %s %s for unknown key %q", e.Table, e.Kind, e.Key)
}

func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// asTransport wraps err as a TransportError unless it already carries a classification.
func asTransport(op string, err error) error {
	if err == nil {
		return nil
	}
	if IsTransport(err) || IsValidation(err) {
		return err
	}
	return &TransportError{Op: op, Err: err}
}
