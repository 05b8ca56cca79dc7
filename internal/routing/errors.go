package routing

import "errors"

// Failure kinds. Match with errors.Is against the error returned by the engine.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNoRoute      = errors.New("no route found")
	ErrRouteTimeout = errors.New("routing timed out")
	ErrNoFacility   = errors.New("no facility of requested category")
)

// RouteError is a structured routing failure with a human-readable reason.
type RouteError struct {
	Kind   error
	Reason string
}

func (e *RouteError) Error() string {
	if e.Reason == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Reason
}

func (e *RouteError) Unwrap() error { return e.Kind }

func fail(kind error, reason string) *RouteError {
	return &RouteError{Kind: kind, Reason: reason}
}
