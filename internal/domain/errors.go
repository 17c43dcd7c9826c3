package domain

import "fmt"

// EngineError is the unified error type for the engine.
// Each error has a numeric code and human-readable message.
type EngineError struct {
	Code    int
	Message string
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	return fmt.Sprintf("engine error %d: %s", e.Code, e.Message)
}

// NewEngineError creates a new EngineError.
func NewEngineError(code int, msg string) *EngineError {
	return &EngineError{Code: code, Message: msg}
}

// WrapEngineError creates an EngineError that includes a cause.
func WrapEngineError(code int, msg string, cause error) *EngineError {
	return &EngineError{Code: code, Message: fmt.Sprintf("%s: %v", msg, cause)}
}

// ---- Session lifecycle errors (1000-1019) ----

var (
	ErrSessionNotStarted = &EngineError{Code: 1000, Message: "no active simulator session"}
	ErrSessionClosed     = &EngineError{Code: 1001, Message: "environment has been closed"}
	ErrSimUnreachable    = &EngineError{Code: 1002, Message: "simulator endpoint unreachable"}
	ErrSimProtocol       = &EngineError{Code: 1003, Message: "unexpected simulator response"}
)

// ---- Control contract errors (1020-1039) ----

var (
	ErrActionShape    = &EngineError{Code: 1020, Message: "action count does not match intersection roster"}
	ErrEmptyRoster    = &EngineError{Code: 1021, Message: "environment requires at least one intersection"}
	ErrUnknownAction  = &EngineError{Code: 1022, Message: "action must be hold (0) or switch (1)"}
	ErrNoPolicyBound  = &EngineError{Code: 1023, Message: "agent has no policy to select actions with"}
)

// ---- Policy artifact errors (1040-1059) ----

var (
	ErrModelNotFound   = &EngineError{Code: 1040, Message: "policy artifact not found"}
	ErrArtifactCorrupt = &EngineError{Code: 1041, Message: "policy artifact failed to decode"}
)

// ---- Store errors (1060-1079) ----

var (
	ErrStoreInit       = &EngineError{Code: 1060, Message: "failed to initialize store"}
	ErrEpisodeNotFound = &EngineError{Code: 1061, Message: "episode not found"}
	ErrRunNotFound     = &EngineError{Code: 1062, Message: "comparison run not found"}
)

// ---- Config errors (1080-1099) ----

var (
	ErrConfigInvalid = &EngineError{Code: 1080, Message: "invalid configuration"}
)
