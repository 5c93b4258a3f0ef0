package db

import "errors"

// Sentinel errors for database operations.
var (
	ErrKeyNotFound        = errors.New("db: key not found")
	ErrNoActiveGeneration = errors.New("db: no active index generation")
)

// Op constants name the failing operation for error context.
const (
	OpGet      = "GET"
	OpSet      = "SET"
	OpPing     = "PING"
	OpSchema   = "SCHEMA"
	OpWrite    = "WRITE_GENERATION"
	OpActivate = "ACTIVATE_GENERATION"
	OpPrune    = "PRUNE_GENERATIONS"
	OpScan     = "SCAN_VECTORS"
	OpLoad     = "LOAD_GENERATION"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
