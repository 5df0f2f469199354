package db

import "errors"

// Sentinel errors for database operations.
var (
	ErrKeyNotFound     = errors.New("db: key not found")
	ErrNotConnected    = errors.New("db: not connected")
	ErrInvalidArgument = errors.New("db: invalid argument")
)

// Op constants name the failing command for error context.
const (
	OpPing            = "ping"
	OpListCollections = "listCollections"
	OpEstimatedCount  = "estimatedDocumentCount"
	OpSample          = "findOne"
	OpListIndexes     = "listIndexes"
	OpFind            = "find"
	OpAggregate       = "aggregate"
	OpCountDocuments  = "countDocuments"
	OpGet             = "GET"
	OpSet             = "SET"
)

// Error wraps an underlying error with the operation name for diagnostics.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
