package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")

	// Code generation and redemption
	ErrExhaustedGenerationBudget = errors.New("code generation budget exhausted")
	ErrDuplicateCode             = errors.New("generated code collides with an existing code")
	ErrAlreadyRedeemed           = errors.New("access code already redeemed")

	// Archive delivery
	ErrAssemblyFailed  = errors.New("archive assembly failed")
	ErrArchiveNotFound = errors.New("pre-built archive not found")

	// Auth
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrRateLimited        = errors.New("too many attempts")
)

// AssemblyError reports the object whose retrieval aborted an archive build.
// It matches ErrAssemblyFailed with errors.Is and unwraps to the cause.
type AssemblyError struct {
	Key string
	Err error
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("archive assembly failed at %q: %v", e.Key, e.Err)
}

func (e *AssemblyError) Unwrap() []error { return []error{ErrAssemblyFailed, e.Err} }
