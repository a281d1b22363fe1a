package records

import (
	"errors"
	"fmt"
)

// NetworkError means the records API could not be reached at all:
// connection refused, timeout, DNS failure.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("records: %s: records API unreachable: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// NotFoundError means the named resource does not exist upstream.
type NotFoundError struct {
	Resource string
	Name     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("records: no %s found for %q", e.Resource, e.Name)
}

// ServerError covers non-2xx responses that are not a not-found, and
// success responses whose body could not be decoded.
type ServerError struct {
	Op         string
	StatusCode int
	Detail     string
}

func (e *ServerError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("records: %s: API error (status %d): %s", e.Op, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("records: %s: API error (status %d)", e.Op, e.StatusCode)
}

// QueryError is a rejected question submission. Detail carries the
// upstream explanation when the response included one.
type QueryError struct {
	Detail string
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("records: query failed: %s", e.Detail)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsNetwork reports whether err is a NetworkError.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
