package profilecache

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/wolfman30/patient-records-viewer/internal/records"
)

// EntryStatus marks how a cached entry ended up.
type EntryStatus string

const (
	StatusReady  EntryStatus = "ready"
	StatusFailed EntryStatus = "failed"
)

// ReloadedFailureReason stands in for the original failure message on
// entries reloaded from the store, which keeps only the fact of the
// failure.
const ReloadedFailureReason = "summary unavailable"

// Entry is one patient's cached summary, or the record of a failed
// fetch. Failures are cached so a summary that keeps failing is not
// refetched on every view; only an explicit Refresh clears one.
type Entry struct {
	Status  EntryStatus
	Summary records.Summary

	// Reason is the failure message shown to the user. Not persisted.
	Reason string
}

// MarshalJSON writes the persisted form: a ready entry is its summary
// object, a failed entry is null. The stored document stays a plain
// name-to-summary map.
func (e Entry) MarshalJSON() ([]byte, error) {
	if e.Status == StatusFailed {
		return []byte("null"), nil
	}
	return json.Marshal(e.Summary)
}

// UnmarshalJSON accepts the persisted form. Summaries are normalized on
// the way in so entries stored before a summary section existed still
// render placeholders.
func (e *Entry) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*e = Entry{Status: StatusFailed, Reason: ReloadedFailureReason}
		return nil
	}
	var s records.Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*e = Entry{Status: StatusReady, Summary: s.Normalize()}
	return nil
}

// PersistenceError wraps a cache store failure. Never fatal: the
// in-memory cache keeps serving and the error surfaces on the status
// endpoint.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("profilecache: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
