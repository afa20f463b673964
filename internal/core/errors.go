package core

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrGuildNotFound   = errors.New("guild not found")
	ErrMalformedState  = errors.New("malformed durable state")
	ErrStaleRecord     = errors.New("stale memory record")
	ErrInvalidSettings = errors.New("invalid settings")
)

// StaleRecordsError lists upserted records that were skipped because the
// stored copy carries a later timestamp. The rest of the batch was saved.
type StaleRecordsError struct {
	MemoryIDs []string
}

func (e *StaleRecordsError) Error() string {
	return fmt.Sprintf("%s: %s", ErrStaleRecord, strings.Join(e.MemoryIDs, ", "))
}

func (e *StaleRecordsError) Is(target error) bool {
	return target == ErrStaleRecord
}

// StaleOrNil returns a StaleRecordsError for ids, or nil when ids is empty.
func StaleOrNil(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return &StaleRecordsError{MemoryIDs: ids}
}
