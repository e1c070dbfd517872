package extract

import (
	"errors"
	"fmt"
	"strings"
)

// ErrBlobNotFound is matched by every *BlobNotFoundError.
var ErrBlobNotFound = errors.New("match data blob not found")

// StageAttempt records what one locator stage looked at.
type StageAttempt struct {
	Stage      Stage
	Texts      int
	Candidates int
	Malformed  int
	Err        error
}

// BlobNotFoundError is returned when no stage produced a qualifying blob.
type BlobNotFoundError struct {
	Attempts []StageAttempt
}

func (e *BlobNotFoundError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		p := fmt.Sprintf("%s(texts=%d candidates=%d malformed=%d)", a.Stage, a.Texts, a.Candidates, a.Malformed)
		if a.Err != nil {
			p += ": " + a.Err.Error()
		}
		parts = append(parts, p)
	}
	return fmt.Sprintf("%v after %s", ErrBlobNotFound, strings.Join(parts, ", "))
}

// Is reports ErrBlobNotFound equivalence
func (e *BlobNotFoundError) Is(target error) bool {
	return target == ErrBlobNotFound
}

// Stages returns the stages that were attempted, in order.
func (e *BlobNotFoundError) Stages() []Stage {
	stages := make([]Stage, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		stages = append(stages, a.Stage)
	}
	return stages
}
