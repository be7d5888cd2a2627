package ops

import (
	"fmt"

	"github.com/fontkeep/fontkeep/internal/font"
	"github.com/fontkeep/fontkeep/internal/validator"
)

// ValidationFailedError aborts an install before any journal entry
// exists. Results holds the full batch so callers can show per-file
// reasons.
type ValidationFailedError struct {
	Results []validator.Result
}

func (e *ValidationFailedError) Error() string {
	failed := 0
	var first *validator.WireError
	for _, r := range e.Results {
		if r.Err != nil {
			failed++
			if first == nil {
				first = r.Err
			}
		}
	}
	if first == nil {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed for %d of %d file(s): %s: %s",
		failed, len(e.Results), first.Kind, first.Message)
}

// NotInstalledError is returned when an uninstall target cannot be
// found at the requested scope.
type NotInstalledError struct {
	Target string
	Scope  font.Scope
}

func (e *NotInstalledError) Error() string {
	return fmt.Sprintf("%q is not installed at %s scope", e.Target, e.Scope)
}

// ExecutionError is returned when a journaled action fails mid-plan.
// The journal entry stays incomplete for the recovery engine.
type ExecutionError struct {
	EntryID string
	Step    uint
	Action  string
	Err     error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("step %d (%s) of entry %s failed: %v; run doctor to recover",
		e.Step, e.Action, e.EntryID, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
