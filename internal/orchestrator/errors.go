package orchestrator

import (
	"errors"
	"fmt"
)

var (
	// ErrComplianceFailed is returned with the bundle when the compliance
	// policy is fail_closed and the report did not pass.
	ErrComplianceFailed = errors.New("compliance check failed")
	// ErrCapabilityUnavailable means no extraction call reached the backend.
	ErrCapabilityUnavailable = errors.New("text generation capability unavailable")
)

// StageError wraps a fatal failure with the stage it happened in.
type StageError struct {
	Stage State
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }
