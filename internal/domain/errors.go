package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNoSpeech           = errors.New("no speech detected")
	ErrCancelled          = errors.New("interview cancelled")
	ErrRequiredUnanswered = errors.New("required questions unanswered")
	ErrTooManyRestarts    = errors.New("too many interview restarts")
	ErrSelectionExhausted = errors.New("could not resolve apiary or hive")
)

// ConfigError reports unusable question definitions or reference data.
type ConfigError struct {
	QuestionID string
	Reason     string
	Err        error
}

func (e *ConfigError) Error() string {
	msg := "config: " + e.Reason
	if e.QuestionID != "" {
		msg = fmt.Sprintf("config: question %q: %s", e.QuestionID, e.Reason)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// CaptureError wraps a transcriber failure. Only ErrNoSpeech is retryable.
type CaptureError struct {
	Err error
}

func (e *CaptureError) Error() string { return "capture: " + e.Err.Error() }

func (e *CaptureError) Unwrap() error { return e.Err }

func (e *CaptureError) Retryable() bool { return errors.Is(e.Err, ErrNoSpeech) }

// ValidationError is a retryable rejection of a reply. Reason is meant to be
// spoken back to the user.
type ValidationError struct {
	QuestionID string
	Reason     string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: question %q: %s", e.QuestionID, e.Reason)
}

// FatalError means a question can never be answered as specified.
type FatalError struct {
	QuestionID string
	Reason     string
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal: question %q: %s", e.QuestionID, e.Reason)
}

type PersistenceStage string

const (
	StageLocal  PersistenceStage = "local"
	StageRemote PersistenceStage = "remote"
)

type PersistenceError struct {
	Stage    PersistenceStage
	RecordID string
	Err      error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence (%s) record %s: %v", e.Stage, e.RecordID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// SyncError stops a reconciliation run. Synced records are already removed
// from the queue; Remaining includes the failed one.
type SyncError struct {
	RecordID  string
	File      string
	Synced    int
	Remaining int
	Err       error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("sync stopped at %s (synced %d, remaining %d): %v", e.File, e.Synced, e.Remaining, e.Err)
}

func (e *SyncError) Unwrap() error { return e.Err }
