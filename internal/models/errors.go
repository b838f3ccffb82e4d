package models

import (
	"errors"
	"fmt"
)

var (
	ErrNoDocuments    = errors.New("no documents loaded")
	ErrEmptyDirectory = errors.New("no PDF files found")
	ErrEmptyQuestion  = errors.New("question is empty")
)

// LoadError means the document set could not be loaded; answering is disabled.
type LoadError struct {
	Dir string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load PDFs from %s: %v", e.Dir, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// ModelInvocationError wraps a failed call to the generation or embedding backend.
type ModelInvocationError struct {
	Op    string
	Model string
	Err   error
}

func (e *ModelInvocationError) Error() string {
	return fmt.Sprintf("%s with model %s failed: %v", e.Op, e.Model, e.Err)
}

func (e *ModelInvocationError) Unwrap() error { return e.Err }

// LogIOError wraps a failure to read or write the interaction log.
type LogIOError struct {
	Path string
	Op   string
	Err  error
}

func (e *LogIOError) Error() string {
	return fmt.Sprintf("failed to %s interaction log %s: %v", e.Op, e.Path, e.Err)
}

func (e *LogIOError) Unwrap() error { return e.Err }
