package source

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound marks a missing content root or required file.
	ErrNotFound = errors.New("not found")

	// ErrIO marks a single unreadable file.
	ErrIO = errors.New("io error")
)

// NotFoundError reports a missing root directory. It aborts a run before
// any checks execute.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("content root %s: %s", e.Path, ErrNotFound)
}

// Unwrap returns ErrNotFound.
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// FileError reports a file that could not be loaded. The file is excluded
// from the set and the run continues.
type FileError struct {
	Path string
	Kind error
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

// Unwrap exposes both the error kind and the underlying cause.
func (e *FileError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}
