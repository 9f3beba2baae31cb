package enrich

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	// ErrMissingColumn indicates the source lacks a column the pipeline reads.
	ErrMissingColumn = errors.New("missing required column")
	// ErrAlreadyEnriched indicates the source already carries derived columns.
	ErrAlreadyEnriched = errors.New("input already contains derived column")
)

// MissingInputFileError indicates the source table does not exist.
// It matches fs.ErrNotExist under errors.Is.
type MissingInputFileError struct {
	Path string
}

func (e *MissingInputFileError) Error() string {
	return fmt.Sprintf("input file not found at %s", e.Path)
}

func (e *MissingInputFileError) Unwrap() error { return fs.ErrNotExist }

// RowError points at a source row (1-based, header excluded) that cannot be used.
type RowError struct {
	Row    int
	Column string
	Value  string
	// Reason defaults to "is not numeric".
	Reason string
}

func (e *RowError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "is not numeric"
	}
	return fmt.Sprintf("row %d: %s value %q %s", e.Row, e.Column, e.Value, reason)
}
