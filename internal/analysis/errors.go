package analysis

import (
	"errors"
	"fmt"
	"io/fs"
)

// ErrMissingColumn indicates the file is not an enriched churn dataset.
var ErrMissingColumn = errors.New("dataset is missing column")

// MissingDerivedFileError indicates the enriched dataset has not been generated.
// It matches fs.ErrNotExist under errors.Is.
type MissingDerivedFileError struct {
	Path string
}

func (e *MissingDerivedFileError) Error() string {
	return fmt.Sprintf("dataset '%s' not found. Please run 'churnlens generate' first", e.Path)
}

func (e *MissingDerivedFileError) Unwrap() error { return fs.ErrNotExist }

// ValueError reports a derived cell that does not parse.
type ValueError struct {
	Row    int
	Column string
	Value  string
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("row %d: %s value %q is not numeric", e.Row, e.Column, e.Value)
}
