package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSectionNotFound is returned when no element carries the configured section id.
	ErrSectionNotFound = errors.New("section not found")
	// ErrFigureNotFound is returned when a configured figure position exceeds the section's script count.
	ErrFigureNotFound = errors.New("figure not found")
	// ErrShapeMismatch is the sentinel every ShapeError unwraps to.
	ErrShapeMismatch = errors.New("data shape mismatch")
)

// ShapeError reports a widget payload or table whose structure differs from
// what the extractor expects. It usually means the upstream page changed.
type ShapeError struct {
	Source string
	Detail string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrShapeMismatch, e.Source, e.Detail)
}

func (e *ShapeError) Unwrap() error { return ErrShapeMismatch }

func shapeErrorf(source, format string, args ...any) error {
	return &ShapeError{Source: source, Detail: fmt.Sprintf(format, args...)}
}
