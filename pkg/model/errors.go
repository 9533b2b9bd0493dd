package model

import "errors"

var (
	// ErrInvalidInput observation counts or address are missing or malformed
	ErrInvalidInput = errors.New("invalid input")
	// ErrAnnotationUnavailable annotation failed or no annotator is configured
	ErrAnnotationUnavailable = errors.New("annotation unavailable")
	// ErrInvalidCondition custom rule condition cannot be evaluated
	ErrInvalidCondition = errors.New("invalid condition")
	// ErrPatternExists a custom pattern with the same name is already stored
	ErrPatternExists = errors.New("pattern already exists")
	// ErrPatternNotFound no custom pattern with the given name
	ErrPatternNotFound = errors.New("pattern not found")
)
