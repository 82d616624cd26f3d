package domain

import (
	"errors"
	"fmt"
)

// Configuration errors. They abort a resolution pass.
var (
	ErrUnknownRun    = errors.New("unknown run")
	ErrMissingRoot   = errors.New("missing file root")
	ErrNoVariants    = errors.New("no variants discovered")
	ErrAmbiguousPath = errors.New("ambiguous relative path")
	ErrInvalidName   = errors.New("invalid identifier")
)

// ConfigError reports an inconsistently declared build. Name is the
// identifier the build author has to fix.
type ConfigError struct {
	Kind    error
	Name    string
	Context string
}

func (e *ConfigError) Error() string {
	if e.Context == "" {
		return fmt.Sprintf("%s %q", e.Kind, e.Name)
	}
	return fmt.Sprintf("%s %q (%s)", e.Kind, e.Name, e.Context)
}

func (e *ConfigError) Unwrap() error {
	return e.Kind
}

// AmbiguousPathError is returned when one FileRoot holds the same relative
// path in two of its directories.
type AmbiguousPathError struct {
	Path   RelativePath
	First  string
	Second string
}

func (e *AmbiguousPathError) Error() string {
	return fmt.Sprintf("%s %q: found in %s and %s", ErrAmbiguousPath, e.Path, e.First, e.Second)
}

func (e *AmbiguousPathError) Unwrap() error {
	return ErrAmbiguousPath
}
