package syntax

import (
	"errors"
	"fmt"

	"github.com/jward/arbor/internal/abi"
)

var (
	// ErrNoLanguage is returned by Parse when no language has been set.
	ErrNoLanguage = errors.New("syntax: no language set")

	// ErrIncompatibleLanguage is the sentinel wrapped by IncompatibleLanguageError.
	ErrIncompatibleLanguage = errors.New("syntax: incompatible language")

	// ErrTreeClosed is returned when a closed Tree handle is used as input.
	ErrTreeClosed = errors.New("syntax: tree is closed")

	// ErrLanguageMismatch is returned when an old tree was produced by a
	// different language than the parser's.
	ErrLanguageMismatch = errors.New("syntax: old tree language does not match parser language")
)

// IncompatibleLanguageError reports a grammar whose ABI revision the engine
// cannot load.
type IncompatibleLanguageError struct {
	Language string
	Version  uint32
	Min      uint32
	Max      uint32
}

func newIncompatibleLanguageError(l *Language) *IncompatibleLanguageError {
	e := &IncompatibleLanguageError{
		Min: abi.MinCompatibleLanguageVersion,
		Max: abi.LanguageVersion,
	}
	if l != nil {
		e.Language = l.name
		e.Version = l.version
	}
	return e
}

func (e *IncompatibleLanguageError) Error() string {
	if e.Language == "" {
		return "syntax: incompatible language: nil language"
	}
	return fmt.Sprintf("syntax: incompatible language %q: abi version %d, engine supports %d through %d",
		e.Language, e.Version, e.Min, e.Max)
}

func (e *IncompatibleLanguageError) Unwrap() error { return ErrIncompatibleLanguage }
