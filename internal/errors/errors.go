// Package errors defines the compiler's error taxonomy: source errors that
// carry a position (lexical, syntax, semantic) and internal errors that
// indicate a compiler bug rather than a fault in the input program.
package errors

import (
	"fmt"

	pkgerrors "github.com/pkg/errors"

	"github.com/minijava-lang/minijava/internal/token"
)

// Stage identifies which pipeline stage raised a SourceError.
type Stage string

const (
	Lexical  Stage = "lexical error"
	Syntax   Stage = "syntax error"
	Semantic Stage = "semantic error"
)

// SourceError is the one designated error kind per stage, always carrying
// a source position.
type SourceError struct {
	Stage    Stage
	Message  string
	Position token.Position
	File     string
}

func (e *SourceError) Error() string {
	file := e.File
	if file == "" {
		file = "-"
	}
	return fmt.Sprintf("%s:%s: %s: %s", file, e.Position, e.Stage, e.Message)
}

// NewLexical reports a malformed token.
func NewLexical(pos token.Position, format string, args ...interface{}) *SourceError {
	return &SourceError{Stage: Lexical, Message: fmt.Sprintf(format, args...), Position: pos}
}

// NewSyntax reports an unexpected token, optionally naming what was
// expected.
func NewSyntax(pos token.Position, format string, args ...interface{}) *SourceError {
	return &SourceError{Stage: Syntax, Message: fmt.Sprintf(format, args...), Position: pos}
}

// NewSemantic reports a type mismatch, undefined name, duplicate
// declaration, or any other static-semantics violation.
func NewSemantic(pos token.Position, format string, args ...interface{}) *SourceError {
	return &SourceError{Stage: Semantic, Message: fmt.Sprintf(format, args...), Position: pos}
}

// WithFile attaches the originating file name, used by the CLI when
// formatting its single stderr diagnostic line.
func (e *SourceError) WithFile(file string) *SourceError {
	e.File = file
	return e
}

// InternalKind distinguishes the flavors of internal (non-source) error:
// the compiler reached a case it cannot yet handle, an invariant was
// violated, or a system call failed.
type InternalKind string

const (
	NotImplemented     InternalKind = "not implemented"
	InvariantViolation InternalKind = "invariant violation"
	SystemError        InternalKind = "system error"
)

// NewInternal wraps msg with a stack trace via github.com/pkg/errors so the
// CLI can report where in the compiler (not the program) things went
// wrong; IR building and optimization never raise SourceErrors, only these.
func NewInternal(kind InternalKind, format string, args ...interface{}) error {
	return pkgerrors.Wrap(pkgerrors.New(fmt.Sprintf(format, args...)), string(kind))
}

// Assert panics with an InvariantViolation internal error if cond is false.
// Optimizer passes and the IR builder use this liberally to enforce graph
// invariants that must never be violated by correct compiler code.
func Assert(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(NewInternal(InvariantViolation, format, args...))
	}
}
