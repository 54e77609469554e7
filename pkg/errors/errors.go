package errors

import "fmt"

// LatticeError is the interface implemented by all compile-time and
// lexical errors raised while turning source into a bytecode chunk.
type LatticeError interface {
	error // Embed the standard error interface
	Pos() Position
	Kind() string // e.g., "Syntax", "Compile", "Reference", "Type", "Range"
	// Message returns the specific error message without position info.
	// This might be useful if the caller wants to format the error differently.
	Message() string
}

// --- Concrete Error Types ---

// SyntaxError represents an error during lexing or parsing.
type SyntaxError struct {
	Position
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("Syntax Error at %d:%d: %s", e.Line, e.Column, e.Msg)
}
func (e *SyntaxError) Pos() Position   { return e.Position }
func (e *SyntaxError) Kind() string    { return "Syntax" }
func (e *SyntaxError) Message() string { return e.Msg }

// CompileError represents an error raised by the scope analyzer or
// bytecode generator (e.g. an invalid assignment target, a duplicate
// binding in the same scope, a malformed break/continue target).
type CompileError struct {
	Position
	Msg string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("Compile Error at %d:%d: %s", e.Line, e.Column, e.Msg)
}
func (e *CompileError) Pos() Position   { return e.Position }
func (e *CompileError) Kind() string    { return "Compile" }
func (e *CompileError) Message() string { return e.Msg }

// ReferenceError represents a runtime reference to an unresolved
// global or a temporal-dead-zone access of an uninitialized binding.
type ReferenceError struct {
	Position
	Msg string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("Reference Error at %d:%d: %s", e.Line, e.Column, e.Msg)
}
func (e *ReferenceError) Pos() Position   { return e.Position }
func (e *ReferenceError) Kind() string    { return "Reference" }
func (e *ReferenceError) Message() string { return e.Msg }

// RuntimeTypeError represents a runtime type violation (calling a
// non-callable, accessing a property of null/undefined, and so on).
// Named RuntimeTypeError to avoid colliding with the static TypeError
// the teacher's (now removed) checker raised; this engine has no
// static type layer, so every TypeError is a runtime one.
type RuntimeTypeError struct {
	Position
	Msg string
}

func (e *RuntimeTypeError) Error() string {
	return fmt.Sprintf("Type Error at %d:%d: %s", e.Line, e.Column, e.Msg)
}
func (e *RuntimeTypeError) Pos() Position   { return e.Position }
func (e *RuntimeTypeError) Kind() string    { return "Type" }
func (e *RuntimeTypeError) Message() string { return e.Msg }

// RangeError represents a value outside an operation's valid domain:
// stack overflow, invalid array length, BigInt division by zero.
type RangeError struct {
	Position
	Msg string
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("Range Error at %d:%d: %s", e.Line, e.Column, e.Msg)
}
func (e *RangeError) Pos() Position   { return e.Position }
func (e *RangeError) Kind() string    { return "Range" }
func (e *RangeError) Message() string { return e.Msg }

// InternalError represents an engine-internal failure: a malformed
// bytecode stream, a corrupt frame, a failed JIT compilation that
// could not even fall back cleanly. Surfaced to the embedder and
// terminates the current script (spec.md §7).
type InternalError struct {
	Position
	Msg string
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("Internal Error at %d:%d: %s", e.Line, e.Column, e.Msg)
}
func (e *InternalError) Pos() Position   { return e.Position }
func (e *InternalError) Kind() string    { return "Internal" }
func (e *InternalError) Message() string { return e.Msg }

// RuntimeError represents a generic error during program execution
// that doesn't fit one of the specific kinds above.
type RuntimeError struct {
	Position
	Msg string
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("Runtime Error at %d:%d: %s", e.Line, e.Column, e.Msg)
}
func (e *RuntimeError) Pos() Position   { return e.Position }
func (e *RuntimeError) Kind() string    { return "Runtime" }
func (e *RuntimeError) Message() string { return e.Msg }

// StackFrame is one entry of a JsError's captured call stack.
type StackFrame struct {
	FunctionName string
	FileName     string
	Line         int
	Column       int
}

// JsErrorKind enumerates the embedder-facing error kinds of spec.md §6.4.
type JsErrorKind string

const (
	KindSyntaxError    JsErrorKind = "SyntaxError"
	KindReferenceError JsErrorKind = "ReferenceError"
	KindTypeError      JsErrorKind = "TypeError"
	KindRangeError     JsErrorKind = "RangeError"
	KindURIError       JsErrorKind = "URIError"
	KindEvalError      JsErrorKind = "EvalError"
	KindAggregateError JsErrorKind = "AggregateError"
	KindInternalError  JsErrorKind = "InternalError"
)

// JsError is the structured error value that crosses the embedder
// boundary (spec.md §6.4). Every LatticeError, and every uncaught
// thrown Value, is converted to one of these before it reaches a
// pkg/runtime caller.
type JsError struct {
	Kind           JsErrorKind
	Message        string
	Stack          []StackFrame
	SourcePosition *Position
}

func (e *JsError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// FromLatticeError maps a compile-time LatticeError onto the
// embedder-facing JsErrorKind taxonomy.
func FromLatticeError(err LatticeError) *JsError {
	pos := err.Pos()
	kind := KindInternalError
	switch err.Kind() {
	case "Syntax":
		kind = KindSyntaxError
	case "Reference":
		kind = KindReferenceError
	case "Type":
		kind = KindTypeError
	case "Range":
		kind = KindRangeError
	case "Compile", "Internal", "Runtime":
		kind = KindInternalError
	}
	return &JsError{Kind: kind, Message: err.Message(), SourcePosition: &pos}
}
