package vm

import (
	"lattice/pkg/errors"
	"lattice/pkg/value"
)

// ThrownError wraps a JS value propagating via Throw or any of the
// built-in runtime faults (TypeError, RangeError, ReferenceError) the
// dispatcher itself raises (spec.md §4.5). It implements error so the
// recursive Call chain can carry it up through every intervening Go
// (and hence JS) frame until a catch handler consumes it or it
// reaches the embedder boundary. An error that is NOT a *ThrownError
// is an engine-internal fault (spec.md §7: "cause an abort; a running
// script cannot catch these") and is never offered to a try/catch.
type ThrownError struct {
	Value value.Value
}

func (t *ThrownError) Error() string { return t.Value.Inspect() }

func (vm *VM) throwError(kind, msg string) error {
	return &ThrownError{Value: vm.Heap.NewError(value.Undefined, kind, msg)}
}

func (vm *VM) typeError(msg string) error      { return vm.throwError("TypeError", msg) }
func (vm *VM) rangeError(msg string) error     { return vm.throwError("RangeError", msg) }
func (vm *VM) referenceError(msg string) error { return vm.throwError("ReferenceError", msg) }

// ToJsError converts whatever vm.Execute returned into the structured,
// embedder-facing shape of spec.md §6.4. A *ThrownError wrapping a
// Lattice Error object maps its Name to the matching JsErrorKind; any
// other thrown value (e.g. `throw 42`) is reported as an
// InternalError carrying its printed form, since JsErrorKind has no
// "arbitrary thrown value" variant. A plain (non-ThrownError) error is
// always an InternalError: it crossed the boundary precisely because
// no try/catch could have observed it either.
func ToJsError(err error) *errors.JsError {
	if err == nil {
		return nil
	}
	te, ok := err.(*ThrownError)
	if !ok {
		return &errors.JsError{Kind: errors.KindInternalError, Message: err.Error()}
	}
	if e := te.Value.AsError(); e != nil {
		kind := errors.KindInternalError
		switch e.Name {
		case "TypeError":
			kind = errors.KindTypeError
		case "RangeError":
			kind = errors.KindRangeError
		case "ReferenceError":
			kind = errors.KindReferenceError
		case "SyntaxError":
			kind = errors.KindSyntaxError
		case "URIError":
			kind = errors.KindURIError
		case "EvalError":
			kind = errors.KindEvalError
		case "AggregateError":
			kind = errors.KindAggregateError
		}
		return &errors.JsError{Kind: kind, Message: e.Message}
	}
	return &errors.JsError{Kind: errors.KindInternalError, Message: te.Value.Inspect()}
}
