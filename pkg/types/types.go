// Package types carries the minimal static-type marker the parser's AST
// nodes embed for a TypeScript-shaped front end. The core described by
// this repository has no static type checker (spec.md §1 scopes type
// checking out as library/front-end code); ComputedType fields are
// never populated and always observed as nil by the compiler, but the
// AST retains them so the parser package compiles unchanged as the
// external AST producer it is.
package types

// Type is the interface a resolved static type would implement. No
// concrete type is defined in this package; nothing in the core
// constructs one, so every ComputedType field on an AST node is nil.
type Type interface {
	String() string
	Equals(other Type) bool

	typeNode()
}
