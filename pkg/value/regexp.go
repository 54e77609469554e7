package value

import "github.com/dlclark/regexp2"

// RegExpData backs HeapRef(kind=RegExp), named in spec.md §3.1 as a
// heap kind the value model must be able to reference even though
// RegExp's built-in prototype methods are out of the core's scope
// (spec.md §1). It is grounded on the teacher's own regex backend
// (pkg/vm/regex.go), dropping the RE2 fast-path/fallback split since
// the core only needs a working reference value, not a tuned
// production matcher: regexp2 alone already covers full ECMAScript
// regex syntax (lookaround, backreferences) that Go's RE2-based
// `regexp` package cannot.
type RegExpData struct {
	Source    string
	Flags     string
	compiled  *regexp2.Regexp
	LastIndex int
	Global    bool
}

func NewRegExp(source, flags string) (Value, error) {
	opts := regexp2.None
	if containsRune(flags, 'i') {
		opts |= regexp2.IgnoreCase
	}
	if containsRune(flags, 's') {
		opts |= regexp2.Singleline
	}
	if containsRune(flags, 'm') {
		opts |= regexp2.Multiline
	}
	re, err := regexp2.Compile(source, opts)
	if err != nil {
		return Undefined, err
	}
	data := &RegExpData{
		Source:   source,
		Flags:    flags,
		compiled: re,
		Global:   containsRune(flags, 'g'),
	}
	return HeapRef(newHeapObject(KindRegExp, data)), nil
}

func containsRune(s string, r rune) bool {
	for _, c := range s {
		if c == r {
			return true
		}
	}
	return false
}

// Test reports whether the pattern matches anywhere in s.
func (r *RegExpData) Test(s string) bool {
	m, err := r.compiled.FindStringMatch(s)
	return err == nil && m != nil
}

func (v Value) AsRegExp() *RegExpData {
	if v.typ != TypeHeapRef {
		return nil
	}
	if r, ok := v.ref.Data.(*RegExpData); ok {
		return r
	}
	return nil
}
