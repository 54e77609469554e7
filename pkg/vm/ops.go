package vm

import (
	"math"
	"math/big"
	"strconv"

	"lattice/pkg/value"
)

// toNumber implements the subset of JS ToNumber (spec.md §3.1's
// Number variant coercions) the core's arithmetic opcodes need: no
// object-to-primitive protocol, since no Symbol.toPrimitive/valueOf
// builtin is wired into this core (spec.md §1 scopes the built-in
// library out).
func toNumber(v value.Value) float64 {
	switch v.Type() {
	case value.TypeUndefined:
		return math.NaN()
	case value.TypeNull:
		return 0
	case value.TypeBoolean:
		if v.AsBoolean() {
			return 1
		}
		return 0
	case value.TypeSmallInt, value.TypeDouble:
		return v.AsFloat()
	case value.TypeString:
		s := v.AsString()
		if s == "" {
			return 0
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	case value.TypeBigInt:
		f, _ := new(big.Float).SetInt(v.AsBigInt()).Float64()
		return f
	default:
		return math.NaN()
	}
}

// numberResult folds an arithmetic float64 result back into a SmallInt
// when it's an exact value in range, otherwise a Double (spec.md §3.1,
// §8.3: "arithmetic that overflows [SmallInt] promotes to Double").
func numberResult(f float64) value.Value {
	if !math.IsInf(f, 0) && !math.IsNaN(f) && f == math.Trunc(f) &&
		f >= math.MinInt32 && f <= math.MaxInt32 {
		return value.Int(int32(f))
	}
	return value.Double(f)
}

// toStr implements the string-coercion half of the `+` operator and
// property-key coercion. Value.Inspect already renders every variant
// the way JS's ToString would (raw string contents, "true"/"false",
// "undefined"/"null", a formatted double), so it's reused directly
// rather than duplicating that switch.
func toStr(v value.Value) string { return v.Inspect() }

func opAdd(a, b value.Value) value.Value {
	if a.IsString() || b.IsString() {
		return value.String(toStr(a) + toStr(b))
	}
	return numberResult(toNumber(a) + toNumber(b))
}

func opSub(a, b value.Value) value.Value { return numberResult(toNumber(a) - toNumber(b)) }
func opMul(a, b value.Value) value.Value { return numberResult(toNumber(a) * toNumber(b)) }
func opDiv(a, b value.Value) value.Value { return numberResult(toNumber(a) / toNumber(b)) }
func opMod(a, b value.Value) value.Value { return numberResult(math.Mod(toNumber(a), toNumber(b))) }
func opNeg(a value.Value) value.Value    { return numberResult(-toNumber(a)) }

func opLessThan(a, b value.Value) bool {
	if a.IsString() && b.IsString() {
		return a.AsString() < b.AsString()
	}
	return toNumber(a) < toNumber(b)
}

func opLessThanEqual(a, b value.Value) bool {
	if a.IsString() && b.IsString() {
		return a.AsString() <= b.AsString()
	}
	return toNumber(a) <= toNumber(b)
}

func opGreaterThan(a, b value.Value) bool {
	if a.IsString() && b.IsString() {
		return a.AsString() > b.AsString()
	}
	return toNumber(a) > toNumber(b)
}

func opGreaterThanEqual(a, b value.Value) bool {
	if a.IsString() && b.IsString() {
		return a.AsString() >= b.AsString()
	}
	return toNumber(a) >= toNumber(b)
}

// abstractEquals implements a practical subset of `==` (spec.md §3.1):
// same-type compares strictly; nullish compares equal only to nullish;
// everything else is compared as numbers, matching the common cases
// (`1 == "1"`, `0 == false`) without the full ToPrimitive ladder.
func abstractEquals(a, b value.Value) bool {
	if a.Type() == b.Type() {
		return value.StrictEquals(a, b)
	}
	if a.IsNullish() || b.IsNullish() {
		return a.IsNullish() && b.IsNullish()
	}
	return toNumber(a) == toNumber(b)
}
