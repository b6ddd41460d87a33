package rulesengine

import (
	"math"
	"strings"
)

// numericEpsilon nudges a strict comparison so it never scores exactly 1
// when both sides are equal, while leaving non-strict comparisons able to
// reach a perfect 1.0 at the boundary.
const numericEpsilon = 1e-6

// gradientScale is the "shortfall" divisor controlling how quickly the
// exponential gradient decays; DESIGN.md's default_operators.go entry
// notes where the formula comes from.
const gradientScale = 250.0

// exponentialGradient turns a signed shortfall into exp(-Δ), Δ = max(0,
// shortfall/gradientScale). A negative shortfall (condition satisfied with
// room to spare) yields a perfect 1.0, as does a shortfall of exactly 0
// for a non-strict comparison; a strict comparison at 0 scores just below
// 1.0. The decay only bites the further the LHS falls short.
func exponentialGradient(shortfall float64, strict bool) float64 {
	if strict {
		shortfall += numericEpsilon
	}
	delta := math.Max(0, shortfall/gradientScale)
	return clampScore(math.Exp(-delta))
}

func numberValidator(v Value) bool { return v.IsNumber() }

// DefaultOperators returns the built-in operator set, grounded in the
// spec's §4.1 table. Numeric comparisons validate that the LHS is a
// number before running the gradient; everything else returns a hard 0/1.
func DefaultOperators() []Operator {
	return []Operator{
		mustOperator("equal", func(a, b Value) float64 {
			if a.Equal(b) {
				return 1
			}
			return 0
		}, nil),
		mustOperator("notEqual", func(a, b Value) float64 {
			if !a.Equal(b) {
				return 1
			}
			return 0
		}, nil),
		mustOperator("in", func(a, b Value) float64 {
			if !b.IsArray() {
				return 0
			}
			for _, item := range b.Array {
				if item.Equal(a) {
					return 1
				}
			}
			return 0
		}, nil),
		mustOperator("notIn", func(a, b Value) float64 {
			if !b.IsArray() {
				return 1
			}
			for _, item := range b.Array {
				if item.Equal(a) {
					return 0
				}
			}
			return 1
		}, nil),
		mustOperator("contains", func(a, b Value) float64 {
			for _, item := range a.Array {
				if item.Equal(b) {
					return 1
				}
			}
			return 0
		}, func(v Value) bool { return v.IsArray() }),
		mustOperator("doesNotContain", func(a, b Value) float64 {
			for _, item := range a.Array {
				if item.Equal(b) {
					return 0
				}
			}
			return 1
		}, func(v Value) bool { return v.IsArray() }),
		mustOperator("lessThan", func(a, b Value) float64 {
			return exponentialGradient(a.Number-b.Number, true)
		}, numberValidator),
		mustOperator("lessThanInclusive", func(a, b Value) float64 {
			return exponentialGradient(a.Number-b.Number, false)
		}, numberValidator),
		mustOperator("greaterThan", func(a, b Value) float64 {
			return exponentialGradient(b.Number-a.Number, true)
		}, numberValidator),
		mustOperator("greaterThanInclusive", func(a, b Value) float64 {
			return exponentialGradient(b.Number-a.Number, false)
		}, numberValidator),
		mustOperator("startsWith", func(a, b Value) float64 {
			if a.IsString() && b.IsString() && strings.HasPrefix(a.Str, b.Str) {
				return 1
			}
			return 0
		}, func(v Value) bool { return v.IsString() }),
		mustOperator("endsWith", func(a, b Value) float64 {
			if a.IsString() && b.IsString() && strings.HasSuffix(a.Str, b.Str) {
				return 1
			}
			return 0
		}, func(v Value) bool { return v.IsString() }),
		mustOperator("includes", func(a, b Value) float64 {
			if a.IsString() && b.IsString() && strings.Contains(a.Str, b.Str) {
				return 1
			}
			return 0
		}, func(v Value) bool { return v.IsString() }),
	}
}

func mustOperator(name string, evaluate func(a, b Value) float64, validate func(Value) bool) Operator {
	op, err := NewOperator(name, evaluate, validate)
	if err != nil {
		panic(err) // only reachable with a programming error in this file
	}
	return *op
}
