package circuit

import "fmt"

// Value is a witness value that may be unknown. Unknown values occur when
// the circuit shape is synthesized without witness data; every operation
// on them yields another unknown value.
type Value[T any] struct {
	v     T
	known bool
}

// Known wraps a concrete value.
func Known[T any](v T) Value[T] {
	return Value[T]{v: v, known: true}
}

// Unknown returns a value with no witness attached.
func Unknown[T any]() Value[T] {
	return Value[T]{}
}

// IsKnown reports whether a witness is attached.
func (v Value[T]) IsKnown() bool { return v.known }

// Get returns the witness and whether it is known.
func (v Value[T]) Get() (T, bool) { return v.v, v.known }

// String implements fmt.Stringer.
func (v Value[T]) String() string {
	if !v.known {
		return "unknown"
	}
	return fmt.Sprint(v.v)
}

// AssertIfKnown panics with msg when the value is known and pred fails.
// It is the hook for cross-checking a plain computation against the
// constrained one: a failure is a bug in the circuit definition.
func (v Value[T]) AssertIfKnown(pred func(T) bool, msg string) {
	if v.known && !pred(v.v) {
		panic(fmt.Sprintf("circuit: witness check failed: %s (value %v)", msg, v.v))
	}
}

// Map applies f to a known value.
func Map[T, U any](v Value[T], f func(T) U) Value[U] {
	if !v.known {
		return Unknown[U]()
	}
	return Known(f(v.v))
}

// Map2 applies f when both values are known.
func Map2[A, B, U any](a Value[A], b Value[B], f func(A, B) U) Value[U] {
	if !a.known || !b.known {
		return Unknown[U]()
	}
	return Known(f(a.v, b.v))
}

// Map3 applies f when all three values are known.
func Map3[A, B, C, U any](a Value[A], b Value[B], c Value[C], f func(A, B, C) U) Value[U] {
	if !a.known || !b.known || !c.known {
		return Unknown[U]()
	}
	return Known(f(a.v, b.v, c.v))
}
