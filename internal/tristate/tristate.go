// Package tristate models signals that distinguish "observed as missing"
// from "never observed". Audits must not conflate the two.
package tristate

import "fmt"

type state int

const (
	stateUnknown state = iota
	stateAbsent
	statePresent
)

// Value carries a signal in one of three states: present with a value,
// absent, or unknown with a reason.
type Value[T any] struct {
	state  state
	value  T
	reason string
}

// Present wraps an observed value.
func Present[T any](v T) Value[T] {
	return Value[T]{state: statePresent, value: v}
}

// Absent marks a signal that was checked and found missing.
func Absent[T any]() Value[T] {
	return Value[T]{state: stateAbsent}
}

// Unknown marks a signal that could not be checked. The reason is required
// so downstream gaps can be reported.
func Unknown[T any](reason string) Value[T] {
	return Value[T]{state: stateUnknown, reason: reason}
}

func (v Value[T]) IsPresent() bool { return v.state == statePresent }
func (v Value[T]) IsAbsent() bool  { return v.state == stateAbsent }
func (v Value[T]) IsUnknown() bool { return v.state == stateUnknown }

// Get returns the value and whether it is present.
func (v Value[T]) Get() (T, bool) {
	return v.value, v.state == statePresent
}

// MustValue returns the wrapped value; callers check IsPresent first.
// The zero value of T is returned for absent/unknown.
func (v Value[T]) MustValue() T { return v.value }

// Reason returns the unknown reason, empty otherwise.
func (v Value[T]) Reason() string { return v.reason }

func (v Value[T]) String() string {
	switch v.state {
	case statePresent:
		return fmt.Sprintf("present(%v)", v.value)
	case stateAbsent:
		return "absent"
	default:
		return fmt.Sprintf("unknown(%s)", v.reason)
	}
}
