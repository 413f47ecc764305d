package story

import (
	"bytes"
	"encoding/json"
)

type fieldState uint8

const (
	stateAbsent fieldState = iota
	stateNull
	stateSet
)

// Field is a tri-state optional value: absent, present as null, or present
// with a value. The zero Field is absent.
//
// When decoded from JSON, a key that does not appear leaves the Field
// absent, an explicit null marks it null, and anything else sets it.
type Field[T any] struct {
	state fieldState
	value T
}

// Null returns a Field that is present with a null value.
func Null[T any]() Field[T] {
	return Field[T]{state: stateNull}
}

// Set returns a Field that is present with v.
func Set[T any](v T) Field[T] {
	return Field[T]{state: stateSet, value: v}
}

// Present reports whether the key exists, regardless of its value.
func (f Field[T]) Present() bool {
	return f.state != stateAbsent
}

// IsNull reports whether the key exists with a null value.
func (f Field[T]) IsNull() bool {
	return f.state == stateNull
}

// Get returns the value and whether one is set. Absent and null fields
// return the zero value and false.
func (f Field[T]) Get() (T, bool) {
	return f.value, f.state == stateSet
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *Field[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		var zero T
		f.state, f.value = stateNull, zero
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	f.state, f.value = stateSet, v
	return nil
}

// MarshalJSON implements json.Marshaler. Absent and null both encode as null;
// use omitzero on the containing struct to drop absent keys.
func (f Field[T]) MarshalJSON() ([]byte, error) {
	if f.state != stateSet {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}

// IsZero reports whether the field is absent. It lets encoding/json's
// omitzero option skip absent keys.
func (f Field[T]) IsZero() bool {
	return f.state == stateAbsent
}
