package shared

import (
	"bytes"
	"encoding/json"
)

// Optional marks whether a field was supplied at all, separately from its value.
// A JSON key that is present (even as null) decodes to a set Optional; an absent
// key leaves it unset.
type Optional[T any] struct {
	value T
	set   bool
	null  bool
}

// Some returns a set Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

// Get returns the value and whether it was set.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

// IsSet reports whether a value was supplied.
func (o Optional[T]) IsSet() bool {
	return o.set
}

// IsNull reports whether the value was supplied as an explicit JSON null.
func (o Optional[T]) IsNull() bool {
	return o.null
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.value = v
	o.set = true
	o.null = bytes.Equal(bytes.TrimSpace(data), []byte("null"))
	return nil
}
