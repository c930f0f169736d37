package models

import (
	"encoding/json"
	"fmt"
)

// Slot holds an optional extracted value: either Unset or a Value.
type Slot[T any] struct {
	value T
	set   bool
}

// Set returns a slot holding v.
func Set[T any](v T) Slot[T] {
	return Slot[T]{value: v, set: true}
}

// Get returns the value and whether the slot is set.
func (s Slot[T]) Get() (T, bool) {
	return s.value, s.set
}

// IsSet reports whether the slot holds a value.
func (s Slot[T]) IsSet() bool {
	return s.set
}

// Or returns the value, or fallback when unset.
func (s Slot[T]) Or(fallback T) T {
	if !s.set {
		return fallback
	}
	return s.value
}

// Ptr returns a pointer to a copy of the value, nil when unset.
func (s Slot[T]) Ptr() *T {
	if !s.set {
		return nil
	}
	v := s.value
	return &v
}

func (s Slot[T]) String() string {
	if !s.set {
		return "-"
	}
	return fmt.Sprint(s.value)
}

func (s Slot[T]) MarshalJSON() ([]byte, error) {
	if !s.set {
		return []byte("null"), nil
	}
	return json.Marshal(s.value)
}

func (s *Slot[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*s = Slot[T]{}
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = Set(v)
	return nil
}

func (s Slot[T]) MarshalYAML() (interface{}, error) {
	if !s.set {
		return nil, nil
	}
	return s.value, nil
}
