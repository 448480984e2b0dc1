// Package syncmap provides a generic, type-safe wrapper over sync.Map.
package syncmap

import "sync"

type Map[Key comparable, Value any] sync.Map

func (m *Map[Key, Value]) syncMap() *sync.Map {
	return (*sync.Map)(m)
}

func (m *Map[Key, Value]) Store(key Key, value Value) {
	m.syncMap().Store(key, value)
}

// Load returns the value stored for key and whether it was present.
func (m *Map[Key, Value]) Load(key Key) (Value, bool) {
	v, found := m.syncMap().Load(key)
	if !found {
		return zero[Value](), false
	}
	return zeroIfNil[Value](v), true
}

// LoadOrStore returns the existing value for key if present; otherwise it
// stores and returns newValue. The boolean is true if the value was loaded.
func (m *Map[Key, Value]) LoadOrStore(key Key, newValue Value) (Value, bool) {
	actual, loaded := m.syncMap().LoadOrStore(key, newValue)
	return zeroIfNil[Value](actual), loaded
}

// LoadAndDelete removes the value for key, returning it if it was present.
func (m *Map[Key, Value]) LoadAndDelete(key Key) (Value, bool) {
	v, found := m.syncMap().LoadAndDelete(key)
	if !found {
		return zero[Value](), false
	}
	return zeroIfNil[Value](v), true
}

func (m *Map[Key, Value]) Delete(key Key) {
	m.syncMap().Delete(key)
}

// Range calls f for each key-value pair. Iteration stops if f returns false.
// The snapshot semantics are those of sync.Map.Range.
func (m *Map[Key, Value]) Range(f func(key Key, value Value) bool) {
	m.syncMap().Range(func(key, value any) bool {
		return f(key.(Key), zeroIfNil[Value](value))
	})
}

// Len counts the entries at a point in time. The map may change immediately after.
func (m *Map[Key, Value]) Len() int {
	n := 0
	m.syncMap().Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

func zero[T any]() T {
	return *new(T)
}

func zeroIfNil[T any](v any) T {
	if v == nil {
		return zero[T]()
	}
	return v.(T)
}
