// Package xsync provides the typed concurrency primitives backing the
// engine's shared caches and registries.
package xsync

import "sync"

// Map is a typed wrapper around sync.Map. Used for registries and the
// ambient current-case table, where entries are few and unbounded growth
// is not a concern; memoization uses Cache instead.
type Map[K comparable, V any] struct {
	m sync.Map
}

func (m *Map[K, V]) Load(key K) (V, bool) {
	val, ok := m.m.Load(key)
	if !ok {
		var zero V
		return zero, false
	}
	return val.(V), true
}

func (m *Map[K, V]) Store(key K, value V) {
	m.m.Store(key, value)
}

func (m *Map[K, V]) Delete(key K) {
	m.m.Delete(key)
}

func (m *Map[K, V]) Range(f func(key K, value V) bool) {
	m.m.Range(func(k, v any) bool {
		return f(k.(K), v.(V))
	})
}
