// Package state provides the persistence backends the sync engine
// saves its snapshots to. A Store is a small keyed blob store; the
// engine serializes its entity stores and out-of-band queue into a
// single value per session.
package state

import "errors"

// ErrNotFound is returned by Load when the key has no saved value.
var ErrNotFound = errors.New("state: key not found")

// Store persists opaque blobs by key.
type Store interface {
	// Save writes the value for key, replacing any previous value.
	Save(key string, value []byte) error

	// Load returns the value for key, or ErrNotFound.
	Load(key string) ([]byte, error)

	// Delete removes the value for key. Deleting a missing key is
	// not an error.
	Delete(key string) error

	// Close releases any resources held by the store.
	Close() error
}

// Memory is an in-process Store. Useful for tests and for sessions
// that should not survive a restart.
type Memory struct {
	values map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string][]byte)}
}

// Save implements Store.
func (m *Memory) Save(key string, value []byte) error {
	cp := make([]byte, len(value))
	copy(cp, value)
	m.values[key] = cp
	return nil
}

// Load implements Store.
func (m *Memory) Load(key string) ([]byte, error) {
	v, ok := m.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, nil
}

// Delete implements Store.
func (m *Memory) Delete(key string) error {
	delete(m.values, key)
	return nil
}

// Close implements Store.
func (m *Memory) Close() error { return nil }
