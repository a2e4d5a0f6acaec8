package profile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrMalformedObject indicates that a manifest field that must be a JSON
// object held something else.
var ErrMalformedObject = errors.New("malformed JSON object")

// OrderedMap is a string-keyed map that preserves insertion order across
// JSON round trips. Manifest listings follow the order entries were added,
// so the plain map type cannot be used for manifest fields.
type OrderedMap[V any] struct {
	keys   []string
	values map[string]V
}

// Set inserts or replaces the value for key. Replacing keeps the key's
// original position.
func (m *OrderedMap[V]) Set(key string, value V) {
	if m.values == nil {
		m.values = make(map[string]V)
	}

	_, exists := m.values[key]
	if !exists {
		m.keys = append(m.keys, key)
	}

	m.values[key] = value
}

// Get returns the value for key and whether it exists.
func (m *OrderedMap[V]) Get(key string) (V, bool) {
	value, ok := m.values[key]

	return value, ok
}

// Len returns the number of entries.
func (m *OrderedMap[V]) Len() int {
	return len(m.keys)
}

// Keys returns the keys in insertion order. The returned slice is a copy.
func (m *OrderedMap[V]) Keys() []string {
	keys := make([]string, len(m.keys))
	copy(keys, m.keys)

	return keys
}

// MarshalJSON encodes the map as a JSON object with keys in insertion order.
func (m OrderedMap[V]) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, key := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}

		keyData, err := json.Marshal(key)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal key %q: %w", key, err)
		}

		valueData, err := json.Marshal(m.values[key])
		if err != nil {
			return nil, fmt.Errorf("failed to marshal value for %q: %w", key, err)
		}

		buf.Write(keyData)
		buf.WriteByte(':')
		buf.Write(valueData)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object, recording keys in the order they
// appear in the document.
func (m *OrderedMap[V]) UnmarshalJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))

	openTok, err := decoder.Token()
	if err != nil {
		return fmt.Errorf("failed to read object start: %w", err)
	}

	delim, ok := openTok.(json.Delim)
	if !ok || delim != '{' {
		return fmt.Errorf("%w: expected object, got %v", ErrMalformedObject, openTok)
	}

	m.keys = nil
	m.values = make(map[string]V)

	for decoder.More() {
		keyTok, keyErr := decoder.Token()
		if keyErr != nil {
			return fmt.Errorf("failed to read object key: %w", keyErr)
		}

		key, keyOK := keyTok.(string)
		if !keyOK {
			return fmt.Errorf("%w: non-string key %v", ErrMalformedObject, keyTok)
		}

		var value V

		decodeErr := decoder.Decode(&value)
		if decodeErr != nil {
			return fmt.Errorf("failed to decode value for %q: %w", key, decodeErr)
		}

		m.Set(key, value)
	}

	_, err = decoder.Token()
	if err != nil {
		return fmt.Errorf("failed to read object end: %w", err)
	}

	return nil
}
