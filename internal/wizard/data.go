package wizard

import (
	"encoding/json"
	"maps"
)

// Data is the accumulated form data of a wizard session. It must stay
// JSON-serialisable; after a round trip through a store numbers come back as
// float64, which the typed getters account for.
type Data map[string]any

// Merge shallow-merges partial into d, overwriting existing keys.
func (d Data) Merge(partial Data) {
	maps.Copy(d, partial)
}

// Clone returns a shallow copy. Nested maps and slices are shared.
func (d Data) Clone() Data {
	out := make(Data, len(d))
	maps.Copy(out, d)
	return out
}

// String returns the string stored at key, or "".
func (d Data) String(key string) string {
	s, _ := d[key].(string)
	return s
}

// Strings returns the string slice stored at key. Both []string and the
// []any produced by JSON decoding are accepted.
func (d Data) Strings(key string) []string {
	switch v := d[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Int returns the integer stored at key and whether one was present.
func (d Data) Int(key string) (int, bool) {
	switch v := d[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case json.Number:
		n, err := v.Int64()
		return int(n), err == nil
	}
	return 0, false
}

// Bool returns the bool stored at key, or false.
func (d Data) Bool(key string) bool {
	b, _ := d[key].(bool)
	return b
}
