// Package models defines the data structures shared by the collection
// pipeline, the chart registry and the emission layer.
// Everything here is serialized to JSON for transmission to the API.
package models

// Values is the result mapping of one collection cycle, keyed by dimension id.
// A value is either an int64 count or a string blob.
type Values map[string]interface{}

// Int returns the integer stored under key. Missing keys and non-integer
// values report ok=false.
func (v Values) Int(key string) (int64, bool) {
	switch n := v[key].(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	default:
		return 0, false
	}
}

// String returns the string stored under key.
func (v Values) String(key string) (string, bool) {
	s, ok := v[key].(string)
	return s, ok
}
