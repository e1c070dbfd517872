package match

import (
	"encoding/json"
	"strconv"
)

// Fields is a decoded JSON object with accessors that never fail on a missing
// or mistyped key. Each accessor reports presence or takes an explicit default.
// A nil Fields behaves as an empty object.
type Fields map[string]interface{}

// Has reports whether key is present, even if its value is null.
func (f Fields) Has(key string) bool {
	_, ok := f[key]
	return ok
}

// Value returns the raw value for key; null values report false.
func (f Fields) Value(key string) (interface{}, bool) {
	v, ok := f[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// String returns a string value. Numbers and booleans are rendered as text.
func (f Fields) String(key string) (string, bool) {
	v, ok := f.Value(key)
	if !ok {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(t), true
	}
	return "", false
}

// StringOr returns the string value or def.
func (f Fields) StringOr(key, def string) string {
	if s, ok := f.String(key); ok {
		return s
	}
	return def
}

// Number returns a numeric value as its original JSON text. Numeric strings
// are accepted.
func (f Fields) Number(key string) (json.Number, bool) {
	v, ok := f.Value(key)
	if !ok {
		return "", false
	}
	switch t := v.(type) {
	case json.Number:
		return t, true
	case float64:
		return json.Number(strconv.FormatFloat(t, 'f', -1, 64)), true
	case string:
		if _, err := strconv.ParseFloat(t, 64); err == nil {
			return json.Number(t), true
		}
	}
	return "", false
}

// Float returns a numeric value as float64.
func (f Fields) Float(key string) (float64, bool) {
	n, ok := f.Number(key)
	if !ok {
		return 0, false
	}
	v, err := n.Float64()
	if err != nil {
		return 0, false
	}
	return v, true
}

// Object returns a nested object, or nil.
func (f Fields) Object(key string) Fields {
	v, ok := f.Value(key)
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case map[string]interface{}:
		return Fields(t)
	case Fields:
		return t
	}
	return nil
}

// List returns a nested array, or nil.
func (f Fields) List(key string) []interface{} {
	v, ok := f.Value(key)
	if !ok {
		return nil
	}
	list, _ := v.([]interface{})
	return list
}

// DisplayName returns key.displayName for the nested objects the match
// centre uses for enumerations ({"value":1,"displayName":"Pass"}).
func (f Fields) DisplayName(key string) (string, bool) {
	return f.Object(key).String("displayName")
}

// ID returns an identifier value normalised to its decimal text, so 42, 42.0
// and "42" resolve to the same key.
func (f Fields) ID(key string) (string, bool) {
	n, ok := f.Number(key)
	if !ok {
		return f.String(key)
	}
	if i, err := n.Int64(); err == nil {
		return strconv.FormatInt(i, 10), true
	}
	if fl, err := n.Float64(); err == nil && fl == float64(int64(fl)) {
		return strconv.FormatInt(int64(fl), 10), true
	}
	return n.String(), true
}
