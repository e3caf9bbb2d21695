// Package sobject provides the remote object representation sent to and
// received from Salesforce.
//
// An Object is an ordered bag of field values plus a separate set of fields
// to clear remotely (fieldsToNull). A Value distinguishes a concrete value
// from an explicit null, so "field absent" and "field nulled" never collapse
// into the same state.
//
// MarshalCanonical produces RFC 8785 style canonical JSON (sorted keys, NFC
// strings, no HTML escaping) used for content hashes and golden files.
package sobject

import (
	"encoding/json"
	"fmt"
)

// Value is a remote field value: a concrete value or an explicit null.
type Value struct {
	v    any
	null bool
}

// Of wraps a concrete value. A nil v yields Null().
func Of(v any) Value {
	if v == nil {
		return Null()
	}
	return Value{v: v}
}

// Null returns an explicit null value.
func Null() Value {
	return Value{null: true}
}

// IsNull reports whether the value is an explicit null.
func (v Value) IsNull() bool {
	return v.null
}

// Interface returns the wrapped value, or nil for null.
func (v Value) Interface() any {
	if v.null {
		return nil
	}
	return v.v
}

func (v Value) String() string {
	if v.null {
		return "null"
	}
	return fmt.Sprint(v.v)
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.null {
		return []byte("null"), nil
	}
	return json.Marshal(v.v)
}
