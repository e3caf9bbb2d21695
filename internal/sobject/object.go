package sobject

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// JSON keys reserved by the Salesforce object shape.
const (
	KeyID           = "Id"
	KeyFieldsToNull = "fieldsToNull"
)

// Object is a remote object: Id, ordered field values and fields to clear.
type Object struct {
	ID string

	order        []string
	values       map[string]Value
	fieldsToNull []string
	nullSet      map[string]struct{}
}

// New creates an empty object.
func New() *Object {
	return &Object{
		values:  make(map[string]Value),
		nullSet: make(map[string]struct{}),
	}
}

// Set assigns a field value. A nil value is stored as an explicit null.
// Setting an existing field keeps its position.
func (o *Object) Set(field string, value any) {
	if _, ok := o.values[field]; !ok {
		o.order = append(o.order, field)
	}
	o.values[field] = Of(value)
}

// SetNull stores an explicit null for a field.
func (o *Object) SetNull(field string) {
	o.Set(field, nil)
}

// Get returns the value of a field. ok is false when the field is absent.
func (o *Object) Get(field string) (Value, bool) {
	v, ok := o.values[field]
	return v, ok
}

// Has reports whether the field carries a value or an explicit null.
func (o *Object) Has(field string) bool {
	_, ok := o.values[field]
	return ok
}

// Fields returns the fields holding values, in insertion order.
func (o *Object) Fields() []string {
	return append([]string(nil), o.order...)
}

// Len returns the number of fields holding values.
func (o *Object) Len() int {
	return len(o.order)
}

// AddFieldToNull marks a field to be cleared remotely. Duplicates are ignored.
func (o *Object) AddFieldToNull(field string) {
	if _, ok := o.nullSet[field]; ok {
		return
	}
	o.nullSet[field] = struct{}{}
	o.fieldsToNull = append(o.fieldsToNull, field)
}

// FieldsToNull returns the fields to clear, in insertion order.
func (o *Object) FieldsToNull() []string {
	return append([]string(nil), o.fieldsToNull...)
}

// IsFieldToNull reports whether a field is marked to be cleared.
func (o *Object) IsFieldToNull(field string) bool {
	_, ok := o.nullSet[field]
	return ok
}

// Clone returns a deep copy of the field layout. Values are shared.
func (o *Object) Clone() *Object {
	c := New()
	c.ID = o.ID
	for _, f := range o.order {
		c.order = append(c.order, f)
		c.values[f] = o.values[f]
	}
	for _, f := range o.fieldsToNull {
		c.AddFieldToNull(f)
	}
	return c
}

// MarshalJSON encodes the Salesforce shape: Id first, then fields in order,
// then fieldsToNull. Id and fieldsToNull are omitted when empty.
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	first := true
	writeKey := func(k string) error {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		kb, err := json.Marshal(k)
		if err != nil {
			return err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		return nil
	}

	if o.ID != "" {
		if err := writeKey(KeyID); err != nil {
			return nil, err
		}
		idb, _ := json.Marshal(o.ID)
		buf.Write(idb)
	}

	for _, f := range o.order {
		if err := writeKey(f); err != nil {
			return nil, err
		}
		vb, err := o.values[f].MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f, err)
		}
		buf.Write(vb)
	}

	if len(o.fieldsToNull) > 0 {
		if err := writeKey(KeyFieldsToNull); err != nil {
			return nil, err
		}
		nb, err := json.Marshal(o.fieldsToNull)
		if err != nil {
			return nil, err
		}
		buf.Write(nb)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes the Salesforce shape, preserving field order.
// Numbers decode to int64 when integral, float64 otherwise.
func (o *Object) UnmarshalJSON(data []byte) error {
	*o = *New()

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("sobject: expected object, got %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("sobject: expected key, got %v", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("sobject key %q: %w", key, err)
		}

		switch key {
		case KeyID:
			if err := json.Unmarshal(raw, &o.ID); err != nil {
				return fmt.Errorf("sobject key %q: %w", key, err)
			}
		case KeyFieldsToNull:
			var fields []string
			if err := json.Unmarshal(raw, &fields); err != nil {
				return fmt.Errorf("sobject key %q: %w", key, err)
			}
			for _, f := range fields {
				o.AddFieldToNull(f)
			}
		default:
			v, err := decodeValue(raw)
			if err != nil {
				return fmt.Errorf("sobject key %q: %w", key, err)
			}
			o.Set(key, v)
		}
	}

	_, err = dec.Token()
	return err
}

func decodeValue(raw json.RawMessage) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return normalizeNumbers(v), nil
}

func normalizeNumbers(v any) any {
	switch val := v.(type) {
	case json.Number:
		if !strings.ContainsAny(val.String(), ".eE") {
			if n, err := val.Int64(); err == nil {
				return n
			}
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case []any:
		for i := range val {
			val[i] = normalizeNumbers(val[i])
		}
		return val
	case map[string]any:
		for k := range val {
			val[k] = normalizeNumbers(val[k])
		}
		return val
	default:
		return v
	}
}
