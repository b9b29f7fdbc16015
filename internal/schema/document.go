package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	apperrors "github.com/Adithya-Monish-Kumar-K/topdocs/pkg/errors"
)

// Value is one typed field value.
type Value struct {
	Type FieldType `json:"t"`
	Str  string    `json:"s,omitempty"`
	U64  uint64    `json:"u,omitempty"`
	I64  int64     `json:"i,omitempty"`
	F64  float64   `json:"f,omitempty"`
}

func TextValue(s string) Value  { return Value{Type: Text, Str: s} }
func U64Value(v uint64) Value   { return Value{Type: U64, U64: v} }
func I64Value(v int64) Value    { return Value{Type: I64, I64: v} }
func F64Value(v float64) Value  { return Value{Type: F64, F64: v} }

// Native returns the value as a plain Go value (string, uint64, int64 or
// float64).
func (v Value) Native() any {
	switch v.Type {
	case U64:
		return v.U64
	case I64:
		return v.I64
	case F64:
		return v.F64
	default:
		return v.Str
	}
}

// FieldValue pairs a field with one of its values.
type FieldValue struct {
	Field Field `json:"f"`
	Value Value `json:"v"`
}

// Document is the unit of indexing: an ordered list of field values. A
// field may carry several values.
type Document struct {
	FieldValues []FieldValue `json:"fields"`
}

func (d *Document) Add(f Field, v Value) {
	d.FieldValues = append(d.FieldValues, FieldValue{Field: f, Value: v})
}

func (d *Document) AddText(f Field, s string) { d.Add(f, TextValue(s)) }
func (d *Document) AddU64(f Field, v uint64)  { d.Add(f, U64Value(v)) }
func (d *Document) AddI64(f Field, v int64)   { d.Add(f, I64Value(v)) }
func (d *Document) AddF64(f Field, v float64) { d.Add(f, F64Value(v)) }

// Get returns the first value of f.
func (d Document) Get(f Field) (Value, bool) {
	for _, fv := range d.FieldValues {
		if fv.Field == f {
			return fv.Value, true
		}
	}
	return Value{}, false
}

// GetAll returns every value of f in insertion order.
func (d Document) GetAll(f Field) []Value {
	var values []Value
	for _, fv := range d.FieldValues {
		if fv.Field == f {
			values = append(values, fv.Value)
		}
	}
	return values
}

// Validate checks that every value matches its field declaration.
func (s *Schema) Validate(d Document) error {
	for _, fv := range d.FieldValues {
		entry, ok := s.Entry(fv.Field)
		if !ok {
			return apperrors.Schemaf("unknown field %d", fv.Field)
		}
		if entry.Type != fv.Value.Type {
			return apperrors.Schemaf("field %q expects %s, got %s", entry.Name, entry.Type, fv.Value.Type)
		}
	}
	return nil
}

// ParseDocument converts a decoded JSON object into a Document. Unknown
// field names are rejected. Each value may be a scalar or an array.
func (s *Schema) ParseDocument(raw map[string]any) (Document, error) {
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	// map iteration order must not leak into the stored document
	sort.Strings(names)

	var doc Document
	for _, name := range names {
		field, ok := s.Field(name)
		if !ok {
			return Document{}, apperrors.Schemaf("unknown field %q", name)
		}
		entry := s.entries[field]
		items, isArray := raw[name].([]any)
		if !isArray {
			items = []any{raw[name]}
		}
		for _, item := range items {
			v, err := convertValue(entry, item)
			if err != nil {
				return Document{}, err
			}
			doc.Add(field, v)
		}
	}
	return doc, nil
}

func convertValue(entry FieldEntry, item any) (Value, error) {
	if entry.Type == Text {
		str, ok := item.(string)
		if !ok {
			return Value{}, apperrors.Schemaf("field %q expects text, got %T", entry.Name, item)
		}
		return TextValue(str), nil
	}

	var num json.Number
	switch n := item.(type) {
	case json.Number:
		num = n
	case float64:
		num = json.Number(strconv.FormatFloat(n, 'f', -1, 64))
	case int:
		num = json.Number(strconv.Itoa(n))
	case int64:
		num = json.Number(strconv.FormatInt(n, 10))
	case uint64:
		num = json.Number(strconv.FormatUint(n, 10))
	default:
		return Value{}, apperrors.Schemaf("field %q expects %s, got %T", entry.Name, entry.Type, item)
	}

	switch entry.Type {
	case U64:
		v, err := strconv.ParseUint(num.String(), 10, 64)
		if err != nil {
			return Value{}, apperrors.Schemaf("field %q: %v", entry.Name, err)
		}
		return U64Value(v), nil
	case I64:
		v, err := strconv.ParseInt(num.String(), 10, 64)
		if err != nil {
			return Value{}, apperrors.Schemaf("field %q: %v", entry.Name, err)
		}
		return I64Value(v), nil
	default:
		v, err := num.Float64()
		if err != nil {
			return Value{}, apperrors.Schemaf("field %q: %v", entry.Name, err)
		}
		return F64Value(v), nil
	}
}

// NamedFieldDocument is the JSON representation of a stored document: field
// names mapped to their values.
type NamedFieldDocument map[string][]Value

// ToNamedDoc keeps only the stored fields of d, keyed by field name.
func (s *Schema) ToNamedDoc(d Document) NamedFieldDocument {
	named := make(NamedFieldDocument)
	for _, fv := range d.FieldValues {
		entry, ok := s.Entry(fv.Field)
		if !ok || !entry.IsStored() {
			continue
		}
		named[entry.Name] = append(named[entry.Name], fv.Value)
	}
	return named
}

// MarshalJSON writes values as plain JSON scalars.
func (n NamedFieldDocument) MarshalJSON() ([]byte, error) {
	out := make(map[string][]any, len(n))
	for name, values := range n {
		natives := make([]any, len(values))
		for i, v := range values {
			if v.Type == F64 && (math.IsNaN(v.F64) || math.IsInf(v.F64, 0)) {
				natives[i] = strconv.FormatFloat(v.F64, 'g', -1, 64)
				continue
			}
			natives[i] = v.Native()
		}
		out[name] = natives
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads plain JSON scalars back. Integers become U64 (or I64
// when negative), other numbers F64 and strings Text, so a round trip
// preserves the JSON form but not necessarily the original field type.
func (n *NamedFieldDocument) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string][]any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	out := make(NamedFieldDocument, len(raw))
	for name, items := range raw {
		values := make([]Value, 0, len(items))
		for _, item := range items {
			switch x := item.(type) {
			case string:
				values = append(values, TextValue(x))
			case json.Number:
				if u, err := strconv.ParseUint(x.String(), 10, 64); err == nil {
					values = append(values, U64Value(u))
				} else if i, err := strconv.ParseInt(x.String(), 10, 64); err == nil {
					values = append(values, I64Value(i))
				} else if f, err := x.Float64(); err == nil {
					values = append(values, F64Value(f))
				} else {
					return fmt.Errorf("field %q: unsupported number %s", name, x)
				}
			default:
				return fmt.Errorf("field %q: unsupported value %T", name, item)
			}
		}
		out[name] = values
	}
	*n = out
	return nil
}
