// Package schema describes the fields of an index: their value type and
// whether they are tokenized for search, stored for retrieval, or kept as a
// fast field (a dense per-document numeric column with O(1) lookup).
package schema

import (
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/topdocs/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/topdocs/pkg/errors"
)

// Field is the index of a field within its Schema.
type Field uint32

// FieldType is the value type of a field.
type FieldType uint8

const (
	Text FieldType = iota
	U64
	I64
	F64
)

func (t FieldType) String() string {
	switch t {
	case Text:
		return "text"
	case U64:
		return "u64"
	case I64:
		return "i64"
	case F64:
		return "f64"
	default:
		return fmt.Sprintf("FieldType(%d)", uint8(t))
	}
}

// IsNumeric reports whether values of this type can live in a fast field.
func (t FieldType) IsNumeric() bool {
	return t == U64 || t == I64 || t == F64
}

// Options is a bit set of field capabilities.
type Options uint8

const (
	Indexed Options = 1 << iota
	Stored
	Fast
)

// Shorthands mirroring the usual schema declaration style.
const (
	TEXT   = Indexed
	STORED = Stored
	FAST   = Fast
)

func (o Options) Has(flag Options) bool { return o&flag == flag }

// FieldEntry is the declaration of one field.
type FieldEntry struct {
	Name    string    `json:"name"`
	Type    FieldType `json:"type"`
	Options Options   `json:"options"`
}

func (e FieldEntry) IsIndexed() bool { return e.Options.Has(Indexed) }
func (e FieldEntry) IsStored() bool  { return e.Options.Has(Stored) }
func (e FieldEntry) IsFast() bool    { return e.Options.Has(Fast) && e.Type.IsNumeric() }

// Schema is an immutable, ordered set of field entries.
type Schema struct {
	entries []FieldEntry
	byName  map[string]Field
}

// Field looks up a field by name.
func (s *Schema) Field(name string) (Field, bool) {
	f, ok := s.byName[name]
	return f, ok
}

// Entry returns the declaration of f. ok is false when f is out of range.
func (s *Schema) Entry(f Field) (FieldEntry, bool) {
	if int(f) >= len(s.entries) {
		return FieldEntry{}, false
	}
	return s.entries[f], true
}

// Fields returns every declared field in declaration order.
func (s *Schema) Fields() []Field {
	fields := make([]Field, len(s.entries))
	for i := range s.entries {
		fields[i] = Field(i)
	}
	return fields
}

// FastFields returns the fields kept as fast fields.
func (s *Schema) FastFields() []Field {
	var fields []Field
	for i, e := range s.entries {
		if e.IsFast() {
			fields = append(fields, Field(i))
		}
	}
	return fields
}

// NumFields returns the number of declared fields.
func (s *Schema) NumFields() int { return len(s.entries) }

// Builder accumulates field declarations.
type Builder struct {
	entries []FieldEntry
}

func NewBuilder() *Builder {
	return &Builder{}
}

func (b *Builder) add(name string, t FieldType, opts Options) Field {
	b.entries = append(b.entries, FieldEntry{Name: name, Type: t, Options: opts})
	return Field(len(b.entries) - 1)
}

func (b *Builder) AddTextField(name string, opts Options) Field { return b.add(name, Text, opts) }
func (b *Builder) AddU64Field(name string, opts Options) Field  { return b.add(name, U64, opts) }
func (b *Builder) AddI64Field(name string, opts Options) Field  { return b.add(name, I64, opts) }
func (b *Builder) AddF64Field(name string, opts Options) Field  { return b.add(name, F64, opts) }

// Build validates the declarations and returns the Schema.
func (b *Builder) Build() (*Schema, error) {
	s := &Schema{
		entries: make([]FieldEntry, len(b.entries)),
		byName:  make(map[string]Field, len(b.entries)),
	}
	copy(s.entries, b.entries)
	for i, e := range s.entries {
		if e.Name == "" {
			return nil, apperrors.Schemaf("field %d has no name", i)
		}
		if _, dup := s.byName[e.Name]; dup {
			return nil, apperrors.Schemaf("field %q declared twice", e.Name)
		}
		if e.Options.Has(Fast) && !e.Type.IsNumeric() {
			return nil, apperrors.Schemaf("field %q: only numeric fields can be fast fields", e.Name)
		}
		if e.Options.Has(Indexed) && e.Type != Text {
			return nil, apperrors.Schemaf("field %q: only text fields can be indexed", e.Name)
		}
		s.byName[e.Name] = Field(i)
	}
	return s, nil
}

// MustBuild is Build for statically known schemas; it panics on error.
func (b *Builder) MustBuild() *Schema {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}

// FromConfig builds a Schema from its YAML declaration.
func FromConfig(cfg config.SchemaConfig) (*Schema, error) {
	b := NewBuilder()
	for _, fc := range cfg.Fields {
		t, err := parseType(fc.Type)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", fc.Name, err)
		}
		var opts Options
		for _, o := range fc.Options {
			switch strings.ToLower(o) {
			case "indexed", "text":
				opts |= Indexed
			case "stored":
				opts |= Stored
			case "fast":
				opts |= Fast
			default:
				return nil, apperrors.Schemaf("field %q: unknown option %q", fc.Name, o)
			}
		}
		b.add(fc.Name, t, opts)
	}
	return b.Build()
}

func parseType(s string) (FieldType, error) {
	switch strings.ToLower(s) {
	case "text", "":
		return Text, nil
	case "u64":
		return U64, nil
	case "i64":
		return I64, nil
	case "f64":
		return F64, nil
	default:
		return 0, apperrors.Schemaf("unknown field type %q", s)
	}
}
