package schema

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/topdocs/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/topdocs/pkg/errors"
)

func beerSchema(t *testing.T) (*Schema, Field, Field) {
	t.Helper()
	b := NewBuilder()
	title := b.AddTextField("title", TEXT|STORED)
	size := b.AddU64Field("size", FAST|STORED)
	s, err := b.Build()
	require.NoError(t, err)
	return s, title, size
}

func TestBuilder(t *testing.T) {
	s, title, size := beerSchema(t)

	f, ok := s.Field("size")
	require.True(t, ok)
	assert.Equal(t, size, f)

	entry, ok := s.Entry(title)
	require.True(t, ok)
	assert.True(t, entry.IsIndexed())
	assert.False(t, entry.IsFast())

	_, ok = s.Entry(Field(7))
	assert.False(t, ok)
	assert.Equal(t, []Field{size}, s.FastFields())
	assert.Equal(t, 2, s.NumFields())
}

func TestBuilderRejectsInvalidDeclarations(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *Builder)
	}{
		{"duplicate", func(b *Builder) { b.AddTextField("a", TEXT); b.AddU64Field("a", FAST) }},
		{"fast text", func(b *Builder) { b.AddTextField("a", FAST) }},
		{"indexed number", func(b *Builder) { b.AddU64Field("a", TEXT) }},
		{"empty name", func(b *Builder) { b.AddTextField("", TEXT) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder()
			tt.build(b)
			_, err := b.Build()
			assert.ErrorIs(t, err, apperrors.ErrSchema)
		})
	}
}

func TestFromConfig(t *testing.T) {
	s, err := FromConfig(config.SchemaConfig{Fields: []config.FieldConfig{
		{Name: "title", Type: "text", Options: []string{"indexed", "stored"}},
		{Name: "rating", Type: "f64", Options: []string{"fast"}},
		{Name: "delta", Type: "i64", Options: []string{"fast", "stored"}},
	}})
	require.NoError(t, err)

	rating, ok := s.Field("rating")
	require.True(t, ok)
	entry, _ := s.Entry(rating)
	assert.Equal(t, F64, entry.Type)
	assert.True(t, entry.IsFast())

	_, err = FromConfig(config.SchemaConfig{Fields: []config.FieldConfig{{Name: "x", Type: "blob"}}})
	assert.ErrorIs(t, err, apperrors.ErrSchema)
	_, err = FromConfig(config.SchemaConfig{Fields: []config.FieldConfig{{Name: "x", Type: "u64", Options: []string{"sorted"}}}})
	assert.ErrorIs(t, err, apperrors.ErrSchema)
}

func TestParseDocument(t *testing.T) {
	s, title, size := beerSchema(t)

	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"title":"growler of beer","size":64}`), &raw))
	doc, err := s.ParseDocument(raw)
	require.NoError(t, err)

	v, ok := doc.Get(size)
	require.True(t, ok)
	assert.Equal(t, U64Value(64), v)
	assert.Equal(t, []Value{TextValue("growler of beer")}, doc.GetAll(title))
	assert.NoError(t, s.Validate(doc))

	_, err = s.ParseDocument(map[string]any{"color": "amber"})
	assert.ErrorIs(t, err, apperrors.ErrSchema)
	_, err = s.ParseDocument(map[string]any{"size": "big"})
	assert.ErrorIs(t, err, apperrors.ErrSchema)
	_, err = s.ParseDocument(map[string]any{"size": -3.0})
	assert.ErrorIs(t, err, apperrors.ErrSchema)
}

func TestParseDocumentArrays(t *testing.T) {
	s, title, _ := beerSchema(t)
	doc, err := s.ParseDocument(map[string]any{"title": []any{"pint", "of beer"}})
	require.NoError(t, err)
	assert.Len(t, doc.GetAll(title), 2)
}

func TestNamedFieldDocumentJSON(t *testing.T) {
	b := NewBuilder()
	title := b.AddTextField("title", TEXT|STORED)
	body := b.AddTextField("body", TEXT)
	delta := b.AddI64Field("delta", FAST|STORED)
	s := b.MustBuild()

	var doc Document
	doc.AddText(title, "pint of beer")
	doc.AddText(body, "not stored")
	doc.AddI64(delta, -7)

	named := s.ToNamedDoc(doc)
	assert.NotContains(t, named, "body")

	data, err := json.Marshal(named)
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":["pint of beer"],"delta":[-7]}`, string(data))

	var back NamedFieldDocument
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, []Value{I64Value(-7)}, back["delta"])

	again, err := json.Marshal(back)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(again))
}
