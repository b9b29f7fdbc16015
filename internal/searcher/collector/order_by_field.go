package collector

import (
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/indexer/fastfield"
	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/schema"
	apperrors "github.com/Adithya-Monish-Kumar-K/topdocs/pkg/errors"
)

// OrderByField ranks documents by the value of a fast field instead of their
// score, keeping the limit of td. Raw column values are converted to T
// leniently. Binding to a segment fails with ErrSchema when the field does
// not exist or is not a fast field.
func OrderByField[T fastfield.FastValue](td *TopDocs, field schema.Field) *TweakedScoreTopCollector[T] {
	convert := fastfield.Converter[T]()
	tweaker := ScoreTweakerFunc[T](func(reader SegmentReader) (SegmentScoreTweaker[T], error) {
		column, err := reader.FastFields().U64Lenient(field)
		if err != nil {
			return nil, fmt.Errorf("order by field %d: %w", field, err)
		}
		return func(doc DocID, _ Score) T {
			return convert(column.Get(doc))
		}, nil
	})
	return TweakScore[T](td, tweaker)
}

// ResolveFastField looks name up in s and fails with ErrSchema unless it is
// a numeric fast field.
func ResolveFastField(s *schema.Schema, name string) (schema.Field, schema.FieldEntry, error) {
	field, ok := s.Field(name)
	if !ok {
		return 0, schema.FieldEntry{}, apperrors.Schemaf("unknown field %q", name)
	}
	entry, _ := s.Entry(field)
	if !entry.IsFast() {
		return 0, schema.FieldEntry{}, apperrors.Schemaf("field %q is not a fast field", name)
	}
	return field, entry, nil
}

// OrderByFieldName is OrderByField for a field named in s. The field is
// checked up front, so a bad name is reported even when no segment is ever
// bound.
func OrderByFieldName[T fastfield.FastValue](td *TopDocs, s *schema.Schema, name string) (*TweakedScoreTopCollector[T], error) {
	field, _, err := ResolveFastField(s, name)
	if err != nil {
		return nil, err
	}
	return OrderByField[T](td, field), nil
}
