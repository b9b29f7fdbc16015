package fastfield

import (
	"encoding/binary"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/schema"
	apperrors "github.com/Adithya-Monish-Kumar-K/topdocs/pkg/errors"
)

// Readers gives access to the fast field columns of one segment.
type Readers struct {
	schema  *schema.Schema
	columns map[schema.Field]*Column
}

// Open decodes a column set produced by Writer.Serialize.
func Open(s *schema.Schema, data []byte) (*Readers, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("fast field section: %w", apperrors.ErrCorruptSegment)
	}
	n := binary.LittleEndian.Uint32(data)
	data = data[4:]
	r := &Readers{schema: s, columns: make(map[schema.Field]*Column, n)}
	for i := uint32(0); i < n; i++ {
		field, col, rest, err := readColumn(data)
		if err != nil {
			return nil, fmt.Errorf("fast field column %d: %w", i, err)
		}
		r.columns[field] = col
		data = rest
	}
	return r, nil
}

// U64Lenient returns the column of field as raw u64 values, whatever the
// declared numeric type. It fails with ErrSchema when the field is not
// declared or is not a fast field.
func (r *Readers) U64Lenient(field schema.Field) (*Column, error) {
	entry, ok := r.schema.Entry(field)
	if !ok {
		return nil, apperrors.Schemaf("field %d does not exist", field)
	}
	if !entry.IsFast() {
		return nil, apperrors.Schemaf("field %q is not a fast field", entry.Name)
	}
	col, ok := r.columns[field]
	if !ok {
		return nil, apperrors.Schemaf("field %q has no fast field column in this segment", entry.Name)
	}
	return col, nil
}
