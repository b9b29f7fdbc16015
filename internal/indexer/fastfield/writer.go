package fastfield

import (
	"encoding/binary"

	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/schema"
)

// Writer accumulates the fast field values of a segment, one value per
// document per fast field.
type Writer struct {
	fields []schema.Field
	types  []schema.FieldType
	values [][]uint64
}

func NewWriter(s *schema.Schema) *Writer {
	fields := s.FastFields()
	w := &Writer{
		fields: fields,
		types:  make([]schema.FieldType, len(fields)),
		values: make([][]uint64, len(fields)),
	}
	for i, f := range fields {
		entry, _ := s.Entry(f)
		w.types[i] = entry.Type
	}
	return w
}

// Add records the next document. Only the first value of each fast field is
// kept; a missing value is recorded as the zero value of the field type.
func (w *Writer) Add(doc schema.Document) {
	for i, f := range w.fields {
		var raw uint64
		if v, ok := doc.Get(f); ok && v.Type == w.types[i] {
			raw = ToU64(v)
		} else {
			raw = ToU64(schema.Value{Type: w.types[i]})
		}
		w.values[i] = append(w.values[i], raw)
	}
}

// NumDocs returns the number of documents added so far.
func (w *Writer) NumDocs() int {
	if len(w.values) == 0 {
		return 0
	}
	return len(w.values[0])
}

// Serialize bit-packs every column and encodes the column set.
func (w *Writer) Serialize() []byte {
	buf := binary.LittleEndian.AppendUint32(nil, uint32(len(w.fields)))
	for i, f := range w.fields {
		buf = newColumn(w.values[i]).appendTo(buf, f)
	}
	return buf
}

// ToU64 returns the raw column representation of a numeric value.
func ToU64(v schema.Value) uint64 {
	switch v.Type {
	case schema.U64:
		return v.U64
	case schema.I64:
		return I64ToU64(v.I64)
	case schema.F64:
		return F64ToU64(v.F64)
	default:
		return 0
	}
}
