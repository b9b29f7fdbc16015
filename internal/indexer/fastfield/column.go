package fastfield

import (
	"encoding/binary"
	"math/bits"

	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/schema"
	apperrors "github.com/Adithya-Monish-Kumar-K/topdocs/pkg/errors"
)

// Column is a bit-packed, random-access column of raw u64 values. Each value
// is stored as its offset from the column minimum using the smallest bit
// width that fits the largest offset.
type Column struct {
	numDocs uint32
	min     uint64
	width   uint8
	mask    uint64
	words   []uint64
}

func newColumn(values []uint64) *Column {
	c := &Column{numDocs: uint32(len(values))}
	if len(values) == 0 {
		return c
	}
	c.min, c.width = values[0], 0
	maxValue := values[0]
	for _, v := range values[1:] {
		c.min = min(c.min, v)
		maxValue = max(maxValue, v)
	}
	c.width = uint8(bits.Len64(maxValue - c.min))
	c.mask = maskFor(c.width)
	if c.width == 0 {
		return c
	}

	totalBits := uint64(len(values)) * uint64(c.width)
	c.words = make([]uint64, (totalBits+63)/64)
	for i, v := range values {
		delta := v - c.min
		bit := uint64(i) * uint64(c.width)
		word, shift := bit/64, bit%64
		c.words[word] |= delta << shift
		if shift+uint64(c.width) > 64 {
			c.words[word+1] |= delta >> (64 - shift)
		}
	}
	return c
}

func maskFor(width uint8) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return uint64(1)<<width - 1
}

// Get returns the raw value of doc. doc must be below Len.
func (c *Column) Get(doc uint32) uint64 {
	if c.width == 0 {
		return c.min
	}
	bit := uint64(doc) * uint64(c.width)
	word, shift := bit/64, bit%64
	v := c.words[word] >> shift
	if shift+uint64(c.width) > 64 {
		v |= c.words[word+1] << (64 - shift)
	}
	return c.min + v&c.mask
}

// Len returns the number of documents in the column.
func (c *Column) Len() uint32 { return c.numDocs }

// BitWidth returns the number of bits used per value.
func (c *Column) BitWidth() int { return int(c.width) }

func (c *Column) appendTo(buf []byte, field schema.Field) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(field))
	buf = binary.LittleEndian.AppendUint32(buf, c.numDocs)
	buf = binary.LittleEndian.AppendUint64(buf, c.min)
	buf = append(buf, c.width)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(c.words)))
	for _, w := range c.words {
		buf = binary.LittleEndian.AppendUint64(buf, w)
	}
	return buf
}

const columnHeaderSize = 4 + 4 + 8 + 1 + 4

func readColumn(data []byte) (schema.Field, *Column, []byte, error) {
	if len(data) < columnHeaderSize {
		return 0, nil, nil, apperrors.ErrCorruptSegment
	}
	field := schema.Field(binary.LittleEndian.Uint32(data[0:4]))
	c := &Column{
		numDocs: binary.LittleEndian.Uint32(data[4:8]),
		min:     binary.LittleEndian.Uint64(data[8:16]),
		width:   data[16],
	}
	numWords := int(binary.LittleEndian.Uint32(data[17:21]))
	data = data[columnHeaderSize:]
	if c.width > 64 || len(data) < numWords*8 {
		return 0, nil, nil, apperrors.ErrCorruptSegment
	}
	if need := (uint64(c.numDocs)*uint64(c.width) + 63) / 64; uint64(numWords) != need {
		return 0, nil, nil, apperrors.ErrCorruptSegment
	}
	c.mask = maskFor(c.width)
	c.words = make([]uint64, numWords)
	for i := range c.words {
		c.words[i] = binary.LittleEndian.Uint64(data[i*8:])
	}
	return field, c, data[numWords*8:], nil
}
