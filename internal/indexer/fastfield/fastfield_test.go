package fastfield

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/topdocs/internal/schema"
	apperrors "github.com/Adithya-Monish-Kumar-K/topdocs/pkg/errors"
)

func TestI64MappingPreservesOrder(t *testing.T) {
	values := []int64{math.MinInt64, -1000, -1, 0, 1, 42, math.MaxInt64}
	for i, v := range values {
		assert.Equal(t, v, U64ToI64(I64ToU64(v)))
		if i > 0 {
			assert.Less(t, I64ToU64(values[i-1]), I64ToU64(v))
		}
	}
}

func TestF64MappingPreservesOrder(t *testing.T) {
	values := []float64{math.Inf(-1), -1e300, -2.5, math.Copysign(0, -1), 0, 1e-300, 3.25, math.MaxFloat64, math.Inf(1)}
	for i, v := range values {
		assert.Equal(t, math.Float64bits(v), math.Float64bits(U64ToF64(F64ToU64(v))))
		if i > 0 {
			assert.Less(t, F64ToU64(values[i-1]), F64ToU64(v))
		}
	}
}

func TestFastValueFromU64(t *testing.T) {
	assert.Equal(t, uint64(64), FastValueFromU64[uint64](64))
	assert.Equal(t, int64(-7), FastValueFromU64[int64](I64ToU64(-7)))
	assert.Equal(t, 2.5, FastValueFromU64[float64](F64ToU64(2.5)))
	assert.Equal(t, float32(2.5), FastValueFromU64[float32](F64ToU64(2.5)))
	assert.Equal(t, int32(-7), FastValueFromU64[int32](I64ToU64(-7)))

	// narrowing truncates instead of failing
	assert.Equal(t, uint32(1), FastValueFromU64[uint32](1<<32+1))
}

func TestColumnRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		values []uint64
		width  int
	}{
		{"constant", []uint64{9, 9, 9}, 0},
		{"small", []uint64{12, 64, 16}, 6},
		{"full width", []uint64{0, math.MaxUint64, 1}, 64},
		{"empty", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newColumn(tt.values)
			assert.Equal(t, tt.width, c.BitWidth())
			assert.Equal(t, uint32(len(tt.values)), c.Len())
			for i, v := range tt.values {
				assert.Equal(t, v, c.Get(uint32(i)))
			}
		})
	}
}

func TestColumnRandomValuesCrossWordBoundaries(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	values := make([]uint64, 1000)
	for i := range values {
		values[i] = 1_000_000 + uint64(rng.Intn(1<<21))
	}
	c := newColumn(values)
	for i, v := range values {
		require.Equal(t, v, c.Get(uint32(i)), "doc %d", i)
	}
}

func testSchema() (*schema.Schema, schema.Field, schema.Field, schema.Field, schema.Field) {
	b := schema.NewBuilder()
	title := b.AddTextField("title", schema.TEXT|schema.STORED)
	size := b.AddU64Field("size", schema.FAST)
	delta := b.AddI64Field("delta", schema.FAST)
	weight := b.AddF64Field("weight", schema.STORED)
	return b.MustBuild(), title, size, delta, weight
}

func TestWriterAndReaders(t *testing.T) {
	s, title, size, delta, weight := testSchema()
	w := NewWriter(s)

	sizes := []uint64{12, 64, 16}
	for i, v := range sizes {
		var doc schema.Document
		doc.AddText(title, "beer")
		doc.AddU64(size, v)
		doc.AddI64(delta, int64(i)-1)
		w.Add(doc)
	}
	// missing values fall back to the typed zero
	w.Add(schema.Document{})
	require.Equal(t, 4, w.NumDocs())

	r, err := Open(s, w.Serialize())
	require.NoError(t, err)

	col, err := r.U64Lenient(size)
	require.NoError(t, err)
	got := []uint64{col.Get(0), col.Get(1), col.Get(2), col.Get(3)}
	assert.Equal(t, []uint64{12, 64, 16, 0}, got)

	col, err = r.U64Lenient(delta)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), FastValueFromU64[int64](col.Get(0)))
	assert.Equal(t, int64(0), FastValueFromU64[int64](col.Get(3)))

	_, err = r.U64Lenient(weight)
	assert.ErrorIs(t, err, apperrors.ErrSchema)
	_, err = r.U64Lenient(title)
	assert.ErrorIs(t, err, apperrors.ErrSchema)
	_, err = r.U64Lenient(schema.Field(99))
	assert.ErrorIs(t, err, apperrors.ErrSchema)
}

func TestOpenRejectsTruncatedData(t *testing.T) {
	s, _, size, _, _ := testSchema()
	w := NewWriter(s)
	for i := 0; i < 10; i++ {
		var doc schema.Document
		doc.AddU64(size, uint64(i*1000))
		w.Add(doc)
	}
	data := w.Serialize()

	_, err := Open(s, data[:len(data)-3])
	assert.ErrorIs(t, err, apperrors.ErrCorruptSegment)
	_, err = Open(s, data[:2])
	assert.ErrorIs(t, err, apperrors.ErrCorruptSegment)
}

func TestSortedByMappedValueMatchesTypedOrder(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	floats := make([]float64, 200)
	for i := range floats {
		floats[i] = (rng.Float64() - 0.5) * 1e6
	}
	mapped := make([]uint64, len(floats))
	for i, f := range floats {
		mapped[i] = F64ToU64(f)
	}
	sort.Float64s(floats)
	sort.Slice(mapped, func(i, j int) bool { return mapped[i] < mapped[j] })
	for i := range floats {
		assert.Equal(t, floats[i], U64ToF64(mapped[i]))
	}
}
