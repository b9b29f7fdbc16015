package merger

import (
	"cmp"
	"testing"

	"github.com/stretchr/testify/assert"
)

type entry struct {
	score int
	id    int
}

func (e entry) Compare(o entry) int {
	if c := cmp.Compare(e.score, o.score); c != 0 {
		return c
	}
	return cmp.Compare(o.id, e.id)
}

func TestMerge(t *testing.T) {
	lists := [][]entry{
		{{9, 1}, {5, 2}, {1, 3}},
		{},
		{{7, 4}, {5, 0}},
		{{8, 5}},
	}

	tests := []struct {
		name  string
		limit int
		want  []entry
	}{
		{"bounded", 3, []entry{{9, 1}, {8, 5}, {7, 4}}},
		{"tie broken by id", 5, []entry{{9, 1}, {8, 5}, {7, 4}, {5, 0}, {5, 2}}},
		{"limit above total", 10, []entry{{9, 1}, {8, 5}, {7, 4}, {5, 0}, {5, 2}, {1, 3}}},
		{"zero limit", 0, []entry{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Merge(lists, tt.limit))
		})
	}
}

func TestMergeNoLists(t *testing.T) {
	got := Merge[entry](nil, 4)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
