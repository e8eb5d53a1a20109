package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSeedRange(t *testing.T) {
	tests := []struct {
		name     string
		from, to int64
		want     SeedRange
	}{
		{"inclusive", 1, 3, SeedRange{1, 2, 3}},
		{"single", 1001, 1001, SeedRange{1001}},
		{"reversed", 5, 1, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewSeedRange(tt.from, tt.to))
		})
	}
	assert.Len(t, NewSeedRange(1, 50), 50)
}

func TestDisjoint(t *testing.T) {
	in := NewSeedRange(1, 50)
	assert.True(t, Disjoint(in, NewSeedRange(1001, 1050)))
	assert.False(t, Disjoint(in, NewSeedRange(50, 60)))
	assert.True(t, Disjoint(nil, in))
}

func TestOverlap(t *testing.T) {
	assert.Equal(t, []int64{4, 5}, Overlap(NewSeedRange(1, 5), NewSeedRange(4, 8)))
	assert.Empty(t, Overlap(NewSeedRange(1, 5), NewSeedRange(6, 8)))
}

func TestSeedRange_Contains(t *testing.T) {
	r := SeedRange{7, 3, 11}
	assert.True(t, r.Contains(3))
	assert.False(t, r.Contains(4))
}
