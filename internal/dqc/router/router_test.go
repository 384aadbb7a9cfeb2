package router

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaskrrish/go-dqc/internal/models/dqc"
)

// TestRoute tests cycle-first decomposition of reassignments
func TestRoute(t *testing.T) {
	tests := []struct {
		name          string
		from, to      []int
		partitions    int
		wantQubits    [][]int
		wantDirs      [][][2]int
		wantCycleBats int
	}{
		{
			name:       "no movement",
			from:       []int{0, 1, 1},
			to:         []int{0, 1, 1},
			partitions: 2,
		},
		{
			name:          "two-cycle",
			from:          []int{0, 1},
			to:            []int{1, 0},
			partitions:    2,
			wantQubits:    [][]int{{0, 1}},
			wantDirs:      [][][2]int{{{0, 1}, {1, 0}}},
			wantCycleBats: 1,
		},
		{
			name:          "three-cycle",
			from:          []int{0, 1, 2},
			to:            []int{1, 2, 0},
			partitions:    3,
			wantQubits:    [][]int{{0, 1, 2}},
			wantDirs:      [][][2]int{{{0, 1}, {1, 2}, {2, 0}}},
			wantCycleBats: 1,
		},
		{
			name:       "residual only",
			from:       []int{0, 0, 1},
			to:         []int{1, 2, 1},
			partitions: 3,
			wantQubits: [][]int{{0, 1}},
			wantDirs:   [][][2]int{{{0, 1}, {0, 2}}},
		},
		{
			name:          "cycle plus parallel edge",
			from:          []int{0, 0, 1},
			to:            []int{1, 1, 0},
			partitions:    2,
			wantQubits:    [][]int{{0, 2}, {1}},
			wantDirs:      [][][2]int{{{0, 1}, {1, 0}}, {{0, 1}}},
			wantCycleBats: 1,
		},
		{
			name:          "two-cycles sharing a partition",
			from:          []int{0, 1, 1, 2},
			to:            []int{1, 0, 2, 1},
			partitions:    3,
			wantQubits:    [][]int{{0, 1}, {2, 3}},
			wantDirs:      [][][2]int{{{0, 1}, {1, 0}}, {{1, 2}, {2, 1}}},
			wantCycleBats: 2,
		},
		{
			name:          "shorter cycle first",
			from:          []int{0, 1, 2, 1},
			to:            []int{1, 2, 0, 0},
			partitions:    3,
			wantQubits:    [][]int{{0, 3}, {1, 2}},
			wantDirs:      [][][2]int{{{0, 1}, {1, 0}}, {{1, 2}, {2, 0}}},
			wantCycleBats: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := Route(tt.from, tt.to, tt.partitions)
			require.NoError(t, err)

			if tt.wantQubits == nil {
				assert.Empty(t, plan.Batches)
				assert.Equal(t, 0, plan.Len())
				return
			}
			assert.Equal(t, tt.wantQubits, plan.Qubits())
			assert.Equal(t, tt.wantDirs, plan.Directions())
			assert.Equal(t, tt.wantCycleBats, plan.CycleBatches)
		})
	}
}

// TestRouteCompleteness tests that every moved qubit appears exactly once with
// its own source and destination
func TestRouteCompleteness(t *testing.T) {
	from := []int{0, 0, 1, 1, 2, 2, 3, 3, 0, 2}
	to := []int{1, 2, 0, 3, 0, 1, 2, 0, 0, 3}

	plan, err := Route(from, to, 4)
	require.NoError(t, err)

	seen := make(map[int]int)
	for _, batch := range plan.Batches {
		require.NotEmpty(t, batch)
		for _, m := range batch {
			seen[m.Qubit]++
			assert.Equal(t, from[m.Qubit], m.Source, "qubit %d source", m.Qubit)
			assert.Equal(t, to[m.Qubit], m.Dest, "qubit %d dest", m.Qubit)
		}
	}

	for q := range from {
		if from[q] == to[q] {
			assert.Zero(t, seen[q], "qubit %d does not move", q)
		} else {
			assert.Equal(t, 1, seen[q], "qubit %d", q)
		}
	}
	assert.Equal(t, 9, plan.Len())
	assert.Greater(t, plan.CycleBatches, 0)
}

// TestRouteInvalid tests input validation
func TestRouteInvalid(t *testing.T) {
	tests := []struct {
		name     string
		from, to []int
	}{
		{"length mismatch", []int{0, 1}, []int{1}},
		{"unknown destination", []int{0}, []int{2}},
		{"negative source", []int{-1}, []int{0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Route(tt.from, tt.to, 2)
			assert.True(t, errors.Is(err, dqc.ErrInvalidInput), "got %v", err)
		})
	}
}

// TestRouteDeterministic tests that repeated routing yields the same plan
func TestRouteDeterministic(t *testing.T) {
	from := []int{0, 1, 2, 3, 0, 1, 2, 3}
	to := []int{1, 2, 3, 0, 2, 0, 1, 1}

	first, err := Route(from, to, 4)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		plan, err := Route(from, to, 4)
		require.NoError(t, err)
		assert.Equal(t, first.Batches, plan.Batches)
	}
}
