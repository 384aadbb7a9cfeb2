package resources

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaskrrish/go-dqc/internal/dqc/circuit"
	"github.com/jaskrrish/go-dqc/internal/models/dqc"
)

// TestNewDataPool tests initial placement in slot index order
func TestNewDataPool(t *testing.T) {
	dp, err := NewDataPool([]int{2, 2}, []int{1, 0, 1})
	require.NoError(t, err)

	assert.Equal(t, []circuit.Qubit{
		circuit.DataQubit(1, 0),
		circuit.DataQubit(0, 0),
		circuit.DataQubit(1, 1),
	}, dp.Locations())
	assert.Equal(t, 1, dp.InUse(0))
	assert.Equal(t, 2, dp.InUse(1))
	assert.Equal(t, 1, dp.Free(0))
	assert.Equal(t, 0, dp.Free(1))

	q, ok := dp.Resident(circuit.DataQubit(1, 1))
	assert.True(t, ok)
	assert.Equal(t, 2, q)
}

// TestNewDataPoolOverflow tests that an infeasible initial placement is rejected
func TestNewDataPoolOverflow(t *testing.T) {
	_, err := NewDataPool([]int{1, 1}, []int{0, 0})
	require.Error(t, err)
	assert.True(t, errors.Is(err, dqc.ErrInvalidInput))
}

// TestDataPoolPlace tests moving a qubit between slots
func TestDataPoolPlace(t *testing.T) {
	dp, err := NewDataPool([]int{1, 2}, []int{0})
	require.NoError(t, err)

	slot, ok := dp.Allocate(1)
	require.True(t, ok)
	assert.Equal(t, circuit.DataQubit(1, 0), slot)

	old, err := dp.Location(0)
	require.NoError(t, err)
	dp.Place(0, slot)
	require.NoError(t, dp.Release(0, old))

	loc, err := dp.Location(0)
	require.NoError(t, err)
	assert.Equal(t, slot, loc)
	_, ok = dp.Resident(old)
	assert.False(t, ok)
	assert.Equal(t, 0, dp.InUse(0))

	_, err = dp.Location(5)
	assert.True(t, errors.Is(err, dqc.ErrInvariantViolation))
}

// TestDataPoolRelease tests release validation
func TestDataPoolRelease(t *testing.T) {
	dp, err := NewDataPool([]int{2}, []int{0})
	require.NoError(t, err)

	tests := []struct {
		name string
		part int
		slot circuit.Qubit
	}{
		{"free slot", 0, circuit.DataQubit(0, 1)},
		{"comm handle", 0, circuit.CommQubit(0, 0)},
		{"wrong partition", 1, circuit.DataQubit(0, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := dp.Release(tt.part, tt.slot)
			assert.True(t, errors.Is(err, dqc.ErrInvariantViolation), "got %v", err)
		})
	}
}

// TestCommPool tests lowest-first allocation and exhaustion
func TestCommPool(t *testing.T) {
	cp := NewCommPool([]int{2, 0})

	a, err := cp.Allocate(0)
	require.NoError(t, err)
	b, err := cp.Allocate(0)
	require.NoError(t, err)
	assert.Equal(t, circuit.CommQubit(0, 0), a)
	assert.Equal(t, circuit.CommQubit(0, 1), b)
	assert.Equal(t, 2, cp.InUse(0))

	_, err = cp.Allocate(0)
	assert.True(t, errors.Is(err, dqc.ErrResourceExhausted))
	_, err = cp.Allocate(1)
	assert.True(t, errors.Is(err, dqc.ErrResourceExhausted))

	require.NoError(t, cp.Release(0, a))
	assert.False(t, cp.IsInUse(a))
	assert.Error(t, cp.Release(0, a), "double release")
	assert.Error(t, cp.Release(1, b), "release into foreign partition")

	again, err := cp.Allocate(0)
	require.NoError(t, err)
	assert.Equal(t, a, again)
}

// TestCommPoolClaim tests claiming a specific slot
func TestCommPoolClaim(t *testing.T) {
	cp := NewCommPool([]int{3})

	require.NoError(t, cp.Claim(circuit.CommQubit(0, 1)))
	assert.True(t, cp.IsInUse(circuit.CommQubit(0, 1)))
	assert.NoError(t, cp.Claim(circuit.CommQubit(0, 1)), "claiming an in-use slot is idempotent")

	next, err := cp.Allocate(0)
	require.NoError(t, err)
	assert.Equal(t, circuit.CommQubit(0, 0), next)

	assert.Error(t, cp.Claim(circuit.CommQubit(0, 7)))
	assert.Error(t, cp.Claim(circuit.DataQubit(0, 2)))
}

// TestClassicalPool tests scratch bit lending
func TestClassicalPool(t *testing.T) {
	cb := NewClassicalPool(ScratchBits)

	b0, err := cb.Allocate()
	require.NoError(t, err)
	b1, err := cb.Allocate()
	require.NoError(t, err)
	assert.Equal(t, circuit.Clbit{Register: circuit.ScratchRegister, Index: 0}, b0)
	assert.Equal(t, circuit.Clbit{Register: circuit.ScratchRegister, Index: 1}, b1)

	_, err = cb.Allocate()
	assert.True(t, errors.Is(err, dqc.ErrResourceExhausted))

	require.NoError(t, cb.Release(b1))
	require.NoError(t, cb.Release(b0))
	assert.Equal(t, 0, cb.InUse())
	assert.Error(t, cb.Release(b0))
	assert.Error(t, cb.Release(circuit.Clbit{Register: circuit.ResultRegister, Index: 0}))
}
