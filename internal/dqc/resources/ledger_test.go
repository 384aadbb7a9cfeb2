package resources

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaskrrish/go-dqc/internal/dqc/circuit"
	"github.com/jaskrrish/go-dqc/internal/models/dqc"
)

// TestLedgerLinks tests that opening and closing keep every view consistent
func TestLedgerLinks(t *testing.T) {
	l := NewLedger()
	c1, c2 := circuit.CommQubit(1, 0), circuit.CommQubit(2, 0)

	require.NoError(t, l.Open(0, 1, c1, 3))
	require.NoError(t, l.Open(0, 2, c2, 5))
	require.NoError(t, l.Check())

	assert.Equal(t, map[int]int{1: 3, 2: 5}, l.Groups(0))
	assert.Equal(t, []int{1, 2}, l.ActivePartitions(0))
	assert.Equal(t, 2, l.OpenLinks())

	link, ok := l.LinkByComm(c2)
	require.True(t, ok)
	assert.Equal(t, Link{Root: 0, Partition: 2, Comm: c2, Until: 5}, link)

	closed, err := l.Close(c1)
	require.NoError(t, err)
	assert.Equal(t, 1, closed.Partition)
	assert.Equal(t, []int{2}, l.ActivePartitions(0))
	require.NoError(t, l.Check())

	_, err = l.Close(c2)
	require.NoError(t, err)
	assert.Empty(t, l.ActivePartitions(0))
	assert.Empty(t, l.Links())
}

// TestLedgerOpenRejects tests the single-link and ownership rules
func TestLedgerOpenRejects(t *testing.T) {
	l := NewLedger()
	require.NoError(t, l.Open(0, 1, circuit.CommQubit(1, 0), 2))

	tests := []struct {
		name string
		root int
		part int
		comm circuit.Qubit
	}{
		{"second link on the same pair", 0, 1, circuit.CommQubit(1, 1)},
		{"slot already linked", 3, 1, circuit.CommQubit(1, 0)},
		{"slot from another partition", 3, 2, circuit.CommQubit(1, 1)},
		{"data slot", 3, 1, circuit.DataQubit(1, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := l.Open(tt.root, tt.part, tt.comm, 4)
			assert.True(t, errors.Is(err, dqc.ErrInvariantViolation), "got %v", err)
		})
	}
	assert.Equal(t, 1, l.OpenLinks())
}

// TestLedgerExtend tests that extension only ever raises the horizon
func TestLedgerExtend(t *testing.T) {
	l := NewLedger()
	require.NoError(t, l.Open(4, 0, circuit.CommQubit(0, 0), 3))

	require.NoError(t, l.Extend(4, 0, 6))
	require.NoError(t, l.Extend(4, 0, 2))
	link, _ := l.Link(4, 0)
	assert.Equal(t, 6, link.Until)

	assert.Error(t, l.Extend(4, 1, 9))
	_, err := l.Close(circuit.CommQubit(0, 1))
	assert.Error(t, err)
}

// TestLedgerReceivers tests receiver horizons and expiry
func TestLedgerReceivers(t *testing.T) {
	l := NewLedger()
	l.RecordReceiver(2, 0, 3)
	l.RecordReceiver(2, 0, 1)
	l.RecordReceiver(2, 5, 4)

	until, ok := l.ReceiverUntil(2)
	require.True(t, ok)
	assert.Equal(t, 4, until)

	l.ExpireReceivers(3)
	assert.True(t, l.IsActiveReceiver(2))
	until, _ = l.ReceiverUntil(2)
	assert.Equal(t, 4, until)

	l.ExpireReceivers(4)
	assert.False(t, l.IsActiveReceiver(2))
	_, ok = l.ReceiverUntil(2)
	assert.False(t, ok)
}

// TestLedgerRelocated tests relocation entries
func TestLedgerRelocated(t *testing.T) {
	l := NewLedger()
	l.MarkRelocated(3, 0, 4)
	l.MarkRelocated(1, 1, 2)

	assert.Equal(t, []int{1}, l.RelocatedDue(2))
	assert.Equal(t, []int{1, 3}, l.RelocatedDue(5))

	r, ok := l.Relocated(3)
	require.True(t, ok)
	assert.Equal(t, Relocation{Partition: 0, Until: 4}, r)

	require.NoError(t, l.ClearRelocated(3))
	assert.Error(t, l.ClearRelocated(3))
}

// TestLedgerQueue tests parking and unparking
func TestLedgerQueue(t *testing.T) {
	l := NewLedger()
	require.NoError(t, l.Park(5, circuit.CommQubit(1, 0), 1))
	require.NoError(t, l.Park(2, circuit.CommQubit(0, 0), 0))
	assert.Error(t, l.Park(5, circuit.CommQubit(1, 1), 1))

	assert.Equal(t, []int{2, 5}, l.Queue())

	parking, err := l.Unpark(5)
	require.NoError(t, err)
	assert.Equal(t, Parking{Comm: circuit.CommQubit(1, 0), Partition: 1}, parking)
	_, ok := l.Parked(5)
	assert.False(t, ok)

	_, err = l.Unpark(5)
	assert.True(t, errors.Is(err, dqc.ErrInvariantViolation))
}
