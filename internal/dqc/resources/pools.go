package resources

import (
	"sort"

	"github.com/jaskrrish/go-dqc/internal/dqc/circuit"
	"github.com/jaskrrish/go-dqc/internal/models/dqc"
)

// slotPool tracks the free and in-use slots of one kind for every partition.
// Allocation always hands out the lowest free index so compiled output is
// deterministic.
type slotPool struct {
	kind     circuit.Kind
	capacity []int
	free     [][]int
	inUse    []map[int]bool
}

func newSlotPool(kind circuit.Kind, capacity []int) *slotPool {
	p := &slotPool{
		kind:     kind,
		capacity: append([]int(nil), capacity...),
		free:     make([][]int, len(capacity)),
		inUse:    make([]map[int]bool, len(capacity)),
	}
	for part, size := range capacity {
		p.free[part] = make([]int, size)
		for i := 0; i < size; i++ {
			p.free[part][i] = i
		}
		p.inUse[part] = make(map[int]bool, size)
	}
	return p
}

func (p *slotPool) handle(part, index int) circuit.Qubit {
	return circuit.Qubit{Kind: p.kind, Partition: part, Index: index}
}

func (p *slotPool) validPartition(part int) bool {
	return part >= 0 && part < len(p.capacity)
}

func (p *slotPool) allocate(part int) (circuit.Qubit, bool) {
	if !p.validPartition(part) || len(p.free[part]) == 0 {
		return circuit.Qubit{}, false
	}
	index := p.free[part][0]
	p.free[part] = p.free[part][1:]
	p.inUse[part][index] = true
	return p.handle(part, index), true
}

func (p *slotPool) release(op string, q circuit.Qubit) error {
	if q.Kind != p.kind || !p.validPartition(q.Partition) {
		return dqc.InvariantViolation(op, dqc.NoContext, q.Partition,
			"slot %s does not belong to the %s pool", q, p.kind)
	}
	if !p.inUse[q.Partition][q.Index] {
		return dqc.InvariantViolation(op, dqc.NoContext, q.Partition,
			"slot %s is not in use", q)
	}
	delete(p.inUse[q.Partition], q.Index)
	p.free[q.Partition] = append(p.free[q.Partition], q.Index)
	sort.Ints(p.free[q.Partition])
	return nil
}

func (p *slotPool) claim(q circuit.Qubit) bool {
	if q.Kind != p.kind || !p.validPartition(q.Partition) {
		return false
	}
	if p.inUse[q.Partition][q.Index] {
		return true
	}
	for i, index := range p.free[q.Partition] {
		if index == q.Index {
			p.free[q.Partition] = append(p.free[q.Partition][:i], p.free[q.Partition][i+1:]...)
			p.inUse[q.Partition][q.Index] = true
			return true
		}
	}
	return false
}

func (p *slotPool) countInUse(part int) int {
	if !p.validPartition(part) {
		return 0
	}
	return len(p.inUse[part])
}

func (p *slotPool) isInUse(q circuit.Qubit) bool {
	return q.Kind == p.kind && p.validPartition(q.Partition) && p.inUse[q.Partition][q.Index]
}

// DataPool manages data slots and the location of every logical qubit
type DataPool struct {
	slots     *slotPool
	locations []circuit.Qubit
	residents map[circuit.Qubit]int
}

// NewDataPool creates the data pool and places every logical qubit according
// to its partition in initial. Qubits fill their partition's slots in index order.
func NewDataPool(capacity []int, initial []int) (*DataPool, error) {
	dp := &DataPool{
		slots:     newSlotPool(circuit.DataKind, capacity),
		locations: make([]circuit.Qubit, len(initial)),
		residents: make(map[circuit.Qubit]int, len(initial)),
	}
	for q, part := range initial {
		slot, ok := dp.slots.allocate(part)
		if !ok {
			return nil, dqc.InvalidInput("place",
				"no data slot for qubit %d in partition %d", q, part)
		}
		dp.Place(q, slot)
	}
	return dp, nil
}

// Allocate takes a free data slot of partition p. It returns false when the
// partition is full; the caller is expected to park the qubit instead.
func (dp *DataPool) Allocate(p int) (circuit.Qubit, bool) {
	return dp.slots.allocate(p)
}

// Release returns a data slot to the free set of partition p
func (dp *DataPool) Release(p int, q circuit.Qubit) error {
	if q.Partition != p {
		return dqc.InvariantViolation("release_data", dqc.NoContext, p,
			"slot %s released into partition %d", q, p)
	}
	if err := dp.slots.release("release_data", q); err != nil {
		return err
	}
	delete(dp.residents, q)
	return nil
}

// Place records that logical qubit q now lives on slot, which may be a data
// slot or a parking communication slot
func (dp *DataPool) Place(q int, slot circuit.Qubit) {
	if old, ok := dp.residentSlot(q); ok {
		delete(dp.residents, old)
	}
	dp.locations[q] = slot
	dp.residents[slot] = q
}

func (dp *DataPool) residentSlot(q int) (circuit.Qubit, bool) {
	if q < 0 || q >= len(dp.locations) {
		return circuit.Qubit{}, false
	}
	slot := dp.locations[q]
	r, ok := dp.residents[slot]
	return slot, ok && r == q
}

// Location returns the physical slot currently holding logical qubit q
func (dp *DataPool) Location(q int) (circuit.Qubit, error) {
	slot, ok := dp.residentSlot(q)
	if !ok {
		return circuit.Qubit{}, dqc.InvariantViolation("location", q, dqc.NoContext,
			"logical qubit has no physical location")
	}
	return slot, nil
}

// Locations returns a copy of the logical to physical map
func (dp *DataPool) Locations() []circuit.Qubit {
	return append([]circuit.Qubit(nil), dp.locations...)
}

// Resident returns the logical qubit living on slot, if any
func (dp *DataPool) Resident(slot circuit.Qubit) (int, bool) {
	q, ok := dp.residents[slot]
	return q, ok
}

// InUse returns the number of occupied data slots of partition p
func (dp *DataPool) InUse(p int) int {
	return dp.slots.countInUse(p)
}

// Free returns the number of free data slots of partition p
func (dp *DataPool) Free(p int) int {
	if !dp.slots.validPartition(p) {
		return 0
	}
	return len(dp.slots.free[p])
}

// Capacity returns the declared data capacity of partition p
func (dp *DataPool) Capacity(p int) int {
	return dp.slots.capacity[p]
}

// CommPool manages communication slots
type CommPool struct {
	slots *slotPool
}

// NewCommPool creates an empty communication pool
func NewCommPool(capacity []int) *CommPool {
	return &CommPool{slots: newSlotPool(circuit.CommKind, capacity)}
}

// Allocate takes a free communication slot of partition p. An empty pool is
// fatal: a feasible run never needs more slots than declared.
func (cp *CommPool) Allocate(p int) (circuit.Qubit, error) {
	slot, ok := cp.slots.allocate(p)
	if !ok {
		return circuit.Qubit{}, dqc.ResourceExhausted("allocate_comm", p,
			"no free communication qubit")
	}
	return slot, nil
}

// Release returns a communication slot to the free set of partition p
func (cp *CommPool) Release(p int, q circuit.Qubit) error {
	if q.Partition != p {
		return dqc.InvariantViolation("release_comm", dqc.NoContext, p,
			"slot %s released into partition %d", q, p)
	}
	return cp.slots.release("release_comm", q)
}

// Claim marks q as in use without allocating it, as done when a teleported
// qubit is left parked on its carrier slot
func (cp *CommPool) Claim(q circuit.Qubit) error {
	if !cp.slots.claim(q) {
		return dqc.InvariantViolation("claim_comm", dqc.NoContext, q.Partition,
			"cannot claim communication slot %s", q)
	}
	return nil
}

// IsInUse reports whether q is currently allocated
func (cp *CommPool) IsInUse(q circuit.Qubit) bool {
	return cp.slots.isInUse(q)
}

// InUse returns the number of allocated communication slots of partition p
func (cp *CommPool) InUse(p int) int {
	return cp.slots.countInUse(p)
}

// Capacity returns the declared communication capacity of partition p
func (cp *CommPool) Capacity(p int) int {
	return cp.slots.capacity[p]
}

// ClassicalPool lends scratch classical bits for one protocol application
type ClassicalPool struct {
	free  []int
	inUse map[int]bool
}

// ScratchBits is the size of the scratch register; state teleportation needs two
const ScratchBits = 2

// NewClassicalPool creates a pool of size scratch bits
func NewClassicalPool(size int) *ClassicalPool {
	pool := &ClassicalPool{
		free:  make([]int, size),
		inUse: make(map[int]bool, size),
	}
	for i := 0; i < size; i++ {
		pool.free[i] = i
	}
	return pool
}

// Allocate borrows a classical bit
func (cb *ClassicalPool) Allocate() (circuit.Clbit, error) {
	if len(cb.free) == 0 {
		return circuit.Clbit{}, dqc.ResourceExhausted("allocate_cbit", dqc.NoContext,
			"no free classical bit")
	}
	index := cb.free[0]
	cb.free = cb.free[1:]
	cb.inUse[index] = true
	return circuit.Clbit{Register: circuit.ScratchRegister, Index: index}, nil
}

// Release returns a borrowed classical bit
func (cb *ClassicalPool) Release(b circuit.Clbit) error {
	if b.Register != circuit.ScratchRegister || !cb.inUse[b.Index] {
		return dqc.InvariantViolation("release_cbit", dqc.NoContext, dqc.NoContext,
			"classical bit %s is not borrowed", b)
	}
	delete(cb.inUse, b.Index)
	cb.free = append(cb.free, b.Index)
	sort.Ints(cb.free)
	return nil
}

// InUse returns the number of borrowed classical bits
func (cb *ClassicalPool) InUse() int {
	return len(cb.inUse)
}
