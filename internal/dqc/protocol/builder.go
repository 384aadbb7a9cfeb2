package protocol

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/jaskrrish/go-dqc/internal/dqc/circuit"
	"github.com/jaskrrish/go-dqc/internal/dqc/resources"
	"github.com/jaskrrish/go-dqc/internal/dqc/router"
	"github.com/jaskrrish/go-dqc/internal/models/dqc"
)

// Placement is the outcome of moving a teleported qubit onto a data slot
type Placement int

const (
	// Placed means the qubit was swapped onto a free data slot
	Placed Placement = 0
	// Queued means the destination was full and the qubit stays on its carrier slot
	Queued Placement = 1
)

func (p Placement) String() string {
	switch p {
	case Placed:
		return "placed"
	case Queued:
		return "queued"
	default:
		return "unknown"
	}
}

// Builder appends protocol template instances and local gates to a circuit,
// consuming and releasing pool resources as it goes
type Builder struct {
	circ   *circuit.Circuit
	data   *resources.DataPool
	comm   *resources.CommPool
	cbits  *resources.ClassicalPool
	ledger *resources.Ledger
	logger *zap.Logger
	stats  dqc.Stats
}

// NewBuilder creates a protocol builder over one run's pools and ledger
func NewBuilder(
	circ *circuit.Circuit,
	data *resources.DataPool,
	comm *resources.CommPool,
	cbits *resources.ClassicalPool,
	ledger *resources.Ledger,
	logger *zap.Logger,
) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{
		circ:   circ,
		data:   data,
		comm:   comm,
		cbits:  cbits,
		ledger: ledger,
		logger: logger,
	}
}

// Stats returns the counters of emitted protocol steps
func (b *Builder) Stats() dqc.Stats {
	s := b.stats
	s.Instructions = b.circ.Len()
	return s
}

// GenerateEPR prepares an EPR pair on fresh communication slots of p1 and p2
func (b *Builder) GenerateEPR(p1, p2 int) (circuit.Qubit, circuit.Qubit, error) {
	c1, err := b.comm.Allocate(p1)
	if err != nil {
		return circuit.Qubit{}, circuit.Qubit{}, errors.Wrap(err, "generate epr")
	}
	c2, err := b.comm.Allocate(p2)
	if err != nil {
		return circuit.Qubit{}, circuit.Qubit{}, errors.Wrap(err, "generate epr")
	}

	b.logger.Debug("generate epr", zap.Stringer("comm1", c1), zap.Stringer("comm2", c2))
	if err := b.circ.AppendTemplate(EPR, []circuit.Qubit{c1, c2}, nil); err != nil {
		return circuit.Qubit{}, circuit.Qubit{}, err
	}
	b.stats.EPRPairs++
	return c1, c2, nil
}

// EntangleRoot opens a link between root, resident in pRoot, and a fresh
// communication slot of pRec. The root's state is not consumed.
func (b *Builder) EntangleRoot(root, pRoot, pRec, until int) error {
	if pRoot == pRec {
		return b.EntangleRootLocal(root, pRoot, until)
	}

	rootData, err := b.data.Location(root)
	if err != nil {
		return errors.Wrap(err, "entangle root")
	}
	rootComm, err := b.comm.Allocate(pRoot)
	if err != nil {
		return errors.Wrap(err, "entangle root")
	}
	recComm, err := b.comm.Allocate(pRec)
	if err != nil {
		return errors.Wrap(err, "entangle root")
	}
	cbit, err := b.cbits.Allocate()
	if err != nil {
		return errors.Wrap(err, "entangle root")
	}

	b.logger.Debug("entangle root",
		zap.Int("root", root),
		zap.Int("root_partition", pRoot),
		zap.Int("receiver_partition", pRec),
		zap.Stringer("receiver_comm", recComm),
	)
	if err := b.circ.AppendTemplate(RootEntanglement,
		[]circuit.Qubit{rootData, rootComm, recComm}, []circuit.Clbit{cbit}); err != nil {
		return err
	}
	if err := b.ledger.Open(root, pRec, recComm, until); err != nil {
		return err
	}
	b.stats.EPRPairs++
	b.stats.LinksOpened++

	if err := b.cbits.Release(cbit); err != nil {
		return err
	}
	return b.comm.Release(pRoot, rootComm)
}

// EntangleRootLocal links root to a communication slot of its own partition p
func (b *Builder) EntangleRootLocal(root, p, until int) error {
	rootData, err := b.data.Location(root)
	if err != nil {
		return errors.Wrap(err, "entangle root local")
	}
	comm, err := b.comm.Allocate(p)
	if err != nil {
		return errors.Wrap(err, "entangle root local")
	}

	b.logger.Debug("entangle root local",
		zap.Int("root", root),
		zap.Int("partition", p),
		zap.Stringer("comm", comm),
	)
	b.circ.CX(rootData, comm)
	if err := b.ledger.Open(root, p, comm, until); err != nil {
		return err
	}
	b.stats.LocalLinks++
	return nil
}

// EndLink tears down the link carried by comm and frees the slot
func (b *Builder) EndLink(comm circuit.Qubit) error {
	link, ok := b.ledger.LinkByComm(comm)
	if !ok {
		return dqc.InvariantViolation("end_link", dqc.NoContext, comm.Partition,
			"communication slot %s carries no link", comm)
	}
	rootLoc, err := b.data.Location(link.Root)
	if err != nil {
		return errors.Wrap(err, "end link")
	}
	cbit, err := b.cbits.Allocate()
	if err != nil {
		return errors.Wrap(err, "end link")
	}

	b.logger.Debug("end entanglement link",
		zap.Int("root", link.Root),
		zap.Int("partition", link.Partition),
		zap.Stringer("comm", comm),
	)
	if err := b.circ.AppendTemplate(EndEntanglement,
		[]circuit.Qubit{rootLoc, comm}, []circuit.Clbit{cbit}); err != nil {
		return err
	}
	if _, err := b.ledger.Close(comm); err != nil {
		return err
	}
	b.stats.LinksClosed++

	if err := b.cbits.Release(cbit); err != nil {
		return err
	}
	return b.comm.Release(link.Partition, comm)
}

// TeleportBatch moves every qubit of one router batch by state teleportation,
// then settles each onto a data slot of its destination or parks it
func (b *Builder) TeleportBatch(batch []router.Move) (map[int]Placement, error) {
	carriers := make([]circuit.Qubit, len(batch))
	for i, m := range batch {
		carrier, err := b.teleport(m)
		if err != nil {
			return nil, errors.Wrapf(err, "teleport qubit %d", m.Qubit)
		}
		carriers[i] = carrier
	}

	placements := make(map[int]Placement, len(batch))
	for i, m := range batch {
		placement, err := b.settle(m.Qubit, m.Dest, carriers[i])
		if err != nil {
			return nil, errors.Wrapf(err, "settle qubit %d", m.Qubit)
		}
		placements[m.Qubit] = placement
	}
	return placements, nil
}

func (b *Builder) teleport(m router.Move) (circuit.Qubit, error) {
	src, err := b.data.Location(m.Qubit)
	if err != nil {
		return circuit.Qubit{}, err
	}
	if src.Partition != m.Source {
		return circuit.Qubit{}, dqc.InvariantViolation("teleport", m.Qubit, m.Source,
			"qubit lives on %s, not in the source partition", src)
	}

	commSrc, err := b.comm.Allocate(m.Source)
	if err != nil {
		return circuit.Qubit{}, err
	}
	commDst, err := b.comm.Allocate(m.Dest)
	if err != nil {
		return circuit.Qubit{}, err
	}
	c1, err := b.cbits.Allocate()
	if err != nil {
		return circuit.Qubit{}, err
	}
	c2, err := b.cbits.Allocate()
	if err != nil {
		return circuit.Qubit{}, err
	}

	b.logger.Debug("state teleport",
		zap.Int("qubit", m.Qubit),
		zap.Int("source", m.Source),
		zap.Int("dest", m.Dest),
		zap.Stringer("from", src),
		zap.Stringer("carrier", commDst),
	)
	if err := b.circ.AppendTemplate(StateTeleport,
		[]circuit.Qubit{src, commSrc, commDst}, []circuit.Clbit{c1, c2}); err != nil {
		return circuit.Qubit{}, err
	}
	b.stats.EPRPairs++
	b.stats.StateTeleports++

	b.data.Place(m.Qubit, commDst)
	if err := b.comm.Release(m.Source, commSrc); err != nil {
		return circuit.Qubit{}, err
	}
	if src.Kind == circuit.CommKind {
		// the qubit was parked; its carrier slot goes back to the pool
		if _, err := b.ledger.Unpark(m.Qubit); err != nil {
			return circuit.Qubit{}, err
		}
		if err := b.comm.Release(m.Source, src); err != nil {
			return circuit.Qubit{}, err
		}
	} else if err := b.data.Release(m.Source, src); err != nil {
		return circuit.Qubit{}, err
	}
	if err := b.cbits.Release(c1); err != nil {
		return circuit.Qubit{}, err
	}
	if err := b.cbits.Release(c2); err != nil {
		return circuit.Qubit{}, err
	}
	return commDst, nil
}

func (b *Builder) settle(q, p int, carrier circuit.Qubit) (Placement, error) {
	slot, ok := b.data.Allocate(p)
	if !ok {
		b.logger.Warn("no data slot free, parking qubit on its carrier",
			zap.Int("qubit", q),
			zap.Int("partition", p),
			zap.Stringer("carrier", carrier),
			zap.String("kind", string(dqc.KindCapacityQueued)),
		)
		if err := b.ledger.Park(q, carrier, p); err != nil {
			return Queued, err
		}
		if err := b.comm.Claim(carrier); err != nil {
			return Queued, err
		}
		b.stats.Parked++
		return Queued, nil
	}

	b.moveToData(q, p, carrier, slot)
	return Placed, b.comm.Release(p, carrier)
}

func (b *Builder) moveToData(q, p int, carrier, slot circuit.Qubit) {
	b.logger.Debug("swap to data qubit",
		zap.Int("qubit", q),
		zap.Int("partition", p),
		zap.Stringer("carrier", carrier),
		zap.Stringer("slot", slot),
	)
	b.circ.Swap(carrier, slot)
	b.circ.Reset(carrier)
	b.data.Place(q, slot)
	b.stats.Swaps++
}

// Unpark moves a parked qubit onto a data slot if its partition has one free.
// It reports whether the qubit left the queue.
func (b *Builder) Unpark(q int) (bool, error) {
	parking, ok := b.ledger.Parked(q)
	if !ok {
		return false, dqc.InvariantViolation("unpark", q, dqc.NoContext, "qubit is not parked")
	}
	slot, ok := b.data.Allocate(parking.Partition)
	if !ok {
		return false, nil
	}

	b.moveToData(q, parking.Partition, parking.Comm, slot)
	if err := b.comm.Release(parking.Partition, parking.Comm); err != nil {
		return false, err
	}
	if _, err := b.ledger.Unpark(q); err != nil {
		return false, err
	}
	return true, nil
}

// GateTeleport applies cp(theta) between root and receiver living in
// different partitions through a one-shot link
func (b *Builder) GateTeleport(root, receiver int, theta float64) error {
	rootLoc, err := b.data.Location(root)
	if err != nil {
		return errors.Wrap(err, "gate teleport")
	}
	recLoc, err := b.data.Location(receiver)
	if err != nil {
		return errors.Wrap(err, "gate teleport")
	}
	commRoot, err := b.comm.Allocate(rootLoc.Partition)
	if err != nil {
		return errors.Wrap(err, "gate teleport")
	}
	commRec, err := b.comm.Allocate(recLoc.Partition)
	if err != nil {
		return errors.Wrap(err, "gate teleport")
	}
	cbit, err := b.cbits.Allocate()
	if err != nil {
		return errors.Wrap(err, "gate teleport")
	}

	b.logger.Debug("gate teleport",
		zap.Int("root", root),
		zap.Int("receiver", receiver),
		zap.Int("root_partition", rootLoc.Partition),
		zap.Int("receiver_partition", recLoc.Partition),
	)
	if err := b.circ.AppendTemplate(GateTeleport,
		[]circuit.Qubit{rootLoc, commRoot, commRec, recLoc}, []circuit.Clbit{cbit}, theta); err != nil {
		return err
	}
	b.stats.EPRPairs++
	b.stats.GateTeleports++

	if err := b.comm.Release(rootLoc.Partition, commRoot); err != nil {
		return err
	}
	if err := b.comm.Release(recLoc.Partition, commRec); err != nil {
		return err
	}
	return b.cbits.Release(cbit)
}

// ApplySingle applies u(theta, phi, lambda) on q in place
func (b *Builder) ApplySingle(q int, params []float64) error {
	loc, err := b.data.Location(q)
	if err != nil {
		return err
	}
	b.circ.U(params[0], params[1], params[2], loc)
	return nil
}

// ApplyLocal applies cp(theta) between two co-resident qubits
func (b *Builder) ApplyLocal(q0, q1 int, theta float64) error {
	l0, err := b.data.Location(q0)
	if err != nil {
		return err
	}
	l1, err := b.data.Location(q1)
	if err != nil {
		return err
	}
	b.circ.CP(theta, l0, l1)
	return nil
}

// ApplyAcrossLink applies cp(theta) between the link (root, p) and the
// receiver's resident slot
func (b *Builder) ApplyAcrossLink(root, p, receiver int, theta float64) (resources.Link, error) {
	link, ok := b.ledger.Link(root, p)
	if !ok {
		return resources.Link{}, dqc.InvariantViolation("apply_across_link", root, p,
			"no open link for receiver %d", receiver)
	}
	recLoc, err := b.data.Location(receiver)
	if err != nil {
		return resources.Link{}, err
	}
	b.circ.CP(theta, link.Comm, recLoc)
	return link, nil
}

// ApplyPhase applies cp(theta) directly between two physical qubits
func (b *Builder) ApplyPhase(theta float64, a, c circuit.Qubit) {
	b.circ.CP(theta, a, c)
}

// MeasureAll measures every logical qubit into its result bit
func (b *Builder) MeasureAll(numQubits int) error {
	for q := 0; q < numQubits; q++ {
		loc, err := b.data.Location(q)
		if err != nil {
			return err
		}
		b.circ.Measure(loc, circuit.Clbit{Register: circuit.ResultRegister, Index: q})
		b.stats.Measurements++
	}
	return nil
}
