package extractor

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/jaskrrish/go-dqc/internal/dqc/circuit"
	"github.com/jaskrrish/go-dqc/internal/dqc/protocol"
	"github.com/jaskrrish/go-dqc/internal/dqc/resources"
	"github.com/jaskrrish/go-dqc/internal/dqc/router"
	"github.com/jaskrrish/go-dqc/internal/models/dqc"
)

// DefaultCircuitName is the name of the emitted circuit
const DefaultCircuitName = "PartitionedCircuit"

// Snapshot is the observable state at the end of a layer
type Snapshot struct {
	Layer     int
	DataInUse []int
	CommInUse []int
	Locations []circuit.Qubit
	Queued    []int
	OpenLinks int
}

// LayerHook is called once per processed layer
type LayerHook func(Snapshot)

// Option configures an Extractor
type Option func(*Extractor)

// WithLogger sets the logger of the run
func WithLogger(logger *zap.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLayerHook registers a callback observing every layer
func WithLayerHook(hook LayerHook) Option {
	return func(e *Extractor) {
		e.hook = hook
	}
}

// WithName overrides the circuit name
func WithName(name string) Option {
	return func(e *Extractor) {
		if name != "" {
			e.name = name
		}
	}
}

// unplanned marks a linked gate that did not come from group packing
const unplanned = -1

// step is one scheduled gate of a layer. Linked sub-gates keep the partition
// their receiver was planned in when the group was packed.
type step struct {
	dqc.Gate
	via int
}

// Extractor turns a partitioned gate structure into a single flat circuit.
// An Extractor runs once.
type Extractor struct {
	numQubits     int
	numPartitions int
	layers        [][]step
	assignment    *Assignment
	current       []int

	name    string
	circ    *circuit.Circuit
	data    *resources.DataPool
	comm    *resources.CommPool
	cbits   *resources.ClassicalPool
	ledger  *resources.Ledger
	builder *protocol.Builder

	logger *zap.Logger
	hook   LayerHook
	ran    bool
}

// New validates problem and prepares a run. The problem is not modified.
func New(problem *dqc.Problem, opts ...Option) (*Extractor, error) {
	if problem == nil {
		return nil, dqc.InvalidInput("new_extractor", "problem is required")
	}
	if err := problem.Validate(); err != nil {
		return nil, err
	}

	e := &Extractor{
		numQubits:     problem.NumQubits,
		numPartitions: problem.NumPartitions(),
		assignment:    NewAssignment(problem.Assignment),
		name:          DefaultCircuitName,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}

	for _, layer := range normalizeGroups(problem.Layers, problem.Depth()) {
		steps := make([]step, len(layer))
		for k, g := range layer {
			steps[k] = step{Gate: g, via: unplanned}
		}
		e.layers = append(e.layers, steps)
	}
	e.current = e.assignment.Row(0)

	data, err := resources.NewDataPool(problem.DataCapacity, e.current)
	if err != nil {
		return nil, err
	}
	e.data = data
	e.comm = resources.NewCommPool(problem.CommCapacity)
	e.cbits = resources.NewClassicalPool(resources.ScratchBits)
	e.ledger = resources.NewLedger()
	e.circ = circuit.New(e.name, problem.DataCapacity, problem.CommCapacity,
		resources.ScratchBits, problem.NumQubits)
	e.builder = protocol.NewBuilder(e.circ, e.data, e.comm, e.cbits, e.ledger, e.logger)
	return e, nil
}

// normalizeGroups deep-copies the layers, padded to depth. Groups without
// sub-gates are dropped and a group with a single sub-gate becomes a plain
// two-qubit gate at the sub-gate's layer.
func normalizeGroups(in [][]dqc.Gate, depth int) [][]dqc.Gate {
	out := make([][]dqc.Gate, depth)
	for t := 0; t < depth && t < len(in); t++ {
		out[t] = make([]dqc.Gate, 0, len(in[t]))
		for _, g := range in[t] {
			g.Qubits = append([]int(nil), g.Qubits...)
			g.Params = append([]float64(nil), g.Params...)
			g.SubGates = append([]dqc.SubGate(nil), g.SubGates...)
			out[t] = append(out[t], g)
		}
	}

	for t := range out {
		kept := out[t][:0]
		var promoted []dqc.Gate
		for _, g := range out[t] {
			if g.Type != dqc.GateGroup {
				kept = append(kept, g)
				continue
			}
			switch len(g.SubGates) {
			case 0:
			case 1:
				sg := g.SubGates[0]
				gate := dqc.Gate{
					Type:   dqc.GateTwoQubit,
					Qubits: []int{g.Root, sg.Receiver},
					Params: append([]float64(nil), sg.Params...),
				}
				if sg.Time == t {
					promoted = append(promoted, gate)
				} else {
					out[sg.Time] = append(out[sg.Time], gate)
				}
			default:
				g.Time = t
				kept = append(kept, g)
			}
		}
		out[t] = append(kept, promoted...)
	}
	return out
}

// Run extracts the circuit
func (e *Extractor) Run() (*circuit.Circuit, error) {
	return e.RunContext(context.Background())
}

// RunContext extracts the circuit, checking ctx between layers
func (e *Extractor) RunContext(ctx context.Context) (*circuit.Circuit, error) {
	if e.ran {
		return nil, dqc.InvalidInput("run", "extractor already ran")
	}
	e.ran = true

	e.logger.Info("starting extraction",
		zap.Int("qubits", e.numQubits),
		zap.Int("partitions", e.numPartitions),
		zap.Int("depth", len(e.layers)),
	)

	for i := range e.layers {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrapf(err, "extraction cancelled before layer %d", i)
		}
		if err := e.processLayer(i); err != nil {
			return nil, withLayer(err, i)
		}
		if e.hook != nil {
			e.hook(e.Snapshot(i))
		}
	}

	if err := e.builder.MeasureAll(e.numQubits); err != nil {
		return nil, errors.Wrap(err, "measure")
	}
	if err := e.ledger.Check(); err != nil {
		return nil, err
	}

	stats := e.Stats()
	e.logger.Info("extraction complete",
		zap.Int("instructions", stats.Instructions),
		zap.Int("state_teleports", stats.StateTeleports),
		zap.Int("gate_teleports", stats.GateTeleports),
		zap.Int("links_opened", stats.LinksOpened),
		zap.Int("open_links", e.ledger.OpenLinks()),
	)
	return e.circ, nil
}

// withLayer fills in the layer of an extraction error raised below the loop
func withLayer(err error, layer int) error {
	var xe *dqc.ExtractionError
	if errors.As(err, &xe) && xe.Layer == dqc.NoContext {
		xe.Layer = layer
	}
	return err
}

// Stats returns the counters of the run
func (e *Extractor) Stats() dqc.Stats {
	return e.builder.Stats()
}

// Circuit returns the circuit built so far
func (e *Extractor) Circuit() *circuit.Circuit {
	return e.circ
}

// Snapshot captures pool usage and qubit locations
func (e *Extractor) Snapshot(layer int) Snapshot {
	s := Snapshot{
		Layer:     layer,
		DataInUse: make([]int, e.numPartitions),
		CommInUse: make([]int, e.numPartitions),
		Locations: e.data.Locations(),
		Queued:    e.ledger.Queue(),
		OpenLinks: e.ledger.OpenLinks(),
	}
	for p := 0; p < e.numPartitions; p++ {
		s.DataInUse[p] = e.data.InUse(p)
		s.CommInUse[p] = e.comm.InUse(p)
	}
	return s
}

func (e *Extractor) processLayer(i int) error {
	row := e.assignment.Row(i)

	// links are keyed by root, so a root that moves keeps its open links
	moved := false
	for q := range row {
		if e.current[q] != row[q] {
			moved = true
			break
		}
	}
	if moved {
		if err := e.relocate(e.current, row); err != nil {
			return err
		}
	}
	e.current = row

	for _, q := range e.ledger.Queue() {
		placed, err := e.builder.Unpark(q)
		if err != nil {
			return err
		}
		if placed {
			e.logger.Debug("drained parked qubit", zap.Int("qubit", q), zap.Int("layer", i))
		}
	}

	// sub-gates scheduled for this layer are appended while it is processed
	for k := 0; k < len(e.layers[i]); k++ {
		if err := e.applyGate(e.layers[i][k], i); err != nil {
			return err
		}
	}

	e.ledger.ExpireReceivers(i)
	for _, rec := range e.ledger.RelocatedDue(i) {
		if err := e.closeRelocation(rec, i); err != nil {
			return err
		}
	}
	return nil
}

func (e *Extractor) applyGate(g step, i int) error {
	switch g.Type {
	case dqc.GateSingle:
		return e.builder.ApplySingle(g.Qubits[0], g.Params)
	case dqc.GateTwoQubit:
		q0, q1 := g.Qubits[0], g.Qubits[1]
		if e.current[q0] == e.current[q1] {
			return e.builder.ApplyLocal(q0, q1, g.Params[0])
		}
		return e.builder.GateTeleport(q0, q1, g.Params[0])
	case dqc.GateGroup:
		return e.processGroup(g.Gate, i)
	case dqc.GateLinked:
		return e.applyLinked(g, i)
	default:
		return dqc.InvalidInput("apply_gate", "unknown gate type %q", g.Type)
	}
}

// relocate moves every qubit whose partition differs between from and to
func (e *Extractor) relocate(from, to []int) error {
	plan, err := router.Route(from, to, e.numPartitions)
	if err != nil {
		return err
	}
	for _, batch := range plan.Batches {
		placements, err := e.builder.TeleportBatch(batch)
		if err != nil {
			return err
		}
		for q, placement := range placements {
			e.logger.Debug("relocated qubit",
				zap.Int("qubit", q),
				zap.Stringer("placement", placement),
			)
		}
	}
	return nil
}

// pinLink makes sure a link (root, p) is open until at least until
func (e *Extractor) pinLink(root, p, until int) error {
	if _, ok := e.ledger.Link(root, p); ok {
		return e.ledger.Extend(root, p, until)
	}
	return e.builder.EntangleRootLocal(root, p, until)
}

func (e *Extractor) processGroup(g dqc.Gate, i int) error {
	root := g.Root
	pRoot := e.current[root]
	finalP := e.assignment.At(g.FinalTime(), root)

	recvPart := make([]int, len(g.SubGates))
	lastUse := make(map[int]int)
	lastSub := make(map[int]int)
	var order []int
	for k, sg := range g.SubGates {
		p := e.assignment.At(sg.Time, sg.Receiver)
		recvPart[k] = p
		if p != finalP {
			if _, ok := lastUse[p]; !ok {
				order = append(order, p)
			}
			if sg.Time > lastUse[p] {
				lastUse[p] = sg.Time
			}
			lastSub[p] = k
		}
		e.ledger.RecordReceiver(sg.Receiver, root, sg.Time)
	}

	for _, p := range order {
		var err error
		if _, ok := e.ledger.Link(root, p); ok {
			err = e.ledger.Extend(root, p, lastUse[p])
		} else {
			err = e.builder.EntangleRoot(root, pRoot, p, lastUse[p])
		}
		if err != nil {
			return errors.Wrapf(err, "group on root %d", root)
		}
	}

	if finalP != pRoot {
		if err := e.relocateRoot(root, pRoot, finalP, i); err != nil {
			return errors.Wrapf(err, "group on root %d", root)
		}
	}

	for k, sg := range g.SubGates {
		p := recvPart[k]
		linked := step{
			Gate: dqc.Gate{
				Type:   dqc.GateLinked,
				Qubits: []int{root, sg.Receiver},
				Params: append([]float64(nil), sg.Params...),
				End:    p != finalP && k == lastSub[p],
			},
			via: p,
		}
		if sg.Time == i {
			if err := e.applyLinked(linked, i); err != nil {
				return err
			}
			continue
		}
		e.layers[sg.Time] = append(e.layers[sg.Time], linked)
	}
	return nil
}

// relocateRoot moves a group root to its final partition right away. If the
// root is still an active receiver of other groups, a link on its old
// partition stands in for it until those interactions are done.
func (e *Extractor) relocateRoot(root, pRoot, finalP, i int) error {
	if until, ok := e.ledger.ReceiverUntil(root); ok {
		if until < i {
			until = i
		}
		if err := e.pinLink(root, pRoot, until); err != nil {
			return err
		}
		e.ledger.MarkRelocated(root, pRoot, until)
	}

	e.assignment.Pin(root, i, finalP)
	to := append([]int(nil), e.current...)
	to[root] = finalP

	e.logger.Debug("relocating group root",
		zap.Int("root", root),
		zap.Int("from", pRoot),
		zap.Int("to", finalP),
		zap.Int("layer", i),
	)
	if err := e.relocate(e.current, to); err != nil {
		return err
	}
	e.current = to
	return nil
}

func (e *Extractor) applyLinked(g step, i int) error {
	root, rec := g.Qubits[0], g.Qubits[1]
	theta := g.Params[0]
	pRoot, pRec := e.current[root], e.current[rec]

	if pRoot == pRec {
		if err := e.builder.ApplyLocal(root, rec, theta); err != nil {
			return err
		}
		if link, ok := e.ledger.Link(root, pRec); ok && g.End && link.Until <= i {
			return e.builder.EndLink(link.Comm)
		}
		return nil
	}

	// only sub-gates planned against the old partition go through the stand-in link
	if rel, ok := e.ledger.Relocated(rec); ok && pRec != rel.Partition {
		_, direct := e.ledger.Link(root, pRec)
		if g.via == rel.Partition || (g.via == unplanned && !direct) {
			return e.applyRelocated(root, rec, rel, theta, g.End, i)
		}
	}

	link, err := e.builder.ApplyAcrossLink(root, pRec, rec, theta)
	if err != nil {
		return err
	}
	if g.End && link.Until <= i {
		return e.builder.EndLink(link.Comm)
	}
	return nil
}

// applyRelocated runs a linked gate whose receiver was moved away early. The
// receiver is reached through its own link on the old partition and the root
// through its link into that partition, or directly when it lives there.
func (e *Extractor) applyRelocated(root, rec int, rel resources.Relocation, theta float64, end bool, i int) error {
	recLink, ok := e.ledger.Link(rec, rel.Partition)
	if !ok {
		return dqc.InvariantViolation("apply_relocated", rec, rel.Partition,
			"relocated receiver has no link on its old partition")
	}

	rootLink, hasRootLink := e.ledger.Link(root, rel.Partition)
	var rootEnd circuit.Qubit
	switch {
	case hasRootLink:
		rootEnd = rootLink.Comm
	case e.current[root] == rel.Partition:
		loc, err := e.data.Location(root)
		if err != nil {
			return err
		}
		rootEnd = loc
	default:
		return dqc.InvariantViolation("apply_relocated", root, rel.Partition,
			"root cannot reach relocated receiver %d", rec)
	}

	e.builder.ApplyPhase(theta, recLink.Comm, rootEnd)

	if hasRootLink && end && rootLink.Until <= i {
		if err := e.builder.EndLink(rootLink.Comm); err != nil {
			return err
		}
	}
	if rel.Until <= i {
		return e.closeRelocation(rec, i)
	}
	return nil
}

// closeRelocation ends the stand-in link of a relocated receiver once it is no
// longer needed and clears the relocation entry
func (e *Extractor) closeRelocation(rec, i int) error {
	rel, ok := e.ledger.Relocated(rec)
	if !ok {
		return nil
	}
	if link, ok := e.ledger.Link(rec, rel.Partition); ok && link.Until <= i {
		if err := e.builder.EndLink(link.Comm); err != nil {
			return err
		}
	}
	return e.ledger.ClearRelocated(rec)
}
