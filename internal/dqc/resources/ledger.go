package resources

import (
	"sort"

	"github.com/jaskrrish/go-dqc/internal/dqc/circuit"
	"github.com/jaskrrish/go-dqc/internal/models/dqc"
)

// Link is an open entanglement correlation between a root qubit and a
// communication slot in Partition. Until is the last layer the link is needed.
type Link struct {
	Root      int
	Partition int
	Comm      circuit.Qubit
	Until     int
}

// Relocation records that a receiver's root moved while a link to the
// receiver's old partition was still needed
type Relocation struct {
	Partition int
	Until     int
}

// Parking records a logical qubit left on its carrier communication slot
// because its destination partition had no free data slot
type Parking struct {
	Comm      circuit.Qubit
	Partition int
}

type linkKey struct {
	root      int
	partition int
}

// Ledger holds the bookkeeping of one extraction run. Active roots, groups and
// linked communication qubits are all views of the same link table, so opening
// and closing a link updates them together. At most one link is open per
// (root, partition) pair.
type Ledger struct {
	links     map[linkKey]*Link
	owners    map[circuit.Qubit]linkKey
	roots     map[int]map[int]struct{}
	receivers map[int]map[int]int
	relocated map[int]Relocation
	queue     map[int]Parking
}

// NewLedger creates empty bookkeeping
func NewLedger() *Ledger {
	return &Ledger{
		links:     make(map[linkKey]*Link),
		owners:    make(map[circuit.Qubit]linkKey),
		roots:     make(map[int]map[int]struct{}),
		receivers: make(map[int]map[int]int),
		relocated: make(map[int]Relocation),
		queue:     make(map[int]Parking),
	}
}

// Open registers a link from root to partition p carried by comm
func (l *Ledger) Open(root, p int, comm circuit.Qubit, until int) error {
	key := linkKey{root: root, partition: p}
	if existing, ok := l.links[key]; ok {
		return dqc.InvariantViolation("open_link", root, p,
			"link already open on %s", existing.Comm)
	}
	if owner, ok := l.owners[comm]; ok {
		return dqc.InvariantViolation("open_link", root, p,
			"communication slot %s already linked to root %d", comm, owner.root)
	}
	if comm.Kind != circuit.CommKind || comm.Partition != p {
		return dqc.InvariantViolation("open_link", root, p,
			"slot %s cannot carry a link into partition %d", comm, p)
	}

	l.links[key] = &Link{Root: root, Partition: p, Comm: comm, Until: until}
	l.owners[comm] = key
	if l.roots[root] == nil {
		l.roots[root] = make(map[int]struct{})
	}
	l.roots[root][p] = struct{}{}
	return nil
}

// Close removes the link carried by comm and returns it
func (l *Ledger) Close(comm circuit.Qubit) (Link, error) {
	key, ok := l.owners[comm]
	if !ok {
		return Link{}, dqc.InvariantViolation("close_link", dqc.NoContext, comm.Partition,
			"communication slot %s carries no link", comm)
	}
	link, ok := l.links[key]
	if !ok {
		return Link{}, dqc.InvariantViolation("close_link", key.root, key.partition,
			"link table has no entry for slot %s", comm)
	}
	parts, ok := l.roots[key.root]
	if !ok {
		return Link{}, dqc.InvariantViolation("close_link", key.root, key.partition,
			"root is not active")
	}

	delete(l.links, key)
	delete(l.owners, comm)
	delete(parts, key.partition)
	if len(parts) == 0 {
		delete(l.roots, key.root)
	}
	return *link, nil
}

// Link returns the open link of root into partition p
func (l *Ledger) Link(root, p int) (Link, bool) {
	link, ok := l.links[linkKey{root: root, partition: p}]
	if !ok {
		return Link{}, false
	}
	return *link, true
}

// LinkByComm returns the link carried by comm
func (l *Ledger) LinkByComm(comm circuit.Qubit) (Link, bool) {
	key, ok := l.owners[comm]
	if !ok {
		return Link{}, false
	}
	return l.Link(key.root, key.partition)
}

// Extend raises the last layer the link (root, p) is needed
func (l *Ledger) Extend(root, p, until int) error {
	link, ok := l.links[linkKey{root: root, partition: p}]
	if !ok {
		return dqc.InvariantViolation("extend_link", root, p, "no open link")
	}
	if until > link.Until {
		link.Until = until
	}
	return nil
}

// Groups returns partition -> last needed layer for the open links of root
func (l *Ledger) Groups(root int) map[int]int {
	out := make(map[int]int)
	for p := range l.roots[root] {
		out[p] = l.links[linkKey{root: root, partition: p}].Until
	}
	return out
}

// ActivePartitions returns the partitions holding an open link on root
func (l *Ledger) ActivePartitions(root int) []int {
	parts := make([]int, 0, len(l.roots[root]))
	for p := range l.roots[root] {
		parts = append(parts, p)
	}
	sort.Ints(parts)
	return parts
}

// Links returns all open links ordered by root then partition
func (l *Ledger) Links() []Link {
	out := make([]Link, 0, len(l.links))
	for _, link := range l.links {
		out = append(out, *link)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Root != out[j].Root {
			return out[i].Root < out[j].Root
		}
		return out[i].Partition < out[j].Partition
	})
	return out
}

// OpenLinks returns the number of open links
func (l *Ledger) OpenLinks() int {
	return len(l.links)
}

// RecordReceiver notes that receiver still interacts with root at layer
func (l *Ledger) RecordReceiver(receiver, root, layer int) {
	if l.receivers[receiver] == nil {
		l.receivers[receiver] = make(map[int]int)
	}
	if prev, ok := l.receivers[receiver][root]; !ok || layer > prev {
		l.receivers[receiver][root] = layer
	}
}

// ReceiverUntil returns the last layer receiver is needed by any root
func (l *Ledger) ReceiverUntil(receiver int) (int, bool) {
	roots, ok := l.receivers[receiver]
	if !ok || len(roots) == 0 {
		return 0, false
	}
	until := -1
	for _, t := range roots {
		if t > until {
			until = t
		}
	}
	return until, true
}

// IsActiveReceiver reports whether receiver has pending interactions
func (l *Ledger) IsActiveReceiver(receiver int) bool {
	return len(l.receivers[receiver]) > 0
}

// ExpireReceivers drops every (receiver, root) entry whose last use is at or before layer
func (l *Ledger) ExpireReceivers(layer int) {
	for receiver, roots := range l.receivers {
		for root, t := range roots {
			if t <= layer {
				delete(roots, root)
			}
		}
		if len(roots) == 0 {
			delete(l.receivers, receiver)
		}
	}
}

// MarkRelocated records that links on receiver's old partition p stay alive until layer until
func (l *Ledger) MarkRelocated(receiver, p, until int) {
	l.relocated[receiver] = Relocation{Partition: p, Until: until}
}

// Relocated returns the relocation entry of receiver
func (l *Ledger) Relocated(receiver int) (Relocation, bool) {
	r, ok := l.relocated[receiver]
	return r, ok
}

// ClearRelocated removes the relocation entry of receiver
func (l *Ledger) ClearRelocated(receiver int) error {
	if _, ok := l.relocated[receiver]; !ok {
		return dqc.InvariantViolation("clear_relocated", receiver, dqc.NoContext,
			"receiver is not relocated")
	}
	delete(l.relocated, receiver)
	return nil
}

// RelocatedDue returns the receivers whose relocation ends at or before layer
func (l *Ledger) RelocatedDue(layer int) []int {
	var due []int
	for receiver, r := range l.relocated {
		if r.Until <= layer {
			due = append(due, receiver)
		}
	}
	sort.Ints(due)
	return due
}

// Park queues logical qubit q on comm until partition p has a free data slot
func (l *Ledger) Park(q int, comm circuit.Qubit, p int) error {
	if existing, ok := l.queue[q]; ok {
		return dqc.InvariantViolation("park", q, p,
			"qubit already parked on %s", existing.Comm)
	}
	l.queue[q] = Parking{Comm: comm, Partition: p}
	return nil
}

// Unpark removes q from the queue
func (l *Ledger) Unpark(q int) (Parking, error) {
	parking, ok := l.queue[q]
	if !ok {
		return Parking{}, dqc.InvariantViolation("unpark", q, dqc.NoContext,
			"qubit is not parked")
	}
	delete(l.queue, q)
	return parking, nil
}

// Parked returns the parking entry of q
func (l *Ledger) Parked(q int) (Parking, bool) {
	parking, ok := l.queue[q]
	return parking, ok
}

// Queue returns the parked qubits in ascending order
func (l *Ledger) Queue() []int {
	out := make([]int, 0, len(l.queue))
	for q := range l.queue {
		out = append(out, q)
	}
	sort.Ints(out)
	return out
}

// Check verifies that the link views agree with each other
func (l *Ledger) Check() error {
	for key, link := range l.links {
		if owner, ok := l.owners[link.Comm]; !ok || owner != key {
			return dqc.InvariantViolation("check", key.root, key.partition,
				"slot %s is not owned by its link", link.Comm)
		}
		if _, ok := l.roots[key.root][key.partition]; !ok {
			return dqc.InvariantViolation("check", key.root, key.partition,
				"open link missing from active roots")
		}
	}
	for comm, key := range l.owners {
		if _, ok := l.links[key]; !ok {
			return dqc.InvariantViolation("check", key.root, key.partition,
				"slot %s owned by a closed link", comm)
		}
	}
	for root, parts := range l.roots {
		for p := range parts {
			if _, ok := l.links[linkKey{root: root, partition: p}]; !ok {
				return dqc.InvariantViolation("check", root, p,
					"active root without an open link")
			}
		}
	}
	return nil
}
