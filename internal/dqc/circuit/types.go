package circuit

import "fmt"

// Kind distinguishes the two physical qubit pools of a partition
type Kind int

const (
	// DataKind slots hold the resident state of a logical qubit
	DataKind Kind = 0
	// CommKind slots carry entanglement for remote operations
	CommKind Kind = 1
)

func (k Kind) String() string {
	switch k {
	case DataKind:
		return "data"
	case CommKind:
		return "comm"
	default:
		return "unknown"
	}
}

// Qubit is a physical qubit handle. The partition tag keeps slot indices of
// different partitions and pools from ever comparing equal.
type Qubit struct {
	Kind      Kind
	Partition int
	Index     int
}

// DataQubit returns the handle of data slot index in partition p
func DataQubit(p, index int) Qubit {
	return Qubit{Kind: DataKind, Partition: p, Index: index}
}

// CommQubit returns the handle of communication slot index in partition p
func CommQubit(p, index int) Qubit {
	return Qubit{Kind: CommKind, Partition: p, Index: index}
}

// RegisterName returns the name of the quantum register holding q
func (q Qubit) RegisterName() string {
	if q.Kind == CommKind {
		return CommRegisterName(q.Partition)
	}
	return DataRegisterName(q.Partition)
}

func (q Qubit) String() string {
	return fmt.Sprintf("%s[%d]", q.RegisterName(), q.Index)
}

// DataRegisterName is the register name of partition p's data qubits
func DataRegisterName(p int) string {
	return fmt.Sprintf("part%d_data", p)
}

// CommRegisterName is the register name of partition p's communication qubits
func CommRegisterName(p int) string {
	return fmt.Sprintf("comm_%d", p)
}

// Classical register names
const (
	ScratchRegister = "c"
	ResultRegister  = "result"
)

// Clbit is a classical bit handle
type Clbit struct {
	Register string
	Index    int
}

func (b Clbit) String() string {
	return fmt.Sprintf("%s[%d]", b.Register, b.Index)
}

// Condition makes an instruction classically controlled on a single bit
type Condition struct {
	Bit   Clbit
	Value int
}

// Instruction is one entry of the physical instruction sequence. Composite
// protocol steps carry their Template; primitives leave it nil.
type Instruction struct {
	Name      string
	Qubits    []Qubit
	Clbits    []Clbit
	Params    []float64
	Condition *Condition
	Template  *Template
}

// IsComposite reports whether the instruction is a protocol template instance
func (i Instruction) IsComposite() bool {
	return i.Template != nil
}

// Register describes one quantum or classical register of the circuit
type Register struct {
	Name      string
	Size      int
	Partition int
}
