package circuit

import (
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// Circuit is the physical circuit artifact produced by the extractor: one data
// and one communication register per partition, a reusable scratch classical
// register, a result register and the ordered instruction sequence.
type Circuit struct {
	Name         string
	dataRegs     []Register
	commRegs     []Register
	scratch      Register
	result       Register
	instructions []Instruction
}

// New creates an empty circuit sized from the per-partition capacities
func New(name string, dataCapacity, commCapacity []int, scratchBits, resultBits int) *Circuit {
	c := &Circuit{
		Name:     name,
		dataRegs: make([]Register, len(dataCapacity)),
		commRegs: make([]Register, len(commCapacity)),
		scratch:  Register{Name: ScratchRegister, Size: scratchBits, Partition: -1},
		result:   Register{Name: ResultRegister, Size: resultBits, Partition: -1},
	}
	for p, size := range dataCapacity {
		c.dataRegs[p] = Register{Name: DataRegisterName(p), Size: size, Partition: p}
	}
	for p, size := range commCapacity {
		c.commRegs[p] = Register{Name: CommRegisterName(p), Size: size, Partition: p}
	}
	return c
}

// DataRegisters returns the data registers in partition order
func (c *Circuit) DataRegisters() []Register {
	return c.dataRegs
}

// CommRegisters returns the communication registers in partition order
func (c *Circuit) CommRegisters() []Register {
	return c.commRegs
}

// ScratchRegister returns the reusable classical register
func (c *Circuit) ScratchRegister() Register {
	return c.scratch
}

// ResultRegister returns the register receiving the final measurements
func (c *Circuit) ResultRegister() Register {
	return c.result
}

// Contains reports whether q addresses an existing physical qubit
func (c *Circuit) Contains(q Qubit) bool {
	regs := c.dataRegs
	if q.Kind == CommKind {
		regs = c.commRegs
	}
	if q.Partition < 0 || q.Partition >= len(regs) {
		return false
	}
	return q.Index >= 0 && q.Index < regs[q.Partition].Size
}

// Append adds an instruction at the end of the sequence
func (c *Circuit) Append(inst Instruction) {
	c.instructions = append(c.instructions, inst)
}

// AppendTemplate instantiates t on concrete operands and appends it
func (c *Circuit) AppendTemplate(t *Template, qubits []Qubit, clbits []Clbit, params ...float64) error {
	inst, err := t.Instantiate(qubits, clbits, params)
	if err != nil {
		return err
	}
	c.Append(inst)
	return nil
}

// U applies the generic single-qubit rotation u(theta, phi, lambda)
func (c *Circuit) U(theta, phi, lambda float64, q Qubit) {
	c.Append(Instruction{Name: "u", Qubits: []Qubit{q}, Params: []float64{theta, phi, lambda}})
}

// CP applies a controlled-phase rotation
func (c *Circuit) CP(theta float64, control, target Qubit) {
	c.Append(Instruction{Name: "cp", Qubits: []Qubit{control, target}, Params: []float64{theta}})
}

// CX applies a controlled-NOT
func (c *Circuit) CX(control, target Qubit) {
	c.Append(Instruction{Name: "cx", Qubits: []Qubit{control, target}})
}

// Swap exchanges the states of two qubits
func (c *Circuit) Swap(a, b Qubit) {
	c.Append(Instruction{Name: "swap", Qubits: []Qubit{a, b}})
}

// Reset returns a qubit to |0>
func (c *Circuit) Reset(q Qubit) {
	c.Append(Instruction{Name: "reset", Qubits: []Qubit{q}})
}

// Measure measures q into b
func (c *Circuit) Measure(q Qubit, b Clbit) {
	c.Append(Instruction{Name: "measure", Qubits: []Qubit{q}, Clbits: []Clbit{b}})
}

// Instructions returns the top-level instruction sequence
func (c *Circuit) Instructions() []Instruction {
	return c.instructions
}

// Len returns the number of top-level instructions
func (c *Circuit) Len() int {
	return len(c.instructions)
}

// Count returns how many top-level instructions are named name
func (c *Circuit) Count(name string) int {
	n := 0
	for _, inst := range c.instructions {
		if inst.Name == name {
			n++
		}
	}
	return n
}

// Flatten expands every template instance into primitive instructions
func (c *Circuit) Flatten() []Instruction {
	var out []Instruction
	for _, inst := range c.instructions {
		out = append(out, Expand(inst)...)
	}
	return out
}

// Fingerprint returns the hex SHA3-256 digest of the circuit's QASM text
func (c *Circuit) Fingerprint() string {
	sum := sha3.Sum256([]byte(c.QASM()))
	return hex.EncodeToString(sum[:])
}
