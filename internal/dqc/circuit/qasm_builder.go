package circuit

import (
	"fmt"
	"strconv"
	"strings"
)

// QASMBuilder builds OpenQASM 2.0 text for a partitioned circuit
type QASMBuilder struct {
	version     string
	includeStmt string
	registers   []string
	body        []string
}

// NewQASMBuilder creates a new OpenQASM circuit builder
func NewQASMBuilder() *QASMBuilder {
	return &QASMBuilder{
		version:     "OPENQASM 2.0;",
		includeStmt: "include \"qelib1.inc\";",
		registers:   make([]string, 0),
		body:        make([]string, 0),
	}
}

// AddQuantumRegister declares a quantum register
func (b *QASMBuilder) AddQuantumRegister(name string, size int) {
	if size == 0 {
		return
	}
	b.registers = append(b.registers, fmt.Sprintf("qreg %s[%d];", name, size))
}

// AddClassicalRegister declares a classical register
func (b *QASMBuilder) AddClassicalRegister(name string, size int) {
	if size == 0 {
		return
	}
	b.registers = append(b.registers, fmt.Sprintf("creg %s[%d];", name, size))
}

// AddComment adds a comment line to the body
func (b *QASMBuilder) AddComment(text string) {
	b.body = append(b.body, "// "+text)
}

// AddGate adds a quantum gate operation
func (b *QASMBuilder) AddGate(gate string) {
	b.body = append(b.body, gate)
}

// AddMeasurement adds a measurement operation
func (b *QASMBuilder) AddMeasurement(qubit Qubit, bit Clbit) {
	b.body = append(b.body, fmt.Sprintf("measure %s -> %s;", qubit, qasmBit(bit)))
}

// AddInstruction renders an instruction, inlining template instances
func (b *QASMBuilder) AddInstruction(inst Instruction) {
	if inst.IsComposite() {
		b.AddComment(inst.Name)
		for _, child := range Expand(inst) {
			b.AddInstruction(child)
		}
		return
	}
	if inst.Name == "measure" && inst.Condition == nil {
		b.AddMeasurement(inst.Qubits[0], inst.Clbits[0])
		return
	}
	b.AddGate(formatInstruction(inst))
}

// Build generates the complete QASM circuit string
func (b *QASMBuilder) Build() string {
	var circuit strings.Builder

	circuit.WriteString(b.version + "\n")
	circuit.WriteString(b.includeStmt + "\n")
	circuit.WriteString("\n")

	for _, reg := range b.registers {
		circuit.WriteString(reg + "\n")
	}
	circuit.WriteString("\n")

	for _, line := range b.body {
		circuit.WriteString(line + "\n")
	}

	return circuit.String()
}

// QASM renders the circuit as OpenQASM 2.0
func (c *Circuit) QASM() string {
	builder := NewQASMBuilder()
	for _, reg := range c.dataRegs {
		builder.AddQuantumRegister(reg.Name, reg.Size)
	}
	for _, reg := range c.commRegs {
		builder.AddQuantumRegister(reg.Name, reg.Size)
	}
	// OpenQASM 2.0 conditions test whole registers: one register per scratch bit
	for i := 0; i < c.scratch.Size; i++ {
		builder.AddClassicalRegister(ScratchBitRegister(i), 1)
	}
	builder.AddClassicalRegister(c.result.Name, c.result.Size)

	for _, inst := range c.instructions {
		builder.AddInstruction(inst)
	}
	return builder.Build()
}

func formatInstruction(inst Instruction) string {
	var sb strings.Builder

	if inst.Condition != nil {
		fmt.Fprintf(&sb, "if(%s==%d) ", qasmCondition(inst.Condition.Bit), inst.Condition.Value)
	}

	sb.WriteString(inst.Name)
	if len(inst.Params) > 0 {
		params := make([]string, len(inst.Params))
		for i, p := range inst.Params {
			params[i] = strconv.FormatFloat(p, 'g', -1, 64)
		}
		sb.WriteString("(" + strings.Join(params, ",") + ")")
	}

	operands := make([]string, len(inst.Qubits))
	for i, q := range inst.Qubits {
		operands[i] = q.String()
	}
	sb.WriteString(" " + strings.Join(operands, ","))

	if inst.Name == "measure" {
		sb.WriteString(" -> " + qasmBit(inst.Clbits[0]))
	}
	sb.WriteString(";")

	return sb.String()
}

// ScratchBitRegister is the one-bit register declared for scratch bit i
func ScratchBitRegister(i int) string {
	return fmt.Sprintf("%s%d", ScratchRegister, i)
}

func qasmBit(b Clbit) string {
	if b.Register == ScratchRegister {
		return ScratchBitRegister(b.Index) + "[0]"
	}
	return b.String()
}

func qasmCondition(b Clbit) string {
	if b.Register == ScratchRegister {
		return ScratchBitRegister(b.Index)
	}
	return b.Register
}
