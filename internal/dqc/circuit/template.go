package circuit

import "github.com/pkg/errors"

// NoRole marks an absent classical condition or parameter reference in an Op
const NoRole = -1

// Op is one step of a Template. Qubits and Clbits are role indices into the
// enclosing template instance.
type Op struct {
	Name   string
	Qubits []int
	Clbits []int
	// ParamIndex selects a parameter of the enclosing instance, NoRole for none
	ParamIndex int
	// IfBit conditions the op on a role clbit being 1, NoRole for unconditional
	IfBit int
	// Sub is set when the op is itself a template instance
	Sub *Template
}

// Template is a self-contained instruction group with fixed qubit and
// classical bit roles
type Template struct {
	Name      string
	NumQubits int
	NumClbits int
	NumParams int
	Ops       []Op
}

// Gate builds an unconditional primitive op
func Gate(name string, qubits ...int) Op {
	return Op{Name: name, Qubits: qubits, ParamIndex: NoRole, IfBit: NoRole}
}

// ParamGate builds a primitive op using parameter paramIndex of the instance
func ParamGate(name string, paramIndex int, qubits ...int) Op {
	return Op{Name: name, Qubits: qubits, ParamIndex: paramIndex, IfBit: NoRole}
}

// Measure builds a measurement of role qubit q into role clbit b
func Measure(q, b int) Op {
	return Op{Name: "measure", Qubits: []int{q}, Clbits: []int{b}, ParamIndex: NoRole, IfBit: NoRole}
}

// IfGate builds a primitive op applied when role clbit bit reads 1
func IfGate(name string, bit int, qubits ...int) Op {
	return Op{Name: name, Qubits: qubits, ParamIndex: NoRole, IfBit: bit}
}

// Nested builds an op instantiating sub on the given roles
func Nested(sub *Template, qubits []int, clbits []int) Op {
	return Op{Name: sub.Name, Qubits: qubits, Clbits: clbits, ParamIndex: NoRole, IfBit: NoRole, Sub: sub}
}

// CountOps returns the number of primitive instructions one instance expands to
func (t *Template) CountOps() int {
	n := 0
	for _, op := range t.Ops {
		if op.Sub != nil {
			n += op.Sub.CountOps()
		} else {
			n++
		}
	}
	return n
}

// Instantiate binds the roles of t to concrete qubits, clbits and parameters
func (t *Template) Instantiate(qubits []Qubit, clbits []Clbit, params []float64) (Instruction, error) {
	if len(qubits) != t.NumQubits {
		return Instruction{}, errors.Errorf("%s expects %d qubits, got %d", t.Name, t.NumQubits, len(qubits))
	}
	if len(clbits) != t.NumClbits {
		return Instruction{}, errors.Errorf("%s expects %d clbits, got %d", t.Name, t.NumClbits, len(clbits))
	}
	if len(params) != t.NumParams {
		return Instruction{}, errors.Errorf("%s expects %d params, got %d", t.Name, t.NumParams, len(params))
	}
	seen := make(map[Qubit]bool, len(qubits))
	for _, q := range qubits {
		if seen[q] {
			return Instruction{}, errors.Errorf("%s: qubit %s bound to two roles", t.Name, q)
		}
		seen[q] = true
	}

	return Instruction{
		Name:     t.Name,
		Qubits:   append([]Qubit(nil), qubits...),
		Clbits:   append([]Clbit(nil), clbits...),
		Params:   append([]float64(nil), params...),
		Template: t,
	}, nil
}

// Expand flattens a composite instruction into primitive instructions
func Expand(inst Instruction) []Instruction {
	if inst.Template == nil {
		return []Instruction{inst}
	}

	var out []Instruction
	for _, op := range inst.Template.Ops {
		qubits := make([]Qubit, len(op.Qubits))
		for i, role := range op.Qubits {
			qubits[i] = inst.Qubits[role]
		}
		clbits := make([]Clbit, len(op.Clbits))
		for i, role := range op.Clbits {
			clbits[i] = inst.Clbits[role]
		}

		if op.Sub != nil {
			out = append(out, Expand(Instruction{
				Name:     op.Sub.Name,
				Qubits:   qubits,
				Clbits:   clbits,
				Template: op.Sub,
			})...)
			continue
		}

		child := Instruction{Name: op.Name, Qubits: qubits, Clbits: clbits}
		if op.ParamIndex != NoRole {
			child.Params = []float64{inst.Params[op.ParamIndex]}
		}
		if op.IfBit != NoRole {
			child.Condition = &Condition{Bit: inst.Clbits[op.IfBit], Value: 1}
		}
		out = append(out, child)
	}
	return out
}
