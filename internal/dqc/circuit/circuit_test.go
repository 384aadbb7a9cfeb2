package circuit

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bellPair = &Template{
	Name:      "bell",
	NumQubits: 2,
	Ops: []Op{
		Gate("h", 0),
		Gate("cx", 0, 1),
	},
}

var conditionalPhase = &Template{
	Name:      "cond_phase",
	NumQubits: 3,
	NumClbits: 1,
	NumParams: 1,
	Ops: []Op{
		Nested(bellPair, []int{1, 2}, nil),
		Measure(1, 0),
		IfGate("z", 0, 0),
		ParamGate("cp", 0, 0, 2),
	},
}

// TestInstantiate tests operand validation of template instances
func TestInstantiate(t *testing.T) {
	a, b, c := DataQubit(0, 0), CommQubit(0, 0), CommQubit(1, 0)
	bit := Clbit{Register: ScratchRegister, Index: 0}

	tests := []struct {
		name    string
		qubits  []Qubit
		clbits  []Clbit
		params  []float64
		wantErr bool
	}{
		{"valid", []Qubit{a, b, c}, []Clbit{bit}, []float64{0.5}, false},
		{"too few qubits", []Qubit{a, b}, []Clbit{bit}, []float64{0.5}, true},
		{"missing clbit", []Qubit{a, b, c}, nil, []float64{0.5}, true},
		{"missing param", []Qubit{a, b, c}, []Clbit{bit}, nil, true},
		{"duplicate qubit", []Qubit{a, b, b}, []Clbit{bit}, []float64{0.5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst, err := conditionalPhase.Instantiate(tt.qubits, tt.clbits, tt.params)
			if tt.wantErr {
				require.Error(t, err)
				_, traced := err.(interface{ StackTrace() errors.StackTrace })
				assert.True(t, traced, "error carries a stack trace")
				assert.Contains(t, err.Error(), "cond_phase")
				return
			}
			require.NoError(t, err)
			assert.True(t, inst.IsComposite())
			assert.Equal(t, "cond_phase", inst.Name)
		})
	}
}

// TestExpand tests that nested templates flatten with roles, params and conditions bound
func TestExpand(t *testing.T) {
	a, b, c := DataQubit(0, 1), CommQubit(0, 0), CommQubit(1, 2)
	bit := Clbit{Register: ScratchRegister, Index: 1}

	inst, err := conditionalPhase.Instantiate([]Qubit{a, b, c}, []Clbit{bit}, []float64{0.25})
	require.NoError(t, err)

	flat := Expand(inst)
	require.Len(t, flat, conditionalPhase.CountOps())
	require.Len(t, flat, 5)

	assert.Equal(t, "h", flat[0].Name)
	assert.Equal(t, []Qubit{b}, flat[0].Qubits)
	assert.Equal(t, "cx", flat[1].Name)
	assert.Equal(t, []Qubit{b, c}, flat[1].Qubits)

	assert.Equal(t, "measure", flat[2].Name)
	assert.Equal(t, []Clbit{bit}, flat[2].Clbits)

	require.NotNil(t, flat[3].Condition)
	assert.Equal(t, bit, flat[3].Condition.Bit)
	assert.Equal(t, 1, flat[3].Condition.Value)
	assert.Equal(t, []Qubit{a}, flat[3].Qubits)

	assert.Equal(t, []float64{0.25}, flat[4].Params)
	assert.Nil(t, flat[4].Condition)
}

// TestCircuitQASM tests register declarations and instruction rendering
func TestCircuitQASM(t *testing.T) {
	c := New("test", []int{2, 1}, []int{1, 0}, 2, 3)
	c.U(1.5, 0, 0.25, DataQubit(0, 0))
	c.CP(0.5, DataQubit(0, 1), DataQubit(1, 0))
	c.Measure(DataQubit(1, 0), Clbit{Register: ResultRegister, Index: 2})
	c.Append(Instruction{
		Name:      "x",
		Qubits:    []Qubit{CommQubit(0, 0)},
		Condition: &Condition{Bit: Clbit{Register: ScratchRegister, Index: 1}, Value: 1},
	})
	c.Measure(CommQubit(0, 0), Clbit{Register: ScratchRegister, Index: 0})

	qasm := c.QASM()

	assert.True(t, strings.HasPrefix(qasm, "OPENQASM 2.0;\ninclude \"qelib1.inc\";\n"))
	assert.Contains(t, qasm, "qreg part0_data[2];")
	assert.Contains(t, qasm, "qreg part1_data[1];")
	assert.Contains(t, qasm, "qreg comm_0[1];")
	assert.NotContains(t, qasm, "comm_1", "empty registers are not declared")
	assert.Contains(t, qasm, "creg c0[1];")
	assert.Contains(t, qasm, "creg c1[1];")
	assert.NotContains(t, qasm, "creg c[2];")
	assert.Contains(t, qasm, "creg result[3];")

	assert.Contains(t, qasm, "u(1.5,0,0.25) part0_data[0];")
	assert.Contains(t, qasm, "cp(0.5) part0_data[1],part1_data[0];")
	assert.Contains(t, qasm, "measure part1_data[0] -> result[2];")
	assert.Contains(t, qasm, "if(c1==1) x comm_0[0];")
	assert.NotContains(t, qasm, "if(c[")
	assert.Contains(t, qasm, "measure comm_0[0] -> c0[0];")
}

// TestCircuitTemplates tests that template instances count once and expand inline
func TestCircuitTemplates(t *testing.T) {
	c := New("test", []int{1, 1}, []int{1, 1}, 2, 2)
	err := c.AppendTemplate(bellPair, []Qubit{CommQubit(0, 0), CommQubit(1, 0)}, nil)
	require.NoError(t, err)
	c.Swap(CommQubit(1, 0), DataQubit(1, 0))

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, 1, c.Count("bell"))
	assert.Len(t, c.Flatten(), 3)

	qasm := c.QASM()
	assert.Contains(t, qasm, "// bell\nh comm_0[0];\ncx comm_0[0],comm_1[0];\n")
	assert.Contains(t, qasm, "swap comm_1[0],part1_data[0];")

	err = c.AppendTemplate(bellPair, []Qubit{CommQubit(0, 0)}, nil)
	assert.Error(t, err)
	assert.Equal(t, 2, c.Len())
}

// TestContains tests physical qubit bounds
func TestContains(t *testing.T) {
	c := New("test", []int{2, 0}, []int{1, 3}, 2, 1)

	tests := []struct {
		q    Qubit
		want bool
	}{
		{DataQubit(0, 1), true},
		{DataQubit(0, 2), false},
		{DataQubit(1, 0), false},
		{CommQubit(1, 2), true},
		{CommQubit(2, 0), false},
		{CommQubit(0, -1), false},
	}

	for _, tt := range tests {
		t.Run(tt.q.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, c.Contains(tt.q))
		})
	}
}

// TestFingerprint tests that the digest tracks the emitted program
func TestFingerprint(t *testing.T) {
	build := func(theta float64) *Circuit {
		c := New("fp", []int{2}, []int{0}, 2, 2)
		c.CP(theta, DataQubit(0, 0), DataQubit(0, 1))
		return c
	}

	a, b, other := build(0.5), build(0.5), build(0.75)
	assert.Len(t, a.Fingerprint(), 64)
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), other.Fingerprint())
}
