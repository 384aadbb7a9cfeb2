package dqc

// GateType tags the variant carried by a Gate record
type GateType string

const (
	GateSingle   GateType = "single-qubit"
	GateTwoQubit GateType = "two-qubit"
	GateGroup    GateType = "group"
	// GateLinked is a materialized sub-gate of a group. It is produced by the
	// extractor and may also appear in hand-written problems.
	GateLinked GateType = "two-qubit-linked"
)

// Gate is one entry of a layer of the input gate structure.
//
// single-qubit: Qubits[0], Params = (theta, phi, lambda)
// two-qubit:    Qubits[0], Qubits[1], Params[0] = controlled-phase angle
// group:        Root, Time (layer of the group), SubGates in order
// linked:       Qubits[0] = root, Qubits[1] = receiver, End closes the link
type Gate struct {
	Type     GateType  `json:"type" yaml:"type"`
	Qubits   []int     `json:"qargs,omitempty" yaml:"qargs,omitempty"`
	Params   []float64 `json:"params,omitempty" yaml:"params,omitempty"`
	Root     int       `json:"root,omitempty" yaml:"root,omitempty"`
	Time     int       `json:"time,omitempty" yaml:"time,omitempty"`
	SubGates []SubGate `json:"sub_gates,omitempty" yaml:"sub_gates,omitempty"`
	End      bool      `json:"end,omitempty" yaml:"end,omitempty"`
}

// SubGate is a two-qubit operation of a group between the root and Receiver at layer Time
type SubGate struct {
	Receiver int       `json:"receiver" yaml:"receiver"`
	Time     int       `json:"time" yaml:"time"`
	Params   []float64 `json:"params" yaml:"params"`
}

// FinalTime returns the layer of the last sub-gate of a group
func (g *Gate) FinalTime() int {
	if len(g.SubGates) == 0 {
		return g.Time
	}
	return g.SubGates[len(g.SubGates)-1].Time
}

// Problem is the complete input of one extraction run
type Problem struct {
	NumQubits    int      `json:"num_qubits" yaml:"num_qubits"`
	Layers       [][]Gate `json:"layers" yaml:"layers"`
	Assignment   [][]int  `json:"assignment" yaml:"assignment"`
	DataCapacity []int    `json:"data_capacity" yaml:"data_capacity"`
	CommCapacity []int    `json:"comm_capacity" yaml:"comm_capacity"`
}

// Depth returns the number of layers covered by the assignment
func (p *Problem) Depth() int {
	return len(p.Assignment)
}

// NumPartitions returns the number of QPUs
func (p *Problem) NumPartitions() int {
	return len(p.DataCapacity)
}

// Validate checks the shape of a problem and performs the best-effort
// capacity check of the assignment against the data capacities
func (p *Problem) Validate() error {
	if p.NumQubits <= 0 {
		return InvalidInput("validate", "num_qubits must be positive")
	}
	if len(p.DataCapacity) == 0 {
		return InvalidInput("validate", "at least one partition is required")
	}
	if len(p.CommCapacity) != len(p.DataCapacity) {
		return InvalidInput("validate", "data_capacity has %d partitions but comm_capacity has %d",
			len(p.DataCapacity), len(p.CommCapacity))
	}
	for i := range p.DataCapacity {
		if p.DataCapacity[i] < 0 || p.CommCapacity[i] < 0 {
			return InvalidInput("validate", "partition %d has a negative capacity", i)
		}
	}
	if len(p.Assignment) == 0 {
		return InvalidInput("validate", "assignment must have at least one layer")
	}
	if len(p.Layers) > len(p.Assignment) {
		return InvalidInput("validate", "%d layers but the assignment only covers %d",
			len(p.Layers), len(p.Assignment))
	}

	numPartitions := p.NumPartitions()
	for t, row := range p.Assignment {
		if len(row) != p.NumQubits {
			return InvalidInput("validate", "assignment layer %d has %d entries, expected %d",
				t, len(row), p.NumQubits)
		}
		load := make([]int, numPartitions)
		for q, part := range row {
			if part < 0 || part >= numPartitions {
				return InvalidInput("validate", "qubit %d is assigned to unknown partition %d at layer %d",
					q, part, t)
			}
			load[part]++
		}
		for part, n := range load {
			if n > p.DataCapacity[part] {
				return InvalidInput("validate", "partition %d holds %d qubits at layer %d but has capacity %d",
					part, n, t, p.DataCapacity[part])
			}
		}
	}

	for t, layer := range p.Layers {
		for k := range layer {
			if err := p.validateGate(&layer[k], t); err != nil {
				return err
			}
		}
	}

	return nil
}

func (p *Problem) validQubit(q int) bool {
	return q >= 0 && q < p.NumQubits
}

func (p *Problem) validateGate(g *Gate, layer int) error {
	switch g.Type {
	case GateSingle:
		if len(g.Qubits) != 1 || !p.validQubit(g.Qubits[0]) {
			return InvalidInput("validate", "layer %d: single-qubit gate needs one valid qubit", layer)
		}
		if len(g.Params) != 3 {
			return InvalidInput("validate", "layer %d: single-qubit gate needs 3 parameters", layer)
		}

	case GateTwoQubit, GateLinked:
		if len(g.Qubits) != 2 || !p.validQubit(g.Qubits[0]) || !p.validQubit(g.Qubits[1]) {
			return InvalidInput("validate", "layer %d: two-qubit gate needs two valid qubits", layer)
		}
		if g.Qubits[0] == g.Qubits[1] {
			return InvalidInput("validate", "layer %d: two-qubit gate on qubit %d twice", layer, g.Qubits[0])
		}
		if len(g.Params) < 1 {
			return InvalidInput("validate", "layer %d: two-qubit gate needs a phase parameter", layer)
		}

	case GateGroup:
		if !p.validQubit(g.Root) {
			return InvalidInput("validate", "layer %d: group root %d out of range", layer, g.Root)
		}
		prev := layer
		for _, sg := range g.SubGates {
			if !p.validQubit(sg.Receiver) || sg.Receiver == g.Root {
				return InvalidInput("validate", "layer %d: group on root %d has invalid receiver %d",
					layer, g.Root, sg.Receiver)
			}
			if sg.Time < prev || sg.Time >= p.Depth() {
				return InvalidInput("validate", "layer %d: sub-gate time %d out of order or out of range",
					layer, sg.Time)
			}
			if len(sg.Params) < 1 {
				return InvalidInput("validate", "layer %d: sub-gate needs a phase parameter", layer)
			}
			prev = sg.Time
		}

	default:
		return InvalidInput("validate", "layer %d: unknown gate type %q", layer, g.Type)
	}

	return nil
}
