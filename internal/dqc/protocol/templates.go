package protocol

import "github.com/jaskrrish/go-dqc/internal/dqc/circuit"

// Canonical protocol templates. Role layouts:
//
//	EPR                   q0, q1: the two communication slots
//	entangle_root         q0 root data, q1 root-side comm, q2 receiver comm; c0
//	end_entanglement_link q0 root data, q1 linked comm; c0
//	state_teleport        q0 source data, q1 source comm, q2 destination comm; c0, c1
//	gate_teleport         q0 root data, q1 root comm, q2 receiver comm, q3 receiver data; c0; param 0 = phase
var (
	EPR = &circuit.Template{
		Name:      "EPR",
		NumQubits: 2,
		Ops: []circuit.Op{
			circuit.Gate("h", 0),
			circuit.Gate("cx", 0, 1),
		},
	}

	RootEntanglement = &circuit.Template{
		Name:      "entangle_root",
		NumQubits: 3,
		NumClbits: 1,
		Ops: []circuit.Op{
			circuit.Nested(EPR, []int{1, 2}, nil),
			circuit.Gate("cx", 0, 1),
			circuit.Measure(1, 0),
			circuit.Gate("reset", 1),
			circuit.IfGate("x", 0, 2),
		},
	}

	EndEntanglement = &circuit.Template{
		Name:      "end_entanglement_link",
		NumQubits: 2,
		NumClbits: 1,
		Ops: []circuit.Op{
			circuit.Gate("h", 1),
			circuit.Measure(1, 0),
			circuit.Gate("reset", 1),
			circuit.IfGate("z", 0, 0),
		},
	}

	StateTeleport = &circuit.Template{
		Name:      "state_teleport",
		NumQubits: 3,
		NumClbits: 2,
		Ops: []circuit.Op{
			circuit.Nested(EPR, []int{1, 2}, nil),
			circuit.Gate("cx", 0, 1),
			circuit.Gate("h", 0),
			circuit.Measure(0, 0),
			circuit.Measure(1, 1),
			circuit.Gate("reset", 0),
			circuit.Gate("reset", 1),
			circuit.IfGate("x", 1, 2),
			circuit.IfGate("z", 0, 2),
		},
	}

	GateTeleport = &circuit.Template{
		Name:      "gate_teleport",
		NumQubits: 4,
		NumClbits: 1,
		NumParams: 1,
		Ops: []circuit.Op{
			circuit.Nested(RootEntanglement, []int{0, 1, 2}, []int{0}),
			circuit.ParamGate("cp", 0, 2, 3),
			circuit.Nested(EndEntanglement, []int{0, 2}, []int{0}),
		},
	}
)
