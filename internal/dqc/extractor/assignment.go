package extractor

// Assignment is a copy-on-write view of the partition table. The input table
// is never written; pinned entries live in a sparse overlay.
type Assignment struct {
	base      [][]int
	overrides map[int]map[int]int
}

// NewAssignment wraps the input table
func NewAssignment(base [][]int) *Assignment {
	return &Assignment{
		base:      base,
		overrides: make(map[int]map[int]int),
	}
}

// Depth returns the number of layers
func (a *Assignment) Depth() int {
	return len(a.base)
}

// At returns the partition of qubit q at layer
func (a *Assignment) At(layer, q int) int {
	if row, ok := a.overrides[layer]; ok {
		if p, ok := row[q]; ok {
			return p
		}
	}
	return a.base[layer][q]
}

// Row returns a fresh copy of the assignment at layer
func (a *Assignment) Row(layer int) []int {
	row := append([]int(nil), a.base[layer]...)
	for q, p := range a.overrides[layer] {
		row[q] = p
	}
	return row
}

// Pin moves qubit q to partition p from layer on, until the first layer
// where the table already has q in p
func (a *Assignment) Pin(q, from, p int) {
	for k := from; k < a.Depth(); k++ {
		if a.At(k, q) == p {
			return
		}
		if a.overrides[k] == nil {
			a.overrides[k] = make(map[int]int)
		}
		a.overrides[k][q] = p
	}
}

// Pinned returns the number of overridden entries
func (a *Assignment) Pinned() int {
	n := 0
	for _, row := range a.overrides {
		n += len(row)
	}
	return n
}
