package vm

import "math/bits"

// Visited is a resettable bitset of instruction indices executed in the
// current run.
type Visited struct {
	words []uint64
	n     int
}

// NewVisited allocates marks for n instructions.
func NewVisited(n int) *Visited {
	return &Visited{words: make([]uint64, (n+63)/64), n: n}
}

// Len returns the number of instructions covered.
func (v *Visited) Len() int { return v.n }

// Has reports whether i is marked. Indices outside [0, Len()) are never marked.
func (v *Visited) Has(i int) bool {
	if i < 0 || i >= v.n {
		return false
	}
	return v.words[i>>6]&(1<<(uint(i)&63)) != 0
}

// Mark records that i has executed.
func (v *Visited) Mark(i int) {
	if i < 0 || i >= v.n {
		return
	}
	v.words[i>>6] |= 1 << (uint(i) & 63)
}

// Clear removes the mark for i.
func (v *Visited) Clear(i int) {
	if i < 0 || i >= v.n {
		return
	}
	v.words[i>>6] &^= 1 << (uint(i) & 63)
}

// Reset clears every mark.
func (v *Visited) Reset() {
	clear(v.words)
}

// Count returns the number of marked indices.
func (v *Visited) Count() int {
	total := 0
	for _, w := range v.words {
		total += bits.OnesCount64(w)
	}
	return total
}
