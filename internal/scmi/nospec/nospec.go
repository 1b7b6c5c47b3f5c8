// Package nospec bounds agent-controlled table indices so that a mispredicted
// bounds check cannot steer a load outside the table.
//
// A plain bounds-checked slice access is not a substitute: the check the
// compiler emits is a conditional branch the CPU may speculate past. Every
// table dereference keyed by a wire-supplied number goes through Clamp or
// Load, which derive validity arithmetically and only ever load through a
// masked index.
package nospec

import "math/bits"

// Mask returns all ones when lo <= idx < hi and zero otherwise.
//
// Validity is materialized from subtraction borrows, never from a comparison
// branch. An empty or inverted range (hi <= lo) always yields zero.
func Mask(idx, lo, hi uint32) uint32 {
	_, below := bits.Sub32(idx, lo, 0)
	_, inside := bits.Sub32(idx-lo, hi-lo, 0)
	_, nonEmpty := bits.Sub32(lo, hi, 0)
	valid := inside & nonEmpty &^ below
	return -valid
}

// index returns idx when lo <= idx < hi and lo otherwise, along with the
// mask it was selected with.
func index(idx, lo, hi uint32) (uint32, uint32) {
	m := Mask(idx, lo, hi)
	return (idx & m) | (lo &^ m), m
}

// Clamp sanitizes a domain index against a count of n entries. The returned
// index is always safe to use for a table of n > 0 entries; ok reports
// whether idx was in range.
func Clamp(idx, n uint32) (safe uint32, ok bool) {
	safe, m := index(idx, 0, n)
	return safe, m != 0
}

// Load returns table[idx] when idx is in range and fail otherwise. The table
// read happens through the masked index, so it stays inside the table even
// on a speculative path. The result is then picked between the loaded value
// and fail by the low mask bit, so an out of range index never returns the
// loaded entry either.
func Load[T any](table []T, idx uint32, fail T) (T, bool) {
	n := uint32(len(table))
	if n == 0 {
		return fail, false
	}
	safe, m := index(idx, 0, n)
	pick := [2]T{fail, table[safe]}
	return pick[m&1], m != 0
}
