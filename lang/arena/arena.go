// Package arena implements the bump-allocation region described in
// spec.md §4.1. All tokens, AST nodes, types and Objs for a compiler
// session are meant to come from a single Arena so that the whole session
// can be released in one shot instead of tracking per-object lifetimes.
//
// Grounded on the index-based arena pattern used by
// github.com/bufbuild/protocompile/internal/arena (see other_examples):
// since Go offers no raw pointer bump-allocation, a chain of
// fixed-capacity blocks plays the same role, and a small integer Ref
// plays the role of the bump pointer returned to the caller.
package arena

// blockSize is the number of elements per block, chosen so that a block of
// typical AST/Type-sized values lands in the same ballpark as spec.md's
// 1 MiB default.
const blockSize = 4096

// Ref is an opaque handle to a value stored in an Arena. The zero Ref never
// refers to a real value; arenas reserve index 0 as "unallocated" so a zero
// Ref and a missing value are distinguishable from a valid one.
type Ref[T any] struct {
	block int32
	index int32
}

// Valid reports whether r was returned by a New call (as opposed to being
// the zero value).
func (r Ref[T]) Valid() bool { return r.block != 0 || r.index != 0 }

// Arena is a bump-pointer region for values of type T.
type Arena[T any] struct {
	blocks [][]T
}

// New allocates v into the arena and returns a stable handle to it.
func (a *Arena[T]) New(v T) Ref[T] {
	if len(a.blocks) == 0 {
		a.blocks = append(a.blocks, make([]T, 1, blockSize)) // index 0 reserved
	}
	last := len(a.blocks) - 1
	if len(a.blocks[last]) == cap(a.blocks[last]) {
		a.blocks = append(a.blocks, make([]T, 0, blockSize))
		last++
	}
	a.blocks[last] = append(a.blocks[last], v)
	return Ref[T]{block: int32(last), index: int32(len(a.blocks[last]) - 1)}
}

// Deref resolves a handle to a pointer into the arena's backing storage.
// The pointer is valid until the next Reset.
func (a *Arena[T]) Deref(r Ref[T]) *T {
	return &a.blocks[r.block][r.index]
}

// Reset truncates every block to empty, retaining the underlying backing
// arrays for reuse by future allocations from this Arena (reset, not
// destroy, per spec.md §4.1).
func (a *Arena[T]) Reset() {
	for i, b := range a.blocks {
		a.blocks[i] = b[:0]
	}
	if len(a.blocks) > 0 {
		a.blocks[0] = append(a.blocks[0], *new(T)) // re-reserve index 0
	}
}

// Len returns the number of values currently allocated (not counting the
// reserved zero slot).
func (a *Arena[T]) Len() int {
	if len(a.blocks) == 0 {
		return 0
	}
	n := -1 // slot 0 of block 0 is reserved, not a real allocation
	for _, b := range a.blocks {
		n += len(b)
	}
	return n
}

// Destroy releases all backing storage. The Arena can be reused afterward
// as if newly constructed; in Go this simply drops the slices for the GC
// to reclaim, the structural analogue of spec.md's block-chain free.
func (a *Arena[T]) Destroy() {
	a.blocks = nil
}
