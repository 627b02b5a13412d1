// Package reservedvec implements ReservedVec (C2): a growable byte
// buffer backed by a large virtual memory reservation whose committed
// portion grows in fixed-size increments. The defining guarantee
// (spec.md §4.2) is that the base address never moves for the life of
// the object, so callers may store byte offsets into it and resolve
// them to pointers/slices later without fear of a Go slice
// reallocation invalidating them — because there is no Go slice
// reallocation here: the backing store is one real mmap reservation,
// grown by mprotect'ing additional pages, never by copying into a
// bigger allocation.
//
// Grounded on hanwen-go-fuse's direct golang.org/x/sys/unix.Mmap use
// for raw memory mapping (fuse/test/cachecontrol_test.go), adapted from
// a read-only file mapping to an anonymous PROT_NONE reservation that
// gets progressively committed with Mprotect, per spec.md's "reserve
// address space, commit the first increment" / "grow commit if
// needed" operations.
package reservedvec

import (
	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"

	"frontc/internal/diag"
)

// Vec is a reserve-then-commit growable buffer. The zero value is not
// usable; construct with Init.
type Vec struct {
	mem             []byte // full reservation, PROT_NONE beyond committed
	committed       int    // bytes currently readable/writable
	used            int    // bytes logically in use (<= committed)
	commitIncrement int
	reserveBytes    int
}

// Init reserves reserveBytes of address space and commits the first
// commitIncrementBytes of it. The reservation is released by Release.
func (v *Vec) Init(reserveBytes, commitIncrementBytes int) {
	if v.mem != nil {
		diag.Panicf("reservedvec: Init called on an already-initialized Vec")
	}
	if commitIncrementBytes <= 0 || commitIncrementBytes > reserveBytes {
		diag.Panicf("reservedvec: invalid commit increment %d for reservation %d",
			commitIncrementBytes, reserveBytes)
	}

	mem, err := unix.Mmap(-1, 0, reserveBytes, unix.PROT_NONE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		diag.Panicf("reservedvec: could not reserve %s of address space: %v",
			humanize.Bytes(uint64(reserveBytes)), err)
	}

	v.mem = mem
	v.reserveBytes = reserveBytes
	v.commitIncrement = commitIncrementBytes
	v.commit(commitIncrementBytes)
}

func (v *Vec) commit(throughBytes int) {
	if throughBytes <= v.committed {
		return
	}
	if throughBytes > v.reserveBytes {
		diag.Panicf("reservedvec: commit of %s exceeds reservation of %s",
			humanize.Bytes(uint64(throughBytes)), humanize.Bytes(uint64(v.reserveBytes)))
	}
	if err := unix.Mprotect(v.mem[:throughBytes], unix.PROT_READ|unix.PROT_WRITE); err != nil {
		diag.Panicf("reservedvec: could not commit %s: %v", humanize.Bytes(uint64(throughBytes)), err)
	}
	v.committed = throughBytes
}

// growTo ensures at least needed bytes are committed, rounding up to a
// whole number of commit increments so growth is O(1) amortized.
func (v *Vec) growTo(needed int) {
	if needed <= v.committed {
		return
	}
	increments := (needed + v.commitIncrement - 1) / v.commitIncrement
	v.commit(increments * v.commitIncrement)
}

// ReserveExact ensures bytes additional bytes are committed beyond the
// current used watermark, without advancing Used. Returns the offset
// at which those bytes begin.
func (v *Vec) ReserveExact(bytes int) int {
	offset := v.used
	v.growTo(offset + bytes)
	return offset
}

// AppendExact copies src into the buffer, growing commit as needed,
// and advances Used past it. Returns the offset src was written at.
func (v *Vec) AppendExact(src []byte) int {
	offset := v.ReserveExact(len(src))
	copy(v.mem[offset:offset+len(src)], src)
	v.used = offset + len(src)
	return offset
}

// PopBy shrinks Used by bytes, discarding the tail. It never
// decommits; committed pages are retained for reuse by later appends.
func (v *Vec) PopBy(bytes int) {
	if bytes > v.used {
		diag.Panicf("reservedvec: PopBy(%d) exceeds used size %d", bytes, v.used)
	}
	v.used -= bytes
}

// Used returns the number of logically-in-use bytes.
func (v *Vec) Used() int {
	return v.used
}

// Slice returns the live, in-use portion of the buffer. The returned
// slice aliases the reservation directly; offsets obtained from
// AppendExact/ReserveExact remain valid indices into it (and into any
// later call to Slice) for the vec's entire lifetime, since the
// backing array is never reallocated.
func (v *Vec) Slice() []byte {
	return v.mem[:v.used]
}

// At returns the n-byte region starting at offset, which must lie
// within the currently-used portion.
func (v *Vec) At(offset, n int) []byte {
	if offset < 0 || offset+n > v.used {
		diag.Panicf("reservedvec: At(%d, %d) out of bounds (used=%d)", offset, n, v.used)
	}
	return v.mem[offset : offset+n]
}

// Begin returns the stable base address's offset-0 slice, mirroring
// spec.md's begin() -> pointer.
func (v *Vec) Begin() []byte {
	return v.mem
}

// Release unmaps the entire reservation. The Vec is unusable
// afterward unless Init is called again.
func (v *Vec) Release() {
	if v.mem == nil {
		return
	}
	unix.Munmap(v.mem)
	v.mem = nil
	v.committed = 0
	v.used = 0
}
