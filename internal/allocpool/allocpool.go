// Package allocpool implements the coarse block allocator (C1):
// fixed-alignment bump allocation within a current block, with a fresh
// block added once the current one is exhausted. It exists so
// AstPool/TypePool/OpcodePool headers and other small, never-freed
// records can be carved out without round-tripping through the Go
// garbage collector for every node.
//
// Grounded on the block-growth shape `ReservedVec` (C2) uses — commit
// in fixed increments, never move what's already been handed out — but
// AllocPool backs its blocks with plain Go byte slices rather than a
// raw virtual reservation, since individual blocks are released all at
// once on `Release` and never need to grow past their own size.
package allocpool

import (
	"github.com/dustin/go-humanize"

	"frontc/internal/diag"
)

const defaultBlockBytes = 64 * 1024

// Pool is a bump allocator over a list of fixed-size blocks.
type Pool struct {
	blockBytes int
	blocks     [][]byte
	used       int // bytes used in the last block
}

// New creates a pool whose blocks are blockBytes in size. A
// non-positive size falls back to a 64 KiB default.
func New(blockBytes int) *Pool {
	if blockBytes <= 0 {
		blockBytes = defaultBlockBytes
	}
	return &Pool{blockBytes: blockBytes}
}

// Alloc bump-allocates bytes bytes aligned to align (which must be a
// power of two) within the current block, adding a fresh block if the
// current one cannot satisfy the request. Fatal on a request larger
// than a single block, mirroring spec's "fails only on OOM from the
// host" — this pool never falls back to a bigger block size.
func (p *Pool) Alloc(bytes int, align uintptr) []byte {
	if bytes < 0 {
		diag.Panicf("allocpool: negative allocation size %d", bytes)
	}
	if align == 0 {
		align = 1
	}

	if len(p.blocks) == 0 {
		p.newBlock()
	}

	last := p.blocks[len(p.blocks)-1]
	aligned := alignUp(p.used, align)
	if aligned+bytes > len(last) {
		if bytes > p.blockBytes {
			diag.Panicf("allocpool: allocation of %s exceeds block size %s",
				humanize.Bytes(uint64(bytes)), humanize.Bytes(uint64(p.blockBytes)))
		}
		p.newBlock()
		last = p.blocks[len(p.blocks)-1]
		aligned = 0
	}

	region := last[aligned : aligned+bytes]
	p.used = aligned + bytes
	return region
}

func (p *Pool) newBlock() {
	p.blocks = append(p.blocks, make([]byte, p.blockBytes))
	p.used = 0
}

// Release drops every block. The pool may be reused afterward as if
// freshly constructed.
func (p *Pool) Release() {
	p.blocks = nil
	p.used = 0
}

// Bytes reports the total size of blocks currently held, for
// diagnostics.
func (p *Pool) Bytes() uint64 {
	return uint64(len(p.blocks)) * uint64(p.blockBytes)
}

func alignUp(offset int, align uintptr) int {
	a := int(align)
	return (offset + a - 1) &^ (a - 1)
}
