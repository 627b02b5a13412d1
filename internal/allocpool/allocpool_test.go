package allocpool

import "testing"

func TestAllocWithinBlock(t *testing.T) {
	p := New(64)
	a := p.Alloc(8, 4)
	b := p.Alloc(8, 4)
	if len(a) != 8 || len(b) != 8 {
		t.Fatalf("expected 8-byte regions, got %d and %d", len(a), len(b))
	}
	a[0] = 1
	if b[0] != 0 {
		t.Fatalf("regions overlap")
	}
}

func TestAllocSpillsToNewBlock(t *testing.T) {
	p := New(16)
	p.Alloc(12, 1)
	// this allocation shouldn't fit in the remaining 4 bytes of the block
	second := p.Alloc(12, 1)
	if len(second) != 12 {
		t.Fatalf("expected 12-byte region after spill, got %d", len(second))
	}
	if len(p.blocks) != 2 {
		t.Fatalf("expected a second block to be added, got %d blocks", len(p.blocks))
	}
}

func TestAlignment(t *testing.T) {
	p := New(64)
	p.Alloc(1, 1)
	aligned := p.Alloc(8, 8)
	if p.used%8 != 0 {
		t.Fatalf("allocation not aligned: used=%d", p.used)
	}
	if len(aligned) != 8 {
		t.Fatalf("expected 8 bytes, got %d", len(aligned))
	}
}

func TestReleaseClearsBlocks(t *testing.T) {
	p := New(64)
	p.Alloc(8, 1)
	p.Release()
	if len(p.blocks) != 0 || p.used != 0 {
		t.Fatalf("expected pool to be empty after Release")
	}
}
