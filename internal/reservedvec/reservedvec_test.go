package reservedvec

import (
	"bytes"
	"testing"
)

func newTestVec(t *testing.T) *Vec {
	t.Helper()
	v := &Vec{}
	v.Init(1<<20, 1<<12) // 1 MiB reservation, 4 KiB commit increment
	t.Cleanup(v.Release)
	return v
}

func TestAppendExactReturnsStableOffsets(t *testing.T) {
	v := newTestVec(t)

	off1 := v.AppendExact([]byte("hello"))
	off2 := v.AppendExact([]byte("world"))

	if off1 != 0 {
		t.Fatalf("expected first offset 0, got %d", off1)
	}
	if off2 != 5 {
		t.Fatalf("expected second offset 5, got %d", off2)
	}
	if !bytes.Equal(v.At(off1, 5), []byte("hello")) {
		t.Fatalf("first region corrupted: %q", v.At(off1, 5))
	}
	if !bytes.Equal(v.At(off2, 5), []byte("world")) {
		t.Fatalf("second region corrupted: %q", v.At(off2, 5))
	}
}

func TestGrowthAcrossCommitBoundary(t *testing.T) {
	v := newTestVec(t)

	big := bytes.Repeat([]byte{0xAB}, 1<<13) // 8 KiB, spans two 4 KiB increments
	off := v.AppendExact(big)
	if !bytes.Equal(v.At(off, len(big)), big) {
		t.Fatalf("data corrupted across commit growth")
	}
	if v.committed < len(big) {
		t.Fatalf("expected committed (%d) >= used (%d)", v.committed, len(big))
	}
}

func TestPopByShrinksUsed(t *testing.T) {
	v := newTestVec(t)
	v.AppendExact([]byte("0123456789"))
	v.PopBy(4)
	if v.Used() != 6 {
		t.Fatalf("expected Used()==6 after PopBy(4), got %d", v.Used())
	}
	if !bytes.Equal(v.Slice(), []byte("012345")) {
		t.Fatalf("unexpected slice after pop: %q", v.Slice())
	}
}

func TestBaseAddressStableAcrossGrowth(t *testing.T) {
	v := newTestVec(t)
	base := v.Begin()
	v.AppendExact(bytes.Repeat([]byte{1}, 1<<14))
	if &v.Begin()[0] != &base[0] {
		t.Fatalf("base address moved after growth")
	}
}
