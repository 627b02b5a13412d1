// Package indexmap implements IndexMap (C3): a generic open-addressing
// Robin-Hood hash table whose values live in a separate, offset-addressed
// value store rather than as Go-typed objects behind pointers.
//
// Grounded directly on original_source/infra/container/index_map.hpp,
// translated stride-for-stride: two parallel arrays (lookups, offsets)
// form the hash index, and a third store holds the values themselves.
// Go has no clean way to let a type parameter "supply a stable hash, an
// equality predicate against a key, and a variable stride count" the
// way the original's `V::required_strides`/`V::stride()` static
// interface does for a plain struct type parameter, so that role is
// filled explicitly by a Codec[K] passed to New: it knows how to hash a
// key, how many bytes a key's value record needs, and how to write/read
// that record against a byte-addressed store. The store itself is an
// internal/reservedvec.Vec, so offsets handed back by IndexFrom are stable
// addresses for the table's lifetime — satisfying spec.md §4.2/§4.3's
// "stable address" contract exactly the way the original's single
// mem_reserve-backed value array does, without resorting to unsafe
// pointers on the Go side.
package indexmap

import (
	"github.com/dustin/go-humanize"
	"golang.org/x/exp/constraints"

	"frontc/internal/diag"
	"frontc/internal/reservedvec"
)

// Codec lets a Map store values of type K without needing K to satisfy
// any particular Go interface itself — it plays the role the original's
// V::required_strides/V::stride/V::init/V::equal_to_key static methods
// play, but against a byte-addressed value record rather than a typed
// struct.
type Codec[K any] interface {
	// Hash returns a stable 32-bit hash of key.
	Hash(key K) uint32
	// Size returns the number of bytes a fresh record for key requires.
	Size(key K) int
	// Write encodes key (with its hash, for later verification) into
	// dst, which is exactly Size(key) bytes.
	Write(dst []byte, key K, hash uint32)
	// Equal reports whether the record stored at rec (as previously
	// produced by Write) represents key, given key's hash.
	Equal(rec []byte, key K, hash uint32) bool
	// StoredHash recovers the hash stamped into rec by Write.
	StoredHash(rec []byte) uint32
	// StoredSize recovers the byte length of the record at rec — so
	// that rehashing can walk the value store without external bookkeeping.
	StoredSize(rec []byte) int
}

const (
	lookupDistanceBits = 10
	lookupDistanceOne  = uint16(1) << (16 - lookupDistanceBits)
	lookupDistanceMask = uint16((1<<lookupDistanceBits)-1) << (16 - lookupDistanceBits)
	lookupHashMask     = ^lookupDistanceMask
	lookupHashShift    = 16 + lookupDistanceBits
)

// Map is a Robin-Hood open-addressing table over keys of type K, with
// values held in an offset-addressed byte store.
type Map[K any] struct {
	codec Codec[K]

	lookups []uint16
	offsets []uint32

	values          reservedvec.Vec
	valueReserve    int
	valueCommitIncr int

	lookupUsed int
}

// New constructs a Map. lookupCapacity must be a power of two (it is
// the hash table's initial slot count, doubled on every rehash); valueReserveBytes/
// valueCommitIncrementBytes size the backing value store the same way
// ReservedVec.Init does.
func New[K any](codec Codec[K], lookupCapacity int, valueReserveBytes, valueCommitIncrementBytes int) *Map[K] {
	if !isPow2(lookupCapacity) {
		diag.Panicf("indexmap: lookup capacity %d is not a power of two", lookupCapacity)
	}

	m := &Map[K]{
		codec:           codec,
		lookups:         make([]uint16, lookupCapacity),
		offsets:         make([]uint32, lookupCapacity),
		valueReserve:    valueReserveBytes,
		valueCommitIncr: valueCommitIncrementBytes,
	}
	m.values.Init(valueReserveBytes, valueCommitIncrementBytes)
	return m
}

func isEmptyLookup(l uint16) bool { return l == 0 }

func createLookup(hash uint32) uint16 {
	l := uint16(hash>>lookupHashShift) & lookupHashMask
	if l == 0 {
		return 1
	}
	return l
}

// IndexFrom looks up key, inserting a fresh record via the codec if
// absent, and returns the byte offset of its value record in the
// value store. The offset is stable for the Map's lifetime.
func (m *Map[K]) IndexFrom(key K) int {
	hash := m.codec.Hash(key)

	if m.lookupUsed*4 > len(m.lookups)*3 {
		m.rehash()
	}

	mask := uint32(len(m.lookups) - 1)
	index := hash & mask
	wanted := createLookup(hash)

	offsetToInsert := 0
	newValueOffset := -1

	for {
		curr := m.lookups[index]

		switch {
		case isEmptyLookup(curr):
			m.lookups[index] = wanted
			if newValueOffset == -1 {
				newValueOffset = m.createValue(key, hash)
				offsetToInsert = newValueOffset
			}
			m.offsets[index] = uint32(offsetToInsert)
			m.lookupUsed++
			return newValueOffset

		case curr == wanted:
			existingOffset := int(m.offsets[index])
			rec := m.recordAt(existingOffset)
			if m.codec.Equal(rec, key, hash) {
				return existingOffset
			}

		case (curr & lookupDistanceMask) < (wanted & lookupDistanceMask):
			currOffset := m.offsets[index]
			m.lookups[index] = wanted
			if newValueOffset == -1 {
				newValueOffset = m.createValue(key, hash)
				offsetToInsert = newValueOffset
			}
			m.offsets[index] = uint32(offsetToInsert)
			wanted = curr
			offsetToInsert = int(currOffset)
		}

		if int(index) == len(m.lookups)-1 {
			index = 0
		} else {
			index++
		}

		if wanted&lookupDistanceMask == lookupDistanceMask {
			m.rehash()
			if newValueOffset == -1 {
				return m.IndexFrom(key)
			}
			return newValueOffset
		}

		wanted += lookupDistanceOne
	}
}

// ValueAt returns the value record previously stored at offset by
// IndexFrom.
func (m *Map[K]) ValueAt(offset int) []byte {
	return m.recordAt(offset)
}

func (m *Map[K]) recordAt(offset int) []byte {
	used := m.values.Used()
	if offset < 0 || offset >= used {
		diag.Panicf("indexmap: record offset %d out of bounds (used=%d)", offset, used)
	}
	// peek the size by asking the codec to interpret the header at
	// offset; callers rely on StoredSize being derivable from a prefix
	// write, so hand back the max remaining slice and let the codec
	// trim via StoredSize where it needs to.
	full := m.values.At(offset, used-offset)
	size := m.codec.StoredSize(full)
	return full[:size]
}

func (m *Map[K]) createValue(key K, hash uint32) int {
	size := m.codec.Size(key)
	rec := make([]byte, size)
	m.codec.Write(rec, key, hash)
	return m.values.AppendExact(rec)
}

func (m *Map[K]) rehash() {
	newCapacity := len(m.lookups) * 2
	newLookups := make([]uint16, newCapacity)
	newOffsets := make([]uint32, newCapacity)

	oldLookups, oldOffsets := m.lookups, m.offsets
	m.lookups, m.offsets = newLookups, newOffsets

	for i, l := range oldLookups {
		if isEmptyLookup(l) {
			continue
		}
		offset := int(oldOffsets[i])
		rec := m.recordAt(offset)
		m.reinsert(offset, m.codec.StoredHash(rec))
	}
}

func (m *Map[K]) reinsert(valueOffset int, hash uint32) {
	mask := uint32(len(m.lookups) - 1)
	index := hash & mask
	wanted := createLookup(hash)
	offsetToInsert := valueOffset

	for {
		curr := m.lookups[index]

		if isEmptyLookup(curr) {
			m.lookups[index] = wanted
			m.offsets[index] = uint32(offsetToInsert)
			return
		} else if curr&lookupDistanceMask < wanted&lookupDistanceMask {
			currOffset := m.offsets[index]
			m.lookups[index] = wanted
			m.offsets[index] = uint32(offsetToInsert)
			wanted = curr
			offsetToInsert = int(currOffset)
		}

		if int(index) == len(m.lookups)-1 {
			index = 0
		} else {
			index++
		}

		if wanted&lookupDistanceMask == lookupDistanceMask {
			diag.Panicf("indexmap: maximum probe sequence length (%s) exceeded during rehash",
				humanize.Comma(int64(lookupDistanceMask>>(16-lookupDistanceBits))))
		}

		wanted += lookupDistanceOne
	}
}

// Len reports the number of entries in the table.
func (m *Map[K]) Len() int {
	return m.lookupUsed
}

// Release frees the value store. The lookup/offset arrays are
// ordinary Go slices and are collected normally.
func (m *Map[K]) Release() {
	m.values.Release()
	m.lookups = nil
	m.offsets = nil
	m.lookupUsed = 0
}

func isPow2[T constraints.Integer](n T) bool {
	return n > 0 && n&(n-1) == 0
}
