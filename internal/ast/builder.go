package ast

import (
	"encoding/binary"

	"frontc/internal/reservedvec"
)

// Token names a pending node during construction — its position in the
// builder's staging area, not yet a stream offset. It becomes
// meaningless once CompleteAst has run; use the Node values returned
// by the tree's iterators afterward.
type Token uint32

const tokenNone Token = ^Token(0)

type pendingNode struct {
	tag      Tag
	flags    Flags
	sourceID uint32
	payload  []uint32
	children []Token
}

// Builder accumulates nodes bottom-up — exactly how a recursive-descent
// parser naturally produces them, children before parents — and
// flattens the whole staged tree into one contiguous pre-order word
// stream only once, in CompleteAst. A work stack of open "children
// frames" (spec.md §4.6's "work stack of pending parents") holds, for
// each currently-open parent, the ordered tokens of children pushed so
// far; EndChildren pops one such frame and turns it into a parent node.
//
// This differs from the original single-pass "reverse the children
// chain in place" trick spec.md §4.6 describes for a C++
// implementation that writes bytes as soon as each node is known: Go's
// bottom-up staging buys the same contiguous, offset-addressed,
// stable-address result (spec.md §3's layout invariants, checked in
// builder_test.go) without needing an in-buffer linked-list reversal —
// see DESIGN.md for why this equivalent construction was chosen over a
// byte-for-byte port of a mechanism that predates the arena redesign
// and so has no surviving reference implementation to port from.
type Builder struct {
	pending []pendingNode
	stack   [][]Token
}

func NewBuilder() *Builder {
	return &Builder{stack: [][]Token{nil}}
}

// BeginChildren opens a new frame; subsequent PushLeaf/EndChildren
// calls append into it until the matching EndChildren.
func (b *Builder) BeginChildren() {
	b.stack = append(b.stack, nil)
}

// PushLeaf appends a childless node (AST_BUILDER_NO_CHILDREN in
// spec.md's vocabulary) to the currently open frame and returns its
// token.
func (b *Builder) PushLeaf(sourceID uint32, flags Flags, tag Tag, payload []uint32) Token {
	return b.push(sourceID, flags, tag, payload, nil)
}

// EndChildren closes the most recently opened frame, turning its
// accumulated children into a new parent node, and appends that parent
// into the now-current frame.
func (b *Builder) EndChildren(sourceID uint32, flags Flags, tag Tag, payload []uint32) Token {
	top := len(b.stack) - 1
	children := b.stack[top]
	b.stack = b.stack[:top]
	return b.push(sourceID, flags, tag, payload, children)
}

// Combine pops the last n tokens pushed into the currently open frame
// and turns them into the children of a new node, which replaces them
// as the frame's new last entry. Shunting-yard parsing needs this: the
// open frame's trailing tokens double as its operand stack, and folding
// an operator means popping 1 (unary) or 2 (binary) already-staged
// sibling subtrees rather than closing a whole BeginChildren frame.
func (b *Builder) Combine(sourceID uint32, flags Flags, tag Tag, payload []uint32, n int) Token {
	top := len(b.stack) - 1
	frame := b.stack[top]
	if n > len(frame) {
		panic("ast: Combine requested more children than are pending in the open frame")
	}
	children := append([]Token(nil), frame[len(frame)-n:]...)
	b.stack[top] = frame[:len(frame)-n]
	return b.push(sourceID, flags, tag, payload, children)
}

// PendingInOpenFrame reports how many tokens are currently staged in
// the innermost open frame.
func (b *Builder) PendingInOpenFrame() int {
	return len(b.stack[len(b.stack)-1])
}

func (b *Builder) push(sourceID uint32, flags Flags, tag Tag, payload []uint32, children []Token) Token {
	tok := Token(len(b.pending))
	b.pending = append(b.pending, pendingNode{
		tag: tag, flags: flags, sourceID: sourceID, payload: payload, children: children,
	})
	top := len(b.stack) - 1
	b.stack[top] = append(b.stack[top], tok)
	return tok
}

// CompleteAst closes the builder: the outer frame must hold exactly
// one node (the File root) and nothing else is pending. It flattens
// the staged tree into words, in pre-order, backed by store, and
// returns the root Node.
func (b *Builder) CompleteAst(store *reservedvec.Vec) Node {
	if len(b.stack) != 1 || len(b.stack[0]) != 1 {
		panic("ast: CompleteAst called with unbalanced or empty builder state")
	}
	root := b.stack[0][0]

	base := uint32(store.Used() / 4)
	offsets := make(map[Token]uint32, len(b.pending))
	b.assignOffsets(root, base, offsets)
	b.emitOne(store, root, offsets, true, true, nil)

	return b.readNode(store, offsets[root])
}

func (b *Builder) assignOffsets(tok Token, cursor uint32, offsets map[Token]uint32) uint32 {
	offsets[tok] = cursor
	n := &b.pending[tok]
	cursor += headerWords + uint32(len(n.payload))
	for _, c := range n.children {
		cursor = b.assignOffsets(c, cursor, offsets)
	}
	return cursor
}

// emitOne writes tok's header+payload (and recursively its children)
// at its preassigned offset. next, if non-nil, is the absolute word
// offset control resumes at after tok's entire subtree — tok's own
// next_sibling_offset_dwords is the distance to it, or 0 if next is
// nil (no sibling at any enclosing depth).
func (b *Builder) emitOne(store *reservedvec.Vec, tok Token, offsets map[Token]uint32, first, last bool, next *uint32) {
	n := &b.pending[tok]
	selfOffset := offsets[tok]

	var flagsInternal internalFlags
	if first {
		flagsInternal |= flagFirstSibling
	}
	if last {
		flagsInternal |= flagLastSibling
	}
	if len(n.children) == 0 {
		flagsInternal |= flagNoChildren
	}

	var distance uint32
	if next != nil {
		distance = *next - selfOffset
	}

	header := make([]uint32, headerWords)
	header[0] = uint32(n.tag) | uint32(flagsInternal)<<8
	header[1] = uint32(n.flags)
	header[2] = uint32(len(n.payload))
	header[3] = distance
	header[4] = uint32(InvalidTypeIDWithAssignability)
	header[5] = n.sourceID

	appendWords(store, header)
	appendWords(store, n.payload)

	for i, c := range n.children {
		var childNext *uint32
		if i+1 < len(n.children) {
			v := offsets[n.children[i+1]]
			childNext = &v
		} else {
			childNext = next
		}
		b.emitOne(store, c, offsets, i == 0, i == len(n.children)-1, childNext)
	}
}

func appendWords(store *reservedvec.Vec, words []uint32) {
	if len(words) == 0 {
		return
	}
	buf := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(buf[4*i:], w)
	}
	store.AppendExact(buf)
}

func (b *Builder) readNode(store *reservedvec.Vec, offset uint32) Node {
	return readNodeAt(store, offset)
}
