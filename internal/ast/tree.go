package ast

import (
	"encoding/binary"

	"frontc/internal/reservedvec"
)

// Tree is a completed, read-only view over an AstPool word stream.
// Every Node it yields is resolved by word offset into store, never by
// pointer — offsets stay valid for store's entire lifetime per
// internal/reservedvec's stable-address guarantee.
type Tree struct {
	store *reservedvec.Vec
	root  uint32
}

// NewTree wraps a completed builder's store and root node offset. The
// root Node returned by Builder.CompleteAst carries its own Offset
// field for this purpose.
func NewTree(store *reservedvec.Vec, root Node) *Tree {
	return &Tree{store: store, root: root.Offset}
}

func (t *Tree) Root() Node {
	return readNodeAt(t.store, t.root)
}

func (t *Tree) At(offset uint32) Node {
	return readNodeAt(t.store, offset)
}

func readWord(store *reservedvec.Vec, wordOffset uint32) uint32 {
	b := store.At(int(wordOffset)*4, 4)
	return binary.LittleEndian.Uint32(b)
}

func readNodeAt(store *reservedvec.Vec, offset uint32) Node {
	w0 := readWord(store, offset)
	w1 := readWord(store, offset+1)
	w2 := readWord(store, offset+2)
	w3 := readWord(store, offset+3)
	w4 := readWord(store, offset+4)
	w5 := readWord(store, offset+5)

	dataDwords := w2
	payload := make([]uint32, dataDwords)
	for i := uint32(0); i < dataDwords; i++ {
		payload[i] = readWord(store, offset+headerWords+i)
	}

	return Node{
		Tag:                     Tag(w0 & 0xFF),
		internalFlags:           internalFlags((w0 >> 8) & 0xFF),
		Flags:                   Flags(w1),
		DataDwords:              dataDwords,
		NextSiblingOffsetDwords: w3,
		TypeID:                  TypeIDWithAssignability(w4),
		SourceID:                w5,
		Offset:                  offset,
		Payload:                 payload,
	}
}

// DirectChildIterator yields each direct child of a node with children,
// in declaration order, skipping over entire grandchild subtrees.
type DirectChildIterator struct {
	tree *Tree
	next uint32
	done bool
}

func (t *Tree) DirectChildren(parent Node) *DirectChildIterator {
	if !parent.HasChildren() {
		return &DirectChildIterator{done: true}
	}
	return &DirectChildIterator{tree: t, next: parent.Offset + headerWords + parent.DataDwords}
}

func (it *DirectChildIterator) Next() (Node, bool) {
	if it.done {
		return Node{}, false
	}
	n := readNodeAt(it.tree.store, it.next)
	if n.IsLastSibling() {
		it.done = true
	} else {
		it.next = n.Offset + n.NextSiblingOffsetDwords
	}
	return n, true
}

// PreorderIterator yields (node, depth) for every descendant of a
// start node in pre-order, depth relative to the start node (which is
// depth 0 but is not itself yielded — callers that want the start node
// included should read it directly first).
type PreorderIterator struct {
	tree  *Tree
	stack []preorderFrame
}

type preorderFrame struct {
	next  uint32
	depth int
}

func (t *Tree) Preorder(start Node) *PreorderIterator {
	it := &PreorderIterator{tree: t}
	if start.HasChildren() {
		it.stack = append(it.stack, preorderFrame{next: start.Offset + headerWords + start.DataDwords, depth: 1})
	}
	return it
}

func (it *PreorderIterator) Next() (Node, int, bool) {
	for len(it.stack) > 0 {
		top := len(it.stack) - 1
		frame := it.stack[top]
		n := readNodeAt(it.tree.store, frame.next)

		if n.IsLastSibling() {
			it.stack = it.stack[:top]
		} else {
			it.stack[top].next = n.Offset + n.NextSiblingOffsetDwords
		}

		if n.HasChildren() {
			it.stack = append(it.stack, preorderFrame{
				next:  n.Offset + headerWords + n.DataDwords,
				depth: frame.depth + 1,
			})
		}

		return n, frame.depth, true
	}
	return Node{}, 0, false
}

// PostorderIterator yields every descendant of a start node in
// post-order (children before their parent), depth-first, with an
// explicit stack instead of a recursive walk — O(depth) space like
// PreorderIterator and DirectChildIterator.
type PostorderIterator struct {
	tree  *Tree
	stack []postorderFrame
}

// A frame is either pending (more siblings at this level still need
// their subtrees visited) or a yield (that node's children are fully
// visited and it's due to be returned next).
type postorderFrameKind uint8

const (
	postorderFrameSibling postorderFrameKind = iota
	postorderFrameYield
)

type postorderFrame struct {
	kind postorderFrameKind
	next uint32 // valid when kind == postorderFrameSibling
	node Node   // valid when kind == postorderFrameYield
}

func (t *Tree) Postorder(start Node) *PostorderIterator {
	it := &PostorderIterator{tree: t}
	if start.HasChildren() {
		it.stack = append(it.stack, postorderFrame{kind: postorderFrameSibling, next: start.Offset + headerWords + start.DataDwords})
	}
	return it
}

func (it *PostorderIterator) Next() (Node, bool) {
	for len(it.stack) > 0 {
		top := len(it.stack) - 1
		frame := it.stack[top]

		if frame.kind == postorderFrameYield {
			it.stack = it.stack[:top]
			return frame.node, true
		}

		n := readNodeAt(it.tree.store, frame.next)
		if n.IsLastSibling() {
			it.stack = it.stack[:top]
		} else {
			it.stack[top].next = n.Offset + n.NextSiblingOffsetDwords
		}

		it.stack = append(it.stack, postorderFrame{kind: postorderFrameYield, node: n})
		if n.HasChildren() {
			it.stack = append(it.stack, postorderFrame{kind: postorderFrameSibling, next: n.Offset + headerWords + n.DataDwords})
		}
	}
	return Node{}, false
}
