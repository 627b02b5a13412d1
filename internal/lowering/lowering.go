// Package lowering walks a completed internal/ast.Tree and emits its
// opcode-pool equivalent (OpcodePool, C9) — the one piece of the
// "bytes -> tokens -> AST -> (semantic pass, conceptual) -> opcodes"
// pipeline that still has to produce real output even though the type
// pool it sits between isn't wired into a full checker.
//
// Grounded on the teacher's internal/compiler.StmtCompiler (a
// tree-walking compile visitor that lowers one statement/expression
// node at a time into an append-only instruction stream) and
// internal/compregister.Compiler for the same idiom at the
// register-machine layer; neither's actual opcode catalog transfers,
// since both target the teacher's stack/register VM rather than this
// typed IR — only the walk-and-emit shape survives the move, exactly
// as internal/opcode's own package doc already notes for the catalog
// itself.
//
// Scope is deliberately bounded. Definitions, literals, identifier
// loads, unary/binary operators and If/IfElse lower to real opcodes;
// Break, Defer, For, Switch, Call, Impl, and type/signature nodes are
// reported as "not yet lowered" diagnostics rather than emitted as
// silently wrong opcodes.
package lowering

import (
	"fmt"
	"math"

	"frontc/internal/ast"
	"frontc/internal/diag"
	"frontc/internal/identifierpool"
	"frontc/internal/opcode"
)

// scopeFrame is one nested block scope: the rank each name was
// allocated at, in the order ScopeAlloc* opcodes were written for it.
// Lookups address a variable by (out, rank): out counts how many
// enclosing scopeFrames to walk past (0 is the innermost), matching
// LoadScope's (u16 out, u16 rank) operand pair. spec.md leaves this
// addressing scheme unstated beyond the operand names; the depth/slot
// reading is the natural one for a nested lexical scope stack and is
// the interpretation this pass commits to.
type scopeFrame struct {
	ranks map[identifierpool.Id]uint16
	next  uint16
}

// Lowerer emits one file's worth of opcodes into pool. A Lowerer is
// single-use: construct one per file via New, call LowerFile once.
type Lowerer struct {
	pool     *opcode.Pool
	idents   *identifierpool.Pool
	sink     *diag.Sink
	sourceID diag.SourceID
	file     opcode.GlobalFileIndex

	globals    map[identifierpool.Id]uint16
	globalNext uint16

	scopes []*scopeFrame

	// ifBranches holds every If/IfElse's precomputed branch chunk Ids,
	// keyed by the node's own Offset. Populated once, up front, by
	// precomputeIfs — see its doc comment for why.
	ifBranches map[uint32]branchIds

	ok bool
}

// New builds a Lowerer that writes into pool and reports unsupported
// constructs through sink. sourceID anchors those diagnostics: node
// headers carry which file they came from but not a byte offset within
// it (see internal/ast's header layout), so every diagnostic this pass
// emits resolves to that file's start rather than a precise span.
func New(pool *opcode.Pool, idents *identifierpool.Pool, sink *diag.Sink, sourceID diag.SourceID, file opcode.GlobalFileIndex) *Lowerer {
	return &Lowerer{
		pool:       pool,
		idents:     idents,
		sink:       sink,
		sourceID:   sourceID,
		file:       file,
		globals:    map[identifierpool.Id]uint16{},
		ifBranches: map[uint32]branchIds{},
		ok:         true,
	}
}

// LowerFile lowers every top-level construct of tree's File root, in
// declaration order, and terminates the stream with EndCode. Returns
// false if anything unsupported was encountered; each such construct
// already has a diagnostic on sink.
func (l *Lowerer) LowerFile(tree *ast.Tree) bool {
	root := tree.Root()
	l.precomputeIfs(tree, root)
	for _, n := range directChildren(tree, root) {
		l.lowerTopLevel(tree, n)
	}
	l.pool.WriteEndCode()
	return l.ok
}

func (l *Lowerer) unsupported(what string) {
	l.ok = false
	l.sink.PrintError(diag.Location{Source: l.sourceID, Offset: 0}, "lowering", "%s is not yet lowered to opcodes", what)
}

func directChildren(tree *ast.Tree, n ast.Node) []ast.Node {
	var out []ast.Node
	it := tree.DirectChildren(n)
	for {
		c, ok := it.Next()
		if !ok {
			break
		}
		out = append(out, c)
	}
	return out
}

func defName(n ast.Node) identifierpool.Id {
	if len(n.Payload) == 0 {
		return 0
	}
	return identifierpool.Id(n.Payload[0])
}

func (l *Lowerer) lowerTopLevel(tree *ast.Tree, n ast.Node) {
	switch n.Tag {
	case ast.TagDefinition:
		l.lowerGlobalDefinition(tree, n)
	default:
		l.unsupported(fmt.Sprintf("top-level %s", tagLabel(n.Tag)))
	}
}

// lowerGlobalDefinition allocates the next file-global rank for n and
// emits its value, then the alloc opcode that binds the rank to it.
// The value is lowered before the alloc: FileGlobalAlloc* has no
// operand slot for an initializer, so the only ordering that lets the
// alloc's rank be assigned once and the value read back by it is
// value-then-alloc, the same order ScopeAlloc* below uses.
func (l *Lowerer) lowerGlobalDefinition(tree *ast.Tree, n ast.Node) {
	name := defName(n)
	rank := l.globalNext
	l.globalNext++
	l.globals[name] = rank

	children := directChildren(tree, n)
	idx := 0
	hasType := n.Flags&ast.FlagDefHasType != 0
	if hasType {
		idx++ // the type expression itself needs the (conceptual) semantic pass, not this one
	}
	if n.Flags&ast.FlagDefHasValue != 0 && idx < len(children) {
		l.lowerExpr(tree, children[idx])
	} else {
		l.pool.WriteValueVoid()
	}

	isMut := n.Flags&ast.FlagIsMut != 0
	if hasType {
		l.pool.WriteFileGlobalAllocTyped(isMut, l.file, rank)
	} else {
		l.pool.WriteFileGlobalAllocUntyped(isMut, l.file, rank)
	}
}

// lowerLocalDefinition is lowerGlobalDefinition's block-scoped sibling:
// it allocates the next rank in the innermost open scopeFrame instead
// of the file-global table.
func (l *Lowerer) lowerLocalDefinition(tree *ast.Tree, n ast.Node) {
	frame := l.scopes[len(l.scopes)-1]
	name := defName(n)
	rank := frame.next
	frame.next++
	frame.ranks[name] = rank

	children := directChildren(tree, n)
	idx := 0
	hasType := n.Flags&ast.FlagDefHasType != 0
	if hasType {
		idx++
	}
	if n.Flags&ast.FlagDefHasValue != 0 && idx < len(children) {
		l.lowerExpr(tree, children[idx])
	} else {
		l.pool.WriteValueVoid()
	}

	isMut := n.Flags&ast.FlagIsMut != 0
	if hasType {
		l.pool.WriteScopeAllocTyped(isMut)
	} else {
		l.pool.WriteScopeAllocUntyped(isMut)
	}
}

// countLocals counts how many of a block's direct statements are
// Definitions, for ScopeBegin's member_count operand.
func countLocals(children []ast.Node) uint16 {
	var n uint16
	for _, c := range children {
		if c.Tag == ast.TagDefinition {
			n++
		}
	}
	return n
}

// lowerBlock opens a scope, lowers every statement in order, and
// closes the scope. Non-definition statements are expression
// statements: every one but the last has its value discarded
// (DiscardVoid), so a block used as an expression yields its final
// statement's value, matching how the parser lets `{ ...; expr }`
// stand in wherever an expression is expected (e.g. an if-branch).
func (l *Lowerer) lowerBlock(tree *ast.Tree, n ast.Node) {
	children := directChildren(tree, n)
	l.pool.WriteScopeBegin(countLocals(children))
	l.scopes = append(l.scopes, &scopeFrame{ranks: map[identifierpool.Id]uint16{}})

	for i, c := range children {
		isLast := i == len(children)-1
		switch c.Tag {
		case ast.TagDefinition:
			l.lowerLocalDefinition(tree, c)
		case ast.TagReturn:
			l.lowerReturn(tree, c)
		case ast.TagBreak, ast.TagDefer:
			l.unsupported(tagLabel(c.Tag))
		default:
			l.lowerExpr(tree, c)
			if !isLast {
				l.pool.WriteDiscardVoid()
			}
		}
	}

	l.scopes = l.scopes[:len(l.scopes)-1]
	l.pool.WriteScopeEnd()
}

func (l *Lowerer) lowerReturn(tree *ast.Tree, n ast.Node) {
	children := directChildren(tree, n)
	if n.Flags&ast.FlagDefHasValue != 0 && len(children) > 0 {
		l.lowerExpr(tree, children[0])
	} else {
		l.pool.WriteValueVoid()
	}
	l.pool.WriteReturn(false)
}

// branchIds is what precomputeIfs records for one If/IfElse node: the
// already-written Ids of its branch chunks. hasElse mirrors whether an
// else chunk was actually written — opcode.Id's zero value is a valid
// chunk start (the very first chunk written lands at offset 0), so it
// can't double as an "absent" sentinel the way InvalidId does for
// operands that are genuinely optional.
type branchIds struct {
	then    opcode.Id
	els     opcode.Id
	hasElse bool
}

// lowerChunk lowers n as a self-contained chunk: a sub-stream of
// opcodes terminated by its own EndCode, starting at whatever the pool
// considers "here" right now. Callers are responsible for making sure
// nothing else needs to occupy that position first — see
// precomputeIfs for why that means every chunk for the whole file gets
// written before the file's own top-level stream does.
func (l *Lowerer) lowerChunk(tree *ast.Tree, n ast.Node) opcode.Id {
	start := l.pool.Here()
	if n.Tag == ast.TagBlock {
		l.lowerBlock(tree, n)
	} else {
		l.lowerExpr(tree, n)
	}
	l.pool.WriteEndCode()
	return start
}

// precomputeIfs finds every If node in tree's subtree rooted at n and
// writes its branch bodies to the pool as self-contained chunks,
// recording their Ids in l.ifBranches. It recurses into every child
// first, branch children included, so a branch containing its own
// nested If has that inner If's chunks written — and entered into the
// map — before the outer branch itself is lowered by lowerChunk.
//
// This has to happen as a separate pass ahead of the real top-level
// emission, not inline as If nodes are reached during it: an If's
// operands are back-references to Ids that must already exist, but
// the file's own top-level stream needs to be one uninterrupted run of
// bytes from its first opcode to its own EndCode (internal/opcode's
// Formatter walks a stream by stepping linearly from one instruction
// to the next until it hits EndCode). Writing a branch's bytes in the
// middle of that run — which is the only option if the branch is
// lowered at the point its If is reached — would plant a foreign
// EndCode partway through the top-level stream and truncate it. Doing
// all the branch writes first, before the top-level stream exists at
// all, keeps the file's own stream contiguous while still letting
// every If's operands name an already-written Id.
func (l *Lowerer) precomputeIfs(tree *ast.Tree, n ast.Node) {
	children := directChildren(tree, n)
	for _, c := range children {
		l.precomputeIfs(tree, c)
	}
	if n.Tag != ast.TagIf {
		return
	}
	if n.Flags&ast.FlagIfHasInit != 0 || len(children) < 2 {
		return // lowerIf reports these as unsupported/malformed itself
	}
	then := children[1]
	thenID := l.lowerChunk(tree, then)
	ids := branchIds{then: thenID}
	if n.Flags&ast.FlagIfHasElse != 0 && len(children) > 2 {
		ids.els = l.lowerChunk(tree, children[2])
		ids.hasElse = true
	}
	l.ifBranches[n.Offset] = ids
}

func (l *Lowerer) lowerIf(tree *ast.Tree, n ast.Node) {
	if n.Flags&ast.FlagIfHasInit != 0 {
		l.unsupported("an if with an initializer")
		return
	}
	children := directChildren(tree, n)
	if len(children) < 2 {
		l.unsupported("a malformed if")
		return
	}
	condition := children[0]

	ids, ok := l.ifBranches[n.Offset]
	if !ok {
		l.unsupported("an if whose branches were not precomputed")
		return
	}

	if ids.hasElse {
		l.lowerExpr(tree, condition)
		l.pool.WriteIfElse(ids.then, ids.els)
		return
	}
	l.lowerExpr(tree, condition)
	l.pool.WriteIf(ids.then)
}

// lowerExpr lowers a value-producing expression node. It never returns
// a value to the caller; the lowered opcodes leave the result on the
// opcode VM's implicit value stack, the same convention every Write*
// helper here assumes.
func (l *Lowerer) lowerExpr(tree *ast.Tree, n ast.Node) {
	switch n.Tag {
	case ast.TagLiteralInt:
		l.pool.WriteValueInteger(int64(decodeU64(n.Payload)))
	case ast.TagLiteralFloat:
		l.pool.WriteValueFloat(decodeF64(n.Payload))
	case ast.TagLiteralChar:
		l.pool.WriteValueInteger(int64(n.Payload[0]))
	case ast.TagLiteralString:
		l.pool.WriteValueString(opcode.ForeverValueId(n.Payload[0]))
	case ast.TagIdentifier:
		// The parser emits `undefined` as a plain Identifier carrying
		// that spelling; it is a keyword, so no declared name shares it.
		name := identifierpool.Id(n.Payload[0])
		if string(l.idents.EntryFrom(name)) == "undefined" {
			l.pool.WriteUndefined()
			return
		}
		l.lowerIdentifier(name)
	case ast.TagUnaryOp:
		l.lowerUnaryOp(tree, n)
	case ast.TagBinaryOp:
		l.lowerBinaryOp(tree, n)
	case ast.TagIf:
		l.lowerIf(tree, n)
	case ast.TagBlock:
		l.lowerBlock(tree, n)
	default:
		l.unsupported(tagLabel(n.Tag))
	}
}

// lowerIdentifier resolves name against the open scope stack
// (innermost first), falling back to the file-global table, and emits
// the matching Load opcode.
func (l *Lowerer) lowerIdentifier(name identifierpool.Id) {
	for depth := len(l.scopes) - 1; depth >= 0; depth-- {
		if rank, ok := l.scopes[depth].ranks[name]; ok {
			out := uint16(len(l.scopes) - 1 - depth)
			l.pool.WriteLoadScope(out, rank)
			return
		}
	}
	if rank, ok := l.globals[name]; ok {
		l.pool.WriteLoadGlobal(l.file, rank)
		return
	}
	l.unsupported("a reference to an undeclared name")
}

func (l *Lowerer) lowerUnaryOp(tree *ast.Tree, n ast.Node) {
	children := directChildren(tree, n)
	if len(children) != 1 {
		l.unsupported("a malformed unary operator")
		return
	}
	l.lowerExpr(tree, children[0])
	switch ast.UnaryOpKind(n.Flags.OpKind()) {
	case ast.UnaryOpBitNot:
		l.pool.WriteBitNot()
	case ast.UnaryOpLogNot:
		l.pool.WriteLogicalNot()
	case ast.UnaryOpDeref:
		l.pool.WriteDereference()
	case ast.UnaryOpAddrOf:
		l.pool.WriteAddressOf()
	case ast.UnaryOpNeg:
		l.pool.WriteNegate()
	default:
		l.unsupported(fmt.Sprintf("unary operator %s", ast.UnaryOpKind(n.Flags.OpKind())))
	}
}

func (l *Lowerer) lowerBinaryOp(tree *ast.Tree, n ast.Node) {
	children := directChildren(tree, n)
	if len(children) != 2 {
		l.unsupported("a malformed binary operator")
		return
	}
	kind := ast.BinaryOpKind(n.Flags.OpKind())

	if kind == ast.BinaryOpMember {
		l.lowerExpr(tree, children[0])
		rhs := children[1]
		if rhs.Tag != ast.TagIdentifier {
			l.unsupported("a member access whose right side is not a name")
			return
		}
		l.pool.WriteLoadMember(opcode.IdentifierId(rhs.Payload[0]))
		return
	}

	l.lowerExpr(tree, children[0])
	l.lowerExpr(tree, children[1])

	switch kind {
	case ast.BinaryOpAdd:
		l.pool.WriteBinaryArithmeticOp(opcode.ArithAdd)
	case ast.BinaryOpSub:
		l.pool.WriteBinaryArithmeticOp(opcode.ArithSub)
	case ast.BinaryOpMul:
		l.pool.WriteBinaryArithmeticOp(opcode.ArithMul)
	case ast.BinaryOpDiv:
		l.pool.WriteBinaryArithmeticOp(opcode.ArithDiv)
	case ast.BinaryOpMod:
		l.pool.WriteBinaryArithmeticOp(opcode.ArithMod)
	case ast.BinaryOpBitAnd:
		l.pool.WriteBinaryBitwiseOp(opcode.BitwiseAnd)
	case ast.BinaryOpBitOr:
		l.pool.WriteBinaryBitwiseOp(opcode.BitwiseOr)
	case ast.BinaryOpBitXor:
		l.pool.WriteBinaryBitwiseOp(opcode.BitwiseXor)
	case ast.BinaryOpShiftL:
		l.pool.WriteShift(opcode.ShiftLeft)
	case ast.BinaryOpShiftR:
		l.pool.WriteShift(opcode.ShiftRight)
	case ast.BinaryOpLogAnd:
		l.pool.WriteLogicalAnd()
	case ast.BinaryOpLogOr:
		l.pool.WriteLogicalOr()
	case ast.BinaryOpCmpLt:
		l.pool.WriteCompare(opcode.CompareLt)
	case ast.BinaryOpCmpLe:
		l.pool.WriteCompare(opcode.CompareLe)
	case ast.BinaryOpCmpGt:
		l.pool.WriteCompare(opcode.CompareGt)
	case ast.BinaryOpCmpGe:
		l.pool.WriteCompare(opcode.CompareGe)
	case ast.BinaryOpCmpNe:
		l.pool.WriteCompare(opcode.CompareNe)
	case ast.BinaryOpCmpEq:
		l.pool.WriteCompare(opcode.CompareEq)
	case ast.BinaryOpIndex:
		l.pool.WriteIndex()
	default:
		l.unsupported(fmt.Sprintf("binary operator %s", kind))
	}
}

func decodeU64(payload []uint32) uint64 {
	if len(payload) < 2 {
		return 0
	}
	return uint64(payload[0]) | uint64(payload[1])<<32
}

func decodeF64(payload []uint32) float64 {
	return math.Float64frombits(decodeU64(payload))
}

var tagLabels = map[ast.Tag]string{
	ast.TagInvalid:        "an invalid",
	ast.TagFile:           "a file",
	ast.TagBlock:          "a block",
	ast.TagDefinition:     "a definition",
	ast.TagIdentifier:     "an identifier",
	ast.TagLiteralInt:     "an integer literal",
	ast.TagLiteralFloat:   "a float literal",
	ast.TagLiteralChar:    "a char literal",
	ast.TagLiteralString:  "a string literal",
	ast.TagUnaryOp:        "a unary operator",
	ast.TagBinaryOp:       "a binary operator",
	ast.TagIf:             "an if",
	ast.TagFor:            "a for loop",
	ast.TagSwitch:         "a switch",
	ast.TagCase:           "a case",
	ast.TagImpl:           "an impl",
	ast.TagReturn:         "a return",
	ast.TagBreak:          "a break",
	ast.TagDefer:          "a defer",
	ast.TagCall:           "a call",
	ast.TagIndex:          "an index",
	ast.TagArrayType:      "an array type",
	ast.TagSliceType:      "a slice type",
	ast.TagPtrType:        "a pointer type",
	ast.TagMultiPtrType:   "a multi-pointer type",
	ast.TagRefType:        "a reference type",
	ast.TagVariadicType:   "a variadic type",
	ast.TagProcSignature:  "a proc signature",
	ast.TagFuncSignature:  "a func signature",
	ast.TagTraitSignature: "a trait signature",
}

func tagLabel(tag ast.Tag) string {
	if s, ok := tagLabels[tag]; ok {
		return s + " node"
	}
	return fmt.Sprintf("tag#%d node", tag)
}
