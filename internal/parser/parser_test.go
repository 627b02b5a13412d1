package parser

import (
	"testing"

	"frontc/internal/ast"
	"frontc/internal/identifierpool"
)

// parseOK parses input and fails the test immediately if it didn't
// succeed, returning the tree and the identifier pool used to intern
// its names (so assertions can look names back up).
func parseOK(t *testing.T, input string) (*ast.Tree, *identifierpool.Pool) {
	t.Helper()
	idents := identifierpool.New()
	t.Cleanup(idents.Release)
	tree, result := ParseFile([]byte(input), 1, idents)
	if result.Kind != Ok {
		t.Fatalf("expected successful parse, got %v (%s): %s", result.Kind, result.Context, result.Message)
	}
	return tree, idents
}

func parseErr(t *testing.T, input string) Result {
	t.Helper()
	idents := identifierpool.New()
	t.Cleanup(idents.Release)
	_, result := ParseFile([]byte(input), 1, idents)
	if result.Kind == Ok {
		t.Fatalf("expected parsing to fail, but it succeeded")
	}
	return result
}

func countDescendants(tree *ast.Tree, root ast.Node) int {
	n := 0
	it := tree.Preorder(root)
	for {
		_, _, ok := it.Next()
		if !ok {
			break
		}
		n++
	}
	return n
}

// childTags returns the Tag of every direct child of n, in order.
func childTags(tree *ast.Tree, n ast.Node) []ast.Tag {
	var tags []ast.Tag
	it := tree.DirectChildren(n)
	for {
		c, ok := it.Next()
		if !ok {
			break
		}
		tags = append(tags, c.Tag)
	}
	return tags
}

func TestParseFileWrapsTopLevelDefinitionsInFile(t *testing.T) {
	tree, _ := parseOK(t, `x : i32 = 1; y : i32 = 2`)
	root := tree.Root()
	if root.Tag != ast.TagFile {
		t.Fatalf("got root tag %v, want File", root.Tag)
	}
	tags := childTags(tree, root)
	if len(tags) != 2 || tags[0] != ast.TagDefinition || tags[1] != ast.TagDefinition {
		t.Fatalf("got children %v, want two Definitions", tags)
	}
}

func TestDefinitionRequiresTypeOrValue(t *testing.T) {
	result := parseErr(t, `x :`)
	if result.Kind != InvalidSyntax {
		t.Fatalf("got %v, want InvalidSyntax", result.Kind)
	}
}

func TestDefinitionComptimeFlag(t *testing.T) {
	tree, _ := parseOK(t, `x :: i32 = 1`)
	def, _, _ := tree.Preorder(tree.Root()).Next()
	if def.Tag != ast.TagDefinition {
		t.Fatalf("got %v, want Definition", def.Tag)
	}
	if def.Flags&ast.FlagIsComptime == 0 {
		t.Fatalf("expected FlagIsComptime to be set for '::'")
	}
}

func TestShuntingYardPrecedenceMulBindsTighterThanAdd(t *testing.T) {
	// 1 + 2 * 3 should parse as Add(1, Mul(2, 3)): the Add node's second
	// child is a Mul, not a flat three-operand chain.
	tree, _ := parseOK(t, `x : i32 = 1 + 2 * 3`)
	def, _, _ := tree.Preorder(tree.Root()).Next()
	var valueRoot ast.Node
	it := tree.DirectChildren(def)
	for {
		c, ok := it.Next()
		if !ok {
			break
		}
		valueRoot = c // last child is the value when both type and value present
	}
	if valueRoot.Tag != ast.TagBinaryOp || ast.BinaryOpKind(valueRoot.Flags.OpKind()) != ast.BinaryOpAdd {
		t.Fatalf("got tag %v op %v, want BinaryOp(Add)", valueRoot.Tag, valueRoot.Flags.OpKind())
	}
	children := childTags(tree, valueRoot)
	if len(children) != 2 {
		t.Fatalf("got %d children for Add, want 2", len(children))
	}
	var rhs ast.Node
	cit := tree.DirectChildren(valueRoot)
	cit.Next()
	rhs, _ = cit.Next()
	if rhs.Tag != ast.TagBinaryOp || ast.BinaryOpKind(rhs.Flags.OpKind()) != ast.BinaryOpMul {
		t.Fatalf("got rhs tag %v op %v, want BinaryOp(Mul)", rhs.Tag, rhs.Flags.OpKind())
	}
}

func TestShuntingYardParenthesesOverridePrecedence(t *testing.T) {
	tree, _ := parseOK(t, `x : i32 = (1 + 2) * 3`)
	def, _, _ := tree.Preorder(tree.Root()).Next()
	var valueRoot ast.Node
	it := tree.DirectChildren(def)
	for {
		c, ok := it.Next()
		if !ok {
			break
		}
		valueRoot = c
	}
	if valueRoot.Tag != ast.TagBinaryOp || ast.BinaryOpKind(valueRoot.Flags.OpKind()) != ast.BinaryOpMul {
		t.Fatalf("got tag %v op %v, want BinaryOp(Mul)", valueRoot.Tag, valueRoot.Flags.OpKind())
	}
}

func TestShuntingYardUnaryBindsToImmediateOperand(t *testing.T) {
	tree, _ := parseOK(t, `x : i32 = -1 + 2`)
	def, _, _ := tree.Preorder(tree.Root()).Next()
	var valueRoot ast.Node
	it := tree.DirectChildren(def)
	for {
		c, ok := it.Next()
		if !ok {
			break
		}
		valueRoot = c
	}
	if valueRoot.Tag != ast.TagBinaryOp || ast.BinaryOpKind(valueRoot.Flags.OpKind()) != ast.BinaryOpAdd {
		t.Fatalf("got tag %v op %v, want BinaryOp(Add)", valueRoot.Tag, valueRoot.Flags.OpKind())
	}
	cit := tree.DirectChildren(valueRoot)
	lhs, _ := cit.Next()
	if lhs.Tag != ast.TagUnaryOp || ast.UnaryOpKind(lhs.Flags.OpKind()) != ast.UnaryOpNeg {
		t.Fatalf("got lhs tag %v op %v, want UnaryOp(Neg)", lhs.Tag, lhs.Flags.OpKind())
	}
}

func TestCallParsesArgumentsAndCombinesCallee(t *testing.T) {
	tree, _ := parseOK(t, `x : i32 = foo(1, 2, 3)`)
	def, _, _ := tree.Preorder(tree.Root()).Next()
	var valueRoot ast.Node
	it := tree.DirectChildren(def)
	for {
		c, ok := it.Next()
		if !ok {
			break
		}
		valueRoot = c
	}
	if valueRoot.Tag != ast.TagCall {
		t.Fatalf("got tag %v, want Call", valueRoot.Tag)
	}
	tags := childTags(tree, valueRoot)
	if len(tags) != 4 {
		t.Fatalf("got %d children, want callee + 3 args", len(tags))
	}
	if tags[0] != ast.TagIdentifier {
		t.Fatalf("got callee tag %v, want Identifier", tags[0])
	}
}

func TestIndexParsesLhsAndSubscript(t *testing.T) {
	tree, _ := parseOK(t, `x : i32 = arr[0]`)
	def, _, _ := tree.Preorder(tree.Root()).Next()
	var valueRoot ast.Node
	it := tree.DirectChildren(def)
	for {
		c, ok := it.Next()
		if !ok {
			break
		}
		valueRoot = c
	}
	if valueRoot.Tag != ast.TagBinaryOp || ast.BinaryOpKind(valueRoot.Flags.OpKind()) != ast.BinaryOpIndex {
		t.Fatalf("got tag %v op %v, want BinaryOp(Index)", valueRoot.Tag, valueRoot.Flags.OpKind())
	}
}

func TestIfWithElseBranch(t *testing.T) {
	tree, _ := parseOK(t, `x : i32 = if a { 1 } else { 2 }`)
	def, _, _ := tree.Preorder(tree.Root()).Next()
	var valueRoot ast.Node
	it := tree.DirectChildren(def)
	for {
		c, ok := it.Next()
		if !ok {
			break
		}
		valueRoot = c
	}
	if valueRoot.Tag != ast.TagIf {
		t.Fatalf("got tag %v, want If", valueRoot.Tag)
	}
	if valueRoot.Flags&ast.FlagIfHasElse == 0 {
		t.Fatalf("expected FlagIfHasElse to be set")
	}
	tags := childTags(tree, valueRoot)
	if len(tags) != 3 {
		t.Fatalf("got %d children, want condition+then+else", len(tags))
	}
}

func TestIfWithNamedInit(t *testing.T) {
	tree, _ := parseOK(t, `x : i32 = if n : getN(); n > 0 { n } else { 0 }`)
	def, _, _ := tree.Preorder(tree.Root()).Next()
	var valueRoot ast.Node
	it := tree.DirectChildren(def)
	for {
		c, ok := it.Next()
		if !ok {
			break
		}
		valueRoot = c
	}
	if valueRoot.Flags&ast.FlagIfHasInit == 0 {
		t.Fatalf("expected FlagIfHasInit to be set")
	}
	tags := childTags(tree, valueRoot)
	if len(tags) != 4 || tags[0] != ast.TagDefinition {
		t.Fatalf("got %v, want [Definition, cond, then, else]", tags)
	}
}

func TestForInfiniteLoop(t *testing.T) {
	tree, _ := parseOK(t, `x : i32 = for do { break }`)
	def, _, _ := tree.Preorder(tree.Root()).Next()
	var valueRoot ast.Node
	it := tree.DirectChildren(def)
	for {
		c, ok := it.Next()
		if !ok {
			break
		}
		valueRoot = c
	}
	if valueRoot.Tag != ast.TagFor {
		t.Fatalf("got tag %v, want For", valueRoot.Tag)
	}
	if valueRoot.Flags&(ast.FlagForHasInit|ast.FlagForHasCondition|ast.FlagForHasStep) != 0 {
		t.Fatalf("expected no init/condition/step flags for an infinite loop")
	}
}

func TestForWithConditionAndStep(t *testing.T) {
	tree, _ := parseOK(t, `x : i32 = for i < 10; i = i + 1 do { break }`)
	def, _, _ := tree.Preorder(tree.Root()).Next()
	var valueRoot ast.Node
	it := tree.DirectChildren(def)
	for {
		c, ok := it.Next()
		if !ok {
			break
		}
		valueRoot = c
	}
	want := ast.FlagForHasCondition | ast.FlagForHasStep
	if valueRoot.Flags&want != want {
		t.Fatalf("got flags %x, want condition+step set", valueRoot.Flags)
	}
}

func TestForEachWithIndex(t *testing.T) {
	tree, _ := parseOK(t, `x : i32 = for elem, idx <- items { break }`)
	def, _, _ := tree.Preorder(tree.Root()).Next()
	var valueRoot ast.Node
	it := tree.DirectChildren(def)
	for {
		c, ok := it.Next()
		if !ok {
			break
		}
		valueRoot = c
	}
	if valueRoot.Flags&ast.FlagForIsForEach == 0 {
		t.Fatalf("expected FlagForIsForEach to be set")
	}
	if valueRoot.Flags&ast.FlagForEachHasIndex == 0 {
		t.Fatalf("expected FlagForEachHasIndex to be set")
	}
	tags := childTags(tree, valueRoot)
	if len(tags) != 4 {
		t.Fatalf("got %d children, want elem+idx+iterable+body", len(tags))
	}
}

func TestSwitchWithMultipleCasesAndLabels(t *testing.T) {
	tree, _ := parseOK(t, `x : i32 = switch n case 1, 2 => 10 case 3 => 20`)
	def, _, _ := tree.Preorder(tree.Root()).Next()
	var valueRoot ast.Node
	it := tree.DirectChildren(def)
	for {
		c, ok := it.Next()
		if !ok {
			break
		}
		valueRoot = c
	}
	if valueRoot.Tag != ast.TagSwitch {
		t.Fatalf("got tag %v, want Switch", valueRoot.Tag)
	}
	tags := childTags(tree, valueRoot)
	if len(tags) != 3 { // switched expr + 2 cases
		t.Fatalf("got %d children, want switched-expr + 2 cases", len(tags))
	}
	if tags[1] != ast.TagCase || tags[2] != ast.TagCase {
		t.Fatalf("got %v, want two Case children after the switched expr", tags)
	}

	cit := tree.DirectChildren(valueRoot)
	cit.Next()
	firstCase, _ := cit.Next()
	if firstCase.Payload[0] != 2 {
		t.Fatalf("got labelCount %d, want 2", firstCase.Payload[0])
	}
}

func TestProcSignatureWithParamsAndReturnType(t *testing.T) {
	tree, _ := parseOK(t, `add :: proc(a: i32, b: i32) -> i32 = { return a + b }`)
	def, _, _ := tree.Preorder(tree.Root()).Next()
	var typeNode ast.Node
	it := tree.DirectChildren(def)
	typeNode, _ = it.Next() // type child comes before value
	if typeNode.Tag != ast.TagProcSignature {
		t.Fatalf("got tag %v, want ProcSignature", typeNode.Tag)
	}
	if typeNode.Flags&ast.FlagSignatureHasReturnType == 0 {
		t.Fatalf("expected FlagSignatureHasReturnType to be set")
	}
	tags := childTags(tree, typeNode)
	if len(tags) != 3 { // 2 params + return type
		t.Fatalf("got %d children, want 2 params + return type", len(tags))
	}
}

func TestTraitSignatureDisallowsParamsAndReturnType(t *testing.T) {
	tree, _ := parseOK(t, `Shape :: trait() = { area :: proc() -> i32 }`)
	def, _, _ := tree.Preorder(tree.Root()).Next()
	it := tree.DirectChildren(def)
	typeNode, _ := it.Next()
	if typeNode.Tag != ast.TagTraitSignature {
		t.Fatalf("got tag %v, want TraitSignature", typeNode.Tag)
	}
	if typeNode.Flags&ast.FlagSignatureHasReturnType != 0 {
		t.Fatalf("trait signatures never carry a return type flag")
	}
}

func TestPointerAndMutPointerTypes(t *testing.T) {
	tree, _ := parseOK(t, `x : mut *i32 = undefined`)
	def, _, _ := tree.Preorder(tree.Root()).Next()
	it := tree.DirectChildren(def)
	typeNode, _ := it.Next()
	if typeNode.Tag != ast.TagPtrType {
		t.Fatalf("got tag %v, want PtrType", typeNode.Tag)
	}
	if typeNode.Flags&ast.FlagTypeIsMut == 0 {
		t.Fatalf("expected FlagTypeIsMut to be set")
	}
	tags := childTags(tree, typeNode)
	if len(tags) != 1 {
		t.Fatalf("got %d children, want 1 (pointee type)", len(tags))
	}
}

func TestArrayTypeHasCountAndElementType(t *testing.T) {
	tree, _ := parseOK(t, `x : [3]i32 = undefined`)
	def, _, _ := tree.Preorder(tree.Root()).Next()
	it := tree.DirectChildren(def)
	typeNode, _ := it.Next()
	if typeNode.Tag != ast.TagArrayType {
		t.Fatalf("got tag %v, want ArrayType", typeNode.Tag)
	}
	tags := childTags(tree, typeNode)
	if len(tags) != 2 { // count expr + element type
		t.Fatalf("got %d children, want count + element type", len(tags))
	}
}

func TestMemberAndCatchFold(t *testing.T) {
	tree, _ := parseOK(t, `x : i32 = a.b catch 0`)
	def, _, _ := tree.Preorder(tree.Root()).Next()
	var valueRoot ast.Node
	it := tree.DirectChildren(def)
	for {
		c, ok := it.Next()
		if !ok {
			break
		}
		valueRoot = c
	}
	if valueRoot.Tag != ast.TagBinaryOp || ast.BinaryOpKind(valueRoot.Flags.OpKind()) != ast.BinaryOpCatch {
		t.Fatalf("got tag %v op %v, want BinaryOp(Catch)", valueRoot.Tag, valueRoot.Flags.OpKind())
	}
	cit := tree.DirectChildren(valueRoot)
	lhs, _ := cit.Next()
	if lhs.Tag != ast.TagBinaryOp || ast.BinaryOpKind(lhs.Flags.OpKind()) != ast.BinaryOpMember {
		t.Fatalf("got lhs tag %v op %v, want BinaryOp(Member)", lhs.Tag, lhs.Flags.OpKind())
	}
}

func TestAssignmentDisallowedInsideConditions(t *testing.T) {
	// An If's condition parses with allowAssignment=false; a bare '='
	// there should be left unconsumed and trip the missing '{'.
	result := parseErr(t, `x : i32 = if a = b { 1 } else { 2 }`)
	if result.Kind != UnexpectedToken {
		t.Fatalf("got %v, want UnexpectedToken", result.Kind)
	}
}

func TestUnmatchedParenIsInvalidSyntax(t *testing.T) {
	result := parseErr(t, `x : i32 = (1 + 2`)
	if result.Kind != UnexpectedEndOfStream && result.Kind != InvalidSyntax {
		t.Fatalf("got %v, want UnexpectedEndOfStream or InvalidSyntax", result.Kind)
	}
}

func TestStringLiteralInternsDecodedBytes(t *testing.T) {
	tree, idents := parseOK(t, `x : string = "a\nb"`)
	var lit ast.Node
	it := tree.Preorder(tree.Root())
	for {
		n, _, ok := it.Next()
		if !ok {
			break
		}
		if n.Tag == ast.TagLiteralString {
			lit = n
		}
	}
	if lit.Tag != ast.TagLiteralString {
		t.Fatalf("did not find a LiteralString node")
	}
	got := idents.EntryFrom(identifierpool.Id(lit.Payload[0]))
	if string(got) != "a\nb" {
		t.Fatalf("got %q, want %q", got, "a\nb")
	}
}

func TestIntLiteralHexAndUnderscores(t *testing.T) {
	tree, _ := parseOK(t, `x : i32 = 0x1_00`)
	var lit ast.Node
	it := tree.Preorder(tree.Root())
	for {
		n, _, ok := it.Next()
		if !ok {
			break
		}
		if n.Tag == ast.TagLiteralInt {
			lit = n
		}
	}
	v := uint64(lit.Payload[0]) | uint64(lit.Payload[1])<<32
	if v != 0x100 {
		t.Fatalf("got %d, want %d", v, 0x100)
	}
}

func TestEmptyFileParsesToEmptyFile(t *testing.T) {
	tree, _ := parseOK(t, ``)
	root := tree.Root()
	if root.Tag != ast.TagFile {
		t.Fatalf("got tag %v, want File", root.Tag)
	}
	if root.HasChildren() {
		t.Fatalf("expected an empty File to have no children")
	}
}

func TestDescendantCountMatchesNodeShape(t *testing.T) {
	tree, _ := parseOK(t, `x : i32 = 1 + 2`)
	root := tree.Root()
	// File -> Definition -> (type Identifier, value BinaryOp -> two
	// LiteralInt children) == 5 descendants below File.
	if got := countDescendants(tree, root); got != 5 {
		t.Fatalf("got %d descendants, want 5", got)
	}
}
