// Package formatter renders an internal/ast.Tree in the AST log format:
// a pretty-printed tree, `NodeTag { field = value … }` with `[...]` for
// child arrays, strings quoted. Adapted from the teacher's own
// internal/formatter.Formatter (strings.Builder-based accumulation,
// indent tracked as a counter) with source-code pretty-printing of a
// Stmt/Expr tree swapped out for node-header disassembly of an
// internal/ast.Tree, the same swap internal/opcode.Formatter makes for
// opcode streams.
package formatter

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"frontc/internal/ast"
	"frontc/internal/identifierpool"
)

var tagNames = map[ast.Tag]string{
	ast.TagInvalid:        "Invalid",
	ast.TagFile:           "File",
	ast.TagBlock:          "Block",
	ast.TagDefinition:     "Definition",
	ast.TagIdentifier:     "Identifier",
	ast.TagLiteralInt:     "LiteralInt",
	ast.TagLiteralFloat:   "LiteralFloat",
	ast.TagLiteralChar:    "LiteralChar",
	ast.TagLiteralString:  "LiteralString",
	ast.TagUnaryOp:        "UnaryOp",
	ast.TagBinaryOp:       "BinaryOp",
	ast.TagIf:             "If",
	ast.TagFor:            "For",
	ast.TagSwitch:         "Switch",
	ast.TagCase:           "Case",
	ast.TagImpl:           "Impl",
	ast.TagReturn:         "Return",
	ast.TagBreak:          "Break",
	ast.TagDefer:          "Defer",
	ast.TagCall:           "Call",
	ast.TagIndex:          "Index",
	ast.TagArrayType:      "ArrayType",
	ast.TagSliceType:      "SliceType",
	ast.TagPtrType:        "PtrType",
	ast.TagMultiPtrType:   "MultiPtrType",
	ast.TagRefType:        "RefType",
	ast.TagVariadicType:   "VariadicType",
	ast.TagProcSignature:  "ProcSignature",
	ast.TagFuncSignature:  "FuncSignature",
	ast.TagTraitSignature: "TraitSignature",
}

func tagName(tag ast.Tag) string {
	if s, ok := tagNames[tag]; ok {
		return s
	}
	return fmt.Sprintf("Tag#%d", tag)
}

// Formatter renders a Tree starting at some node in the AST log format.
// indentStr/lineBreak mirror the teacher's Formatter fields exactly;
// only the thing being walked changed.
type Formatter struct {
	idents    *identifierpool.Pool
	indent    int
	indentStr string
	lineBreak string
	out       strings.Builder
}

func NewFormatter(idents *identifierpool.Pool) *Formatter {
	return &Formatter{idents: idents, indentStr: "    ", lineBreak: "\n"}
}

// Format renders start and its whole subtree and returns the
// accumulated text.
func (f *Formatter) Format(tree *ast.Tree, start ast.Node) string {
	f.out.Reset()
	f.indent = 0
	f.formatNode(tree, start)
	return f.out.String()
}

func (f *Formatter) writeIndent() {
	for i := 0; i < f.indent; i++ {
		f.out.WriteString(f.indentStr)
	}
}

func (f *Formatter) name(id identifierpool.Id) string {
	if f.idents == nil {
		return fmt.Sprintf("id#%d", id)
	}
	if b := f.idents.EntryFrom(id); b != nil {
		return string(b)
	}
	return fmt.Sprintf("id#%d", id)
}

func (f *Formatter) formatNode(tree *ast.Tree, n ast.Node) {
	f.out.WriteString(tagName(n.Tag))
	fields := f.fieldsOf(n)
	children := directChildren(tree, n)

	if len(fields) == 0 && len(children) == 0 {
		f.out.WriteString(" {}")
		f.out.WriteString(f.lineBreak)
		return
	}

	f.out.WriteString(" {")
	f.out.WriteString(f.lineBreak)
	f.indent++
	for _, field := range fields {
		f.writeIndent()
		f.out.WriteString(field)
		f.out.WriteString(f.lineBreak)
	}
	for _, group := range f.childGroups(n, children) {
		f.writeIndent()
		f.out.WriteString(group.label)
		f.out.WriteString(" = ")
		if group.isArray {
			f.formatArray(tree, group.nodes)
		} else {
			f.formatNode(tree, group.nodes[0])
		}
	}
	f.indent--
	f.writeIndent()
	f.out.WriteString("}")
	f.out.WriteString(f.lineBreak)
}

func (f *Formatter) formatArray(tree *ast.Tree, nodes []ast.Node) {
	if len(nodes) == 0 {
		f.out.WriteString("[]")
		f.out.WriteString(f.lineBreak)
		return
	}
	f.out.WriteString("[")
	f.out.WriteString(f.lineBreak)
	f.indent++
	for _, c := range nodes {
		f.writeIndent()
		f.formatNode(tree, c)
	}
	f.indent--
	f.writeIndent()
	f.out.WriteString("]")
	f.out.WriteString(f.lineBreak)
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

// childGroup names one field = value or field = [...] line; isArray
// distinguishes a single-child field from an array-of-children field.
type childGroup struct {
	label   string
	nodes   []ast.Node
	isArray bool
}

// childGroups splits a node's direct children into the labeled groups
// its tag's grammar defines, using the same flag bits the parser set
// while building the node to know which optional children are present
// and in what order.
func (f *Formatter) childGroups(n ast.Node, children []ast.Node) []childGroup {
	single := func(label string, idx int) childGroup {
		return childGroup{label: label, nodes: []ast.Node{children[idx]}}
	}
	array := func(label string, nodes []ast.Node) childGroup {
		return childGroup{label: label, nodes: nodes, isArray: true}
	}

	switch n.Tag {
	case ast.TagFile:
		return []childGroup{array("body", children)}
	case ast.TagBlock:
		return []childGroup{array("body", children)}
	case ast.TagDefinition:
		i := 0
		var groups []childGroup
		if n.Flags&ast.FlagDefHasType != 0 {
			groups = append(groups, single("type", i))
			i++
		}
		if n.Flags&ast.FlagDefHasValue != 0 {
			groups = append(groups, single("value", i))
		}
		return groups
	case ast.TagUnaryOp:
		return []childGroup{single("operand", 0)}
	case ast.TagBinaryOp:
		return []childGroup{single("lhs", 0), single("rhs", 1)}
	case ast.TagCall:
		return []childGroup{single("callee", 0), array("args", children[1:])}
	case ast.TagIndex:
		return []childGroup{single("object", 0), single("index", 1)}
	case ast.TagIf:
		i := 0
		var groups []childGroup
		if n.Flags&ast.FlagIfHasInit != 0 {
			groups = append(groups, single("init", i))
			i++
		}
		groups = append(groups, single("condition", i))
		i++
		groups = append(groups, single("then", i))
		i++
		if n.Flags&ast.FlagIfHasElse != 0 {
			groups = append(groups, single("else", i))
		}
		return groups
	case ast.TagFor:
		if n.Flags&ast.FlagForIsForEach != 0 {
			i := 0
			var groups []childGroup
			groups = append(groups, single("element", i))
			i++
			if n.Flags&ast.FlagForEachHasIndex != 0 {
				groups = append(groups, single("index", i))
				i++
			}
			groups = append(groups, single("iterable", i))
			i++
			groups = append(groups, single("body", i))
			return groups
		}
		i := 0
		var groups []childGroup
		if n.Flags&ast.FlagForHasInit != 0 {
			groups = append(groups, single("init", i))
			i++
		}
		if n.Flags&ast.FlagForHasCondition != 0 {
			groups = append(groups, single("condition", i))
			i++
		}
		if n.Flags&ast.FlagForHasStep != 0 {
			groups = append(groups, single("step", i))
			i++
		}
		groups = append(groups, single("body", i))
		i++
		if n.Flags&ast.FlagForHasFinally != 0 {
			groups = append(groups, single("finally", i))
		}
		return groups
	case ast.TagSwitch:
		i := 0
		var groups []childGroup
		if n.Flags&ast.FlagSwitchHasInit != 0 {
			groups = append(groups, single("init", i))
			i++
		}
		groups = append(groups, single("switched", i))
		i++
		groups = append(groups, array("cases", children[i:]))
		return groups
	case ast.TagCase:
		labelCount := 0
		if len(n.Payload) > 0 {
			labelCount = int(n.Payload[0])
		}
		return []childGroup{array("labels", children[:labelCount]), single("body", labelCount)}
	case ast.TagImpl:
		return []childGroup{single("type", 0), single("body", 1)}
	case ast.TagReturn, ast.TagBreak, ast.TagDefer:
		if n.Flags&ast.FlagDefHasValue != 0 && len(children) > 0 {
			return []childGroup{single("value", 0)}
		}
		return nil
	case ast.TagArrayType:
		return []childGroup{single("count", 0), single("elem", 1)}
	case ast.TagSliceType, ast.TagPtrType, ast.TagMultiPtrType, ast.TagRefType, ast.TagVariadicType:
		return []childGroup{single("elem", 0)}
	case ast.TagProcSignature, ast.TagFuncSignature, ast.TagTraitSignature:
		hasReturn := n.Flags&ast.FlagSignatureHasReturnType != 0
		paramCount := len(children)
		if hasReturn {
			paramCount--
		}
		var groups []childGroup
		groups = append(groups, array("params", children[:paramCount]))
		if hasReturn {
			groups = append(groups, single("returnType", paramCount))
		}
		return groups
	default:
		if len(children) == 0 {
			return nil
		}
		return []childGroup{array("children", children)}
	}
}

// fieldsOf renders a node's non-child fields: identifiers, literal
// values, operator kinds, and the flag bits meaningful for its tag.
func (f *Formatter) fieldsOf(n ast.Node) []string {
	var fields []string
	switch n.Tag {
	case ast.TagIdentifier:
		fields = append(fields, fmt.Sprintf("name = %s", f.name(identifierpool.Id(n.Payload[0]))))
	case ast.TagLiteralInt:
		fields = append(fields, fmt.Sprintf("value = %d", decodeU64(n.Payload)))
	case ast.TagLiteralFloat:
		fields = append(fields, fmt.Sprintf("value = %s", strconv.FormatFloat(math.Float64frombits(decodeU64(n.Payload)), 'g', -1, 64)))
	case ast.TagLiteralChar:
		fields = append(fields, fmt.Sprintf("value = %q", rune(n.Payload[0])))
	case ast.TagLiteralString:
		fields = append(fields, fmt.Sprintf("value = %q", f.name(identifierpool.Id(n.Payload[0]))))
	case ast.TagUnaryOp:
		fields = append(fields, fmt.Sprintf("op = %s", ast.UnaryOpKind(n.Flags.OpKind())))
	case ast.TagBinaryOp:
		fields = append(fields, fmt.Sprintf("op = %s", ast.BinaryOpKind(n.Flags.OpKind())))
	case ast.TagDefinition:
		name := "name = ?"
		if len(n.Payload) > 0 {
			name = fmt.Sprintf("name = %s", f.name(identifierpool.Id(n.Payload[0])))
		}
		fields = append(fields, name)
		if n.Flags&ast.FlagIsComptime != 0 {
			fields = append(fields, "comptime = true")
		}
		if n.Flags&ast.FlagIsPub != 0 {
			fields = append(fields, "pub = true")
		}
	}
	if n.Tag == ast.TagPtrType || n.Tag == ast.TagRefType || n.Tag == ast.TagSliceType || n.Tag == ast.TagMultiPtrType {
		if n.Flags&ast.FlagTypeIsMut != 0 {
			fields = append(fields, "mut = true")
		}
	}
	return fields
}

func decodeU64(payload []uint32) uint64 {
	if len(payload) < 2 {
		return 0
	}
	return uint64(payload[0]) | uint64(payload[1])<<32
}
