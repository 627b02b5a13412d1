package opcode

import (
	"fmt"
	"strings"
)

// NameResolver renders an IdentifierId as source text; callers that
// have an identifier pool on hand should pass one in, else names print
// as their raw numeric id.
type NameResolver func(IdentifierId) string

// Formatter renders a Pool's stream in the opcode log format: one
// opcode per line, `  <OpcodeId>  [@] <name> <operands…>`, with
// referenced sub-streams (loop bodies, bound closures, argument lists)
// appended afterward, each separated from the previous by a blank
// line. Adapted from the teacher's internal/formatter.Formatter
// (strings.Builder-based line accumulation) with AST pretty-printing
// swapped out for opcode disassembly.
type Formatter struct {
	resolveName NameResolver
	out         strings.Builder
	visited     map[Id]bool
}

func NewFormatter(resolve NameResolver) *Formatter {
	if resolve == nil {
		resolve = func(id IdentifierId) string { return fmt.Sprintf("id#%d", id) }
	}
	return &Formatter{resolveName: resolve, visited: map[Id]bool{}}
}

// Format renders the stream starting at start and all sub-streams it
// transitively references, and returns the accumulated text.
func (f *Formatter) Format(pool *Pool, start Id) string {
	f.formatStream(pool, start)
	return f.out.String()
}

func (f *Formatter) formatStream(pool *Pool, start Id) {
	if f.visited[start] {
		return
	}
	f.visited[start] = true

	var subStreams []Id
	at := start
	for {
		instr := Decode(pool, at)
		f.writeLine(instr)
		subStreams = append(subStreams, f.subStreamsOf(instr)...)
		if instr.Tag == TagEndCode {
			break
		}
		at = Id(int(instr.Id) + instr.Len)
		if int(at) >= pool.Len() {
			break
		}
	}

	for _, sub := range subStreams {
		if f.visited[sub] {
			continue
		}
		f.out.WriteString("\n")
		f.formatStream(pool, sub)
	}
}

func (f *Formatter) subStreamsOf(instr Instruction) []Id {
	switch instr.Tag {
	case TagIf:
		return []Id{instr.OpId1}
	case TagIfElse:
		return []Id{instr.OpId1, instr.OpId2}
	case TagLoop:
		return []Id{instr.OpId1, instr.OpId2}
	case TagLoopFinally:
		return []Id{instr.OpId1, instr.OpId2, instr.OpId3}
	case TagBindBody, TagBindBodyWithClosure:
		return []Id{instr.OpId1}
	case TagPrepareArgs:
		return instr.Values
	case TagDynSignature:
		var ids []Id
		if instr.OpId1 != InvalidId {
			ids = append(ids, instr.OpId1)
		}
		for _, p := range instr.Params {
			if p.Completion != InvalidId {
				ids = append(ids, p.Completion)
			}
		}
		return ids
	case TagJumpTable:
		ids := make([]Id, 0, len(instr.JumpCases)+1)
		for _, c := range instr.JumpCases {
			ids = append(ids, c.Target)
		}
		return append(ids, instr.JumpDefault)
	default:
		return nil
	}
}

func (f *Formatter) writeLine(instr Instruction) {
	f.out.WriteString("  ")
	fmt.Fprintf(&f.out, "%d", instr.Id)
	f.out.WriteString("  ")
	if instr.ConsumesWriteCtx {
		f.out.WriteString("@ ")
	} else {
		f.out.WriteString("  ")
	}
	f.out.WriteString(instr.Tag.String())
	for _, operand := range f.operandsOf(instr) {
		f.out.WriteString(" ")
		f.out.WriteString(operand)
	}
	f.out.WriteString("\n")
}

func (f *Formatter) operandsOf(instr Instruction) []string {
	switch instr.Tag {
	case TagScopeBegin:
		return []string{fmt.Sprintf("members=%d", instr.U16A)}
	case TagScopeAllocTyped, TagScopeAllocUntyped:
		return []string{fmt.Sprintf("mut=%v", instr.Bool1)}
	case TagFileGlobalAllocTyped, TagFileGlobalAllocUntyped:
		return []string{fmt.Sprintf("mut=%v", instr.Bool1), fmt.Sprintf("file=%d", instr.GlobalFile), fmt.Sprintf("rank=%d", instr.U16A)}
	case TagLoadScope:
		return []string{fmt.Sprintf("out=%d", instr.U16A), fmt.Sprintf("rank=%d", instr.U16B)}
	case TagLoadGlobal:
		return []string{fmt.Sprintf("file=%d", instr.GlobalFile), fmt.Sprintf("rank=%d", instr.U16A)}
	case TagLoadMember:
		return []string{f.resolveName(instr.Ident)}
	case TagLoadClosure:
		return []string{fmt.Sprintf("rank=%d", instr.U16A)}
	case TagLoadBuiltin, TagExecBuiltin:
		return []string{fmt.Sprintf("builtin=%d", instr.Builtin)}
	case TagSignature:
		ops := []string{fmt.Sprintf("flags=%#x", instr.Flags), fmt.Sprintf("params=%d", instr.ParamCount), fmt.Sprintf("values=%d", instr.ValueCount)}
		for _, p := range instr.Params {
			ops = append(ops, f.resolveName(p.Name))
		}
		return ops
	case TagDynSignature:
		ops := []string{fmt.Sprintf("flags=%#x", instr.Flags), fmt.Sprintf("params=%d", instr.ParamCount), fmt.Sprintf("values=%d", instr.ValueCount), fmt.Sprintf("closed=%d", instr.ClosedCount)}
		if instr.OpId1 != InvalidId {
			ops = append(ops, fmt.Sprintf("return->%d", instr.OpId1))
		}
		return ops
	case TagBindBody:
		return []string{fmt.Sprintf("body->%d", instr.OpId1)}
	case TagBindBodyWithClosure:
		return []string{fmt.Sprintf("body->%d", instr.OpId1), fmt.Sprintf("closed=%d", instr.ClosedCount)}
	case TagPrepareArgs:
		ops := make([]string, 0, len(instr.Names))
		for i, n := range instr.Names {
			ops = append(ops, fmt.Sprintf("%s=%d", f.resolveName(n), instr.Values[i]))
		}
		return ops
	case TagCompleteParamType, TagCompleteParamValue:
		return []string{fmt.Sprintf("rank=%d", instr.U8A)}
	case TagArrayPreInit, TagArrayPostInit:
		return []string{fmt.Sprintf("leading=%d", instr.LeadingElemCount), fmt.Sprintf("groups=%d", len(instr.FollowingElemCounts))}
	case TagCompositePreInit:
		ops := make([]string, 0, len(instr.CompositeNames)+1)
		ops = append(ops, fmt.Sprintf("leading=%d", instr.CompositeLeadingInitializerCount))
		for _, n := range instr.CompositeNames {
			ops = append(ops, fmt.Sprintf("%s(following=%d)", f.resolveName(n.Name), n.FollowingInitializerCount))
		}
		return ops
	case TagCompositePostInit:
		ops := make([]string, 0, len(instr.CompositeMembers))
		for _, m := range instr.CompositeMembers {
			ops = append(ops, f.resolveName(m))
		}
		return ops
	case TagIf:
		return []string{fmt.Sprintf("consequent->%d", instr.OpId1)}
	case TagIfElse:
		return []string{fmt.Sprintf("consequent->%d", instr.OpId1), fmt.Sprintf("alternative->%d", instr.OpId2)}
	case TagLoop:
		return []string{fmt.Sprintf("condition->%d", instr.OpId1), fmt.Sprintf("body->%d", instr.OpId2)}
	case TagLoopFinally:
		return []string{fmt.Sprintf("condition->%d", instr.OpId1), fmt.Sprintf("body->%d", instr.OpId2), fmt.Sprintf("finally->%d", instr.OpId3)}
	case TagSlice:
		return []string{sliceKindName(instr.SliceKind)}
	case TagBinaryArithmeticOp:
		return []string{arithKindName(instr.ArithKind)}
	case TagShift:
		if instr.ShiftKind == ShiftLeft {
			return []string{"left"}
		}
		return []string{"right"}
	case TagBinaryBitwiseOp:
		return []string{bitwiseKindName(instr.BitwiseKind)}
	case TagCompare:
		return []string{compareKindName(instr.CompareKind)}
	case TagReferenceType:
		return []string{refFlagsName(instr.RefFlags)}
	case TagValueInteger:
		return []string{fmt.Sprintf("%d", instr.Int64)}
	case TagValueFloat:
		return []string{fmt.Sprintf("%g", instr.Float64)}
	case TagValueString:
		return []string{fmt.Sprintf("str#%d", instr.ForeverVal)}
	case TagJumpTable:
		ops := make([]string, 0, len(instr.JumpCases)+1)
		for _, c := range instr.JumpCases {
			ops = append(ops, fmt.Sprintf("%d->%d", c.Value, c.Target))
		}
		return append(ops, fmt.Sprintf("default->%d", instr.JumpDefault))
	default:
		return nil
	}
}

func sliceKindName(k SliceKind) string {
	switch k {
	case SliceNoBounds:
		return "noBounds"
	case SliceBeginBound:
		return "beginBound"
	case SliceEndBound:
		return "endBound"
	default:
		return "bothBounds"
	}
}

func arithKindName(k ArithmeticKind) string {
	names := [...]string{"add", "sub", "mul", "div", "mod", "add!", "sub!", "mul!"}
	if int(k) < len(names) {
		return names[k]
	}
	return "?"
}

func bitwiseKindName(k BitwiseKind) string {
	switch k {
	case BitwiseAnd:
		return "and"
	case BitwiseOr:
		return "or"
	default:
		return "xor"
	}
}

func compareKindName(k CompareKind) string {
	names := [...]string{"lt", "le", "gt", "ge", "ne", "eq"}
	if int(k) < len(names) {
		return names[k]
	}
	return "?"
}

func refFlagsName(f ReferenceTypeFlags) string {
	kind := "ptr"
	if f&RefIsSlice != 0 {
		kind = "slice"
	}
	suffix := ""
	if f&RefIsMut != 0 {
		suffix += " mut"
	}
	if f&RefIsMulti != 0 {
		suffix += " multi"
	}
	if f&RefIsOpt != 0 {
		suffix += " opt"
	}
	return kind + suffix
}
