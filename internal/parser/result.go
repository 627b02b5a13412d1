package parser

import "frontc/internal/lexer"

// Kind discriminates a Result the way ast::Result::Tag does in the
// original: Ok, or one of four failure shapes.
type Kind uint8

const (
	Ok Kind = iota
	UnexpectedEndOfStream
	UnexpectedToken
	InvalidSyntax
	OutOfMemory
)

var kindNames = map[Kind]string{
	Ok: "Ok", UnexpectedEndOfStream: "UnexpectedEndOfStream",
	UnexpectedToken: "UnexpectedToken", InvalidSyntax: "InvalidSyntax",
	OutOfMemory: "OutOfMemory",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "?"
}

// Result is what ParseFile returns: Ok, or exactly one of the four failure
// shapes spec.md's parser section lists. Fields beyond Kind/Context are
// populated only for the shapes that use them.
type Result struct {
	Kind Kind

	// Context names the production that was being parsed when parsing
	// stopped, e.g. "Expr", "Definition", "For" — mirrors
	// the original's file-scope `ctx` constants.
	Context string

	// ExpectedTag is set for UnexpectedToken.
	ExpectedTag lexer.Tag

	// Got is the offending token; unset (zero Token) for
	// UnexpectedEndOfStream, which by definition ran out of tokens.
	Got lexer.Token

	// Message is a human-readable detail for InvalidSyntax/OutOfMemory.
	Message string
}

func (r Result) IsOk() bool { return r.Kind == Ok }

// parseError is the panic payload every failing parse production raises
// internally; ParseFile recovers it at the top level and turns it into a
// Result. This mirrors the teacher's own internal/parser, which raises
// a typed syntax error via panic and lets callers recover — adapted
// here to carry the richer failure shape spec.md's parser requires
// instead of a single syntax-error type.
type parseError struct {
	result Result
}

func (e *parseError) Error() string { return e.result.Message }
