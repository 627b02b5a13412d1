// Package driver is the C11 Driver from spec.md §4.11: it owns one
// each of the core pools, builds them from a configuration file, runs
// one compilation through lexer -> parser -> (semantic pass, left
// conceptual per spec.md's pipeline diagram) -> opcode emission, and
// tears them down in reverse order. Grounded on the teacher's
// cmd/sentra/main.go checkSyntax/runFile idiom (read the source,
// lex/parse inside a recover, report and stop on the first failure)
// generalised from a single hand-rolled function into an explicit
// CoreData/CreateCoreData/RunCompilation/ReleaseCoreData API so
// cmd/frontc can drive it without reaching into the pools directly.
package driver

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/ncruces/go-strftime"
	"github.com/pkg/errors"

	"frontc/internal/allocpool"
	"frontc/internal/ast"
	"frontc/internal/config"
	"frontc/internal/diag"
	"frontc/internal/formatter"
	"frontc/internal/hostsvc"
	"frontc/internal/identifierpool"
	"frontc/internal/lowering"
	"frontc/internal/opcode"
	"frontc/internal/parser"
	"frontc/internal/typepool"
)

const (
	allocBlockBytes       = 64 << 10
	opcodeReserveBytes    = 64 << 20
	opcodeCommitIncrement = 1 << 20
)

// CoreData is the single-owner bundle spec.md §4.11 describes: one
// AllocPool, identifier pool, type pool, opcode pool, and a source
// reader (hostsvc.Services), plus the ambient pieces a driver binary
// needs around them (the diagnostic sink its Registry is built on, the
// loaded Config, and a RunID stamping this invocation's diagnostics so
// two overlapping log streams — logging.asts and logging.imports to
// the same terminal, say — can be told apart).
type CoreData struct {
	Host *hostsvc.Services

	Alloc  *allocpool.Pool
	Idents *identifierpool.Pool
	Types  *typepool.Pool
	Code   *opcode.Pool

	Sources *diag.Registry
	Sink    *diag.Sink
	Config  *config.Config

	RunID uuid.UUID
}

// CreateCoreData reads and loads configPath, then instantiates every
// pool the core needs. The config file's own parse/type errors are
// reported through the returned Sink before CreateCoreData fails; a
// missing or unreadable file is wrapped with errors.Wrapf and reported
// with no resolvable location (spec.md has no source position for "the
// file doesn't exist").
func CreateCoreData(configPath string) (*CoreData, bool) {
	host := hostsvc.New()
	sources := diag.NewRegistry()
	sink := diag.NewSink(os.Stderr, sources)

	content, err := host.ReadFile(configPath)
	if err != nil {
		sink.PrintError(diag.Location{Source: diag.InvalidSourceID}, "driver",
			"%v", errors.Wrapf(err, "could not load configuration"))
		return nil, false
	}

	sourceID := sources.AddFile(configPath, content)
	cfg, ok := config.Load(sink, sourceID, content)
	if !ok {
		return nil, false
	}

	page := host.PageBytes()
	core := &CoreData{
		Host:    host,
		Alloc:   allocpool.New(roundUpToPage(allocBlockBytes, page)),
		Idents:  identifierpool.New(),
		Types:   typepool.New(),
		Code:    opcode.NewPool(opcodeReserveBytes, roundUpToPage(opcodeCommitIncrement, page)),
		Sources: sources,
		Sink:    sink,
		Config:  cfg,
		RunID:   uuid.New(),
	}
	return core, true
}

// roundUpToPage rounds n up to the nearest whole multiple of the host's
// page size, so AllocPool's blocks and the opcode ReservedVec's commit
// increment each land on a page boundary the OS would have committed in
// full anyway.
func roundUpToPage(n, pageBytes int) int {
	if pageBytes <= 0 {
		return n
	}
	return (n + pageBytes - 1) &^ (pageBytes - 1)
}

// RunCompilation runs the lexer, parser, and opcode lowering pass over
// either the entrypoint file or the standard-library file (isStdMode),
// per spec.md §4.11's "run lexer -> parser -> (semantic pass) -> emit."
// The semantic/type-checking pass spec.md's pipeline diagram marks
// conceptual has no component here yet — see internal/typepool's
// ledger entry — so emission runs directly off the parsed tree, the
// same narrowing internal/lowering's own doc comment describes.
//
// Returns false on any lex, parse, or lowering failure; diagnostics are
// already on core.Sink by the time it returns.
func RunCompilation(core *CoreData, isStdMode bool) bool {
	path := core.Config.EntrypointFilepath
	if isStdMode {
		path = core.Config.StdFilepath
	}
	if path == "" {
		core.Sink.PrintError(diag.Location{Source: diag.InvalidSourceID}, "driver",
			"no source file configured for this run")
		return false
	}

	content, err := core.Host.ReadFile(path)
	if err != nil {
		core.Sink.PrintError(diag.Location{Source: diag.InvalidSourceID}, "driver",
			"%v", errors.Wrapf(err, "could not read %q", path))
		return false
	}
	sourceID := core.Sources.AddFile(path, content)

	tree, result := parser.ParseFile(content, uint32(sourceID), core.Idents)
	if !result.IsOk() {
		core.Sink.PrintError(parseFailureLocation(sourceID, content, result), "parser",
			"%s", parseFailureMessage(result))
		return false
	}

	if core.Config.LoggingAstsEnable {
		logAst(core, tree)
	}

	fileIndex := opcode.GlobalFileIndex(0)
	if isStdMode {
		fileIndex = opcode.GlobalFileIndex(1)
	}
	codeStart := core.Code.Here()
	lowerer := lowering.New(core.Code, core.Idents, core.Sink, sourceID, fileIndex)
	ok := lowerer.LowerFile(tree)

	// spec.md §6 names a log format for the opcode stream but no
	// dedicated config key to switch it on; logging.asts.enable already
	// toggles "print this run's structural output", so it covers the
	// opcode stream too rather than inventing an unrecognised key.
	if core.Config.LoggingAstsEnable {
		logOpcodes(core, codeStart)
	}

	if core.Config.LoggingConfigEnable {
		fmt.Fprintf(os.Stderr, "[%s] run %s: entrypoint=%q std-mode=%v\n",
			buildBanner(), core.RunID, path, isStdMode)
	}

	return ok
}

// ReleaseCoreData tears pools down in strictly reverse construction
// order, matching spec.md §4.11's "release_core_data ... tear down in
// reverse order": opcode pool, then type pool, then identifier pool,
// then alloc pool last since the others may have allocated out of it
// indirectly through shared arena conventions elsewhere in the core.
func ReleaseCoreData(core *CoreData) {
	core.Code.Release()
	core.Types.Release()
	core.Idents.Release()
	core.Alloc.Release()
}

func parseFailureLocation(sourceID diag.SourceID, content []byte, result parser.Result) diag.Location {
	offset := result.Got.Start
	if offset == 0 && result.Got.End == 0 {
		offset = len(content)
	}
	return diag.Location{Source: sourceID, Offset: offset}
}

func parseFailureMessage(result parser.Result) string {
	switch {
	case result.Message != "":
		return result.Message
	case result.Context != "":
		return fmt.Sprintf("%s while parsing %s", result.Kind, result.Context)
	default:
		return result.Kind.String()
	}
}

func logAst(core *CoreData, tree *ast.Tree) {
	f := formatter.NewFormatter(core.Idents)
	out := f.Format(tree, tree.Root())
	if core.Config.LoggingAstsLogFile == "" {
		fmt.Fprint(os.Stdout, out)
		return
	}
	_ = core.Host.WriteFile(core.Config.LoggingAstsLogFile, []byte(out))
}

func logOpcodes(core *CoreData, start opcode.Id) {
	resolve := func(id opcode.IdentifierId) string {
		entry := core.Idents.EntryFrom(identifierpool.Id(id))
		if entry == nil {
			return fmt.Sprintf("id#%d", id)
		}
		return string(entry)
	}
	f := opcode.NewFormatter(resolve)
	out := f.Format(core.Code, start)
	if core.Config.LoggingAstsLogFile == "" {
		fmt.Fprint(os.Stdout, out)
		return
	}
	_ = core.Host.WriteFile(core.Config.LoggingAstsLogFile, []byte(out))
}

// buildBanner renders the date shown in the logging.config.enable
// banner line, strftime-formatted
// per the domain-stack wiring (replacing the teacher's hand-rolled
// time.Now().Format("2006-01-02")).
func buildBanner() string {
	s, err := strftime.Format("%Y-%m-%d", time.Now().UTC())
	if err != nil {
		return "unknown-date"
	}
	return s
}
