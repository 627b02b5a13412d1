package config

import (
	"strings"
	"testing"

	"frontc/internal/diag"
)

func load(t *testing.T, content string) (*Config, bool, string) {
	t.Helper()
	sources := diag.NewRegistry()
	var out strings.Builder
	sink := diag.NewSink(&out, sources)
	id := sources.AddFile("test.toml", []byte(content))
	cfg, ok := Load(sink, id, []byte(content))
	return cfg, ok, out.String()
}

func TestLoadParsesTablesAndDottedKeys(t *testing.T) {
	cfg, ok, diags := load(t, `
entrypoint.filepath = "main.sn"

[std]
filepath = "std.sn"

[logging.asts]
enable = true
log-file = "ast.log"
`)
	if !ok {
		t.Fatalf("expected Load to succeed, got diagnostics:\n%s", diags)
	}
	if cfg.EntrypointFilepath != "main.sn" {
		t.Fatalf("expected entrypoint.filepath main.sn, got %q", cfg.EntrypointFilepath)
	}
	if cfg.StdFilepath != "std.sn" {
		t.Fatalf("expected std.filepath std.sn, got %q", cfg.StdFilepath)
	}
	if !cfg.LoggingAstsEnable {
		t.Fatalf("expected logging.asts.enable true")
	}
	if cfg.LoggingAstsLogFile != "ast.log" {
		t.Fatalf("expected logging.asts.log-file ast.log, got %q", cfg.LoggingAstsLogFile)
	}
}

func TestLoadIgnoresCommentsAndBlankLines(t *testing.T) {
	cfg, ok, diags := load(t, `
# a full-line comment
entrypoint.symbol = "main" # trailing comment

`)
	if !ok {
		t.Fatalf("expected Load to succeed, got diagnostics:\n%s", diags)
	}
	if cfg.EntrypointSymbol != "main" {
		t.Fatalf("expected entrypoint.symbol main, got %q", cfg.EntrypointSymbol)
	}
}

func TestLoadInlineTableExpandsToDottedKeys(t *testing.T) {
	cfg, ok, diags := load(t, `logging = { config = { enable = true } }`)
	if !ok {
		t.Fatalf("expected Load to succeed, got diagnostics:\n%s", diags)
	}
	if !cfg.LoggingConfigEnable {
		t.Fatalf("expected the nested inline table to set logging.config.enable")
	}
}

func TestLoadRejectsArrays(t *testing.T) {
	_, ok, diags := load(t, `entrypoint.filepath = ["a.sn", "b.sn"]`)
	if ok {
		t.Fatalf("expected Load to fail on an array value")
	}
	if !strings.Contains(diags, "arrays are not supported") {
		t.Fatalf("expected an arrays-not-supported diagnostic, got:\n%s", diags)
	}
}

func TestLoadRejectsArrayOfTables(t *testing.T) {
	_, ok, diags := load(t, `[[sources]]`)
	if ok {
		t.Fatalf("expected Load to fail on an array-of-tables header")
	}
	if !strings.Contains(diags, "arrays of tables are not supported") {
		t.Fatalf("expected an array-of-tables diagnostic, got:\n%s", diags)
	}
}

func TestLoadRejectsMalformedLine(t *testing.T) {
	_, ok, diags := load(t, `not a key value line`)
	if ok {
		t.Fatalf("expected Load to fail on a line with no '='")
	}
	if !strings.Contains(diags, "test.toml") {
		t.Fatalf("expected the diagnostic to name the source file, got:\n%s", diags)
	}
}

func TestLoadRejectsWrongTypeForBoolKey(t *testing.T) {
	_, ok, diags := load(t, `logging.asts.enable = "yes"`)
	if ok {
		t.Fatalf("expected Load to fail when a bool key gets a string value")
	}
	if !strings.Contains(diags, "wrong value type") {
		t.Fatalf("expected a wrong-value-type diagnostic, got:\n%s", diags)
	}
}

func TestSchemaListsRecognisedKeys(t *testing.T) {
	s := Schema()
	for _, key := range []string{"entrypoint.filepath", "logging.asts.enable", "logging.config.enable"} {
		if !strings.Contains(s, key) {
			t.Fatalf("expected Schema() to mention %q, got:\n%s", key, s)
		}
	}
}
