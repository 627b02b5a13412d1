// Package config loads the driver's configuration file: a TOML-ish
// subset (tables, inline tables, dotted keys, key-value pairs,
// integer/boolean/string/path values, `#` line comments). Hand-rolled
// rather than imported because none of the teacher's or the pack's
// dependencies vendor a TOML parser; see DESIGN.md for why that gap
// stays a stdlib-only corner instead of reaching for an out-of-pack
// dependency.
//
// Grounded on the teacher's former internal/buildutil.BuildConfig for
// the shape of "a flat settings struct a CLI populates before running
// the pipeline," and on internal/diag for reporting malformed input at
// a resolvable source location instead of a bare error string.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"frontc/internal/diag"
)

// Config is the flattened result of loading the recognised keys listed
// in spec.md's external-interfaces section. Fields left unset by the
// file keep their zero value.
type Config struct {
	EntrypointFilepath string
	EntrypointSymbol   string

	StdFilepath string

	LoggingAstsEnable  bool
	LoggingAstsLogFile string // empty means stdout

	LoggingImportsEnable        bool
	LoggingImportsEnablePrelude bool
	LoggingImportsLogFile       string

	LoggingConfigEnable bool
}

// schema pairs every recognised dotted key with a human-readable type
// name, in declaration order; used both to validate assignments and to
// print --help's config schema (spec.md §6).
var schema = []struct {
	key  string
	kind string
}{
	{"entrypoint.filepath", "path"},
	{"entrypoint.symbol", "string"},
	{"std.filepath", "path"},
	{"logging.asts.enable", "bool"},
	{"logging.asts.log-file", "path"},
	{"logging.imports.enable", "bool"},
	{"logging.imports.enable-prelude", "bool"},
	{"logging.imports.log-file", "path"},
	{"logging.config.enable", "bool"},
}

// Schema renders the recognised-keys table --help prints.
func Schema() string {
	var b strings.Builder
	b.WriteString("recognised configuration keys:\n")
	for _, e := range schema {
		fmt.Fprintf(&b, "  %-32s %s\n", e.key, e.kind)
	}
	return b.String()
}

func kindOf(key string) (string, bool) {
	for _, e := range schema {
		if e.key == key {
			return e.kind, true
		}
	}
	return "", false
}

// Load parses content (already read from path) into a Config. sourceID
// is content's id within sources, used so diagnostics resolve to a
// file:line:col. Returns (cfg, true) on success; on malformed input it
// reports via sink and returns (nil, false) — callers exit non-zero,
// per spec.md §6's "the loader issues a diagnostic and exits."
func Load(sink *diag.Sink, sourceID diag.SourceID, content []byte) (*Config, bool) {
	cfg := &Config{}
	lines := strings.Split(string(content), "\n")

	offset := 0
	prefix := ""
	ok := true
	for _, raw := range lines {
		line := strings.TrimRight(raw, "\r")
		lineOffset := offset
		offset += len(raw) + 1

		trimmed := strings.TrimSpace(stripComment(line))
		if trimmed == "" {
			continue
		}

		if strings.HasPrefix(trimmed, "[[") {
			sink.PrintError(diag.Location{Source: sourceID, Offset: lineOffset}, "config",
				"arrays of tables are not supported")
			ok = false
			continue
		}

		if strings.HasPrefix(trimmed, "[") {
			if !strings.HasSuffix(trimmed, "]") {
				sink.PrintError(diag.Location{Source: sourceID, Offset: lineOffset}, "config",
					"unterminated table header")
				ok = false
				continue
			}
			prefix = strings.TrimSpace(trimmed[1 : len(trimmed)-1])
			continue
		}

		eq := strings.IndexByte(trimmed, '=')
		if eq < 0 {
			sink.PrintError(diag.Location{Source: sourceID, Offset: lineOffset}, "config",
				"expected 'key = value'")
			ok = false
			continue
		}

		key := strings.TrimSpace(trimmed[:eq])
		valueText := strings.TrimSpace(trimmed[eq+1:])
		fullKey := joinKey(prefix, key)

		value, kind, perr := parseValue(valueText)
		if perr != "" {
			sink.PrintError(diag.Location{Source: sourceID, Offset: lineOffset}, "config", "%s", perr)
			ok = false
			continue
		}

		if kind == kindArray {
			sink.PrintError(diag.Location{Source: sourceID, Offset: lineOffset}, "config",
				"arrays are not supported")
			ok = false
			continue
		}
		if badKey, failed := assignValue(cfg, fullKey, value); failed {
			sink.PrintError(diag.Location{Source: sourceID, Offset: lineOffset}, "config",
				"%s: wrong value type", badKey)
			ok = false
		}
	}

	if !ok {
		return nil, false
	}
	return cfg, true
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}

func stripComment(line string) string {
	inString := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			inString = !inString
		case '#':
			if !inString {
				return line[:i]
			}
		}
	}
	return line
}

const (
	kindScalar = iota
	kindArray
	kindTable
)

// parseValue reads one TOML-ish value: a quoted string, bool, integer,
// bracketed array (reported, never decoded), inline table, or a bare
// unquoted path/string literal.
func parseValue(text string) (interface{}, int, string) {
	if text == "" {
		return nil, kindScalar, "missing value"
	}
	switch text[0] {
	case '"':
		s, err := unquote(text)
		if err != "" {
			return nil, kindScalar, err
		}
		return s, kindScalar, ""
	case '[':
		return nil, kindArray, ""
	case '{':
		return parseInlineTable(text)
	}
	if text == "true" {
		return true, kindScalar, ""
	}
	if text == "false" {
		return false, kindScalar, ""
	}
	if v, err := strconv.ParseInt(text, 10, 64); err == nil {
		return v, kindScalar, ""
	}
	// Bare word: an unquoted path or identifier-like string, the
	// loader's one deliberate looseness beyond strict TOML.
	return text, kindScalar, ""
}

func unquote(text string) (string, string) {
	if len(text) < 2 || text[len(text)-1] != '"' {
		return "", "unterminated string"
	}
	inner := text[1 : len(text)-1]
	var b strings.Builder
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(inner) {
			return "", "dangling escape in string"
		}
		switch inner[i] {
		case '"':
			b.WriteByte('"')
		case '\\':
			b.WriteByte('\\')
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		default:
			return "", fmt.Sprintf("unsupported escape '\\%c'", inner[i])
		}
	}
	return b.String(), ""
}

// parseInlineTable parses `{ a = 1, b = { c = true } }` into a map,
// nested inline tables included; only arrays stay unsupported.
func parseInlineTable(text string) (interface{}, int, string) {
	if len(text) < 2 || text[len(text)-1] != '}' {
		return nil, kindScalar, "unterminated inline table"
	}
	inner := strings.TrimSpace(text[1 : len(text)-1])
	out := map[string]interface{}{}
	if inner == "" {
		return out, kindTable, ""
	}
	for _, entry := range splitTopLevel(inner, ',') {
		eq := strings.IndexByte(entry, '=')
		if eq < 0 {
			return nil, kindScalar, "expected 'key = value' in inline table"
		}
		key := strings.TrimSpace(entry[:eq])
		value, kind, err := parseValue(strings.TrimSpace(entry[eq+1:]))
		if err != "" {
			return nil, kindScalar, err
		}
		if kind == kindArray {
			return nil, kindScalar, "arrays are not supported in an inline table"
		}
		out[key] = value
	}
	return out, kindTable, ""
}

// splitTopLevel splits on sep, ignoring occurrences inside a quoted
// string or inside nested braces/brackets.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	inString := false
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			inString = !inString
		case '{', '[':
			if !inString {
				depth++
			}
		case '}', ']':
			if !inString {
				depth--
			}
		case sep:
			if !inString && depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// assignValue writes value into cfg, recursing through nested inline
// tables so `logging = { config = { enable = true } }` reaches the same
// field `[logging.config] enable = true` would. Returns the dotted key
// that failed a type check, if any.
func assignValue(cfg *Config, key string, value interface{}) (badKey string, failed bool) {
	if nested, isTable := value.(map[string]interface{}); isTable {
		for subKey, subValue := range nested {
			if bad, f := assignValue(cfg, joinKey(key, subKey), subValue); f {
				return bad, true
			}
		}
		return "", false
	}
	if !assign(cfg, key, value) {
		return key, true
	}
	return "", false
}

// assign writes a scalar value into cfg's field for key, type-checking
// against schema. Unrecognised keys are accepted and ignored (forward
// compatibility: spec.md only fixes the meaning of the keys it lists).
func assign(cfg *Config, key string, value interface{}) bool {
	kind, known := kindOf(key)
	if !known {
		return true
	}
	switch kind {
	case "bool":
		b, ok := value.(bool)
		if !ok {
			return false
		}
		switch key {
		case "logging.asts.enable":
			cfg.LoggingAstsEnable = b
		case "logging.imports.enable":
			cfg.LoggingImportsEnable = b
		case "logging.imports.enable-prelude":
			cfg.LoggingImportsEnablePrelude = b
		case "logging.config.enable":
			cfg.LoggingConfigEnable = b
		}
	case "string", "path":
		s, ok := value.(string)
		if !ok {
			return false
		}
		switch key {
		case "entrypoint.filepath":
			cfg.EntrypointFilepath = s
		case "entrypoint.symbol":
			cfg.EntrypointSymbol = s
		case "std.filepath":
			cfg.StdFilepath = s
		case "logging.asts.log-file":
			cfg.LoggingAstsLogFile = s
		case "logging.imports.log-file":
			cfg.LoggingImportsLogFile = s
		}
	}
	return true
}
