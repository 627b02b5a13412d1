package lexer

import (
	"strings"
	"testing"
)

func scanTags(t *testing.T, src string) []Tag {
	t.Helper()
	toks := New([]byte(src)).ScanAll()
	tags := make([]Tag, len(toks))
	for i, tok := range toks {
		tags[i] = tok.Tag
	}
	return tags
}

func assertTags(t *testing.T, src string, want ...Tag) {
	t.Helper()
	want = append(want, TagEOF)
	got := scanTags(t, src)
	if len(got) != len(want) {
		t.Fatalf("scanning %q: got %d tokens %v, want %d %v", src, len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("scanning %q: token %d = %v, want %v", src, i, got[i], want[i])
		}
	}
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	assertTags(t, "if else proc myVar", TagIf, TagElse, TagProc, TagIdentifier)
}

func TestOperatorLongestMatch(t *testing.T) {
	assertTags(t, "<<= << <= < -> <- => :: ...",
		TagShlEqual, TagShl, TagLessEqual, TagLess, TagArrowRight, TagArrowLeft, TagFatArrow, TagColonColon, TagEllipsis)
}

func TestNumberLiterals(t *testing.T) {
	assertTags(t, "0x1F 0b101 1_000 3.14 1e10 2.5e-3", TagLitInt, TagLitInt, TagLitInt, TagLitFloat, TagLitFloat, TagLitFloat)
}

func TestBadNumber(t *testing.T) {
	assertTags(t, "123abc", TagLitBadNumber)
}

func TestStringAndCharLiterals(t *testing.T) {
	toks := New([]byte(`"hello" 'a'`)).ScanAll()
	if toks[0].Tag != TagLitString || toks[1].Tag != TagLitChar {
		t.Fatalf("unexpected tags: %v %v", toks[0].Tag, toks[1].Tag)
	}
}

func TestLineCommentsSkipped(t *testing.T) {
	assertTags(t, "if // comment\nelse", TagIf, TagElse)
}

func TestNestedBlockComments(t *testing.T) {
	assertTags(t, "if /* outer /* inner */ still outer */ else", TagIf, TagElse)
}

func TestUnterminatedBlockComment(t *testing.T) {
	src := "if /* never closes"
	toks := New([]byte(src)).ScanAll()
	if toks[0].Tag != TagIf {
		t.Fatalf("expected first token If, got %v", toks[0].Tag)
	}
	tok := toks[len(toks)-2]
	if tok.Tag != TagIncompleteComment {
		t.Fatalf("expected IncompleteComment before EOF, got %v", tok.Tag)
	}
	// The token must span from the opening "/*" to EOF, not collapse to
	// a zero-width token at EOF, so the diagnostic it produces points at
	// the comment instead of the last byte of the file.
	wantStart := strings.Index(src, "/*")
	if tok.Start != wantStart {
		t.Fatalf("expected Start at the opening '/*' (%d), got %d", wantStart, tok.Start)
	}
	if tok.End != len(src) {
		t.Fatalf("expected End at EOF (%d), got %d", len(src), tok.End)
	}
	if tok.Line != 1 {
		t.Fatalf("expected Line 1, got %d", tok.Line)
	}
}

func TestUnterminatedBlockCommentLocatesOpeningAcrossLines(t *testing.T) {
	src := "x := 1\n/* opens here\nand never\ncloses"
	toks := New([]byte(src)).ScanAll()
	tok := toks[len(toks)-2]
	if tok.Tag != TagIncompleteComment {
		t.Fatalf("expected IncompleteComment before EOF, got %v", tok.Tag)
	}
	wantStart := strings.Index(src, "/*")
	if tok.Start != wantStart {
		t.Fatalf("expected Start at the opening '/*' (%d), got %d", wantStart, tok.Start)
	}
	if tok.Line != 2 {
		t.Fatalf("expected Line 2 (where the comment opens), got %d", tok.Line)
	}
}

func TestLineNumbersTrackNewlines(t *testing.T) {
	toks := New([]byte("if\nelse\nproc")).ScanAll()
	if toks[0].Line != 1 || toks[1].Line != 2 || toks[2].Line != 3 {
		t.Fatalf("unexpected line numbers: %d %d %d", toks[0].Line, toks[1].Line, toks[2].Line)
	}
}
