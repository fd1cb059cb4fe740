package jack_test

import (
	"testing"

	"its-hmny.dev/nand2tetris/pkg/jack"
)

func TestTokenizerBasic(t *testing.T) {
	source := `class Main {
		// a line comment that should be fully stripped
		function void main() {
			let x = 1 + 2;
			return;
		}
	}`

	expected := []struct {
		lexeme string
		kind   jack.TokenKind
	}{
		{"class", jack.KeywordTok}, {"Main", jack.IdentifierTok}, {"{", jack.SymbolTok},
		{"function", jack.KeywordTok}, {"void", jack.KeywordTok}, {"main", jack.IdentifierTok},
		{"(", jack.SymbolTok}, {")", jack.SymbolTok}, {"{", jack.SymbolTok},
		{"let", jack.KeywordTok}, {"x", jack.IdentifierTok}, {"=", jack.SymbolTok},
		{"1", jack.IntConstTok}, {"+", jack.SymbolTok}, {"2", jack.IntConstTok}, {";", jack.SymbolTok},
		{"return", jack.KeywordTok}, {";", jack.SymbolTok},
		{"}", jack.SymbolTok}, {"}", jack.SymbolTok},
	}

	tok := jack.NewTokenizer(source)
	for i, want := range expected {
		if !tok.Advance() {
			t.Fatalf("expected token #%d (%q), got end of stream", i, want.lexeme)
		}
		lexeme, kind := tok.Token()
		if lexeme != want.lexeme || kind != want.kind {
			t.Errorf("token #%d: expected %s(%q), got %s(%q)", i, want.kind, want.lexeme, kind, lexeme)
		}
	}

	if tok.Advance() {
		lexeme, _ := tok.Token()
		t.Errorf("expected end of stream, got extra token %q", lexeme)
	}
}

func TestTokenizerBlockComments(t *testing.T) {
	source := "/** a doc comment\n * spanning several lines\n */\nlet /* inline */ x = 1;"

	tok := jack.NewTokenizer(source)
	expected := []string{"let", "x", "=", "1", ";"}

	for i, want := range expected {
		if !tok.Advance() {
			t.Fatalf("expected token #%d (%q), got end of stream", i, want)
		}
		lexeme, _ := tok.Token()
		if lexeme != want {
			t.Errorf("token #%d: expected %q, got %q", i, want, lexeme)
		}
	}
}

func TestTokenizerStringConstant(t *testing.T) {
	source := `do Output.printString("hello, world!");`

	tok := jack.NewTokenizer(source)
	var found bool

	for tok.Advance() {
		lexeme, kind := tok.Token()
		if kind == jack.StringTok {
			found = true
			if lexeme != "hello, world!" {
				t.Errorf("expected string constant %q, got %q", "hello, world!", lexeme)
			}
		}
	}

	if !found {
		t.Fatalf("expected to find a string constant token")
	}
}
