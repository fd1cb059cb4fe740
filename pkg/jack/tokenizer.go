package jack

import (
	"fmt"
	"strings"
)

// ----------------------------------------------------------------------------
// Jack Tokenizer

// The Tokenizer consumes raw Jack source and produces tokens on demand. It strips both
// line ('// ...') and block ('/* ... */') comments at line-scan granularity, tracking
// whether it's inside a block comment across line boundaries, before any token is read
// off the line. Strings are read as atomic runs once comments have already been removed.
type Tokenizer struct {
	lines       []string // Raw source split by line, comments get stripped line by line in nextLine
	lineNo      int      // Index of the next raw line to pull into 'current'
	current     string   // The remainder of the current (post-comment-stripping) line
	inBlock     bool     // Tracks whether we're inside a still-open block comment
	token       string   // The lexeme of the last token produced by Advance
	kind        TokenKind
}

type TokenKind string

const (
	KeywordTok    TokenKind = "keyword"
	SymbolTok     TokenKind = "symbol"
	IdentifierTok TokenKind = "identifier"
	IntConstTok   TokenKind = "integerConstant"
	StringTok     TokenKind = "stringConstant"
)

// The fixed Jack keyword set, anything else starting w/ a letter or '_' is an Identifier.
var keywords = map[string]bool{
	"class": true, "constructor": true, "function": true, "method": true,
	"field": true, "static": true, "var": true, "int": true, "char": true,
	"boolean": true, "void": true, "true": true, "false": true, "null": true,
	"this": true, "let": true, "do": true, "if": true, "else": true,
	"while": true, "return": true,
}

// The fixed Jack symbol set, single characters only.
const symbols = "{}()[].,;+-*/&|<>=~"

// Initializes and returns to the caller a brand new 'Tokenizer' struct, ready to scan 'source'.
func NewTokenizer(source string) *Tokenizer {
	return &Tokenizer{lines: strings.Split(source, "\n")}
}

// Whether there's still input left to be tokenized, either on the current (partially
// consumed) line or on one of the lines not yet pulled in.
func (t *Tokenizer) HasMoreTokens() bool {
	return len(strings.TrimSpace(t.current)) > 0 || t.lineNo < len(t.lines)
}

// Advances the tokenizer by one token, updating 'token' and 'kind' accordingly.
// Returns false once the source has been fully consumed (never looks back).
func (t *Tokenizer) Advance() bool {
	for {
		if strings.TrimSpace(t.current) == "" {
			if !t.nextLine() {
				return false
			}
			continue
		}

		t.current = strings.TrimLeft(t.current, " \t\r")
		if t.current == "" {
			continue
		}

		head := t.current[0]

		switch {
		case head == '"':
			end := strings.IndexByte(t.current[1:], '"')
			if end == -1 { // Malformed, unterminated string: tolerate it by taking the rest of the line
				t.token, t.kind = t.current[1:], StringTok
				t.current = ""
				return true
			}
			t.token, t.kind = t.current[1:1+end], StringTok
			t.current = t.current[2+end:]
			return true

		case strings.IndexByte(symbols, head) != -1:
			t.token, t.kind = string(head), SymbolTok
			t.current = t.current[1:]
			return true

		case head >= '0' && head <= '9':
			i := 0
			for i < len(t.current) && t.current[i] >= '0' && t.current[i] <= '9' {
				i++
			}
			t.token, t.kind = t.current[:i], IntConstTok
			t.current = t.current[i:]
			return true

		case isIdentStart(head):
			i := 0
			for i < len(t.current) && isIdentRune(t.current[i]) {
				i++
			}
			t.token = t.current[:i]
			t.current = t.current[i:]
			if keywords[t.token] {
				t.kind = KeywordTok
			} else {
				t.kind = IdentifierTok
			}
			return true

		default: // Malformed input tolerated silently: skip the offending rune and keep scanning
			t.current = t.current[1:]
		}
	}
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentRune(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// Pulls the next raw line into 'current', stripping line/block comments as it goes.
// Returns false once there are no more lines to pull.
func (t *Tokenizer) nextLine() bool {
	if t.lineNo >= len(t.lines) {
		return false
	}

	line := t.lines[t.lineNo]
	t.lineNo++

	if t.inBlock {
		if end := strings.Index(line, "*/"); end != -1 {
			line, t.inBlock = line[end+2:], false
		} else {
			t.current = ""
			return true
		}
	}

	// Repeatedly strip block comments that both open and close on the same (remaining) line
	for {
		start := strings.Index(line, "/*")
		if start == -1 {
			break
		}
		if end := strings.Index(line[start:], "*/"); end != -1 {
			line = line[:start] + " " + line[start+end+2:]
			continue
		}
		line, t.inBlock = line[:start], true
		break
	}

	if idx := strings.Index(line, "//"); idx != -1 {
		line = line[:idx]
	}

	t.current = line
	return true
}

// Returns the lexeme and kind of the last token produced by 'Advance'.
func (t *Tokenizer) Token() (string, TokenKind) { return t.token, t.kind }

func (t *Tokenizer) String() string { return fmt.Sprintf("%s(%q)", t.kind, t.token) }
