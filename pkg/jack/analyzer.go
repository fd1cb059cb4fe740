package jack

import (
	"fmt"
	"io"
	"strings"
)

// ----------------------------------------------------------------------------
// Jack Analyzer

// The Analyzer shares the same Tokenizer and follows the same grammar as the Compiler (§4.2)
// but, instead of lowering to VM code, emits an indented XML parse tree mirroring it: every
// non-terminal becomes a wrapping element, every terminal becomes a leaf w/ its token kind as
// tag name. No semantic analysis (scope resolution, call-site disambiguation, ...) happens here.
type Analyzer struct {
	tok *Tokenizer

	lexeme string
	kind   TokenKind

	nLexeme string
	nKind   TokenKind

	depth int
	out   strings.Builder
}

// Initializes and returns to the caller a brand new 'Analyzer' struct.
func NewAnalyzer(r io.Reader) Analyzer {
	content, _ := io.ReadAll(r)

	a := Analyzer{tok: NewTokenizer(string(content))}
	a.fetch()
	a.advance()
	return a
}

func (a *Analyzer) advance() {
	a.lexeme, a.kind = a.nLexeme, a.nKind
	a.fetch()
}

func (a *Analyzer) fetch() {
	if a.tok.Advance() {
		a.nLexeme, a.nKind = a.tok.Token()
	} else {
		a.nLexeme, a.nKind = "", ""
	}
}

func (a *Analyzer) is(kind TokenKind, lexeme string) bool {
	return a.kind == kind && (lexeme == "" || a.lexeme == lexeme)
}

func (a *Analyzer) expect(kind TokenKind, lexeme string) error {
	if !a.is(kind, lexeme) {
		return fmt.Errorf("expected %s %q, got %s %q", kind, lexeme, a.kind, a.lexeme)
	}
	a.writeTerminal()
	a.advance()
	return nil
}

// Writes the current token as a terminal XML element, escaping the handful of special
// characters the Jack symbol set can produce ('<', '>', '&', '"').
func (a *Analyzer) writeTerminal() {
	tag := xmlTag(a.kind)
	a.writeIndent()
	fmt.Fprintf(&a.out, "<%s> %s </%s>\n", tag, escapeXML(a.lexeme), tag)
}

func xmlTag(kind TokenKind) string {
	switch kind {
	case KeywordTok:
		return "keyword"
	case SymbolTok:
		return "symbol"
	case IdentifierTok:
		return "identifier"
	case IntConstTok:
		return "integerConstant"
	case StringTok:
		return "stringConstant"
	default:
		return string(kind)
	}
}

func escapeXML(s string) string {
	replacer := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return replacer.Replace(s)
}

func (a *Analyzer) open(tag string) {
	a.writeIndent()
	fmt.Fprintf(&a.out, "<%s>\n", tag)
	a.depth++
}

func (a *Analyzer) close(tag string) {
	a.depth--
	a.writeIndent()
	fmt.Fprintf(&a.out, "</%s>\n", tag)
}

func (a *Analyzer) writeIndent() { a.out.WriteString(strings.Repeat("  ", a.depth)) }

// Tokenizer-only mode: emits a flat '<tokens>' wrapper with one leaf per token, used for the
// CLI's '-t' flag. Consumes the whole stream, it does not attempt to parse the grammar at all.
func (a *Analyzer) AnalyzeTokens() (string, error) {
	a.out.Reset()
	a.open("tokens")

	for a.kind != "" {
		a.writeTerminal()
		a.advance()
	}

	a.close("tokens")
	return a.out.String(), nil
}

// Parses and emits the full class parse tree, following the same grammar as the Compiler.
func (a *Analyzer) Analyze() (string, error) {
	a.out.Reset()
	if err := a.analyzeClass(); err != nil {
		return "", err
	}
	return a.out.String(), nil
}

func (a *Analyzer) analyzeClass() error {
	a.open("class")
	defer a.close("class")

	if err := a.expect(KeywordTok, "class"); err != nil {
		return err
	}
	if err := a.expect(IdentifierTok, ""); err != nil {
		return err
	}
	if err := a.expect(SymbolTok, "{"); err != nil {
		return err
	}

	for a.is(KeywordTok, "static") || a.is(KeywordTok, "field") {
		if err := a.analyzeClassVarDec(); err != nil {
			return err
		}
	}

	for a.is(KeywordTok, "constructor") || a.is(KeywordTok, "function") || a.is(KeywordTok, "method") {
		if err := a.analyzeSubroutine(); err != nil {
			return err
		}
	}

	return a.expect(SymbolTok, "}")
}

func (a *Analyzer) analyzeClassVarDec() error {
	a.open("classVarDec")
	defer a.close("classVarDec")

	if err := a.expect(KeywordTok, ""); err != nil { // 'static' or 'field'
		return err
	}
	if err := a.analyzeType(); err != nil {
		return err
	}
	if err := a.expect(IdentifierTok, ""); err != nil {
		return err
	}
	for a.is(SymbolTok, ",") {
		if err := a.expect(SymbolTok, ","); err != nil {
			return err
		}
		if err := a.expect(IdentifierTok, ""); err != nil {
			return err
		}
	}

	return a.expect(SymbolTok, ";")
}

func (a *Analyzer) analyzeType() error {
	switch {
	case a.is(KeywordTok, "int"), a.is(KeywordTok, "char"), a.is(KeywordTok, "boolean"), a.is(KeywordTok, "void"):
		return a.expect(a.kind, a.lexeme)
	case a.kind == IdentifierTok:
		return a.expect(IdentifierTok, "")
	default:
		return fmt.Errorf("expected a type, got %s %q", a.kind, a.lexeme)
	}
}

func (a *Analyzer) analyzeSubroutine() error {
	a.open("subroutineDec")
	defer a.close("subroutineDec")

	if err := a.expect(KeywordTok, ""); err != nil { // 'constructor'/'function'/'method'
		return err
	}
	if err := a.analyzeType(); err != nil { // 'void' or a type
		return err
	}
	if err := a.expect(IdentifierTok, ""); err != nil {
		return err
	}
	if err := a.expect(SymbolTok, "("); err != nil {
		return err
	}
	if err := a.analyzeParameterList(); err != nil {
		return err
	}
	if err := a.expect(SymbolTok, ")"); err != nil {
		return err
	}

	return a.analyzeSubroutineBody()
}

func (a *Analyzer) analyzeParameterList() error {
	a.open("parameterList")
	defer a.close("parameterList")

	if a.is(SymbolTok, ")") {
		return nil // Always emit the wrapping element, even when empty
	}

	for {
		if err := a.analyzeType(); err != nil {
			return err
		}
		if err := a.expect(IdentifierTok, ""); err != nil {
			return err
		}
		if !a.is(SymbolTok, ",") {
			break
		}
		if err := a.expect(SymbolTok, ","); err != nil {
			return err
		}
	}

	return nil
}

func (a *Analyzer) analyzeSubroutineBody() error {
	a.open("subroutineBody")
	defer a.close("subroutineBody")

	if err := a.expect(SymbolTok, "{"); err != nil {
		return err
	}

	for a.is(KeywordTok, "var") {
		if err := a.analyzeVarDec(); err != nil {
			return err
		}
	}

	if err := a.analyzeStatements(); err != nil {
		return err
	}

	return a.expect(SymbolTok, "}")
}

func (a *Analyzer) analyzeVarDec() error {
	a.open("varDec")
	defer a.close("varDec")

	if err := a.expect(KeywordTok, "var"); err != nil {
		return err
	}
	if err := a.analyzeType(); err != nil {
		return err
	}
	if err := a.expect(IdentifierTok, ""); err != nil {
		return err
	}
	for a.is(SymbolTok, ",") {
		if err := a.expect(SymbolTok, ","); err != nil {
			return err
		}
		if err := a.expect(IdentifierTok, ""); err != nil {
			return err
		}
	}

	return a.expect(SymbolTok, ";")
}

func (a *Analyzer) analyzeStatements() error {
	a.open("statements")
	defer a.close("statements")

	for {
		switch {
		case a.is(KeywordTok, "let"):
			if err := a.analyzeLetStatement(); err != nil {
				return err
			}
		case a.is(KeywordTok, "if"):
			if err := a.analyzeIfStatement(); err != nil {
				return err
			}
		case a.is(KeywordTok, "while"):
			if err := a.analyzeWhileStatement(); err != nil {
				return err
			}
		case a.is(KeywordTok, "do"):
			if err := a.analyzeDoStatement(); err != nil {
				return err
			}
		case a.is(KeywordTok, "return"):
			if err := a.analyzeReturnStatement(); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (a *Analyzer) analyzeLetStatement() error {
	a.open("letStatement")
	defer a.close("letStatement")

	if err := a.expect(KeywordTok, "let"); err != nil {
		return err
	}
	if err := a.expect(IdentifierTok, ""); err != nil {
		return err
	}
	if a.is(SymbolTok, "[") {
		if err := a.expect(SymbolTok, "["); err != nil {
			return err
		}
		if err := a.analyzeExpression(); err != nil {
			return err
		}
		if err := a.expect(SymbolTok, "]"); err != nil {
			return err
		}
	}
	if err := a.expect(SymbolTok, "="); err != nil {
		return err
	}
	if err := a.analyzeExpression(); err != nil {
		return err
	}

	return a.expect(SymbolTok, ";")
}

// The original analyzer closed '</ifStatement>' early on the no-else path, here the closing
// tag is always written via the deferred 'a.close' regardless of whether 'else' is present.
func (a *Analyzer) analyzeIfStatement() error {
	a.open("ifStatement")
	defer a.close("ifStatement")

	if err := a.expect(KeywordTok, "if"); err != nil {
		return err
	}
	if err := a.expect(SymbolTok, "("); err != nil {
		return err
	}
	if err := a.analyzeExpression(); err != nil {
		return err
	}
	if err := a.expect(SymbolTok, ")"); err != nil {
		return err
	}
	if err := a.expect(SymbolTok, "{"); err != nil {
		return err
	}
	if err := a.analyzeStatements(); err != nil {
		return err
	}
	if err := a.expect(SymbolTok, "}"); err != nil {
		return err
	}

	if a.is(KeywordTok, "else") {
		if err := a.expect(KeywordTok, "else"); err != nil {
			return err
		}
		if err := a.expect(SymbolTok, "{"); err != nil {
			return err
		}
		if err := a.analyzeStatements(); err != nil {
			return err
		}
		if err := a.expect(SymbolTok, "}"); err != nil {
			return err
		}
	}

	return nil
}

func (a *Analyzer) analyzeWhileStatement() error {
	a.open("whileStatement")
	defer a.close("whileStatement")

	if err := a.expect(KeywordTok, "while"); err != nil {
		return err
	}
	if err := a.expect(SymbolTok, "("); err != nil {
		return err
	}
	if err := a.analyzeExpression(); err != nil {
		return err
	}
	if err := a.expect(SymbolTok, ")"); err != nil {
		return err
	}
	if err := a.expect(SymbolTok, "{"); err != nil {
		return err
	}
	if err := a.analyzeStatements(); err != nil {
		return err
	}

	return a.expect(SymbolTok, "}")
}

func (a *Analyzer) analyzeDoStatement() error {
	a.open("doStatement")
	defer a.close("doStatement")

	if err := a.expect(KeywordTok, "do"); err != nil {
		return err
	}
	if err := a.analyzeSubroutineCall(); err != nil {
		return err
	}

	return a.expect(SymbolTok, ";")
}

func (a *Analyzer) analyzeReturnStatement() error {
	a.open("returnStatement")
	defer a.close("returnStatement")

	if err := a.expect(KeywordTok, "return"); err != nil {
		return err
	}
	if !a.is(SymbolTok, ";") {
		if err := a.analyzeExpression(); err != nil {
			return err
		}
	}

	return a.expect(SymbolTok, ";")
}

func (a *Analyzer) analyzeExpression() error {
	a.open("expression")
	defer a.close("expression")

	if err := a.analyzeTerm(); err != nil {
		return err
	}

	for a.kind == SymbolTok {
		if _, isOp := binaryOps[a.lexeme]; !isOp {
			break
		}
		if err := a.expect(SymbolTok, a.lexeme); err != nil {
			return err
		}
		if err := a.analyzeTerm(); err != nil {
			return err
		}
	}

	return nil
}

func (a *Analyzer) analyzeTerm() error {
	a.open("term")
	defer a.close("term")

	switch {
	case a.kind == IntConstTok, a.kind == StringTok:
		return a.expect(a.kind, "")

	case a.is(KeywordTok, "true"), a.is(KeywordTok, "false"), a.is(KeywordTok, "null"), a.is(KeywordTok, "this"):
		return a.expect(KeywordTok, a.lexeme)

	case a.is(SymbolTok, "("):
		if err := a.expect(SymbolTok, "("); err != nil {
			return err
		}
		if err := a.analyzeExpression(); err != nil {
			return err
		}
		return a.expect(SymbolTok, ")")

	case a.is(SymbolTok, "-"), a.is(SymbolTok, "~"):
		if err := a.expect(SymbolTok, a.lexeme); err != nil {
			return err
		}
		return a.analyzeTerm()

	case a.kind == IdentifierTok:
		switch {
		case a.nKind == SymbolTok && a.nLexeme == "[":
			if err := a.expect(IdentifierTok, ""); err != nil {
				return err
			}
			if err := a.expect(SymbolTok, "["); err != nil {
				return err
			}
			if err := a.analyzeExpression(); err != nil {
				return err
			}
			return a.expect(SymbolTok, "]")

		case a.nKind == SymbolTok && (a.nLexeme == "(" || a.nLexeme == "."):
			return a.analyzeSubroutineCall()

		default:
			return a.expect(IdentifierTok, "")
		}

	default:
		return fmt.Errorf("unexpected token while parsing term: %s %q", a.kind, a.lexeme)
	}
}

func (a *Analyzer) analyzeSubroutineCall() error {
	if err := a.expect(IdentifierTok, ""); err != nil {
		return err
	}

	if a.is(SymbolTok, ".") {
		if err := a.expect(SymbolTok, "."); err != nil {
			return err
		}
		if err := a.expect(IdentifierTok, ""); err != nil {
			return err
		}
	}

	if err := a.expect(SymbolTok, "("); err != nil {
		return err
	}
	if err := a.analyzeExpressionList(); err != nil {
		return err
	}

	return a.expect(SymbolTok, ")")
}

func (a *Analyzer) analyzeExpressionList() error {
	a.open("expressionList")
	defer a.close("expressionList")

	if a.is(SymbolTok, ")") {
		return nil // Always emit the wrapping element, even when empty
	}

	for {
		if err := a.analyzeExpression(); err != nil {
			return err
		}
		if !a.is(SymbolTok, ",") {
			break
		}
		if err := a.expect(SymbolTok, ","); err != nil {
			return err
		}
	}

	return nil
}
