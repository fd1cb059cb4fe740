package jack

import (
	"fmt"
	"io"

	"its-hmny.dev/nand2tetris/pkg/utils"
)

// ----------------------------------------------------------------------------
// Jack Parser

// The Parser is a classic recursive-descent parser: one function per non-terminal of the
// Jack grammar, each consuming tokens off the shared Tokenizer and building up the 'jack.Class'
// AST directly (no intermediate parse tree). It keeps a 2-token lookahead buffer ('lexeme'/'kind'
// for the current token, 'nLexeme'/'nKind' for the next one) since a handful of productions
// (mainly 'term') need to peek past an identifier to tell a bare variable, an array access and
// a subroutine call apart.
type Parser struct {
	tok *Tokenizer

	lexeme string
	kind   TokenKind

	nLexeme string
	nKind   TokenKind
}

// Maps the single-char Jack operators to their 'jack.ExprType' counterpart, used while
// parsing the left-to-right, precedence-free expression grammar.
var binaryOps = map[string]ExprType{
	"+": Plus, "-": Minus, "*": Multiply, "/": Divide,
	"&": BoolAnd, "|": BoolOr, "<": LessThan, ">": GreatThan, "=": Equal,
}

// Initializes and returns to the caller a brand new 'Parser' struct.
// Requires the argument io.Reader 'r' to be valid and usable.
func NewParser(r io.Reader) Parser {
	content, _ := io.ReadAll(r)

	p := Parser{tok: NewTokenizer(string(content))}
	p.fetch()   // Loads the 1st token into the lookahead slot
	p.advance() // Shifts it into 'current', loads the 2nd token into the lookahead slot
	return p
}

// Shifts 'current' forward by one token, re-filling the lookahead slot from the tokenizer.
func (p *Parser) advance() {
	p.lexeme, p.kind = p.nLexeme, p.nKind
	p.fetch()
}

// Pulls the next token (if any) from the underlying tokenizer into the lookahead slot.
func (p *Parser) fetch() {
	if p.tok.Advance() {
		p.nLexeme, p.nKind = p.tok.Token()
	} else {
		p.nLexeme, p.nKind = "", ""
	}
}

// Reports whether the current token matches 'kind' and (if not empty) 'lexeme'.
func (p *Parser) is(kind TokenKind, lexeme string) bool {
	return p.kind == kind && (lexeme == "" || p.lexeme == lexeme)
}

// Consumes the current token if it matches 'kind'/'lexeme', else returns a descriptive error.
func (p *Parser) expect(kind TokenKind, lexeme string) (string, error) {
	if !p.is(kind, lexeme) {
		return "", fmt.Errorf("expected %s %q, got %s %q", kind, lexeme, p.kind, p.lexeme)
	}

	tok := p.lexeme
	p.advance()
	return tok, nil
}

// Parser entrypoint. A Jack source file always contains exactly one top-level 'class'.
func (p *Parser) Parse() (Class, error) {
	return p.parseClass()
}

func (p *Parser) parseClass() (Class, error) {
	if _, err := p.expect(KeywordTok, "class"); err != nil {
		return Class{}, fmt.Errorf("error parsing 'class' keyword: %w", err)
	}

	name, err := p.expect(IdentifierTok, "")
	if err != nil {
		return Class{}, fmt.Errorf("error parsing class name: %w", err)
	}

	if _, err := p.expect(SymbolTok, "{"); err != nil {
		return Class{}, fmt.Errorf("error parsing class body opening brace: %w", err)
	}

	class := Class{
		Name:        name,
		Fields:      utils.NewOrderedMap[string, Variable](),
		Subroutines: utils.NewOrderedMap[string, Subroutine](),
	}

	for p.is(KeywordTok, "static") || p.is(KeywordTok, "field") {
		fields, err := p.parseClassVarDec()
		if err != nil {
			return Class{}, fmt.Errorf("error parsing class var declaration: %w", err)
		}
		for _, field := range fields {
			class.Fields.Set(field.Name, field)
		}
	}

	for p.is(KeywordTok, "constructor") || p.is(KeywordTok, "function") || p.is(KeywordTok, "method") {
		subroutine, err := p.parseSubroutine()
		if err != nil {
			return Class{}, fmt.Errorf("error parsing subroutine declaration: %w", err)
		}
		class.Subroutines.Set(subroutine.Name, subroutine)
	}

	if _, err := p.expect(SymbolTok, "}"); err != nil {
		return Class{}, fmt.Errorf("error parsing class body closing brace: %w", err)
	}

	return class, nil
}

// Parses a 'int'/'char'/'boolean'/className type, returning the resolved DataType plus
// the class name when the type is an Object (empty string otherwise).
func (p *Parser) parseType() (DataType, string, error) {
	switch {
	case p.is(KeywordTok, "int"):
		p.advance()
		return Int, "", nil
	case p.is(KeywordTok, "char"):
		p.advance()
		return Char, "", nil
	case p.is(KeywordTok, "boolean"):
		p.advance()
		return Bool, "", nil
	case p.kind == IdentifierTok:
		className := p.lexeme
		p.advance()
		return Object, className, nil
	default:
		return "", "", fmt.Errorf("expected a type, got %s %q", p.kind, p.lexeme)
	}
}

// Parses a 'static'/'field' declaration, which may declare more than one variable at once.
func (p *Parser) parseClassVarDec() ([]Variable, error) {
	varType := Static
	if p.lexeme == "field" {
		varType = Field
	}
	p.advance() // consume 'static'/'field'

	dataType, className, err := p.parseType()
	if err != nil {
		return nil, fmt.Errorf("error parsing var declaration type: %w", err)
	}

	vars, err := p.parseVarNames(varType, dataType, className)
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(SymbolTok, ";"); err != nil {
		return nil, fmt.Errorf("error parsing var declaration terminator: %w", err)
	}

	return vars, nil
}

// Parses a comma separated list of variable names sharing a single declared type.
func (p *Parser) parseVarNames(varType VarType, dataType DataType, className string) ([]Variable, error) {
	vars := []Variable{}

	for {
		name, err := p.expect(IdentifierTok, "")
		if err != nil {
			return nil, fmt.Errorf("error parsing variable name: %w", err)
		}
		vars = append(vars, Variable{Name: name, Type: varType, DataType: dataType, ClassName: className})

		if p.is(SymbolTok, ",") {
			p.advance()
			continue
		}
		break
	}

	return vars, nil
}

func (p *Parser) parseSubroutine() (Subroutine, error) {
	var kind SubroutineType
	switch p.lexeme {
	case "constructor":
		kind = Constructor
	case "function":
		kind = Function
	case "method":
		kind = Method
	}
	p.advance() // consume 'constructor'/'function'/'method'

	var ret DataType
	if p.is(KeywordTok, "void") {
		ret = Void
		p.advance()
	} else {
		dataType, _, err := p.parseType()
		if err != nil {
			return Subroutine{}, fmt.Errorf("error parsing subroutine return type: %w", err)
		}
		ret = dataType
	}

	name, err := p.expect(IdentifierTok, "")
	if err != nil {
		return Subroutine{}, fmt.Errorf("error parsing subroutine name: %w", err)
	}

	if _, err := p.expect(SymbolTok, "("); err != nil {
		return Subroutine{}, fmt.Errorf("error parsing parameter list opening paren: %w", err)
	}
	params, err := p.parseParameterList()
	if err != nil {
		return Subroutine{}, fmt.Errorf("error parsing parameter list: %w", err)
	}
	if _, err := p.expect(SymbolTok, ")"); err != nil {
		return Subroutine{}, fmt.Errorf("error parsing parameter list closing paren: %w", err)
	}

	args := utils.NewOrderedMap[string, Variable]()
	for _, param := range params {
		args.Set(param.Name, param)
	}

	if _, err := p.expect(SymbolTok, "{"); err != nil {
		return Subroutine{}, fmt.Errorf("error parsing subroutine body opening brace: %w", err)
	}

	// 'var' declarations become VarStmt(s) placed ahead of the rest of the body, this preserves
	// the grammar's "varDec* statements" ordering without needing a separate field on Subroutine.
	statements := []Statement{}
	for p.is(KeywordTok, "var") {
		vars, err := p.parseVarDec()
		if err != nil {
			return Subroutine{}, fmt.Errorf("error parsing local var declaration: %w", err)
		}
		statements = append(statements, VarStmt{Vars: vars})
	}

	body, err := p.parseStatements()
	if err != nil {
		return Subroutine{}, fmt.Errorf("error parsing subroutine statements: %w", err)
	}
	statements = append(statements, body...)

	if _, err := p.expect(SymbolTok, "}"); err != nil {
		return Subroutine{}, fmt.Errorf("error parsing subroutine body closing brace: %w", err)
	}

	return Subroutine{Name: name, Type: kind, Return: ret, Arguments: args, Statements: statements}, nil
}

func (p *Parser) parseParameterList() ([]Variable, error) {
	params := []Variable{}

	if p.is(SymbolTok, ")") { // Empty parameter list
		return params, nil
	}

	for {
		dataType, className, err := p.parseType()
		if err != nil {
			return nil, fmt.Errorf("error parsing parameter type: %w", err)
		}
		name, err := p.expect(IdentifierTok, "")
		if err != nil {
			return nil, fmt.Errorf("error parsing parameter name: %w", err)
		}
		params = append(params, Variable{Name: name, Type: Parameter, DataType: dataType, ClassName: className})

		if p.is(SymbolTok, ",") {
			p.advance()
			continue
		}
		break
	}

	return params, nil
}

func (p *Parser) parseVarDec() ([]Variable, error) {
	p.advance() // consume 'var'

	dataType, className, err := p.parseType()
	if err != nil {
		return nil, fmt.Errorf("error parsing var declaration type: %w", err)
	}

	vars, err := p.parseVarNames(Local, dataType, className)
	if err != nil {
		return nil, err
	}

	if _, err := p.expect(SymbolTok, ";"); err != nil {
		return nil, fmt.Errorf("error parsing var declaration terminator: %w", err)
	}

	return vars, nil
}

func (p *Parser) parseStatements() ([]Statement, error) {
	statements := []Statement{}

	for {
		var stmt Statement
		var err error

		switch {
		case p.is(KeywordTok, "let"):
			stmt, err = p.parseLetStatement()
		case p.is(KeywordTok, "if"):
			stmt, err = p.parseIfStatement()
		case p.is(KeywordTok, "while"):
			stmt, err = p.parseWhileStatement()
		case p.is(KeywordTok, "do"):
			stmt, err = p.parseDoStatement()
		case p.is(KeywordTok, "return"):
			stmt, err = p.parseReturnStatement()
		default:
			return statements, nil // No more statements to parse in the current block
		}

		if err != nil {
			return nil, err
		}
		statements = append(statements, stmt)
	}
}

func (p *Parser) parseLetStatement() (Statement, error) {
	p.advance() // consume 'let'

	name, err := p.expect(IdentifierTok, "")
	if err != nil {
		return nil, fmt.Errorf("error parsing 'let' target variable: %w", err)
	}

	var lhs Expression = VarExpr{Var: name}

	if p.is(SymbolTok, "[") {
		p.advance()
		index, err := p.parseExpression()
		if err != nil {
			return nil, fmt.Errorf("error parsing 'let' array index: %w", err)
		}
		if _, err := p.expect(SymbolTok, "]"); err != nil {
			return nil, fmt.Errorf("error parsing 'let' array index closing bracket: %w", err)
		}
		lhs = ArrayExpr{Var: name, Index: index}
	}

	if _, err := p.expect(SymbolTok, "="); err != nil {
		return nil, fmt.Errorf("error parsing 'let' assignment operator: %w", err)
	}

	rhs, err := p.parseExpression()
	if err != nil {
		return nil, fmt.Errorf("error parsing 'let' RHS expression: %w", err)
	}

	if _, err := p.expect(SymbolTok, ";"); err != nil {
		return nil, fmt.Errorf("error parsing 'let' terminator: %w", err)
	}

	return LetStmt{Lhs: lhs, Rhs: rhs}, nil
}

func (p *Parser) parseIfStatement() (Statement, error) {
	p.advance() // consume 'if'

	if _, err := p.expect(SymbolTok, "("); err != nil {
		return nil, fmt.Errorf("error parsing 'if' condition opening paren: %w", err)
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, fmt.Errorf("error parsing 'if' condition: %w", err)
	}
	if _, err := p.expect(SymbolTok, ")"); err != nil {
		return nil, fmt.Errorf("error parsing 'if' condition closing paren: %w", err)
	}

	if _, err := p.expect(SymbolTok, "{"); err != nil {
		return nil, fmt.Errorf("error parsing 'if' then-block opening brace: %w", err)
	}
	thenBlock, err := p.parseStatements()
	if err != nil {
		return nil, fmt.Errorf("error parsing 'if' then-block: %w", err)
	}
	if _, err := p.expect(SymbolTok, "}"); err != nil {
		return nil, fmt.Errorf("error parsing 'if' then-block closing brace: %w", err)
	}

	var elseBlock []Statement
	if p.is(KeywordTok, "else") {
		p.advance()
		if _, err := p.expect(SymbolTok, "{"); err != nil {
			return nil, fmt.Errorf("error parsing 'else' block opening brace: %w", err)
		}
		elseBlock, err = p.parseStatements()
		if err != nil {
			return nil, fmt.Errorf("error parsing 'else' block: %w", err)
		}
		if _, err := p.expect(SymbolTok, "}"); err != nil {
			return nil, fmt.Errorf("error parsing 'else' block closing brace: %w", err)
		}
	}

	return IfStmt{Condition: cond, ThenBlock: thenBlock, ElseBlock: elseBlock}, nil
}

func (p *Parser) parseWhileStatement() (Statement, error) {
	p.advance() // consume 'while'

	if _, err := p.expect(SymbolTok, "("); err != nil {
		return nil, fmt.Errorf("error parsing 'while' condition opening paren: %w", err)
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, fmt.Errorf("error parsing 'while' condition: %w", err)
	}
	if _, err := p.expect(SymbolTok, ")"); err != nil {
		return nil, fmt.Errorf("error parsing 'while' condition closing paren: %w", err)
	}

	if _, err := p.expect(SymbolTok, "{"); err != nil {
		return nil, fmt.Errorf("error parsing 'while' block opening brace: %w", err)
	}
	block, err := p.parseStatements()
	if err != nil {
		return nil, fmt.Errorf("error parsing 'while' block: %w", err)
	}
	if _, err := p.expect(SymbolTok, "}"); err != nil {
		return nil, fmt.Errorf("error parsing 'while' block closing brace: %w", err)
	}

	return WhileStmt{Condition: cond, Block: block}, nil
}

func (p *Parser) parseDoStatement() (Statement, error) {
	p.advance() // consume 'do'

	call, err := p.parseSubroutineCall()
	if err != nil {
		return nil, fmt.Errorf("error parsing 'do' subroutine call: %w", err)
	}

	if _, err := p.expect(SymbolTok, ";"); err != nil {
		return nil, fmt.Errorf("error parsing 'do' terminator: %w", err)
	}

	return DoStmt{FuncCall: call}, nil
}

func (p *Parser) parseReturnStatement() (Statement, error) {
	p.advance() // consume 'return'

	if p.is(SymbolTok, ";") {
		p.advance()
		return ReturnStmt{}, nil
	}

	expr, err := p.parseExpression()
	if err != nil {
		return nil, fmt.Errorf("error parsing 'return' expression: %w", err)
	}

	if _, err := p.expect(SymbolTok, ";"); err != nil {
		return nil, fmt.Errorf("error parsing 'return' terminator: %w", err)
	}

	return ReturnStmt{Expr: expr}, nil
}

// Expressions are compiled left-to-right with no operator precedence (see §4.2): every
// 'term (op term)*' chain folds into a strictly left-associative tree of BinaryExpr nodes.
func (p *Parser) parseExpression() (Expression, error) {
	lhs, err := p.parseTerm()
	if err != nil {
		return nil, fmt.Errorf("error parsing expression term: %w", err)
	}

	for p.kind == SymbolTok {
		opType, isOp := binaryOps[p.lexeme]
		if !isOp {
			break
		}
		p.advance()

		rhs, err := p.parseTerm()
		if err != nil {
			return nil, fmt.Errorf("error parsing expression term: %w", err)
		}

		lhs = BinaryExpr{Type: opType, Lhs: lhs, Rhs: rhs}
	}

	return lhs, nil
}

func (p *Parser) parseTerm() (Expression, error) {
	switch {
	case p.kind == IntConstTok:
		value := p.lexeme
		p.advance()
		return LiteralExpr{Type: Int, Value: value}, nil

	case p.kind == StringTok:
		value := p.lexeme
		p.advance()
		return LiteralExpr{Type: String, Value: value}, nil

	case p.is(KeywordTok, "true"):
		p.advance()
		return LiteralExpr{Type: Bool, Value: "true"}, nil
	case p.is(KeywordTok, "false"):
		p.advance()
		return LiteralExpr{Type: Bool, Value: "false"}, nil
	case p.is(KeywordTok, "null"):
		p.advance()
		return LiteralExpr{Type: Object, Value: "null"}, nil
	case p.is(KeywordTok, "this"):
		p.advance()
		return VarExpr{Var: "this"}, nil

	case p.is(SymbolTok, "("):
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, fmt.Errorf("error parsing parenthesized expression: %w", err)
		}
		if _, err := p.expect(SymbolTok, ")"); err != nil {
			return nil, fmt.Errorf("error parsing parenthesized expression closing paren: %w", err)
		}
		return expr, nil

	case p.is(SymbolTok, "-"):
		p.advance()
		rhs, err := p.parseTerm()
		if err != nil {
			return nil, fmt.Errorf("error parsing unary '-' operand: %w", err)
		}
		return UnaryExpr{Type: Negation, Rhs: rhs}, nil

	case p.is(SymbolTok, "~"):
		p.advance()
		rhs, err := p.parseTerm()
		if err != nil {
			return nil, fmt.Errorf("error parsing unary '~' operand: %w", err)
		}
		return UnaryExpr{Type: BoolNot, Rhs: rhs}, nil

	case p.kind == IdentifierTok:
		name := p.lexeme

		switch {
		case p.nKind == SymbolTok && p.nLexeme == "[":
			p.advance() // consume the identifier
			p.advance() // consume '['
			index, err := p.parseExpression()
			if err != nil {
				return nil, fmt.Errorf("error parsing array index expression: %w", err)
			}
			if _, err := p.expect(SymbolTok, "]"); err != nil {
				return nil, fmt.Errorf("error parsing array index closing bracket: %w", err)
			}
			return ArrayExpr{Var: name, Index: index}, nil

		case p.nKind == SymbolTok && (p.nLexeme == "(" || p.nLexeme == "."):
			return p.parseSubroutineCall()

		default:
			p.advance()
			return VarExpr{Var: name}, nil
		}

	default:
		return nil, fmt.Errorf("unexpected token while parsing term: %s %q", p.kind, p.lexeme)
	}
}

// Parses the three subroutine call forms sharing the same 'name(args)'/'name.name(args)' shape,
// the actual call-site resolution (method/function/constructor, internal/external) happens later
// during lowering, here we just capture the syntactic shape described in §4.2.
func (p *Parser) parseSubroutineCall() (FuncCallExpr, error) {
	first, err := p.expect(IdentifierTok, "")
	if err != nil {
		return FuncCallExpr{}, fmt.Errorf("error parsing subroutine call target: %w", err)
	}

	isExtCall, funcName := false, first
	if p.is(SymbolTok, ".") {
		p.advance()
		funcName, err = p.expect(IdentifierTok, "")
		if err != nil {
			return FuncCallExpr{}, fmt.Errorf("error parsing subroutine call method name: %w", err)
		}
		isExtCall = true
	}

	if _, err := p.expect(SymbolTok, "("); err != nil {
		return FuncCallExpr{}, fmt.Errorf("error parsing subroutine call arguments opening paren: %w", err)
	}
	args, err := p.parseExpressionList()
	if err != nil {
		return FuncCallExpr{}, fmt.Errorf("error parsing subroutine call arguments: %w", err)
	}
	if _, err := p.expect(SymbolTok, ")"); err != nil {
		return FuncCallExpr{}, fmt.Errorf("error parsing subroutine call arguments closing paren: %w", err)
	}

	call := FuncCallExpr{FuncName: funcName, Arguments: args}
	if isExtCall {
		call.IsExtCall, call.Var = true, first
	}
	return call, nil
}

func (p *Parser) parseExpressionList() ([]Expression, error) {
	exprs := []Expression{}

	if p.is(SymbolTok, ")") { // Empty argument list
		return exprs, nil
	}

	for {
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, expr)

		if p.is(SymbolTok, ",") {
			p.advance()
			continue
		}
		break
	}

	return exprs, nil
}
