// Package parser builds a MiniJava AST from a token stream by recursive
// descent, with precedence climbing for expressions over match/check/
// consume/advance primitives. MiniJava's grammar needs fixed precedence
// levels rather than a generic operator table, a bounded-lookahead
// local-declaration-vs-expression-statement split, and negative-integer-
// literal folding at parse time.
package parser

import (
	"github.com/minijava-lang/minijava/internal/ast"
	"github.com/minijava-lang/minijava/internal/errors"
	"github.com/minijava-lang/minijava/internal/lexer"
	"github.com/minijava-lang/minijava/internal/symtab"
	"github.com/minijava-lang/minijava/internal/token"
)

// Parser is a single-use recursive-descent parser over one token stream.
type Parser struct {
	lex     *lexer.Lexer
	factory *ast.Factory
	pool    *symtab.Pool
	tok     token.Token
}

// New creates a parser that pulls tokens from lex and builds nodes with
// factory.
func New(lex *lexer.Lexer, factory *ast.Factory, pool *symtab.Pool) *Parser {
	p := &Parser{lex: lex, factory: factory, pool: pool}
	p.tok = lex.Advance()
	return p
}

// ParseProgram parses a full program: a list of class declarations
// followed by EOF. It panics with a *errors.SourceError on the first token
// that does not match, which the caller is expected to catch with
// recover().
func (p *Parser) ParseProgram() *ast.Program {
	pos := p.tok.Position
	var classes []*ast.ClassDeclaration
	for !p.atEOF() {
		classes = append(classes, p.classDeclaration())
	}
	return p.factory.NewProgram(pos, classes)
}

// ---- utility quartet ----

func (p *Parser) atEOF() bool {
	return p.tok.Kind == token.EOF
}

func (p *Parser) check(k token.Kind) bool {
	return p.tok.Kind == k
}

func (p *Parser) match(k token.Kind) bool {
	if p.check(k) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) advance() token.Token {
	prev := p.tok
	if !p.atEOF() {
		p.tok = p.lex.Advance()
	}
	return prev
}

func (p *Parser) consume(k token.Kind, expected string) token.Token {
	if p.check(k) {
		return p.advance()
	}
	panic(errors.NewSyntax(p.tok.Position, "expected %s, got %s", expected, p.tok))
}

// ---- classes and members ----

func (p *Parser) classDeclaration() *ast.ClassDeclaration {
	pos := p.tok.Position
	p.consume(token.KwClass, "'class'")
	name := p.consume(token.Identifier, "class name").Lexeme
	p.consume(token.LBrace, "'{'")

	var fields []*ast.VarDecl
	var methods []*ast.InstanceMethod
	var mains []*ast.MainMethod
	for !p.check(token.RBrace) && !p.atEOF() {
		p.consume(token.KwPublic, "'public'")
		if p.check(token.KwStatic) {
			mains = append(mains, p.mainMethod())
			continue
		}
		retPos := p.tok.Position
		typ := p.typeRef()
		memberName := p.consume(token.Identifier, "member name").Lexeme
		if p.check(token.LParen) {
			methods = append(methods, p.instanceMethodTail(retPos, typ, memberName))
		} else {
			p.consume(token.Semicolon, "';'")
			fields = append(fields, p.factory.NewVarDecl(retPos, typ, memberName))
		}
	}
	p.consume(token.RBrace, "'}'")
	return p.factory.NewClassDeclaration(pos, name, fields, methods, mains)
}

func (p *Parser) mainMethod() *ast.MainMethod {
	pos := p.tok.Position
	p.consume(token.KwStatic, "'static'")
	p.consume(token.KwVoid, "'void'")
	name := p.consume(token.Identifier, "method name").Lexeme
	p.consume(token.LParen, "'('")
	strTok := p.consume(token.Identifier, "'String'")
	if strTok.Lexeme.Text() != "String" {
		panic(errors.NewSyntax(strTok.Position, "expected 'String', got %s", strTok))
	}
	p.consume(token.LBracket, "'['")
	p.consume(token.RBracket, "']'")
	argv := p.consume(token.Identifier, "parameter name").Lexeme
	p.consume(token.RParen, "')'")
	body := p.block()
	return p.factory.NewMainMethod(pos, name, argv, body)
}

func (p *Parser) instanceMethodTail(pos token.Position, ret *ast.TypeRef, name symtab.Symbol) *ast.InstanceMethod {
	p.consume(token.LParen, "'('")
	var params []*ast.VarDecl
	if !p.check(token.RParen) {
		params = append(params, p.formalParameter())
		for p.match(token.Comma) {
			params = append(params, p.formalParameter())
		}
	}
	p.consume(token.RParen, "')'")
	body := p.block()
	return p.factory.NewInstanceMethod(pos, ret, name, params, body)
}

func (p *Parser) formalParameter() *ast.VarDecl {
	pos := p.tok.Position
	typ := p.typeRef()
	name := p.consume(token.Identifier, "parameter name").Lexeme
	return p.factory.NewVarDecl(pos, typ, name)
}

// typeRef parses a primitive or class type followed by zero or more `[]`
// pairs denoting array rank.
func (p *Parser) typeRef() *ast.TypeRef {
	pos := p.tok.Position
	var base ast.PrimitiveType
	var class symtab.Symbol
	switch {
	case p.match(token.KwInt):
		base = ast.PrimitiveInt
	case p.match(token.KwBoolean):
		base = ast.PrimitiveBoolean
	case p.match(token.KwVoid):
		base = ast.PrimitiveVoid
	case p.check(token.Identifier):
		base = ast.PrimitiveClass
		class = p.advance().Lexeme
	default:
		panic(errors.NewSyntax(p.tok.Position, "expected a type, got %s", p.tok))
	}
	rank := 0
	for p.match(token.LBracket) {
		p.consume(token.RBracket, "']'")
		rank++
	}
	return p.factory.NewTypeRef(pos, base, class, rank)
}

// ---- statements ----

func (p *Parser) block() *ast.Block {
	pos := p.tok.Position
	p.consume(token.LBrace, "'{'")
	var stmts []ast.Stmt
	for !p.check(token.RBrace) && !p.atEOF() {
		stmts = append(stmts, p.statement())
	}
	p.consume(token.RBrace, "'}'")
	return p.factory.NewBlock(pos, stmts)
}

func (p *Parser) statement() ast.Stmt {
	pos := p.tok.Position
	switch {
	case p.match(token.Semicolon):
		return p.factory.NewEmptyStmt(pos)
	case p.check(token.KwIf):
		return p.ifStatement()
	case p.check(token.KwWhile):
		return p.whileStatement()
	case p.check(token.KwReturn):
		return p.returnStatement()
	case p.startsLocalDeclaration():
		return p.localVariableStatement()
	default:
		expr := p.expression()
		p.consume(token.Semicolon, "';'")
		return p.factory.NewExpressionStmt(pos, expr)
	}
}

// startsLocalDeclaration implements a bounded lookahead:
// `int`/`boolean` always start a declaration; a leading identifier starts
// one only if, after consuming `[]` suffixes, another identifier follows.
// No backtracking beyond this bounded type-suffix prefix is needed because
// the grammar never lets an expression start with `Type[] name`.
func (p *Parser) startsLocalDeclaration() bool {
	if p.check(token.KwInt) || p.check(token.KwBoolean) {
		return true
	}
	if !p.check(token.Identifier) {
		return false
	}
	// Peeking past `Identifier ([ ])*` without a real checkpoint/rewind
	// API would require either a two-token lookahead buffer or cloning the
	// lexer state; the lexer is a simple byte cursor, so snapshot/restore
	// it directly.
	saved := *p.lex
	savedTok := p.tok
	p.advance() // identifier
	for p.check(token.LBracket) {
		p.advance()
		if !p.check(token.RBracket) {
			break
		}
		p.advance()
	}
	isDecl := p.check(token.Identifier)
	*p.lex = saved
	p.tok = savedTok
	return isDecl
}

func (p *Parser) localVariableStatement() ast.Stmt {
	pos := p.tok.Position
	typ := p.typeRef()
	name := p.consume(token.Identifier, "variable name").Lexeme
	decl := p.factory.NewVarDecl(pos, typ, name)
	var init ast.Expr
	if p.match(token.Assign) {
		init = p.expression()
	}
	p.consume(token.Semicolon, "';'")
	return p.factory.NewLocalVariableStmt(pos, decl, init)
}

func (p *Parser) ifStatement() ast.Stmt {
	pos := p.tok.Position
	p.consume(token.KwIf, "'if'")
	p.consume(token.LParen, "'('")
	cond := p.expression()
	p.consume(token.RParen, "')'")
	then := p.statement()
	var els ast.Stmt
	if p.match(token.KwElse) {
		els = p.statement()
	}
	return p.factory.NewIfStmt(pos, cond, then, els)
}

func (p *Parser) whileStatement() ast.Stmt {
	pos := p.tok.Position
	p.consume(token.KwWhile, "'while'")
	p.consume(token.LParen, "'('")
	cond := p.expression()
	p.consume(token.RParen, "')'")
	body := p.statement()
	return p.factory.NewWhileStmt(pos, cond, body)
}

func (p *Parser) returnStatement() ast.Stmt {
	pos := p.tok.Position
	p.consume(token.KwReturn, "'return'")
	var value ast.Expr
	if !p.check(token.Semicolon) {
		value = p.expression()
	}
	p.consume(token.Semicolon, "';'")
	return p.factory.NewReturnStmt(pos, value)
}

// ---- expressions: precedence climbing ----

func (p *Parser) expression() ast.Expr {
	return p.assignment()
}

// assignment is level 1, right-associative.
func (p *Parser) assignment() ast.Expr {
	pos := p.tok.Position
	left := p.logicalOr()
	if p.match(token.Assign) {
		right := p.assignment()
		return p.factory.NewBinaryExpr(pos, ast.OpAssign, left, right)
	}
	return left
}

func (p *Parser) logicalOr() ast.Expr {
	left := p.logicalAnd()
	for p.check(token.Or) {
		pos := p.tok.Position
		p.advance()
		right := p.logicalAnd()
		left = p.factory.NewBinaryExpr(pos, ast.OpOr, left, right)
	}
	return left
}

func (p *Parser) logicalAnd() ast.Expr {
	left := p.equality()
	for p.check(token.And) {
		pos := p.tok.Position
		p.advance()
		right := p.equality()
		left = p.factory.NewBinaryExpr(pos, ast.OpAnd, left, right)
	}
	return left
}

func (p *Parser) equality() ast.Expr {
	left := p.relational()
	for {
		var op ast.BinaryOp
		switch {
		case p.check(token.Equal):
			op = ast.OpEqual
		case p.check(token.NotEqual):
			op = ast.OpNotEqual
		default:
			return left
		}
		pos := p.tok.Position
		p.advance()
		right := p.relational()
		left = p.factory.NewBinaryExpr(pos, op, left, right)
	}
}

func (p *Parser) relational() ast.Expr {
	left := p.additive()
	for {
		var op ast.BinaryOp
		switch {
		case p.check(token.Less):
			op = ast.OpLess
		case p.check(token.LessEqual):
			op = ast.OpLessEqual
		case p.check(token.Greater):
			op = ast.OpGreater
		case p.check(token.GreaterEqual):
			op = ast.OpGreaterEqual
		default:
			return left
		}
		pos := p.tok.Position
		p.advance()
		right := p.additive()
		left = p.factory.NewBinaryExpr(pos, op, left, right)
	}
}

func (p *Parser) additive() ast.Expr {
	left := p.multiplicative()
	for {
		var op ast.BinaryOp
		switch {
		case p.check(token.Plus):
			op = ast.OpPlus
		case p.check(token.Minus):
			op = ast.OpMinus
		default:
			return left
		}
		pos := p.tok.Position
		p.advance()
		right := p.multiplicative()
		left = p.factory.NewBinaryExpr(pos, op, left, right)
	}
}

func (p *Parser) multiplicative() ast.Expr {
	left := p.unary()
	for {
		var op ast.BinaryOp
		switch {
		case p.check(token.Star):
			op = ast.OpTimes
		case p.check(token.Slash):
			op = ast.OpDivide
		case p.check(token.Percent):
			op = ast.OpModulo
		default:
			return left
		}
		pos := p.tok.Position
		p.advance()
		right := p.unary()
		left = p.factory.NewBinaryExpr(pos, op, left, right)
	}
}

// unary is level 8: right-associative, right-recursive `!`/`-`. A unary
// `-` directly in front of an integer literal folds into a single negated
// integer_constant node, the only way to spell MinInt32.
func (p *Parser) unary() ast.Expr {
	switch {
	case p.check(token.Minus):
		pos := p.tok.Position
		p.advance()
		if p.check(token.IntegerLiteral) {
			lit := p.advance()
			return p.factory.NewIntegerConstant(pos, lit.Lexeme, true)
		}
		operand := p.unary()
		return p.factory.NewUnaryExpr(pos, ast.OpNegate, operand)
	case p.check(token.Not):
		pos := p.tok.Position
		p.advance()
		operand := p.unary()
		return p.factory.NewUnaryExpr(pos, ast.OpNot, operand)
	default:
		return p.postfix()
	}
}

// postfix is level 9: `.name`, `.name(args)`, `[index]` chained onto a
// primary.
func (p *Parser) postfix() ast.Expr {
	expr := p.primary()
	for {
		pos := p.tok.Position
		switch {
		case p.match(token.Dot):
			name := p.consume(token.Identifier, "member name").Lexeme
			if p.match(token.LParen) {
				args := p.argumentList()
				expr = p.factory.NewMethodInvocation(pos, expr, name, args)
			} else {
				expr = p.factory.NewVariableAccess(pos, expr, name)
			}
		case p.match(token.LBracket):
			index := p.expression()
			p.consume(token.RBracket, "']'")
			expr = p.factory.NewArrayAccess(pos, expr, index)
		default:
			return expr
		}
	}
}

func (p *Parser) argumentList() []ast.Expr {
	var args []ast.Expr
	if !p.check(token.RParen) {
		args = append(args, p.expression())
		for p.match(token.Comma) {
			args = append(args, p.expression())
		}
	}
	p.consume(token.RParen, "')'")
	return args
}

// primary is level 10: literals, `this`, `null`, parenthesized
// expressions, identifiers (bare access or call), and `new` expressions.
func (p *Parser) primary() ast.Expr {
	pos := p.tok.Position
	switch {
	case p.check(token.IntegerLiteral):
		lex := p.advance().Lexeme
		return p.factory.NewIntegerConstant(pos, lex, false)
	case p.match(token.KwTrue):
		return p.factory.NewBooleanConstant(pos, true)
	case p.match(token.KwFalse):
		return p.factory.NewBooleanConstant(pos, false)
	case p.match(token.KwNull):
		return p.factory.NewNullConstant(pos)
	case p.match(token.KwThis):
		return p.factory.NewThisRef(pos)
	case p.match(token.LParen):
		expr := p.expression()
		p.consume(token.RParen, "')'")
		return expr
	case p.check(token.Identifier):
		name := p.advance().Lexeme
		if p.match(token.LParen) {
			args := p.argumentList()
			return p.factory.NewMethodInvocation(pos, nil, name, args)
		}
		return p.factory.NewVariableAccess(pos, nil, name)
	case p.match(token.KwNew):
		return p.newExpression(pos)
	default:
		panic(errors.NewSyntax(pos, "unexpected token %s in expression", p.tok))
	}
}

// newExpression parses `new T()` and `new T[E]([])*`.
func (p *Parser) newExpression(pos token.Position) ast.Expr {
	if p.check(token.KwInt) || p.check(token.KwBoolean) {
		elemBase := ast.PrimitiveInt
		if p.check(token.KwBoolean) {
			elemBase = ast.PrimitiveBoolean
		}
		elemPos := p.tok.Position
		p.advance()
		return p.newArrayTail(pos, p.factory.NewTypeRef(elemPos, elemBase, symtab.Symbol{}, 0))
	}
	className := p.consume(token.Identifier, "class name").Lexeme
	if p.match(token.LBracket) {
		elemPos := pos
		elem := p.factory.NewTypeRef(elemPos, ast.PrimitiveClass, className, 0)
		return p.newArrayTailAfterFirstBracket(pos, elem)
	}
	p.consume(token.LParen, "'('")
	p.consume(token.RParen, "')'")
	return p.factory.NewObjectInstantiation(pos, className)
}

// newArrayTail parses `[E]([])*` when the `[` has not yet been consumed.
func (p *Parser) newArrayTail(pos token.Position, elem *ast.TypeRef) ast.Expr {
	p.consume(token.LBracket, "'['")
	return p.newArrayTailAfterFirstBracket(pos, elem)
}

// newArrayTailAfterFirstBracket parses `E]([])*` once the first `[` is
// already consumed, building a single array_instantiation node that
// carries the extent expression; each subsequent empty `[]` raises the
// element type's rank by one.
func (p *Parser) newArrayTailAfterFirstBracket(pos token.Position, elem *ast.TypeRef) ast.Expr {
	extent := p.expression()
	p.consume(token.RBracket, "']'")
	rank := 1
	for p.check(token.LBracket) {
		p.advance()
		p.consume(token.RBracket, "']'")
		rank++
	}
	fullElem := *elem
	fullElem.Rank = rank - 1
	return p.factory.NewArrayInstantiation(pos, &fullElem, extent)
}
