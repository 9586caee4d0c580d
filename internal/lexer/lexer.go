// Package lexer streams MiniJava source bytes into tokens, using a
// start/current/line byte cursor and a switch-based scanner with
// maximal-munch operator matching, exposed as a pull-based
// advance()/current() iterator, with MiniJava's own character classes,
// block comments, and a leading-zero-rejecting integer lexer.
package lexer

import (
	"github.com/minijava-lang/minijava/internal/errors"
	"github.com/minijava-lang/minijava/internal/symtab"
	"github.com/minijava-lang/minijava/internal/token"
)

// Lexer is a pull-based token iterator over one source buffer. The first
// Advance returns the first real token; once AtEOF holds, further Advance
// calls are idempotent no-ops that leave the cursor on EOF.
type Lexer struct {
	source string
	pool   *symtab.Pool

	start   int
	current int
	line    int
	column  int

	// startLine/startColumn are the position of `start`, captured before
	// scanning the token that begins there.
	startLine   int
	startColumn int

	tok Token
}

// Token is an alias for token.Token, so the lexer and the parser share one
// token type without conversion.
type Token = token.Token

// New creates a lexer over source, interning lexemes into pool.
func New(source string, pool *symtab.Pool) *Lexer {
	l := &Lexer{source: source, pool: pool, line: 1, column: 1}
	l.tok = token.Token{Kind: tokenNotYetStarted}
	return l
}

// tokenNotYetStarted is an internal sentinel distinct from token.EOF so
// AtEOF is false before the first Advance.
const tokenNotYetStarted token.Kind = -1

// Advance scans and returns the next token, advancing the cursor. Once
// AtEOF it keeps returning the EOF token forever.
func (l *Lexer) Advance() token.Token {
	if l.tok.Kind == token.EOF {
		return l.tok
	}
	l.tok = l.scan()
	return l.tok
}

// Current returns the token last produced by Advance, without consuming
// anything. Calling Current before the first Advance is a programmer
// error.
func (l *Lexer) Current() token.Token {
	errors.Assert(l.tok.Kind != tokenNotYetStarted, "lexer.Current called before first Advance")
	return l.tok
}

// AtEOF reports whether the current token is EOF.
func (l *Lexer) AtEOF() bool {
	return l.tok.Kind == token.EOF
}

func (l *Lexer) scan() token.Token {
	l.skipTrivia()
	l.start = l.current
	l.startLine, l.startColumn = l.line, l.column
	if l.isAtEnd() {
		return l.make(token.EOF)
	}

	c := l.advance()
	switch {
	case c == '(':
		return l.make(token.LParen)
	case c == ')':
		return l.make(token.RParen)
	case c == '{':
		return l.make(token.LBrace)
	case c == '}':
		return l.make(token.RBrace)
	case c == '[':
		return l.make(token.LBracket)
	case c == ']':
		return l.make(token.RBracket)
	case c == ',':
		return l.make(token.Comma)
	case c == '.':
		return l.make(token.Dot)
	case c == ';':
		return l.make(token.Semicolon)
	case c == '+':
		return l.make(token.Plus)
	case c == '-':
		return l.make(token.Minus)
	case c == '*':
		return l.make(token.Star)
	case c == '/':
		return l.make(token.Slash)
	case c == '%':
		return l.make(token.Percent)
	case c == '=':
		return l.maximalMunch('=', token.Equal, token.Assign)
	case c == '!':
		return l.maximalMunch('=', token.NotEqual, token.Not)
	case c == '<':
		return l.maximalMunch('=', token.LessEqual, token.Less)
	case c == '>':
		return l.greater()
	case c == '&':
		if l.match('&') {
			return l.make(token.And)
		}
		return l.fail("unexpected byte 0x%02x", c)
	case c == '|':
		if l.match('|') {
			return l.make(token.Or)
		}
		return l.fail("unexpected byte 0x%02x", c)
	case isDigit(c):
		return l.number()
	case isWordHead(c):
		return l.word()
	default:
		return l.fail("unexpected byte 0x%02x", c)
	}
}

// maximalMunch returns twoCharKind if the next byte is second, else
// oneCharKind, implementing operators like `==`/`=` or `<=`/`<`.
func (l *Lexer) maximalMunch(second byte, twoCharKind, oneCharKind token.Kind) token.Token {
	if l.match(second) {
		return l.make(twoCharKind)
	}
	return l.make(oneCharKind)
}

// greater scans the `>` family, where six operators share the same
// prefix: `>>>=` beats `>>>`, beats `>>=`, beats `>>`, beats `>=`, beats
// `>`, so each extra byte is tried in order from longest to shortest.
func (l *Lexer) greater() token.Token {
	if !l.match('>') {
		return l.maximalMunch('=', token.GreaterEqual, token.Greater)
	}
	if !l.match('>') {
		return l.maximalMunch('=', token.RShiftAssign, token.RShift)
	}
	return l.maximalMunch('=', token.URShiftAssign, token.URShift)
}

func (l *Lexer) word() token.Token {
	for !l.isAtEnd() && isWordTail(l.peek()) {
		l.advance()
	}
	text := l.source[l.start:l.current]
	if kind, ok := token.Keywords[text]; ok {
		return l.make(kind)
	}
	return l.makeWithLexeme(token.Identifier, text)
}

func (l *Lexer) number() token.Token {
	for !l.isAtEnd() && isDigit(l.peek()) {
		l.advance()
	}
	text := l.source[l.start:l.current]
	if len(text) > 1 && text[0] == '0' {
		return l.fail("leading zero in integer literal %q", text)
	}
	return l.makeWithLexeme(token.IntegerLiteral, text)
}

// skipTrivia consumes whitespace and comments. Block comments do not nest;
// an unterminated one is a lexical error raised eagerly (not deferred
// until the caller asks for the next token), since the lexer never
// recovers and fails at the point of detection.
func (l *Lexer) skipTrivia() {
	for {
		if l.isAtEnd() {
			return
		}
		switch l.peek() {
		case ' ', '\t', '\r':
			l.advance()
		case '\n':
			l.advance()
		case '/':
			if l.peekAt(1) == '*' {
				l.skipBlockComment()
				continue
			}
			return
		default:
			return
		}
	}
}

func (l *Lexer) skipBlockComment() {
	startLine, startColumn := l.line, l.column
	l.advance() // '/'
	l.advance() // '*'
	for {
		if l.isAtEnd() {
			panic(errors.NewLexical(token.Position{Line: startLine, Column: startColumn}, "unterminated block comment"))
		}
		if l.peek() == '*' && l.peekAt(1) == '/' {
			l.advance()
			l.advance()
			return
		}
		l.advance()
	}
}

func (l *Lexer) make(kind token.Kind) token.Token {
	return token.Token{Kind: kind, Position: token.Position{Line: l.startLine, Column: l.startColumn}}
}

func (l *Lexer) makeWithLexeme(kind token.Kind, text string) token.Token {
	t := l.make(kind)
	t.Lexeme = l.pool.Intern(text)
	return t
}

func (l *Lexer) fail(format string, args ...interface{}) token.Token {
	panic(errors.NewLexical(token.Position{Line: l.startLine, Column: l.startColumn}, format, args...))
}

func (l *Lexer) isAtEnd() bool {
	return l.current >= len(l.source)
}

func (l *Lexer) advance() byte {
	c := l.source[l.current]
	l.current++
	if c == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	return c
}

func (l *Lexer) peek() byte {
	if l.isAtEnd() {
		return 0
	}
	return l.source[l.current]
}

func (l *Lexer) peekAt(offset int) byte {
	idx := l.current + offset
	if idx >= len(l.source) {
		return 0
	}
	return l.source[idx]
}

func (l *Lexer) match(expected byte) bool {
	if l.isAtEnd() || l.source[l.current] != expected {
		return false
	}
	l.advance()
	return true
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isWordHead(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isWordTail(c byte) bool {
	return isWordHead(c) || isDigit(c)
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}
