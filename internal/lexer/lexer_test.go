package lexer

import (
	"fmt"
	"testing"

	"github.com/minijava-lang/minijava/internal/errors"
	"github.com/minijava-lang/minijava/internal/symtab"
	"github.com/minijava-lang/minijava/internal/token"
)

// scanAll drives a Lexer to EOF, converting a panic into an error the way
// the parser and CLI both do at their own boundaries.
func scanAll(source string) (toks []token.Token, err error) {
	defer func() {
		if r := recover(); r != nil {
			if se, ok := r.(*errors.SourceError); ok {
				err = se
				return
			}
			err = fmt.Errorf("lexer panic: %v", r)
		}
	}()
	pool := symtab.New()
	l := New(source, pool)
	for {
		tok := l.Advance()
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return
		}
	}
}

func assertKinds(t *testing.T, source string, want []token.Kind) {
	t.Helper()
	toks, err := scanAll(source)
	if err != nil {
		t.Fatalf("scanAll(%q): unexpected error: %v", source, err)
	}
	if len(toks) != len(want) {
		t.Fatalf("scanAll(%q): got %d tokens, want %d: %v", source, len(toks), len(want), toks)
	}
	for i, k := range want {
		if toks[i].Kind != k {
			t.Errorf("scanAll(%q): token %d = %v, want %v", source, i, toks[i].Kind, k)
		}
	}
}

func TestPunctuationAndOperators(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   []token.Kind
	}{
		{"parens and braces", "(){}[]", []token.Kind{token.LParen, token.RParen, token.LBrace, token.RBrace, token.LBracket, token.RBracket, token.EOF}},
		{"maximal munch equals", "= ==", []token.Kind{token.Assign, token.Equal, token.EOF}},
		{"maximal munch not", "! !=", []token.Kind{token.Not, token.NotEqual, token.EOF}},
		{"maximal munch less/greater", "< <= > >=", []token.Kind{token.Less, token.LessEqual, token.Greater, token.GreaterEqual, token.EOF}},
		{"and or", "&& ||", []token.Kind{token.And, token.Or, token.EOF}},
		{"arithmetic", "+ - * / %", []token.Kind{token.Plus, token.Minus, token.Star, token.Slash, token.Percent, token.EOF}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) { assertKinds(t, tt.source, tt.want) })
	}
}

func TestKeywordsVsIdentifiers(t *testing.T) {
	assertKinds(t, "class classic", []token.Kind{token.KwClass, token.Identifier, token.EOF})
	assertKinds(t, "if iffy", []token.Kind{token.KwIf, token.Identifier, token.EOF})
	assertKinds(t, "while whileLoop", []token.Kind{token.KwWhile, token.Identifier, token.EOF})
}

func TestIdentifierLexemeInterning(t *testing.T) {
	pool := symtab.New()
	l := New("foo foo bar", pool)
	first := l.Advance()
	second := l.Advance()
	third := l.Advance()
	if first.Lexeme != second.Lexeme {
		t.Fatalf("two occurrences of %q interned to different symbols", "foo")
	}
	if first.Lexeme == third.Lexeme {
		t.Fatalf("distinct identifiers %q and %q interned to the same symbol", "foo", "bar")
	}
	if pool.Len() != 2 {
		t.Fatalf("pool.Len() = %d, want 2", pool.Len())
	}
}

func TestIntegerLiterals(t *testing.T) {
	toks, err := scanAll("0 1 42 007")
	if err == nil {
		t.Fatalf("expected leading-zero literal %q to fail, got tokens %v", "007", toks)
	}
	if se, ok := err.(*errors.SourceError); !ok || se.Stage != errors.Lexical {
		t.Fatalf("expected a lexical error for leading zero, got %v", err)
	}
}

func TestSingleZeroIsValid(t *testing.T) {
	assertKinds(t, "0", []token.Kind{token.IntegerLiteral, token.EOF})
}

func TestBlockCommentsAndWhitespaceAreSkipped(t *testing.T) {
	assertKinds(t, "/* comment */ int /* another \n comment */ x", []token.Kind{token.KwInt, token.Identifier, token.EOF})
}

func TestUnterminatedBlockCommentIsLexicalError(t *testing.T) {
	_, err := scanAll("/* never closed")
	se, ok := err.(*errors.SourceError)
	if !ok {
		t.Fatalf("expected *errors.SourceError, got %v", err)
	}
	if se.Stage != errors.Lexical {
		t.Fatalf("stage = %v, want Lexical", se.Stage)
	}
}

func TestUnexpectedByteIsLexicalError(t *testing.T) {
	_, err := scanAll("int x = 1 @ 2;")
	if err == nil {
		t.Fatal("expected an error for the unsupported '@' byte")
	}
}

func TestEOFIsIdempotent(t *testing.T) {
	pool := symtab.New()
	l := New("", pool)
	first := l.Advance()
	second := l.Advance()
	if first.Kind != token.EOF || second.Kind != token.EOF {
		t.Fatalf("expected EOF, EOF; got %v, %v", first.Kind, second.Kind)
	}
	if !l.AtEOF() {
		t.Fatal("AtEOF() should hold once EOF has been produced")
	}
}

func TestPositionsAreOneBased(t *testing.T) {
	pool := symtab.New()
	l := New("int\nx", pool)
	first := l.Advance()
	if first.Position.Line != 1 || first.Position.Column != 1 {
		t.Fatalf("first token position = %v, want 1:1", first.Position)
	}
	second := l.Advance()
	if second.Position.Line != 2 || second.Position.Column != 1 {
		t.Fatalf("second token position = %v, want 2:1", second.Position)
	}
}

func TestTokenStringMatchesLextestFormat(t *testing.T) {
	pool := symtab.New()
	l := New("foo 42 class", pool)
	if got, want := l.Advance().String(), "identifier foo"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got, want := l.Advance().String(), "integer literal 42"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got, want := l.Advance().String(), "class"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
