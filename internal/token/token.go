package token

import "github.com/minijava-lang/minijava/internal/symtab"

// Token is a value (kind, position, lexeme?). Lexeme is only meaningful
// when Kind.HasLexeme() holds; it is the zero Symbol otherwise.
type Token struct {
	Kind     Kind
	Position Position
	Lexeme   symtab.Symbol
}

func (t Token) String() string {
	if t.Kind.HasLexeme() {
		return t.Kind.Name() + " " + t.Lexeme.Text()
	}
	return t.Kind.Name()
}
