package symtab

import "testing"

func TestInternReturnsCanonicalSymbol(t *testing.T) {
	p := New()
	a := p.Intern("foo")
	b := p.Intern("foo")
	if a != b {
		t.Errorf("interning %q twice produced distinct symbols: %v != %v", "foo", a, b)
	}
}

func TestInternDistinguishesDifferentText(t *testing.T) {
	p := New()
	a := p.Intern("foo")
	b := p.Intern("bar")
	if a == b {
		t.Error("distinct strings interned to the same symbol")
	}
}

func TestSymbolTextRoundTrips(t *testing.T) {
	p := New()
	s := p.Intern("hello")
	if s.Text() != "hello" {
		t.Errorf("Text() = %q, want %q", s.Text(), "hello")
	}
}

func TestZeroSymbolIsInvalid(t *testing.T) {
	var s Symbol
	if s.Valid() {
		t.Error("zero-value Symbol reported Valid")
	}
	if s.Text() != "" {
		t.Errorf("zero-value Symbol.Text() = %q, want empty", s.Text())
	}
}

func TestContainsDoesNotInsert(t *testing.T) {
	p := New()
	if p.Contains("foo") {
		t.Fatal("Contains reported true before any interning")
	}
	if p.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", p.Len())
	}
	p.Intern("foo")
	if !p.Contains("foo") {
		t.Error("Contains reported false after interning")
	}
}

func TestNewWithBuiltinsPreInternsKeywordsAndReservedNames(t *testing.T) {
	pool, builtins := NewWithBuiltins()
	for _, kw := range AllKeywords() {
		if !pool.Contains(kw) {
			t.Errorf("keyword %q was not pre-interned", kw)
		}
	}
	if builtins.String.Text() != "String" {
		t.Errorf("builtins.String.Text() = %q, want String", builtins.String.Text())
	}
	if builtins.Println.Text() != "println" {
		t.Errorf("builtins.Println.Text() = %q, want println", builtins.Println.Text())
	}
	if !pool.Contains(JavaIoPrintStream) {
		t.Error("java.io.PrintStream was not pre-interned")
	}
}

func TestBuiltinsAreStableAcrossIndependentPools(t *testing.T) {
	_, first := NewWithBuiltins()
	_, second := NewWithBuiltins()
	if first.String.Text() != second.String.Text() {
		t.Error("builtins diverged across independently constructed pools")
	}
}
