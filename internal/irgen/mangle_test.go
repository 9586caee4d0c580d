package irgen

import (
	"testing"

	"github.com/minijava-lang/minijava/internal/symtab"
)

func TestMangleClass(t *testing.T) {
	pool := symtab.New()
	name := pool.Intern("Counter")
	if got, want := MangleClass(name), "Mj_Counter_c7"; got != want {
		t.Errorf("MangleClass = %q, want %q", got, want)
	}
}

func TestMangleFieldAndMethod(t *testing.T) {
	pool := symtab.New()
	class := pool.Intern("Fib")
	field := pool.Intern("value")
	method := pool.Intern("compute")

	if got, want := MangleField(class, field), "Mj_Fib_c3_value_f5"; got != want {
		t.Errorf("MangleField = %q, want %q", got, want)
	}
	if got, want := MangleMethod(class, method), "Mj_Fib_c3_compute_m7"; got != want {
		t.Errorf("MangleMethod = %q, want %q", got, want)
	}
}

func TestMangleLocal(t *testing.T) {
	pool := symtab.New()
	v := pool.Intern("i")
	if got, want := MangleLocal(v), "mj_i_v1"; got != want {
		t.Errorf("MangleLocal = %q, want %q", got, want)
	}
}

func TestMangledNamesAreDistinctAcrossClasses(t *testing.T) {
	pool := symtab.New()
	a := pool.Intern("A")
	b := pool.Intern("B")
	field := pool.Intern("x")
	if MangleField(a, field) == MangleField(b, field) {
		t.Error("same field name in different classes must mangle differently")
	}
}

func TestMainLinkerNameIsFixed(t *testing.T) {
	if MainLinkerName != "minijava_main" {
		t.Errorf("MainLinkerName = %q, want minijava_main", MainLinkerName)
	}
}
