// Package semantic resolves names and types over a parsed program and
// produces the annotation side tables a single pass needs: class
// definitions, per-node type/declaration/constant annotations, and the
// fixed set of implicit globals.
//
// Scopes save and restore around nested blocks the way a locals slice is
// snapshotted around a nested compilation unit, generalized here from a
// flat local-slots model to a full class/field/method/local scope stack
// with static typing.
package semantic

import (
	"github.com/minijava-lang/minijava/internal/ast"
	"github.com/minijava-lang/minijava/internal/symtab"
)

// Kind is the basic-type portion of a type annotation.
type Kind int

const (
	KindInt Kind = iota
	KindBoolean
	KindVoid
	KindNull
	KindClass
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindBoolean:
		return "boolean"
	case KindVoid:
		return "void"
	case KindNull:
		return "null"
	case KindClass:
		return "class"
	default:
		return "?"
	}
}

// BasicType is a type with no array rank; Class is valid iff Kind == KindClass.
type BasicType struct {
	Kind  Kind
	Class symtab.Symbol
}

// Type pairs a basic type with an array rank: the (basic type, rank) pair
// assigned to every expression, var_decl, and method node.
type Type struct {
	Basic BasicType
	Rank  int
}

func (t Type) String() string {
	name := t.Basic.Kind.String()
	if t.Basic.Kind == KindClass {
		name = t.Basic.Class.Text()
	}
	for i := 0; i < t.Rank; i++ {
		name += "[]"
	}
	return name
}

func (t Type) IsReference() bool {
	return t.Rank > 0 || t.Basic.Kind == KindClass || t.Basic.Kind == KindNull
}

func intType() Type     { return Type{Basic: BasicType{Kind: KindInt}} }
func boolType() Type    { return Type{Basic: BasicType{Kind: KindBoolean}} }
func voidType() Type    { return Type{Basic: BasicType{Kind: KindVoid}} }
func nullType() Type    { return Type{Basic: BasicType{Kind: KindNull}} }
func classType(c symtab.Symbol, rank int) Type {
	return Type{Basic: BasicType{Kind: KindClass, Class: c}, Rank: rank}
}

// sameBasic reports whether two basic types denote the same type.
func sameBasic(a, b BasicType) bool {
	if a.Kind != b.Kind {
		return false
	}
	if a.Kind == KindClass {
		return a.Class == b.Class
	}
	return true
}

// assignable reports whether a value of type from may be stored into a
// location of type to: exact match for primitives and same-rank-same-class
// for references, with null assignable to any reference type.
func assignable(to, from Type) bool {
	if from.Basic.Kind == KindNull {
		return to.IsReference()
	}
	if to.Rank != from.Rank {
		return false
	}
	return sameBasic(to.Basic, from.Basic)
}

// equalityComparable reports whether a and b may appear on either side of
// `==`/`!=`: both int, or both reference-like with one assignable to the
// other.
func equalityComparable(a, b Type) bool {
	if a.Basic.Kind == KindInt && b.Basic.Kind == KindInt && a.Rank == 0 && b.Rank == 0 {
		return true
	}
	if a.IsReference() && b.IsReference() {
		return assignable(a, b) || assignable(b, a)
	}
	return false
}

// ClassInfo is the class_definitions entry for one name: a user class, a
// built-in class, or one of the four primitive pseudo-types.
type ClassInfo struct {
	Name         symtab.Symbol
	Builtin      bool
	Primitive    bool
	Instantiable bool
	Decl         *ast.ClassDeclaration // nil for primitive pseudo-types
}

// Info is the full set of annotation side tables produced by Check, keyed
// by AST node ID rather than by node pointer so the maps stay comparable
// and GC-friendly.
type Info struct {
	ClassDefinitions map[symtab.Symbol]*ClassInfo

	TypeAnnotations  map[uint64]Type
	LocalsAnnotations map[uint64][]*ast.VarDecl
	VarDeclAnnotations map[uint64]*ast.VarDecl
	MethodAnnotations map[uint64]*ast.InstanceMethod
	ConstAnnotations  map[uint64]int32

	Globals []*ast.VarDecl

	// Builtins is the sidecar AST of synthesized builtin class
	// declarations (String, PrintStream, System) that class_definitions
	// points into for their Decl fields.
	Builtins []*ast.ClassDeclaration
}

func newInfo() *Info {
	return &Info{
		ClassDefinitions:   make(map[symtab.Symbol]*ClassInfo),
		TypeAnnotations:    make(map[uint64]Type),
		LocalsAnnotations:  make(map[uint64][]*ast.VarDecl),
		VarDeclAnnotations: make(map[uint64]*ast.VarDecl),
		MethodAnnotations:  make(map[uint64]*ast.InstanceMethod),
		ConstAnnotations:   make(map[uint64]int32),
	}
}
