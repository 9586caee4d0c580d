package irgen

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/types"

	"github.com/minijava-lang/minijava/internal/ast"
	"github.com/minijava-lang/minijava/internal/semantic"
	"github.com/minijava-lang/minijava/internal/symtab"
)

// FieldSlot locates a field within its class's LLVM struct layout.
type FieldSlot struct {
	Index int
	Type  types.Type
}

// ClassLayout is Pass 1's output for one class: its record type, the
// pointer-to-record type every reference value of that class uses, and
// the field-name-to-slot mapping used by Pass 2's GEP lowering.
type ClassLayout struct {
	Record  *types.StructType
	Pointer *types.PointerType
	Fields  map[symtab.Symbol]FieldSlot
}

// Program is the assembled IR module plus the metadata Pass 2 and the
// optimizer need: class layouts, method functions, and the two runtime
// externs, keyed the `irg/`-style way: a flat "builtins" map rather than
// ad hoc globals.
type Program struct {
	Module *ir.Module

	Classes map[symtab.Symbol]*ClassLayout
	Methods map[uint64]*ir.Func // keyed by ast.InstanceMethod.ID(); main is held in Main, not here
	Main    *ir.Func

	arrayTypes map[arrayKey]*types.PointerType

	Builtins map[string]*ir.Func // mj_runtime_allocate, mj_runtime_println
}

type arrayKey struct {
	elem types.Type
	rank int
}

// llvmIntType and llvmBoolType are the only scalar LLVM types MiniJava's
// `int`/`boolean` ever lower to.
var (
	llvmIntType  = types.I32
	llvmBoolType = types.I1
)

// BuildTypes runs Pass 1 of type construction: materializes an IR class type
// and pointer-to-class type for every class referenced in info, a
// method-type-shaped ir.Func for every method, field entities for every
// field, and the two runtime externs. Array types are built lazily by
// arrayPointerType as Pass 2 encounters `new T[]` expressions and array
// field/parameter types.
func BuildTypes(program *ast.Program, info *semantic.Info) *Program {
	m := ir.NewModule()
	p := &Program{
		Module:     m,
		Classes:    make(map[symtab.Symbol]*ClassLayout),
		Methods:    make(map[uint64]*ir.Func),
		arrayTypes: make(map[arrayKey]*types.PointerType),
		Builtins:   make(map[string]*ir.Func),
	}

	p.registerRuntime()

	// Classes are declared (opaque struct + pointer) before any layout is
	// computed, so field types that reference other classes (including a
	// class referencing itself) resolve without forward-declaration
	// trouble.
	for _, c := range program.Classes {
		p.declareClass(c.Name)
	}
	for _, c := range program.Classes {
		p.layoutClass(c, info)
	}
	for _, c := range program.Classes {
		for _, meth := range c.InstanceMethods {
			p.declareMethod(c, meth, info)
		}
	}
	return p
}

func (p *Program) registerRuntime() {
	allocate := p.Module.NewFunc(
		"mj_runtime_allocate",
		types.NewPointer(types.I8),
		ir.NewParam("element_size", types.I64),
		ir.NewParam("count", types.I64),
	)
	println_ := p.Module.NewFunc(
		"mj_runtime_println",
		types.Void,
		ir.NewParam("n", types.I32),
	)
	p.Builtins["mj_runtime_allocate"] = allocate
	p.Builtins["mj_runtime_println"] = println_
}

func (p *Program) declareClass(name symtab.Symbol) {
	record := types.NewStruct()
	p.Module.NewTypeDef(MangleClass(name), record)
	p.Classes[name] = &ClassLayout{
		Record:  record,
		Pointer: types.NewPointer(record),
		Fields:  make(map[symtab.Symbol]FieldSlot),
	}
}

// layoutClass fills in record's field list in declaration order; an empty
// class gets a single synthetic `int` field so the backend never sees a
// zero-sized record.
func (p *Program) layoutClass(c *ast.ClassDeclaration, info *semantic.Info) {
	layout := p.Classes[c.Name]
	if len(c.Fields) == 0 {
		layout.Record.Fields = append(layout.Record.Fields, llvmIntType)
		return
	}
	for i, f := range c.Fields {
		t := p.llvmType(info.TypeAnnotations[f.ID()])
		layout.Record.Fields = append(layout.Record.Fields, t)
		layout.Fields[f.Name] = FieldSlot{Index: i, Type: t}
	}
}

func (p *Program) declareMethod(c *ast.ClassDeclaration, meth *ast.InstanceMethod, info *semantic.Info) {
	recv := ir.NewParam("this", p.Classes[c.Name].Pointer)
	params := []*ir.Param{recv}
	for _, param := range meth.Parameters {
		params = append(params, ir.NewParam(MangleLocal(param.Name), p.llvmType(info.TypeAnnotations[param.ID()])))
	}
	retType := p.llvmType(info.TypeAnnotations[meth.ID()])
	fn := p.Module.NewFunc(MangleMethod(c.Name, meth.Name), retType, params...)
	p.Methods[meth.ID()] = fn
}

// llvmType maps a semantic.Type to its LLVM representation: scalars map
// directly, classes map to their pointer-to-record type, and any rank > 0
// maps to the array pointer type built by arrayPointerType.
func (p *Program) llvmType(t semantic.Type) types.Type {
	if t.Rank > 0 {
		return p.arrayPointerType(t.Basic, t.Rank)
	}
	switch t.Basic.Kind {
	case semantic.KindInt:
		return llvmIntType
	case semantic.KindBoolean:
		return llvmBoolType
	case semantic.KindVoid:
		return types.Void
	case semantic.KindClass:
		return p.Classes[t.Basic.Class].Pointer
	default:
		return types.NewPointer(types.I8)
	}
}

// arrayPointerType builds (lazily, and only once per shape) the chain of
// array record types: a rank-N array of T is a pointer to a record {int32
// length; T elements[0]} nested N-1 times around the rank-(N-1) array
// pointer.
func (p *Program) arrayPointerType(basic semantic.BasicType, rank int) *types.PointerType {
	var elem types.Type
	switch basic.Kind {
	case semantic.KindInt:
		elem = llvmIntType
	case semantic.KindBoolean:
		elem = llvmBoolType
	case semantic.KindClass:
		elem = p.Classes[basic.Class].Pointer
	default:
		elem = types.NewPointer(types.I8)
	}
	for i := 0; i < rank; i++ {
		key := arrayKey{elem: elem, rank: i + 1}
		if cached, ok := p.arrayTypes[key]; ok {
			elem = cached
			continue
		}
		record := types.NewStruct(llvmIntType, types.NewArray(0, elem))
		ptr := types.NewPointer(record)
		p.arrayTypes[key] = ptr
		elem = ptr
	}
	return elem.(*types.PointerType)
}
