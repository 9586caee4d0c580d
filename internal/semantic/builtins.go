package semantic

import (
	"github.com/minijava-lang/minijava/internal/ast"
	"github.com/minijava-lang/minijava/internal/symtab"
	"github.com/minijava-lang/minijava/internal/token"
)

// synthesizeBuiltins builds the sidecar AST for String, PrintStream, and
// System using a private factory so their node IDs never collide with the
// user program's, and returns the implicit globals (System, System.out)
// sorted by name.
func synthesizeBuiltins(pool *symtab.Pool, b symtab.Builtins) (classes []*ast.ClassDeclaration, globals []*ast.VarDecl) {
	f := ast.NewFactory()
	pos := token.Unknown

	stringClass := f.NewClassDeclaration(pos, b.String, nil, nil, nil)

	printlnParam := f.NewVarDecl(pos, f.NewTypeRef(pos, ast.PrimitiveInt, symtab.Symbol{}, 0), pool.Intern("x"))
	println := f.NewInstanceMethod(pos, f.NewTypeRef(pos, ast.PrimitiveVoid, symtab.Symbol{}, 0), b.Println,
		[]*ast.VarDecl{printlnParam}, f.NewBlock(pos, nil))
	printStreamClass := f.NewClassDeclaration(pos, b.PrintStream, nil, []*ast.InstanceMethod{println}, nil)

	outField := f.NewVarDecl(pos, f.NewTypeRef(pos, ast.PrimitiveClass, b.PrintStream, 0), b.Out)
	systemClass := f.NewClassDeclaration(pos, b.System, []*ast.VarDecl{outField}, nil, nil)

	classes = []*ast.ClassDeclaration{stringClass, printStreamClass, systemClass}

	systemGlobal := f.NewVarDecl(pos, f.NewTypeRef(pos, ast.PrimitiveClass, b.System, 0), b.System)
	outGlobal := f.NewVarDecl(pos, f.NewTypeRef(pos, ast.PrimitiveClass, b.PrintStream, 0), b.Out)
	globals = []*ast.VarDecl{systemGlobal, outGlobal}
	if globals[0].Name.Text() > globals[1].Name.Text() {
		globals[0], globals[1] = globals[1], globals[0]
	}
	return classes, globals
}
