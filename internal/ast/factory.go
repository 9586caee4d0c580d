package ast

import (
	"github.com/minijava-lang/minijava/internal/symtab"
	"github.com/minijava-lang/minijava/internal/token"
)

// Factory assigns unique sequential, non-zero IDs to every node it
// creates, so node IDs form {1..N} within one tree. The parser is the
// only intended caller.
type Factory struct {
	nextID uint64
}

// NewFactory creates a factory whose first node gets ID 1.
func NewFactory() *Factory {
	return &Factory{nextID: 1}
}

func (f *Factory) next() uint64 {
	id := f.nextID
	f.nextID++
	return id
}

func (f *Factory) b(pos token.Position) base {
	return base{id: f.next(), pos: pos}
}

func (f *Factory) NewTypeRef(pos token.Position, base_ PrimitiveType, class symtab.Symbol, rank int) *TypeRef {
	return &TypeRef{base: f.b(pos), Base: base_, ClassName: class, Rank: rank}
}

func (f *Factory) NewVarDecl(pos token.Position, typ *TypeRef, name symtab.Symbol) *VarDecl {
	return &VarDecl{base: f.b(pos), Type: typ, Name: name}
}

func (f *Factory) NewIntegerConstant(pos token.Position, lexeme symtab.Symbol, negative bool) *IntegerConstant {
	return &IntegerConstant{base: f.b(pos), Lexeme: lexeme, Negative: negative}
}

func (f *Factory) NewBooleanConstant(pos token.Position, value bool) *BooleanConstant {
	return &BooleanConstant{base: f.b(pos), Value: value}
}

func (f *Factory) NewNullConstant(pos token.Position) *NullConstant {
	return &NullConstant{base: f.b(pos)}
}

func (f *Factory) NewThisRef(pos token.Position) *ThisRef {
	return &ThisRef{base: f.b(pos)}
}

func (f *Factory) NewVariableAccess(pos token.Position, target Expr, name symtab.Symbol) *VariableAccess {
	return &VariableAccess{base: f.b(pos), Target: target, Name: name}
}

func (f *Factory) NewArrayAccess(pos token.Position, target, index Expr) *ArrayAccess {
	return &ArrayAccess{base: f.b(pos), Target: target, Index: index}
}

func (f *Factory) NewMethodInvocation(pos token.Position, target Expr, name symtab.Symbol, args []Expr) *MethodInvocation {
	return &MethodInvocation{base: f.b(pos), Target: target, Name: name, Arguments: args}
}

func (f *Factory) NewObjectInstantiation(pos token.Position, class symtab.Symbol) *ObjectInstantiation {
	return &ObjectInstantiation{base: f.b(pos), ClassName: class}
}

func (f *Factory) NewArrayInstantiation(pos token.Position, elem *TypeRef, extent Expr) *ArrayInstantiation {
	return &ArrayInstantiation{base: f.b(pos), ElementType: elem, Extent: extent}
}

func (f *Factory) NewBinaryExpr(pos token.Position, op BinaryOp, lhs, rhs Expr) *BinaryExpr {
	return &BinaryExpr{base: f.b(pos), Op: op, Left: lhs, Right: rhs}
}

func (f *Factory) NewUnaryExpr(pos token.Position, op UnaryOp, target Expr) *UnaryExpr {
	return &UnaryExpr{base: f.b(pos), Op: op, Target: target}
}

func (f *Factory) NewEmptyStmt(pos token.Position) *EmptyStmt {
	return &EmptyStmt{base: f.b(pos)}
}

func (f *Factory) NewExpressionStmt(pos token.Position, expr Expr) *ExpressionStmt {
	return &ExpressionStmt{base: f.b(pos), Expr: expr}
}

func (f *Factory) NewLocalVariableStmt(pos token.Position, decl *VarDecl, init Expr) *LocalVariableStmt {
	return &LocalVariableStmt{base: f.b(pos), Decl: decl, Initializer: init}
}

func (f *Factory) NewBlock(pos token.Position, stmts []Stmt) *Block {
	return &Block{base: f.b(pos), Statements: stmts}
}

func (f *Factory) NewIfStmt(pos token.Position, cond Expr, then, els Stmt) *IfStmt {
	return &IfStmt{base: f.b(pos), Condition: cond, Then: then, Else: els}
}

func (f *Factory) NewWhileStmt(pos token.Position, cond Expr, body Stmt) *WhileStmt {
	return &WhileStmt{base: f.b(pos), Condition: cond, Body: body}
}

func (f *Factory) NewReturnStmt(pos token.Position, value Expr) *ReturnStmt {
	return &ReturnStmt{base: f.b(pos), Value: value}
}

func (f *Factory) NewMainMethod(pos token.Position, name, argv symtab.Symbol, body *Block) *MainMethod {
	return &MainMethod{base: f.b(pos), Name: name, ArgvName: argv, Body: body}
}

func (f *Factory) NewInstanceMethod(pos token.Position, ret *TypeRef, name symtab.Symbol, params []*VarDecl, body *Block) *InstanceMethod {
	return &InstanceMethod{base: f.b(pos), ReturnType: ret, Name: name, Parameters: params, Body: body}
}

func (f *Factory) NewClassDeclaration(pos token.Position, name symtab.Symbol, fields []*VarDecl, methods []*InstanceMethod, mains []*MainMethod) *ClassDeclaration {
	return &ClassDeclaration{base: f.b(pos), Name: name, Fields: fields, InstanceMethods: methods, MainMethods: mains}
}

func (f *Factory) NewProgram(pos token.Position, classes []*ClassDeclaration) *Program {
	return &Program{base: f.b(pos), Classes: classes}
}
