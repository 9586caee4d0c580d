package semantic

import (
	"github.com/minijava-lang/minijava/internal/ast"
	"github.com/minijava-lang/minijava/internal/errors"
	"github.com/minijava-lang/minijava/internal/symtab"
	"github.com/minijava-lang/minijava/internal/token"
)

// scope maps a name to the var_decl that introduces it in the innermost
// enclosing block.
type scope map[symtab.Symbol]*ast.VarDecl

// Analyzer walks a parsed program once, building the Info aggregate.
// Errors are reported by panicking with an *errors.SourceError, caught by
// Check; this mirrors the parser and lexer's panic/recover discipline
// rather than threading an error return through every recursive call.
type Analyzer struct {
	pool *symtab.Pool
	b    symtab.Builtins
	info *Info

	synth *ast.Factory

	scopes       []scope
	currentClass *ast.ClassDeclaration
	inMain       bool
	locals       []*ast.VarDecl
}

// Check resolves names and types over program, returning the full
// annotation aggregate or the first semantic_error encountered.
func Check(program *ast.Program, pool *symtab.Pool, b symtab.Builtins) (info *Info, err error) {
	a := &Analyzer{pool: pool, b: b, info: newInfo(), synth: ast.NewFactory()}
	defer func() {
		if r := recover(); r != nil {
			if se, ok := r.(*errors.SourceError); ok {
				err = se
				return
			}
			panic(r)
		}
	}()
	a.run(program)
	return a.info, nil
}

func (a *Analyzer) run(program *ast.Program) {
	a.installBuiltins()

	for _, c := range program.Classes {
		if _, exists := a.info.ClassDefinitions[c.Name]; exists {
			panic(errors.NewSemantic(c.Pos(), "duplicate class %q", c.Name.Text()))
		}
		a.info.ClassDefinitions[c.Name] = &ClassInfo{Name: c.Name, Instantiable: true, Decl: c}
	}

	for _, c := range program.Classes {
		a.checkMemberDuplicates(c)
	}
	for _, c := range program.Classes {
		a.resolveMemberTypes(c)
	}

	mains := 0
	for _, c := range program.Classes {
		mains += len(c.MainMethods)
	}
	if mains == 0 {
		panic(errors.NewSemantic(program.Pos(), "no main method found"))
	}
	if mains > 1 {
		panic(errors.NewSemantic(program.Pos(), "more than one main method found"))
	}

	for _, c := range program.Classes {
		a.currentClass = c
		for _, m := range c.InstanceMethods {
			a.analyzeInstanceMethod(m)
		}
		for _, m := range c.MainMethods {
			a.analyzeMainMethod(m)
		}
	}
	a.currentClass = nil
}

func (a *Analyzer) installBuiltins() {
	classes, globals := synthesizeBuiltins(a.pool, a.b)
	a.info.Builtins = classes
	a.info.Globals = globals

	primitive := func(name string) symtab.Symbol { return a.pool.Intern(name) }
	a.info.ClassDefinitions[primitive("int")] = &ClassInfo{Name: primitive("int"), Primitive: true}
	a.info.ClassDefinitions[primitive("boolean")] = &ClassInfo{Name: primitive("boolean"), Primitive: true}
	a.info.ClassDefinitions[primitive("void")] = &ClassInfo{Name: primitive("void"), Primitive: true}
	a.info.ClassDefinitions[primitive("null")] = &ClassInfo{Name: primitive("null"), Primitive: true}

	for _, c := range classes {
		a.info.ClassDefinitions[c.Name] = &ClassInfo{Name: c.Name, Builtin: true, Instantiable: false, Decl: c}
	}

	// Classes must all be registered above before resolving member types,
	// since a field or parameter of one builtin class may reference
	// another (PrintStream's println parameter, System's out field).
	for _, c := range classes {
		a.resolveMemberTypes(c)
	}
	for _, g := range globals {
		a.info.TypeAnnotations[g.ID()] = a.resolveType(g.Type)
	}
}

// ---- class/member scanning ----

func (a *Analyzer) checkMemberDuplicates(c *ast.ClassDeclaration) {
	fields := map[symtab.Symbol]bool{}
	for _, f := range c.Fields {
		if fields[f.Name] {
			panic(errors.NewSemantic(f.Pos(), "duplicate field %q in class %q", f.Name.Text(), c.Name.Text()))
		}
		fields[f.Name] = true
	}
	methods := map[symtab.Symbol]bool{}
	for _, m := range c.InstanceMethods {
		if methods[m.Name] {
			panic(errors.NewSemantic(m.Pos(), "duplicate method %q in class %q", m.Name.Text(), c.Name.Text()))
		}
		methods[m.Name] = true
	}
	for _, m := range c.MainMethods {
		if methods[m.Name] {
			panic(errors.NewSemantic(m.Pos(), "duplicate method %q in class %q", m.Name.Text(), c.Name.Text()))
		}
		methods[m.Name] = true
	}
}

// resolveType converts a parsed type reference into a semantic Type,
// rejecting references to undeclared classes.
func (a *Analyzer) resolveType(t *ast.TypeRef) Type {
	switch t.Base {
	case ast.PrimitiveInt:
		return Type{Basic: BasicType{Kind: KindInt}, Rank: t.Rank}
	case ast.PrimitiveBoolean:
		return Type{Basic: BasicType{Kind: KindBoolean}, Rank: t.Rank}
	case ast.PrimitiveVoid:
		return Type{Basic: BasicType{Kind: KindVoid}, Rank: t.Rank}
	default:
		if _, ok := a.info.ClassDefinitions[t.ClassName]; !ok {
			panic(errors.NewSemantic(t.Pos(), "undefined type %q", t.ClassName.Text()))
		}
		return Type{Basic: BasicType{Kind: KindClass, Class: t.ClassName}, Rank: t.Rank}
	}
}

func (a *Analyzer) resolveMemberTypes(c *ast.ClassDeclaration) {
	for _, f := range c.Fields {
		a.info.TypeAnnotations[f.ID()] = a.resolveType(f.Type)
	}
	for _, m := range c.InstanceMethods {
		ret := a.resolveType(m.ReturnType)
		a.info.TypeAnnotations[m.ID()] = ret
		for _, p := range m.Parameters {
			a.info.TypeAnnotations[p.ID()] = a.resolveType(p.Type)
		}
	}
}

// ---- scope stack ----

func (a *Analyzer) pushScope()    { a.scopes = append(a.scopes, scope{}) }
func (a *Analyzer) popScope()     { a.scopes = a.scopes[:len(a.scopes)-1] }

func (a *Analyzer) lookupLocal(name symtab.Symbol) (*ast.VarDecl, bool) {
	for i := len(a.scopes) - 1; i >= 0; i-- {
		if d, ok := a.scopes[i][name]; ok {
			return d, true
		}
	}
	return nil, false
}

// declare introduces decl into the innermost scope, rejecting any name
// already visible anywhere on the scope stack: redeclaring a name in a
// nested scope is forbidden.
func (a *Analyzer) declare(decl *ast.VarDecl) {
	if _, ok := a.lookupLocal(decl.Name); ok {
		panic(errors.NewSemantic(decl.Pos(), "redeclaration of %q", decl.Name.Text()))
	}
	a.scopes[len(a.scopes)-1][decl.Name] = decl
	a.locals = append(a.locals, decl)
}

func (a *Analyzer) lookupField(name symtab.Symbol) (*ast.VarDecl, bool) {
	if a.currentClass == nil {
		return nil, false
	}
	for _, f := range a.currentClass.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

func (a *Analyzer) classDecl(t Type) *ast.ClassDeclaration {
	if t.Basic.Kind != KindClass {
		return nil
	}
	info := a.info.ClassDefinitions[t.Basic.Class]
	if info == nil {
		return nil
	}
	return info.Decl
}

func (a *Analyzer) findField(class *ast.ClassDeclaration, name symtab.Symbol) (*ast.VarDecl, bool) {
	if class == nil {
		return nil, false
	}
	for _, f := range class.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

func (a *Analyzer) findMethod(class *ast.ClassDeclaration, name symtab.Symbol) (*ast.InstanceMethod, bool) {
	if class == nil {
		return nil, false
	}
	for _, m := range class.InstanceMethods {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// ---- method bodies ----

func (a *Analyzer) analyzeInstanceMethod(m *ast.InstanceMethod) {
	a.scopes = nil
	a.locals = nil
	a.inMain = false
	a.pushScope()
	for _, p := range m.Parameters {
		a.declare(p)
	}
	retType := a.info.TypeAnnotations[m.ID()]
	a.checkStmt(m.Body, retType)
	if retType.Basic.Kind != KindVoid && !definitelyReturns(m.Body) {
		panic(errors.NewSemantic(m.Pos(), "method %q does not return a value on every path", m.Name.Text()))
	}
	a.popScope()
	a.info.LocalsAnnotations[m.ID()] = a.locals
}

func (a *Analyzer) analyzeMainMethod(m *ast.MainMethod) {
	a.scopes = nil
	a.locals = nil
	a.inMain = true
	a.pushScope()
	argvType := Type{Basic: BasicType{Kind: KindClass, Class: a.b.String}, Rank: 1}
	argv := a.synth.NewVarDecl(m.Pos(), a.synth.NewTypeRef(m.Pos(), ast.PrimitiveClass, a.b.String, 1), m.ArgvName)
	a.info.TypeAnnotations[argv.ID()] = argvType
	a.declare(argv)
	a.checkStmt(m.Body, voidType())
	a.popScope()
	a.info.LocalsAnnotations[m.ID()] = a.locals
	a.inMain = false
}

// definitelyReturns implements a structural (non-data-flow) return check:
// a block returns iff its last statement does; an if returns only when
// both branches do and an else is present; a while loop never counts,
// since its body may run zero times.
func definitelyReturns(s ast.Stmt) bool {
	switch n := s.(type) {
	case *ast.ReturnStmt:
		return true
	case *ast.Block:
		if len(n.Statements) == 0 {
			return false
		}
		return definitelyReturns(n.Statements[len(n.Statements)-1])
	case *ast.IfStmt:
		return n.Else != nil && definitelyReturns(n.Then) && definitelyReturns(n.Else)
	default:
		return false
	}
}

func (a *Analyzer) checkStmt(s ast.Stmt, returnType Type) {
	switch n := s.(type) {
	case *ast.EmptyStmt:
	case *ast.ExpressionStmt:
		a.typeExpr(n.Expr)
	case *ast.LocalVariableStmt:
		declType := a.resolveType(n.Decl.Type)
		a.info.TypeAnnotations[n.Decl.ID()] = declType
		if n.Initializer != nil {
			initType := a.typeExpr(n.Initializer)
			if !assignable(declType, initType) {
				panic(errors.NewSemantic(n.Initializer.Pos(), "cannot assign %s to %s", initType, declType))
			}
		}
		a.declare(n.Decl)
	case *ast.Block:
		a.pushScope()
		for _, stmt := range n.Statements {
			a.checkStmt(stmt, returnType)
		}
		a.popScope()
	case *ast.IfStmt:
		condType := a.typeExpr(n.Condition)
		if condType.Basic.Kind != KindBoolean || condType.Rank != 0 {
			panic(errors.NewSemantic(n.Condition.Pos(), "if condition must be boolean, got %s", condType))
		}
		a.checkStmt(n.Then, returnType)
		if n.Else != nil {
			a.checkStmt(n.Else, returnType)
		}
	case *ast.WhileStmt:
		condType := a.typeExpr(n.Condition)
		if condType.Basic.Kind != KindBoolean || condType.Rank != 0 {
			panic(errors.NewSemantic(n.Condition.Pos(), "while condition must be boolean, got %s", condType))
		}
		a.checkStmt(n.Body, returnType)
	case *ast.ReturnStmt:
		if n.Value == nil {
			if returnType.Basic.Kind != KindVoid {
				panic(errors.NewSemantic(n.Pos(), "missing return value"))
			}
			return
		}
		if returnType.Basic.Kind == KindVoid {
			panic(errors.NewSemantic(n.Value.Pos(), "void method must not return a value"))
		}
		valType := a.typeExpr(n.Value)
		if !assignable(returnType, valType) {
			panic(errors.NewSemantic(n.Value.Pos(), "cannot return %s as %s", valType, returnType))
		}
	default:
		errors.Assert(false, "unhandled statement kind %T", s)
	}
}

// typeExpr computes the type of e, recording TypeAnnotations and (where
// applicable) VarDeclAnnotations, MethodAnnotations, and ConstAnnotations.
func (a *Analyzer) typeExpr(e ast.Expr) Type {
	t := a.typeExprUncached(e)
	a.info.TypeAnnotations[e.ID()] = t
	return t
}

func (a *Analyzer) typeExprUncached(e ast.Expr) Type {
	switch n := e.(type) {
	case *ast.IntegerConstant:
		v := parseIntLiteral(n.Lexeme.Text(), n.Negative)
		a.info.ConstAnnotations[n.ID()] = v
		return intType()
	case *ast.BooleanConstant:
		return boolType()
	case *ast.NullConstant:
		return nullType()
	case *ast.ThisRef:
		if a.inMain {
			panic(errors.NewSemantic(n.Pos(), "'this' is not allowed inside main"))
		}
		return classType(a.currentClass.Name, 0)
	case *ast.VariableAccess:
		return a.typeVariableAccess(n)
	case *ast.ArrayAccess:
		return a.typeArrayAccess(n)
	case *ast.MethodInvocation:
		return a.typeMethodInvocation(n)
	case *ast.ObjectInstantiation:
		return a.typeObjectInstantiation(n)
	case *ast.ArrayInstantiation:
		return a.typeArrayInstantiation(n)
	case *ast.BinaryExpr:
		return a.typeBinaryExpr(n)
	case *ast.UnaryExpr:
		return a.typeUnaryExpr(n)
	default:
		errors.Assert(false, "unhandled expression kind %T", e)
		return Type{}
	}
}

func (a *Analyzer) typeVariableAccess(n *ast.VariableAccess) Type {
	if n.Target != nil {
		targetType := a.typeExpr(n.Target)
		class := a.classDecl(targetType)
		field, ok := a.findField(class, n.Name)
		if !ok {
			panic(errors.NewSemantic(n.Pos(), "type %s has no field %q", targetType, n.Name.Text()))
		}
		a.info.VarDeclAnnotations[n.ID()] = field
		return a.info.TypeAnnotations[field.ID()]
	}

	if d, ok := a.lookupLocal(n.Name); ok {
		a.info.VarDeclAnnotations[n.ID()] = d
		return a.info.TypeAnnotations[d.ID()]
	}
	if !a.inMain {
		if f, ok := a.lookupField(n.Name); ok {
			a.info.VarDeclAnnotations[n.ID()] = f
			return a.info.TypeAnnotations[f.ID()]
		}
	}
	if n.Name == a.b.System {
		for _, g := range a.info.Globals {
			if g.Name == a.b.System {
				a.info.VarDeclAnnotations[n.ID()] = g
				return a.info.TypeAnnotations[g.ID()]
			}
		}
	}
	panic(errors.NewSemantic(n.Pos(), "undefined name %q", n.Name.Text()))
}

func (a *Analyzer) typeArrayAccess(n *ast.ArrayAccess) Type {
	targetType := a.typeExpr(n.Target)
	if targetType.Rank == 0 {
		panic(errors.NewSemantic(n.Target.Pos(), "type %s is not an array", targetType))
	}
	indexType := a.typeExpr(n.Index)
	if indexType.Basic.Kind != KindInt || indexType.Rank != 0 {
		panic(errors.NewSemantic(n.Index.Pos(), "array index must be int, got %s", indexType))
	}
	return Type{Basic: targetType.Basic, Rank: targetType.Rank - 1}
}

func (a *Analyzer) typeMethodInvocation(n *ast.MethodInvocation) Type {
	var class *ast.ClassDeclaration
	if n.Target != nil {
		targetType := a.typeExpr(n.Target)
		class = a.classDecl(targetType)
	} else {
		if a.inMain {
			panic(errors.NewSemantic(n.Pos(), "cannot call instance method %q without an object", n.Name.Text()))
		}
		class = a.currentClass
	}
	method, ok := a.findMethod(class, n.Name)
	if !ok {
		panic(errors.NewSemantic(n.Pos(), "undefined method %q", n.Name.Text()))
	}
	if len(n.Arguments) != len(method.Parameters) {
		panic(errors.NewSemantic(n.Pos(), "method %q expects %d arguments, got %d", n.Name.Text(), len(method.Parameters), len(n.Arguments)))
	}
	for i, arg := range n.Arguments {
		argType := a.typeExpr(arg)
		paramType := a.info.TypeAnnotations[method.Parameters[i].ID()]
		if !assignable(paramType, argType) {
			panic(errors.NewSemantic(arg.Pos(), "argument %d: cannot assign %s to %s", i+1, argType, paramType))
		}
	}
	a.info.MethodAnnotations[n.ID()] = method
	return a.info.TypeAnnotations[method.ID()]
}

func (a *Analyzer) typeObjectInstantiation(n *ast.ObjectInstantiation) Type {
	info, ok := a.info.ClassDefinitions[n.ClassName]
	if !ok || !info.Instantiable {
		panic(errors.NewSemantic(n.Pos(), "type %q is not instantiable", n.ClassName.Text()))
	}
	return classType(n.ClassName, 0)
}

func (a *Analyzer) typeArrayInstantiation(n *ast.ArrayInstantiation) Type {
	extentType := a.typeExpr(n.Extent)
	if extentType.Basic.Kind != KindInt || extentType.Rank != 0 {
		panic(errors.NewSemantic(n.Extent.Pos(), "array size must be int, got %s", extentType))
	}
	elemType := a.resolveType(n.ElementType)
	if elemType.Basic.Kind == KindVoid {
		panic(errors.NewSemantic(n.Pos(), "cannot create an array of void"))
	}
	return Type{Basic: elemType.Basic, Rank: elemType.Rank + 1}
}

func (a *Analyzer) typeBinaryExpr(n *ast.BinaryExpr) Type {
	if n.Op == ast.OpAssign {
		return a.typeAssignment(n)
	}

	left := a.typeExpr(n.Left)
	right := a.typeExpr(n.Right)

	switch n.Op {
	case ast.OpOr, ast.OpAnd:
		if left.Basic.Kind != KindBoolean || right.Basic.Kind != KindBoolean || left.Rank != 0 || right.Rank != 0 {
			panic(errors.NewSemantic(n.Pos(), "operands of %v must be boolean", n.Op))
		}
		return boolType()
	case ast.OpEqual, ast.OpNotEqual:
		if !equalityComparable(left, right) {
			panic(errors.NewSemantic(n.Pos(), "cannot compare %s with %s", left, right))
		}
		a.foldComparison(n, left, right)
		return boolType()
	case ast.OpLess, ast.OpLessEqual, ast.OpGreater, ast.OpGreaterEqual:
		a.requireInt(n.Left.Pos(), left)
		a.requireInt(n.Right.Pos(), right)
		a.foldComparison(n, left, right)
		return boolType()
	case ast.OpPlus, ast.OpMinus, ast.OpTimes, ast.OpDivide, ast.OpModulo:
		a.requireInt(n.Left.Pos(), left)
		a.requireInt(n.Right.Pos(), right)
		a.foldArithmetic(n, left, right)
		return intType()
	default:
		errors.Assert(false, "unhandled binary operator %v", n.Op)
		return Type{}
	}
}

func (a *Analyzer) requireInt(pos token.Position, t Type) {
	if t.Basic.Kind != KindInt || t.Rank != 0 {
		panic(errors.NewSemantic(pos, "expected int, got %s", t))
	}
}

func (a *Analyzer) typeAssignment(n *ast.BinaryExpr) Type {
	switch n.Left.(type) {
	case *ast.VariableAccess, *ast.ArrayAccess:
	default:
		panic(errors.NewSemantic(n.Left.Pos(), "left-hand side of assignment is not assignable"))
	}
	left := a.typeExpr(n.Left)
	right := a.typeExpr(n.Right)
	if !assignable(left, right) {
		panic(errors.NewSemantic(n.Right.Pos(), "cannot assign %s to %s", right, left))
	}
	return left
}

// foldArithmetic records a constant annotation for n when both operands
// already carry one. Division and modulo by a constant zero are left
// unannotated rather than rejected, deliberately silent on div/mod-by-zero
// at this stage.
func (a *Analyzer) foldArithmetic(n *ast.BinaryExpr, left, right Type) {
	l, lok := a.info.ConstAnnotations[n.Left.ID()]
	r, rok := a.info.ConstAnnotations[n.Right.ID()]
	if !lok || !rok {
		return
	}
	var v int32
	switch n.Op {
	case ast.OpPlus:
		v = l + r
	case ast.OpMinus:
		v = l - r
	case ast.OpTimes:
		v = l * r
	case ast.OpDivide:
		if r == 0 {
			return
		}
		v = l / r
	case ast.OpModulo:
		if r == 0 {
			return
		}
		v = l % r
	}
	a.info.ConstAnnotations[n.ID()] = v
}

func (a *Analyzer) foldComparison(n *ast.BinaryExpr, left, right Type) {
	if left.Basic.Kind != KindInt || right.Basic.Kind != KindInt {
		return
	}
	l, lok := a.info.ConstAnnotations[n.Left.ID()]
	r, rok := a.info.ConstAnnotations[n.Right.ID()]
	if !lok || !rok {
		return
	}
	var result bool
	switch n.Op {
	case ast.OpEqual:
		result = l == r
	case ast.OpNotEqual:
		result = l != r
	case ast.OpLess:
		result = l < r
	case ast.OpLessEqual:
		result = l <= r
	case ast.OpGreater:
		result = l > r
	case ast.OpGreaterEqual:
		result = l >= r
	}
	if result {
		a.info.ConstAnnotations[n.ID()] = 1
	} else {
		a.info.ConstAnnotations[n.ID()] = 0
	}
}

func (a *Analyzer) typeUnaryExpr(n *ast.UnaryExpr) Type {
	target := a.typeExpr(n.Target)
	switch n.Op {
	case ast.OpNegate:
		a.requireInt(n.Target.Pos(), target)
		if v, ok := a.info.ConstAnnotations[n.Target.ID()]; ok {
			a.info.ConstAnnotations[n.ID()] = -v
		}
		return intType()
	case ast.OpNot:
		if target.Basic.Kind != KindBoolean || target.Rank != 0 {
			panic(errors.NewSemantic(n.Target.Pos(), "operand of ! must be boolean"))
		}
		return boolType()
	default:
		errors.Assert(false, "unhandled unary operator %v", n.Op)
		return Type{}
	}
}

// parseIntLiteral converts a maximal digit run into its signed 32-bit
// two's-complement value, wrapping on overflow exactly like the
// arithmetic folds above; negative encodes the parser's unary-minus
// literal fold, the only way to spell math.MinInt32.
func parseIntLiteral(digits string, negative bool) int32 {
	var mag uint64
	for i := 0; i < len(digits); i++ {
		mag = mag*10 + uint64(digits[i]-'0')
	}
	signed := int64(mag)
	if negative {
		signed = -signed
	}
	return int32(uint32(signed))
}
