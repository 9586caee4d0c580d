package ast

import (
	"sort"
	"strings"

	"github.com/minijava-lang/minijava/internal/symtab"
)

// Print renders program as canonical MiniJava source text. Feeding the
// result back through the lexer, parser, and Print again yields
// byte-identical text.
//
// Uses the same flag-guarded recursive-descent emission style as a
// stateful ostream pretty-printer (printParens/inFields/inParameters/
// startIf/startElse/startLoop/startMethod), reworked here into a Go
// strings.Builder-backed visitor, with classes emitted in source order
// rather than sorted by name — a deliberate departure, since source order
// is the only ordering that survives round-tripping unchanged.
func Print(p *Program) string {
	pr := &printer{}
	p.Accept(pr)
	return pr.buf.String()
}

type printer struct {
	buf strings.Builder

	indent int

	printParens  bool
	inFields     bool
	inParameters bool

	startIf     bool
	startElse   bool
	startLoop   bool
	startMethod bool
}

func (pr *printer) raw(s string) {
	pr.buf.WriteString(s)
}

// print emits indent tabs followed by s, with no trailing newline.
func (pr *printer) print(s string) {
	pr.buf.WriteString(strings.Repeat("\t", pr.indent))
	pr.buf.WriteString(s)
}

func (pr *printer) println(s string) {
	pr.print(s)
	pr.raw("\n")
}

// startBlockStatement emits the pending newline left open by an enclosing
// if/else/while header before a statement begins; shared by every
// statement kind that can appear directly after such a header.
func (pr *printer) startBlockStatement() {
	if pr.startIf || pr.startElse || pr.startLoop {
		pr.raw("\n")
		pr.startIf, pr.startElse, pr.startLoop = false, false, false
	}
}

func baseTypeName(base PrimitiveType, class symtab.Symbol) string {
	switch base {
	case PrimitiveInt:
		return "int"
	case PrimitiveBoolean:
		return "boolean"
	case PrimitiveVoid:
		return "void"
	default:
		return class.Text()
	}
}

func isEmptyStatement(s Stmt) bool {
	_, ok := s.(*EmptyStmt)
	return ok
}

func isIfStatement(s Stmt) bool {
	_, ok := s.(*IfStmt)
	return ok
}

func isNonemptyBlock(s Stmt) bool {
	b, ok := s.(*Block)
	if !ok {
		return false
	}
	for _, stmt := range b.Statements {
		if !isEmptyStatement(stmt) {
			return true
		}
	}
	return false
}

// ---- types and declarations ----

func (pr *printer) VisitTypeRef(n *TypeRef) interface{} {
	pr.raw(baseTypeName(n.Base, n.ClassName))
	pr.raw(strings.Repeat("[]", n.Rank))
	return nil
}

func (pr *printer) VisitVarDecl(n *VarDecl) interface{} {
	if pr.inFields {
		pr.print("public ")
	} else if !pr.inParameters {
		pr.print("")
	}
	n.Type.Accept(pr)
	pr.raw(" ")
	pr.raw(n.Name.Text())
	if pr.inFields {
		pr.raw(";\n")
	}
	return nil
}

// ---- expressions ----

var binaryOpText = map[BinaryOp]string{
	OpAssign:       " = ",
	OpOr:           " || ",
	OpAnd:          " && ",
	OpEqual:        " == ",
	OpNotEqual:     " != ",
	OpLess:         " < ",
	OpLessEqual:    " <= ",
	OpGreater:      " > ",
	OpGreaterEqual: " >= ",
	OpPlus:         " + ",
	OpMinus:        " - ",
	OpTimes:        " * ",
	OpDivide:       " / ",
	OpModulo:       " % ",
}

func (pr *printer) VisitBinaryExpr(n *BinaryExpr) interface{} {
	parens := pr.printParens
	pr.printParens = true
	if parens {
		pr.raw("(")
	}
	n.Left.Accept(pr)
	pr.raw(binaryOpText[n.Op])
	n.Right.Accept(pr)
	if parens {
		pr.raw(")")
	}
	pr.printParens = parens
	return nil
}

func (pr *printer) VisitUnaryExpr(n *UnaryExpr) interface{} {
	parens := pr.printParens
	pr.printParens = true
	if parens {
		pr.raw("(")
	}
	switch n.Op {
	case OpNegate:
		pr.raw("-")
	case OpNot:
		pr.raw("!")
	}
	n.Target.Accept(pr)
	if parens {
		pr.raw(")")
	}
	pr.printParens = parens
	return nil
}

func (pr *printer) VisitObjectInstantiation(n *ObjectInstantiation) interface{} {
	parens := pr.printParens
	if parens {
		pr.raw("(")
	}
	pr.raw("new ")
	pr.raw(n.ClassName.Text())
	pr.raw("()")
	if parens {
		pr.raw(")")
	}
	return nil
}

func (pr *printer) VisitArrayInstantiation(n *ArrayInstantiation) interface{} {
	parens := pr.printParens
	if parens {
		pr.raw("(")
	}
	pr.raw("new ")
	pr.raw(baseTypeName(n.ElementType.Base, n.ElementType.ClassName))
	pr.raw("[")
	saved := pr.printParens
	pr.printParens = false
	n.Extent.Accept(pr)
	pr.printParens = saved
	pr.raw("]")
	pr.raw(strings.Repeat("[]", n.ElementType.Rank))
	if parens {
		pr.raw(")")
	}
	return nil
}

func (pr *printer) VisitArrayAccess(n *ArrayAccess) interface{} {
	parens := pr.printParens
	pr.printParens = true
	if parens {
		pr.raw("(")
	}
	n.Target.Accept(pr)
	pr.raw("[")
	saved := pr.printParens
	pr.printParens = false
	n.Index.Accept(pr)
	pr.printParens = saved
	pr.raw("]")
	if parens {
		pr.raw(")")
	}
	pr.printParens = parens
	return nil
}

func (pr *printer) VisitVariableAccess(n *VariableAccess) interface{} {
	parens := pr.printParens && n.Target != nil
	saved := pr.printParens
	pr.printParens = true
	if parens {
		pr.raw("(")
	}
	if n.Target != nil {
		n.Target.Accept(pr)
		pr.raw(".")
	}
	pr.raw(n.Name.Text())
	if parens {
		pr.raw(")")
	}
	pr.printParens = saved
	return nil
}

func (pr *printer) VisitMethodInvocation(n *MethodInvocation) interface{} {
	parens := pr.printParens
	pr.printParens = true
	if parens {
		pr.raw("(")
	}
	if n.Target != nil {
		n.Target.Accept(pr)
		pr.raw(".")
	}
	pr.raw(n.Name.Text())
	pr.raw("(")
	saved := pr.printParens
	pr.printParens = false
	for i, arg := range n.Arguments {
		if i > 0 {
			pr.raw(", ")
		}
		arg.Accept(pr)
	}
	pr.printParens = saved
	pr.raw(")")
	if parens {
		pr.raw(")")
	}
	pr.printParens = parens
	return nil
}

func (pr *printer) VisitThisRef(*ThisRef) interface{} {
	pr.raw("this")
	return nil
}

func (pr *printer) VisitBooleanConstant(n *BooleanConstant) interface{} {
	if n.Value {
		pr.raw("true")
	} else {
		pr.raw("false")
	}
	return nil
}

func (pr *printer) VisitIntegerConstant(n *IntegerConstant) interface{} {
	if n.Negative {
		if pr.printParens {
			pr.raw("(-" + n.Lexeme.Text() + ")")
		} else {
			pr.raw("-" + n.Lexeme.Text())
		}
	} else {
		pr.raw(n.Lexeme.Text())
	}
	return nil
}

func (pr *printer) VisitNullConstant(*NullConstant) interface{} {
	pr.raw("null")
	return nil
}

// ---- statements ----

func (pr *printer) VisitLocalVariableStmt(n *LocalVariableStmt) interface{} {
	pr.startBlockStatement()
	n.Decl.Accept(pr)
	if n.Initializer != nil {
		pr.raw(" = ")
		saved := pr.printParens
		pr.printParens = false
		n.Initializer.Accept(pr)
		pr.printParens = saved
	}
	pr.raw(";\n")
	return nil
}

func (pr *printer) VisitExpressionStmt(n *ExpressionStmt) interface{} {
	pr.startBlockStatement()
	pr.print("")
	saved := pr.printParens
	pr.printParens = false
	n.Expr.Accept(pr)
	pr.printParens = saved
	pr.raw(";\n")
	return nil
}

func (pr *printer) VisitBlock(n *Block) interface{} {
	conditional := pr.startIf || pr.startElse
	empty := !isNonemptyBlock(n)

	if conditional || pr.startLoop || pr.startMethod {
		pr.raw(" {")
		pr.startIf, pr.startElse, pr.startLoop, pr.startMethod = false, false, false, false
	} else {
		pr.print("{")
	}
	if empty {
		pr.raw(" }\n")
		return nil
	}
	pr.raw("\n")
	pr.indent++
	for _, stmt := range n.Statements {
		stmt.Accept(pr)
	}
	pr.indent--
	pr.print("}")
	if !conditional {
		pr.raw("\n")
	}
	return nil
}

func (pr *printer) VisitIfStmt(n *IfStmt) interface{} {
	thenIsBlock := isNonemptyBlock(n.Then)
	elseIsBlock := isNonemptyBlock(n.Else)
	elseIsChain := n.Else != nil && isIfStatement(n.Else)

	if pr.startElse {
		pr.raw(" if (")
	} else {
		if pr.startIf || pr.startLoop {
			pr.raw("\n")
		}
		pr.print("if (")
	}
	pr.startIf, pr.startElse, pr.startLoop = false, false, false

	saved := pr.printParens
	pr.printParens = false
	n.Condition.Accept(pr)
	pr.printParens = saved
	pr.raw(")")

	if !thenIsBlock {
		pr.indent++
	}
	pr.startIf = true
	n.Then.Accept(pr)
	if !thenIsBlock {
		pr.indent--
	}

	if n.Else != nil {
		if thenIsBlock {
			pr.raw(" else")
		} else {
			pr.print("else")
		}
		if !elseIsBlock && !elseIsChain {
			pr.indent++
		}
		pr.startElse = true
		n.Else.Accept(pr)
		if !elseIsBlock && !elseIsChain {
			pr.indent--
		} else if elseIsBlock {
			pr.raw("\n")
		}
	} else if thenIsBlock {
		pr.raw("\n")
	}
	return nil
}

func (pr *printer) VisitWhileStmt(n *WhileStmt) interface{} {
	bodyIsBlock := isNonemptyBlock(n.Body)

	pr.startBlockStatement()
	pr.print("while (")
	saved := pr.printParens
	pr.printParens = false
	n.Condition.Accept(pr)
	pr.printParens = saved
	pr.raw(")")
	if !bodyIsBlock {
		pr.indent++
	}
	pr.startLoop = true
	n.Body.Accept(pr)
	if !bodyIsBlock {
		pr.indent--
	}
	return nil
}

func (pr *printer) VisitReturnStmt(n *ReturnStmt) interface{} {
	pr.startBlockStatement()
	if n.Value == nil {
		pr.print("return;")
	} else {
		pr.print("return ")
		saved := pr.printParens
		pr.printParens = false
		n.Value.Accept(pr)
		pr.printParens = saved
		pr.raw(";")
	}
	pr.raw("\n")
	return nil
}

func (pr *printer) VisitEmptyStmt(*EmptyStmt) interface{} {
	print := pr.startIf || pr.startElse || pr.startLoop
	pr.startBlockStatement()
	if print {
		pr.println(";")
	}
	return nil
}

// ---- members ----

func (pr *printer) VisitMainMethod(n *MainMethod) interface{} {
	pr.print("public static void " + n.Name.Text() + "(String[] " + n.ArgvName.Text() + ")")
	pr.startMethod = true
	n.Body.Accept(pr)
	return nil
}

func (pr *printer) VisitInstanceMethod(n *InstanceMethod) interface{} {
	pr.print("public ")
	n.ReturnType.Accept(pr)
	pr.raw(" ")
	pr.raw(n.Name.Text())
	pr.raw("(")
	pr.inParameters = true
	for i, param := range n.Parameters {
		if i > 0 {
			pr.raw(", ")
		}
		param.Accept(pr)
	}
	pr.inParameters = false
	pr.raw(")")
	pr.startMethod = true
	n.Body.Accept(pr)
	return nil
}

type namedMember struct {
	name string
	node Node
}

func sortedByName(members []namedMember) {
	sort.SliceStable(members, func(i, j int) bool {
		return members[i].name < members[j].name
	})
}

func (pr *printer) VisitClassDeclaration(n *ClassDeclaration) interface{} {
	if len(n.MainMethods) == 0 && len(n.InstanceMethods) == 0 && len(n.Fields) == 0 {
		pr.println("class " + n.Name.Text() + " { }")
		return nil
	}

	pr.println("class " + n.Name.Text() + " {")
	pr.indent++

	var methods []namedMember
	for _, m := range n.InstanceMethods {
		methods = append(methods, namedMember{m.Name.Text(), m})
	}
	for _, m := range n.MainMethods {
		methods = append(methods, namedMember{m.Name.Text(), m})
	}
	sortedByName(methods)
	for _, m := range methods {
		m.node.Accept(pr)
	}

	var fields []namedMember
	for _, f := range n.Fields {
		fields = append(fields, namedMember{f.Name.Text(), f})
	}
	sortedByName(fields)
	pr.inFields = true
	for _, f := range fields {
		f.node.Accept(pr)
	}
	pr.inFields = false

	pr.indent--
	pr.println("}")
	return nil
}

// VisitProgram emits classes in source order, deliberately, rather than
// sorted by name.
func (pr *printer) VisitProgram(n *Program) interface{} {
	for i, c := range n.Classes {
		if i > 0 {
			pr.raw("\n")
		}
		c.Accept(pr)
	}
	return nil
}
