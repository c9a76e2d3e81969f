package interp

import (
	"strconv"

	"github.com/yuin/gopher-lua/ast"
)

// checkpointName is the global the instrumented program calls before every
// statement.
const checkpointName = "__luadap_step"

// Statement kinds reported in Frame.Kind.
const (
	KindAssign   = "assign"
	KindLocal    = "local"
	KindCall     = "call"
	KindDo       = "do"
	KindWhile    = "while"
	KindRepeat   = "repeat"
	KindIf       = "if"
	KindFor      = "for"
	KindForIn    = "forin"
	KindFunction = "function"
	KindReturn   = "return"
	KindBreak    = "break"
	KindGoto     = "goto"
)

// instrument inserts a checkpoint call in front of every executable
// statement of chunk, including statements of nested blocks and function
// bodies. The rewritten chunk behaves exactly like the input apart from
// the checkpoint calls.
func instrument(chunk []ast.Stmt, file string) []ast.Stmt {
	in := &instrumenter{file: file}
	return in.block(chunk)
}

type instrumenter struct {
	file string
}

func (in *instrumenter) block(stmts []ast.Stmt) []ast.Stmt {
	out := make([]ast.Stmt, 0, len(stmts)*2)
	for _, st := range stmts {
		in.stmt(st)
		if kind := statementKind(st); kind != "" {
			out = append(out, in.checkpoint(st.Line(), kind))
		}
		out = append(out, st)
	}
	return out
}

func (in *instrumenter) checkpoint(line int, kind string) ast.Stmt {
	fn := &ast.IdentExpr{Value: checkpointName}
	args := []ast.Expr{
		&ast.NumberExpr{Value: strconv.Itoa(line)},
		&ast.StringExpr{Value: in.file},
		&ast.StringExpr{Value: kind},
	}
	call := &ast.FuncCallExpr{Func: fn, Args: args}
	st := &ast.FuncCallStmt{Expr: call}

	nodes := []ast.PositionHolder{fn, call, st}
	for _, a := range args {
		nodes = append(nodes, a)
	}
	for _, n := range nodes {
		n.SetLine(line)
		n.SetLastLine(line)
	}
	return st
}

func (in *instrumenter) stmt(st ast.Stmt) {
	switch s := st.(type) {
	case *ast.AssignStmt:
		in.exprs(s.Lhs)
		in.exprs(s.Rhs)
	case *ast.LocalAssignStmt:
		in.exprs(s.Exprs)
	case *ast.FuncCallStmt:
		in.expr(s.Expr)
	case *ast.DoBlockStmt:
		s.Stmts = in.block(s.Stmts)
	case *ast.WhileStmt:
		in.expr(s.Condition)
		s.Stmts = in.block(s.Stmts)
	case *ast.RepeatStmt:
		in.expr(s.Condition)
		s.Stmts = in.block(s.Stmts)
	case *ast.IfStmt:
		in.expr(s.Condition)
		s.Then = in.block(s.Then)
		s.Else = in.block(s.Else)
	case *ast.NumberForStmt:
		in.expr(s.Init)
		in.expr(s.Limit)
		in.expr(s.Step)
		s.Stmts = in.block(s.Stmts)
	case *ast.GenericForStmt:
		in.exprs(s.Exprs)
		s.Stmts = in.block(s.Stmts)
	case *ast.FuncDefStmt:
		if s.Name != nil {
			in.expr(s.Name.Func)
			in.expr(s.Name.Receiver)
		}
		in.expr(s.Func)
	case *ast.ReturnStmt:
		in.exprs(s.Exprs)
	}
}

func (in *instrumenter) exprs(exprs []ast.Expr) {
	for _, e := range exprs {
		in.expr(e)
	}
}

// expr descends into expressions looking for function literals, whose
// bodies need checkpoints of their own.
func (in *instrumenter) expr(e ast.Expr) {
	switch x := e.(type) {
	case nil:
	case *ast.FunctionExpr:
		x.Stmts = in.block(x.Stmts)
	case *ast.AttrGetExpr:
		in.expr(x.Object)
		in.expr(x.Key)
	case *ast.TableExpr:
		for _, f := range x.Fields {
			in.expr(f.Key)
			in.expr(f.Value)
		}
	case *ast.FuncCallExpr:
		in.expr(x.Func)
		in.expr(x.Receiver)
		in.exprs(x.Args)
	case *ast.LogicalOpExpr:
		in.expr(x.Lhs)
		in.expr(x.Rhs)
	case *ast.RelationalOpExpr:
		in.expr(x.Lhs)
		in.expr(x.Rhs)
	case *ast.ArithmeticOpExpr:
		in.expr(x.Lhs)
		in.expr(x.Rhs)
	case *ast.StringConcatOpExpr:
		in.expr(x.Lhs)
		in.expr(x.Rhs)
	case *ast.UnaryMinusOpExpr:
		in.expr(x.Expr)
	case *ast.UnaryNotOpExpr:
		in.expr(x.Expr)
	case *ast.UnaryLenOpExpr:
		in.expr(x.Expr)
	}
}

// statementKind names a statement, or returns "" for statements that do not
// execute anything, such as labels.
func statementKind(st ast.Stmt) string {
	switch st.(type) {
	case *ast.AssignStmt:
		return KindAssign
	case *ast.LocalAssignStmt:
		return KindLocal
	case *ast.FuncCallStmt:
		return KindCall
	case *ast.DoBlockStmt:
		return KindDo
	case *ast.WhileStmt:
		return KindWhile
	case *ast.RepeatStmt:
		return KindRepeat
	case *ast.IfStmt:
		return KindIf
	case *ast.NumberForStmt:
		return KindFor
	case *ast.GenericForStmt:
		return KindForIn
	case *ast.FuncDefStmt:
		return KindFunction
	case *ast.ReturnStmt:
		return KindReturn
	case *ast.BreakStmt:
		return KindBreak
	case *ast.GotoStmt:
		return KindGoto
	default:
		return ""
	}
}
