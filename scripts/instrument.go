package scripts

import (
	"strconv"

	"go.starlark.net/syntax"
)

// Instrument returns stmts with a trace call before every statement,
// recursing into compound statement bodies.
func Instrument(stmts []syntax.Stmt) []syntax.Stmt {
	if len(stmts) == 0 {
		// nil bodies must stay nil, IfStmt.Span indexes a non-nil False
		return stmts
	}
	ret := make([]syntax.Stmt, 0, len(stmts)*2)
	for _, stmt := range stmts {
		switch stmt := stmt.(type) {
		case *syntax.DefStmt:
			stmt.Body = Instrument(stmt.Body)
		case *syntax.IfStmt:
			stmt.True = Instrument(stmt.True)
			stmt.False = Instrument(stmt.False)
		case *syntax.ForStmt:
			stmt.Body = Instrument(stmt.Body)
		case *syntax.WhileStmt:
			stmt.Body = Instrument(stmt.Body)
		case *syntax.LoadStmt:
			ret = append(ret, stmt)
			continue
		}
		ret = append(ret, traceStmt(stmt), stmt)
	}
	return ret
}

func traceStmt(stmt syntax.Stmt) syntax.Stmt {
	pos, _ := stmt.Span()
	return &syntax.ExprStmt{
		X: &syntax.CallExpr{
			Fn: &syntax.Ident{
				NamePos: pos,
				Name:    TraceFunc,
			},
			Lparen: pos,
			Args: []syntax.Expr{
				&syntax.Literal{
					Token:    syntax.INT,
					TokenPos: pos,
					Raw:      strconv.Itoa(int(pos.Line)),
					Value:    int64(pos.Line),
				},
			},
			Rparen: pos,
		},
	}
}
