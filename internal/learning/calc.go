package learning

import (
	"context"
	"errors"
	"fmt"
	"go/ast"
	"go/constant"
	"go/parser"
	"go/token"
	"strconv"
)

// QuickCalc evaluates an arithmetic expression: numbers, parentheses, unary
// +/- and the operators + - * / %. "/" is exact division.
func QuickCalc(_ context.Context, args map[string]any) (any, error) {
	expr, err := requireString(args, "expr")
	if err != nil {
		return nil, err
	}
	v, err := Evaluate(expr)
	if err != nil {
		return nil, err
	}
	return map[string]any{"result": v}, nil
}

// Evaluate computes expr and formats the result.
func Evaluate(expr string) (string, error) {
	node, err := parser.ParseExpr(expr)
	if err != nil {
		return "", fmt.Errorf("invalid expression: %w", err)
	}
	v, err := eval(node)
	if err != nil {
		return "", err
	}
	return formatValue(v), nil
}

func eval(n ast.Expr) (constant.Value, error) {
	switch e := n.(type) {
	case *ast.BasicLit:
		if e.Kind != token.INT && e.Kind != token.FLOAT {
			return nil, fmt.Errorf("unsupported literal %s", e.Value)
		}
		v := constant.MakeFromLiteral(e.Value, e.Kind, 0)
		if v.Kind() == constant.Unknown {
			return nil, fmt.Errorf("bad number %s", e.Value)
		}
		return v, nil
	case *ast.ParenExpr:
		return eval(e.X)
	case *ast.UnaryExpr:
		x, err := eval(e.X)
		if err != nil {
			return nil, err
		}
		switch e.Op {
		case token.ADD, token.SUB:
			return constant.UnaryOp(e.Op, x, 0), nil
		}
		return nil, fmt.Errorf("unsupported operator %s", e.Op)
	case *ast.BinaryExpr:
		x, err := eval(e.X)
		if err != nil {
			return nil, err
		}
		y, err := eval(e.Y)
		if err != nil {
			return nil, err
		}
		switch e.Op {
		case token.ADD, token.SUB, token.MUL:
			return constant.BinaryOp(x, e.Op, y), nil
		case token.QUO, token.REM:
			if constant.Sign(y) == 0 {
				return nil, errors.New("division by zero")
			}
			if e.Op == token.REM {
				if x.Kind() != constant.Int || y.Kind() != constant.Int {
					return nil, errors.New("% needs integers")
				}
				return constant.BinaryOp(x, token.REM, y), nil
			}
			return constant.BinaryOp(constant.ToFloat(x), token.QUO, constant.ToFloat(y)), nil
		}
		return nil, fmt.Errorf("unsupported operator %s", e.Op)
	}
	return nil, fmt.Errorf("unsupported expression %T", n)
}

func formatValue(v constant.Value) string {
	if i := constant.ToInt(v); i.Kind() == constant.Int {
		return i.ExactString()
	}
	f, _ := constant.Float64Val(v)
	return strconv.FormatFloat(f, 'g', -1, 64)
}
