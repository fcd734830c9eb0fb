package circuit

import (
	"fmt"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
)

// Expression is a polynomial over column queries. Queries carry a row
// rotation, so a gate enabled at row i may read rows i+k for fixed k.
type Expression interface {
	evaluate(ev *evaluator, row int) fr.Element
	String() string
}

type constantExpr struct {
	v fr.Element
}

func (e constantExpr) evaluate(*evaluator, int) fr.Element { return e.v }
func (e constantExpr) String() string                       { return e.v.String() }

type queryExpr struct {
	col Column
	rot int
}

func (e queryExpr) evaluate(ev *evaluator, row int) fr.Element {
	return ev.cell(e.col, row+e.rot)
}

func (e queryExpr) String() string {
	if e.rot == 0 {
		return e.col.String()
	}
	return fmt.Sprintf("%s[%+d]", e.col, e.rot)
}

type sumExpr struct {
	a, b Expression
}

func (e sumExpr) evaluate(ev *evaluator, row int) fr.Element {
	a, b := e.a.evaluate(ev, row), e.b.evaluate(ev, row)
	var out fr.Element
	out.Add(&a, &b)
	return out
}

func (e sumExpr) String() string { return "(" + e.a.String() + " + " + e.b.String() + ")" }

type productExpr struct {
	a, b Expression
}

func (e productExpr) evaluate(ev *evaluator, row int) fr.Element {
	a, b := e.a.evaluate(ev, row), e.b.evaluate(ev, row)
	var out fr.Element
	out.Mul(&a, &b)
	return out
}

func (e productExpr) String() string { return e.a.String() + " * " + e.b.String() }

type negExpr struct {
	a Expression
}

func (e negExpr) evaluate(ev *evaluator, row int) fr.Element {
	a := e.a.evaluate(ev, row)
	var out fr.Element
	out.Neg(&a)
	return out
}

func (e negExpr) String() string { return "-" + e.a.String() }

type scaledExpr struct {
	a Expression
	k fr.Element
}

func (e scaledExpr) evaluate(ev *evaluator, row int) fr.Element {
	a := e.a.evaluate(ev, row)
	var out fr.Element
	out.Mul(&a, &e.k)
	return out
}

func (e scaledExpr) String() string { return e.k.String() + "·" + e.a.String() }

// Constant returns the constant polynomial v.
func Constant(v fr.Element) Expression { return constantExpr{v: v} }

// ConstantUint64 returns the constant polynomial v.
func ConstantUint64(v uint64) Expression { return constantExpr{v: NewElement(v)} }

// Zero is the zero polynomial.
func Zero() Expression { return ConstantUint64(0) }

// One is the constant polynomial 1.
func One() Expression { return ConstantUint64(1) }

// Sum adds any number of expressions. Sum() is zero.
func Sum(terms ...Expression) Expression {
	if len(terms) == 0 {
		return Zero()
	}
	acc := terms[0]
	for _, t := range terms[1:] {
		acc = sumExpr{a: acc, b: t}
	}
	return acc
}

// Sub returns a - b.
func Sub(a, b Expression) Expression { return sumExpr{a: a, b: negExpr{a: b}} }

// Mul returns a * b.
func Mul(a, b Expression) Expression { return productExpr{a: a, b: b} }

// Neg returns -a.
func Neg(a Expression) Expression { return negExpr{a: a} }

// Scale returns k * a.
func Scale(a Expression, k fr.Element) Expression { return scaledExpr{a: a, k: k} }

// Query builds rotated column references while a gate or lookup is being
// declared.
type Query struct {
	cs *ConstraintSystem
}

// Advice references an advice column at the given row rotation.
func (q *Query) Advice(col Column, rot int) Expression {
	if col.Kind != Advice || col.Index >= q.cs.numAdvice {
		panic(fmt.Sprintf("circuit: %s is not an advice column", col))
	}
	return queryExpr{col: col, rot: rot}
}

// Fixed references a fixed column at the given row rotation.
func (q *Query) Fixed(col Column, rot int) Expression {
	if col.Kind != Fixed || col.Index >= q.cs.numFixed {
		panic(fmt.Sprintf("circuit: %s is not a fixed column", col))
	}
	return queryExpr{col: col, rot: rot}
}
