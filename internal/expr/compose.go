package expr

import (
	"fmt"

	"golang.org/x/exp/constraints"

	"github.com/roach88/cutflow/internal/binning"
)

// Number is the set of value types arithmetic and comparison compositions
// accept. Node bookkeeping (IDs, dependencies, composition caches) does not
// depend on the value type.
type Number interface {
	constraints.Integer | constraints.Float
}

// Add returns a node evaluating a + b.
func Add[R any, T Number](a, b *Node[R, T]) *Node[R, T] {
	return arith(KindSum, a, b)
}

// Sub returns a node evaluating a - b.
func Sub[R any, T Number](a, b *Node[R, T]) *Node[R, T] {
	return arith(KindDifference, a, b)
}

// Mul returns a node evaluating a * b.
//
// Unlike Add, Sub and Div, the product does not reuse the ID remembered for
// (a, b): an entry is recorded but the node takes a fresh ID every time.
func Mul[R any, T Number](a, b *Node[R, T]) *Node[R, T] {
	return arith(KindProduct, a, b)
}

// Div returns a node evaluating a / b, or 0 where b is 0.
func Div[R any, T Number](a, b *Node[R, T]) *Node[R, T] {
	return arith(KindQuotient, a, b)
}

// Const returns a node that always yields c.
func Const[R any, T any](st *State, c T) *Node[R, T] {
	eval := func(R) (T, error) { return c, nil }
	return newNode(st, eval, -1, Origin{Kind: KindConst, Const: c})
}

// Compare returns a Cut evaluating a <op> c. If a yields NaN a warning is
// logged and the comparison proceeds with IEEE semantics.
func Compare[R any, T Number](a *Node[R, T], op CmpOp, c T) *Cut[R] {
	ca := Copy(a)
	st := a.st
	eval := func(rec R) (bool, error) {
		va, err := ca.Eval(rec)
		if err != nil {
			return false, err
		}
		if isNaN(va) {
			st.warnNaN(op, va, c)
		}
		return apply(op, va, c), nil
	}
	o := Origin{Kind: KindCompareConst, Operands: []int{a.id}, Op: op, Const: c}
	return newNode(st, eval, -1, o)
}

// CompareVars returns a Cut evaluating a <op> b. Both operands are always
// evaluated; a NaN on either side is logged before comparing.
func CompareVars[R any, T Number](a *Node[R, T], op CmpOp, b *Node[R, T]) *Cut[R] {
	ca, cb := Copy(a), Copy(b)
	st := a.st
	eval := func(rec R) (bool, error) {
		va, err := ca.Eval(rec)
		if err != nil {
			return false, err
		}
		vb, err := cb.Eval(rec)
		if err != nil {
			return false, err
		}
		if isNaN(va) || isNaN(vb) {
			st.warnNaN(op, va, vb)
		}
		return apply(op, va, vb), nil
	}
	o := Origin{Kind: KindCompareNode, Operands: []int{a.id, b.id}, Op: op}
	return newNode(st, eval, -1, o)
}

// And returns a Cut passing when both a and b pass. b is not evaluated when
// a fails.
func And[R any](a, b *Cut[R]) *Cut[R] {
	ca, cb := Copy(a), Copy(b)
	eval := func(rec R) (bool, error) {
		pa, err := ca.Eval(rec)
		if err != nil || !pa {
			return false, err
		}
		return cb.Eval(rec)
	}
	return newNode(a.st, eval, -1, Origin{Kind: KindAnd, Operands: []int{a.id, b.id}})
}

// Or returns a Cut passing when either a or b passes. b is not evaluated
// when a passes.
func Or[R any](a, b *Cut[R]) *Cut[R] {
	ca, cb := Copy(a), Copy(b)
	eval := func(rec R) (bool, error) {
		pa, err := ca.Eval(rec)
		if err != nil || pa {
			return pa, err
		}
		return cb.Eval(rec)
	}
	return newNode(a.st, eval, -1, Origin{Kind: KindOr, Operands: []int{a.id, b.id}})
}

// Not returns a Cut passing when a fails.
func Not[R any](a *Cut[R]) *Cut[R] {
	ca := Copy(a)
	eval := func(rec R) (bool, error) {
		pa, err := ca.Eval(rec)
		return !pa && err == nil, err
	}
	return newNode(a.st, eval, -1, Origin{Kind: KindNot, Operands: []int{a.id}})
}

// Join2D returns a Var evaluating a and b and flattening them through a
// 2-axis binning.Mapper. See binning.Mapper.Map for the encoding.
func Join2D[R any](a *Var[R], ba binning.Binning, b *Var[R], bb binning.Binning) (*Var[R], error) {
	return join(KindJoin2D, []*Var[R]{a, b}, []binning.Binning{ba, bb})
}

// Join3D is Join2D with three axes.
func Join3D[R any](a *Var[R], ba binning.Binning, b *Var[R], bb binning.Binning, c *Var[R], bc binning.Binning) (*Var[R], error) {
	return join(KindJoin3D, []*Var[R]{a, b, c}, []binning.Binning{ba, bb, bc})
}

func join[R any](kind Kind, vars []*Var[R], bins []binning.Binning) (*Var[R], error) {
	m, err := binning.NewMapper(bins...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}

	copies := make([]*Var[R], len(vars))
	ids := make([]int, len(vars))
	for i, v := range vars {
		copies[i] = Copy(v)
		ids[i] = v.id
	}

	eval := func(rec R) (float64, error) {
		vals := make([]float64, len(copies))
		for i, c := range copies {
			v, err := c.Eval(rec)
			if err != nil {
				return 0, err
			}
			vals[i] = v
		}
		return m.Map(vals...), nil
	}
	o := Origin{Kind: kind, Operands: ids, Binnings: m.Axes()}
	return newNode(vars[0].st, eval, -1, o), nil
}

// arith builds a binary arithmetic composition.
//
// The (kind, ID(a), ID(b)) cache lets independently built but identical
// compositions share an ID. Compositions over a still-pending operand skip
// the cache: every pending node reports ID -1, so caching them would merge
// unrelated compositions.
func arith[R any, T Number](kind Kind, a, b *Node[R, T]) *Node[R, T] {
	ca, cb := Copy(a), Copy(b)
	st := a.st

	var op func(x, y T) T
	switch kind {
	case KindSum:
		op = func(x, y T) T { return x + y }
	case KindDifference:
		op = func(x, y T) T { return x - y }
	case KindProduct:
		op = func(x, y T) T { return x * y }
	case KindQuotient:
		op = func(x, y T) T {
			if y == 0 {
				return 0
			}
			return x / y
		}
	default:
		panic(fmt.Sprintf("expr: %s is not an arithmetic composition", kind))
	}

	eval := func(rec R) (T, error) {
		va, err := ca.Eval(rec)
		if err != nil {
			return va, err
		}
		vb, err := cb.Eval(rec)
		if err != nil {
			return vb, err
		}
		return op(va, vb), nil
	}

	id := -1
	if a.resolved() && b.resolved() {
		cached := st.compositeID(kind, a.id, b.id)
		if kind != KindProduct {
			id = cached
		}
	}
	return newNode(st, eval, id, Origin{Kind: kind, Operands: []int{a.id, b.id}})
}

func isNaN[T Number](v T) bool {
	return v != v
}

func apply[T Number](op CmpOp, a, b T) bool {
	switch op {
	case Greater:
		return a > b
	case GreaterEqual:
		return a >= b
	case Less:
		return a < b
	case LessEqual:
		return a <= b
	case Equal:
		return a == b
	case NotEqual:
		return a != b
	default:
		panic(fmt.Sprintf("expr: unknown comparison %d", int(op)))
	}
}
