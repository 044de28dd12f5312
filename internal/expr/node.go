package expr

import "errors"

// Node is an identity-bearing wrapper around a function from a record to a
// value. A node with an evaluator is resolved; a node without one is
// pending and only exists to receive an evaluator later through the
// DepManager.
//
// Resolved nodes are immutable. Nodes are handled by pointer: the pointer is
// the identity the DepManager tracks.
type Node[R, T any] struct {
	st     *State
	eval   func(R) (T, error)
	id     int
	origin Origin
}

// Var is a scalar-valued node.
type Var[R any] = Node[R, float64]

// Cut is a boolean-valued node (a predicate).
type Cut[R any] = Node[R, bool]

// New wraps fn in a resolved node. If id is negative a fresh ID is taken
// from st; otherwise id is used as given.
func New[R, T any](st *State, fn func(R) T, id int) *Node[R, T] {
	return newNode(st, lift(fn), id, Origin{Kind: KindLeaf})
}

// NewVar wraps fn in a Var with a fresh ID.
func NewVar[R any](st *State, fn func(R) float64) *Var[R] {
	return New(st, fn, -1)
}

// NewCut wraps fn in a Cut with a fresh ID.
func NewCut[R any](st *State, fn func(R) bool) *Cut[R] {
	return New(st, fn, -1)
}

// V wraps fn in a Var owned by DefaultState.
func V[R any](fn func(R) float64) *Var[R] {
	return NewVar(DefaultState, fn)
}

// C wraps fn in a Cut owned by DefaultState.
func C[R any](fn func(R) bool) *Cut[R] {
	return NewCut(DefaultState, fn)
}

// Declare creates a pending node. It stands for a package-level definition
// whose initializer has not run yet; copies of it resolve once Resolve or
// Bind is called on it.
func Declare[R, T any](st *State) *Node[R, T] {
	return &Node[R, T]{st: st, id: -1, origin: Origin{Kind: KindPending}}
}

// Copy returns a new node standing for src. If src is resolved the copy
// shares its evaluator and ID. If src is pending the copy is pending too and
// is registered as a dependent of src.
func Copy[R, T any](src *Node[R, T]) *Node[R, T] {
	n := Declare[R, T](src.st)
	if src.resolved() {
		n.adopt(src)
		n.st.deps.RegisterConstruction(n)
		return n
	}
	// A fresh declaration is neither resolved nor bound, so this cannot fail.
	_ = n.st.deps.RegisterDependency(src, n)
	return n
}

// Resolve gives a pending node its evaluator and resolves its dependents.
// If id is negative a fresh ID is assigned. A node already waiting on
// another source (a Copy of a pending node, or a bound declaration) fails
// with ErrAlreadyBound.
func (n *Node[R, T]) Resolve(fn func(R) T, id int) error {
	if n.resolved() {
		return ErrAlreadyResolved
	}
	if n.st.deps.Bound(n) {
		return ErrAlreadyBound
	}
	if fn == nil {
		return errors.New("resolve: nil function")
	}
	n.eval = lift(fn)
	n.id = n.idOrFresh(id)
	n.origin = Origin{Kind: KindLeaf}
	n.st.deps.RegisterConstruction(n)
	return nil
}

// Bind makes a pending node stand for src, as if it had been initialized
// with a copy of src. If src is itself pending, n resolves when src does.
// A node can be bound once.
func (n *Node[R, T]) Bind(src *Node[R, T]) error {
	return n.st.deps.RegisterDependency(src, n)
}

// Release removes n from dependency tracking. A pending node released before
// it resolves leaves its dependents pending forever.
func (n *Node[R, T]) Release() {
	n.st.deps.RegisterDestruction(n)
}

// ID returns the node's identity, or -1 if it is pending.
func (n *Node[R, T]) ID() int { return n.id }

// Resolved reports whether the node has an evaluator.
func (n *Node[R, T]) Resolved() bool { return n.resolved() }

// Origin returns the composition variant that produced the node.
func (n *Node[R, T]) Origin() Origin { return n.origin }

// State returns the State the node belongs to.
func (n *Node[R, T]) State() *State { return n.st }

// Eval evaluates the node against rec. Evaluating a pending node, or a
// composition with a still-pending operand, fails with ErrUnresolvedNode.
func (n *Node[R, T]) Eval(rec R) (T, error) {
	if n.eval == nil {
		var zero T
		return zero, newUnresolvedError(n.id, n.origin)
	}
	return n.eval(rec)
}

// MustEval is like Eval but panics on error.
func (n *Node[R, T]) MustEval(rec R) T {
	v, err := n.Eval(rec)
	if err != nil {
		panic(err)
	}
	return v
}

func (n *Node[R, T]) resolved() bool { return n.eval != nil }

func (n *Node[R, T]) adopt(src tracked) {
	s := src.(*Node[R, T])
	n.eval = s.eval
	n.id = s.id
	n.origin = s.origin
}

func (n *Node[R, T]) idOrFresh(id int) int {
	if id >= 0 {
		return id
	}
	return n.st.NextID()
}

func newNode[R, T any](st *State, eval func(R) (T, error), id int, o Origin) *Node[R, T] {
	n := &Node[R, T]{st: st, eval: eval, origin: o}
	n.id = n.idOrFresh(id)
	st.deps.RegisterConstruction(n)
	return n
}

func lift[R, T any](fn func(R) T) func(R) (T, error) {
	return func(rec R) (T, error) {
		return fn(rec), nil
	}
}
