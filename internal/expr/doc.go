// Package expr implements lazy, identity-bearing computations over records:
// Vars (scalar-valued nodes) and Cuts (boolean-valued nodes).
//
// A Node wraps a function from a record to a value plus an integer ID. Nodes
// compose algebraically (Add, Sub, Mul, Div, Compare, And, Join2D, ...) into
// new nodes that evaluate their operands and combine the results. Every
// node remembers the composition variant that produced it (Origin).
//
// # Identity
//
// Fresh IDs come from the State's IDClock and are never reused. Add, Sub
// and Div remember the ID assigned to each (ID(a), ID(b)) pair, so composing
// the same two operands again yields the same ID; operand order is part of
// the key. Mul records the pair but always takes a fresh ID.
//
// # Deferred construction
//
// Package-level nodes in different packages may be initialized in any
// order. A node copied from a source that has no evaluator yet is pending
// and is registered with the State's DepManager; once the source resolves,
// every dependent is resolved identically (same evaluator, same ID),
// transitively and exactly once. Evaluating a node that is still pending
// fails with ErrUnresolvedNode.
//
// # Concurrency
//
// Evaluation is synchronous and single-threaded. State and DepManager guard
// their maps with mutexes so that separate pipelines on separate goroutines
// can share a State, but construction is expected to happen up front.
package expr
