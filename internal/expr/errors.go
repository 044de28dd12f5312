package expr

import (
	"errors"
	"fmt"
)

// ErrUnresolvedNode is returned when a pending node is evaluated.
var ErrUnresolvedNode = errors.New("unresolved node")

// ErrAlreadyResolved is returned when a resolved node is given a second
// evaluator. Resolved nodes are immutable.
var ErrAlreadyResolved = errors.New("node already resolved")

// ErrAlreadyBound is returned when a node that is waiting on a pending
// source is bound to a second source or given its own evaluator.
var ErrAlreadyBound = errors.New("node already bound to a pending source")

// EvalErrorCode categorizes evaluation errors.
type EvalErrorCode string

const (
	// ErrCodeUnresolvedNode indicates evaluation of a pending node.
	ErrCodeUnresolvedNode EvalErrorCode = "UNRESOLVED_NODE"
)

// EvalError is an error detected while evaluating a node against a record.
type EvalError struct {
	// Code identifies the error category.
	Code EvalErrorCode

	// NodeID is the ID of the node that failed (-1 for pending nodes).
	NodeID int

	// Origin describes how the failing node was built.
	Origin Origin

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *EvalError) Error() string {
	return fmt.Sprintf("%s: %s (node=%d, origin=%s)", e.Code, e.Message, e.NodeID, e.Origin)
}

// Unwrap maps codes back to their sentinel errors so errors.Is works.
func (e *EvalError) Unwrap() error {
	switch e.Code {
	case ErrCodeUnresolvedNode:
		return ErrUnresolvedNode
	default:
		return nil
	}
}

// IsUnresolved reports whether err came from evaluating a pending node.
func IsUnresolved(err error) bool {
	return errors.Is(err, ErrUnresolvedNode)
}

func newUnresolvedError(id int, o Origin) *EvalError {
	return &EvalError{
		Code:    ErrCodeUnresolvedNode,
		NodeID:  id,
		Origin:  o,
		Message: "evaluation attempted on a pending node",
	}
}
