package expr

import (
	"fmt"
	"strings"

	"github.com/roach88/cutflow/internal/binning"
)

// Kind is the closed set of ways a node can be built.
type Kind int

const (
	// KindPending marks a node that has not received an evaluator.
	KindPending Kind = iota
	// KindLeaf wraps a user function.
	KindLeaf
	// KindConst always yields one value.
	KindConst
	KindSum
	KindDifference
	KindProduct
	KindQuotient
	// KindJoin2D flattens two vars through a 2-axis binning.Mapper.
	KindJoin2D
	// KindJoin3D flattens three vars through a 3-axis binning.Mapper.
	KindJoin3D
	// KindCompareConst compares a node against a constant.
	KindCompareConst
	// KindCompareNode compares two nodes.
	KindCompareNode
	KindAnd
	KindOr
	KindNot
)

var kindNames = map[Kind]string{
	KindPending:      "pending",
	KindLeaf:         "leaf",
	KindConst:        "const",
	KindSum:          "sum",
	KindDifference:   "difference",
	KindProduct:      "product",
	KindQuotient:     "quotient",
	KindJoin2D:       "join2d",
	KindJoin3D:       "join3d",
	KindCompareConst: "compare_const",
	KindCompareNode:  "compare_node",
	KindAnd:          "and",
	KindOr:           "or",
	KindNot:          "not",
}

// String returns the lower-case kind name.
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// CmpOp is a comparison operator.
type CmpOp int

const (
	Greater CmpOp = iota
	GreaterEqual
	Less
	LessEqual
	Equal
	NotEqual
)

var cmpSymbols = [...]string{">", ">=", "<", "<=", "==", "!="}

// String returns the operator symbol.
func (op CmpOp) String() string {
	if op < 0 || int(op) >= len(cmpSymbols) {
		return fmt.Sprintf("cmp(%d)", int(op))
	}
	return cmpSymbols[op]
}

// ParseCmpOp parses an operator symbol.
func ParseCmpOp(s string) (CmpOp, error) {
	for i, sym := range cmpSymbols {
		if sym == s {
			return CmpOp(i), nil
		}
	}
	return 0, fmt.Errorf("unknown comparison operator %q", s)
}

// Origin records which composition variant produced a node and with which
// operands. Operands are node IDs at composition time (-1 for operands that
// were still pending).
type Origin struct {
	Kind     Kind
	Operands []int
	Binnings []binning.Binning
	Op       CmpOp
	Const    any
}

// String renders the origin compactly, e.g. "sum(3,4)" or "compare_const(7 > 2.5)".
func (o Origin) String() string {
	switch o.Kind {
	case KindPending, KindLeaf:
		return o.Kind.String()
	case KindConst:
		return fmt.Sprintf("const(%v)", o.Const)
	case KindCompareConst:
		return fmt.Sprintf("%s(%d %s %v)", o.Kind, o.Operands[0], o.Op, o.Const)
	case KindCompareNode:
		return fmt.Sprintf("%s(%d %s %d)", o.Kind, o.Operands[0], o.Op, o.Operands[1])
	}

	parts := make([]string, 0, len(o.Operands))
	for i, id := range o.Operands {
		if i < len(o.Binnings) {
			parts = append(parts, fmt.Sprintf("%d@b%d", id, o.Binnings[i].ID()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%d", id))
	}
	return fmt.Sprintf("%s(%s)", o.Kind, strings.Join(parts, ","))
}
