package expr

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// State is the process-scoped bookkeeping shared by a family of nodes: the
// ID clock, the structural-identity composition caches, the dependency
// manager and the logger used for evaluation warnings.
//
// DefaultState lives for the whole process and is never reset. Tests and
// independent analyses can create their own with NewState.
type State struct {
	ids    *IDClock
	deps   *DepManager
	logger *slog.Logger

	mu           sync.Mutex
	compositions map[Kind]map[[2]int]int

	nanWarnings atomic.Int64
}

// Option configures a State.
type Option func(*State)

// WithLogger sets the logger used for evaluation warnings.
// Default: slog.Default() at the time of the warning.
func WithLogger(l *slog.Logger) Option {
	return func(s *State) {
		s.logger = l
	}
}

// WithIDClock sets the clock used for fresh IDs.
func WithIDClock(c *IDClock) Option {
	return func(s *State) {
		s.ids = c
	}
}

// NewState creates an empty State whose first fresh ID is 0.
func NewState(opts ...Option) *State {
	s := &State{
		ids:          NewIDClock(),
		deps:         NewDepManager(),
		compositions: make(map[Kind]map[[2]int]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DefaultState backs the package-level convenience constructors.
var DefaultState = NewState()

// NextID returns a fresh node ID.
func (s *State) NextID() int {
	return s.ids.Next()
}

// MaxID returns the largest ID handed out so far.
func (s *State) MaxID() int {
	return s.ids.Max()
}

// Deps returns the dependency manager.
func (s *State) Deps() *DepManager {
	return s.deps
}

// NaNWarnings returns how many NaN comparison warnings have been emitted.
func (s *State) NaNWarnings() int64 {
	return s.nanWarnings.Load()
}

// compositeID returns the ID remembered for composing a and b with kind,
// minting and remembering a fresh one the first time. Operand order is part
// of the key.
func (s *State) compositeID(kind Kind, a, b int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, ok := s.compositions[kind]
	if !ok {
		ids = make(map[[2]int]int)
		s.compositions[kind] = ids
	}
	key := [2]int{a, b}
	if id, ok := ids[key]; ok {
		return id
	}
	id := s.ids.Next()
	ids[key] = id
	return id
}

func (s *State) log() *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return slog.Default()
}

// warnNaN reports a comparison with a NaN operand. Evaluation continues.
func (s *State) warnNaN(op CmpOp, lhs, rhs any) {
	s.nanWarnings.Add(1)
	s.log().Warn("cut compares NaN", "op", op.String(), "lhs", lhs, "rhs", rhs)
}
