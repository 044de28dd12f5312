package expr

import "sync"

// tracked is a node as seen by the DepManager. Implemented by *Node[R, T].
type tracked interface {
	// adopt copies the evaluator, ID and origin of a resolved source.
	// Must not call back into the DepManager.
	adopt(src tracked)
	resolved() bool
}

// DepManager resolves nodes that were copied from a source before the
// source had been given its evaluator.
//
// Package-level nodes may be initialized in any order across packages. A
// node copied from a not-yet-initialized source is pending; the manager
// remembers it as a dependent of that source and, when the source resolves,
// copies the source's evaluator and ID into it. Resolution cascades: a
// dependent that resolves resolves its own dependents in turn. Each
// dependent is resolved exactly once: a node waits on at most one source,
// and a node that resolved by other means is never overwritten.
//
// If a pending source is released before it resolves, its dependents stay
// pending forever. This is not reported; evaluating such a node fails with
// ErrUnresolvedNode.
//
// Thread-safety: all methods are safe for concurrent use.
type DepManager struct {
	mu      sync.Mutex
	deps    map[tracked][]tracked // pending source -> dependents in registration order
	waiting map[tracked]tracked   // dependent -> the source it waits on
}

// NewDepManager creates an empty manager.
func NewDepManager() *DepManager {
	return &DepManager{
		deps:    make(map[tracked][]tracked),
		waiting: make(map[tracked]tracked),
	}
}

// RegisterConstruction records that n has just resolved and resolves
// everything waiting on it, transitively.
func (m *DepManager) RegisterConstruction(n tracked) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cascade(n)
}

// RegisterDestruction forgets n, both as a source and as a dependent.
// Dependents of n stop waiting and stay pending.
func (m *DepManager) RegisterDestruction(n tracked) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, d := range m.deps[n] {
		delete(m.waiting, d)
	}
	delete(m.deps, n)

	src, ok := m.waiting[n]
	if !ok {
		return
	}
	delete(m.waiting, n)
	kept := m.deps[src][:0]
	for _, d := range m.deps[src] {
		if d != n {
			kept = append(kept, d)
		}
	}
	if len(kept) == 0 {
		delete(m.deps, src)
		return
	}
	m.deps[src] = kept
}

// RegisterDependency records that dependent must become identical to
// source once source resolves. If source is already resolved the dependent
// is resolved immediately. A dependent that is already resolved fails with
// ErrAlreadyResolved; one already waiting on a source fails with
// ErrAlreadyBound.
func (m *DepManager) RegisterDependency(source, dependent tracked) error {
	if source == dependent {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if dependent.resolved() {
		return ErrAlreadyResolved
	}
	if _, ok := m.waiting[dependent]; ok {
		return ErrAlreadyBound
	}
	if source.resolved() {
		dependent.adopt(source)
		m.cascade(dependent)
		return nil
	}
	m.deps[source] = append(m.deps[source], dependent)
	m.waiting[dependent] = source
	return nil
}

// Bound reports whether n is waiting on a pending source.
func (m *DepManager) Bound(n tracked) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.waiting[n]
	return ok
}

// Pending returns how many unresolved sources still have dependents waiting.
func (m *DepManager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.deps)
}

// Waiting returns the total number of dependents waiting on any source.
func (m *DepManager) Waiting() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.waiting)
}

// cascade resolves the dependents of src breadth-first. Caller holds m.mu.
func (m *DepManager) cascade(src tracked) {
	queue := []tracked{src}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]

		list := m.deps[s]
		delete(m.deps, s)
		for _, d := range list {
			delete(m.waiting, d)
			if d.resolved() {
				continue
			}
			d.adopt(s)
			queue = append(queue, d)
		}
	}
}
