package config

import "sort"

// refGraph maps a definition name to the names it references.
type refGraph map[string][]string

// cycles returns every reference cycle as a path that starts and ends at the
// same name, e.g. [a b a]. Self references give [a a]. Output is sorted so
// error messages are deterministic.
func (g refGraph) cycles() [][]string {
	var out [][]string
	for _, scc := range g.tarjanSCC() {
		if len(scc) == 1 && !g.hasSelfLoop(scc[0]) {
			continue
		}
		sort.Strings(scc)
		out = append(out, g.cyclePath(scc))
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

func (g refGraph) hasSelfLoop(n string) bool {
	for _, m := range g[n] {
		if m == n {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
func (g refGraph) tarjanSCC() [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range g[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	names := make([]string, 0, len(g))
	for n := range g {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if _, visited := indices[n]; !visited {
			strongConnect(n)
		}
	}
	return sccs
}

// cyclePath walks edges inside scc from its first member back to it.
func (g refGraph) cyclePath(scc []string) []string {
	start := scc[0]
	if len(scc) == 1 {
		return []string{start, start}
	}
	in := make(map[string]bool, len(scc))
	for _, n := range scc {
		in[n] = true
	}

	path := []string{start}
	visited := map[string]bool{start: true}
	cur := start
	for {
		next := ""
		for _, m := range g[cur] {
			if m == start && len(path) > 1 {
				return append(path, start)
			}
			if in[m] && !visited[m] && next == "" {
				next = m
			}
		}
		if next == "" {
			// Dead end inside the component; close the loop on what we have.
			return append(path, start)
		}
		visited[next] = true
		path = append(path, next)
		cur = next
	}
}
