// Package tableau implements a tableau-based satisfiability engine for
// expressive Description Logics, together with the subsystems that make
// it practical: a hash-consed DAG of sub-expressions, a role hierarchy
// with complex-inclusion automata, a completion graph with
// snapshot/restore, a dependency-directed backjumping branching stack,
// subset/pairwise/anywhere blocking, a model cache, a fast EL-family
// saturation reasoner, and a conjunctive-query folding transform.
//
// The entry point for callers is Session (see session.go): it owns the
// DAG, role hierarchy and model cache for one knowledge base and
// exposes the bulk axiom-declaration API and the query API described in
// the package's design document. A Session is not safe for concurrent
// axiom mutation; independent read-only queries against a frozen KB may
// be run concurrently (see internal/parallel for the worker pool used
// by classification).
package tableau
