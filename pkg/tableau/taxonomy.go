package tableau

import (
	"context"

	"github.com/dlkit/tableau/internal/parallel"
)

// TaxonomyNode is one concept's position in a classified subsumption
// hierarchy: its direct parents and children, the shape an Enhanced
// Traversal actor callback (spec.md §6) walks.
type TaxonomyNode struct {
	Concept  BP
	Parents  []BP
	Children []BP
}

// Taxonomy is the classification result for a fixed set of concepts.
// Deciding *which* pairs are worth testing, and pruning by told
// subsumptions before ever calling the oracle, is the external
// Enhanced Traversal algorithm's job (spec.md §1 lists "taxonomy
// construction" as an out-of-scope collaborator); Taxonomy is the
// structure that algorithm's oracle calls populate. Classify below is
// the brute-force pairwise driver this module supplies so the worker
// pool (4.N) and SubsumptionOracle (4.L) have something concrete
// exercising them end to end; a real Enhanced Traversal implementation
// would call the same oracle far more sparingly.
type Taxonomy struct {
	nodes map[BP]*TaxonomyNode
	order []BP
}

func newTaxonomy(concepts []BP) *Taxonomy {
	t := &Taxonomy{nodes: make(map[BP]*TaxonomyNode, len(concepts)), order: append([]BP(nil), concepts...)}
	for _, c := range concepts {
		t.nodes[c] = &TaxonomyNode{Concept: c}
	}
	return t
}

// Node returns the taxonomy entry for c, or nil if c was never classified.
func (t *Taxonomy) Node(c BP) *TaxonomyNode { return t.nodes[c] }

// Concepts returns every classified concept, in the order Classify was given them.
func (t *Taxonomy) Concepts() []BP { return t.order }

// Walk invokes cb once per (concept, direct-parent) pair in the
// taxonomy, the ActorCallback iteration shape spec.md §6 describes.
func (t *Taxonomy) Walk(cb ActorCallback) {
	for _, c := range t.order {
		for _, p := range t.nodes[c].Parents {
			cb(c, p)
		}
	}
}

// pairKey indexes an ordered pair of positions in a Classify call's
// concept slice.
type pairKey struct{ i, j int }

// Classify tests every ordered pair of concepts for subsumption
// through oracle, fanned out across a bounded worker pool (4.N via
// internal/parallel), and funnels the resulting edges back into a
// single Taxonomy built on this goroutine once every pair has been
// tested — the tableau engine itself stays single-threaded per call;
// only the independent oracle invocations run concurrently. workers <=
// 0 defaults to runtime.NumCPU, via parallel.New.
func Classify(ctx context.Context, oracle SubsumptionOracle, concepts []BP, workers int) (*Taxonomy, error) {
	n := len(concepts)
	pairs := make([]pairKey, 0, n*(n-1))
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i != j {
				pairs = append(pairs, pairKey{i, j})
			}
		}
	}

	pool := parallel.New(workers)
	results, err := pool.RunIndexed(ctx, len(pairs), func(ctx context.Context, k int) (bool, error) {
		p := pairs[k]
		return oracle.Subsumes(ctx, concepts[p.i], concepts[p.j])
	})
	if err != nil {
		return nil, err
	}

	subsumes := make(map[pairKey]bool, len(pairs))
	for k, p := range pairs {
		subsumes[p] = results[k]
	}

	return buildTaxonomy(concepts, func(i, j int) bool { return subsumes[pairKey{i, j}] }), nil
}

// buildTaxonomy derives direct parent/child edges from a complete
// pairwise subsumption relation (holds(i,j) iff concepts[j] subsumes
// concepts[i]), suppressing an edge whenever some third concept k sits
// strictly between the pair (concepts[i] subsumed by concepts[k]
// subsumed by concepts[j] already accounts for it transitively). Shared
// by Classify's full-oracle driver and Session.Classify's EL fast path
// (4.J), so both sources of a subsumption relation funnel into the same
// direct-edge derivation.
func buildTaxonomy(concepts []BP, holds func(i, j int) bool) *Taxonomy {
	n := len(concepts)
	tax := newTaxonomy(concepts)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j || !holds(i, j) {
				continue
			}
			direct := true
			for k := 0; k < n; k++ {
				if k == i || k == j {
					continue
				}
				if holds(i, k) && holds(k, j) {
					direct = false
					break
				}
			}
			if direct {
				tax.nodes[concepts[i]].Parents = append(tax.nodes[concepts[i]].Parents, concepts[j])
				tax.nodes[concepts[j]].Children = append(tax.nodes[concepts[j]].Children, concepts[i])
			}
		}
	}
	return tax
}
