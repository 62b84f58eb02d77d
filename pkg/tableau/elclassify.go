package tableau

import (
	"context"
	"fmt"
)

// elCompiler turns a session's currently-asserted GCIs into the normal
// forms ELSaturator.Run needs (4.J), synthesizing a fresh concept name
// for every compound subexpression (conjunction, existential) it
// meets — the standard EL structural-transformation technique. Each
// synthetic name N is tied to its subexpression by bridging axioms
// (N ⊑ sub and sub ⊑ N), so subsumption over the original expression is
// preserved exactly by subsumption over N in the saturated result.
// Memoized by bp so the hash-consed DAG's sharing carries over: two
// GCIs that both mention the same ∃R.C subterm compile it once.
type elCompiler struct {
	s           *Session
	sat         *ELSaturator
	top, bottom ConceptID
	named       map[BP]ConceptID
	foldSeq     int
}

func newELCompiler(s *Session) *elCompiler {
	c := &elCompiler{
		s:     s,
		sat:   NewELSaturator(s.st, s.rh),
		named: make(map[BP]ConceptID),
	}
	c.top = s.st.InternConcept("$el#top")
	c.bottom = s.st.InternConcept("$el#bottom")
	c.named[TopBP] = c.top
	c.named[BotBP] = c.bottom
	return c
}

// nameFor returns the ConceptID standing in for bp, compiling bp's own
// defining axioms into the saturator the first time it's seen. Only the
// EL normal forms (⊤, a concept name, ⊓ of sub-names, ∃R.sub-name) ever
// reach here, since Session.Classify only takes this path once
// IsELFragment has confirmed the TBox never asserted ⊔, ∀, ≥n/≤n or a
// nominal — the constructs this compiler has no normal form for.
func (c *elCompiler) nameFor(bp BP) ConceptID {
	if id, ok := c.named[bp]; ok {
		return id
	}
	v := c.s.dag.Lookup(bp)
	if v == nil {
		id := c.s.st.InternConcept(fmt.Sprintf("$el#opaque#%d", bp))
		c.named[bp] = id
		return id
	}
	switch v.Tag {
	case TagCName:
		c.named[bp] = v.Name
		return v.Name
	case TagAnd:
		id := c.s.st.InternConcept(fmt.Sprintf("$el#and#%d", bp))
		c.named[bp] = id
		parts := make([]ConceptID, len(v.Args))
		for i, a := range v.Args {
			parts[i] = c.nameFor(a)
		}
		for _, p := range parts {
			c.sat.AddSubsumption(id, p) // id ⊑ each conjunct
		}
		c.foldConjunctionInto(parts, id) // conjuncts ⊓...⊓ ⊑ id
		return id
	case TagExists:
		id := c.s.st.InternConcept(fmt.Sprintf("$el#exists#%d", bp))
		c.named[bp] = id
		filler := c.nameFor(v.Args[0])
		c.sat.AddExistSub(id, v.RoleArg, filler)  // id ⊑ ∃R.filler
		c.sat.AddExistLeft(v.RoleArg, filler, id) // ∃R.filler ⊑ id
		return id
	default:
		// Unreachable under IsELFragment; named as an opaque atom rather
		// than panicking so a caller that bypasses Classify's guard still
		// gets a (conservatively useless, not unsound) answer.
		id := c.s.st.InternConcept(fmt.Sprintf("$el#opaque#%d", bp))
		c.named[bp] = id
		return id
	}
}

// foldConjunctionInto compiles parts[0] ⊓ parts[1] ⊓ ... ⊓ parts[n-1] ⊑
// id, folding pairwise through synthetic accumulator concepts since
// ELSaturator's CAndSubRule is binary.
func (c *elCompiler) foldConjunctionInto(parts []ConceptID, id ConceptID) {
	switch len(parts) {
	case 0:
		c.sat.AddSubsumption(c.top, id) // empty conjunction is ⊤
	case 1:
		c.sat.AddSubsumption(parts[0], id)
	default:
		acc := parts[0]
		for i := 1; i < len(parts)-1; i++ {
			c.foldSeq++
			next := c.s.st.InternConcept(fmt.Sprintf("$el#fold#%d", c.foldSeq))
			c.sat.AddConjunction(acc, parts[i], next)
			acc = next
		}
		c.sat.AddConjunction(acc, parts[len(parts)-1], id)
	}
}

// addGCI compiles one internalized ¬C ⊔ D conjunct (the shape every
// entry of Session.gciList has, per ImpliesConcepts) back into C ⊑ D and
// hands it to the saturator. Entries that aren't this exact two-operand
// Or shape are skipped rather than mis-compiled; IsELFragment guarantees
// every gci reaching here has it, since the only way a GCI list entry
// could look different is a user-level Or/negation Classify's caller
// already ruled out.
func (c *elCompiler) addGCI(gci BP) {
	v := c.s.dag.Lookup(gci)
	if v == nil || v.Tag != TagOr || len(v.Args) != 2 {
		return
	}
	lhs := v.Args[0].Inverse()
	rhs := v.Args[1]
	c.sat.AddSubsumption(c.nameFor(lhs), c.nameFor(rhs))
}

// isELFragment reports whether this session's TBox, as asserted so far,
// stays inside the EL profile ELSaturator handles.
func (s *Session) isELFragment() bool {
	return IsELFragment(s.elHasDisjunction, s.elHasUniversal, s.elHasCardinality, s.elHasNominal, s.elHasInverse)
}

// classifyEL runs the polynomial EL completion algorithm over the
// session's current GCIs and answers every pairwise subsumption among
// concepts directly from the saturated result, with no tableau engine
// invocation at all.
func (s *Session) classifyEL(concepts []BP) *Taxonomy {
	comp := newELCompiler(s)
	for _, gci := range s.gciList {
		comp.addGCI(gci)
	}
	ids := make([]ConceptID, len(concepts))
	for i, bp := range concepts {
		ids[i] = comp.nameFor(bp)
	}
	contexts := comp.sat.Run(comp.top, comp.bottom)
	return buildTaxonomy(concepts, func(i, j int) bool {
		return Subsumes(contexts, ids[i], ids[j])
	})
}

// Classify derives the subsumption taxonomy over concepts, relative to
// the session's TBox. When the session was configured with
// EnableELFastPath and every axiom asserted so far stays within the EL
// profile (no ⊔, ∀, cardinality restriction, nominal or inverse role),
// this routes through the EL saturator (4.J) — polynomial instead of
// the pairwise tableau oracle's exponential worst case. Otherwise it
// falls back to the full tableau-backed Classify driver (4.N), exactly
// as it always has.
func (s *Session) Classify(ctx context.Context, concepts []BP, workers int) (*Taxonomy, error) {
	if err := s.checkUsable(); err != nil {
		return nil, err
	}
	if !s.closedRoles {
		s.rh.Close()
		s.closedRoles = true
	}
	if s.cfg.EnableELFastPath && s.isELFragment() {
		s.log.Debug("classify: routing through the EL fast path")
		tax := s.classifyEL(concepts)
		s.taxonomy = tax
		return tax, nil
	}
	tax, err := Classify(ctx, s.Oracle(), concepts, workers)
	if err != nil {
		return nil, err
	}
	s.taxonomy = tax
	return tax, nil
}
