package tableau

import (
	"context"
	"testing"
)

func newTestEngine(cfg EngineConfig) (*Engine, *DAG, *RoleHierarchy) {
	dag := NewDAG()
	rh := NewRoleHierarchy()
	defs := NewDefinitions()
	return NewEngine(dag, rh, defs, nil, cfg), dag, rh
}

func TestEngineRunSatisfiesAtomicConcept(t *testing.T) {
	e, dag, _ := newTestEngine(DefaultEngineConfig())
	a := dag.CName(ConceptID(1))
	sat, err := e.Run(context.Background(), a)
	if err != nil || !sat {
		t.Fatalf("Run(A) = %v, %v, want true, nil", sat, err)
	}
}

func TestEngineRunClashesOnDirectContradiction(t *testing.T) {
	e, dag, _ := newTestEngine(DefaultEngineConfig())
	a := dag.CName(ConceptID(1))
	c := dag.And(a, a.Inverse())
	sat, err := e.Run(context.Background(), c)
	if err != nil || sat {
		t.Fatalf("Run(A ⊓ ¬A) = %v, %v, want false, nil", sat, err)
	}
}

func TestEngineRunBottomIsUnsatisfiable(t *testing.T) {
	e, _, _ := newTestEngine(DefaultEngineConfig())
	sat, err := e.Run(context.Background(), BotBP)
	if err != nil || sat {
		t.Fatalf("Run(⊥) = %v, %v, want false, nil", sat, err)
	}
}

func TestEngineRunDisjunctionPicksSatisfiableDisjunct(t *testing.T) {
	e, dag, _ := newTestEngine(DefaultEngineConfig())
	a := dag.CName(ConceptID(1))
	c := dag.Or(BotBP, a)
	sat, err := e.Run(context.Background(), c)
	if err != nil || !sat {
		t.Fatalf("Run(⊥ ⊔ A) = %v, %v, want true, nil", sat, err)
	}
}

func TestEngineRunDisjunctionAllClash(t *testing.T) {
	e, dag, _ := newTestEngine(DefaultEngineConfig())
	c := dag.Or(BotBP, BotBP)
	sat, err := e.Run(context.Background(), c)
	if err != nil || sat {
		t.Fatalf("Run(⊥ ⊔ ⊥) = %v, %v, want false, nil", sat, err)
	}
}

func TestEngineRunExistsCreatesSuccessorWithFiller(t *testing.T) {
	e, dag, rh := newTestEngine(DefaultEngineConfig())
	r := rh.Declare("R")
	b := dag.CName(ConceptID(2))
	c := dag.Exists(r, b)
	sat, err := e.Run(context.Background(), c)
	if err != nil || !sat {
		t.Fatalf("Run(∃R.B) = %v, %v, want true, nil", sat, err)
	}
	succs := e.Graph().Successors(rh, e.Graph().Root(), r)
	if len(succs) != 1 {
		t.Fatalf("expected exactly one R-successor, got %d", len(succs))
	}
	if !e.hasConceptCached(succs[0].To, b) {
		t.Fatalf("R-successor does not carry the filler B")
	}
}

func TestEngineRunForallPropagatesToExistingSuccessor(t *testing.T) {
	e, dag, rh := newTestEngine(DefaultEngineConfig())
	r := rh.Declare("R")
	b := dag.CName(ConceptID(2))
	exists := dag.Exists(r, TopBP)
	forall := dag.Forall(r, b)
	c := dag.And(exists, forall)
	sat, err := e.Run(context.Background(), c)
	if err != nil || !sat {
		t.Fatalf("Run(∃R.⊤ ⊓ ∀R.B) = %v, %v, want true, nil", sat, err)
	}
	succs := e.Graph().Successors(rh, e.Graph().Root(), r)
	if len(succs) != 1 || !e.hasConceptCached(succs[0].To, b) {
		t.Fatalf("∀R.B was not propagated onto the ∃R.⊤ successor")
	}
}

func TestEngineRunForallOnExistingEdgeClashesWithNegatedFiller(t *testing.T) {
	e, dag, rh := newTestEngine(DefaultEngineConfig())
	r := rh.Declare("R")
	b := dag.CName(ConceptID(2))
	exists := dag.Exists(r, b)
	forall := dag.Forall(r, b.Inverse())
	c := dag.And(exists, forall)
	sat, err := e.Run(context.Background(), c)
	if err != nil || sat {
		t.Fatalf("Run(∃R.B ⊓ ∀R.¬B) = %v, %v, want false, nil", sat, err)
	}
}

func TestEngineRunAtLeastCreatesDistinctSuccessors(t *testing.T) {
	e, dag, rh := newTestEngine(DefaultEngineConfig())
	r := rh.Declare("R")
	c := dag.AtLeast(2, r, TopBP)
	sat, err := e.Run(context.Background(), c)
	if err != nil || !sat {
		t.Fatalf("Run(≥2 R.⊤) = %v, %v, want true, nil", sat, err)
	}
	succs := e.Graph().Successors(rh, e.Graph().Root(), r)
	if len(succs) != 2 {
		t.Fatalf("expected 2 R-successors, got %d", len(succs))
	}
}

func TestEngineRunAtLeastAtMostContradictoryBoundsClash(t *testing.T) {
	// ≥2 R.⊤'s successors are created pairwise-distinct, so ≤1 R.⊤ has no
	// legal pair left to merge: the conjunction is unsatisfiable.
	e, dag, rh := newTestEngine(DefaultEngineConfig())
	role := rh.Declare("R")
	atLeast := dag.AtLeast(2, role, TopBP)
	atMost := dag.AtMost(1, role, TopBP)
	c := dag.And(atLeast, atMost)
	sat, err := e.Run(context.Background(), c)
	if err != nil || sat {
		t.Fatalf("Run(≥2 R.⊤ ⊓ ≤1 R.⊤) = %v, %v, want false, nil", sat, err)
	}
}

func TestEngineRunAtMostMergesUnrelatedSuccessors(t *testing.T) {
	// Two independently-created existentials (different fillers, so not
	// born pairwise-distinct the way ≥2's successors are) can legally
	// merge under ≤1 R.⊤. Each filler conjoins TopBP in explicitly, since
	// ≤1 R.⊤ only counts successors whose label literally carries ⊤.
	e, dag, rh := newTestEngine(DefaultEngineConfig())
	r := rh.Declare("R")
	b := dag.CName(ConceptID(2))
	cc := dag.CName(ConceptID(3))
	c := dag.And(dag.Exists(r, dag.And(b, TopBP)), dag.Exists(r, dag.And(cc, TopBP)), dag.AtMost(1, r, TopBP))
	sat, err := e.Run(context.Background(), c)
	if err != nil || !sat {
		t.Fatalf("Run(∃R.B ⊓ ∃R.C ⊓ ≤1 R.⊤) = %v, %v, want true, nil", sat, err)
	}
	succs := e.Graph().Successors(rh, e.Graph().Root(), r)
	if len(succs) == 0 {
		t.Fatalf("expected at least one R-successor after the merge")
	}
	target := succs[0].To
	for _, s := range succs[1:] {
		if s.To != target {
			t.Fatalf("expected the ≤1 rule to merge the B- and C-successors onto one node, got edges to %v and %v", target, s.To)
		}
	}
	if !e.hasConceptCached(target, b) || !e.hasConceptCached(target, cc) {
		t.Fatalf("merged successor does not carry both fillers B and C")
	}
}

func TestEngineRunFunctionalRoleClashesOnAtLeastTwo(t *testing.T) {
	e, dag, rh := newTestEngine(DefaultEngineConfig())
	r := rh.Declare("R")
	rh.SetFunctional(r)
	c := dag.AtLeast(2, r, TopBP)
	sat, err := e.Run(context.Background(), c)
	if err != nil || sat {
		t.Fatalf("Run(≥2 R.⊤) on a functional role = %v, %v, want false, nil", sat, err)
	}
}

func TestEngineRunGlobalAxiomAssertedOnRootAndSuccessors(t *testing.T) {
	e, dag, rh := newTestEngine(DefaultEngineConfig())
	r := rh.Declare("R")
	// Internalized TBox: ¬A ⊔ ⊥, i.e. every individual in every model
	// must satisfy ¬A (A is globally unsatisfiable).
	a := dag.CName(ConceptID(1))
	e.cfg.GlobalAxiom = dag.Or(a.Inverse(), BotBP)

	exists := dag.Exists(r, a)
	sat, err := e.Run(context.Background(), exists)
	if err != nil || sat {
		t.Fatalf("Run(∃R.A) under a global axiom forbidding A = %v, %v, want false, nil", sat, err)
	}
}

func TestEngineRunCancelledContextReturnsErrCancelled(t *testing.T) {
	e, dag, _ := newTestEngine(DefaultEngineConfig())
	a := dag.CName(ConceptID(1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sat, err := e.Run(ctx, a)
	if err != ErrCancelled || sat {
		t.Fatalf("Run with a cancelled context = %v, %v, want false, ErrCancelled", sat, err)
	}
}

func TestEngineRunNominalMergeUnifiesTwoNodes(t *testing.T) {
	e, dag, rh := newTestEngine(DefaultEngineConfig())
	r := rh.Declare("R")
	ind := IndividualID(1)
	nom := dag.Nominal(ind)
	b := dag.CName(ConceptID(2))

	// Two separate ∃R.{a} edges from root must end up pointing at the
	// same node, since there is only ever one node representing a.
	c := dag.And(dag.Exists(r, dag.And(nom, b)), dag.Exists(r, nom))
	sat, err := e.Run(context.Background(), c)
	if err != nil || !sat {
		t.Fatalf("Run(∃R.({a} ⊓ B) ⊓ ∃R.{a}) = %v, %v, want true, nil", sat, err)
	}
}

func TestEngineStatsCountsFiringsAndClashes(t *testing.T) {
	e, dag, _ := newTestEngine(DefaultEngineConfig())
	a := dag.CName(ConceptID(1))
	c := dag.And(a, a.Inverse())
	_, _ = e.Run(context.Background(), c)
	stats := e.Stats()
	if stats.Clashes == 0 {
		t.Fatalf("Stats().Clashes = 0 after a direct contradiction")
	}
	if stats.RuleFirings == 0 {
		t.Fatalf("Stats().RuleFirings = 0 after a run")
	}
}

func TestEngineDistinctIndividualsForbidNominalMerge(t *testing.T) {
	a, b := IndividualID(1), IndividualID(2)
	cfg := DefaultEngineConfig()
	cfg.DistinctIndividuals = [][2]IndividualID{{a, b}}
	e, dag, rh := newTestEngine(cfg)
	r := rh.Declare("R")

	nomA := dag.Nominal(a)
	nomB := dag.Nominal(b)
	// ≤1 R.⊤ only counts R-successors whose label literally carries ⊤, so
	// each filler conjoins TopBP in as its own label entry alongside the
	// nominal; that forces the two successors (one labelled {a}, one {b})
	// to merge, but a and b were declared distinct, so the ≤-rule's
	// merge attempt must clash instead.
	atMost := dag.AtMost(1, r, TopBP)
	c := dag.And(atMost, dag.Exists(r, dag.And(nomA, TopBP)), dag.Exists(r, dag.And(nomB, TopBP)))
	sat, err := e.Run(context.Background(), c)
	if err != nil || sat {
		t.Fatalf("Run with {a},{b} distinct forced to merge = %v, %v, want false, nil", sat, err)
	}
}
