package tableau

import (
	"context"
	"testing"
)

func TestSessionClassifyRoutesThroughELSaturatorWhenHorn(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableELFastPath = true
	s := NewSession(cfg)

	parent, err := s.Declare("Parent")
	if err != nil {
		t.Fatalf("Declare(Parent) error: %v", err)
	}
	person, err := s.Declare("Person")
	if err != nil {
		t.Fatalf("Declare(Person) error: %v", err)
	}
	animal, err := s.Declare("Animal")
	if err != nil {
		t.Fatalf("Declare(Animal) error: %v", err)
	}
	hasChild, err := s.DeclareRole("hasChild")
	if err != nil {
		t.Fatalf("DeclareRole(hasChild) error: %v", err)
	}

	s.ImpliesConcepts(parent, s.Exists(hasChild, person))
	s.ImpliesConcepts(person, animal)

	if !s.isELFragment() {
		t.Fatalf("a TBox using only Declare/Exists/ImpliesConcepts must stay in the EL fragment")
	}

	tax, err := s.Classify(context.Background(), []BP{parent, person, animal}, 1)
	if err != nil {
		t.Fatalf("Classify error: %v", err)
	}

	personNode := tax.Node(person)
	if len(personNode.Parents) != 1 || personNode.Parents[0] != animal {
		t.Fatalf("Person's direct parents = %v, want [Animal]", personNode.Parents)
	}
	parentNode := tax.Node(parent)
	if len(parentNode.Parents) != 0 {
		t.Fatalf("Parent's direct parents = %v, want none (Parent and Person/Animal are unrelated)", parentNode.Parents)
	}
}

func TestSessionClassifyFallsBackOnDisjunction(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableELFastPath = true
	s := NewSession(cfg)

	a, err := s.Declare("A")
	if err != nil {
		t.Fatalf("Declare(A) error: %v", err)
	}
	b, err := s.Declare("B")
	if err != nil {
		t.Fatalf("Declare(B) error: %v", err)
	}
	c, err := s.Declare("C")
	if err != nil {
		t.Fatalf("Declare(C) error: %v", err)
	}

	// A ⊑ B ⊔ C steps outside the EL profile: Classify must fall back to
	// the full tableau oracle instead of silently mis-answering via the
	// saturator, which has no normal form for a disjunctive superclass.
	s.ImpliesConcepts(a, s.Or(b, c))

	if s.isELFragment() {
		t.Fatalf("a TBox asserting A ⊑ B ⊔ C must not be reported as staying in the EL fragment")
	}

	tax, err := s.Classify(context.Background(), []BP{a, b, c}, 1)
	if err != nil {
		t.Fatalf("Classify error: %v", err)
	}
	if tax.Node(a) == nil {
		t.Fatalf("Classify's fallback path did not produce a taxonomy entry for A")
	}
}

func TestSessionClassifyFallsBackOnNominal(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableELFastPath = true
	s := NewSession(cfg)

	a, err := s.Declare("A")
	if err != nil {
		t.Fatalf("Declare(A) error: %v", err)
	}
	ind := s.InternIndividual("i")
	s.ImpliesConcepts(a, s.Nominal(ind))

	if s.isELFragment() {
		t.Fatalf("a TBox asserting a nominal superclass must not be reported as EL")
	}
}

func TestELCompilerHandlesConjunctiveLeftHandSide(t *testing.T) {
	cfg := DefaultConfig()
	cfg.EnableELFastPath = true
	s := NewSession(cfg)

	a, _ := s.Declare("A")
	b, _ := s.Declare("B")
	d, _ := s.Declare("D")

	// A ⊓ B ⊑ D, a conjunctive left-hand side, is the CAndSubRule shape.
	s.ImpliesConcepts(s.And(a, b), d)

	tax, err := s.Classify(context.Background(), []BP{s.And(a, b), d}, 1)
	if err != nil {
		t.Fatalf("Classify error: %v", err)
	}
	node := tax.Node(s.And(a, b))
	if len(node.Parents) != 1 || node.Parents[0] != d {
		t.Fatalf("(A ⊓ B)'s direct parents = %v, want [D]", node.Parents)
	}
}
