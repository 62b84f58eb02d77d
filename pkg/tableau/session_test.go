package tableau

import (
	"context"
	"errors"
	"testing"
)

func newTestSession() *Session {
	cfg := DefaultConfig()
	cfg.ModelCache = CacheOff
	return NewSession(cfg)
}

func TestSessionDeclareIsIdempotentByName(t *testing.T) {
	s := newTestSession()
	a1, err := s.Declare("A")
	if err != nil {
		t.Fatalf("Declare(A): %v", err)
	}
	a2, err := s.Declare("A")
	if err != nil {
		t.Fatalf("Declare(A) again: %v", err)
	}
	if a1 != a2 {
		t.Fatalf("Declare(A) twice returned different bps: %v, %v", a1, a2)
	}
}

func TestSessionDeclareNameClashWithRole(t *testing.T) {
	s := newTestSession()
	if _, err := s.DeclareRole("R"); err != nil {
		t.Fatalf("DeclareRole(R): %v", err)
	}
	if _, err := s.Declare("R"); !errors.Is(err, ErrNameClash) {
		t.Fatalf("Declare(R) after DeclareRole(R) = %v, want ErrNameClash", err)
	}
}

func TestSessionDeclareRoleNameClashWithConcept(t *testing.T) {
	s := newTestSession()
	if _, err := s.Declare("A"); err != nil {
		t.Fatalf("Declare(A): %v", err)
	}
	if _, err := s.DeclareRole("A"); !errors.Is(err, ErrNameClash) {
		t.Fatalf("DeclareRole(A) after Declare(A) = %v, want ErrNameClash", err)
	}
}

func TestSessionIsSatisfiableAtomicConcept(t *testing.T) {
	s := newTestSession()
	a, _ := s.Declare("A")
	sat, err := s.IsSatisfiable(context.Background(), a)
	if err != nil || !sat {
		t.Fatalf("IsSatisfiable(A) = %v, %v, want true, nil", sat, err)
	}
}

func TestSessionIsSatisfiableRejectsAAndNotA(t *testing.T) {
	s := newTestSession()
	a, _ := s.Declare("A")
	sat, err := s.IsSatisfiable(context.Background(), s.And(a, a.Inverse()))
	if err != nil || sat {
		t.Fatalf("IsSatisfiable(A ⊓ ¬A) = %v, %v, want false, nil", sat, err)
	}
}

func TestSessionImpliesConceptsDrivesSubsumption(t *testing.T) {
	s := newTestSession()
	dog, _ := s.Declare("Dog")
	animal, _ := s.Declare("Animal")
	s.ImpliesConcepts(dog, animal)

	sub, err := s.IsSubsumedBy(context.Background(), dog, animal)
	if err != nil || !sub {
		t.Fatalf("IsSubsumedBy(Dog, Animal) = %v, %v, want true, nil", sub, err)
	}
	rev, err := s.IsSubsumedBy(context.Background(), animal, dog)
	if err != nil || rev {
		t.Fatalf("IsSubsumedBy(Animal, Dog) = %v, %v, want false, nil", rev, err)
	}
}

func TestSessionRetractUndoesImpliesConcepts(t *testing.T) {
	s := newTestSession()
	dog, _ := s.Declare("Dog")
	animal, _ := s.Declare("Animal")
	h := s.ImpliesConcepts(dog, animal)

	sub, _ := s.IsSubsumedBy(context.Background(), dog, animal)
	if !sub {
		t.Fatalf("subsumption not established before retraction")
	}
	s.Retract(h)
	sub, err := s.IsSubsumedBy(context.Background(), dog, animal)
	if err != nil || sub {
		t.Fatalf("IsSubsumedBy(Dog, Animal) after Retract = %v, %v, want false, nil", sub, err)
	}
}

func TestSessionEqualConceptsImpliesBothDirections(t *testing.T) {
	s := newTestSession()
	a, _ := s.Declare("A")
	b, _ := s.Declare("B")
	s.EqualConcepts([]BP{a, b})

	eq, err := s.IsEquivalent(context.Background(), a, b)
	if err != nil || !eq {
		t.Fatalf("IsEquivalent(A, B) after EqualConcepts = %v, %v, want true, nil", eq, err)
	}
}

func TestSessionDisjointConceptsForbidsSharedInstance(t *testing.T) {
	s := newTestSession()
	a, _ := s.Declare("A")
	b, _ := s.Declare("B")
	s.DisjointConcepts([]BP{a, b})

	disjoint, err := s.IsDisjoint(context.Background(), a, b)
	if err != nil || !disjoint {
		t.Fatalf("IsDisjoint(A, B) after DisjointConcepts = %v, %v, want true, nil", disjoint, err)
	}
}

func TestSessionSetDomainConstrainsExistentialFiller(t *testing.T) {
	s := newTestSession()
	person, _ := s.Declare("Person")
	r, _ := s.DeclareRole("hasChild")
	s.SetDomain(r, person)

	// ∃hasChild.⊤ ⊓ ¬Person on the same node is now unsatisfiable, since
	// anything with an outgoing hasChild edge must be a Person.
	sat, err := s.IsSatisfiable(context.Background(), s.And(s.Exists(r, TopBP), person.Inverse()))
	if err != nil || sat {
		t.Fatalf("IsSatisfiable(∃hasChild.⊤ ⊓ ¬Person) after SetDomain = %v, %v, want false, nil", sat, err)
	}
}

func TestSessionSetRangeConstrainsEveryFiller(t *testing.T) {
	s := newTestSession()
	person, _ := s.Declare("Person")
	r, _ := s.DeclareRole("hasChild")
	s.SetRange(r, person)

	sat, err := s.IsSatisfiable(context.Background(), s.Exists(r, person.Inverse()))
	if err != nil || sat {
		t.Fatalf("IsSatisfiable(∃hasChild.¬Person) after SetRange = %v, %v, want false, nil", sat, err)
	}
}

func TestSessionRoleCharacteristicOracles(t *testing.T) {
	s := newTestSession()
	r, _ := s.DeclareRole("R")

	trans, err := s.IsRoleTransitive(context.Background(), r)
	if err != nil || trans {
		t.Fatalf("IsRoleTransitive(R) before SetTransitive = %v, %v, want false, nil", trans, err)
	}
	s.SetTransitive(r)
	trans, err = s.IsRoleTransitive(context.Background(), r)
	if err != nil || !trans {
		t.Fatalf("IsRoleTransitive(R) after SetTransitive = %v, %v, want true, nil", trans, err)
	}

	fn, err := s.IsRoleFunctional(context.Background(), r)
	if err != nil || fn {
		t.Fatalf("IsRoleFunctional(R) before SetFunctionalRole = %v, %v, want false, nil", fn, err)
	}
	s.SetFunctionalRole(r)
	fn, err = s.IsRoleFunctional(context.Background(), r)
	if err != nil || !fn {
		t.Fatalf("IsRoleFunctional(R) after SetFunctionalRole = %v, %v, want true, nil", fn, err)
	}
}

func TestSessionRoleTransitivityEntailsCompositionSubsumption(t *testing.T) {
	// A ⊑ ∃R.B, B ⊑ ∃R.C, R transitive ⊢ A ⊑ ∃R.C
	s := newTestSession()
	a, _ := s.Declare("A")
	b, _ := s.Declare("B")
	c, _ := s.Declare("C")
	r, _ := s.DeclareRole("R")
	s.SetTransitive(r)
	s.ImpliesConcepts(a, s.Exists(r, b))
	s.ImpliesConcepts(b, s.Exists(r, c))

	sub, err := s.IsSubsumedBy(context.Background(), a, s.Exists(r, c))
	if err != nil || !sub {
		t.Fatalf("IsSubsumedBy(A, ∃R.C) = %v, %v, want true, nil", sub, err)
	}
}

func TestSessionInstanceOfAndCheckConsistency(t *testing.T) {
	s := newTestSession()
	person, _ := s.Declare("Person")
	alice := s.InternIndividual("alice")
	s.InstanceOf(alice, person, false)

	sat, err := s.CheckConsistency(context.Background())
	if err != nil || !sat {
		t.Fatalf("CheckConsistency() with a plain instance assertion = %v, %v, want true, nil", sat, err)
	}
}

func TestSessionInstanceOfContradictionMarksInconsistent(t *testing.T) {
	s := newTestSession()
	person, _ := s.Declare("Person")
	alice := s.InternIndividual("alice")
	s.InstanceOf(alice, person, false)
	s.InstanceOf(alice, person, true)

	sat, err := s.CheckConsistency(context.Background())
	if err != nil || sat {
		t.Fatalf("CheckConsistency() with Person(alice) and ¬Person(alice) = %v, %v, want false, nil", sat, err)
	}

	_, err = s.IsSatisfiable(context.Background(), TopBP)
	if !errors.Is(err, ErrInconsistentKB) {
		t.Fatalf("query after an inconsistent KB was found = %v, want ErrInconsistentKB", err)
	}
}

func TestSessionRelatedToAssertsRoleEdge(t *testing.T) {
	s := newTestSession()
	person, _ := s.Declare("Person")
	r, _ := s.DeclareRole("hasChild")
	alice := s.InternIndividual("alice")
	bob := s.InternIndividual("bob")
	s.InstanceOf(bob, person, false)
	s.RelatedTo(alice, bob, r, false)
	s.SetRange(r, person)

	sat, err := s.CheckConsistency(context.Background())
	if err != nil || !sat {
		t.Fatalf("CheckConsistency() with hasChild(alice,bob) and Person(bob) = %v, %v, want true, nil", sat, err)
	}
}

func TestSessionDifferentIndividualsForbidsNominalMerge(t *testing.T) {
	s := newTestSession()
	r, _ := s.DeclareRole("R")
	a := s.InternIndividual("a")
	b := s.InternIndividual("b")
	o := s.InternIndividual("o")

	s.RelatedTo(a, o, r, false)
	s.RelatedTo(b, o, r, false)
	rInv, _ := s.DeclareRole("R-inverse")
	s.SetInverseRoles(r, rInv)
	s.InstanceOf(o, s.AtMost(1, rInv, TopBP), false)
	s.Different(a, b)

	sat, err := s.CheckConsistency(context.Background())
	if err != nil || sat {
		t.Fatalf("CheckConsistency() with a≠b forced to merge by ≤1 R⁻.⊤ = %v, %v, want false, nil", sat, err)
	}
}

func TestSessionQueryHoldsForMatchingIndividual(t *testing.T) {
	s := newTestSession()
	r, _ := s.DeclareRole("R")
	x, y := QueryVar("x"), QueryVar("y")
	root := s.InternIndividual("root")
	target := s.InternIndividual("target")
	s.RelatedTo(root, target, r, false)

	q := &Query{
		RoleAtoms: []RoleAtom{{Role: r, X: x, Y: y}},
		Free:      map[QueryVar]bool{x: true, y: true},
	}
	holds, err := s.Query(context.Background(), q, x, root)
	if err != nil || !holds {
		t.Fatalf("Query(∃y.R(x,y)) against root with an asserted R-edge = %v, %v, want true, nil", holds, err)
	}
}

func TestSessionQueryFailsWithoutMatchingEdge(t *testing.T) {
	s := newTestSession()
	r, _ := s.DeclareRole("R")
	x, y := QueryVar("x"), QueryVar("y")
	root := s.InternIndividual("root")

	q := &Query{
		RoleAtoms: []RoleAtom{{Role: r, X: x, Y: y}},
		Free:      map[QueryVar]bool{x: true, y: true},
	}
	holds, err := s.Query(context.Background(), q, x, root)
	if err != nil || holds {
		t.Fatalf("Query(∃y.R(x,y)) against root with no asserted R-edge = %v, %v, want false, nil", holds, err)
	}
}

func TestSessionOracleWrapsIsSubsumedBy(t *testing.T) {
	s := newTestSession()
	dog, _ := s.Declare("Dog")
	animal, _ := s.Declare("Animal")
	s.ImpliesConcepts(dog, animal)

	oracle := s.Oracle()
	sub, err := oracle.Subsumes(context.Background(), dog, animal)
	if err != nil || !sub {
		t.Fatalf("Oracle().Subsumes(Dog, Animal) = %v, %v, want true, nil", sub, err)
	}
}

func TestSessionIDIsStable(t *testing.T) {
	s := newTestSession()
	if s.ID() != s.ID() {
		t.Fatalf("Session.ID() changed across calls")
	}
}
