package tableau

import "testing"

func TestSymbolTableInternConceptIsIdempotent(t *testing.T) {
	st := NewSymbolTable()
	a := st.InternConcept("A")
	again := st.InternConcept("A")
	if a != again {
		t.Fatalf("InternConcept(A) twice = %v, %v, want same id", a, again)
	}
	b := st.InternConcept("B")
	if b == a {
		t.Fatalf("InternConcept(B) collided with InternConcept(A)'s id")
	}
}

func TestSymbolTableInternRoleAndIndividual(t *testing.T) {
	st := NewSymbolTable()
	r := st.InternRole("hasChild")
	if again := st.InternRole("hasChild"); again != r {
		t.Fatalf("InternRole(hasChild) twice = %v, %v, want same id", r, again)
	}
	ind := st.InternIndividual("alice")
	if again := st.InternIndividual("alice"); again != ind {
		t.Fatalf("InternIndividual(alice) twice = %v, %v, want same id", ind, again)
	}
}

func TestSymbolTableHasConceptAndRole(t *testing.T) {
	st := NewSymbolTable()
	if st.HasConcept("A") || st.HasRole("R") {
		t.Fatalf("fresh symbol table reports names present before interning")
	}
	st.InternConcept("A")
	st.InternRole("R")
	if !st.HasConcept("A") || !st.HasRole("R") {
		t.Fatalf("HasConcept/HasRole did not find a name just interned")
	}
	if st.HasConcept("R") || st.HasRole("A") {
		t.Fatalf("HasConcept/HasRole crossed categories: a role name reported as a concept or vice versa")
	}
}

func TestSymbolTableNameRoundTrip(t *testing.T) {
	st := NewSymbolTable()
	a := st.InternConcept("A")
	r := st.InternRole("R")
	ind := st.InternIndividual("alice")
	if st.ConceptName(a) != "A" {
		t.Fatalf("ConceptName(a) = %q, want A", st.ConceptName(a))
	}
	if st.RoleName(r) != "R" {
		t.Fatalf("RoleName(r) = %q, want R", st.RoleName(r))
	}
	if st.IndividualName(ind) != "alice" {
		t.Fatalf("IndividualName(ind) = %q, want alice", st.IndividualName(ind))
	}
	if st.ConceptName(ConceptID(999)) != "" {
		t.Fatalf("ConceptName of an unallocated id must return empty string")
	}
}

func TestSymbolTableCounts(t *testing.T) {
	st := NewSymbolTable()
	before := st.ConceptCount()
	st.InternConcept("A")
	st.InternConcept("B")
	if st.ConceptCount() != before+2 {
		t.Fatalf("ConceptCount() = %d, want %d", st.ConceptCount(), before+2)
	}
	beforeRoles := st.RoleCount()
	st.InternRole("R")
	if st.RoleCount() != beforeRoles+1 {
		t.Fatalf("RoleCount() = %d, want %d", st.RoleCount(), beforeRoles+1)
	}
}
