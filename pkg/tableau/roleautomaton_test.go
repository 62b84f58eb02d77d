package tableau

import "testing"

func TestRoleAutomatonStartIsFinal(t *testing.T) {
	rh := NewRoleHierarchy()
	s := rh.Declare("S")
	a := NewRoleAutomaton(s)
	if !a.IsFinal(a.Start()) {
		t.Fatalf("the start state must be final, so a direct S-edge propagates with an empty chain")
	}
}

func TestRoleAutomatonAddChainSingleRole(t *testing.T) {
	rh := NewRoleHierarchy()
	s := rh.Declare("S")
	r1 := rh.Declare("R1")
	rh.Close()

	a := NewRoleAutomaton(s)
	a.AddChain([]RoleID{r1})

	next := a.Step(a.Start(), r1)
	if len(next) != 1 {
		t.Fatalf("Step(start, R1) = %v, want exactly one next state", next)
	}
	if !a.IsFinal(next[0]) {
		t.Fatalf("state reached after the chain's only role must be final")
	}
}

func TestRoleAutomatonAddChainMultiRole(t *testing.T) {
	rh := NewRoleHierarchy()
	s := rh.Declare("S")
	r1 := rh.Declare("R1")
	r2 := rh.Declare("R2")
	rh.Close()

	a := NewRoleAutomaton(s)
	a.AddChain([]RoleID{r1, r2})

	mid := a.Step(a.Start(), r1)
	if len(mid) != 1 {
		t.Fatalf("Step(start, R1) = %v, want one intermediate state", mid)
	}
	if a.IsFinal(mid[0]) {
		t.Fatalf("the intermediate state of a two-role chain must not be final")
	}
	end := a.Step(mid[0], r2)
	if len(end) != 1 || !a.IsFinal(end[0]) {
		t.Fatalf("Step(mid, R2) = %v, want one final state", end)
	}
}

func TestRoleAutomatonSharedStartAcrossChains(t *testing.T) {
	rh := NewRoleHierarchy()
	s := rh.Declare("S")
	r1 := rh.Declare("R1")
	r2 := rh.Declare("R2")
	rh.Close()

	a := NewRoleAutomaton(s)
	a.AddChain([]RoleID{r1})
	a.AddChain([]RoleID{r2})

	if len(a.Step(a.Start(), r1)) != 1 || len(a.Step(a.Start(), r2)) != 1 {
		t.Fatalf("two chains registered against the same target must both branch from the shared start state")
	}
}

func TestRoleAutomatonStepUnknownRoleEmpty(t *testing.T) {
	rh := NewRoleHierarchy()
	s := rh.Declare("S")
	r1 := rh.Declare("R1")
	other := rh.Declare("Other")
	rh.Close()

	a := NewRoleAutomaton(s)
	a.AddChain([]RoleID{r1})
	if got := a.Step(a.Start(), other); len(got) != 0 {
		t.Fatalf("Step on a role with no transition = %v, want empty", got)
	}
}

func TestRoleAutomatonStepOutOfRangeState(t *testing.T) {
	rh := NewRoleHierarchy()
	s := rh.Declare("S")
	r1 := rh.Declare("R1")
	a := NewRoleAutomaton(s)
	if got := a.Step(-1, r1); got != nil {
		t.Fatalf("Step with a negative state = %v, want nil", got)
	}
	if got := a.Step(999, r1); got != nil {
		t.Fatalf("Step with an out-of-range state = %v, want nil", got)
	}
}

func TestRoleAutomatonStepRoleHierarchyFollowsSubRoles(t *testing.T) {
	rh := NewRoleHierarchy()
	s := rh.Declare("S")
	r1 := rh.Declare("R1")
	sub := rh.Declare("SubOfR1")
	rh.AddSubRole(sub, r1)
	rh.Close()

	a := NewRoleAutomaton(s)
	a.AddChain([]RoleID{r1})

	next := a.StepRoleHierarchy(rh, a.Start(), sub)
	if len(next) != 1 || !a.IsFinal(next[0]) {
		t.Fatalf("StepRoleHierarchy via a sub-role of R1 = %v, want one final state", next)
	}
}
