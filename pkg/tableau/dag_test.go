package tableau

import "testing"

func TestDAGCNameHashConsing(t *testing.T) {
	d := NewDAG()
	a := d.CName(ConceptID(7))
	b := d.CName(ConceptID(7))
	if a != b {
		t.Fatalf("CName(7) returned different bps across calls: %v, %v", a, b)
	}
	c := d.CName(ConceptID(8))
	if c == a {
		t.Fatalf("CName(7) and CName(8) collided on bp %v", a)
	}
}

func TestDAGAndOrHashConsing(t *testing.T) {
	d := NewDAG()
	a := d.CName(ConceptID(1))
	b := d.CName(ConceptID(2))

	and1 := d.And(a, b)
	and2 := d.And(a, b)
	if and1 != and2 {
		t.Fatalf("And(a,b) not hash-consed: %v != %v", and1, and2)
	}
	// Argument order is significant to structuralKey.
	and3 := d.And(b, a)
	if and3 == and1 {
		t.Fatalf("And(a,b) and And(b,a) hash-consed to the same bp %v, want distinct", and1)
	}

	or1 := d.Or(a, b)
	if or1 == and1 {
		t.Fatalf("Or(a,b) collided with And(a,b) at bp %v", or1)
	}
}

func TestDAGAndOrIdentityArgs(t *testing.T) {
	d := NewDAG()
	if got := d.And(); got != TopBP {
		t.Fatalf("And() = %v, want TopBP", got)
	}
	if got := d.Or(); got != BotBP {
		t.Fatalf("Or() = %v, want BotBP", got)
	}
	a := d.CName(ConceptID(1))
	if got := d.And(a); got != a {
		t.Fatalf("And(a) = %v, want a itself (%v)", got, a)
	}
	if got := d.Or(a); got != a {
		t.Fatalf("Or(a) = %v, want a itself (%v)", got, a)
	}
}

func TestDAGExistsForallDistinctRoles(t *testing.T) {
	d := NewDAG()
	a := d.CName(ConceptID(1))
	e1 := d.Exists(RoleID(1), a)
	e2 := d.Exists(RoleID(2), a)
	if e1 == e2 {
		t.Fatalf("Exists with different roles hash-consed to the same bp %v", e1)
	}
	f := d.Forall(RoleID(1), a)
	if f == e1 {
		t.Fatalf("Forall and Exists over the same role/filler collided at bp %v", f)
	}
}

func TestDAGNominalHashConsing(t *testing.T) {
	d := NewDAG()
	n1 := d.Nominal(IndividualID(3))
	n2 := d.Nominal(IndividualID(3))
	if n1 != n2 {
		t.Fatalf("Nominal(3) not hash-consed: %v != %v", n1, n2)
	}
	n3 := d.Nominal(IndividualID(4))
	if n3 == n1 {
		t.Fatalf("Nominal(3) and Nominal(4) collided at bp %v", n1)
	}
}

func TestDAGInverseRoundTrip(t *testing.T) {
	d := NewDAG()
	a := d.CName(ConceptID(1))
	if a.Inverse().Inverse() != a {
		t.Fatalf("double inverse of %v = %v, want original", a, a.Inverse().Inverse())
	}
	if TopBP.Inverse() != BotBP || BotBP.Inverse() != TopBP {
		t.Fatalf("Top/Bottom are not mutual inverses")
	}
}

func TestDAGCachedModelUnbounded(t *testing.T) {
	d := NewDAG()
	a := d.CName(ConceptID(1))
	if d.CachedModel(a) != nil {
		t.Fatalf("fresh vertex already has a cached model")
	}
	mc := &ModelCache{}
	d.SetCachedModel(a, mc)
	if got := d.CachedModel(a); got != mc {
		t.Fatalf("CachedModel after SetCachedModel = %v, want %v", got, mc)
	}
	// Setting again must not replace the first witness.
	other := &ModelCache{}
	d.SetCachedModel(a, other)
	if got := d.CachedModel(a); got != mc {
		t.Fatalf("SetCachedModel replaced an existing cached model")
	}
}

func TestDAGCachedModelBounded(t *testing.T) {
	d := NewDAG()
	d.EnableBoundedModelCache(1)
	a := d.CName(ConceptID(1))
	b := d.CName(ConceptID(2))
	d.SetCachedModel(a, &ModelCache{})
	d.SetCachedModel(b, &ModelCache{})
	// Capacity 1: inserting b's entry evicts a's.
	if d.CachedModel(a) != nil && d.CachedModel(b) == nil {
		t.Fatalf("bounded cache retained a's entry and dropped b's, want LRU eviction of a")
	}
	if d.CachedModel(b) == nil {
		t.Fatalf("most recently inserted entry was evicted from a size-1 LRU")
	}
}

func TestDAGSizeGrowsOnAllocate(t *testing.T) {
	d := NewDAG()
	before := d.Size()
	d.CName(ConceptID(1))
	d.CName(ConceptID(2))
	after := d.Size()
	if after <= before {
		t.Fatalf("Size() did not grow after allocating new vertices: before=%d after=%d", before, after)
	}
	// Re-interning an existing id must not grow the DAG further.
	d.CName(ConceptID(1))
	if d.Size() != after {
		t.Fatalf("re-interning CName(1) grew the DAG: %d -> %d", after, d.Size())
	}
}
