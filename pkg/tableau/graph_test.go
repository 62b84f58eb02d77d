package tableau

import "testing"

func TestCompletionGraphNewNodeCreatesInversePair(t *testing.T) {
	rh := NewRoleHierarchy()
	r := rh.Declare("R")
	rInv := rh.Declare("R-inv")
	rh.SetInverse(r, rInv)

	g := NewCompletionGraph()
	child := g.NewNode(rh, g.Root(), r, DepSet{})

	outs := g.Successors(rh, g.Root(), r)
	if len(outs) != 1 || outs[0].To != child {
		t.Fatalf("Successors(root, R) = %v, want one edge to %v", outs, child)
	}
	ins := g.Successors(rh, child, rInv)
	if len(ins) != 1 || ins[0].To != g.Root() {
		t.Fatalf("Successors(child, R-inv) = %v, want one edge back to root", ins)
	}
}

func TestCompletionGraphAddConceptClashAndDup(t *testing.T) {
	d := NewDAG()
	g := NewCompletionGraph()
	a := d.CName(ConceptID(1))

	res, _ := g.AddConcept(d, g.Root(), LabelEntry{BP: a}, TagCName)
	if res != Added {
		t.Fatalf("first AddConcept = %v, want Added", res)
	}
	res, _ = g.AddConcept(d, g.Root(), LabelEntry{BP: a}, TagCName)
	if res != AlreadyPresent {
		t.Fatalf("duplicate AddConcept = %v, want AlreadyPresent", res)
	}
	res, _ = g.AddConcept(d, g.Root(), LabelEntry{BP: a.Inverse()}, TagCName)
	if res != ClashDetected {
		t.Fatalf("AddConcept(¬a) after a = %v, want ClashDetected", res)
	}
}

func TestCompletionGraphSaveRestoreTruncates(t *testing.T) {
	rh := NewRoleHierarchy()
	r := rh.Declare("R")
	d := NewDAG()
	g := NewCompletionGraph()

	before := g.NodeCount()
	lvl := g.Save()
	g.NewNode(rh, g.Root(), r, DepSet{})
	a := d.CName(ConceptID(1))
	g.AddConcept(d, g.Root(), LabelEntry{BP: a}, TagCName)

	if g.NodeCount() == before {
		t.Fatalf("NewNode did not grow the graph before restore")
	}

	g.Restore(lvl - 1)
	if g.NodeCount() != before {
		t.Fatalf("Restore did not drop the node created after save: NodeCount=%d, want %d", g.NodeCount(), before)
	}
	if len(g.Node(g.Root()).AllLabel()) != 0 {
		t.Fatalf("Restore did not truncate the root's label back to empty")
	}
}

func TestCompletionGraphMergeUnionsLabelsAndEdges(t *testing.T) {
	rh := NewRoleHierarchy()
	r := rh.Declare("R")
	d := NewDAG()
	g := NewCompletionGraph()

	x := g.NewNode(rh, g.Root(), r, DepSet{})
	y := g.NewNode(rh, g.Root(), r, DepSet{})
	a := d.CName(ConceptID(1))
	g.AddConcept(d, y, LabelEntry{BP: a}, TagCName)

	res, _ := g.Merge(d, rh, x, y, DepSet{})
	if res != Added {
		t.Fatalf("Merge(x,y) = %v, want Added", res)
	}
	found := false
	for _, e := range g.Node(x).AllLabel() {
		if e.BP == a {
			found = true
		}
	}
	if !found {
		t.Fatalf("Merge did not union y's label into x")
	}
	if !g.Node(y).isMerged || g.Node(y).mergedInto != x {
		t.Fatalf("Merge did not mark y merged into x")
	}
}

func TestCompletionGraphMergeClash(t *testing.T) {
	rh := NewRoleHierarchy()
	d := NewDAG()
	g := NewCompletionGraph()

	x := g.NewNode(rh, g.Root(), RoleID(0), DepSet{})
	y := g.NewNode(rh, g.Root(), RoleID(0), DepSet{})
	a := d.CName(ConceptID(1))
	g.AddConcept(d, x, LabelEntry{BP: a}, TagCName)
	g.AddConcept(d, y, LabelEntry{BP: a.Inverse()}, TagCName)

	res, _ := g.Merge(d, rh, x, y, DepSet{})
	if res != ClashDetected {
		t.Fatalf("Merge of nodes with contradictory labels = %v, want ClashDetected", res)
	}
}
