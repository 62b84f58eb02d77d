package tableau

import "fmt"

// NodeID indexes a completion-graph node. Node 0 is the root of the
// query being tested.
type NodeID int32

// LabelEntry is one concept attached to a node's label, paired with the
// DepSet of branching choices it depends on.
type LabelEntry struct {
	BP  BP
	Dep DepSet
}

// Edge is a directed, role-labelled connection between two completion
// nodes. Edges always come in inverse pairs: creating (x,y,R) also
// creates (y,x,R⁻) with an identical DepSet, and both are removed
// together by restore.
type Edge struct {
	From, To NodeID
	Role     RoleID
	Dep      DepSet
	// Predecessor is true for the edge created by the rule that built
	// this individual (the "tree edge" in blocking terms); the mirrored
	// inverse edge has Predecessor false.
	Predecessor bool
}

// AddResult is the outcome of adding a concept to a node's label.
type AddResult uint8

const (
	Added AddResult = iota
	AlreadyPresent
	ClashDetected
)

// Node is a completion-graph individual.
type Node struct {
	ID NodeID

	IsNominal bool
	IsDataNode bool
	Individual IndividualID // valid iff IsNominal

	// simple holds atomic label entries (⊤, named concepts, nominals):
	// the To-do queue's cheapest entries to scan for a clash.
	simple []LabelEntry
	// complex holds everything else (And/Or/Exists/Forall/GE/LE/...).
	complex []LabelEntry

	out []Edge // edges where this node is From
	in  []Edge // edges where this node is To (kept for fast predecessor walks)

	// cacheFlag marks a node whose label has been checked against the
	// model cache this round, to avoid rechecking on every rule firing.
	cacheFlag bool

	// blockedBy is the ancestor node that blocks this node, or -1.
	blockedBy NodeID

	// level is the branching level at which this node was created;
	// restore() removes nodes whose level exceeds the target.
	level uint32

	// mergedInto is set when this node has been merged into another
	// (by the ≤-rule or nominal identification); a merged node is
	// logically dead but kept around so restore() can resurrect it.
	mergedInto NodeID
	isMerged   bool

	// parent/parentRole/parentDep record the tree edge this node was
	// created along, used by blocking to walk ancestors.
	parent     NodeID
	hasParent  bool
	parentRole RoleID
	parentDep  DepSet
}

const noNode NodeID = -1

// nodeSnapshot captures the sizes restore() truncates back to, and the
// merge mark it resets.
type nodeSnapshot struct {
	simpleLen, complexLen int
	outLen, inLen         int
	merged                bool
	mergedInto            NodeID
}

// graphSnapshot is one entry in the save stack: the sizes of every
// node's lists plus the graph-wide node count, at the moment save() was
// called.
type graphSnapshot struct {
	level      uint32
	nodeCount  int
	perNode    map[NodeID]nodeSnapshot
}

// CompletionGraph is the labelled directed graph of individuals built
// during tableau expansion. It rests on the "monotone-until-restore"
// property: within one branching level, labels, edges and nodes only
// grow, so save() only needs to remember sizes and restore() only needs
// to truncate back to them.
type CompletionGraph struct {
	nodes []Node

	// modifiedSince tracks which node ids have been touched since the
	// last save() or restore(); save() itself snapshots every node, so a
	// node first touched after a save is still truncated by its restore.
	modifiedSince map[NodeID]bool

	snapshots []graphSnapshot
	curLevel  uint32
}

// NewCompletionGraph returns a graph with a single root node (id 0),
// unblocked, at level 0.
func NewCompletionGraph() *CompletionGraph {
	g := &CompletionGraph{
		nodes:         []Node{{ID: 0, blockedBy: noNode, parent: noNode}},
		modifiedSince: make(map[NodeID]bool),
	}
	return g
}

// Root returns the id of the query's root node.
func (g *CompletionGraph) Root() NodeID { return 0 }

// Node returns a pointer to the node record for id.
func (g *CompletionGraph) Node(id NodeID) *Node { return &g.nodes[id] }

// NodeCount returns the number of allocated node slots (including
// merged-away ones, which keep their slot for restore purposes).
func (g *CompletionGraph) NodeCount() int { return len(g.nodes) }

func (g *CompletionGraph) touch(id NodeID) { g.modifiedSince[id] = true }

// NewNode creates a fresh node. If parent is not noNode, it also
// installs the paired (parent,child,role) / (child,parent,role⁻)
// edges, both carrying dep.
func (g *CompletionGraph) NewNode(rh *RoleHierarchy, parent NodeID, role RoleID, dep DepSet) NodeID {
	id := NodeID(len(g.nodes))
	n := Node{ID: id, blockedBy: noNode, parent: noNode, level: g.curLevel}
	g.nodes = append(g.nodes, n)
	g.touch(id)

	if parent != noNode {
		g.nodes[id].parent = parent
		g.nodes[id].hasParent = true
		g.nodes[id].parentRole = role
		g.nodes[id].parentDep = dep
		g.addEdgePair(rh, parent, id, role, dep, true)
	}
	return id
}

// addEdgePair installs (from,to,role,dep) and its mirrored inverse.
// predecessor marks the direction the rule that called NewNode created
// the node along (true means from->to is the tree edge).
func (g *CompletionGraph) addEdgePair(rh *RoleHierarchy, from, to NodeID, role RoleID, dep DepSet, predecessor bool) {
	inv := rh.Inverse(role)
	g.nodes[from].out = append(g.nodes[from].out, Edge{From: from, To: to, Role: role, Dep: dep, Predecessor: predecessor})
	g.nodes[to].in = append(g.nodes[to].in, Edge{From: from, To: to, Role: role, Dep: dep, Predecessor: predecessor})
	g.nodes[to].out = append(g.nodes[to].out, Edge{From: to, To: from, Role: inv, Dep: dep, Predecessor: false})
	g.nodes[from].in = append(g.nodes[from].in, Edge{From: to, To: from, Role: inv, Dep: dep, Predecessor: false})
	g.touch(from)
	g.touch(to)
}

// AddEdge installs an edge not associated with node creation (used by
// the ∃-rule for a reflexive role's self-loop on a new successor, and by
// Merge when it rewires edges).
func (g *CompletionGraph) AddEdge(rh *RoleHierarchy, from, to NodeID, role RoleID, dep DepSet) {
	g.addEdgePair(rh, from, to, role, dep, false)
}

// Successors returns every outgoing edge from id whose role is role or
// a sub-role of it (so ∃/∀ expansion only has to call this once per
// rule firing, not once per sub-role).
func (g *CompletionGraph) Successors(rh *RoleHierarchy, id NodeID, role RoleID) []Edge {
	var out []Edge
	for _, e := range g.nodes[id].out {
		if rh.IsSubRoleOf(e.Role, role) {
			out = append(out, e)
		}
	}
	return out
}

// AddConcept appends (bp,dep) to node id's label (simple or complex
// list depending on the vertex tag), comparing against the inverse
// entries already present. Returns AlreadyPresent without modifying
// anything if bp is already in the label; returns ClashDetected (with
// clashDep set to the union of bp's dep and the conflicting entry's
// dep) if inverse(bp) is already present.
func (g *CompletionGraph) AddConcept(dag *DAG, id NodeID, entry LabelEntry, tag VertexTag) (AddResult, DepSet) {
	n := &g.nodes[id]
	list := &n.simple
	if !isSimpleTag(tag) {
		list = &n.complex
	}
	for _, e := range *list {
		if e.BP == entry.BP {
			return AlreadyPresent, DepSet{}
		}
		if e.BP == entry.BP.Inverse() {
			return ClashDetected, e.Dep.Union(entry.Dep)
		}
	}
	// ⊥ is always a clash with anything, including itself trivially
	// signalling unsatisfiability of this node outright.
	if entry.BP == BotBP {
		return ClashDetected, entry.Dep
	}
	*list = append(*list, entry)
	g.touch(id)
	dag.MarkUsed(entry.BP)
	return Added, DepSet{}
}

func isSimpleTag(tag VertexTag) bool {
	switch tag {
	case TagTop, TagCName, TagNominal:
		return true
	default:
		return false
	}
}

// SimpleLabel and ComplexLabel expose a node's label lists for
// iteration by the to-do queue and blocking subsystems.
func (n *Node) SimpleLabel() []LabelEntry  { return n.simple }
func (n *Node) ComplexLabel() []LabelEntry { return n.complex }

// AllLabel returns both label lists concatenated, used by blocking's
// subset/equality comparisons.
func (n *Node) AllLabel() []LabelEntry {
	out := make([]LabelEntry, 0, len(n.simple)+len(n.complex))
	out = append(out, n.simple...)
	out = append(out, n.complex...)
	return out
}

// Save pushes a snapshot of every node's list sizes and merge mark at a
// new branching level, and returns that level. The modified-set is
// cleared afterward.
func (g *CompletionGraph) Save() uint32 {
	g.curLevel++
	snap := graphSnapshot{level: g.curLevel, nodeCount: len(g.nodes), perNode: make(map[NodeID]nodeSnapshot, len(g.nodes))}
	for i := range g.nodes {
		n := &g.nodes[i]
		snap.perNode[NodeID(i)] = nodeSnapshot{
			simpleLen: len(n.simple), complexLen: len(n.complex),
			outLen: len(n.out), inLen: len(n.in),
			merged: n.isMerged, mergedInto: n.mergedInto,
		}
	}
	g.snapshots = append(g.snapshots, snap)
	g.modifiedSince = make(map[NodeID]bool)
	return g.curLevel
}

// Restore truncates the graph back to its state at the save
// corresponding to level: every node created after level is dropped
// (its slot remains allocated but is never addressed again while at or
// below level), every surviving node's label/edge lists are truncated
// to their saved lengths, and its merge mark is reset to the saved one
// (so a node merged away after the save is live again). Restore is
// idempotent: calling it
// again for the same level (or any level >= the current one) is a
// no-op.
func (g *CompletionGraph) Restore(level uint32) {
	for g.curLevel > level && len(g.snapshots) > 0 {
		snap := g.snapshots[len(g.snapshots)-1]
		g.snapshots = g.snapshots[:len(g.snapshots)-1]

		// Drop nodes created at or after this snapshot's level.
		if snap.nodeCount < len(g.nodes) {
			g.nodes = g.nodes[:snap.nodeCount]
		}
		for id, sz := range snap.perNode {
			if int(id) >= len(g.nodes) {
				continue
			}
			n := &g.nodes[id]
			if sz.simpleLen <= len(n.simple) {
				n.simple = n.simple[:sz.simpleLen]
			}
			if sz.complexLen <= len(n.complex) {
				n.complex = n.complex[:sz.complexLen]
			}
			if sz.outLen <= len(n.out) {
				n.out = n.out[:sz.outLen]
			}
			if sz.inLen <= len(n.in) {
				n.in = n.in[:sz.inLen]
			}
			n.isMerged, n.mergedInto = sz.merged, sz.mergedInto
		}
		g.curLevel = snap.level - 1
	}
	g.modifiedSince = make(map[NodeID]bool)
}

// CurrentLevel returns the branching level the graph last saved to.
func (g *CompletionGraph) CurrentLevel() uint32 { return g.curLevel }

// Merge rewires every edge of y onto x, unions their labels, and marks
// y as merged-into x. It can itself produce a clash if the union
// brings both C and ¬C into x's label (returned as ClashDetected).
func (g *CompletionGraph) Merge(dag *DAG, rh *RoleHierarchy, x, y NodeID, dep DepSet) (AddResult, DepSet) {
	if x == y {
		return AlreadyPresent, DepSet{}
	}
	yn := &g.nodes[y]
	if yn.isMerged {
		return g.Merge(dag, rh, x, yn.mergedInto, dep)
	}

	// Union labels into x, watching for a clash as we go.
	for _, e := range yn.AllLabel() {
		tag := TagTop
		if v := dag.Lookup(e.BP); v != nil {
			tag = v.Tag
		}
		res, clashDep := g.AddConcept(dag, x, LabelEntry{BP: e.BP, Dep: e.Dep.Union(dep)}, tag)
		if res == ClashDetected {
			return ClashDetected, clashDep
		}
	}

	// Rewire y's edges onto x.
	for _, e := range yn.out {
		ed := e.Dep.Union(dep)
		if e.To == y {
			g.AddEdge(rh, x, x, e.Role, ed)
		} else {
			g.AddEdge(rh, x, e.To, e.Role, ed)
		}
	}
	for _, e := range yn.in {
		if e.From == y {
			continue // already handled as part of yn.out's self-loop case
		}
		ed := e.Dep.Union(dep)
		g.AddEdge(rh, e.From, x, e.Role, ed)
	}

	yn.isMerged = true
	yn.mergedInto = x
	g.touch(x)
	g.touch(y)
	return Added, DepSet{}
}

func (n *Node) String() string {
	return fmt.Sprintf("Node(%d, simple=%d, complex=%d, out=%d)", n.ID, len(n.simple), len(n.complex), len(n.out))
}
