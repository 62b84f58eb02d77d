package tableau

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// DatatypeReasoner is the pluggable interface the Datatype rule offloads
// to; the tableau engine never interprets a TagDatatype vertex's payload
// itself. A nil DatatypeReasoner makes any datatype vertex an automatic
// clash, which is a safe (if imprecise) default for knowledge bases that
// declare no data properties.
type DatatypeReasoner interface {
	// Check reports whether payload is satisfiable together with every
	// other datatype constraint already accumulated at node id in this
	// branch (the engine passes the accumulated DepSet so Check can
	// report a precise clash set of its own).
	Check(payload any, dep DepSet) (ok bool, clashDep DepSet)
}

// Definitions holds the "possibly lazy" named-concept definitions the
// CName-rule unfolds, and the disjoint-renaming sets the choose-rule
// picks from. Both are built once while axioms load and read only
// during reasoning, like the DAG and role hierarchy they index into.
type Definitions struct {
	byConcept map[ConceptID]BP   // C ≡ definition, for unfolding
	splits    map[BP][]BP        // choose-rule: disjoint extensional renamings
}

// NewDefinitions returns an empty table.
func NewDefinitions() *Definitions {
	return &Definitions{byConcept: make(map[ConceptID]BP), splits: make(map[BP][]BP)}
}

// Define records C's (possibly cyclic — the engine guards against
// infinite unfolding via the to-do queue's AlreadyPresent short circuit,
// not a separate occurs-check) definition.
func (d *Definitions) Define(c ConceptID, def BP) { d.byConcept[c] = def }

// Definition returns C's definition bp and whether one is registered.
func (d *Definitions) Definition(c ConceptID) (BP, bool) {
	bp, ok := d.byConcept[c]
	return bp, ok
}

// AddSplit registers concept as having the given disjoint extensional
// renamings available to the choose-rule.
func (d *Definitions) AddSplit(concept BP, renamings []BP) { d.splits[concept] = renamings }

// SplitOf returns concept's registered renamings, if any.
func (d *Definitions) SplitOf(concept BP) ([]BP, bool) {
	r, ok := d.splits[concept]
	return r, ok
}

// EngineConfig selects the tunable behaviours 4.G/4.H leave open.
type EngineConfig struct {
	Blocking BlockingMode
	UseCache bool
	Fairness []BP

	// GlobalAxiom is the TBox's internalized form: the conjunction of
	// ¬C ⊔ D over every general concept inclusion C ⊑ D currently
	// asserted, per the standard internalization technique for testing
	// satisfiability with respect to a TBox. It defaults to TopBP (no
	// GCIs, a no-op conjunct) and is asserted on the root and on every
	// freshly created successor node, since a GCI binds every individual
	// in every model, not just the one the query names.
	GlobalAxiom BP

	// DistinctIndividuals lists individual pairs asserted different
	// (owl:differentFrom, or pairwise via AllDifferent). Without the
	// unique-name assumption, two nominal-labelled nodes are otherwise
	// free to merge into one (the tableau simply infers a = b); a pair
	// named here turns that merge into a clash instead.
	DistinctIndividuals [][2]IndividualID
}

// DefaultEngineConfig is anywhere-blocking with the model cache enabled,
// the configuration the design document calls out as the common case.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{Blocking: BlockAnywhere, UseCache: true, GlobalAxiom: TopBP}
}

// Engine runs the tableau expansion rules (4.I) over one completion
// graph until it saturates (satisfiable) or the root clashes all the
// way out (unsatisfiable). It owns every mutable reasoning structure for
// the call; nothing here is safe for concurrent use by two goroutines at
// once, matching the single-threaded-cooperative concurrency model.
type Engine struct {
	dag   *DAG
	rh    *RoleHierarchy
	defs  *Definitions
	data  DatatypeReasoner

	graph    *CompletionGraph
	todo     *TodoQueue
	branch   *BranchStack
	blocking *BlockingManager

	cfg EngineConfig

	// nodeNominal maps an individual to the node currently representing
	// it, so the nominal-rule can find "the other node with this
	// nominal" in O(1) instead of scanning every label.
	nodeNominal map[IndividualID]NodeID

	// explicitDistinct records individual pairs asserted different, so
	// fireNominal and tryMergeOption can refuse to merge their nodes (see
	// EngineConfig.DistinctIndividuals).
	explicitDistinct map[IndividualID]map[IndividualID]bool

	// distinct enforces the ≥-rule's pairwise-distinctness
	// requirement on freshly created successors.
	distinct map[NodeID]map[NodeID]bool

	// nodeCache memoizes the model cache built from each node's current
	// label/edges, consulted by fireExists (to decide whether an
	// existing R-successor already admits a new filler without growing
	// the graph) and fireAtMost (to prune a merge candidate the cache
	// already knows clashes). Invalidated by addConceptWithRule and, after
	// each successful CompletionGraph.Merge, by tryMergeOption and
	// fireNominal, since either can change a node's label out from under
	// a stale snapshot.
	nodeCache map[NodeID]*ModelCache

	// lastClash holds the DepSet of the most recently detected clash,
	// read by Run immediately after fire returns sat=false and handed to
	// the branch stack's Backtrack.
	lastClash DepSet

	stats Stats

	// log is an optional structured logger; nil for engines built
	// directly in tests without a Session. Session.newEngine attaches
	// one via SetLogger before calling Run.
	log *logrus.Entry
}

// SetLogger attaches a structured logger that hot-path rule firings log
// branch pushes, backjumps, clashes, cache lookups and blocking
// decisions to at Trace level (Session.newEngine is the only caller in
// this module; direct Engine construction in tests leaves it nil).
func (e *Engine) SetLogger(log *logrus.Entry) { e.log = log }

// Stats counts rule firings and clashes for observability; exposed via
// the metrics package rather than logged directly on every firing.
type Stats struct {
	RuleFirings  uint64
	Clashes      uint64
	Backjumps    uint64
	NodesCreated uint64

	// CacheHits and CacheMisses count model-cache consultations only
	// (reuseViaModelCache's CanMerge check in fireExists, and fireAtMost's
	// pre-branch CanMerge pruning) — not the plain label scan
	// hasConceptCached does first, which is a literal lookup and never
	// touches the model cache.
	CacheHits   uint64
	CacheMisses uint64
}

// NewEngine returns an engine over a fresh completion graph, ready to
// test root's satisfiability.
func NewEngine(dag *DAG, rh *RoleHierarchy, defs *Definitions, data DatatypeReasoner, cfg EngineConfig) *Engine {
	graph := NewCompletionGraph()
	todo := NewTodoQueue()
	e := &Engine{
		dag: dag, rh: rh, defs: defs, data: data,
		graph: graph, todo: todo,
		branch:      NewBranchStack(graph, todo),
		blocking:    NewBlockingManager(cfg.Blocking, graph, dag),
		cfg:         cfg,
		nodeNominal: make(map[IndividualID]NodeID),
		distinct:    make(map[NodeID]map[NodeID]bool),
		nodeCache:   make(map[NodeID]*ModelCache),
	}
	if e.cfg.GlobalAxiom == 0 {
		e.cfg.GlobalAxiom = TopBP
	}
	if len(cfg.DistinctIndividuals) > 0 {
		e.explicitDistinct = make(map[IndividualID]map[IndividualID]bool, len(cfg.DistinctIndividuals))
		for _, pair := range cfg.DistinctIndividuals {
			a, b := pair[0], pair[1]
			if e.explicitDistinct[a] == nil {
				e.explicitDistinct[a] = make(map[IndividualID]bool)
			}
			if e.explicitDistinct[b] == nil {
				e.explicitDistinct[b] = make(map[IndividualID]bool)
			}
			e.explicitDistinct[a][b] = true
			e.explicitDistinct[b][a] = true
		}
	}
	e.blocking.SetFairnessConcepts(cfg.Fairness)
	return e
}

// isExplicitlyDistinct reports whether a and b were named in a
// Different/AllDifferent assertion.
func (e *Engine) isExplicitlyDistinct(a, b IndividualID) bool {
	return e.explicitDistinct[a] != nil && e.explicitDistinct[a][b]
}

// assertGlobalAxiom asserts the internalized TBox on node, the one step
// every node-creation rule must perform in addition to whatever concept
// motivated the node's creation.
func (e *Engine) assertGlobalAxiom(node NodeID, dep DepSet) (bool, DepSet) {
	if e.cfg.GlobalAxiom == TopBP {
		return true, DepSet{}
	}
	res, clashDep := e.addConceptWithRule(node, LabelEntry{BP: e.cfg.GlobalAxiom, Dep: dep})
	return res != ClashDetected, clashDep
}

// Graph exposes the completion graph for callers (model extraction,
// diagnostics) once Run has returned satisfiable.
func (e *Engine) Graph() *CompletionGraph { return e.graph }

// Stats returns a copy of the engine's counters.
func (e *Engine) Stats() Stats { return e.stats }

// Run seeds the root node with concept and runs the tableau to
// completion, returning whether it is satisfiable. ctx is polled only at
// the dequeue boundary of the main loop, per the cooperative-cancellation
// design; a cancelled context unwinds the branch stack and returns
// ErrCancelled.
func (e *Engine) Run(ctx context.Context, concept BP) (bool, error) {
	root := e.graph.Root()
	if res, clashDep := e.addConceptWithRule(root, LabelEntry{BP: concept, Dep: EmptyDepSet()}); res == ClashDetected {
		_ = clashDep
		return false, nil
	}
	if ok, _ := e.assertGlobalAxiom(root, EmptyDepSet()); !ok {
		return false, nil
	}

	for {
		select {
		case <-ctx.Done():
			e.branch.PopAll()
			return false, ErrCancelled
		default:
		}

		entry, ok := e.todo.NextEntry()
		if !ok {
			return true, nil // saturated: no rule left to fire, no clash found
		}
		if e.blocking.IsBlocked(entry.Node) {
			logBlockingDecision(e.log, entry.Node, true, e.graph.Node(entry.Node).blockedBy)
			e.blocking.Defer(entry.Node, entry)
			continue
		}

		sat, err := e.fire(entry)
		if err != nil {
			return false, err
		}
		if sat {
			continue
		}

		// Clash: ask the branch stack to backjump or advance, retrying
		// resumed branch options until one sticks or the whole stack is
		// exhausted (whole-session unsatisfiable).
		clashDep := e.lastClash
		for {
			e.stats.Backjumps++
			fromLevel := e.branch.CurrentLevel()
			_, resumed := e.branch.Backtrack(clashDep)
			if !resumed {
				logBackjump(e.log, fromLevel, 0)
				return false, nil
			}
			logBackjump(e.log, fromLevel, e.branch.CurrentLevel())
			bc := e.branch.Top()
			sat, err := e.resumeBranch(bc)
			if err != nil {
				return false, err
			}
			if sat {
				break
			}
			clashDep = e.lastClash
		}
	}
}

// resumeBranch asserts the now-current option of bc, the branching
// context Backtrack just landed on, dispatching by rule kind.
func (e *Engine) resumeBranch(bc *BranchContext) (bool, error) {
	switch bc.Kind {
	case RuleLEMerge:
		return e.tryMergeOption(bc)
	case RuleNN:
		return e.tryNNOption(bc)
	default:
		return e.tryCurrentOption(bc)
	}
}

// fire dispatches entry's bp to the rule selected by its top-level tag
// and returns sat=false with e.lastClash set on a clash.
func (e *Engine) fire(entry TodoEntry) (sat bool, err error) {
	e.stats.RuleFirings++
	bp := entry.BP
	if bp == BotBP {
		e.clash(entry.Dep)
		return false, nil
	}
	v := e.dag.Lookup(bp)
	if v == nil {
		return false, invariantf("to-do entry references unknown bp %v", bp)
	}
	neg := bp.IsNegated()

	switch v.Tag {
	case TagTop:
		return true, nil
	case TagCName:
		return e.fireCName(entry, v, neg)
	case TagAnd:
		if !neg {
			return e.fireAnd(entry, v)
		}
		return e.fireOr(entry, negateAll(v.Args))
	case TagOr:
		if neg {
			return e.fireAnd(entry, &Vertex{Args: negateAll(v.Args)})
		}
		return e.fireOr(entry, v.Args)
	case TagExists:
		if neg {
			return e.fireForall(entry, v.RoleArg, v.Args[0].Inverse())
		}
		return e.fireExists(entry, v.RoleArg, v.Args[0])
	case TagForall:
		if neg {
			return e.fireExists(entry, v.RoleArg, v.Args[0].Inverse())
		}
		return e.fireForall(entry, v.RoleArg, v.Args[0])
	case TagGE:
		if neg {
			return e.fireAtMost(entry, v.N-1, v.RoleArg, v.Args[0])
		}
		return e.fireAtLeast(entry, v.N, v.RoleArg, v.Args[0])
	case TagLE:
		if neg {
			return e.fireAtLeast(entry, v.N+1, v.RoleArg, v.Args[0])
		}
		return e.fireAtMost(entry, v.N, v.RoleArg, v.Args[0])
	case TagNominal:
		return e.fireNominal(entry, v, neg)
	case TagDatatype:
		return e.fireDatatype(entry, v)
	default:
		return false, invariantf("unhandled vertex tag %v", v.Tag)
	}
}

func negateAll(args []BP) []BP {
	out := make([]BP, len(args))
	for i, a := range args {
		out[i] = a.Inverse()
	}
	return out
}

func (e *Engine) clash(dep DepSet) {
	e.lastClash = dep
	e.stats.Clashes++
	logClash(e.log, dep)
}

// addConceptWithRule adds entry to node's label via the completion
// graph, enqueues it for rule application if new, and records a clash
// through e.clash if one results. It is the single choke point every
// rule method funnels label additions through, so "register any new
// used-bp" and the to-do queue's priority ordering stay centralized.
func (e *Engine) addConceptWithRule(node NodeID, entry LabelEntry) (AddResult, DepSet) {
	tag := TagTop
	if v := e.dag.Lookup(entry.BP); v != nil {
		tag = v.Tag
	}
	res, clashDep := e.graph.AddConcept(e.dag, node, entry, tag)
	switch res {
	case Added:
		e.invalidateNodeCache(node)
		e.todo.Offer(tag, TodoEntry{Node: node, BP: entry.BP, Dep: entry.Dep, Level: e.graph.CurrentLevel()})
		if releases := e.blocking.OnLabelChanged(node); len(releases) > 0 {
			for _, r := range releases {
				e.todo.Requeue(e.tagOf(r.BP), r)
			}
		}
	case ClashDetected:
		e.clash(clashDep)
	}
	return res, clashDep
}

func (e *Engine) tagOf(bp BP) VertexTag {
	if v := e.dag.Lookup(bp); v != nil {
		return v.Tag
	}
	return TagTop
}

// fireCName unfolds a named concept via its registered definition, if
// any; an undefined primitive concept has nothing further to expand.
func (e *Engine) fireCName(entry TodoEntry, v *Vertex, neg bool) (bool, error) {
	def, ok := e.defs.Definition(v.Name)
	if !ok {
		return true, nil
	}
	target := def
	if neg {
		target = def.Inverse()
	}
	res, _ := e.addConceptWithRule(entry.Node, LabelEntry{BP: target, Dep: entry.Dep})
	return res != ClashDetected, nil
}

// fireAnd adds every conjunct as its own to-do entry with the parent's
// DepSet (4.I: "Add every conjunct as a separate to-do entry").
func (e *Engine) fireAnd(entry TodoEntry, v *Vertex) (bool, error) {
	for _, a := range v.Args {
		if res, _ := e.addConceptWithRule(entry.Node, LabelEntry{BP: a, Dep: entry.Dep}); res == ClashDetected {
			return false, nil
		}
	}
	return true, nil
}

// fireOr pushes a branching context over disjuncts and tries the first
// option, applying the accumulated semantic-branching negations
// alongside it.
func (e *Engine) fireOr(entry TodoEntry, disjuncts []BP) (bool, error) {
	opts := make([]BranchOption, len(disjuncts))
	for i, d := range disjuncts {
		opts[i] = BranchOption{Concept: d}
	}
	bc := e.branch.Push(RuleDisjunction, entry.Node, entry.BP, opts, entry.Dep)
	logBranchPush(e.log, RuleDisjunction, entry.Node, bc.Level, len(opts))
	return e.tryCurrentOption(bc)
}

// tryCurrentOption asserts bc's current option (and its accumulated
// semantic negations) on bc.Node, advancing bc and retrying on an
// immediate clash until the stack itself gives up.
func (e *Engine) tryCurrentOption(bc *BranchContext) (bool, error) {
	for {
		opt, dep, ok := bc.CurrentOption()
		if !ok {
			e.clash(bc.BranchDep)
			return false, nil
		}
		clashed := false
		for _, neg := range bc.SemanticNegations() {
			if res, _ := e.addConceptWithRule(bc.Node, LabelEntry{BP: neg, Dep: dep}); res == ClashDetected {
				clashed = true
				break
			}
		}
		if !clashed {
			if res, _ := e.addConceptWithRule(bc.Node, LabelEntry{BP: opt.Concept, Dep: dep}); res == ClashDetected {
				clashed = true
			}
		}
		if !clashed {
			return true, nil
		}
		if !bc.Advance() {
			e.clash(bc.BranchDep)
			return false, nil
		}
	}
}

// fireExists implements the ∃R.C rule. Three fallback steps, cheapest
// first: (1) an existing R-successor's label already literally contains
// C, nothing to do; (2) the model cache says an existing R-successor's
// witness can absorb C without re-deriving its satisfiability, so C is
// added to that successor instead of growing the graph; (3) no
// existing successor qualifies, so a fresh one is created and, once it
// survives its own immediate assertions, its witness is cached against
// C for a later firing (here or elsewhere in the graph) to reuse.
func (e *Engine) fireExists(entry TodoEntry, role RoleID, filler BP) (bool, error) {
	successors := e.graph.Successors(e.rh, entry.Node, role)
	for _, s := range successors {
		if e.hasConceptCached(s.To, filler) {
			return true, nil
		}
	}
	if e.cfg.UseCache {
		if sat, handled := e.reuseViaModelCache(successors, filler, entry.Dep); handled {
			return sat, nil
		}
	}
	succ := e.graph.NewNode(e.rh, entry.Node, role, entry.Dep)
	e.stats.NodesCreated++
	if e.rh.IsReflexive(role) {
		e.graph.AddEdge(e.rh, succ, succ, role, entry.Dep)
	}
	if res, clashDep := e.addConceptWithRule(succ, LabelEntry{BP: filler, Dep: entry.Dep}); res == ClashDetected {
		e.clash(clashDep)
		return false, nil
	}
	if ok, _ := e.assertGlobalAxiom(succ, entry.Dep); !ok {
		return false, nil
	}
	if !e.propagateForallToNewSuccessor(entry.Node, succ, role, entry.Dep) {
		return false, nil
	}
	if e.cfg.UseCache {
		e.cacheWitness(succ, filler)
	}
	return true, nil
}

// hasConceptCached reports whether node's label already contains bp,
// consulting the simple label list first (the cheap common case). This
// is a literal label scan, not a model cache lookup — see
// reuseViaModelCache for the cache-backed reuse path.
func (e *Engine) hasConceptCached(node NodeID, bp BP) bool {
	n := e.graph.Node(node)
	for _, le := range n.AllLabel() {
		if le.BP == bp {
			return true
		}
	}
	return false
}

// reuseViaModelCache consults filler's cached witness model (from some
// earlier successor anywhere in this run that proved filler
// satisfiable) against every existing R-successor's own model cache. If
// one can merge with it, filler is sound to add to that successor's
// label directly, so the ∃-rule is discharged without creating a new
// node. handled reports whether the cache was consulted at all (false
// when filler has no cached witness yet, or none of the successors
// merge with it), telling the caller whether to fall through to
// ordinary successor creation.
func (e *Engine) reuseViaModelCache(successors []Edge, filler BP, dep DepSet) (sat bool, handled bool) {
	fillerMC := e.dag.CachedModel(filler)
	if fillerMC == nil || fillerMC.State == CacheInvalid {
		e.stats.CacheMisses++
		logCacheResult(e.log, false, filler)
		return false, false
	}
	for _, s := range successors {
		succMC := e.nodeModelCache(s.To)
		if succMC == nil || !CanMerge(succMC, fillerMC) {
			continue
		}
		e.stats.CacheHits++
		logCacheResult(e.log, true, filler)
		if res, clashDep := e.addConceptWithRule(s.To, LabelEntry{BP: filler, Dep: dep}); res == ClashDetected {
			e.clash(clashDep)
			return false, true
		}
		return true, true
	}
	e.stats.CacheMisses++
	logCacheResult(e.log, false, filler)
	return false, false
}

// cacheWitness snapshots succ's model, once it has survived its
// immediate label/axiom/∀-propagation assertions, and attaches it to
// filler's bp in the DAG so a later ∃role.filler firing — at a
// different parent node, possibly over a different role — can reuse it
// via reuseViaModelCache instead of re-deriving filler's satisfiability.
func (e *Engine) cacheWitness(succ NodeID, filler BP) {
	mc := e.nodeModelCache(succ)
	if mc == nil {
		return
	}
	e.dag.SetCachedModel(filler, mc)
}

// nodeModelCache returns the model cache built from node's current
// label and role usage, building and memoizing it lazily the first
// time it's consulted in this round; addConceptWithRule, and
// tryMergeOption/fireNominal after a successful CompletionGraph.Merge,
// invalidate the memo whenever node's label changes, so a stale
// snapshot is never reused across a label change.
func (e *Engine) nodeModelCache(node NodeID) *ModelCache {
	if mc, ok := e.nodeCache[node]; ok {
		return mc
	}
	mc := e.buildModelCache(node)
	e.nodeCache[node] = mc
	e.graph.Node(node).cacheFlag = true
	return mc
}

// invalidateNodeCache drops node's memoized model cache, if any.
func (e *Engine) invalidateNodeCache(node NodeID) {
	delete(e.nodeCache, node)
	if n := e.graph.Node(node); n != nil {
		n.cacheFlag = false
	}
}

// buildModelCache walks node's current label and outgoing edges into a
// fresh ModelCache, splitting concepts by IsAtomic the same way
// modelCacheIan does (named/nominal/⊤ atomic, everything else defined).
func (e *Engine) buildModelCache(node NodeID) *ModelCache {
	mc := NewModelCache()
	n := e.graph.Node(node)
	for _, le := range n.AllLabel() {
		atomic := true
		if v := e.dag.Lookup(le.BP); v != nil {
			atomic = v.IsAtomic()
		}
		mc.AddConcept(le.BP, atomic)
	}
	for _, out := range n.out {
		mc.AddRoleUsage(out.Role, true, false, e.rh.IsFunctional(out.Role))
	}
	if n.IsNominal {
		mc.SetHasNominals()
	}
	mc.Seal(false)
	return mc
}

// propagateForallToNewSuccessor re-applies every ∀-restriction already
// present in from's label to a successor edge just created along role,
// implementing 4.I's "the rule re-fires on new edges" for the case
// where the ∀-entry was dequeued and satisfied before this edge existed.
// When the ∀-role is transitive the restriction itself is copied onto
// the new successor too, so it keeps reaching nodes further down.
func (e *Engine) propagateForallToNewSuccessor(from, to NodeID, role RoleID, edgeDep DepSet) bool {
	for _, le := range e.graph.Node(from).ComplexLabel() {
		v := e.dag.Lookup(le.BP)
		if v == nil {
			continue
		}
		var forallRole RoleID
		var filler BP
		switch {
		case v.Tag == TagForall && !le.BP.IsNegated():
			forallRole, filler = v.RoleArg, v.Args[0]
		case v.Tag == TagExists && le.BP.IsNegated():
			forallRole, filler = v.RoleArg, v.Args[0].Inverse()
		default:
			continue
		}
		if !e.rh.IsSubRoleOf(role, forallRole) {
			continue
		}
		if res, clashDep := e.addConceptWithRule(to, LabelEntry{BP: filler, Dep: edgeDep.Union(le.Dep)}); res == ClashDetected {
			e.clash(clashDep)
			return false
		}
		if e.rh.IsTransitive(forallRole) {
			if res, clashDep := e.addConceptWithRule(to, LabelEntry{BP: le.BP, Dep: edgeDep.Union(le.Dep)}); res == ClashDetected {
				e.clash(clashDep)
				return false
			}
		}
	}
	return true
}

// fireForall implements ∀R.C: propagate C (with the edge's DepSet
// unioned in) to every current R-successor along plain sub-role edges,
// together with ∀R.C itself when R is transitive, and additionally
// through the role automaton if role is the target of any complex
// inclusion.
func (e *Engine) fireForall(entry TodoEntry, role RoleID, filler BP) (bool, error) {
	for _, s := range e.graph.Successors(e.rh, entry.Node, role) {
		dep := entry.Dep.Union(s.Dep)
		if res, clashDep := e.addConceptWithRule(s.To, LabelEntry{BP: filler, Dep: dep}); res == ClashDetected {
			e.clash(clashDep)
			return false, nil
		}
		if e.rh.IsTransitive(role) {
			if res, clashDep := e.addConceptWithRule(s.To, LabelEntry{BP: entry.BP, Dep: dep}); res == ClashDetected {
				e.clash(clashDep)
				return false, nil
			}
		}
	}
	if auto := e.rh.Automaton(role); auto != nil {
		if !e.propagateViaAutomaton(entry, auto, role, filler) {
			return false, nil
		}
	}
	return true, nil
}

// propagateViaAutomaton walks every outgoing edge from entry.Node whose
// role steps the automaton forward (directly or through a sub-role),
// asserting filler at any successor reached through a final state.
func (e *Engine) propagateViaAutomaton(entry TodoEntry, auto *RoleAutomaton, _ RoleID, filler BP) bool {
	type frame struct {
		node  NodeID
		state int
		dep   DepSet
	}
	stack := []frame{{entry.Node, auto.Start(), entry.Dep}}
	seen := make(map[NodeID]map[int]bool)
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[f.node] == nil {
			seen[f.node] = make(map[int]bool)
		}
		if seen[f.node][f.state] {
			continue
		}
		seen[f.node][f.state] = true

		if auto.IsFinal(f.state) && f.node != entry.Node {
			if res, clashDep := e.addConceptWithRule(f.node, LabelEntry{BP: filler, Dep: f.dep}); res == ClashDetected {
				e.clash(clashDep)
				return false
			}
		}
		for _, out := range e.graph.Node(f.node).out {
			for _, next := range auto.StepRoleHierarchy(e.rh, f.state, out.Role) {
				stack = append(stack, frame{out.To, next, f.dep.Union(out.Dep)})
			}
		}
	}
	return true
}

// fireAtLeast implements ≥n R.C: create n fresh, pairwise-distinct
// R-successors each labelled {C}.
func (e *Engine) fireAtLeast(entry TodoEntry, n uint32, role RoleID, filler BP) (bool, error) {
	existing := e.graph.Successors(e.rh, entry.Node, role)
	satisfying := 0
	for _, s := range existing {
		if e.hasConceptCached(s.To, filler) {
			satisfying++
		}
	}
	need := int(n) - satisfying
	if need <= 0 {
		return true, nil
	}
	fresh := make([]NodeID, 0, need)
	for i := 0; i < need; i++ {
		succ := e.graph.NewNode(e.rh, entry.Node, role, entry.Dep)
		e.stats.NodesCreated++
		if res, clashDep := e.addConceptWithRule(succ, LabelEntry{BP: filler, Dep: entry.Dep}); res == ClashDetected {
			e.clash(clashDep)
			return false, nil
		}
		if ok, _ := e.assertGlobalAxiom(succ, entry.Dep); !ok {
			return false, nil
		}
		if !e.propagateForallToNewSuccessor(entry.Node, succ, role, entry.Dep) {
			return false, nil
		}
		fresh = append(fresh, succ)
	}
	e.markPairwiseDistinct(fresh)
	if e.rh.IsFunctional(role) && n+uint32(satisfying) > 1 {
		e.clash(entry.Dep)
		return false, nil
	}
	return true, nil
}

func (e *Engine) markPairwiseDistinct(nodes []NodeID) {
	for i := range nodes {
		if e.distinct[nodes[i]] == nil {
			e.distinct[nodes[i]] = make(map[NodeID]bool)
		}
		for j := range nodes {
			if i != j {
				e.distinct[nodes[i]][nodes[j]] = true
			}
		}
	}
}

// fireAtMost implements ≤n R.C: if more than n R-successors satisfy C,
// non-deterministically merge a pair, offering every candidate pair as
// a branch option (4.I). Candidate pairs the model cache already knows
// can't coexist are pruned from the option list up front, the same way
// the ≥-rule's own pairwise-distinctness table is, so the branch stack
// never has to push, try, and backtrack out of a merge the cache could
// have ruled out for free.
func (e *Engine) fireAtMost(entry TodoEntry, n uint32, role RoleID, filler BP) (bool, error) {
	var satisfying []NodeID
	for _, s := range e.graph.Successors(e.rh, entry.Node, role) {
		if e.hasConceptCached(s.To, filler) {
			satisfying = append(satisfying, s.To)
		}
	}
	if uint32(len(satisfying)) <= n {
		return true, nil
	}
	var opts []BranchOption
	for i := 0; i < len(satisfying); i++ {
		for j := i + 1; j < len(satisfying); j++ {
			a, b := satisfying[i], satisfying[j]
			if e.distinct[a][b] {
				continue // pairwise-distinctness from a ≥-rule forbids merging this pair
			}
			if e.cfg.UseCache && !CanMerge(e.nodeModelCache(a), e.nodeModelCache(b)) {
				e.stats.CacheHits++
				logCacheResult(e.log, true, filler)
				continue // model cache already knows this pair clashes
			}
			opts = append(opts, BranchOption{NodeA: a, NodeB: b})
		}
	}
	if len(opts) == 0 {
		e.clash(entry.Dep)
		return false, nil
	}
	bc := e.branch.Push(RuleLEMerge, entry.Node, entry.BP, opts, entry.Dep)
	logBranchPush(e.log, RuleLEMerge, entry.Node, bc.Level, len(opts))
	return e.tryMergeOption(bc)
}

func (e *Engine) tryMergeOption(bc *BranchContext) (bool, error) {
	for {
		opt, dep, ok := bc.CurrentOption()
		if !ok {
			e.clash(bc.BranchDep)
			return false, nil
		}
		na, nb := e.graph.Node(opt.NodeA), e.graph.Node(opt.NodeB)
		if na.IsNominal && nb.IsNominal && na.Individual != nb.Individual && e.isExplicitlyDistinct(na.Individual, nb.Individual) {
			e.clash(dep)
			if !bc.Advance() {
				return false, nil
			}
			continue
		}
		res, clashDep := e.graph.Merge(e.dag, e.rh, opt.NodeA, opt.NodeB, dep)
		if res != ClashDetected {
			e.invalidateNodeCache(opt.NodeA)
			e.invalidateNodeCache(opt.NodeB)
			return true, nil
		}
		e.clash(clashDep)
		if !bc.Advance() {
			return false, nil
		}
	}
}

// fireNominal merges this node's containing node with any other node
// already representing the same individual — the only sound way two
// {a}-labelled nodes can coexist.
func (e *Engine) fireNominal(entry TodoEntry, v *Vertex, neg bool) (bool, error) {
	if neg {
		return true, nil // ¬{a} on a node just means "is not a"; nothing to expand
	}
	n := e.graph.Node(entry.Node)
	if n.IsNominal && n.Individual != v.Individual && e.isExplicitlyDistinct(n.Individual, v.Individual) {
		e.clash(entry.Dep)
		return false, nil
	}
	n.IsNominal = true
	n.Individual = v.Individual

	if other, ok := e.nodeNominal[v.Individual]; ok && other != entry.Node {
		res, clashDep := e.graph.Merge(e.dag, e.rh, other, entry.Node, entry.Dep)
		if res == ClashDetected {
			e.clash(clashDep)
			return false, nil
		}
		e.invalidateNodeCache(other)
		e.invalidateNodeCache(entry.Node)
		return true, nil
	}
	e.nodeNominal[v.Individual] = entry.Node
	return true, nil
}

// fireDatatype offloads to the pluggable datatype reasoner.
func (e *Engine) fireDatatype(entry TodoEntry, v *Vertex) (bool, error) {
	if e.data == nil {
		e.clash(entry.Dep)
		return false, nil
	}
	ok, clashDep := e.data.Check(v.Datatype, entry.Dep)
	if !ok {
		e.clash(clashDep)
		return false, nil
	}
	return true, nil
}

// ApplyChoose implements the choose-rule: for concept's registered
// split, non-deterministically add one disjoint renaming to node's
// label. Unlike the other rules this one has no to-do tag of its own,
// since a split is a property of a concept's definition, not a distinct
// DAG vertex shape; fire never dispatches to it and nothing in the
// engine's main loop calls it.
func (e *Engine) ApplyChoose(node NodeID, concept BP, dep DepSet) (bool, error) {
	renamings, ok := e.defs.SplitOf(concept)
	if !ok {
		return true, nil
	}
	opts := make([]BranchOption, len(renamings))
	for i, r := range renamings {
		opts[i] = BranchOption{Concept: r}
	}
	bc := e.branch.Push(RuleChoose, node, concept, opts, dep)
	logBranchPush(e.log, RuleChoose, node, bc.Level, len(opts))
	return e.tryCurrentOption(bc)
}

// ApplyNN implements the NN-rule for inverse-functional interactions
// between ≤ and ≥ crossing a nominal: it offers every successor count in
// [lo, hi] as a branch option, used when a node's ≤ and ≥ restrictions
// on the same role disagree in the presence of a nominal successor.
func (e *Engine) ApplyNN(node NodeID, role RoleID, lo, hi uint32, dep DepSet) (bool, error) {
	if lo > hi {
		e.clash(dep)
		return false, nil
	}
	opts := make([]BranchOption, 0, hi-lo+1)
	for c := lo; c <= hi; c++ {
		opts = append(opts, BranchOption{Count: int(c), Role: role})
	}
	bc := e.branch.Push(RuleNN, node, BP(role), opts, dep)
	logBranchPush(e.log, RuleNN, node, bc.Level, len(opts))
	return e.tryNNOption(bc)
}

// tryNNOption asserts bc's current successor-count option by creating
// that many fresh, pairwise-distinct role-successors at bc.Node,
// advancing on clash exactly like tryCurrentOption/tryMergeOption do for
// their own option shapes.
func (e *Engine) tryNNOption(bc *BranchContext) (bool, error) {
	for {
		opt, dep, ok := bc.CurrentOption()
		if !ok {
			e.clash(bc.BranchDep)
			return false, nil
		}
		clashed := false
		fresh := make([]NodeID, 0, opt.Count)
		for i := 0; i < opt.Count; i++ {
			succ := e.graph.NewNode(e.rh, bc.Node, opt.Role, dep)
			e.stats.NodesCreated++
			if ok, _ := e.assertGlobalAxiom(succ, dep); !ok {
				clashed = true
				break
			}
			if !e.propagateForallToNewSuccessor(bc.Node, succ, opt.Role, dep) {
				clashed = true
				break
			}
			fresh = append(fresh, succ)
		}
		if !clashed {
			e.markPairwiseDistinct(fresh)
			return true, nil
		}
		if !bc.Advance() {
			e.clash(bc.BranchDep)
			return false, nil
		}
	}
}

func (e *Engine) String() string {
	return fmt.Sprintf("Engine{nodes=%d, firings=%d, clashes=%d}", e.graph.NodeCount(), e.stats.RuleFirings, e.stats.Clashes)
}
