package tableau

// RuleKind identifies which non-deterministic rule pushed a branching
// context, so BranchStack.Advance knows how to generate the next
// option without the engine having to remember separately.
type RuleKind uint8

const (
	RuleDisjunction RuleKind = iota
	RuleLEMerge
	RuleNN
	RuleChoose
	RuleSplit
)

// BranchOption is one alternative a branching context can try. For a
// disjunction it is a disjunct's BP; for ≤-merge it is a pair of nodes
// to identify; the engine's rule-specific Try callback interprets
// whichever fields its RuleKind populates.
type BranchOption struct {
	Concept BP
	NodeA, NodeB NodeID
	Count   int    // used by the NN-rule's successor-count options
	Role    RoleID // role the NN-rule's successor count applies to
}

// BranchContext is the record saved when a non-deterministic rule
// fires: which rule, which node/concept it's branching on, the options
// remaining to try, and the DepSet that justifies having branched here
// at all (the union of the DepSets of the premises that produced this
// choice point).
type BranchContext struct {
	Level   uint32
	Kind    RuleKind
	Node    NodeID
	Concept BP

	Options []BranchOption
	next    int // index of the next untried option

	// BranchDep is the "reason" for the branch: the union of DepSets
	// that led here, used as the base every option's own DepSet extends
	// with {Level}.
	BranchDep DepSet

	// triedNegations accumulates ¬optionᵢ label entries added by
	// semantic branching for options already tried, so the engine's
	// tryCurrentOption can add them again (via SemanticNegations) after
	// a restore rewinds the graph.
	triedNegations []BP
}

// CurrentOption returns the option BranchContext.next currently points
// at, and the DepSet to use for it (BranchDep ∪ {Level}).
func (bc *BranchContext) CurrentOption() (BranchOption, DepSet, bool) {
	if bc.next >= len(bc.Options) {
		return BranchOption{}, DepSet{}, false
	}
	return bc.Options[bc.next], bc.BranchDep.Insert(bc.Level), true
}

// Advance moves to the next option, recording the just-tried option's
// concept as a semantic-branching negation so SemanticNegations can
// replay it. Returns false if no options remain.
func (bc *BranchContext) Advance() bool {
	if bc.next < len(bc.Options) {
		if c := bc.Options[bc.next].Concept; c != 0 {
			bc.triedNegations = append(bc.triedNegations, c.Inverse())
		}
	}
	bc.next++
	return bc.next < len(bc.Options)
}

// SemanticNegations returns ¬d for every disjunct tried and falsified
// before the current option, to be asserted alongside it (4.F's
// semantic branching: "prevents reconsidering falsified disjuncts").
func (bc *BranchContext) SemanticNegations() []BP {
	return bc.triedNegations
}

// clashSignal is the internal control-flow value a rule-application
// function returns instead of an error when it finds a clash; modelled
// as a plain return value per DESIGN NOTES ("Retry and recovery
// semantics... model as a distinguished control flow... so that cold
// paths stay cheap").
type clashSignal struct {
	Dep DepSet
}

func (c clashSignal) isClash() bool { return true }

var noClash = clashSignal{}

// BranchStack is the per-session stack of BranchContexts together with
// the save/restore calls on the graph, queue, and used-bp markers that
// must happen in lockstep with every push/pop.
type BranchStack struct {
	stack []*BranchContext
	graph *CompletionGraph
	todo  *TodoQueue
}

// NewBranchStack returns an empty stack bound to graph and todo, whose
// Save/Restore calls it drives.
func NewBranchStack(graph *CompletionGraph, todo *TodoQueue) *BranchStack {
	return &BranchStack{graph: graph, todo: todo}
}

// Push saves graph and queue state, creates a new BranchContext at the
// freshly allocated level, and returns it so the caller can set its
// Kind/Node/Concept/Options/BranchDep fields before trying option 0.
func (s *BranchStack) Push(kind RuleKind, node NodeID, concept BP, options []BranchOption, branchDep DepSet) *BranchContext {
	glevel := s.graph.Save()
	s.todo.Save()
	bc := &BranchContext{Level: glevel, Kind: kind, Node: node, Concept: concept, Options: options, BranchDep: branchDep}
	s.stack = append(s.stack, bc)
	return bc
}

// Top returns the innermost branching context, or nil if the stack is
// empty.
func (s *BranchStack) Top() *BranchContext {
	if len(s.stack) == 0 {
		return nil
	}
	return s.stack[len(s.stack)-1]
}

// Depth returns the number of active branching contexts.
func (s *BranchStack) Depth() int { return len(s.stack) }

// CurrentLevel is the graph's current branching level, i.e. the level
// of the innermost pushed context (0 if the stack is empty).
func (s *BranchStack) CurrentLevel() uint32 { return s.graph.CurrentLevel() }

// Backtrack implements the clash-handling half of 4.F: given the clash
// set K found at the current level, it decides whether to backjump
// past intervening levels or advance the innermost context to its next
// option. It returns the DepSet the caller should propagate to the
// next iteration of its clash-handling loop, and whether any branching
// context is left to resume at all (false means the whole session is
// unsatisfiable: no branch choice anywhere can avoid this clash).
func (s *BranchStack) Backtrack(clashDep DepSet) (nextClashDep DepSet, resumed bool) {
	for {
		if len(s.stack) == 0 {
			return clashDep, false
		}
		top := s.stack[len(s.stack)-1]
		cur := s.graph.CurrentLevel()
		maxK := clashDep.MaxLevel()

		if maxK < cur {
			// Backjump: this level's choice was irrelevant to the
			// clash: pop it without trying another option and restore
			// straight to maxK, then let the level we land on (if any)
			// re-examine the same clash set.
			s.graph.Restore(maxK)
			s.todo.Restore(maxK)
			s.stack = s.stack[:len(s.stack)-1]
			continue
		}

		// The clash depends on this level's choice: restore to it (undo
		// just this option's consequences) and try the next option.
		s.graph.Restore(top.Level - 1)
		s.todo.Restore(top.Level - 1)
		if top.Advance() {
			// Re-establish the branching level for the new option.
			glevel := s.graph.Save()
			s.todo.Save()
			top.Level = glevel
			return clashDep, true
		}
		// No options left at this level: the clash set handed to the
		// level below no longer depends on this level.
		s.stack = s.stack[:len(s.stack)-1]
		clashDep = clashDep.Remove(maxK)
	}
}

// PopAll restores the graph and queue all the way back to level 0 and
// discards every branching context; used for the top-level cleanup
// when a session call finishes (success, cancellation, or exhaustion).
func (s *BranchStack) PopAll() {
	s.graph.Restore(0)
	s.todo.Restore(0)
	s.stack = nil
}
