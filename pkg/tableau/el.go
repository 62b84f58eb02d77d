package tableau

// ELRule is a compiled EL-fragment axiom, attached to the concept whose
// extension triggers it. Rules are a closed set of shapes dispatched
// through this interface rather than a switch, unlike the DAG's Vertex:
// there are only three shapes here, each with a genuinely distinct
// firing signature, so a tiny interface reads better than a tagged
// struct with three sets of usually-unused fields.
type ELRule interface {
	// fire runs the rule for context c, having just gained newSuper in
	// its S-set.
	fire(sat *ELSaturator, c ConceptID, newSuper ConceptID)
}

// CSubRule implements C ⊑ D: attached to C, it adds D to any context
// that gains C.
type CSubRule struct{ Super ConceptID }

func (r CSubRule) fire(sat *ELSaturator, c ConceptID, _ ConceptID) {
	sat.addSuper(c, r.Super)
}

// CAndSubRule implements C₁ ⊓ C₂ ⊑ D: attached to C₁, it checks whether
// C₂ is already in the context's S-set and, if so, adds D; the
// symmetric rule attached to C₂ (checking for C₁) is registered
// alongside it so either order of arrival fires the conjunction.
type CAndSubRule struct {
	Other  ConceptID
	Result ConceptID
}

func (r CAndSubRule) fire(sat *ELSaturator, c ConceptID, _ ConceptID) {
	if sat.hasSuper(c, r.Other) {
		sat.addSuper(c, r.Result)
	}
}

// CExistSubRule implements D ⊑ ∃R.B: attached to D, it links c to a
// fresh (or shared) filler context over R whenever c gains D.
type CExistSubRule struct {
	Role   RoleID
	Filler ConceptID
}

func (r CExistSubRule) fire(sat *ELSaturator, c ConceptID, _ ConceptID) {
	sat.addLink(c, r.Role, r.Filler)
}

// elContext is the per-concept saturation state: its accumulated
// superclasses and, per role, its forward links (successors) and
// backward links (predecessors) — the shape Saturate needs to run both
// the forward (CR3/CR10/CR11) and backward (CR4) completion rules
// without re-scanning the whole axiom store on every firing.
type elContext struct {
	supers   map[ConceptID]bool
	links    map[RoleID][]ConceptID
	predsOf  map[RoleID][]ConceptID
}

// ELSaturator runs the forward-chaining EL completion algorithm (4.J)
// to a fixpoint. It is built once per classification run over a
// SymbolTable's full concept/role range and is not reused across runs:
// callers that reclassify after an axiom change construct a fresh one.
type ELSaturator struct {
	st *SymbolTable
	rh *RoleHierarchy

	rules      map[ConceptID][]ELRule
	existLeft  map[RoleID]map[ConceptID][]ConceptID // role -> filler concept -> supers to add on link
	roleChains map[RoleID]map[RoleID][]RoleID        // R1 -> R2 -> S for R1∘R2 ⊑ S

	contexts []elContext

	conceptQueue []conceptWork
	linkQueue    []linkWork
}

type conceptWork struct {
	ctx ConceptID
	sup ConceptID
}

type linkWork struct {
	from ConceptID
	role RoleID
	to   ConceptID
}

// NewELSaturator returns a saturator with empty rule tables, sized for
// st's current concept/role counts.
func NewELSaturator(st *SymbolTable, rh *RoleHierarchy) *ELSaturator {
	return &ELSaturator{
		st: st, rh: rh,
		rules:      make(map[ConceptID][]ELRule),
		existLeft:  make(map[RoleID]map[ConceptID][]ConceptID),
		roleChains: make(map[RoleID]map[RoleID][]RoleID),
	}
}

// AddSubsumption compiles C ⊑ D into a CSubRule attached to C.
func (s *ELSaturator) AddSubsumption(c, d ConceptID) {
	s.rules[c] = append(s.rules[c], CSubRule{Super: d})
}

// AddConjunction compiles C₁ ⊓ C₂ ⊑ D into a symmetric pair of
// CAndSubRules, one attached to each conjunct.
func (s *ELSaturator) AddConjunction(c1, c2, d ConceptID) {
	s.rules[c1] = append(s.rules[c1], CAndSubRule{Other: c2, Result: d})
	s.rules[c2] = append(s.rules[c2], CAndSubRule{Other: c1, Result: d})
}

// AddExistSub compiles D ⊑ ∃R.B into a CExistSubRule attached to D.
func (s *ELSaturator) AddExistSub(d ConceptID, role RoleID, filler ConceptID) {
	s.rules[d] = append(s.rules[d], CExistSubRule{Role: role, Filler: filler})
}

// AddExistLeft compiles ∃R.C ⊑ D. Unlike the other three axiom shapes
// this one isn't triggered by a single concept gaining a super — it
// fires on the (role, filler-concept) pair — so it is indexed directly
// rather than wrapped as an ELRule.
func (s *ELSaturator) AddExistLeft(role RoleID, filler, super ConceptID) {
	byFiller, ok := s.existLeft[role]
	if !ok {
		byFiller = make(map[ConceptID][]ConceptID)
		s.existLeft[role] = byFiller
	}
	byFiller[filler] = append(byFiller[filler], super)
}

// AddRoleChain compiles R1∘R2 ⊑ S.
func (s *ELSaturator) AddRoleChain(r1, r2, super RoleID) {
	byR2, ok := s.roleChains[r1]
	if !ok {
		byR2 = make(map[RoleID][]RoleID)
		s.roleChains[r1] = byR2
	}
	byR2[r2] = append(byR2[r2], super)
}

// Run saturates every concept's S-set and R-relation to a fixpoint and
// returns the resulting per-concept contexts, indexed by ConceptID.
// Top and Bottom concepts must already be interned in st (Session
// guarantees this at load time, mirroring how the DAG reserves TopBP).
func (s *ELSaturator) Run(top, bottom ConceptID) []elContext {
	n := s.st.ConceptCount()
	s.contexts = make([]elContext, n)
	for c := 0; c < n; c++ {
		s.contexts[c] = elContext{
			supers:  make(map[ConceptID]bool, 8),
			links:   make(map[RoleID][]ConceptID),
			predsOf: make(map[RoleID][]ConceptID),
		}
	}

	for c := ConceptID(0); c < ConceptID(n); c++ {
		s.addSuper(c, c)
		s.addSuper(c, top)
	}

	for len(s.conceptQueue) > 0 || len(s.linkQueue) > 0 {
		for len(s.conceptQueue) > 0 {
			w := s.conceptQueue[len(s.conceptQueue)-1]
			s.conceptQueue = s.conceptQueue[:len(s.conceptQueue)-1]
			s.processConceptWork(w, bottom)
		}
		for len(s.linkQueue) > 0 {
			w := s.linkQueue[len(s.linkQueue)-1]
			s.linkQueue = s.linkQueue[:len(s.linkQueue)-1]
			s.processLinkWork(w, bottom)
		}
	}
	return s.contexts
}

// addSuper adds sup to c's S-set if new, firing every rule attached to
// sup and enqueuing the propagation the way CR1-family rules require.
func (s *ELSaturator) addSuper(c, sup ConceptID) {
	if s.contexts[c].supers[sup] {
		return
	}
	s.contexts[c].supers[sup] = true
	s.conceptQueue = append(s.conceptQueue, conceptWork{ctx: c, sup: sup})
}

func (s *ELSaturator) hasSuper(c, sup ConceptID) bool { return s.contexts[c].supers[sup] }

// addLink records (from, to) ∈ R(role), returning whether it was new.
func (s *ELSaturator) addLink(from ConceptID, role RoleID, to ConceptID) bool {
	for _, existing := range s.contexts[from].links[role] {
		if existing == to {
			return false
		}
	}
	s.contexts[from].links[role] = append(s.contexts[from].links[role], to)
	s.contexts[to].predsOf[role] = append(s.contexts[to].predsOf[role], from)
	s.linkQueue = append(s.linkQueue, linkWork{from: from, role: role, to: to})
	return true
}

// processConceptWork fires every rule attached to the just-added
// superclass (CR1-CR3), then the backward existLeft check for
// predecessors that were already linked before this super arrived (the
// "either order" half of CR4).
func (s *ELSaturator) processConceptWork(w conceptWork, bottom ConceptID) {
	for _, r := range s.rules[w.sup] {
		r.fire(s, w.ctx, w.sup)
	}
	for role, byFiller := range s.existLeft {
		sups, ok := byFiller[w.sup]
		if !ok {
			continue
		}
		for _, pred := range s.contexts[w.ctx].predsOf[role] {
			for _, sup := range sups {
				s.addSuper(pred, sup)
			}
		}
	}
	if w.sup == bottom {
		for role := range s.contexts[w.ctx].predsOf {
			for _, pred := range s.contexts[w.ctx].predsOf[role] {
				s.addSuper(pred, bottom)
			}
		}
	}
}

// processLinkWork fires the completion rules triggered by a fresh
// (from, role, to) link: the forward half of CR4 (does any concept
// already in to's S-set complete an existLeft rule), role subsumption
// (CR10, delegated to the role hierarchy's closure rather than a
// separate table, since RoleHierarchy already computes it), bottom
// propagation across the link, and role composition (CR11).
func (s *ELSaturator) processLinkWork(w linkWork, bottom ConceptID) {
	if byFiller, ok := s.existLeft[w.role]; ok {
		for sup := range s.contexts[w.to].supers {
			for _, e := range byFiller[sup] {
				s.addSuper(w.from, e)
			}
		}
	}
	if s.contexts[w.to].supers[bottom] {
		s.addSuper(w.from, bottom)
	}

	nr := s.st.RoleCount()
	for sup := RoleID(0); sup < RoleID(nr); sup++ {
		if sup != w.role && s.rh.IsSubRoleOf(w.role, sup) {
			s.addLink(w.from, sup, w.to)
		}
	}

	if byR2, ok := s.roleChains[w.role]; ok {
		for r2, chainSups := range byR2 {
			for _, e := range s.contexts[w.to].links[r2] {
				for _, sup := range chainSups {
					s.addLink(w.from, sup, e)
				}
			}
		}
	}
	for r1, byR2 := range s.roleChains {
		if chainSups, ok := byR2[w.role]; ok {
			for _, pred := range s.contexts[w.from].predsOf[r1] {
				for _, sup := range chainSups {
					s.addLink(pred, sup, w.to)
				}
			}
		}
	}
}

// Subsumes reports whether d ∈ S(c) in the saturated result, i.e. c ⊑ d
// was derived.
func Subsumes(contexts []elContext, c, d ConceptID) bool {
	if int(c) >= len(contexts) {
		return false
	}
	return contexts[c].supers[d]
}

// IsELFragment reports whether an axiom set (summarized by the caller as
// booleans for the constructs it uses) stays within the EL profile 4.J
// handles, so Session can decide whether to route classification through
// the saturator instead of the full tableau engine.
func IsELFragment(hasDisjunction, hasUniversal, hasCardinality, hasNominal, hasInverse bool) bool {
	return !hasDisjunction && !hasUniversal && !hasCardinality && !hasNominal && !hasInverse
}
