package tableau

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// CacheMode selects how aggressively the model cache is consulted.
type CacheMode uint8

const (
	// CacheOff disables the model cache entirely: every ∃-rule firing
	// creates a fresh successor.
	CacheOff CacheMode = iota
	// CacheSingleton caches at most one model per concept (the classic
	// "cache the first model found satisfiable" discipline).
	CacheSingleton
	// CacheSet keeps one cached model per concept in a table bounded by
	// an LRU (component H's hashicorp/golang-lru wiring), evicting the
	// least recently used concept's model once the bound is reached.
	CacheSet
)

// Config is the tunable surface a Session is built from, loaded either
// programmatically or from YAML by the CLI.
type Config struct {
	Blocking         BlockingMode  `yaml:"blocking"`
	Timeout          time.Duration `yaml:"timeout"`
	FairnessConcepts []string      `yaml:"fairness_concepts"`
	EnableELFastPath bool          `yaml:"el_fast_path"`
	ModelCache       CacheMode     `yaml:"model_cache"`
	Workers          int           `yaml:"workers"`
}

// DefaultConfig mirrors DefaultEngineConfig's choices at the Session
// level: anywhere-blocking, the set-cache discipline, EL fast path on,
// and a generous default timeout.
func DefaultConfig() Config {
	return Config{
		Blocking:         BlockAnywhere,
		Timeout:          30 * time.Second,
		EnableELFastPath: true,
		ModelCache:       CacheSet,
		Workers:          1,
	}
}

// AxiomHandle is the opaque token returned for every axiom a caller
// asserts, so it can later be retracted; the handle's zero value never
// addresses a real axiom.
type AxiomHandle uint64

// axiomRecord is what a handle actually resolves to, kept only so
// Retract can undo an axiom's effect on the DAG/definitions/role
// hierarchy it touched.
type axiomRecord struct {
	kind string
	undo func()
}

// Session is the single entry point: it owns one DAG, one role
// hierarchy, one symbol table, one Definitions table, the fairness and
// blocking configuration, and the logging/metrics handles attached to
// every reasoning call it makes. Grounded on the teacher's
// Model/Solver split (immutable problem definition vs. mutable solving
// state): here the DAG/role-hierarchy/symbol-table trio plays Model's
// role, frozen once classification starts, while each query call spins
// up its own single-use Engine, playing Solver's role.
type Session struct {
	id  uuid.UUID
	log *logrus.Entry

	cfg Config

	dag  *DAG
	rh   *RoleHierarchy
	st   *SymbolTable
	defs *Definitions
	data DatatypeReasoner

	metrics *Metrics

	axioms      map[AxiomHandle]axiomRecord
	nextHandle  AxiomHandle
	fairnessBPs []BP
	facts       []individualFact
	closedRoles bool

	// gciList accumulates the ¬C ⊔ D conjuncts internalization needs;
	// globalAxiom is the And of gciList, recomputed whenever it changes
	// so Run always has an up-to-date conjunct to hand the engine.
	gciList     []BP
	globalAxiom BP

	// poisoned is set once an ErrInvariant surfaces; every subsequent
	// call short-circuits with the same error without touching the
	// engine, per the error-handling design's "does not leave the
	// session usable."
	poisoned error

	// inconsistent records that some prior query found the KB
	// unsatisfiable; queries refuse to run until the KB changes.
	inconsistent bool

	// taxonomy holds the last Classify result, if any, so Save (4.M) can
	// persist it alongside the KB; nil until Classify has been called at
	// least once.
	taxonomy *Taxonomy

	// elHasDisjunction/elHasUniversal/elHasCardinality/elHasNominal/
	// elHasInverse summarize, as axioms are asserted, whether the
	// session's TBox has stepped outside the EL profile: Classify
	// consults IsELFragment over these flags to decide whether it can
	// route through the saturator (4.J) instead of the pairwise tableau
	// oracle. Only constructs that survive into a persistent TBox axiom
	// set a flag; transient query-only reductions (IsRoleFunctional's
	// ≥2 R.⊤, IsRoleSymmetric's nominal probe, and the like) build their
	// terms directly on the DAG rather than through these wrappers, so
	// they never taint classification.
	elHasDisjunction bool
	elHasUniversal   bool
	elHasCardinality bool
	elHasNominal     bool
	elHasInverse     bool
}

// NewSession returns a Session ready to accept axioms, with a fresh
// session id attached to every subsequent log line (metrics carry no
// session label).
func NewSession(cfg Config) *Session {
	id := uuid.New()
	log := logrus.WithField("session", id.String())
	s := &Session{
		id:          id,
		log:         log,
		cfg:         cfg,
		dag:         NewDAG(),
		rh:          NewRoleHierarchy(),
		st:          NewSymbolTable(),
		defs:        NewDefinitions(),
		metrics:     NewMetrics(),
		axioms:      make(map[AxiomHandle]axiomRecord),
		globalAxiom: TopBP,
	}
	s.applyCacheMode()
	log.Info("session created")
	return s
}

// applyCacheMode (re)installs the bounded LRU on s.dag when the
// session is configured for CacheSet; called both by NewSession and,
// after LoadSession swaps in a freshly reconstructed DAG, so a
// restored session doesn't silently fall back to the unbounded
// per-vertex cache.
func (s *Session) applyCacheMode() {
	if s.cfg.ModelCache != CacheSet {
		return
	}
	bound := s.cfg.Workers * 256
	if bound <= 0 {
		bound = 1024
	}
	s.dag.EnableBoundedModelCache(bound)
}

// SetDatatypeReasoner installs the pluggable datatype-constraint
// checker the Datatype rule offloads to. Nil (the default) makes every
// datatype vertex an automatic clash.
func (s *Session) SetDatatypeReasoner(r DatatypeReasoner) { s.data = r }

// ID returns the session's uuid, mainly useful for correlating log
// lines across a fleet of concurrent sessions (4.N).
func (s *Session) ID() uuid.UUID { return s.id }

// InternIndividual returns the id for name, allocating a fresh one if
// this is the first time name has been seen. Unlike Declare/DeclareRole
// there is no category to clash with: individual names share no
// namespace with concepts or roles.
func (s *Session) InternIndividual(name string) IndividualID {
	return s.st.InternIndividual(name)
}

func (s *Session) allocHandle() AxiomHandle {
	s.nextHandle++
	return s.nextHandle
}

func (s *Session) recordAxiom(kind string, undo func()) AxiomHandle {
	h := s.allocHandle()
	s.axioms[h] = axiomRecord{kind: kind, undo: undo}
	return h
}

// checkNameClash reports ErrNameClash if name is already interned under
// the opposite category from the one the caller is about to use it as.
func (s *Session) checkNameClash(name string, wantConcept bool) error {
	if wantConcept && s.st.HasRole(name) {
		return fmt.Errorf("concept %q: %w", name, ErrNameClash)
	}
	if !wantConcept && s.st.HasConcept(name) {
		return fmt.Errorf("role %q: %w", name, ErrNameClash)
	}
	return nil
}

// --- Bulk axiom API (spec.md §6) -------------------------------------

// Declare interns name as a concept and returns the bp addressing it,
// allocating a fresh atomic concept if this is the first time name has
// been seen.
func (s *Session) Declare(name string) (BP, error) {
	if err := s.checkNameClash(name, true); err != nil {
		return 0, err
	}
	id := s.st.InternConcept(name)
	return s.dag.CName(id), nil
}

// And, Or, Exists, Forall, AtLeast, AtMost and Nominal build the
// corresponding complex concept expression over the session's DAG, the
// same hash-consing constructors SetDomain/SetRange/abox use
// internally, exposed so a caller can phrase an axiom or query over
// more than the bare atomic concepts Declare returns.
func (s *Session) And(cs ...BP) BP { return s.dag.And(cs...) }
func (s *Session) Or(cs ...BP) BP {
	s.elHasDisjunction = true
	return s.dag.Or(cs...)
}
func (s *Session) Exists(r RoleID, filler BP) BP { return s.dag.Exists(r, filler) }
func (s *Session) Forall(r RoleID, filler BP) BP {
	s.elHasUniversal = true
	return s.dag.Forall(r, filler)
}
func (s *Session) AtLeast(n uint32, r RoleID, filler BP) BP {
	s.elHasCardinality = true
	return s.dag.AtLeast(n, r, filler)
}
func (s *Session) AtMost(n uint32, r RoleID, filler BP) BP {
	s.elHasCardinality = true
	return s.dag.AtMost(n, r, filler)
}
func (s *Session) Nominal(ind IndividualID) BP {
	s.elHasNominal = true
	return s.dag.Nominal(ind)
}

// ImpliesConcepts asserts C ⊑ D as a general concept inclusion,
// internalized into the session's global axiom (4.L): every GCI is
// folded into ¬C ⊔ D and conjoined onto every node the engine ever
// creates, per the standard TBox-internalization technique.
func (s *Session) ImpliesConcepts(c, d BP) AxiomHandle {
	gci := s.dag.Or(c.Inverse(), d)
	s.gciList = append(s.gciList, gci)
	s.recomputeGlobalAxiom()
	idx := len(s.gciList) - 1
	return s.recordAxiom("impliesConcepts", func() {
		s.gciList = append(s.gciList[:idx], s.gciList[idx+1:]...)
		s.recomputeGlobalAxiom()
	})
}

func (s *Session) recomputeGlobalAxiom() {
	if len(s.gciList) == 0 {
		s.globalAxiom = TopBP
		return
	}
	s.globalAxiom = s.dag.And(s.gciList...)
}

// EqualConcepts asserts that every concept in cs denotes the same
// extension, realized as pairwise ImpliesConcepts in both directions.
func (s *Session) EqualConcepts(cs []BP) AxiomHandle {
	var handles []AxiomHandle
	for i := 0; i < len(cs); i++ {
		for j := i + 1; j < len(cs); j++ {
			handles = append(handles, s.ImpliesConcepts(cs[i], cs[j]), s.ImpliesConcepts(cs[j], cs[i]))
		}
	}
	return s.recordAxiom("equalConcepts", func() {
		for _, h := range handles {
			s.Retract(h)
		}
	})
}

// DisjointConcepts asserts that no two concepts in cs may share an
// instance, realized as pairwise ImpliesConcepts(Cᵢ, ¬Cⱼ). The negated
// filler on the right of that reduction falls outside what the EL
// saturator's normal forms can express, so this costs the session its
// EL fast-path eligibility the same way an explicit Or would.
func (s *Session) DisjointConcepts(cs []BP) AxiomHandle {
	s.elHasDisjunction = true
	var handles []AxiomHandle
	for i := 0; i < len(cs); i++ {
		for j := i + 1; j < len(cs); j++ {
			handles = append(handles, s.ImpliesConcepts(cs[i], cs[j].Inverse()))
		}
	}
	return s.recordAxiom("disjointConcepts", func() {
		for _, h := range handles {
			s.Retract(h)
		}
	})
}

// DeclareRole interns name as an object role.
func (s *Session) DeclareRole(name string) (RoleID, error) {
	if err := s.checkNameClash(name, false); err != nil {
		return 0, err
	}
	s.st.InternRole(name)
	return s.rh.Declare(name), nil
}

// ImpliesORoles asserts R ⊑ S.
func (s *Session) ImpliesORoles(r, sup RoleID) AxiomHandle {
	s.rh.AddSubRole(r, sup)
	return s.recordAxiom("impliesORoles", func() {})
}

// EqualORoles asserts R ≡ S via mutual ImpliesORoles.
func (s *Session) EqualORoles(r, sup RoleID) AxiomHandle {
	s.rh.AddSubRole(r, sup)
	s.rh.AddSubRole(sup, r)
	return s.recordAxiom("equalORoles", func() {})
}

// DisjointORoles records that r and sup may never both hold between the
// same pair of individuals.
func (s *Session) DisjointORoles(r, sup RoleID) AxiomHandle {
	s.rh.SetDisjoint(r, sup)
	return s.recordAxiom("disjointORoles", func() {})
}

// SetInverseRoles links r and inv as mutual inverses. The EL profile has
// no inverse roles, so declaring one costs the session its fast-path
// eligibility.
func (s *Session) SetInverseRoles(r, inv RoleID) AxiomHandle {
	s.elHasInverse = true
	s.rh.SetInverse(r, inv)
	return s.recordAxiom("setInverseRoles", func() {})
}

// SetDomain asserts dom(R) ⊑ C: every individual with an R-filler must
// be a C, which is ⊤ ⊑ ∀R⁻.C — expressed here as the GCI ∃R.⊤ ⊑ C.
func (s *Session) SetDomain(r RoleID, c BP) AxiomHandle {
	return s.ImpliesConcepts(s.dag.Exists(r, TopBP), c)
}

// SetRange asserts ran(R) ⊑ C, i.e. ⊤ ⊑ ∀R.C, via the GCI reduction
// documented alongside SetDomain. A range restriction is a genuine
// universal restriction, so it costs the session its EL fast-path
// eligibility exactly the way a direct Forall call would.
func (s *Session) SetRange(r RoleID, c BP) AxiomHandle {
	s.elHasUniversal = true
	return s.ImpliesConcepts(TopBP, s.dag.Forall(r, c))
}

// SetTransitive, SetReflexive, SetIrreflexive, SetSymmetric,
// SetAsymmetric and SetFunctional set the corresponding role property.
func (s *Session) SetTransitive(r RoleID) AxiomHandle {
	s.rh.SetTransitive(r)
	return s.recordAxiom("transitive", func() {})
}
func (s *Session) SetReflexive(r RoleID) AxiomHandle {
	s.rh.SetReflexive(r)
	return s.recordAxiom("reflexive", func() {})
}
func (s *Session) SetIrreflexive(r RoleID) AxiomHandle {
	s.rh.SetIrreflexive(r)
	return s.recordAxiom("irreflexive", func() {})
}
func (s *Session) SetSymmetric(r RoleID) AxiomHandle {
	s.elHasInverse = true // SetSymmetric makes r its own inverse
	s.rh.SetSymmetric(r)
	return s.recordAxiom("symmetric", func() {})
}
func (s *Session) SetAsymmetricRole(r RoleID) AxiomHandle {
	s.rh.SetAsymmetric(r)
	return s.recordAxiom("asymmetric", func() {})
}
func (s *Session) SetFunctionalRole(r RoleID) AxiomHandle {
	s.rh.SetFunctional(r)
	return s.recordAxiom("functional", func() {})
}

// DeclareDataRole interns name as a data role.
func (s *Session) DeclareDataRole(name string) (RoleID, error) {
	id, err := s.DeclareRole(name)
	if err != nil {
		return 0, err
	}
	s.rh.SetDataRole(id)
	return id, nil
}

// InstanceOf asserts C(a): individual a's node gains concept c.
// Individual assertions are staged as pending facts consulted the next
// time a Session query builds a fresh completion graph (4.L); there is
// no persistent ABox graph maintained between calls, matching the
// "single-use Engine per query" ownership model.
type individualFact struct {
	kind string // "instanceOf" | "relatedTo" | "valueOf" | "same" | "different"
	a, b IndividualID
	c    BP
	r    RoleID
	neg  bool
}

// InstanceOf records C(a) (or ¬C(a) if neg is set).
func (s *Session) InstanceOf(a IndividualID, c BP, neg bool) AxiomHandle {
	f := individualFact{kind: "instanceOf", a: a, c: c, neg: neg}
	s.facts = append(s.facts, f)
	idx := len(s.facts) - 1
	return s.recordAxiom("instanceOf", func() { s.facts = append(s.facts[:idx], s.facts[idx+1:]...) })
}

// RelatedTo records R(a,b) (or ¬R(a,b) if neg is set).
func (s *Session) RelatedTo(a, b IndividualID, r RoleID, neg bool) AxiomHandle {
	f := individualFact{kind: "relatedTo", a: a, b: b, r: r, neg: neg}
	s.facts = append(s.facts, f)
	idx := len(s.facts) - 1
	return s.recordAxiom("relatedTo", func() { s.facts = append(s.facts[:idx], s.facts[idx+1:]...) })
}

// Same asserts a = b (both individuals denote one object).
func (s *Session) Same(a, b IndividualID) AxiomHandle {
	f := individualFact{kind: "same", a: a, b: b}
	s.facts = append(s.facts, f)
	idx := len(s.facts) - 1
	return s.recordAxiom("same", func() { s.facts = append(s.facts[:idx], s.facts[idx+1:]...) })
}

// Different asserts a ≠ b.
func (s *Session) Different(a, b IndividualID) AxiomHandle {
	f := individualFact{kind: "different", a: a, b: b}
	s.facts = append(s.facts, f)
	idx := len(s.facts) - 1
	return s.recordAxiom("different", func() { s.facts = append(s.facts[:idx], s.facts[idx+1:]...) })
}

// abox folds every staged individual fact into a single concept term,
// anchored through the universal role so none of them forces the
// query's own root node to represent a named individual (RelatedTo's
// `a` only needs to exist reachable from root, not be root). An empty
// fact list folds to TopBP, a no-op conjunct exactly like an empty
// GCI list's global axiom.
func (s *Session) abox() BP {
	if len(s.facts) == 0 {
		return TopBP
	}
	u := s.rh.Universal()
	var conjuncts []BP
	for _, f := range s.facts {
		switch f.kind {
		case "instanceOf":
			c := f.c
			if f.neg {
				c = c.Inverse()
			}
			conjuncts = append(conjuncts, s.dag.Exists(u, s.dag.And(s.dag.Nominal(f.a), c)))
		case "relatedTo":
			var inner BP
			if f.neg {
				inner = s.dag.Forall(f.r, s.dag.Nominal(f.b).Inverse())
			} else {
				inner = s.dag.Exists(f.r, s.dag.Nominal(f.b))
			}
			conjuncts = append(conjuncts, s.dag.Exists(u, s.dag.And(s.dag.Nominal(f.a), inner)))
		case "same":
			conjuncts = append(conjuncts, s.dag.Exists(u, s.dag.And(s.dag.Nominal(f.a), s.dag.Nominal(f.b))))
		case "different":
			// Handled structurally via EngineConfig.DistinctIndividuals,
			// not as a concept-level conjunct.
		}
	}
	if len(conjuncts) == 0 {
		return TopBP
	}
	return s.dag.And(conjuncts...)
}

// distinctPairs collects the individual pairs staged via Different, fed
// to EngineConfig.DistinctIndividuals so fireNominal and the ≤-rule's
// merge refuse to merge their nodes.
func (s *Session) distinctPairs() [][2]IndividualID {
	var pairs [][2]IndividualID
	for _, f := range s.facts {
		if f.kind == "different" {
			pairs = append(pairs, [2]IndividualID{f.a, f.b})
		}
	}
	return pairs
}

// CheckConsistency tests the staged ABox alone for satisfiability and,
// if it is unsatisfiable, marks the session inconsistent so every
// subsequent query short-circuits with ErrInconsistentKB until the
// offending facts are retracted.
func (s *Session) CheckConsistency(ctx context.Context) (bool, error) {
	sat, err := s.runQuery(ctx, TopBP)
	if err != nil {
		return false, err
	}
	if !sat {
		s.inconsistent = true
	}
	return sat, nil
}

// AddFairnessConcept registers concept as one that must recur in any
// infinite model (4.G's fairness-driven blocking downgrade).
func (s *Session) AddFairnessConcept(c BP) AxiomHandle {
	s.fairnessBPs = append(s.fairnessBPs, c)
	idx := len(s.fairnessBPs) - 1
	return s.recordAxiom("fairness", func() {
		s.fairnessBPs = append(s.fairnessBPs[:idx], s.fairnessBPs[idx+1:]...)
	})
}

// Retract undoes the axiom h addressed, a no-op if h is unknown (an
// already-retracted or foreign handle).
func (s *Session) Retract(h AxiomHandle) {
	rec, ok := s.axioms[h]
	if !ok {
		return
	}
	rec.undo()
	delete(s.axioms, h)
}

// --- Query API (spec.md §6) -------------------------------------------

// newEngine builds a single-use Engine over the session's frozen
// DAG/role-hierarchy/definitions, closing the role hierarchy first if
// this is the first reasoning call (Close is idempotent-by-convention:
// callers only ever call it once per session in practice, but Session
// guards against a double call by tracking closedRoles).
func (s *Session) newEngine() *Engine {
	if !s.closedRoles {
		s.rh.Close()
		s.closedRoles = true
	}
	cfg := DefaultEngineConfig()
	cfg.Blocking = s.cfg.Blocking
	cfg.UseCache = s.cfg.ModelCache != CacheOff
	cfg.Fairness = s.fairnessBPs
	cfg.GlobalAxiom = s.globalAxiom
	cfg.DistinctIndividuals = s.distinctPairs()
	e := NewEngine(s.dag, s.rh, s.defs, s.data, cfg)
	e.SetLogger(s.log)
	return e
}

// withTimeout derives a context bounded by the session's configured
// timeout, unless the caller's context already carries an earlier
// deadline.
func (s *Session) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.cfg.Timeout)
}

// checkUsable returns the poison error if the session has taken an
// internal invariant violation, or ErrInconsistentKB if a prior query
// found the KB unsatisfiable.
func (s *Session) checkUsable() error {
	if s.poisoned != nil {
		return s.poisoned
	}
	if s.inconsistent {
		return ErrInconsistentKB
	}
	return nil
}

// runQuery is the shared plumbing every query entry point funnels
// through: build a fresh engine, run it under the session's timeout,
// classify the outcome, and poison the session on an internal
// invariant violation.
func (s *Session) runQuery(ctx context.Context, concept BP) (bool, error) {
	if err := s.checkUsable(); err != nil {
		return false, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	e := s.newEngine()
	queryConcept := concept
	if len(s.facts) > 0 {
		queryConcept = s.dag.And(concept, s.abox())
	}
	start := time.Now()
	sat, err := e.Run(ctx, queryConcept)
	elapsed := time.Since(start)

	s.log.WithFields(logrus.Fields{
		"satisfiable": sat,
		"elapsed_ms":  elapsed.Milliseconds(),
		"firings":     e.Stats().RuleFirings,
		"clashes":     e.Stats().Clashes,
		"backjumps":   e.Stats().Backjumps,
	}).Debug("query complete")
	s.metrics.ObserveQuery(e.Stats(), elapsed)

	if err != nil {
		var ie *invariantError
		if isInvariantError(err, &ie) {
			s.poisoned = err
			return false, err
		}
		if err == ErrCancelled && ctx.Err() == context.DeadlineExceeded {
			return false, ErrTimeout
		}
		return false, err
	}
	return sat, nil
}

// IsSatisfiable reports whether concept is satisfiable with respect to
// the session's TBox (internalized via the global axiom every query
// engine is seeded with).
func (s *Session) IsSatisfiable(ctx context.Context, concept BP) (bool, error) {
	return s.runQuery(ctx, concept)
}

// IsSubsumedBy reports whether c ⊑ d, implemented per spec.md §6 as the
// unsatisfiability of c ⊓ ¬d.
func (s *Session) IsSubsumedBy(ctx context.Context, c, d BP) (bool, error) {
	sat, err := s.runQuery(ctx, s.dag.And(c, d.Inverse()))
	if err != nil {
		return false, err
	}
	return !sat, nil
}

// IsDisjoint reports whether c and d share no possible instance,
// implemented as the unsatisfiability of c ⊓ d.
func (s *Session) IsDisjoint(ctx context.Context, c, d BP) (bool, error) {
	sat, err := s.runQuery(ctx, s.dag.And(c, d))
	if err != nil {
		return false, err
	}
	return !sat, nil
}

// IsEquivalent reports whether c ⊑ d and d ⊑ c both hold.
func (s *Session) IsEquivalent(ctx context.Context, c, d BP) (bool, error) {
	if sub, err := s.IsSubsumedBy(ctx, c, d); err != nil || !sub {
		return false, err
	}
	return s.IsSubsumedBy(ctx, d, c)
}

// IsRoleTransitive reports whether R must be interpreted transitively
// in every model, via the reduction in spec.md §6: ∃R.∃R.¬C ⊓ ∀R.C is
// unsatisfiable, with C a concept fresh to this call.
func (s *Session) IsRoleTransitive(ctx context.Context, r RoleID) (bool, error) {
	fresh := s.dag.CName(s.st.InternConcept(fmt.Sprintf("$fresh#transitive#%d", r)))
	term := s.dag.And(
		s.dag.Exists(r, s.dag.Exists(r, fresh.Inverse())),
		s.dag.Forall(r, fresh),
	)
	sat, err := s.runQuery(ctx, term)
	if err != nil {
		return false, err
	}
	return !sat, nil
}

// IsRoleSymmetric reports whether R must be interpreted symmetrically,
// via ∃R.{a} ⊓ ¬∃R⁻.{a} unsatisfiable, a a fresh nominal.
func (s *Session) IsRoleSymmetric(ctx context.Context, r RoleID) (bool, error) {
	a := s.st.InternIndividual(fmt.Sprintf("$fresh#symmetric#%d", r))
	nom := s.dag.Nominal(a)
	term := s.dag.And(s.dag.Exists(r, nom), s.dag.Forall(s.rh.Inverse(r), nom.Inverse()))
	sat, err := s.runQuery(ctx, term)
	if err != nil {
		return false, err
	}
	return !sat, nil
}

// IsRoleFunctional reports whether R is functional, via the number
// restriction reduction ≥2 R.⊤ unsatisfiable.
func (s *Session) IsRoleFunctional(ctx context.Context, r RoleID) (bool, error) {
	term := s.dag.AtLeast(2, r, TopBP)
	sat, err := s.runQuery(ctx, term)
	if err != nil {
		return false, err
	}
	return !sat, nil
}

// Query evaluates a conjunctive query q rooted at root, asking whether
// rootIndividual satisfies it: q is folded (query.go's
// Freshen/Build/Fold pipeline) into one concept term per nominal Fold
// returns, and the query holds iff the individual is subsumed by every
// one of those terms relative to the session's TBox and staged ABox
// facts (entailment as unsatisfiability of the term's negation, the
// same reduction IsSubsumedBy already uses).
func (s *Session) Query(ctx context.Context, q *Query, root QueryVar, rootIndividual IndividualID) (bool, error) {
	terms := Fold(s.dag, s.rh, q, root, rootIndividual)
	for _, t := range terms {
		nom := s.dag.Nominal(t.Nominal)
		holds, err := s.IsSubsumedBy(ctx, nom, t.Concept)
		if err != nil {
			return false, err
		}
		if !holds {
			return false, nil
		}
	}
	return true, nil
}

// SubsumptionOracle is the callback interface component N's Enhanced
// Traversal driver consumes; Session.Oracle returns one bound to this
// session's frozen KB.
type SubsumptionOracle interface {
	Subsumes(ctx context.Context, c, d BP) (bool, error)
}

type sessionOracle struct{ s *Session }

func (o sessionOracle) Subsumes(ctx context.Context, c, d BP) (bool, error) {
	return o.s.IsSubsumedBy(ctx, c, d)
}

// Oracle returns the SubsumptionOracle bound to this session, for
// classification/realisation drivers external to this package.
func (s *Session) Oracle() SubsumptionOracle { return sessionOracle{s: s} }

// ActorCallback is invoked once per (concept, direct-subsumer) pair
// while an external classification driver walks the derived taxonomy,
// per spec.md §6's "iteration over the concept/role taxonomies using an
// actor callback."
type ActorCallback func(concept, subsumer BP)

func isInvariantError(err error, out **invariantError) bool {
	ie, ok := err.(*invariantError)
	if ok {
		*out = ie
	}
	return ok
}
