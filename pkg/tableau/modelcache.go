package tableau

import (
	"github.com/go-air/gini"
	"github.com/go-air/gini/z"
)

// CacheState is the three-valued verdict a ModelCache carries, mirroring
// modelCacheIan's csValid/csInvalid/csUnknown distinction: "unknown"
// means the cache was built from a node whose expansion hit something
// the cheap check can't reason about (an unresolved datatype, an
// anywhere-blocked successor) and merge tests must fall back to full
// tableau expansion rather than trust the cache.
type CacheState uint8

const (
	CacheValid CacheState = iota
	CacheInvalid
	CacheUnknown
)

// ModelCache is the satisfiability witness cached alongside a DAG vertex
// once a node proving it satisfiable has been fully expanded. Its shape
// follows modelCacheIan: concepts split by polarity into "defined"
// (concepts with an expansion rule: And/Or/Exists/...) and "named"
// (atomic CName/nominal) sets, plus the three per-role requirement sets
// that the ≤/≥-rules need to decide mergeability without re-running the
// tableau.
type ModelCache struct {
	State CacheState

	// posD/negD hold defined (non-atomic) concepts the witness model
	// satisfies positively/negatively; posN/negN hold atomic ones. The
	// split exists because merge compatibility only needs the atomic
	// sets compared directly — defined concepts are compared via the DAG
	// so ∃R.C and ∃R.C (same C, different bp from normalization) aren't
	// spuriously treated as distinct.
	posD, negD map[BP]bool
	posN, negN map[BP]bool

	existsRoles map[RoleID]bool // roles this node has an ∃-successor for
	forallRoles map[RoleID]bool // roles this node has a ∀-restriction on
	funcRoles   map[RoleID]bool // roles declared functional and used here

	hasNominals bool
}

// NewModelCache returns an empty cache in the Unknown state; callers
// populate it via AddConcept/AddRoleUsage while walking a satisfied
// node's label, then call Seal.
func NewModelCache() *ModelCache {
	return &ModelCache{
		State: CacheUnknown,
		posD:  make(map[BP]bool), negD: make(map[BP]bool),
		posN: make(map[BP]bool), negN: make(map[BP]bool),
		existsRoles: make(map[RoleID]bool),
		forallRoles: make(map[RoleID]bool),
		funcRoles:   make(map[RoleID]bool),
	}
}

// AddConcept records that bp held in the witness node's label. atomic
// distinguishes which pair of sets it belongs to.
func (mc *ModelCache) AddConcept(bp BP, atomic bool) {
	neg := bp.IsNegated()
	switch {
	case atomic && !neg:
		mc.posN[bp] = true
	case atomic && neg:
		mc.negN[bp.Inverse()] = true
	case !atomic && !neg:
		mc.posD[bp] = true
	default:
		mc.negD[bp.Inverse()] = true
	}
}

// AddRoleUsage records that the witness node has an ∃/∀/functional edge
// over role r, used by the cardinality-rule merge precheck.
func (mc *ModelCache) AddRoleUsage(r RoleID, exists, forall, functional bool) {
	if exists {
		mc.existsRoles[r] = true
	}
	if forall {
		mc.forallRoles[r] = true
	}
	if functional {
		mc.funcRoles[r] = true
	}
}

// SetHasNominals marks that the witness model contains a nominal; caches
// with nominals are never trusted for the ≤-rule's blind merge shortcut
// (two witnesses both containing {a} could in fact be forced equal) so
// canMergeObvious leaves them undecided and CanMerge falls through to
// the SAT precheck, much as modelCacheIan does for its "hasNominalNode"
// flag.
func (mc *ModelCache) SetHasNominals() { mc.hasNominals = true }

// Seal finalizes the cache's state: Invalid if building it ever hit a
// clash (the caller should not have called Seal then, but this guards
// against it anyway), Valid otherwise.
func (mc *ModelCache) Seal(clashed bool) {
	if clashed {
		mc.State = CacheInvalid
		return
	}
	mc.State = CacheValid
}

// canMergeObvious runs the cheap structural checks modelCacheIan runs
// before falling back to a SAT call: direct clash between one cache's
// positive atomic set and the other's negative atomic set, and
// incompatible functional-role requirements (both require a functional
// successor edge with incompatible fillers is the one case the atomic
// check alone can't rule out, so it's deferred to the SAT pass).
func canMergeObvious(a, b *ModelCache) (ok, decided bool) {
	if a.State != CacheValid || b.State != CacheValid {
		return false, false
	}
	if a.hasNominals || b.hasNominals {
		return false, false
	}
	for bp := range a.posN {
		if b.negN[bp] {
			return false, true
		}
	}
	for bp := range a.negN {
		if b.posN[bp] {
			return false, true
		}
	}
	for bp := range b.posN {
		if a.negN[bp] {
			return false, true
		}
	}
	return true, false
}

// CanMerge decides whether witnesses a and b can coexist at a single
// merged node. It first tries the cheap obvious check; if that's
// inconclusive it builds a small boolean-satisfiability instance over
// the two caches' atomic concept sets and functional-role overlaps and
// hands it to a SAT solver, short-circuiting the far more expensive
// alternative of actually running the tableau on the merged label.
func CanMerge(a, b *ModelCache) bool {
	if ok, decided := canMergeObvious(a, b); decided {
		return ok
	}
	if a.State == CacheUnknown || b.State == CacheUnknown {
		return true // unknown caches never veto a merge, only confirm one
	}
	return satPrecheck(a, b)
}

// satPrecheck encodes "can every posN/negN literal from both caches hold
// simultaneously" as unit clauses and asks gini. Every atomic bp becomes
// one boolean variable; defined (posD/negD) concepts are not encoded. A
// functional role that both caches use with an ∃-successor adds a
// contradictory unit pair, so such a pair of caches always comes out
// unsat, whatever the fillers.
func satPrecheck(a, b *ModelCache) bool {
	g := gini.New()
	vars := make(map[BP]z.Var)
	varFor := func(bp BP) z.Var {
		if v, ok := vars[bp]; ok {
			return v
		}
		v := g.MaxVar() + 1
		vars[bp] = v
		return v
	}

	unit := func(bp BP, positive bool) {
		v := varFor(bp)
		if positive {
			g.Add(v.Pos())
		} else {
			g.Add(v.Neg())
		}
		g.Add(0)
	}

	for bp := range a.posN {
		unit(bp, true)
	}
	for bp := range a.negN {
		unit(bp, false)
	}
	for bp := range b.posN {
		unit(bp, true)
	}
	for bp := range b.negN {
		unit(bp, false)
	}

	for r := range a.funcRoles {
		if b.funcRoles[r] && a.existsRoles[r] && b.existsRoles[r] {
			// Both witnesses need a distinct functional successor over
			// the same role: model that clash as an explicit
			// unsatisfiable unit pair so the solver reports -1 rather
			// than silently accepting an impossible shared edge.
			fv := g.MaxVar() + 1
			g.Add(fv.Pos())
			g.Add(0)
			g.Add(fv.Neg())
			g.Add(0)
		}
	}

	return g.Solve() != -1
}

// Merge combines b's requirements into a in place, used once CanMerge
// has approved coexistence and the completion graph has actually merged
// the two nodes, so the surviving node's cache reflects both witnesses.
func (mc *ModelCache) Merge(other *ModelCache) {
	for bp := range other.posD {
		mc.posD[bp] = true
	}
	for bp := range other.negD {
		mc.negD[bp] = true
	}
	for bp := range other.posN {
		mc.posN[bp] = true
	}
	for bp := range other.negN {
		mc.negN[bp] = true
	}
	for r := range other.existsRoles {
		mc.existsRoles[r] = true
	}
	for r := range other.forallRoles {
		mc.forallRoles[r] = true
	}
	for r := range other.funcRoles {
		mc.funcRoles[r] = true
	}
	if other.hasNominals {
		mc.hasNominals = true
	}
	if other.State != CacheValid {
		mc.State = CacheUnknown
	}
}
