package tableau

import "fmt"

// Role is a named directed edge label. Every role has exactly one
// inverse (possibly itself, for a symmetric or the universal role);
// creating R ⊑ S on an object-role pair also installs R⁻ ⊑ S⁻, per the
// invariant in the design document.
type Role struct {
	ID   RoleID
	Name string

	inverse RoleID

	parents  []RoleID // told superroles (pre-closure)
	ancestors roleBitmap // transitive closure of parents, including self

	transitive   bool
	symmetric    bool
	reflexive    bool
	irreflexive  bool
	functional   bool
	asymmetric   bool
	dataRole     bool

	disjointWith roleBitmap

	// automaton is non-nil when this role is the right-hand side of one
	// or more complex role inclusions R1∘...∘Rn ⊑ S; it drives ∀S.C
	// expansion (see RoleAutomaton).
	automaton *RoleAutomaton
}

// roleBitmap is a small bitset over RoleID, sized to the role count at
// closure time. It backs the ancestors/disjointness sets the design
// document calls for "a role index used in bitmaps."
type roleBitmap struct {
	words []uint64
}

func newRoleBitmap(n int) roleBitmap {
	return roleBitmap{words: make([]uint64, (n+63)/64)}
}

func (b *roleBitmap) grow(n int) {
	need := (n + 63) / 64
	for len(b.words) < need {
		b.words = append(b.words, 0)
	}
}

func (b *roleBitmap) Set(id RoleID) {
	b.grow(int(id) + 1)
	b.words[id/64] |= 1 << (id % 64)
}

func (b roleBitmap) Has(id RoleID) bool {
	w := int(id) / 64
	if w >= len(b.words) {
		return false
	}
	return b.words[w]&(1<<(id%64)) != 0
}

// Union merges other into b in place.
func (b *roleBitmap) Union(other roleBitmap) {
	b.grow(len(other.words) * 64)
	for i, w := range other.words {
		b.words[i] |= w
	}
}

// RoleHierarchy holds every role declared in the KB, their computed
// ancestor closures, and the compiled automata for complex role
// inclusions. It is built once while axioms load (4.B) and is
// read-only during reasoning, like the DAG.
type RoleHierarchy struct {
	roles []Role // index 0 unused
	byName map[string]RoleID
	closed bool

	// universalRole is its own inverse and is pre-declared at id 1 by
	// NewRoleHierarchy; Close does not add it to any other role's
	// ancestors.
	universalRole RoleID
}

// NewRoleHierarchy returns an empty hierarchy with the universal role
// pre-declared at id 1 (id 0 is the reserved "no role" sentinel).
func NewRoleHierarchy() *RoleHierarchy {
	rh := &RoleHierarchy{
		roles:  make([]Role, 2, 64),
		byName: make(map[string]RoleID, 64),
	}
	rh.roles[1] = Role{ID: 1, Name: "owl:topObjectProperty", inverse: 1, symmetric: true, transitive: true, reflexive: true}
	rh.byName["owl:topObjectProperty"] = 1
	rh.universalRole = 1
	return rh
}

// Declare interns name as a role (if not already present) and returns
// its id. The role's inverse defaults to itself until SetInverse is
// called.
func (rh *RoleHierarchy) Declare(name string) RoleID {
	if id, ok := rh.byName[name]; ok {
		return id
	}
	id := RoleID(len(rh.roles))
	rh.roles = append(rh.roles, Role{ID: id, Name: name, inverse: id})
	rh.byName[name] = id
	return id
}

// ByName returns the id for an already-declared role name.
func (rh *RoleHierarchy) ByName(name string) (RoleID, bool) {
	id, ok := rh.byName[name]
	return id, ok
}

// Get returns a pointer to the role record for id. The returned pointer
// is only valid to mutate before Close() is called.
func (rh *RoleHierarchy) Get(id RoleID) *Role {
	return &rh.roles[id]
}

// SetInverse links r and inv as mutual inverses.
func (rh *RoleHierarchy) SetInverse(r, inv RoleID) {
	rh.roles[r].inverse = inv
	rh.roles[inv].inverse = r
}

// Inverse returns r's inverse role id.
func (rh *RoleHierarchy) Inverse(r RoleID) RoleID { return rh.roles[r].inverse }

// AddSubRole records R ⊑ S (told subsumption). Per the invariant, this
// also implicitly records R⁻ ⊑ S⁻; the mirrored edge is installed here
// rather than left for Close to discover, so Close's closure pass only
// has to do one thing: transitive closure.
func (rh *RoleHierarchy) AddSubRole(r, s RoleID) {
	rh.roles[r].parents = append(rh.roles[r].parents, s)
	ri, si := rh.roles[r].inverse, rh.roles[s].inverse
	if ri != si {
		rh.roles[ri].parents = append(rh.roles[ri].parents, si)
	}
}

// SetTransitive, SetSymmetric, SetReflexive, SetIrreflexive,
// SetFunctional, SetAsymmetric and SetDataRole set the corresponding
// role-property flags from explicit axioms.
func (rh *RoleHierarchy) SetTransitive(r RoleID)  { rh.roles[r].transitive = true }
func (rh *RoleHierarchy) SetSymmetric(r RoleID)   { rh.roles[r].symmetric = true; rh.SetInverse(r, r) }
func (rh *RoleHierarchy) SetReflexive(r RoleID)   { rh.roles[r].reflexive = true }
func (rh *RoleHierarchy) SetIrreflexive(r RoleID) { rh.roles[r].irreflexive = true }
func (rh *RoleHierarchy) SetFunctional(r RoleID)  { rh.roles[r].functional = true }
func (rh *RoleHierarchy) SetAsymmetric(r RoleID)  { rh.roles[r].asymmetric = true }
func (rh *RoleHierarchy) SetDataRole(r RoleID)    { rh.roles[r].dataRole = true }

// SetDisjoint records that r and s may never both hold between the same
// pair of individuals.
func (rh *RoleHierarchy) SetDisjoint(r, s RoleID) {
	rh.roles[r].disjointWith.Set(s)
	rh.roles[s].disjointWith.Set(r)
}

// Close computes the ancestors closure of every role's told parents
// (complex inclusions are compiled by AddComplexInclusion itself). It
// must be called exactly once, after all role axioms have been seen and
// before any reasoning call; AddSubRole/SetTransitive/etc. after Close
// will not be reflected in Ancestors()/IsSubRoleOf().
func (rh *RoleHierarchy) Close() {
	n := len(rh.roles)
	for i := range rh.roles {
		rh.roles[i].ancestors = newRoleBitmap(n)
		rh.roles[i].ancestors.Set(RoleID(i))
	}
	// Fixpoint closure: repeat until no role's ancestor set grows.
	changed := true
	for changed {
		changed = false
		for i := range rh.roles {
			r := &rh.roles[i]
			for _, p := range r.parents {
				before := popcount(r.ancestors)
				r.ancestors.Union(rh.roles[p].ancestors)
				if popcount(r.ancestors) != before {
					changed = true
				}
			}
		}
	}
	rh.closed = true
}

func popcount(b roleBitmap) int {
	c := 0
	for _, w := range b.words {
		for w != 0 {
			c++
			w &= w - 1
		}
	}
	return c
}

// IsSubRoleOf reports whether r ⊑* s holds after closure (reflexive:
// every role is a sub-role of itself, even before Close).
func (rh *RoleHierarchy) IsSubRoleOf(r, s RoleID) bool {
	if r == s {
		return true
	}
	return rh.roles[r].ancestors.Has(s)
}

// IsTransitive, IsSymmetric, IsReflexive, IsIrreflexive, IsFunctional,
// IsAsymmetric and IsDataRole report the corresponding role property.
func (rh *RoleHierarchy) IsTransitive(r RoleID) bool  { return rh.roles[r].transitive }
func (rh *RoleHierarchy) IsSymmetric(r RoleID) bool   { return rh.roles[r].symmetric }
func (rh *RoleHierarchy) IsReflexive(r RoleID) bool   { return rh.roles[r].reflexive }
func (rh *RoleHierarchy) IsIrreflexive(r RoleID) bool { return rh.roles[r].irreflexive }
func (rh *RoleHierarchy) IsFunctional(r RoleID) bool  { return rh.roles[r].functional }
func (rh *RoleHierarchy) IsAsymmetric(r RoleID) bool  { return rh.roles[r].asymmetric }
func (rh *RoleHierarchy) IsDataRole(r RoleID) bool    { return rh.roles[r].dataRole }

// AreDisjoint reports whether r and s were declared disjoint.
func (rh *RoleHierarchy) AreDisjoint(r, s RoleID) bool { return rh.roles[r].disjointWith.Has(s) }

// Name returns the role's declared name.
func (rh *RoleHierarchy) Name(r RoleID) string { return rh.roles[r].Name }

// Count returns the number of declared roles, including the reserved
// universal role.
func (rh *RoleHierarchy) Count() int { return len(rh.roles) }

// AddComplexInclusion registers R1∘...∘Rn ⊑ S, compiling (or extending)
// the NFA attached to S that ∀S.C expansion consults.
func (rh *RoleHierarchy) AddComplexInclusion(chain []RoleID, s RoleID) {
	if rh.roles[s].automaton == nil {
		rh.roles[s].automaton = NewRoleAutomaton(s)
	}
	rh.roles[s].automaton.AddChain(chain)
}

// Universal returns the id of the implicit owl:topObjectProperty role,
// reflexive and transitive over every individual, used to anchor ABox
// assertions about a named individual at a fresh completion-graph node
// without forcing the query's own root to represent that individual.
func (rh *RoleHierarchy) Universal() RoleID { return rh.universalRole }

// Automaton returns the compiled NFA for role r's complex inclusions,
// or nil if r is the target of none.
func (rh *RoleHierarchy) Automaton(r RoleID) *RoleAutomaton {
	return rh.roles[r].automaton
}

func (rh *RoleHierarchy) String() string {
	return fmt.Sprintf("RoleHierarchy{%d roles, closed=%v}", len(rh.roles)-1, rh.closed)
}
