package tableau

// ConceptID, RoleID and IndividualID are distinct integer categories so
// the compiler rejects accidental mixups between them (passing a role
// index where a concept index is expected, etc.) — a cheap, static
// slice of the "Name clash" error kind the dynamic interning tables
// still have to check at the boundary where names come in as strings.
type (
	ConceptID    uint32
	RoleID       uint32
	IndividualID uint32
)

// NoConcept, NoRole and NoIndividual are sentinel "absent" values, used
// in fields that are only meaningful for certain Vertex tags.
const (
	NoConcept    ConceptID    = 0
	NoRole       RoleID       = 0
	NoIndividual IndividualID = 0
)

// SymbolTable interns the string names used by the external axiom API
// into the compact integer ids the engine operates on. It is built once
// while axioms are loaded and is read-only once reasoning starts,
// mirroring the DAG's own lifecycle.
type SymbolTable struct {
	conceptNames []string
	conceptIdx   map[string]ConceptID

	roleNames []string
	roleIdx   map[string]RoleID

	individualNames []string
	individualIdx   map[string]IndividualID
}

// NewSymbolTable returns an empty table with owl:Thing/owl:Nothing
// pre-interned at the reserved concept ids that correspond to TopBP and
// BotBP's DAG slots.
func NewSymbolTable() *SymbolTable {
	st := &SymbolTable{
		conceptNames: make([]string, 1, 256),
		conceptIdx:   make(map[string]ConceptID, 256),
		roleNames:    make([]string, 1, 32),
		roleIdx:      make(map[string]RoleID, 32),

		individualNames: make([]string, 1, 64),
		individualIdx:   make(map[string]IndividualID, 64),
	}
	return st
}

// InternConcept returns the id for name, allocating a fresh one if this
// is the first time name has been seen. The category of an existing
// name is never changed by InternConcept; callers that need to detect a
// concept/role category clash must consult ConceptID/RoleID presence
// themselves (see Session.checkNameClash).
func (st *SymbolTable) InternConcept(name string) ConceptID {
	if id, ok := st.conceptIdx[name]; ok {
		return id
	}
	id := ConceptID(len(st.conceptNames))
	st.conceptNames = append(st.conceptNames, name)
	st.conceptIdx[name] = id
	return id
}

// InternRole returns the id for name, allocating a fresh one if needed.
func (st *SymbolTable) InternRole(name string) RoleID {
	if id, ok := st.roleIdx[name]; ok {
		return id
	}
	id := RoleID(len(st.roleNames))
	st.roleNames = append(st.roleNames, name)
	st.roleIdx[name] = id
	return id
}

// InternIndividual returns the id for name, allocating a fresh one if needed.
func (st *SymbolTable) InternIndividual(name string) IndividualID {
	if id, ok := st.individualIdx[name]; ok {
		return id
	}
	id := IndividualID(len(st.individualNames))
	st.individualNames = append(st.individualNames, name)
	st.individualIdx[name] = id
	return id
}

// HasConcept reports whether name has already been interned as a concept.
func (st *SymbolTable) HasConcept(name string) bool { _, ok := st.conceptIdx[name]; return ok }

// HasRole reports whether name has already been interned as a role.
func (st *SymbolTable) HasRole(name string) bool { _, ok := st.roleIdx[name]; return ok }

// ConceptName returns the interned string for id.
func (st *SymbolTable) ConceptName(id ConceptID) string {
	if int(id) < len(st.conceptNames) {
		return st.conceptNames[id]
	}
	return ""
}

// RoleName returns the interned string for id.
func (st *SymbolTable) RoleName(id RoleID) string {
	if int(id) < len(st.roleNames) {
		return st.roleNames[id]
	}
	return ""
}

// IndividualName returns the interned string for id.
func (st *SymbolTable) IndividualName(id IndividualID) string {
	if int(id) < len(st.individualNames) {
		return st.individualNames[id]
	}
	return ""
}

// ConceptCount and RoleCount report the number of interned names,
// sized for allocating per-concept/per-role slices in the EL reasoner.
func (st *SymbolTable) ConceptCount() int { return len(st.conceptNames) }
func (st *SymbolTable) RoleCount() int    { return len(st.roleNames) }
