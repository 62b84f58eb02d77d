package tableau

import "fmt"

// BP is a bipolar pointer: a signed handle into the DAG of
// sub-expressions. The sign encodes negation, so BP(-p) always denotes
// the logical complement of BP(p). TopBP and BotBP are fixed points of
// this scheme: inverse(TopBP) == BotBP and inverse(BotBP) == TopBP.
type BP int32

const (
	// TopBP addresses the universal concept, owl:Thing equivalent (⊤).
	TopBP BP = 1
	// BotBP addresses the empty concept (⊥). It is the negation of TopBP.
	BotBP BP = -TopBP
)

// Inverse returns the logical complement of a bipolar pointer. It is
// its own inverse: Inverse(Inverse(p)) == p for all p.
func (p BP) Inverse() BP { return -p }

// IsNegated reports whether p denotes a negated vertex.
func (p BP) IsNegated() bool { return p < 0 }

// Index returns the unsigned DAG slot addressed by p, regardless of
// sign. Vertex 0 is never allocated; valid indices start at 1.
func (p BP) Index() uint32 {
	if p < 0 {
		return uint32(-p)
	}
	return uint32(p)
}

func (p BP) String() string {
	if p == TopBP {
		return "⊤"
	}
	if p == BotBP {
		return "⊥"
	}
	if p < 0 {
		return fmt.Sprintf("¬bp%d", -p)
	}
	return fmt.Sprintf("bp%d", p)
}

// VertexTag identifies the shape of a DAG vertex. Vertices are a closed
// set of tags dispatched by switch, not an open interface hierarchy: the
// DAG never needs a new tag without a corresponding change to every
// rule in the tableau engine, so there's nothing to gain from dynamic
// dispatch and a good deal of clarity to lose.
type VertexTag uint8

const (
	// TagTop marks the reserved ⊤ vertex at TopBP.
	TagTop VertexTag = iota
	// TagCName is a named atomic concept.
	TagCName
	// TagAnd is a conjunction of its Args.
	TagAnd
	// TagOr is a disjunction of its Args.
	TagOr
	// TagExists is ∃R.C: RoleArg is R, Args[0] is C.
	TagExists
	// TagForall is ∀R.C: RoleArg is R, Args[0] is C.
	TagForall
	// TagGE is ≥n R.C: N is n, RoleArg is R, Args[0] is C.
	TagGE
	// TagLE is ≤n R.C: N is n, RoleArg is R, Args[0] is C.
	TagLE
	// TagNominal is {a}: Individual names the nominal's individual.
	TagNominal
	// TagDatatype wraps an opaque datatype-reasoner expression.
	TagDatatype
	// TagCollection is a finite set of concepts used by oneOf-style
	// constructors; Args holds the members.
	TagCollection
	// TagProj is a role projection term used by role-chain expansion.
	TagProj
)

func (t VertexTag) String() string {
	switch t {
	case TagTop:
		return "Top"
	case TagCName:
		return "CName"
	case TagAnd:
		return "And"
	case TagOr:
		return "Or"
	case TagExists:
		return "Exists"
	case TagForall:
		return "Forall"
	case TagGE:
		return "GE"
	case TagLE:
		return "LE"
	case TagNominal:
		return "Nominal"
	case TagDatatype:
		return "Datatype"
	case TagCollection:
		return "Collection"
	case TagProj:
		return "Proj"
	default:
		return "Unknown"
	}
}

// Vertex is a single DAG node: a tagged record rather than an interface
// hierarchy, so the tableau engine can switch on Tag and read whichever
// fields that tag defines without a type assertion.
type Vertex struct {
	Tag VertexTag

	// Name is the interned name for TagCName (index into the concept
	// symbol table) and is unused otherwise.
	Name ConceptID

	// Args holds conjuncts/disjuncts (TagAnd/TagOr/TagCollection) or the
	// single filler concept (TagExists/TagForall/TagGE/TagLE).
	Args []BP

	// RoleArg is the role used by TagExists/TagForall/TagGE/TagLE/TagProj.
	RoleArg RoleID

	// N is the cardinality bound for TagGE/TagLE.
	N uint32

	// Individual names the nominal's individual for TagNominal.
	Individual IndividualID

	// Datatype carries an opaque payload consumed only by the pluggable
	// datatype reasoner; the tableau engine never inspects it itself.
	Datatype any

	// usedPositively/usedNegatively record whether this vertex's bp (or
	// its inverse) has ever been added to a node label, so the model
	// cache invalidation in the engine can be driven off real usage
	// rather than a full DAG walk.
	usedPositively bool
	usedNegatively bool

	// cachedModel is set the first time this vertex (used positively, as
	// a root query) is proved satisfiable; nil until then.
	cachedModel *ModelCache
}

// IsAtomic reports whether a vertex participates in the basic concept
// description (⊤, named concepts, nominals) — the vertices the model
// cache and query folding treat as "simple" leaves.
func (v *Vertex) IsAtomic() bool {
	switch v.Tag {
	case TagTop, TagCName, TagNominal:
		return true
	default:
		return false
	}
}
