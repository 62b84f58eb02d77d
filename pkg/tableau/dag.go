package tableau

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DAG is the hash-consed store of sub-expressions. Every syntactically
// distinct term is allocated exactly once; logically equal concepts
// built from equal sub-terms share one BP. The DAG is append-only: it
// never shrinks once classification begins, matching the "built once
// at load and read-only during reasoning" lifecycle.
//
// DAG is safe for the read-only access pattern used once a Session
// freezes its KB for reasoning (concurrent subsumption tests in the
// parallel classification driver only read vertices); Allocate itself
// is not safe for concurrent callers and must only be used while axioms
// are being declared.
type DAG struct {
	mu       sync.RWMutex
	vertices []Vertex          // index 0 unused, TopBP==1
	index    map[string]BP     // structural hash -> bp, for hash-consing
	named    map[ConceptID]BP  // concept id -> its TagCName bp
	nominal  map[IndividualID]BP

	// boundedCache backs CacheSet mode: a session that runs long
	// classification passes over a large TBox accumulates one cached
	// model per satisfiable concept, which grows unboundedly if left to
	// the per-vertex field below. When set, CachedModel/SetCachedModel
	// go through this LRU instead, evicting the least-recently-used
	// witness once the set grows past its bound rather than the vertex
	// field's unbounded growth (CacheSingleton mode, and the Off mode's
	// no-op, both leave boundedCache nil and keep the old behavior).
	boundedCache *lru.Cache[BP, *ModelCache]
}

// NewDAG returns a DAG with the reserved ⊤ vertex already allocated at
// TopBP.
func NewDAG() *DAG {
	d := &DAG{
		vertices: make([]Vertex, 2, 4096), // [0] unused, [1] = Top
		index:    make(map[string]BP, 4096),
		named:    make(map[ConceptID]BP, 256),
		nominal:  make(map[IndividualID]BP, 64),
	}
	d.vertices[TopBP] = Vertex{Tag: TagTop}
	return d
}

// structuralKey computes a hash-consing key for a candidate vertex. Two
// vertices with the same key are guaranteed structurally equal as far
// as the DAG is concerned (conjunction/disjunction argument order is
// treated as significant — normalization, if desired, happens in the
// expression manager external to this package).
func structuralKey(v Vertex) string {
	var b strings.Builder
	b.WriteString(v.Tag.String())
	b.WriteByte(':')
	switch v.Tag {
	case TagCName:
		b.WriteString(strconv.Itoa(int(v.Name)))
	case TagAnd, TagOr, TagCollection:
		for i, a := range v.Args {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Itoa(int(a)))
		}
	case TagExists, TagForall:
		b.WriteString(strconv.Itoa(int(v.RoleArg)))
		b.WriteByte('.')
		b.WriteString(strconv.Itoa(int(v.Args[0])))
	case TagGE, TagLE:
		b.WriteString(strconv.Itoa(int(v.N)))
		b.WriteByte('.')
		b.WriteString(strconv.Itoa(int(v.RoleArg)))
		b.WriteByte('.')
		b.WriteString(strconv.Itoa(int(v.Args[0])))
	case TagNominal:
		b.WriteString(strconv.Itoa(int(v.Individual)))
	case TagProj:
		b.WriteString(strconv.Itoa(int(v.RoleArg)))
		for _, a := range v.Args {
			b.WriteByte(',')
			b.WriteString(strconv.Itoa(int(a)))
		}
	case TagDatatype:
		b.WriteString(fmt.Sprintf("%v", v.Datatype))
	}
	return b.String()
}

// allocate inserts v (hash-consing it against any structurally equal
// existing vertex) and returns its positive BP. Callers must hold mu.
func (d *DAG) allocate(v Vertex) BP {
	key := structuralKey(v)
	if bp, ok := d.index[key]; ok {
		return bp
	}
	id := BP(len(d.vertices))
	d.vertices = append(d.vertices, v)
	d.index[key] = id
	return id
}

// Lookup returns the vertex addressed by bp, resolving negation: the
// returned Vertex is always the positive form, callers combine it with
// bp.IsNegated() to interpret it.
func (d *DAG) Lookup(bp BP) *Vertex {
	d.mu.RLock()
	defer d.mu.RUnlock()
	idx := bp.Index()
	if int(idx) >= len(d.vertices) {
		return nil
	}
	return &d.vertices[idx]
}

// Size returns the number of allocated vertices, including the
// reserved ⊤ slot.
func (d *DAG) Size() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.vertices)
}

// Top returns the bipolar pointer for ⊤.
func (d *DAG) Top() BP { return TopBP }

// Bottom returns the bipolar pointer for ⊥ (Inverse of Top).
func (d *DAG) Bottom() BP { return BotBP }

// CName returns (allocating if necessary) the bp for the named concept
// with the given interned id. Repeated calls with the same id return
// the same bp, so CName is itself the hash-consing point for named
// concepts.
func (d *DAG) CName(id ConceptID) BP {
	d.mu.Lock()
	defer d.mu.Unlock()
	if bp, ok := d.named[id]; ok {
		return bp
	}
	bp := d.allocate(Vertex{Tag: TagCName, Name: id})
	d.named[id] = bp
	return bp
}

// And returns the bp for the conjunction of args, stored as given: nested
// TagAnd vertices are not flattened, duplicates are not removed and the
// arguments are not sorted (argument order matters to structuralKey).
func (d *DAG) And(args ...BP) BP {
	if len(args) == 0 {
		return TopBP
	}
	if len(args) == 1 {
		return args[0]
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.allocate(Vertex{Tag: TagAnd, Args: append([]BP(nil), args...)})
}

// Or returns the bp for the disjunction of args.
func (d *DAG) Or(args ...BP) BP {
	if len(args) == 0 {
		return BotBP
	}
	if len(args) == 1 {
		return args[0]
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.allocate(Vertex{Tag: TagOr, Args: []BP{args[0]}}.extend(args[1:]))
}

// extend is a tiny helper so Or's allocate call reads linearly; it
// rebuilds Args to include every argument.
func (v Vertex) extend(rest []BP) Vertex {
	v.Args = append(append([]BP(nil), v.Args...), rest...)
	return v
}

// Exists returns the bp for ∃role.filler.
func (d *DAG) Exists(role RoleID, filler BP) BP {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.allocate(Vertex{Tag: TagExists, RoleArg: role, Args: []BP{filler}})
}

// Forall returns the bp for ∀role.filler.
func (d *DAG) Forall(role RoleID, filler BP) BP {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.allocate(Vertex{Tag: TagForall, RoleArg: role, Args: []BP{filler}})
}

// AtLeast returns the bp for ≥n role.filler.
func (d *DAG) AtLeast(n uint32, role RoleID, filler BP) BP {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.allocate(Vertex{Tag: TagGE, N: n, RoleArg: role, Args: []BP{filler}})
}

// AtMost returns the bp for ≤n role.filler.
func (d *DAG) AtMost(n uint32, role RoleID, filler BP) BP {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.allocate(Vertex{Tag: TagLE, N: n, RoleArg: role, Args: []BP{filler}})
}

// Nominal returns the bp for the singleton concept {ind}.
func (d *DAG) Nominal(ind IndividualID) BP {
	d.mu.Lock()
	defer d.mu.Unlock()
	if bp, ok := d.nominal[ind]; ok {
		return bp
	}
	bp := d.allocate(Vertex{Tag: TagNominal, Individual: ind})
	d.nominal[ind] = bp
	return bp
}

// Datatype returns the bp wrapping an opaque datatype-reasoner payload.
func (d *DAG) Datatype(payload any) BP {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.allocate(Vertex{Tag: TagDatatype, Datatype: payload})
}

// MarkUsed records that bp was added to some node's label, with sign
// polarity, so the model cache invalidation logic in the engine can
// tell which vertices have ever actually participated in a completion
// graph.
func (d *DAG) MarkUsed(bp BP) {
	d.mu.Lock()
	defer d.mu.Unlock()
	idx := bp.Index()
	if int(idx) >= len(d.vertices) {
		return
	}
	if bp.IsNegated() {
		d.vertices[idx].usedNegatively = true
	} else {
		d.vertices[idx].usedPositively = true
	}
}

// EnableBoundedModelCache switches the DAG to CacheSet mode: cached
// models are kept in an LRU of the given size instead of growing one
// per vertex forever. Calling it after models have already been cached
// under the unbounded scheme starts the LRU empty; those models are
// simply recomputed next time they're needed, which is always safe
// since a cached model is a witness, never a requirement.
func (d *DAG) EnableBoundedModelCache(size int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, err := lru.New[BP, *ModelCache](size)
	if err != nil {
		// Only returns an error for size <= 0; fall back to unbounded
		// rather than leave the DAG in a half-configured state.
		return
	}
	d.boundedCache = c
}

// CachedModel returns the model cached for bp's positive vertex, if any.
func (d *DAG) CachedModel(bp BP) *ModelCache {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.boundedCache != nil {
		mc, _ := d.boundedCache.Get(bp)
		return mc
	}
	idx := bp.Index()
	if int(idx) >= len(d.vertices) {
		return nil
	}
	return d.vertices[idx].cachedModel
}

// SetCachedModel attaches mc to bp's positive vertex. Cached models are
// immutable once attached; SetCachedModel is a no-op if one is already
// present, matching "created lazily the first time a concept is proved
// satisfiable."
func (d *DAG) SetCachedModel(bp BP, mc *ModelCache) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.boundedCache != nil {
		if _, ok := d.boundedCache.Get(bp); !ok {
			d.boundedCache.Add(bp, mc)
		}
		return
	}
	idx := bp.Index()
	if int(idx) >= len(d.vertices) {
		return
	}
	if d.vertices[idx].cachedModel == nil {
		d.vertices[idx].cachedModel = mc
	}
}
