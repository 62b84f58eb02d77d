package tableau

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"io"
)

// Persisted-state format (spec.md §6, 4.M): a fixed 16-byte header
// followed by encoding/gob-encoded sections in declaration order:
// options, role master, DAG, taxonomy (if classified), KB status.
// encoding/gob is used rather than a third-party codec because every
// section here is a private, in-process Go value with no cross-language
// consumer and no schema-evolution requirement beyond formatVersion
// itself — see DESIGN.md for the fuller reasoning against adopting a
// pack library for this footprint.
const (
	persistMagic        = "DLKB"
	persistFormatVersion = uint32(1)
)

type persistHeader struct {
	Magic    [4]byte
	Version  uint32
	Flags    uint32
	Reserved uint32
}

func (h persistHeader) write(w io.Writer) error {
	var buf [16]byte
	copy(buf[0:4], h.Magic[:])
	binary.BigEndian.PutUint32(buf[4:8], h.Version)
	binary.BigEndian.PutUint32(buf[8:12], h.Flags)
	binary.BigEndian.PutUint32(buf[12:16], h.Reserved)
	_, err := w.Write(buf[:])
	return err
}

func readPersistHeader(r io.Reader) (persistHeader, error) {
	var buf [16]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return persistHeader{}, fmt.Errorf("read persist header: %w", err)
	}
	var h persistHeader
	copy(h.Magic[:], buf[0:4])
	h.Version = binary.BigEndian.Uint32(buf[4:8])
	h.Flags = binary.BigEndian.Uint32(buf[8:12])
	h.Reserved = binary.BigEndian.Uint32(buf[12:16])
	return h, nil
}

// vertexDTO is the gob-encodable projection of a Vertex: the shape
// needed to reconstruct the DAG, omitting the ephemeral usage flags and
// cached model, which are per-process reasoning artifacts, not part of
// the persisted knowledge base.
type vertexDTO struct {
	Tag        VertexTag
	Name       ConceptID
	Args       []BP
	RoleArg    RoleID
	N          uint32
	Individual IndividualID
}

type dagDTO struct {
	Vertices []vertexDTO
	Named    map[ConceptID]BP
	Nominal  map[IndividualID]BP

	// GCIList and GlobalAxiom carry the session's internalized TBox
	// state — derived entirely from bps already in Vertices, but needed
	// so a reloaded session doesn't silently lose every general concept
	// inclusion asserted before Save.
	GCIList     []BP
	GlobalAxiom BP
}

type roleDTO struct {
	ID           RoleID
	Name         string
	Inverse      RoleID
	Parents      []RoleID
	Transitive   bool
	Symmetric    bool
	Reflexive    bool
	Irreflexive  bool
	Functional   bool
	Asymmetric   bool
	DataRole     bool
	DisjointWith []RoleID
}

type roleHierarchyDTO struct {
	Roles  []roleDTO
	Closed bool
}

type symbolTableDTO struct {
	ConceptNames    []string
	RoleNames       []string
	IndividualNames []string
}

type taxonomyEdgeDTO struct{ Concept, Parent BP }

type taxonomyDTO struct {
	Concepts []BP
	Edges    []taxonomyEdgeDTO
}

type kbStatusDTO struct {
	Inconsistent bool
	Poisoned     string // empty means not poisoned
}

// Save writes a header-checked snapshot of the session's KB — its
// configuration, role hierarchy, symbol table, DAG, last classification
// result (if any), and consistency status — to w. Save does not persist
// staged-but-unconsumed ABox facts mid-transaction; call it once the KB
// is in the state you want restored.
func (s *Session) Save(w io.Writer) error {
	header := persistHeader{Version: persistFormatVersion}
	copy(header.Magic[:], persistMagic)
	if err := header.write(w); err != nil {
		return fmt.Errorf("persist: write header: %w", err)
	}

	enc := gob.NewEncoder(w)
	if err := enc.Encode(s.cfg); err != nil {
		return fmt.Errorf("persist: encode options: %w", err)
	}
	if err := enc.Encode(s.roleHierarchyDTO()); err != nil {
		return fmt.Errorf("persist: encode role master: %w", err)
	}
	if err := enc.Encode(s.symbolTableDTO()); err != nil {
		return fmt.Errorf("persist: encode symbol table: %w", err)
	}
	if err := enc.Encode(s.dagDTO()); err != nil {
		return fmt.Errorf("persist: encode dag: %w", err)
	}
	hasTax := s.taxonomy != nil
	if err := enc.Encode(hasTax); err != nil {
		return fmt.Errorf("persist: encode taxonomy flag: %w", err)
	}
	if hasTax {
		if err := enc.Encode(s.taxonomyDTO()); err != nil {
			return fmt.Errorf("persist: encode taxonomy: %w", err)
		}
	}
	status := kbStatusDTO{Inconsistent: s.inconsistent}
	if s.poisoned != nil {
		status.Poisoned = s.poisoned.Error()
	}
	if err := enc.Encode(status); err != nil {
		return fmt.Errorf("persist: encode kb status: %w", err)
	}
	return nil
}

// LoadSession reads a snapshot written by Save and reconstructs a
// Session from it. Load rejects any header whose magic or
// formatVersion doesn't match the running binary's constants, per
// spec.md's "Load rejects any header mismatch" — a mismatch is a
// caller error (wrong file, incompatible version), not a KB
// inconsistency, so it returns a plain error rather than
// ErrInconsistentKB.
func LoadSession(r io.Reader) (*Session, error) {
	header, err := readPersistHeader(r)
	if err != nil {
		return nil, err
	}
	if string(header.Magic[:]) != persistMagic {
		return nil, fmt.Errorf("persist: bad magic %q, want %q", header.Magic, persistMagic)
	}
	if header.Version != persistFormatVersion {
		return nil, fmt.Errorf("persist: format version %d, this binary supports %d", header.Version, persistFormatVersion)
	}

	dec := gob.NewDecoder(r)
	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("persist: decode options: %w", err)
	}
	s := NewSession(cfg)

	var rhDTO roleHierarchyDTO
	if err := dec.Decode(&rhDTO); err != nil {
		return nil, fmt.Errorf("persist: decode role master: %w", err)
	}
	s.restoreRoleHierarchy(rhDTO)

	var stDTO symbolTableDTO
	if err := dec.Decode(&stDTO); err != nil {
		return nil, fmt.Errorf("persist: decode symbol table: %w", err)
	}
	s.restoreSymbolTable(stDTO)

	var dDTO dagDTO
	if err := dec.Decode(&dDTO); err != nil {
		return nil, fmt.Errorf("persist: decode dag: %w", err)
	}
	s.restoreDAG(dDTO)

	var hasTax bool
	if err := dec.Decode(&hasTax); err != nil {
		return nil, fmt.Errorf("persist: decode taxonomy flag: %w", err)
	}
	if hasTax {
		var taxDTO taxonomyDTO
		if err := dec.Decode(&taxDTO); err != nil {
			return nil, fmt.Errorf("persist: decode taxonomy: %w", err)
		}
		s.taxonomy = restoreTaxonomy(taxDTO)
	}

	var status kbStatusDTO
	if err := dec.Decode(&status); err != nil {
		return nil, fmt.Errorf("persist: decode kb status: %w", err)
	}
	s.inconsistent = status.Inconsistent
	if status.Poisoned != "" {
		s.poisoned = fmt.Errorf("%s", status.Poisoned)
	}
	s.closedRoles = rhDTO.Closed

	return s, nil
}

func (s *Session) roleHierarchyDTO() roleHierarchyDTO {
	out := roleHierarchyDTO{Closed: s.rh.closed}
	for i, r := range s.rh.roles {
		if i == 0 {
			out.Roles = append(out.Roles, roleDTO{})
			continue
		}
		dto := roleDTO{
			ID: r.ID, Name: r.Name, Inverse: r.inverse,
			Parents:     append([]RoleID(nil), r.parents...),
			Transitive:  r.transitive,
			Symmetric:   r.symmetric,
			Reflexive:   r.reflexive,
			Irreflexive: r.irreflexive,
			Functional:  r.functional,
			Asymmetric:  r.asymmetric,
			DataRole:    r.dataRole,
		}
		for j := range s.rh.roles {
			if r.disjointWith.Has(RoleID(j)) {
				dto.DisjointWith = append(dto.DisjointWith, RoleID(j))
			}
		}
		out.Roles = append(out.Roles, dto)
	}
	return out
}

func (s *Session) restoreRoleHierarchy(dto roleHierarchyDTO) {
	rh := &RoleHierarchy{
		roles:  make([]Role, len(dto.Roles)),
		byName: make(map[string]RoleID, len(dto.Roles)),
	}
	for i, d := range dto.Roles {
		if i == 0 {
			continue
		}
		rh.roles[i] = Role{
			ID: d.ID, Name: d.Name, inverse: d.Inverse,
			parents:     append([]RoleID(nil), d.Parents...),
			transitive:  d.Transitive,
			symmetric:   d.Symmetric,
			reflexive:   d.Reflexive,
			irreflexive: d.Irreflexive,
			functional:  d.Functional,
			asymmetric:  d.Asymmetric,
			dataRole:    d.DataRole,
		}
		rh.byName[d.Name] = d.ID
		for _, o := range d.DisjointWith {
			rh.roles[i].disjointWith.Set(o)
		}
	}
	if len(rh.roles) > 1 {
		rh.universalRole = 1
	}
	if dto.Closed {
		rh.Close()
	}
	s.rh = rh
}

func (s *Session) symbolTableDTO() symbolTableDTO {
	return symbolTableDTO{
		ConceptNames:    append([]string(nil), s.st.conceptNames...),
		RoleNames:       append([]string(nil), s.st.roleNames...),
		IndividualNames: append([]string(nil), s.st.individualNames...),
	}
}

func (s *Session) restoreSymbolTable(dto symbolTableDTO) {
	st := NewSymbolTable()
	for _, name := range dto.ConceptNames[1:] {
		st.InternConcept(name)
	}
	for _, name := range dto.RoleNames[1:] {
		st.InternRole(name)
	}
	for _, name := range dto.IndividualNames[1:] {
		st.InternIndividual(name)
	}
	s.st = st
}

func (s *Session) dagDTO() dagDTO {
	out := dagDTO{
		Named:   make(map[ConceptID]BP, len(s.dag.named)),
		Nominal: make(map[IndividualID]BP, len(s.dag.nominal)),
	}
	for i, v := range s.dag.vertices {
		if i == 0 {
			out.Vertices = append(out.Vertices, vertexDTO{})
			continue
		}
		out.Vertices = append(out.Vertices, vertexDTO{
			Tag: v.Tag, Name: v.Name,
			Args: append([]BP(nil), v.Args...),
			RoleArg: v.RoleArg, N: v.N, Individual: v.Individual,
		})
	}
	for k, v := range s.dag.named {
		out.Named[k] = v
	}
	for k, v := range s.dag.nominal {
		out.Nominal[k] = v
	}
	out.GCIList = append([]BP(nil), s.gciList...)
	out.GlobalAxiom = s.globalAxiom
	return out
}

func (s *Session) restoreDAG(dto dagDTO) {
	d := &DAG{
		vertices: make([]Vertex, len(dto.Vertices)),
		index:    make(map[string]BP, len(dto.Vertices)),
		named:    make(map[ConceptID]BP, len(dto.Named)),
		nominal:  make(map[IndividualID]BP, len(dto.Nominal)),
	}
	for i, v := range dto.Vertices {
		if i == 0 {
			continue
		}
		d.vertices[i] = Vertex{
			Tag: v.Tag, Name: v.Name, Args: v.Args,
			RoleArg: v.RoleArg, N: v.N, Individual: v.Individual,
		}
		d.index[structuralKey(d.vertices[i])] = BP(i)
	}
	for k, v := range dto.Named {
		d.named[k] = v
	}
	for k, v := range dto.Nominal {
		d.nominal[k] = v
	}
	s.dag = d
	s.gciList = append([]BP(nil), dto.GCIList...)
	s.globalAxiom = dto.GlobalAxiom
	s.applyCacheMode()
}

func (s *Session) taxonomyDTO() taxonomyDTO {
	out := taxonomyDTO{Concepts: append([]BP(nil), s.taxonomy.Concepts()...)}
	s.taxonomy.Walk(func(concept, subsumer BP) {
		out.Edges = append(out.Edges, taxonomyEdgeDTO{Concept: concept, Parent: subsumer})
	})
	return out
}

func restoreTaxonomy(dto taxonomyDTO) *Taxonomy {
	tax := newTaxonomy(dto.Concepts)
	for _, e := range dto.Edges {
		if n := tax.nodes[e.Concept]; n != nil {
			n.Parents = append(n.Parents, e.Parent)
		}
		if n := tax.nodes[e.Parent]; n != nil {
			n.Children = append(n.Children, e.Concept)
		}
	}
	return tax
}

// SaveBytes and LoadSessionBytes are the in-memory convenience wrappers
// the persistence round-trip test (spec.md §8) uses instead of juggling
// *os.File directly.
func (s *Session) SaveBytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := s.Save(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func LoadSessionBytes(b []byte) (*Session, error) {
	return LoadSession(bytes.NewReader(b))
}
