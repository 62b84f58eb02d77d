package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dlkit/tableau/pkg/tableau"
	"gopkg.in/yaml.v3"
)

// ontologyDoc is the small YAML shape dlreasoner loads: enough concept,
// role, axiom and individual vocabulary to exercise every operation in
// the bulk axiom API without pulling in a full OWL/Manchester syntax
// parser, which spec.md §1 lists as an external collaborator.
type ontologyDoc struct {
	Concepts    []string           `yaml:"concepts"`
	Roles       []roleDecl         `yaml:"roles"`
	Individuals []individualDecl   `yaml:"individuals"`
	Axioms      ontologyAxiomsDoc  `yaml:"axioms"`
}

type roleDecl struct {
	Name        string `yaml:"name"`
	Inverse     string `yaml:"inverse"`
	Transitive  bool   `yaml:"transitive"`
	Symmetric   bool   `yaml:"symmetric"`
	Reflexive   bool   `yaml:"reflexive"`
	Irreflexive bool   `yaml:"irreflexive"`
	Functional  bool   `yaml:"functional"`
	Asymmetric  bool   `yaml:"asymmetric"`
	Domain      string `yaml:"domain"`
	Range       string `yaml:"range"`
}

type individualDecl struct {
	Name  string        `yaml:"name"`
	Types []string      `yaml:"types"`
	Facts []factDecl    `yaml:"facts"`
}

type factDecl struct {
	Role   string `yaml:"role"`
	Target string `yaml:"target"`
	Negate bool   `yaml:"negate"`
}

type ontologyAxiomsDoc struct {
	SubClassOf         []pairDecl   `yaml:"subClassOf"`
	EquivalentClasses  [][]string   `yaml:"equivalentClasses"`
	DisjointClasses    [][]string   `yaml:"disjointClasses"`
	RoleSubsumption    []pairDecl   `yaml:"roleSubsumption"`
	DifferentFrom      [][]string   `yaml:"differentFrom"`
	SameAs             [][]string   `yaml:"sameAs"`
}

type pairDecl struct {
	Sub   string `yaml:"sub"`
	Super string `yaml:"super"`
}

// loadOntologyFile reads and parses an ontology description, grounded
// on C360Studio-semspec's config.LoadFromFile shape (os.ReadFile then
// yaml.Unmarshal, wrapped errors).
func loadOntologyFile(path string) (*ontologyDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read ontology file: %w", err)
	}
	var doc ontologyDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse ontology file: %w", err)
	}
	return &doc, nil
}

// reasonerConfig is the CLI-facing mirror of tableau.Config, loaded
// from an optional --config YAML file and overridden by flags.
type reasonerConfig struct {
	Blocking string        `yaml:"blocking"`
	Timeout  time.Duration `yaml:"timeout"`
	Cache    string        `yaml:"model_cache"`
	Workers  int           `yaml:"workers"`
	ELFast   bool          `yaml:"el_fast_path"`
}

func defaultReasonerConfig() reasonerConfig {
	return reasonerConfig{Blocking: "anywhere", Timeout: 30 * time.Second, Cache: "set", Workers: 1, ELFast: true}
}

func loadReasonerConfigFile(path string) (reasonerConfig, error) {
	cfg := defaultReasonerConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

func (c reasonerConfig) toSessionConfig() (tableau.Config, error) {
	out := tableau.DefaultConfig()
	out.Timeout = c.Timeout
	out.Workers = c.Workers
	out.EnableELFastPath = c.ELFast
	switch c.Blocking {
	case "subset":
		out.Blocking = tableau.BlockSubset
	case "pairwise":
		out.Blocking = tableau.BlockPairwise
	case "anywhere", "":
		out.Blocking = tableau.BlockAnywhere
	default:
		return out, fmt.Errorf("unknown blocking mode %q", c.Blocking)
	}
	switch c.Cache {
	case "off":
		out.ModelCache = tableau.CacheOff
	case "singleton":
		out.ModelCache = tableau.CacheSingleton
	case "set", "":
		out.ModelCache = tableau.CacheSet
	default:
		return out, fmt.Errorf("unknown model cache mode %q", c.Cache)
	}
	return out, nil
}

// loadedOntology is a parsed ontology already asserted into a fresh
// Session, with its declared names resolved to bps/ids for the
// commands that take concept/role/individual names as arguments.
type loadedOntology struct {
	Session     *tableau.Session
	Concepts    map[string]tableau.BP
	Roles       map[string]tableau.RoleID
	Individuals map[string]tableau.IndividualID
}

// buildSession asserts every declaration and axiom in doc into a fresh
// Session built from cfg, in dependency order: concepts and roles
// first (so later axioms and individual facts can reference them),
// then axioms, then individuals.
func buildSession(doc *ontologyDoc, cfg reasonerConfig) (*loadedOntology, error) {
	sessionCfg, err := cfg.toSessionConfig()
	if err != nil {
		return nil, err
	}
	s := tableau.NewSession(sessionCfg)
	lo := &loadedOntology{
		Session:     s,
		Concepts:    make(map[string]tableau.BP, len(doc.Concepts)),
		Roles:       make(map[string]tableau.RoleID, len(doc.Roles)),
		Individuals: make(map[string]tableau.IndividualID, len(doc.Individuals)),
	}

	for _, name := range doc.Concepts {
		bp, err := s.Declare(name)
		if err != nil {
			return nil, fmt.Errorf("declare concept %q: %w", name, err)
		}
		lo.Concepts[name] = bp
	}
	concept := func(name string) (tableau.BP, error) {
		if bp, ok := lo.Concepts[name]; ok {
			return bp, nil
		}
		bp, err := s.Declare(name)
		if err != nil {
			return 0, fmt.Errorf("implicit concept %q: %w", name, err)
		}
		lo.Concepts[name] = bp
		return bp, nil
	}

	for _, rd := range doc.Roles {
		id, err := s.DeclareRole(rd.Name)
		if err != nil {
			return nil, fmt.Errorf("declare role %q: %w", rd.Name, err)
		}
		lo.Roles[rd.Name] = id
		if rd.Inverse != "" {
			inv, err := s.DeclareRole(rd.Inverse)
			if err != nil {
				return nil, fmt.Errorf("declare role %q: %w", rd.Inverse, err)
			}
			lo.Roles[rd.Inverse] = inv
			s.SetInverseRoles(id, inv)
		}
		if rd.Transitive {
			s.SetTransitive(id)
		}
		if rd.Symmetric {
			s.SetSymmetric(id)
		}
		if rd.Reflexive {
			s.SetReflexive(id)
		}
		if rd.Irreflexive {
			s.SetIrreflexive(id)
		}
		if rd.Functional {
			s.SetFunctionalRole(id)
		}
		if rd.Asymmetric {
			s.SetAsymmetricRole(id)
		}
		if rd.Domain != "" {
			c, err := concept(rd.Domain)
			if err != nil {
				return nil, err
			}
			s.SetDomain(id, c)
		}
		if rd.Range != "" {
			c, err := concept(rd.Range)
			if err != nil {
				return nil, err
			}
			s.SetRange(id, c)
		}
	}

	role := func(name string) (tableau.RoleID, error) {
		if id, ok := lo.Roles[name]; ok {
			return id, nil
		}
		id, err := s.DeclareRole(name)
		if err != nil {
			return 0, fmt.Errorf("implicit role %q: %w", name, err)
		}
		lo.Roles[name] = id
		return id, nil
	}

	for _, p := range doc.Axioms.SubClassOf {
		sub, err := concept(p.Sub)
		if err != nil {
			return nil, err
		}
		super, err := concept(p.Super)
		if err != nil {
			return nil, err
		}
		s.ImpliesConcepts(sub, super)
	}
	for _, grp := range doc.Axioms.EquivalentClasses {
		bps, err := conceptGroup(concept, grp)
		if err != nil {
			return nil, err
		}
		s.EqualConcepts(bps)
	}
	for _, grp := range doc.Axioms.DisjointClasses {
		bps, err := conceptGroup(concept, grp)
		if err != nil {
			return nil, err
		}
		s.DisjointConcepts(bps)
	}
	for _, p := range doc.Axioms.RoleSubsumption {
		sub, err := role(p.Sub)
		if err != nil {
			return nil, err
		}
		super, err := role(p.Super)
		if err != nil {
			return nil, err
		}
		s.ImpliesORoles(sub, super)
	}

	for _, ind := range doc.Individuals {
		id := s.InternIndividual(ind.Name)
		lo.Individuals[ind.Name] = id
		for _, tname := range ind.Types {
			c, err := concept(tname)
			if err != nil {
				return nil, err
			}
			s.InstanceOf(id, c, false)
		}
	}
	for _, ind := range doc.Individuals {
		aID := lo.Individuals[ind.Name]
		for _, f := range ind.Facts {
			r, err := role(f.Role)
			if err != nil {
				return nil, err
			}
			bID, ok := lo.Individuals[f.Target]
			if !ok {
				bID = s.InternIndividual(f.Target)
				lo.Individuals[f.Target] = bID
			}
			s.RelatedTo(aID, bID, r, f.Negate)
		}
	}
	for _, grp := range doc.Axioms.SameAs {
		ids, err := individualGroup(lo, s, grp)
		if err != nil {
			return nil, err
		}
		for i := 1; i < len(ids); i++ {
			s.Same(ids[0], ids[i])
		}
	}
	for _, grp := range doc.Axioms.DifferentFrom {
		ids, err := individualGroup(lo, s, grp)
		if err != nil {
			return nil, err
		}
		for i := 0; i < len(ids); i++ {
			for j := i + 1; j < len(ids); j++ {
				s.Different(ids[i], ids[j])
			}
		}
	}

	return lo, nil
}

func conceptGroup(concept func(string) (tableau.BP, error), names []string) ([]tableau.BP, error) {
	out := make([]tableau.BP, 0, len(names))
	for _, n := range names {
		bp, err := concept(n)
		if err != nil {
			return nil, err
		}
		out = append(out, bp)
	}
	return out, nil
}

func individualGroup(lo *loadedOntology, s *tableau.Session, names []string) ([]tableau.IndividualID, error) {
	out := make([]tableau.IndividualID, 0, len(names))
	for _, n := range names {
		id, ok := lo.Individuals[n]
		if !ok {
			id = s.InternIndividual(n)
			lo.Individuals[n] = id
		}
		out = append(out, id)
	}
	return out, nil
}
