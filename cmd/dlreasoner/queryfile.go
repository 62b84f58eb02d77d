package main

import (
	"fmt"
	"os"

	"github.com/dlkit/tableau/pkg/tableau"
	"gopkg.in/yaml.v3"
)

// queryFileDoc is the YAML shape a conjunctive query file parses into:
// a named root individual plus the role/concept atoms query.go folds.
type queryFileDoc struct {
	Individual string         `yaml:"individual"`
	Root       string         `yaml:"root"`
	Free       []string       `yaml:"free"`
	RoleAtoms  []roleAtomDoc  `yaml:"roleAtoms"`
	ConceptAtoms []conceptAtomDoc `yaml:"conceptAtoms"`
}

type roleAtomDoc struct {
	Role string `yaml:"role"`
	X    string `yaml:"x"`
	Y    string `yaml:"y"`
}

type conceptAtomDoc struct {
	Concept string `yaml:"concept"`
	X       string `yaml:"x"`
}

func loadQueryFile(path string) (*queryFileDoc, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read query file: %w", err)
	}
	var doc queryFileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse query file: %w", err)
	}
	return &doc, nil
}

// toQuery resolves doc's role/concept names against lo's declared
// vocabulary and builds the tableau.Query + root variable/individual
// Session.Query needs.
func (doc *queryFileDoc) toQuery(lo *loadedOntology) (*tableau.Query, tableau.QueryVar, tableau.IndividualID, error) {
	q := &tableau.Query{Free: make(map[tableau.QueryVar]bool, len(doc.Free))}
	for _, v := range doc.Free {
		q.Free[tableau.QueryVar(v)] = true
	}
	for _, ra := range doc.RoleAtoms {
		r, ok := lo.Roles[ra.Role]
		if !ok {
			return nil, "", 0, fmt.Errorf("unknown role %q in query", ra.Role)
		}
		q.RoleAtoms = append(q.RoleAtoms, tableau.RoleAtom{Role: r, X: tableau.QueryVar(ra.X), Y: tableau.QueryVar(ra.Y)})
	}
	for _, ca := range doc.ConceptAtoms {
		c, ok := lo.Concepts[ca.Concept]
		if !ok {
			return nil, "", 0, fmt.Errorf("unknown concept %q in query", ca.Concept)
		}
		q.ConceptAtoms = append(q.ConceptAtoms, tableau.ConceptAtom{Concept: c, X: tableau.QueryVar(ca.X)})
	}
	ind, ok := lo.Individuals[doc.Individual]
	if !ok {
		return nil, "", 0, fmt.Errorf("unknown individual %q in query", doc.Individual)
	}
	return q, tableau.QueryVar(doc.Root), ind, nil
}
