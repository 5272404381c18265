package models

import (
	"fmt"
	"strings"
)

// PeptideHit is the best-scoring peptide match reported for one query.
type PeptideHit struct {
	Sequence         string
	ModifiedSequence string
	IonsScore        float64
	Expect           float64
	CalcMass         float64
	Delta            float64
	MissedCleavages  int
	Proteins         []string
}

// Identification annotates a row with a peptide match.
type Identification struct {
	Name             string   `json:"name"`
	Method           string   `json:"method"`
	Query            int      `json:"query"`
	Sequence         string   `json:"sequence"`
	ModifiedSequence string   `json:"modified_sequence,omitempty"`
	IonsScore        float64  `json:"ions_score"`
	Expect           float64  `json:"expect"`
	CalcMass         float64  `json:"calc_mass"`
	Delta            float64  `json:"delta"`
	MissedCleavages  int      `json:"missed_cleavages"`
	Proteins         []string `json:"proteins,omitempty"`
}

// IdentificationMethod labels identifications produced by a Mascot search.
const IdentificationMethod = "Mascot MS/MS search"

// NewIdentification builds an [Identification] from the best hit of query.
func NewIdentification(query int, hit *PeptideHit) Identification {
	proteins := make([]string, len(hit.Proteins))
	copy(proteins, hit.Proteins)

	return Identification{
		Name:             hit.Sequence,
		Method:           IdentificationMethod,
		Query:            query,
		Sequence:         hit.Sequence,
		ModifiedSequence: hit.ModifiedSequence,
		IonsScore:        hit.IonsScore,
		Expect:           hit.Expect,
		CalcMass:         hit.CalcMass,
		Delta:            hit.Delta,
		MissedCleavages:  hit.MissedCleavages,
		Proteins:         proteins,
	}
}

// String renders "SEQUENCE (score 42.1, P12345;P67890)".
func (i Identification) String() string {
	s := fmt.Sprintf("%s (score %.1f", i.Sequence, i.IonsScore)
	if len(i.Proteins) > 0 {
		s += ", " + strings.Join(i.Proteins, ";")
	}
	return s + ")"
}
