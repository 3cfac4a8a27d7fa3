// Copyright © 2018-2020 Wei Shen <shenwei356@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package gambit

// IDAttrs names the genome-record columns a ReferenceSignatures.Meta.IDAttr
// may select as the join key between signature ids and genome records,
// per §6. Supplements spec.md with the upstream Genome.ID_ATTRS set.
var IDAttrs = []string{"key", "genbank_acc", "refseq_acc", "ncbi_id"}

// Genome is one reference genome row, keyed the way SignaturesMeta.IDAttr
// says signature ids are keyed. Supplements spec.md's data model with
// the genome identity fields original_source/db/models.py carries.
type Genome struct {
	Key        string
	GenbankAcc string
	RefseqAcc  string
	NCBIID     string
	Name       string
	Taxon      *Taxon
}

// ID returns the value of the given id attribute for this genome, or
// "" if attr isn't one of IDAttrs.
func (g Genome) ID(attr string) string {
	switch attr {
	case "key":
		return g.Key
	case "genbank_acc":
		return g.GenbankAcc
	case "refseq_acc":
		return g.RefseqAcc
	case "ncbi_id":
		return g.NCBIID
	default:
		return ""
	}
}

// AnnotatedGenome pairs a Genome with its index into a ReferenceSignatures
// (the row the Jaccard matrix computed a distance for).
type AnnotatedGenome struct {
	Genome
	SignatureIndex int
}

// JoinGenomesToSignatures pairs every row of refs with its genome record
// by resolving refs.Meta.IDAttr against Genome.ID, per §6's signature-
// id/genome join key — genome records and signature rows are never
// assumed to already share file/array order. The returned slice has
// exactly len(refs.IDs) entries, indexed (and with SignatureIndex set)
// to match refs.
//
// Returns KindIncompatibleDatabase if IDAttr isn't one of IDAttrs, or if
// any signature id fails to resolve to a genome (spec.md's "signature
// IDs not resolving to all referenced genomes").
func JoinGenomesToSignatures(genomes []AnnotatedGenome, refs ReferenceSignatures) ([]AnnotatedGenome, error) {
	attr := refs.Meta.IDAttr
	known := false
	for _, a := range IDAttrs {
		if a == attr {
			known = true
			break
		}
	}
	if !known {
		return nil, newErr(KindIncompatibleDatabase, "signature file id_attr %q is not a recognized genome column", attr)
	}

	byID := make(map[string]AnnotatedGenome, len(genomes))
	for _, g := range genomes {
		if id := g.ID(attr); id != "" {
			byID[id] = g
		}
	}

	joined := make([]AnnotatedGenome, len(refs.IDs))
	for i, id := range refs.IDs {
		g, ok := byID[id]
		if !ok {
			return nil, newErr(KindIncompatibleDatabase, "signature id %q does not resolve to any genome", id)
		}
		g.SignatureIndex = i
		joined[i] = g
	}
	return joined, nil
}

// ReferenceGenomeSet is the minimal genome-set identity round-tripped
// in the result archive, per §6 ("genomeset (key+version only)").
type ReferenceGenomeSet struct {
	Key         string
	Version     string
	Name        string
	Description string
}

// TaxonomyProvider is the read-only projection boundary of §6: the core
// consumes this interface and never talks to sqlite (or any relational
// store) directly — that access pattern is the explicit out-of-scope
// external collaborator from §1. ArenaTaxonomy (built over any Taxonomy
// arena) is the only implementation this repo ships; a
// sqlite-backed implementation is a deployment concern outside core
// scope.
type TaxonomyProvider interface {
	// IterGenomes returns every genome row with its resolved Taxon.
	IterGenomes() ([]AnnotatedGenome, error)
	// GetTaxon resolves a taxon by its stable key.
	GetTaxon(key string) (*Taxon, error)
	// Taxonomy exposes the underlying arena for LCA/ancestry walks.
	Taxonomy() *Taxonomy
}

// ArenaTaxonomy implements TaxonomyProvider directly over an in-memory
// Taxonomy arena plus a genome table. Only the tests construct one; the
// CLI subcommands use the Taxonomy and genomes that openDB loads.
type ArenaTaxonomy struct {
	tax     *Taxonomy
	genomes []AnnotatedGenome
}

// NewArenaTaxonomy pairs a Taxonomy arena with its genome assignments.
func NewArenaTaxonomy(tax *Taxonomy, genomes []AnnotatedGenome) *ArenaTaxonomy {
	return &ArenaTaxonomy{tax: tax, genomes: genomes}
}

func (a *ArenaTaxonomy) IterGenomes() ([]AnnotatedGenome, error) { return a.genomes, nil }

func (a *ArenaTaxonomy) GetTaxon(key string) (*Taxon, error) {
	t, ok := a.tax.ByKey(key)
	if !ok {
		return nil, newErr(KindIncompatibleDatabase, "no taxon with key %q", key)
	}
	return t, nil
}

func (a *ArenaTaxonomy) Taxonomy() *Taxonomy { return a.tax }
