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

import (
	"math"
	"sort"
	"strings"
)

// GenomeMatch reports the distance from a query to one reference
// genome and the taxon that distance alone would predict, per §3.
type GenomeMatch struct {
	Genome       AnnotatedGenome
	Distance     float32
	MatchedTaxon *Taxon
}

// NextTaxon returns the next-more-specific taxon in the matched
// genome's ancestry whose threshold the query just missed — the taxon
// the query "just missed" — or nil if the match is already at the leaf.
// Direct port of GenomeMatch.next_taxon from original_source/classify.py.
func (t *Taxonomy) NextTaxon(m GenomeMatch) *Taxon {
	var lo *Taxon
	hi := m.Genome.Taxon
	for hi != nil {
		if hi.HasThreshold && m.Distance <= hi.DistanceThreshold {
			return lo
		}
		lo = hi
		hi = t.Parent(hi)
		for hi != nil && !hi.HasThreshold {
			hi = t.Parent(hi)
		}
	}
	return lo
}

// ClassifierResult is the outcome of classifying a single query genome
// against a reference collection, per §3/§4.5.
type ClassifierResult struct {
	Success        bool
	PredictedTaxon *Taxon
	PrimaryMatch   *GenomeMatch
	ClosestMatch   GenomeMatch
	NextTaxon      *Taxon
	Warnings       []string
	Error          string
}

// ReportTaxon is reportable_taxon(PredictedTaxon): the user-facing
// taxon, walking up from PredictedTaxon to the first ancestor with
// Report=true.
func (r ClassifierResult) ReportTaxon(tax *Taxonomy) *Taxon {
	if r.PredictedTaxon == nil {
		return nil
	}
	return ReportableTaxon(tax, r.PredictedTaxon)
}

// MatchingTaxon walks from taxon toward the root and returns the most
// specific ancestor (including taxon itself) whose DistanceThreshold is
// defined and >= d; nil if none qualifies. Per §4.5 matching_taxon.
func MatchingTaxon(tax *Taxonomy, taxon *Taxon, d float32) *Taxon {
	for cur := taxon; cur != nil; cur = tax.Parent(cur) {
		if cur.HasThreshold && d <= cur.DistanceThreshold {
			return cur
		}
	}
	return nil
}

// ReportableTaxon walks from taxon toward the root and returns the
// first ancestor (including taxon itself) with Report=true; nil if
// none. Per §4.5 reportable_taxon.
func ReportableTaxon(tax *Taxonomy, taxon *Taxon) *Taxon {
	for cur := taxon; cur != nil; cur = tax.Parent(cur) {
		if cur.Report {
			return cur
		}
	}
	return nil
}

// findMatches maps each matched taxon to the indices of the genomes
// that matched it, per §4.5's find_matches.
func findMatches(tax *Taxonomy, refs []AnnotatedGenome, dists []float32) map[*Taxon][]int {
	matches := make(map[*Taxon][]int)
	for i, g := range refs {
		if m := MatchingTaxon(tax, g.Taxon, dists[i]); m != nil {
			matches[m] = append(matches[m], i)
		}
	}
	return matches
}

// ancestry returns taxon and its ancestors, closest first (bottom to top).
func ancestry(tax *Taxonomy, taxon *Taxon) []*Taxon {
	out := []*Taxon{taxon}
	for cur := tax.Parent(taxon); cur != nil; cur = tax.Parent(cur) {
		out = append(out, cur)
	}
	return out
}

func indexOfTaxon(trunk []*Taxon, t *Taxon) int {
	for i, x := range trunk {
		if x.id == t.id {
			return i
		}
	}
	return -1
}

func containsTaxon(trunk []*Taxon, t *Taxon) bool {
	return indexOfTaxon(trunk, t) >= 0
}

// consensusTaxon reduces a set of matched taxa to a single consensus
// ancestor, per §4.5's strict-mode reduction: if every matched taxon
// lies in one lineage the most specific is the consensus; otherwise the
// lowest common ancestor across all of them. Returns (nil, all) if no
// common ancestor exists anywhere in the forest. Direct port of
// original_source/classify.py's consensus_taxon trunk algorithm.
func consensusTaxon(tax *Taxonomy, taxa []*Taxon) (*Taxon, map[*Taxon]bool) {
	if len(taxa) == 0 {
		return nil, map[*Taxon]bool{}
	}

	trunk := ancestry(tax, taxa[0])

	for _, taxon := range taxa[1:] {
		if containsTaxon(trunk, taxon) {
			continue
		}

		found := false
		for _, a := range ancestry(tax, taxon)[1:] { // ancestors only, not taxon itself
			i := indexOfTaxon(trunk, a)
			if i < 0 {
				continue
			}
			if i == 0 {
				trunk = ancestry(tax, taxon)
			} else {
				trunk = trunk[i:]
			}
			found = true
			break
		}
		if !found {
			all := make(map[*Taxon]bool, len(taxa))
			for _, t := range taxa {
				all[t] = true
			}
			return nil, all
		}
	}

	others := make(map[*Taxon]bool)
	for _, t := range taxa {
		if !containsTaxon(trunk, t) {
			others[t] = true
		}
	}
	return trunk[0], others
}

// Classify predicts the taxonomy of one query genome from its distance
// to every reference genome, per §4.5. refGenomes and dists must be the
// same length and non-empty; dists must be finite and non-negative.
func Classify(tax *Taxonomy, refGenomes []AnnotatedGenome, dists []float32, strict bool) (ClassifierResult, error) {
	if len(refGenomes) == 0 {
		return ClassifierResult{}, newErr(KindInvalidInput, "empty reference genome set")
	}
	if len(refGenomes) != len(dists) {
		return ClassifierResult{}, newErr(KindInvalidInput, "ref_genomes and dists length mismatch")
	}
	closest := 0
	for i, d := range dists {
		if math.IsNaN(float64(d)) || d < 0 {
			return ClassifierResult{}, newErr(KindInvalidInput, "invalid distance at index %d: %v", i, d)
		}
		if d < dists[closest] {
			closest = i
		}
	}

	closestMatch := GenomeMatch{
		Genome:       refGenomes[closest],
		Distance:     dists[closest],
		MatchedTaxon: MatchingTaxon(tax, refGenomes[closest].Taxon, dists[closest]),
	}
	if !strict {
		result := ClassifierResult{
			Success:        true,
			PredictedTaxon: closestMatch.MatchedTaxon,
			ClosestMatch:   closestMatch,
		}
		if closestMatch.MatchedTaxon != nil {
			m := closestMatch
			result.PrimaryMatch = &m
		}
		result.NextTaxon = tax.NextTaxon(closestMatch)
		return result, nil
	}

	matches := findMatches(tax, refGenomes, dists)
	if len(matches) == 0 {
		return ClassifierResult{
			Success:      true,
			ClosestMatch: closestMatch,
			NextTaxon:    tax.NextTaxon(closestMatch),
		}, nil
	}

	matchedTaxa := make([]*Taxon, 0, len(matches))
	for t := range matches {
		matchedTaxa = append(matchedTaxa, t)
	}
	sort.Slice(matchedTaxa, func(i, j int) bool { return matchedTaxa[i].Key < matchedTaxa[j].Key })

	consensus, others := consensusTaxon(tax, matchedTaxa)

	var primaryMatch *GenomeMatch
	if consensus != nil {
		bestIdx := -1
		var bestDist float32 = float32(math.Inf(1))
		var bestTaxon *Taxon
		for taxon, idxs := range matches {
			if !tax.IsAncestor(consensus, taxon) {
				continue
			}
			for _, i := range idxs {
				if dists[i] < bestDist {
					bestIdx, bestDist, bestTaxon = i, dists[i], taxon
				}
			}
		}
		if bestIdx >= 0 {
			primaryMatch = &GenomeMatch{Genome: refGenomes[bestIdx], Distance: bestDist, MatchedTaxon: bestTaxon}
		}
	}

	result := ClassifierResult{
		Success:        true,
		PredictedTaxon: consensus,
		PrimaryMatch:   primaryMatch,
		ClosestMatch:   closestMatch,
		NextTaxon:      tax.NextTaxon(closestMatch),
	}

	if len(others) > 0 {
		names := make([]string, 0, len(others))
		for t := range others {
			names = append(names, t.Key)
		}
		sort.Strings(names)
		result.Warnings = append(result.Warnings,
			"Query matched "+itoa(len(others))+" inconsistent taxa: "+strings.Join(names, ", ")+
				". Reporting lowest common ancestor of this set.")
	}

	if consensus == nil {
		result.Success = false
		result.Error = "Matched taxa have no common ancestor."
	}

	if primaryMatch != nil && primaryMatch.Genome.Key != closestMatch.Genome.Key {
		result.Warnings = append(result.Warnings, "Primary genome match is not closest match.")
	}

	return result, nil
}
