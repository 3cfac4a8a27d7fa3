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

import "testing"

func TestMatchingTaxonWalksToMostSpecific(t *testing.T) {
	tax := buildTestTaxonomy(t)
	a1, _ := tax.ByKey("A1")
	if m := MatchingTaxon(tax, a1, 0.05); m == nil || m.Key != "A1" {
		t.Fatalf("MatchingTaxon(A1, 0.05) = %v, want A1", m)
	}
	if m := MatchingTaxon(tax, a1, 0.5); m == nil || m.Key != "A" {
		t.Fatalf("MatchingTaxon(A1, 0.5) = %v, want A (A1's own threshold misses, A's doesn't)", m)
	}
	if m := MatchingTaxon(tax, a1, 5.0); m != nil {
		t.Fatalf("MatchingTaxon(A1, 5.0) = %v, want nil", m)
	}
}

func TestReportableTaxonSkipsUnreported(t *testing.T) {
	tax := buildTestTaxonomy(t)
	a2, _ := tax.ByKey("A2") // Report=false
	if r := ReportableTaxon(tax, a2); r == nil || r.Key != "A" {
		t.Fatalf("ReportableTaxon(A2) = %v, want A (A2 itself isn't reportable)", r)
	}
}

func TestConsensusTaxonSingleton(t *testing.T) {
	tax := buildTestTaxonomy(t)
	a1, _ := tax.ByKey("A1")
	consensus, others := consensusTaxon(tax, []*Taxon{a1})
	if consensus != a1 {
		t.Fatalf("consensusTaxon([t]) = %v, want t", consensus)
	}
	if len(others) != 0 {
		t.Fatalf("consensusTaxon([t]) others = %v, want empty", others)
	}
}

func TestConsensusTaxonSingleLineagePicksMostSpecific(t *testing.T) {
	tax := buildTestTaxonomy(t)
	a, _ := tax.ByKey("A")
	a1, _ := tax.ByKey("A1")
	consensus, others := consensusTaxon(tax, []*Taxon{a, a1})
	if consensus == nil || consensus.Key != "A1" {
		t.Fatalf("consensusTaxon({A,A1}) = %v, want A1", consensus)
	}
	if len(others) != 0 {
		t.Fatalf("single-lineage consensus must leave no stragglers, got %v", others)
	}
}

func TestConsensusTaxonDisjointFallsBackToLCA(t *testing.T) {
	tax := buildTestTaxonomy(t)
	a1, _ := tax.ByKey("A1")
	b1, _ := tax.ByKey("B1")
	consensus, others := consensusTaxon(tax, []*Taxon{a1, b1})
	if consensus == nil || consensus.Key != "root" {
		t.Fatalf("consensusTaxon({A1,B1}) = %v, want root", consensus)
	}
	if len(others) != 2 {
		t.Fatalf("expected both taxa reported as stragglers, got %v", others)
	}
}

func TestConsensusTaxonNoCommonAncestor(t *testing.T) {
	tax := NewTaxonomy()
	tax.AddTaxon("x", "X", "genus", false, 0, true, "")
	tax.AddTaxon("y", "Y", "genus", false, 0, true, "")
	x, _ := tax.ByKey("x")
	y, _ := tax.ByKey("y")
	consensus, others := consensusTaxon(tax, []*Taxon{x, y})
	if consensus != nil {
		t.Fatalf("consensusTaxon across disjoint trees = %v, want nil", consensus)
	}
	if len(others) != 2 {
		t.Fatalf("want both taxa in others when there's no common ancestor, got %v", others)
	}
}

func TestNextTaxonAlreadyAtMatch(t *testing.T) {
	tax := buildTestTaxonomy(t)
	a1, _ := tax.ByKey("A1")
	m := GenomeMatch{Genome: AnnotatedGenome{Genome: Genome{Taxon: a1}}, Distance: 0.05}
	if nt := tax.NextTaxon(m); nt != nil {
		t.Fatalf("NextTaxon for a distance already within A1's threshold = %v, want nil", nt)
	}
}

func TestNextTaxonIsMissedTaxonBelowMatchingParent(t *testing.T) {
	tax := buildTestTaxonomy(t)
	a1, _ := tax.ByKey("A1")
	// 0.5 misses A1 (threshold 0.1) but is within its parent A's 0.9, so
	// NextTaxon is A1 itself: the taxon just below the first ancestor
	// whose threshold the query satisfies.
	m := GenomeMatch{Genome: AnnotatedGenome{Genome: Genome{Taxon: a1}}, Distance: 0.5}
	if nt := tax.NextTaxon(m); nt == nil || nt.Key != "A1" {
		t.Fatalf("NextTaxon(0.5 from A1) = %v, want A1", nt)
	}
}

func buildClassifyFixture(t *testing.T) (*Taxonomy, []*Taxon) {
	tax := buildTestTaxonomy(t)
	a, _ := tax.ByKey("A")
	a1, _ := tax.ByKey("A1")
	a2, _ := tax.ByKey("A2")
	b1, _ := tax.ByKey("B1")
	return tax, []*Taxon{a, a1, a2, b1}
}

func TestClassifyNonStrictPicksClosestMatch(t *testing.T) {
	tax, taxa := buildClassifyFixture(t)
	_, a1, a2, b1 := taxa[0], taxa[1], taxa[2], taxa[3]
	genomes := []AnnotatedGenome{
		{Genome: Genome{Key: "gA1", Taxon: a1}},
		{Genome: Genome{Key: "gA2", Taxon: a2}},
		{Genome: Genome{Key: "gB1", Taxon: b1}},
	}
	dists := []float32{0.05, 0.9, 0.9}

	result, err := Classify(tax, genomes, dists, false)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Success {
		t.Fatal("non-strict classification should always succeed given a non-empty reference set")
	}
	if result.PredictedTaxon == nil || result.PredictedTaxon.Key != "A1" {
		t.Fatalf("PredictedTaxon = %v, want A1", result.PredictedTaxon)
	}
	if result.ClosestMatch.Genome.Key != "gA1" {
		t.Fatalf("ClosestMatch.Genome = %q, want gA1", result.ClosestMatch.Genome.Key)
	}
	if result.NextTaxon != nil {
		t.Fatalf("NextTaxon = %v, want nil (already matched at the leaf)", result.NextTaxon)
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	tax, taxa := buildClassifyFixture(t)
	_, a1, a2, b1 := taxa[0], taxa[1], taxa[2], taxa[3]
	genomes := []AnnotatedGenome{
		{Genome: Genome{Key: "gA1", Taxon: a1}},
		{Genome: Genome{Key: "gA2", Taxon: a2}},
		{Genome: Genome{Key: "gB1", Taxon: b1}},
	}
	dists := []float32{0.05, 0.07, 0.9}

	for _, strict := range []bool{false, true} {
		first, err := Classify(tax, genomes, dists, strict)
		if err != nil {
			t.Fatal(err)
		}
		for i := 0; i < 5; i++ {
			again, err := Classify(tax, genomes, dists, strict)
			if err != nil {
				t.Fatal(err)
			}
			if again.Success != first.Success ||
				(again.PredictedTaxon == nil) != (first.PredictedTaxon == nil) ||
				(again.PredictedTaxon != nil && again.PredictedTaxon.Key != first.PredictedTaxon.Key) {
				t.Fatalf("strict=%v: Classify is not deterministic across repeated calls", strict)
			}
		}
	}
}

func TestClassifyStrictConsensusAcrossDiscordantMatches(t *testing.T) {
	tax, taxa := buildClassifyFixture(t)
	a, a1, a2, b1 := taxa[0], taxa[1], taxa[2], taxa[3]
	genomes := []AnnotatedGenome{
		{Genome: Genome{Key: "gA1", Taxon: a1}},
		{Genome: Genome{Key: "gB1", Taxon: b1}},
		{Genome: Genome{Key: "gA2", Taxon: a2}},
	}
	// gA1 and gB1 both match their own species-level threshold; gA2
	// misses its own but its parent A matches, so matched taxa are
	// {A1, B1, A} — no shared lineage, consensus falls back to root.
	dists := []float32{0.05, 0.07, 0.9}

	result, err := Classify(tax, genomes, dists, true)
	if err != nil {
		t.Fatal(err)
	}
	if !result.Success {
		t.Fatalf("expected success (root is a valid common ancestor), got error %q", result.Error)
	}
	if result.PredictedTaxon == nil || result.PredictedTaxon.Key != "root" {
		t.Fatalf("PredictedTaxon = %v, want root", result.PredictedTaxon)
	}
	if len(result.Warnings) == 0 {
		t.Fatal("expected a discordant-match warning")
	}
	if result.PrimaryMatch == nil || result.PrimaryMatch.Genome.Key != "gA1" {
		t.Fatalf("PrimaryMatch = %v, want gA1 (lowest distance among all matched taxa)", result.PrimaryMatch)
	}
	if result.ClosestMatch.Genome.Key != "gA1" {
		t.Fatalf("ClosestMatch.Genome = %q, want gA1", result.ClosestMatch.Genome.Key)
	}
	_ = a
}

func TestClassifyEmptyReferenceSetErrors(t *testing.T) {
	tax := buildTestTaxonomy(t)
	_, err := Classify(tax, nil, nil, false)
	if err == nil || !IsKind(err, KindInvalidInput) {
		t.Fatalf("expected KindInvalidInput for an empty reference set, got %v", err)
	}
}

func TestClassifyLengthMismatchErrors(t *testing.T) {
	tax, taxa := buildClassifyFixture(t)
	genomes := []AnnotatedGenome{{Genome: Genome{Key: "g", Taxon: taxa[1]}}}
	_, err := Classify(tax, genomes, []float32{0.1, 0.2}, false)
	if err == nil || !IsKind(err, KindInvalidInput) {
		t.Fatalf("expected KindInvalidInput for mismatched lengths, got %v", err)
	}
}

func TestClassifyRejectsInvalidDistances(t *testing.T) {
	tax, taxa := buildClassifyFixture(t)
	genomes := []AnnotatedGenome{{Genome: Genome{Key: "g", Taxon: taxa[1]}}}
	if _, err := Classify(tax, genomes, []float32{-0.1}, false); err == nil || !IsKind(err, KindInvalidInput) {
		t.Fatal("expected KindInvalidInput for a negative distance")
	}
}

func TestReportTaxon(t *testing.T) {
	tax := buildTestTaxonomy(t)
	a2, _ := tax.ByKey("A2")
	result := ClassifierResult{PredictedTaxon: a2}
	if rt := result.ReportTaxon(tax); rt == nil || rt.Key != "A" {
		t.Fatalf("ReportTaxon() = %v, want A", rt)
	}

	empty := ClassifierResult{}
	if rt := empty.ReportTaxon(tax); rt != nil {
		t.Fatalf("ReportTaxon() with nil PredictedTaxon = %v, want nil", rt)
	}
}
