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

func buildQueryFixture(t *testing.T) (*Taxonomy, []AnnotatedGenome, ReferenceSignatures) {
	tax := buildTestTaxonomy(t)
	a1, _ := tax.ByKey("A1")
	a2, _ := tax.ByKey("A2")
	b1, _ := tax.ByKey("B1")

	ks := testKspec(t)
	sigs := []Signature{
		{1, 2, 3, 4, 5},
		{1, 2, 3, 6, 7},
		{100, 200, 300},
	}
	refs := ReferenceSignatures{
		SignatureArray: NewSignatureArray(ks, sigs),
		IDs:            []string{"gA1", "gA2", "gB1"},
	}
	genomes := []AnnotatedGenome{
		{Genome: Genome{Key: "gA1", Taxon: a1}, SignatureIndex: 0},
		{Genome: Genome{Key: "gA2", Taxon: a2}, SignatureIndex: 1},
		{Genome: Genome{Key: "gB1", Taxon: b1}, SignatureIndex: 2},
	}
	return tax, genomes, refs
}

func TestRunQueryBasicPipeline(t *testing.T) {
	tax, genomes, refs := buildQueryFixture(t)
	inputs := []QueryInput{
		{Label: "query1", Sig: Signature{1, 2, 3, 4, 5}, KmerSpec: refs.KmerSpec}, // identical to gA1
	}
	results, err := RunQuery(tax, genomes, refs, ReferenceGenomeSet{Key: "gs", Version: "1"}, inputs, QueryParams{ReportClosest: 2}, 1, nil, nil)
	if err != nil {
		t.Fatalf("RunQuery: %v", err)
	}
	if len(results.Items) != 1 {
		t.Fatalf("len(Items) = %d, want 1", len(results.Items))
	}
	item := results.Items[0]
	if item.Classification.ClosestMatch.Genome.Key != "gA1" {
		t.Fatalf("closest match = %q, want gA1", item.Classification.ClosestMatch.Genome.Key)
	}
	if item.Classification.ClosestMatch.Distance != 0 {
		t.Fatalf("distance to an identical signature = %v, want 0", item.Classification.ClosestMatch.Distance)
	}
	if len(item.ClosestGenomes) != 2 {
		t.Fatalf("len(ClosestGenomes) = %d, want 2 (ReportClosest)", len(item.ClosestGenomes))
	}
	if results.GambitVersion != Version {
		t.Errorf("GambitVersion = %q, want %q", results.GambitVersion, Version)
	}
	if results.GenomeSet.Key != "gs" || results.GenomeSet.Version != "1" {
		t.Errorf("GenomeSet = %+v, want Key=gs Version=1", results.GenomeSet)
	}
}

func TestRunQueryPreservesInputOrder(t *testing.T) {
	tax, genomes, refs := buildQueryFixture(t)
	inputs := []QueryInput{
		{Label: "far", Sig: Signature{100, 200, 300}, KmerSpec: refs.KmerSpec},
		{Label: "near", Sig: Signature{1, 2, 3, 4, 5}, KmerSpec: refs.KmerSpec},
	}
	results, err := RunQuery(tax, genomes, refs, ReferenceGenomeSet{}, inputs, QueryParams{}, 4, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if results.Items[0].Input.Label != "far" || results.Items[1].Input.Label != "near" {
		t.Fatal("RunQuery must preserve input order regardless of worker-pool scheduling")
	}
}

func TestRunQueryRejectsEmptyInputs(t *testing.T) {
	tax, genomes, refs := buildQueryFixture(t)
	_, err := RunQuery(tax, genomes, refs, ReferenceGenomeSet{}, nil, QueryParams{}, 1, nil, nil)
	if err == nil || !IsKind(err, KindInvalidInput) {
		t.Fatalf("expected KindInvalidInput for no query inputs, got %v", err)
	}
}

func TestRunQueryRejectsGenomeCountMismatch(t *testing.T) {
	tax, genomes, refs := buildQueryFixture(t)
	inputs := []QueryInput{{Sig: Signature{1}, KmerSpec: refs.KmerSpec}}
	_, err := RunQuery(tax, genomes[:1], refs, ReferenceGenomeSet{}, inputs, QueryParams{}, 1, nil, nil)
	if err == nil || !IsKind(err, KindIncompatibleDatabase) {
		t.Fatalf("expected KindIncompatibleDatabase for a genome/signature count mismatch, got %v", err)
	}
}

func TestRunQueryRejectsMismatchedKmerSpec(t *testing.T) {
	tax, genomes, refs := buildQueryFixture(t)
	other, err := NewKmerSpec(12, []byte("ATGAC"))
	if err != nil {
		t.Fatal(err)
	}
	inputs := []QueryInput{{Label: "bad", Sig: Signature{1, 2, 3}, KmerSpec: other}}
	_, err = RunQuery(tax, genomes, refs, ReferenceGenomeSet{}, inputs, QueryParams{}, 1, nil, nil)
	if err == nil || !IsKind(err, KindInvalidInput) {
		t.Fatalf("expected KindInvalidInput for a mismatched k-mer spec, got %v", err)
	}
}
