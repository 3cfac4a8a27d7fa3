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
	"fmt"
	"runtime"
	"sort"
	"sync"
)

// QueryInput resolves to exactly one of File (parsed via KmerScanner)
// or Sig (already computed), per §6 "query" ("positional FASTA paths
// XOR... --sigfile"). KmerSpec is the spec Sig was computed under and
// is required whenever Sig is set — RunQuery rejects a Sig built under
// a different KmerSpec than the reference signatures it's compared
// against (spec.md's InvalidInput on mismatched k-mer specs). It's
// ignored when File is set, since that signature is always computed
// fresh under the reference spec.
type QueryInput struct {
	Label    string
	File     string
	Sig      Signature
	KmerSpec KmerSpec
}

// QueryParams are the knobs QueryPipeline needs, per §4.6.
type QueryParams struct {
	ClassifyStrict bool
	ChunkSize      int
	ReportClosest  int
}

// QueryResultItem is one query's full result, per §4.6 stage 3.
type QueryResultItem struct {
	Input          QueryInput
	ClosestGenomes []GenomeMatch
	Classification ClassifierResult
	ReportTaxon    *Taxon
}

// QueryResults is the complete output of a QueryPipeline run, round-
// trippable into the result archive format of §6.
type QueryResults struct {
	Items          []QueryResultItem
	Params         QueryParams
	GenomeSet      ReferenceGenomeSet
	SignaturesMeta SignaturesMeta
	GambitVersion  string
	Timestamp      string
	Extra          map[string]interface{}
}

// resolveSignatures runs stage 1 of §4.6: a worker pool computes a
// Signature for every input concurrently, collecting results by index
// to preserve input order (§5 "File-parse parallelism"). Mirrors the
// token-channel bounded worker pool of unikmer/cmd/db-index.go.
func resolveSignatures(kspec KmerSpec, inputs []QueryInput, nworkers int) ([]Signature, error) {
	if nworkers <= 0 {
		nworkers = runtime.NumCPU()
	}
	sigs := make([]Signature, len(inputs))
	errs := make([]error, len(inputs))

	tokens := make(chan struct{}, nworkers)
	var wg sync.WaitGroup
	for i, in := range inputs {
		if in.Sig != nil {
			if err := RequireEqualKmerSpec(in.KmerSpec, kspec, fmt.Sprintf("query %q", in.Label)); err != nil {
				return nil, err
			}
			sigs[i] = in.Sig
			continue
		}
		wg.Add(1)
		tokens <- struct{}{}
		go func(i int, file string) {
			defer wg.Done()
			defer func() { <-tokens }()
			s, err := SignatureFromFASTA(kspec, file)
			if err != nil {
				errs[i] = err
				return
			}
			sigs[i] = s
		}(i, in.File)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return sigs, nil
}

// RunQuery executes the full pipeline of §4.6: resolve every input to a
// signature, compute the distance matrix against refs, then classify
// each query row and attach its top-N closest genomes and report taxon.
// File parsing (stage 1) and the distance kernel's own intra-op
// parallelism are never nested, per §4.6 "Parallelism". genomeSet is
// round-tripped into QueryResults.GenomeSet unchanged, per §6's result
// archive carrying the genome-set (key, version) results were computed
// against.
func RunQuery(tax *Taxonomy, genomes []AnnotatedGenome, refs ReferenceSignatures, genomeSet ReferenceGenomeSet, inputs []QueryInput, params QueryParams, nworkers int, progress ProgressFunc, cancel CancelFunc) (QueryResults, error) {
	if len(inputs) == 0 {
		return QueryResults{}, newErr(KindInvalidInput, "no query inputs")
	}
	if len(genomes) != refs.Len() {
		return QueryResults{}, newErr(KindIncompatibleDatabase, "genome count %d != signature count %d", len(genomes), refs.Len())
	}

	sigs, err := resolveSignatures(refs.KmerSpec, inputs, nworkers)
	if err != nil {
		return QueryResults{}, err
	}
	for _, s := range sigs {
		if s == nil {
			return QueryResults{}, newErr(KindInvalidInput, "empty query signature")
		}
	}

	queries := NewSignatureArray(refs.KmerSpec, sigs)

	chunksize := params.ChunkSize
	if chunksize <= 0 {
		chunksize = refs.Len()
		if chunksize == 0 {
			chunksize = 1
		}
	}
	src := NewSliceChunkSource(refs.SignatureArray)
	matrix, err := JaccardDistMatrix(queries, src, chunksize, nworkers, progress, cancel)
	if err != nil {
		return QueryResults{}, err
	}

	items := make([]QueryResultItem, len(inputs))
	for q, dists := range matrix {
		result, err := Classify(tax, genomes, dists, params.ClassifyStrict)
		if err != nil {
			return QueryResults{}, err
		}

		n := params.ReportClosest
		if n <= 0 || n > len(genomes) {
			n = len(genomes)
		}
		order := make([]int, len(genomes))
		for i := range order {
			order[i] = i
		}
		sort.Slice(order, func(a, b int) bool { return dists[order[a]] < dists[order[b]] })

		closest := make([]GenomeMatch, n)
		for i := 0; i < n; i++ {
			gi := order[i]
			closest[i] = GenomeMatch{
				Genome:       genomes[gi],
				Distance:     dists[gi],
				MatchedTaxon: MatchingTaxon(tax, genomes[gi].Taxon, dists[gi]),
			}
		}

		items[q] = QueryResultItem{
			Input:          inputs[q],
			ClosestGenomes: closest,
			Classification: result,
			ReportTaxon:    result.ReportTaxon(tax),
		}
	}

	return QueryResults{
		Items:          items,
		Params:         params,
		GenomeSet:      genomeSet,
		SignaturesMeta: refs.Meta,
		GambitVersion:  Version,
	}, nil
}
