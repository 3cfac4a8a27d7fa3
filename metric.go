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
	"runtime"
	"sync"
)

// JaccardDist computes 1 - |a∩b|/|a∪b| for two sorted, unique index
// arrays via a two-pointer merge, per §4.3. 0 when both are empty.
func JaccardDist(a, b Signature) float32 {
	var i, j, inter int
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			inter++
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return 1 - float32(inter)/float32(union)
}

// ProgressFunc is invoked as a driver makes progress; done/total are in
// driver-defined units. The matrix driver counts done in chunk*query
// steps and always passes total = -1, as it does not know the chunk
// count in advance.
type ProgressFunc func(done, total int)

// JaccardDistMany computes the distance from query to every signature
// in refs, writing into out. The reference range is partitioned across
// a fixed worker pool (nworkers, or GOMAXPROCS if <= 0); each worker
// owns a disjoint slice of out, so no synchronization is needed beyond
// the final join, per §5.
func JaccardDistMany(query Signature, refs SignatureArray, out []float32, nworkers int) {
	n := refs.Len()
	if nworkers <= 0 {
		nworkers = runtime.GOMAXPROCS(0)
	}
	if nworkers > n {
		nworkers = n
	}
	if nworkers <= 1 {
		for i := 0; i < n; i++ {
			out[i] = JaccardDist(query, refs.At(i))
		}
		return
	}

	var wg sync.WaitGroup
	chunk := (n + nworkers - 1) / nworkers
	for w := 0; w < nworkers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		if lo >= hi {
			continue
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				out[i] = JaccardDist(query, refs.At(i))
			}
		}(lo, hi)
	}
	wg.Wait()
}

// RefChunkSource abstracts an out-of-core reference collection: Next
// returns the next chunk of up to chunksize reference signatures, or
// ok=false when exhausted. Used by JaccardDistMatrix to bound memory
// when refs are backed by a SignatureStore (§4.3 "Matrix driver").
type RefChunkSource interface {
	Next(chunksize int) (chunk SignatureArray, ok bool, err error)
	Reset() error
}

// sliceChunkSource adapts an in-memory SignatureArray to RefChunkSource.
type sliceChunkSource struct {
	refs SignatureArray
	pos  int
}

// NewSliceChunkSource builds a RefChunkSource over an already in-memory
// SignatureArray — the common case when refs fit in RAM.
func NewSliceChunkSource(refs SignatureArray) RefChunkSource {
	return &sliceChunkSource{refs: refs}
}

func (s *sliceChunkSource) Reset() error { s.pos = 0; return nil }

func (s *sliceChunkSource) Next(chunksize int) (SignatureArray, bool, error) {
	if s.pos >= s.refs.Len() {
		return SignatureArray{}, false, nil
	}
	hi := s.pos + chunksize
	if hi > s.refs.Len() {
		hi = s.refs.Len()
	}
	chunk := s.refs.Slice(s.pos, hi)
	s.pos = hi
	return chunk, true, nil
}

// CancelFunc reports whether a long-running driver should stop early
// between chunks/files, per §5 "Cancellation".
type CancelFunc func() bool

// JaccardDistMatrix computes out[q][r] = JaccardDist(queries[q], refs[r])
// for every query and reference, chunking refs via src to bound memory.
// Progress fires once per chunk per query. Deterministic regardless of
// chunksize, per the §8 batch-consistency law.
func JaccardDistMatrix(queries SignatureArray, src RefChunkSource, chunksize int, nworkers int, progress ProgressFunc, cancel CancelFunc) ([][]float32, error) {
	nq := queries.Len()
	out := make([][]float32, nq)
	for q := range out {
		out[q] = make([]float32, 0)
	}

	if err := src.Reset(); err != nil {
		return nil, wrapErr(KindIo, err, "reset reference chunk source")
	}

	done := 0
	for {
		if cancel != nil && cancel() {
			return nil, newErr(KindIo, "cancelled")
		}
		chunk, ok, err := src.Next(chunksize)
		if err != nil {
			return nil, wrapErr(KindIo, err, "read reference chunk")
		}
		if !ok {
			break
		}
		for q := 0; q < nq; q++ {
			row := make([]float32, chunk.Len())
			JaccardDistMany(queries.At(q), chunk, row, nworkers)
			out[q] = append(out[q], row...)
			done++
			if progress != nil {
				progress(done, -1)
			}
		}
	}
	return out, nil
}

// JaccardDistPairwise computes the upper triangle (i<j) of the
// all-against-all distance matrix for sigs. If flat, the result is the
// condensed length-n(n-1)/2 vector in row-major upper-triangle order;
// otherwise a full n×n matrix with zeros on the diagonal and the upper
// triangle mirrored into the lower, per §4.3.
func JaccardDistPairwise(sigs SignatureArray, flat bool, nworkers int) interface{} {
	n := sigs.Len()
	if flat {
		out := make([]float32, n*(n-1)/2)
		idx := 0
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				out[idx] = JaccardDist(sigs.At(i), sigs.At(j))
				idx++
			}
		}
		return out
	}
	out := make([][]float32, n)
	for i := range out {
		out[i] = make([]float32, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := JaccardDist(sigs.At(i), sigs.At(j))
			out[i][j] = d
			out[j][i] = d
		}
	}
	return out
}
