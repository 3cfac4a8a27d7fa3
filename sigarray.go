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

// SignatureArray is many Signatures packed into one flat values buffer
// plus an offset array, per §3. Signature i is Values[Bounds[i]:Bounds[i+1]].
type SignatureArray struct {
	Values  []uint64
	Bounds  []int64
	KmerSpec KmerSpec
}

// NewSignatureArray packs a slice of Signatures into one SignatureArray.
func NewSignatureArray(kspec KmerSpec, sigs []Signature) SignatureArray {
	bounds := make([]int64, len(sigs)+1)
	var total int64
	for i, s := range sigs {
		total += int64(len(s))
		bounds[i+1] = total
	}
	values := make([]uint64, 0, total)
	for _, s := range sigs {
		values = append(values, s...)
	}
	return SignatureArray{Values: values, Bounds: bounds, KmerSpec: kspec}
}

// Len is the number of signatures packed in the array.
func (a SignatureArray) Len() int { return len(a.Bounds) - 1 }

// At returns signature i as a view over the shared backing buffer —
// no copy. Mutating it mutates the array.
func (a SignatureArray) At(i int) Signature {
	return Signature(a.Values[a.Bounds[i]:a.Bounds[i+1]])
}

// Slice returns a contiguous sub-range [lo, hi) as a view over the same
// backing buffer, per §3 "slicing with a contiguous range returns a
// view". Bounds of the view are rebased to start at 0.
func (a SignatureArray) Slice(lo, hi int) SignatureArray {
	values := a.Values[a.Bounds[lo]:a.Bounds[hi]]
	bounds := make([]int64, hi-lo+1)
	base := a.Bounds[lo]
	for i := lo; i <= hi; i++ {
		bounds[i-lo] = a.Bounds[i] - base
	}
	return SignatureArray{Values: values, Bounds: bounds, KmerSpec: a.KmerSpec}
}

// Take materializes a new SignatureArray from an arbitrary (possibly
// non-contiguous, possibly reordering) list of indices — the "advanced
// indexing" case of §3, which always copies.
func (a SignatureArray) Take(indices []int) SignatureArray {
	sigs := make([]Signature, len(indices))
	for i, idx := range indices {
		src := a.At(idx)
		cp := make(Signature, len(src))
		copy(cp, src)
		sigs[i] = cp
	}
	return NewSignatureArray(a.KmerSpec, sigs)
}

// SignaturesMeta is the scalar metadata attached to a ReferenceSignatures,
// round-tripped through the signature container's header attrs (§4.4)
// and the result archive (§6).
type SignaturesMeta struct {
	ID          string
	Name        string
	Version     string
	IDAttr      string // names the genome-side join key: key|genbank_acc|refseq_acc|ncbi_id
	Description string
	Extra       map[string]interface{}
}

// ReferenceSignatures is a SignatureArray plus the per-signature ids
// that join to genome records, plus metadata, per §3.
type ReferenceSignatures struct {
	SignatureArray
	IDs  []string
	Meta SignaturesMeta

	closer func() error // released on Close; nil if not file-backed
}

// Close releases the backing file handle, if any. Safe to call on a
// non-file-backed ReferenceSignatures.
func (r *ReferenceSignatures) Close() error {
	if r.closer == nil {
		return nil
	}
	c := r.closer
	r.closer = nil
	return c()
}
