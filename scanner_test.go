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

// collectAccumulator records every index passed to add, in call order,
// without the sort+dedup finalize does — convenient for asserting exactly
// which k-mers a scan found.
type collectAccumulator struct {
	seen []uint64
}

func (c *collectAccumulator) add(idx uint64) { c.seen = append(c.seen, idx) }
func (c *collectAccumulator) finalize() Signature {
	out := make(Signature, len(c.seen))
	copy(out, c.seen)
	return out
}

func TestScanKmersForwardMatch(t *testing.T) {
	kspec, err := NewKmerSpec(10, []byte("ATGAC"))
	if err != nil {
		t.Fatal(err)
	}
	kmer := "ACGTACGTAC"
	seq := []byte("ATGAC" + kmer)

	acc := &collectAccumulator{}
	ScanKmers(kspec, seq, acc)

	wantIdx, _ := kmerIndex([]byte(kmer))
	if len(acc.seen) != 1 || acc.seen[0] != wantIdx {
		t.Fatalf("ScanKmers forward = %v, want single index %d", acc.seen, wantIdx)
	}
}

func TestScanKmersStrandSymmetry(t *testing.T) {
	kspec, err := NewKmerSpec(10, []byte("ATGAC"))
	if err != nil {
		t.Fatal(err)
	}
	seq0 := []byte("ATGAC" + "ACGTACGTAC")

	fwd := &collectAccumulator{}
	ScanKmers(kspec, seq0, fwd)

	seq1 := revcompBytes(seq0)
	rev := &collectAccumulator{}
	ScanKmers(kspec, seq1, rev)

	if len(fwd.seen) != 1 || len(rev.seen) != 1 {
		t.Fatalf("expected exactly one hit per strand, got fwd=%v rev=%v", fwd.seen, rev.seen)
	}
	if fwd.seen[0] != rev.seen[0] {
		t.Errorf("reverse-complementing the whole sequence must find the same k-mer index: %d != %d", fwd.seen[0], rev.seen[0])
	}
}

func TestScanKmersCaseInvariant(t *testing.T) {
	kspec, err := NewKmerSpec(10, []byte("ATGAC"))
	if err != nil {
		t.Fatal(err)
	}
	upper := []byte("ATGAC" + "ACGTACGTAC")
	lower := []byte("atgac" + "acgtacgtac")

	accUpper := &collectAccumulator{}
	ScanKmers(kspec, upper, accUpper)
	accLower := &collectAccumulator{}
	ScanKmers(kspec, lower, accLower)

	if len(accUpper.seen) != len(accLower.seen) || len(accUpper.seen) != 1 {
		t.Fatalf("case must not affect match count: upper=%v lower=%v", accUpper.seen, accLower.seen)
	}
	if accUpper.seen[0] != accLower.seen[0] {
		t.Errorf("case must not affect the decoded index: %d != %d", accUpper.seen[0], accLower.seen[0])
	}
}

func TestScanKmersTooShortSequence(t *testing.T) {
	kspec, err := NewKmerSpec(11, []byte("ATGAC"))
	if err != nil {
		t.Fatal(err)
	}
	acc := &collectAccumulator{}
	ScanKmers(kspec, []byte("ACGT"), acc)
	if len(acc.seen) != 0 {
		t.Fatalf("a sequence shorter than TotalLen must never match, got %v", acc.seen)
	}
}

func TestScanKmersNoPrefixNoMatch(t *testing.T) {
	kspec, err := NewKmerSpec(10, []byte("ATGAC"))
	if err != nil {
		t.Fatal(err)
	}
	acc := &collectAccumulator{}
	ScanKmers(kspec, []byte("CCCCCCCCCCCCCCCCCCCC"), acc)
	if len(acc.seen) != 0 {
		t.Fatalf("a sequence without the anchoring prefix must never match, got %v", acc.seen)
	}
}

func TestScanKmersInvalidBaseSkipped(t *testing.T) {
	kspec, err := NewKmerSpec(10, []byte("ATGAC"))
	if err != nil {
		t.Fatal(err)
	}
	// The k-mer following the prefix contains an N: this one match must
	// be dropped, not abort the whole scan.
	seq := []byte("ATGAC" + "ACGTNCGTAC")
	acc := &collectAccumulator{}
	ScanKmers(kspec, seq, acc)
	if len(acc.seen) != 0 {
		t.Fatalf("a k-mer containing a non-ACGT byte must be dropped, got %v", acc.seen)
	}
}
