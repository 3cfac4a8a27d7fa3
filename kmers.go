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

import "strings"

// IndexDtype names the smallest unsigned integer width that can hold
// every kmer index for a given k, i.e. 4^k - 1.
type IndexDtype uint8

const (
	DtypeU8 IndexDtype = iota
	DtypeU16
	DtypeU32
	DtypeU64
)

// ElemSize returns the width in bytes of the dtype.
func (d IndexDtype) ElemSize() int {
	switch d {
	case DtypeU8:
		return 1
	case DtypeU16:
		return 2
	case DtypeU32:
		return 4
	default:
		return 8
	}
}

func (d IndexDtype) String() string {
	switch d {
	case DtypeU8:
		return "u8"
	case DtypeU16:
		return "u16"
	case DtypeU32:
		return "u32"
	default:
		return "u64"
	}
}

// dtypeForK picks the dtype holding 4^k - 1, per §3.
func dtypeForK(k int) IndexDtype {
	switch {
	case k <= 4:
		return DtypeU8
	case k <= 8:
		return DtypeU16
	case k <= 16:
		return DtypeU32
	default:
		return DtypeU64
	}
}

// KmerSpec is the immutable pair of k-mer tail length and anchoring
// prefix that defines a signature space. Value-equal iff (K, Prefix)
// match.
type KmerSpec struct {
	K      int
	Prefix []byte // ASCII A/C/G/T, upper-cased at construction

	nkmers    uint64
	totalLen  int
	indexType IndexDtype
	revPrefix []byte // revcomp(Prefix), precomputed for the reverse scan
}

// NewKmerSpec validates and constructs a KmerSpec. k must be in [5,32];
// prefix must be non-empty, at least 2 bases, and pure ACGT.
func NewKmerSpec(k int, prefix []byte) (KmerSpec, error) {
	if k < 5 || k > 32 {
		return KmerSpec{}, newErr(KindInvalidInput, "k=%d out of range [5,32]", k)
	}
	if len(prefix) < 2 {
		return KmerSpec{}, newErr(KindInvalidInput, "prefix too short: %q", prefix)
	}
	up := make([]byte, len(prefix))
	for i, b := range prefix {
		switch b {
		case 'A', 'a':
			up[i] = 'A'
		case 'C', 'c':
			up[i] = 'C'
		case 'G', 'g':
			up[i] = 'G'
		case 'T', 't':
			up[i] = 'T'
		default:
			return KmerSpec{}, newErr(KindInvalidInput, "non-ACGT byte in prefix: %q", prefix)
		}
	}

	nkmers := uint64(1) << uint(2*k) // 4^k
	return KmerSpec{
		K:         k,
		Prefix:    up,
		nkmers:    nkmers,
		totalLen:  len(up) + k,
		indexType: dtypeForK(k),
		revPrefix: revcompBytes(up),
	}, nil
}

// NKmers returns 4^k, the size of the index space [0, NKmers).
func (ks KmerSpec) NKmers() uint64 { return ks.nkmers }

// TotalLen returns len(prefix) + k.
func (ks KmerSpec) TotalLen() int { return ks.totalLen }

// IndexType returns the smallest dtype holding every valid index.
func (ks KmerSpec) IndexType() IndexDtype { return ks.indexType }

// Equal reports value equality: same k and same prefix bytes.
func (ks KmerSpec) Equal(other KmerSpec) bool {
	return ks.K == other.K && string(ks.Prefix) == string(other.Prefix)
}

// RequireEqualKmerSpec returns an InvalidInput error if a and b differ,
// nil otherwise. Signatures computed under different KmerSpecs share no
// common index space, so the Jaccard kernel's output is meaningless
// across them even though it never errors on mismatched inputs itself —
// callers that accept a precomputed signature from one source and a
// KmerSpec from another (e.g. a reference database) must check this
// before comparing them. ctx labels what's being compared, for the
// error message.
func RequireEqualKmerSpec(a, b KmerSpec, ctx string) error {
	if a.Equal(b) {
		return nil
	}
	return newErr(KindInvalidInput, "%s: k-mer spec mismatch: %s vs %s", ctx, a, b)
}

func (ks KmerSpec) String() string {
	return strings.ToUpper(string(ks.Prefix)) + "+" + itoa(ks.K)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

var baseCode = [256]int8{}

func init() {
	for i := range baseCode {
		baseCode[i] = -1
	}
	baseCode['A'] = 0
	baseCode['a'] = 0
	baseCode['C'] = 1
	baseCode['c'] = 1
	baseCode['G'] = 2
	baseCode['g'] = 2
	baseCode['T'] = 3
	baseCode['t'] = 3
}

var codeBase = [4]byte{'A', 'C', 'G', 'T'}

// kmerIndex maps a k-nucleotide ASCII string to its integer index in
// [0, 4^k), per §3: each position i (0-based, left to right) contributes
// nuc_code << (2*(k-1-i)). Returns ok=false if any byte isn't ACGT —
// invalid bytes never abort a scan, they only disqualify this one k-mer.
func kmerIndex(kmer []byte) (idx uint64, ok bool) {
	for _, b := range kmer {
		c := baseCode[b]
		if c < 0 {
			return 0, false
		}
		idx = (idx << 2) | uint64(c)
	}
	return idx, true
}

// decodeKmer is the inverse of kmerIndex for a given k.
func decodeKmer(idx uint64, k int) []byte {
	out := make([]byte, k)
	for i := k - 1; i >= 0; i-- {
		out[i] = codeBase[idx&3]
		idx >>= 2
	}
	return out
}

// revcompIndex computes the index of the reverse complement of a k-mer
// directly from its index, without round-tripping through bytes.
func revcompIndex(idx uint64, k int) uint64 {
	var c uint64
	for i := 0; i < k; i++ {
		c <<= 2
		c |= (idx & 3) ^ 3
		idx >>= 2
	}
	return c
}

// revcompBytes returns the reverse complement of an ASCII ACGT sequence.
// Bytes outside {A,C,G,T} (any case) pass through unchanged under
// complementation by 'N' convention is not needed here: revcompBytes is
// only ever applied to a validated KmerSpec.Prefix.
func revcompBytes(s []byte) []byte {
	out := make([]byte, len(s))
	for i, b := range s {
		var c byte
		switch b {
		case 'A':
			c = 'T'
		case 'C':
			c = 'G'
		case 'G':
			c = 'C'
		case 'T':
			c = 'A'
		case 'a':
			c = 't'
		case 'c':
			c = 'g'
		case 'g':
			c = 'c'
		case 't':
			c = 'a'
		default:
			c = b
		}
		out[len(s)-1-i] = c
	}
	return out
}
