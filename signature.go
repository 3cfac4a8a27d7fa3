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

import "github.com/twotwotwo/sorts/sortutil"

// Signature is a strictly ascending, deduplicated array of k-mer
// indices under some KmerSpec. Semantically a set; empty is legal.
type Signature []uint64

// sigAccumulator is the uniform capability set of §9 "Accumulator
// polymorphism": add is O(1) and idempotent, finalize sorts and dedups.
type sigAccumulator interface {
	add(index uint64)
	finalize() Signature
}

// denseBitsetLimit is 2^22: the nkmers threshold below which a dense
// bitset outperforms a hash set (k <= 11), per §4.2.
const denseBitsetLimit = 1 << 22

// newSignatureBuilder is the factory of §9: picks the accumulator
// implementation by k without exposing the choice to callers.
func newSignatureBuilder(kspec KmerSpec) sigAccumulator {
	if kspec.NKmers() <= denseBitsetLimit {
		return newBitsetAccumulator(int(kspec.NKmers()))
	}
	return newHashAccumulator()
}

// bitsetAccumulator is a dense bit vector of nkmers bits, one per
// possible index. add is a single bit-set; finalize walks the bits in
// order, which is already sorted.
type bitsetAccumulator struct {
	bits []uint64
	n    int
}

func newBitsetAccumulator(nkmers int) *bitsetAccumulator {
	return &bitsetAccumulator{bits: make([]uint64, (nkmers+63)/64)}
}

func (b *bitsetAccumulator) add(index uint64) {
	word := index >> 6
	mask := uint64(1) << (index & 63)
	if b.bits[word]&mask == 0 {
		b.bits[word] |= mask
		b.n++
	}
}

func (b *bitsetAccumulator) finalize() Signature {
	out := make(Signature, 0, b.n)
	for w, word := range b.bits {
		if word == 0 {
			continue
		}
		base := uint64(w) * 64
		for word != 0 {
			i := trailingZeros64(word)
			out = append(out, base+uint64(i))
			word &= word - 1
		}
	}
	return out
}

func trailingZeros64(x uint64) int {
	if x == 0 {
		return 64
	}
	n := 0
	for x&1 == 0 {
		x >>= 1
		n++
	}
	return n
}

// hashAccumulator is a Go map-backed set for large k, sorted at
// finalize time via a parallel sort for big result sets (§3 DOMAIN
// STACK: twotwotwo/sorts).
type hashAccumulator struct {
	set map[uint64]struct{}
}

func newHashAccumulator() *hashAccumulator {
	return &hashAccumulator{set: make(map[uint64]struct{}, 1024)}
}

func (h *hashAccumulator) add(index uint64) {
	h.set[index] = struct{}{}
}

func (h *hashAccumulator) finalize() Signature {
	out := make(Signature, 0, len(h.set))
	for idx := range h.set {
		out = append(out, idx)
	}
	sortutil.Uint64s(out)
	return out
}
