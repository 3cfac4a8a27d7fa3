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

import "bytes"

// ScanKmers runs the prefix-anchored forward+reverse scan of §4.1 over
// seq, feeding every valid k-mer index into acc. It never fails: any
// byte pattern is accepted, invalid bases just drop that one k-mer.
func ScanKmers(kspec KmerSpec, seq []byte, acc sigAccumulator) {
	if len(seq) < kspec.totalLen {
		return
	}
	seq = upperCopy(seq)

	k := kspec.K
	plen := len(kspec.Prefix)

	// Forward: prefix occurs at p, owns seq[p+plen : p+plen+k].
	fwdEnd := len(seq) - k // exclusive bound so the trailing k-mer fits
	for start := 0; start <= fwdEnd-plen; {
		p := bytes.Index(seq[start:fwdEnd], kspec.Prefix)
		if p < 0 {
			break
		}
		pos := start + p
		kmer := seq[pos+plen : pos+plen+k]
		if idx, ok := kmerIndex(kmer); ok {
			acc.add(idx)
		}
		start = pos + 1
	}

	// Reverse: revcomp(prefix) starts at p, owns revcomp(seq[p-k : p]) —
	// the k bases immediately preceding the matched (revcomp) prefix,
	// reverse-complemented.
	revStart := k // so the trailing k bases behind the match exist
	for start := revStart; start <= len(seq)-plen; {
		p := bytes.Index(seq[start:], kspec.revPrefix)
		if p < 0 {
			break
		}
		pos := start + p
		kmer := seq[pos-k : pos]
		if idx, ok := kmerIndex(kmer); ok {
			acc.add(revcompIndex(idx, k))
		}
		start = pos + 1
	}
}

// upperCopy upper-cases lazily per §4.1 step 1: scan once, only
// materialize a copy if a lower-case ASCII letter is actually present.
func upperCopy(seq []byte) []byte {
	needsCopy := false
	for _, b := range seq {
		if b >= 'a' && b <= 'z' {
			needsCopy = true
			break
		}
	}
	if !needsCopy {
		return seq
	}
	out := make([]byte, len(seq))
	for i, b := range seq {
		if b >= 'a' && b <= 'z' {
			out[i] = b - ('a' - 'A')
		} else {
			out[i] = b
		}
	}
	return out
}
