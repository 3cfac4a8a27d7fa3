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
	"io"

	"github.com/shenwei356/bio/seqio/fastx"
)

// SignatureFromFASTA computes a Signature by scanning every sequence
// record in a FASTA/FASTQ file under kspec, per §4.6 stage 1. Only
// sequence bytes are consumed; headers are ignored. gzip-compressed
// input is auto-detected by fastx.NewDefaultReader per §6 ("FASTA
// parsing... auto-detected by magic bytes 1F 8B"), grounded on
// unikmer/cmd/count.go's fastx.NewDefaultReader(file) usage.
func SignatureFromFASTA(kspec KmerSpec, path string) (Signature, error) {
	reader, err := fastx.NewDefaultReader(path)
	if err != nil {
		return nil, wrapErr(KindIo, err, "open %s", path)
	}

	acc := newSignatureBuilder(kspec)
	for {
		rec, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, wrapErr(KindIo, err, "read record from %s", path)
		}
		ScanKmers(kspec, rec.Seq.Seq, acc)
	}
	return acc.finalize(), nil
}
