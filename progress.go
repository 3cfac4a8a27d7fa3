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
	"os"

	"github.com/vbauerster/mpb/v5"
	"github.com/vbauerster/mpb/v5/decor"
)

// NewCLIProgress builds a ProgressFunc backed by an mpb bar, for
// DistanceDriver/QueryPipeline callers that want a terminal progress
// bar under --verbose. Grounded on the sibling kmcp tool's mpb wiring
// (same author's ecosystem as the rest of the CLI stack). total <= 0 is
// treated as a total of 1. The total argument passed to the returned
// ProgressFunc is ignored; only done moves the bar.
func NewCLIProgress(label string, total int) (ProgressFunc, func()) {
	if total <= 0 {
		total = 1
	}
	pbs := mpb.New(mpb.WithWidth(40), mpb.WithOutput(os.Stderr))
	bar := pbs.AddBar(int64(total),
		mpb.BarStyle("[=>-]<+"),
		mpb.PrependDecorators(
			decor.Name(label, decor.WC{W: len(label), C: decor.DidentRight}),
			decor.CountersNoUnit("%d / %d", decor.WCSyncWidth),
		),
		mpb.AppendDecorators(
			decor.EwmaETA(decor.ET_STYLE_GO, 60),
			decor.OnComplete(decor.Name(""), ". done"),
		),
	)

	var last int
	fn := func(done, _ int) {
		bar.IncrBy(done - last)
		last = done
	}
	return fn, pbs.Wait
}
