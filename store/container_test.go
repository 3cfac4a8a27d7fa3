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

package store

import (
	"bytes"
	"testing"
)

func testHeader(numSigs uint64, flags uint8) Header {
	return Header{
		K:        11,
		Prefix:   []byte("ATGAC"),
		ElemSize: 4,
		Flags:    flags,
		IDKind:   IDKindString,
		ID:       "testset",
		Name:     "Test Set",
		Version:  "1.0",
		IDAttr:   "key",
		NumSigs:  numSigs,
	}
}

func roundTrip(t *testing.T, gzipValues bool) {
	t.Helper()
	bounds := []int64{0, 3, 3, 5}
	ids := []string{"g1", "g2", "g3"}
	values := []uint64{1, 2, 3, 10, 20}

	var flags uint8
	if gzipValues {
		flags = FlagGzipValues
	}
	h := testHeader(uint64(len(ids)), flags)

	var buf bytes.Buffer
	w := NewWriter(&buf, h)
	if err := w.WriteBounds(bounds); err != nil {
		t.Fatalf("WriteBounds: %v", err)
	}
	if err := w.WriteIDs(ids); err != nil {
		t.Fatalf("WriteIDs: %v", err)
	}
	if err := w.WriteValues(values); err != nil {
		t.Fatalf("WriteValues: %v", err)
	}

	r, err := NewReader(&buf)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if r.K != h.K || string(r.Prefix) != string(h.Prefix) {
		t.Errorf("header K/Prefix round-trip mismatch: got K=%d Prefix=%q", r.K, r.Prefix)
	}
	if r.ID != h.ID || r.Name != h.Name || r.Version != h.Version || r.IDAttr != h.IDAttr {
		t.Errorf("header string fields round-trip mismatch: %+v", r.Header)
	}

	gotBounds, err := r.ReadBounds()
	if err != nil {
		t.Fatalf("ReadBounds: %v", err)
	}
	if len(gotBounds) != len(bounds) {
		t.Fatalf("ReadBounds length = %d, want %d", len(gotBounds), len(bounds))
	}
	for i := range bounds {
		if gotBounds[i] != bounds[i] {
			t.Errorf("bounds[%d] = %d, want %d", i, gotBounds[i], bounds[i])
		}
	}

	gotIDs, err := r.ReadIDs()
	if err != nil {
		t.Fatalf("ReadIDs: %v", err)
	}
	for i := range ids {
		if gotIDs[i] != ids[i] {
			t.Errorf("ids[%d] = %q, want %q", i, gotIDs[i], ids[i])
		}
	}

	gotValues, err := r.ReadValues(gotBounds[len(gotBounds)-1])
	if err != nil {
		t.Fatalf("ReadValues: %v", err)
	}
	if len(gotValues) != len(values) {
		t.Fatalf("ReadValues length = %d, want %d", len(gotValues), len(values))
	}
	for i := range values {
		if gotValues[i] != values[i] {
			t.Errorf("values[%d] = %d, want %d", i, gotValues[i], values[i])
		}
	}
}

func TestRoundTripUncompressed(t *testing.T) {
	roundTrip(t, false)
}

func TestRoundTripGzipValues(t *testing.T) {
	roundTrip(t, true)
}

func TestNewReaderRejectsBadMagic(t *testing.T) {
	buf := bytes.NewBufferString("not a gambit container at all, padded out")
	if _, err := NewReader(buf); err != ErrBadMagic {
		t.Fatalf("NewReader on garbage = %v, want ErrBadMagic", err)
	}
}

func TestWriteBoundsRejectsWrongLength(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, testHeader(3, 0))
	if err := w.WriteBounds([]int64{0, 1}); err != ErrBadBounds {
		t.Fatalf("WriteBounds with len != NumSigs+1 = %v, want ErrBadBounds", err)
	}
}

func TestWriteBoundsRejectsNonzeroStart(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, testHeader(2, 0))
	if err := w.WriteBounds([]int64{1, 2, 3}); err != ErrBadBounds {
		t.Fatalf("WriteBounds starting nonzero = %v, want ErrBadBounds", err)
	}
}

func TestWriteBoundsRejectsDecreasing(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, testHeader(2, 0))
	if err := w.WriteBounds([]int64{0, 5, 2}); err != ErrBadBounds {
		t.Fatalf("WriteBounds decreasing = %v, want ErrBadBounds", err)
	}
}

func TestValuesByteOffset(t *testing.T) {
	if got := ValuesByteOffset(10, 4); got != 40 {
		t.Errorf("ValuesByteOffset(10,4) = %d, want 40", got)
	}
}

func TestReadValuesTruncatedStream(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf, testHeader(1, 0))
	if err := w.WriteBounds([]int64{0, 2}); err != nil {
		t.Fatal(err)
	}
	if err := w.WriteIDs([]string{"g1"}); err != nil {
		t.Fatal(err)
	}
	// Only write one of the two promised values elements.
	if err := w.WriteValues([]uint64{7}); err != nil {
		t.Fatal(err)
	}

	r, err := NewReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	bounds, err := r.ReadBounds()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.ReadIDs(); err != nil {
		t.Fatal(err)
	}
	if _, err := r.ReadValues(bounds[len(bounds)-1]); err != ErrTruncated {
		t.Fatalf("ReadValues on a short stream = %v, want ErrTruncated", err)
	}
}
