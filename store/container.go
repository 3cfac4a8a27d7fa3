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

// Package store is the low-level binary framing for GAMBIT's signature
// container: a magic number, a fixed-then-variable header, and three
// length-correlated datasets (bounds, ids, values), standing in for the
// HDF5 layout of spec §4.4 — no HDF5 binding exists anywhere in the
// Go ecosystem corpus this was grounded on, so the container is a
// byte-exact reimplementation of the same attrs+datasets shape in the
// teacher's own magic-number+header+lazy-write idiom
// (github.com/shenwei356/unikmer's serialization.go and index/serialization.go).
package store

import (
	"bufio"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"io"
)

// FormatVersion is the only container version this package reads or
// writes, per spec §4.4 "Backward-compatibility is pinned to format_version=1".
const FormatVersion uint8 = 1

// Magic identifies a GAMBIT signature container.
var Magic = [8]byte{'.', 'g', 'a', 'm', 'b', 'i', 't', 0}

// Flag bits for Header.Flags.
const (
	FlagGzipValues uint8 = 1 << iota
)

// IDKind is recorded in the header. WriteIDs and ReadIDs always use the
// length-prefixed string form, whatever its value; IDKindInt ids are
// not encoded or decoded as integers.
type IDKind uint8

const (
	IDKindString IDKind = iota
	IDKindInt
)

var (
	// ErrBadMagic means the file doesn't start with the GAMBIT magic number.
	ErrBadMagic = errors.New("gambit/store: not a gambit signature container")
	// ErrBadVersion means format_version != FormatVersion.
	ErrBadVersion = errors.New("gambit/store: unsupported format_version")
	// ErrBadBounds means the bounds dataset violates its invariants.
	ErrBadBounds = errors.New("gambit/store: malformed bounds array")
	// ErrTruncated means the stream ended before all datasets were read.
	ErrTruncated = errors.New("gambit/store: truncated container")
)

var be = binary.BigEndian

// Header is every container field that precedes the bounds/ids/values
// datasets — the analog of an HDF5 group's scalar attrs.
type Header struct {
	K           uint8
	Prefix      []byte
	ElemSize    uint8 // width in bytes of one values element: 1, 2, 4, or 8
	Flags       uint8
	IDKind      IDKind
	ID          string
	Name        string
	Version     string
	IDAttr      string
	Description string
	Extra       string // JSON text, "" if absent
	NumSigs     uint64
}

func (h Header) gzipValues() bool { return h.Flags&FlagGzipValues != 0 }

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, be, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, be, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// Writer serializes a Header followed by the bounds, ids, and values
// datasets. The header is written lazily on the first call, mirroring
// unikmer's Writer.Write/WriteHeader pattern.
type Writer struct {
	Header
	w           io.Writer
	wroteHeader bool
}

// NewWriter prepares a Writer. Call WriteBounds, then WriteIDs, then
// WriteValues, in that order. Writer has no Close method: nothing checks
// that all three datasets were written.
func NewWriter(w io.Writer, h Header) *Writer {
	return &Writer{Header: h, w: w}
}

func (wr *Writer) writeHeader() error {
	if wr.wroteHeader {
		return nil
	}
	w := wr.w
	if _, err := w.Write(Magic[:]); err != nil {
		return err
	}
	if err := binary.Write(w, be, FormatVersion); err != nil {
		return err
	}
	if err := binary.Write(w, be, wr.K); err != nil {
		return err
	}
	if err := binary.Write(w, be, uint8(len(wr.Prefix))); err != nil {
		return err
	}
	if _, err := w.Write(wr.Prefix); err != nil {
		return err
	}
	if err := binary.Write(w, be, wr.ElemSize); err != nil {
		return err
	}
	if err := binary.Write(w, be, wr.Flags); err != nil {
		return err
	}
	if err := binary.Write(w, be, uint8(wr.IDKind)); err != nil {
		return err
	}
	for _, s := range []string{wr.ID, wr.Name, wr.Version, wr.IDAttr, wr.Description, wr.Extra} {
		if err := writeString(w, s); err != nil {
			return err
		}
	}
	if err := binary.Write(w, be, wr.NumSigs); err != nil {
		return err
	}
	wr.wroteHeader = true
	return nil
}

// WriteBounds writes the offset array; must have length NumSigs+1,
// start at 0, and be non-decreasing (§4.4 invariants).
func (wr *Writer) WriteBounds(bounds []int64) error {
	if err := wr.writeHeader(); err != nil {
		return err
	}
	if uint64(len(bounds)) != wr.NumSigs+1 {
		return ErrBadBounds
	}
	if bounds[0] != 0 {
		return ErrBadBounds
	}
	for i := 1; i < len(bounds); i++ {
		if bounds[i] < bounds[i-1] {
			return ErrBadBounds
		}
	}
	return binary.Write(wr.w, be, bounds)
}

// WriteIDs writes the ids dataset; len(ids) must equal NumSigs.
func (wr *Writer) WriteIDs(ids []string) error {
	if err := wr.writeHeader(); err != nil {
		return err
	}
	for _, id := range ids {
		if err := writeString(wr.w, id); err != nil {
			return err
		}
	}
	return nil
}

// WriteValues writes the flat values dataset, nelems elements of
// ElemSize bytes each, optionally gzip-framed per Header.Flags.
func (wr *Writer) WriteValues(values []uint64) error {
	if err := wr.writeHeader(); err != nil {
		return err
	}
	var dst io.Writer = wr.w
	var gz *gzip.Writer
	if wr.gzipValues() {
		gz = gzip.NewWriter(wr.w)
		dst = gz
	}
	buf := make([]byte, wr.ElemSize)
	for _, v := range values {
		putUint(buf, v, wr.ElemSize)
		if _, err := dst.Write(buf); err != nil {
			return err
		}
	}
	if gz != nil {
		return gz.Close()
	}
	return nil
}

func putUint(buf []byte, v uint64, size uint8) {
	switch size {
	case 1:
		buf[0] = byte(v)
	case 2:
		be.PutUint16(buf, uint16(v))
	case 4:
		be.PutUint32(buf, uint32(v))
	default:
		be.PutUint64(buf, v)
	}
}

func getUint(buf []byte, size uint8) uint64 {
	switch size {
	case 1:
		return uint64(buf[0])
	case 2:
		return uint64(be.Uint16(buf))
	case 4:
		return uint64(be.Uint32(buf))
	default:
		return be.Uint64(buf)
	}
}

// Reader reads a Header and its three datasets back out, in order.
type Reader struct {
	Header
	r io.Reader
}

// NewReader reads and validates the header from r.
func NewReader(r io.Reader) (*Reader, error) {
	br := bufio.NewReader(r)
	rd := &Reader{r: br}
	if err := rd.readHeader(br); err != nil {
		return nil, err
	}
	return rd, nil
}

func (rd *Reader) readHeader(r io.Reader) error {
	var magic [8]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return err
	}
	if magic != Magic {
		return ErrBadMagic
	}
	var version uint8
	if err := binary.Read(r, be, &version); err != nil {
		return err
	}
	if version != FormatVersion {
		return ErrBadVersion
	}
	if err := binary.Read(r, be, &rd.K); err != nil {
		return err
	}
	var plen uint8
	if err := binary.Read(r, be, &plen); err != nil {
		return err
	}
	rd.Prefix = make([]byte, plen)
	if _, err := io.ReadFull(r, rd.Prefix); err != nil {
		return err
	}
	if err := binary.Read(r, be, &rd.ElemSize); err != nil {
		return err
	}
	if err := binary.Read(r, be, &rd.Flags); err != nil {
		return err
	}
	var idKind uint8
	if err := binary.Read(r, be, &idKind); err != nil {
		return err
	}
	rd.IDKind = IDKind(idKind)

	strs := make([]*string, 6)
	strs[0], strs[1], strs[2] = &rd.ID, &rd.Name, &rd.Version
	strs[3], strs[4], strs[5] = &rd.IDAttr, &rd.Description, &rd.Extra
	for _, s := range strs {
		v, err := readString(r)
		if err != nil {
			return err
		}
		*s = v
	}

	return binary.Read(r, be, &rd.NumSigs)
}

// ReadBounds reads the NumSigs+1 bounds dataset, validating invariants.
func (rd *Reader) ReadBounds() ([]int64, error) {
	bounds := make([]int64, rd.NumSigs+1)
	if err := binary.Read(rd.r, be, &bounds); err != nil {
		return nil, err
	}
	if bounds[0] != 0 || bounds[len(bounds)-1] < 0 {
		return nil, ErrBadBounds
	}
	for i := 1; i < len(bounds); i++ {
		if bounds[i] < bounds[i-1] {
			return nil, ErrBadBounds
		}
	}
	return bounds, nil
}

// ReadIDs reads the NumSigs-length ids dataset.
func (rd *Reader) ReadIDs() ([]string, error) {
	ids := make([]string, rd.NumSigs)
	for i := range ids {
		s, err := readString(rd.r)
		if err != nil {
			return nil, err
		}
		ids[i] = s
	}
	return ids, nil
}

// ReadValues reads nvalues flat index elements, transparently
// decompressing if Header.Flags says the values dataset is gzipped.
// This is a sequential read from the current stream position, for both
// the gzip and the uncompressed framing; the package offers no
// sub-range or random-access read of the values dataset.
func (rd *Reader) ReadValues(nvalues int64) ([]uint64, error) {
	var src io.Reader = rd.r
	var gz *gzip.Reader
	var err error
	if rd.gzipValues() {
		gz, err = gzip.NewReader(rd.r)
		if err != nil {
			return nil, err
		}
		src = gz
	}
	out := make([]uint64, nvalues)
	buf := make([]byte, rd.ElemSize)
	for i := range out {
		if _, err := io.ReadFull(src, buf); err != nil {
			if err == io.EOF {
				return nil, ErrTruncated
			}
			return nil, err
		}
		out[i] = getUint(buf, rd.ElemSize)
	}
	if gz != nil {
		return out, gz.Close()
	}
	return out, nil
}

// ValuesByteOffset computes the byte offset of values[pos] within the
// uncompressed values dataset, relative to the start of that dataset.
// No reader in this package uses it.
func ValuesByteOffset(pos int64, elemSize uint8) int64 {
	return pos * int64(elemSize)
}
