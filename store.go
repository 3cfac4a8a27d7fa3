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
	"encoding/json"
	"os"

	"github.com/jlumpe/gambit/store"
)

// SaveSignatures writes a ReferenceSignatures to path in the container
// format of §4.4. gzipValues compresses the values dataset.
func SaveSignatures(path string, refs ReferenceSignatures, gzipValues bool) error {
	f, err := os.Create(path)
	if err != nil {
		return wrapErr(KindIo, err, "create %s", path)
	}
	defer f.Close()

	extra := ""
	if len(refs.Meta.Extra) > 0 {
		b, err := json.Marshal(refs.Meta.Extra)
		if err != nil {
			return wrapErr(KindInvalidInput, err, "marshal extra metadata")
		}
		extra = string(b)
	}

	var flags uint8
	if gzipValues {
		flags |= store.FlagGzipValues
	}

	h := store.Header{
		K:           uint8(refs.KmerSpec.K),
		Prefix:      refs.KmerSpec.Prefix,
		ElemSize:    uint8(refs.KmerSpec.IndexType().ElemSize()),
		Flags:       flags,
		IDKind:      store.IDKindString,
		ID:          refs.Meta.ID,
		Name:        refs.Meta.Name,
		Version:     refs.Meta.Version,
		IDAttr:      refs.Meta.IDAttr,
		Description: refs.Meta.Description,
		Extra:       extra,
		NumSigs:     uint64(refs.Len()),
	}

	w := store.NewWriter(f, h)
	if err := w.WriteBounds(refs.Bounds); err != nil {
		return wrapErr(KindIo, err, "write bounds dataset")
	}
	if err := w.WriteIDs(refs.IDs); err != nil {
		return wrapErr(KindIo, err, "write ids dataset")
	}
	if err := w.WriteValues(refs.Values); err != nil {
		return wrapErr(KindIo, err, "write values dataset")
	}
	return nil
}

// LoadSignatures reads a ReferenceSignatures from path in full —
// sequential access, appropriate for the whole-file QueryPipeline path.
// The returned value has no open file handle to release.
func LoadSignatures(path string) (ReferenceSignatures, error) {
	f, err := os.Open(path)
	if err != nil {
		return ReferenceSignatures{}, wrapErr(KindIo, err, "open %s", path)
	}
	defer f.Close()
	return readSignatures(f)
}

func readSignatures(f *os.File) (ReferenceSignatures, error) {
	r, err := store.NewReader(f)
	if err != nil {
		switch err {
		case store.ErrBadMagic, store.ErrBadVersion:
			return ReferenceSignatures{}, wrapErr(KindFormatError, err, "read container header")
		default:
			return ReferenceSignatures{}, wrapErr(KindIo, err, "read container header")
		}
	}

	kspec, err := NewKmerSpec(int(r.K), r.Prefix)
	if err != nil {
		return ReferenceSignatures{}, err
	}

	bounds, err := r.ReadBounds()
	if err != nil {
		return ReferenceSignatures{}, wrapErr(KindFormatError, err, "read bounds dataset")
	}
	ids, err := r.ReadIDs()
	if err != nil {
		return ReferenceSignatures{}, wrapErr(KindFormatError, err, "read ids dataset")
	}
	values, err := r.ReadValues(bounds[len(bounds)-1])
	if err != nil {
		return ReferenceSignatures{}, wrapErr(KindFormatError, err, "read values dataset")
	}

	var extra map[string]interface{}
	if r.Extra != "" {
		if err := json.Unmarshal([]byte(r.Extra), &extra); err != nil {
			return ReferenceSignatures{}, wrapErr(KindFormatError, err, "parse extra metadata")
		}
	}

	return ReferenceSignatures{
		SignatureArray: SignatureArray{Values: values, Bounds: bounds, KmerSpec: kspec},
		IDs:            ids,
		Meta: SignaturesMeta{
			ID:          r.ID,
			Name:        r.Name,
			Version:     r.Version,
			IDAttr:      r.IDAttr,
			Description: r.Description,
			Extra:       extra,
		},
	}, nil
}

// OpenReferenceChunkSource returns a RefChunkSource over a whole
// ReferenceSignatures already resident in memory (LoadSignatures reads
// the full file up front; the store package has no sub-range read).
// Next just re-slices the in-memory SignatureArray,
// same as NewSliceChunkSource; this wrapper exists so callers can open
// a reference database file directly without manually loading it first.
func OpenReferenceChunkSource(path string) (RefChunkSource, ReferenceSignatures, error) {
	refs, err := LoadSignatures(path)
	if err != nil {
		return nil, ReferenceSignatures{}, err
	}
	return NewSliceChunkSource(refs.SignatureArray), refs, nil
}
