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
	"strconv"
	"strings"

	"github.com/shenwei356/breader"
)

// noTaxon is the arena-index sentinel for "no parent" / "not found",
// mirroring unikmer.Taxonomy's use of taxid 0 as the absent marker.
const noTaxon = -1

// Taxon is a read-only projection of one taxonomy node (§3). Ancestry
// walks toward the root via Parent; Children lists immediate children.
// report=false taxa are skipped when surfacing a result to a user.
type Taxon struct {
	id                int32
	Key               string
	Name              string
	Rank              string
	HasThreshold      bool
	DistanceThreshold float32
	Report            bool

	parent   int32 // arena index, noTaxon at the root
	children []int32
}

// ID is the dense arena index assigned to this taxon.
func (t *Taxon) ID() int32 { return t.id }

// Taxonomy is the taxon forest, stored as an arena: Nodes holds every
// Taxon at its dense id, and each Taxon records its parent and children
// as arena indices (§9 "Cyclic
// object graphs" redesign: arena storage instead of a parent/children
// object graph through a lazy ORM). Ancestor walks and LCA are index
// chases over Nodes, adapted from unikmer.Taxonomy's parent-map LCA.
type Taxonomy struct {
	Nodes []*Taxon
	byKey map[string]int32

	cacheLCA bool
	lcaCache map[int64]int32
}

// NewTaxonomy builds an empty arena; taxa are added with AddTaxon.
func NewTaxonomy() *Taxonomy {
	return &Taxonomy{byKey: make(map[string]int32, 1024)}
}

// AddTaxon inserts a taxon with the given key and a possibly-absent
// parent key (empty string = root). Returns the new taxon's arena id.
// Parents must be added before their children.
func (t *Taxonomy) AddTaxon(key, name, rank string, hasThreshold bool, threshold float32, report bool, parentKey string) (int32, error) {
	if _, dup := t.byKey[key]; dup {
		return 0, newErr(KindIncompatibleDatabase, "duplicate taxon key %q", key)
	}
	id := int32(len(t.Nodes))
	parent := int32(noTaxon)
	if parentKey != "" {
		p, ok := t.byKey[parentKey]
		if !ok {
			return 0, newErr(KindIncompatibleDatabase, "taxon %q: unknown parent %q", key, parentKey)
		}
		parent = p
	}
	tx := &Taxon{
		id:                id,
		Key:               key,
		Name:              name,
		Rank:              rank,
		HasThreshold:      hasThreshold,
		DistanceThreshold: threshold,
		Report:            report,
		parent:            parent,
	}
	t.Nodes = append(t.Nodes, tx)
	t.byKey[key] = id
	if parent != noTaxon {
		t.Nodes[parent].children = append(t.Nodes[parent].children, id)
	}
	return id, nil
}

// ByKey looks up a taxon by its stable key.
func (t *Taxonomy) ByKey(key string) (*Taxon, bool) {
	id, ok := t.byKey[key]
	if !ok {
		return nil, false
	}
	return t.Nodes[id], true
}

// Parent returns the parent of taxon id, or nil at the root.
func (t *Taxonomy) Parent(tx *Taxon) *Taxon {
	if tx.parent == noTaxon {
		return nil
	}
	return t.Nodes[tx.parent]
}

// Children returns the immediate children of tx.
func (t *Taxonomy) Children(tx *Taxon) []*Taxon {
	out := make([]*Taxon, len(tx.children))
	for i, id := range tx.children {
		out[i] = t.Nodes[id]
	}
	return out
}

// IsAncestor reports whether anc is tx or an ancestor of tx.
func (t *Taxonomy) IsAncestor(anc, tx *Taxon) bool {
	for cur := tx; cur != nil; cur = t.Parent(cur) {
		if cur.id == anc.id {
			return true
		}
	}
	return false
}

// CacheLCA enables memoization of LCA results, mirroring
// unikmer.Taxonomy.CacheLCA.
func (t *Taxonomy) CacheLCA() {
	t.cacheLCA = true
	if t.lcaCache == nil {
		t.lcaCache = make(map[int64]int32, 1024)
	}
}

func packIDs(a, b int32) int64 {
	if a < b {
		return int64(a)<<32 | int64(uint32(b))
	}
	return int64(b)<<32 | int64(uint32(a))
}

// LCA returns the lowest common ancestor of a and b, or nil if they
// don't share one (disjoint trees in the forest). Adapted from
// unikmer.Taxonomy.LCA's dual ancestor-walk with set intersection,
// generalized from a bare taxid parent-map to the Taxon arena.
func (t *Taxonomy) LCA(a, b *Taxon) *Taxon {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if a.id == b.id {
		return a
	}

	var key int64
	if t.cacheLCA {
		key = packIDs(a.id, b.id)
		if id, ok := t.lcaCache[key]; ok {
			if id == noTaxon {
				return nil
			}
			return t.Nodes[id]
		}
	}

	lineageA := map[int32]struct{}{a.id: {}}
	for cur := a; ; {
		p := t.Parent(cur)
		if p == nil {
			break
		}
		if p.id == b.id {
			t.memoLCA(key, b.id)
			return b
		}
		lineageA[p.id] = struct{}{}
		cur = p
	}

	for cur := b; ; {
		p := t.Parent(cur)
		if p == nil {
			break
		}
		if p.id == a.id {
			t.memoLCA(key, a.id)
			return a
		}
		if _, ok := lineageA[p.id]; ok {
			t.memoLCA(key, p.id)
			return p
		}
		cur = p
	}

	t.memoLCA(key, noTaxon)
	return nil
}

func (t *Taxonomy) memoLCA(key int64, id int32) {
	if t.cacheLCA {
		t.lcaCache[key] = id
	}
}

// NewTaxonomyFromFile parses a tab-delimited flat taxonomy dump — one
// row per taxon with columns key, parent_key, name, rank, threshold
// ("" if undefined), report (0/1) — via a parallel buffered reader.
// Grounded on unikmer.NewTaxonomyFromNCBI/NewTaxonomy's use of
// breader.NewBufferedReader over NCBI's nodes.dmp, generalized to carry
// the extra columns GAMBIT's Taxon needs that a bare nodes.dmp doesn't.
// Rows must appear in parent-before-child order.
func NewTaxonomyFromFile(path string) (*Taxonomy, error) {
	type row struct {
		key, parent, name, rank string
		hasThreshold            bool
		threshold               float32
		report                  bool
	}

	parseFunc := func(line string) (interface{}, bool, error) {
		if line == "" || strings.HasPrefix(line, "#") {
			return nil, false, nil
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 6 {
			return nil, false, nil
		}
		r := row{key: cols[0], parent: cols[1], name: cols[2], rank: cols[3]}
		if cols[4] != "" {
			v, err := strconv.ParseFloat(cols[4], 32)
			if err != nil {
				return nil, false, err
			}
			r.hasThreshold = true
			r.threshold = float32(v)
		}
		r.report = cols[5] == "1"
		return r, true, nil
	}

	reader, err := breader.NewBufferedReader(path, 2, 100, parseFunc)
	if err != nil {
		return nil, wrapErr(KindIo, err, "open taxonomy file %s", path)
	}

	tax := NewTaxonomy()
	for chunk := range reader.Ch {
		if chunk.Err != nil {
			return nil, wrapErr(KindFormatError, chunk.Err, "parse taxonomy file %s", path)
		}
		for _, data := range chunk.Data {
			r := data.(row)
			if _, err := tax.AddTaxon(r.key, r.name, r.rank, r.hasThreshold, r.threshold, r.report, r.parent); err != nil {
				return nil, err
			}
		}
	}
	return tax, nil
}
