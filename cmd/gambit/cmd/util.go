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

package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/shenwei356/breader"
	"github.com/spf13/cobra"

	"github.com/jlumpe/gambit"
)

// Options carries the persistent flags shared by every subcommand,
// mirroring unikmer/cmd/util.go's getOptions/Options pattern.
type Options struct {
	NumCPUs int
	Verbose bool
	DBPath  string
}

func getOptions(cmd *cobra.Command) *Options {
	nthreads := getFlagInt(cmd, "threads")
	if nthreads <= 0 {
		nthreads = 1
	}
	dbpath := getFlagString(cmd, "db")
	if dbpath == "" {
		dbpath = os.Getenv("GAMBIT_DB_PATH")
	}
	return &Options{
		NumCPUs: nthreads,
		Verbose: getFlagBool(cmd, "verbose"),
		DBPath:  dbpath,
	}
}

func getFlagString(cmd *cobra.Command, name string) string {
	v, err := cmd.Flags().GetString(name)
	checkError(err)
	return v
}

func getFlagStringSlice(cmd *cobra.Command, name string) []string {
	v, err := cmd.Flags().GetStringSlice(name)
	checkError(err)
	return v
}

func getFlagInt(cmd *cobra.Command, name string) int {
	v, err := cmd.Flags().GetInt(name)
	checkError(err)
	return v
}

func getFlagBool(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	checkError(err)
	return v
}

// checkError prints err and exits with the code §7 assigns to its Kind
// (1 for InvalidInput, 2 for everything else, including plain errors
// from flag parsing or missing files that never passed through the
// core). A nil err is a no-op.
func checkError(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, "gambit: "+err.Error())
	if gambit.IsKind(err, gambit.KindInvalidInput) {
		os.Exit(1)
	}
	os.Exit(2)
}

// checkUserError exits 1 unconditionally — for option-combination
// mistakes the CLI itself detects before ever calling into the core
// (e.g. "query: give either file arguments or --sigfile, not both").
func checkUserError(msg string) {
	fmt.Fprintln(os.Stderr, "gambit: "+msg)
	os.Exit(1)
}

// loadGenomeDB reads the flat database dump: the sqlite-backed
// genome/taxonomy store spec.md §6 describes is an
// external-system concern out of this repo's core scope (see
// TaxonomyProvider's doc comment in genome.go); the CLI instead reads a
// single flat TSV dump, tagged per-line by a leading record kind so one
// ".gdb" file can carry the taxonomy tree, the genome table, and the
// genome-set identity, mirroring how unikmer's own flat NCBI nodes.dmp
// reader works.
//
// Taxon line:     "T\tkey\tparent_key\tname\trank\tthreshold\treport"
// Genome line:    "G\tkey\tgenbank_acc\trefseq_acc\tncbi_id\tname\ttaxon_key"
// Genomeset line: "S\tkey\tversion\tname\tdescription" (optional, at most one)
// A taxon's parent line must precede the taxon's own line; lines are
// parsed by a single worker, so taxa are added in file order. Genome
// lines may appear anywhere: they are resolved against the taxonomy
// after the whole file is read. Genome rows are returned in file order, with
// SignatureIndex unset — gambit.JoinGenomesToSignatures (called from
// openDB) resolves the real per-signature order via the id_attr join.
func loadGenomeDB(path string) (*gambit.Taxonomy, []gambit.AnnotatedGenome, gambit.ReferenceGenomeSet, error) {
	type genomeRow struct {
		key, genbankAcc, refseqAcc, ncbiID, name, taxonKey string
	}
	type genomeSetRow struct {
		key, version, name, description string
	}

	tax := gambit.NewTaxonomy()
	var genomeRows []genomeRow
	var genomeSet gambit.ReferenceGenomeSet

	parseFunc := func(line string) (interface{}, bool, error) {
		if line == "" || strings.HasPrefix(line, "#") {
			return nil, false, nil
		}
		cols := strings.Split(line, "\t")
		if len(cols) == 0 {
			return nil, false, nil
		}
		switch cols[0] {
		case "T":
			if len(cols) < 7 {
				return nil, false, fmt.Errorf("malformed taxon row: %q", line)
			}
			var hasThreshold bool
			var threshold float32
			if cols[5] != "" {
				v, err := strconv.ParseFloat(cols[5], 32)
				if err != nil {
					return nil, false, err
				}
				hasThreshold = true
				threshold = float32(v)
			}
			if _, err := tax.AddTaxon(cols[1], cols[3], cols[4], hasThreshold, threshold, cols[6] == "1", cols[2]); err != nil {
				return nil, false, err
			}
			return nil, false, nil
		case "G":
			if len(cols) < 7 {
				return nil, false, fmt.Errorf("malformed genome row: %q", line)
			}
			return genomeRow{key: cols[1], genbankAcc: cols[2], refseqAcc: cols[3], ncbiID: cols[4], name: cols[5], taxonKey: cols[6]}, true, nil
		case "S":
			if len(cols) < 5 {
				return nil, false, fmt.Errorf("malformed genomeset row: %q", line)
			}
			return genomeSetRow{key: cols[1], version: cols[2], name: cols[3], description: cols[4]}, true, nil
		default:
			return nil, false, fmt.Errorf("unknown record kind %q", cols[0])
		}
	}

	reader, err := breader.NewBufferedReader(path, 1, 100, parseFunc)
	if err != nil {
		return nil, nil, gambit.ReferenceGenomeSet{}, err
	}
	for chunk := range reader.Ch {
		if chunk.Err != nil {
			return nil, nil, gambit.ReferenceGenomeSet{}, chunk.Err
		}
		for _, data := range chunk.Data {
			switch v := data.(type) {
			case genomeRow:
				genomeRows = append(genomeRows, v)
			case genomeSetRow:
				genomeSet = gambit.ReferenceGenomeSet{Key: v.key, Version: v.version, Name: v.name, Description: v.description}
			}
		}
	}

	genomes := make([]gambit.AnnotatedGenome, len(genomeRows))
	for i, r := range genomeRows {
		taxon, ok := tax.ByKey(r.taxonKey)
		if !ok {
			return nil, nil, gambit.ReferenceGenomeSet{}, fmt.Errorf("genome %q: unknown taxon %q", r.key, r.taxonKey)
		}
		genomes[i] = gambit.AnnotatedGenome{
			Genome: gambit.Genome{
				Key:        r.key,
				GenbankAcc: r.genbankAcc,
				RefseqAcc:  r.refseqAcc,
				NCBIID:     r.ncbiID,
				Name:       r.name,
				Taxon:      taxon,
			},
		}
	}
	return tax, genomes, genomeSet, nil
}

// resolvedDB is everything a subcommand needs after --db/GAMBIT_DB_PATH
// resolves to a directory, per §6 "Database directory layout".
type resolvedDB struct {
	Taxonomy   *gambit.Taxonomy
	Genomes    []gambit.AnnotatedGenome
	References gambit.ReferenceSignatures
	GenomeSet  gambit.ReferenceGenomeSet
}

func openDB(dir string) (*resolvedDB, error) {
	if dir == "" {
		return nil, fmt.Errorf("no database: pass --db or set GAMBIT_DB_PATH")
	}
	gdbFile, err := resolveDBFile(dir, ".gdb")
	if err != nil {
		return nil, err
	}
	sigFile, err := resolveDBFile(dir, ".gs")
	if err != nil {
		return nil, err
	}

	tax, rawGenomes, genomeSet, err := loadGenomeDB(gdbFile)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", gdbFile, err)
	}
	refs, err := gambit.LoadSignatures(sigFile)
	if err != nil {
		return nil, err
	}

	// Pair each signature row with its genome via the id_attr join
	// (spec.md's ReferenceSignatures/Genome join key) rather than
	// assuming the .gdb and .gs files share row order.
	genomes, err := gambit.JoinGenomesToSignatures(rawGenomes, refs)
	if err != nil {
		return nil, err
	}

	return &resolvedDB{Taxonomy: tax, Genomes: genomes, References: refs, GenomeSet: genomeSet}, nil
}

// resolveDBFile finds the single file directly under dir with the
// given suffix. Zero or multiple matches is a plain error carrying no
// gambit Kind, so checkError exits 2 for it.
func resolveDBFile(dir, suffix string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	var match string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), suffix) {
			if match != "" {
				return "", fmt.Errorf("multiple %s files found under %s", suffix, dir)
			}
			match = filepath.Join(dir, e.Name())
		}
	}
	if match == "" {
		return "", fmt.Errorf("no %s file found under %s", suffix, dir)
	}
	return match, nil
}
