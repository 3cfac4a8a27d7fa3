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
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jlumpe/gambit"
)

func init() {
	distCmd.Flags().StringSliceP("query", "q", nil, "query FASTA file(s), repeatable")
	distCmd.Flags().String("ql", "", "file of query FASTA paths, one per line")
	distCmd.Flags().String("qs", "", "query signature file")

	distCmd.Flags().StringSliceP("ref", "r", nil, "reference FASTA file(s), repeatable")
	distCmd.Flags().String("rl", "", "file of reference FASTA paths, one per line")
	distCmd.Flags().String("rs", "", "reference signature file")
	distCmd.Flags().Bool("use-db", false, "use the signatures in --db as the reference set")
	distCmd.Flags().Bool("square", false, "reference set equals query set; emit the square/symmetric matrix")

	distCmd.Flags().IntP("kmer", "k", 11, "k-mer tail length, for FASTA inputs computed on the fly")
	distCmd.Flags().String("prefix", "ATGAC", "anchoring prefix, for FASTA inputs computed on the fly")
	distCmd.Flags().StringP("out", "o", "-", "output file, \"-\" for stdout")
	RootCmd.AddCommand(distCmd)
}

var distCmd = &cobra.Command{
	Use:   "dist",
	Short: "compute a Jaccard distance matrix between two signature sets",
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)

		kspec, err := gambit.NewKmerSpec(getFlagInt(cmd, "kmer"), []byte(getFlagString(cmd, "prefix")))
		checkError(err)

		qSigs, qIDs := resolveDistSide(cmd, "query", "ql", "qs", kspec)

		square := getFlagBool(cmd, "square")
		var rSigs []gambit.Signature
		var rIDs []string
		useDB := getFlagBool(cmd, "use-db")
		switch {
		case square:
			rSigs, rIDs = qSigs, qIDs
		case useDB:
			db, err := openDB(opt.DBPath)
			checkError(err)
			checkError(gambit.RequireEqualKmerSpec(db.References.KmerSpec, kspec, "--use-db"))
			rIDs = db.References.IDs
			rSigs = make([]gambit.Signature, db.References.Len())
			for i := range rSigs {
				rSigs[i] = db.References.At(i)
			}
		default:
			rSigs, rIDs = resolveDistSide(cmd, "ref", "rl", "rs", kspec)
		}

		if len(qSigs) == 0 || len(rSigs) == 0 {
			checkUserError("dist: give a query selector (-q/--ql/--qs) and a reference selector (-r/--rl/--rs/--use-db/--square)")
		}

		queries := gambit.NewSignatureArray(kspec, qSigs)
		refs := gambit.NewSignatureArray(kspec, rSigs)

		var progress gambit.ProgressFunc
		var waitProgress func()
		if opt.Verbose {
			progress, waitProgress = gambit.NewCLIProgress("dist", queries.Len())
		}

		src := gambit.NewSliceChunkSource(refs)
		matrix, err := gambit.JaccardDistMatrix(queries, src, refs.Len(), opt.NumCPUs, progress, nil)
		checkError(err)
		if waitProgress != nil {
			waitProgress()
		}

		outPath := getFlagString(cmd, "out")
		out := os.Stdout
		if outPath != "-" {
			f, err := os.Create(outPath)
			checkError(err)
			defer f.Close()
			out = f
		}
		checkError(writeDistCSV(out, qIDs, rIDs, matrix))
	},
}

func resolveDistSide(cmd *cobra.Command, filesFlag, listFlag, sigFlag string, kspec gambit.KmerSpec) ([]gambit.Signature, []string) {
	files := getFlagStringSlice(cmd, filesFlag)
	list := getFlagString(cmd, listFlag)
	sigfile := getFlagString(cmd, sigFlag)

	n := 0
	if len(files) > 0 {
		n++
	}
	if list != "" {
		n++
	}
	if sigfile != "" {
		n++
	}
	if n == 0 {
		return nil, nil
	}
	if n > 1 {
		checkUserError(fmt.Sprintf("dist: give only one of -%s/--%s/--%s", filesFlag, listFlag, sigFlag))
	}

	if sigfile != "" {
		refs, err := gambit.LoadSignatures(sigfile)
		checkError(err)
		checkError(gambit.RequireEqualKmerSpec(refs.KmerSpec, kspec, fmt.Sprintf("--%s %s", sigFlag, sigfile)))
		sigs := make([]gambit.Signature, refs.Len())
		for i := range sigs {
			sigs[i] = refs.At(i)
		}
		return sigs, refs.IDs
	}

	if list != "" {
		lines, err := readLines(list)
		checkError(err)
		files = lines
	}

	sigs := make([]gambit.Signature, len(files))
	ids := make([]string, len(files))
	for i, f := range files {
		s, err := gambit.SignatureFromFASTA(kspec, f)
		checkError(err)
		sigs[i] = s
		ids[i] = f
	}
	return sigs, ids
}

func writeDistCSV(w *os.File, qIDs, rIDs []string, matrix [][]float32) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()
	header := append([]string{""}, rIDs...)
	if err := cw.Write(header); err != nil {
		return err
	}
	for i, row := range matrix {
		rec := make([]string, len(row)+1)
		rec[0] = qIDs[i]
		for j, d := range row {
			rec[j+1] = strconv.FormatFloat(float64(d), 'f', 6, 32)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
