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
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/jlumpe/gambit"
)

func init() {
	queryCmd.Flags().StringP("list-file", "l", "", "file of input FASTA paths, one per line")
	queryCmd.Flags().String("sigfile", "", "precomputed query signature file, in place of FASTA input")
	queryCmd.Flags().StringP("out", "o", "-", "output file, \"-\" for stdout")
	queryCmd.Flags().StringP("format", "f", "csv", "output format: csv|json|archive")
	queryCmd.Flags().Bool("strict", false, "use strict (consensus) classification instead of closest-match")
	queryCmd.Flags().Int("closest", 1, "number of closest genomes to report per query")
	RootCmd.AddCommand(queryCmd)
}

var queryCmd = &cobra.Command{
	Use:   "query [FASTA files]...",
	Short: "classify query genomes against a reference database",
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)
		listFile := getFlagString(cmd, "list-file")
		sigFile := getFlagString(cmd, "sigfile")
		outPath := getFlagString(cmd, "out")
		format := getFlagString(cmd, "format")
		strict := getFlagBool(cmd, "strict")
		closest := getFlagInt(cmd, "closest")

		nSelectors := 0
		if len(args) > 0 {
			nSelectors++
		}
		if listFile != "" {
			nSelectors++
		}
		if sigFile != "" {
			nSelectors++
		}
		if nSelectors != 1 {
			checkUserError("query: give exactly one of positional FASTA paths, -l/--list-file, or --sigfile")
		}

		db, err := openDB(opt.DBPath)
		checkError(err)

		var inputs []gambit.QueryInput
		switch {
		case listFile != "":
			files, err := readLines(listFile)
			checkError(err)
			for _, f := range files {
				inputs = append(inputs, gambit.QueryInput{Label: f, File: f})
			}
		case sigFile != "":
			refs, err := gambit.LoadSignatures(sigFile)
			checkError(err)
			for i, id := range refs.IDs {
				inputs = append(inputs, gambit.QueryInput{Label: id, Sig: refs.At(i), KmerSpec: refs.KmerSpec})
			}
		default:
			for _, f := range args {
				inputs = append(inputs, gambit.QueryInput{Label: f, File: f})
			}
		}

		params := gambit.QueryParams{ClassifyStrict: strict, ReportClosest: closest}
		var progress gambit.ProgressFunc
		var waitProgress func()
		if opt.Verbose {
			progress, waitProgress = gambit.NewCLIProgress("query", len(inputs))
		}

		results, err := gambit.RunQuery(db.Taxonomy, db.Genomes, db.References, db.GenomeSet, inputs, params, opt.NumCPUs, progress, nil)
		checkError(err)
		if waitProgress != nil {
			waitProgress()
		}
		results.Timestamp = time.Now().UTC().Format(time.RFC3339)

		out := os.Stdout
		if outPath != "-" {
			f, err := os.Create(outPath)
			checkError(err)
			defer f.Close()
			out = f
		}

		switch format {
		case "csv":
			checkError(writeQueryCSV(out, results))
		case "json", "archive":
			checkError(writeQueryJSON(out, results))
		default:
			checkUserError(fmt.Sprintf("query: unknown format %q", format))
		}
	},
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if l := sc.Text(); l != "" {
			lines = append(lines, l)
		}
	}
	return lines, sc.Err()
}

// writeQueryCSV writes one row per query, preserving input order, per
// §6 "Writes one row/record per input preserving order."
func writeQueryCSV(w *os.File, results gambit.QueryResults) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()
	if err := cw.Write([]string{"query", "predicted_taxon", "predicted_rank", "success", "closest_genome", "closest_distance", "next_taxon", "warnings"}); err != nil {
		return err
	}
	for _, item := range results.Items {
		predicted, rank := "", ""
		if item.Classification.PredictedTaxon != nil {
			predicted = item.Classification.PredictedTaxon.Key
			rank = item.Classification.PredictedTaxon.Rank
		}
		next := ""
		if item.Classification.NextTaxon != nil {
			next = item.Classification.NextTaxon.Key
		}
		warnings := ""
		for i, w := range item.Classification.Warnings {
			if i > 0 {
				warnings += "; "
			}
			warnings += w
		}
		row := []string{
			item.Input.Label,
			predicted,
			rank,
			strconv.FormatBool(item.Classification.Success),
			item.Classification.ClosestMatch.Genome.Key,
			strconv.FormatFloat(float64(item.Classification.ClosestMatch.Distance), 'f', 6, 32),
			next,
			warnings,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeQueryJSON writes the result archive document, per §6 "Result
// archive format": params, genomeset, signaturesmeta, items, timestamp,
// gambit_version.
func writeQueryJSON(w *os.File, results gambit.QueryResults) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
