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
	"runtime"

	"github.com/spf13/cobra"

	"github.com/jlumpe/gambit"
)

// RootCmd represents the base command when called without any subcommands.
var RootCmd = &cobra.Command{
	Use:   "gambit",
	Short: "Genomic Approximation Method for Bacterial Identification of Taxonomy",
	Long: fmt.Sprintf(`gambit - taxonomic identification from genome k-mer signatures

Classifies a query genome by comparing its k-mer signature against a
reference database's signatures and a taxonomy tree, using Jaccard
distance and per-taxon distance thresholds.

Version: %s


`, gambit.Version),
}

// Execute adds all child commands to RootCmd and runs it. Called once
// from main.main(). Every subcommand uses Run and exits through
// checkError/checkUserError itself, so an error returned here is a
// command-line usage error (unknown flag or subcommand, bad flag value)
// and exits 1, the user-error code.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	defaultThreads := runtime.NumCPU()
	if defaultThreads > 2 {
		defaultThreads = 2
	}

	RootCmd.PersistentFlags().IntP("threads", "j", defaultThreads, "number of worker goroutines to use")
	RootCmd.PersistentFlags().BoolP("verbose", "v", false, "print verbose information")
	RootCmd.PersistentFlags().String("db", "", "reference database directory (or set GAMBIT_DB_PATH)")
}
