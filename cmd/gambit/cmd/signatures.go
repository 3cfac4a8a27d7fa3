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
	"encoding/json"
	"fmt"
	"os"

	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jlumpe/gambit"
)

var signaturesCmd = &cobra.Command{
	Use:   "signatures",
	Short: "inspect or create signature files",
}

func init() {
	signaturesInfoCmd.Flags().BoolP("json", "", false, "print full metadata as JSON instead of a scalar summary")
	signaturesInfoCmd.Flags().BoolP("ids", "i", false, "list every signature id")
	signaturesCmd.AddCommand(signaturesInfoCmd)

	signaturesCreateCmd.Flags().IntP("kmer", "k", 11, "k-mer tail length")
	signaturesCreateCmd.Flags().String("prefix", "ATGAC", "anchoring prefix")
	signaturesCreateCmd.Flags().String("db-params", "", "read k/prefix from an existing signature file instead of -k/--prefix")
	signaturesCreateCmd.Flags().StringP("out", "o", "signatures.gs", "output signature file")
	signaturesCreateCmd.Flags().Bool("no-gzip", false, "do not gzip-compress the values dataset")
	signaturesCreateCmd.Flags().String("id", "", "metadata: signature set id")
	signaturesCreateCmd.Flags().String("name", "", "metadata: signature set name")
	signaturesCreateCmd.Flags().String("version", "", "metadata: signature set version")
	signaturesCreateCmd.Flags().String("id-attr", "key", "metadata: genome id attribute these signature ids join on")
	signaturesCmd.AddCommand(signaturesCreateCmd)

	RootCmd.AddCommand(signaturesCmd)
}

var signaturesInfoCmd = &cobra.Command{
	Use:   "info <signature-file>",
	Short: "print signature file metadata",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		refs, err := gambit.LoadSignatures(args[0])
		checkError(err)

		if getFlagBool(cmd, "ids") {
			for _, id := range refs.IDs {
				fmt.Println(id)
			}
			return
		}

		if getFlagBool(cmd, "json") {
			doc := map[string]interface{}{
				"id":          refs.Meta.ID,
				"name":        refs.Meta.Name,
				"version":     refs.Meta.Version,
				"id_attr":     refs.Meta.IDAttr,
				"description": refs.Meta.Description,
				"k":           refs.KmerSpec.K,
				"prefix":      string(refs.KmerSpec.Prefix),
				"num_sigs":    refs.Len(),
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			checkError(enc.Encode(doc))
			return
		}

		fmt.Printf("id          : %s\n", refs.Meta.ID)
		fmt.Printf("name        : %s\n", refs.Meta.Name)
		fmt.Printf("version     : %s\n", refs.Meta.Version)
		fmt.Printf("id-attr     : %s\n", refs.Meta.IDAttr)
		fmt.Printf("description : %s\n", refs.Meta.Description)
		fmt.Printf("k           : %d\n", refs.KmerSpec.K)
		fmt.Printf("prefix      : %s\n", string(refs.KmerSpec.Prefix))
		fmt.Printf("signatures  : %s\n", humanize.Comma(int64(refs.Len())))
	},
}

var signaturesCreateCmd = &cobra.Command{
	Use:   "create [FASTA files]...",
	Short: "build a signature file from FASTA genomes",
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)
		if len(args) == 0 {
			checkUserError("signatures create: give at least one FASTA file")
		}

		var kspec gambit.KmerSpec
		if dbParams := getFlagString(cmd, "db-params"); dbParams != "" {
			existing, err := gambit.LoadSignatures(dbParams)
			checkError(err)
			kspec = existing.KmerSpec
		} else {
			var err error
			kspec, err = gambit.NewKmerSpec(getFlagInt(cmd, "kmer"), []byte(getFlagString(cmd, "prefix")))
			checkError(err)
		}

		var progress gambit.ProgressFunc
		var waitProgress func()
		if opt.Verbose {
			progress, waitProgress = gambit.NewCLIProgress("signatures", len(args))
		}

		sigs := make([]gambit.Signature, len(args))
		ids := make([]string, len(args))
		for i, f := range args {
			s, err := gambit.SignatureFromFASTA(kspec, f)
			checkError(err)
			sigs[i] = s
			ids[i] = f
			if progress != nil {
				progress(i+1, len(args))
			}
		}
		if waitProgress != nil {
			waitProgress()
		}

		refs := gambit.ReferenceSignatures{
			SignatureArray: gambit.NewSignatureArray(kspec, sigs),
			IDs:            ids,
			Meta: gambit.SignaturesMeta{
				ID:      getFlagString(cmd, "id"),
				Name:    getFlagString(cmd, "name"),
				Version: getFlagString(cmd, "version"),
				IDAttr:  getFlagString(cmd, "id-attr"),
			},
		}

		gzip := !getFlagBool(cmd, "no-gzip")
		checkError(gambit.SaveSignatures(getFlagString(cmd, "out"), refs, gzip))
	},
}
