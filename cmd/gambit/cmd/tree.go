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
	"sort"

	"github.com/shenwei356/stable"
	"github.com/spf13/cobra"

	"github.com/jlumpe/gambit"
)

func init() {
	treeCmd.Flags().String("root", "", "print only the subtree rooted at this taxon key")
	RootCmd.AddCommand(treeCmd)
}

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "print the reference taxonomy tree",
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)
		rootKey := getFlagString(cmd, "root")

		db, err := openDB(opt.DBPath)
		checkError(err)

		var root *gambit.Taxon
		if rootKey != "" {
			var ok bool
			root, ok = db.Taxonomy.ByKey(rootKey)
			if !ok {
				checkUserError(fmt.Sprintf("tree: no taxon with key %q", rootKey))
			}
		}
		printTree(db.Taxonomy, root)
	},
}

func printTree(tax *gambit.Taxonomy, root *gambit.Taxon) {
	tbl := stable.New()
	tbl.HeaderWithFormat([]stable.Column{
		{Header: "key"},
		{Header: "rank"},
		{Header: "name"},
		{Header: "threshold", Align: stable.AlignRight},
		{Header: "report", Align: stable.AlignLeft},
	})

	var roots []*gambit.Taxon
	if root != nil {
		roots = []*gambit.Taxon{root}
	} else {
		for _, t := range tax.Nodes {
			if tax.Parent(t) == nil {
				roots = append(roots, t)
			}
		}
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i].Key < roots[j].Key })

	for _, r := range roots {
		walkTree(tax, tbl, r, 0)
	}

	style := &stable.TableStyle{
		Name:      "plain",
		HeaderRow: stable.RowStyle{Begin: "", Sep: "  ", End: ""},
		DataRow:   stable.RowStyle{Begin: "", Sep: "  ", End: ""},
		Padding:   "",
	}
	os.Stdout.Write(tbl.Render(style))
}

func walkTree(tax *gambit.Taxonomy, tbl *stable.Table, t *gambit.Taxon, depth int) {
	indent := ""
	for i := 0; i < depth; i++ {
		indent += "  "
	}
	threshold := ""
	if t.HasThreshold {
		threshold = fmt.Sprintf("%.4f", t.DistanceThreshold)
	}
	tbl.AddRow([]interface{}{indent + t.Key, t.Rank, t.Name, threshold, t.Report})

	children := tax.Children(t)
	sort.Slice(children, func(i, j int) bool { return children[i].Key < children[j].Key })
	for _, c := range children {
		walkTree(tax, tbl, c, depth+1)
	}
}
