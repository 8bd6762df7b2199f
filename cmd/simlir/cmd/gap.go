// Copyright 2019-2025 The Liqo Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/liqotech/simlir/pkg/simlir/gap"
	"github.com/liqotech/simlir/pkg/simlir/output"
)

const gapLongHelp = `Search a free block in an address tree.

The tree is built from the prefixes given on the command line: the used
ones are allocated, the free ones are only registered as space to search
from. The command prints the lowest free block with the requested prefix
length, within --from if given.

Examples:
  $ simlir gap --used 0.0.0.0/8,1.0.0.0/8 --size 8
  $ simlir gap --free 10.0.0.0/8 --used 10.0.0.0/16 --from 10.0.0.0/8 --size 16
  $ simlir gap --from 10.0.0.0/8 --create-missing --size 24 --graphviz
`

func newGapCommand(printer *output.Printer) *cobra.Command {
	options := gap.NewOptions(printer)

	cmd := &cobra.Command{
		Use:   "gap",
		Short: "Search a free block in an address tree",
		Long:  gapLongHelp,
		Args:  cobra.NoArgs,

		RunE: func(_ *cobra.Command, _ []string) error {
			return options.Run()
		},
	}

	cmd.Flags().Var(&options.Used, "used", "The allocated prefixes, comma separated")
	cmd.Flags().Var(&options.Free, "free", "The registered but unallocated prefixes, comma separated")
	cmd.Flags().IntVar(&options.Size, "size", 24, "The prefix length of the requested block")
	cmd.Flags().Var(&options.From, "from", "The prefix to search within")
	cmd.Flags().BoolVar(&options.CreateMissing, "create-missing", false,
		"Register the --from prefix when absent, instead of finding nothing")
	cmd.Flags().BoolVar(&options.Coarse, "coarse", false,
		"Return the free block where the gap was detected, without narrowing it to the requested size (not with --from)")
	cmd.Flags().BoolVar(&options.Graphviz, "graphviz", false, "Print the tree in DOT format")

	cmd.MarkFlagsMutuallyExclusive("from", "coarse")

	return cmd
}
