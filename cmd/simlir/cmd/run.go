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
	"context"

	"github.com/spf13/cobra"

	"github.com/liqotech/simlir/pkg/simlir/config"
	"github.com/liqotech/simlir/pkg/simlir/output"
	"github.com/liqotech/simlir/pkg/simlir/runner"
)

const runLongHelp = `Run a simulation.

The world is either built from a scenario file (--config), listing the
RIRs, the historical IANA and RIR allocations and the behaviours, or
restored from the checkpoint of a previous run (--resume). The command
line flags override the corresponding settings of either source.

The run stops when the timeline is drained, the end date is reached,
every RIR is exhausted or the command is interrupted. An interrupted run
can be resumed from the checkpoint written through --checkpoint.

Examples:
  $ simlir run --config scenario.yaml
  $ simlir run --config scenario.yaml --lir-behaviour "LIR_Static(16)" --seed 42
  $ simlir run --config scenario.yaml --checkpoint state.snappy --metrics-address :8080
  $ simlir run --resume state.snappy --end 20300101
`

func newRunCommand(ctx context.Context, printer *output.Printer) *cobra.Command {
	options := runner.NewOptions(printer)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulation",
		Long:  runLongHelp,
		Args:  cobra.NoArgs,

		RunE: func(cmd *cobra.Command, _ []string) error {
			return options.Run(ctx, cmd.Flags())
		},
	}

	config.InitFlags(cmd.Flags(), &options.Options)
	cmd.Flags().BoolVarP(&options.Verbose, "verbose", "v", false, "Report the utilisation of every RIR pool")
	cobra.CheckErr(config.MarkFlagsRequired(cmd, &options.Options))

	return cmd
}
