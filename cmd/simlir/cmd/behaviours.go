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

	"github.com/liqotech/simlir/pkg/simlir/behaviour"
	"github.com/liqotech/simlir/pkg/simlir/output"
)

func newBehavioursCommand(printer *output.Printer) *cobra.Command {
	return &cobra.Command{
		Use:   "behaviours",
		Short: "List the available registry behaviours",
		Args:  cobra.NoArgs,

		RunE: func(_ *cobra.Command, _ []string) error {
			rows := [][]string{{"Behaviour", "Argument"}}
			for _, kind := range behaviour.Kinds() {
				argument := "-"
				if behaviour.TakesArgument(kind) {
					argument = "prefix length"
				}
				rows = append(rows, []string{string(kind), argument})
			}
			return printer.Table(rows)
		},
	}
}
