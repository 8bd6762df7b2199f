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

// Package cmd contains the commands of simlir.
package cmd

import (
	"context"
	"flag"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/liqotech/simlir/pkg/simlir/output"
)

const simlirLongHelp = `simlir simulates the allocation of the IPv4 address space.

IANA hands blocks out to the regional registries (RIRs), which in turn
hand them out to the local registries (LIRs). Starting from the historical
allocation records, every registry is driven by a behaviour deciding how
much space it requests and when, until the end date or the exhaustion of
every RIR.
`

// NewRootCommand initializes the tree of commands.
func NewRootCommand(ctx context.Context) *cobra.Command {
	// rootCmd represents the base command when called without any subcommands.
	var rootCmd = &cobra.Command{
		Use:           "simlir",
		Short:         "Simulate the allocation of the IPv4 address space",
		Long:          simlirLongHelp,
		SilenceUsage:  true,
	}
	flagset := flag.NewFlagSet("klog", flag.PanicOnError)
	klog.InitFlags(flagset)
	rootCmd.PersistentFlags().AddGoFlagSet(flagset)

	printer := output.NewPrinter()
	rootCmd.AddCommand(newRunCommand(ctx, printer))
	rootCmd.AddCommand(newGapCommand(printer))
	rootCmd.AddCommand(newBehavioursCommand(printer))
	return rootCmd
}
