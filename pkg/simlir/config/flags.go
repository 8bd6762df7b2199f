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

package config

import (
	"maps"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/liqotech/simlir/pkg/utils/args"
)

// FlagName is the type for the name of the flags.
type FlagName string

func (fn FlagName) String() string {
	return string(fn)
}

const (
	// FlagNameConfig is the scenario file describing the run.
	FlagNameConfig FlagName = "config"
	// FlagNameResume is the checkpoint to resume a run from.
	FlagNameResume FlagName = "resume"
	// FlagNameCheckpoint is the file the final state is written to.
	FlagNameCheckpoint FlagName = "checkpoint"
	// FlagNameLIRBehaviour is the behaviour of every LIR.
	FlagNameLIRBehaviour FlagName = "lir-behaviour"
	// FlagNameRIRBehaviour is the behaviour of every RIR.
	FlagNameRIRBehaviour FlagName = "rir-behaviour"
	// FlagNameBehaviourOverrides selects the behaviour of single entities.
	FlagNameBehaviourOverrides FlagName = "behaviour-overrides"
	// FlagNameSeed is the seed of the random generator.
	FlagNameSeed FlagName = "seed"
	// FlagNameEnd is the date the run stops at.
	FlagNameEnd FlagName = "end"
	// FlagNameMetricsAddress is the address the metrics are served at.
	FlagNameMetricsAddress FlagName = "metrics-address"
	// FlagNameGraphvizDir is the directory the registry trees are dumped to.
	FlagNameGraphvizDir FlagName = "graphviz-dir"
)

// SourceFlags contains the flags selecting where a run starts from. Exactly one is required.
var SourceFlags = []FlagName{
	FlagNameConfig,
	FlagNameResume,
}

// Options contains the command line configuration of a run.
type Options struct {
	ConfigFile         string
	ResumeFile         string
	CheckpointFile     string
	LIRBehaviour       args.Behaviour
	RIRBehaviour       args.Behaviour
	BehaviourOverrides args.StringMap
	Seed               uint64
	End                string
	MetricsAddress     string
	GraphvizDir        string
}

// InitFlags initializes the flags for the Options struct.
func InitFlags(flagset *pflag.FlagSet, o *Options) {
	flagset.StringVar(&o.ConfigFile, FlagNameConfig.String(), "", "The scenario file describing the run")
	flagset.StringVar(&o.ResumeFile, FlagNameResume.String(), "", "The checkpoint to resume a previous run from")
	flagset.StringVar(&o.CheckpointFile, FlagNameCheckpoint.String(), "",
		"The file the state of the run is saved to when it stops (disabled if empty)")
	flagset.Var(&o.LIRBehaviour, FlagNameLIRBehaviour.String(),
		"The behaviour of every LIR, overriding the scenario (e.g., LIR_Static(16))")
	flagset.Var(&o.RIRBehaviour, FlagNameRIRBehaviour.String(),
		"The behaviour of every RIR, overriding the scenario (e.g., RIR_Standard)")
	flagset.Var(&o.BehaviourOverrides, FlagNameBehaviourOverrides.String(),
		"The behaviour of single entities, in the form name=behaviour,...")
	flagset.Uint64Var(&o.Seed, FlagNameSeed.String(), 0, "The seed of the random generator, overriding the scenario")
	flagset.StringVar(&o.End, FlagNameEnd.String(), "", "The date the run stops at (YYYYMMDD), overriding the scenario")
	flagset.StringVar(&o.MetricsAddress, FlagNameMetricsAddress.String(), "",
		"The address the metrics are served at (disabled if empty)")
	flagset.StringVar(&o.GraphvizDir, FlagNameGraphvizDir.String(), "",
		"The directory the registry trees are dumped to in DOT format when the run stops (disabled if empty)")
}

// MarkFlagsRequired marks the flags as required.
func MarkFlagsRequired(cmd *cobra.Command, _ *Options) error {
	names := make([]string, 0, len(SourceFlags))
	for _, flag := range SourceFlags {
		names = append(names, flag.String())
	}
	cmd.MarkFlagsOneRequired(names...)
	cmd.MarkFlagsMutuallyExclusive(names...)
	return nil
}

// Apply overrides the scenario with the options set on the command line.
func (o *Options) Apply(s *Scenario, flagset *pflag.FlagSet) {
	if o.LIRBehaviour.IsSet() {
		s.LIRBehaviour = o.LIRBehaviour.String()
	}
	if o.RIRBehaviour.IsSet() {
		s.RIRBehaviour = o.RIRBehaviour.String()
	}
	if len(o.BehaviourOverrides.StringMap) > 0 {
		if s.BehaviourOverrides == nil {
			s.BehaviourOverrides = map[string]string{}
		}
		maps.Copy(s.BehaviourOverrides, o.BehaviourOverrides.StringMap)
	}
	if flagset.Changed(FlagNameSeed.String()) {
		s.Seed = o.Seed
	}
	if o.End != "" {
		s.End = o.End
	}
}
