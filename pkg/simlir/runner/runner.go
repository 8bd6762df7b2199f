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

// Package runner implements the run command: it builds or resumes a world, drives it to the end
// and reports the outcome.
package runner

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"

	ipamcore "github.com/liqotech/simlir/pkg/ipam/core"
	"github.com/liqotech/simlir/pkg/simlir/config"
	"github.com/liqotech/simlir/pkg/simlir/metrics"
	"github.com/liqotech/simlir/pkg/simlir/output"
	"github.com/liqotech/simlir/pkg/simlir/simulation"
	"github.com/liqotech/simlir/pkg/simlir/timeline"
)

// Options encapsulates the arguments of the run command.
type Options struct {
	config.Options

	Printer *output.Printer
	Verbose bool
}

// NewOptions returns a new Options struct.
func NewOptions(printer *output.Printer) *Options {
	return &Options{Printer: printer}
}

// Run executes the run command.
func (o *Options) Run(ctx context.Context, flagset *pflag.FlagSet) error {
	var rec simulation.Recorder
	collector := o.recorder()
	if collector != nil {
		rec = collector
	}

	sim, err := o.world(flagset, rec)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	ctx, stop := context.WithCancel(ctx)
	var res *simulation.Result
	g.Go(func() error {
		defer stop()
		var err error
		res, err = sim.Run(ctx)
		return err
	})
	if collector != nil {
		g.Go(func() error {
			return collector.Serve(ctx, o.MetricsAddress)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if o.CheckpointFile != "" {
		if err := o.checkpoint(sim); err != nil {
			return err
		}
		o.Printer.Success.Printfln("State saved to %q", o.CheckpointFile)
	}
	if o.GraphvizDir != "" {
		if err := o.graphviz(sim); err != nil {
			return err
		}
		o.Printer.Success.Printfln("Registry trees written to %q", o.GraphvizDir)
	}
	return o.Printer.Report(sim, res, o.Verbose)
}

func (o *Options) recorder() *metrics.Recorder {
	if o.MetricsAddress == "" {
		return nil
	}
	return metrics.NewRecorder()
}

// world builds the world from the scenario, or restores it from the checkpoint to resume.
func (o *Options) world(flagset *pflag.FlagSet, rec simulation.Recorder) (*simulation.Simulation, error) {
	if o.ResumeFile == "" {
		sc, err := config.LoadScenario(o.ConfigFile)
		if err != nil {
			return nil, err
		}
		o.Apply(sc, flagset)
		if err := sc.Validate(); err != nil {
			return nil, err
		}
		return simulation.FromScenario(sc, rec)
	}

	f, err := os.Open(filepath.Clean(o.ResumeFile))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open checkpoint %q", o.ResumeFile)
	}
	defer f.Close()
	sim, err := simulation.Load(f, rec)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load checkpoint %q", o.ResumeFile)
	}

	if flagset.Changed(config.FlagNameSeed.String()) {
		o.Printer.Warning.Println("The seed is restored from the checkpoint, the flag is ignored")
	}
	for name, selector := range o.BehaviourOverrides.StringMap {
		if err := sim.SetBehaviourOverride(name, selector); err != nil {
			return nil, err
		}
	}
	if o.LIRBehaviour.IsSet() {
		if err := sim.SetLIRBehaviour(o.LIRBehaviour.String()); err != nil {
			return nil, err
		}
	}
	if o.RIRBehaviour.IsSet() {
		if err := sim.SetRIRBehaviour(o.RIRBehaviour.String()); err != nil {
			return nil, err
		}
	}
	if o.End != "" {
		end, err := timeline.ParseDate(o.End)
		if err != nil {
			return nil, err
		}
		if err := sim.SetEnd(end); err != nil {
			return nil, err
		}
	}
	klog.InfoS("Run resumed", "run", sim.RunID(), "checkpoint", o.ResumeFile)
	return sim, nil
}

func (o *Options) checkpoint(sim *simulation.Simulation) error {
	f, err := os.Create(filepath.Clean(o.CheckpointFile))
	if err != nil {
		return errors.Wrapf(err, "failed to create checkpoint %q", o.CheckpointFile)
	}
	if err := sim.Save(f); err != nil {
		_ = f.Close()
		return err
	}
	return errors.Wrapf(f.Close(), "failed to close checkpoint %q", o.CheckpointFile)
}

func (o *Options) graphviz(sim *simulation.Simulation) error {
	if err := os.MkdirAll(o.GraphvizDir, 0o750); err != nil {
		return errors.Wrapf(err, "failed to create directory %q", o.GraphvizDir)
	}

	trees := map[string]*ipamcore.Tree{sim.IANA().Name(): sim.IANA().Tree()}
	for _, rir := range sim.RIRs() {
		trees[rir.Name()] = rir.Tree()
	}
	for name, tree := range trees {
		path := filepath.Join(o.GraphvizDir, name+".dot")
		f, err := os.Create(filepath.Clean(path))
		if err != nil {
			return errors.Wrapf(err, "failed to create %q", path)
		}
		if err := tree.WriteGraphviz(f); err != nil {
			_ = f.Close()
			return errors.Wrapf(err, "failed to write %q", path)
		}
		if err := f.Close(); err != nil {
			return errors.Wrapf(err, "failed to close %q", path)
		}
	}
	return nil
}
