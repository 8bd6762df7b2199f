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

package runner_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/pflag"

	"github.com/liqotech/simlir/pkg/simlir/config"
	"github.com/liqotech/simlir/pkg/simlir/output"
	"github.com/liqotech/simlir/pkg/simlir/runner"
	"github.com/liqotech/simlir/pkg/simlir/simulation"
	"github.com/liqotech/simlir/pkg/simlir/timeline"
)

const scenario = `start: "20000101"
end: "20000301"
seed: 7
lirBehaviour: LIR_Static(20)
rirBehaviour: RIR_Standard
ianaAllocations:
- {registry: iana, start: 193.0.0.0, size: 16777216, date: "19930501", status: ripencc}
rirAllocations:
- {registry: ripencc, country: IE, start: 193.1.0.0, size: 65536, date: "19940101", status: allocated}
`

func load(path string) *simulation.Simulation {
	f, err := os.Open(path)
	Expect(err).ToNot(HaveOccurred())
	defer f.Close()
	sim, err := simulation.Load(f, nil)
	Expect(err).ToNot(HaveOccurred())
	return sim
}

var _ = Describe("Run", func() {
	var (
		dir string
		buf bytes.Buffer
		ctx context.Context
	)

	run := func(arguments ...string) error {
		options := runner.NewOptions(output.NewFakePrinter(&buf))
		flagset := pflag.NewFlagSet("run", pflag.ContinueOnError)
		config.InitFlags(flagset, &options.Options)
		Expect(flagset.Parse(arguments)).To(Succeed())
		return options.Run(ctx, flagset)
	}

	BeforeEach(func() {
		buf.Reset()
		ctx = context.Background()
		dir = GinkgoT().TempDir()
		Expect(os.WriteFile(filepath.Join(dir, "scenario.yaml"), []byte(scenario), 0o600)).To(Succeed())
	})

	It("should run the scenario and save the outcome", func() {
		Expect(run("--config", filepath.Join(dir, "scenario.yaml"),
			"--checkpoint", filepath.Join(dir, "state.snappy"),
			"--graphviz-dir", filepath.Join(dir, "trees"))).To(Succeed())

		Expect(buf.String()).To(ContainSubstring(string(simulation.StopEndReached)))
		Expect(filepath.Join(dir, "state.snappy")).To(BeAnExistingFile())
		Expect(filepath.Join(dir, "trees", "IANA.dot")).To(BeAnExistingFile())
		Expect(filepath.Join(dir, "trees", "ripencc.dot")).To(BeAnExistingFile())

		sim := load(filepath.Join(dir, "state.snappy"))
		Expect(sim.LIRNames()).To(Equal([]string{"IE"}))
		Expect(sim.End()).To(Equal(timeline.Date(2000, time.March, 1)))
	})

	It("should apply the command line overrides", func() {
		Expect(run("--config", filepath.Join(dir, "scenario.yaml"),
			"--checkpoint", filepath.Join(dir, "state.snappy"),
			"--end", "20000201", "--behaviour-overrides", "IE=LIR_Static(22)")).To(Succeed())

		sim := load(filepath.Join(dir, "state.snappy"))
		Expect(sim.End()).To(Equal(timeline.Date(2000, time.February, 1)))
		lir, _ := sim.LIR("IE")
		Expect(lir.Behaviour().String()).To(Equal("LIR_Static(22)"))
	})

	It("should resume a previous run", func() {
		first := filepath.Join(dir, "first.snappy")
		second := filepath.Join(dir, "second.snappy")
		Expect(run("--config", filepath.Join(dir, "scenario.yaml"), "--checkpoint", first)).To(Succeed())
		Expect(run("--resume", first, "--checkpoint", second, "--end", "20000601",
			"--lir-behaviour", "LIR_Static(21)")).To(Succeed())

		before, after := load(first), load(second)
		Expect(after.RunID()).To(Equal(before.RunID()))
		Expect(after.End()).To(Equal(timeline.Date(2000, time.June, 1)))

		lirBefore, _ := before.LIR("IE")
		lirAfter, _ := after.LIR("IE")
		Expect(lirAfter.Behaviour().String()).To(Equal("LIR_Static(21)"))
		Expect(lirAfter.AddressesUsed()).To(BeNumerically(">", lirBefore.AddressesUsed()))
	})

	It("should fail on a missing scenario", func() {
		Expect(run("--config", filepath.Join(dir, "missing.yaml"))).ToNot(Succeed())
	})

	It("should fail on a corrupted checkpoint", func() {
		Expect(os.WriteFile(filepath.Join(dir, "broken.snappy"), []byte("broken"), 0o600)).To(Succeed())
		Expect(run("--resume", filepath.Join(dir, "broken.snappy"))).ToNot(Succeed())
	})
})
