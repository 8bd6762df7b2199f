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

package output_test

import (
	"bytes"
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/liqotech/simlir/pkg/simlir/config"
	"github.com/liqotech/simlir/pkg/simlir/output"
	"github.com/liqotech/simlir/pkg/simlir/simulation"
	"github.com/liqotech/simlir/pkg/simlir/timeline"
)

var _ = Describe("Report", func() {
	var (
		sim *simulation.Simulation
		buf bytes.Buffer
	)

	BeforeEach(func() {
		buf.Reset()
		var err error
		sim, err = simulation.New(simulation.Options{
			Start:        timeline.Date(2000, time.January, 1),
			End:          timeline.Date(2000, time.February, 1),
			LIRBehaviour: "LIR_Static(20)",
			RIRBehaviour: "RIR_Standard",
		})
		Expect(err).ToNot(HaveOccurred())
		Expect(sim.RecordIANAAllocation(&config.Allocation{
			Registry: "iana", Start: "193.0.0.0", Size: 1 << 24, Date: "19930501", Status: "ripencc",
		})).To(Succeed())
		Expect(sim.RecordRIRAllocation(&config.Allocation{
			Registry: "ripencc", Country: "IE", Start: "193.1.0.0", Size: 1 << 16, Date: "19940101", Status: "allocated",
		})).To(Succeed())
	})

	It("should list the registries", func() {
		rows := output.RegistryRows(sim)
		Expect(rows).To(HaveLen(3))
		Expect(rows[0][1]).To(Equal("Name"))
		Expect(rows[1][:4]).To(Equal([]string{"IANA", "IANA", "4294967296", "16777216"}))
		Expect(rows[2]).To(Equal([]string{"RIR", "ripencc", "16777216", "65536", "0.39%", "-", "1"}))
	})

	It("should list the pools of a RIR", func() {
		rir, _ := sim.RIR("ripencc")
		rir.UpdateStats()
		Expect(output.PoolRows(rir)).To(Equal([][]string{
			{"Pool", "Used", "Left", "Utilisation"},
			{"193.0.0.0/8", "65536", "16711680", "0.39%"},
		}))
	})

	It("should print the outcome of a run", func() {
		res, err := sim.Run(context.Background())
		Expect(err).ToNot(HaveOccurred())

		printer := output.NewFakePrinter(&buf)
		Expect(printer.Report(sim, res, true)).To(Succeed())
		Expect(buf.String()).To(ContainSubstring(res.RunID.String()))
		Expect(buf.String()).To(ContainSubstring(string(simulation.StopEndReached)))
		Expect(buf.String()).To(ContainSubstring("ripencc"))
		Expect(buf.String()).To(ContainSubstring("Pools of ripencc"))
		Expect(buf.String()).To(ContainSubstring("193.0.0.0/8"))
	})
})
