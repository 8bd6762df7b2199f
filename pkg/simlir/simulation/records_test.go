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

package simulation_test

import (
	"net/netip"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/liqotech/simlir/pkg/ipam/cidr"
	"github.com/liqotech/simlir/pkg/simlir/behaviour"
	"github.com/liqotech/simlir/pkg/simlir/config"
	"github.com/liqotech/simlir/pkg/simlir/registry"
	"github.com/liqotech/simlir/pkg/simlir/simulation"
	"github.com/liqotech/simlir/pkg/simlir/timeline"
)

var _ = Describe("Allocation records", func() {
	p := cidr.MustParsePrefix

	It("should decompose a block into a series of prefixes", func() {
		prefixes, err := simulation.AllocationPrefixes(&config.Allocation{Start: "199.4.16.0", Size: 3072})
		Expect(err).ToNot(HaveOccurred())
		Expect(prefixes).To(Equal([]netip.Prefix{p("199.4.16.0/21"), p("199.4.24.0/22")}))
	})

	It("should reject misaligned blocks", func() {
		_, err := simulation.AllocationPrefixes(&config.Allocation{Start: "10.0.0.1", Size: 256})
		Expect(err).To(MatchError(cidr.ErrInvalidPrefix))
	})

	It("should reject invalid start addresses", func() {
		_, err := simulation.AllocationPrefixes(&config.Allocation{Start: "2001:db8::", Size: 256})
		Expect(err).To(HaveOccurred())
	})

	Context("FromScenario", func() {
		var (
			sc  config.Scenario
			sim *simulation.Simulation
		)

		BeforeEach(func() {
			sc = config.Scenario{
				Start:        "20000101",
				End:          "20100101",
				LIRBehaviour: "LIR_Static(20)",
				RIRBehaviour: "RIR_Standard",
				RIRs:         []string{"arin"},
				IANAAllocations: []config.Allocation{
					{Registry: "iana", Start: "193.0.0.0", Size: 1 << 24, Date: "19930501", Status: "ripencc"},
					{Registry: "iana", Start: "240.0.0.0", Size: 1 << 28, Date: config.UnknownDate, Status: "reserved"},
				},
				RIRAllocations: []config.Allocation{
					{Registry: "ripencc", Country: "IE", Start: "193.1.0.0", Size: 3072, Date: "19940101", Status: "allocated"},
					{Registry: "ripencc", Country: "ZZ", Start: "193.2.0.0", Size: 256, Date: "19940101", Status: "reserved"},
					{Registry: "apnic", Country: "IE", Start: "202.0.0.0", Size: 256, Date: "19950101", Status: "assigned"},
					{Registry: "ripencc", Country: "GB", Start: "193.3.0.1", Size: 256, Date: "19940101", Status: "allocated"},
					{Registry: "ripencc", Country: "IE", Start: "193.1.0.0", Size: 3072, Date: "19940101", Status: "allocated"},
				},
			}
		})

		JustBeforeEach(func() {
			var err error
			sim, err = simulation.FromScenario(&sc, nil)
			Expect(err).ToNot(HaveOccurred())
		})

		It("should create the referenced registries", func() {
			Expect(sim.RIRNames()).To(Equal([]string{"apnic", "arin", "ripencc"}))
			Expect(sim.LIRNames()).To(Equal([]string{"IE", "ZZ"}))
			Expect(sim.LIRCount("IE")).To(Equal(3))
			Expect(sim.LIRCount("GB")).To(BeZero())
			Expect(sim.RIRCount("ripencc")).To(Equal(4))
		})

		It("should hand the IANA blocks to the RIRs", func() {
			ripe, ok := sim.RIR("ripencc")
			Expect(ok).To(BeTrue())
			Expect(ripe.Pools()).To(Equal([]netip.Prefix{p("193.0.0.0/8")}))
			Expect(ripe.Supplier().Name()).To(Equal(registry.IANAName))
			Expect(ripe.AddressSpan()).To(Equal(uint64(1 << 24)))
			Expect(ripe.AddressesUsed()).To(Equal(uint64(3072 + 256)))

			arin, ok := sim.RIR("arin")
			Expect(ok).To(BeTrue())
			Expect(arin.Pools()).To(BeEmpty())
			Expect(arin.Supplier()).To(BeNil())
		})

		It("should mark the IANA records as used", func() {
			iana := sim.IANA()
			Expect(iana.AddressesUsed()).To(Equal(uint64(1<<24 + 1<<28)))
			Expect(iana.DataSpan("IANA RESERVED")).To(Equal(uint64(1 << 28)))
			Expect(iana.Registered().At(simulation.DefaultNonZeroDate)).To(ConsistOf(p("240.0.0.0/4")))
		})

		It("should link each LIR to the first RIR seen", func() {
			ie, ok := sim.LIR("IE")
			Expect(ok).To(BeTrue())
			Expect(ie.Supplier().Name()).To(Equal("ripencc"))
			Expect(ie.AddressesUsed()).To(Equal(uint64(3072 + 256)))
			Expect(sim.LIRPopulationSize("ripencc")).To(Equal(2))
			Expect(sim.LIRPopulationSize("apnic")).To(BeZero())
		})

		When("the unusable spaces are subtracted", func() {
			BeforeEach(func() {
				sc.SubtractReserved = true
				sc.IANAAllocations = sc.IANAAllocations[:1]
			})

			It("should count them as used", func() {
				Expect(sim.IANA().AddressesUsed()).To(BeNumerically(">", uint64(1<<24)))
			})
		})

		When("an entity has a behaviour override", func() {
			BeforeEach(func() {
				sc.BehaviourOverrides = map[string]string{"IE": "LIR_Static(16)"}
			})

			It("should keep it when the default changes", func() {
				Expect(sim.SetLIRBehaviour("LIR_Static(22)")).To(Succeed())
				ie, _ := sim.LIR("IE")
				zz, _ := sim.LIR("ZZ")
				Expect(ie.Behaviour().String()).To(Equal("LIR_Static(16)"))
				Expect(zz.Behaviour().String()).To(Equal("LIR_Static(22)"))
			})
		})
	})

	It("should fail on unknown behaviours", func() {
		sc := config.Scenario{
			Start:              "20000101",
			End:                "20100101",
			LIRBehaviour:       "LIR_Static",
			RIRBehaviour:       "RIR_Standard",
			BehaviourOverrides: map[string]string{"arin": "RIR_Unknown"},
			RIRs:               []string{"arin"},
		}
		_, err := simulation.FromScenario(&sc, nil)
		Expect(err).To(MatchError(behaviour.ErrUnknownBehaviour))
	})
})

var _ = Describe("Registry creation", func() {
	var sim *simulation.Simulation

	BeforeEach(func() {
		var err error
		sim, err = simulation.New(simulation.Options{
			Start:        timeline.Date(2000, time.January, 1),
			End:          timeline.Date(2001, time.January, 1),
			LIRBehaviour: "LIR_Static(20)",
			RIRBehaviour: "RIR_Standard",
		})
		Expect(err).ToNot(HaveOccurred())
	})

	It("should count the references", func() {
		first, err := sim.CreateRIRIfNotSeen("ripencc")
		Expect(err).ToNot(HaveOccurred())
		second, err := sim.CreateRIRIfNotSeen("ripencc")
		Expect(err).ToNot(HaveOccurred())
		Expect(second).To(BeIdenticalTo(first))
		Expect(sim.RIRCount("ripencc")).To(Equal(2))
		Expect(sim.RIRCount("arin")).To(BeZero())
	})

	It("should name the anonymous LIRs", func() {
		lir, err := sim.CreateLIRIfNotSeen("")
		Expect(err).ToNot(HaveOccurred())
		Expect(lir.Name()).ToNot(BeEmpty())
		Expect(sim.LIRNames()).To(Equal([]string{lir.Name()}))
	})

	It("should reject invalid dates", func() {
		_, err := simulation.New(simulation.Options{
			Start: timeline.Date(2000, time.January, 1),
			End:   timeline.Date(1999, time.January, 1),
		})
		Expect(err).To(HaveOccurred())

		_, err = simulation.New(simulation.Options{
			Start: timeline.Date(1980, time.January, 1),
			End:   timeline.Date(1999, time.January, 1),
		})
		Expect(err).To(MatchError(timeline.ErrOutOfRange))
	})
})
