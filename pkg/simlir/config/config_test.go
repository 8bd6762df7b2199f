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

package config_test

import (
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/pflag"

	"github.com/liqotech/simlir/pkg/simlir/behaviour"
	"github.com/liqotech/simlir/pkg/simlir/config"
)

const delegated = `2|ripencc|20071201|3|19830705|20071130|+0100
ripencc|*|ipv4|*|3|summary
# a comment
ripencc|IE|ipv4|193.1.0.0|65536|19910101|allocated
ripencc|FR|ipv4|193.48.0.0|3072|20000202|assigned
ripencc|FR|ipv6|2001:660::|32|19990826|allocated
ripencc|NL|asn|3333|1|19930901|allocated
`

const scenario = `start: "19950101"
end: "20200101"
seed: 42
lirBehaviour: LIR_Static(20)
subtractForbidden: true
rirs: [ripencc, arin]
behaviourOverrides:
  IE: LIR_Replay
ianaAllocations:
- registry: iana
  start: 193.0.0.0
  size: 16777216
  date: "19930501"
  status: ripencc
delegatedFiles: [delegated.txt]
`

var _ = Describe("Scenario", func() {
	var dir string

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		Expect(os.WriteFile(path, []byte(content), 0o600)).To(Succeed())
		return path
	}

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	It("should load a scenario with its delegated files", func() {
		write("delegated.txt", delegated)
		s, err := config.LoadScenario(write("scenario.yaml", scenario))
		Expect(err).ToNot(HaveOccurred())

		Expect(s.Start).To(Equal("19950101"))
		Expect(s.End).To(Equal("20200101"))
		Expect(s.Seed).To(Equal(uint64(42)))
		Expect(s.LIRBehaviour).To(Equal("LIR_Static(20)"))
		Expect(s.RIRBehaviour).To(Equal(config.DefaultRIRBehaviour))
		Expect(s.SubtractForbidden).To(BeTrue())
		Expect(s.SubtractReserved).To(BeFalse())
		Expect(s.RIRs).To(Equal([]string{"ripencc", "arin"}))
		Expect(s.BehaviourOverrides).To(HaveKeyWithValue("IE", "LIR_Replay"))
		Expect(s.IANAAllocations).To(HaveLen(1))
		Expect(s.RIRAllocations).To(Equal([]config.Allocation{
			{Registry: "ripencc", Country: "IE", Start: "193.1.0.0", Size: 65536, Date: "19910101", Status: "allocated"},
			{Registry: "ripencc", Country: "FR", Start: "193.48.0.0", Size: 3072, Date: "20000202", Status: "assigned"},
		}))
	})

	It("should fill the defaults", func() {
		s, err := config.LoadScenario(write("scenario.yaml", "seed: 1\n"))
		Expect(err).ToNot(HaveOccurred())
		Expect(s.Start).To(Equal(config.DefaultStart))
		Expect(s.End).To(Equal(config.DefaultEnd))
		Expect(s.LIRBehaviour).To(Equal(config.DefaultLIRBehaviour))
	})

	DescribeTable("should reject invalid scenarios",
		func(content string, expected OmegaMatcher) {
			_, err := config.LoadScenario(write("scenario.yaml", content))
			Expect(err).To(expected)
		},
		Entry("unknown field", "sede: 1\n", HaveOccurred()),
		Entry("malformed date", "start: 1995\n", HaveOccurred()),
		Entry("date out of range", "start: \"19800101\"\n", HaveOccurred()),
		Entry("end before start", "start: \"20000101\"\nend: \"19990101\"\n", HaveOccurred()),
		Entry("unknown behaviour", "lirBehaviour: LIR_Lottery\n", MatchError(behaviour.ErrUnknownBehaviour)),
		Entry("unknown override", "behaviourOverrides: {IE: LIR_Lottery}\n", MatchError(behaviour.ErrUnknownBehaviour)),
		Entry("bad address", "rirAllocations: [{registry: arin, start: 300.0.0.0, size: 1, date: \"19950101\"}]\n",
			HaveOccurred()),
		Entry("empty block", "rirAllocations: [{registry: arin, start: 3.0.0.0, size: 0, date: \"19950101\"}]\n",
			HaveOccurred()),
		Entry("missing delegated file", "delegatedFiles: [nowhere.txt]\n", HaveOccurred()),
	)

	It("should accept records with an unknown date", func() {
		_, err := config.LoadScenario(write("scenario.yaml",
			"rirAllocations: [{registry: arin, start: 3.0.0.0, size: 256, date: \"00000000\"}]\n"))
		Expect(err).ToNot(HaveOccurred())
	})

	It("should report malformed delegated records", func() {
		_, err := config.ParseDelegated(strings.NewReader("arin|US|ipv4|3.0.0.0|lots|19950101|allocated\n"))
		Expect(err).To(MatchError(ContainSubstring("line 1")))
	})

	It("should parse a delegated file without a date", func() {
		records, err := config.ParseDelegated(strings.NewReader("arin|US|ipv4|3.0.0.0|256||allocated\n"))
		Expect(err).ToNot(HaveOccurred())
		Expect(records).To(HaveLen(1))
		Expect(records[0].Date).To(Equal(config.UnknownDate))
	})
})

var _ = Describe("Options", func() {
	var (
		flagset *pflag.FlagSet
		options config.Options
		s       config.Scenario
	)

	BeforeEach(func() {
		flagset = pflag.NewFlagSet("test", pflag.ContinueOnError)
		options = config.Options{}
		config.InitFlags(flagset, &options)
		s = config.Scenario{Seed: 7, LIRBehaviour: "LIR_Static", RIRBehaviour: "RIR_Standard"}
	})

	It("should leave the scenario untouched without flags", func() {
		Expect(flagset.Parse(nil)).To(Succeed())
		options.Apply(&s, flagset)
		Expect(s).To(Equal(config.Scenario{Seed: 7, LIRBehaviour: "LIR_Static", RIRBehaviour: "RIR_Standard"}))
	})

	It("should override the scenario", func() {
		Expect(flagset.Parse([]string{
			"--lir-behaviour=LIR_Histogram", "--rir-behaviour=RIR_Static", "--seed=0",
			"--end=20100101", "--behaviour-overrides=IE=LIR_Replay",
		})).To(Succeed())
		options.Apply(&s, flagset)
		Expect(s.LIRBehaviour).To(Equal("LIR_Histogram"))
		Expect(s.RIRBehaviour).To(Equal("RIR_Static"))
		Expect(s.Seed).To(BeZero())
		Expect(s.End).To(Equal("20100101"))
		Expect(s.BehaviourOverrides).To(HaveKeyWithValue("IE", "LIR_Replay"))
	})

	It("should reject unknown behaviours", func() {
		Expect(flagset.Parse([]string{"--lir-behaviour=LIR_Lottery"})).ToNot(Succeed())
	})
})
