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

package args

import (
	"net/netip"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ParseArguments", func() {

	Context("StringMap", func() {

		type parseMapTestcase struct {
			str           string
			expectedError OmegaMatcher
			expectedMap   map[string]string
		}

		DescribeTable("StringMap table",

			func(c parseMapTestcase) {
				sm := StringMap{}
				err := sm.Set(c.str)
				Expect(err).To(c.expectedError)
				Expect(sm.StringMap).To(Equal(c.expectedMap))
				if err == nil {
					Expect(sm.String()).To(Equal(c.str))
				}
			},

			Entry("empty string", parseMapTestcase{
				str:           "",
				expectedError: Not(HaveOccurred()),
				expectedMap:   map[string]string{},
			}),

			Entry("single value map", parseMapTestcase{
				str:           "ripencc=RIR_Static",
				expectedError: Not(HaveOccurred()),
				expectedMap: map[string]string{
					"ripencc": "RIR_Static",
				},
			}),

			Entry("multi values map", parseMapTestcase{
				str:           "key1=val1,key2=val2",
				expectedError: Not(HaveOccurred()),
				expectedMap: map[string]string{
					"key1": "val1",
					"key2": "val2",
				},
			}),

			Entry("invalid map", parseMapTestcase{
				str:           "key1,key2=val2",
				expectedError: HaveOccurred(),
				expectedMap:   map[string]string{},
			}),

			Entry("invalid trailing pair", parseMapTestcase{
				str:           "key1=val1,key2=",
				expectedError: HaveOccurred(),
				expectedMap:   map[string]string{},
			}),
		)

		It("should sort the stringified pairs and drop the blanks", func() {
			sm := StringMap{}
			Expect(sm.Set("zz = LIR_Static(16), ie=LIR_Replay")).To(Succeed())
			Expect(sm.String()).To(Equal("ie=LIR_Replay,zz=LIR_Static(16)"))
		})

	})

	Context("StringList", func() {

		type parseListTestcase struct {
			str          string
			expectedList []string
		}

		DescribeTable("StringList table",

			func(c parseListTestcase) {
				sl := StringList{}
				Expect(sl.Set(c.str)).To(Succeed())
				Expect(sl.StringList).To(Equal(c.expectedList))
				Expect(sl.String()).To(Equal(c.str))
			},

			Entry("empty string", parseListTestcase{
				str:          "",
				expectedList: []string{},
			}),

			Entry("single value list", parseListTestcase{
				str: "val1",
				expectedList: []string{
					"val1",
				},
			}),

			Entry("multi values list", parseListTestcase{
				str: "val1,val2",
				expectedList: []string{
					"val1",
					"val2",
				},
			}),
		)

		It("should drop the blanks and the empty values", func() {
			sl := StringList{}
			Expect(sl.Set(" val1, ,val2,")).To(Succeed())
			Expect(sl.StringList).To(Equal([]string{"val1", "val2"}))
			Expect(sl.String()).To(Equal("val1,val2"))
		})

	})

	Context("CIDR", func() {

		DescribeTable("CIDR table",
			func(str string, expectedError OmegaMatcher, expected netip.Prefix) {
				c := CIDR{}
				err := c.Set(str)
				Expect(err).To(expectedError)
				Expect(c.Prefix).To(Equal(expected))
				if err == nil {
					Expect(c.IsSet()).To(BeTrue())
					Expect(c.String()).To(Equal(str))
				}
			},

			Entry("canonical prefix", "10.0.0.0/8", Not(HaveOccurred()), netip.MustParsePrefix("10.0.0.0/8")),
			Entry("host bits set", "10.0.0.1/8", HaveOccurred(), netip.Prefix{}),
			Entry("IPv6 prefix", "fd00::/8", HaveOccurred(), netip.Prefix{}),
			Entry("garbage", "not-a-prefix", HaveOccurred(), netip.Prefix{}),
		)

		It("should print nothing when unset", func() {
			c := CIDR{}
			Expect(c.IsSet()).To(BeFalse())
			Expect(c.String()).To(BeEmpty())
		})
	})

	Context("CIDRList", func() {

		It("should accumulate the parsed prefixes", func() {
			cl := CIDRList{}
			Expect(cl.Set("10.0.0.0/8,192.168.0.0/16")).To(Succeed())
			Expect(cl.Set("172.16.0.0/12")).To(Succeed())
			Expect(cl.CIDRList).To(Equal([]netip.Prefix{
				netip.MustParsePrefix("10.0.0.0/8"),
				netip.MustParsePrefix("192.168.0.0/16"),
				netip.MustParsePrefix("172.16.0.0/12"),
			}))
			Expect(cl.String()).To(Equal("10.0.0.0/8,192.168.0.0/16,172.16.0.0/12"))
		})

		It("should leave the list untouched on a malformed entry", func() {
			cl := CIDRList{}
			Expect(cl.Set("10.0.0.0/8,10.0.0.1/8")).To(HaveOccurred())
			Expect(cl.CIDRList).To(BeEmpty())
			Expect(cl.String()).To(BeEmpty())
		})
	})

	Context("Behaviour", func() {

		DescribeTable("Behaviour table",
			func(str string, expectedError OmegaMatcher) {
				b := Behaviour{}
				err := b.Set(str)
				Expect(err).To(expectedError)
				if err == nil {
					Expect(b.IsSet()).To(BeTrue())
					Expect(b.String()).To(Equal(str))
				} else {
					Expect(b.IsSet()).To(BeFalse())
				}
			},

			Entry("plain name", "RIR_Standard", Not(HaveOccurred())),
			Entry("name with argument", "LIR_Static(16)", Not(HaveOccurred())),
			Entry("unknown name", "LIR_Whatever", HaveOccurred()),
			Entry("unterminated argument", "LIR_Static(16", HaveOccurred()),
		)
	})

})
