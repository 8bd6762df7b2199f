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

package timeline_test

import (
	"math/rand/v2"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/liqotech/simlir/pkg/simlir/timeline"
)

var _ = Describe("Dates", func() {
	d := timeline.MustParseDate

	DescribeTable("ParseDate",
		func(s string, expectedError OmegaMatcher) {
			t, err := timeline.ParseDate(s)
			Expect(err).To(expectedError)
			if err == nil {
				Expect(timeline.FormatDate(t)).To(Equal(s))
				Expect(t.Location()).To(Equal(time.UTC))
			}
		},
		Entry("valid date", "19950203", Not(HaveOccurred())),
		Entry("leap day", "20000229", Not(HaveOccurred())),
		Entry("non leap day", "19990229", HaveOccurred()),
		Entry("zero date", "00000000", HaveOccurred()),
		Entry("short date", "199502", HaveOccurred()),
		Entry("garbage", "-1-1-1-1", HaveOccurred()),
	)

	DescribeTable("CheckDate",
		func(s string, expectedError OmegaMatcher) {
			Expect(timeline.CheckDate(d(s))).To(expectedError)
		},
		Entry("first simulated day", "19930101", Succeed()),
		Entry("last simulated day", "20501231", Succeed()),
		Entry("before the simulation", "19921231", MatchError(timeline.ErrOutOfRange)),
		Entry("after the simulation", "20510101", MatchError(timeline.ErrOutOfRange)),
	)

	It("should compute signed day deltas", func() {
		Expect(timeline.DayDelta(d("19950203"), d("19950201"))).To(Equal(2))
		Expect(timeline.DayDelta(d("19950201"), d("19950203"))).To(Equal(-2))
		Expect(timeline.DayDelta(d("20000301"), d("20000228"))).To(Equal(2))
	})

	It("should add the delta plus a bounded jitter", func() {
		rng := rand.New(rand.NewPCG(1, 2))
		for range 100 {
			later := timeline.PeriodLater(d("19950101"), 20, 1, rng)
			Expect(timeline.FormatDate(later)).To(Equal("19950122"))
		}
		for range 100 {
			later := timeline.DefaultPeriodLater(d("19950101"), rng)
			Expect(timeline.DayDelta(later, d("19950101"))).To(BeNumerically(">=", 28))
			Expect(timeline.DayDelta(later, d("19950101"))).To(BeNumerically("<=", 33))
		}
		Expect(timeline.PeriodLater(d("19950101"), 7, 0, rng)).To(Equal(d("19950108")))
	})

	DescribeTable("WithinDays",
		func(current string, days int, other string, expected bool) {
			Expect(timeline.WithinDays(d(current), days, d(other))).To(Equal(expected))
		},
		Entry("close enough", "20071010", 10, "20071012", true),
		Entry("too far", "20071212", 2, "20071219", false),
		Entry("on the boundary", "20071212", 2, "20071214", true),
		Entry("in the past", "20071212", 2, "20071210", true),
	)
})

var _ = Describe("Timeline", func() {
	var tl *timeline.Timeline[string]
	d := timeline.MustParseDate

	BeforeEach(func() {
		tl = timeline.New[string]()
	})

	It("should start empty", func() {
		_, ok := tl.Head()
		Expect(ok).To(BeFalse())
		Expect(tl.Len()).To(BeZero())
		Expect(tl.Slots()).To(BeEmpty())
	})

	It("should keep dates ordered and items grouped", func() {
		Expect(tl.Add(d("19950101"), "1st data")).To(Succeed())
		Expect(tl.Add(d("19950606"), "2nd data")).To(Succeed())
		Expect(tl.Add(d("19950303"), "3rd data")).To(Succeed())
		Expect(tl.Add(d("19950303"), "4th data")).To(Succeed())
		Expect(tl.Add(d("19930101"), "5th data")).To(Succeed())

		head, ok := tl.Head()
		Expect(ok).To(BeTrue())
		Expect(head).To(Equal(d("19930101")))
		Expect(tl.Slots()).To(Equal([]timeline.Slot[string]{
			{Date: d("19930101"), Items: []string{"5th data"}},
			{Date: d("19950101"), Items: []string{"1st data"}},
			{Date: d("19950303"), Items: []string{"3rd data", "4th data"}},
			{Date: d("19950606"), Items: []string{"2nd data"}},
		}))
	})

	It("should reject dates outside the simulated years", func() {
		Expect(tl.Add(d("19910404"), "too early")).To(MatchError(timeline.ErrOutOfRange))
		Expect(tl.Add(d("20990404"), "too late")).To(MatchError(timeline.ErrOutOfRange))
		Expect(tl.Len()).To(BeZero())
	})

	It("should normalise the time of day", func() {
		Expect(tl.Add(d("19950101").Add(13*time.Hour), "afternoon")).To(Succeed())
		items, ok := tl.At(d("19950101"))
		Expect(ok).To(BeTrue())
		Expect(items).To(ConsistOf("afternoon"))
	})

	When("it holds a few dates", func() {
		BeforeEach(func() {
			Expect(tl.Add(d("19950101"), "wibb")).To(Succeed())
			Expect(tl.Add(d("19950606"), "wubb", "glimmer")).To(Succeed())
			Expect(tl.Add(d("19950303"), "wobb1")).To(Succeed())
		})

		It("should get the items at a date", func() {
			items, ok := tl.At(d("19950101"))
			Expect(ok).To(BeTrue())
			Expect(items).To(Equal([]string{"wibb"}))
			_, ok = tl.At(d("19930101"))
			Expect(ok).To(BeFalse())
		})

		It("should find the neighbouring slots", func() {
			before, ok := tl.FirstBefore(d("19950606"))
			Expect(ok).To(BeTrue())
			Expect(before.Date).To(Equal(d("19950303")))

			after, ok := tl.FirstAfter(d("19950101"))
			Expect(ok).To(BeTrue())
			Expect(after.Date).To(Equal(d("19950303")))

			after, ok = tl.FirstAfter(d("19950201"))
			Expect(ok).To(BeTrue())
			Expect(after.Date).To(Equal(d("19950303")))

			_, ok = tl.FirstBefore(d("19950101"))
			Expect(ok).To(BeFalse())
			_, ok = tl.FirstAfter(d("19950606"))
			Expect(ok).To(BeFalse())
		})

		It("should remove a whole date", func() {
			Expect(tl.Remove(d("19950303"))).To(BeTrue())
			Expect(tl.Remove(d("19950303"))).To(BeFalse())
			after, ok := tl.FirstAfter(d("19950101"))
			Expect(ok).To(BeTrue())
			Expect(after.Date).To(Equal(d("19950606")))
		})

		It("should prune a single item", func() {
			Expect(tl.Prune(d("19950606"), "glimmer")).To(BeTrue())
			Expect(tl.Prune(d("19950606"), "glimmer")).To(BeFalse())
			Expect(tl.Prune(d("19990606"), "glimmer")).To(BeFalse())
			items, _ := tl.At(d("19950606"))
			Expect(items).To(Equal([]string{"wubb"}))
		})

		It("should not expose its internal storage", func() {
			items, _ := tl.At(d("19950606"))
			items[0] = "mutated"
			slots := tl.Slots()
			slots[0].Items[0] = "mutated"
			again, _ := tl.At(d("19950606"))
			Expect(again).To(Equal([]string{"wubb", "glimmer"}))
			first, _ := tl.At(d("19950101"))
			Expect(first).To(Equal([]string{"wibb"}))
		})

		It("should rebuild from its slots", func() {
			rebuilt, err := timeline.FromSlots(tl.Slots())
			Expect(err).ToNot(HaveOccurred())
			Expect(rebuilt.Slots()).To(Equal(tl.Slots()))
		})
	})

	Context("Walk", func() {
		collect := func(seq func(func(time.Time, string) bool)) []string {
			var out []string
			for _, item := range seq {
				out = append(out, item)
			}
			return out
		}

		It("should yield items in date order", func() {
			Expect(tl.Add(d("19950101"), "wibb")).To(Succeed())
			Expect(tl.Add(d("19950606"), "wubb")).To(Succeed())
			Expect(tl.Add(d("19950303"), "wobb1")).To(Succeed())
			Expect(tl.Add(d("19950303"), "wobb2")).To(Succeed())
			Expect(tl.Add(d("19930101"), "wargl")).To(Succeed())

			Expect(collect(tl.Walk())).To(Equal([]string{"wargl", "wibb", "wobb1", "wobb2", "wubb"}))
		})

		It("should observe items scheduled while walking", func() {
			Expect(tl.Add(d("19950101"), "first")).To(Succeed())
			var seen []string
			for date, item := range tl.Walk() {
				seen = append(seen, item)
				switch item {
				case "first":
					Expect(tl.Add(date, "same day")).To(Succeed())
					Expect(tl.Add(d("19960101"), "next year")).To(Succeed())
					Expect(tl.Add(d("19950601"), "in between")).To(Succeed())
				case "in between":
					Expect(date).To(Equal(d("19950601")))
				}
			}
			Expect(seen).To(Equal([]string{"first", "same day", "in between", "next year"}))
		})

		It("should continue after the current date is removed", func() {
			Expect(tl.Add(d("19950101"), "a", "b")).To(Succeed())
			Expect(tl.Add(d("19950202"), "c")).To(Succeed())
			var seen []string
			for date, item := range tl.Walk() {
				seen = append(seen, item)
				if item == "a" {
					Expect(tl.Remove(date)).To(BeTrue())
				}
			}
			Expect(seen).To(Equal([]string{"a", "c"}))
		})

		It("should use an independent cursor per walk", func() {
			Expect(tl.Add(d("19950101"), "a", "b")).To(Succeed())
			for range tl.Walk() {
				break
			}
			Expect(collect(tl.Walk())).To(Equal([]string{"a", "b"}))
		})
	})
})
