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

package gap_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/liqotech/simlir/pkg/simlir/gap"
	"github.com/liqotech/simlir/pkg/simlir/output"
)

var _ = Describe("Gap", func() {
	var (
		options *gap.Options
		buf     bytes.Buffer
	)

	BeforeEach(func() {
		buf.Reset()
		options = gap.NewOptions(output.NewFakePrinter(&buf))
	})

	search := func() (string, bool) {
		tree, err := options.Tree()
		Expect(err).ToNot(HaveOccurred())
		block, found, err := options.Search(tree)
		Expect(err).ToNot(HaveOccurred())
		if !found {
			return "", false
		}
		return block.String(), true
	}

	It("should find the lowest free block", func() {
		Expect(options.Used.Set("0.0.0.0/8,1.0.0.0/8")).To(Succeed())
		options.Size = 8
		Expect(search()).To(Equal("2.0.0.0/8"))
	})

	It("should search within a prefix", func() {
		Expect(options.Free.Set("10.0.0.0/8")).To(Succeed())
		Expect(options.Used.Set("10.0.0.0/16")).To(Succeed())
		Expect(options.From.Set("10.0.0.0/8")).To(Succeed())
		options.Size = 16
		Expect(search()).To(Equal("10.1.0.0/16"))
	})

	It("should find nothing from a missing prefix", func() {
		Expect(options.From.Set("10.0.0.0/8")).To(Succeed())
		options.Size = 16
		_, found := search()
		Expect(found).To(BeFalse())

		options.CreateMissing = true
		Expect(search()).To(Equal("10.0.0.0/16"))
	})

	It("should reject a coarse search within a prefix", func() {
		Expect(options.From.Set("10.0.0.0/8")).To(Succeed())
		options.CreateMissing = true
		options.Coarse = true
		options.Size = 16
		tree, err := options.Tree()
		Expect(err).ToNot(HaveOccurred())
		_, _, err = options.Search(tree)
		Expect(err).To(MatchError(gap.ErrCoarseFrom))
	})

	It("should reject duplicated prefixes", func() {
		Expect(options.Used.Set("10.0.0.0/8,10.0.0.0/8")).To(Succeed())
		_, err := options.Tree()
		Expect(err).To(HaveOccurred())
	})

	It("should report the outcome", func() {
		Expect(options.Used.Set("0.0.0.0/1,128.0.0.0/1")).To(Succeed())
		options.Size = 24
		Expect(options.Run()).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("No free /24 block"))

		buf.Reset()
		options.Used = options.Free
		Expect(options.Run()).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("0.0.0.0/24"))
	})
})
