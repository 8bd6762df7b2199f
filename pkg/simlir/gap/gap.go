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

// Package gap implements the gap command, searching a free block in a tree built from the command line.
package gap

import (
	"errors"
	"net/netip"
	"os"

	"github.com/liqotech/simlir/pkg/ipam/core"
	"github.com/liqotech/simlir/pkg/simlir/output"
	"github.com/liqotech/simlir/pkg/utils/args"
)

// InsertedData annotates the prefixes inserted from the command line.
const InsertedData = "inserted"

// ErrCoarseFrom is returned when a coarse search is requested within a prefix.
var ErrCoarseFrom = errors.New("coarse results are not supported when searching within a prefix")

// Options encapsulates the arguments of the gap command.
type Options struct {
	Printer *output.Printer

	Used          args.CIDRList
	Free          args.CIDRList
	Size          int
	From          args.CIDR
	CreateMissing bool
	Coarse        bool
	Graphviz      bool
}

// NewOptions returns a new Options struct.
func NewOptions(printer *output.Printer) *Options {
	return &Options{Printer: printer}
}

// Tree builds the tree holding the used and the free prefixes.
func (o *Options) Tree() (*core.Tree, error) {
	tree := core.NewTree()
	for _, prefix := range o.Free.CIDRList {
		if _, err := tree.InsertWithOptions(prefix, InsertedData, core.InsertOptions{TestDup: true}); err != nil {
			return nil, err
		}
	}
	for _, prefix := range o.Used.CIDRList {
		if _, err := tree.Insert(prefix, InsertedData); err != nil {
			return nil, err
		}
	}
	return tree, nil
}

// Search looks for the gap in tree.
func (o *Options) Search(tree *core.Tree) (netip.Prefix, bool, error) {
	if o.From.IsSet() {
		if o.Coarse {
			return netip.Prefix{}, false, ErrCoarseFrom
		}
		return tree.FindGapFromWithOptions(o.From.Prefix, o.Size, core.FindGapFromOptions{CreateMissing: o.CreateMissing})
	}
	return tree.FindGapWithOptions(o.Size, core.GapOptions{Coarse: o.Coarse})
}

// Run executes the gap command.
func (o *Options) Run() error {
	tree, err := o.Tree()
	if err != nil {
		return err
	}

	gap, found, err := o.Search(tree)
	if err != nil {
		return err
	}
	if found {
		o.Printer.Success.Printfln("Free block found: %s", output.DataStyle.Sprint(gap))
	} else {
		o.Printer.Warning.Printfln("No free /%d block", o.Size)
	}

	if o.Graphviz {
		return tree.WriteGraphviz(os.Stdout)
	}
	return nil
}
