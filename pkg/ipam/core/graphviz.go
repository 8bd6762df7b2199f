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

package ipamcore

import (
	"fmt"
	"io"
	"strings"
)

// WriteGraphviz writes the tree in DOT format. Used nodes are filled.
func (t *Tree) WriteGraphviz(w io.Writer) error {
	var sb strings.Builder
	sb.WriteString("digraph G {\n")
	t.graphvizRecursive(&sb, rootID)
	sb.WriteString("}\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

func (t *Tree) graphvizRecursive(sb *strings.Builder, id nodeID) {
	n := &t.nodes[id]
	prefix := t.prefixOf(id)
	if n.assigned {
		label := prefix.String() + "\\n" + strings.ReplaceAll(n.data, `"`, `\"`)
		if n.used {
			fmt.Fprintf(sb, "  %q [label=\"%s\", style=filled, color=\"#57cc99\"];\n", prefix, label)
		} else {
			fmt.Fprintf(sb, "  %q [label=\"%s\"];\n", prefix, label)
		}
	}
	for _, child := range []nodeID{n.left, n.right} {
		if child != noNode {
			fmt.Fprintf(sb, "  %q -> %q;\n", prefix, t.prefixOf(child))
			t.graphvizRecursive(sb, child)
		}
	}
}
