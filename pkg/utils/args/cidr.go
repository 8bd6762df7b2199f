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

	"github.com/liqotech/simlir/pkg/ipam/cidr"
)

// CIDR implements the flag.Value interface and allows to parse strings in CIDR format
// in the form: "x.x.x.x/y". Only canonical IPv4 prefixes are accepted.
type CIDR struct {
	Prefix netip.Prefix
}

// String returns the stringified prefix.
func (c *CIDR) String() string {
	if !c.Prefix.IsValid() {
		return ""
	}
	return c.Prefix.String()
}

// Set parses the provided string in a netip.Prefix.
func (c *CIDR) Set(str string) error {
	prefix, err := cidr.ParsePrefix(str)
	if err != nil {
		return err
	}
	c.Prefix = prefix
	return nil
}

// Type returns the cidr type.
func (c *CIDR) Type() string {
	return "cidr"
}

// IsSet returns whether a prefix has been configured.
func (c *CIDR) IsSet() bool {
	return c.Prefix.IsValid()
}
