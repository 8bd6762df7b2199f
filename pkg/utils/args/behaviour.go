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
	"github.com/liqotech/simlir/pkg/simlir/behaviour"
)

// Behaviour implements the flag.Value interface and allows to parse behaviour selectors
// in the form: "Name" or "Name(arg)".
type Behaviour struct {
	Selector string
}

// String returns the configured selector.
func (b *Behaviour) String() string {
	return b.Selector
}

// Set validates the provided selector against the known behaviours.
func (b *Behaviour) Set(str string) error {
	if _, _, err := behaviour.Parse(str); err != nil {
		return err
	}
	b.Selector = str
	return nil
}

// Type returns the behaviour type.
func (b *Behaviour) Type() string {
	return "behaviour"
}

// IsSet returns whether a selector has been configured.
func (b *Behaviour) IsSet() bool {
	return b.Selector != ""
}
