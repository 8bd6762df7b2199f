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
	"fmt"
	"maps"
	"slices"
	"strings"
)

// StringMap implements the flag.Value interface and allows to parse stringified maps
// in the form: "key1=val1,key2=val2". Either all the pairs are added, or none is.
type StringMap struct {
	StringMap map[string]string
}

// String returns the stringified map, sorted by key.
func (sm StringMap) String() string {
	strs := make([]string, 0, len(sm.StringMap))
	for _, k := range slices.Sorted(maps.Keys(sm.StringMap)) {
		strs = append(strs, k+"="+sm.StringMap[k])
	}
	return strings.Join(strs, ",")
}

// Set parses the provided string into the map[string]string map.
func (sm *StringMap) Set(str string) error {
	if sm.StringMap == nil {
		sm.StringMap = map[string]string{}
	}

	parsed := map[string]string{}
	var list StringList
	_ = list.Set(str)
	for _, chunk := range list.StringList {
		key, value, ok := strings.Cut(chunk, "=")
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if !ok || key == "" || value == "" || strings.Contains(value, "=") {
			return fmt.Errorf("invalid value %q, expected key=value", chunk)
		}
		parsed[key] = value
	}
	maps.Copy(sm.StringMap, parsed)
	return nil
}

// Type returns the stringMap type.
func (sm StringMap) Type() string {
	return "stringMap"
}
