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

package output

import (
	"fmt"
	"strconv"

	"github.com/liqotech/simlir/pkg/simlir/registry"
	"github.com/liqotech/simlir/pkg/simlir/simulation"
	"github.com/liqotech/simlir/pkg/simlir/timeline"
)

const notExhausted = "-"

// RegistryRows returns a row per registry of the world: IANA first, then the RIRs.
func RegistryRows(sim *simulation.Simulation) [][]string {
	exhaustion := sim.Exhaustion()
	exhaustedOn := func(name string) string {
		if date, ok := exhaustion[name]; ok {
			return timeline.FormatDate(date)
		}
		return notExhausted
	}
	row := func(kind string, h *registry.Holder, extra string) []string {
		return []string{
			kind, h.Name(),
			strconv.FormatUint(h.AddressSpan(), 10),
			strconv.FormatUint(h.AddressesUsed(), 10),
			fmt.Sprintf("%.2f%%", h.PercentageUsed()),
			exhaustedOn(h.Name()),
			extra,
		}
	}

	rows := [][]string{{"Kind", "Name", "Span", "Used", "Utilisation", "Exhausted", "Population"}}
	iana := sim.IANA()
	rows = append(rows, row("IANA", &iana.Holder, strconv.Itoa(len(sim.RIRNames()))))
	for _, rir := range sim.RIRs() {
		rows = append(rows, row("RIR", &rir.Holder, strconv.Itoa(sim.LIRPopulationSize(rir.Name()))))
	}
	return rows
}

// PoolRows returns a row per pool of the given RIR.
func PoolRows(rir *registry.RIR) [][]string {
	rows := [][]string{{"Pool", "Used", "Left", "Utilisation"}}
	for _, stat := range rir.PoolStats() {
		rows = append(rows, []string{
			stat.Prefix.String(),
			strconv.FormatUint(stat.Used, 10),
			strconv.FormatUint(stat.Left, 10),
			fmt.Sprintf("%.2f%%", stat.Utilisation),
		})
	}
	return rows
}

// Report prints the outcome of a run. With verbose set, the pools of every RIR are listed too.
func (p *Printer) Report(sim *simulation.Simulation, res *simulation.Result, verbose bool) error {
	p.Section.Println("Simulation " + res.RunID.String())
	p.Info.Printfln("Stopped: %s", DataStyle.Sprint(res.Reason))
	if !res.LastDate.IsZero() {
		p.Info.Printfln("Last simulated date: %s", DataStyle.Sprint(timeline.FormatDate(res.LastDate)))
	}
	p.Info.Printfln("Activities performed: %s", DataStyle.Sprint(res.Events))
	p.Info.Printfln("Registries: %d RIRs, %d LIRs", len(sim.RIRNames()), len(sim.LIRNames()))

	if err := p.Table(RegistryRows(sim)); err != nil {
		return err
	}

	if !verbose {
		return nil
	}
	for _, rir := range sim.RIRs() {
		rir.UpdateStats()
		if len(rir.Pools()) == 0 {
			continue
		}
		p.Section.Println("Pools of " + rir.Name())
		if err := p.Table(PoolRows(rir)); err != nil {
			return err
		}
	}
	return nil
}
