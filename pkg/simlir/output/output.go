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

// Package output renders the outcome of the simlir commands on the terminal.
package output

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"
)

func init() {
	// Disable styling if we are not in a standard terminal, as control sequences would not work.
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		pterm.DisableStyling()
	}
}

var (
	// SectionStyle is the style of the section headers.
	SectionStyle = pterm.NewStyle(pterm.FgMagenta, pterm.Bold)
	// DataStyle is the style of the highlighted values.
	DataStyle = pterm.NewStyle(pterm.FgLightYellow, pterm.Bold)
)

// Printer manages all kinds of outputs.
type Printer struct {
	Info    *pterm.PrefixPrinter
	Success *pterm.PrefixPrinter
	Warning *pterm.PrefixPrinter
	Error   *pterm.PrefixPrinter
	Section *pterm.SectionPrinter

	writer io.Writer
}

// NewPrinter returns a printer writing to the standard output.
func NewPrinter() *Printer {
	return newPrinter(os.Stdout)
}

// NewFakePrinter returns a new printer to be used in tests.
func NewFakePrinter(writer io.Writer) *Printer {
	return newPrinter(writer)
}

func newPrinter(writer io.Writer) *Printer {
	generic := &pterm.PrefixPrinter{MessageStyle: pterm.NewStyle(pterm.FgDefault), Writer: writer}

	return &Printer{
		Info: generic.WithPrefix(pterm.Prefix{
			Text:  "INFO",
			Style: pterm.NewStyle(pterm.FgDarkGray),
		}),
		Success: generic.WithPrefix(pterm.Prefix{
			Text:  "INFO",
			Style: pterm.NewStyle(pterm.FgGreen),
		}),
		Warning: generic.WithPrefix(pterm.Prefix{
			Text:  "WARN",
			Style: pterm.NewStyle(pterm.FgYellow),
		}),
		Error: generic.WithPrefix(pterm.Prefix{
			Text:  "ERRO",
			Style: pterm.NewStyle(pterm.FgRed),
		}),
		Section: &pterm.SectionPrinter{
			Style:  SectionStyle,
			Level:  1,
			Writer: writer,
		},
		writer: writer,
	}
}

// Table renders rows as a table, the first row being the header.
func (p *Printer) Table(rows [][]string) error {
	text, err := pterm.DefaultTable.WithHasHeader().WithData(rows).Srender()
	if err != nil {
		return err
	}
	pterm.Fprintln(p.writer, text)
	return nil
}
