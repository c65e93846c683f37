/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

// OutputFormat selects how a SQL result set is rendered.
type OutputFormat string

const (
	// FormatTable renders an aligned grid with a row-count footer.
	FormatTable OutputFormat = "table"
	// FormatJSON renders one JSON object per row, keyed by column name.
	FormatJSON OutputFormat = "json"
	// FormatPlain renders each row as its pipe-joined cell values, the
	// same shape the engine stores rows in on disk.
	FormatPlain OutputFormat = "plain"
)

// ParseOutputFormat maps a -format flag value to an OutputFormat,
// falling back to the table renderer for anything unrecognized.
func ParseOutputFormat(s string) OutputFormat {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(FormatJSON):
		return FormatJSON
	case string(FormatPlain):
		return FormatPlain
	default:
		return FormatTable
	}
}

// Table holds one SQL result set for rendering: the select list's
// column names and the stringified rows the executor produced.
type Table struct {
	columns []string
	records [][]string
	format  OutputFormat
	out     io.Writer
}

// NewTable starts an empty result set with the given column names.
func NewTable(columns ...string) *Table {
	return &Table{columns: columns, format: FormatTable, out: os.Stdout}
}

// SetFormat selects the renderer used by Print.
func (t *Table) SetFormat(format OutputFormat) { t.format = format }

// SetOutput redirects rendering away from stdout, used by tests.
func (t *Table) SetOutput(w io.Writer) { t.out = w }

// AddRow appends one result row. Rows are normalized to the column
// count: short rows pad with empty cells, extra cells are dropped.
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.columns))
	for i := range row {
		if i < len(cells) {
			row[i] = cells[i]
		}
	}
	t.records = append(t.records, row)
}

// Print renders the result set in the configured format.
func (t *Table) Print() {
	switch t.format {
	case FormatJSON:
		t.renderJSON()
	case FormatPlain:
		t.renderPlain()
	default:
		t.renderGrid()
	}
}

// renderGrid draws the aligned table:
//
//	 id | name
//	----+-------
//	 1  | Alice
//	 2  | Bob
//	(2 rows)
func (t *Table) renderGrid() {
	widths := make([]int, len(t.columns))
	for i, c := range t.columns {
		widths[i] = utf8.RuneCountInString(c)
	}
	for _, row := range t.records {
		for i, cell := range row {
			if w := utf8.RuneCountInString(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	if len(t.columns) > 0 {
		header := make([]string, len(t.columns))
		rules := make([]string, len(t.columns))
		for i, c := range t.columns {
			header[i] = pad(c, widths[i])
			rules[i] = strings.Repeat("-", widths[i]+2)
		}
		fmt.Fprintln(t.out, " "+strings.Join(header, " | "))
		fmt.Fprintln(t.out, strings.Join(rules, "+"))
	}
	for _, row := range t.records {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = pad(cell, widths[i])
		}
		fmt.Fprintln(t.out, " "+strings.Join(cells, " | "))
	}
	fmt.Fprintf(t.out, "(%d %s)\n", len(t.records), plural("row", len(t.records)))
}

func (t *Table) renderJSON() {
	rows := make([]map[string]string, len(t.records))
	for i, row := range t.records {
		obj := make(map[string]string, len(t.columns))
		for j, col := range t.columns {
			obj[col] = row[j]
		}
		rows[i] = obj
	}
	enc := json.NewEncoder(t.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows); err != nil {
		fmt.Fprintln(t.out, Error("error: ")+err.Error())
	}
}

func (t *Table) renderPlain() {
	for _, row := range t.records {
		fmt.Fprintln(t.out, strings.Join(row, "|"))
	}
}

func pad(s string, width int) string {
	if n := width - utf8.RuneCountInString(s); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}

func plural(word string, n int) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
