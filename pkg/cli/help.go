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
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"
)

// HelpTopic is one entry in the REPL's \h screen: what the user types,
// what it does, and an optional worked example.
type HelpTopic struct {
	Name    string
	Summary string
	Example string
}

type helpSection struct {
	title  string
	topics []HelpTopic
}

// HelpScreen is the REPL's command reference, organized into titled
// sections (meta-commands, transaction control, SQL statements).
type HelpScreen struct {
	app      string
	version  string
	sections []helpSection
}

// NewHelpScreen starts an empty reference for the named binary.
func NewHelpScreen(app, version string) *HelpScreen {
	return &HelpScreen{app: app, version: version}
}

// Section appends a titled group of topics, returning the screen so
// callers can chain sections in display order.
func (h *HelpScreen) Section(title string, topics ...HelpTopic) *HelpScreen {
	h.sections = append(h.sections, helpSection{title: title, topics: topics})
	return h
}

// Render writes the full reference to w: per section, topic names
// aligned in one column with summaries beside them and examples dimmed
// underneath.
func (h *HelpScreen) Render(w io.Writer) {
	fmt.Fprintf(w, "%s %s\n", Highlight(h.app), Dimmed(h.version))
	for _, s := range h.sections {
		fmt.Fprintf(w, "\n%s\n", Highlight(strings.ToUpper(s.title)))
		width := 0
		for _, t := range s.topics {
			if n := utf8.RuneCountInString(t.Name); n > width {
				width = n
			}
		}
		for _, t := range s.topics {
			namePad := strings.Repeat(" ", width-utf8.RuneCountInString(t.Name))
			fmt.Fprintf(w, "  %s%s  %s\n", t.Name, namePad, t.Summary)
			if t.Example != "" {
				fmt.Fprintf(w, "  %s%s\n", strings.Repeat(" ", width+2), Dimmed(t.Example))
			}
		}
	}
}

// Print renders the reference to stdout.
func (h *HelpScreen) Print() {
	h.Render(os.Stdout)
}
