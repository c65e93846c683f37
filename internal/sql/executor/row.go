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

package executor

import (
	"strings"

	flyerrors "github.com/firefly-oss/flydb/internal/errors"
)

// Row is one materialized row, possibly the product of a chain of joins.
// Fields are keyed by "<alias>.<column>"; aliases records the tables
// that contributed to this row, left to right, so that unqualified
// column references can be resolved against the join order.
type Row struct {
	id      string // storage key, used by UPDATE/DELETE to locate the tuple
	aliases []string
	fields  map[string]Value
}

func newBaseRow(id, alias string, cols []string, values []Value) Row {
	fields := make(map[string]Value, len(cols))
	for i, c := range cols {
		fields[alias+"."+c] = values[i]
	}
	return Row{id: id, aliases: []string{alias}, fields: fields}
}

// join concatenates r and other into one composite row, r contributing
// the leftmost aliases. The combined row has no single storage key since
// UPDATE/DELETE never operate across a join.
func (r Row) join(other Row) Row {
	fields := make(map[string]Value, len(r.fields)+len(other.fields))
	for k, v := range r.fields {
		fields[k] = v
	}
	for k, v := range other.fields {
		fields[k] = v
	}
	aliases := make([]string, 0, len(r.aliases)+len(other.aliases))
	aliases = append(aliases, r.aliases...)
	aliases = append(aliases, other.aliases...)
	return Row{aliases: aliases, fields: fields}
}

// get resolves a column reference against the row. Qualified references
// ("t.col") look up the field directly. Unqualified references search
// every contributing alias in join order: inside an ON clause
// (preferLeft true) a match on more than one alias silently resolves to
// the leftmost, matching the SQL convention; everywhere else an
// unqualified name present on more than one alias is reported as
// ambiguous.
func (r Row) get(name string, preferLeft bool) (Value, error) {
	if dot := strings.IndexByte(name, '.'); dot >= 0 {
		v, ok := r.fields[name]
		if !ok {
			return Value{}, flyerrors.ColumnNotFound(name, strings.Join(r.aliases, ","))
		}
		return v, nil
	}
	var matches []string
	for _, alias := range r.aliases {
		if _, ok := r.fields[alias+"."+name]; ok {
			matches = append(matches, alias)
		}
	}
	switch {
	case len(matches) == 0:
		return Value{}, flyerrors.ColumnNotFound(name, strings.Join(r.aliases, ","))
	case len(matches) == 1 || preferLeft:
		return r.fields[matches[0]+"."+name], nil
	default:
		return Value{}, flyerrors.AmbiguousColumn(name)
	}
}
