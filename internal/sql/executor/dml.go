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
	"fmt"
	"sort"
	"strings"

	flyerrors "github.com/firefly-oss/flydb/internal/errors"
	"github.com/firefly-oss/flydb/internal/catalog"
	"github.com/firefly-oss/flydb/internal/engine"
	"github.com/firefly-oss/flydb/internal/sql"
)

// deletedMarker mirrors the catalog's soft-deletion sentinel: DELETE
// overwrites the row's value with it rather than removing the key, and
// every scan skips rows carrying it.
const deletedMarker = "DELETED"

func (ex *Executor) execInsert(s sql.InsertStmt, txnID uint64) (*Result, error) {
	cols, err := ex.cat.DescribeTable(s.TableName)
	if err != nil {
		return nil, err
	}
	if len(s.Values) != len(cols) {
		return nil, flyerrors.ColumnCountMismatch(len(cols), len(s.Values))
	}

	values := make([]Value, len(cols))
	for i, c := range cols {
		lit, ok := s.Values[i].(sql.LiteralExpr)
		if !ok {
			return nil, flyerrors.NewSyntaxError("INSERT values must be literals")
		}
		v, err := coerceLiteral(c.Name, lit.Value, c.Type)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}

	id := ex.nextRowID()
	key := rowKey(s.TableName, id)
	payload := []byte(serializeRow(values))

	if err := ex.write(txnID, key, payload); err != nil {
		return nil, err
	}
	if err := ex.cat.AdjustStats(s.TableName, 1); err != nil {
		return nil, err
	}
	return &Result{Message: fmt.Sprintf("1 row inserted into %s", s.TableName)}, nil
}

func (ex *Executor) write(txnID uint64, key, value []byte) error {
	if txnID == engine.AutoTxnID {
		return ex.eng.Insert(key, value)
	}
	return ex.eng.InsertTxn(txnID, key, value)
}

func (ex *Executor) execUpdate(s sql.UpdateStmt, txnID uint64) (*Result, error) {
	cols, err := ex.cat.DescribeTable(s.TableName)
	if err != nil {
		return nil, err
	}
	colTypes := make(map[string]catalog.ColumnType, len(cols))
	for _, c := range cols {
		colTypes[c.Name] = c.Type
	}

	rows, err := ex.scanTable(s.TableName, s.TableName, cols)
	if err != nil {
		return nil, err
	}

	var updated int
	for _, r := range rows {
		if s.Where != nil {
			ok, err := evalBool(s.Where, r, false)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}

		values := make([]Value, len(cols))
		for i, c := range cols {
			v, err := r.get(c.Name, false)
			if err != nil {
				return nil, err
			}
			values[i] = v
		}
		for _, a := range s.Set {
			t, ok := colTypes[a.Column]
			if !ok {
				return nil, flyerrors.ColumnNotFound(a.Column, s.TableName)
			}
			lit, ok := a.Value.(sql.LiteralExpr)
			if !ok {
				return nil, flyerrors.NewSyntaxError("SET values must be literals")
			}
			v, err := coerceLiteral(a.Column, lit.Value, t)
			if err != nil {
				return nil, err
			}
			for i, c := range cols {
				if c.Name == a.Column {
					values[i] = v
				}
			}
		}

		if err := ex.write(txnID, []byte(r.id), []byte(serializeRow(values))); err != nil {
			return nil, err
		}
		updated++
	}
	return &Result{Message: fmt.Sprintf("%d row(s) updated in %s", updated, s.TableName)}, nil
}

func (ex *Executor) execDelete(s sql.DeleteStmt, txnID uint64) (*Result, error) {
	cols, err := ex.cat.DescribeTable(s.TableName)
	if err != nil {
		return nil, err
	}
	rows, err := ex.scanTable(s.TableName, s.TableName, cols)
	if err != nil {
		return nil, err
	}

	var deleted int
	for _, r := range rows {
		if s.Where != nil {
			ok, err := evalBool(s.Where, r, false)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		if err := ex.write(txnID, []byte(r.id), []byte(deletedMarker)); err != nil {
			return nil, err
		}
		deleted++
	}
	if deleted > 0 {
		if err := ex.cat.AdjustStats(s.TableName, -int64(deleted)); err != nil {
			return nil, err
		}
	}
	return &Result{Message: fmt.Sprintf("%d row(s) deleted from %s", deleted, s.TableName)}, nil
}

// scanTable reads every live row of table (under alias) in key order,
// materializing each into a Row keyed by its alias-qualified column
// names (unqualified references resolve through Row.get).
func (ex *Executor) scanTable(table, alias string, cols []catalog.ColumnDef) ([]Row, error) {
	if catalog.IsReservedKey(table) {
		return nil, flyerrors.TableNotFound(table)
	}
	start := []byte(table + ":")
	end := append([]byte(table+":"), 0xFF)
	kvs, err := ex.eng.RangeScan(start, end)
	if err != nil {
		return nil, err
	}

	colNames := make([]string, len(cols))
	for i, c := range cols {
		colNames[i] = c.Name
	}

	rows := make([]Row, 0, len(kvs))
	for _, kv := range kvs {
		raw := string(kv.Value)
		if raw == deletedMarker {
			continue
		}
		fields := strings.Split(raw, "|")
		if len(fields) != len(cols) {
			return nil, flyerrors.CorruptionError(fmt.Sprintf("row %s has %d fields, table has %d columns", string(kv.Key), len(fields), len(cols)))
		}
		values := make([]Value, len(cols))
		for i, c := range cols {
			v, err := parseStoredValue(fields[i], c.Type)
			if err != nil {
				return nil, err
			}
			values[i] = v
		}
		r := newBaseRow(string(kv.Key), alias, colNames, values)
		rows = append(rows, r)
	}
	return rows, nil
}

func (ex *Executor) execSelect(sel *sql.SelectStmt) (*Result, error) {
	baseCols, err := ex.cat.DescribeTable(sel.From.Name)
	if err != nil {
		return nil, err
	}
	rows, err := ex.scanTable(sel.From.Name, sel.From.Alias, baseCols)
	if err != nil {
		return nil, err
	}

	for _, j := range sel.Joins {
		rightCols, err := ex.cat.DescribeTable(j.Table.Name)
		if err != nil {
			return nil, err
		}
		rightRows, err := ex.scanTable(j.Table.Name, j.Table.Alias, rightCols)
		if err != nil {
			return nil, err
		}
		rows, err = nestedLoopJoin(rows, rightRows, j.On)
		if err != nil {
			return nil, err
		}
	}

	if sel.Where != nil {
		filtered := rows[:0]
		for _, r := range rows {
			ok, err := evalBool(sel.Where, r, false)
			if err != nil {
				return nil, err
			}
			if ok {
				filtered = append(filtered, r)
			}
		}
		rows = filtered
	}

	hasAggregate := false
	for _, item := range sel.Items {
		if item.Aggregate != nil {
			hasAggregate = true
		}
	}

	if hasAggregate || len(sel.GroupBy) > 0 {
		return ex.projectGrouped(rows, sel)
	}
	return ex.projectPlain(rows, sel, baseCols)
}

func (ex *Executor) projectGrouped(rows []Row, sel *sql.SelectStmt) (*Result, error) {
	groups, err := groupRows(rows, sel.GroupBy)
	if err != nil {
		return nil, err
	}
	columns := selectItemNames(sel.Items)
	outRows := make([][]Value, 0, len(groups))
	for _, g := range groups {
		vals, err := projectGroup(g, sel.Items)
		if err != nil {
			return nil, err
		}
		outRows = append(outRows, vals)
	}
	return &Result{IsQuery: true, Columns: columns, Rows: outRows}, nil
}

func (ex *Executor) projectPlain(rows []Row, sel *sql.SelectStmt, baseCols []catalog.ColumnDef) (*Result, error) {
	if sel.OrderBy != "" {
		sorted := append([]Row(nil), rows...)
		var sortErr error
		sort.SliceStable(sorted, func(i, j int) bool {
			vi, err := sorted[i].get(sel.OrderBy, false)
			if err != nil {
				sortErr = err
				return false
			}
			vj, err := sorted[j].get(sel.OrderBy, false)
			if err != nil {
				sortErr = err
				return false
			}
			// Nulls sort last.
			if vi.Null || vj.Null {
				return !vi.Null && vj.Null
			}
			less, err := compare(vi, vj, "<")
			if err != nil {
				sortErr = err
				return false
			}
			return less
		})
		if sortErr != nil {
			return nil, sortErr
		}
		rows = sorted
	}

	if sel.HasLimit && sel.Limit < len(rows) {
		rows = rows[:sel.Limit]
	}

	var columns []string
	if sel.Star {
		for _, c := range baseCols {
			columns = append(columns, c.Name)
		}
	} else {
		columns = selectItemNames(sel.Items)
	}

	outRows := make([][]Value, 0, len(rows))
	for _, r := range rows {
		var vals []Value
		if sel.Star {
			for _, name := range columns {
				v, err := r.get(name, false)
				if err != nil {
					return nil, err
				}
				vals = append(vals, v)
			}
		} else {
			for _, item := range sel.Items {
				if item.Column == nil {
					return nil, flyerrors.NewSyntaxError("aggregate used outside GROUP BY context")
				}
				v, err := r.get(item.Column.Qualified(), false)
				if err != nil {
					return nil, err
				}
				vals = append(vals, v)
			}
		}
		outRows = append(outRows, vals)
	}
	return &Result{IsQuery: true, Columns: columns, Rows: outRows}, nil
}

func selectItemNames(items []sql.SelectItem) []string {
	names := make([]string, len(items))
	for i, item := range items {
		switch {
		case item.Aggregate != nil:
			if item.Aggregate.Star {
				names[i] = item.Aggregate.Function + "(*)"
			} else {
				names[i] = item.Aggregate.Function + "(" + item.Aggregate.Column + ")"
			}
		case item.Column != nil:
			names[i] = item.Column.Qualified()
		}
	}
	return names
}

// nestedLoopJoin is the sole join strategy (inner joins only): every
// left row is paired with every right row and kept when the ON
// predicate holds, evaluated with join-aware (silently left-preferring)
// column resolution.
func nestedLoopJoin(left, right []Row, on sql.Expr) ([]Row, error) {
	var out []Row
	for _, l := range left {
		for _, r := range right {
			combined := l.join(r)
			ok, err := evalBool(on, combined, true)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, combined)
			}
		}
	}
	return out, nil
}
