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

// Package catalog persists schema metadata - tables, columns, indexes,
// and row-count statistics - as reserved-prefix keys inside the same
// B+-tree the engine uses for user rows. Deletion is logical: the
// sentinel value DELETED replaces the payload rather than removing the key.
package catalog

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	flyerrors "github.com/firefly-oss/flydb/internal/errors"
	"github.com/firefly-oss/flydb/internal/storage/btree"
)

// deleted is the soft-deletion sentinel value. It conflates absence
// with a real value of this string - a known limitation.
const deleted = "DELETED"

const (
	tablesPrefix  = "__catalog__tables:"
	columnsPrefix = "__catalog__columns:"
	indexesPrefix = "__catalog__indexes:"
	statsPrefix   = "__catalog__stats:"
)

// ColumnType is one of the three storable column types.
type ColumnType string

const (
	TypeInt   ColumnType = "INT"
	TypeText  ColumnType = "TEXT"
	TypeFloat ColumnType = "FLOAT"
)

// ParseColumnType validates s against the supported type set.
func ParseColumnType(s string) (ColumnType, bool) {
	switch ColumnType(strings.ToUpper(s)) {
	case TypeInt:
		return TypeInt, true
	case TypeText:
		return TypeText, true
	case TypeFloat:
		return TypeFloat, true
	default:
		return "", false
	}
}

// ColumnDef describes one column of a table, including its position.
type ColumnDef struct {
	Name    string
	Type    ColumnType
	Ordinal int
}

// IndexDef describes one secondary index's metadata. Only the metadata
// is tracked; no physical index structure exists.
type IndexDef struct {
	Name   string
	Table  string
	Column string
}

// kvStore is the subset of the transactional engine the catalog needs.
// Catalog mutations go through Insert so they are WAL-logged like any
// other row; reads bypass the log.
type kvStore interface {
	Insert(key, value []byte) error
	Get(key []byte) ([]byte, bool, error)
	RangeScan(start, end []byte) ([]btree.KV, error)
}

// Catalog is the schema and statistics store, layered over the shared
// B+-tree via reserved key prefixes.
type Catalog struct {
	kv kvStore
}

// New returns a Catalog backed by kv.
func New(kv kvStore) *Catalog {
	return &Catalog{kv: kv}
}

func prefixBound(prefix string) (start, end []byte) {
	start = []byte(prefix)
	end = append([]byte(prefix), 0xFF)
	return
}

func tableKey(name string) []byte     { return []byte(tablesPrefix + name) }
func columnKey(table, col string) []byte {
	return []byte(columnsPrefix + table + ":" + col)
}
func indexKey(name string) []byte { return []byte(indexesPrefix + name) }
func statsKey(table string) []byte { return []byte(statsPrefix + table) }

// get performs a point lookup via RangeScan over the exact key, rather
// than a point Get that might swallow a "not found" condition silently.
// Existence checks here must distinguish "absent" from "present but
// soft-deleted".
func (c *Catalog) get(key []byte) (string, bool, error) {
	rows, err := c.kv.RangeScan(key, key)
	if err != nil {
		return "", false, err
	}
	if len(rows) == 0 {
		return "", false, nil
	}
	return string(rows[0].Value), true, nil
}

// TableExists reports whether name refers to a live (non-deleted) table.
func (c *Catalog) TableExists(name string) (bool, error) {
	v, ok, err := c.get(tableKey(name))
	if err != nil || !ok {
		return false, err
	}
	return v != deleted, nil
}

// CreateTable registers a new table with the given columns, in order.
// Fails with TableExists if a live table row already occupies the name.
func (c *Catalog) CreateTable(name string, columns []ColumnDef) error {
	exists, err := c.TableExists(name)
	if err != nil {
		return err
	}
	if exists {
		return flyerrors.TableExists(name)
	}

	if err := c.kv.Insert(tableKey(name), []byte(fmt.Sprintf("columns=%d", len(columns)))); err != nil {
		return err
	}
	for i, col := range columns {
		row := fmt.Sprintf("type=%s,ordinal=%d", col.Type, i)
		if err := c.kv.Insert(columnKey(name, col.Name), []byte(row)); err != nil {
			return err
		}
	}
	return c.kv.Insert(statsKey(name), []byte("rows=0"))
}

// DropTable marks the table, its columns, and every index referencing it
// as DELETED. Physical keys remain (soft delete).
func (c *Catalog) DropTable(name string) error {
	exists, err := c.TableExists(name)
	if err != nil {
		return err
	}
	if !exists {
		return flyerrors.TableNotFound(name)
	}

	if err := c.kv.Insert(tableKey(name), []byte(deleted)); err != nil {
		return err
	}

	cols, err := c.DescribeTable(name)
	if err != nil {
		return err
	}
	for _, col := range cols {
		if err := c.kv.Insert(columnKey(name, col.Name), []byte(deleted)); err != nil {
			return err
		}
	}

	idxs, err := c.listAllIndexes()
	if err != nil {
		return err
	}
	for _, idx := range idxs {
		if idx.Table == name {
			if err := c.kv.Insert(indexKey(idx.Name), []byte(deleted)); err != nil {
				return err
			}
		}
	}
	return nil
}

// AddColumn appends col to table, assigning it the next ordinal and
// bumping the table's stored column count.
func (c *Catalog) AddColumn(table string, col ColumnDef) error {
	v, ok, err := c.get(tableKey(table))
	if err != nil {
		return err
	}
	if !ok || v == deleted {
		return flyerrors.TableNotFound(table)
	}
	count, err := parseColumnsCount(v)
	if err != nil {
		return err
	}

	row := fmt.Sprintf("type=%s,ordinal=%d", col.Type, count)
	if err := c.kv.Insert(columnKey(table, col.Name), []byte(row)); err != nil {
		return err
	}
	return c.kv.Insert(tableKey(table), []byte(fmt.Sprintf("columns=%d", count+1)))
}

// DescribeTable returns table's live columns, sorted by ordinal.
func (c *Catalog) DescribeTable(table string) ([]ColumnDef, error) {
	start, end := prefixBound(columnsPrefix + table + ":")
	rows, err := c.kv.RangeScan(start, end)
	if err != nil {
		return nil, err
	}

	cols := make([]ColumnDef, 0, len(rows))
	for _, r := range rows {
		val := string(r.Value)
		if val == deleted {
			continue
		}
		name := strings.TrimPrefix(string(r.Key), columnsPrefix+table+":")
		typ, ordinal, err := parseColumnRow(val)
		if err != nil {
			return nil, err
		}
		cols = append(cols, ColumnDef{Name: name, Type: typ, Ordinal: ordinal})
	}
	sort.Slice(cols, func(i, j int) bool { return cols[i].Ordinal < cols[j].Ordinal })
	return cols, nil
}

// ListTables returns the names of every live table, sorted by name.
func (c *Catalog) ListTables() ([]string, error) {
	start, end := prefixBound(tablesPrefix)
	rows, err := c.kv.RangeScan(start, end)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, r := range rows {
		if string(r.Value) == deleted {
			continue
		}
		names = append(names, strings.TrimPrefix(string(r.Key), tablesPrefix))
	}
	sort.Strings(names)
	return names, nil
}

// CreateIndex registers index metadata only; no physical index
// structure is built.
func (c *Catalog) CreateIndex(name, table, column string) error {
	v, ok, err := c.get(indexKey(name))
	if err != nil {
		return err
	}
	if ok && v != deleted {
		return flyerrors.IndexExists(name)
	}
	row := fmt.Sprintf("table=%s,column=%s", table, column)
	return c.kv.Insert(indexKey(name), []byte(row))
}

// DropIndex marks the named index as DELETED.
func (c *Catalog) DropIndex(name string) error {
	v, ok, err := c.get(indexKey(name))
	if err != nil {
		return err
	}
	if !ok || v == deleted {
		return flyerrors.IndexNotFound(name)
	}
	return c.kv.Insert(indexKey(name), []byte(deleted))
}

// IndexesOn returns every live index defined on table, for the planner's
// access-method selection.
func (c *Catalog) IndexesOn(table string) ([]IndexDef, error) {
	all, err := c.listAllIndexes()
	if err != nil {
		return nil, err
	}
	var out []IndexDef
	for _, idx := range all {
		if idx.Table == table {
			out = append(out, idx)
		}
	}
	return out, nil
}

func (c *Catalog) listAllIndexes() ([]IndexDef, error) {
	start, end := prefixBound(indexesPrefix)
	rows, err := c.kv.RangeScan(start, end)
	if err != nil {
		return nil, err
	}
	var out []IndexDef
	for _, r := range rows {
		val := string(r.Value)
		if val == deleted {
			continue
		}
		table, column, err := parseIndexRow(val)
		if err != nil {
			return nil, err
		}
		out = append(out, IndexDef{
			Name:   strings.TrimPrefix(string(r.Key), indexesPrefix),
			Table:  table,
			Column: column,
		})
	}
	return out, nil
}

// Stats returns table's advisory row count. It is best-effort and may
// lag mutations by one commit.
func (c *Catalog) Stats(table string) (int64, error) {
	v, ok, err := c.get(statsKey(table))
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return parseRowsCount(v)
}

// SetStats overwrites table's row count statistic.
func (c *Catalog) SetStats(table string, rows int64) error {
	return c.kv.Insert(statsKey(table), []byte(fmt.Sprintf("rows=%d", rows)))
}

// AdjustStats adds delta (positive or negative) to table's row count.
func (c *Catalog) AdjustStats(table string, delta int64) error {
	current, err := c.Stats(table)
	if err != nil {
		return err
	}
	next := current + delta
	if next < 0 {
		next = 0
	}
	return c.SetStats(table, next)
}

func parseColumnsCount(v string) (int, error) {
	var n int
	if _, err := fmt.Sscanf(v, "columns=%d", &n); err != nil {
		return 0, flyerrors.CorruptionError("malformed table row: " + v)
	}
	return n, nil
}

func parseColumnRow(v string) (ColumnType, int, error) {
	parts := strings.Split(v, ",")
	if len(parts) != 2 {
		return "", 0, flyerrors.CorruptionError("malformed column row: " + v)
	}
	typeStr := strings.TrimPrefix(parts[0], "type=")
	ordinalStr := strings.TrimPrefix(parts[1], "ordinal=")
	typ, ok := ParseColumnType(typeStr)
	if !ok {
		return "", 0, flyerrors.CorruptionError("unknown column type: " + typeStr)
	}
	ordinal, err := strconv.Atoi(ordinalStr)
	if err != nil {
		return "", 0, flyerrors.CorruptionError("malformed ordinal: " + ordinalStr)
	}
	return typ, ordinal, nil
}

func parseIndexRow(v string) (table, column string, err error) {
	parts := strings.Split(v, ",")
	if len(parts) != 2 {
		return "", "", flyerrors.CorruptionError("malformed index row: " + v)
	}
	return strings.TrimPrefix(parts[0], "table="), strings.TrimPrefix(parts[1], "column="), nil
}

func parseRowsCount(v string) (int64, error) {
	var n int64
	if _, err := fmt.Sscanf(v, "rows=%d", &n); err != nil {
		return 0, flyerrors.CorruptionError("malformed stats row: " + v)
	}
	return n, nil
}

// IsReservedKey reports whether key begins with a catalog prefix and so
// must not be addressed directly by user SQL.
func IsReservedKey(key string) bool {
	return strings.HasPrefix(key, "__catalog__")
}
