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

// Package executor runs a parsed statement against the catalog and the
// transactional engine: DDL and DML dispatch, row (de)serialization,
// predicate and aggregate evaluation, and nested-loop joins.
package executor

import (
	"fmt"
	"sync"
	"time"

	flyerrors "github.com/firefly-oss/flydb/internal/errors"
	"github.com/firefly-oss/flydb/internal/catalog"
	"github.com/firefly-oss/flydb/internal/engine"
	"github.com/firefly-oss/flydb/internal/logging"
	"github.com/firefly-oss/flydb/internal/sql"
	"github.com/firefly-oss/flydb/internal/sql/planner"
)

// Result is the outcome of executing one statement. SELECT populates
// Columns/Rows; DDL, DML, and EXPLAIN populate Message with a
// human-readable confirmation or rendering.
type Result struct {
	Message string
	Columns []string
	Rows    [][]Value
	IsQuery bool
}

// Executor runs statements against one engine/catalog pair.
type Executor struct {
	eng *engine.Engine
	cat *catalog.Catalog
	pl  *planner.Planner

	mu     sync.Mutex
	lastID int64 // last row id handed out, for monotonic id assignment
	logger *logging.Logger
}

func New(eng *engine.Engine, cat *catalog.Catalog) *Executor {
	return &Executor{
		eng:    eng,
		cat:    cat,
		pl:     planner.New(cat),
		logger: logging.NewLogger("executor"),
	}
}

// Execute runs stmt under txnID (engine.AutoTxnID for an implicit
// auto-commit transaction). Schema operations always commit
// immediately, regardless of txnID, since the catalog has no
// transactional rollback of its own.
func (ex *Executor) Execute(stmt sql.Statement, txnID uint64) (*Result, error) {
	switch s := stmt.(type) {
	case sql.CreateTableStmt:
		return ex.execCreateTable(s)
	case sql.DropTableStmt:
		return ex.execDropTable(s)
	case sql.AlterTableAddColumnStmt:
		return ex.execAlterTableAddColumn(s)
	case sql.CreateIndexStmt:
		return ex.execCreateIndex(s)
	case sql.DropIndexStmt:
		return ex.execDropIndex(s)
	case sql.InsertStmt:
		return ex.execInsert(s, txnID)
	case sql.UpdateStmt:
		return ex.execUpdate(s, txnID)
	case sql.DeleteStmt:
		return ex.execDelete(s, txnID)
	case sql.SelectStmt:
		return ex.execSelect(&s)
	case sql.ExplainStmt:
		return ex.execExplain(s)
	default:
		return nil, flyerrors.NewSyntaxError(fmt.Sprintf("unsupported statement type %T", stmt))
	}
}

func (ex *Executor) execCreateTable(s sql.CreateTableStmt) (*Result, error) {
	if catalog.IsReservedKey(s.TableName) {
		return nil, flyerrors.NewSyntaxError("table name uses a reserved prefix: " + s.TableName)
	}
	cols := make([]catalog.ColumnDef, len(s.Columns))
	for i, c := range s.Columns {
		t, ok := catalog.ParseColumnType(c.Type)
		if !ok {
			return nil, flyerrors.NewSyntaxError("unknown column type: " + c.Type)
		}
		cols[i] = catalog.ColumnDef{Name: c.Name, Type: t, Ordinal: i}
	}
	if err := ex.cat.CreateTable(s.TableName, cols); err != nil {
		return nil, err
	}
	return &Result{Message: fmt.Sprintf("table %s created", s.TableName)}, nil
}

func (ex *Executor) execDropTable(s sql.DropTableStmt) (*Result, error) {
	if err := ex.cat.DropTable(s.TableName); err != nil {
		return nil, err
	}
	return &Result{Message: fmt.Sprintf("table %s dropped", s.TableName)}, nil
}

func (ex *Executor) execAlterTableAddColumn(s sql.AlterTableAddColumnStmt) (*Result, error) {
	t, ok := catalog.ParseColumnType(s.Column.Type)
	if !ok {
		return nil, flyerrors.NewSyntaxError("unknown column type: " + s.Column.Type)
	}
	if err := ex.cat.AddColumn(s.TableName, catalog.ColumnDef{Name: s.Column.Name, Type: t}); err != nil {
		return nil, err
	}
	return &Result{Message: fmt.Sprintf("column %s added to %s", s.Column.Name, s.TableName)}, nil
}

func (ex *Executor) execCreateIndex(s sql.CreateIndexStmt) (*Result, error) {
	exists, err := ex.cat.TableExists(s.TableName)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, flyerrors.TableNotFound(s.TableName)
	}
	if err := ex.cat.CreateIndex(s.IndexName, s.TableName, s.ColumnName); err != nil {
		return nil, err
	}
	return &Result{Message: fmt.Sprintf("index %s created on %s(%s)", s.IndexName, s.TableName, s.ColumnName)}, nil
}

func (ex *Executor) execDropIndex(s sql.DropIndexStmt) (*Result, error) {
	if err := ex.cat.DropIndex(s.IndexName); err != nil {
		return nil, err
	}
	return &Result{Message: fmt.Sprintf("index %s dropped", s.IndexName)}, nil
}

func (ex *Executor) execExplain(s sql.ExplainStmt) (*Result, error) {
	plan, err := ex.pl.Plan(s.Select)
	if err != nil {
		return nil, err
	}
	return &Result{Message: plan.Explain()}, nil
}

// nextRowID hands out a monotonically increasing row id, seeded from the
// wall clock so ids keep increasing across restarts. Two calls within
// the same microsecond fall back to counter increments.
func (ex *Executor) nextRowID() int64 {
	ex.mu.Lock()
	defer ex.mu.Unlock()
	now := time.Now().UnixMicro()
	if now <= ex.lastID {
		now = ex.lastID + 1
	}
	ex.lastID = now
	return now
}

func rowKey(table string, id int64) []byte {
	return []byte(fmt.Sprintf("%s:%018d", table, id))
}
