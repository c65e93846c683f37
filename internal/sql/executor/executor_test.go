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
	"path/filepath"
	"testing"

	"github.com/firefly-oss/flydb/internal/catalog"
	"github.com/firefly-oss/flydb/internal/engine"
	"github.com/firefly-oss/flydb/internal/sql/parser"
)

func newTestExecutor(t *testing.T) *Executor {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "exec.db")
	e, err := engine.Open(dbPath, 64)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return New(e, catalog.New(e))
}

func mustExec(t *testing.T, ex *Executor, sqlText string) *Result {
	t.Helper()
	stmt, err := parser.Parse(sqlText)
	if err != nil {
		t.Fatalf("Parse(%q): %v", sqlText, err)
	}
	res, err := ex.Execute(stmt, engine.AutoTxnID)
	if err != nil {
		t.Fatalf("Execute(%q): %v", sqlText, err)
	}
	return res
}

func TestCreateTableInsertAndSelectStar(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, "CREATE TABLE users (id INT, name TEXT, score FLOAT)")
	mustExec(t, ex, "INSERT INTO users VALUES (1, 'Alice', 9.5)")
	mustExec(t, ex, "INSERT INTO users VALUES (2, 'Bob', 7.25)")

	res := mustExec(t, ex, "SELECT * FROM users")
	if len(res.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(res.Rows))
	}
	if res.Columns[1] != "name" {
		t.Errorf("expected name column, got %v", res.Columns)
	}
}

func TestSelectWhereFiltersRows(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, "CREATE TABLE t (id INT, v INT)")
	mustExec(t, ex, "INSERT INTO t VALUES (1, 10)")
	mustExec(t, ex, "INSERT INTO t VALUES (2, 20)")
	mustExec(t, ex, "INSERT INTO t VALUES (3, 30)")

	res := mustExec(t, ex, "SELECT id FROM t WHERE v > 15")
	if len(res.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(res.Rows))
	}
}

func TestUpdateAndDelete(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, "CREATE TABLE t (id INT, v INT)")
	mustExec(t, ex, "INSERT INTO t VALUES (1, 10)")
	mustExec(t, ex, "INSERT INTO t VALUES (2, 20)")

	upd := mustExec(t, ex, "UPDATE t SET v = 99 WHERE id = 1")
	if upd.Message != "1 row(s) updated in t" {
		t.Errorf("unexpected message: %s", upd.Message)
	}

	res := mustExec(t, ex, "SELECT v FROM t WHERE id = 1")
	if len(res.Rows) != 1 || res.Rows[0][0].Int != 99 {
		t.Fatalf("expected updated value 99, got %+v", res.Rows)
	}

	mustExec(t, ex, "DELETE FROM t WHERE id = 2")
	res = mustExec(t, ex, "SELECT id FROM t")
	if len(res.Rows) != 1 {
		t.Fatalf("expected 1 live row after delete, got %d", len(res.Rows))
	}
}

func TestInsertColumnCountMismatch(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, "CREATE TABLE t (id INT, v INT)")
	stmt, err := parser.Parse("INSERT INTO t VALUES (1)")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if _, err := ex.Execute(stmt, engine.AutoTxnID); err == nil {
		t.Fatal("expected column count mismatch error")
	}
}

func TestInnerJoin(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, "CREATE TABLE u (id INT, name TEXT)")
	mustExec(t, ex, "CREATE TABLE o (id INT, user_id INT, product TEXT)")
	mustExec(t, ex, "INSERT INTO u VALUES (1, 'Alice')")
	mustExec(t, ex, "INSERT INTO u VALUES (2, 'Bob')")
	mustExec(t, ex, "INSERT INTO o VALUES (100, 1, 'Widget')")
	mustExec(t, ex, "INSERT INTO o VALUES (101, 2, 'Gadget')")

	res := mustExec(t, ex, "SELECT name, product FROM u INNER JOIN o ON u.id = o.user_id")
	if len(res.Rows) != 2 {
		t.Fatalf("expected 2 joined rows, got %d", len(res.Rows))
	}
}

func TestGroupByWithAggregates(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, "CREATE TABLE s (region TEXT, amt INT)")
	mustExec(t, ex, "INSERT INTO s VALUES ('east', 10)")
	mustExec(t, ex, "INSERT INTO s VALUES ('east', 5)")
	mustExec(t, ex, "INSERT INTO s VALUES ('west', 7)")

	res := mustExec(t, ex, "SELECT region, SUM(amt) FROM s GROUP BY region")
	if len(res.Rows) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(res.Rows))
	}
	totals := map[string]int64{}
	for _, row := range res.Rows {
		totals[row[0].Text] = row[1].Int
	}
	if totals["east"] != 15 || totals["west"] != 7 {
		t.Errorf("unexpected totals: %+v", totals)
	}
}

func TestCountStarWithNoGroupBy(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, "CREATE TABLE t (id INT)")
	mustExec(t, ex, "INSERT INTO t VALUES (1)")
	mustExec(t, ex, "INSERT INTO t VALUES (2)")

	res := mustExec(t, ex, "SELECT COUNT(*) FROM t")
	if len(res.Rows) != 1 || res.Rows[0][0].Int != 2 {
		t.Fatalf("expected COUNT(*)=2, got %+v", res.Rows)
	}
}

func TestOrderByAndLimit(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, "CREATE TABLE t (id INT)")
	mustExec(t, ex, "INSERT INTO t VALUES (3)")
	mustExec(t, ex, "INSERT INTO t VALUES (1)")
	mustExec(t, ex, "INSERT INTO t VALUES (2)")

	res := mustExec(t, ex, "SELECT id FROM t ORDER BY id LIMIT 2")
	if len(res.Rows) != 2 || res.Rows[0][0].Int != 1 || res.Rows[1][0].Int != 2 {
		t.Fatalf("unexpected ordered/limited rows: %+v", res.Rows)
	}
}

func TestExplainReturnsPlanText(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, "CREATE TABLE t (id INT, c INT)")
	res := mustExec(t, ex, "EXPLAIN SELECT * FROM t WHERE c = 1")
	if res.Message == "" {
		t.Fatal("expected non-empty EXPLAIN output")
	}
}

func TestExplicitTransactionCommit(t *testing.T) {
	ex := newTestExecutor(t)
	mustExec(t, ex, "CREATE TABLE t (id INT)")

	txnID, err := ex.eng.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	stmt, _ := parser.Parse("INSERT INTO t VALUES (1)")
	if _, err := ex.Execute(stmt, txnID); err != nil {
		t.Fatalf("Execute under txn: %v", err)
	}
	if err := ex.eng.Commit(txnID); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	res := mustExec(t, ex, "SELECT id FROM t")
	if len(res.Rows) != 1 {
		t.Fatalf("expected 1 committed row, got %d", len(res.Rows))
	}
}
