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

package catalog

import (
	"path/filepath"
	"testing"

	"github.com/firefly-oss/flydb/internal/engine"
)

func setupCatalogTest(t *testing.T) *Catalog {
	t.Helper()
	e, err := engine.Open(filepath.Join(t.TempDir(), "data.db"), 64)
	if err != nil {
		t.Fatalf("engine.Open failed: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	return New(e)
}

func TestCreateTableAndDescribe(t *testing.T) {
	c := setupCatalogTest(t)
	cols := []ColumnDef{
		{Name: "id", Type: TypeInt},
		{Name: "name", Type: TypeText},
	}
	if err := c.CreateTable("users", cols); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}

	got, err := c.DescribeTable("users")
	if err != nil {
		t.Fatalf("DescribeTable failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 columns, got %d", len(got))
	}
	if got[0].Name != "id" || got[0].Ordinal != 0 {
		t.Errorf("unexpected first column: %+v", got[0])
	}
	if got[1].Name != "name" || got[1].Ordinal != 1 {
		t.Errorf("unexpected second column: %+v", got[1])
	}
}

func TestCreateTableTwiceFails(t *testing.T) {
	c := setupCatalogTest(t)
	cols := []ColumnDef{{Name: "id", Type: TypeInt}}
	if err := c.CreateTable("t", cols); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	if err := c.CreateTable("t", cols); err == nil {
		t.Fatal("expected error creating duplicate table")
	}
}

func TestDropTableSoftDeletesColumnsAndIndexes(t *testing.T) {
	c := setupCatalogTest(t)
	cols := []ColumnDef{{Name: "id", Type: TypeInt}, {Name: "c", Type: TypeInt}}
	if err := c.CreateTable("t", cols); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	if err := c.CreateIndex("ix_t_c", "t", "c"); err != nil {
		t.Fatalf("CreateIndex failed: %v", err)
	}

	if err := c.DropTable("t"); err != nil {
		t.Fatalf("DropTable failed: %v", err)
	}

	exists, err := c.TableExists("t")
	if err != nil || exists {
		t.Fatalf("expected table gone, exists=%v err=%v", exists, err)
	}
	cols2, err := c.DescribeTable("t")
	if err != nil || len(cols2) != 0 {
		t.Fatalf("expected no live columns after drop, got %v (err=%v)", cols2, err)
	}
	idxs, err := c.IndexesOn("t")
	if err != nil || len(idxs) != 0 {
		t.Fatalf("expected no live indexes after drop, got %v (err=%v)", idxs, err)
	}
}

func TestAddColumnAppendsOrdinal(t *testing.T) {
	c := setupCatalogTest(t)
	if err := c.CreateTable("t", []ColumnDef{{Name: "id", Type: TypeInt}}); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	if err := c.AddColumn("t", ColumnDef{Name: "extra", Type: TypeText}); err != nil {
		t.Fatalf("AddColumn failed: %v", err)
	}
	cols, err := c.DescribeTable("t")
	if err != nil {
		t.Fatalf("DescribeTable failed: %v", err)
	}
	if len(cols) != 2 || cols[1].Name != "extra" || cols[1].Ordinal != 1 {
		t.Fatalf("unexpected columns after AddColumn: %+v", cols)
	}
}

func TestIndexLifecycle(t *testing.T) {
	c := setupCatalogTest(t)
	if err := c.CreateTable("t", []ColumnDef{{Name: "c", Type: TypeInt}}); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	if err := c.CreateIndex("ix", "t", "c"); err != nil {
		t.Fatalf("CreateIndex failed: %v", err)
	}
	if err := c.CreateIndex("ix", "t", "c"); err == nil {
		t.Fatal("expected error creating duplicate index")
	}
	idxs, err := c.IndexesOn("t")
	if err != nil || len(idxs) != 1 {
		t.Fatalf("expected one index, got %v (err=%v)", idxs, err)
	}
	if err := c.DropIndex("ix"); err != nil {
		t.Fatalf("DropIndex failed: %v", err)
	}
	if err := c.DropIndex("ix"); err == nil {
		t.Fatal("expected error dropping already-dropped index")
	}
}

func TestStatsRoundTrip(t *testing.T) {
	c := setupCatalogTest(t)
	if err := c.CreateTable("t", []ColumnDef{{Name: "id", Type: TypeInt}}); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	if err := c.AdjustStats("t", 5); err != nil {
		t.Fatalf("AdjustStats failed: %v", err)
	}
	if err := c.AdjustStats("t", 3); err != nil {
		t.Fatalf("AdjustStats failed: %v", err)
	}
	n, err := c.Stats("t")
	if err != nil || n != 8 {
		t.Fatalf("expected 8 rows, got %d (err=%v)", n, err)
	}
}

func TestListTablesExcludesDeleted(t *testing.T) {
	c := setupCatalogTest(t)
	if err := c.CreateTable("a", []ColumnDef{{Name: "id", Type: TypeInt}}); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	if err := c.CreateTable("b", []ColumnDef{{Name: "id", Type: TypeInt}}); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	if err := c.DropTable("a"); err != nil {
		t.Fatalf("DropTable failed: %v", err)
	}
	names, err := c.ListTables()
	if err != nil {
		t.Fatalf("ListTables failed: %v", err)
	}
	if len(names) != 1 || names[0] != "b" {
		t.Fatalf("expected only [b], got %v", names)
	}
}
