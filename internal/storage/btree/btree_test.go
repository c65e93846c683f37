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

package btree

import (
	"bytes"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/firefly-oss/flydb/internal/storage/bufferpool"
	"github.com/firefly-oss/flydb/internal/storage/page"
)

func newTestTree(t *testing.T) *BTree {
	t.Helper()
	store, err := page.Open(filepath.Join(t.TempDir(), "data.db"))
	if err != nil {
		t.Fatalf("page.Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	pool := bufferpool.New(store, 64)
	tr, err := Create(pool)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return tr
}

func TestInsertAndSearch(t *testing.T) {
	tr := newTestTree(t)
	if err := tr.Insert([]byte("k1"), []byte("v1")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	v, ok, err := tr.Search([]byte("k1"))
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if !ok || !bytes.Equal(v, []byte("v1")) {
		t.Fatalf("expected v1, got %q (found=%v)", v, ok)
	}
}

func TestInsertOverwritesExistingKey(t *testing.T) {
	tr := newTestTree(t)
	if err := tr.Insert([]byte("k1"), []byte("v1")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := tr.Insert([]byte("k1"), []byte("v2")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	v, ok, err := tr.Search([]byte("k1"))
	if err != nil || !ok || !bytes.Equal(v, []byte("v2")) {
		t.Fatalf("expected v2, got %q (found=%v, err=%v)", v, ok, err)
	}
}

func TestSearchMissingKey(t *testing.T) {
	tr := newTestTree(t)
	_, ok, err := tr.Search([]byte("missing"))
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if ok {
		t.Fatalf("expected not found")
	}
}

func TestSplitsAcrossManyInserts(t *testing.T) {
	tr := newTestTree(t)
	const n = 500
	for i := 0; i < n; i++ {
		k := []byte(fmt.Sprintf("key-%05d", i))
		v := []byte(fmt.Sprintf("val-%05d", i))
		if err := tr.Insert(k, v); err != nil {
			t.Fatalf("Insert %d failed: %v", i, err)
		}
	}
	for i := 0; i < n; i++ {
		k := []byte(fmt.Sprintf("key-%05d", i))
		want := []byte(fmt.Sprintf("val-%05d", i))
		got, ok, err := tr.Search(k)
		if err != nil || !ok || !bytes.Equal(got, want) {
			t.Fatalf("key %d: got %q (found=%v, err=%v), want %q", i, got, ok, err, want)
		}
	}
}

func TestRangeScanOrderedAndBounded(t *testing.T) {
	tr := newTestTree(t)
	const n = 200
	for i := 0; i < n; i++ {
		k := []byte(fmt.Sprintf("k-%05d", i))
		if err := tr.Insert(k, []byte(fmt.Sprintf("%d", i))); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	results, err := tr.RangeScan([]byte("k-00010"), []byte("k-00020"))
	if err != nil {
		t.Fatalf("RangeScan failed: %v", err)
	}
	if len(results) != 11 {
		t.Fatalf("expected 11 results, got %d", len(results))
	}
	for i := 1; i < len(results); i++ {
		if bytes.Compare(results[i-1].Key, results[i].Key) >= 0 {
			t.Fatalf("results not strictly increasing at %d", i)
		}
	}
	if string(results[0].Key) != "k-00010" || string(results[len(results)-1].Key) != "k-00020" {
		t.Fatalf("unexpected bounds: first=%q last=%q", results[0].Key, results[len(results)-1].Key)
	}
}

func TestDeleteRemovesKey(t *testing.T) {
	tr := newTestTree(t)
	if err := tr.Insert([]byte("k1"), []byte("v1")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	ok, err := tr.Delete([]byte("k1"))
	if err != nil || !ok {
		t.Fatalf("Delete failed: ok=%v err=%v", ok, err)
	}
	_, found, err := tr.Search([]byte("k1"))
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if found {
		t.Fatalf("expected key gone after delete")
	}
}

func TestDeleteMissingKeyIsNoop(t *testing.T) {
	tr := newTestTree(t)
	ok, err := tr.Delete([]byte("nope"))
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if ok {
		t.Fatalf("expected no-op delete to report not found")
	}
}

func TestOpenAdoptsExistingRoot(t *testing.T) {
	tr := newTestTree(t)
	if err := tr.Insert([]byte("k1"), []byte("v1")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	reopened := Open(tr.pool, tr.RootID())
	v, ok, err := reopened.Search([]byte("k1"))
	if err != nil || !ok || !bytes.Equal(v, []byte("v1")) {
		t.Fatalf("Open did not see prior insert: v=%q ok=%v err=%v", v, ok, err)
	}
}
