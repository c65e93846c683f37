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

package bufferpool

import (
	"path/filepath"
	"testing"

	"github.com/firefly-oss/flydb/internal/storage/page"
)

func openTestPool(t *testing.T, capacity int) (*Pool, *page.Store) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.db")
	store, err := page.Open(path)
	if err != nil {
		t.Fatalf("page.Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return New(store, capacity), store
}

func TestFetchCachesAndHits(t *testing.T) {
	pool, store := openTestPool(t, 4)
	id := store.Allocate()
	pg := page.New(id, page.TypeLeaf)
	if err := store.WritePage(pg); err != nil {
		t.Fatalf("WritePage failed: %v", err)
	}

	if _, err := pool.Fetch(id); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if _, err := pool.Fetch(id); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	hits, misses, _ := pool.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("expected 1 hit and 1 miss, got hits=%d misses=%d", hits, misses)
	}
}

func TestMarkDirtyAndFlush(t *testing.T) {
	pool, store := openTestPool(t, 4)
	id := store.Allocate()
	pg := page.New(id, page.TypeLeaf)
	if err := store.WritePage(pg); err != nil {
		t.Fatalf("WritePage failed: %v", err)
	}

	fetched, err := pool.Fetch(id)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	copy(fetched.Payload(), []byte("dirty-data"))
	pool.MarkDirty(id)

	if err := pool.FlushDirty(); err != nil {
		t.Fatalf("FlushDirty failed: %v", err)
	}

	reread, err := store.ReadPage(id)
	if err != nil {
		t.Fatalf("ReadPage failed: %v", err)
	}
	if string(reread.Payload()[:10]) != "dirty-data" {
		t.Errorf("expected flushed data on disk, got %q", reread.Payload()[:10])
	}
}

func TestEvictionWritesBackDirtyVictim(t *testing.T) {
	pool, store := openTestPool(t, 2)

	ids := make([]page.ID, 3)
	for i := range ids {
		ids[i] = store.Allocate()
		pg := page.New(ids[i], page.TypeLeaf)
		if err := store.WritePage(pg); err != nil {
			t.Fatalf("WritePage failed: %v", err)
		}
	}

	// Fill the pool, dirty the first page, then force its eviction by
	// fetching two more distinct pages.
	first, err := pool.Fetch(ids[0])
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	copy(first.Payload(), []byte("evict-me!!"))
	pool.MarkDirty(ids[0])

	if _, err := pool.Fetch(ids[1]); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if _, err := pool.Fetch(ids[2]); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	reread, err := store.ReadPage(ids[0])
	if err != nil {
		t.Fatalf("ReadPage failed: %v", err)
	}
	if string(reread.Payload()[:10]) != "evict-me!!" {
		t.Errorf("expected evicted dirty page to be written back, got %q", reread.Payload()[:10])
	}
}
