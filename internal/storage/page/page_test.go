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

package page

import (
	"os"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAllocateStartsAtOne(t *testing.T) {
	s := openTestStore(t)
	if id := s.Allocate(); id != 1 {
		t.Errorf("expected first allocated id 1, got %d", id)
	}
	if id := s.Allocate(); id != 2 {
		t.Errorf("expected second allocated id 2, got %d", id)
	}
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	s := openTestStore(t)
	id := s.Allocate()

	p := New(id, TypeLeaf)
	copy(p.Payload(), []byte("hello page"))

	if err := s.WritePage(p); err != nil {
		t.Fatalf("WritePage failed: %v", err)
	}

	got, err := s.ReadPage(id)
	if err != nil {
		t.Fatalf("ReadPage failed: %v", err)
	}
	if got.ID != id {
		t.Errorf("expected id %d, got %d", id, got.ID)
	}
	if got.Kind != TypeLeaf {
		t.Errorf("expected kind TypeLeaf, got %v", got.Kind)
	}
	if string(got.Payload()[:10]) != "hello page" {
		t.Errorf("payload mismatch: %q", got.Payload()[:10])
	}
}

func TestReadUnwrittenPageIsEmpty(t *testing.T) {
	s := openTestStore(t)
	id := s.Allocate()

	got, err := s.ReadPage(id)
	if err != nil {
		t.Fatalf("ReadPage failed: %v", err)
	}
	for i, b := range got.Payload() {
		if b != 0 {
			t.Fatalf("expected zeroed payload, found nonzero byte at %d", i)
		}
	}
}

func TestHeaderFieldsRoundTrip(t *testing.T) {
	s := openTestStore(t)
	id := s.Allocate()

	p := New(id, TypeInternal)
	copy(p.Payload(), []byte{1, 2, 3, 4})
	p.SlotCount = 7
	p.FreeOffset = 4

	if err := s.WritePage(p); err != nil {
		t.Fatalf("WritePage failed: %v", err)
	}
	got, err := s.ReadPage(id)
	if err != nil {
		t.Fatalf("ReadPage failed: %v", err)
	}
	if got.SlotCount != 7 || got.FreeOffset != 4 {
		t.Errorf("header fields lost: slots=%d free=%d", got.SlotCount, got.FreeOffset)
	}
	if got.Kind != TypeInternal {
		t.Errorf("expected TypeInternal, got %v", got.Kind)
	}
}

func TestCorruptPayloadFailsChecksum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	id := s.Allocate()
	p := New(id, TypeLeaf)
	copy(p.Payload(), []byte("important"))
	if err := s.WritePage(p); err != nil {
		t.Fatalf("WritePage failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Flip one payload byte on disk behind the store's back.
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	if _, err := f.WriteAt([]byte{0xFF}, int64(id-1)*Size+HeaderSize); err != nil {
		t.Fatalf("WriteAt failed: %v", err)
	}
	f.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s2.Close()
	if _, err := s2.ReadPage(id); err == nil {
		t.Fatal("expected checksum mismatch on corrupted page")
	}
}

func TestZeroFilledGapReadsAsEmpty(t *testing.T) {
	s := openTestStore(t)
	s.Allocate() // page 1, never written
	gap := s.Allocate()
	later := s.Allocate()

	// Writing a later page extends the file, zero-filling the gap.
	if err := s.WritePage(New(later, TypeLeaf)); err != nil {
		t.Fatalf("WritePage failed: %v", err)
	}

	got, err := s.ReadPage(gap)
	if err != nil {
		t.Fatalf("expected zero-filled gap to read as empty, got: %v", err)
	}
	if got.Kind != TypeFree || got.SlotCount != 0 {
		t.Errorf("expected empty free page, got kind=%v slots=%d", got.Kind, got.SlotCount)
	}
}

func TestReopenPreservesAllocation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.db")
	s1, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	id1 := s1.Allocate()
	p := New(id1, TypeLeaf)
	if err := s1.WritePage(p); err != nil {
		t.Fatalf("WritePage failed: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s2.Close()
	if id2 := s2.Allocate(); id2 != id1+1 {
		t.Errorf("expected next id %d after reopen, got %d", id1+1, id2)
	}
}
