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

// Package page implements the fixed-size page store: the bottom layer of
// the engine, responsible only for allocating, reading, and writing whole
// 4KiB pages on the database file. It knows nothing about B+-trees, the
// WAL, or caching - that is the buffer pool's job.
package page

import (
	"encoding/binary"
	"hash/crc32"
	"io"
	"os"
	"sync"

	flyerrors "github.com/firefly-oss/flydb/internal/errors"
)

// Size is the fixed page size in bytes.
const Size = 4096

// HeaderSize is the number of bytes at the start of every page reserved
// for the page header:
//
//	[0:4)   page id (u32)
//	[4]     page type flag (u8)
//	[5]     reserved
//	[6:8)   slot count (u16) - entries stored in the payload
//	[8:10)  free-space offset (u16) - first unused payload-relative byte
//	[10:12) reserved
//	[12:16) checksum (u32) - CRC-32 (IEEE) over the payload
const HeaderSize = 16

// ID identifies a page. Page IDs are 1-based; 0 is never a valid page.
type ID uint32

// InvalidID is the sentinel for "no page".
const InvalidID ID = 0

// Type distinguishes B+-tree leaf pages from internal pages.
type Type uint8

const (
	TypeFree Type = iota
	TypeLeaf
	TypeInternal
)

// Page is one fixed-size page: a 16-byte header followed by payload bytes.
// SlotCount and FreeOffset are maintained by the layer that owns the
// payload (the B+-tree sets them to its key count and encoded length);
// the checksum is computed on every write and verified on every read.
type Page struct {
	ID         ID
	Kind       Type
	SlotCount  uint16
	FreeOffset uint16 // payload-relative; HeaderSize + FreeOffset is the file offset
	Dirty      bool
	Data       [Size]byte // includes the header at bytes [0:HeaderSize)
}

// New returns a freshly zeroed page of the given kind.
func New(id ID, kind Type) *Page {
	p := &Page{ID: id, Kind: kind}
	p.writeHeader()
	return p
}

// Payload returns the mutable region of the page following the header.
func (p *Page) Payload() []byte {
	return p.Data[HeaderSize:]
}

// checksum covers the payload only: the header describes the payload,
// and its own fields are either validated structurally (id, type) or
// derived from it (slot count, free offset).
func (p *Page) checksum() uint32 {
	return crc32.ChecksumIEEE(p.Data[HeaderSize:])
}

func (p *Page) writeHeader() {
	binary.LittleEndian.PutUint32(p.Data[0:4], uint32(p.ID))
	p.Data[4] = byte(p.Kind)
	p.Data[5] = 0
	binary.LittleEndian.PutUint16(p.Data[6:8], p.SlotCount)
	binary.LittleEndian.PutUint16(p.Data[8:10], p.FreeOffset)
	binary.LittleEndian.PutUint16(p.Data[10:12], 0)
	binary.LittleEndian.PutUint32(p.Data[12:16], p.checksum())
}

// decodeHeader reconstructs the header fields from the first 16 bytes of
// a page already read into Data, verifying the stored checksum against
// the payload.
func (p *Page) decodeHeader() error {
	p.ID = ID(binary.LittleEndian.Uint32(p.Data[0:4]))
	p.Kind = Type(p.Data[4])
	p.SlotCount = binary.LittleEndian.Uint16(p.Data[6:8])
	p.FreeOffset = binary.LittleEndian.Uint16(p.Data[8:10])

	stored := binary.LittleEndian.Uint32(p.Data[12:16])
	if computed := p.checksum(); stored != computed {
		return flyerrors.CorruptionError("page checksum mismatch")
	}
	return nil
}

// isZeroed reports whether every byte of the page is zero: the shape of
// a region the filesystem zero-filled because a later page was written
// first. Such a region has never held a page image and is not corrupt.
func (p *Page) isZeroed() bool {
	for _, b := range p.Data {
		if b != 0 {
			return false
		}
	}
	return true
}

// Store is the page-level I/O layer over a single database file.
type Store struct {
	mu     sync.Mutex
	file   *os.File
	nextID ID
}

// Open opens (creating if necessary) the database file at path and
// derives the next allocatable page ID from its current size.
func Open(path string) (*Store, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, flyerrors.IOError(0, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, flyerrors.IOError(0, err)
	}
	pageCount := info.Size() / Size
	return &Store{file: f, nextID: ID(pageCount + 1)}, nil
}

// Allocate reserves and returns the next page ID without writing it.
func (s *Store) Allocate() ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	return id
}

// PageCount reports how many pages have ever been allocated (1-based, so
// this is also the highest valid ID currently in use plus any not yet
// allocated are excluded).
func (s *Store) PageCount() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return uint32(s.nextID - 1)
}

// ReadPage reads page id from disk, reconstructing and verifying its
// header. A short read (page never written, at end of file) or an
// all-zero region (gap left by an out-of-order write further into the
// file) yields an empty page of that ID rather than an error; a
// non-empty page whose checksum disagrees with its payload is corrupt.
func (s *Store) ReadPage(id ID) (*Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := &Page{ID: id}
	off := int64(id-1) * Size
	n, err := s.file.ReadAt(p.Data[:], off)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, flyerrors.IOError(uint32(id), err)
	}
	if n < Size || p.isZeroed() {
		p.Data = [Size]byte{}
		p.ID = id
		p.Kind = TypeFree
		p.SlotCount = 0
		p.FreeOffset = 0
		p.writeHeader()
		return p, nil
	}
	if err := p.decodeHeader(); err != nil {
		return nil, flyerrors.IOError(uint32(id), err)
	}
	return p, nil
}

// WritePage stamps p's header (recomputing the checksum over the current
// payload) and writes the full 4KiB image to its slot. It does not
// fsync; FlushAll makes the writes durable.
func (s *Store) WritePage(p *Page) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.writeHeader()
	off := int64(p.ID-1) * Size
	if _, err := s.file.WriteAt(p.Data[:], off); err != nil {
		return flyerrors.IOError(uint32(p.ID), err)
	}
	p.Dirty = false
	return nil
}

// FlushAll fsyncs the underlying file, guaranteeing every WritePage call
// so far is durable.
func (s *Store) FlushAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.file.Sync(); err != nil {
		return flyerrors.IOError(0, err)
	}
	return nil
}

// Close flushes and closes the underlying file.
func (s *Store) Close() error {
	if err := s.FlushAll(); err != nil {
		s.file.Close()
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.file.Close(); err != nil {
		return flyerrors.IOError(0, err)
	}
	return nil
}
