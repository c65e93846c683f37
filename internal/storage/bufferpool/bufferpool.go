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

// Package bufferpool implements a bounded LRU cache of pages sitting in
// front of a page.Store, so that B+-tree traversals do not hit disk on
// every node visit. Eviction of a dirty page writes it back synchronously
// before the slot is reused.
package bufferpool

import (
	"sync"

	"github.com/firefly-oss/flydb/internal/logging"
	"github.com/firefly-oss/flydb/internal/storage/page"
)

// DefaultCapacity is the default number of cached pages.
const DefaultCapacity = 128

// frame is one LRU cache slot, sitting in a doubly-linked list ordered
// most-recently-used (head) to least-recently-used (tail).
type frame struct {
	page  *page.Page
	dirty bool
	prev  *frame
	next  *frame
}

// Pool is a bounded LRU page cache backed by a page.Store.
type Pool struct {
	mu       sync.Mutex
	store    *page.Store
	capacity int
	frames   map[page.ID]*frame
	head     *frame
	tail     *frame
	hits     int64
	misses   int64
	logger   *logging.Logger
}

// New returns a Pool of the given capacity (DefaultCapacity if capacity <= 0)
// backed by store.
func New(store *page.Store, capacity int) *Pool {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Pool{
		store:    store,
		capacity: capacity,
		frames:   make(map[page.ID]*frame, capacity),
		logger:   logging.NewLogger("bufferpool"),
	}
}

// Fetch returns the page for id, populating the cache on a miss.
func (p *Pool) Fetch(id page.ID) (*page.Page, error) {
	p.mu.Lock()
	if f, ok := p.frames[id]; ok {
		p.hits++
		p.moveToFront(f)
		pg := f.page
		p.mu.Unlock()
		return pg, nil
	}
	p.misses++
	p.mu.Unlock()

	pg, err := p.store.ReadPage(id)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if f, ok := p.frames[id]; ok {
		p.moveToFront(f)
		return f.page, nil
	}
	if err := p.makeRoomLocked(); err != nil {
		return nil, err
	}
	f := &frame{page: pg}
	p.frames[id] = f
	p.pushFront(f)
	return pg, nil
}

// Allocate reserves a fresh page ID from the underlying store.
func (p *Pool) Allocate() page.ID {
	return p.store.Allocate()
}

// Put inserts or replaces the cached page for pg.ID and marks it dirty,
// used when a layer constructs a brand new page (e.g. a B+-tree node
// created by a split) that has no prior on-disk image to Fetch first.
func (p *Pool) Put(pg *page.Page) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if f, ok := p.frames[pg.ID]; ok {
		f.page = pg
		f.dirty = true
		p.moveToFront(f)
		return nil
	}
	if err := p.makeRoomLocked(); err != nil {
		return err
	}
	f := &frame{page: pg, dirty: true}
	p.frames[pg.ID] = f
	p.pushFront(f)
	return nil
}

// MarkDirty flags id's cached page as needing write-back. The page must
// already have been Fetch'd.
func (p *Pool) MarkDirty(id page.ID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if f, ok := p.frames[id]; ok {
		f.dirty = true
	}
}

// FlushDirty writes every dirty cached page back to the store and clears
// the dirty set.
func (p *Pool) FlushDirty() error {
	p.mu.Lock()
	dirty := make([]*frame, 0)
	for _, f := range p.frames {
		if f.dirty {
			dirty = append(dirty, f)
		}
	}
	p.mu.Unlock()

	for _, f := range dirty {
		if err := p.store.WritePage(f.page); err != nil {
			return err
		}
		p.mu.Lock()
		f.dirty = false
		p.mu.Unlock()
	}
	return p.store.FlushAll()
}

// Stats reports cumulative hit/miss counts and the hit rate.
func (p *Pool) Stats() (hits, misses int64, hitRate float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := p.hits + p.misses
	if total == 0 {
		return p.hits, p.misses, 0
	}
	return p.hits, p.misses, float64(p.hits) / float64(total)
}

// Close flushes dirty pages and releases the pool's frames.
func (p *Pool) Close() error {
	if err := p.FlushDirty(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = make(map[page.ID]*frame)
	p.head, p.tail = nil, nil
	return nil
}

// makeRoomLocked evicts the least-recently-used page, writing back a
// dirty victim first, until there is room for one more frame. Caller must
// hold p.mu.
func (p *Pool) makeRoomLocked() error {
	for len(p.frames) >= p.capacity {
		victim := p.tail
		if victim == nil {
			break
		}
		if victim.dirty {
			p.mu.Unlock()
			err := p.store.WritePage(victim.page)
			p.mu.Lock()
			if err != nil {
				return err
			}
			p.logger.Debug("evicted dirty page", "page_id", victim.page.ID)
		}
		p.unlink(victim)
		delete(p.frames, victim.page.ID)
	}
	return nil
}

func (p *Pool) pushFront(f *frame) {
	f.prev, f.next = nil, p.head
	if p.head != nil {
		p.head.prev = f
	}
	p.head = f
	if p.tail == nil {
		p.tail = f
	}
}

func (p *Pool) unlink(f *frame) {
	if f.prev != nil {
		f.prev.next = f.next
	} else {
		p.head = f.next
	}
	if f.next != nil {
		f.next.prev = f.prev
	} else {
		p.tail = f.prev
	}
	f.prev, f.next = nil, nil
}

func (p *Pool) moveToFront(f *frame) {
	if p.head == f {
		return
	}
	p.unlink(f)
	p.pushFront(f)
}
