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

// Package btree implements an order-16 B+-tree over byte-string keys,
// persisted one node per page through the buffer pool, with linked leaves
// supporting forward range scans.
package btree

import (
	"bytes"

	"github.com/firefly-oss/flydb/internal/storage/bufferpool"
	"github.com/firefly-oss/flydb/internal/storage/page"
)

// Order is the maximum number of children an internal node may have. A
// node splits once it holds maxKeys (order-1) keys.
const Order = 16
const maxKeys = Order - 1

// KV is one key/value pair returned by RangeScan.
type KV struct {
	Key   []byte
	Value []byte
}

// BTree is an order-16 B+-tree rooted at a known page.
type BTree struct {
	pool *bufferpool.Pool
	root page.ID
}

// Create allocates a fresh empty leaf page and returns a tree rooted there.
func Create(pool *bufferpool.Pool) (*BTree, error) {
	id := pool.Allocate()
	n := &node{id: id, isLeaf: true}
	if err := store(pool, n); err != nil {
		return nil, err
	}
	return &BTree{pool: pool, root: id}, nil
}

// Open adopts an existing page as the tree's root.
func Open(pool *bufferpool.Pool, rootID page.ID) *BTree {
	return &BTree{pool: pool, root: rootID}
}

// RootID returns the page ID currently serving as the tree's root.
func (t *BTree) RootID() page.ID { return t.root }

func load(pool *bufferpool.Pool, id page.ID) (*node, error) {
	pg, err := pool.Fetch(id)
	if err != nil {
		return nil, err
	}
	return decode(pg)
}

func store(pool *bufferpool.Pool, n *node) error {
	kind := page.TypeInternal
	if n.isLeaf {
		kind = page.TypeLeaf
	}
	pg := page.New(n.id, kind)
	encode(n, pg)
	return pool.Put(pg)
}

// findChildIndex returns the index of the child subtree that may contain
// key: the count of keys <= key (an upper-bound search).
func findChildIndex(keys [][]byte, key []byte) int {
	lo, hi := 0, len(keys)
	for lo < hi {
		mid := (lo + hi) / 2
		if bytes.Compare(key, keys[mid]) < 0 {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}

// findKeyIndex returns the first index i with keys[i] >= key (a lower
// bound), and whether keys[i] == key exactly.
func findKeyIndex(keys [][]byte, key []byte) (int, bool) {
	lo, hi := 0, len(keys)
	for lo < hi {
		mid := (lo + hi) / 2
		if bytes.Compare(keys[mid], key) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo, lo < len(keys) && bytes.Equal(keys[lo], key)
}

func insertBytesAt(s [][]byte, idx int, v []byte) [][]byte {
	s = append(s, nil)
	copy(s[idx+1:], s[idx:])
	s[idx] = v
	return s
}

func insertIDAt(s []page.ID, idx int, v page.ID) []page.ID {
	s = append(s, 0)
	copy(s[idx+1:], s[idx:])
	s[idx] = v
	return s
}

// Insert upserts key/value, splitting full nodes proactively on the way
// down so every recursive insert lands on a non-full node.
func (t *BTree) Insert(key, value []byte) error {
	root, err := load(t.pool, t.root)
	if err != nil {
		return err
	}

	if len(root.keys) >= maxKeys {
		// Grow the tree without moving the root: the old root's contents
		// relocate to a fresh page, and the root page itself becomes the
		// new internal node above it. Open can then always adopt the same
		// page as the root (the engine pins page 1) across reopens.
		moved := &node{
			id:       t.pool.Allocate(),
			isLeaf:   root.isLeaf,
			keys:     root.keys,
			values:   root.values,
			children: root.children,
			next:     root.next,
		}
		newRoot := &node{id: t.root, isLeaf: false, children: []page.ID{moved.id}}
		if err := t.splitChild(newRoot, 0, moved); err != nil {
			return err
		}
		if err := store(t.pool, newRoot); err != nil {
			return err
		}
		root = newRoot
	}

	return t.insertNonFull(root, key, value)
}

// splitChild splits child (the parent's child at idx) in place, promoting
// a key into parent and allocating a new sibling page.
func (t *BTree) splitChild(parent *node, idx int, child *node) error {
	m := Order / 2
	newID := t.pool.Allocate()

	if child.isLeaf {
		right := &node{
			id:     newID,
			isLeaf: true,
			keys:   append([][]byte{}, child.keys[m:]...),
			values: append([][]byte{}, child.values[m:]...),
			next:   child.next,
		}
		child.keys = child.keys[:m]
		child.values = child.values[:m]
		child.next = newID

		promoted := append([]byte(nil), right.keys[0]...)
		parent.keys = insertBytesAt(parent.keys, idx, promoted)
		parent.children = insertIDAt(parent.children, idx+1, newID)

		if err := store(t.pool, child); err != nil {
			return err
		}
		return store(t.pool, right)
	}

	promoted := append([]byte(nil), child.keys[m]...)
	right := &node{
		id:       newID,
		isLeaf:   false,
		keys:     append([][]byte{}, child.keys[m+1:]...),
		children: append([]page.ID{}, child.children[m+1:]...),
	}
	child.keys = child.keys[:m]
	child.children = child.children[:m+1]

	parent.keys = insertBytesAt(parent.keys, idx, promoted)
	parent.children = insertIDAt(parent.children, idx+1, newID)

	if err := store(t.pool, child); err != nil {
		return err
	}
	return store(t.pool, right)
}

func (t *BTree) insertNonFull(n *node, key, value []byte) error {
	if n.isLeaf {
		idx, found := findKeyIndex(n.keys, key)
		if found {
			n.values[idx] = value
		} else {
			n.keys = insertBytesAt(n.keys, idx, key)
			n.values = insertBytesAt(n.values, idx, value)
		}
		return store(t.pool, n)
	}

	idx := findChildIndex(n.keys, key)
	child, err := load(t.pool, n.children[idx])
	if err != nil {
		return err
	}

	if len(child.keys) >= maxKeys {
		if err := t.splitChild(n, idx, child); err != nil {
			return err
		}
		if err := store(t.pool, n); err != nil {
			return err
		}
		if bytes.Compare(key, n.keys[idx]) >= 0 {
			idx++
		}
		child, err = load(t.pool, n.children[idx])
		if err != nil {
			return err
		}
	}

	return t.insertNonFull(child, key, value)
}

// Search returns the value for key, if present.
func (t *BTree) Search(key []byte) ([]byte, bool, error) {
	n, err := load(t.pool, t.root)
	if err != nil {
		return nil, false, err
	}
	for !n.isLeaf {
		idx := findChildIndex(n.keys, key)
		n, err = load(t.pool, n.children[idx])
		if err != nil {
			return nil, false, err
		}
	}
	idx, found := findKeyIndex(n.keys, key)
	if !found {
		return nil, false, nil
	}
	return n.values[idx], true, nil
}

// RangeScan returns every (key, value) pair with start <= key <= end, in
// non-decreasing key order, by finding the starting leaf and walking the
// next-leaf chain.
func (t *BTree) RangeScan(start, end []byte) ([]KV, error) {
	n, err := load(t.pool, t.root)
	if err != nil {
		return nil, err
	}
	for !n.isLeaf {
		idx := findChildIndex(n.keys, start)
		n, err = load(t.pool, n.children[idx])
		if err != nil {
			return nil, err
		}
	}

	var out []KV
	idx, _ := findKeyIndex(n.keys, start)
	for {
		for ; idx < len(n.keys); idx++ {
			if bytes.Compare(n.keys[idx], end) > 0 {
				return out, nil
			}
			out = append(out, KV{Key: n.keys[idx], Value: n.values[idx]})
		}
		if n.next == page.InvalidID {
			return out, nil
		}
		n, err = load(t.pool, n.next)
		if err != nil {
			return nil, err
		}
		idx = 0
	}
}

// Delete removes key's entry if present, without rebalancing. Returns
// whether a matching entry was found.
func (t *BTree) Delete(key []byte) (bool, error) {
	n, err := load(t.pool, t.root)
	if err != nil {
		return false, err
	}
	for !n.isLeaf {
		idx := findChildIndex(n.keys, key)
		n, err = load(t.pool, n.children[idx])
		if err != nil {
			return false, err
		}
	}
	idx, found := findKeyIndex(n.keys, key)
	if !found {
		return false, nil
	}
	n.keys = append(n.keys[:idx], n.keys[idx+1:]...)
	n.values = append(n.values[:idx], n.values[idx+1:]...)
	if err := store(t.pool, n); err != nil {
		return false, err
	}
	return true, nil
}
