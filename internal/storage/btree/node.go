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
	"encoding/binary"

	flyerrors "github.com/firefly-oss/flydb/internal/errors"
	"github.com/firefly-oss/flydb/internal/storage/page"
)

// node is one B+-tree node, held in memory as the decoded form of a
// single page. The page header carries the node's structure (leaf vs
// internal in the type flag, key count in the slot count, encoded length
// in the free-space offset); the payload holds only the next-leaf
// pointer and the variable-length entries:
//
//	[0:4)  next-leaf page id (u32, leaves only; 0 otherwise)
//	then per key: u16 length + bytes
//	then, for leaves, per value: u16 length + bytes
//	or, for internals, (slot count + 1) child page ids (u32 each)
type node struct {
	id       page.ID
	isLeaf   bool
	keys     [][]byte
	values   [][]byte  // leaf only, parallel to keys
	children []page.ID // internal only, len(children) == len(keys)+1
	next     page.ID   // leaf only; page.InvalidID if none
}

// encode writes n into pg: entries into the payload, structure into the
// header fields (slot count, free-space offset; the page type flag is
// set by the caller constructing pg).
func encode(n *node, pg *page.Page) {
	buf := pg.Payload()
	off := 0

	binary.LittleEndian.PutUint32(buf[off:], uint32(n.next))
	off += 4

	for _, k := range n.keys {
		binary.LittleEndian.PutUint16(buf[off:], uint16(len(k)))
		off += 2
		off += copy(buf[off:], k)
	}

	if n.isLeaf {
		for _, v := range n.values {
			binary.LittleEndian.PutUint16(buf[off:], uint16(len(v)))
			off += 2
			off += copy(buf[off:], v)
		}
	} else {
		for _, c := range n.children {
			binary.LittleEndian.PutUint32(buf[off:], uint32(c))
			off += 4
		}
	}

	pg.SlotCount = uint16(len(n.keys))
	pg.FreeOffset = uint16(off)
}

// decode reconstructs a node from pg, trusting the header for the node
// kind and entry count and the payload for the entries themselves.
func decode(pg *page.Page) (*node, error) {
	var isLeaf bool
	switch pg.Kind {
	case page.TypeLeaf:
		isLeaf = true
	case page.TypeInternal:
		isLeaf = false
	case page.TypeFree:
		// A page that was allocated but never flushed before a crash
		// reads back zeroed. Its contents live in the WAL; recovery
		// re-inserts them, starting from an empty leaf.
		return &node{id: pg.ID, isLeaf: true}, nil
	default:
		return nil, flyerrors.CorruptionError("page is not a tree node")
	}

	buf := pg.Payload()
	keyCount := int(pg.SlotCount)
	off := 0

	next := page.ID(binary.LittleEndian.Uint32(buf[off:]))
	off += 4

	n := &node{id: pg.ID, isLeaf: isLeaf, next: next}
	n.keys = make([][]byte, keyCount)
	for i := 0; i < keyCount; i++ {
		klen := int(binary.LittleEndian.Uint16(buf[off:]))
		off += 2
		if off+klen > len(buf) {
			return nil, flyerrors.CorruptionError("node key overruns page")
		}
		n.keys[i] = append([]byte(nil), buf[off:off+klen]...)
		off += klen
	}

	if isLeaf {
		n.values = make([][]byte, keyCount)
		for i := 0; i < keyCount; i++ {
			vlen := int(binary.LittleEndian.Uint16(buf[off:]))
			off += 2
			if off+vlen > len(buf) {
				return nil, flyerrors.CorruptionError("node value overruns page")
			}
			n.values[i] = append([]byte(nil), buf[off:off+vlen]...)
			off += vlen
		}
	} else {
		n.children = make([]page.ID, keyCount+1)
		for i := 0; i < keyCount+1; i++ {
			n.children[i] = page.ID(binary.LittleEndian.Uint32(buf[off:]))
			off += 4
		}
	}

	if off != int(pg.FreeOffset) {
		return nil, flyerrors.CorruptionError("node length disagrees with free-space offset")
	}
	return n, nil
}
