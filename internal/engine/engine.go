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

// Package engine composes the buffer pool, B+-tree, and write-ahead log
// into a transactional key/value store: begin/commit/abort, auto-commit
// shortcuts, checkpointing, and crash recovery on open.
package engine

import (
	"sync"

	flyerrors "github.com/firefly-oss/flydb/internal/errors"
	"github.com/firefly-oss/flydb/internal/logging"
	"github.com/firefly-oss/flydb/internal/storage/btree"
	"github.com/firefly-oss/flydb/internal/storage/bufferpool"
	"github.com/firefly-oss/flydb/internal/storage/page"
	"github.com/firefly-oss/flydb/internal/storage/wal"
)

// AutoTxnID is the reserved transaction id meaning "no explicit transaction".
const AutoTxnID uint64 = 0

// txnState is the terminal/active state of one explicit transaction.
type txnState int

const (
	txnActive txnState = iota
	txnCommitted
	txnAborted
)

type transaction struct {
	state    txnState
	inserted [][]byte // keys inserted under this txn, for best-effort abort rollback
}

// Engine is the single-writer transactional store: every mutation is
// logged to the WAL before it touches the B+-tree, per the write-ahead
// discipline.
type Engine struct {
	mu     sync.Mutex
	store  *page.Store
	pool   *bufferpool.Pool
	log    *wal.WAL
	tree   *btree.BTree
	nextID uint64
	txns   map[uint64]*transaction
	logger *logging.Logger
}

// Open opens (creating if necessary) the database file at dbPath and its
// companion WAL at dbPath+".wal", running crash recovery if the log is
// non-empty. bufferPoolPages <= 0 uses bufferpool.DefaultCapacity.
func Open(dbPath string, bufferPoolPages int) (*Engine, error) {
	store, err := page.Open(dbPath)
	if err != nil {
		return nil, err
	}
	w, err := wal.Open(dbPath + ".wal")
	if err != nil {
		store.Close()
		return nil, err
	}
	pool := bufferpool.New(store, bufferPoolPages)

	e := &Engine{
		store:  store,
		pool:   pool,
		log:    w,
		nextID: 1,
		txns:   make(map[uint64]*transaction),
		logger: logging.NewLogger("engine"),
	}

	if store.PageCount() > 1 {
		e.tree = btree.Open(pool, page.ID(1))
	} else {
		tr, err := btree.Create(pool)
		if err != nil {
			return nil, err
		}
		e.tree = tr
	}

	records, err := w.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) > 0 {
		if err := e.recover(records); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// recover replays the WAL: every insert/update/delete whose transaction
// committed (or is auto, txn 0) that appears after the latest
// checkpoint is re-applied to the tree, then the txn id counter is
// seeded past the highest observed id.
func (e *Engine) recover(records []*wal.Record) error {
	committed := make(map[uint64]bool)
	aborted := make(map[uint64]bool)
	lastCheckpoint := -1
	var maxTxnID uint64

	for i, r := range records {
		switch r.Type {
		case wal.RecordCommit:
			committed[r.TxnID] = true
		case wal.RecordAbort:
			aborted[r.TxnID] = true
		case wal.RecordCheckpoint:
			lastCheckpoint = i
		}
		if r.TxnID > maxTxnID {
			maxTxnID = r.TxnID
		}
	}

	replayable := func(txnID uint64) bool {
		if txnID == AutoTxnID {
			return true
		}
		// Tie-break: a txn id in both sets is treated as aborted.
		return committed[txnID] && !aborted[txnID]
	}

	for i := lastCheckpoint + 1; i < len(records); i++ {
		r := records[i]
		switch r.Type {
		case wal.RecordInsert, wal.RecordUpdate:
			if replayable(r.TxnID) {
				if err := e.tree.Insert(r.Key, r.Value); err != nil {
					return err
				}
			}
		case wal.RecordDelete:
			if replayable(r.TxnID) {
				if _, err := e.tree.Delete(r.Key); err != nil {
					return err
				}
			}
		}
	}

	e.nextID = maxTxnID + 1
	if e.nextID == AutoTxnID {
		e.nextID = 1
	}
	e.logger.Info("recovery complete", "records", len(records), "replayed_from", lastCheckpoint+1)
	return e.pool.FlushDirty()
}

// Begin starts a new explicit transaction and returns its id.
func (e *Engine) Begin() (uint64, error) {
	e.mu.Lock()
	id := e.nextID
	e.nextID++
	e.txns[id] = &transaction{state: txnActive}
	e.mu.Unlock()

	if _, err := e.log.LogBegin(id); err != nil {
		return 0, err
	}
	if err := e.log.Flush(); err != nil {
		return 0, err
	}
	return id, nil
}

func (e *Engine) activeTxn(id uint64) (*transaction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.txns[id]
	if !ok {
		return nil, flyerrors.UnknownTransaction(id)
	}
	if t.state != txnActive {
		state := "committed"
		if t.state == txnAborted {
			state = "aborted"
		}
		return nil, flyerrors.TransactionStateError(id, state)
	}
	return t, nil
}

// Commit finalizes txnID: writes and flushes a commit record, flushes
// dirty pages, and forgets its rollback bookkeeping.
func (e *Engine) Commit(txnID uint64) error {
	if _, err := e.activeTxn(txnID); err != nil {
		return err
	}
	if _, err := e.log.LogCommit(txnID); err != nil {
		return err
	}
	if err := e.log.Flush(); err != nil {
		return err
	}
	if err := e.pool.FlushDirty(); err != nil {
		return err
	}
	e.mu.Lock()
	e.txns[txnID].state = txnCommitted
	delete(e.txns, txnID)
	e.mu.Unlock()
	return nil
}

// Abort rolls back txnID's recorded inserts (best-effort; updates and
// deletes are not rolled back - no before-images are logged), then
// writes a terminal abort record.
func (e *Engine) Abort(txnID uint64) error {
	t, err := e.activeTxn(txnID)
	if err != nil {
		return err
	}
	for _, k := range t.inserted {
		if _, delErr := e.tree.Delete(k); delErr != nil {
			return delErr
		}
	}
	if _, err := e.log.LogAbort(txnID); err != nil {
		return err
	}
	if err := e.log.Flush(); err != nil {
		return err
	}
	if err := e.pool.FlushDirty(); err != nil {
		return err
	}
	e.mu.Lock()
	e.txns[txnID].state = txnAborted
	delete(e.txns, txnID)
	e.mu.Unlock()
	return nil
}

// Insert is the auto-transaction insert/upsert shortcut: begin and commit
// are implicit around the single mutation.
func (e *Engine) Insert(key, value []byte) error {
	if _, err := e.log.LogInsert(AutoTxnID, uint32(e.tree.RootID()), key, value); err != nil {
		return err
	}
	if err := e.log.Flush(); err != nil {
		return err
	}
	return e.tree.Insert(key, value)
}

// InsertTxn inserts/upserts key/value under an already-active explicit
// transaction, recording the key for possible abort rollback.
func (e *Engine) InsertTxn(txnID uint64, key, value []byte) error {
	t, err := e.activeTxn(txnID)
	if err != nil {
		return err
	}
	if _, err := e.log.LogInsert(txnID, uint32(e.tree.RootID()), key, value); err != nil {
		return err
	}
	if err := e.log.Flush(); err != nil {
		return err
	}
	if err := e.tree.Insert(key, value); err != nil {
		return err
	}
	e.mu.Lock()
	t.inserted = append(t.inserted, append([]byte(nil), key...))
	e.mu.Unlock()
	return nil
}

// Delete is the auto-transaction delete shortcut.
func (e *Engine) Delete(key []byte) error {
	if _, err := e.log.LogDelete(AutoTxnID, uint32(e.tree.RootID()), key); err != nil {
		return err
	}
	if err := e.log.Flush(); err != nil {
		return err
	}
	ok, err := e.tree.Delete(key)
	if err != nil {
		return err
	}
	if !ok {
		return flyerrors.NotFound(key)
	}
	return nil
}

// DeleteTxn deletes key under an already-active explicit transaction.
// Deletes are not tracked for abort rollback.
func (e *Engine) DeleteTxn(txnID uint64, key []byte) error {
	if _, err := e.activeTxn(txnID); err != nil {
		return err
	}
	if _, err := e.log.LogDelete(txnID, uint32(e.tree.RootID()), key); err != nil {
		return err
	}
	if err := e.log.Flush(); err != nil {
		return err
	}
	ok, err := e.tree.Delete(key)
	if err != nil {
		return err
	}
	if !ok {
		return flyerrors.NotFound(key)
	}
	return nil
}

// Get performs a direct B+-tree read; it does not interact with the log.
func (e *Engine) Get(key []byte) ([]byte, bool, error) {
	return e.tree.Search(key)
}

// RangeScan performs a direct forward B+-tree range scan.
func (e *Engine) RangeScan(start, end []byte) ([]btree.KV, error) {
	return e.tree.RangeScan(start, end)
}

// Checkpoint writes a checkpoint record, flushes dirty pages and the log,
// then truncates the log.
func (e *Engine) Checkpoint() error {
	if _, err := e.log.LogCheckpoint(); err != nil {
		return err
	}
	if err := e.pool.FlushDirty(); err != nil {
		return err
	}
	if err := e.log.Flush(); err != nil {
		return err
	}
	return e.log.Truncate()
}

// BufferPoolStats exposes cache hit-rate counters for observability.
func (e *Engine) BufferPoolStats() (hits, misses int64, hitRate float64) {
	return e.pool.Stats()
}

// Close flushes and releases the underlying buffer pool, WAL, and page
// store.
func (e *Engine) Close() error {
	if err := e.pool.Close(); err != nil {
		return err
	}
	if err := e.log.Close(); err != nil {
		return err
	}
	return e.store.Close()
}
