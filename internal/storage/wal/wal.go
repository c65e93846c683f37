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

// Package wal implements the write-ahead log: an append-only, byte-exact
// record stream that gives the engine atomicity and crash recovery. The
// wire format is fixed (see RecordType and marshal/unmarshal below) and is
// never touched by the compression layer used elsewhere for exports.
package wal

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"
	"sync"

	flyerrors "github.com/firefly-oss/flydb/internal/errors"
	"github.com/firefly-oss/flydb/internal/logging"
)

// RecordType is the wire-format type byte.
type RecordType uint8

const (
	RecordInsert     RecordType = 1
	RecordUpdate     RecordType = 2
	RecordDelete     RecordType = 3
	RecordCheckpoint RecordType = 4
	RecordBegin      RecordType = 5
	RecordCommit     RecordType = 6
	RecordAbort      RecordType = 7
)

func (t RecordType) String() string {
	switch t {
	case RecordInsert:
		return "INSERT"
	case RecordUpdate:
		return "UPDATE"
	case RecordDelete:
		return "DELETE"
	case RecordCheckpoint:
		return "CHECKPOINT"
	case RecordBegin:
		return "BEGIN"
	case RecordCommit:
		return "COMMIT"
	case RecordAbort:
		return "ABORT"
	default:
		return "UNKNOWN"
	}
}

// Record is one WAL entry, matching the on-disk layout exactly:
//
//	type u8, lsn u64, txn_id u64, page_id u32,
//	key_len u16 + key, value_len u16 + value, checksum u32
type Record struct {
	Type     RecordType
	LSN      uint64
	TxnID    uint64
	PageID   uint32
	Key      []byte
	Value    []byte
	Checksum uint32
}

func fold64(v uint64) uint32 {
	return uint32(v) ^ uint32(v>>32)
}

// computeChecksum is the bytewise XOR of type, lsn, txn_id, page_id (each
// XOR-folded to u32), and every byte of key and value.
func computeChecksum(r *Record) uint32 {
	sum := uint32(r.Type) ^ fold64(r.LSN) ^ fold64(r.TxnID) ^ r.PageID
	for _, b := range r.Key {
		sum ^= uint32(b)
	}
	for _, b := range r.Value {
		sum ^= uint32(b)
	}
	return sum
}

func (r *Record) marshal() []byte {
	buf := make([]byte, 1+8+8+4+2+len(r.Key)+2+len(r.Value)+4)
	off := 0
	buf[off] = byte(r.Type)
	off++
	binary.LittleEndian.PutUint64(buf[off:], r.LSN)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], r.TxnID)
	off += 8
	binary.LittleEndian.PutUint32(buf[off:], r.PageID)
	off += 4
	binary.LittleEndian.PutUint16(buf[off:], uint16(len(r.Key)))
	off += 2
	off += copy(buf[off:], r.Key)
	binary.LittleEndian.PutUint16(buf[off:], uint16(len(r.Value)))
	off += 2
	off += copy(buf[off:], r.Value)
	binary.LittleEndian.PutUint32(buf[off:], r.Checksum)
	return buf
}

// readRecord reads one record from r, or io.EOF if the stream ends cleanly
// at a record boundary.
func readRecord(r io.Reader) (*Record, error) {
	var fixed [1 + 8 + 8 + 4]byte
	if _, err := io.ReadFull(r, fixed[:]); err != nil {
		return nil, err
	}
	rec := &Record{
		Type:   RecordType(fixed[0]),
		LSN:    binary.LittleEndian.Uint64(fixed[1:9]),
		TxnID:  binary.LittleEndian.Uint64(fixed[9:17]),
		PageID: binary.LittleEndian.Uint32(fixed[17:21]),
	}

	var klenBuf [2]byte
	if _, err := io.ReadFull(r, klenBuf[:]); err != nil {
		return nil, io.ErrUnexpectedEOF
	}
	klen := binary.LittleEndian.Uint16(klenBuf[:])
	key := make([]byte, klen)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, io.ErrUnexpectedEOF
	}
	rec.Key = key

	var vlenBuf [2]byte
	if _, err := io.ReadFull(r, vlenBuf[:]); err != nil {
		return nil, io.ErrUnexpectedEOF
	}
	vlen := binary.LittleEndian.Uint16(vlenBuf[:])
	value := make([]byte, vlen)
	if _, err := io.ReadFull(r, value); err != nil {
		return nil, io.ErrUnexpectedEOF
	}
	rec.Value = value

	var csumBuf [4]byte
	if _, err := io.ReadFull(r, csumBuf[:]); err != nil {
		return nil, io.ErrUnexpectedEOF
	}
	rec.Checksum = binary.LittleEndian.Uint32(csumBuf[:])
	return rec, nil
}

// WAL is the append-only log file.
type WAL struct {
	mu      sync.Mutex
	file    *os.File
	path    string
	nextLSN uint64
	logger  *logging.Logger
}

// Open opens (creating if necessary) the log file at path, scanning any
// existing well-formed prefix to seed the next LSN.
func Open(path string) (*WAL, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, flyerrors.IOError(0, err)
	}
	w := &WAL{file: f, path: path, nextLSN: 1, logger: logging.NewLogger("wal")}

	records, err := w.readAllLocked()
	if err != nil {
		f.Close()
		return nil, err
	}
	var maxLSN uint64
	for _, r := range records {
		if r.LSN > maxLSN {
			maxLSN = r.LSN
		}
	}
	if maxLSN > 0 {
		w.nextLSN = maxLSN + 1
	}
	return w, nil
}

// append assigns the next LSN, computes the checksum, and writes the
// record. It does not itself fsync - call Flush for durability.
func (w *WAL) append(rec *Record) (uint64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	rec.LSN = w.nextLSN
	w.nextLSN++
	rec.Checksum = computeChecksum(rec)

	if _, err := w.file.Write(rec.marshal()); err != nil {
		return 0, flyerrors.IOError(rec.PageID, err)
	}
	return rec.LSN, nil
}

func (w *WAL) LogInsert(txnID uint64, pageID uint32, key, value []byte) (uint64, error) {
	return w.append(&Record{Type: RecordInsert, TxnID: txnID, PageID: pageID, Key: key, Value: value})
}

func (w *WAL) LogUpdate(txnID uint64, pageID uint32, key, value []byte) (uint64, error) {
	return w.append(&Record{Type: RecordUpdate, TxnID: txnID, PageID: pageID, Key: key, Value: value})
}

func (w *WAL) LogDelete(txnID uint64, pageID uint32, key []byte) (uint64, error) {
	return w.append(&Record{Type: RecordDelete, TxnID: txnID, PageID: pageID, Key: key})
}

func (w *WAL) LogBegin(txnID uint64) (uint64, error) {
	return w.append(&Record{Type: RecordBegin, TxnID: txnID})
}

func (w *WAL) LogCommit(txnID uint64) (uint64, error) {
	return w.append(&Record{Type: RecordCommit, TxnID: txnID})
}

func (w *WAL) LogAbort(txnID uint64) (uint64, error) {
	return w.append(&Record{Type: RecordAbort, TxnID: txnID})
}

func (w *WAL) LogCheckpoint() (uint64, error) {
	return w.append(&Record{Type: RecordCheckpoint})
}

// Flush forces the OS buffer for the log file to stable storage.
func (w *WAL) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.file.Sync(); err != nil {
		return flyerrors.IOError(0, err)
	}
	return nil
}

// ReadAll returns every well-formed record in file order, stopping silently
// at the first checksum failure or truncated tail (treated as the durable
// frontier, never surfaced as an error).
func (w *WAL) ReadAll() ([]*Record, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.readAllLocked()
}

func (w *WAL) readAllLocked() ([]*Record, error) {
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return nil, flyerrors.IOError(0, err)
	}
	br := bufio.NewReader(w.file)

	var records []*Record
	var offset int64
	truncated := false
	for {
		rec, err := readRecord(br)
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			if err == io.ErrUnexpectedEOF {
				truncated = true
			}
			break
		}
		if err != nil {
			return nil, flyerrors.IOError(0, err)
		}
		if computeChecksum(rec) != rec.Checksum {
			w.logger.Warn("checksum mismatch, truncating recovery scan", "lsn", rec.LSN)
			truncated = true
			break
		}
		records = append(records, rec)
		offset += int64(len(rec.marshal()))
	}

	// A corrupt or partial trailing record must not linger in the file: if
	// it did, every future open would hit it first and silently discard
	// every record appended after this recovery, not just the bad one.
	if truncated {
		if err := w.file.Truncate(offset); err != nil {
			return nil, flyerrors.IOError(0, err)
		}
	}
	if _, err := w.file.Seek(offset, io.SeekStart); err != nil {
		return nil, flyerrors.IOError(0, err)
	}
	return records, nil
}

// Truncate empties the log file, called after a successful checkpoint. The
// in-memory LSN counter is left untouched - LSNs remain monotonic across
// the file's lifetime.
func (w *WAL) Truncate() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.file.Truncate(0); err != nil {
		return flyerrors.IOError(0, err)
	}
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return flyerrors.IOError(0, err)
	}
	return nil
}

// Close flushes and closes the log file.
func (w *WAL) Close() error {
	if err := w.Flush(); err != nil {
		w.file.Close()
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.file.Close(); err != nil {
		return flyerrors.IOError(0, err)
	}
	return nil
}

// Path returns the log file path, useful for diagnostics.
func (w *WAL) Path() string { return w.path }
