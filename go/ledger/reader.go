// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package ledger

import (
	"fmt"
	"sync"

	"github.com/Fantom-foundation/Xenon/go/xenon"
)

// Reader provides records that must be fetched rather than mutated in
// place, for example when emulating execution against historical state.
// One implementation exists per backend; the backend is chosen once at
// construction and implementations are never mixed at runtime.
type Reader interface {
	// GetRecord fetches the record with the given key. It returns an error
	// wrapping ErrRecordMissing if the backend holds no such record; any
	// other failure is propagated unchanged to the caller.
	GetRecord(key xenon.RecordKey) (*Record, error)
	Close() error
}

// Writer is the ingest side of a reader backend, used by tooling to seed
// and maintain stores. Execution itself never writes through a Reader.
type Writer interface {
	PutRecord(record *Record) error
}

// NewReader opens the reader backend selected by name.
// Supported backends: "memory", "leveldb", and "sqlite".
func NewReader(backend, path string) (Reader, error) {
	switch backend {
	case "memory":
		return NewMemoryReader(), nil
	case "leveldb":
		return newLevelDBReader(path)
	case "sqlite":
		return newSQLiteReader(path)
	default:
		return nil, fmt.Errorf("unknown reader backend %q", backend)
	}
}

// MemoryReader is the in-memory reader backend, standing in for a live node
// that answers record queries from its current state.
type MemoryReader struct {
	mu      sync.Mutex
	records map[xenon.RecordKey]*Record
}

func NewMemoryReader() *MemoryReader {
	return &MemoryReader{records: map[xenon.RecordKey]*Record{}}
}

func (r *MemoryReader) GetRecord(key xenon.RecordKey) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[key]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrRecordMissing, key)
	}
	return record.Clone(), nil
}

func (r *MemoryReader) PutRecord(record *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.Key] = record.Clone()
	return nil
}

func (r *MemoryReader) Close() error {
	return nil
}
