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
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/Fantom-foundation/Xenon/go/xenon"
)

const readerCacheSize = 1024

// levelDBReader serves records from a local LevelDB replica of the ledger,
// for example one maintained by an indexing follower.
type levelDBReader struct {
	db    *leveldb.DB
	cache *lru.Cache[xenon.RecordKey, *Record]
}

func newLevelDBReader(path string) (Reader, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open leveldb store %s: %w", path, err)
	}
	cache, err := lru.New[xenon.RecordKey, *Record](readerCacheSize)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &levelDBReader{db: db, cache: cache}, nil
}

func (r *levelDBReader) GetRecord(key xenon.RecordKey) (*Record, error) {
	if record, ok := r.cache.Get(key); ok {
		return record.Clone(), nil
	}
	value, err := r.db.Get(key[:], nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrRecordMissing, key)
	}
	if err != nil {
		return nil, err
	}
	record, err := decodeRecord(key, value)
	if err != nil {
		return nil, err
	}
	r.cache.Add(key, record)
	return record.Clone(), nil
}

func (r *levelDBReader) PutRecord(record *Record) error {
	if err := r.db.Put(record.Key[:], encodeRecord(record), nil); err != nil {
		return err
	}
	r.cache.Remove(record.Key)
	return nil
}

func (r *levelDBReader) Close() error {
	return r.db.Close()
}
