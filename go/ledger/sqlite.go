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
	"database/sql"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/mattn/go-sqlite3"

	"github.com/Fantom-foundation/Xenon/go/xenon"
)

// sqliteReader serves records from a relational replica, the backend of
// choice for time-travel queries against archived ledger snapshots.
type sqliteReader struct {
	db    *sql.DB
	cache *lru.Cache[xenon.RecordKey, *Record]
}

func newSQLiteReader(path string) (Reader, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store %s: %w", path, err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS records (
		key      BLOB PRIMARY KEY,
		owner    BLOB NOT NULL,
		lamports INTEGER NOT NULL,
		data     BLOB NOT NULL
	)`); err != nil {
		db.Close()
		return nil, err
	}
	cache, err := lru.New[xenon.RecordKey, *Record](readerCacheSize)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &sqliteReader{db: db, cache: cache}, nil
}

func (r *sqliteReader) GetRecord(key xenon.RecordKey) (*Record, error) {
	if record, ok := r.cache.Get(key); ok {
		return record.Clone(), nil
	}
	record := &Record{Key: key}
	var owner, data []byte
	var lamports int64
	err := r.db.QueryRow(
		`SELECT owner, lamports, data FROM records WHERE key = ?`, key[:],
	).Scan(&owner, &lamports, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %v", ErrRecordMissing, key)
	}
	if err != nil {
		return nil, err
	}
	if len(owner) != len(record.Owner) {
		return nil, fmt.Errorf("record %v: stored owner has %d bytes", key, len(owner))
	}
	copy(record.Owner[:], owner)
	record.Lamports = uint64(lamports)
	record.Data = data
	r.cache.Add(key, record)
	return record.Clone(), nil
}

func (r *sqliteReader) PutRecord(record *Record) error {
	_, err := r.db.Exec(
		`INSERT INTO records (key, owner, lamports, data) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET owner = excluded.owner,
		 lamports = excluded.lamports, data = excluded.data`,
		record.Key[:], record.Owner[:], int64(record.Lamports), record.Data,
	)
	if err != nil {
		return err
	}
	r.cache.Remove(record.Key)
	return nil
}

func (r *sqliteReader) Close() error {
	return r.db.Close()
}
