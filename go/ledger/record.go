// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package ledger models the host side of Xenon: addressable, rent-paying
// storage records, the record set handed to one invocation, deterministic
// record-key derivation, and pluggable readers for records that are fetched
// rather than mutated in place.
package ledger

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Fantom-foundation/Xenon/go/xenon"
)

// SystemOwner is the owner of records not yet claimed by any program.
var SystemOwner = xenon.RecordKey{}

var ErrRecordMissing = errors.New("record not found")

// Record is one raw storage record. The first data byte is a discriminant
// tag identifying its typed-view kind, the second its layout version; the
// remaining bytes are opaque outside the typed views in package accounts.
type Record struct {
	Key      xenon.RecordKey
	Owner    xenon.RecordKey
	Lamports uint64
	Data     []byte

	// Signer and Writable describe how the record was passed into the
	// current invocation. They are not persisted.
	Signer   bool
	Writable bool
}

// Resize grows or shrinks the record's data region, preserving its prefix.
func (r *Record) Resize(size int) {
	if size <= len(r.Data) {
		r.Data = r.Data[:size]
		return
	}
	grown := make([]byte, size)
	copy(grown, r.Data)
	r.Data = grown
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	c := *r
	c.Data = append([]byte(nil), r.Data...)
	return &c
}

const recordHeaderSize = 32 + 8

func encodeRecord(r *Record) []byte {
	buf := make([]byte, recordHeaderSize+len(r.Data))
	copy(buf[:32], r.Owner[:])
	binary.LittleEndian.PutUint64(buf[32:40], r.Lamports)
	copy(buf[recordHeaderSize:], r.Data)
	return buf
}

func decodeRecord(key xenon.RecordKey, buf []byte) (*Record, error) {
	if len(buf) < recordHeaderSize {
		return nil, fmt.Errorf("record %v: stored value too short (%d bytes)", key, len(buf))
	}
	r := &Record{Key: key}
	copy(r.Owner[:], buf[:32])
	r.Lamports = binary.LittleEndian.Uint64(buf[32:40])
	r.Data = append([]byte(nil), buf[recordHeaderSize:]...)
	return r, nil
}
