// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package accounts

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/Fantom-foundation/Xenon/go/ledger"
	"github.com/Fantom-foundation/Xenon/go/xenon"
)

// Holder record layout, after the prefix: operator key (32), transaction
// hash (32), payload length (8 LE), payload bytes.
const (
	holderOwnerOffset      = prefixLen
	holderHashOffset       = holderOwnerOffset + 32
	holderPayloadLenOffset = holderHashOffset + 32
	holderPayloadOffset    = holderPayloadLenOffset + 8
)

// HolderRecord is the typed view of a scratch record an operator fills with
// a transaction payload too large for a single invocation's input.
type HolderRecord struct {
	record *ledger.Record
}

// HolderFromRecord opens an existing holder record owned by the given
// operator. A holder may only be read or written by the operator that
// created it.
func HolderFromRecord(program xenon.RecordKey, record *ledger.Record, operator xenon.RecordKey) (*HolderRecord, error) {
	if err := validateTag(program, record, TagHolder); err != nil {
		return nil, err
	}
	if len(record.Data) < holderPayloadOffset {
		return nil, xenon.AccountInvalidDataError(record.Key)
	}
	holder := &HolderRecord{record: record}
	if holder.payloadLen() > uint64(len(record.Data)-holderPayloadOffset) {
		return nil, xenon.AccountInvalidDataError(record.Key)
	}
	if holder.Owner() != operator {
		return nil, fmt.Errorf("%w: holder %v is owned by %v, not %v",
			xenon.ErrHolderInvalidOwner, record.Key, holder.Owner(), operator)
	}
	return holder, nil
}

// NewHolderRecord initializes an unowned record as an empty holder bound to
// the given operator. The heap reserves additional record space beyond the
// holder header; it is carried along when the holder is converted into a
// state record and serves as its persistence region.
func NewHolderRecord(program xenon.RecordKey, record *ledger.Record, operator xenon.RecordKey, heap uint32) (*HolderRecord, error) {
	if err := claim(program, record, holderPayloadOffset+int(heap)); err != nil {
		return nil, err
	}
	if err := setTag(program, record, TagHolder, holderVersion); err != nil {
		return nil, err
	}
	copy(record.Data[holderOwnerOffset:], operator[:])
	clear(record.Data[holderHashOffset:holderPayloadOffset])
	return &HolderRecord{record: record}, nil
}

func (h *HolderRecord) Key() xenon.RecordKey {
	return h.record.Key
}

func (h *HolderRecord) Owner() xenon.RecordKey {
	return xenon.RecordKey(h.record.Data[holderOwnerOffset : holderOwnerOffset+32])
}

// TransactionHash is the hash of the transaction currently being assembled.
func (h *HolderRecord) TransactionHash() xenon.Hash {
	return xenon.Hash(h.record.Data[holderHashOffset : holderHashOffset+32])
}

func (h *HolderRecord) payloadLen() uint64 {
	return binary.LittleEndian.Uint64(h.record.Data[holderPayloadLenOffset:])
}

// Payload returns the bytes written so far.
func (h *HolderRecord) Payload() []byte {
	end := holderPayloadOffset + int(h.payloadLen())
	return h.record.Data[holderPayloadOffset:end]
}

// Write places a chunk of payload at the given offset. Writing under a hash
// different from the stored one discards the previous payload and starts a
// fresh assembly for the new transaction.
func (h *HolderRecord) Write(hash xenon.Hash, offset uint64, chunk []byte) error {
	if h.TransactionHash() != hash {
		h.Clear()
		copy(h.record.Data[holderHashOffset:], hash[:])
	}
	end := offset + uint64(len(chunk))
	if end < offset || end > math.MaxUint32 {
		return fmt.Errorf("%w: holder write of %d bytes at offset %d",
			xenon.ErrIntegerOverflow, len(chunk), offset)
	}
	if need := holderPayloadOffset + int(end); need > len(h.record.Data) {
		h.record.Resize(need)
	}
	copy(h.record.Data[holderPayloadOffset+int(offset):], chunk)
	if end > h.payloadLen() {
		binary.LittleEndian.PutUint64(h.record.Data[holderPayloadLenOffset:], end)
	}
	return nil
}

// Clear drops the stored hash and payload. The record keeps its size, so a
// heap reserved at creation survives reuse.
func (h *HolderRecord) Clear() {
	clear(h.record.Data[holderHashOffset:])
}

// Delete releases the record back to the unclaimed pool. The view must not
// be used afterwards.
func (h *HolderRecord) Delete() {
	h.record.Resize(0)
	h.record.Owner = ledger.SystemOwner
}
