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
	"github.com/Fantom-foundation/Xenon/go/ledger"
	"github.com/Fantom-foundation/Xenon/go/xenon"
)

// Finalized state record layout, after the prefix: operator key (32),
// transaction hash (32). The offsets coincide with the leading fields of the
// state layout, so a state record finalizes in place.
const (
	finalizedOwnerOffset = prefixLen
	finalizedHashOffset  = finalizedOwnerOffset + 32
	finalizedRecordSize  = finalizedHashOffset + 32
)

// FinalizedRecord marks a transaction as completed. It blocks a replay of
// the same transaction through the same record and can be recycled into a
// holder or a state record for a different transaction.
type FinalizedRecord struct {
	record *ledger.Record
}

// FinalizedFromRecord opens an existing finalized state record.
func FinalizedFromRecord(program xenon.RecordKey, record *ledger.Record) (*FinalizedRecord, error) {
	if err := validateTag(program, record, TagStateFinalized); err != nil {
		return nil, err
	}
	if len(record.Data) < finalizedRecordSize {
		return nil, xenon.AccountInvalidDataError(record.Key)
	}
	return &FinalizedRecord{record: record}, nil
}

func (f *FinalizedRecord) Key() xenon.RecordKey {
	return f.record.Key
}

func (f *FinalizedRecord) Owner() xenon.RecordKey {
	return xenon.RecordKey(f.record.Data[finalizedOwnerOffset : finalizedOwnerOffset+32])
}

func (f *FinalizedRecord) TransactionHash() xenon.Hash {
	return xenon.Hash(f.record.Data[finalizedHashOffset : finalizedHashOffset+32])
}

// ReviveHolder converts the finalized record back into an empty holder for
// the given operator, so the record can assemble the next transaction. The
// heap is reserved the same way NewHolderRecord reserves it.
func (f *FinalizedRecord) ReviveHolder(program xenon.RecordKey, operator xenon.RecordKey, heap uint32) (*HolderRecord, error) {
	if err := setTag(program, f.record, TagHolder, holderVersion); err != nil {
		return nil, err
	}
	if need := holderPayloadOffset + int(heap); len(f.record.Data) < need {
		f.record.Resize(need)
	}
	copy(f.record.Data[holderOwnerOffset:], operator[:])
	holder := &HolderRecord{record: f.record}
	holder.Clear()
	return holder, nil
}
