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

	"github.com/Fantom-foundation/Xenon/go/ledger"
	"github.com/Fantom-foundation/Xenon/go/xenon"
	"github.com/holiman/uint256"
)

// TreasuryPoolSize is the number of indexed treasury records gas payments
// are spread over.
const TreasuryPoolSize = 128

// MainTreasuryIndex marks the consolidating treasury record, which is
// derived without an index seed.
const MainTreasuryIndex = ^uint32(0)

// Treasury record layout, after the prefix: pool index (4 LE), balance
// (32 BE).
const (
	treasuryIndexOffset = prefixLen
	treasuryValueOffset = treasuryIndexOffset + 4
	treasuryRecordSize  = treasuryValueOffset + 32
)

// TreasuryRecord is the typed view of one gas-collection record. Spent gas
// is settled into an indexed pool record and periodically swept into the
// main treasury.
type TreasuryRecord struct {
	record *ledger.Record
}

// TreasuryKey computes the record key of the treasury with the given index.
func TreasuryKey(program xenon.RecordKey, index uint32) xenon.RecordKey {
	if index == MainTreasuryIndex {
		key, _ := ledger.Derive(program, ledger.MainTreasurySeeds()...)
		return key
	}
	key, _ := ledger.Derive(program, ledger.TreasurySeeds(index)...)
	return key
}

// TreasuryFromRecord opens an existing treasury record, checking that its
// key matches the derivation for its stored index.
func TreasuryFromRecord(program xenon.RecordKey, record *ledger.Record) (*TreasuryRecord, error) {
	if err := validateTag(program, record, TagTreasury); err != nil {
		return nil, err
	}
	if len(record.Data) < treasuryRecordSize {
		return nil, xenon.AccountInvalidDataError(record.Key)
	}
	treasury := &TreasuryRecord{record: record}
	if want := TreasuryKey(program, treasury.Index()); record.Key != want {
		return nil, xenon.AccountInvalidKeyError(record.Key, want)
	}
	return treasury, nil
}

// NewTreasuryRecord initializes an unowned record as an empty treasury with
// the given pool index. The record's key must match the derivation for that
// index.
func NewTreasuryRecord(program xenon.RecordKey, record *ledger.Record, index uint32) (*TreasuryRecord, error) {
	if want := TreasuryKey(program, index); record.Key != want {
		return nil, xenon.AccountInvalidKeyError(record.Key, want)
	}
	if err := claim(program, record, treasuryRecordSize); err != nil {
		return nil, err
	}
	if err := setTag(program, record, TagTreasury, treasuryVersion); err != nil {
		return nil, err
	}
	binary.LittleEndian.PutUint32(record.Data[treasuryIndexOffset:], index)
	clear(record.Data[treasuryValueOffset:treasuryRecordSize])
	return &TreasuryRecord{record: record}, nil
}

func (t *TreasuryRecord) Key() xenon.RecordKey {
	return t.record.Key
}

func (t *TreasuryRecord) Index() uint32 {
	return binary.LittleEndian.Uint32(t.record.Data[treasuryIndexOffset:])
}

func (t *TreasuryRecord) Balance() *uint256.Int {
	return new(uint256.Int).SetBytes32(t.record.Data[treasuryValueOffset : treasuryValueOffset+32])
}

func (t *TreasuryRecord) setBalance(value *uint256.Int) {
	bytes := value.Bytes32()
	copy(t.record.Data[treasuryValueOffset:], bytes[:])
}

// Mint credits collected gas value to the treasury.
func (t *TreasuryRecord) Mint(value *uint256.Int) error {
	balance, overflow := new(uint256.Int).AddOverflow(t.Balance(), value)
	if overflow {
		return fmt.Errorf("%w: treasury %v balance", xenon.ErrIntegerOverflow, t.record.Key)
	}
	t.setBalance(balance)
	return nil
}

// Drain moves the full balance of this treasury into another one and
// returns the amount moved. Sweeping a treasury into itself is a no-op.
func (t *TreasuryRecord) Drain(into *TreasuryRecord) (*uint256.Int, error) {
	amount := t.Balance()
	if t.record.Key == into.record.Key {
		return uint256.NewInt(0), nil
	}
	if err := into.Mint(amount); err != nil {
		return nil, err
	}
	t.setBalance(uint256.NewInt(0))
	return amount, nil
}
