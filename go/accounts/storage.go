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
	"errors"
	"fmt"

	"github.com/Fantom-foundation/Xenon/go/ledger"
	"github.com/Fantom-foundation/Xenon/go/xenon"
	"github.com/holiman/uint256"
)

// Storage is the single point of contact between an interpreter backend and
// the typed record views. It owns no state of its own: every call routes a
// key derivation through the cache, re-opens the record's current bytes and
// re-validates them, so reads always observe writes made earlier in the
// same invocation.
type Storage struct {
	program xenon.RecordKey
	records *ledger.RecordSet
	keys    *KeysCache
}

func NewStorage(program xenon.RecordKey, records *ledger.RecordSet) *Storage {
	return &Storage{
		program: program,
		records: records,
		keys:    NewKeysCache(program),
	}
}

func (s *Storage) Program() xenon.RecordKey {
	return s.program
}

func (s *Storage) Records() *ledger.RecordSet {
	return s.records
}

func (s *Storage) Keys() *KeysCache {
	return s.keys
}

// open fetches a record and reports whether it carries an initialized view.
// Missing, unclaimed and empty-tagged records all read as uninitialized;
// only genuinely broken records produce an error.
func (s *Storage) open(key xenon.RecordKey) (*ledger.Record, bool, error) {
	record, err := s.records.Get(key)
	if errors.Is(err, ledger.ErrRecordMissing) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if record.Owner == ledger.SystemOwner {
		return record, false, nil
	}
	tag, err := Tag(s.program, record)
	if err != nil {
		return nil, false, err
	}
	if tag == TagEmpty {
		return record, false, nil
	}
	return record, true, nil
}

// OpenBalance returns the balance record of an (address, chain) pair, or
// nil when no such record exists yet.
func (s *Storage) OpenBalance(address xenon.Address, chainID uint64) (*BalanceRecord, error) {
	record, initialized, err := s.open(s.keys.BalanceKey(address, chainID))
	if err != nil || !initialized {
		return nil, err
	}
	return BalanceFromRecord(s.program, record, &address)
}

// CreateBalance initializes the balance record of an (address, chain) pair.
// The unclaimed record must have been provided to the invocation.
func (s *Storage) CreateBalance(address xenon.Address, chainID uint64) (*BalanceRecord, error) {
	record, err := s.records.Get(s.keys.BalanceKey(address, chainID))
	if err != nil {
		return nil, err
	}
	return NewBalanceRecord(s.program, record, address, chainID)
}

// EnsureBalance opens the balance record of an (address, chain) pair,
// creating it when absent.
func (s *Storage) EnsureBalance(address xenon.Address, chainID uint64) (*BalanceRecord, error) {
	balance, err := s.OpenBalance(address, chainID)
	if err != nil || balance != nil {
		return balance, err
	}
	return s.CreateBalance(address, chainID)
}

// Balance reads an account's balance; absent records read as zero.
func (s *Storage) Balance(address xenon.Address, chainID uint64) (*uint256.Int, error) {
	balance, err := s.OpenBalance(address, chainID)
	if err != nil || balance == nil {
		return uint256.NewInt(0), err
	}
	return balance.Balance(), nil
}

// Nonce reads an account's nonce; absent records read as zero.
func (s *Storage) Nonce(address xenon.Address, chainID uint64) (uint64, error) {
	balance, err := s.OpenBalance(address, chainID)
	if err != nil || balance == nil {
		return 0, err
	}
	return balance.Nonce(), nil
}

// OpenContract returns the contract record of an address, or nil when the
// address has no deployed contract.
func (s *Storage) OpenContract(address xenon.Address) (*ContractRecord, error) {
	record, initialized, err := s.open(s.keys.ContractKey(address))
	if err != nil || !initialized {
		return nil, err
	}
	return ContractFromRecord(s.program, record)
}

// CreateContract initializes the contract record of an address with the
// given code. The unclaimed record must have been provided to the
// invocation.
func (s *Storage) CreateContract(address xenon.Address, chainID uint64, code []byte) (*ContractRecord, error) {
	record, err := s.records.Get(s.keys.ContractKey(address))
	if err != nil {
		return nil, err
	}
	return NewContractRecord(s.program, record, chainID, code)
}

// Code reads an address's contract code; addresses without a contract read
// as empty.
func (s *Storage) Code(address xenon.Address) ([]byte, error) {
	contract, err := s.OpenContract(address)
	if err != nil || contract == nil {
		return nil, err
	}
	return contract.Code(), nil
}

// cellBucket splits a storage index into its bucket base index and the slot
// within the bucket.
func cellBucket(index *uint256.Int) (xenon.Word, int) {
	bucket := xenon.Word(index.Bytes32())
	slot := int(bucket[31])
	bucket[31] = 0
	return bucket, slot
}

// StorageValue reads one storage value of a contract. Indices below the
// inline capacity come from the contract record itself; higher indices come
// from overflow cells. Absent contracts, absent cells and cells stamped with
// an outdated generation all read as zero.
func (s *Storage) StorageValue(address xenon.Address, index *uint256.Int) (xenon.Word, error) {
	contract, err := s.OpenContract(address)
	if err != nil || contract == nil {
		return xenon.Word{}, err
	}
	if index.LtUint64(InlineStorageSlots) {
		return contract.StorageValue(int(index.Uint64())), nil
	}
	bucket, slot := cellBucket(index)
	record, initialized, err := s.open(s.keys.CellKey(address, bucket))
	if err != nil || !initialized {
		return xenon.Word{}, err
	}
	cell, err := CellFromRecord(s.program, record)
	if err != nil {
		return xenon.Word{}, err
	}
	if cell.Generation() != contract.Generation() {
		return xenon.Word{}, nil
	}
	return cell.Value(slot), nil
}

// SetStorageValue writes one storage value of a contract, materializing the
// overflow cell on first write to an out-of-range index and restamping a
// stale cell before reuse.
func (s *Storage) SetStorageValue(address xenon.Address, index *uint256.Int, value xenon.Word) error {
	contract, err := s.OpenContract(address)
	if err != nil {
		return err
	}
	if contract == nil {
		return fmt.Errorf("%w: no contract record for %v", ledger.ErrRecordMissing, address)
	}
	if index.LtUint64(InlineStorageSlots) {
		contract.SetStorageValue(int(index.Uint64()), value)
		return nil
	}
	bucket, slot := cellBucket(index)
	record, initialized, err := s.open(s.keys.CellKey(address, bucket))
	if err != nil {
		return err
	}
	var cell *StorageCell
	if !initialized {
		if record == nil {
			record, err = s.records.Get(s.keys.CellKey(address, bucket))
			if err != nil {
				return err
			}
		}
		cell, err = NewStorageCell(s.program, record, bucket, contract.Generation())
	} else {
		cell, err = CellFromRecord(s.program, record)
	}
	if err != nil {
		return err
	}
	if cell.Generation() != contract.Generation() {
		cell.Restamp(contract.Generation())
	}
	cell.SetValue(slot, value)
	return nil
}
