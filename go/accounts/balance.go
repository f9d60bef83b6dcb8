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

	"github.com/holiman/uint256"

	"github.com/Fantom-foundation/Xenon/go/ledger"
	"github.com/Fantom-foundation/Xenon/go/xenon"
)

// Balance record layout, after the prefix: address (20), chain id (8 LE),
// nonce (8 LE), balance (32 BE).
const (
	balanceAddressOffset = prefixLen
	balanceChainOffset   = balanceAddressOffset + 20
	balanceNonceOffset   = balanceChainOffset + 8
	balanceValueOffset   = balanceNonceOffset + 8
	balanceRecordSize    = balanceValueOffset + 32
)

// BalanceRecord is the typed view of one (address, chain) pair's native
// token balance and nonce. Balance records are never deleted.
type BalanceRecord struct {
	record *ledger.Record
}

// BalanceFromRecord opens an existing balance record. When expected is
// non-nil, the stored address must match it.
func BalanceFromRecord(program xenon.RecordKey, record *ledger.Record, expected *xenon.Address) (*BalanceRecord, error) {
	if err := validateTag(program, record, TagBalance); err != nil {
		return nil, err
	}
	if len(record.Data) < balanceRecordSize {
		return nil, xenon.AccountInvalidDataError(record.Key)
	}
	view := &BalanceRecord{record: record}
	if expected != nil && view.Address() != *expected {
		return nil, fmt.Errorf("%w: balance record %v holds address %v, expected %v",
			xenon.ErrAccountInvalidData, record.Key, view.Address(), *expected)
	}
	return view, nil
}

// NewBalanceRecord initializes an unowned record as the balance record of
// the given (address, chain) pair with zero nonce and balance.
func NewBalanceRecord(program xenon.RecordKey, record *ledger.Record, address xenon.Address, chainID uint64) (*BalanceRecord, error) {
	if err := claim(program, record, balanceRecordSize); err != nil {
		return nil, err
	}
	if err := setTag(program, record, TagBalance, balanceVersion); err != nil {
		return nil, err
	}
	copy(record.Data[balanceAddressOffset:], address[:])
	binary.LittleEndian.PutUint64(record.Data[balanceChainOffset:], chainID)
	binary.LittleEndian.PutUint64(record.Data[balanceNonceOffset:], 0)
	clear(record.Data[balanceValueOffset : balanceValueOffset+32])
	return &BalanceRecord{record: record}, nil
}

// Key returns the record key backing this view.
func (b *BalanceRecord) Key() xenon.RecordKey {
	return b.record.Key
}

func (b *BalanceRecord) Address() xenon.Address {
	return xenon.Address(b.record.Data[balanceAddressOffset:balanceChainOffset])
}

func (b *BalanceRecord) ChainID() uint64 {
	return binary.LittleEndian.Uint64(b.record.Data[balanceChainOffset:])
}

func (b *BalanceRecord) Nonce() uint64 {
	return binary.LittleEndian.Uint64(b.record.Data[balanceNonceOffset:])
}

// IncrementNonce advances the nonce by one. Nonces only ever increase.
func (b *BalanceRecord) IncrementNonce() error {
	nonce := b.Nonce()
	if nonce == ^uint64(0) {
		return fmt.Errorf("%w: account %v", xenon.ErrNonceOverflow, b.Address())
	}
	binary.LittleEndian.PutUint64(b.record.Data[balanceNonceOffset:], nonce+1)
	return nil
}

func (b *BalanceRecord) Balance() *uint256.Int {
	return new(uint256.Int).SetBytes32(b.record.Data[balanceValueOffset : balanceValueOffset+32])
}

func (b *BalanceRecord) setBalance(value *uint256.Int) {
	bytes := value.Bytes32()
	copy(b.record.Data[balanceValueOffset:], bytes[:])
}

// Burn removes value from the balance. Removing more than is available is
// an error and leaves the balance unchanged.
func (b *BalanceRecord) Burn(value *uint256.Int) error {
	balance := b.Balance()
	if balance.Lt(value) {
		return xenon.InsufficientBalanceError(b.Address(), b.ChainID(), value)
	}
	b.setBalance(balance.Sub(balance, value))
	return nil
}

// Mint adds value to the balance, failing on 256-bit overflow.
func (b *BalanceRecord) Mint(value *uint256.Int) error {
	balance := b.Balance()
	if _, overflow := balance.AddOverflow(balance, value); overflow {
		return fmt.Errorf("%w: balance of %v", xenon.ErrIntegerOverflow, b.Address())
	}
	b.setBalance(balance)
	return nil
}

// Transfer moves value into target. Both records must live on the same
// chain; a transfer to self is a no-op.
func (b *BalanceRecord) Transfer(target *BalanceRecord, value *uint256.Int) error {
	if b.record.Key == target.record.Key {
		return nil
	}
	if b.ChainID() != target.ChainID() {
		return fmt.Errorf("transfer across chains: %d to %d", b.ChainID(), target.ChainID())
	}
	if err := b.Burn(value); err != nil {
		return err
	}
	return target.Mint(value)
}
