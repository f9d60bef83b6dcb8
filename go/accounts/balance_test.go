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
	"errors"
	"testing"

	"github.com/Fantom-foundation/Xenon/go/xenon"
	"github.com/holiman/uint256"
)

func newTestBalance(t *testing.T, key xenon.RecordKey, address xenon.Address, amount uint64) *BalanceRecord {
	t.Helper()
	balance, err := NewBalanceRecord(testProgram, newTestRecord(key), address, 1)
	if err != nil {
		t.Fatalf("failed to create balance record: %v", err)
	}
	if err := balance.Mint(uint256.NewInt(amount)); err != nil {
		t.Fatalf("failed to fund balance record: %v", err)
	}
	return balance
}

func TestBalanceRecord_NewRecordStartsEmpty(t *testing.T) {
	address := xenon.Address{0xaa}
	balance, err := NewBalanceRecord(testProgram, newTestRecord(xenon.RecordKey{1}), address, 7)
	if err != nil {
		t.Fatalf("failed to create balance record: %v", err)
	}
	if want, got := address, balance.Address(); want != got {
		t.Errorf("expected address %v, got %v", want, got)
	}
	if want, got := uint64(7), balance.ChainID(); want != got {
		t.Errorf("expected chain id %d, got %d", want, got)
	}
	if want, got := uint64(0), balance.Nonce(); want != got {
		t.Errorf("expected nonce %d, got %d", want, got)
	}
	if !balance.Balance().IsZero() {
		t.Errorf("expected zero balance, got %v", balance.Balance())
	}
}

func TestBalanceRecord_OpenValidatesAddress(t *testing.T) {
	address := xenon.Address{0xaa}
	balance := newTestBalance(t, xenon.RecordKey{1}, address, 0)

	if _, err := BalanceFromRecord(testProgram, balance.record, &address); err != nil {
		t.Errorf("failed to reopen balance record: %v", err)
	}
	other := xenon.Address{0xbb}
	if _, err := BalanceFromRecord(testProgram, balance.record, &other); !errors.Is(err, xenon.ErrAccountInvalidData) {
		t.Errorf("expected address mismatch to be rejected, got %v", err)
	}
}

func TestBalanceRecord_BurnMoreThanAvailableLeavesBalanceUntouched(t *testing.T) {
	balance := newTestBalance(t, xenon.RecordKey{1}, xenon.Address{0xaa}, 100)
	err := balance.Burn(uint256.NewInt(101))
	if !errors.Is(err, xenon.ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance error, got %v", err)
	}
	if want, got := uint256.NewInt(100), balance.Balance(); !want.Eq(got) {
		t.Errorf("expected balance %v, got %v", want, got)
	}
}

func TestBalanceRecord_MintDetectsOverflow(t *testing.T) {
	balance := newTestBalance(t, xenon.RecordKey{1}, xenon.Address{0xaa}, 1)
	max := new(uint256.Int).Sub(uint256.NewInt(0), uint256.NewInt(1))
	if err := balance.Mint(max); !errors.Is(err, xenon.ErrIntegerOverflow) {
		t.Errorf("expected overflow error, got %v", err)
	}
}

func TestBalanceRecord_TransferConservesValue(t *testing.T) {
	from := newTestBalance(t, xenon.RecordKey{1}, xenon.Address{0xaa}, 100)
	to := newTestBalance(t, xenon.RecordKey{2}, xenon.Address{0xbb}, 5)

	if err := from.Transfer(to, uint256.NewInt(30)); err != nil {
		t.Fatalf("transfer failed: %v", err)
	}
	if want, got := uint256.NewInt(70), from.Balance(); !want.Eq(got) {
		t.Errorf("expected source balance %v, got %v", want, got)
	}
	if want, got := uint256.NewInt(35), to.Balance(); !want.Eq(got) {
		t.Errorf("expected target balance %v, got %v", want, got)
	}
}

func TestBalanceRecord_TransferToSelfIsNoOp(t *testing.T) {
	balance := newTestBalance(t, xenon.RecordKey{1}, xenon.Address{0xaa}, 100)
	if err := balance.Transfer(balance, uint256.NewInt(100)); err != nil {
		t.Fatalf("self transfer failed: %v", err)
	}
	if want, got := uint256.NewInt(100), balance.Balance(); !want.Eq(got) {
		t.Errorf("expected balance %v, got %v", want, got)
	}
}

func TestBalanceRecord_TransferAcrossChainsIsRejected(t *testing.T) {
	from := newTestBalance(t, xenon.RecordKey{1}, xenon.Address{0xaa}, 100)
	to, err := NewBalanceRecord(testProgram, newTestRecord(xenon.RecordKey{2}), xenon.Address{0xbb}, 2)
	if err != nil {
		t.Fatalf("failed to create balance record: %v", err)
	}
	if err := from.Transfer(to, uint256.NewInt(1)); err == nil {
		t.Errorf("expected cross-chain transfer to be rejected")
	}
}

func TestBalanceRecord_NonceOnlyIncreases(t *testing.T) {
	balance := newTestBalance(t, xenon.RecordKey{1}, xenon.Address{0xaa}, 0)
	for i := 0; i < 3; i++ {
		if err := balance.IncrementNonce(); err != nil {
			t.Fatalf("failed to increment nonce: %v", err)
		}
	}
	if want, got := uint64(3), balance.Nonce(); want != got {
		t.Errorf("expected nonce %d, got %d", want, got)
	}
}

func TestBalanceRecord_NonceOverflowIsFatal(t *testing.T) {
	balance := newTestBalance(t, xenon.RecordKey{1}, xenon.Address{0xaa}, 0)
	binary.LittleEndian.PutUint64(balance.record.Data[balanceNonceOffset:], ^uint64(0))
	if err := balance.IncrementNonce(); !errors.Is(err, xenon.ErrNonceOverflow) {
		t.Errorf("expected nonce overflow error, got %v", err)
	}
}
