// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package tracing

import (
	"github.com/holiman/uint256"

	"github.com/Fantom-foundation/Xenon/go/xenon"
)

// StorageSlot identifies one storage value of one account.
type StorageSlot struct {
	Address xenon.Address
	Index   xenon.Word
}

// Account identifies one balance of one account on one chain.
type Account struct {
	Address xenon.Address
	ChainID uint64
}

// StateDiffListener collects the final written value of every storage slot
// and balance a transaction touched. Later writes to the same location
// overwrite earlier ones, so after the transaction the maps hold its net
// effect.
type StateDiffListener struct {
	storage  map[StorageSlot]xenon.Word
	balances map[Account]*uint256.Int
	steps    uint64
}

func NewStateDiffListener() *StateDiffListener {
	return &StateDiffListener{
		storage:  map[StorageSlot]xenon.Word{},
		balances: map[Account]*uint256.Int{},
	}
}

func (l *StateDiffListener) OnTransactionStart(xenon.Hash, xenon.Address) {}

func (l *StateDiffListener) OnSteps(executed uint64) {
	l.steps += executed
}

func (l *StateDiffListener) OnStorageWrite(address xenon.Address, index *uint256.Int, value xenon.Word) {
	l.storage[StorageSlot{address, xenon.Word(index.Bytes32())}] = value
}

func (l *StateDiffListener) OnBalanceChange(address xenon.Address, chainID uint64, _, next *uint256.Int) {
	l.balances[Account{address, chainID}] = next.Clone()
}

func (l *StateDiffListener) OnTransactionEnd(xenon.Hash, xenon.ExitStatus, *uint256.Int) {}

// StorageDiff returns the final value written to each touched slot.
func (l *StateDiffListener) StorageDiff() map[StorageSlot]xenon.Word {
	return l.storage
}

// BalanceDiff returns the final balance of each touched account.
func (l *StateDiffListener) BalanceDiff() map[Account]*uint256.Int {
	return l.balances
}

// Steps returns the total number of interpreter steps observed.
func (l *StateDiffListener) Steps() uint64 {
	return l.steps
}

// PrestateListener collects the first observed prior value of every balance
// a transaction touched, and marks every storage slot it wrote. Together
// with a StateDiffListener this is enough to replay or revert the
// transaction's effect offline.
type PrestateListener struct {
	balances map[Account]*uint256.Int
	touched  map[StorageSlot]bool
}

func NewPrestateListener() *PrestateListener {
	return &PrestateListener{
		balances: map[Account]*uint256.Int{},
		touched:  map[StorageSlot]bool{},
	}
}

func (l *PrestateListener) OnTransactionStart(xenon.Hash, xenon.Address) {}
func (l *PrestateListener) OnSteps(uint64)                               {}

func (l *PrestateListener) OnStorageWrite(address xenon.Address, index *uint256.Int, _ xenon.Word) {
	l.touched[StorageSlot{address, xenon.Word(index.Bytes32())}] = true
}

func (l *PrestateListener) OnBalanceChange(address xenon.Address, chainID uint64, prev, _ *uint256.Int) {
	at := Account{address, chainID}
	if _, seen := l.balances[at]; !seen {
		l.balances[at] = prev.Clone()
	}
}

func (l *PrestateListener) OnTransactionEnd(xenon.Hash, xenon.ExitStatus, *uint256.Int) {}

// Balances returns each touched account's balance before the transaction.
func (l *PrestateListener) Balances() map[Account]*uint256.Int {
	return l.balances
}

// TouchedSlots returns the storage slots the transaction wrote.
func (l *PrestateListener) TouchedSlots() map[StorageSlot]bool {
	return l.touched
}
