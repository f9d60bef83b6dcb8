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

type addressChain struct {
	address xenon.Address
	chainID uint64
}

type addressBucket struct {
	address xenon.Address
	bucket  xenon.Word
}

// KeysCache memoizes record-key derivations for the duration of one
// invocation. The bump-seed search is the dominant cost of a derivation, so
// each key is derived at most once.
type KeysCache struct {
	program   xenon.RecordKey
	contracts map[xenon.Address]xenon.RecordKey
	balances  map[addressChain]xenon.RecordKey
	cells     map[addressBucket]xenon.RecordKey
}

func NewKeysCache(program xenon.RecordKey) *KeysCache {
	return &KeysCache{
		program:   program,
		contracts: map[xenon.Address]xenon.RecordKey{},
		balances:  map[addressChain]xenon.RecordKey{},
		cells:     map[addressBucket]xenon.RecordKey{},
	}
}

// ContractKey returns the record key of the contract record for an address.
func (k *KeysCache) ContractKey(address xenon.Address) xenon.RecordKey {
	if key, found := k.contracts[address]; found {
		return key
	}
	key, _ := ledger.Derive(k.program, ledger.ContractSeeds(address)...)
	k.contracts[address] = key
	return key
}

// BalanceKey returns the record key of the balance record for an (address,
// chain) pair.
func (k *KeysCache) BalanceKey(address xenon.Address, chainID uint64) xenon.RecordKey {
	at := addressChain{address, chainID}
	if key, found := k.balances[at]; found {
		return key
	}
	key, _ := ledger.Derive(k.program, ledger.BalanceSeeds(address, chainID)...)
	k.balances[at] = key
	return key
}

// CellKey returns the record key of the overflow storage bucket of a
// contract, deriving the contract key first when needed.
func (k *KeysCache) CellKey(address xenon.Address, bucket xenon.Word) xenon.RecordKey {
	at := addressBucket{address, bucket}
	if key, found := k.cells[at]; found {
		return key
	}
	key := ledger.DeriveStorageCell(k.program, k.ContractKey(address), bucket)
	k.cells[at] = key
	return key
}
