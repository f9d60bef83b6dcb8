// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package xenon

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

// Validation errors are fatal to the current invocation, never retried, and
// always reported with enough context to diagnose without replaying the
// transaction. No state is mutated before a validation check fails.
var (
	ErrAccountInvalidOwner = errors.New("record has invalid owner")
	ErrAccountInvalidTag   = errors.New("record has invalid tag")
	ErrAccountInvalidData  = errors.New("record has invalid data")
	ErrAccountInvalidKey   = errors.New("record has invalid key")
	ErrInvalidHash         = errors.New("transaction hash mismatch")
	ErrInvalidNonce        = errors.New("transaction nonce mismatch")
	ErrInvalidChainID      = errors.New("transaction chain id mismatch")
	ErrInvalidSignature    = errors.New("invalid transaction signature")
	ErrHolderInvalidOwner  = errors.New("holder owner mismatch")
)

// Resource errors are fatal and transaction-ending. Value already reserved
// is not lost: Cancel remains available to recover it.
var (
	ErrOutOfGas            = errors.New("out of gas")
	ErrIntegerOverflow     = errors.New("integer overflow")
	ErrNonceOverflow       = errors.New("nonce overflow")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

func AccountInvalidOwnerError(key RecordKey, want RecordKey) error {
	return fmt.Errorf("%w: record %v, expected owner %v", ErrAccountInvalidOwner, key, want)
}

func AccountInvalidTagError(key RecordKey, got, want byte) error {
	return fmt.Errorf("%w: record %v, tag %d, expected %d", ErrAccountInvalidTag, key, got, want)
}

func AccountInvalidDataError(key RecordKey) error {
	return fmt.Errorf("%w: record %v", ErrAccountInvalidData, key)
}

func AccountInvalidKeyError(got, want RecordKey) error {
	return fmt.Errorf("%w: record %v, expected %v", ErrAccountInvalidKey, got, want)
}

func InvalidHashError(got, want Hash) error {
	return fmt.Errorf("%w: got %v, recorded %v", ErrInvalidHash, got, want)
}

func InvalidNonceError(address Address, got, want uint64) error {
	return fmt.Errorf("%w: account %v, transaction nonce %d, account nonce %d", ErrInvalidNonce, address, got, want)
}

func InsufficientBalanceError(address Address, chainID uint64, needed *uint256.Int) error {
	return fmt.Errorf("%w: account %v, chain %d, needed %v", ErrInsufficientBalance, address, chainID, needed)
}

func OutOfGasError(limit, used *uint256.Int) error {
	return fmt.Errorf("%w: limit %v, used %v", ErrOutOfGas, limit, used)
}
