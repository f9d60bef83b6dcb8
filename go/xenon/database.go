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

import "github.com/holiman/uint256"

//go:generate mockgen -source database.go -destination database_mock.go -package xenon

// Database is the state contract a Machine executes against. Reads always
// reflect the latest state within the invocation, including writes made
// earlier in the same invocation. Writes may be journaled by the
// implementation and applied to the backing records at finalization.
type Database interface {
	// DefaultChainID returns the chain id assumed for transactions that do
	// not carry one.
	DefaultChainID() uint64

	Balance(address Address, chainID uint64) (*uint256.Int, error)
	Nonce(address Address, chainID uint64) (uint64, error)

	Code(address Address) ([]byte, error)
	CodeSize(address Address) (int, error)
	SetCode(address Address, chainID uint64, code []byte) error

	Storage(address Address, index *uint256.Int) (Word, error)
	SetStorage(address Address, index *uint256.Int, value Word) error

	IncrementNonce(address Address, chainID uint64) error
	Transfer(from, to Address, chainID uint64, value *uint256.Int) error
	Burn(address Address, chainID uint64, value *uint256.Int) error
}
