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
	"fmt"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
)

// Transaction is the decoded form of an Ethereum transaction payload, as
// delivered inline in the invocation data or read from a holder record.
// Only payload shapes the engine settles in 256-bit arithmetic are kept;
// the raw bytes are retained for persistence into a state record.
type Transaction struct {
	Hash     Hash
	Nonce    uint64
	GasPrice *uint256.Int
	GasLimit *uint256.Int
	To       *Address // nil for contract creation
	Value    *uint256.Int
	Data     []byte
	ChainID  *uint64 // nil for pre-EIP-155 payloads

	raw    []byte
	signed *types.Transaction
}

// DecodeTransaction parses a legacy-RLP or typed-envelope transaction
// payload. The payload is not authorized yet; use Recover to obtain the
// signer address.
func DecodeTransaction(raw []byte) (*Transaction, error) {
	signed := new(types.Transaction)
	if err := signed.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("malformed transaction payload: %w", err)
	}

	gasPrice, overflow := uint256.FromBig(signed.GasPrice())
	if overflow {
		return nil, fmt.Errorf("%w: gas price", ErrIntegerOverflow)
	}
	value, overflow := uint256.FromBig(signed.Value())
	if overflow {
		return nil, fmt.Errorf("%w: value", ErrIntegerOverflow)
	}

	trx := &Transaction{
		Nonce:    signed.Nonce(),
		GasPrice: gasPrice,
		GasLimit: uint256.NewInt(signed.Gas()),
		Value:    value,
		Data:     signed.Data(),
		raw:      append([]byte(nil), raw...),
		signed:   signed,
	}
	copy(trx.Hash[:], signed.Hash().Bytes())

	if to := signed.To(); to != nil {
		address := Address(to.Bytes())
		trx.To = &address
	}
	if !signed.Protected() {
		return trx, nil
	}
	chainID := signed.ChainId()
	if !chainID.IsUint64() {
		return nil, fmt.Errorf("%w: chain id", ErrIntegerOverflow)
	}
	id := chainID.Uint64()
	trx.ChainID = &id
	return trx, nil
}

// Recover returns the signature-recovered origin address.
func (t *Transaction) Recover() (Address, error) {
	signer := types.LatestSignerForChainID(t.signed.ChainId())
	sender, err := types.Sender(signer, t.signed)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return Address(sender.Bytes()), nil
}

// Raw returns the encoded payload as it arrived.
func (t *Transaction) Raw() []byte {
	return t.raw
}

// ChainIDOrDefault resolves the effective chain id of the transaction.
func (t *Transaction) ChainIDOrDefault(defaultChainID uint64) uint64 {
	if t.ChainID == nil {
		return defaultChainID
	}
	return *t.ChainID
}
