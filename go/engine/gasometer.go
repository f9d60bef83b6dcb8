// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package engine

import (
	"fmt"

	"github.com/Fantom-foundation/Xenon/go/xenon"
	"github.com/holiman/uint256"
)

// Host-side overhead charged in gas units on top of the machine's own
// consumption.
const (
	// BaseInvocationGas is the flat host overhead charged once per logical
	// transaction, independent of how many invocations it spans.
	BaseInvocationGas = 5_000

	// HolderWriteGasPerChunk is charged per started 32-byte chunk of the
	// transaction payload staged for execution.
	HolderWriteGasPerChunk = 8

	// TreasuryContributionGas is the flat contribution charged per
	// invocation that settles into a treasury record.
	TreasuryContributionGas = 5_000

	// CancelGas is the fixed fee retained by the treasury when an in-flight
	// transaction is cancelled.
	CancelGas = 21_000
)

// OverheadGas is the flat startup cost of a transaction with the given
// payload size: the base invocation overhead plus the staging cost of the
// payload. It is identical no matter how many invocations the transaction
// ends up spanning.
func OverheadGas(payloadLen int) uint64 {
	return BaseInvocationGas + HolderWriteGasPerChunk*uint64((payloadLen+31)/32)
}

// Gasometer accumulates the gas consumed by one logical transaction and
// converts it to native value at settlement. All quantities are unsigned
// 256-bit; any wrap-around is a fatal error, never saturation.
type Gasometer struct {
	price *uint256.Int // native value per gas unit
	limit *uint256.Int // declared gas limit
	used  *uint256.Int
}

// NewGasometer resumes gas accounting at the given prior consumption; a
// fresh transaction starts at zero.
func NewGasometer(limit, price, used *uint256.Int) *Gasometer {
	return &Gasometer{
		price: price.Clone(),
		limit: limit.Clone(),
		used:  used.Clone(),
	}
}

// Reserve computes the value burned up front at Begin: the full declared
// gas limit at the declared price.
func Reserve(limit, price *uint256.Int) (*uint256.Int, error) {
	reserved, overflow := new(uint256.Int).MulOverflow(limit, price)
	if overflow {
		return nil, fmt.Errorf("%w: gas reservation %v * %v", xenon.ErrIntegerOverflow, limit, price)
	}
	return reserved, nil
}

// Consume charges gas units against the limit. Exceeding the limit is a
// fatal, transaction-ending condition.
func (g *Gasometer) Consume(gas *uint256.Int) error {
	used, overflow := new(uint256.Int).AddOverflow(g.used, gas)
	if overflow {
		return fmt.Errorf("%w: gas counter", xenon.ErrIntegerOverflow)
	}
	if used.Gt(g.limit) {
		return xenon.OutOfGasError(g.limit, used)
	}
	g.used = used
	return nil
}

// ConsumeUnits charges a fixed overhead expressed in plain gas units.
func (g *Gasometer) ConsumeUnits(gas uint64) error {
	return g.Consume(uint256.NewInt(gas))
}

// Used returns the cumulative gas consumed so far.
func (g *Gasometer) Used() *uint256.Int {
	return g.used.Clone()
}

// Settle splits the reserved value into the portion owed to the treasury
// and the portion refunded to the origin. The two always sum to the exact
// reservation, so no value is created or destroyed.
func (g *Gasometer) Settle() (toTreasury, toRefund *uint256.Int, err error) {
	reserved, err := Reserve(g.limit, g.price)
	if err != nil {
		return nil, nil, err
	}
	spent, overflow := new(uint256.Int).MulOverflow(g.used, g.price)
	if overflow {
		return nil, nil, fmt.Errorf("%w: gas settlement %v * %v", xenon.ErrIntegerOverflow, g.used, g.price)
	}
	if spent.Gt(reserved) {
		// used never exceeds limit, so spent never exceeds reserved.
		return nil, nil, xenon.OutOfGasError(g.limit, g.used)
	}
	return spent, new(uint256.Int).Sub(reserved, spent), nil
}

// SettleAll forfeits the entire reservation to the treasury. Used when a
// transaction dies of gas exhaustion.
func (g *Gasometer) SettleAll() (toTreasury *uint256.Int, err error) {
	return Reserve(g.limit, g.price)
}
