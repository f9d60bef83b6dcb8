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

	"github.com/Fantom-foundation/Xenon/go/arena"
	"github.com/holiman/uint256"
)

//go:generate mockgen -source machine.go -destination machine_mock.go -package xenon

// ExitKind describes how a machine run ended.
type ExitKind uint8

const (
	// ExitStepLimit means the step budget was exhausted mid-execution. This
	// is progress, not an error: the machine is expected to be persisted and
	// resumed by a later invocation.
	ExitStepLimit ExitKind = iota
	ExitStop
	ExitReturn
	ExitRevert
	ExitSuicide

	// ExitOutOfGas means the declared gas limit was exhausted. The
	// transaction is dead and its full reservation is forfeited, but the
	// invocation that detected it still settles and finalizes normally.
	ExitOutOfGas
)

func (k ExitKind) String() string {
	switch k {
	case ExitStepLimit:
		return "step_limit"
	case ExitStop:
		return "stop"
	case ExitReturn:
		return "return"
	case ExitRevert:
		return "revert"
	case ExitSuicide:
		return "suicide"
	case ExitOutOfGas:
		return "out_of_gas"
	default:
		return fmt.Sprintf("ExitKind(%d)", uint8(k))
	}
}

// ExitStatus is the outcome of one Execute call.
type ExitStatus struct {
	Kind   ExitKind
	Output []byte // return or revert data, nil otherwise
}

// Done reports whether the machine has reached a terminal state.
func (s ExitStatus) Done() bool {
	return s.Kind != ExitStepLimit
}

// Success reports whether the transaction completed without revert.
func (s ExitStatus) Success() bool {
	return s.Kind == ExitStop || s.Kind == ExitReturn || s.Kind == ExitSuicide
}

// Machine is one external interpreter executing one logical transaction.
// Xenon does not define opcode semantics; it only drives a machine in
// bounded step batches and persists it between invocations.
//
// A machine is bound to the Database and EventListener it was created or
// restored with; both are references into the current invocation and do not
// survive it, which is why Restore takes them again.
type Machine interface {
	// Execute runs up to steps interpreter steps and returns the exit
	// status together with the number of steps actually executed. An error
	// indicates the machine itself failed, not that the executed code
	// stopped or reverted.
	Execute(steps uint64) (ExitStatus, uint64, error)

	// GasUsed returns the cumulative EVM gas consumed since the machine was
	// created, including steps executed in previous invocations.
	GasUsed() *uint256.Int

	// Snapshot persists the machine state into the arena and returns the
	// offset needed to restore it. The machine must not be used afterwards
	// within the same invocation.
	Snapshot(a *arena.Arena) (uint32, error)
}

// MachineFactory creates and restores machines. Implementations are
// registered by interpreter integrations and selected at engine
// construction; the engine never mixes factories at runtime.
type MachineFactory interface {
	// New builds a machine for the given transaction, recovered origin and
	// backend.
	New(trx *Transaction, origin Address, db Database, listener EventListener) (Machine, error)

	// Restore reconstructs a machine previously persisted by Snapshot from
	// the arena region at offset, re-binding it to the given backend and
	// listener. The engine rewinds and reallocates the region before the
	// next Snapshot, so a restored machine must materialize its state out
	// of the region instead of holding views into it.
	Restore(a *arena.Arena, offset uint32, db Database, listener EventListener) (Machine, error)
}

// EventListener receives execution events for offline tracing consumers.
// Implementations form a closed set in the tracing package; a nil-safe no-op
// listener is used when tracing is disabled.
type EventListener interface {
	OnTransactionStart(hash Hash, origin Address)
	OnSteps(executed uint64)
	OnStorageWrite(address Address, index *uint256.Int, value Word)
	OnBalanceChange(address Address, chainID uint64, prev, next *uint256.Int)
	OnTransactionEnd(hash Hash, status ExitStatus, gasUsed *uint256.Int)
}
