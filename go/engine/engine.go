// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package engine orchestrates the life of a logical Ethereum transaction on
// the host ledger: it begins, continues, cancels and finalizes execution in
// bounded step batches, accounts for gas, and settles the burned
// reservation between the treasury pool and the origin's refund.
//
// Every operation runs inside one host invocation. A returned error means
// the invocation failed as a whole and the host discards every record
// mutation made during it; succeeding invocations have their mutations
// written back atomically.
package engine

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"

	"github.com/Fantom-foundation/Xenon/go/accounts"
	"github.com/Fantom-foundation/Xenon/go/ledger"
	"github.com/Fantom-foundation/Xenon/go/tracing"
	"github.com/Fantom-foundation/Xenon/go/xenon"
)

// MinContinueSteps is the smallest step budget a Continue may carry.
// Smaller budgets would stretch a transaction over an unbounded number of
// invocations without meaningful progress.
const MinContinueSteps = 64

// Config assembles an engine. Factory is mandatory; a nil Listener disables
// tracing.
type Config struct {
	Program  xenon.RecordKey
	ChainID  uint64
	Factory  xenon.MachineFactory
	Listener xenon.EventListener
	Log      log.Logger
}

type Engine struct {
	program  xenon.RecordKey
	chainID  uint64
	factory  xenon.MachineFactory
	listener xenon.EventListener
	log      log.Logger
}

func New(config Config) (*Engine, error) {
	if config.Factory == nil {
		return nil, fmt.Errorf("engine requires a machine factory")
	}
	listener := config.Listener
	if listener == nil {
		listener = tracing.NewNopListener()
	}
	logger := config.Log
	if logger == nil {
		logger = log.New("module", "engine")
	}
	return &Engine{
		program:  config.Program,
		chainID:  config.ChainID,
		factory:  config.Factory,
		listener: listener,
		log:      logger,
	}, nil
}

// Result describes the outcome of one engine operation. Done is false when
// the transaction ran out of step budget and awaits a Continue.
type Result struct {
	Status        xenon.ExitStatus
	Done          bool
	StepsExecuted uint64
	GasUsed       *uint256.Int
}

// AutoTreasuryIndex selects the treasury pool record for a transaction from
// the low bytes of its hash, spreading settlement writes over the pool.
func AutoTreasuryIndex(hash xenon.Hash) uint32 {
	return binary.LittleEndian.Uint32(hash[28:32]) % accounts.TreasuryPoolSize
}

// Begin starts a logical transaction: validates its signature, nonce and
// chain id, burns the full gas reservation from the origin's balance,
// converts the given record into a state record, and runs the machine for
// up to steps interpreter steps. A transaction completing within the budget
// is finalized immediately.
func (e *Engine) Begin(
	storage *accounts.Storage,
	record *ledger.Record,
	trx *xenon.Transaction,
	treasuryIndex uint32,
	steps uint64,
) (*Result, error) {
	origin, chainID, nonce, err := e.validate(storage, trx)
	if err != nil {
		return nil, err
	}
	reserved, err := Reserve(trx.GasLimit, trx.GasPrice)
	if err != nil {
		return nil, err
	}

	operator := storage.Records().Operator().Key
	state, err := accounts.NewStateRecord(e.program, record, operator,
		trx.Hash, origin, chainID, nonce, trx.Raw())
	if err != nil {
		return nil, err
	}
	if err := e.burnReservation(storage, origin, chainID, reserved); err != nil {
		return nil, err
	}

	exec := NewExecState(storage, chainID, e.listener)
	machine, err := e.factory.New(trx, origin, exec, e.listener)
	if err != nil {
		return nil, err
	}
	e.listener.OnTransactionStart(trx.Hash, origin)
	e.log.Info("transaction begun",
		"hash", trx.Hash, "origin", origin, "nonce", nonce,
		"gasLimit", trx.GasLimit, "steps", steps)

	gas := NewGasometer(trx.GasLimit, trx.GasPrice, uint256.NewInt(0))
	if err := gas.ConsumeUnits(OverheadGas(len(trx.Raw()))); err != nil {
		return e.settle(storage, state, exec, xenon.ExitStatus{Kind: xenon.ExitOutOfGas}, gas, treasuryIndex, true)
	}
	return e.run(storage, state, exec, machine, gas, treasuryIndex, steps)
}

// Continue resumes an in-flight transaction from its state record. The
// supplied hash must match the recorded one exactly; the step budget must
// meet the minimum.
func (e *Engine) Continue(
	storage *accounts.Storage,
	record *ledger.Record,
	hash xenon.Hash,
	treasuryIndex uint32,
	steps uint64,
) (*Result, error) {
	if steps < MinContinueSteps {
		return nil, fmt.Errorf("step budget %d below the minimum of %d", steps, MinContinueSteps)
	}
	operator := storage.Records().Operator().Key
	state, err := accounts.StateFromRecord(e.program, record, operator)
	if err != nil {
		return nil, err
	}
	if recorded := state.TransactionHash(); recorded != hash {
		return nil, xenon.InvalidHashError(hash, recorded)
	}

	payload, err := state.Payload()
	if err != nil {
		return nil, err
	}
	trx, err := xenon.DecodeTransaction(payload)
	if err != nil {
		return nil, err
	}
	exec, err := LoadExecState(state.Arena(), state.ExecStateOffset(), storage, e.listener)
	if err != nil {
		return nil, err
	}
	machine, err := e.factory.Restore(state.Arena(), state.MachineOffset(), exec, e.listener)
	if err != nil {
		return nil, err
	}
	e.log.Debug("transaction continued",
		"hash", hash, "stepsExecuted", state.StepsExecuted(), "steps", steps)

	gas := NewGasometer(trx.GasLimit, trx.GasPrice, state.GasUsed())
	return e.run(storage, state, exec, machine, gas, treasuryIndex, steps)
}

// Cancel kills an in-flight transaction: the recorded hash must be
// presented exactly, a fixed cancellation fee is retained by the treasury,
// the rest of the unspent reservation is refunded, and the origin's nonce
// is burned so the transaction cannot be resubmitted.
func (e *Engine) Cancel(
	storage *accounts.Storage,
	record *ledger.Record,
	hash xenon.Hash,
	treasuryIndex uint32,
) error {
	operator := storage.Records().Operator().Key
	state, err := accounts.StateFromRecord(e.program, record, operator)
	if err != nil {
		return err
	}
	if recorded := state.TransactionHash(); recorded != hash {
		return xenon.InvalidHashError(hash, recorded)
	}

	payload, err := state.Payload()
	if err != nil {
		return err
	}
	trx, err := xenon.DecodeTransaction(payload)
	if err != nil {
		return err
	}

	gas := NewGasometer(trx.GasLimit, trx.GasPrice, state.GasUsed())
	if err := gas.ConsumeUnits(CancelGas); err != nil {
		// The fee does not fit the remaining reservation; the treasury
		// keeps everything.
		_, err := e.settle(storage, state, nil, xenon.ExitStatus{Kind: xenon.ExitOutOfGas}, gas, treasuryIndex, true)
		return err
	}
	_, err = e.settle(storage, state, nil, xenon.ExitStatus{Kind: xenon.ExitRevert}, gas, treasuryIndex, false)
	if err != nil {
		return err
	}
	e.log.Info("transaction cancelled", "hash", hash, "gasUsed", gas.Used())
	return nil
}

// Execute runs a transaction to completion within a single invocation,
// without creating a state record. The machine must terminate on its own;
// an execution that would need more than one invocation is an error.
func (e *Engine) Execute(
	storage *accounts.Storage,
	trx *xenon.Transaction,
	treasuryIndex uint32,
) (*Result, error) {
	origin, chainID, nonce, err := e.validate(storage, trx)
	if err != nil {
		return nil, err
	}
	reserved, err := Reserve(trx.GasLimit, trx.GasPrice)
	if err != nil {
		return nil, err
	}
	if err := e.burnReservation(storage, origin, chainID, reserved); err != nil {
		return nil, err
	}

	exec := NewExecState(storage, chainID, e.listener)
	machine, err := e.factory.New(trx, origin, exec, e.listener)
	if err != nil {
		return nil, err
	}
	e.listener.OnTransactionStart(trx.Hash, origin)

	status, executed, err := machine.Execute(math.MaxUint64)
	if err != nil {
		return nil, err
	}
	e.listener.OnSteps(executed)
	if !status.Done() {
		return nil, fmt.Errorf("transaction %v did not terminate in a single invocation", trx.Hash)
	}

	gas := NewGasometer(trx.GasLimit, trx.GasPrice, uint256.NewInt(0))
	exhausted := gas.Consume(machine.GasUsed()) != nil ||
		gas.ConsumeUnits(OverheadGas(len(trx.Raw()))) != nil ||
		gas.ConsumeUnits(TreasuryContributionGas) != nil
	if exhausted {
		status = xenon.ExitStatus{Kind: xenon.ExitOutOfGas}
	}
	result, err := e.settleAtomic(storage, exec, trx.Hash, origin, chainID, nonce, status, gas, treasuryIndex, exhausted)
	if err != nil {
		return nil, err
	}
	result.StepsExecuted = executed
	return result, nil
}

// CollectTreasury sweeps the balance of one indexed treasury record into
// the main treasury.
func (e *Engine) CollectTreasury(storage *accounts.Storage, index uint32) (*uint256.Int, error) {
	indexed, err := e.openTreasury(storage, index)
	if err != nil {
		return nil, err
	}
	main, err := e.openTreasury(storage, accounts.MainTreasuryIndex)
	if err != nil {
		return nil, err
	}
	moved, err := indexed.Drain(main)
	if err != nil {
		return nil, err
	}
	e.log.Info("treasury collected", "index", index, "amount", moved)
	return moved, nil
}

// validate checks signature, chain id and nonce without mutating anything.
func (e *Engine) validate(storage *accounts.Storage, trx *xenon.Transaction) (xenon.Address, uint64, uint64, error) {
	origin, err := trx.Recover()
	if err != nil {
		return xenon.Address{}, 0, 0, err
	}
	if trx.ChainID != nil && *trx.ChainID != e.chainID {
		return xenon.Address{}, 0, 0, fmt.Errorf("%w: transaction chain %d, engine chain %d",
			xenon.ErrInvalidChainID, *trx.ChainID, e.chainID)
	}
	chainID := trx.ChainIDOrDefault(e.chainID)
	nonce, err := storage.Nonce(origin, chainID)
	if err != nil {
		return xenon.Address{}, 0, 0, err
	}
	if trx.Nonce != nonce {
		return xenon.Address{}, 0, 0, xenon.InvalidNonceError(origin, trx.Nonce, nonce)
	}
	return origin, chainID, nonce, nil
}

func (e *Engine) burnReservation(storage *accounts.Storage, origin xenon.Address, chainID uint64, reserved *uint256.Int) error {
	if reserved.IsZero() {
		return nil
	}
	balance, err := storage.OpenBalance(origin, chainID)
	if err != nil {
		return err
	}
	if balance == nil {
		return xenon.InsufficientBalanceError(origin, chainID, reserved)
	}
	return balance.Burn(reserved)
}

// run drives the machine for one step batch and either persists progress or
// finalizes the transaction.
func (e *Engine) run(
	storage *accounts.Storage,
	state *accounts.StateRecord,
	exec *ExecState,
	machine xenon.Machine,
	gas *Gasometer,
	treasuryIndex uint32,
	steps uint64,
) (*Result, error) {
	machineGasBefore := machine.GasUsed()

	status, executed, err := machine.Execute(steps)
	if err != nil {
		return nil, err
	}
	e.listener.OnSteps(executed)
	state.AddSteps(executed)

	delta := new(uint256.Int).Sub(machine.GasUsed(), machineGasBefore)
	if gas.Consume(delta) != nil {
		// Gas exhaustion forfeits the full reservation.
		return e.settle(storage, state, exec, xenon.ExitStatus{Kind: xenon.ExitOutOfGas}, gas, treasuryIndex, true)
	}

	if status.Done() {
		if gas.ConsumeUnits(TreasuryContributionGas) != nil {
			return e.settle(storage, state, exec, xenon.ExitStatus{Kind: xenon.ExitOutOfGas}, gas, treasuryIndex, true)
		}
		return e.settle(storage, state, exec, status, gas, treasuryIndex, false)
	}

	// Budget exhausted mid-execution: persist and wait for a Continue.
	if err := state.ResetScratch(); err != nil {
		return nil, err
	}
	execOffset, err := exec.Save(state.Arena())
	if err != nil {
		return nil, err
	}
	machineOffset, err := machine.Snapshot(state.Arena())
	if err != nil {
		return nil, err
	}
	state.SetExecStateOffset(execOffset)
	state.SetMachineOffset(machineOffset)
	state.SetGasUsed(gas.Used())
	e.log.Debug("transaction persisted",
		"hash", state.TransactionHash(), "stepsExecuted", state.StepsExecuted(), "gasUsed", gas.Used())
	return &Result{
		Status:        status,
		Done:          false,
		StepsExecuted: executed,
		GasUsed:       gas.Used(),
	}, nil
}

// settle finalizes a transaction held in a state record: applies the
// overlay on success, splits the reservation between treasury and refund,
// advances the origin's nonce, and converts the state record into its
// finalized marker.
func (e *Engine) settle(
	storage *accounts.Storage,
	state *accounts.StateRecord,
	exec *ExecState,
	status xenon.ExitStatus,
	gas *Gasometer,
	treasuryIndex uint32,
	exhausted bool,
) (*Result, error) {
	if status.Success() && exec != nil {
		if err := exec.Apply(); err != nil {
			return nil, err
		}
	}

	toTreasury, toRefund, err := e.split(gas, exhausted)
	if err != nil {
		return nil, err
	}
	origin := state.Origin()
	chainID := state.ChainID()
	hash := state.TransactionHash()
	if err := e.payout(storage, origin, chainID, state.NonceSnapshot(), toTreasury, toRefund, treasuryIndex); err != nil {
		return nil, err
	}
	if _, err := state.Finalize(); err != nil {
		return nil, err
	}

	e.listener.OnTransactionEnd(hash, status, gas.Used())
	e.log.Info("transaction finalized",
		"hash", hash, "status", status.Kind, "gasUsed", gas.Used(),
		"toTreasury", toTreasury, "refunded", toRefund)
	return &Result{Status: status, Done: true, GasUsed: gas.Used()}, nil
}

// settleAtomic is the state-record-free variant used by Execute.
func (e *Engine) settleAtomic(
	storage *accounts.Storage,
	exec *ExecState,
	hash xenon.Hash,
	origin xenon.Address,
	chainID uint64,
	nonceSnapshot uint64,
	status xenon.ExitStatus,
	gas *Gasometer,
	treasuryIndex uint32,
	exhausted bool,
) (*Result, error) {
	if status.Success() {
		if err := exec.Apply(); err != nil {
			return nil, err
		}
	}
	toTreasury, toRefund, err := e.split(gas, exhausted)
	if err != nil {
		return nil, err
	}
	if err := e.payout(storage, origin, chainID, nonceSnapshot, toTreasury, toRefund, treasuryIndex); err != nil {
		return nil, err
	}
	e.listener.OnTransactionEnd(hash, status, gas.Used())
	e.log.Info("transaction executed",
		"hash", hash, "status", status.Kind, "gasUsed", gas.Used(),
		"toTreasury", toTreasury, "refunded", toRefund)
	return &Result{Status: status, Done: true, GasUsed: gas.Used()}, nil
}

// split derives the treasury and refund portions of the reservation.
func (e *Engine) split(gas *Gasometer, exhausted bool) (toTreasury, toRefund *uint256.Int, err error) {
	if exhausted {
		toTreasury, err = gas.SettleAll()
		return toTreasury, uint256.NewInt(0), err
	}
	return gas.Settle()
}

// payout moves the split reservation to its destinations and advances the
// origin's nonce if no other transaction advanced it since the snapshot.
func (e *Engine) payout(
	storage *accounts.Storage,
	origin xenon.Address,
	chainID uint64,
	nonceSnapshot uint64,
	toTreasury, toRefund *uint256.Int,
	treasuryIndex uint32,
) error {
	treasury, err := e.openTreasury(storage, treasuryIndex)
	if err != nil {
		return err
	}
	if err := treasury.Mint(toTreasury); err != nil {
		return err
	}
	balance, err := storage.EnsureBalance(origin, chainID)
	if err != nil {
		return err
	}
	if err := balance.Mint(toRefund); err != nil {
		return err
	}
	if balance.Nonce() == nonceSnapshot {
		return balance.IncrementNonce()
	}
	return nil
}

// openTreasury opens the treasury record with the given index, lazily
// initializing it when the provided record is still unclaimed.
func (e *Engine) openTreasury(storage *accounts.Storage, index uint32) (*accounts.TreasuryRecord, error) {
	record, err := storage.Records().Get(accounts.TreasuryKey(e.program, index))
	if err != nil {
		return nil, err
	}
	if record.Owner == ledger.SystemOwner {
		return accounts.NewTreasuryRecord(e.program, record, index)
	}
	return accounts.TreasuryFromRecord(e.program, record)
}
