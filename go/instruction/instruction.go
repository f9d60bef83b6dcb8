// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package instruction decodes invocation inputs and dispatches them to the
// execution engine. An invocation input is an opcode byte followed by
// fixed-width fields (treasury index: 4 bytes LE, step budget: 4 bytes LE,
// transaction hash: 32 bytes, where applicable) and an ordered list of
// storage records whose roles are fixed by position.
package instruction

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum/log"

	"github.com/Fantom-foundation/Xenon/go/accounts"
	"github.com/Fantom-foundation/Xenon/go/engine"
	"github.com/Fantom-foundation/Xenon/go/ledger"
	"github.com/Fantom-foundation/Xenon/go/xenon"
)

// Opcode selects the operation an invocation performs.
type Opcode byte

const (
	CollectTreasury   Opcode = 0x1e
	HolderCreate      Opcode = 0x24
	HolderDelete      Opcode = 0x25
	HolderWrite       Opcode = 0x26
	CreateBalance     Opcode = 0x30
	ExecuteFromData   Opcode = 0x32
	ExecuteFromHolder Opcode = 0x33
	StepFromData      Opcode = 0x34
	StepFromHolder    Opcode = 0x35
	Cancel            Opcode = 0x37
)

// AutoTreasury is the wire sentinel asking the dispatch to derive the
// treasury index from the transaction hash instead of an explicit value. It
// coincides with the main treasury's reserved index, which is a collection
// target, never a settlement target.
const AutoTreasury uint32 = math.MaxUint32

func resolveTreasury(index uint32, hash xenon.Hash) uint32 {
	if index == AutoTreasury {
		return engine.AutoTreasuryIndex(hash)
	}
	return index
}

func (o Opcode) String() string {
	switch o {
	case CollectTreasury:
		return "collect_treasury"
	case HolderCreate:
		return "holder_create"
	case HolderDelete:
		return "holder_delete"
	case HolderWrite:
		return "holder_write"
	case CreateBalance:
		return "create_balance"
	case ExecuteFromData:
		return "execute_from_data"
	case ExecuteFromHolder:
		return "execute_from_holder"
	case StepFromData:
		return "step_from_data"
	case StepFromHolder:
		return "step_from_holder"
	case Cancel:
		return "cancel"
	default:
		return fmt.Sprintf("Opcode(%#02x)", byte(o))
	}
}

// Config assembles a processor. Engine is mandatory.
type Config struct {
	Program xenon.RecordKey
	Engine  *engine.Engine
	Log     log.Logger
}

// Processor is the invocation entry point: it owns opcode decoding and
// record-role assignment, and delegates all semantics to the engine.
type Processor struct {
	program xenon.RecordKey
	engine  *engine.Engine
	log     log.Logger
}

func NewProcessor(config Config) (*Processor, error) {
	if config.Engine == nil {
		return nil, fmt.Errorf("processor requires an engine")
	}
	logger := config.Log
	if logger == nil {
		logger = log.New("module", "instruction")
	}
	return &Processor{
		program: config.Program,
		engine:  config.Engine,
		log:     logger,
	}, nil
}

// Process executes one invocation. The result is non-nil only for opcodes
// that drive a transaction.
func (p *Processor) Process(records *ledger.RecordSet, input []byte) (*engine.Result, error) {
	if len(input) == 0 {
		return nil, fmt.Errorf("empty invocation input")
	}
	opcode, data := Opcode(input[0]), input[1:]
	p.log.Debug("invocation", "opcode", opcode, "dataLen", len(data))

	storage := accounts.NewStorage(p.program, records)
	switch opcode {
	case CollectTreasury:
		return nil, p.collectTreasury(storage, data)
	case HolderCreate:
		return nil, p.holderCreate(storage, data)
	case HolderDelete:
		return nil, p.holderDelete(storage)
	case HolderWrite:
		return nil, p.holderWrite(storage, data)
	case CreateBalance:
		return nil, p.createBalance(storage, data)
	case ExecuteFromData:
		return p.executeFromData(storage, data)
	case ExecuteFromHolder:
		return p.executeFromHolder(storage, data)
	case StepFromData:
		return p.stepFromData(storage, data)
	case StepFromHolder:
		return p.stepFromHolder(storage, data)
	case Cancel:
		return nil, p.cancel(storage, data)
	default:
		return nil, fmt.Errorf("unknown opcode %v", opcode)
	}
}

// stateRecord returns the leading positional record of the invocation, the
// one holding the transaction's holder or state view.
func stateRecord(storage *accounts.Storage) (*ledger.Record, error) {
	aux := storage.Records().Records()
	if len(aux) == 0 {
		return nil, fmt.Errorf("invocation carries no storage records")
	}
	return aux[0], nil
}

func operatorKey(storage *accounts.Storage) xenon.RecordKey {
	return storage.Records().Operator().Key
}

func (p *Processor) collectTreasury(storage *accounts.Storage, data []byte) error {
	if len(data) != 4 {
		return fmt.Errorf("collect_treasury expects a 4 byte index, got %d bytes", len(data))
	}
	index := binary.LittleEndian.Uint32(data)
	_, err := p.engine.CollectTreasury(storage, index)
	return err
}

// holderCreate claims an unowned record as a holder, or revives a finalized
// state record of the same operator, so the record can assemble the next
// transaction. An optional 8 byte field reserves extra heap space.
func (p *Processor) holderCreate(storage *accounts.Storage, data []byte) error {
	var heap uint32
	switch len(data) {
	case 0:
	case 8:
		size := binary.LittleEndian.Uint64(data)
		if size > math.MaxUint32 {
			return fmt.Errorf("%w: holder heap of %d bytes", xenon.ErrIntegerOverflow, size)
		}
		heap = uint32(size)
	default:
		return fmt.Errorf("holder_create expects an optional 8 byte heap size, got %d bytes", len(data))
	}

	record, err := stateRecord(storage)
	if err != nil {
		return err
	}
	operator := operatorKey(storage)
	if record.Owner == p.program {
		finalized, err := accounts.FinalizedFromRecord(p.program, record)
		if err != nil {
			return err
		}
		if finalized.Owner() != operator {
			return fmt.Errorf("%w: finalized record %v belongs to %v, not %v",
				xenon.ErrHolderInvalidOwner, record.Key, finalized.Owner(), operator)
		}
		_, err = finalized.ReviveHolder(p.program, operator, heap)
		return err
	}
	_, err = accounts.NewHolderRecord(p.program, record, operator, heap)
	return err
}

func (p *Processor) holderDelete(storage *accounts.Storage) error {
	record, err := stateRecord(storage)
	if err != nil {
		return err
	}
	holder, err := accounts.HolderFromRecord(p.program, record, operatorKey(storage))
	if err != nil {
		return err
	}
	holder.Delete()
	return nil
}

func (p *Processor) holderWrite(storage *accounts.Storage, data []byte) error {
	if len(data) < 40 {
		return fmt.Errorf("holder_write expects hash and offset, got %d bytes", len(data))
	}
	hash := xenon.Hash(data[:32])
	offset := binary.LittleEndian.Uint64(data[32:40])
	chunk := data[40:]

	record, err := stateRecord(storage)
	if err != nil {
		return err
	}
	holder, err := accounts.HolderFromRecord(p.program, record, operatorKey(storage))
	if err != nil {
		return err
	}
	return holder.Write(hash, offset, chunk)
}

func (p *Processor) createBalance(storage *accounts.Storage, data []byte) error {
	if len(data) != 28 {
		return fmt.Errorf("create_balance expects address and chain id, got %d bytes", len(data))
	}
	address := xenon.Address(data[:20])
	chainID := binary.LittleEndian.Uint64(data[20:28])
	_, err := storage.EnsureBalance(address, chainID)
	return err
}

func (p *Processor) executeFromData(storage *accounts.Storage, data []byte) (*engine.Result, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("execute_from_data expects a treasury index, got %d bytes", len(data))
	}
	treasuryIndex := binary.LittleEndian.Uint32(data)
	trx, err := xenon.DecodeTransaction(data[4:])
	if err != nil {
		return nil, err
	}
	return p.engine.Execute(storage, trx, resolveTreasury(treasuryIndex, trx.Hash))
}

func (p *Processor) executeFromHolder(storage *accounts.Storage, data []byte) (*engine.Result, error) {
	if len(data) != 4 {
		return nil, fmt.Errorf("execute_from_holder expects a treasury index, got %d bytes", len(data))
	}
	treasuryIndex := binary.LittleEndian.Uint32(data)

	record, err := stateRecord(storage)
	if err != nil {
		return nil, err
	}
	holder, err := accounts.HolderFromRecord(p.program, record, operatorKey(storage))
	if err != nil {
		return nil, err
	}
	trx, err := xenon.DecodeTransaction(holder.Payload())
	if err != nil {
		return nil, err
	}
	result, err := p.engine.Execute(storage, trx, resolveTreasury(treasuryIndex, trx.Hash))
	if err != nil {
		return nil, err
	}
	// The payload was consumed; the holder is free for the next transaction.
	holder.Clear()
	return result, nil
}

func (p *Processor) stepFromData(storage *accounts.Storage, data []byte) (*engine.Result, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("step_from_data expects index and step budget, got %d bytes", len(data))
	}
	treasuryIndex := binary.LittleEndian.Uint32(data)
	steps := uint64(binary.LittleEndian.Uint32(data[4:]))
	trx, err := xenon.DecodeTransaction(data[8:])
	if err != nil {
		return nil, err
	}

	record, err := stateRecord(storage)
	if err != nil {
		return nil, err
	}
	// A fresh record may start a transaction directly: it is claimed as the
	// operator's holder before being converted into the state record.
	if record.Owner == ledger.SystemOwner {
		if _, err := accounts.NewHolderRecord(p.program, record, operatorKey(storage), 0); err != nil {
			return nil, err
		}
	}
	tag, err := accounts.Tag(p.program, record)
	if err != nil {
		return nil, err
	}
	treasuryIndex = resolveTreasury(treasuryIndex, trx.Hash)
	if tag == accounts.TagState {
		return p.engine.Continue(storage, record, trx.Hash, treasuryIndex, steps)
	}
	return p.engine.Begin(storage, record, trx, treasuryIndex, steps)
}

func (p *Processor) stepFromHolder(storage *accounts.Storage, data []byte) (*engine.Result, error) {
	if len(data) != 40 {
		return nil, fmt.Errorf("step_from_holder expects index, step budget and hash, got %d bytes", len(data))
	}
	treasuryIndex := binary.LittleEndian.Uint32(data)
	steps := uint64(binary.LittleEndian.Uint32(data[4:]))
	hash := xenon.Hash(data[8:40])
	treasuryIndex = resolveTreasury(treasuryIndex, hash)

	record, err := stateRecord(storage)
	if err != nil {
		return nil, err
	}
	tag, err := accounts.Tag(p.program, record)
	if err != nil {
		return nil, err
	}
	if tag == accounts.TagState {
		return p.engine.Continue(storage, record, hash, treasuryIndex, steps)
	}

	// The record is still a holder: the payload it accumulated becomes the
	// transaction, and the record itself is converted into its state record.
	holder, err := accounts.HolderFromRecord(p.program, record, operatorKey(storage))
	if err != nil {
		return nil, err
	}
	trx, err := xenon.DecodeTransaction(holder.Payload())
	if err != nil {
		return nil, err
	}
	if trx.Hash != hash {
		return nil, xenon.InvalidHashError(hash, trx.Hash)
	}
	return p.engine.Begin(storage, record, trx, treasuryIndex, steps)
}

func (p *Processor) cancel(storage *accounts.Storage, data []byte) error {
	if len(data) != 36 {
		return fmt.Errorf("cancel expects index and hash, got %d bytes", len(data))
	}
	treasuryIndex := binary.LittleEndian.Uint32(data)
	hash := xenon.Hash(data[4:36])

	record, err := stateRecord(storage)
	if err != nil {
		return err
	}
	return p.engine.Cancel(storage, record, hash, resolveTreasury(treasuryIndex, hash))
}
