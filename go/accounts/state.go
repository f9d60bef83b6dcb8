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
	"fmt"

	"github.com/Fantom-foundation/Xenon/go/arena"
	"github.com/Fantom-foundation/Xenon/go/ledger"
	"github.com/Fantom-foundation/Xenon/go/xenon"
	"github.com/holiman/uint256"
)

// State record layout, after the prefix: operator key (32), transaction hash
// (32), origin address (20), chain id (8 LE), origin nonce snapshot (8 LE),
// steps executed (8 LE), gas used (32 BE), then four arena offsets (4 LE
// each): transaction payload offset and length, persisted execution-state
// offset, persisted machine offset. The remainder of the record is the arena
// region.
const (
	stateOwnerOffset      = prefixLen
	stateHashOffset       = stateOwnerOffset + 32
	stateOriginOffset     = stateHashOffset + 32
	stateChainOffset      = stateOriginOffset + 20
	stateNonceOffset      = stateChainOffset + 8
	stateStepsOffset      = stateNonceOffset + 8
	stateGasUsedOffset    = stateStepsOffset + 8
	statePayloadOffOffset = stateGasUsedOffset + 32
	statePayloadLenOffset = statePayloadOffOffset + 4
	stateExecOffOffset    = statePayloadLenOffset + 4
	stateMachineOffOffset = stateExecOffOffset + 4
	stateHeaderSize       = stateMachineOffOffset + 4
)

// stateHeapSize is the minimum persistence region of a state record beyond
// its stored payload: the arena header, the journaled execution state and
// the machine snapshot all have to fit, or every invocation that runs out
// of step budget would fail to persist.
const stateHeapSize = 64 * 1024

// StateRecord is the typed view of an in-flight iterative transaction: the
// identity of the transaction being executed, its progress counters, and an
// arena region in which the execution state is persisted between
// invocations.
type StateRecord struct {
	record *ledger.Record
	arena  *arena.Arena
}

// NewStateRecord converts a holder record, or a finalized state record of a
// different transaction, into a fresh state record for the given
// transaction. Converting a finalized record back into a state record for
// the same hash is rejected, so a completed transaction cannot be rerun.
func NewStateRecord(
	program xenon.RecordKey,
	record *ledger.Record,
	operator xenon.RecordKey,
	hash xenon.Hash,
	origin xenon.Address,
	chainID uint64,
	nonceSnapshot uint64,
	payload []byte,
) (*StateRecord, error) {
	tag, err := Tag(program, record)
	if err != nil {
		return nil, err
	}
	switch tag {
	case TagHolder:
		if _, err := HolderFromRecord(program, record, operator); err != nil {
			return nil, err
		}
	case TagStateFinalized:
		finalized, err := FinalizedFromRecord(program, record)
		if err != nil {
			return nil, err
		}
		if finalized.TransactionHash() == hash {
			return nil, fmt.Errorf("%w: transaction %v is already finalized",
				xenon.ErrInvalidHash, hash)
		}
	default:
		return nil, xenon.AccountInvalidTagError(record.Key, tag, TagHolder)
	}

	// The payload may alias the record being converted.
	payload = append([]byte(nil), payload...)

	// The region must be sized before the arena is built over it; a later
	// Resize would leave the arena aliasing the old backing slice. A record
	// already carrying a larger region keeps it.
	if need := stateHeaderSize + len(payload) + stateHeapSize; len(record.Data) < need {
		record.Resize(need)
	}
	if err := setTag(program, record, TagState, stateVersion); err != nil {
		return nil, err
	}
	copy(record.Data[stateOwnerOffset:], operator[:])
	copy(record.Data[stateHashOffset:], hash[:])
	copy(record.Data[stateOriginOffset:], origin[:])
	binary.LittleEndian.PutUint64(record.Data[stateChainOffset:], chainID)
	binary.LittleEndian.PutUint64(record.Data[stateNonceOffset:], nonceSnapshot)
	binary.LittleEndian.PutUint64(record.Data[stateStepsOffset:], 0)
	clear(record.Data[stateGasUsedOffset:stateHeaderSize])

	region, err := arena.New(record.Data[stateHeaderSize:])
	if err != nil {
		return nil, err
	}
	offset, err := region.Alloc(uint32(len(payload)), 1)
	if err != nil {
		return nil, err
	}
	view, err := region.Bytes(offset, uint32(len(payload)))
	if err != nil {
		return nil, err
	}
	copy(view, payload)
	binary.LittleEndian.PutUint32(record.Data[statePayloadOffOffset:], offset)
	binary.LittleEndian.PutUint32(record.Data[statePayloadLenOffset:], uint32(len(payload)))
	return &StateRecord{record: record, arena: region}, nil
}

// StateFromRecord re-opens the state record of an in-flight transaction,
// re-attaching to its arena region. Only the operator that began the
// transaction may continue or cancel it.
func StateFromRecord(program xenon.RecordKey, record *ledger.Record, operator xenon.RecordKey) (*StateRecord, error) {
	if err := validateTag(program, record, TagState); err != nil {
		return nil, err
	}
	if len(record.Data) < stateHeaderSize {
		return nil, xenon.AccountInvalidDataError(record.Key)
	}
	state := &StateRecord{record: record}
	if state.Owner() != operator {
		return nil, fmt.Errorf("%w: state record %v is operated by %v, not %v",
			xenon.ErrHolderInvalidOwner, record.Key, state.Owner(), operator)
	}
	region, err := arena.Attach(record.Data[stateHeaderSize:])
	if err != nil {
		return nil, err
	}
	state.arena = region
	return state, nil
}

func (s *StateRecord) Key() xenon.RecordKey {
	return s.record.Key
}

func (s *StateRecord) Owner() xenon.RecordKey {
	return xenon.RecordKey(s.record.Data[stateOwnerOffset : stateOwnerOffset+32])
}

func (s *StateRecord) TransactionHash() xenon.Hash {
	return xenon.Hash(s.record.Data[stateHashOffset : stateHashOffset+32])
}

func (s *StateRecord) Origin() xenon.Address {
	return xenon.Address(s.record.Data[stateOriginOffset : stateOriginOffset+20])
}

func (s *StateRecord) ChainID() uint64 {
	return binary.LittleEndian.Uint64(s.record.Data[stateChainOffset:])
}

// NonceSnapshot is the origin's nonce observed when the transaction began.
func (s *StateRecord) NonceSnapshot() uint64 {
	return binary.LittleEndian.Uint64(s.record.Data[stateNonceOffset:])
}

func (s *StateRecord) StepsExecuted() uint64 {
	return binary.LittleEndian.Uint64(s.record.Data[stateStepsOffset:])
}

func (s *StateRecord) AddSteps(steps uint64) {
	binary.LittleEndian.PutUint64(s.record.Data[stateStepsOffset:], s.StepsExecuted()+steps)
}

// GasUsed is the gas charged against the origin so far.
func (s *StateRecord) GasUsed() *uint256.Int {
	return new(uint256.Int).SetBytes32(s.record.Data[stateGasUsedOffset : stateGasUsedOffset+32])
}

func (s *StateRecord) SetGasUsed(gas *uint256.Int) {
	bytes := gas.Bytes32()
	copy(s.record.Data[stateGasUsedOffset:], bytes[:])
}

// Payload returns the stored transaction bytes.
func (s *StateRecord) Payload() ([]byte, error) {
	offset := binary.LittleEndian.Uint32(s.record.Data[statePayloadOffOffset:])
	length := binary.LittleEndian.Uint32(s.record.Data[statePayloadLenOffset:])
	return s.arena.Bytes(offset, length)
}

// Arena is the allocator over the record's persistence region. Offsets
// handed out by it remain valid across invocations.
func (s *StateRecord) Arena() *arena.Arena {
	return s.arena
}

// ResetScratch rewinds the arena to just past the stored payload,
// discarding previously persisted execution state so the current
// invocation can persist its own without growing the region.
func (s *StateRecord) ResetScratch() error {
	offset := binary.LittleEndian.Uint32(s.record.Data[statePayloadOffOffset:])
	length := binary.LittleEndian.Uint32(s.record.Data[statePayloadLenOffset:])
	return s.arena.Truncate(uint64(offset) + uint64(length))
}

// ExecStateOffset is the arena offset of the persisted execution state, or
// zero before the first invocation persisted one.
func (s *StateRecord) ExecStateOffset() uint32 {
	return binary.LittleEndian.Uint32(s.record.Data[stateExecOffOffset:])
}

func (s *StateRecord) SetExecStateOffset(offset uint32) {
	binary.LittleEndian.PutUint32(s.record.Data[stateExecOffOffset:], offset)
}

// MachineOffset is the arena offset of the persisted machine snapshot, or
// zero before the first invocation persisted one.
func (s *StateRecord) MachineOffset() uint32 {
	return binary.LittleEndian.Uint32(s.record.Data[stateMachineOffOffset:])
}

func (s *StateRecord) SetMachineOffset(offset uint32) {
	binary.LittleEndian.PutUint32(s.record.Data[stateMachineOffOffset:], offset)
}

// Finalize converts the state record into a finalized marker keeping only
// the operator key and transaction hash. The arena region is discarded.
func (s *StateRecord) Finalize() (*FinalizedRecord, error) {
	if err := setTag(s.record.Owner, s.record, TagStateFinalized, finalizedVersion); err != nil {
		return nil, err
	}
	s.record.Resize(finalizedRecordSize)
	s.arena = nil
	return &FinalizedRecord{record: s.record}, nil
}
