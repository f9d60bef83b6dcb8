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
	"math"

	"github.com/Fantom-foundation/Xenon/go/ledger"
	"github.com/Fantom-foundation/Xenon/go/xenon"
)

// InlineStorageSlots is the number of low storage indices stored directly in
// the contract record; higher indices overflow into storage-cell records.
const InlineStorageSlots = 64

// Contract record layout, after the prefix: chain id (8 LE), generation
// (4 LE), code size (4 LE), rw-block flag (1), inline storage
// (InlineStorageSlots x 32), code.
const (
	contractChainOffset      = prefixLen
	contractGenerationOffset = contractChainOffset + 8
	contractCodeSizeOffset   = contractGenerationOffset + 4
	contractRWBlockedOffset  = contractCodeSizeOffset + 4
	contractStorageOffset    = contractRWBlockedOffset + 1
	contractCodeOffset       = contractStorageOffset + InlineStorageSlots*32
)

// ContractRecord is the typed view of a deployed contract: its code and the
// inline portion of its storage.
type ContractRecord struct {
	record *ledger.Record
}

func contractRecordSize(codeLen int) int {
	return contractCodeOffset + codeLen
}

// ContractFromRecord opens an existing contract record.
func ContractFromRecord(program xenon.RecordKey, record *ledger.Record) (*ContractRecord, error) {
	if err := validateTag(program, record, TagContract); err != nil {
		return nil, err
	}
	if len(record.Data) < contractCodeOffset {
		return nil, xenon.AccountInvalidDataError(record.Key)
	}
	contract := &ContractRecord{record: record}
	if contract.CodeLen() > len(record.Data)-contractCodeOffset {
		return nil, xenon.AccountInvalidDataError(record.Key)
	}
	return contract, nil
}

// NewContractRecord initializes an unowned record as a contract record at
// generation zero with the given code.
func NewContractRecord(program xenon.RecordKey, record *ledger.Record, chainID uint64, code []byte) (*ContractRecord, error) {
	if len(code) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: contract code of %d bytes", xenon.ErrIntegerOverflow, len(code))
	}
	if err := claim(program, record, contractRecordSize(len(code))); err != nil {
		return nil, err
	}
	if err := setTag(program, record, TagContract, contractVersion); err != nil {
		return nil, err
	}
	binary.LittleEndian.PutUint64(record.Data[contractChainOffset:], chainID)
	binary.LittleEndian.PutUint32(record.Data[contractGenerationOffset:], 0)
	binary.LittleEndian.PutUint32(record.Data[contractCodeSizeOffset:], uint32(len(code)))
	record.Data[contractRWBlockedOffset] = 0
	clear(record.Data[contractStorageOffset:contractCodeOffset])
	copy(record.Data[contractCodeOffset:], code)
	return &ContractRecord{record: record}, nil
}

func (c *ContractRecord) Key() xenon.RecordKey {
	return c.record.Key
}

func (c *ContractRecord) ChainID() uint64 {
	return binary.LittleEndian.Uint64(c.record.Data[contractChainOffset:])
}

// Generation is the version stamp that invalidates overflow storage cells
// written before the contract was last recreated.
func (c *ContractRecord) Generation() uint32 {
	return binary.LittleEndian.Uint32(c.record.Data[contractGenerationOffset:])
}

// IncrementGeneration orphans every storage cell stamped with the current
// generation. Called when a destroyed contract is recreated.
func (c *ContractRecord) IncrementGeneration() error {
	generation := c.Generation()
	if generation == math.MaxUint32 {
		return fmt.Errorf("%w: generation of contract record %v", xenon.ErrIntegerOverflow, c.record.Key)
	}
	binary.LittleEndian.PutUint32(c.record.Data[contractGenerationOffset:], generation+1)
	return nil
}

func (c *ContractRecord) CodeLen() int {
	return int(binary.LittleEndian.Uint32(c.record.Data[contractCodeSizeOffset:]))
}

// Code returns a live view of the contract byte-code.
func (c *ContractRecord) Code() []byte {
	return c.record.Data[contractCodeOffset : contractCodeOffset+c.CodeLen()]
}

// ReplaceCode installs new byte-code, resizing the record as needed.
func (c *ContractRecord) ReplaceCode(code []byte) error {
	if len(code) > math.MaxUint32 {
		return fmt.Errorf("%w: contract code of %d bytes", xenon.ErrIntegerOverflow, len(code))
	}
	c.record.Resize(contractRecordSize(len(code)))
	binary.LittleEndian.PutUint32(c.record.Data[contractCodeSizeOffset:], uint32(len(code)))
	copy(c.record.Data[contractCodeOffset:], code)
	return nil
}

func (c *ContractRecord) RWBlocked() bool {
	return c.record.Data[contractRWBlockedOffset] != 0
}

func (c *ContractRecord) SetRWBlocked(blocked bool) {
	if blocked {
		c.record.Data[contractRWBlockedOffset] = 1
	} else {
		c.record.Data[contractRWBlockedOffset] = 0
	}
}

// StorageValue reads one inline storage slot.
func (c *ContractRecord) StorageValue(index int) xenon.Word {
	if index < 0 || index >= InlineStorageSlots {
		panic(fmt.Sprintf("inline storage index %d out of range", index))
	}
	begin := contractStorageOffset + index*32
	return xenon.Word(c.record.Data[begin : begin+32])
}

// SetStorageValue writes one inline storage slot.
func (c *ContractRecord) SetStorageValue(index int, value xenon.Word) {
	if index < 0 || index >= InlineStorageSlots {
		panic(fmt.Sprintf("inline storage index %d out of range", index))
	}
	begin := contractStorageOffset + index*32
	copy(c.record.Data[begin:], value[:])
}
