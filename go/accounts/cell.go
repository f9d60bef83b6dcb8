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

	"github.com/Fantom-foundation/Xenon/go/ledger"
	"github.com/Fantom-foundation/Xenon/go/xenon"
)

// CellValuesPerBucket is the number of storage values grouped into a single
// overflow storage-cell record.
const CellValuesPerBucket = 256

// Storage cell layout, after the prefix: bucket base index (32), contract
// generation at write time (4 LE), CellValuesPerBucket x 32 value bytes.
// The base index is the storage index with its low byte cleared; the low
// byte selects the slot within the bucket.
const (
	cellBucketOffset     = prefixLen
	cellGenerationOffset = cellBucketOffset + 32
	cellValuesOffset     = cellGenerationOffset + 4
	cellRecordSize       = cellValuesOffset + CellValuesPerBucket*32
)

// StorageCell is the typed view of an overflow storage record holding one
// bucket of a contract's storage beyond the inline slots.
type StorageCell struct {
	record *ledger.Record
}

// CellFromRecord opens an existing storage-cell record.
func CellFromRecord(program xenon.RecordKey, record *ledger.Record) (*StorageCell, error) {
	if err := validateTag(program, record, TagStorageCell); err != nil {
		return nil, err
	}
	if len(record.Data) < cellRecordSize {
		return nil, xenon.AccountInvalidDataError(record.Key)
	}
	return &StorageCell{record: record}, nil
}

// NewStorageCell initializes an unowned record as a zeroed storage cell
// stamped with the owning contract's current generation.
func NewStorageCell(program xenon.RecordKey, record *ledger.Record, bucket xenon.Word, generation uint32) (*StorageCell, error) {
	if err := claim(program, record, cellRecordSize); err != nil {
		return nil, err
	}
	if err := setTag(program, record, TagStorageCell, cellVersion); err != nil {
		return nil, err
	}
	copy(record.Data[cellBucketOffset:], bucket[:])
	binary.LittleEndian.PutUint32(record.Data[cellGenerationOffset:], generation)
	clear(record.Data[cellValuesOffset:cellRecordSize])
	return &StorageCell{record: record}, nil
}

func (c *StorageCell) Key() xenon.RecordKey {
	return c.record.Key
}

// Bucket is the base index of the bucket, the storage index with its low
// byte cleared.
func (c *StorageCell) Bucket() xenon.Word {
	return xenon.Word(c.record.Data[cellBucketOffset : cellBucketOffset+32])
}

// Generation is the contract generation the cell was last written under.
// A cell stamped with an older generation than its contract holds stale
// values and reads as zero.
func (c *StorageCell) Generation() uint32 {
	return binary.LittleEndian.Uint32(c.record.Data[cellGenerationOffset:])
}

// Restamp zeroes all values and marks the cell as belonging to the given
// contract generation.
func (c *StorageCell) Restamp(generation uint32) {
	binary.LittleEndian.PutUint32(c.record.Data[cellGenerationOffset:], generation)
	clear(c.record.Data[cellValuesOffset:cellRecordSize])
}

// Value reads one of the bucket's storage values.
func (c *StorageCell) Value(slot int) xenon.Word {
	begin := c.slotOffset(slot)
	return xenon.Word(c.record.Data[begin : begin+32])
}

// SetValue writes one of the bucket's storage values.
func (c *StorageCell) SetValue(slot int, value xenon.Word) {
	begin := c.slotOffset(slot)
	copy(c.record.Data[begin:], value[:])
}

func (c *StorageCell) slotOffset(slot int) int {
	if slot < 0 || slot >= CellValuesPerBucket {
		panic(fmt.Sprintf("storage cell slot %d out of range", slot))
	}
	return cellValuesOffset + slot*32
}
