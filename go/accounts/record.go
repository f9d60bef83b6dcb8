// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package accounts provides the typed views over raw storage records and the
// account-storage facade consulted by interpreter backends. Every view
// validates the record's owner, discriminant tag and minimum size on
// construction and reads the raw bytes on every access, so a view always
// reflects the latest record state within the invocation.
package accounts

import (
	"github.com/Fantom-foundation/Xenon/go/ledger"
	"github.com/Fantom-foundation/Xenon/go/xenon"
)

// Discriminant tags of the typed-view kinds. A record's first data byte
// holds the tag, the second the layout version of the tagged view.
const (
	TagEmpty          byte = 0
	TagState          byte = 23
	TagStateFinalized byte = 32
	TagStorageCell    byte = 43
	TagHolder         byte = 52
	TagBalance        byte = 60
	TagContract       byte = 70
	TagTreasury       byte = 80
)

const prefixLen = 2

// Layout versions, one per tagged view.
const (
	balanceVersion   byte = 0
	contractVersion  byte = 0
	cellVersion      byte = 0
	holderVersion    byte = 0
	stateVersion     byte = 0
	finalizedVersion byte = 0
	treasuryVersion  byte = 0
)

// Tag returns the discriminant tag of a record after checking that the
// record belongs to the program and is large enough to carry a prefix.
func Tag(program xenon.RecordKey, record *ledger.Record) (byte, error) {
	if record.Owner != program {
		return 0, xenon.AccountInvalidOwnerError(record.Key, program)
	}
	if len(record.Data) < prefixLen {
		return 0, xenon.AccountInvalidDataError(record.Key)
	}
	return record.Data[0], nil
}

func validateTag(program xenon.RecordKey, record *ledger.Record, tag byte) error {
	got, err := Tag(program, record)
	if err != nil {
		return err
	}
	if got != tag {
		return xenon.AccountInvalidTagError(record.Key, got, tag)
	}
	return nil
}

func setTag(program xenon.RecordKey, record *ledger.Record, tag, version byte) error {
	if record.Owner != program {
		return xenon.AccountInvalidOwnerError(record.Key, program)
	}
	if len(record.Data) < prefixLen {
		return xenon.AccountInvalidDataError(record.Key)
	}
	record.Data[0] = tag
	record.Data[1] = version
	return nil
}

// claim takes ownership of an unowned record and sizes it for a new typed
// view. Records already owned by another program are rejected.
func claim(program xenon.RecordKey, record *ledger.Record, size int) error {
	if record.Owner != ledger.SystemOwner {
		return xenon.AccountInvalidOwnerError(record.Key, ledger.SystemOwner)
	}
	record.Owner = program
	if len(record.Data) < size {
		record.Resize(size)
	}
	return nil
}
