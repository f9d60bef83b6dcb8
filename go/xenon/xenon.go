// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package xenon defines the public contract of the Xenon transaction engine:
// the value types shared by all components, the Database interface consumed
// by interpreter machines, the Machine interface implemented by external
// interpreters, and the error taxonomy surfaced to invocation callers.
package xenon

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Address represents the 160-bit (20 bytes) address of an Ethereum account.
type Address [20]byte

// Hash represents the 256-bit (32 bytes) hash of a transaction, code or
// similar cryptographic summary information.
type Hash [32]byte

// Word represents an arbitrary 256-bit (32 byte) word of EVM storage.
type Word [32]byte

// RecordKey addresses one storage record on the host ledger.
type RecordKey [32]byte

func (a Address) String() string {
	return fmt.Sprintf("0x%x", a[:])
}

func (a Address) MarshalText() ([]byte, error) {
	return bytesToText(a[:])
}

func (a *Address) UnmarshalText(data []byte) error {
	return textToBytes(a[:], data)
}

func (h Hash) String() string {
	return fmt.Sprintf("0x%x", h[:])
}

func (h Hash) MarshalText() ([]byte, error) {
	return bytesToText(h[:])
}

func (h *Hash) UnmarshalText(data []byte) error {
	return textToBytes(h[:], data)
}

func (w Word) String() string {
	return fmt.Sprintf("0x%x", w[:])
}

func (k RecordKey) String() string {
	return fmt.Sprintf("0x%x", k[:])
}

func (k RecordKey) MarshalText() ([]byte, error) {
	return bytesToText(k[:])
}

func (k *RecordKey) UnmarshalText(data []byte) error {
	return textToBytes(k[:], data)
}

func bytesToText(data []byte) ([]byte, error) {
	return []byte(fmt.Sprintf("0x%x", data)), nil
}

func textToBytes(trg []byte, data []byte) error {
	s := string(data)
	if !strings.HasPrefix(s, "0x") {
		return fmt.Errorf("invalid format, does not start with 0x: %v", s)
	}
	data, err := hex.DecodeString(s[2:])
	if err != nil {
		return err
	}
	if want, got := len(trg), len(data); want != got {
		return fmt.Errorf("invalid format, wanted %d bytes, got %d", want, got)
	}
	copy(trg, data)
	return nil
}
