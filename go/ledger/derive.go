// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package ledger

import (
	"crypto/sha256"
	"encoding/binary"

	"filippo.io/edwards25519"
	"golang.org/x/crypto/sha3"

	"github.com/Fantom-foundation/Xenon/go/xenon"
)

// RecordSeedVersion is the leading seed byte of every derived record key.
// Bumping it re-homes all derived records, which is how incompatible layout
// migrations are rolled out.
const RecordSeedVersion = 0x03

const (
	derivedKeyDomain = "XenonDerivedRecord"
	storageCellSalt  = "XenonStorageCell"
	treasurySeed     = "treasury_pool"
)

// Derive computes the record key for the given program and seeds together
// with the bump seed that made it valid. The derivation is a pure function
// of its inputs: repeated derivation within and across invocations yields
// the same pair. A key is valid when it does not decode to an edwards25519
// point, so no signing capability can ever exist for it.
func Derive(program xenon.RecordKey, seeds ...[]byte) (xenon.RecordKey, uint8) {
	for bump := 255; bump >= 0; bump-- {
		candidate := deriveCandidate(program, seeds, uint8(bump))
		if offCurve(candidate) {
			return candidate, uint8(bump)
		}
	}
	// 256 hash candidates of which roughly half are off-curve; unreachable
	// for any practical seed set.
	panic("ledger: unable to derive an off-curve record key")
}

func deriveCandidate(program xenon.RecordKey, seeds [][]byte, bump uint8) xenon.RecordKey {
	h := sha256.New()
	for _, seed := range seeds {
		h.Write(seed)
	}
	h.Write([]byte{bump})
	h.Write(program[:])
	h.Write([]byte(derivedKeyDomain))
	return xenon.RecordKey(h.Sum(nil))
}

func offCurve(key xenon.RecordKey) bool {
	_, err := new(edwards25519.Point).SetBytes(key[:])
	return err != nil
}

// ContractSeeds is the seed set of a contract record.
func ContractSeeds(address xenon.Address) [][]byte {
	return [][]byte{{RecordSeedVersion}, address[:]}
}

// BalanceSeeds is the seed set of a balance record for one (address, chain)
// pair. The chain id is encoded as a 32-byte big-endian word.
func BalanceSeeds(address xenon.Address, chainID uint64) [][]byte {
	var chain [32]byte
	binary.BigEndian.PutUint64(chain[24:], chainID)
	return [][]byte{{RecordSeedVersion}, address[:], chain[:]}
}

// TreasurySeeds is the seed set of the indexed treasury record.
func TreasurySeeds(index uint32) [][]byte {
	var le [4]byte
	binary.LittleEndian.PutUint32(le[:], index)
	return [][]byte{[]byte(treasurySeed), le[:]}
}

// MainTreasurySeeds is the seed set of the consolidating treasury record.
func MainTreasurySeeds() [][]byte {
	return [][]byte{[]byte(treasurySeed)}
}

// DeriveStorageCell computes the key of the overflow storage bucket with
// the given base index, anchored at the owning contract's record key.
// Unlike Derive there is no bump search: the cell key is a plain subkey of
// its base.
func DeriveStorageCell(program, base xenon.RecordKey, bucket xenon.Word) xenon.RecordKey {
	sub := sha3.NewLegacyKeccak256()
	sub.Write([]byte(storageCellSalt))
	sub.Write(bucket[:])

	h := sha256.New()
	h.Write(base[:])
	h.Write(sub.Sum(nil))
	h.Write(program[:])
	return xenon.RecordKey(h.Sum(nil))
}
