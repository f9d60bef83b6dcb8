// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package execution hosts end-to-end scenarios driving full transactions
// through the invocation wire interface, the engine and the typed storage
// records, the way an operator would issue them against the ledger.
package execution

import (
	"bytes"
	"encoding/binary"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/Fantom-foundation/Xenon/go/accounts"
	"github.com/Fantom-foundation/Xenon/go/engine"
	"github.com/Fantom-foundation/Xenon/go/instruction"
	"github.com/Fantom-foundation/Xenon/go/ledger"
	"github.com/Fantom-foundation/Xenon/go/xenon"
	"github.com/holiman/uint256"
)

var (
	scenarioProgram  = xenon.RecordKey{0xe0}
	scenarioOperator = xenon.RecordKey{0xe1}
)

const scenarioChain = 250

// Scenario is one full transaction driven through the wire interface. The
// machine runs Steps interpreter steps; each invocation carries the next
// entry of Budgets (the last entry is reused until the transaction ends).
type Scenario struct {
	Name     string
	Steps    uint64
	GasPerOp uint64
	GasLimit uint64
	GasPrice uint64
	Value    uint64
	Fund     uint64
	Budgets  []uint64

	// CancelAfter aborts the transaction after that many invocations.
	CancelAfter int

	WantExit          xenon.ExitKind
	WantTargetBalance uint64
	WantNonce         uint64
}

func (s *Scenario) Run(t *testing.T) {
	key, err := crypto.ToECDSA(bytes.Repeat([]byte{0x2a}, 32))
	if err != nil {
		t.Fatalf("failed to build signing key: %v", err)
	}
	origin := xenon.Address(crypto.PubkeyToAddress(key.PublicKey))
	target := xenon.Address{0xfe, 0x01}

	gethTarget := common.BytesToAddress(target[:])
	signed, err := types.SignTx(types.NewTx(&types.LegacyTx{
		Nonce:    0,
		GasPrice: big.NewInt(int64(s.GasPrice)),
		Gas:      s.GasLimit,
		To:       &gethTarget,
		Value:    big.NewInt(int64(s.Value)),
	}), types.LatestSignerForChainID(big.NewInt(scenarioChain)), key)
	if err != nil {
		t.Fatalf("failed to sign transaction: %v", err)
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		t.Fatalf("failed to encode transaction: %v", err)
	}
	trx, err := xenon.DecodeTransaction(raw)
	if err != nil {
		t.Fatalf("failed to decode transaction: %v", err)
	}

	keys := accounts.NewKeysCache(scenarioProgram)
	holder := &ledger.Record{Key: xenon.RecordKey{0xe2}, Writable: true}
	operator := &ledger.Record{Key: scenarioOperator, Signer: true, Writable: true}
	set, err := ledger.NewRecordSet(operator, []*ledger.Record{
		holder,
		{Key: keys.BalanceKey(origin, scenarioChain), Writable: true},
		{Key: keys.BalanceKey(target, scenarioChain), Writable: true},
		{Key: keys.ContractKey(target), Writable: true},
		{Key: keys.CellKey(target, xenon.Word{}), Writable: true},
		{Key: accounts.TreasuryKey(scenarioProgram, 0), Writable: true},
		{Key: accounts.TreasuryKey(scenarioProgram, accounts.MainTreasuryIndex), Writable: true},
	})
	if err != nil {
		t.Fatalf("failed to create record set: %v", err)
	}
	storage := accounts.NewStorage(scenarioProgram, set)
	balance, err := storage.EnsureBalance(origin, scenarioChain)
	if err != nil {
		t.Fatalf("failed to create origin balance: %v", err)
	}
	if err := balance.Mint(uint256.NewInt(s.Fund)); err != nil {
		t.Fatalf("failed to fund origin: %v", err)
	}
	if _, err := accounts.NewHolderRecord(scenarioProgram, holder, scenarioOperator, 0); err != nil {
		t.Fatalf("failed to create holder: %v", err)
	}

	eng, err := engine.New(engine.Config{
		Program: scenarioProgram,
		ChainID: scenarioChain,
		Factory: &scriptedFactory{total: s.Steps, gasPerOp: s.GasPerOp},
	})
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	processor, err := instruction.NewProcessor(instruction.Config{
		Program: scenarioProgram,
		Engine:  eng,
	})
	if err != nil {
		t.Fatalf("failed to create processor: %v", err)
	}

	// Stage the payload through holder writes, one chunk per invocation.
	const chunkSize = 64
	for offset := 0; offset < len(raw); offset += chunkSize {
		end := min(offset+chunkSize, len(raw))
		input := []byte{byte(instruction.HolderWrite)}
		input = append(input, trx.Hash[:]...)
		input = binary.LittleEndian.AppendUint64(input, uint64(offset))
		input = append(input, raw[offset:end]...)
		if _, err := processor.Process(set, input); err != nil {
			t.Fatalf("holder_write failed: %v", err)
		}
	}

	step := func(budget uint64) []byte {
		input := []byte{byte(instruction.StepFromHolder)}
		input = binary.LittleEndian.AppendUint32(input, 0)
		input = binary.LittleEndian.AppendUint32(input, uint32(budget))
		return append(input, trx.Hash[:]...)
	}
	budget := func(invocation int) uint64 {
		if invocation < len(s.Budgets) {
			return s.Budgets[invocation]
		}
		return s.Budgets[len(s.Budgets)-1]
	}

	var status xenon.ExitKind
	for invocation := 0; ; invocation++ {
		if s.CancelAfter > 0 && invocation == s.CancelAfter {
			input := []byte{byte(instruction.Cancel)}
			input = binary.LittleEndian.AppendUint32(input, 0)
			input = append(input, trx.Hash[:]...)
			if _, err := processor.Process(set, input); err != nil {
				t.Fatalf("cancel failed: %v", err)
			}
			status = xenon.ExitRevert
			break
		}
		result, err := processor.Process(set, step(budget(invocation)))
		if err != nil {
			t.Fatalf("invocation %d failed: %v", invocation, err)
		}
		if result.Done {
			status = result.Status.Kind
			break
		}
	}

	if want, got := s.WantExit, status; want != got {
		t.Errorf("unexpected exit, want %v, got %v", want, got)
	}

	targetBalance, err := storage.Balance(target, scenarioChain)
	if err != nil {
		t.Fatalf("failed to read target balance: %v", err)
	}
	if want := uint256.NewInt(s.WantTargetBalance); !want.Eq(targetBalance) {
		t.Errorf("unexpected target balance, want %v, got %v", want, targetBalance)
	}
	nonce, err := storage.Nonce(origin, scenarioChain)
	if err != nil {
		t.Fatalf("failed to read nonce: %v", err)
	}
	if want, got := s.WantNonce, nonce; want != got {
		t.Errorf("unexpected origin nonce, want %d, got %d", want, got)
	}

	// No native value was created or destroyed.
	total := new(uint256.Int)
	total.Add(total, targetBalance)
	originBalance, err := storage.Balance(origin, scenarioChain)
	if err != nil {
		t.Fatalf("failed to read origin balance: %v", err)
	}
	total.Add(total, originBalance)
	treasuryRecord, err := set.Get(accounts.TreasuryKey(scenarioProgram, 0))
	if err != nil {
		t.Fatalf("failed to fetch treasury record: %v", err)
	}
	if treasuryRecord.Owner != ledger.SystemOwner {
		treasury, err := accounts.TreasuryFromRecord(scenarioProgram, treasuryRecord)
		if err != nil {
			t.Fatalf("failed to open treasury record: %v", err)
		}
		total.Add(total, treasury.Balance())
	}
	if want := uint256.NewInt(s.Fund); !want.Eq(total) {
		t.Errorf("value not conserved, started with %v, ended with %v", want, total)
	}
}
