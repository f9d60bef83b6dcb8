// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package instruction

import (
	"bytes"
	"encoding/binary"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/Fantom-foundation/Xenon/go/accounts"
	"github.com/Fantom-foundation/Xenon/go/arena"
	"github.com/Fantom-foundation/Xenon/go/engine"
	"github.com/Fantom-foundation/Xenon/go/ledger"
	"github.com/Fantom-foundation/Xenon/go/xenon"
	"github.com/holiman/uint256"
)

var (
	testProgram  = xenon.RecordKey{0x42}
	testOperator = xenon.RecordKey{0x07}
)

const testChain = 250

// transferMachine idles for a fixed number of steps and transfers the
// transaction value on the last one. Good enough to drive the dispatch
// paths; opcode semantics live elsewhere.
type transferMachine struct {
	origin xenon.Address
	target xenon.Address
	value  *uint256.Int
	db     xenon.Database
	pc     uint64
	total  uint64
}

const machineGasPerStep = 10

func (m *transferMachine) Execute(steps uint64) (xenon.ExitStatus, uint64, error) {
	executed := uint64(0)
	for executed < steps && m.pc < m.total {
		if m.pc == m.total-1 {
			chain := m.db.DefaultChainID()
			if err := m.db.Transfer(m.origin, m.target, chain, m.value); err != nil {
				return xenon.ExitStatus{}, executed, err
			}
		}
		m.pc++
		executed++
	}
	if m.pc == m.total {
		return xenon.ExitStatus{Kind: xenon.ExitStop}, executed, nil
	}
	return xenon.ExitStatus{Kind: xenon.ExitStepLimit}, executed, nil
}

func (m *transferMachine) GasUsed() *uint256.Int {
	return uint256.NewInt(m.pc * machineGasPerStep)
}

const transferSnapshotSize = 20 + 20 + 32 + 8 + 8

func (m *transferMachine) Snapshot(a *arena.Arena) (uint32, error) {
	offset, err := a.Alloc(transferSnapshotSize, 8)
	if err != nil {
		return 0, err
	}
	view, err := a.Bytes(offset, transferSnapshotSize)
	if err != nil {
		return 0, err
	}
	copy(view[0:], m.origin[:])
	copy(view[20:], m.target[:])
	value := m.value.Bytes32()
	copy(view[40:], value[:])
	binary.LittleEndian.PutUint64(view[72:], m.pc)
	binary.LittleEndian.PutUint64(view[80:], m.total)
	return offset, nil
}

type transferFactory struct {
	total uint64
}

func (f *transferFactory) New(trx *xenon.Transaction, origin xenon.Address, db xenon.Database, _ xenon.EventListener) (xenon.Machine, error) {
	return &transferMachine{
		origin: origin,
		target: *trx.To,
		value:  trx.Value.Clone(),
		db:     db,
		total:  f.total,
	}, nil
}

func (f *transferFactory) Restore(a *arena.Arena, offset uint32, db xenon.Database, _ xenon.EventListener) (xenon.Machine, error) {
	view, err := a.Bytes(offset, transferSnapshotSize)
	if err != nil {
		return nil, err
	}
	m := &transferMachine{db: db}
	copy(m.origin[:], view[0:])
	copy(m.target[:], view[20:])
	m.value = new(uint256.Int).SetBytes32(view[40:72])
	m.pc = binary.LittleEndian.Uint64(view[72:])
	m.total = binary.LittleEndian.Uint64(view[80:])
	return m, nil
}

type testEnv struct {
	processor *Processor
	records   *ledger.RecordSet
	storage   *accounts.Storage
	holder    *ledger.Record
	trx       *xenon.Transaction
	origin    xenon.Address
	target    xenon.Address
}

const (
	testGasPrice = 2
	testGasLimit = 100_000
	testValue    = 700
	testFund     = 500_000
)

func newTestEnv(t *testing.T, totalSteps uint64) *testEnv {
	t.Helper()
	key, err := crypto.ToECDSA(bytes.Repeat([]byte{0x11}, 32))
	if err != nil {
		t.Fatalf("failed to build signing key: %v", err)
	}
	origin := xenon.Address(crypto.PubkeyToAddress(key.PublicKey))
	target := xenon.Address{0xcc, 0x01}

	gethTarget := common.BytesToAddress(target[:])
	signed, err := types.SignTx(types.NewTx(&types.LegacyTx{
		Nonce:    0,
		GasPrice: big.NewInt(testGasPrice),
		Gas:      testGasLimit,
		To:       &gethTarget,
		Value:    big.NewInt(testValue),
	}), types.LatestSignerForChainID(big.NewInt(testChain)), key)
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

	keys := accounts.NewKeysCache(testProgram)
	holder := &ledger.Record{Key: xenon.RecordKey{0x51}, Writable: true}
	if _, err := accounts.NewHolderRecord(testProgram, holder, testOperator, 0); err != nil {
		t.Fatalf("failed to claim holder record: %v", err)
	}
	operator := &ledger.Record{Key: testOperator, Signer: true, Writable: true}
	aux := []*ledger.Record{
		holder,
		{Key: keys.BalanceKey(origin, testChain), Writable: true},
		{Key: keys.BalanceKey(target, testChain), Writable: true},
		{Key: keys.ContractKey(target), Writable: true},
		{Key: accounts.TreasuryKey(testProgram, 0), Writable: true},
		{Key: accounts.TreasuryKey(testProgram, accounts.MainTreasuryIndex), Writable: true},
	}
	if auto := engine.AutoTreasuryIndex(trx.Hash); auto != 0 {
		aux = append(aux, &ledger.Record{Key: accounts.TreasuryKey(testProgram, auto), Writable: true})
	}
	set, err := ledger.NewRecordSet(operator, aux)
	if err != nil {
		t.Fatalf("failed to create record set: %v", err)
	}
	storage := accounts.NewStorage(testProgram, set)
	balance, err := storage.EnsureBalance(origin, testChain)
	if err != nil {
		t.Fatalf("failed to create origin balance: %v", err)
	}
	if err := balance.Mint(uint256.NewInt(testFund)); err != nil {
		t.Fatalf("failed to fund origin: %v", err)
	}

	eng, err := engine.New(engine.Config{
		Program: testProgram,
		ChainID: testChain,
		Factory: &transferFactory{total: totalSteps},
	})
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	processor, err := NewProcessor(Config{Program: testProgram, Engine: eng})
	if err != nil {
		t.Fatalf("failed to create processor: %v", err)
	}
	return &testEnv{
		processor: processor,
		records:   set,
		storage:   storage,
		holder:    holder,
		trx:       trx,
		origin:    origin,
		target:    target,
	}
}

func encodeInput(opcode Opcode, fields ...[]byte) []byte {
	input := []byte{byte(opcode)}
	for _, field := range fields {
		input = append(input, field...)
	}
	return input
}

func u32(v uint32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return buf[:]
}

func u64(v uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return buf[:]
}

func TestProcessor_RejectsEmptyAndUnknownInput(t *testing.T) {
	env := newTestEnv(t, 4)
	if _, err := env.processor.Process(env.records, nil); err == nil {
		t.Errorf("empty input must be rejected")
	}
	if _, err := env.processor.Process(env.records, []byte{0xee}); err == nil {
		t.Errorf("unknown opcode must be rejected")
	}
}

func TestProcessor_HolderLifecycle(t *testing.T) {
	env := newTestEnv(t, 4)

	// Recreate the holder from scratch through the wire interface.
	env.holder.Resize(0)
	env.holder.Owner = ledger.SystemOwner
	if _, err := env.processor.Process(env.records, encodeInput(HolderCreate)); err != nil {
		t.Fatalf("holder_create failed: %v", err)
	}

	// Assemble the payload in two out-of-order chunks.
	raw := env.trx.Raw()
	half := len(raw) / 2
	input := encodeInput(HolderWrite, env.trx.Hash[:], u64(uint64(half)), raw[half:])
	if _, err := env.processor.Process(env.records, input); err != nil {
		t.Fatalf("holder_write failed: %v", err)
	}
	input = encodeInput(HolderWrite, env.trx.Hash[:], u64(0), raw[:half])
	if _, err := env.processor.Process(env.records, input); err != nil {
		t.Fatalf("holder_write failed: %v", err)
	}

	holder, err := accounts.HolderFromRecord(testProgram, env.holder, testOperator)
	if err != nil {
		t.Fatalf("failed to open holder: %v", err)
	}
	if !bytes.Equal(holder.Payload(), raw) {
		t.Fatalf("assembled payload differs from the original")
	}

	if _, err := env.processor.Process(env.records, encodeInput(HolderDelete)); err != nil {
		t.Fatalf("holder_delete failed: %v", err)
	}
	if env.holder.Owner != ledger.SystemOwner || len(env.holder.Data) != 0 {
		t.Errorf("deleted holder was not released")
	}
}

func TestProcessor_HolderCreateReservesRequestedHeap(t *testing.T) {
	env := newTestEnv(t, 4)
	env.holder.Resize(0)
	env.holder.Owner = ledger.SystemOwner

	const heap = 4096
	if _, err := env.processor.Process(env.records, encodeInput(HolderCreate, u64(heap))); err != nil {
		t.Fatalf("holder_create failed: %v", err)
	}
	if len(env.holder.Data) < heap {
		t.Errorf("expected at least %d bytes of reserved space, record has %d", heap, len(env.holder.Data))
	}
}

func TestProcessor_HolderCreateRevivesAFinalizedRecord(t *testing.T) {
	env := newTestEnv(t, 8)

	step := encodeInput(StepFromData, u32(0), u32(engine.MinContinueSteps), env.trx.Raw())
	result, err := env.processor.Process(env.records, step)
	if err != nil {
		t.Fatalf("step_from_data failed: %v", err)
	}
	if !result.Done {
		t.Fatalf("transaction did not complete within one invocation")
	}

	if _, err := env.processor.Process(env.records, encodeInput(HolderCreate)); err != nil {
		t.Fatalf("holder_create on the finalized record failed: %v", err)
	}
	holder, err := accounts.HolderFromRecord(testProgram, env.holder, testOperator)
	if err != nil {
		t.Fatalf("revived record is not a valid holder: %v", err)
	}
	if len(holder.Payload()) != 0 {
		t.Errorf("revived holder must start empty, holds %d bytes", len(holder.Payload()))
	}
}

func TestProcessor_StepFromHolderRunsToCompletion(t *testing.T) {
	const totalSteps = 200
	env := newTestEnv(t, totalSteps)

	raw := env.trx.Raw()
	input := encodeInput(HolderWrite, env.trx.Hash[:], u64(0), raw)
	if _, err := env.processor.Process(env.records, input); err != nil {
		t.Fatalf("holder_write failed: %v", err)
	}

	step := encodeInput(StepFromHolder, u32(0), u32(engine.MinContinueSteps), env.trx.Hash[:])
	result, err := env.processor.Process(env.records, step)
	if err != nil {
		t.Fatalf("step_from_holder failed: %v", err)
	}
	invocations := 1
	for !result.Done {
		result, err = env.processor.Process(env.records, step)
		if err != nil {
			t.Fatalf("step_from_holder failed: %v", err)
		}
		invocations++
	}
	if invocations < 2 {
		t.Fatalf("expected the transaction to span several invocations")
	}
	if want, got := xenon.ExitStop, result.Status.Kind; want != got {
		t.Errorf("expected exit %v, got %v", want, got)
	}

	balance, err := env.storage.Balance(env.target, testChain)
	if err != nil {
		t.Fatalf("failed to read target balance: %v", err)
	}
	if want := uint256.NewInt(testValue); !want.Eq(balance) {
		t.Errorf("expected target balance %v, got %v", want, balance)
	}
}

func TestProcessor_StepFromHolderRejectsForeignHash(t *testing.T) {
	env := newTestEnv(t, 8)
	raw := env.trx.Raw()
	input := encodeInput(HolderWrite, env.trx.Hash[:], u64(0), raw)
	if _, err := env.processor.Process(env.records, input); err != nil {
		t.Fatalf("holder_write failed: %v", err)
	}

	wrong := xenon.Hash{0xff}
	step := encodeInput(StepFromHolder, u32(0), u32(engine.MinContinueSteps), wrong[:])
	if _, err := env.processor.Process(env.records, step); err == nil {
		t.Errorf("expected hash mismatch to be rejected")
	}
}

func TestProcessor_StepFromDataBeginsAndContinues(t *testing.T) {
	const totalSteps = 200
	env := newTestEnv(t, totalSteps)

	step := encodeInput(StepFromData, u32(0), u32(engine.MinContinueSteps), env.trx.Raw())
	result, err := env.processor.Process(env.records, step)
	if err != nil {
		t.Fatalf("step_from_data failed: %v", err)
	}
	for !result.Done {
		result, err = env.processor.Process(env.records, step)
		if err != nil {
			t.Fatalf("step_from_data failed: %v", err)
		}
	}
	if want, got := xenon.ExitStop, result.Status.Kind; want != got {
		t.Errorf("expected exit %v, got %v", want, got)
	}
}

func TestProcessor_StepFromDataClaimsAFreshRecord(t *testing.T) {
	env := newTestEnv(t, 8)
	env.holder.Resize(0)
	env.holder.Owner = ledger.SystemOwner

	step := encodeInput(StepFromData, u32(0), u32(engine.MinContinueSteps), env.trx.Raw())
	result, err := env.processor.Process(env.records, step)
	if err != nil {
		t.Fatalf("step_from_data on a fresh record failed: %v", err)
	}
	if !result.Done {
		t.Fatalf("transaction did not complete within one invocation")
	}
	if env.holder.Owner != testProgram {
		t.Errorf("the fresh record was not claimed by the program")
	}
}

func TestProcessor_AutoTreasuryIndexRoutesFees(t *testing.T) {
	env := newTestEnv(t, 8)

	input := encodeInput(ExecuteFromData, u32(AutoTreasury), env.trx.Raw())
	result, err := env.processor.Process(env.records, input)
	if err != nil {
		t.Fatalf("execute_from_data failed: %v", err)
	}
	if !result.Done {
		t.Fatalf("atomic execution did not complete")
	}

	index := engine.AutoTreasuryIndex(env.trx.Hash)
	record, err := env.records.Get(accounts.TreasuryKey(testProgram, index))
	if err != nil {
		t.Fatalf("failed to fetch treasury record: %v", err)
	}
	treasury, err := accounts.TreasuryFromRecord(testProgram, record)
	if err != nil {
		t.Fatalf("failed to open treasury record: %v", err)
	}
	if treasury.Balance().IsZero() {
		t.Errorf("hash-derived treasury %d received no fees", index)
	}
}

func TestProcessor_CancelKillsAnInFlightTransaction(t *testing.T) {
	const totalSteps = 200
	env := newTestEnv(t, totalSteps)

	step := encodeInput(StepFromData, u32(0), u32(engine.MinContinueSteps), env.trx.Raw())
	result, err := env.processor.Process(env.records, step)
	if err != nil {
		t.Fatalf("step_from_data failed: %v", err)
	}
	if result.Done {
		t.Fatalf("transaction completed before it could be cancelled")
	}

	cancel := encodeInput(Cancel, u32(0), env.trx.Hash[:])
	if _, err := env.processor.Process(env.records, cancel); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	// The dead transaction left no trace on the target.
	balance, err := env.storage.Balance(env.target, testChain)
	if err != nil {
		t.Fatalf("failed to read target balance: %v", err)
	}
	if !balance.IsZero() {
		t.Errorf("cancelled transaction moved value: %v", balance)
	}
	nonce, err := env.storage.Nonce(env.origin, testChain)
	if err != nil {
		t.Fatalf("failed to read nonce: %v", err)
	}
	if want, got := uint64(1), nonce; want != got {
		t.Errorf("expected burned nonce %d, got %d", want, got)
	}
}

func TestProcessor_ExecuteFromDataIsAtomic(t *testing.T) {
	env := newTestEnv(t, 8)

	input := encodeInput(ExecuteFromData, u32(0), env.trx.Raw())
	result, err := env.processor.Process(env.records, input)
	if err != nil {
		t.Fatalf("execute_from_data failed: %v", err)
	}
	if !result.Done {
		t.Fatalf("atomic execution did not complete")
	}
	balance, err := env.storage.Balance(env.target, testChain)
	if err != nil {
		t.Fatalf("failed to read target balance: %v", err)
	}
	if want := uint256.NewInt(testValue); !want.Eq(balance) {
		t.Errorf("expected target balance %v, got %v", want, balance)
	}
}

func TestProcessor_ExecuteFromHolderConsumesThePayload(t *testing.T) {
	env := newTestEnv(t, 8)
	raw := env.trx.Raw()
	input := encodeInput(HolderWrite, env.trx.Hash[:], u64(0), raw)
	if _, err := env.processor.Process(env.records, input); err != nil {
		t.Fatalf("holder_write failed: %v", err)
	}

	result, err := env.processor.Process(env.records, encodeInput(ExecuteFromHolder, u32(0)))
	if err != nil {
		t.Fatalf("execute_from_holder failed: %v", err)
	}
	if !result.Done {
		t.Fatalf("atomic execution did not complete")
	}

	holder, err := accounts.HolderFromRecord(testProgram, env.holder, testOperator)
	if err != nil {
		t.Fatalf("failed to open holder: %v", err)
	}
	if len(holder.Payload()) != 0 {
		t.Errorf("executed payload must be consumed, %d bytes remain", len(holder.Payload()))
	}
}

func TestProcessor_CreateBalanceClaimsTheRecord(t *testing.T) {
	env := newTestEnv(t, 4)
	other := xenon.Address{0xdd}
	keys := accounts.NewKeysCache(testProgram)
	record := &ledger.Record{Key: keys.BalanceKey(other, testChain), Writable: true}
	operator := &ledger.Record{Key: testOperator, Signer: true, Writable: true}
	set, err := ledger.NewRecordSet(operator, []*ledger.Record{record})
	if err != nil {
		t.Fatalf("failed to create record set: %v", err)
	}

	input := encodeInput(CreateBalance, other[:], u64(testChain))
	if _, err := env.processor.Process(set, input); err != nil {
		t.Fatalf("create_balance failed: %v", err)
	}
	if record.Owner != testProgram {
		t.Errorf("balance record was not claimed by the program")
	}
	if _, err := accounts.BalanceFromRecord(testProgram, record, &other); err != nil {
		t.Errorf("created record is not a valid balance view: %v", err)
	}
}

func TestProcessor_CollectTreasurySweeps(t *testing.T) {
	env := newTestEnv(t, 8)
	input := encodeInput(ExecuteFromData, u32(0), env.trx.Raw())
	if _, err := env.processor.Process(env.records, input); err != nil {
		t.Fatalf("execute_from_data failed: %v", err)
	}

	if _, err := env.processor.Process(env.records, encodeInput(CollectTreasury, u32(0))); err != nil {
		t.Fatalf("collect_treasury failed: %v", err)
	}
	record, err := env.records.Get(accounts.TreasuryKey(testProgram, 0))
	if err != nil {
		t.Fatalf("failed to fetch treasury record: %v", err)
	}
	treasury, err := accounts.TreasuryFromRecord(testProgram, record)
	if err != nil {
		t.Fatalf("failed to open treasury record: %v", err)
	}
	if !treasury.Balance().IsZero() {
		t.Errorf("indexed treasury still holds %v after collection", treasury.Balance())
	}
}
