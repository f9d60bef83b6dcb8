// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package engine

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/mock/gomock"
	"pgregory.net/rand"

	"github.com/Fantom-foundation/Xenon/go/accounts"
	"github.com/Fantom-foundation/Xenon/go/arena"
	"github.com/Fantom-foundation/Xenon/go/ledger"
	"github.com/Fantom-foundation/Xenon/go/xenon"
	"github.com/holiman/uint256"
)

// fakeMachine is a deterministic, resumable stand-in for an interpreter.
// Its program is fixed: deploy code to the target on the first step, write
// one storage slot per middle step, and transfer the transaction value on
// the last step. Each step costs gasPerOp gas.
type fakeMachine struct {
	origin   xenon.Address
	target   xenon.Address
	value    *uint256.Int
	db       xenon.Database
	pc       uint64
	total    uint64
	gasPerOp uint64
}

func (m *fakeMachine) Execute(steps uint64) (xenon.ExitStatus, uint64, error) {
	executed := uint64(0)
	for executed < steps && m.pc < m.total {
		if err := m.step(); err != nil {
			return xenon.ExitStatus{}, executed, err
		}
		m.pc++
		executed++
	}
	if m.pc == m.total {
		return xenon.ExitStatus{Kind: xenon.ExitStop}, executed, nil
	}
	return xenon.ExitStatus{Kind: xenon.ExitStepLimit}, executed, nil
}

func (m *fakeMachine) step() error {
	chain := m.db.DefaultChainID()
	switch m.pc {
	case 0:
		return m.db.SetCode(m.target, chain, []byte{0xfe})
	case m.total - 1:
		return m.db.Transfer(m.origin, m.target, chain, m.value)
	default:
		return m.db.SetStorage(m.target, uint256.NewInt(m.pc), xenon.Word{30: byte(m.pc >> 8), 31: byte(m.pc)})
	}
}

func (m *fakeMachine) GasUsed() *uint256.Int {
	return uint256.NewInt(m.pc * m.gasPerOp)
}

const fakeSnapshotSize = 20 + 20 + 32 + 8 + 8 + 8

func (m *fakeMachine) Snapshot(a *arena.Arena) (uint32, error) {
	offset, err := a.Alloc(fakeSnapshotSize, 8)
	if err != nil {
		return 0, err
	}
	view, err := a.Bytes(offset, fakeSnapshotSize)
	if err != nil {
		return 0, err
	}
	copy(view[0:], m.origin[:])
	copy(view[20:], m.target[:])
	value := m.value.Bytes32()
	copy(view[40:], value[:])
	binary.LittleEndian.PutUint64(view[72:], m.pc)
	binary.LittleEndian.PutUint64(view[80:], m.total)
	binary.LittleEndian.PutUint64(view[88:], m.gasPerOp)
	return offset, nil
}

type fakeFactory struct {
	total    uint64
	gasPerOp uint64
}

func (f *fakeFactory) New(trx *xenon.Transaction, origin xenon.Address, db xenon.Database, _ xenon.EventListener) (xenon.Machine, error) {
	return &fakeMachine{
		origin:   origin,
		target:   *trx.To,
		value:    trx.Value.Clone(),
		db:       db,
		total:    f.total,
		gasPerOp: f.gasPerOp,
	}, nil
}

func (f *fakeFactory) Restore(a *arena.Arena, offset uint32, db xenon.Database, _ xenon.EventListener) (xenon.Machine, error) {
	view, err := a.Bytes(offset, fakeSnapshotSize)
	if err != nil {
		return nil, err
	}
	m := &fakeMachine{db: db}
	copy(m.origin[:], view[0:])
	copy(m.target[:], view[20:])
	m.value = new(uint256.Int).SetBytes32(view[40:72])
	m.pc = binary.LittleEndian.Uint64(view[72:])
	m.total = binary.LittleEndian.Uint64(view[80:])
	m.gasPerOp = binary.LittleEndian.Uint64(view[88:])
	return m, nil
}

func signerAddress(t *testing.T, keyByte byte) xenon.Address {
	t.Helper()
	key, err := crypto.ToECDSA(bytes.Repeat([]byte{keyByte}, 32))
	if err != nil {
		t.Fatalf("failed to build signing key: %v", err)
	}
	return xenon.Address(crypto.PubkeyToAddress(key.PublicKey))
}

func newSignedTransaction(t *testing.T, keyByte byte, nonce uint64, to xenon.Address, value, gasPrice, gasLimit uint64) *xenon.Transaction {
	t.Helper()
	key, err := crypto.ToECDSA(bytes.Repeat([]byte{keyByte}, 32))
	if err != nil {
		t.Fatalf("failed to build signing key: %v", err)
	}
	target := common.BytesToAddress(to[:])
	signed, err := types.SignTx(types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: big.NewInt(int64(gasPrice)),
		Gas:      gasLimit,
		To:       &target,
		Value:    big.NewInt(int64(value)),
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
	return trx
}

// testEnv is one isolated transaction environment: an engine, a record set
// holding every record the transaction may touch, and the transaction
// itself.
type testEnv struct {
	engine  *Engine
	storage *accounts.Storage
	holder  *ledger.Record
	trx     *xenon.Transaction
	origin  xenon.Address
	target  xenon.Address
	fund    uint64
}

const (
	testGasPrice = 2
	testGasLimit = 200_000
	testValue    = 500
	testFund     = 1_000_000
)

func newTestEnv(t *testing.T, keyByte byte, total, gasPerOp uint64, treasuryIndex uint32) *testEnv {
	t.Helper()
	origin := signerAddress(t, keyByte)
	target := xenon.Address{0xbb, keyByte}
	keys := accounts.NewKeysCache(testProgram)

	holder := &ledger.Record{Key: xenon.RecordKey{0x51, keyByte}, Writable: true}
	records := []*ledger.Record{
		holder,
		{Key: keys.BalanceKey(origin, testChain), Writable: true},
		{Key: keys.BalanceKey(target, testChain), Writable: true},
		{Key: keys.ContractKey(target), Writable: true},
		{Key: keys.CellKey(target, xenon.Word{}), Writable: true},
		{Key: accounts.TreasuryKey(testProgram, treasuryIndex), Writable: true},
		{Key: accounts.TreasuryKey(testProgram, accounts.MainTreasuryIndex), Writable: true},
	}
	storage := newTestStorage(t, records...)
	fundAccount(t, storage, origin, testFund)
	if _, err := accounts.NewHolderRecord(testProgram, holder, testOperator, 0); err != nil {
		t.Fatalf("failed to create holder record: %v", err)
	}

	engine, err := New(Config{
		Program: testProgram,
		ChainID: testChain,
		Factory: &fakeFactory{total: total, gasPerOp: gasPerOp},
	})
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	return &testEnv{
		engine:  engine,
		storage: storage,
		holder:  holder,
		trx:     newSignedTransaction(t, keyByte, 0, target, testValue, testGasPrice, testGasLimit),
		origin:  origin,
		target:  target,
		fund:    testFund,
	}
}

func (env *testEnv) balanceOf(t *testing.T, address xenon.Address) *uint256.Int {
	t.Helper()
	balance, err := env.storage.Balance(address, testChain)
	if err != nil {
		t.Fatalf("failed to read balance of %v: %v", address, err)
	}
	return balance
}

func (env *testEnv) treasuryBalance(t *testing.T, index uint32) *uint256.Int {
	t.Helper()
	record, err := env.storage.Records().Get(accounts.TreasuryKey(testProgram, index))
	if err != nil {
		t.Fatalf("failed to fetch treasury record: %v", err)
	}
	if record.Owner == ledger.SystemOwner {
		return uint256.NewInt(0)
	}
	treasury, err := accounts.TreasuryFromRecord(testProgram, record)
	if err != nil {
		t.Fatalf("failed to open treasury record: %v", err)
	}
	return treasury.Balance()
}

// checkConservation verifies that no native value was created or destroyed
// across origin, target and the treasury pool.
func (env *testEnv) checkConservation(t *testing.T, treasuryIndex uint32) {
	t.Helper()
	total := new(uint256.Int)
	total.Add(total, env.balanceOf(t, env.origin))
	total.Add(total, env.balanceOf(t, env.target))
	total.Add(total, env.treasuryBalance(t, treasuryIndex))
	if want := uint256.NewInt(env.fund); !want.Eq(total) {
		t.Errorf("value not conserved: started with %v, ended with %v", want, total)
	}
}

func TestEngine_BeginCompletesSmallTransactionImmediately(t *testing.T) {
	const total, gasPerOp = 10, 100
	env := newTestEnv(t, 1, total, gasPerOp, 0)

	result, err := env.engine.Begin(env.storage, env.holder, env.trx, 0, 1_000_000)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if !result.Done {
		t.Fatalf("expected transaction to complete, still in flight")
	}
	if want, got := xenon.ExitStop, result.Status.Kind; want != got {
		t.Errorf("expected exit %v, got %v", want, got)
	}

	gasUsed := uint64(total*gasPerOp) + OverheadGas(len(env.trx.Raw())) + TreasuryContributionGas
	if want := uint256.NewInt(gasUsed); !want.Eq(result.GasUsed) {
		t.Errorf("expected gas used %v, got %v", want, result.GasUsed)
	}
	spent := gasUsed * testGasPrice
	if want := uint256.NewInt(testFund - spent - testValue); !want.Eq(env.balanceOf(t, env.origin)) {
		t.Errorf("expected origin balance %v, got %v", want, env.balanceOf(t, env.origin))
	}
	if want := uint256.NewInt(testValue); !want.Eq(env.balanceOf(t, env.target)) {
		t.Errorf("expected target balance %v, got %v", want, env.balanceOf(t, env.target))
	}
	if want := uint256.NewInt(spent); !want.Eq(env.treasuryBalance(t, 0)) {
		t.Errorf("expected treasury balance %v, got %v", want, env.treasuryBalance(t, 0))
	}
	nonce, err := env.storage.Nonce(env.origin, testChain)
	if err != nil {
		t.Fatalf("failed to read nonce: %v", err)
	}
	if want, got := uint64(1), nonce; want != got {
		t.Errorf("expected nonce %d, got %d", want, got)
	}
	env.checkConservation(t, 0)
}

func TestEngine_NonceMismatchIsRejectedBeforeAnyCharge(t *testing.T) {
	env := newTestEnv(t, 1, 10, 100, 0)
	wrong := newSignedTransaction(t, 1, 5, env.target, testValue, testGasPrice, testGasLimit)

	_, err := env.engine.Begin(env.storage, env.holder, wrong, 0, 1000)
	if !errors.Is(err, xenon.ErrInvalidNonce) {
		t.Fatalf("expected nonce mismatch error, got %v", err)
	}
	// Nothing was reserved.
	if want := uint256.NewInt(testFund); !want.Eq(env.balanceOf(t, env.origin)) {
		t.Errorf("expected untouched balance %v, got %v", want, env.balanceOf(t, env.origin))
	}
}

func TestEngine_SplitExecutionMatchesSingleRun(t *testing.T) {
	const total, gasPerOp = 200, 10

	single := newTestEnv(t, 1, total, gasPerOp, 0)
	result, err := single.engine.Begin(single.storage, single.holder, single.trx, 0, 1_000_000)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if !result.Done {
		t.Fatalf("expected single run to complete")
	}

	split := newTestEnv(t, 1, total, gasPerOp, 0)
	result, err = split.engine.Begin(split.storage, split.holder, split.trx, 0, 70)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	for !result.Done {
		result, err = split.engine.Continue(split.storage, split.holder, split.trx.Hash, 0, MinContinueSteps)
		if err != nil {
			t.Fatalf("Continue failed: %v", err)
		}
	}

	if want, got := single.balanceOf(t, single.origin), split.balanceOf(t, split.origin); !want.Eq(got) {
		t.Errorf("origin balances diverge: single %v, split %v", want, got)
	}
	if want, got := single.balanceOf(t, single.target), split.balanceOf(t, split.target); !want.Eq(got) {
		t.Errorf("target balances diverge: single %v, split %v", want, got)
	}
	if want, got := single.treasuryBalance(t, 0), split.treasuryBalance(t, 0); !want.Eq(got) {
		t.Errorf("treasury balances diverge: single %v, split %v", want, got)
	}
	for pc := uint64(1); pc < total-1; pc++ {
		index := uint256.NewInt(pc)
		want, err := single.storage.StorageValue(single.target, index)
		if err != nil {
			t.Fatalf("failed to read storage: %v", err)
		}
		got, err := split.storage.StorageValue(split.target, index)
		if err != nil {
			t.Fatalf("failed to read storage: %v", err)
		}
		if want != got {
			t.Errorf("storage slot %d diverges: single %v, split %v", pc, want, got)
		}
	}
	split.checkConservation(t, 0)
}

func TestEngine_RandomStepBudgetsConverge(t *testing.T) {
	const total, gasPerOp = 150, 10

	reference := newTestEnv(t, 1, total, gasPerOp, 0)
	result, err := reference.engine.Begin(reference.storage, reference.holder, reference.trx, 0, 1_000_000)
	if err != nil || !result.Done {
		t.Fatalf("reference run did not complete: %v", err)
	}

	r := rand.New(42)
	for trial := 0; trial < 10; trial++ {
		env := newTestEnv(t, 1, total, gasPerOp, 0)
		result, err := env.engine.Begin(env.storage, env.holder, env.trx, 0, r.Uint64n(100))
		if err != nil {
			t.Fatalf("Begin failed: %v", err)
		}
		for !result.Done {
			budget := MinContinueSteps + r.Uint64n(50)
			result, err = env.engine.Continue(env.storage, env.holder, env.trx.Hash, 0, budget)
			if err != nil {
				t.Fatalf("Continue failed: %v", err)
			}
		}
		if want, got := reference.balanceOf(t, reference.origin), env.balanceOf(t, env.origin); !want.Eq(got) {
			t.Errorf("origin balances diverge: reference %v, randomized %v", want, got)
		}
		if want, got := reference.treasuryBalance(t, 0), env.treasuryBalance(t, 0); !want.Eq(got) {
			t.Errorf("treasury balances diverge: reference %v, randomized %v", want, got)
		}
		env.checkConservation(t, 0)
	}
}

func TestEngine_ContinueRequiresExactHash(t *testing.T) {
	env := newTestEnv(t, 1, 200, 10, 0)
	if _, err := env.engine.Begin(env.storage, env.holder, env.trx, 0, 10); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	wrong := xenon.Hash{0xff}
	if _, err := env.engine.Continue(env.storage, env.holder, wrong, 0, MinContinueSteps); !errors.Is(err, xenon.ErrInvalidHash) {
		t.Fatalf("expected hash mismatch error, got %v", err)
	}

	// The transaction is still resumable with the right hash.
	result, err := env.engine.Continue(env.storage, env.holder, env.trx.Hash, 0, 1_000_000)
	if err != nil {
		t.Fatalf("Continue failed: %v", err)
	}
	if !result.Done {
		t.Errorf("expected transaction to complete")
	}
}

func TestEngine_ContinueEnforcesMinimumBudget(t *testing.T) {
	env := newTestEnv(t, 1, 200, 10, 0)
	if _, err := env.engine.Begin(env.storage, env.holder, env.trx, 0, 10); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if _, err := env.engine.Continue(env.storage, env.holder, env.trx.Hash, 0, MinContinueSteps-1); err == nil {
		t.Errorf("expected sub-minimum step budget to be rejected")
	}
}

func TestEngine_CancelRefundsUnspentAndBurnsNonce(t *testing.T) {
	const total, gasPerOp = 200, 10
	env := newTestEnv(t, 1, total, gasPerOp, 0)
	const beginSteps = 10
	if _, err := env.engine.Begin(env.storage, env.holder, env.trx, 0, beginSteps); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	if err := env.engine.Cancel(env.storage, env.holder, env.trx.Hash, 0); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	gasUsed := uint64(beginSteps*gasPerOp) + OverheadGas(len(env.trx.Raw())) + CancelGas
	spent := gasUsed * testGasPrice
	if want := uint256.NewInt(testFund - spent); !want.Eq(env.balanceOf(t, env.origin)) {
		t.Errorf("expected origin balance %v, got %v", want, env.balanceOf(t, env.origin))
	}
	if want := uint256.NewInt(spent); !want.Eq(env.treasuryBalance(t, 0)) {
		t.Errorf("expected treasury balance %v, got %v", want, env.treasuryBalance(t, 0))
	}
	nonce, err := env.storage.Nonce(env.origin, testChain)
	if err != nil {
		t.Fatalf("failed to read nonce: %v", err)
	}
	if want, got := uint64(1), nonce; want != got {
		t.Errorf("expected burned nonce %d, got %d", want, got)
	}
	// No state change of the dead transaction leaked through.
	if !env.balanceOf(t, env.target).IsZero() {
		t.Errorf("expected target to stay empty, got %v", env.balanceOf(t, env.target))
	}
	env.checkConservation(t, 0)
}

func TestEngine_CancelRequiresExactHash(t *testing.T) {
	env := newTestEnv(t, 1, 200, 10, 0)
	if _, err := env.engine.Begin(env.storage, env.holder, env.trx, 0, 10); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	before := env.balanceOf(t, env.origin)

	wrong := xenon.Hash{0xff}
	if err := env.engine.Cancel(env.storage, env.holder, wrong, 0); !errors.Is(err, xenon.ErrInvalidHash) {
		t.Fatalf("expected hash mismatch error, got %v", err)
	}
	if !before.Eq(env.balanceOf(t, env.origin)) {
		t.Errorf("failed cancel mutated the origin balance")
	}
	nonce, err := env.storage.Nonce(env.origin, testChain)
	if err != nil {
		t.Fatalf("failed to read nonce: %v", err)
	}
	if nonce != 0 {
		t.Errorf("failed cancel advanced the nonce to %d", nonce)
	}
}

func TestEngine_MachineFailureFailsTheInvocation(t *testing.T) {
	env := newTestEnv(t, 0x31, 10, 1, 0)
	ctrl := gomock.NewController(t)

	machine := xenon.NewMockMachine(ctrl)
	machine.EXPECT().GasUsed().Return(uint256.NewInt(0)).AnyTimes()
	machine.EXPECT().Execute(gomock.Any()).
		Return(xenon.ExitStatus{}, uint64(0), fmt.Errorf("machine crashed"))

	factory := xenon.NewMockMachineFactory(ctrl)
	factory.EXPECT().New(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(machine, nil)

	engine, err := New(Config{Program: testProgram, ChainID: testChain, Factory: factory})
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	if _, err := engine.Begin(env.storage, env.holder, env.trx, 0, 100); err == nil {
		t.Errorf("expected the machine failure to fail the invocation")
	}
}

func TestEngine_GasExhaustionForfeitsReservation(t *testing.T) {
	// Each step costs more than the whole remaining limit.
	const total, gasPerOp = 10, 100_000
	env := newTestEnv(t, 1, total, gasPerOp, 0)

	result, err := env.engine.Begin(env.storage, env.holder, env.trx, 0, 1_000_000)
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if want, got := xenon.ExitOutOfGas, result.Status.Kind; want != got {
		t.Fatalf("expected exit %v, got %v", want, got)
	}
	if !result.Done {
		t.Errorf("gas exhaustion must end the transaction")
	}

	reserved := uint64(testGasLimit * testGasPrice)
	if want := uint256.NewInt(reserved); !want.Eq(env.treasuryBalance(t, 0)) {
		t.Errorf("expected forfeited reservation %v in treasury, got %v", want, env.treasuryBalance(t, 0))
	}
	if want := uint256.NewInt(testFund - reserved); !want.Eq(env.balanceOf(t, env.origin)) {
		t.Errorf("expected origin balance %v, got %v", want, env.balanceOf(t, env.origin))
	}
	if !env.balanceOf(t, env.target).IsZero() {
		t.Errorf("failed transaction must not move value, target holds %v", env.balanceOf(t, env.target))
	}
	nonce, err := env.storage.Nonce(env.origin, testChain)
	if err != nil {
		t.Fatalf("failed to read nonce: %v", err)
	}
	if want, got := uint64(1), nonce; want != got {
		t.Errorf("expected burned nonce %d, got %d", want, got)
	}
	env.checkConservation(t, 0)
}

func TestEngine_IndependentTransactionsShareATreasury(t *testing.T) {
	const total, gasPerOp = 10, 100
	first := newTestEnv(t, 1, total, gasPerOp, 9)
	second := newTestEnv(t, 2, total, gasPerOp, 9)

	if _, err := first.engine.Begin(first.storage, first.holder, first.trx, 9, 1_000_000); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if _, err := second.engine.Begin(second.storage, second.holder, second.trx, 9, 1_000_000); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	firstSpent := (uint64(total*gasPerOp) + OverheadGas(len(first.trx.Raw())) + TreasuryContributionGas) * testGasPrice
	if want := uint256.NewInt(firstSpent); !want.Eq(first.treasuryBalance(t, 9)) {
		t.Errorf("expected first treasury balance %v, got %v", want, first.treasuryBalance(t, 9))
	}
	secondSpent := (uint64(total*gasPerOp) + OverheadGas(len(second.trx.Raw())) + TreasuryContributionGas) * testGasPrice
	if want := uint256.NewInt(secondSpent); !want.Eq(second.treasuryBalance(t, 9)) {
		t.Errorf("expected second treasury balance %v, got %v", want, second.treasuryBalance(t, 9))
	}
}

func TestEngine_ExecuteRunsAtomically(t *testing.T) {
	const total, gasPerOp = 10, 100
	env := newTestEnv(t, 1, total, gasPerOp, 0)

	result, err := env.engine.Execute(env.storage, env.trx, 0)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !result.Done {
		t.Fatalf("expected atomic execution to complete")
	}
	if want := uint256.NewInt(testValue); !want.Eq(env.balanceOf(t, env.target)) {
		t.Errorf("expected target balance %v, got %v", want, env.balanceOf(t, env.target))
	}
	nonce, err := env.storage.Nonce(env.origin, testChain)
	if err != nil {
		t.Fatalf("failed to read nonce: %v", err)
	}
	if want, got := uint64(1), nonce; want != got {
		t.Errorf("expected nonce %d, got %d", want, got)
	}
	env.checkConservation(t, 0)
}

func TestEngine_CollectTreasurySweepsIntoMain(t *testing.T) {
	const total, gasPerOp = 10, 100
	env := newTestEnv(t, 1, total, gasPerOp, 3)
	if _, err := env.engine.Begin(env.storage, env.holder, env.trx, 3, 1_000_000); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	collected := env.treasuryBalance(t, 3)
	if collected.IsZero() {
		t.Fatalf("expected the indexed treasury to hold the settlement")
	}

	moved, err := env.engine.CollectTreasury(env.storage, 3)
	if err != nil {
		t.Fatalf("CollectTreasury failed: %v", err)
	}
	if !collected.Eq(moved) {
		t.Errorf("expected %v moved, got %v", collected, moved)
	}
	if !env.treasuryBalance(t, 3).IsZero() {
		t.Errorf("expected indexed treasury to be empty after collection")
	}
	if !collected.Eq(env.treasuryBalance(t, accounts.MainTreasuryIndex)) {
		t.Errorf("expected main treasury to hold %v, got %v", collected, env.treasuryBalance(t, accounts.MainTreasuryIndex))
	}
}

func TestEngine_AutoTreasuryIndexIsStableAndBounded(t *testing.T) {
	hash := xenon.Hash{31: 7}
	if AutoTreasuryIndex(hash) != AutoTreasuryIndex(hash) {
		t.Errorf("index selection is not deterministic")
	}
	for i := byte(0); i < 32; i++ {
		if index := AutoTreasuryIndex(xenon.Hash{28: i, 31: i}); index >= accounts.TreasuryPoolSize {
			t.Errorf("index %d out of pool range", index)
		}
	}
}
