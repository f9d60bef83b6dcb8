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
	"fmt"
	"io"
	"sort"

	"golang.org/x/exp/maps"

	"github.com/Fantom-foundation/Xenon/go/accounts"
	"github.com/Fantom-foundation/Xenon/go/arena"
	"github.com/Fantom-foundation/Xenon/go/xenon"
	"github.com/holiman/uint256"
)

type accountKey struct {
	address xenon.Address
	chainID uint64
}

type slotKey struct {
	address xenon.Address
	index   xenon.Word
}

type codeEntry struct {
	chainID uint64
	code    []byte
}

// ExecState is the write overlay a machine executes against. Writes are
// collected here and only hit the underlying records when Apply is called
// at finalization, so a cancelled or reverted transaction leaves no trace.
// Between invocations the overlay is persisted into the state record's
// arena and reloaded by the next Continue.
type ExecState struct {
	storage  *accounts.Storage
	chainID  uint64
	listener xenon.EventListener

	balances map[accountKey]*uint256.Int
	nonces   map[accountKey]uint64
	codes    map[xenon.Address]codeEntry
	slots    map[slotKey]xenon.Word
}

func NewExecState(storage *accounts.Storage, chainID uint64, listener xenon.EventListener) *ExecState {
	return &ExecState{
		storage:  storage,
		chainID:  chainID,
		listener: listener,
		balances: map[accountKey]*uint256.Int{},
		nonces:   map[accountKey]uint64{},
		codes:    map[xenon.Address]codeEntry{},
		slots:    map[slotKey]xenon.Word{},
	}
}

// Rebind points the overlay at the record set and listener of the current
// invocation. Called after a Load, which restores the overlay content but
// not its invocation-scoped references.
func (s *ExecState) Rebind(storage *accounts.Storage, listener xenon.EventListener) {
	s.storage = storage
	s.listener = listener
}

func (s *ExecState) DefaultChainID() uint64 {
	return s.chainID
}

func (s *ExecState) Balance(address xenon.Address, chainID uint64) (*uint256.Int, error) {
	if balance, found := s.balances[accountKey{address, chainID}]; found {
		return balance.Clone(), nil
	}
	return s.storage.Balance(address, chainID)
}

func (s *ExecState) Nonce(address xenon.Address, chainID uint64) (uint64, error) {
	if nonce, found := s.nonces[accountKey{address, chainID}]; found {
		return nonce, nil
	}
	return s.storage.Nonce(address, chainID)
}

func (s *ExecState) Code(address xenon.Address) ([]byte, error) {
	if entry, found := s.codes[address]; found {
		return entry.code, nil
	}
	return s.storage.Code(address)
}

func (s *ExecState) CodeSize(address xenon.Address) (int, error) {
	code, err := s.Code(address)
	if err != nil {
		return 0, err
	}
	return len(code), nil
}

func (s *ExecState) SetCode(address xenon.Address, chainID uint64, code []byte) error {
	s.codes[address] = codeEntry{chainID: chainID, code: bytes.Clone(code)}
	return nil
}

func (s *ExecState) Storage(address xenon.Address, index *uint256.Int) (xenon.Word, error) {
	if value, found := s.slots[slotKey{address, xenon.Word(index.Bytes32())}]; found {
		return value, nil
	}
	return s.storage.StorageValue(address, index)
}

func (s *ExecState) SetStorage(address xenon.Address, index *uint256.Int, value xenon.Word) error {
	s.slots[slotKey{address, xenon.Word(index.Bytes32())}] = value
	s.listener.OnStorageWrite(address, index, value)
	return nil
}

func (s *ExecState) IncrementNonce(address xenon.Address, chainID uint64) error {
	nonce, err := s.Nonce(address, chainID)
	if err != nil {
		return err
	}
	if nonce == ^uint64(0) {
		return fmt.Errorf("%w: account %v", xenon.ErrNonceOverflow, address)
	}
	s.nonces[accountKey{address, chainID}] = nonce + 1
	return nil
}

func (s *ExecState) Transfer(from, to xenon.Address, chainID uint64, value *uint256.Int) error {
	if from == to {
		return nil
	}
	source, err := s.Balance(from, chainID)
	if err != nil {
		return err
	}
	if source.Lt(value) {
		return xenon.InsufficientBalanceError(from, chainID, value)
	}
	target, err := s.Balance(to, chainID)
	if err != nil {
		return err
	}
	grown, overflow := new(uint256.Int).AddOverflow(target, value)
	if overflow {
		return fmt.Errorf("%w: balance of %v", xenon.ErrIntegerOverflow, to)
	}
	shrunk := new(uint256.Int).Sub(source, value)
	s.setBalance(from, chainID, source, shrunk)
	s.setBalance(to, chainID, target, grown)
	return nil
}

func (s *ExecState) Burn(address xenon.Address, chainID uint64, value *uint256.Int) error {
	balance, err := s.Balance(address, chainID)
	if err != nil {
		return err
	}
	if balance.Lt(value) {
		return xenon.InsufficientBalanceError(address, chainID, value)
	}
	s.setBalance(address, chainID, balance, new(uint256.Int).Sub(balance, value))
	return nil
}

func (s *ExecState) setBalance(address xenon.Address, chainID uint64, prev, next *uint256.Int) {
	s.balances[accountKey{address, chainID}] = next
	s.listener.OnBalanceChange(address, chainID, prev, next)
}

// Apply writes the overlay through to the underlying records in a
// deterministic order, materializing balance and contract records as
// needed.
func (s *ExecState) Apply() error {
	balanceKeys := maps.Keys(s.balances)
	sort.Slice(balanceKeys, func(i, j int) bool { return lessAccount(balanceKeys[i], balanceKeys[j]) })
	for _, at := range balanceKeys {
		record, err := s.storage.EnsureBalance(at.address, at.chainID)
		if err != nil {
			return err
		}
		if err := applyBalance(record, s.balances[at]); err != nil {
			return err
		}
	}

	nonceKeys := maps.Keys(s.nonces)
	sort.Slice(nonceKeys, func(i, j int) bool { return lessAccount(nonceKeys[i], nonceKeys[j]) })
	for _, at := range nonceKeys {
		record, err := s.storage.EnsureBalance(at.address, at.chainID)
		if err != nil {
			return err
		}
		for record.Nonce() < s.nonces[at] {
			if err := record.IncrementNonce(); err != nil {
				return err
			}
		}
	}

	codeKeys := maps.Keys(s.codes)
	sort.Slice(codeKeys, func(i, j int) bool {
		return bytes.Compare(codeKeys[i][:], codeKeys[j][:]) < 0
	})
	for _, address := range codeKeys {
		entry := s.codes[address]
		contract, err := s.storage.OpenContract(address)
		if err != nil {
			return err
		}
		if contract == nil {
			if _, err := s.storage.CreateContract(address, entry.chainID, entry.code); err != nil {
				return err
			}
			continue
		}
		// Redeploy over an existing contract orphans its overflow cells.
		if err := contract.IncrementGeneration(); err != nil {
			return err
		}
		if err := contract.ReplaceCode(entry.code); err != nil {
			return err
		}
	}

	slotKeys := maps.Keys(s.slots)
	sort.Slice(slotKeys, func(i, j int) bool { return lessSlot(slotKeys[i], slotKeys[j]) })
	for _, at := range slotKeys {
		index := new(uint256.Int).SetBytes32(at.index[:])
		if err := s.storage.SetStorageValue(at.address, index, s.slots[at]); err != nil {
			return err
		}
	}
	return nil
}

// applyBalance moves a balance record to the target value by minting or
// burning the difference, preserving total supply tracking in the record.
func applyBalance(record *accounts.BalanceRecord, target *uint256.Int) error {
	current := record.Balance()
	switch current.Cmp(target) {
	case -1:
		return record.Mint(new(uint256.Int).Sub(target, current))
	case 1:
		return record.Burn(new(uint256.Int).Sub(current, target))
	default:
		return nil
	}
}

func lessAccount(a, b accountKey) bool {
	if c := bytes.Compare(a.address[:], b.address[:]); c != 0 {
		return c < 0
	}
	return a.chainID < b.chainID
}

func lessSlot(a, b slotKey) bool {
	if c := bytes.Compare(a.address[:], b.address[:]); c != 0 {
		return c < 0
	}
	return bytes.Compare(a.index[:], b.index[:]) < 0
}

// Save persists the overlay into the arena and returns the offset needed to
// reload it. The encoding is deterministic so repeated saves of the same
// overlay are byte-identical.
func (s *ExecState) Save(a *arena.Arena) (uint32, error) {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, s.chainID)

	balanceKeys := maps.Keys(s.balances)
	sort.Slice(balanceKeys, func(i, j int) bool { return lessAccount(balanceKeys[i], balanceKeys[j]) })
	binary.Write(&buf, binary.LittleEndian, uint32(len(balanceKeys)))
	for _, at := range balanceKeys {
		buf.Write(at.address[:])
		binary.Write(&buf, binary.LittleEndian, at.chainID)
		value := s.balances[at].Bytes32()
		buf.Write(value[:])
	}

	nonceKeys := maps.Keys(s.nonces)
	sort.Slice(nonceKeys, func(i, j int) bool { return lessAccount(nonceKeys[i], nonceKeys[j]) })
	binary.Write(&buf, binary.LittleEndian, uint32(len(nonceKeys)))
	for _, at := range nonceKeys {
		buf.Write(at.address[:])
		binary.Write(&buf, binary.LittleEndian, at.chainID)
		binary.Write(&buf, binary.LittleEndian, s.nonces[at])
	}

	codeKeys := maps.Keys(s.codes)
	sort.Slice(codeKeys, func(i, j int) bool {
		return bytes.Compare(codeKeys[i][:], codeKeys[j][:]) < 0
	})
	binary.Write(&buf, binary.LittleEndian, uint32(len(codeKeys)))
	for _, address := range codeKeys {
		entry := s.codes[address]
		buf.Write(address[:])
		binary.Write(&buf, binary.LittleEndian, entry.chainID)
		binary.Write(&buf, binary.LittleEndian, uint32(len(entry.code)))
		buf.Write(entry.code)
	}

	slotKeys := maps.Keys(s.slots)
	sort.Slice(slotKeys, func(i, j int) bool { return lessSlot(slotKeys[i], slotKeys[j]) })
	binary.Write(&buf, binary.LittleEndian, uint32(len(slotKeys)))
	for _, at := range slotKeys {
		buf.Write(at.address[:])
		buf.Write(at.index[:])
		value := s.slots[at]
		buf.Write(value[:])
	}

	encoded := buf.Bytes()
	// length prefix, so Load knows how much to view
	offset, err := a.Alloc(uint32(4+len(encoded)), 8)
	if err != nil {
		return 0, err
	}
	view, err := a.Bytes(offset, uint32(4+len(encoded)))
	if err != nil {
		return 0, err
	}
	binary.LittleEndian.PutUint32(view, uint32(len(encoded)))
	copy(view[4:], encoded)
	return offset, nil
}

// LoadExecState reloads an overlay persisted by Save and binds it to the
// current invocation's record set and listener.
func LoadExecState(a *arena.Arena, offset uint32, storage *accounts.Storage, listener xenon.EventListener) (*ExecState, error) {
	header, err := a.Bytes(offset, 4)
	if err != nil {
		return nil, err
	}
	length := binary.LittleEndian.Uint32(header)
	encoded, err := a.Bytes(offset+4, length)
	if err != nil {
		return nil, err
	}

	r := bytes.NewReader(encoded)
	var chainID uint64
	if err := binary.Read(r, binary.LittleEndian, &chainID); err != nil {
		return nil, fmt.Errorf("corrupted execution state: %w", err)
	}
	state := NewExecState(storage, chainID, listener)

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("corrupted execution state: %w", err)
	}
	for i := uint32(0); i < count; i++ {
		var at accountKey
		var value [32]byte
		if err := readAll(r, at.address[:]); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &at.chainID); err != nil {
			return nil, fmt.Errorf("corrupted execution state: %w", err)
		}
		if err := readAll(r, value[:]); err != nil {
			return nil, err
		}
		state.balances[at] = new(uint256.Int).SetBytes32(value[:])
	}

	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("corrupted execution state: %w", err)
	}
	for i := uint32(0); i < count; i++ {
		var at accountKey
		var nonce uint64
		if err := readAll(r, at.address[:]); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &at.chainID); err != nil {
			return nil, fmt.Errorf("corrupted execution state: %w", err)
		}
		if err := binary.Read(r, binary.LittleEndian, &nonce); err != nil {
			return nil, fmt.Errorf("corrupted execution state: %w", err)
		}
		state.nonces[at] = nonce
	}

	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("corrupted execution state: %w", err)
	}
	for i := uint32(0); i < count; i++ {
		var address xenon.Address
		var entry codeEntry
		var size uint32
		if err := readAll(r, address[:]); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &entry.chainID); err != nil {
			return nil, fmt.Errorf("corrupted execution state: %w", err)
		}
		if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
			return nil, fmt.Errorf("corrupted execution state: %w", err)
		}
		entry.code = make([]byte, size)
		if err := readAll(r, entry.code); err != nil {
			return nil, err
		}
		state.codes[address] = entry
	}

	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("corrupted execution state: %w", err)
	}
	for i := uint32(0); i < count; i++ {
		var at slotKey
		var value xenon.Word
		if err := readAll(r, at.address[:]); err != nil {
			return nil, err
		}
		if err := readAll(r, at.index[:]); err != nil {
			return nil, err
		}
		if err := readAll(r, value[:]); err != nil {
			return nil, err
		}
		state.slots[at] = value
	}
	return state, nil
}

func readAll(r *bytes.Reader, buf []byte) error {
	if _, err := io.ReadFull(r, buf); err != nil {
		return fmt.Errorf("corrupted execution state: %w", err)
	}
	return nil
}

var _ xenon.Database = (*ExecState)(nil)
