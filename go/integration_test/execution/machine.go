// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package execution

import (
	"encoding/binary"

	"github.com/Fantom-foundation/Xenon/go/arena"
	"github.com/Fantom-foundation/Xenon/go/xenon"
	"github.com/holiman/uint256"
)

// scriptedMachine is the interpreter stand-in of the scenarios: it deploys
// code to the target, writes one storage slot per step, and transfers the
// transaction value on its last step. It persists and resumes through the
// arena like a real integration would.
type scriptedMachine struct {
	origin   xenon.Address
	target   xenon.Address
	value    *uint256.Int
	db       xenon.Database
	pc       uint64
	total    uint64
	gasPerOp uint64
}

func (m *scriptedMachine) Execute(steps uint64) (xenon.ExitStatus, uint64, error) {
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

func (m *scriptedMachine) step() error {
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

func (m *scriptedMachine) GasUsed() *uint256.Int {
	return uint256.NewInt(m.pc * m.gasPerOp)
}

const scriptedSnapshotSize = 20 + 20 + 32 + 8 + 8 + 8

func (m *scriptedMachine) Snapshot(a *arena.Arena) (uint32, error) {
	offset, err := a.Alloc(scriptedSnapshotSize, 8)
	if err != nil {
		return 0, err
	}
	view, err := a.Bytes(offset, scriptedSnapshotSize)
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

type scriptedFactory struct {
	total    uint64
	gasPerOp uint64
}

func (f *scriptedFactory) New(trx *xenon.Transaction, origin xenon.Address, db xenon.Database, _ xenon.EventListener) (xenon.Machine, error) {
	return &scriptedMachine{
		origin:   origin,
		target:   *trx.To,
		value:    trx.Value.Clone(),
		db:       db,
		total:    f.total,
		gasPerOp: f.gasPerOp,
	}, nil
}

func (f *scriptedFactory) Restore(a *arena.Arena, offset uint32, db xenon.Database, _ xenon.EventListener) (xenon.Machine, error) {
	view, err := a.Bytes(offset, scriptedSnapshotSize)
	if err != nil {
		return nil, err
	}
	m := &scriptedMachine{db: db}
	copy(m.origin[:], view[0:])
	copy(m.target[:], view[20:])
	m.value = new(uint256.Int).SetBytes32(view[40:72])
	m.pc = binary.LittleEndian.Uint64(view[72:])
	m.total = binary.LittleEndian.Uint64(view[80:])
	m.gasPerOp = binary.LittleEndian.Uint64(view[88:])
	return m, nil
}
