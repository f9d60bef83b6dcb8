// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package tracing provides the closed set of execution event listeners: a
// no-op sink, a structured logger, a state-diff collector and a pre-state
// collector. Listeners observe execution; they never influence it.
package tracing

import (
	"fmt"

	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"

	"github.com/Fantom-foundation/Xenon/go/xenon"
)

// NewListener selects a listener by name. The set of names is fixed;
// unknown names are an error, not a silent no-op.
func NewListener(name string) (xenon.EventListener, error) {
	switch name {
	case "", "nop":
		return NewNopListener(), nil
	case "logger":
		return NewLogListener(log.New("module", "tracer")), nil
	case "statediff":
		return NewStateDiffListener(), nil
	case "prestate":
		return NewPrestateListener(), nil
	default:
		return nil, fmt.Errorf("unknown tracer %q", name)
	}
}

type nopListener struct{}

// NewNopListener returns the listener used when tracing is disabled.
func NewNopListener() xenon.EventListener {
	return nopListener{}
}

func (nopListener) OnTransactionStart(xenon.Hash, xenon.Address)                      {}
func (nopListener) OnSteps(uint64)                                                    {}
func (nopListener) OnStorageWrite(xenon.Address, *uint256.Int, xenon.Word)            {}
func (nopListener) OnBalanceChange(xenon.Address, uint64, *uint256.Int, *uint256.Int) {}
func (nopListener) OnTransactionEnd(xenon.Hash, xenon.ExitStatus, *uint256.Int)       {}

type logListener struct {
	log log.Logger
}

// NewLogListener returns a listener writing one structured log line per
// event.
func NewLogListener(logger log.Logger) xenon.EventListener {
	return &logListener{log: logger}
}

func (l *logListener) OnTransactionStart(hash xenon.Hash, origin xenon.Address) {
	l.log.Info("transaction start", "hash", hash, "origin", origin)
}

func (l *logListener) OnSteps(executed uint64) {
	l.log.Debug("steps executed", "steps", executed)
}

func (l *logListener) OnStorageWrite(address xenon.Address, index *uint256.Int, value xenon.Word) {
	l.log.Debug("storage write", "address", address, "index", index, "value", value)
}

func (l *logListener) OnBalanceChange(address xenon.Address, chainID uint64, prev, next *uint256.Int) {
	l.log.Debug("balance change", "address", address, "chain", chainID, "from", prev, "to", next)
}

func (l *logListener) OnTransactionEnd(hash xenon.Hash, status xenon.ExitStatus, gasUsed *uint256.Int) {
	l.log.Info("transaction end", "hash", hash, "status", status.Kind, "gasUsed", gasUsed)
}
