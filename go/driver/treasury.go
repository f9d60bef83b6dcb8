// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/Fantom-foundation/Xenon/go/accounts"
	"github.com/Fantom-foundation/Xenon/go/ledger"
)

var TreasuryCmd = cli.Command{
	Action: doTreasury,
	Name:   "treasury",
	Usage:  "List the balances of the treasury pool",
	Flags: []cli.Flag{
		backendFlag,
		pathFlag,
		programFlag,
	},
}

func doTreasury(context *cli.Context) error {
	program, err := programKey(context)
	if err != nil {
		return err
	}
	reader, err := openReader(context)
	if err != nil {
		return err
	}
	defer reader.Close()

	for index := uint32(0); index < accounts.TreasuryPoolSize; index++ {
		record, err := reader.GetRecord(accounts.TreasuryKey(program, index))
		if errors.Is(err, ledger.ErrRecordMissing) {
			continue
		}
		if err != nil {
			return err
		}
		view, err := accounts.TreasuryFromRecord(program, record)
		if err != nil {
			return err
		}
		if view.Balance().IsZero() {
			continue
		}
		fmt.Printf("%3d  %v\n", index, view.Balance())
	}

	record, err := reader.GetRecord(accounts.TreasuryKey(program, accounts.MainTreasuryIndex))
	if err == nil {
		view, err := accounts.TreasuryFromRecord(program, record)
		if err != nil {
			return err
		}
		fmt.Printf("main %v\n", view.Balance())
	} else if !errors.Is(err, ledger.ErrRecordMissing) {
		return err
	}
	return nil
}
