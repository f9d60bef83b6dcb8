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
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/Fantom-foundation/Xenon/go/accounts"
	"github.com/Fantom-foundation/Xenon/go/ledger"
)

var CollectCmd = cli.Command{
	Action: doCollect,
	Name:   "collect",
	Usage:  "Sweep an indexed treasury record into the main treasury",
	Flags: []cli.Flag{
		backendFlag,
		pathFlag,
		programFlag,
		&cli.UintFlag{
			Name:     "index",
			Usage:    "treasury pool index to collect",
			Required: true,
		},
	},
}

func doCollect(context *cli.Context) error {
	program, err := programKey(context)
	if err != nil {
		return err
	}
	index := uint32(context.Uint("index"))
	if index >= accounts.TreasuryPoolSize {
		return fmt.Errorf("treasury index %d out of pool range", index)
	}

	reader, err := openReader(context)
	if err != nil {
		return err
	}
	defer reader.Close()
	writer, ok := reader.(ledger.Writer)
	if !ok {
		return fmt.Errorf("backend does not support writes")
	}

	indexedRecord, err := reader.GetRecord(accounts.TreasuryKey(program, index))
	if err != nil {
		return err
	}
	indexedRecord.Writable = true
	indexed, err := accounts.TreasuryFromRecord(program, indexedRecord)
	if err != nil {
		return err
	}

	mainRecord, err := reader.GetRecord(accounts.TreasuryKey(program, accounts.MainTreasuryIndex))
	if err != nil {
		return err
	}
	mainRecord.Writable = true
	main, err := accounts.TreasuryFromRecord(program, mainRecord)
	if err != nil {
		return err
	}

	moved, err := indexed.Drain(main)
	if err != nil {
		return err
	}
	if err := writer.PutRecord(indexedRecord); err != nil {
		return err
	}
	if err := writer.PutRecord(mainRecord); err != nil {
		return err
	}
	fmt.Printf("collected %v from treasury %d\n", moved, index)
	return nil
}
