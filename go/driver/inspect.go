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
	"github.com/Fantom-foundation/Xenon/go/xenon"
)

var InspectCmd = cli.Command{
	Action:    doInspect,
	Name:      "inspect",
	Usage:     "Decode and print one storage record",
	ArgsUsage: "<record-key-hex>",
	Flags: []cli.Flag{
		backendFlag,
		pathFlag,
		programFlag,
	},
}

func doInspect(context *cli.Context) error {
	if context.Args().Len() != 1 {
		return fmt.Errorf("expected exactly one record key argument")
	}
	key, err := parseKey(context.Args().First())
	if err != nil {
		return err
	}
	program, err := programKey(context)
	if err != nil {
		return err
	}

	reader, err := openReader(context)
	if err != nil {
		return err
	}
	defer reader.Close()

	record, err := reader.GetRecord(key)
	if err != nil {
		return err
	}
	fmt.Printf("key:   %v\n", record.Key)
	fmt.Printf("owner: %v\n", record.Owner)
	fmt.Printf("size:  %d\n", len(record.Data))
	if record.Owner != program {
		fmt.Println("kind:  foreign record")
		return nil
	}
	return printTyped(program, record)
}

func printTyped(program xenon.RecordKey, record *ledger.Record) error {
	tag, err := accounts.Tag(program, record)
	if err != nil {
		return err
	}
	switch tag {
	case accounts.TagEmpty:
		fmt.Println("kind:  empty")
	case accounts.TagBalance:
		view, err := accounts.BalanceFromRecord(program, record, nil)
		if err != nil {
			return err
		}
		fmt.Println("kind:  balance")
		fmt.Printf("address: %v\n", view.Address())
		fmt.Printf("chain:   %d\n", view.ChainID())
		fmt.Printf("nonce:   %d\n", view.Nonce())
		fmt.Printf("balance: %v\n", view.Balance())
	case accounts.TagContract:
		view, err := accounts.ContractFromRecord(program, record)
		if err != nil {
			return err
		}
		fmt.Println("kind:  contract")
		fmt.Printf("chain:      %d\n", view.ChainID())
		fmt.Printf("generation: %d\n", view.Generation())
		fmt.Printf("code size:  %d\n", view.CodeLen())
	case accounts.TagStorageCell:
		view, err := accounts.CellFromRecord(program, record)
		if err != nil {
			return err
		}
		fmt.Println("kind:  storage cell")
		fmt.Printf("bucket:     %v\n", view.Bucket())
		fmt.Printf("generation: %d\n", view.Generation())
	case accounts.TagHolder:
		fmt.Println("kind:  holder")
		fmt.Printf("owner capability: %v\n", xenon.RecordKey(record.Data[2:34]))
		fmt.Printf("transaction:      %v\n", xenon.Hash(record.Data[34:66]))
	case accounts.TagState:
		fmt.Println("kind:  transaction state")
		fmt.Printf("owner capability: %v\n", xenon.RecordKey(record.Data[2:34]))
		fmt.Printf("transaction:      %v\n", xenon.Hash(record.Data[34:66]))
	case accounts.TagStateFinalized:
		view, err := accounts.FinalizedFromRecord(program, record)
		if err != nil {
			return err
		}
		fmt.Println("kind:  finalized transaction")
		fmt.Printf("owner capability: %v\n", view.Owner())
		fmt.Printf("transaction:      %v\n", view.TransactionHash())
	case accounts.TagTreasury:
		view, err := accounts.TreasuryFromRecord(program, record)
		if err != nil {
			return err
		}
		fmt.Println("kind:  treasury")
		fmt.Printf("index:   %d\n", view.Index())
		fmt.Printf("balance: %v\n", view.Balance())
	default:
		fmt.Printf("kind:  unknown tag %d\n", tag)
	}
	return nil
}
