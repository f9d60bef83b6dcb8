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
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/Fantom-foundation/Xenon/go/accounts"
	"github.com/Fantom-foundation/Xenon/go/ledger"
	"github.com/Fantom-foundation/Xenon/go/xenon"
)

var (
	keyFlag = &cli.StringFlag{
		Name:     "key",
		Usage:    "hex key of the holder record",
		Required: true,
	}
	operatorFlag = &cli.StringFlag{
		Name:     "operator",
		Usage:    "hex key of the operator owning the holder",
		Required: true,
	}

	HolderCmd = cli.Command{
		Name:  "holder",
		Usage: "Manage transaction holder records",
		Subcommands: []*cli.Command{
			{
				Action: doHolderCreate,
				Name:   "create",
				Usage:  "Initialize an unclaimed record as an empty holder",
				Flags: []cli.Flag{
					backendFlag, pathFlag, programFlag, keyFlag, operatorFlag,
					&cli.UintFlag{
						Name:  "heap",
						Usage: "extra record space reserved for resumed execution",
					},
				},
			},
			{
				Action: doHolderWrite,
				Name:   "write",
				Usage:  "Write a payload chunk into a holder",
				Flags: []cli.Flag{
					backendFlag, pathFlag, programFlag, keyFlag, operatorFlag,
					&cli.StringFlag{
						Name:     "hash",
						Usage:    "hex hash of the transaction being assembled",
						Required: true,
					},
					&cli.Uint64Flag{
						Name:  "offset",
						Usage: "byte offset of the chunk within the payload",
					},
					&cli.StringFlag{
						Name:     "data",
						Usage:    "hex chunk to write",
						Required: true,
					},
				},
			},
			{
				Action: doHolderDelete,
				Name:   "delete",
				Usage:  "Release a holder record back to the unclaimed pool",
				Flags:  []cli.Flag{backendFlag, pathFlag, programFlag, keyFlag, operatorFlag},
			},
		},
	}
)

func openHolderRecord(context *cli.Context, reader ledger.Reader) (*ledger.Record, error) {
	key, err := parseKey(context.String(keyFlag.Name))
	if err != nil {
		return nil, err
	}
	record, err := reader.GetRecord(key)
	if err != nil {
		return nil, err
	}
	record.Writable = true
	return record, nil
}

func doHolderCreate(context *cli.Context) error {
	program, err := programKey(context)
	if err != nil {
		return err
	}
	operator, err := parseKey(context.String(operatorFlag.Name))
	if err != nil {
		return err
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

	key, err := parseKey(context.String(keyFlag.Name))
	if err != nil {
		return err
	}
	record, err := reader.GetRecord(key)
	if errors.Is(err, ledger.ErrRecordMissing) {
		record = &ledger.Record{Key: key, Owner: ledger.SystemOwner}
	} else if err != nil {
		return err
	}
	record.Writable = true

	if _, err := accounts.NewHolderRecord(program, record, operator, uint32(context.Uint("heap"))); err != nil {
		return err
	}
	if err := writer.PutRecord(record); err != nil {
		return err
	}
	fmt.Printf("holder %v created for operator %v\n", key, operator)
	return nil
}

func doHolderWrite(context *cli.Context) error {
	program, err := programKey(context)
	if err != nil {
		return err
	}
	operator, err := parseKey(context.String(operatorFlag.Name))
	if err != nil {
		return err
	}
	hashKey, err := parseKey(context.String("hash"))
	if err != nil {
		return err
	}
	chunk, err := hex.DecodeString(strings.TrimPrefix(context.String("data"), "0x"))
	if err != nil {
		return fmt.Errorf("invalid chunk data: %w", err)
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

	record, err := openHolderRecord(context, reader)
	if err != nil {
		return err
	}
	holder, err := accounts.HolderFromRecord(program, record, operator)
	if err != nil {
		return err
	}
	if err := holder.Write(xenon.Hash(hashKey), context.Uint64("offset"), chunk); err != nil {
		return err
	}
	if err := writer.PutRecord(record); err != nil {
		return err
	}
	fmt.Printf("wrote %d bytes at offset %d, payload now %d bytes\n",
		len(chunk), context.Uint64("offset"), len(holder.Payload()))
	return nil
}

func doHolderDelete(context *cli.Context) error {
	program, err := programKey(context)
	if err != nil {
		return err
	}
	operator, err := parseKey(context.String(operatorFlag.Name))
	if err != nil {
		return err
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

	record, err := openHolderRecord(context, reader)
	if err != nil {
		return err
	}
	holder, err := accounts.HolderFromRecord(program, record, operator)
	if err != nil {
		return err
	}
	holder.Delete()
	if err := writer.PutRecord(record); err != nil {
		return err
	}
	fmt.Printf("holder %v released\n", record.Key)
	return nil
}
