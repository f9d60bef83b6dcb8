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
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/Fantom-foundation/Xenon/go/ledger"
	"github.com/Fantom-foundation/Xenon/go/xenon"
)

var (
	backendFlag = &cli.StringFlag{
		Name:  "backend",
		Usage: "ledger reader backend (memory, leveldb, sqlite)",
		Value: "leveldb",
	}
	pathFlag = &cli.StringFlag{
		Name:  "path",
		Usage: "path of the backend store",
	}
	programFlag = &cli.StringFlag{
		Name:     "program",
		Usage:    "hex key of the owning program",
		Required: true,
	}
)

func openReader(context *cli.Context) (ledger.Reader, error) {
	return ledger.NewReader(context.String(backendFlag.Name), context.String(pathFlag.Name))
}

func parseKey(raw string) (xenon.RecordKey, error) {
	var key xenon.RecordKey
	bytes, err := hex.DecodeString(strings.TrimPrefix(raw, "0x"))
	if err != nil {
		return key, fmt.Errorf("invalid record key %q: %w", raw, err)
	}
	if len(bytes) != len(key) {
		return key, fmt.Errorf("invalid record key %q: need %d bytes, got %d", raw, len(key), len(bytes))
	}
	copy(key[:], bytes)
	return key, nil
}

func programKey(context *cli.Context) (xenon.RecordKey, error) {
	return parseKey(context.String(programFlag.Name))
}
