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
	"sort"

	"github.com/urfave/cli/v2"

	"github.com/Fantom-foundation/Xenon/go/xenon"
)

var MachinesCmd = cli.Command{
	Action: doMachines,
	Name:   "machines",
	Usage:  "List the machine implementations linked into this binary",
}

func doMachines(*cli.Context) error {
	names := make([]string, 0)
	for name := range xenon.GetAllRegisteredMachineFactories() {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}
