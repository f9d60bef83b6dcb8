// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package xenon

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/exp/maps"
)

// This file provides a registry for MachineFactory implementations.
//
// Interpreter integrations register their factory in their package init
// code; importing the integration package is all it takes to make a machine
// implementation selectable by name in a host binary.

// GetMachineFactory performs a lookup for the given name
// (case-insensitive) in the registry. The result is nil if no factory was
// registered under the given name.
func GetMachineFactory(name string) MachineFactory {
	machineRegistryLock.Lock()
	defer machineRegistryLock.Unlock()
	return machineRegistry[strings.ToLower(name)]
}

// GetAllRegisteredMachineFactories obtains all registered implementations.
func GetAllRegisteredMachineFactories() map[string]MachineFactory {
	machineRegistryLock.Lock()
	defer machineRegistryLock.Unlock()
	return maps.Clone(machineRegistry)
}

// RegisterMachineFactory registers a new MachineFactory implementation to
// be exported for general use in the binary. The name is not
// case-sensitive. Registering a nil factory or reusing a name is an error.
// This function is mainly intended to be used by package initialization
// code.
func RegisterMachineFactory(name string, factory MachineFactory) error {
	key := strings.ToLower(name)
	if factory == nil {
		return fmt.Errorf("invalid initialization: cannot register nil-factory using `%s`", key)
	}
	machineRegistryLock.Lock()
	defer machineRegistryLock.Unlock()
	if _, found := machineRegistry[key]; found {
		return fmt.Errorf("invalid initialization: multiple factories registered for `%s`", key)
	}
	machineRegistry[key] = factory
	return nil
}

// machineRegistry is a global registry for MachineFactory implementations.
var machineRegistry = map[string]MachineFactory{}

// machineRegistryLock to protect access to the registry.
var machineRegistryLock sync.Mutex
