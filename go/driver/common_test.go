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
	"strings"
	"testing"

	"github.com/Fantom-foundation/Xenon/go/xenon"
)

func TestParseKey_AcceptsHexWithAndWithoutPrefix(t *testing.T) {
	want := xenon.RecordKey{0xab, 0xcd}
	raw := "abcd" + strings.Repeat("00", 30)

	for _, input := range []string{raw, "0x" + raw} {
		key, err := parseKey(input)
		if err != nil {
			t.Fatalf("failed to parse %q: %v", input, err)
		}
		if key != want {
			t.Errorf("parsed %v, want %v", key, want)
		}
	}
}

func TestParseKey_RejectsMalformedInput(t *testing.T) {
	for _, input := range []string{"", "zz", "abcd", strings.Repeat("00", 33)} {
		if _, err := parseKey(input); err == nil {
			t.Errorf("expected %q to be rejected", input)
		}
	}
}
