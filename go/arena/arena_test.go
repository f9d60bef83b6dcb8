// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package arena

import (
	"bytes"
	"errors"
	"testing"
)

func TestArena_NewRejectsTooSmallRegion(t *testing.T) {
	if _, err := New(make([]byte, headerSize-1)); !errors.Is(err, ErrOutOfSpace) {
		t.Errorf("expected ErrOutOfSpace, got %v", err)
	}
}

func TestArena_AllocationsSurviveAttach(t *testing.T) {
	region := make([]byte, 256)

	a, err := New(region)
	if err != nil {
		t.Fatalf("failed to format region: %v", err)
	}
	offset, err := a.Alloc(32, 8)
	if err != nil {
		t.Fatalf("failed to allocate: %v", err)
	}
	view, err := a.Bytes(offset, 32)
	if err != nil {
		t.Fatalf("failed to map view: %v", err)
	}
	copy(view, []byte("persisted between invocations"))

	// A later invocation sees the same bytes at the same offset.
	b, err := Attach(region)
	if err != nil {
		t.Fatalf("failed to attach: %v", err)
	}
	restored, err := b.Bytes(offset, 32)
	if err != nil {
		t.Fatalf("failed to map restored view: %v", err)
	}
	if !bytes.Equal(view, restored) {
		t.Errorf("restored view differs: got %q, want %q", restored, view)
	}
}

func TestArena_ViewsAliasTheRegion(t *testing.T) {
	region := make([]byte, 128)
	a, _ := New(region)

	offset, err := a.Alloc(8, 1)
	if err != nil {
		t.Fatalf("failed to allocate: %v", err)
	}
	view, _ := a.Bytes(offset, 8)
	view[0] = 0xab

	if region[offset] != 0xab {
		t.Errorf("write through view did not reach the region")
	}
}

func TestArena_AllocRespectsAlignment(t *testing.T) {
	a, _ := New(make([]byte, 256))

	if _, err := a.Alloc(3, 1); err != nil {
		t.Fatalf("failed to allocate: %v", err)
	}
	offset, err := a.Alloc(8, 8)
	if err != nil {
		t.Fatalf("failed to allocate: %v", err)
	}
	if offset%8 != 0 {
		t.Errorf("offset %d not aligned to 8", offset)
	}
}

func TestArena_AllocZeroesReusedSpace(t *testing.T) {
	region := make([]byte, 128)
	a, _ := New(region)

	offset, _ := a.Alloc(16, 1)
	view, _ := a.Bytes(offset, 16)
	for i := range view {
		view[i] = 0xff
	}

	a.Reset()
	offset2, _ := a.Alloc(16, 1)
	view2, _ := a.Bytes(offset2, 16)
	for i, b := range view2 {
		if b != 0 {
			t.Fatalf("byte %d not zeroed after reuse: %#x", i, b)
		}
	}
}

func TestArena_AllocFailsWhenExhausted(t *testing.T) {
	a, _ := New(make([]byte, 64))
	if _, err := a.Alloc(256, 1); !errors.Is(err, ErrOutOfSpace) {
		t.Errorf("expected ErrOutOfSpace, got %v", err)
	}
}

func TestArena_AttachRejectsForeignContent(t *testing.T) {
	tests := map[string][]byte{
		"zeroed":    make([]byte, 64),
		"too short": make([]byte, 4),
		"garbage":   bytes.Repeat([]byte{0x5a}, 64),
	}
	for name, region := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Attach(region); !errors.Is(err, ErrInvalidLayout) {
				t.Errorf("expected ErrInvalidLayout, got %v", err)
			}
		})
	}
}

func TestArena_AttachRejectsWrongVersion(t *testing.T) {
	region := make([]byte, 64)
	if _, err := New(region); err != nil {
		t.Fatalf("failed to format region: %v", err)
	}
	region[offVersion] = LayoutVersion + 1

	if _, err := Attach(region); !errors.Is(err, ErrInvalidLayout) {
		t.Errorf("expected ErrInvalidLayout, got %v", err)
	}
}

func TestArena_TruncateReleasesTailAllocations(t *testing.T) {
	a, _ := New(make([]byte, 128))

	first, err := a.Alloc(16, 1)
	if err != nil {
		t.Fatalf("failed to allocate: %v", err)
	}
	mark := a.Used()
	if _, err := a.Alloc(32, 1); err != nil {
		t.Fatalf("failed to allocate: %v", err)
	}

	if err := a.Truncate(mark); err != nil {
		t.Fatalf("failed to truncate: %v", err)
	}
	if want, got := mark, a.Used(); want != got {
		t.Errorf("expected watermark %d, got %d", want, got)
	}

	// The surviving allocation is intact, the released space is reusable.
	if _, err := a.Bytes(first, 16); err != nil {
		t.Errorf("allocation below the truncation point must survive: %v", err)
	}
	reused, err := a.Alloc(32, 1)
	if err != nil {
		t.Fatalf("failed to reallocate released space: %v", err)
	}
	view, _ := a.Bytes(reused, 32)
	for i, b := range view {
		if b != 0 {
			t.Fatalf("byte %d not zeroed after reuse: %#x", i, b)
		}
	}
}

func TestArena_TruncateRejectsOutOfRangeWatermarks(t *testing.T) {
	a, _ := New(make([]byte, 128))
	if _, err := a.Alloc(16, 1); err != nil {
		t.Fatalf("failed to allocate: %v", err)
	}

	if err := a.Truncate(headerSize - 1); !errors.Is(err, ErrInvalidLayout) {
		t.Errorf("expected ErrInvalidLayout for watermark inside the header, got %v", err)
	}
	if err := a.Truncate(a.Used() + 1); !errors.Is(err, ErrInvalidLayout) {
		t.Errorf("expected ErrInvalidLayout for watermark beyond the used range, got %v", err)
	}
}

func TestArena_BytesRejectsOutOfRangeViews(t *testing.T) {
	a, _ := New(make([]byte, 64))
	if _, err := a.Bytes(0, 8); err == nil {
		t.Errorf("view into the header must be rejected")
	}
	if _, err := a.Bytes(60, 8); err == nil {
		t.Errorf("view beyond the region must be rejected")
	}
}
