// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package arena provides a bump allocator over a storage record's raw byte
// region. Objects written into the arena survive between invocations as plain
// bytes; a later invocation re-attaches to the same region and reinterprets
// the stored bytes in place, addressed by integer offsets instead of
// pointers. References to anything outside the region do not survive and must
// be re-bound after Attach.
package arena

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// LayoutVersion identifies the arena header layout. Attaching to a region
// written under a different version fails; there is no partial recovery.
const LayoutVersion = 1

const (
	magic      = 0x584e4152 // "XNAR"
	headerSize = 16

	offMagic     = 0
	offVersion   = 4
	offWatermark = 8
)

var (
	ErrInvalidLayout = errors.New("arena region has invalid layout")
	ErrOutOfSpace    = errors.New("arena region exhausted")
)

// Arena is an exclusive handle on one record's byte region. At most one
// handle may exist per invocation; the region is only valid to use while the
// owning record is held by the current invocation.
type Arena struct {
	buf []byte
}

// New formats buf as a fresh arena, discarding any previous content.
func New(buf []byte) (*Arena, error) {
	if len(buf) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes, need at least %d", ErrOutOfSpace, len(buf), headerSize)
	}
	binary.LittleEndian.PutUint32(buf[offMagic:], magic)
	binary.LittleEndian.PutUint32(buf[offVersion:], LayoutVersion)
	binary.LittleEndian.PutUint64(buf[offWatermark:], headerSize)
	return &Arena{buf: buf}, nil
}

// Attach re-opens an arena previously formatted by New, without touching its
// content. The stored layout tag must match exactly.
func Attach(buf []byte) (*Arena, error) {
	if len(buf) < headerSize {
		return nil, fmt.Errorf("%w: region too short", ErrInvalidLayout)
	}
	if got := binary.LittleEndian.Uint32(buf[offMagic:]); got != magic {
		return nil, fmt.Errorf("%w: bad magic %#x", ErrInvalidLayout, got)
	}
	if got := binary.LittleEndian.Uint32(buf[offVersion:]); got != LayoutVersion {
		return nil, fmt.Errorf("%w: version %d, want %d", ErrInvalidLayout, got, LayoutVersion)
	}
	watermark := binary.LittleEndian.Uint64(buf[offWatermark:])
	if watermark < headerSize || watermark > uint64(len(buf)) {
		return nil, fmt.Errorf("%w: watermark %d out of range", ErrInvalidLayout, watermark)
	}
	return &Arena{buf: buf}, nil
}

// Alloc reserves size bytes with the given alignment and returns the offset
// of the reservation. The reservation is zeroed.
func (a *Arena) Alloc(size, align uint32) (uint32, error) {
	if align == 0 || align&(align-1) != 0 {
		return 0, fmt.Errorf("alignment %d is not a power of two", align)
	}
	watermark := binary.LittleEndian.Uint64(a.buf[offWatermark:])
	offset := (watermark + uint64(align) - 1) &^ (uint64(align) - 1)
	end := offset + uint64(size)
	if end > uint64(len(a.buf)) {
		return 0, fmt.Errorf("%w: need %d bytes, %d available", ErrOutOfSpace, size, uint64(len(a.buf))-watermark)
	}
	clear(a.buf[offset:end])
	binary.LittleEndian.PutUint64(a.buf[offWatermark:], end)
	return uint32(offset), nil
}

// Bytes returns the live view of the region [offset, offset+size). The view
// aliases the underlying record; writes through it are persisted.
func (a *Arena) Bytes(offset, size uint32) ([]byte, error) {
	end := uint64(offset) + uint64(size)
	if uint64(offset) < headerSize || end > uint64(len(a.buf)) {
		return nil, fmt.Errorf("%w: view [%d,%d) out of range", ErrInvalidLayout, offset, end)
	}
	return a.buf[offset:end:end], nil
}

// Reset discards all allocations, keeping the region formatted.
func (a *Arena) Reset() {
	binary.LittleEndian.PutUint64(a.buf[offWatermark:], headerSize)
}

// Truncate discards all allocations above the given watermark. Callers use
// it to rewind to a known allocation point before re-persisting scratch
// state, so repeated persists do not grow the region.
func (a *Arena) Truncate(watermark uint64) error {
	if watermark < headerSize || watermark > a.Used() {
		return fmt.Errorf("%w: truncation point %d out of range", ErrInvalidLayout, watermark)
	}
	binary.LittleEndian.PutUint64(a.buf[offWatermark:], watermark)
	return nil
}

// Size returns the total capacity of the region, header included.
func (a *Arena) Size() int {
	return len(a.buf)
}

// Used returns the current watermark.
func (a *Arena) Used() uint64 {
	return binary.LittleEndian.Uint64(a.buf[offWatermark:])
}
