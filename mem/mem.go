// SPDX-License-Identifier: EPL-2.0

package mem

import (
	"encoding/binary"
	"fmt"
)

// Memory is the guest address space collaborator. Implementations must
// be byte-exact: a Read or Write of n bytes touches exactly n bytes or
// fails without partial effect.
type Memory interface {
	// Valid reports whether addr maps to guest memory.
	Valid(addr uint32) bool
	// Read fills dst from guest memory starting at addr.
	Read(addr uint32, dst []byte) error
	// Write copies src into guest memory starting at addr.
	Write(addr uint32, src []byte) error
}

// Region is an offset+length handle into guest memory.
type Region struct {
	Addr uint32
	Size uint32
}

// End returns the first address past the region.
func (r Region) End() uint32 { return r.Addr + r.Size }

// Valid reports whether both ends of the region map to guest memory.
// Empty regions are valid at any mapped address.
func (r Region) Valid(m Memory) bool {
	if !m.Valid(r.Addr) {
		return false
	}
	if r.Size == 0 {
		return true
	}
	return m.Valid(r.Addr + r.Size - 1)
}

// U16 reads a little-endian 16-bit value at addr.
func U16(m Memory, addr uint32) (uint16, error) {
	var b [2]byte
	if err := m.Read(addr, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b[:]), nil
}

// U32 reads a little-endian 32-bit value at addr.
func U32(m Memory, addr uint32) (uint32, error) {
	var b [4]byte
	if err := m.Read(addr, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

// PutU32 writes a little-endian 32-bit value at addr.
func PutU32(m Memory, addr uint32, v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return m.Write(addr, b[:])
}

// Bytes reads n bytes starting at addr into a fresh slice.
func Bytes(m Memory, addr, n uint32) ([]byte, error) {
	dst := make([]byte, n)
	if err := m.Read(addr, dst); err != nil {
		return nil, fmt.Errorf("%w", err)
	}
	return dst, nil
}
