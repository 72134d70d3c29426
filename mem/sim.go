// SPDX-License-Identifier: EPL-2.0

package mem

// Sim is a flat, contiguous guest memory backed by a host slice.
// Addresses in [base, base+len) are mapped; everything else fails with
// ErrBadAddress.
type Sim struct {
	base uint32
	data []byte
}

// NewSim maps size bytes of zeroed memory at base.
func NewSim(base, size uint32) *Sim {
	return &Sim{base: base, data: make([]byte, size)}
}

// Base returns the first mapped address.
func (s *Sim) Base() uint32 { return s.base }

func (s *Sim) Valid(addr uint32) bool {
	return addr >= s.base && addr-s.base < uint32(len(s.data))
}

func (s *Sim) Read(addr uint32, dst []byte) error {
	if !s.inRange(addr, uint32(len(dst))) {
		return ErrBadAddress
	}
	copy(dst, s.data[addr-s.base:])
	return nil
}

func (s *Sim) Write(addr uint32, src []byte) error {
	if !s.inRange(addr, uint32(len(src))) {
		return ErrBadAddress
	}
	copy(s.data[addr-s.base:], src)
	return nil
}

func (s *Sim) inRange(addr, n uint32) bool {
	if n == 0 {
		return s.Valid(addr) || addr == s.base+uint32(len(s.data))
	}
	return addr >= s.base && uint64(addr-s.base)+uint64(n) <= uint64(len(s.data))
}
