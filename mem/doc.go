// SPDX-License-Identifier: EPL-2.0

// Package mem models the emulated guest address space the audio core
// reads containers from and writes its mirror structure to.
//
// The core never dereferences guest addresses directly. Every access
// goes through the Memory interface, which keeps the validation
// boundary in one place and lets tests run against the in-memory Sim
// implementation.
//
// # Memory Interface
//
// The Memory interface exposes byte-exact primitives:
//
//	type Memory interface {
//	    Valid(addr uint32) bool
//	    Read(addr uint32, dst []byte) error
//	    Write(addr uint32, src []byte) error
//	}
//
// All offsets and sizes in this module are expressed in guest byte
// units. Multi-byte reads are little-endian, matching the console.
//
// # Regions
//
// A Region is an offset+length handle into guest memory:
//
//	r := mem.Region{Addr: 0x08804000, Size: 0x8000}
//	if !r.Valid(m) { ... }
//
// Passing Regions instead of raw addresses keeps size checks next to
// the address they belong to.
//
// # Simulated Memory
//
// Sim is a flat in-memory implementation used by tests and by
// embedders that do not have a real emulated bus:
//
//	m := mem.NewSim(0x08800000, 16*1024*1024)
//	m.Write(0x08804000, containerBytes)
package mem
