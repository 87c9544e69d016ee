// Package irom implements the split instruction ROM of the RV32I core: an
// immutable user-text segment and an immutable kernel (trap-handler) text
// segment, addressed by disjoint, little-endian 32-bit address ranges.
//
// Bytecode format
//
// Each segment is a plain byte image as produced by an external loader
// (out of scope for this package, see spec.md §1). IROM does not parse
// or validate the image contents; it only serves 32-bit fetches from
// whichever segment the requested address falls inside.
package irom

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrOutOfRange indicates that a fetch address lies outside both
// segments, or that the four bytes of the fetched word would overrun
// the segment it starts in.
var ErrOutOfRange = errors.New("irom: address out of range")

// segment is one immutable, base-addressed code image.
type segment struct {
	base  uint32
	bytes []byte
}

func (s segment) contains(addr uint32, size uint32) bool {
	if addr < s.base {
		return false
	}
	end := uint64(s.base) + uint64(len(s.bytes))
	return uint64(addr)+uint64(size) <= end
}

// IROM holds the two immutable code segments of the core.
//
// Once constructed, an IROM never mutates: (I3) in spec.md. There is
// no Write/Store operation; only a loader external to this package may
// populate the backing byte slices, and it must do so before handing
// them to New.
type IROM struct {
	user   segment
	kernel segment
}

// New constructs an IROM from two byte images and their base addresses.
// Both images are copied into storage owned by the IROM, so that
// mutations the caller makes to its own slices afterwards cannot break
// invariant (I3): IROM segments never mutate after construction.
func New(userBase uint32, user []byte, kernelBase uint32, kernel []byte) *IROM {
	return &IROM{
		user:   segment{base: userBase, bytes: append([]byte(nil), user...)},
		kernel: segment{base: kernelBase, bytes: append([]byte(nil), kernel...)},
	}
}

// Fetch returns the little-endian 32-bit word at addr. It fails if addr
// lies in neither segment or if addr+3 overruns the segment addr starts
// in — segments are never treated as contiguous with one another.
func (r *IROM) Fetch(addr uint32) (uint32, error) {
	if r.user.contains(addr, 4) {
		off := addr - r.user.base
		return binary.LittleEndian.Uint32(r.user.bytes[off : off+4]), nil
	}
	if r.kernel.contains(addr, 4) {
		off := addr - r.kernel.base
		return binary.LittleEndian.Uint32(r.kernel.bytes[off : off+4]), nil
	}
	return 0, fmt.Errorf("%w: 0x%08x", ErrOutOfRange, addr)
}

// UserBase returns the base address of the user-text segment.
func (r *IROM) UserBase() uint32 { return r.user.base }

// KernelBase returns the base address of the kernel (trap-handler)
// text segment.
func (r *IROM) KernelBase() uint32 { return r.kernel.base }

// UserSize returns the length in bytes of the user-text segment.
func (r *IROM) UserSize() int { return len(r.user.bytes) }

// KernelSize returns the length in bytes of the kernel-text segment.
func (r *IROM) KernelSize() int { return len(r.kernel.bytes) }

// String renders the segment base addresses and sizes.
func (r *IROM) String() string {
	return fmt.Sprintf("{user:0x%08x+%d kernel:0x%08x+%d}",
		r.user.base, len(r.user.bytes), r.kernel.base, len(r.kernel.bytes))
}
