// Package dram implements the core's byte-addressable data memory: a
// zero-initialised stack/data segment plus two memory-mapped I/O ports,
// per spec.md §4.2.
//
// The two MMIO addresses replace the teacher's serial TTY
// (github.com/bassosimone/risc32/pkg/vm's SerialTTY): SWITCH_ADDR is a
// fixed-constant input register (an external switch bank), DIG_ADDR is
// a write-only "LED" output port. Unlike the teacher's console, both
// ports are purely synchronous — spec.md §5 rules out interrupts and
// background I/O for this core — so there is no net.Conn, goroutine, or
// polling loop here, only a logged side effect on DIG_ADDR writes.
package dram

import (
	"errors"
	"fmt"
	"log/slog"
)

// Memory-mapped I/O addresses. Implementation-defined but stable, as
// spec.md §6 allows.
const (
	SwitchAddr = 0xFFFF_1000
	DigAddr    = 0xFFFF_2000

	// SwitchValue is the constant value returned by any load from
	// SwitchAddr: a placeholder for an external input register.
	SwitchValue = 0x00A0_0000
)

var (
	// ErrOutOfRange indicates an access outside both segments and MMIO.
	ErrOutOfRange = errors.New("dram: address out of range")
	// ErrBadSize indicates a load/store size outside {8,16,32}.
	ErrBadSize = errors.New("dram: unsupported access size")
)

func alignUp4(n uint32) uint32 {
	return (n + 3) &^ 3
}

// DRAM is the core's data memory.
type DRAM struct {
	stackBase uint32
	stack     []byte

	hasData  bool
	dataBase uint32
	data     []byte

	// LastLED records the most recent value written to DigAddr, for
	// diagnostics/tests; it has no architectural effect.
	LastLED uint32
}

// New constructs a DRAM with a stack segment of the given size (rounded
// up to a multiple of 4 and zero-initialised) based at stackBase.
func New(stackBase uint32, stackSize uint32) *DRAM {
	return &DRAM{
		stackBase: stackBase,
		stack:     make([]byte, alignUp4(stackSize)),
	}
}

// WithData attaches an optional data segment initialised from image,
// based at dataBase. It returns the receiver for chaining.
func (d *DRAM) WithData(dataBase uint32, image []byte) *DRAM {
	d.hasData = true
	d.dataBase = dataBase
	d.data = append([]byte(nil), image...)
	return d
}

type region struct {
	base  uint32
	bytes []byte
}

func (d *DRAM) regions() []region {
	regs := []region{{base: d.stackBase, bytes: d.stack}}
	if d.hasData {
		regs = append(regs, region{base: d.dataBase, bytes: d.data})
	}
	return regs
}

func (r region) contains(addr uint32, size uint32) bool {
	if addr < r.base {
		return false
	}
	end := uint64(r.base) + uint64(len(r.bytes))
	return uint64(addr)+uint64(size) <= end
}

func byteLen(bits uint32) (uint32, error) {
	switch bits {
	case 8:
		return 1, nil
	case 16:
		return 2, nil
	case 32:
		return 4, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrBadSize, bits)
	}
}

// Load reads a size-bit (8, 16, or 32) little-endian value at addr. The
// returned word carries the loaded bits in its low bits, unmodified: it
// is the decoder/executor's job to sign- or zero-extend (spec.md §4.2).
// A load of any size from SwitchAddr returns the whole SwitchValue.
func (d *DRAM) Load(addr uint32, size uint32) (uint32, error) {
	n, err := byteLen(size)
	if err != nil {
		return 0, err
	}
	if addr == SwitchAddr {
		return SwitchValue, nil
	}
	for _, r := range d.regions() {
		if r.contains(addr, n) {
			off := addr - r.base
			buf := r.bytes[off : off+n]
			var v uint32
			for i := n; i > 0; i-- {
				v = (v << 8) | uint32(buf[i-1])
			}
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: load 0x%08x", ErrOutOfRange, addr)
}

// Store writes the low size bits of value, little-endian, at addr. A
// store to DigAddr of any size is a no-op on memory and records the LED
// side effect instead.
func (d *DRAM) Store(addr uint32, value uint32, size uint32) error {
	n, err := byteLen(size)
	if err != nil {
		return err
	}
	if addr == DigAddr {
		d.LastLED = value & mask(size)
		slog.Debug("dram: led write", "value", d.LastLED)
		return nil
	}
	for _, r := range d.regions() {
		if r.contains(addr, n) {
			off := addr - r.base
			buf := r.bytes[off : off+n]
			for i := uint32(0); i < n; i++ {
				buf[i] = byte(value >> (8 * i))
			}
			return nil
		}
	}
	return fmt.Errorf("%w: store 0x%08x", ErrOutOfRange, addr)
}

func mask(size uint32) uint32 {
	switch size {
	case 8:
		return 0xFF
	case 16:
		return 0xFFFF
	default:
		return 0xFFFFFFFF
	}
}

// StackBase returns the base address of the stack segment.
func (d *DRAM) StackBase() uint32 { return d.stackBase }

// StackSize returns the size in bytes of the (rounded-up) stack segment.
func (d *DRAM) StackSize() int { return len(d.stack) }

// String renders the segment layout and the most recent LED value.
func (d *DRAM) String() string {
	s := fmt.Sprintf("{stack:0x%08x+%d led:0x%08x", d.stackBase, len(d.stack), d.LastLED)
	if d.hasData {
		s += fmt.Sprintf(" data:0x%08x+%d", d.dataBase, len(d.data))
	}
	return s + "}"
}
