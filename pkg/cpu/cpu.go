// Package cpu implements the RV32I + Zicsr execution engine: the
// register file, program counter, CSR file, and the fetch/step/execute
// sequence a co-simulation harness drives one instruction at a time
// (spec.md §4.4).
//
// The shape follows the teacher's VM type
// (github.com/bassosimone/risc32/pkg/vm.VM): a single struct owning all
// mutable architectural state plus the immutable memories, with
// Fetch/Execute methods returning a sentinel-wrapped error on failure.
// Where the teacher guarantees GPR[0]==0 with a deferred reset inside
// Execute, this CPU does the same (see Execute below) to satisfy
// invariant (I1).
package cpu

import (
	"errors"
	"fmt"

	"github.com/rv32sim/rv32sim/pkg/decoder"
	"github.com/rv32sim/rv32sim/pkg/dram"
	"github.com/rv32sim/rv32sim/pkg/irom"
)

// NumRegisters is the size of the general-purpose register file.
const NumRegisters = 32

// Errors surfaced by Execute, per spec.md §7.
var (
	// ErrEretStop is returned by the ERET family (ECALL-return,
	// including the MRET/SRET/URET aliases): not an architectural
	// fault, but a deliberate stop signal for the driver.
	ErrEretStop = errors.New("cpu: eret")
)

// Config describes the images and base addresses a CPU is built from,
// mirroring the teacher's direct-construction style (new(vm.VM) plus
// field assignment) rather than a builder: every field except the
// optional DataImage/DataBase pair is required and there is no
// partially-constructed state.
type Config struct {
	UserImage   []byte
	UserBase    uint32
	KernelImage []byte
	KernelBase  uint32
	StackBase   uint32
	StackSize   uint32
	// DataImage and DataBase optionally seed a data segment in DRAM
	// (spec.md §3 "Optionally a data segment").
	DataImage []byte
	DataBase  uint32
}

// WriteBack is the architectural write-back record produced by every
// call to Execute, per spec.md §3. Field order and widths are fixed:
// a C ABI embedding this value as a packed struct must see exactly
// these six uint32 fields in this order.
type WriteBack struct {
	HaveInst  uint32
	PC        uint32
	Rd        uint32
	Val       uint32
	Ena       uint32
	InstValid uint32
}

// String renders the write-back record for trace logging.
func (w WriteBack) String() string {
	return fmt.Sprintf("{have=%d pc=0x%08x rd=%d(%s) val=0x%08x ena=%d valid=%d}",
		w.HaveInst, w.PC, w.Rd, RegisterName(w.Rd), w.Val, w.Ena, w.InstValid)
}

// CPU owns the register file, program counter, CSR file, and the
// IROM/DRAM it drives. All storage is owned exclusively by the CPU for
// its lifetime (spec.md §5): there is no sharing and no concurrent
// access.
type CPU struct {
	regs [NumRegisters]uint32
	pc   uint32
	csr  csrFile

	irom *irom.IROM
	dram *dram.DRAM
}

// New constructs a CPU from cfg. The register file is zeroed except
// for the stack pointer (R2), initialised to stackBase+stackSize; PC
// starts at the user image base; MTVAL starts at the kernel base
// (spec.md §3, §9).
func New(cfg Config) *CPU {
	d := dram.New(cfg.StackBase, cfg.StackSize)
	if cfg.DataImage != nil {
		d.WithData(cfg.DataBase, cfg.DataImage)
	}
	c := &CPU{
		irom: irom.New(cfg.UserBase, cfg.UserImage, cfg.KernelBase, cfg.KernelImage),
		dram: d,
		pc:   cfg.UserBase,
		csr:  newCSRFile(cfg.KernelBase),
	}
	c.regs[2] = cfg.StackBase + cfg.StackSize
	return c
}

// String renders a one-line snapshot of the architectural state, the
// Go-native analogue of the teacher's VM.String().
func (c *CPU) String() string {
	return fmt.Sprintf("{PC:0x%08x GPR:%+v}", c.pc, c.regs)
}

// PC returns the current program counter.
func (c *CPU) PC() uint32 { return c.pc }

// Register returns the current value of general-purpose register i.
// Register 0 always reads as zero.
func (c *CPU) Register(i uint32) uint32 {
	if i == 0 || i >= NumRegisters {
		return 0
	}
	return c.regs[i]
}

// CSR returns the current value of CSR addr, or ErrBadCSR.
func (c *CPU) CSR(addr uint32) (uint32, error) {
	return c.csr.read(addr)
}

// Registers returns a snapshot of the general-purpose register file.
func (c *CPU) Registers() [NumRegisters]uint32 {
	return c.regs
}

// CSRs returns a snapshot of the recognised CSR file, keyed by address.
func (c *CPU) CSRs() map[uint32]uint32 {
	out := make(map[uint32]uint32, len(c.csr.regs))
	for k, v := range c.csr.regs {
		out[k] = v
	}
	return out
}

// IROM exposes the CPU's instruction ROM for diagnostics and for a
// driver's fetch loop.
func (c *CPU) IROM() *irom.IROM { return c.irom }

// DRAM exposes the CPU's data memory for diagnostics.
func (c *CPU) DRAM() *dram.DRAM { return c.dram }

// Fetch returns the 32-bit word at the current PC without advancing it,
// per spec.md §2: the caller is expected to call Fetch, then PCStep,
// then Execute.
func (c *CPU) Fetch() (uint32, error) {
	return c.irom.Fetch(c.pc)
}

// PCStep advances the program counter by 4, unconditionally.
func (c *CPU) PCStep() {
	c.pc += 4
}

// Execute decodes and applies the architectural effect of word,
// mutating the register file, PC, CSR file, or DRAM as appropriate, and
// returns the write-back record an RTL pipeline's write-back stage
// would drive. Execute assumes PCStep has already advanced c.pc past
// the instruction being executed (spec.md §4.4): every PC-relative
// instruction below compensates by subtracting 4 from the current PC.
//
// On failure Execute returns a zero WriteBack and a sentinel-wrapped
// error (decoder.ErrDecode, dram.ErrOutOfRange, dram.ErrBadSize,
// ErrBadCSR, or ErrEretStop); any architectural write that completed
// before the failing step is retained, matching the teacher's
// no-rollback Execute.
func (c *CPU) Execute(word uint32) (WriteBack, error) {
	curPC := c.pc
	// guarantee regs[0] == 0 before the instruction executes (I1),
	// mirroring the teacher's deferred reset in VM.Execute.
	c.regs[0] = 0
	defer func() { c.regs[0] = 0 }()

	inst, err := decoder.Decode(word)
	if err != nil {
		return WriteBack{}, err
	}

	wb := WriteBack{HaveInst: 1, PC: curPC - 4, InstValid: 1}

	rd, val, writes, err := c.apply(inst, curPC)
	if err != nil {
		return WriteBack{}, err
	}
	if writes && rd != 0 {
		c.regs[rd] = val
		wb.Rd = rd
		wb.Val = val
		wb.Ena = 1
	}
	return wb, nil
}
