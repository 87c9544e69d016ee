package cpu_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rv32sim/rv32sim/pkg/cpu"
)

func word(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func padTo(words []uint32, n int) []byte {
	buf := make([]byte, 0, n*4)
	for _, w := range words {
		buf = append(buf, word(w)...)
	}
	for len(buf) < n*4 {
		buf = append(buf, 0)
	}
	return buf
}

func newCPUAt(pc uint32, program []uint32) *cpu.CPU {
	return cpu.New(cpu.Config{
		UserImage:   padTo(program, len(program)+4),
		UserBase:    pc,
		KernelImage: make([]byte, 16),
		KernelBase:  0x1C09_0000,
		StackBase:   0x8000_0000,
		StackSize:   64,
	})
}

// step performs exactly the fetch -> pc_step -> execute sequence the
// spec requires a driver to perform.
func step(t *testing.T, c *cpu.CPU) (cpu.WriteBack, error) {
	t.Helper()
	w, err := c.Fetch()
	require.NoError(t, err)
	c.PCStep()
	return c.Execute(w)
}

func TestScenario1ADDI(t *testing.T) {
	c := newCPUAt(0, []uint32{0x00500513}) // ADDI a0, zero, 5
	wb, err := step(t, c)
	require.NoError(t, err)
	assert.EqualValues(t, 5, c.Register(10))
	assert.EqualValues(t, 4, c.PC())
	assert.Equal(t, cpu.WriteBack{HaveInst: 1, PC: 0, Rd: 10, Val: 5, Ena: 1, InstValid: 1}, wb)
}

func TestScenario2LUI(t *testing.T) {
	c := newCPUAt(0, []uint32{0x00000013, 0x123452B7}) // nop then LUI t0, 0x12345 at pc=4
	_, err := step(t, c)
	require.NoError(t, err) // execute the leading nop
	wb, err := step(t, c)
	require.NoError(t, err)
	assert.EqualValues(t, 0x12345000, c.Register(5))
	assert.EqualValues(t, 8, c.PC())
	assert.EqualValues(t, 4, wb.PC)
}

func TestScenario3JAL(t *testing.T) {
	c := newCPUAt(0x100, []uint32{0x010000EF}) // JAL ra, 0x10
	_, err := step(t, c)
	require.NoError(t, err)
	assert.EqualValues(t, 0x110, c.PC())
	assert.EqualValues(t, 0x104, c.Register(1))
}

func TestScenario4BEQTaken(t *testing.T) {
	// BEQ t0, t1, 0x20 -- t0 (x5) and t1 (x6) are both seeded to 7 via
	// ADDI first, so the branch at pc=0x208 is taken.
	c := newCPUAt(0x200, []uint32{
		0x00700293, // addi t0, zero, 7   (x5)
		0x00700313, // addi t1, zero, 7   (x6)
		0x02628063, // beq t0, t1, 0x20
	})
	for i := 0; i < 2; i++ {
		_, err := step(t, c)
		require.NoError(t, err)
	}
	_, err := step(t, c)
	require.NoError(t, err)
	assert.EqualValues(t, 0x200+8+0x20, c.PC())
}

func TestScenario5StoreLoadRoundTrip(t *testing.T) {
	// LUI+ADDI builds 0xDEADBEEF in t0, which is then stored to and
	// reloaded from the top word of the stack segment at -4(sp); New()
	// initialises sp (x2) to stackBase+stackSize, one past the segment.
	c := newCPUAt(0, []uint32{
		0xDEADC2B7, // lui t0, 0xDEADC
		0xEEF28293, // addi t0, t0, -273  -> t0 = 0xDEADBEEF
		0xFE512E23, // sw t0, -4(sp)
		0xFFC12383, // lw t2, -4(sp)
	})
	for i := 0; i < 4; i++ {
		_, err := step(t, c)
		require.NoError(t, err)
	}
	assert.EqualValues(t, 0xDEADBEEF, c.Register(5)) // t0
	assert.EqualValues(t, 0xDEADBEEF, c.Register(7)) // t2
}

func TestScenario6ECALL(t *testing.T) {
	img := make([]byte, 0, 33*4)
	for i := 0; i < 32; i++ {
		img = append(img, word(0x00000013)...) // nop (addi zero, zero, 0)
	}
	img = append(img, word(0x73)...) // ECALL at offset 0x80
	c := cpu.New(cpu.Config{
		UserImage:   img,
		UserBase:    0,
		KernelImage: make([]byte, 16),
		KernelBase:  0x1C09_0000,
		StackBase:   0x8000_0000,
		StackSize:   64,
	})
	for i := 0; i < 32; i++ {
		_, err := step(t, c)
		require.NoError(t, err)
	}
	_, err := step(t, c)
	require.NoError(t, err)
	assert.EqualValues(t, 0x1C09_0000, c.PC())
	mepc, err := c.CSR(cpu.MEPC)
	require.NoError(t, err)
	assert.EqualValues(t, 0x80, mepc)
	mcause, err := c.CSR(cpu.MCAUSE)
	require.NoError(t, err)
	assert.EqualValues(t, 0xB, mcause)
}

func TestRegisterZeroAlwaysZero(t *testing.T) {
	c := newCPUAt(0, []uint32{0x00000013}) // addi zero, zero, 0 -- rd=0
	_, err := step(t, c)
	require.NoError(t, err)
	assert.Zero(t, c.Register(0))
}

func TestNonWritingInstructionsReportEnaZero(t *testing.T) {
	c := newCPUAt(0, []uint32{0x00000463}) // beq zero, zero, 8
	wb, err := step(t, c)
	require.NoError(t, err)
	assert.Zero(t, wb.Ena)
	assert.Zero(t, wb.Rd)
}

func TestWriteToRegisterZeroIsMaskedByEna(t *testing.T) {
	c := newCPUAt(0, []uint32{0x00500013}) // addi zero, zero, 5 -- would-be write to rd=0
	wb, err := step(t, c)
	require.NoError(t, err)
	assert.Zero(t, wb.Ena)
	assert.Zero(t, c.Register(0))
}

func TestAUIPCZeroImmReturnsRetiredPC(t *testing.T) {
	c := newCPUAt(0x1000, []uint32{0x00000297}) // auipc t0, 0
	_, err := step(t, c)
	require.NoError(t, err)
	assert.EqualValues(t, 0x1000, c.Register(5))
}

func TestDecodeErrorLeavesWriteBackZero(t *testing.T) {
	c := newCPUAt(0, []uint32{0x0000007F}) // illegal opcode
	wb, err := step(t, c)
	assert.Error(t, err)
	assert.Equal(t, cpu.WriteBack{}, wb)
}

func TestEretReturnsToMEPC(t *testing.T) {
	img := make([]byte, 0, 33*4)
	for i := 0; i < 32; i++ {
		img = append(img, word(0x00000013)...) // nop (addi zero, zero, 0)
	}
	img = append(img, word(0x73)...) // ECALL at offset 0x80
	c := cpu.New(cpu.Config{
		UserImage:   img,
		UserBase:    0,
		KernelImage: padTo([]uint32{0x30200073}, 4), // mret at kernel base
		KernelBase:  0x1C09_0000,
		StackBase:   0x8000_0000,
		StackSize:   64,
	})
	for i := 0; i < 33; i++ {
		_, err := step(t, c)
		require.NoError(t, err)
	}
	_, err := step(t, c)
	assert.ErrorIs(t, err, cpu.ErrEretStop)
	assert.EqualValues(t, 0x80, c.PC())
}
