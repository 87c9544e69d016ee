package diag_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rv32sim/rv32sim/pkg/cpu"
	"github.com/rv32sim/rv32sim/pkg/decoder"
	"github.com/rv32sim/rv32sim/pkg/diag"
)

func newCPU() *cpu.CPU {
	return cpu.New(cpu.Config{
		UserImage:   make([]byte, 16),
		UserBase:    0,
		KernelImage: make([]byte, 16),
		KernelBase:  0x1C09_0000,
		StackBase:   0x8000_0000,
		StackSize:   64,
	})
}

func TestDumpContainsRegistersAndCSRs(t *testing.T) {
	c := newCPU()
	out := diag.Dump(c)
	assert.Contains(t, out, "pc: 0x00000000")
	assert.Contains(t, out, "x2/sp")
	assert.Contains(t, out, "mstatus")
	assert.Contains(t, out, "mepc")
	assert.Contains(t, out, "mcause")
	assert.Contains(t, out, "mtval")
}

func TestDisassembleEachFamily(t *testing.T) {
	cases := []struct {
		name string
		word uint32
		want string
	}{
		{"addi", 0x00500513, "addi a0, zero, 5"},
		{"lui", 0x123452B7, "lui t0, 0x12345"},
		{"jal", 0x010000EF, "jal ra, 16"},
		{"ecall", 0x00000073, "ecall"},
		{"mret", 0x30200073, "eret"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			inst, err := decoder.Decode(tc.word)
			require.NoError(t, err)
			assert.Equal(t, tc.want, diag.Disassemble(inst))
		})
	}
}

func TestDisassembleLoadStoreForm(t *testing.T) {
	// SW t0, -4(sp): funct3=2, rs1=sp(2), rs2=t0(5), imm=-4
	inst, err := decoder.Decode(0xFE512E23)
	require.NoError(t, err)
	assert.Equal(t, decoder.SW, inst.Op)
	assert.Equal(t, "sw t0, -4(sp)", diag.Disassemble(inst))
}
