// Package diag provides the core's diagnostic-only surface: formatted
// dumps of the register and CSR files, and disassembly of a decoded
// instruction (spec.md §2 "Diagnostics", §6 dump/disasm). None of this
// is architecturally observable; a co-simulation harness only ever
// looks at cpu.WriteBack.
package diag

import (
	"fmt"
	"sort"
	"strings"

	"github.com/davecgh/go-spew/spew"

	"github.com/rv32sim/rv32sim/pkg/cpu"
	"github.com/rv32sim/rv32sim/pkg/decoder"
)

var dumpConfig = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// Dump renders a register- and CSR-file snapshot of c, the Go-native
// analogue of the teacher's VM.String().
func Dump(c *cpu.CPU) string {
	var b strings.Builder
	fmt.Fprintf(&b, "pc: 0x%08x\n", c.PC())
	b.WriteString("registers:\n")
	regs := c.Registers()
	named := make(map[string]uint32, len(regs))
	for i, v := range regs {
		named[fmt.Sprintf("x%d/%s", i, cpu.RegisterName(uint32(i)))] = v
	}
	b.WriteString(dumpConfig.Sdump(named))
	b.WriteString("csrs:\n")
	b.WriteString(dumpConfig.Sdump(csrNames(c.CSRs())))
	return b.String()
}

func csrNames(csrs map[uint32]uint32) map[string]uint32 {
	names := map[uint32]string{
		cpu.MSTATUS: "mstatus",
		cpu.MEPC:    "mepc",
		cpu.MCAUSE:  "mcause",
		cpu.MTVAL:   "mtval",
	}
	out := make(map[string]uint32, len(csrs))
	keys := make([]uint32, 0, len(csrs))
	for k := range csrs {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	for _, k := range keys {
		name, ok := names[k]
		if !ok {
			name = fmt.Sprintf("csr%03x", k)
		}
		out[name] = csrs[k]
	}
	return out
}

// Disassemble renders inst as human-readable RV32I/Zicsr assembly,
// grounded on the teacher's vm.Disassemble switch-on-opcode shape and
// on rcornwell/S370's opMap-table disassembler.
func Disassemble(inst decoder.Instruction) string {
	r := func(i uint32) string { return cpu.RegisterName(i) }
	m := strings.ToLower(inst.Op.String())
	switch inst.Op {
	case decoder.LB, decoder.LH, decoder.LW, decoder.LBU, decoder.LHU:
		return fmt.Sprintf("%s %s, %d(%s)", m, r(inst.Rd), inst.Imm, r(inst.Rs1))
	case decoder.ADDI, decoder.SLTI, decoder.SLTIU, decoder.XORI, decoder.ORI, decoder.ANDI:
		return fmt.Sprintf("%s %s, %s, %d", m, r(inst.Rd), r(inst.Rs1), inst.Imm)
	case decoder.SLLI, decoder.SRLI, decoder.SRAI:
		return fmt.Sprintf("%s %s, %s, %d", m, r(inst.Rd), r(inst.Rs1), inst.Imm&0x1F)
	case decoder.AUIPC, decoder.LUI:
		return fmt.Sprintf("%s %s, 0x%x", m, r(inst.Rd), uint32(inst.Imm)>>12)
	case decoder.SB, decoder.SH, decoder.SW:
		return fmt.Sprintf("%s %s, %d(%s)", m, r(inst.Rs2), inst.Imm, r(inst.Rs1))
	case decoder.ADD, decoder.SUB, decoder.SLL, decoder.SLT, decoder.SLTU,
		decoder.XOR, decoder.SRL, decoder.SRA, decoder.OR, decoder.AND:
		return fmt.Sprintf("%s %s, %s, %s", m, r(inst.Rd), r(inst.Rs1), r(inst.Rs2))
	case decoder.BEQ, decoder.BNE, decoder.BLT, decoder.BGE, decoder.BLTU, decoder.BGEU:
		return fmt.Sprintf("%s %s, %s, %d", m, r(inst.Rs1), r(inst.Rs2), inst.Imm)
	case decoder.JAL:
		return fmt.Sprintf("jal %s, %d", r(inst.Rd), inst.Imm)
	case decoder.JALR:
		return fmt.Sprintf("jalr %s, %d(%s)", r(inst.Rd), inst.Imm, r(inst.Rs1))
	case decoder.ECALL:
		return "ecall"
	case decoder.ERET:
		return "eret"
	case decoder.CSRRW, decoder.CSRRS, decoder.CSRRC:
		return fmt.Sprintf("%s %s, 0x%03x, %s", m, r(inst.Rd), inst.Csr, r(inst.Rs1))
	case decoder.CSRRWI, decoder.CSRRSI, decoder.CSRRCI:
		return fmt.Sprintf("%s %s, 0x%03x, %d", m, r(inst.Rd), inst.Csr, inst.Rs1&0x1F)
	default:
		return fmt.Sprintf("<unknown: %s>", m)
	}
}
