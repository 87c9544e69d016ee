package cpu

import (
	"fmt"

	"github.com/rv32sim/rv32sim/pkg/decoder"
)

// apply applies the architectural effect of inst. curPC is the PC
// value Execute's caller observed after PCStep, i.e. the retiring
// instruction's PC plus 4. It returns the destination
// register, the value to write, and whether the instruction
// architecturally writes a register at all (independent of whether
// rd happens to be zero — Execute masks that case via Ena).
func (c *CPU) apply(inst decoder.Instruction, curPC uint32) (rd uint32, val uint32, writes bool, err error) {
	retiredPC := curPC - 4

	switch inst.Op {
	// ALU register-immediate.
	case decoder.ADDI:
		return inst.Rd, c.regU(inst.Rs1) + uint32(inst.Imm), true, nil
	case decoder.SLTI:
		return inst.Rd, boolU(int32(c.regU(inst.Rs1)) < inst.Imm), true, nil
	case decoder.SLTIU:
		return inst.Rd, boolU(c.regU(inst.Rs1) < uint32(inst.Imm)), true, nil
	case decoder.XORI:
		return inst.Rd, c.regU(inst.Rs1) ^ uint32(inst.Imm), true, nil
	case decoder.ORI:
		return inst.Rd, c.regU(inst.Rs1) | uint32(inst.Imm), true, nil
	case decoder.ANDI:
		return inst.Rd, c.regU(inst.Rs1) & uint32(inst.Imm), true, nil
	case decoder.SLLI:
		return inst.Rd, c.regU(inst.Rs1) << uint(inst.Imm&0x1F), true, nil
	case decoder.SRLI:
		return inst.Rd, c.regU(inst.Rs1) >> uint(inst.Imm&0x1F), true, nil
	case decoder.SRAI:
		return inst.Rd, uint32(int32(c.regU(inst.Rs1)) >> uint(inst.Imm&0x1F)), true, nil

	// ALU register-register.
	case decoder.ADD:
		return inst.Rd, c.regU(inst.Rs1) + c.regU(inst.Rs2), true, nil
	case decoder.SUB:
		return inst.Rd, c.regU(inst.Rs1) - c.regU(inst.Rs2), true, nil
	case decoder.AND:
		return inst.Rd, c.regU(inst.Rs1) & c.regU(inst.Rs2), true, nil
	case decoder.OR:
		return inst.Rd, c.regU(inst.Rs1) | c.regU(inst.Rs2), true, nil
	case decoder.XOR:
		return inst.Rd, c.regU(inst.Rs1) ^ c.regU(inst.Rs2), true, nil
	case decoder.SLT:
		return inst.Rd, boolU(int32(c.regU(inst.Rs1)) < int32(c.regU(inst.Rs2))), true, nil
	case decoder.SLTU:
		return inst.Rd, boolU(c.regU(inst.Rs1) < c.regU(inst.Rs2)), true, nil
	case decoder.SLL:
		return inst.Rd, c.regU(inst.Rs1) << uint(c.regU(inst.Rs2)&0x1F), true, nil
	case decoder.SRL:
		return inst.Rd, c.regU(inst.Rs1) >> uint(c.regU(inst.Rs2)&0x1F), true, nil
	case decoder.SRA:
		return inst.Rd, uint32(int32(c.regU(inst.Rs1)) >> uint(c.regU(inst.Rs2)&0x1F)), true, nil

	// Upper-immediate.
	case decoder.LUI:
		return inst.Rd, uint32(inst.Imm), true, nil
	case decoder.AUIPC:
		return inst.Rd, retiredPC + uint32(inst.Imm), true, nil

	// Branches: no write-back.
	case decoder.BEQ:
		c.branchIf(c.regU(inst.Rs1) == c.regU(inst.Rs2), retiredPC, inst.Imm)
		return 0, 0, false, nil
	case decoder.BNE:
		c.branchIf(c.regU(inst.Rs1) != c.regU(inst.Rs2), retiredPC, inst.Imm)
		return 0, 0, false, nil
	case decoder.BLT:
		c.branchIf(int32(c.regU(inst.Rs1)) < int32(c.regU(inst.Rs2)), retiredPC, inst.Imm)
		return 0, 0, false, nil
	case decoder.BGE:
		c.branchIf(int32(c.regU(inst.Rs1)) >= int32(c.regU(inst.Rs2)), retiredPC, inst.Imm)
		return 0, 0, false, nil
	case decoder.BLTU:
		c.branchIf(c.regU(inst.Rs1) < c.regU(inst.Rs2), retiredPC, inst.Imm)
		return 0, 0, false, nil
	case decoder.BGEU:
		c.branchIf(c.regU(inst.Rs1) >= c.regU(inst.Rs2), retiredPC, inst.Imm)
		return 0, 0, false, nil

	// Jumps.
	case decoder.JAL:
		c.pc = uint32(int32(retiredPC) + inst.Imm)
		return inst.Rd, curPC, true, nil
	case decoder.JALR:
		target := (c.regU(inst.Rs1) + uint32(inst.Imm)) &^ 1
		c.pc = target
		return inst.Rd, curPC, true, nil

	// Loads.
	case decoder.LB:
		return c.load(inst, 8, true)
	case decoder.LH:
		return c.load(inst, 16, true)
	case decoder.LW:
		return c.load(inst, 32, true)
	case decoder.LBU:
		return c.load(inst, 8, false)
	case decoder.LHU:
		return c.load(inst, 16, false)

	// Stores: no write-back.
	case decoder.SB:
		return 0, 0, false, c.store(inst, 8)
	case decoder.SH:
		return 0, 0, false, c.store(inst, 16)
	case decoder.SW:
		return 0, 0, false, c.store(inst, 32)

	// Zicsr.
	case decoder.CSRRW, decoder.CSRRS, decoder.CSRRC, decoder.CSRRWI, decoder.CSRRSI, decoder.CSRRCI:
		return c.csrOp(inst)

	// Traps.
	case decoder.ECALL:
		if err := c.csr.write(MEPC, retiredPC); err != nil {
			return 0, 0, false, err
		}
		target, err := c.csr.read(MTVAL)
		if err != nil {
			return 0, 0, false, err
		}
		if err := c.csr.write(MCAUSE, 0x0000000B); err != nil {
			return 0, 0, false, err
		}
		c.pc = target
		return 0, 0, false, nil
	case decoder.ERET:
		mepc, err := c.csr.read(MEPC)
		if err != nil {
			return 0, 0, false, err
		}
		c.pc = mepc
		return 0, 0, false, ErrEretStop

	default:
		return 0, 0, false, fmt.Errorf("cpu: unhandled decoded op %s", inst.Op)
	}
}

func (c *CPU) regU(i uint32) uint32 { return c.Register(i) }

func boolU(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func (c *CPU) branchIf(taken bool, retiredPC uint32, imm int32) {
	if taken {
		c.pc = uint32(int32(retiredPC) + imm)
	}
}

func (c *CPU) load(inst decoder.Instruction, bits uint32, signed bool) (uint32, uint32, bool, error) {
	ea := c.regU(inst.Rs1) + uint32(inst.Imm)
	raw, err := c.dram.Load(ea, bits)
	if err != nil {
		return 0, 0, false, err
	}
	if !signed {
		return inst.Rd, raw, true, nil
	}
	switch bits {
	case 8:
		return inst.Rd, uint32(int32(int8(raw))), true, nil
	case 16:
		return inst.Rd, uint32(int32(int16(raw))), true, nil
	default:
		return inst.Rd, raw, true, nil
	}
}

func (c *CPU) store(inst decoder.Instruction, bits uint32) error {
	ea := c.regU(inst.Rs1) + uint32(inst.Imm)
	return c.dram.Store(ea, c.regU(inst.Rs2), bits)
}

func (c *CPU) csrOp(inst decoder.Instruction) (uint32, uint32, bool, error) {
	old, err := c.csr.read(inst.Csr)
	if err != nil {
		return 0, 0, false, err
	}
	var operand uint32
	switch inst.Op {
	case decoder.CSRRW, decoder.CSRRS, decoder.CSRRC:
		operand = c.regU(inst.Rs1)
	case decoder.CSRRWI, decoder.CSRRSI, decoder.CSRRCI:
		operand = inst.Rs1 & 0x1F // zero-extended 5-bit immediate carried in the rs1 slot
	}
	var next uint32
	switch inst.Op {
	case decoder.CSRRW, decoder.CSRRWI:
		next = operand
	case decoder.CSRRS, decoder.CSRRSI:
		next = old | operand
	case decoder.CSRRC, decoder.CSRRCI:
		next = old &^ operand
	}
	if err := c.csr.write(inst.Csr, next); err != nil {
		return 0, 0, false, err
	}
	return inst.Rd, old, true, nil
}
