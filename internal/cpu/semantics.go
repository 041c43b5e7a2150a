package cpu

import "github.com/hyrule-sim/pouchsim/internal/memory"

// exec applies the per-class semantics described in spec §4.3 for one
// decoded instruction. PC has already been advanced to the fallthrough
// address by the caller; control-flow handlers overwrite it as needed.
func (c *Cpu2) exec(d Decoded) error {
	switch d.Kind {
	case KindAddSubImm:
		return c.execAddSubImm(d)
	case KindAddSubShiftedReg:
		return c.execAddSubReg(d)
	case KindLogicalShiftedReg:
		return c.execLogicalReg(d)
	case KindBitfield:
		return c.execBitfield(d)
	case KindCCMP:
		return c.execCCMP(d)
	case KindMoveWide:
		return c.execMoveWide(d)
	case KindLoadStoreImm:
		return c.execLoadStoreImm(d)
	case KindLoadStorePair:
		return c.execLoadStorePair(d)
	case KindUncondBranchImm:
		return c.execUncondBranchImm(d)
	case KindCondBranchImm:
		return c.execCondBranchImm(d)
	case KindCompareBranch:
		return c.execCompareBranch(d)
	case KindTestBranch:
		return c.execTestBranch(d)
	case KindUncondBranchReg:
		return c.execRet(d)
	case KindFPCompare:
		return c.execFPCompare(d)
	case KindFPMove:
		return c.execFPMove(d)
	default:
		return &BadInstruction{Bits: d.Bits, Addr: d.Addr}
	}
}

func width(sf bool) int {
	if sf {
		return 64
	}
	return 32
}

func (c *Cpu2) readGen(sf bool, idx uint8) uint64 {
	if sf {
		return c.Regs.ReadX(int(idx))
	}
	return c.Regs.ReadW(int(idx))
}

func (c *Cpu2) writeGen(sf bool, idx uint8, v uint64) {
	if sf {
		c.Regs.WriteX(int(idx), v)
	} else {
		c.Regs.WriteW(int(idx), uint32(v))
	}
}

func shiftedOperand(sf bool, val uint64, shiftType uint8, amount uint8) uint64 {
	amt := amount & 0x3f
	if !sf {
		amt &= 0x1f
	}
	switch shiftType & 0x3 {
	case 0: // LSL
		return val << amt
	case 1: // LSR
		return val >> amt
	case 2: // ASR
		if sf {
			return uint64(int64(val) >> amt)
		}
		return uint64(uint32(int32(uint32(val)) >> amt))
	default: // ROR
		w := uint(width(sf))
		amt = amt % uint8(w)
		return (val >> amt) | (val << (w - uint(amt)))
	}
}

// readGenSP/writeGenSP are for the add/sub-immediate register class, which
// names SP (not XZR) at index 31 — unlike the shifted-register and
// load/store-target classes, which keep XZR/WZR there.
func (c *Cpu2) readGenSP(sf bool, idx uint8) uint64 {
	if idx == 31 {
		return c.Regs.SP
	}
	return c.readGen(sf, idx)
}

func (c *Cpu2) writeGenSP(sf bool, idx uint8, v uint64) {
	if idx == 31 {
		c.Regs.SP = v
		return
	}
	c.writeGen(sf, idx, v)
}

func (c *Cpu2) execAddSubImm(d Decoded) error {
	// Rn always comes from the Rd|SP register class; Rd does too for the
	// plain (non-flag-setting) form. The flag-setting forms (ADDS/SUBS,
	// including the CMP/CMN aliases) always target a general register —
	// Rd==31 there means XZR, discarding the result, never SP.
	xn := c.readGenSP(d.Sf, d.Rn)
	var result uint64
	var n, z, cc, v bool
	if d.Op == 0 {
		result, n, z, cc, v = addWide(d.Sf, xn, d.Imm, false)
	} else {
		result, n, z, cc, v = addWide(d.Sf, xn, ^d.Imm, true)
	}
	if d.S {
		c.writeGen(d.Sf, d.Rd, result)
		c.Regs.SetNZCV(n, z, cc, v)
	} else {
		c.writeGenSP(d.Sf, d.Rd, result)
	}
	return nil
}

func addWide(sf bool, x, y uint64, carryIn bool) (result uint64, n, z, c, v bool) {
	if sf {
		return AddWithCarry64(x, y, carryIn)
	}
	r32, n32, z32, c32, v32 := AddWithCarry32(uint32(x), uint32(y), carryIn)
	return uint64(r32), n32, z32, c32, v32
}

func (c *Cpu2) execAddSubReg(d Decoded) error {
	xn := c.readGen(d.Sf, d.Rn)
	xm := c.readGen(d.Sf, d.Rm)
	op2 := shiftedOperand(d.Sf, xm, d.ShiftType, d.Shift)
	var result uint64
	var n, z, cc, v bool
	if d.Op == 0 {
		result, n, z, cc, v = addWide(d.Sf, xn, op2, false)
	} else {
		result, n, z, cc, v = addWide(d.Sf, xn, ^op2, true)
	}
	c.writeGen(d.Sf, d.Rd, result)
	if d.S {
		c.Regs.SetNZCV(n, z, cc, v)
	}
	return nil
}

func (c *Cpu2) execLogicalReg(d Decoded) error {
	xn := c.readGen(d.Sf, d.Rn)
	xm := c.readGen(d.Sf, d.Rm)
	op2 := shiftedOperand(d.Sf, xm, d.ShiftType, d.Shift)
	if d.S { // N bit set: BIC/ORN/EON/BICS family, invert operand 2
		op2 = ^op2
	}
	var result uint64
	switch d.Op {
	case 0b00: // AND / BIC
		result = xn & op2
	case 0b01: // ORR / ORN
		result = xn | op2
	case 0b10: // EOR / EON
		result = xn ^ op2
	case 0b11: // ANDS / BICS
		result = xn & op2
		n := signBit(d.Sf, result)
		z := isZero(d.Sf, result)
		c.Regs.SetNZCV(n, z, false, false)
	}
	if !d.Sf {
		result = uint64(uint32(result))
	}
	c.writeGen(d.Sf, d.Rd, result)
	return nil
}

func signBit(sf bool, v uint64) bool {
	if sf {
		return int64(v) < 0
	}
	return int32(uint32(v)) < 0
}

func isZero(sf bool, v uint64) bool {
	if sf {
		return v == 0
	}
	return uint32(v) == 0
}

func (c *Cpu2) execBitfield(d Decoded) error {
	rn := c.readGen(d.Sf, d.Rn)
	regsize := width(d.Sf)
	immr, imms := uint8(d.Imm), uint8(d.Imm2)
	var out uint64
	switch d.Op {
	case 0b00: // SBFM
		out = SBFM(regsize, rn, immr, imms)
	case 0b01: // BFM
		rd := c.readGen(d.Sf, d.Rd)
		out = BFM(rd, rn, immr, imms)
	default: // UBFM: zero-extended bitfield move (LSL/LSR immediate aliases)
		if imms >= immr {
			start, copySize := immr, 1+imms-immr
			out = bitRange(rn, start+copySize-1, start)
		} else {
			copySize := imms + 1
			out = bitRange(rn, copySize-1, 0) << (uint64(regsize) - uint64(immr))
		}
	}
	if !d.Sf {
		out = uint64(uint32(out))
	}
	c.writeGen(d.Sf, d.Rd, out)
	return nil
}

func (c *Cpu2) execCCMP(d Decoded) error {
	if !condHolds(d.Cond, c.Regs.NZCV) {
		nzcv := uint8(d.Imm2)
		c.Regs.NZCV = nzcv
		return nil
	}
	xn := c.readGen(d.Sf, d.Rn)
	var op2 uint64
	if d.S {
		op2 = d.Imm
	} else {
		op2 = c.readGen(d.Sf, d.Rm)
	}
	var n, z, cc, v bool
	if d.Op == 1 { // CCMP: subtract
		_, n, z, cc, v = addWide(d.Sf, xn, ^op2, true)
	} else { // CCMN: add
		_, n, z, cc, v = addWide(d.Sf, xn, op2, false)
	}
	c.Regs.SetNZCV(n, z, cc, v)
	return nil
}

func (c *Cpu2) execMoveWide(d Decoded) error {
	imm := d.Imm << d.Shift
	switch d.Op {
	case 0b00: // MOVN
		out := ^imm
		if !d.Sf {
			out = uint64(uint32(out))
		}
		c.writeGen(d.Sf, d.Rd, out)
	case 0b10: // MOVZ
		c.writeGen(d.Sf, d.Rd, imm)
	case 0b11: // MOVK
		cur := c.readGen(d.Sf, d.Rd)
		mask := uint64(0xffff) << d.Shift
		out := (cur &^ mask) | imm
		c.writeGen(d.Sf, d.Rd, out)
	}
	return nil
}

func (c *Cpu2) effectiveAddr(d Decoded) (addr uint64, newBase uint64) {
	base := c.Regs.ReadX(int(d.Rn))
	if d.Rn == 31 {
		base = c.Regs.SP
	}
	addr = base
	newBase = base
	switch d.Mode {
	case AddrOffset:
		addr = uint64(int64(base) + int64(d.Imm))
	case AddrPreIndex:
		addr = uint64(int64(base) + int64(d.Imm))
		newBase = addr
	case AddrPostIndex:
		newBase = uint64(int64(base) + int64(d.Imm))
	}
	return addr, newBase
}

func (c *Cpu2) writeBackBase(d Decoded, newBase uint64) {
	if d.Mode == AddrOffset {
		return
	}
	if d.Rn == 31 {
		c.Regs.SP = newBase
	} else {
		c.Regs.WriteX(int(d.Rn), newBase)
	}
}

func (c *Cpu2) execLoadStoreImm(d Decoded) error {
	addr, newBase := c.effectiveAddr(d)
	is64 := d.Size == 0b11
	if d.Op == 1 { // load
		r, err := c.Mem.NewReader(addr, memory.PermRead)
		if err != nil {
			return err
		}
		var val uint64
		switch d.Size {
		case 0b00: // byte
			b, err := r.ReadU8()
			if err != nil {
				return err
			}
			if d.Signed {
				val = uint64(int64(int8(b)))
			} else {
				val = uint64(b)
			}
		case 0b01: // half
			h, err := r.ReadU16()
			if err != nil {
				return err
			}
			if d.Signed {
				val = uint64(int64(int16(h)))
			} else {
				val = uint64(h)
			}
		case 0b10: // word
			w32, err := r.ReadU32()
			if err != nil {
				return err
			}
			if d.Signed {
				val = uint64(int64(int32(w32)))
			} else {
				val = uint64(w32)
			}
		case 0b11: // doubleword
			val, err = r.ReadU64()
			if err != nil {
				return err
			}
		}
		// Sign-extending loads (LDRSB/LDRSH/LDRSW) conventionally target
		// the full X register; unsigned sub-word loads target W and
		// zero-extend per the sub-register write rule.
		c.writeGen(is64 || d.Signed, d.Rt, val)
	} else { // store
		w, err := c.Mem.NewWriter(addr, memory.PermWrite)
		if err != nil {
			return err
		}
		val := c.readGen(is64, d.Rt)
		switch d.Size {
		case 0b00:
			err = w.WriteU8(uint8(val))
		case 0b01:
			err = w.WriteU16(uint16(val))
		case 0b10:
			err = w.WriteU32(uint32(val))
		case 0b11:
			err = w.WriteU64(val)
		}
		if err != nil {
			return err
		}
	}
	c.writeBackBase(d, newBase)
	return nil
}

func (c *Cpu2) execLoadStorePair(d Decoded) error {
	addr, newBase := c.effectiveAddr(d)
	elemSize := uint64(4)
	if d.Sf {
		elemSize = 8
	}
	if d.Op == 1 { // load pair
		r, err := c.Mem.NewReader(addr, memory.PermRead)
		if err != nil {
			return err
		}
		if d.Sf {
			v1, err := r.ReadU64()
			if err != nil {
				return err
			}
			r2, err := c.Mem.NewReader(addr+elemSize, memory.PermRead)
			if err != nil {
				return err
			}
			v2, err := r2.ReadU64()
			if err != nil {
				return err
			}
			c.Regs.WriteX(int(d.Rt), v1)
			c.Regs.WriteX(int(d.Rt2), v2)
		} else {
			v1, err := r.ReadU32()
			if err != nil {
				return err
			}
			r2, err := c.Mem.NewReader(addr+elemSize, memory.PermRead)
			if err != nil {
				return err
			}
			v2, err := r2.ReadU32()
			if err != nil {
				return err
			}
			c.Regs.WriteW(int(d.Rt), v1)
			c.Regs.WriteW(int(d.Rt2), v2)
		}
	} else { // store pair
		w1, err := c.Mem.NewWriter(addr, memory.PermWrite)
		if err != nil {
			return err
		}
		w2, err := c.Mem.NewWriter(addr+elemSize, memory.PermWrite)
		if err != nil {
			return err
		}
		if d.Sf {
			if err := w1.WriteU64(c.Regs.ReadX(int(d.Rt))); err != nil {
				return err
			}
			if err := w2.WriteU64(c.Regs.ReadX(int(d.Rt2))); err != nil {
				return err
			}
		} else {
			if err := w1.WriteU32(uint32(c.Regs.ReadW(int(d.Rt)))); err != nil {
				return err
			}
			if err := w2.WriteU32(uint32(c.Regs.ReadW(int(d.Rt2)))); err != nil {
				return err
			}
		}
	}
	if d.Mode != AddrOffset {
		if d.Rn == 31 {
			c.Regs.SP = newBase
		} else {
			c.Regs.WriteX(int(d.Rn), newBase)
		}
	}
	return nil
}

func (c *Cpu2) execUncondBranchImm(d Decoded) error {
	target := uint64(int64(d.Addr) + int64(d.Imm))
	if d.S { // BL: link register gets return address
		c.Regs.X[30] = d.Addr + 4
		c.Trace.Push(d.Addr, target)
	}
	c.Regs.PC = target
	return nil
}

func (c *Cpu2) execCondBranchImm(d Decoded) error {
	if condHolds(d.Cond, c.Regs.NZCV) {
		c.Regs.PC = uint64(int64(d.Addr) + int64(d.Imm))
	}
	return nil
}

func (c *Cpu2) execCompareBranch(d Decoded) error {
	val := c.readGen(d.Sf, d.Rt)
	taken := val == 0
	if d.S { // CBNZ
		taken = val != 0
	}
	if taken {
		c.Regs.PC = uint64(int64(d.Addr) + int64(d.Imm))
	}
	return nil
}

func (c *Cpu2) execTestBranch(d Decoded) error {
	val := c.readGen(true, d.Rt)
	bitSet := (val>>d.Imm2)&1 == 1
	taken := bitSet
	if !d.S { // TBZ fires when the bit is clear
		taken = !bitSet
	}
	if taken {
		c.Regs.PC = uint64(int64(d.Addr) + int64(d.Imm))
	}
	return nil
}

func (c *Cpu2) execRet(d Decoded) error {
	c.Regs.PC = c.Regs.ReadX(int(d.Rn))
	if f, ok := c.Trace.Pop(); ok {
		_ = f // retained for symmetry; nothing further to restore host-side
	}
	return nil
}

func (c *Cpu2) execFPCompare(d Decoded) error {
	if d.Sf {
		a, b := c.Regs.ReadD(int(d.Rn)), c.Regs.ReadD(int(d.Rm))
		n, z, cc, v := FPCompare64(a, b)
		c.Regs.SetNZCV(n, z, cc, v)
	} else {
		a, b := c.Regs.ReadS(int(d.Rn)), c.Regs.ReadS(int(d.Rm))
		n, z, cc, v := FPCompare32(a, b)
		c.Regs.SetNZCV(n, z, cc, v)
	}
	return nil
}

func (c *Cpu2) execFPMove(d Decoded) error {
	if d.Sf {
		c.Regs.WriteD(int(d.Rd), c.Regs.ReadD(int(d.Rn)))
	} else {
		c.Regs.WriteS(int(d.Rd), c.Regs.ReadS(int(d.Rn)))
	}
	return nil
}

// condHolds evaluates one of the 16 AArch64 condition codes against NZCV.
func condHolds(cond uint8, nzcv uint8) bool {
	n := nzcv&FlagN != 0
	z := nzcv&FlagZ != 0
	c := nzcv&FlagC != 0
	v := nzcv&FlagV != 0
	var result bool
	switch cond >> 1 {
	case 0b000:
		result = z
	case 0b001:
		result = c
	case 0b010:
		result = n
	case 0b011:
		result = v
	case 0b100:
		result = c && !z
	case 0b101:
		result = n == v
	case 0b110:
		result = n == v && !z
	case 0b111:
		result = true
	}
	if cond&1 == 1 && cond != 0b1111 {
		result = !result
	}
	return result
}
