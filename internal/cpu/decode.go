package cpu

import "golang.org/x/arch/arm64/arm64asm"

// Kind enumerates the instruction classes this interpreter executes
// directly (spec §4.3: "shape, not enumeration"). Decode classifies the
// raw instruction word into one of these by hand-extracting the relevant
// bitfields, the same way the reference implementation's instruction
// parser does — arm64asm.Decode is used only to produce the disassembly
// text attached to traces and crash reports, never to drive execution,
// since arm64asm's Args types do not expose their immediate/shift fields
// outside the package.
type Kind int

const (
	KindUnknown Kind = iota
	KindAddSubImm
	KindAddSubShiftedReg
	KindLogicalShiftedReg
	KindBitfield // sbfm / bfm
	KindCCMP
	KindMoveWide // movz / movn / movk
	KindLoadStoreImm
	KindLoadStorePair
	KindUncondBranchImm // b / bl
	KindCondBranchImm   // b.cond
	KindCompareBranch   // cbz / cbnz
	KindTestBranch      // tbz / tbnz
	KindUncondBranchReg // ret
	KindFPCompare
	KindFPMove
)

// Decoded is one fully classified instruction: enough bitfields extracted
// to execute it, plus the arm64asm text for diagnostics.
type Decoded struct {
	Addr uint64
	Bits uint32
	Kind Kind
	Text string

	Sf    bool // 1 => 64-bit (X), 0 => 32-bit (W)
	S     bool // flag-setting variant (ADDS/SUBS/ANDS)
	Op    uint8
	Rd    uint8
	Rn    uint8
	Rm    uint8
	Rt    uint8
	Rt2   uint8
	Imm   uint64
	Imm2  uint64
	Shift     uint8 // shift amount
	ShiftType uint8 // 0 LSL, 1 LSR, 2 ASR, 3 ROR
	Cond      uint8
	Size  uint8 // load/store transfer size class
	Signed bool
	Mode  AddrMode
}

// AddrMode mirrors the addressing-mode distinctions spec §4.3 requires
// (register, immediate, pre-index, post-index).
type AddrMode int

const (
	AddrOffset AddrMode = iota
	AddrPreIndex
	AddrPostIndex
)

func bits(v uint32, hi, lo uint) uint32 {
	width := hi - lo + 1
	mask := uint32(1)<<width - 1
	return (v >> lo) & mask
}

func sbits(v uint32, hi, lo uint) int64 {
	width := hi - lo + 1
	raw := bits(v, hi, lo)
	shift := 32 - width
	return int64(int32(raw<<shift)) >> shift
}

// loadStoreOp derives the load/store immediate class's load flag from opc:
// 00 = store, 01/10/11 = load (unsigned, signed-into-X, signed-into-W).
// opc&1 alone misclassifies opc==10 (e.g. LDRSW) as a store.
func loadStoreOp(opc uint32) uint8 {
	if opc == 0b00 {
		return 0
	}
	return 1
}

// Decode classifies bits at addr. Unrecognized encodings return
// KindUnknown; the caller surfaces BadInstruction.
func Decode(addr uint64, w uint32) Decoded {
	d := Decoded{Addr: addr, Bits: w}
	if inst, err := arm64asm.Decode([]byte{byte(w), byte(w >> 8), byte(w >> 16), byte(w >> 24)}); err == nil {
		d.Text = inst.String()
	} else {
		d.Text = "?"
	}

	op0 := bits(w, 28, 25)

	switch {
	case w == 0xd65f03c0: // RET with default Xn=X30, the overwhelmingly common form
		d.Kind = KindUncondBranchReg
		d.Rn = 30
		return d

	case bits(w, 31, 24) == 0xd6 && bits(w, 22, 21) == 0b10 && bits(w, 15, 10) == 0x1f && bits(w, 20, 16) == 0x1f:
		// RET Xn: 1101011 0 0 10 11111 000000 Rn 00000
		d.Kind = KindUncondBranchReg
		d.Rn = uint8(bits(w, 9, 5))
		return d

	case op0&0b1110 == 0b1010: // branches / exception / system (101x at [28:25] -> covers 1010,1011)
		return decodeBranch(d, w)

	case op0 == 0b1000 || op0 == 0b1001: // data processing - immediate
		return decodeDPImm(d, w)

	case op0&0b0111 == 0b0101: // data processing - register
		return decodeDPReg(d, w)

	case op0&0b0101 == 0b0100: // loads and stores
		return decodeLoadStore(d, w)

	case op0&0b0111 == 0b0111: // data processing - scalar FP/SIMD
		return decodeFP(d, w)
	}
	return d
}

func decodeBranch(d Decoded, w uint32) Decoded {
	top := bits(w, 31, 26)
	switch {
	case top == 0b000101: // B
		d.Kind = KindUncondBranchImm
		d.Imm = uint64(sbits(w, 25, 0) << 2)
		return d
	case top == 0b100101: // BL
		d.Kind = KindUncondBranchImm
		d.S = true // reuse S to mean "set LR" (this is BL)
		d.Imm = uint64(sbits(w, 25, 0) << 2)
		return d
	case bits(w, 31, 24) == 0b01010100 && bits(w, 4, 4) == 0: // B.cond
		d.Kind = KindCondBranchImm
		d.Cond = uint8(bits(w, 3, 0))
		d.Imm = uint64(sbits(w, 23, 5) << 2)
		return d
	case bits(w, 30, 24) == 0b0110100 || bits(w, 30, 24) == 0b0110101: // CBZ/CBNZ
		d.Kind = KindCompareBranch
		d.Sf = bits(w, 31, 31) == 1
		d.S = bits(w, 24, 24) == 1 // 1 => CBNZ
		d.Rt = uint8(bits(w, 4, 0))
		d.Imm = uint64(sbits(w, 23, 5) << 2)
		return d
	case bits(w, 30, 24) == 0b0110110 || bits(w, 30, 24) == 0b0110111: // TBZ/TBNZ
		d.Kind = KindTestBranch
		d.S = bits(w, 24, 24) == 1 // 1 => TBNZ
		d.Rt = uint8(bits(w, 4, 0))
		bit40 := bits(w, 23, 19)
		b5 := bits(w, 31, 31)
		d.Imm2 = uint64(b5<<5 | bit40) // bit position to test
		d.Imm = uint64(sbits(w, 18, 5) << 2)
		return d
	}
	return d
}

func decodeDPImm(d Decoded, w uint32) Decoded {
	group := bits(w, 25, 23)
	switch group {
	case 0b010, 0b011: // add/sub (immediate)
		d.Kind = KindAddSubImm
		d.Sf = bits(w, 31, 31) == 1
		d.Op = uint8(bits(w, 30, 30)) // 0 add, 1 sub
		d.S = bits(w, 29, 29) == 1
		sh := bits(w, 23, 22)
		imm12 := bits(w, 21, 10)
		if sh == 1 {
			d.Imm = uint64(imm12) << 12
		} else {
			d.Imm = uint64(imm12)
		}
		d.Rn = uint8(bits(w, 9, 5))
		d.Rd = uint8(bits(w, 4, 0))
		return d
	case 0b100, 0b110: // bitfield (SBFM/BFM/UBFM)
		d.Kind = KindBitfield
		d.Sf = bits(w, 31, 31) == 1
		d.Op = uint8(bits(w, 30, 29)) // 00 SBFM, 01 BFM, 10 UBFM
		d.Imm = uint64(bits(w, 21, 16))
		d.Imm2 = uint64(bits(w, 15, 10))
		d.Rn = uint8(bits(w, 9, 5))
		d.Rd = uint8(bits(w, 4, 0))
		return d
	case 0b101: // move-wide immediate: MOVN/MOVZ/MOVK
		d.Kind = KindMoveWide
		d.Sf = bits(w, 31, 31) == 1
		d.Op = uint8(bits(w, 30, 29)) // 00 MOVN, 10 MOVZ, 11 MOVK
		hw := bits(w, 22, 21)
		d.Shift = uint8(hw) * 16
		d.Imm = uint64(bits(w, 20, 5))
		d.Rd = uint8(bits(w, 4, 0))
		return d
	}
	return d
}

func decodeDPReg(d Decoded, w uint32) Decoded {
	b28 := bits(w, 28, 24)
	switch {
	case b28 == 0b01011: // add/sub shifted/extended register
		d.Kind = KindAddSubShiftedReg
		d.Sf = bits(w, 31, 31) == 1
		d.Op = uint8(bits(w, 30, 30))
		d.S = bits(w, 29, 29) == 1
		d.ShiftType = uint8(bits(w, 23, 22))
		d.Shift = uint8(bits(w, 15, 10))
		d.Rm = uint8(bits(w, 20, 16))
		d.Rn = uint8(bits(w, 9, 5))
		d.Rd = uint8(bits(w, 4, 0))
		return d
	case b28 == 0b01010: // logical shifted register (AND/ORR/EOR/BIC/ANDS/TST)
		d.Kind = KindLogicalShiftedReg
		d.Sf = bits(w, 31, 31) == 1
		d.Op = uint8(bits(w, 30, 29)) // 00 AND, 01 ORR, 10 EOR, 11 ANDS
		d.S = bits(w, 21, 21) == 1   // N bit: 1 => bic/orn/eon/bics variant
		d.ShiftType = uint8(bits(w, 23, 22))
		d.Shift = uint8(bits(w, 15, 10))
		d.Rm = uint8(bits(w, 20, 16))
		d.Rn = uint8(bits(w, 9, 5))
		d.Rd = uint8(bits(w, 4, 0))
		return d
	case bits(w, 30, 21) == 0b1111010010 || bits(w, 30, 21) == 0b0111010010: // CCMP/CCMN (register/immediate)
		d.Kind = KindCCMP
		d.Sf = bits(w, 31, 31) == 1
		d.Op = uint8(bits(w, 30, 30)) // 0 CCMN, 1 CCMP (mirrors add/sub convention)
		d.S = bits(w, 11, 11) == 1    // imm variant
		d.Rn = uint8(bits(w, 9, 5))
		if d.S {
			d.Imm = uint64(bits(w, 20, 16))
		} else {
			d.Rm = uint8(bits(w, 20, 16))
		}
		d.Cond = uint8(bits(w, 15, 12))
		d.Imm2 = uint64(bits(w, 3, 0)) // nzcv on fail
		return d
	}
	return d
}

func decodeLoadStore(d Decoded, w uint32) Decoded {
	size := bits(w, 31, 30)
	op2 := bits(w, 24, 23)
	v := bits(w, 26, 26)
	if v == 1 {
		d.Kind = KindUnknown // SIMD/FP load-store not modeled
		return d
	}
	opc := bits(w, 23, 22)

	// LDP/STP: bits[29:27]==101, bit26=0, bit25=0; bits[24:23] select the
	// addressing mode: 01 post-index, 10 offset, 11 pre-index.
	if bits(w, 29, 27) == 0b101 && bits(w, 25, 25) == 0 {
		d.Kind = KindLoadStorePair
		d.Sf = size == 0b10 // 64-bit pair when size bit 31=1 (x-form uses opc[31]=1;size field here reused)
		d.Op = uint8(bits(w, 22, 22))  // L bit: 1 load, 0 store
		mode := bits(w, 24, 23)
		switch mode {
		case 0b01:
			d.Mode = AddrPostIndex
		case 0b11:
			d.Mode = AddrPreIndex
		default:
			d.Mode = AddrOffset
		}
		scale := uint(2)
		if d.Sf {
			scale = 3
		}
		d.Imm = uint64(sbits(w, 21, 15) << scale)
		d.Rt2 = uint8(bits(w, 14, 10))
		d.Rn = uint8(bits(w, 9, 5))
		d.Rt = uint8(bits(w, 4, 0))
		return d
	}

	if op2&0b10 == 0 { // unscaled immediate (LDUR/STUR family) when bits[11:10]==00
		if bits(w, 11, 10) == 0b00 {
			d.Kind = KindLoadStoreImm
			d.Size = uint8(size)
			d.Op = loadStoreOp(opc) // 0 store (opc==00), 1 load
			d.Signed = opc == 0b10 || opc == 0b11
			d.Mode = AddrOffset
			d.Imm = uint64(sbits(w, 20, 12))
			d.Rn = uint8(bits(w, 9, 5))
			d.Rt = uint8(bits(w, 4, 0))
			return d
		}
		if bits(w, 11, 10) == 0b01 || bits(w, 11, 10) == 0b11 {
			d.Kind = KindLoadStoreImm
			d.Size = uint8(size)
			d.Op = loadStoreOp(opc)
			d.Signed = opc == 0b10 || opc == 0b11
			if bits(w, 11, 10) == 0b01 {
				d.Mode = AddrPostIndex
			} else {
				d.Mode = AddrPreIndex
			}
			d.Imm = uint64(sbits(w, 20, 12))
			d.Rn = uint8(bits(w, 9, 5))
			d.Rt = uint8(bits(w, 4, 0))
			return d
		}
	}
	// unsigned immediate (scaled), LDR/STR/LDRB/LDRH/...
	d.Kind = KindLoadStoreImm
	d.Size = uint8(size)
	d.Op = loadStoreOp(opc)
	d.Signed = opc == 0b10 || opc == 0b11
	d.Mode = AddrOffset
	d.Imm = uint64(bits(w, 21, 10)) << size
	d.Rn = uint8(bits(w, 9, 5))
	d.Rt = uint8(bits(w, 4, 0))
	return d
}

func decodeFP(d Decoded, w uint32) Decoded {
	if bits(w, 31, 24) == 0b00011110 && bits(w, 13, 10) == 0b1000 {
		d.Kind = KindFPCompare
		d.Sf = bits(w, 22, 22) == 1 // type bit: 1 => double
		d.Rm = uint8(bits(w, 20, 16))
		d.Rn = uint8(bits(w, 9, 5))
		return d
	}
	if bits(w, 31, 21) == 0b00011110001 && bits(w, 15, 10) == 0b010000 {
		d.Kind = KindFPMove
		d.Sf = bits(w, 22, 22) == 1
		d.Rn = uint8(bits(w, 9, 5))
		d.Rd = uint8(bits(w, 4, 0))
		return d
	}
	return d
}
