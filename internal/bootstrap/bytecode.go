// Package bootstrap implements the singleton bootstrap bytecode (spec
// §4.5): a small, hand-authored replay sequence per singleton per game
// version that drives the real constructor through the emulated CPU while
// substituting simulator-heap allocations for the parts we don't emulate
// (disposers, dual heaps, save loading).
package bootstrap

import "encoding/binary"

// Op is the one-byte opcode of a bootstrap bytecode record (spec §6:
// "1-byte opcode followed by up to 7 bytes of operand, padded to 8").
type Op uint8

const (
	OpEnter Op = 0x01
	OpSetRegHi Op = 0x11
	OpSetRegLo Op = 0x12
	OpRegLoNextHi Op = 0x13
	OpCopyReg Op = 0x14
	OpExecuteUntil Op = 0x21
	OpJump Op = 0x22
	OpExecuteUntilThenSkipOne Op = 0x23
	OpExecuteUntilThenAllocSingletonSkipOne Op = 0x24
	OpJumpExecute Op = 0x25
	OpAllocate Op = 0x31
	OpAllocateProxy Op = 0x32
	OpAllocateData Op = 0x33
	OpAllocateSingleton Op = 0x34
	OpGetSingleton Op = 0x35
	OpExecuteToComplete Op = 0x41
)

// ProxyKind is the operand of AllocateProxy. TriggerParam is the only
// proxy kind implemented (spec §4.7).
type ProxyKind uint8

const ProxyTriggerParam ProxyKind = 0x01

// Inst is one decoded bytecode record. Not every field applies to every
// Op; the constructors below set only the fields their opcode uses.
type Inst struct {
	Op   Op
	Reg  uint8 // register operand (SetRegHi/Lo, CopyReg's source, GetSingleton)
	Reg2 uint8 // CopyReg's destination register
	Imm  uint32
}

// Enter simulates a branch-and-link to main_start+target; always the
// first instruction in a program.
func Enter(target uint32) Inst { return Inst{Op: OpEnter, Imm: target} }

// SetRegHi sets the high 32 bits of register reg, clearing the low 32 —
// or combining with a prior RegLoNextHi's pending low half.
func SetRegHi(reg uint8, hi uint32) Inst { return Inst{Op: OpSetRegHi, Reg: reg, Imm: hi} }

// SetRegLo sets register reg to a zero-extended 32-bit value.
func SetRegLo(reg uint8, lo uint32) Inst { return Inst{Op: OpSetRegLo, Reg: reg, Imm: lo} }

// RegLoNextHi stashes lo; the next SetRegHi combines it with hi into one
// 64-bit register write.
func RegLoNextHi(lo uint32) Inst { return Inst{Op: OpRegLoNextHi, Imm: lo} }

// CopyReg copies register from to register to. Register numbers 0-30 are
// X0-X30; 32-63 are S0-S31, copied bit-for-bit.
func CopyReg(from, to uint8) Inst { return Inst{Op: OpCopyReg, Reg: from, Reg2: to} }

// ExecuteUntil runs blocks until the next instruction's PC is
// main_start+target.
func ExecuteUntil(target uint32) Inst { return Inst{Op: OpExecuteUntil, Imm: target} }

// Jump sets PC to main_start+target without executing anything.
func Jump(target uint32) Inst { return Inst{Op: OpJump, Imm: target} }

// ExecuteUntilThenSkipOne is ExecuteUntil(target); Jump(target+4) — skip
// one 4-byte instruction (typically a sub-constructor call this sequence
// doesn't want to run).
func ExecuteUntilThenSkipOne(target uint32) Inst {
	return Inst{Op: OpExecuteUntilThenSkipOne, Imm: target}
}

// ExecuteUntilThenAllocSingletonSkipOne is ExecuteUntil(target);
// AllocateSingleton; Jump(target+4).
func ExecuteUntilThenAllocSingletonSkipOne(target uint32) Inst {
	return Inst{Op: OpExecuteUntilThenAllocSingletonSkipOne, Imm: target}
}

// JumpExecute is Jump(target); ExecuteUntil(target+4).
func JumpExecute(target uint32) Inst { return Inst{Op: OpJumpExecute, Imm: target} }

// Allocate bump-allocates n bytes from the simulator heap, address in X0.
func Allocate(n uint32) Inst { return Inst{Op: OpAllocate, Imm: n} }

// AllocateProxy allocates a placeholder address for a host-shadowed proxy
// object, address in X0 (spec §4.7: the address backs no real page).
func AllocateProxy(kind ProxyKind) Inst { return Inst{Op: OpAllocateProxy, Imm: uint32(kind)} }

// AllocateData copies a bundled static-data blob (program.DataID) into the
// heap, address in X0.
func AllocateData(id uint8) Inst { return Inst{Op: OpAllocateData, Imm: uint32(id)} }

// AllocateSingleton marks the singleton's pre-reserved heap region
// allocated and puts its address in X0.
func AllocateSingleton() Inst { return Inst{Op: OpAllocateSingleton} }

// GetSingleton writes the singleton's address into register reg.
func GetSingleton(reg uint8) Inst { return Inst{Op: OpGetSingleton, Reg: reg} }

// ExecuteToComplete runs blocks until control returns out of the function
// initially entered by Enter (PC reads back the sentinel).
func ExecuteToComplete() Inst { return Inst{Op: OpExecuteToComplete} }

// Encode packs an instruction into its 8-byte wire form: opcode, reg, reg2,
// then a little-endian imm32, with the final byte reserved/zero.
func (i Inst) Encode() [8]byte {
	var b [8]byte
	b[0] = byte(i.Op)
	b[1] = i.Reg
	b[2] = i.Reg2
	binary.LittleEndian.PutUint32(b[3:7], i.Imm)
	return b
}

// Decode unpacks an 8-byte wire record back into an Inst.
func Decode(b [8]byte) Inst {
	return Inst{
		Op:   Op(b[0]),
		Reg:  b[1],
		Reg2: b[2],
		Imm:  binary.LittleEndian.Uint32(b[3:7]),
	}
}
