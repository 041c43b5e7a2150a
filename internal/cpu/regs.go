// Package cpu implements the emulated ARM64 core: a bare register file
// (Level 0), a per-game-version execute cache on top of it (Level 1), and a
// borrowed-process binding for the duration of one call (Level 2).
package cpu

import (
	"fmt"
	"math"
)

// Flag bits within NZCV, MSR/MRS-compatible ordering.
const (
	FlagV uint8 = 1 << 0
	FlagC uint8 = 1 << 1
	FlagZ uint8 = 1 << 2
	FlagN uint8 = 1 << 3
)

// Registers is the Level 0 state: the bare ARM64 integer and FP register
// file plus PC and flags. X31 is never stored here — XZR/WZR reads as 0 and
// writes are discarded by the caller; SP is its own field since ARM64 keeps
// it distinct from X31 in instructions that name SP explicitly.
type Registers struct {
	X    [31]uint64 // X0..X30
	SP   uint64
	PC   uint64
	NZCV uint8

	// F holds the raw bit pattern of S/D views of V0..V31. S truncates to
	// the low 32 bits; D uses the full 64.
	F [32]uint64
}

func (r *Registers) N() bool { return r.NZCV&FlagN != 0 }
func (r *Registers) Z() bool { return r.NZCV&FlagZ != 0 }
func (r *Registers) C() bool { return r.NZCV&FlagC != 0 }
func (r *Registers) V() bool { return r.NZCV&FlagV != 0 }

func (r *Registers) SetNZCV(n, z, c, v bool) {
	var f uint8
	if n {
		f |= FlagN
	}
	if z {
		f |= FlagZ
	}
	if c {
		f |= FlagC
	}
	if v {
		f |= FlagV
	}
	r.NZCV = f
}

// ReadX reads the full 64-bit register n (0..30), or 0 for XZR (n==31).
func (r *Registers) ReadX(n int) uint64 {
	if n == 31 {
		return 0
	}
	return r.X[n]
}

// ReadW reads the low 32 bits of register n, zero-extended, or 0 for WZR.
func (r *Registers) ReadW(n int) uint64 {
	if n == 31 {
		return 0
	}
	return uint64(uint32(r.X[n]))
}

// WriteX writes the full 64-bit register n; writes to n==31 (XZR) are
// discarded.
func (r *Registers) WriteX(n int, v uint64) {
	if n == 31 {
		return
	}
	r.X[n] = v
}

// WriteW writes the low 32 bits of register n and zero-extends into the
// full 64-bit view, per ARM64's sub-register write rule; writes to n==31
// (WZR) are discarded.
func (r *Registers) WriteW(n int, v uint32) {
	if n == 31 {
		return
	}
	r.X[n] = uint64(v)
}

func (r *Registers) ReadS(n int) float32 { return math.Float32frombits(uint32(r.F[n])) }
func (r *Registers) ReadD(n int) float64 { return math.Float64frombits(r.F[n]) }
func (r *Registers) WriteS(n int, v float32) {
	r.F[n] = uint64(math.Float32bits(v))
}
func (r *Registers) WriteD(n int, v float64) {
	r.F[n] = math.Float64bits(v)
}

func (r *Registers) String() string {
	return fmt.Sprintf("pc=0x%x sp=0x%x nzcv=%04b", r.PC, r.SP, r.NZCV)
}
