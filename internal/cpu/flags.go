package cpu

import (
	"math"
	"math/bits"
)

// AddWithCarry64 implements the ARM64 reference AddWithCarry primitive at
// 64-bit width: result plus NZCV for x + y + carryIn. Subtraction and every
// compare (cmp/cmn/ccmp) family instruction derive their flags from this by
// inverting the second operand and setting carryIn appropriately.
func AddWithCarry64(x, y uint64, carryIn bool) (result uint64, n, z, c, v bool) {
	var cin uint64
	if carryIn {
		cin = 1
	}
	sum, carry0 := bits.Add64(x, y, 0)
	result, carry1 := bits.Add64(sum, cin, 0)
	c = carry0 != 0 || carry1 != 0

	// Overflow: x and y have the same sign and the result's sign differs
	// from theirs. Comparing against a sum computed in int64 arithmetic
	// would itself silently wrap on the canonical MaxInt64+1 case, so this
	// is done purely from the sign bits instead.
	signX := x>>63&1 == 1
	signY := y>>63&1 == 1
	signR := result>>63&1 == 1
	v = signX == signY && signR != signX

	n = int64(result) < 0
	z = result == 0
	return
}

// AddWithCarry32 is the 32-bit-width counterpart operating on Wn values.
func AddWithCarry32(x, y uint32, carryIn bool) (result uint32, n, z, c, v bool) {
	var cin uint32
	if carryIn {
		cin = 1
	}
	wide := uint64(x) + uint64(y) + uint64(cin)
	result = uint32(wide)
	c = wide > math.MaxUint32

	signX := x>>31&1 == 1
	signY := y>>31&1 == 1
	signR := result>>31&1 == 1
	v = signX == signY && signR != signX

	n = int32(result) < 0
	z = result == 0
	return
}

// FPCompare32/64 implement the floating-point comparison flag contract:
// V=1 on any NaN operand, otherwise N=less-than, Z=equal, C=greater-or-equal.
func FPCompare32(a, b float32) (n, z, c, v bool) {
	switch {
	case isNaN32(a) || isNaN32(b):
		return false, false, true, true
	case a == b:
		return false, true, true, false
	case a < b:
		return true, false, false, false
	default:
		return false, false, true, false
	}
}

func FPCompare64(a, b float64) (n, z, c, v bool) {
	switch {
	case math.IsNaN(a) || math.IsNaN(b):
		return false, false, true, true
	case a == b:
		return false, true, true, false
	case a < b:
		return true, false, false, false
	default:
		return false, false, true, false
	}
}

func isNaN32(f float32) bool { return f != f }
