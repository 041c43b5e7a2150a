package cpu

// bitRange extracts bits [hi:lo] (inclusive, ARM convention) from v.
func bitRange(v uint64, hi, lo uint8) uint64 {
	width := hi - lo + 1
	mask := uint64(1)<<width - 1
	return (v >> lo) & mask
}

// SBFM implements the signed bitfield-move primitive behind SBFM/ASR/SXTB/
// SXTH/SXTW aliases: copy a bitfield out of rnVal, sign-extending it, per
// the immr/imms encoding. regsize is 32 or 64 and selects the destination
// width the caller should truncate the result to.
//
// With imms >= immr the field is copied to the low bits of the result
// (shift-toward-low-end form); with imms < immr it is copied and then
// rotated into place (shift-toward-high-end form).
func SBFM(regsize int, rnVal uint64, immr, imms uint8) uint64 {
	if imms >= immr {
		start := immr
		copySize := 1 + imms - immr
		end := start + copySize - 1
		srcBits := int64(bitRange(rnVal, end, start))
		out := srcBits << (64 - copySize)
		out >>= 64 - copySize
		return uint64(out)
	}
	copySize := imms + 1
	srcBits := int64(bitRange(rnVal, copySize-1, 0))
	out := srcBits << (64 - copySize)
	out >>= immr - copySize
	if regsize == 32 {
		out >>= 32
	}
	return uint64(out)
}

// BFM implements the bitfield-move-merge primitive behind BFM/BFI/BFXIL:
// copy a bitfield out of rnVal into rdVal, leaving the untouched destination
// bits exactly as they were (no sign extension, no zeroing).
func BFM(rdVal, rnVal uint64, immr, imms uint8) uint64 {
	if imms >= immr {
		start := immr
		copySize := 1 + imms - immr
		end := start + copySize - 1
		srcBits := bitRange(rnVal, end, start)
		mask := maskLow(copySize) << start
		return ((rdVal &^ mask) | (srcBits << start)) >> immr
	}
	copySize := imms + 1
	srcBits := bitRange(rnVal, copySize-1, 0)
	mask := maskLow(copySize) << immr
	return ((rdVal &^ mask) | (srcBits << immr)) >> immr
}

// maskLow returns a mask of the low n bits, handling n==64 (where a plain
// 1<<n overflows) the same way the reference implementation's wrapping
// shift does: a full 64-bit mask.
func maskLow(n uint8) uint64 {
	if n >= 64 {
		return ^uint64(0)
	}
	return uint64(1)<<n - 1
}
