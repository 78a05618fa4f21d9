package risk

import "math/bits"

const (
	maxInt64 = int64(^uint64(0) >> 1)
	minInt64 = -maxInt64 - 1
)

// satAdd64 returns a+b clamped to the int64 range.
func satAdd64(a, b int64) int64 {
	sum := a + b
	if a > 0 && b > 0 && sum < 0 {
		return maxInt64
	}
	if a < 0 && b < 0 && sum >= 0 {
		return minInt64
	}
	return sum
}

// satSub64 returns a-b clamped to the int64 range.
func satSub64(a, b int64) int64 {
	diff := a - b
	if a >= 0 && b < 0 && diff < 0 {
		return maxInt64
	}
	if a < 0 && b > 0 && diff >= 0 {
		return minInt64
	}
	return diff
}

// satAbs64 returns |v| clamped to the int64 range.
func satAbs64(v int64) int64 {
	if v == minInt64 {
		return maxInt64
	}
	if v < 0 {
		return -v
	}
	return v
}

// satAddU32 returns a+b clamped to the uint32 range.
func satAddU32(a, b uint32) uint32 {
	sum := a + b
	if sum < a {
		return ^uint32(0)
	}
	return sum
}

// absU64 returns |v| as uint64. The magnitude of minInt64 is representable.
func absU64(v int64) uint64 {
	if v >= 0 {
		return uint64(v)
	}
	return -uint64(v)
}

// clampMagnitude folds an unsigned magnitude and a sign back into int64,
// clamping at the range bounds.
func clampMagnitude(mag uint64, neg bool) int64 {
	if neg {
		if mag > uint64(maxInt64)+1 {
			return minInt64
		}
		return int64(-mag)
	}
	if mag > uint64(maxInt64) {
		return maxInt64
	}
	return int64(mag)
}

// satMul64 returns a*b computed at 128-bit width and clamped to the int64
// range.
func satMul64(a, b int64) int64 {
	if a == 0 || b == 0 {
		return 0
	}
	neg := (a < 0) != (b < 0)
	hi, lo := bits.Mul64(absU64(a), absU64(b))
	if hi != 0 {
		lo = ^uint64(0)
	}
	return clampMagnitude(lo, neg)
}

// div128by64 divides the 128-bit value hi:lo by d and returns the 128-bit
// quotient. d must be nonzero.
func div128by64(hi, lo, d uint64) (uint64, uint64) {
	qHi := hi / d
	rem := hi % d
	qLo, _ := bits.Div64(rem, lo, d)
	return qHi, qLo
}
