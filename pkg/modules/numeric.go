package modules

import (
	"encoding/binary"
	"math"
)

// meanInt32 returns the arithmetic mean of vs, rounded to the nearest
// integer. Used by every standard numeric module's Merge; the ANSI E1.59 §3
// rule "numeric modules merge by arithmetic mean per component" is
// implemented once here rather than once per module type.
func meanInt32(vs []int32) int32 {
	if len(vs) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vs {
		sum += float64(v)
	}
	return int32(math.Round(sum / float64(len(vs))))
}

// meanMicrometersViaMillimeters implements ANSI E1.59 §3's position-specific
// rule: "position modules scale μm→mm before averaging." Averaging in
// millimeter units keeps the intermediate float64 sum in a numerically
// well-conditioned range when many producers contribute to the same
// point, rather than summing raw micrometer magnitudes.
func meanMicrometersViaMillimeters(umValues []int32) int32 {
	if len(umValues) == 0 {
		return 0
	}
	var sumMM float64
	for _, um := range umValues {
		sumMM += float64(um) / 1000.0
	}
	meanMM := sumMM / float64(len(umValues))
	return int32(math.Round(meanMM * 1000.0))
}

func putInt32(b []byte, v int32) {
	binary.BigEndian.PutUint32(b, uint32(v))
}

func getInt32(b []byte) int32 {
	return int32(binary.BigEndian.Uint32(b))
}
