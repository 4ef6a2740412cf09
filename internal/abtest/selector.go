package abtest

import (
	"crypto/md5"
	"encoding/binary"
)

// Select picks the destination for one visitor.
//
// The visitor lands at a point h in [0,1) derived from md5(primary +
// visitorKey).  Variants, in creation order, own consecutive slices of that
// interval sized by their weights; whatever lies past the last slice belongs
// to primary.  The same key, primary, and variant list always give the same
// answer.  Changing any weight, the order, or the membership moves the slice
// boundaries for every visitor.
func Select(visitorKey string, variants []Variant, primary string) (string, *int64) {
	if len(variants) == 0 {
		return primary, nil
	}
	return pick(bucket(primary, visitorKey), variants, primary)
}

// bucket maps the first 32 bits of the digest onto [0,1).
func bucket(primary, visitorKey string) float64 {
	sum := md5.Sum([]byte(primary + visitorKey))
	return float64(binary.BigEndian.Uint32(sum[:4])) / (1 << 32)
}

func pick(h float64, variants []Variant, primary string) (string, *int64) {
	var cumulative float64
	for i := range variants {
		v := &variants[i]
		if !v.Active {
			continue
		}
		cumulative += v.Weight
		if h < cumulative {
			id := v.ID
			return v.TargetURL, &id
		}
	}
	return primary, nil
}
