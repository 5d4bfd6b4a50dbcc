package angles

import (
	"context"
	"math"
	"slices"
	"sort"
)

const kvectorEpsilon = 1e-10

// KVector answers angle range queries over a sorted pair list. A straight
// line z(i) = q + m·i is laid over the angle range and k[i] counts the
// pairs with angle <= z(i), so a query jumps to the right neighbourhood
// directly and only trims the ends.
type KVector struct {
	pairs []Pair
	k     []int
	m     float64
	q     float64
}

// NewKVector copies pairs, sorts the copy with Compare and builds the index.
func NewKVector(pairs []Pair) *KVector {
	sorted := slices.Clone(pairs)
	slices.SortFunc(sorted, Compare)
	kv := &KVector{pairs: sorted}

	n := len(sorted)
	if n < 2 {
		return kv
	}
	lo, hi := sorted[0].Angle, sorted[n-1].Angle
	kv.m = (hi - lo + 2*kvectorEpsilon) / float64(n-1)
	kv.q = lo - kvectorEpsilon
	kv.k = make([]int, n)

	count := 0
	for i := range kv.k {
		z := kv.line(i)
		for count < n && sorted[count].Angle <= z {
			count++
		}
		kv.k[i] = count
	}
	return kv
}

func (kv *KVector) line(i int) float64 { return kv.q + kv.m*float64(i) }

// Len returns the number of indexed pairs.
func (kv *KVector) Len() int { return len(kv.pairs) }

// Pairs returns the sorted pairs. The slice must not be modified.
func (kv *KVector) Pairs() []Pair { return kv.pairs }

// Range returns the pairs with lo <= angle <= hi in Compare order.
func (kv *KVector) Range(lo, hi float64) []Pair {
	n := len(kv.pairs)
	if n == 0 || lo > hi || math.IsNaN(lo) || math.IsNaN(hi) {
		return nil
	}

	first, last := kv.pairs[0].Angle, kv.pairs[n-1].Angle
	if lo > last || hi < first {
		return nil
	}

	start, end := 0, n
	if kv.k != nil {
		// one extra step on each side absorbs rounding in the division;
		// bounds past the ends skip the line so the int conversion stays
		// within [0, n-1]
		if lo > first {
			jb := int(math.Floor((lo-kv.q)/kv.m)) - 1
			if jb > 0 {
				start = kv.k[min(jb, n)-1]
			}
		}
		if hi < last {
			jt := int(math.Ceil((hi-kv.q)/kv.m)) + 1
			if jt < n {
				end = kv.k[max(jt, 0)]
			}
		}
	}

	window := kv.pairs[start:end]
	from := sort.Search(len(window), func(i int) bool { return window[i].Angle >= lo })
	to := sort.Search(len(window), func(i int) bool { return window[i].Angle > hi })
	if from >= to {
		return nil
	}
	return slices.Clone(window[from:to])
}

// PairsInRange is Range behind the lookup interface shared with the
// storage backends.
func (kv *KVector) PairsInRange(ctx context.Context, lo, hi float64) ([]Pair, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return kv.Range(lo, hi), nil
}
