package noise

// selectKth returns the k-th smallest value (0 based) of a in expected
// linear time. a must not be empty and is reordered. k is clamped to
// the valid range.
func selectKth(a []float64, k int) float64 {
	if k < 0 {
		k = 0
	}
	if k >= len(a) {
		k = len(a) - 1
	}
	lo, hi := 0, len(a)-1
	for lo < hi {
		// Median of three as pivot, so sorted input stays linear
		mid := lo + (hi-lo)/2
		if a[mid] < a[lo] {
			a[mid], a[lo] = a[lo], a[mid]
		}
		if a[hi] < a[lo] {
			a[hi], a[lo] = a[lo], a[hi]
		}
		if a[hi] < a[mid] {
			a[hi], a[mid] = a[mid], a[hi]
		}
		pivot := a[mid]
		i, j := lo, hi
		for i <= j {
			for a[i] < pivot {
				i++
			}
			for a[j] > pivot {
				j--
			}
			if i <= j {
				a[i], a[j] = a[j], a[i]
				i++
				j--
			}
		}
		switch {
		case k <= j:
			hi = j
		case k >= i:
			lo = i
		default:
			return a[k]
		}
	}
	return a[k]
}

// quantile returns the order statistic at rank floor(len*q) of a copy of
// values
func quantile(values []float64, q float64) float64 {
	c := make([]float64, len(values))
	copy(c, values)
	return selectKth(c, int(float64(len(c))*q))
}
