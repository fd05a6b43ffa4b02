package simclust

import "slices"

// suffixFilterMaxDepth bounds the recursion of suffixHammingLB. Deeper levels
// rarely prune more than they cost.
const suffixFilterMaxDepth = 2

// suffixHammingLB returns a lower bound on the Hamming distance |x ⊕ y| of two
// ascending rank slices, or any value above hmax as soon as the bound exceeds
// hmax.
//
// The middle token w of y splits both slices into the ranks below w and the
// ranks above w. The two halves are disjoint value ranges, so their Hamming
// distances add up, and each half differs by at least its size difference:
//
//	|x ⊕ y| >= ||xl|-|yl|| + ||xr|-|yr|| + [w ∉ x]
//
// The halves are refined recursively while the bound stays within hmax.
func suffixHammingLB(x, y []int32, hmax, depth int) int {
	if depth > suffixFilterMaxDepth || len(x) == 0 || len(y) == 0 {
		return abs(len(x) - len(y))
	}

	mid := len(y) / 2
	w := y[mid]
	yl, yr := y[:mid], y[mid+1:]

	p, found := slices.BinarySearch(x, w)
	xl, xr := x[:p], x[p:]
	diff := 1
	if found {
		xr = x[p+1:]
		diff = 0
	}

	dl := abs(len(xl) - len(yl))
	dr := abs(len(xr) - len(yr))
	h := dl + dr + diff
	if h > hmax {
		return h
	}

	hl := suffixHammingLB(xl, yl, hmax-dr-diff, depth+1)
	h = hl + dr + diff
	if h > hmax {
		return h
	}

	hr := suffixHammingLB(xr, yr, hmax-hl-diff, depth+1)
	return hl + hr + diff
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
