package simclust

import (
	"sync"

	"github.com/RoaringBitmap/roaring"
)

// IDFilter decides which ids a radius query may report.
//
// An allow-list keeps only the listed ids, a deny-list drops the listed ids;
// deny wins when an id is on both. A nil *IDFilter admits every id, so
// traversals can call its methods unconditionally.
type IDFilter struct {
	// allow is empty when there is no allow-list
	allow *roaring.Bitmap
	deny  *roaring.Bitmap
}

// idFilterPool recycles filters between searches
var idFilterPool = sync.Pool{
	New: func() interface{} {
		return &IDFilter{
			allow: roaring.New(),
			deny:  roaring.New(),
		}
	},
}

// NewIDFilter creates a filter from an allow-list and a deny-list.
// Returns nil (no filtering) when both are empty.
// Hand the filter back with ReturnIDFilter when the search is done.
func NewIDFilter(allow, deny []uint32) *IDFilter {
	if len(allow) == 0 && len(deny) == 0 {
		return nil
	}

	filter := idFilterPool.Get().(*IDFilter)
	filter.allow.Clear()
	filter.deny.Clear()
	filter.allow.AddMany(allow)
	filter.deny.AddMany(deny)
	return filter
}

// ReturnIDFilter puts a filter back into the pool.
// Do not use the filter after calling this method.
func ReturnIDFilter(filter *IDFilter) {
	if filter != nil {
		idFilterPool.Put(filter)
	}
}

// Admits reports whether id may be reported
func (f *IDFilter) Admits(id uint32) bool {
	if f == nil {
		return true
	}
	if !f.allow.IsEmpty() && !f.allow.Contains(id) {
		return false
	}
	return !f.deny.Contains(id)
}

// Rejects is the negation of Admits, for loops with continue statements
func (f *IDFilter) Rejects(id uint32) bool {
	return !f.Admits(id)
}

// Eligible counts the admitted ids among 0..n-1.
func (f *IDFilter) Eligible(n int) uint64 {
	if n <= 0 {
		return 0
	}
	if f == nil {
		return uint64(n)
	}

	universe := roaring.New()
	universe.AddRange(0, uint64(n))
	if !f.allow.IsEmpty() {
		universe.And(f.allow)
	}
	universe.AndNot(f.deny)
	return universe.GetCardinality()
}
