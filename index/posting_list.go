package index

import (
	"sync"

	"github.com/RoaringBitmap/roaring"
)

var bitmapPool = sync.Pool{
	New: func() interface{} {
		return roaring.NewBitmap()
	},
}

// AcquireBitmap get an empty scratch bitmap, pair with ReleaseBitmap.
// Never release a bitmap that was handed to a cache or a caller.
func AcquireBitmap() *roaring.Bitmap {
	return bitmapPool.Get().(*roaring.Bitmap)
}

func ReleaseBitmap(bm *roaring.Bitmap) {
	if bm == nil {
		return
	}
	if !bm.IsEmpty() {
		bm.Clear()
	}
	bitmapPool.Put(bm)
}

// postingList a term and the ordinals of documents containing it
type postingList struct {
	term string
	docs *roaring.Bitmap
}

// fieldPostings sorted dictionary of one field
type fieldPostings struct {
	terms []postingList
}

func (fp *fieldPostings) find(term string) (int, bool) {
	lo, hi := 0, len(fp.terms)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if fp.terms[mid].term < term {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo, lo < len(fp.terms) && fp.terms[lo].term == term
}
