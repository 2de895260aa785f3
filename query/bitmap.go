package query

import (
	"encoding/binary"
	"fmt"

	"github.com/RoaringBitmap/roaring"
	"github.com/cespare/xxhash/v2"

	"github.com/echoface/facetnav/index"
)

// BitmapQuery precomputed document set of one reader, such as an
// authorization filter. Document set caches AND it in directly.
type BitmapQuery struct {
	Docs        *roaring.Bitmap
	fingerprint uint64
}

func NewBitmapQuery(docs *roaring.Bitmap) *BitmapQuery {
	if docs == nil {
		docs = roaring.New()
	}
	return &BitmapQuery{Docs: docs, fingerprint: Fingerprint(docs)}
}

func (q *BitmapQuery) String() string {
	return fmt.Sprintf("_:BITMAP:\"%016x/%d\"", q.fingerprint, q.Docs.GetCardinality())
}

func (q *BitmapQuery) Eval(index.Reader) (*roaring.Bitmap, error) {
	return q.Docs.Clone(), nil
}

// Fingerprint xxhash over the members of docs, independent of the
// container layout of the bitmap
func Fingerprint(docs *roaring.Bitmap) uint64 {
	d := xxhash.New()
	buf := make([]uint32, 256)
	raw := make([]byte, 4*len(buf))
	it := docs.ManyIterator()
	for n := it.NextMany(buf); n > 0; n = it.NextMany(buf) {
		for i, v := range buf[:n] {
			binary.LittleEndian.PutUint32(raw[4*i:], v)
		}
		_, _ = d.Write(raw[:4*n])
	}
	return d.Sum64()
}
