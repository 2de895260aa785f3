package doccache

import (
	"github.com/RoaringBitmap/roaring"
)

// DocSetBuilder running intersection of document sets. Until the first
// And it stands for all live documents.
type DocSetBuilder struct {
	live     *roaring.Bitmap
	docs     *roaring.Bitmap
	narrowed bool
}

func NewDocSetBuilder(live *roaring.Bitmap) *DocSetBuilder {
	return &DocSetBuilder{live: live}
}

// And intersect with docs; docs is not retained or modified
func (b *DocSetBuilder) And(docs *roaring.Bitmap) {
	if !b.narrowed {
		// first merge initializes the running set
		b.docs = roaring.And(b.live, docs)
		b.narrowed = true
		return
	}
	b.docs.And(docs)
}

func (b *DocSetBuilder) Narrowed() bool {
	return b.narrowed
}

// ToBitSet current set, callers must not modify it
func (b *DocSetBuilder) ToBitSet() *roaring.Bitmap {
	if !b.narrowed {
		return b.live
	}
	return b.docs
}

func (b *DocSetBuilder) Cardinality() uint64 {
	return b.ToBitSet().GetCardinality()
}

// Clone independent builder with the same running set
func (b *DocSetBuilder) Clone() *DocSetBuilder {
	c := &DocSetBuilder{live: b.live, narrowed: b.narrowed}
	if b.narrowed {
		c.docs = b.docs.Clone()
	}
	return c
}
