package index

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring"
)

type (
	// Reader point-in-time view of the index used by one query call.
	// Every Reader obtained from Acquire must be released exactly once.
	Reader interface {
		// Generation identify the snapshot behind this reader
		Generation() uint64
		MaxDoc() uint32
		// LiveDocs read-only universe of document ordinals
		LiveDocs() *roaring.Bitmap

		Terms(field string) (TermEnum, error)
		// Postings read-only; nil, nil when field or term is absent
		Postings(field, term string) (*roaring.Bitmap, error)
		DocFreq(field, term string) (int, error)

		// UUID stored identifier of a document ordinal
		UUID(doc uint32) (string, error)
		// DocValue first indexed term of a field for a document, used for sorting
		DocValue(field string, doc uint32) (string, bool, error)

		PropertyType(internal string) (PropertyType, bool)
		HasField(field string) bool
		Namespaces() *NamespaceRegistry

		// Attachment reader scoped state (caches): returns the value stored
		// for key, creating it with create on first use. Attachments die with
		// the reader.
		Attachment(key interface{}, create func() interface{}) interface{}

		Release()
	}

	// snapshotReader shared, reference counted reader of one snapshot
	snapshotReader struct {
		snap       *Snapshot
		generation uint64

		refs atomic.Int32

		mu          sync.Mutex
		attachments map[interface{}]interface{}
		closed      bool
	}

	// readerLease the handle given to one Acquire caller
	readerLease struct {
		*snapshotReader
		once sync.Once
	}
)

func newSnapshotReader(snap *Snapshot, generation uint64) *snapshotReader {
	r := &snapshotReader{
		snap:        snap,
		generation:  generation,
		attachments: map[interface{}]interface{}{},
	}
	r.refs.Store(1) // owned by the Index until retired
	return r
}

func (r *snapshotReader) incRef() bool {
	for {
		n := r.refs.Load()
		if n <= 0 {
			return false
		}
		if r.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

func (r *snapshotReader) decRef() {
	if r.refs.Add(-1) != 0 {
		return
	}
	r.mu.Lock()
	r.closed = true
	r.attachments = nil
	r.mu.Unlock()
}

func (r *snapshotReader) Generation() uint64 {
	return r.generation
}

func (r *snapshotReader) MaxDoc() uint32 {
	return uint32(len(r.snap.uuids))
}

func (r *snapshotReader) LiveDocs() *roaring.Bitmap {
	return r.snap.live
}

func (r *snapshotReader) Terms(field string) (TermEnum, error) {
	return r.snap.terms(field), nil
}

func (r *snapshotReader) Postings(field, term string) (*roaring.Bitmap, error) {
	return r.snap.postings(field, term), nil
}

func (r *snapshotReader) DocFreq(field, term string) (int, error) {
	if bm := r.snap.postings(field, term); bm != nil {
		return int(bm.GetCardinality()), nil
	}
	return 0, nil
}

func (r *snapshotReader) UUID(doc uint32) (string, error) {
	if int(doc) >= len(r.snap.uuids) {
		return "", fmt.Errorf("document ordinal:%d out of range [0,%d)", doc, len(r.snap.uuids))
	}
	return r.snap.uuids[doc], nil
}

func (r *snapshotReader) DocValue(field string, doc uint32) (string, bool, error) {
	values, ok := r.snap.docValues[field]
	if !ok {
		return "", false, nil
	}
	v, ok := values[doc]
	return v, ok, nil
}

func (r *snapshotReader) PropertyType(internal string) (PropertyType, bool) {
	t, ok := r.snap.schema[internal]
	return t, ok
}

func (r *snapshotReader) HasField(field string) bool {
	_, ok := r.snap.fields[field]
	return ok
}

func (r *snapshotReader) Namespaces() *NamespaceRegistry {
	return r.snap.namespaces
}

func (r *snapshotReader) Attachment(key interface{}, create func() interface{}) interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		// released reader: hand out an unshared value rather than nothing
		return create()
	}
	if v, ok := r.attachments[key]; ok {
		return v
	}
	v := create()
	r.attachments[key] = v
	return v
}

func (r *snapshotReader) attachmentCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.attachments)
}

// Release give back this lease; repeated calls are no-ops
func (l *readerLease) Release() {
	l.once.Do(l.snapshotReader.decRef)
}
