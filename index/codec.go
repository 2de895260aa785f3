package index

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/RoaringBitmap/roaring"
	jsoniter "github.com/json-iterator/go"
	"github.com/klauspost/compress/zstd"
)

const snapshotMagic = "FACETNAV-SNAPSHOT-1"

var jsonCodec = jsoniter.ConfigCompatibleWithStandardLibrary

type (
	snapshotHeader struct {
		Namespaces []namespace                  `json:"namespaces"`
		Schema     map[string]PropertyType      `json:"schema"`
		UUIDs      []string                     `json:"uuids"`
		DocValues  map[string]map[uint32]string `json:"doc_values"`
		Fields     []snapshotFieldHeader        `json:"fields"`
	}

	snapshotFieldHeader struct {
		Name  string   `json:"name"`
		Terms []string `json:"terms"`
	}
)

// WriteSnapshot serialize s as: magic, json header, then every posting list
// in header order, each length prefixed; the whole stream is zstd compressed
func WriteSnapshot(w io.Writer, s *Snapshot) (err error) {
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("zstd writer:%w", err)
	}
	defer func() {
		if cerr := enc.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("zstd close:%w", cerr)
		}
	}()
	bw := bufio.NewWriter(enc)

	header := snapshotHeader{
		Namespaces: s.namespaces.list(),
		Schema:     s.schema,
		UUIDs:      s.uuids,
		DocValues:  s.docValues,
	}
	for _, field := range s.Fields() {
		fp := s.fields[field]
		fh := snapshotFieldHeader{Name: field, Terms: make([]string, len(fp.terms))}
		for i, pl := range fp.terms {
			fh.Terms[i] = pl.term
		}
		header.Fields = append(header.Fields, fh)
	}
	data, err := jsonCodec.Marshal(&header)
	if err != nil {
		return fmt.Errorf("encode header:%w", err)
	}
	if _, err = bw.WriteString(snapshotMagic); err != nil {
		return err
	}
	if err = writeChunk(bw, data); err != nil {
		return err
	}
	for _, fh := range header.Fields {
		for _, pl := range s.fields[fh.Name].terms {
			raw, err := pl.docs.ToBytes()
			if err != nil {
				return fmt.Errorf("encode postings field:%s term:%s %w", fh.Name, pl.term, err)
			}
			if err = writeChunk(bw, raw); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}

// ReadSnapshot inverse of WriteSnapshot
func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("zstd reader:%w", err)
	}
	defer dec.Close()
	br := bufio.NewReader(dec)

	magic := make([]byte, len(snapshotMagic))
	if _, err = io.ReadFull(br, magic); err != nil {
		return nil, fmt.Errorf("read magic:%w", err)
	}
	if string(magic) != snapshotMagic {
		return nil, fmt.Errorf("not a snapshot stream, magic:%q", magic)
	}
	data, err := readChunk(br)
	if err != nil {
		return nil, fmt.Errorf("read header:%w", err)
	}
	var header snapshotHeader
	if err = jsonCodec.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("decode header:%w", err)
	}

	snap := &Snapshot{
		namespaces: &NamespaceRegistry{prefixes: map[string]int{}, uris: map[string]int{}},
		schema:     header.Schema,
		fields:     make(map[string]*fieldPostings, len(header.Fields)),
		docValues:  header.DocValues,
		uuids:      header.UUIDs,
		live:       roaring.New(),
	}
	for _, ns := range header.Namespaces {
		if err = snap.namespaces.Register(ns.Prefix, ns.URI); err != nil {
			return nil, err
		}
	}
	if snap.schema == nil {
		snap.schema = map[string]PropertyType{}
	}
	if snap.docValues == nil {
		snap.docValues = map[string]map[uint32]string{}
	}
	for _, fh := range header.Fields {
		fp := &fieldPostings{terms: make([]postingList, len(fh.Terms))}
		for i, term := range fh.Terms {
			raw, err := readChunk(br)
			if err != nil {
				return nil, fmt.Errorf("read postings field:%s term:%s %w", fh.Name, term, err)
			}
			bm := roaring.New()
			if err = bm.UnmarshalBinary(raw); err != nil {
				return nil, fmt.Errorf("decode postings field:%s term:%s %w", fh.Name, term, err)
			}
			fp.terms[i] = postingList{term: term, docs: bm}
		}
		snap.fields[fh.Name] = fp
	}
	if n := uint64(len(snap.uuids)); n > 0 {
		snap.live.AddRange(0, n)
	}
	return snap, nil
}

func writeChunk(w io.Writer, data []byte) error {
	var size [4]byte
	binary.BigEndian.PutUint32(size[:], uint32(len(data)))
	if _, err := w.Write(size[:]); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}

func readChunk(r io.Reader) ([]byte, error) {
	var size [4]byte
	if _, err := io.ReadFull(r, size[:]); err != nil {
		return nil, err
	}
	data := make([]byte, binary.BigEndian.Uint32(size[:]))
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}
	return data, nil
}
