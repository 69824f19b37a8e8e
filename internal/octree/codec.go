package octree

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/RoaringBitmap/roaring/roaring64"
	"github.com/aukilabs/go-tooling/pkg/errors"
)

const (
	ShardHeaderSize = 16
	ShardMagic      = 0x54524953 // "TRIS"
	ShardVersion    = 1
)

// ShardHeader prefixes every encoded tree.
type ShardHeader struct {
	Magic    uint32
	Version  uint8
	Levels   uint8
	Padding  [2]byte
	Payloads uint64 // number of addresses carrying references
}

func (h ShardHeader) marshal() []byte {
	buf := make([]byte, ShardHeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	buf[4] = h.Version
	buf[5] = h.Levels
	binary.LittleEndian.PutUint64(buf[8:16], h.Payloads)
	return buf
}

// ReadShardHeader reads and checks the fixed-size header.
func ReadShardHeader(r io.Reader) (*ShardHeader, error) {
	buf := make([]byte, ShardHeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, errors.New("read shard header").WithType(ErrTypeCodec).Wrap(err)
	}
	h := &ShardHeader{
		Magic:    binary.LittleEndian.Uint32(buf[0:4]),
		Version:  buf[4],
		Levels:   buf[5],
		Payloads: binary.LittleEndian.Uint64(buf[8:16]),
	}
	if h.Magic != ShardMagic {
		return nil, errors.Newf("invalid shard magic: %x", h.Magic).WithType(ErrTypeCodec)
	}
	if h.Version != ShardVersion {
		return nil, errors.Newf("unsupported shard version: %d", h.Version).WithType(ErrTypeCodec)
	}
	if h.Levels < 1 || h.Levels > MaxLevels {
		return nil, errors.Newf("invalid shard levels: %d", h.Levels).WithType(ErrTypeCodec)
	}
	return h, nil
}

// WriteTo encodes the complete tree: header, one portable roaring bitmap per
// level, then every payload in traversal order.
func (t *Tree) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: bufio.NewWriter(w)}

	var payloads []Node
	for n := range t.All() {
		if len(n.TriIDs) > 0 {
			payloads = append(payloads, n)
		}
	}
	h := ShardHeader{
		Magic:    ShardMagic,
		Version:  ShardVersion,
		Levels:   uint8(t.levels),
		Payloads: uint64(len(payloads)),
	}
	if _, err := cw.Write(h.marshal()); err != nil {
		return cw.n, err
	}

	var scratch bytes.Buffer
	var num []byte
	for _, bm := range t.exists {
		scratch.Reset()
		if _, err := bm.WriteTo(&scratch); err != nil {
			return cw.n, err
		}
		num = binary.AppendUvarint(num[:0], uint64(scratch.Len()))
		if _, err := cw.Write(num); err != nil {
			return cw.n, err
		}
		if _, err := cw.Write(scratch.Bytes()); err != nil {
			return cw.n, err
		}
	}

	for _, n := range payloads {
		num = binary.AppendUvarint(num[:0], uint64(n.Level))
		num = binary.AppendUvarint(num, n.Code())
		num = AppendRefs(num, n.TriIDs)
		if _, err := cw.Write(num); err != nil {
			return cw.n, err
		}
	}
	return cw.n, cw.w.Flush()
}

// ReadTree decodes a stream produced by Tree.WriteTo.
func ReadTree(r io.Reader) (*Tree, error) {
	br := bufio.NewReader(r)
	h, err := ReadShardHeader(br)
	if err != nil {
		return nil, err
	}
	t := NewTree(int(h.Levels))
	for lvl := range t.exists {
		size, err := binary.ReadUvarint(br)
		if err != nil {
			return nil, truncated("bitmap size", err)
		}
		if size > math.MaxInt64 {
			return nil, errors.Newf("bitmap size %d out of range", size).
				WithType(ErrTypeCodec).
				WithTag("level", lvl)
		}
		// Grows with the bytes actually present instead of trusting size.
		var buf bytes.Buffer
		if _, err := io.CopyN(&buf, br, int64(size)); err != nil {
			return nil, truncated("bitmap", err)
		}
		bm := roaring64.New()
		if _, err := bm.ReadFrom(&buf); err != nil {
			return nil, errors.New("decode level bitmap").
				WithType(ErrTypeCodec).
				WithTag("level", lvl).
				Wrap(err)
		}
		t.exists[lvl] = bm
	}
	if err := t.checkClosed(); err != nil {
		return nil, err
	}

	for i := uint64(0); i < h.Payloads; i++ {
		lvl, err := binary.ReadUvarint(br)
		if err != nil {
			return nil, truncated("payload level", err)
		}
		code, err := binary.ReadUvarint(br)
		if err != nil {
			return nil, truncated("payload code", err)
		}
		if lvl > uint64(t.levels) {
			return nil, errors.Newf("payload level %d out of range", lvl).WithType(ErrTypeCodec)
		}
		a := AddressFromCode(int(lvl), code)
		if !t.Has(a) {
			return nil, errors.New("payload for missing node").
				WithType(ErrTypeCodec).
				WithTag("address", a.String())
		}
		refs, err := readRefs(br)
		if err != nil {
			return nil, err
		}
		t.payload[a] = refs
	}
	return t, nil
}

// AppendRefs appends a uvarint count followed by each reference.
func AppendRefs(dst []byte, refs []int) []byte {
	dst = binary.AppendUvarint(dst, uint64(len(refs)))
	for _, r := range refs {
		dst = binary.AppendUvarint(dst, uint64(r))
	}
	return dst
}

// DecodeRefs is the inverse of AppendRefs.
func DecodeRefs(b []byte) ([]int, error) {
	return readRefs(bytes.NewReader(b))
}

func readRefs(r io.ByteReader) ([]int, error) {
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, truncated("reference count", err)
	}
	refs := make([]int, 0, min(n, 1<<16))
	for range n {
		v, err := binary.ReadUvarint(r)
		if err != nil {
			return nil, truncated("reference", err)
		}
		if v > math.MaxInt {
			return nil, errors.Newf("reference %d out of range", v).WithType(ErrTypeCodec)
		}
		refs = append(refs, int(v))
	}
	return refs, nil
}

// checkClosed verifies that every decoded node lies inside the domain and
// that its parent exists.
func (t *Tree) checkClosed() error {
	root := t.exists[t.levels]
	if !root.IsEmpty() && (root.GetCardinality() != 1 || !root.Contains(0)) {
		return errors.New("root level holds codes other than 0").WithType(ErrTypeCodec)
	}
	for lvl := t.levels - 1; lvl >= 0; lvl-- {
		bm := t.exists[lvl]
		if bm.IsEmpty() {
			continue
		}
		if limit := uint64(1) << (3 * (t.levels - lvl)); bm.Maximum() >= limit {
			return errors.New("node outside domain").
				WithType(ErrTypeCodec).
				WithTag("level", lvl).
				WithTag("code", bm.Maximum())
		}
		parents := t.exists[lvl+1]
		it := bm.Iterator()
		for it.HasNext() {
			code := it.Next()
			if !parents.Contains(code >> 3) {
				return errors.New("node without parent").
					WithType(ErrTypeCodec).
					WithTag("address", AddressFromCode(lvl, code).String())
			}
		}
	}
	return nil
}

func truncated(what string, err error) error {
	if err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return errors.New("truncated shard stream").
		WithType(ErrTypeCodec).
		WithTag("reading", what).
		Wrap(err)
}

type countingWriter struct {
	w *bufio.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
