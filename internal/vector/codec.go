package vector

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/google/uuid"
)

// Layout, all little-endian:
//
//	magic    [4]byte "KKVI"
//	version  uint16
//	_        uint16
//	dim      uint32
//	count    uint64
//	snapshot [16]byte
//	vectors  count*dim float32
const (
	codecVersion  = 1
	headerSize    = 4 + 2 + 2 + 4 + 8 + 16
	// maxDimensions is the largest dim Decode accepts.
	maxDimensions = 1 << 16
)

var magic = [4]byte{'K', 'K', 'V', 'I'}

// ErrCorrupt is returned when encoded index data cannot be decoded.
var ErrCorrupt = errors.New("corrupt vector index")

// Header describes an encoded index.
type Header struct {
	Version    uint16
	Dimensions int
	Count      int
	SnapshotID uuid.UUID
}

// Encode writes the index to w, stamped with snapshot.
func Encode(w io.Writer, x *Index, snapshot uuid.UUID) error {
	x.mu.RLock()
	defer x.mu.RUnlock()

	bw := bufio.NewWriter(w)
	var hdr [headerSize]byte
	copy(hdr[0:4], magic[:])
	binary.LittleEndian.PutUint16(hdr[4:6], codecVersion)
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(x.dimensions))
	binary.LittleEndian.PutUint64(hdr[12:20], uint64(len(x.vectors)))
	copy(hdr[20:36], snapshot[:])
	if _, err := bw.Write(hdr[:]); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	buf := make([]byte, x.dimensions*4)
	for _, v := range x.vectors {
		for i, f := range v {
			binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
		}
		if _, err := bw.Write(buf); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return bw.Flush()
}

// DecodeHeader reads only the header.
func DecodeHeader(r io.Reader) (Header, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Header{}, fmt.Errorf("%w: read header: %v", ErrCorrupt, err)
	}
	if [4]byte(hdr[0:4]) != magic {
		return Header{}, fmt.Errorf("%w: bad magic", ErrCorrupt)
	}
	h := Header{
		Version:    binary.LittleEndian.Uint16(hdr[4:6]),
		Dimensions: int(binary.LittleEndian.Uint32(hdr[8:12])),
	}
	if h.Version != codecVersion {
		return Header{}, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, h.Version)
	}
	count := binary.LittleEndian.Uint64(hdr[12:20])
	if h.Dimensions <= 0 || h.Dimensions > maxDimensions || count > math.MaxInt32 {
		return Header{}, fmt.Errorf("%w: invalid shape %dx%d", ErrCorrupt, count, h.Dimensions)
	}
	h.Count = int(count)
	copy(h.SnapshotID[:], hdr[20:36])
	return h, nil
}

// Decode reads an index written by Encode. Truncated or trailing data is ErrCorrupt.
func Decode(r io.Reader) (*Index, Header, error) {
	br := bufio.NewReader(r)
	h, err := DecodeHeader(br)
	if err != nil {
		return nil, Header{}, err
	}

	x := &Index{dimensions: h.Dimensions, vectors: make([][]float32, 0, min(h.Count, 1<<16))}
	buf := make([]byte, h.Dimensions*4)
	for n := 0; n < h.Count; n++ {
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, Header{}, fmt.Errorf("%w: vector %d: %v", ErrCorrupt, n, err)
		}
		v := make([]float32, h.Dimensions)
		for i := range v {
			v[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
		}
		x.vectors = append(x.vectors, v)
	}
	if _, err := br.ReadByte(); err != io.EOF {
		return nil, Header{}, fmt.Errorf("%w: trailing data after %d vectors", ErrCorrupt, h.Count)
	}
	return x, h, nil
}
