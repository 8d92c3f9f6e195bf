package store

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the on-disk/object compression for artifact payloads.
// Quantized datasets compress well: narrowing to int8 leaves long runs of
// nearby values.
type Compression uint8

const (
	// NoCompression stores payloads verbatim.
	NoCompression Compression = iota
	// LZ4 trades ratio for speed (pierrec/lz4 frames).
	LZ4
	// Zstd is the default balance of speed and ratio (klauspost zstd frames).
	Zstd
)

// String returns the string representation of the compression scheme.
func (c Compression) String() string {
	switch c {
	case NoCompression:
		return "none"
	case LZ4:
		return "lz4"
	case Zstd:
		return "zstd"
	default:
		return "unknown"
	}
}

// Frame magics let decompress route by content rather than configuration.
const (
	zstdMagic = 0xFD2FB528
	lz4Magic  = 0x184D2204
)

func compress(data []byte, c Compression) ([]byte, error) {
	switch c {
	case NoCompression:
		return data, nil
	case Zstd:
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return nil, err
		}
		defer enc.Close()
		return enc.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
	case LZ4:
		var buf bytes.Buffer
		w := lz4.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			return nil, err
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("unknown compression scheme: %d", c)
	}
}

func decompress(data []byte) ([]byte, error) {
	if len(data) < 4 {
		return data, nil
	}
	switch binary.LittleEndian.Uint32(data[:4]) {
	case zstdMagic:
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return dec.DecodeAll(data, nil)
	case lz4Magic:
		return io.ReadAll(lz4.NewReader(bytes.NewReader(data)))
	default:
		return data, nil
	}
}
