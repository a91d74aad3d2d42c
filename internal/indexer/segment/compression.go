package segment

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

var (
	zstdEncoder = sync.OnceValues(func() (*zstd.Encoder, error) {
		return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	})
	zstdDecoder = sync.OnceValues(func() (*zstd.Decoder, error) {
		return zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxPayloadSize))
	})
)

// compress returns the stored form of payload and the compression actually
// used. Incompressible payloads are stored as-is.
func compress(payload []byte, c Compression) ([]byte, Compression, error) {
	if len(payload) == 0 {
		return payload, CompressionNone, nil
	}
	switch c {
	case CompressionNone:
		return payload, CompressionNone, nil
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(payload)))
		n, err := lz4.CompressBlock(payload, buf, nil)
		if err != nil {
			return nil, 0, fmt.Errorf("lz4 compress: %w", err)
		}
		if n == 0 || n >= len(payload) {
			return payload, CompressionNone, nil
		}
		return buf[:n], CompressionLZ4, nil
	case CompressionZstd:
		enc, err := zstdEncoder()
		if err != nil {
			return nil, 0, fmt.Errorf("creating zstd encoder: %w", err)
		}
		out := enc.EncodeAll(payload, nil)
		if len(out) >= len(payload) {
			return payload, CompressionNone, nil
		}
		return out, CompressionZstd, nil
	default:
		return nil, 0, fmt.Errorf("unsupported compression %s", c)
	}
}

func decompress(stored []byte, c Compression, size uint64) ([]byte, error) {
	switch c {
	case CompressionNone:
		return stored, nil
	case CompressionLZ4:
		out := make([]byte, size)
		n, err := lz4.UncompressBlock(stored, out)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompress: %w", err)
		}
		return out[:n], nil
	case CompressionZstd:
		dec, err := zstdDecoder()
		if err != nil {
			return nil, fmt.Errorf("creating zstd decoder: %w", err)
		}
		out, err := dec.DecodeAll(stored, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported compression %s", c)
	}
}
