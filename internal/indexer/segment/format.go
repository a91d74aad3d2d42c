// Package segment is the binary codec for search index artifacts.
//
// An artifact is a 24-byte little-endian header followed by the payload:
//
//	off size field
//	0   4    magic 0x58495354
//	4   4    format version
//	8   1    filter kind
//	9   1    compression (0 none, 1 lz4, 2 zstd)
//	10  2    reserved, zero
//	12  4    CRC32 (IEEE) of the stored payload
//	16  8    uncompressed payload length
//
// The uncompressed payload is a uvarint entry count followed by each entry's
// title, url and breadcrumb (uvarint length + UTF-8 bytes) and filter blob
// (uvarint length + bytes).
package segment

import (
	"fmt"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer/filter"
)

const (
	MagicBytes    uint32 = 0x58495354
	FormatVersion uint32 = 1
	HeaderSize           = 24

	maxPayloadSize = 1<<31 - 1
)

type Compression uint8

const (
	CompressionNone Compression = 0
	CompressionLZ4  Compression = 1
	CompressionZstd Compression = 2
)

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("unknown compression %q", s)
	}
}

// Header is the decoded artifact header.
type Header struct {
	Magic            uint32
	Version          uint32
	FilterKind       filter.Kind
	Compression      Compression
	Checksum         uint32
	UncompressedSize uint64
	StoredSize       int
}

// Options controls Encode.
type Options struct {
	Compression Compression
}
