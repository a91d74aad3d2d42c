package segment

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io/fs"
	"os"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer/filter"
	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer/index"
	apperrors "github.com/Adithya-Monish-Kumar-K/static-search/pkg/errors"
)

// Inspect validates and returns the artifact header without decoding
// entries.
func Inspect(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, corrupt(int64(len(data)), "short header", nil)
	}
	h := Header{
		Magic:            binary.LittleEndian.Uint32(data[0:4]),
		Version:          binary.LittleEndian.Uint32(data[4:8]),
		FilterKind:       filter.Kind(data[8]),
		Compression:      Compression(data[9]),
		Checksum:         binary.LittleEndian.Uint32(data[12:16]),
		UncompressedSize: binary.LittleEndian.Uint64(data[16:24]),
		StoredSize:       len(data) - HeaderSize,
	}
	if h.Magic != MagicBytes {
		return Header{}, corrupt(0, fmt.Sprintf("bad magic bytes %x", h.Magic), nil)
	}
	if h.Version != FormatVersion {
		return Header{}, &VersionError{Got: h.Version, Want: FormatVersion}
	}
	if h.FilterKind != filter.KindCuckoo && h.FilterKind != filter.KindBloom {
		return Header{}, corrupt(8, fmt.Sprintf("unknown filter kind %d", data[8]), nil)
	}
	if h.Compression > CompressionZstd {
		return Header{}, corrupt(9, fmt.Sprintf("unknown compression %d", data[9]), nil)
	}
	if data[10] != 0 || data[11] != 0 {
		return Header{}, corrupt(10, "reserved bytes are not zero", nil)
	}
	if h.UncompressedSize > maxPayloadSize {
		return Header{}, corrupt(16, fmt.Sprintf("payload size %d exceeds limit", h.UncompressedSize), nil)
	}
	return h, nil
}

// Decode parses an artifact produced by Encode. Any malformed input yields a
// *CorruptIndexError, or a *VersionError for an unsupported format version;
// a partially decoded index is never returned.
func Decode(data []byte) (*index.Index, error) {
	h, err := Inspect(data)
	if err != nil {
		return nil, err
	}
	stored := data[HeaderSize:]
	if sum := crc32.ChecksumIEEE(stored); sum != h.Checksum {
		return nil, corrupt(12, fmt.Sprintf("checksum mismatch: header %08x, payload %08x", h.Checksum, sum), nil)
	}
	payload, err := decompress(stored, h.Compression, h.UncompressedSize)
	if err != nil {
		return nil, corrupt(HeaderSize, "decompressing payload", err)
	}
	if uint64(len(payload)) != h.UncompressedSize {
		return nil, corrupt(HeaderSize, fmt.Sprintf("payload is %d bytes, header says %d", len(payload), h.UncompressedSize), nil)
	}

	r := &payloadReader{buf: payload}
	count, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	// every entry needs at least four length bytes
	if count > uint64(len(payload))/4 {
		return nil, corrupt(0, fmt.Sprintf("entry count %d exceeds payload", count), nil)
	}

	b := index.NewBuilder(h.FilterKind)
	for i := uint64(0); i < count; i++ {
		start := r.off
		var loc index.Locator
		if loc.Title, err = r.str(); err != nil {
			return nil, err
		}
		if loc.URL, err = r.str(); err != nil {
			return nil, err
		}
		if loc.Breadcrumb, err = r.str(); err != nil {
			return nil, err
		}
		blobStart := r.off
		blob, err := r.bytes()
		if err != nil {
			return nil, err
		}
		f, err := filter.Unmarshal(h.FilterKind, blob)
		if err != nil {
			return nil, corrupt(int64(blobStart), fmt.Sprintf("entry %d filter", i), err)
		}
		if err := b.Add(loc, f); err != nil {
			return nil, corrupt(int64(start), fmt.Sprintf("entry %d", i), err)
		}
	}
	if r.off != len(payload) {
		return nil, corrupt(int64(r.off), fmt.Sprintf("%d trailing bytes", len(payload)-r.off), nil)
	}
	return b.Finalize(), nil
}

// ReadFile loads and decodes the artifact at path.
func ReadFile(path string) (*index.Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrArtifactNotFound, path)
		}
		return nil, fmt.Errorf("reading artifact: %w", err)
	}
	return Decode(data)
}

type payloadReader struct {
	buf []byte
	off int
}

func (r *payloadReader) uvarint() (uint64, error) {
	v, n := binary.Uvarint(r.buf[r.off:])
	if n <= 0 {
		return 0, corrupt(int64(r.off), "bad length prefix", nil)
	}
	r.off += n
	return v, nil
}

func (r *payloadReader) bytes() ([]byte, error) {
	start := r.off
	n, err := r.uvarint()
	if err != nil {
		return nil, err
	}
	if n > uint64(len(r.buf)-r.off) {
		return nil, corrupt(int64(start), fmt.Sprintf("length %d runs past end of payload", n), nil)
	}
	p := r.buf[r.off : r.off+int(n)]
	r.off += int(n)
	return p, nil
}

func (r *payloadReader) str() (string, error) {
	start := r.off
	p, err := r.bytes()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(p) {
		return "", corrupt(int64(start), "invalid UTF-8 string", nil)
	}
	return string(p), nil
}
