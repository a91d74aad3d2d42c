package segment

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer/filter"
	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer/tokenizer"
	apperrors "github.com/Adithya-Monish-Kumar-K/static-search/pkg/errors"
)

type section struct {
	loc  index.Locator
	text string
}

var sampleSections = []section{
	{index.Locator{Title: "Intro", URL: "intro.html#intro"}, "Welcome to the guide"},
	{index.Locator{Title: "Intro", URL: "intro.html#setup", Breadcrumb: "Intro"}, "Run cargo install to set things up"},
	{index.Locator{Title: "Reference", URL: "ref/cli.html#flags", Breadcrumb: "Reference » CLI"}, "Flags: --verbose --quiet 天気"},
}

func buildIndex(t *testing.T, kind filter.Kind) *index.Index {
	t.Helper()
	fb := filter.NewBuilder(tokenizer.NewUnicode(), filter.Options{Kind: kind})
	b := index.NewBuilder(kind)
	for _, s := range sampleSections {
		f, err := fb.Build(s.text, s.loc.Title, s.loc.Breadcrumb)
		require.NoError(t, err)
		require.NoError(t, b.Add(s.loc, f))
	}
	return b.Finalize()
}

func artifact(payload []byte, kind filter.Kind) []byte {
	out := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(out[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(out[4:8], FormatVersion)
	out[8] = byte(kind)
	binary.LittleEndian.PutUint32(out[12:16], crc32.ChecksumIEEE(payload))
	binary.LittleEndian.PutUint64(out[16:24], uint64(len(payload)))
	return append(out, payload...)
}

func TestRoundTrip(t *testing.T) {
	for _, kind := range []filter.Kind{filter.KindCuckoo, filter.KindBloom} {
		for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZstd} {
			t.Run(fmt.Sprintf("%s/%s", kind, c), func(t *testing.T) {
				idx := buildIndex(t, kind)
				data, err := Encode(idx, Options{Compression: c})
				require.NoError(t, err)

				got, err := Decode(data)
				require.NoError(t, err)
				assert.Equal(t, idx.Locators(), got.Locators())
				assert.Equal(t, kind, got.FilterKind())

				tok := tokenizer.NewUnicode()
				for i, s := range sampleSections {
					for _, word := range tok.Tokenize(s.text) {
						assert.True(t, got.At(i).Filter.Contains(word), "%s in %s", word, s.loc.URL)
					}
				}
			})
		}
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	a, err := Encode(buildIndex(t, filter.KindBloom), Options{Compression: CompressionZstd})
	require.NoError(t, err)
	b, err := Encode(buildIndex(t, filter.KindBloom), Options{Compression: CompressionZstd})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEmptyIndexRoundTrip(t *testing.T) {
	data, err := Encode(index.NewBuilder(filter.KindCuckoo).Finalize(), Options{Compression: CompressionLZ4})
	require.NoError(t, err)

	h, err := Inspect(data)
	require.NoError(t, err)
	assert.Equal(t, CompressionNone, h.Compression)

	got, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Len())
}

func TestInspect(t *testing.T) {
	data, err := Encode(buildIndex(t, filter.KindCuckoo), Options{Compression: CompressionZstd})
	require.NoError(t, err)

	h, err := Inspect(data)
	require.NoError(t, err)
	assert.Equal(t, FormatVersion, h.Version)
	assert.Equal(t, filter.KindCuckoo, h.FilterKind)
	assert.Equal(t, len(data)-HeaderSize, h.StoredSize)
	assert.Equal(t, crc32.ChecksumIEEE(data[HeaderSize:]), h.Checksum)
}

func TestDecodeTruncated(t *testing.T) {
	data, err := Encode(buildIndex(t, filter.KindCuckoo), Options{})
	require.NoError(t, err)

	for n := 0; n < len(data); n++ {
		_, err := Decode(data[:n])
		require.Error(t, err, "length %d", n)
		assert.True(t, errors.Is(err, apperrors.ErrCorruptIndex), "length %d: %v", n, err)
	}
}

func TestDecodeBitFlips(t *testing.T) {
	data, err := Encode(buildIndex(t, filter.KindCuckoo), Options{Compression: CompressionLZ4})
	require.NoError(t, err)

	offsets := []int{0, 3, 8, 10, 11, 12, 15}
	for i := HeaderSize; i < len(data); i++ {
		offsets = append(offsets, i)
	}
	for _, off := range offsets {
		for bit := 0; bit < 8; bit++ {
			flipped := append([]byte(nil), data...)
			flipped[off] ^= 1 << bit
			_, err := Decode(flipped)
			var cerr *CorruptIndexError
			require.True(t, errors.As(err, &cerr), "offset %d bit %d: %v", off, bit, err)
		}
	}
}

func TestDecodeUnknownVersion(t *testing.T) {
	data, err := Encode(buildIndex(t, filter.KindCuckoo), Options{})
	require.NoError(t, err)
	binary.LittleEndian.PutUint32(data[4:8], 7)

	_, err = Decode(data)
	var verr *VersionError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, uint32(7), verr.Got)
	assert.True(t, errors.Is(err, apperrors.ErrIncompatibleFormat))
	assert.False(t, errors.Is(err, apperrors.ErrCorruptIndex))
}

func TestDecodeSizeMismatchReportsPayloadOffset(t *testing.T) {
	data := artifact(binary.AppendUvarint(nil, 0), filter.KindCuckoo)
	binary.LittleEndian.PutUint64(data[16:24], 5)

	_, err := Decode(data)
	var cerr *CorruptIndexError
	require.True(t, errors.As(err, &cerr), "%v", err)
	assert.Equal(t, int64(HeaderSize), cerr.Offset)
}

func TestInspectRejectsOversizedPayload(t *testing.T) {
	data := artifact(nil, filter.KindBloom)
	binary.LittleEndian.PutUint64(data[16:24], maxPayloadSize+1)

	_, err := Inspect(data)
	var cerr *CorruptIndexError
	require.True(t, errors.As(err, &cerr), "%v", err)
	assert.Equal(t, int64(16), cerr.Offset)

	binary.LittleEndian.PutUint64(data[16:24], maxPayloadSize)
	_, err = Inspect(data)
	assert.NoError(t, err)
}

func TestDecodeRejectsDuplicateLocators(t *testing.T) {
	f, err := filter.NewBuilder(tokenizer.NewUnicode(), filter.Options{}).Build("x")
	require.NoError(t, err)
	blob, err := f.MarshalBinary()
	require.NoError(t, err)

	payload := binary.AppendUvarint(nil, 2)
	for range 2 {
		payload = appendString(payload, "T")
		payload = appendString(payload, "same.html#id")
		payload = appendString(payload, "")
		payload = appendBytes(payload, blob)
	}

	_, err = Decode(artifact(payload, filter.KindCuckoo))
	assert.True(t, errors.Is(err, apperrors.ErrCorruptIndex))
	assert.True(t, errors.Is(err, index.ErrDuplicateLocator))
}

func TestDecodeRejectsTrailingBytesAndBadUTF8(t *testing.T) {
	_, err := Decode(artifact([]byte{0, 0xAA}, filter.KindCuckoo))
	assert.True(t, errors.Is(err, apperrors.ErrCorruptIndex))

	payload := binary.AppendUvarint(nil, 1)
	payload = appendBytes(payload, []byte{0xff, 0xfe})
	_, err = Decode(artifact(payload, filter.KindCuckoo))
	assert.True(t, errors.Is(err, apperrors.ErrCorruptIndex))
}

func TestWriteFileAndReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "searchindex.bin")
	data, err := Encode(buildIndex(t, filter.KindCuckoo), Options{})
	require.NoError(t, err)

	require.NoError(t, WriteFile(path, data))
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))

	idx, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, len(sampleSections), idx.Len())

	_, err = ReadFile(filepath.Join(dir, "missing.bin"))
	assert.True(t, errors.Is(err, apperrors.ErrArtifactNotFound))
}

func TestParseCompression(t *testing.T) {
	c, err := ParseCompression("ZSTD")
	require.NoError(t, err)
	assert.Equal(t, CompressionZstd, c)

	_, err = ParseCompression("brotli")
	assert.Error(t, err)
}
