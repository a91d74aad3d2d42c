package segment

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"

	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer/index"
)

// Encode serializes idx into an artifact.
func Encode(idx *index.Index, opts Options) ([]byte, error) {
	if idx == nil {
		return nil, fmt.Errorf("cannot encode nil index")
	}
	payload := binary.AppendUvarint(nil, uint64(idx.Len()))
	for _, entry := range idx.All() {
		blob, err := entry.Filter.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("marshaling filter for %q: %w", entry.Locator.URL, err)
		}
		payload = appendString(payload, entry.Locator.Title)
		payload = appendString(payload, entry.Locator.URL)
		payload = appendString(payload, entry.Locator.Breadcrumb)
		payload = appendBytes(payload, blob)
	}
	if len(payload) > maxPayloadSize {
		return nil, fmt.Errorf("index payload of %d bytes exceeds limit", len(payload))
	}

	stored, used, err := compress(payload, opts.Compression)
	if err != nil {
		return nil, err
	}

	out := make([]byte, HeaderSize, HeaderSize+len(stored))
	binary.LittleEndian.PutUint32(out[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(out[4:8], FormatVersion)
	out[8] = byte(idx.FilterKind())
	out[9] = byte(used)
	binary.LittleEndian.PutUint32(out[12:16], crc32.ChecksumIEEE(stored))
	binary.LittleEndian.PutUint64(out[16:24], uint64(len(payload)))
	return append(out, stored...), nil
}

// WriteFile atomically replaces path with data. It writes a .tmp file in the
// same directory and renames it on success.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating artifact directory: %w", err)
	}
	tmpPath := path + ".tmp"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp artifact file: %w", err)
	}
	defer os.Remove(tmpPath)
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("writing artifact: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing artifact file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing artifact file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming artifact file: %w", err)
	}
	return nil
}

func appendString(b []byte, s string) []byte {
	b = binary.AppendUvarint(b, uint64(len(s)))
	return append(b, s...)
}

func appendBytes(b []byte, p []byte) []byte {
	b = binary.AppendUvarint(b, uint64(len(p)))
	return append(b, p...)
}
