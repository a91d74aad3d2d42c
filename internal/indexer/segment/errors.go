package segment

import (
	"fmt"

	apperrors "github.com/Adithya-Monish-Kumar-K/static-search/pkg/errors"
)

// CorruptIndexError reports an artifact that cannot be decoded. Offset is
// the byte position in the artifact (header) or in the uncompressed payload
// where decoding failed.
type CorruptIndexError struct {
	Offset int64
	Reason string
	Err    error
}

func (e *CorruptIndexError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("corrupt index at offset %d: %s: %v", e.Offset, e.Reason, e.Err)
	}
	return fmt.Sprintf("corrupt index at offset %d: %s", e.Offset, e.Reason)
}

func (e *CorruptIndexError) Unwrap() error {
	return e.Err
}

func (e *CorruptIndexError) Is(target error) bool {
	return target == apperrors.ErrCorruptIndex
}

// VersionError reports an artifact written by an incompatible format
// version.
type VersionError struct {
	Got  uint32
	Want uint32
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("index format version %d is not supported (want %d)", e.Got, e.Want)
}

func (e *VersionError) Is(target error) bool {
	return target == apperrors.ErrIncompatibleFormat
}

func corrupt(offset int64, reason string, err error) error {
	return &CorruptIndexError{Offset: offset, Reason: reason, Err: err}
}
