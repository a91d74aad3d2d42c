package publish

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/Adithya-Monish-Kumar-K/static-search/internal/indexer/segment"
	apperrors "github.com/Adithya-Monish-Kumar-K/static-search/pkg/errors"
)

const lockFile = ".searchindex.lock"

// Local writes artifacts into a directory. Concurrent publishers to the
// same directory are serialized with a file lock, and each write is atomic.
type Local struct {
	dir string
}

func NewLocal(dir string) *Local {
	return &Local{dir: dir}
}

func (l *Local) Name() string {
	return "file"
}

func (l *Local) Put(ctx context.Context, name string, data []byte) (string, error) {
	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return "", fmt.Errorf("creating publish directory: %w", err)
	}
	lock := flock.New(filepath.Join(l.dir, lockFile))
	locked, err := lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return "", fmt.Errorf("acquiring publish lock: %w", err)
	}
	if !locked {
		return "", fmt.Errorf("acquiring publish lock: %s is held by another build", lock.Path())
	}
	defer lock.Unlock()

	dest := filepath.Join(l.dir, name)
	if err := segment.WriteFile(dest, data); err != nil {
		return "", err
	}
	return dest, nil
}

func (l *Local) Get(_ context.Context, name string) ([]byte, error) {
	p := filepath.Join(l.dir, name)
	data, err := os.ReadFile(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrArtifactNotFound, p)
		}
		return nil, fmt.Errorf("reading artifact: %w", err)
	}
	return data, nil
}
