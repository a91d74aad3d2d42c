package publish

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/static-search/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/static-search/pkg/errors"
)

func TestLocalPutGet(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	store := NewLocal(dir)

	loc, err := store.Put(context.Background(), "searchindex.bin", []byte("artifact"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "searchindex.bin"), loc)

	data, err := store.Get(context.Background(), "searchindex.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte("artifact"), data)

	_, err = store.Get(context.Background(), "other.bin")
	assert.True(t, errors.Is(err, apperrors.ErrArtifactNotFound))
}

func TestLocalPutWaitsForLock(t *testing.T) {
	dir := t.TempDir()
	held := flock.New(filepath.Join(dir, lockFile))
	require.NoError(t, held.Lock())
	defer held.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	_, err := NewLocal(dir).Put(ctx, "searchindex.bin", []byte("x"))
	assert.Error(t, err)
}

type fakeS3 struct {
	manager.UploadAPIClient

	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[*in.Bucket+"/"+*in.Key] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestS3PutGet(t *testing.T) {
	fake := &fakeS3{objects: make(map[string][]byte)}
	store := NewS3(fake, "docs", "book/v1")

	loc, err := store.Put(context.Background(), "searchindex.bin", []byte("blob"))
	require.NoError(t, err)
	assert.Contains(t, loc, "book/v1/searchindex.bin")
	assert.Equal(t, []byte("blob"), fake.objects["docs/book/v1/searchindex.bin"])

	data, err := store.Get(context.Background(), "searchindex.bin")
	require.NoError(t, err)
	assert.Equal(t, []byte("blob"), data)

	_, err = store.Get(context.Background(), "missing.bin")
	assert.True(t, errors.Is(err, apperrors.ErrArtifactNotFound))
}

func TestOpenSelectsTarget(t *testing.T) {
	store, err := Open(context.Background(), config.PublishConfig{Target: "file", Dir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, "file", store.Name())

	_, err = Open(context.Background(), config.PublishConfig{Target: "minio"})
	assert.Error(t, err)

	_, err = Open(context.Background(), config.PublishConfig{Target: "ftp"})
	assert.Error(t, err)
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "a.bin", objectKey("", "a.bin"))
	assert.Equal(t, "p/q/a.bin", objectKey("p/q/", "a.bin"))
}
