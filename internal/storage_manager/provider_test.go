package storage_manager

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFileProviderRoundTrip(t *testing.T) {
	provider := NewLocalFileProvider(t.TempDir())
	ctx := context.Background()

	exists, err := provider.Exists(ctx, "nested/file.json")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, provider.Write(ctx, "nested/file.json", []byte(`{"a":1}`)))

	exists, err = provider.Exists(ctx, "nested/file.json")
	require.NoError(t, err)
	assert.True(t, exists)

	data, err := provider.Read(ctx, "nested/file.json")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))

	require.NoError(t, provider.Delete(ctx, "nested/file.json"))

	exists, err = provider.Exists(ctx, "nested/file.json")
	require.NoError(t, err)
	assert.False(t, exists)

	// Deleting a missing file is not an error
	require.NoError(t, provider.Delete(ctx, "nested/file.json"))
}

func TestLocalFileProviderList(t *testing.T) {
	provider := NewLocalFileProvider(t.TempDir())
	ctx := context.Background()

	files, err := provider.List(ctx, "users")
	require.NoError(t, err)
	assert.Empty(t, files)

	require.NoError(t, provider.Write(ctx, "users/alice/profile.json", []byte("{}")))
	require.NoError(t, provider.Write(ctx, "users/bob/profile.json", []byte("{}")))
	require.NoError(t, provider.Write(ctx, "other/ignored.json", []byte("{}")))

	files, err = provider.List(ctx, "users")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"users/alice/profile.json", "users/bob/profile.json"}, files)
}

func TestPrefixedFileProviderIsolation(t *testing.T) {
	base := NewLocalFileProvider(t.TempDir())
	ctx := context.Background()

	contextProvider := NewPrefixedFileProvider(base, "context")
	cacheProvider := NewPrefixedFileProvider(base, "cache")

	require.NoError(t, contextProvider.Write(ctx, "doc.json", []byte("context")))
	require.NoError(t, cacheProvider.Write(ctx, "doc.json", []byte("cache")))

	data, err := contextProvider.Read(ctx, "doc.json")
	require.NoError(t, err)
	assert.Equal(t, "context", string(data))

	data, err = base.Read(ctx, "cache/doc.json")
	require.NoError(t, err)
	assert.Equal(t, "cache", string(data))

	files, err := contextProvider.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"doc.json"}, files)
}

func TestStorageManagerBackends(t *testing.T) {
	_, err := New(Config{Backend: BackendLocal})
	assert.Error(t, err)

	_, err = New(Config{Backend: BackendS3, S3: &S3Config{}})
	assert.Error(t, err)

	_, err = New(Config{Backend: BackendS3, S3: &S3Config{Bucket: "ctx"}})
	assert.Error(t, err)

	_, err = New(Config{Backend: "ftp"})
	assert.Error(t, err)

	manager, err := New(Config{
		Backend: BackendLocal,
		Local:   &LocalConfig{BaseDir: t.TempDir()},
	})
	require.NoError(t, err)

	scoped := manager.GetProvider("context")
	require.NoError(t, scoped.Write(context.Background(), "x.json", []byte("1")))

	data, err := manager.GetProvider("").Read(context.Background(), "context/x.json")
	require.NoError(t, err)
	assert.Equal(t, "1", string(data))
}

// fakeS3Client keeps objects in a map, mimicking the SDK adapter's
// not-found behaviour.
type fakeS3Client struct {
	objects map[string][]byte
}

func newFakeS3Client() *fakeS3Client {
	return &fakeS3Client{objects: make(map[string][]byte)}
}

func (f *fakeS3Client) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

func (f *fakeS3Client) PutObject(ctx context.Context, bucket, key string, data []byte) error {
	f.objects[key] = data
	return nil
}

func (f *fakeS3Client) HeadObject(ctx context.Context, bucket, key string) error {
	if _, ok := f.objects[key]; !ok {
		return ErrNotFound
	}
	return nil
}

func (f *fakeS3Client) DeleteObject(ctx context.Context, bucket, key string) error {
	delete(f.objects, key)
	return nil
}

func (f *fakeS3Client) ListObjects(ctx context.Context, bucket, prefix string) ([]string, error) {
	var keys []string
	for key := range f.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func TestS3FileProviderKeyPrefix(t *testing.T) {
	client := newFakeS3Client()
	provider := NewS3FileProvider("ctx-bucket", "engine", client)
	ctx := context.Background()

	exists, err := provider.Exists(ctx, "users/alice/profile.json")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, provider.Write(ctx, "users/alice/profile.json", []byte("{}")))
	assert.Contains(t, client.objects, "engine/users/alice/profile.json")

	exists, err = provider.Exists(ctx, "users/alice/profile.json")
	require.NoError(t, err)
	assert.True(t, exists)

	files, err := provider.List(ctx, "users")
	require.NoError(t, err)
	assert.Equal(t, []string{"users/alice/profile.json"}, files)

	require.NoError(t, provider.Delete(ctx, "users/alice/profile.json"))
	exists, err = provider.Exists(ctx, "users/alice/profile.json")
	require.NoError(t, err)
	assert.False(t, exists)
}
