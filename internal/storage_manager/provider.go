// Package storage_manager abstracts where the engine keeps its per-user
// documents. The context store is written against FileProvider and never
// learns whether the bytes land on local disk or in S3, and prefix-scoped
// providers carve isolated namespaces out of one shared backend.
package storage_manager //nolint:revive // var-naming: using underscores for domain clarity

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileProvider is the storage surface the context store depends on.
type FileProvider interface {
	// Read returns the full content of the document at path.
	Read(ctx context.Context, path string) ([]byte, error)

	// Write stores data at path, creating the document if needed.
	Write(ctx context.Context, path string, data []byte) error

	// Exists reports whether a document is present at path.
	Exists(ctx context.Context, path string) (bool, error)

	// Delete removes the document at path. Deleting an absent document
	// is not an error.
	Delete(ctx context.Context, path string) error

	// List returns the paths of all documents under prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// LocalFileProvider keeps documents as plain files under a root directory.
type LocalFileProvider struct {
	root string
}

// NewLocalFileProvider returns a provider rooted at root.
func NewLocalFileProvider(root string) *LocalFileProvider {
	return &LocalFileProvider{root: root}
}

// Read returns the content of the file at path.
func (p *LocalFileProvider) Read(ctx context.Context, path string) ([]byte, error) {
	return os.ReadFile(filepath.Join(p.root, path)) //nolint:gosec // G304: path is joined onto the trusted root
}

// Write stores data at path, creating parent directories as needed.
func (p *LocalFileProvider) Write(ctx context.Context, path string, data []byte) error {
	target := filepath.Join(p.root, path)
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	return os.WriteFile(target, data, 0o600)
}

// Exists reports whether the file at path is present.
func (p *LocalFileProvider) Exists(ctx context.Context, path string) (bool, error) {
	_, err := os.Stat(filepath.Join(p.root, path))
	switch {
	case err == nil:
		return true, nil
	case os.IsNotExist(err):
		return false, nil
	default:
		return false, err
	}
}

// Delete removes the file at path.
func (p *LocalFileProvider) Delete(ctx context.Context, path string) error {
	err := os.Remove(filepath.Join(p.root, path))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// List returns every file under prefix, as paths relative to the root.
// A prefix with no files yet is an empty result, not an error.
func (p *LocalFileProvider) List(ctx context.Context, prefix string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(filepath.Join(p.root, prefix), func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if entry.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(p.root, path)
		if relErr != nil {
			return relErr
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// S3FileProvider keeps documents as objects in one S3 bucket, optionally
// under a fixed key prefix.
type S3FileProvider struct {
	bucket string
	prefix string
	client S3Client
}

// NewS3FileProvider returns a provider over the given bucket and prefix.
func NewS3FileProvider(bucket, prefix string, client S3Client) *S3FileProvider {
	return &S3FileProvider{
		bucket: bucket,
		prefix: prefix,
		client: client,
	}
}

// Read returns the content of the object at path.
func (p *S3FileProvider) Read(ctx context.Context, path string) ([]byte, error) {
	return p.client.GetObject(ctx, p.bucket, p.key(path))
}

// Write stores data as the object at path.
func (p *S3FileProvider) Write(ctx context.Context, path string, data []byte) error {
	return p.client.PutObject(ctx, p.bucket, p.key(path), data)
}

// Exists reports whether the object at path is present. Only ErrNotFound
// maps to absence; network and permission failures propagate.
func (p *S3FileProvider) Exists(ctx context.Context, path string) (bool, error) {
	err := p.client.HeadObject(ctx, p.bucket, p.key(path))
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Delete removes the object at path.
func (p *S3FileProvider) Delete(ctx context.Context, path string) error {
	return p.client.DeleteObject(ctx, p.bucket, p.key(path))
}

// List returns the objects under prefix, with the provider's key prefix
// stripped back off.
func (p *S3FileProvider) List(ctx context.Context, prefix string) ([]string, error) {
	keys, err := p.client.ListObjects(ctx, p.bucket, p.key(prefix))
	if err != nil {
		return nil, err
	}

	base := p.key("")
	var paths []string
	for _, key := range keys {
		if trimmed := strings.TrimPrefix(key, base); trimmed != "" {
			paths = append(paths, trimmed)
		}
	}
	return paths, nil
}

func (p *S3FileProvider) key(path string) string {
	if p.prefix == "" {
		return path
	}
	return p.prefix + "/" + path
}

// PrefixedFileProvider scopes another provider to a namespace so several
// document kinds can share one backend without seeing each other.
type PrefixedFileProvider struct {
	inner  FileProvider
	prefix string
}

// NewPrefixedFileProvider wraps inner so every path goes under prefix.
func NewPrefixedFileProvider(inner FileProvider, prefix string) *PrefixedFileProvider {
	return &PrefixedFileProvider{
		inner:  inner,
		prefix: prefix,
	}
}

// Read returns the content of the document at path within the namespace.
func (p *PrefixedFileProvider) Read(ctx context.Context, path string) ([]byte, error) {
	return p.inner.Read(ctx, p.join(path))
}

// Write stores data at path within the namespace.
func (p *PrefixedFileProvider) Write(ctx context.Context, path string, data []byte) error {
	return p.inner.Write(ctx, p.join(path), data)
}

// Exists reports whether a document is present at path within the namespace.
func (p *PrefixedFileProvider) Exists(ctx context.Context, path string) (bool, error) {
	return p.inner.Exists(ctx, p.join(path))
}

// Delete removes the document at path within the namespace.
func (p *PrefixedFileProvider) Delete(ctx context.Context, path string) error {
	return p.inner.Delete(ctx, p.join(path))
}

// List returns the documents under prefix within the namespace, with the
// namespace stripped back off.
func (p *PrefixedFileProvider) List(ctx context.Context, prefix string) ([]string, error) {
	files, err := p.inner.List(ctx, p.join(prefix))
	if err != nil {
		return nil, err
	}

	base := p.join("")
	var paths []string
	for _, file := range files {
		paths = append(paths, strings.TrimPrefix(file, base))
	}
	return paths, nil
}

func (p *PrefixedFileProvider) join(path string) string {
	if p.prefix == "" {
		return path
	}
	return p.prefix + "/" + path
}
