package storage_manager //nolint:revive // var-naming: using underscores for domain clarity

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// BackendType selects where documents are kept.
type BackendType string

const (
	// BackendLocal keeps documents on the local filesystem.
	BackendLocal BackendType = "local"
	// BackendS3 keeps documents in an S3 bucket.
	BackendS3 BackendType = "s3"
)

// Config selects and configures the storage backend.
type Config struct {
	Backend BackendType

	// Local applies when Backend is BackendLocal.
	Local *LocalConfig

	// S3 applies when Backend is BackendS3.
	S3 *S3Config
}

// LocalConfig configures the local filesystem backend.
type LocalConfig struct {
	// BaseDir is the directory all documents live under.
	BaseDir string
}

// S3Config configures the S3 backend.
type S3Config struct {
	// Bucket is the S3 bucket name.
	Bucket string
	// Prefix is prepended to every object key.
	Prefix string
	// Client is the AWS S3 client to use.
	Client *s3.Client
}

// StorageManager hands out namespace-scoped providers over one configured
// backend, keeping user context isolated from any other document kinds.
type StorageManager struct {
	provider FileProvider
}

// New validates the backend selection and builds its provider.
func New(config Config) (*StorageManager, error) {
	provider, err := buildProvider(config)
	if err != nil {
		return nil, err
	}
	return &StorageManager{provider: provider}, nil
}

func buildProvider(config Config) (FileProvider, error) {
	switch config.Backend {
	case BackendLocal:
		if config.Local == nil || config.Local.BaseDir == "" {
			return nil, fmt.Errorf("local backend requires a base directory")
		}
		return NewLocalFileProvider(config.Local.BaseDir), nil

	case BackendS3:
		if config.S3 == nil || config.S3.Bucket == "" {
			return nil, fmt.Errorf("s3 backend requires a bucket")
		}
		if config.S3.Client == nil {
			return nil, fmt.Errorf("s3 backend requires a client")
		}
		return NewS3FileProvider(config.S3.Bucket, config.S3.Prefix, newAWSS3Client(config.S3.Client)), nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Backend)
	}
}

// GetProvider returns a provider scoped to the given namespace, for example
// "context" for per-user context documents. The empty namespace returns the
// unscoped backend.
func (m *StorageManager) GetProvider(namespace string) FileProvider {
	if namespace == "" {
		return m.provider
	}
	return NewPrefixedFileProvider(m.provider, namespace)
}
