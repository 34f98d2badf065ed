// storage.go - Blob storage backends for uploaded files.
//
// DiskStore writes to a flat served directory and is the default.
// MinioStore keeps the same contract on top of S3-compatible object
// storage for deployments that want uploads off the local disk.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrBlobNotFound is returned by Get for names that were never stored.
var ErrBlobNotFound = errors.New("blob not found")

// Blob is one stored upload opened for reading. The caller owns Reader.
type Blob struct {
	Reader      io.ReadCloser
	ContentType string
	Size        int64
	ModTime     time.Time
}

// BlobStore persists uploaded files under generated names and serves
// them back. Names are flat: no directories, no path separators.
type BlobStore interface {
	Put(ctx context.Context, name, contentType string, r io.Reader) (int64, error)
	Get(ctx context.Context, name string) (Blob, error)
}

// validBlobName rejects anything that could escape the served
// directory: empty names, path separators, and dot segments.
func validBlobName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) {
		return false
	}
	return true
}

// DiskStore stores blobs as plain files in a single directory.
type DiskStore struct {
	dir string
}

// NewDiskStore ensures dir exists and returns a store rooted there.
func NewDiskStore(dir string) (*DiskStore, error) {
	if dir == "" {
		return nil, errors.New("upload dir is empty")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &DiskStore{dir: dir}, nil
}

// Dir returns the served directory path.
func (s *DiskStore) Dir() string { return s.dir }

func (s *DiskStore) Put(_ context.Context, name, _ string, r io.Reader) (int64, error) {
	if !validBlobName(name) {
		return 0, fmt.Errorf("invalid blob name %q", name)
	}
	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return 0, fmt.Errorf("create blob file: %w", err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		// A half-written file must not stay servable.
		_ = os.Remove(f.Name())
		return 0, fmt.Errorf("write blob: %w", err)
	}
	return n, nil
}

func (s *DiskStore) Get(_ context.Context, name string) (Blob, error) {
	if !validBlobName(name) {
		return Blob{}, ErrBlobNotFound
	}
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Blob{}, ErrBlobNotFound
		}
		return Blob{}, fmt.Errorf("open blob: %w", err)
	}
	st, err := f.Stat()
	if err != nil || st.IsDir() {
		_ = f.Close()
		if err == nil {
			return Blob{}, ErrBlobNotFound
		}
		return Blob{}, fmt.Errorf("stat blob: %w", err)
	}
	return Blob{
		Reader:      f,
		ContentType: mime.TypeByExtension(filepath.Ext(name)),
		Size:        st.Size(),
		ModTime:     st.ModTime(),
	}, nil
}

// MinioStore stores blobs as objects in one bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// MinioOptions configures NewMinioStore. Endpoint accepts either
// "minio:9000" or a full "http(s)://minio:9000" URL.
type MinioOptions struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
}

func normaliseEndpoint(raw string) (endpoint string, secure bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false, fmt.Errorf("empty endpoint")
	}
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", false, err
		}
		if u.Host == "" {
			return "", false, fmt.Errorf("invalid endpoint")
		}
		if u.Path != "" && u.Path != "/" {
			return "", false, fmt.Errorf("endpoint must not contain a path")
		}
		return u.Host, u.Scheme == "https", nil
	}
	// No scheme, treat as host:port (insecure by default for local MinIO).
	return raw, false, nil
}

// NewMinioStore connects to the object store and checks the bucket exists.
func NewMinioStore(opts MinioOptions) (*MinioStore, error) {
	if opts.Endpoint == "" || opts.AccessKey == "" || opts.SecretKey == "" || opts.Bucket == "" {
		return nil, fmt.Errorf("minio configuration incomplete")
	}
	endpoint, secure, err := normaliseEndpoint(opts.Endpoint)
	if err != nil {
		return nil, err
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, err
	}
	exists, err := client.BucketExists(context.Background(), opts.Bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("minio bucket does not exist: %s", opts.Bucket)
	}
	return &MinioStore{client: client, bucket: opts.Bucket}, nil
}

func (s *MinioStore) Put(ctx context.Context, name, contentType string, r io.Reader) (int64, error) {
	if !validBlobName(name) {
		return 0, fmt.Errorf("invalid blob name %q", name)
	}
	info, err := s.client.PutObject(ctx, s.bucket, name, r, -1,
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return 0, fmt.Errorf("put object: %w", err)
	}
	return info.Size, nil
}

func (s *MinioStore) Get(ctx context.Context, name string) (Blob, error) {
	if !validBlobName(name) {
		return Blob{}, ErrBlobNotFound
	}
	obj, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return Blob{}, fmt.Errorf("get object: %w", err)
	}
	// Force an early error for missing objects.
	st, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return Blob{}, ErrBlobNotFound
		}
		return Blob{}, fmt.Errorf("stat object: %w", err)
	}
	return Blob{
		Reader:      obj,
		ContentType: st.ContentType,
		Size:        st.Size,
		ModTime:     st.LastModified,
	}, nil
}
