// Package backup copies archive files to an S3-compatible bucket.
package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/rcliao/world-weaver/internal/store"
)

// Config locates the bucket.
type Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Uploader stores archive copies under <save id>/<timestamp>.wwa.
type Uploader struct {
	client   *minio.Client
	bucket   string
	region   string
	now      func() time.Time
	initOnce sync.Once
	initErr  error
}

// New returns an uploader for cfg.
func New(cfg Config) (*Uploader, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("backup endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("backup access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("backup bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &Uploader{client: client, bucket: bucket, region: region, now: time.Now}, nil
}

func (u *Uploader) ensureBucket(ctx context.Context) error {
	u.initOnce.Do(func() {
		exists, err := u.client.BucketExists(ctx, u.bucket)
		if err != nil {
			u.initErr = err
			return
		}
		if exists {
			return
		}
		u.initErr = u.client.MakeBucket(ctx, u.bucket, minio.MakeBucketOptions{Region: u.region})
	})
	return u.initErr
}

// ObjectName is the key a backup of saveID taken at t is stored under.
func ObjectName(saveID string, t time.Time) string {
	return strings.TrimSpace(saveID) + "/" + t.UTC().Format("20060102T150405Z") + store.ArchiveExt
}

// Upload copies the archive file at path and returns its object name.
func (u *Uploader) Upload(ctx context.Context, saveID, path string) (string, error) {
	if strings.TrimSpace(saveID) == "" {
		return "", fmt.Errorf("save id is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat archive: %w", err)
	}

	if err := u.ensureBucket(ctx); err != nil {
		return "", fmt.Errorf("ensure bucket: %w", err)
	}

	// The archive only grows, so the first Size bytes are a consistent copy
	// even if a turn is committed while uploading.
	key := ObjectName(saveID, u.now())
	_, err = u.client.PutObject(ctx, u.bucket, key, io.NewSectionReader(f, 0, info.Size()), info.Size(),
		minio.PutObjectOptions{ContentType: "application/octet-stream"})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return key, nil
}

// List returns the object names of saveID's backups, oldest first.
func (u *Uploader) List(ctx context.Context, saveID string) ([]string, error) {
	if err := u.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}
	prefix := strings.TrimSuffix(strings.TrimSpace(saveID), "/") + "/"
	var keys []string
	for obj := range u.client.ListObjects(ctx, u.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		if obj.Key != "" {
			keys = append(keys, obj.Key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Download writes the backup stored under key to dest, which must not exist.
func (u *Uploader) Download(ctx context.Context, key, dest string) error {
	obj, err := u.client.GetObject(ctx, u.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return fmt.Errorf("get %s: %w", key, err)
	}
	defer obj.Close()

	f, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}
	if _, err := io.Copy(f, obj); err != nil {
		f.Close()
		os.Remove(dest)
		return fmt.Errorf("download %s: %w", key, err)
	}
	return f.Close()
}
