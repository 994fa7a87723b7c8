package s3

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/listing/domain"
	"github.com/Abdurahmanit/GroupProject/marketplace-service/internal/platform/logger"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

const (
	ListingPrefix = "listings/"
	AvatarPrefix  = "avatars/"
)

type Options struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL replaces the client endpoint in returned image URLs,
	// e.g. when MinIO sits behind a CDN or a different hostname.
	PublicURL string
	// Prefix is the key namespace of this store, ListingPrefix when empty.
	// Deletes outside it are refused.
	Prefix string
}

// S3Storage stores images under one key prefix of a MinIO/S3 bucket. The
// object key is the delete handle.
type S3Storage struct {
	client    *minio.Client
	bucket    string
	publicURL string
	prefix    string
	logger    *logger.Logger
}

// NewS3Storage connects to MinIO and makes sure the bucket exists.
func NewS3Storage(ctx context.Context, opts Options, log *logger.Logger) (*S3Storage, error) {
	log = log.Named("S3Storage")
	log.Info("Initializing S3 MinIO Storage", zap.String("endpoint", opts.Endpoint), zap.String("bucket", opts.Bucket), zap.Bool("use_ssl", opts.UseSSL))

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client for endpoint %s: %w", opts.Endpoint, err)
	}

	if err := client.MakeBucket(ctx, opts.Bucket, minio.MakeBucketOptions{}); err != nil {
		exists, errBucketExists := client.BucketExists(ctx, opts.Bucket)
		if errBucketExists != nil || !exists {
			return nil, fmt.Errorf("failed to make/verify bucket %s: (make: %v / exists_check: %v)", opts.Bucket, err, errBucketExists)
		}
		log.Info("Bucket already exists", zap.String("bucket", opts.Bucket))
	} else {
		log.Info("Bucket created", zap.String("bucket", opts.Bucket))
	}

	base := opts.PublicURL
	if base == "" {
		base = client.EndpointURL().String()
	}
	return &S3Storage{
		client:    client,
		bucket:    opts.Bucket,
		publicURL: strings.TrimRight(base, "/"),
		prefix:    opts.Prefix,
		logger:    log,
	}, nil
}

func (s *S3Storage) Upload(ctx context.Context, fileName, contentType string, data []byte) (domain.Image, error) {
	objectKey := objectKeyFor(s.keyPrefix(), fileName, contentType)

	info, err := s.client.PutObject(ctx, s.bucket, objectKey, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: map[string]string{"original-filename": filepath.Base(fileName)},
	})
	if err != nil {
		s.logger.Error("PutObject failed", zap.String("bucket", s.bucket), zap.String("key", objectKey), zap.Error(err))
		return domain.Image{}, fmt.Errorf("failed to upload object %s to bucket %s: %w", objectKey, s.bucket, err)
	}
	s.logger.Debug("Image uploaded", zap.String("key", info.Key), zap.String("etag", info.ETag), zap.Int64("size", info.Size))

	return domain.Image{
		URL:          objectURL(s.publicURL, s.bucket, objectKey),
		DeleteHandle: objectKey,
	}, nil
}

// Delete removes the object. Removing an absent object is not an error.
func (s *S3Storage) Delete(ctx context.Context, handle string) error {
	if prefix := s.keyPrefix(); !strings.HasPrefix(handle, prefix) {
		return fmt.Errorf("refusing to delete object %q outside %s", handle, prefix)
	}
	if err := s.client.RemoveObject(ctx, s.bucket, handle, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove object %s from bucket %s: %w", handle, s.bucket, err)
	}
	return nil
}

func (s *S3Storage) keyPrefix() string {
	if s.prefix == "" {
		return ListingPrefix
	}
	return s.prefix
}

func objectKeyFor(prefix, fileName, contentType string) string {
	ext, ok := domain.AllowedImageTypes[contentType]
	if !ok {
		ext = strings.ToLower(filepath.Ext(fileName))
	}
	return prefix + uuid.NewString() + ext
}

func objectURL(base, bucket, key string) string {
	return fmt.Sprintf("%s/%s/%s", base, bucket, key)
}
