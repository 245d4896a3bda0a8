package objstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"bundlebase.dev/bundlebase/internal/config"
)

// S3Client is the subset of the AWS SDK's S3 client that S3Store depends
// on, narrowed to what it actually calls — the same dependency-injection
// seam the teacher's storage package exposes for testing with a mock.
type S3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Store is a BlobStore backed by an S3-compatible bucket, used for the
// block and manifest backend when a bundle's root URL is an object-store
// location rather than a local path.
type S3Store struct {
	client S3Client
	bucket string
	prefix string
}

// NewS3Store builds an S3Store from explicit config, loading AWS SDK
// credentials and region the same way the teacher's LakeFS/MinIO helpers
// build a client: config.LoadDefaultConfig with static credentials and an
// optional custom endpoint for S3-compatible (non-AWS) services.
func NewS3Store(ctx context.Context, cfg config.ObjectStoreConfig, prefix string) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("objstore: loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return &S3Store{client: client, bucket: cfg.Bucket, prefix: strings.Trim(prefix, "/")}, nil
}

// NewS3StoreWithClient builds an S3Store around an already-constructed
// client, for tests that substitute a mock implementing S3Client.
func NewS3StoreWithClient(client S3Client, bucket, prefix string) *S3Store {
	return &S3Store{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (s *S3Store) fullKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + "/" + key
}

func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fullKey(key)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, &NotFoundError{Key: key}
		}
		return nil, fmt.Errorf("objstore: get %s: %w", key, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

// largeObjectThreshold is the size above which Put routes through the
// multipart uploader instead of a single PutObject call.
const largeObjectThreshold = 8 * 1024 * 1024

func (s *S3Store) Put(ctx context.Context, key string, data []byte) error {
	if len(data) > largeObjectThreshold {
		return s.putMultipart(ctx, key, data)
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fullKey(key)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("objstore: put %s: %w", key, err)
	}
	return nil
}

// putMultipart uploads large blocks (e.g. an attached CSV/Parquet block
// staged through the object store) via the S3 transfer manager instead of
// a single PutObject, so neither side needs the full object in memory at once.
func (s *S3Store) putMultipart(ctx context.Context, key string, data []byte) error {
	uploader := uploaderFor(s.client)
	if uploader == nil {
		_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.fullKey(key)),
			Body:   bytes.NewReader(data),
		})
		if err != nil {
			return fmt.Errorf("objstore: put %s: %w", key, err)
		}
		return nil
	}

	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fullKey(key)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("objstore: multipart put %s: %w", key, err)
	}
	return nil
}

// PutAtomic relies on S3's per-object PUT being atomic at the object
// level: a GetObject issued concurrently with a PutObject either sees the
// old full object or the new full object, never a partial one. No
// temp-then-rename dance is needed, unlike on a local filesystem.
func (s *S3Store) PutAtomic(ctx context.Context, key string, data []byte) error {
	return s.Put(ctx, key, data)
}

func (s *S3Store) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.fullKey(prefix)),
	})
	if err != nil {
		return nil, fmt.Errorf("objstore: list %s: %w", prefix, err)
	}

	basePrefix := s.prefix
	if basePrefix != "" {
		basePrefix += "/"
	}
	result := make([]ObjectInfo, 0, len(out.Contents))
	for _, obj := range out.Contents {
		key := strings.TrimPrefix(aws.ToString(obj.Key), basePrefix)
		result = append(result, ObjectInfo{Key: key, Size: aws.ToInt64(obj.Size)})
	}
	return result, nil
}

func (s *S3Store) Reader(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.fullKey(key)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, &NotFoundError{Key: key}
		}
		return nil, fmt.Errorf("objstore: reader %s: %w", key, err)
	}
	return out.Body, nil
}

func isNotFound(err error) bool {
	return strings.Contains(err.Error(), "NoSuchKey") || strings.Contains(err.Error(), "NotFound")
}

// uploaderFor returns a manager.Uploader for large uploads, used by
// putMultipart. It returns nil when client is not a
// manager.UploadAPIClient.
func uploaderFor(client S3Client) *manager.Uploader {
	if c, ok := client.(manager.UploadAPIClient); ok {
		return manager.NewUploader(c)
	}
	return nil
}

var _ BlobStore = (*S3Store)(nil)
