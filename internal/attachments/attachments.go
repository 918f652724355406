// Package attachments stores files attached to maintenance work in S3.
package attachments

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	log "github.com/sirupsen/logrus"
	"github.com/ukydev/maintenance-hub/internal/config"
)

// MaxSize is the largest attachment accepted, in bytes.
const MaxSize = 10 << 20

// URLExpiry is how long a download link stays valid.
const URLExpiry = time.Hour

var ErrEmptyFile = errors.New("attachment is empty")

// Store keeps attachment blobs and hands out download links.
type Store interface {
	Put(ctx context.Context, requestNumber, filename, contentType string, body io.Reader, size int64) (string, error)
	URL(ctx context.Context, key string) (string, error)
}

type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Store implements Store on an S3 compatible bucket.
type S3Store struct {
	objects objectAPI
	presign func(ctx context.Context, key string) (string, error)
	bucket  string
	now     func() time.Time
}

// NewS3Store builds a client from cfg. A custom endpoint switches to
// path-style addressing for MinIO and similar servers.
func NewS3Store(ctx context.Context, cfg config.S3Config) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	presigner := s3.NewPresignClient(client)

	store := newS3Store(client, cfg.Bucket)
	store.presign = func(ctx context.Context, key string) (string, error) {
		req, err := presigner.PresignGetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(cfg.Bucket),
			Key:    aws.String(key),
		}, s3.WithPresignExpires(URLExpiry))
		if err != nil {
			return "", err
		}
		return req.URL, nil
	}
	return store, nil
}

func newS3Store(objects objectAPI, bucket string) *S3Store {
	return &S3Store{
		objects: objects,
		bucket:  bucket,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Put uploads body under a key scoped to the request and returns the key.
func (s *S3Store) Put(ctx context.Context, requestNumber, filename, contentType string, body io.Reader, size int64) (string, error) {
	if size == 0 {
		return "", ErrEmptyFile
	}
	if size > MaxSize {
		return "", fmt.Errorf("attachment exceeds %d bytes", MaxSize)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	key := Key(requestNumber, filename, s.now())
	_, err := s.objects.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	log.WithFields(log.Fields{"key": key, "size": size}).Info("Attachment stored")
	return key, nil
}

// URL returns a time-limited download link for key.
func (s *S3Store) URL(ctx context.Context, key string) (string, error) {
	if s.presign == nil {
		return "", errors.New("presigning is not configured")
	}
	url, err := s.presign(ctx, key)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return url, nil
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Key builds the object key requests/<number>/<unix>_<sanitized name>.
func Key(requestNumber, filename string, at time.Time) string {
	name := unsafeChars.ReplaceAllString(filepath.Base(strings.ReplaceAll(filename, "\\", "/")), "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "file"
	}
	return path.Join("requests", requestNumber, fmt.Sprintf("%d_%s", at.Unix(), name))
}

// BelongsTo reports whether key was issued for the request.
func BelongsTo(key, requestNumber string) bool {
	prefix := path.Join("requests", requestNumber) + "/"
	return requestNumber != "" && strings.HasPrefix(key, prefix) && path.Clean(key) == key
}
