// Package objectstore implements gateway.Storage on any S3 compatible
// service through minio-go.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/jrsteele09/go-content-admin/gateway"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog/log"
)

var _ gateway.Storage = (*Store)(nil)

// Options configure a Store
type Options struct {
	Endpoint  string // host[:port] of the S3 API
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
	PublicURL string // Base URL objects are publicly served from. Defaults to the endpoint.
}

type Store struct {
	client    *minio.Client
	publicURL string
	region    string
}

func New(opts Options) (*Store, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio.New: %w", err)
	}
	return &Store{
		client:    client,
		publicURL: publicBase(opts),
		region:    opts.Region,
	}, nil
}

func publicBase(opts Options) string {
	if opts.PublicURL != "" {
		return strings.TrimSuffix(opts.PublicURL, "/")
	}
	scheme := "http"
	if opts.UseSSL {
		scheme = "https"
	}
	return scheme + "://" + opts.Endpoint
}

func (s *Store) Upload(ctx context.Context, bucket, path string, body io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, bucket, path, body, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return translateError(err)
	}
	return nil
}

// PublicURL returns the anonymous-read URL of bucket/path
func (s *Store) PublicURL(bucket, path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.publicURL + "/" + url.PathEscape(bucket) + "/" + strings.Join(segments, "/")
}

func (s *Store) Remove(ctx context.Context, bucket, path string) error {
	if err := s.client.RemoveObject(ctx, bucket, path, minio.RemoveObjectOptions{}); err != nil {
		return translateError(err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.ListBuckets(ctx)
	return err
}

// EnsureBuckets creates missing buckets and makes their objects publicly readable.
func (s *Store) EnsureBuckets(ctx context.Context, buckets ...string) error {
	for _, bucket := range buckets {
		exists, err := s.client.BucketExists(ctx, bucket)
		if err != nil {
			return fmt.Errorf("BucketExists %s: %w", bucket, err)
		}
		if !exists {
			if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
				return fmt.Errorf("MakeBucket %s: %w", bucket, err)
			}
			log.Info().Str("bucket", bucket).Msg("created storage bucket")
		}
		if err := s.client.SetBucketPolicy(ctx, bucket, PublicReadPolicy(bucket)); err != nil {
			return fmt.Errorf("SetBucketPolicy %s: %w", bucket, err)
		}
	}
	return nil
}

// PublicReadPolicy is the bucket policy granting anonymous GetObject
func PublicReadPolicy(bucket string) string {
	return fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/*"]}]}`, bucket)
}

func translateError(err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("%w: %s", gateway.ErrObjectNotFound, err.Error())
	}
	return err
}
