// Package s3 adapts an S3-compatible bucket (AWS, MinIO, Wasabi) to adapter.ObjectStore.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/rs/zerolog"

	"svmedia/internal/config"
	"svmedia/internal/domain/model"
	"svmedia/internal/domain/ports/adapter"
	"svmedia/internal/infra/metrics"
)

var _ adapter.ObjectStore = (*Store)(nil)

type Store struct {
	api     ObjectAPI
	presign PresignAPI
	bucket  string
	log     *zerolog.Logger
}

// New builds the SDK client from cfg. A custom endpoint switches to path-style
// addressing so MinIO-like servers work without DNS buckets.
func New(ctx context.Context, cfg config.S3Config, logger *zerolog.Logger) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3: bucket is required")
	}
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3: load aws config: %w", err)
	}

	clientOpts := []func(*s3.Options){}
	if cfg.Endpoint != "" {
		base := endpointURL(cfg.Endpoint, cfg.UseSSL)
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(base)
			o.UsePathStyle = true
		})
	} else if cfg.UsePathStyle {
		clientOpts = append(clientOpts, func(o *s3.Options) { o.UsePathStyle = true })
	}

	client := s3.NewFromConfig(awsCfg, clientOpts...)
	return NewWithAPI(client, s3.NewPresignClient(client), cfg.Bucket, logger), nil
}

// NewWithAPI wires an already constructed client; tests pass fakes here.
func NewWithAPI(api ObjectAPI, presign PresignAPI, bucket string, logger *zerolog.Logger) *Store {
	l := logger.With().Str("component", "s3").Str("bucket", bucket).Logger()
	return &Store{api: api, presign: presign, bucket: bucket, log: &l}
}

// endpointURL keeps an endpoint that carries its own scheme as is; bare hosts
// get http or https from useSSL.
func endpointURL(endpoint string, useSSL bool) string {
	if u, err := url.Parse(endpoint); err == nil && u.Scheme != "" && u.Host != "" {
		return strings.TrimSuffix(u.String(), "/")
	}
	scheme := "http"
	if useSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s", scheme, strings.TrimSuffix(endpoint, "/"))
}

// List pages through every object under prefix. Folder placeholders and the
// prefix key itself are dropped; the remaining order is the store's.
func (s *Store) List(ctx context.Context, prefix string) ([]model.RemoteObject, error) {
	p := s3.NewListObjectsV2Paginator(s.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	var out []model.RemoteObject
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3: list %q: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			o := model.RemoteObject{Key: aws.ToString(obj.Key), Size: aws.ToInt64(obj.Size)}
			if obj.LastModified != nil {
				o.LastModified = *obj.LastModified
			}
			if o.IsDirMarker() || o.Key == prefix {
				continue
			}
			out = append(out, o)
		}
	}
	s.log.Debug().Str("prefix", prefix).Int("objects", len(out)).Msg("listed prefix")
	return out, nil
}

func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	start := time.Now()
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	metrics.ObserveObjectFetch(time.Since(start), err == nil)
	if err != nil {
		return nil, fmt.Errorf("s3: get %q: %w", key, err)
	}
	return out.Body, nil
}

func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.api.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("s3: head %q: %w", key, err)
}

func (s *Store) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("s3: presign %q: %w", key, err)
	}
	return req.URL, nil
}

// isNotFound covers both the typed errors and HeadObject's bare 404, which
// carries no body and surfaces only as an API error code.
func isNotFound(err error) bool {
	var nf *types.NotFound
	var nsk *types.NoSuchKey
	if errors.As(err, &nf) || errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch strings.ToLower(apiErr.ErrorCode()) {
		case "notfound", "nosuchkey", "404":
			return true
		}
	}
	return false
}
