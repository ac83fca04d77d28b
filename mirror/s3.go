// Package mirror copies published podcasts to an S3 bucket.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/sirupsen/logrus"

	"playlist2podcast/registry"
)

// FeedContentType is the content type of the uploaded feed document.
const FeedContentType = "application/rss+xml"

// Config contains minimal configuration for creating an S3 client.
// Empty values fall back to the standard AWS config/credential chain.
type Config struct {
	Bucket string
	// Prefix is prepended to every key, e.g. "podcasts/".
	Prefix string
	// Region to use for requests, e.g. "us-east-1".
	Region string
	// Profile selects a named shared config/credentials profile.
	Profile string
	// UsePathStyle forces path-style addressing (useful for some S3-compatible providers).
	UsePathStyle bool
}

// objectAPI is the part of the S3 client used by the mirror.
type objectAPI interface {
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 uploads podcast directories to a bucket.
type S3 struct {
	client objectAPI
	bucket string
	prefix string
	log    logrus.FieldLogger
}

// Result summarizes one Publish call.
type Result struct {
	Uploaded int
	Existing int
}

// NewS3 creates a mirror using the default AWS configuration chain,
// with optional overrides from cfg.
func NewS3(ctx context.Context, cfg Config, log logrus.FieldLogger) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("mirror: bucket is required")
	}

	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, config.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("mirror: load aws config: %w", err)
	}

	c := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})
	return newS3(c, cfg, log), nil
}

func newS3(client objectAPI, cfg Config, log logrus.FieldLogger) *S3 {
	return &S3{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		log:    log.WithField("component", "mirror"),
	}
}

// Key returns the object key of a file in a podcast directory.
func (s *S3) Key(slug, name string) string {
	return s.prefix + slug + "/" + name
}

// Publish uploads the media files of a podcast that are not in the bucket
// yet, then uploads the feed document unconditionally.
func (s *S3) Publish(ctx context.Context, slug, dir string, media []string, mediaType string) (*Result, error) {
	res := &Result{}
	for _, name := range media {
		key := s.Key(slug, name)
		exists, err := s.exists(ctx, key)
		if err != nil {
			return res, fmt.Errorf("mirror: head %s: %w", key, err)
		}
		if exists {
			res.Existing++
			continue
		}
		if err := s.put(ctx, key, filepath.Join(dir, name), mediaType, ""); err != nil {
			return res, err
		}
		s.log.WithField("key", key).Debug("uploaded media")
		res.Uploaded++
	}

	key := s.Key(slug, registry.FeedFile)
	if err := s.put(ctx, key, filepath.Join(dir, registry.FeedFile), FeedContentType, "no-cache"); err != nil {
		return res, err
	}
	res.Uploaded++

	s.log.WithFields(logrus.Fields{
		"podcast":  slug,
		"uploaded": res.Uploaded,
		"existing": res.Existing,
	}).Info("mirrored podcast")
	return res, nil
}

func (s *S3) put(ctx context.Context, key, path, contentType, cacheControl string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("mirror: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return fmt.Errorf("mirror: %w", err)
	}

	in := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(fi.Size()),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if cacheControl != "" {
		in.CacheControl = aws.String(cacheControl)
	}

	if _, err := s.client.PutObject(ctx, in); err != nil {
		return fmt.Errorf("mirror: put %s: %w", key, err)
	}
	return nil
}

// exists returns true if the object exists; false on 404/NotFound.
func (s *S3) exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

func isNotFound(err error) bool {
	var nf *s3types.NotFound
	if errors.As(err, &nf) {
		return true
	}

	var respErr *http.ResponseError
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == 404 {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NotFound" {
		return true
	}
	return false
}
