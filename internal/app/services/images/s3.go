package images

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/marcelomcerri-bot/feridas/internal/app/domain/wound"
	"github.com/marcelomcerri-bot/feridas/internal/config"
	"github.com/marcelomcerri-bot/feridas/pkg/logger"
)

// ObjectAPI is the subset of the S3 client used by S3.
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3 uploads decoded images to a bucket and references them by URL.
type S3 struct {
	api        ObjectAPI
	bucket     string
	prefix     string
	publicBase string
	log        *logger.Logger
}

var _ Store = (*S3)(nil)

// NewS3 builds an S3 store from cfg and checks that the bucket is
// reachable. A custom endpoint switches to path-style addressing.
func NewS3(ctx context.Context, cfg config.ImageConfig, log *logger.Logger) (*S3, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("S3_BUCKET not set")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	store := NewS3WithAPI(client, cfg, log)
	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
		return nil, fmt.Errorf("bucket %s unavailable: %w", cfg.Bucket, err)
	}
	return store, nil
}

// NewS3WithAPI wraps an existing client.
func NewS3WithAPI(api ObjectAPI, cfg config.ImageConfig, log *logger.Logger) *S3 {
	if log == nil {
		log = logger.NewDefault("images")
	}
	return &S3{
		api:        api,
		bucket:     cfg.Bucket,
		prefix:     strings.Trim(cfg.Prefix, "/"),
		publicBase: strings.TrimRight(cfg.PublicBaseURL, "/"),
		log:        log,
	}
}

// Name implements Store.
func (s *S3) Name() string { return "s3" }

// Put decodes image and uploads it under <prefix>/<uuid>.<ext>.
func (s *S3) Put(ctx context.Context, image string) (string, error) {
	img := wound.ParseImage(image)
	body, err := decodeBase64(img.Data)
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	key := path.Join(s.prefix, uuid.NewString()+"."+img.Extension())
	_, err = s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(img.ContentType()),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		s.log.WithError(err).WithField("key", key).Error("failed to upload image")
		return "", fmt.Errorf("upload image: %w", err)
	}
	s.log.WithField("key", key).WithField("size", len(body)).Info("image uploaded")

	if s.publicBase != "" {
		return s.publicBase + "/" + key, nil
	}
	return "s3://" + s.bucket + "/" + key, nil
}

// Delete removes the object a Put reference points at. References that do
// not belong to this bucket are rejected.
func (s *S3) Delete(ctx context.Context, ref string) error {
	key, ok := s.keyOf(ref)
	if !ok {
		return fmt.Errorf("reference %q is not an object of bucket %s", ref, s.bucket)
	}
	if _, err := s.api.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("delete image %s: %w", key, err)
	}
	s.log.WithField("key", key).Info("image deleted")
	return nil
}

func (s *S3) keyOf(ref string) (string, bool) {
	var key string
	var ok bool
	if s.publicBase != "" {
		key, ok = strings.CutPrefix(ref, s.publicBase+"/")
	} else {
		key, ok = strings.CutPrefix(ref, "s3://"+s.bucket+"/")
	}
	return key, ok && key != ""
}

func decodeBase64(data string) ([]byte, error) {
	data = strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, data)
	if data == "" {
		return nil, errors.New("empty image payload")
	}
	if out, err := base64.StdEncoding.DecodeString(data); err == nil {
		return out, nil
	}
	return base64.RawStdEncoding.DecodeString(strings.TrimRight(data, "="))
}
