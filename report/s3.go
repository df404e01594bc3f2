package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config holds configuration for archiving run reports to S3.
type S3Config struct {
	// Bucket is the S3 bucket name (required).
	Bucket string
	// Prefix is the key prefix within the bucket (optional).
	Prefix string
	// Region is the AWS region (optional, uses default chain if empty).
	Region string
	// Endpoint is a custom S3 endpoint URL for S3-compatible providers
	// (e.g. Cloudflare R2, MinIO). Empty uses the default AWS endpoint.
	Endpoint string
	// UsePathStyle forces path-style addressing (bucket in path, not
	// subdomain). Required by most S3-compatible providers.
	UsePathStyle bool
}

// Validate checks that required S3 configuration is present.
func (c *S3Config) Validate() error {
	if c.Bucket == "" {
		return errors.New("S3 bucket is required")
	}
	return nil
}

// s3PutObjectAPI is the slice of the S3 client the archiver uses.
// Satisfied by *s3.Client; tests substitute a recording fake.
type s3PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archiver uploads run reports to S3-compatible storage, keyed by run id.
type Archiver struct {
	client s3PutObjectAPI
	cfg    S3Config
}

// NewArchiver creates an Archiver using the AWS SDK default credential
// chain (env vars, shared config, IAM role).
func NewArchiver(ctx context.Context, cfg S3Config) (*Archiver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return &Archiver{client: s3.NewFromConfig(awsCfg, s3Opts...), cfg: cfg}, nil
}

// Archive uploads the report JSON under <prefix>/<run_id>.json and
// returns the object key.
func (a *Archiver) Archive(ctx context.Context, report *RunReport) (string, error) {
	data, err := marshalReport(report)
	if err != nil {
		return "", err
	}

	key := report.RunID + ".json"
	if a.cfg.Prefix != "" {
		key = strings.TrimRight(a.cfg.Prefix, "/") + "/" + key
	}

	contentType := "application/json"
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &a.cfg.Bucket,
		Key:         &key,
		Body:        bytes.NewReader(data),
		ContentType: &contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to archive report to s3://%s/%s: %w", a.cfg.Bucket, key, err)
	}
	return key, nil
}
