package services

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/equiplookup/internal/logging"
	sc "github.com/dmitrijs2005/equiplookup/internal/server/config"
)

const s3Scheme = "s3://"

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// ImageResolver turns stored image references into URLs a client can fetch.
type ImageResolver interface {
	Resolve(ctx context.Context, ref string) string
}

// ImagePresigner resolves s3://bucket/key references into presigned GET
// URLs. Any other reference, and every reference while S3 is not
// configured, is returned unchanged.
type ImagePresigner struct {
	config *sc.Config
	logger logging.Logger

	mu     sync.Mutex
	client *s3.PresignClient
}

func NewImagePresigner(cfg *sc.Config, logger logging.Logger) *ImagePresigner {
	return &ImagePresigner{config: cfg, logger: logger.With("module", "images")}
}

func (p *ImagePresigner) enabled() bool {
	return p.config.S3BaseEndpoint != ""
}

func (p *ImagePresigner) presignClient(ctx context.Context) (*s3.PresignClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		return p.client, nil
	}

	cfg, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(p.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			p.config.S3RootUser,
			p.config.S3RootPassword,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(p.config.S3BaseEndpoint)
		o.UsePathStyle = true
	})

	p.client = newS3PresignClient(client)
	return p.client, nil
}

// Resolve never fails: on any presign error the stored reference is
// returned and the error is logged.
func (p *ImagePresigner) Resolve(ctx context.Context, ref string) string {
	if !p.enabled() {
		return ref
	}
	bucket, key, ok := parseS3Ref(ref, p.config.S3Bucket)
	if !ok {
		return ref
	}

	pc, err := p.presignClient(ctx)
	if err != nil {
		p.logger.Warn(ctx, "s3 client init failed", "error", err)
		return ref
	}

	validity := p.config.S3PresignValidity
	if validity <= 0 {
		validity = 15 * time.Minute
	}

	req, err := presignGetObject(pc, ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(validity))
	if err != nil {
		p.logger.Warn(ctx, "presign failed", "ref", ref, "error", err)
		return ref
	}
	return req.URL
}

// parseS3Ref splits "s3://bucket/key". "s3:///key" uses defaultBucket.
func parseS3Ref(ref, defaultBucket string) (bucket, key string, ok bool) {
	if !strings.HasPrefix(ref, s3Scheme) {
		return "", "", false
	}
	rest := strings.TrimPrefix(ref, s3Scheme)
	bucket, key, found := strings.Cut(rest, "/")
	if !found || key == "" {
		return "", "", false
	}
	if bucket == "" {
		bucket = defaultBucket
	}
	if bucket == "" {
		return "", "", false
	}
	return bucket, key, true
}
