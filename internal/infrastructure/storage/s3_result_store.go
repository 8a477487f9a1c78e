package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"

	"vesteja/internal/domain/entities"
	"vesteja/internal/domain/valueobjects"
)

// ResultFilename is the download name offered for archived results.
const ResultFilename = "VesteJa-Resultado.png"

type putObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type presignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

type S3Options struct {
	Bucket string
	Prefix string
	Region string
	// Expiry is how long presigned download links stay valid.
	Expiry time.Duration
}

// S3ResultStore archives try-on results in S3 and hands out presigned
// download links.
type S3ResultStore struct {
	client    putObjectAPI
	presigner presignAPI
	opts      S3Options
	now       func() time.Time
}

func NewS3ResultStore(ctx context.Context, opts S3Options) (*S3ResultStore, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	return newS3ResultStore(client, s3.NewPresignClient(client), opts), nil
}

func newS3ResultStore(client putObjectAPI, presigner presignAPI, opts S3Options) *S3ResultStore {
	if opts.Expiry <= 0 {
		opts.Expiry = 24 * time.Hour
	}
	return &S3ResultStore{
		client:    client,
		presigner: presigner,
		opts:      opts,
		now:       time.Now,
	}
}

func (s *S3ResultStore) Archive(ctx context.Context, sessionID entities.SessionID, img *valueobjects.ImageData) (string, error) {
	if img == nil {
		return "", fmt.Errorf("nothing to archive")
	}

	key := path.Join(s.opts.Prefix, string(sessionID), fmt.Sprintf("%d.%s", s.now().UnixMilli(), img.Format()))
	contentType := img.MimeType()

	start := time.Now()
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &s.opts.Bucket,
		Key:         &key,
		Body:        bytes.NewReader(img.Data()),
		ContentType: &contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	presigned, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket:                     &s.opts.Bucket,
		Key:                        &key,
		ResponseContentDisposition: aws.String(fmt.Sprintf(`attachment; filename="%s"`, ResultFilename)),
	}, s3.WithPresignExpires(s.opts.Expiry))
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", key, err)
	}

	log.Info().
		Str("bucket", s.opts.Bucket).
		Str("key", key).
		Int("bytes", len(img.Data())).
		Dur("duration", time.Since(start)).
		Msg("Result archived")

	return presigned.URL, nil
}
