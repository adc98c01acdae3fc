package export

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"tenantsim/internal/config"
)

// Archiver uploads gzip-compressed copies of the generated CSV tables
// to S3 so fixture sets can be shared between environments.
type Archiver struct {
	client *s3.Client
	cfg    config.ArchiveConfig
	logger *slog.Logger
}

// NewArchiver builds an S3 client from the archive config. Static
// credentials and custom endpoints cover S3-compatible stores.
func NewArchiver(ctx context.Context, cfg config.ArchiveConfig, logger *slog.Logger) (*Archiver, error) {
	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.Region))

	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		creds := credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")
		opts = append(opts, awsconfig.WithCredentialsProvider(creds))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, &SinkError{Op: "NewArchiver", Err: fmt.Errorf("%w: %v", ErrConnectionFailed, err)}
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	logger.Info("s3 archiver initialized",
		"bucket", cfg.Bucket,
		"region", cfg.Region,
	)

	return &Archiver{
		client: s3.NewFromConfig(awsCfg, s3Opts...),
		cfg:    cfg,
		logger: logger,
	}, nil
}

// ArchiveFiles gzips and uploads each written CSV under
// <prefix><date>/<runID>/<name>.gz, returning the object keys.
func (a *Archiver) ArchiveFiles(ctx context.Context, runID uuid.UUID, files map[string]string) ([]string, error) {
	datePrefix := time.Now().UTC().Format("2006-01-02")

	keys := make([]string, 0, len(files))
	for stream, filePath := range files {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, &SinkError{Op: "ArchiveFiles", Stream: stream, Err: err}
		}

		key := path.Join(a.cfg.Prefix, datePrefix, runID.String(), path.Base(filePath)+".gz")
		if err := a.upload(ctx, stream, key, data); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}

	return keys, nil
}

func (a *Archiver) upload(ctx context.Context, stream, key string, data []byte) error {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(data); err != nil {
		return &SinkError{Op: "upload", Stream: stream, Err: err}
	}
	if err := gz.Close(); err != nil {
		return &SinkError{Op: "upload", Stream: stream, Err: err}
	}

	checksum := sha256.Sum256(data)

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:          aws.String(a.cfg.Bucket),
		Key:             aws.String(key),
		Body:            bytes.NewReader(buf.Bytes()),
		ContentType:     aws.String("application/gzip"),
		ContentEncoding: aws.String("gzip"),
		Metadata: map[string]string{
			"stream":          stream,
			"sha256-original": hex.EncodeToString(checksum[:]),
		},
	})
	if err != nil {
		return &SinkError{Op: "upload", Stream: stream, Err: fmt.Errorf("%w: %v", ErrWriteFailed, err)}
	}

	a.logger.Debug("archived object",
		"key", key,
		"compressed_bytes", buf.Len(),
		"original_bytes", len(data),
	)
	return nil
}
