package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	log "github.com/sirupsen/logrus"
)

// MinIOConfig holds the connection settings for an S3 compatible bucket.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinIOSink uploads QR images to a bucket using the same object names as
// DirSink.
type MinIOSink struct {
	client *minio.Client
	bucket string
}

// NewMinIOSink connects and creates the bucket if it does not exist.
func NewMinIOSink(ctx context.Context, cfg MinIOConfig) (*MinIOSink, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("minio endpoint and bucket are required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
		log.WithField("bucket", cfg.Bucket).Info("Bucket created")
	}
	return &MinIOSink{client: client, bucket: cfg.Bucket}, nil
}

func (s *MinIOSink) SaveQR(ctx context.Context, vehicleNumber string, png []byte) (string, error) {
	name := FileName(vehicleNumber)
	_, err := s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(png), int64(len(png)), minio.PutObjectOptions{
		ContentType: "image/png",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload qr image: %w", err)
	}
	loc := fmt.Sprintf("s3://%s/%s", s.bucket, name)
	log.WithFields(log.Fields{"vehicle_number": vehicleNumber, "object": loc}).Info("QR image uploaded")
	return loc, nil
}
