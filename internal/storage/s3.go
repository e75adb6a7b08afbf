package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

var ErrNotConfigured = errors.New("armazenamento S3 não configurado")

type Config struct {
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

var (
	s3Client  *s3.Client
	presigner *s3.PresignClient
	s3Bucket  string
)

func InitS3(ctx context.Context, c Config) error {
	if c.Bucket == "" || c.Region == "" {
		return ErrNotConfigured
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(c.Region)}
	if c.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.AccessKeyID,
			c.SecretAccessKey,
			"",
		)))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return fmt.Errorf("carregando config AWS: %w", err)
	}

	s3Client = s3.NewFromConfig(cfg)
	presigner = s3.NewPresignClient(s3Client)
	s3Bucket = c.Bucket
	return nil
}

func Enabled() bool {
	return s3Client != nil
}

// UploadExport grava um relatório gerado pelo back office
func UploadExport(ctx context.Context, key string, body io.Reader, contentType string) error {
	if s3Client == nil {
		return ErrNotConfigured
	}
	_, err := s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:             aws.String(s3Bucket),
		Key:                aws.String(key),
		Body:               body,
		ContentType:        aws.String(contentType),
		ContentDisposition: aws.String("attachment"),
	})
	if err != nil {
		return fmt.Errorf("upload falhou: %w", err)
	}
	return nil
}

// PresignGet devolve uma URL temporária de download
func PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if presigner == nil {
		return "", ErrNotConfigured
	}
	req, err := presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s3Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("presign falhou: %w", err)
	}
	return req.URL, nil
}
