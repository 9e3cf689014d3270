package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Store maps each logical bucket to "<prefix>-<bucket>" in S3.
type S3Store struct {
	client       *s3.Client
	bucketPrefix string
}

var _ BlobStore = (*S3Store)(nil)

func NewS3Store(ctx context.Context, region, bucketPrefix string) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return &S3Store{
		client:       s3.NewFromConfig(awsCfg),
		bucketPrefix: bucketPrefix,
	}, nil
}

func (s *S3Store) bucketName(bucket string) string {
	return s.bucketPrefix + "-" + bucket
}

func (s *S3Store) Put(ctx context.Context, bucket, path string, data []byte) error {
	exists, err := s.Exists(ctx, bucket, path)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucketName(bucket)),
		Key:    aws.String(path),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return fmt.Errorf("failed to put object %s/%s: %w", bucket, path, err)
	}

	return nil
}

func (s *S3Store) Get(ctx context.Context, bucket, path string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName(bucket)),
		Key:    aws.String(path),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object %s/%s: %w", bucket, path, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}

	return data, nil
}

func (s *S3Store) Delete(ctx context.Context, bucket, path string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucketName(bucket)),
		Key:    aws.String(path),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s/%s: %w", bucket, path, err)
	}

	return nil
}

func (s *S3Store) Exists(ctx context.Context, bucket, path string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucketName(bucket)),
		Key:    aws.String(path),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to head object %s/%s: %w", bucket, path, err)
	}

	return true, nil
}
