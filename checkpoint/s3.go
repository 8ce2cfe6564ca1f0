package checkpoint

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Store keeps one snapshot object per session under a key prefix.
type S3Store struct {
	bucket string
	prefix string
	s3     *s3.Client
}

func NewS3Store(s3Client *s3.Client, bucket, prefix string) *S3Store {
	return &S3Store{
		bucket: bucket,
		prefix: prefix,
		s3:     s3Client,
	}
}

func (s *S3Store) key(sessionID string) string {
	return path.Join(s.prefix, sessionID+".json")
}

func (s *S3Store) Load(ctx context.Context, sessionID string) ([]byte, error) {
	resp, err := s.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(sessionID)),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get session snapshot from S3: %w", err)
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func (s *S3Store) Save(ctx context.Context, sessionID string, snapshot []byte) error {
	_, err := s.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(sessionID)),
		Body:   bytes.NewReader(snapshot),
	})
	if err != nil {
		return fmt.Errorf("failed to put session snapshot to S3: %w", err)
	}
	return nil
}
