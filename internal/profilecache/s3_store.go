package profilecache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// s3API is the subset of the S3 client used by S3Store.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

const defaultS3Key = "profile-cache.json"

// S3Store keeps the cache as one JSON object at a fixed bucket/key.
type S3Store struct {
	client s3API
	bucket string
	key    string
}

var _ Store = (*S3Store)(nil)

// NewS3Store creates an S3-backed store.
func NewS3Store(client s3API, bucket, key string) *S3Store {
	if client == nil {
		panic("profilecache: s3 client cannot be nil")
	}
	if bucket == "" {
		panic("profilecache: s3 bucket cannot be empty")
	}
	if key == "" {
		key = defaultS3Key
	}
	return &S3Store{client: client, bucket: bucket, key: key}
}

func (s *S3Store) Load(ctx context.Context) (map[string]Entry, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return map[string]Entry{}, nil
		}
		return nil, &PersistenceError{Op: "load", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &PersistenceError{Op: "load", Err: err}
	}

	var entries map[string]Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, &PersistenceError{Op: "load", Err: err}
	}
	if entries == nil {
		entries = map[string]Entry{}
	}
	return entries, nil
}

func (s *S3Store) Save(ctx context.Context, entries map[string]Entry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return &PersistenceError{Op: "save", Err: err}
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return &PersistenceError{Op: "save", Err: err}
	}
	return nil
}

// isNoSuchKey matches the absent-object error. The string fallback
// covers SDK paths where the typed error does not unwrap cleanly.
func isNoSuchKey(err error) bool {
	var nsk *s3types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	return strings.Contains(err.Error(), "NoSuchKey") || strings.Contains(err.Error(), "NotFound")
}
