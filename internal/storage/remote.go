package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// RemoteConfig holds connection parameters for an S3-compatible bucket.
// Endpoint defaults to the Cloudflare R2 endpoint derived from AccountID.
type RemoteConfig struct {
	AccountID     string
	AccessKeyID   string
	SecretKey     string
	Bucket        string
	PublicBaseURL string
	Endpoint      string
}

// s3API is the slice of the S3 client used by RemoteStore. Tests inject a
// double; production wires *s3.Client.
type s3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, opts ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// RemoteStore persists objects in an S3-compatible bucket.
type RemoteStore struct {
	client        s3API
	bucket        string
	publicBaseURL string
}

// NewRemoteStore builds a RemoteStore with a real S3 client targeting the
// configured endpoint.
func NewRemoteStore(ctx context.Context, cfg RemoteConfig) (*RemoteStore, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage: bucket is required")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		if cfg.AccountID == "" {
			return nil, errors.New("storage: account id or endpoint is required")
		}
		endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})

	return newRemoteStore(client, cfg.Bucket, cfg.PublicBaseURL), nil
}

func newRemoteStore(client s3API, bucket, publicBaseURL string) *RemoteStore {
	return &RemoteStore{
		client:        client,
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

func (s *RemoteStore) Kind() BackendKind { return BackendRemote }

// Put uploads the source under key. The object store's PUT is atomic, so no
// partial object becomes visible on failure.
func (s *RemoteStore) Put(ctx context.Context, key string, src Source, contentType string, meta map[string]string) (Object, error) {
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return Object{}, &WriteError{Backend: BackendRemote, Key: key, Err: err}
	}
	data, err := src.Bytes()
	if err != nil {
		return Object{}, &WriteError{Backend: BackendRemote, Key: cleanKey, Err: err}
	}

	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(cleanKey),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if len(meta) > 0 {
		in.Metadata = meta
	}
	if _, err := s.client.PutObject(ctx, in); err != nil {
		return Object{}, &WriteError{Backend: BackendRemote, Key: cleanKey, Err: err}
	}

	return Object{
		Key:         cleanKey,
		URL:         s.PublicURL(cleanKey),
		Size:        int64(len(data)),
		ContentType: contentType,
		Backend:     BackendRemote,
	}, nil
}

func (s *RemoteStore) Get(ctx context.Context, key string) ([]byte, error) {
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return nil, &ReadError{Backend: BackendRemote, Key: key, Err: err}
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(cleanKey),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, ErrNotFound
		}
		return nil, &ReadError{Backend: BackendRemote, Key: cleanKey, Err: err}
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, &ReadError{Backend: BackendRemote, Key: cleanKey, Err: err}
	}
	return data, nil
}

func (s *RemoteStore) Exists(ctx context.Context, key string) (bool, error) {
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return false, err
	}
	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(cleanKey),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Delete removes the object. S3 DeleteObject already succeeds for a missing
// key, so idempotence comes for free.
func (s *RemoteStore) Delete(ctx context.Context, key string) error {
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return err
	}
	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(cleanKey),
	})
	return err
}

// PublicURL joins the configured public base with the key.
func (s *RemoteStore) PublicURL(key string) string {
	cleanKey, err := sanitizeKey(key)
	if err != nil {
		return ""
	}
	if s.publicBaseURL == "" {
		return cleanKey
	}
	return s.publicBaseURL + "/" + cleanKey
}
