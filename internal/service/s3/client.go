package s3

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"sharedrive/internal/config"
)

const (
	defaultTimeout = 30 * time.Second
	uploadTimeout  = 10 * time.Minute
)

var ErrObjectNotFound = errors.New("object not found")

// Client mirrors staged uploads into an S3-compatible bucket.
type Client struct {
	client    *s3.Client
	bucket    string
	prefix    string
	publicURL string
}

// NewClient builds the client and checks that the bucket is reachable.
func NewClient(ctx context.Context, conf config.S3Config) (*Client, error) {
	if conf.AccessKeyID == "" || conf.SecretAccessKey == "" || conf.Bucket == "" {
		return nil, fmt.Errorf("missing required configuration: access key, secret key and bucket are required")
	}

	creds := aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
		conf.AccessKeyID,
		conf.SecretAccessKey,
		"",
	))

	opts := s3.Options{
		Region:           conf.Region,
		Credentials:      creds,
		RetryMode:        aws.RetryModeAdaptive,
		RetryMaxAttempts: 3,
		// Most S3-compatible stores reject the newer default checksums.
		RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
	}
	if conf.Endpoint != "" {
		opts.BaseEndpoint = aws.String(conf.Endpoint)
		opts.UsePathStyle = true
	}

	c := &Client{
		client:    s3.New(opts),
		bucket:    conf.Bucket,
		prefix:    strings.Trim(conf.Prefix, "/"),
		publicURL: strings.TrimRight(conf.PublicURL, "/"),
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := c.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(conf.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("unable to access bucket %s: %w", conf.Bucket, err)
	}

	return c, nil
}

// Key places name under the configured prefix.
func (c *Client) Key(name string) string {
	if c.prefix == "" {
		return name
	}
	return path.Join(c.prefix, name)
}

// UploadFile copies the file at localPath to key.
func (c *Client) UploadFile(ctx context.Context, key, localPath, contentType string) error {
	if key == "" || localPath == "" {
		return fmt.Errorf("key and path are required")
	}

	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	input := &s3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
		Body:   f,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := c.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("failed to upload file to S3: %w", err)
	}
	return nil
}

func (c *Client) DeleteObject(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return fmt.Errorf("failed to delete object from S3: %w", err)
	}
	return nil
}

// URL is the public address of key. Without a configured public URL the
// virtual-hosted bucket address is assumed.
func (c *Client) URL(key string) string {
	escaped := (&url.URL{Path: key}).EscapedPath()
	if c.publicURL != "" {
		return c.publicURL + "/" + escaped
	}
	return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", c.bucket, escaped)
}

// KeyFromURL reverses URL. ok is false for addresses outside this bucket.
func (c *Client) KeyFromURL(raw string) (key string, ok bool) {
	base := c.URL("")
	if !strings.HasPrefix(raw, base) {
		return "", false
	}
	key, err := url.PathUnescape(strings.TrimPrefix(raw, base))
	if err != nil || key == "" {
		return "", false
	}
	return key, true
}
