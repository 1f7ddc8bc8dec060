package sink

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	log "github.com/sirupsen/logrus"

	"github.com/modalyze/modalyze/internal/config"
	"github.com/modalyze/modalyze/internal/output"
)

const defaultObjectPrefix = "modalyze"

// now is swapped in tests to pin the timestamp in object keys.
var now = time.Now

// ObjectSink uploads the rendered result document to an S3-compatible
// bucket, one object per run.
type ObjectSink struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewObjectSink builds the object-store client and makes sure the target
// bucket exists.
func NewObjectSink(ctx context.Context, cfg config.ObjectSinkConfig) (*ObjectSink, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	bucket := strings.TrimSpace(cfg.Bucket)
	accessKey := strings.TrimSpace(cfg.AccessKey)
	secretKey := strings.TrimSpace(cfg.SecretKey)

	if endpoint == "" {
		return nil, fmt.Errorf("object sink: endpoint is required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("object sink: bucket is required")
	}
	if accessKey == "" || secretKey == "" {
		return nil, fmt.Errorf("object sink: access key and secret key are required")
	}

	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix == "" {
		prefix = defaultObjectPrefix
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure:       cfg.Secure,
		Region:       cfg.Region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("object sink: create client: %w", err)
	}

	s := &ObjectSink{client: client, bucket: bucket, prefix: prefix}
	if err = s.ensureBucket(ctx, cfg.Region); err != nil {
		return nil, err
	}
	return s, nil
}

// Close is a no-op; the object-store client holds no persistent connection.
func (s *ObjectSink) Close() error {
	return nil
}

func (s *ObjectSink) ensureBucket(ctx context.Context, region string) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("object sink: check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("object sink: create bucket: %w", err)
	}
	return nil
}

// Deliver uploads the formatted document under a timestamped key.
func (s *ObjectSink) Deliver(ctx context.Context, run Run) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("object sink: not initialized")
	}
	key := s.objectKey(run)
	data := strings.NewReader(run.Formatted)
	_, err := s.client.PutObject(ctx, s.bucket, key, data, int64(len(run.Formatted)), minio.PutObjectOptions{
		ContentType: contentTypeFor(run.Format),
	})
	if err != nil {
		return fmt.Errorf("object sink: put object %s: %w", key, err)
	}
	log.Debugf("uploaded results to %s/%s", s.bucket, key)
	return nil
}

func (s *ObjectSink) objectKey(run Run) string {
	name := fmt.Sprintf("%s-%s-%s%s",
		run.MediaType,
		now().UTC().Format("20060102-150405"),
		run.ID,
		output.ExtensionFor(run.Format),
	)
	return s.prefix + "/" + name
}

func contentTypeFor(format string) string {
	switch format {
	case output.FormatJSON:
		return "application/json"
	case output.FormatMarkdown:
		return "text/markdown"
	default:
		return "text/plain"
	}
}
