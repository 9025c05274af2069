package core

// delivery.go optionally copies every composed workbook to an S3 bucket.
// Delivery happens after the response is already decided; a failed upload
// is logged and never fails the composition.

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Delivery uploads composed workbooks to S3.
type Delivery struct {
	client *s3.Client
	bucket string
	prefix string
	log    *slog.Logger
}

// NewDelivery resolves AWS credentials from the default chain. region
// overrides the resolved region when non-empty.
func NewDelivery(ctx context.Context, bucket, prefix, region string, log *slog.Logger) (*Delivery, error) {
	if bucket == "" {
		return nil, fmt.Errorf("delivery bucket is required")
	}
	if log == nil {
		log = slog.Default()
	}

	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &Delivery{
		client: s3.NewFromConfig(cfg),
		bucket: bucket,
		prefix: prefix,
		log:    log,
	}, nil
}

// Deliver uploads one composed workbook under prefix/filename. Errors are
// logged, not returned; the client already has its download.
func (d *Delivery) Deliver(ctx context.Context, res *Result) {
	key := strings.TrimPrefix(d.prefix+res.Filename, "/")

	start := time.Now()
	_, err := d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(d.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(res.Data),
		ContentType: aws.String(XLSXContentType),
	})
	if err != nil {
		d.log.Warn("workbook delivery failed", "bucket", d.bucket, "key", key, "error", err)
		return
	}
	d.log.Info("workbook delivered",
		"bucket", d.bucket,
		"key", key,
		"bytes", len(res.Data),
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
