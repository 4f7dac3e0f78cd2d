package sync

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Destination stores each export as one object in an S3-compatible bucket.
type S3Destination struct {
	client *s3.Client
	bucket string
	key    string
}

// NewS3Destination creates an S3 destination. If endpoint is non-empty,
// path-style addressing is enabled (for MinIO and similar).
func NewS3Destination(ctx context.Context, bucket, key, region, endpoint string) (*S3Destination, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var s3opts []func(*s3.Options)
	if endpoint != "" {
		s3opts = append(s3opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		})
	}

	return &S3Destination{
		client: s3.NewFromConfig(cfg, s3opts...),
		bucket: bucket,
		key:    key,
	}, nil
}

func (d *S3Destination) Name() string {
	return "s3://" + d.bucket + "/" + d.key
}

// Read downloads the configured object, for importing a previously synced
// export.
func (d *S3Destination) Read(ctx context.Context) (io.ReadCloser, error) {
	out, err := d.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get %s: %w", d.Name(), err)
	}
	return out.Body, nil
}

// Write uploads the export. Graph counts and export time are stored as
// object metadata so they can be inspected without downloading.
func (d *S3Destination) Write(ctx context.Context, snap Snapshot) error {
	_, err := d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(d.bucket),
		Key:         aws.String(d.key),
		Body:        bytes.NewReader(snap.Data),
		ContentType: aws.String("application/x-ndjson"),
		Metadata: map[string]string{
			"graphview-nodes":       strconv.Itoa(snap.Nodes),
			"graphview-links":       strconv.Itoa(snap.Links),
			"graphview-exported-at": snap.TakenAt.Format(time.RFC3339),
		},
	})
	if err != nil {
		return fmt.Errorf("s3 put %s: %w", d.Name(), err)
	}
	return nil
}
