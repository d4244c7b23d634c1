package destination

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/base64"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
	"github.com/segmentio/events/v2"
	"github.com/segmentio/stats/v4"

	"github.com/segmentio/tableview/pkg/export"
)

type S3Client interface {
	manager.UploadAPIClient
}

// sendToS3Func sends the specified content to an s3 bucket
type sendToS3Func func(ctx context.Context, key string, bucket string, contentType string, body io.Reader) error

// S3 uploads the payload to Bucket/Key. Keys ending in .gz are gzipped
// on the way up.
type S3 struct {
	Bucket string
	Key    string

	sendToS3Func sendToS3Func
	s3Client     S3Client
}

func (d *S3) Deliver(ctx context.Context, payload export.Payload) error {
	key := strings.TrimPrefix(d.Key, "/")
	if key == "" || strings.HasSuffix(key, "/") {
		key += payload.Filename
	}
	var reader io.Reader = bytes.NewReader(payload.Data)

	var gpr *gzipCompressionReader
	if strings.HasSuffix(key, ".gz") {
		events.Debug("Compressing s3 payload with GZIP")
		gpr = newGZIPCompressionReader(reader)
		reader = gpr
	}
	events.Log("Uploading %{file}s (%d bytes) to %{bucket}s/%{key}s", payload.Filename, len(payload.Data), d.Bucket, key)

	start := time.Now()
	if err := d.sendToS3(ctx, key, payload.ContentType, reader, checksum(payload.Data)); err != nil {
		return errors.Wrap(err, "send to s3")
	}
	stats.Observe("export-upload-time", time.Since(start), stats.T("compressed", isCompressed(gpr)))

	events.Log("Successfully uploaded %{file}s to %{bucket}s/%{key}s", payload.Filename, d.Bucket, key)
	if gpr != nil && len(payload.Data) > 0 {
		ratio := 1 - (float64(gpr.bytesRead) / float64(len(payload.Data)))
		stats.Set("s3-compression-ratio", ratio)
	}
	return nil
}

// checksum is the base64 sha1 of data, stored as object metadata.
func checksum(data []byte) string {
	h := sha1.Sum(data)
	return base64.StdEncoding.EncodeToString(h[:])
}

func isCompressed(gpr *gzipCompressionReader) string {
	if gpr == nil {
		return "false"
	}
	return "true"
}

func (d *S3) sendToS3(ctx context.Context, key string, contentType string, body io.Reader, cs string) error {
	if d.sendToS3Func != nil {
		return d.sendToS3Func(ctx, key, d.Bucket, contentType, body)
	}
	client, err := d.getS3Client(ctx)
	if err != nil {
		return err
	}
	uploader := manager.NewUploader(client)
	output, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      &d.Bucket,
		Key:         &key,
		Body:        body,
		ContentType: &contentType,
		Metadata: map[string]string{
			"checksum": cs,
		},
	})
	if err != nil {
		events.Log("Couldn't upload export to %v:%v: %{error}v", d.Bucket, key, err)
		return errors.Wrap(err, "upload with context")
	}
	events.Debug("Wrote to S3 location: %s", output.Location)
	return nil
}

func (d *S3) getS3Client(ctx context.Context) (S3Client, error) {
	if d.s3Client != nil {
		return d.s3Client, nil
	}
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "load aws config")
	}
	return s3.NewFromConfig(cfg), nil
}
