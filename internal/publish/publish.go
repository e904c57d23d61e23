// Package publish uploads the finished video to object storage and returns
// its public URL.
package publish

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/ivlev/kenburns/internal/config"
	"github.com/ivlev/kenburns/internal/failure"
)

const contentType = "video/mp4"

type Publisher interface {
	Publish(ctx context.Context, localPath, bucket, key string) (string, error)
}

// New returns the publisher for provider. region only applies to S3.
func New(ctx context.Context, provider, region string) (Publisher, error) {
	switch strings.ToLower(provider) {
	case "", config.ProviderGCS:
		return NewGCS(ctx)
	case config.ProviderS3:
		return NewS3(ctx, region)
	default:
		return nil, failure.Newf(failure.Publish, "new publisher", "unknown provider %q", provider)
	}
}

func GCSURL(bucket, key string) string {
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bucket, key)
}

func S3URL(bucket, region, key string) string {
	if region == "" {
		return fmt.Sprintf("https://%s.s3.amazonaws.com/%s", bucket, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, region, key)
}

// QRPath is where the QR code for output's public URL is written.
func QRPath(output string) string {
	return strings.TrimSuffix(output, filepath.Ext(output)) + ".qr.png"
}

// WriteQR encodes url as a PNG QR code at path.
func WriteQR(url, path string) error {
	if err := qrcode.WriteFile(url, qrcode.Medium, 512, path); err != nil {
		return failure.New(failure.Publish, "write qr", err)
	}
	return nil
}
