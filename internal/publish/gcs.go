package publish

import (
	"context"
	"os"

	log "github.com/sirupsen/logrus"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	storage "google.golang.org/api/storage/v1"

	"github.com/ivlev/kenburns/internal/failure"
)

// GCSPublisher uploads through the Cloud Storage JSON API using application
// default credentials unless options say otherwise.
type GCSPublisher struct {
	svc *storage.Service
}

func NewGCS(ctx context.Context, opts ...option.ClientOption) (*GCSPublisher, error) {
	svc, err := storage.NewService(ctx, opts...)
	if err != nil {
		return nil, failure.New(failure.Publish, "gcs client", err)
	}
	return &GCSPublisher{svc: svc}, nil
}

func (p *GCSPublisher) Publish(ctx context.Context, localPath, bucket, key string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", failure.New(failure.Publish, "open output", err)
	}
	defer f.Close()

	log.WithFields(log.Fields{"bucket": bucket, "key": key}).Infof("[*] uploading %s", localPath)
	obj := &storage.Object{Name: key, ContentType: contentType}
	if _, err := p.svc.Objects.Insert(bucket, obj).Media(f, googleapi.ContentType(contentType)).Context(ctx).Do(); err != nil {
		return "", failure.New(failure.Publish, "gcs upload", err)
	}
	return GCSURL(bucket, key), nil
}
