package publish

import (
	"context"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	log "github.com/sirupsen/logrus"

	"github.com/ivlev/kenburns/internal/failure"
)

type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type S3Publisher struct {
	client putObjectAPI
	region string
}

// NewS3 loads the default AWS credential chain. An empty region leaves the
// SDK default in place.
func NewS3(ctx context.Context, region string) (*S3Publisher, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, failure.New(failure.Publish, "aws config", err)
	}
	return &S3Publisher{client: s3.NewFromConfig(cfg), region: cfg.Region}, nil
}

func (p *S3Publisher) Publish(ctx context.Context, localPath, bucket, key string) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", failure.New(failure.Publish, "open output", err)
	}
	defer f.Close()

	log.WithFields(log.Fields{"bucket": bucket, "key": key}).Infof("[*] uploading %s", localPath)
	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", failure.New(failure.Publish, "s3 upload", err)
	}
	return S3URL(bucket, p.region, key), nil
}
