package services

import (
	"context"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// PresignExpiry is how long upload and read URLs stay valid
const PresignExpiry = 5 * time.Minute

// Presigner is the subset of *s3.PresignClient used by UploadService.
type Presigner interface {
	PresignPutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// UploadService issues presigned URLs for profile pictures
type UploadService struct {
	Bucket    string
	Presigner Presigner
	Now       func() time.Time
}

// NewUploadService loads the default AWS config and builds a presign client.
func NewUploadService(ctx context.Context, region, bucket string) (*UploadService, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, err
	}
	return &UploadService{
		Bucket:    bucket,
		Presigner: s3.NewPresignClient(s3.NewFromConfig(cfg)),
	}, nil
}

// GenerateUploadURL returns a presigned PUT URL and the object key it writes to.
func (us *UploadService) GenerateUploadURL(ctx context.Context, fileName, fileType string) (string, string, error) {
	if fileName == "" || fileType == "" {
		return "", "", newError(ErrValidation, "fileName and fileType are required")
	}
	if !strings.HasPrefix(fileType, "image/") {
		return "", "", newError(ErrValidation, "Only image uploads are allowed")
	}
	now := time.Now
	if us.Now != nil {
		now = us.Now
	}
	key := "profile-pics/" + now().UTC().Format("20060102150405") + "-" + path.Base(fileName)
	req, err := us.Presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(us.Bucket),
		Key:         aws.String(key),
		ContentType: aws.String(fileType),
	}, s3.WithPresignExpires(PresignExpiry))
	if err != nil {
		return "", "", err
	}
	return req.URL, key, nil
}

// GenerateReadURL returns a presigned GET URL for a stored key.
func (us *UploadService) GenerateReadURL(ctx context.Context, key string) (string, error) {
	if !strings.HasPrefix(key, "profile-pics/") {
		return "", newError(ErrValidation, "Invalid key")
	}
	req, err := us.Presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(us.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(PresignExpiry))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}
