package services

import (
	"context"
	"strings"
	"testing"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePresigner struct {
	putKey string
	getKey string
}

func (f *fakePresigner) PresignPutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	f.putKey = *params.Key
	return &v4.PresignedHTTPRequest{URL: "https://bucket.s3/" + *params.Key + "?sig=put", Method: "PUT"}, nil
}

func (f *fakePresigner) PresignGetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
	f.getKey = *params.Key
	return &v4.PresignedHTTPRequest{URL: "https://bucket.s3/" + *params.Key + "?sig=get", Method: "GET"}, nil
}

func TestUploadService(t *testing.T) {
	t.Parallel()
	p := &fakePresigner{}
	us := &UploadService{
		Bucket:    "pics",
		Presigner: p,
		Now:       func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) },
	}
	ctx := context.Background()

	url, key, err := us.GenerateUploadURL(ctx, "../me.png", "image/png")
	require.NoError(t, err)
	assert.Equal(t, "profile-pics/20260102030405-me.png", key)
	assert.Equal(t, key, p.putKey)
	assert.True(t, strings.HasSuffix(url, "?sig=put"))

	_, _, err = us.GenerateUploadURL(ctx, "notes.pdf", "application/pdf")
	assert.ErrorIs(t, err, ErrValidation)

	read, err := us.GenerateReadURL(ctx, key)
	require.NoError(t, err)
	assert.Contains(t, read, "sig=get")

	_, err = us.GenerateReadURL(ctx, "secrets/keys.txt")
	assert.ErrorIs(t, err, ErrValidation)
}
