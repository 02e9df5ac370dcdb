package images

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marcelomcerri-bot/feridas/internal/config"
	"github.com/marcelomcerri-bot/feridas/pkg/logger"
)

type fakeObjectAPI struct {
	puts    []*s3.PutObjectInput
	deletes []string
	body    []byte
	err     error
}

func (f *fakeObjectAPI) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.puts = append(f.puts, in)
	f.body, _ = io.ReadAll(in.Body)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeObjectAPI) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeObjectAPI) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.deletes = append(f.deletes, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func TestInlineReturnsInput(t *testing.T) {
	ref, err := Inline{}.Put(context.Background(), "data:image/png;base64,AAAA")
	require.NoError(t, err)
	assert.Equal(t, "data:image/png;base64,AAAA", ref)
	assert.Equal(t, "inline", Inline{}.Name())
}

func TestS3PutUploadsDecodedImage(t *testing.T) {
	api := &fakeObjectAPI{}
	store := NewS3WithAPI(api, config.ImageConfig{Bucket: "wounds", Prefix: "/uploads/"}, logger.NewDiscard())

	// "hello" in base64
	ref, err := store.Put(context.Background(), "data:image/png;base64,aGVsbG8=")
	require.NoError(t, err)

	require.Len(t, api.puts, 1)
	in := api.puts[0]
	assert.Equal(t, "wounds", aws.ToString(in.Bucket))
	assert.True(t, strings.HasPrefix(aws.ToString(in.Key), "uploads/"), aws.ToString(in.Key))
	assert.True(t, strings.HasSuffix(aws.ToString(in.Key), ".png"))
	assert.Equal(t, "image/png", aws.ToString(in.ContentType))
	assert.Equal(t, int64(5), aws.ToInt64(in.ContentLength))
	assert.Equal(t, "hello", string(api.body))
	assert.Equal(t, "s3://wounds/"+aws.ToString(in.Key), ref)
}

func TestS3PutUsesPublicBaseURL(t *testing.T) {
	api := &fakeObjectAPI{}
	store := NewS3WithAPI(api, config.ImageConfig{Bucket: "b", PublicBaseURL: "https://cdn.example/img/"}, logger.NewDiscard())

	ref, err := store.Put(context.Background(), "aGVsbG8")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/img/"+aws.ToString(api.puts[0].Key), ref)
	assert.True(t, strings.HasSuffix(ref, ".jpg"))
}

func TestS3PutErrors(t *testing.T) {
	store := NewS3WithAPI(&fakeObjectAPI{}, config.ImageConfig{Bucket: "b"}, logger.NewDiscard())
	_, err := store.Put(context.Background(), "data:image/png;base64,@@@")
	require.Error(t, err)

	store = NewS3WithAPI(&fakeObjectAPI{err: errors.New("access denied")}, config.ImageConfig{Bucket: "b"}, logger.NewDiscard())
	_, err = store.Put(context.Background(), "aGVsbG8=")
	require.ErrorContains(t, err, "access denied")
}

func TestNewS3RequiresBucket(t *testing.T) {
	_, err := NewS3(context.Background(), config.ImageConfig{}, logger.NewDiscard())
	require.Error(t, err)
}

func TestS3DeleteRemovesUploadedObject(t *testing.T) {
	for _, cfg := range []config.ImageConfig{
		{Bucket: "wounds", Prefix: "uploads"},
		{Bucket: "wounds", Prefix: "uploads", PublicBaseURL: "https://cdn.example/img/"},
	} {
		api := &fakeObjectAPI{}
		store := NewS3WithAPI(api, cfg, logger.NewDiscard())

		ref, err := store.Put(context.Background(), "data:image/png;base64,aGVsbG8=")
		require.NoError(t, err)
		require.NoError(t, store.Delete(context.Background(), ref))
		assert.Equal(t, []string{aws.ToString(api.puts[0].Key)}, api.deletes, cfg.PublicBaseURL)
	}
}

func TestS3DeleteErrors(t *testing.T) {
	api := &fakeObjectAPI{}
	store := NewS3WithAPI(api, config.ImageConfig{Bucket: "wounds"}, logger.NewDiscard())

	require.Error(t, store.Delete(context.Background(), "s3://other/key.png"))
	require.Error(t, store.Delete(context.Background(), "s3://wounds/"))
	require.Error(t, store.Delete(context.Background(), "data:image/png;base64,AAAA"))
	assert.Empty(t, api.deletes)

	api.err = errors.New("access denied")
	require.ErrorContains(t, store.Delete(context.Background(), "s3://wounds/a.png"), "access denied")

	require.NoError(t, Inline{}.Delete(context.Background(), "data:image/png;base64,AAAA"))
}
