package blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/smallbiznis/flyroom/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	assert.Equal(t, DriverMemory, store.Driver())

	_, _, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, store.Delete(ctx, "missing"))

	meta := map[string]string{"tenant": "lab-a"}
	info, err := store.Put(ctx, "backups/lab-a/2.enc", bytes.NewReader([]byte("second")), PutOptions{Metadata: meta})
	require.NoError(t, err)
	assert.Equal(t, int64(6), info.Size)
	meta["tenant"] = "changed"

	_, err = store.Put(ctx, "backups/lab-a/1.enc", bytes.NewReader([]byte("first")), PutOptions{})
	require.NoError(t, err)
	_, err = store.Put(ctx, "backups/lab-b/1.enc", bytes.NewReader([]byte("other")), PutOptions{})
	require.NoError(t, err)

	got, body, err := store.Get(ctx, "backups/lab-a/2.enc")
	require.NoError(t, err)
	data, _ := io.ReadAll(body)
	assert.Equal(t, "second", string(data))
	assert.Equal(t, "lab-a", got.Metadata["tenant"])

	list, err := store.List(ctx, "backups/lab-a/")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "backups/lab-a/1.enc", list[0].Key)

	_, err = store.Put(ctx, "backups/lab-a/1.enc", bytes.NewReader([]byte("replaced")), PutOptions{})
	require.NoError(t, err)
	_, body, _ = store.Get(ctx, "backups/lab-a/1.enc")
	data, _ = io.ReadAll(body)
	assert.Equal(t, "replaced", string(data))

	require.NoError(t, store.Delete(ctx, "backups/lab-a/1.enc"))
	list, _ = store.List(ctx, "")
	assert.Len(t, list, 2)
}

func TestOpenSelectsDriver(t *testing.T) {
	store, err := Open(config.Config{Blob: config.BlobConfig{Driver: "MEMORY"}}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, store.Driver())

	_, err = Open(config.Config{Blob: config.BlobConfig{Driver: "gcs"}}, zap.NewNop())
	assert.ErrorIs(t, err, ErrUnsupportedDriver)

	_, err = Open(config.Config{Blob: config.BlobConfig{Driver: "s3"}}, zap.NewNop())
	assert.Error(t, err)
}

type mockS3 struct {
	mock.Mock
}

func (m *mockS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.PutObjectOutput)
	return out, args.Error(1)
}

func (m *mockS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.GetObjectOutput)
	return out, args.Error(1)
}

func (m *mockS3) DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.DeleteObjectOutput)
	return out, args.Error(1)
}

func (m *mockS3) ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	args := m.Called(ctx, in)
	out, _ := args.Get(0).(*s3.ListObjectsV2Output)
	return out, args.Error(1)
}

func TestS3StorePutAndGet(t *testing.T) {
	client := &mockS3{}
	store := &S3Store{client: client, bucket: "archives"}
	ctx := context.Background()

	client.On("PutObject", ctx, mock.MatchedBy(func(in *s3.PutObjectInput) bool {
		return aws.ToString(in.Bucket) == "archives" &&
			aws.ToString(in.Key) == "k" &&
			aws.ToInt64(in.ContentLength) == 3 &&
			aws.ToString(in.ContentType) == "application/octet-stream"
	})).Return(&s3.PutObjectOutput{}, nil)
	info, err := store.Put(ctx, "k", bytes.NewReader([]byte("abc")), PutOptions{ContentType: "application/octet-stream"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), info.Size)

	client.On("GetObject", ctx, mock.MatchedBy(func(in *s3.GetObjectInput) bool { return aws.ToString(in.Key) == "gone" })).
		Return(nil, &types.NoSuchKey{})
	_, _, err = store.Get(ctx, "gone")
	assert.ErrorIs(t, err, ErrNotFound)

	client.On("GetObject", ctx, mock.MatchedBy(func(in *s3.GetObjectInput) bool { return aws.ToString(in.Key) == "broken" })).
		Return(nil, errors.New("503"))
	_, _, err = store.Get(ctx, "broken")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	client.AssertExpectations(t)
}

func TestS3StoreListFollowsContinuation(t *testing.T) {
	client := &mockS3{}
	store := &S3Store{client: client, bucket: "archives"}
	ctx := context.Background()

	client.On("ListObjectsV2", ctx, mock.MatchedBy(func(in *s3.ListObjectsV2Input) bool { return in.ContinuationToken == nil })).
		Return(&s3.ListObjectsV2Output{
			Contents:              []types.Object{{Key: aws.String("p/b"), Size: aws.Int64(2)}},
			IsTruncated:           aws.Bool(true),
			NextContinuationToken: aws.String("next"),
		}, nil).Once()
	client.On("ListObjectsV2", ctx, mock.MatchedBy(func(in *s3.ListObjectsV2Input) bool {
		return aws.ToString(in.ContinuationToken) == "next"
	})).Return(&s3.ListObjectsV2Output{
		Contents: []types.Object{{Key: aws.String("p/a"), Size: aws.Int64(1)}},
	}, nil).Once()

	infos, err := store.List(ctx, "p/")
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "p/a", infos[0].Key)
	assert.Equal(t, int64(2), infos[1].Size)
	client.AssertExpectations(t)
}
