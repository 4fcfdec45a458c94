package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketTake(t *testing.T) {
	var gotKeys []string
	var gotArgs []any
	reply := []any{int64(1), int64(4), int64(1_700_000_000_000)}
	bucket, err := newTokenBucket(func(_ context.Context, keys []string, args ...any) ([]any, error) {
		gotKeys, gotArgs = keys, args
		return reply, nil
	}, 0.5, 5)
	require.NoError(t, err)

	res, err := bucket.Take(context.Background(), "flyroom:ratelimit:tenant:lab-a:import")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 5, res.Limit)
	assert.Equal(t, 4, res.Remaining)
	assert.Zero(t, res.RetryAfter)
	assert.Equal(t, []string{"flyroom:ratelimit:tenant:lab-a:import"}, gotKeys)
	assert.Equal(t, []any{0.5, 5, int64(20_000)}, gotArgs)

	reply = []any{int64(0), int64(0), int64(1_700_000_000_000)}
	res, err = bucket.Take(context.Background(), "k")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 2*time.Second, res.RetryAfter)
	assert.Equal(t, time.UnixMilli(1_700_000_002_000), res.ResetTime)
}

func TestTokenBucketRejectsBadInput(t *testing.T) {
	eval := func(context.Context, []string, ...any) ([]any, error) { return []any{int64(1)}, nil }

	_, err := newTokenBucket(eval, 0, 5)
	assert.Error(t, err)
	_, err = newTokenBucket(eval, 1, 0)
	assert.Error(t, err)
	_, err = NewTokenBucket(nil, 1, 1)
	assert.Error(t, err)

	bucket, err := newTokenBucket(eval, 1, 1)
	require.NoError(t, err)
	_, err = bucket.Take(context.Background(), "")
	assert.Error(t, err)
	_, err = bucket.Take(context.Background(), "k")
	assert.ErrorContains(t, err, "unexpected reply")

	failing, err := newTokenBucket(func(context.Context, []string, ...any) ([]any, error) {
		return nil, errors.New("connection refused")
	}, 1, 1)
	require.NoError(t, err)
	_, err = failing.Take(context.Background(), "k")
	assert.ErrorContains(t, err, "connection refused")
}
