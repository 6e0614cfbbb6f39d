package async_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ideatrek/authgate/pkg/async"
)

func TestAsync(t *testing.T) {
	t.Parallel()

	t.Run("await value", func(t *testing.T) {
		t.Parallel()
		f := async.Async(context.Background(), 21, func(_ context.Context, n int) (int, error) {
			return n * 2, nil
		})
		v, err := f.Await()
		require.NoError(t, err)
		assert.Equal(t, 42, v)
		assert.True(t, f.IsComplete())
	})

	t.Run("pre-cancelled context skips fn", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		called := false
		_, err := async.Async(ctx, 0, func(context.Context, int) (int, error) {
			called = true
			return 0, nil
		}).Await()
		assert.ErrorIs(t, err, context.Canceled)
		assert.False(t, called)
	})

	t.Run("panic becomes error", func(t *testing.T) {
		t.Parallel()
		_, err := async.Async(context.Background(), 0, func(context.Context, int) (int, error) {
			panic("boom")
		}).Await()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
	})

	t.Run("await with timeout", func(t *testing.T) {
		t.Parallel()
		release := make(chan struct{})
		defer close(release)

		f := async.Async(context.Background(), 0, func(context.Context, int) (int, error) {
			<-release
			return 1, nil
		})
		_, err := f.AwaitWithTimeout(10 * time.Millisecond)
		assert.ErrorIs(t, err, async.ErrTimeout)
		assert.False(t, f.IsComplete())
	})

	t.Run("await context cancels loser", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		stopped := make(chan struct{})
		f := async.Async(ctx, 0, func(ctx context.Context, _ int) (int, error) {
			<-ctx.Done()
			close(stopped)
			return 0, ctx.Err()
		})

		_, err := f.AwaitContext(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)

		select {
		case <-stopped:
		case <-time.After(time.Second):
			t.Fatal("computation did not observe cancellation")
		}
	})
}

func TestWaitAllAndAny(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	slow := func(_ context.Context, d time.Duration) (time.Duration, error) {
		time.Sleep(d)
		return d, nil
	}

	values, err := async.WaitAll(
		async.Async(ctx, 30*time.Millisecond, slow),
		async.Async(ctx, 10*time.Millisecond, slow),
	)
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{30 * time.Millisecond, 10 * time.Millisecond}, values)

	idx, v, err := async.WaitAny(
		async.Async(ctx, 200*time.Millisecond, slow),
		async.Async(ctx, time.Millisecond, slow),
	)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	assert.Equal(t, time.Millisecond, v)

	_, _, err = async.WaitAny[int]()
	assert.ErrorIs(t, err, async.ErrNoFutures)

	boom := errors.New("boom")
	_, err = async.WaitAll(
		async.Async(ctx, 0, func(context.Context, int) (int, error) { return 0, nil }),
		async.Async(ctx, 0, func(context.Context, int) (int, error) { return 0, boom }),
	)
	assert.ErrorIs(t, err, boom)
}

func TestExec(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	boom := errors.New("boom")

	ok := async.Exec(ctx, "a", func(context.Context, string) error { return nil })
	bad := async.Exec(ctx, "b", func(context.Context, string) error { return boom })

	assert.ErrorIs(t, async.ExecAll(ok, bad), boom)
	assert.NoError(t, ok.Await())

	_, err := async.ExecAny()
	assert.ErrorIs(t, err, async.ErrNoFutures)
}
