package watermark

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"streambridge/internal/social"
)

// memoryRepository records values and call order for assertions.
type memoryRepository struct {
	values map[string]string
	getErr error
	setErr error
	ops    []string
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{values: make(map[string]string)}
}

func (r *memoryRepository) Get(_ context.Context, key string) (string, bool, error) {
	r.ops = append(r.ops, "get")
	if r.getErr != nil {
		return "", false, r.getErr
	}
	v, ok := r.values[key]
	return v, ok, nil
}

func (r *memoryRepository) Set(_ context.Context, key, value string) error {
	r.ops = append(r.ops, "set")
	if r.setErr != nil {
		return r.setErr
	}
	r.values[key] = value
	return nil
}

func eventAt(ts int64) social.RawEvent {
	return social.RawEvent{ID: "1", AuthorScreenName: "replier", PublishedAt: ts}
}

func TestForwardFirstEvent(t *testing.T) {
	repo := newMemoryRepository()
	w := New(repo, "bridged")

	published := false
	forwarded, err := w.Forward(context.Background(), eventAt(100), func(context.Context) error {
		published = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, forwarded)
	assert.True(t, published)
	assert.Equal(t, "100", repo.values["watermark:bridged:last_reply_timestamp"])
}

func TestForwardDropsDuplicateTimestamp(t *testing.T) {
	repo := newMemoryRepository()
	w := New(repo, "bridged")

	_, err := w.Forward(context.Background(), eventAt(100), func(context.Context) error { return nil })
	require.NoError(t, err)

	forwarded, err := w.Forward(context.Background(), eventAt(100), func(context.Context) error {
		t.Fatal("publish must not run for a stale event")
		return nil
	})
	require.NoError(t, err)
	assert.False(t, forwarded)
}

func TestForwardStrictlyNewer(t *testing.T) {
	repo := newMemoryRepository()
	w := New(repo, "bridged")
	ctx := context.Background()

	noop := func(context.Context) error { return nil }

	forwarded, err := w.Forward(ctx, eventAt(100), noop)
	require.NoError(t, err)
	assert.True(t, forwarded)

	forwarded, err = w.Forward(ctx, eventAt(99), noop)
	require.NoError(t, err)
	assert.False(t, forwarded)

	forwarded, err = w.Forward(ctx, eventAt(101), noop)
	require.NoError(t, err)
	assert.True(t, forwarded)
	assert.Equal(t, "101", repo.values["watermark:bridged:last_reply_timestamp"])
}

func TestForwardAdvancesOnlyAfterPublish(t *testing.T) {
	repo := newMemoryRepository()
	w := New(repo, "bridged")

	boom := errors.New("broker down")
	forwarded, err := w.Forward(context.Background(), eventAt(100), func(context.Context) error {
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.False(t, forwarded)
	assert.Empty(t, repo.values)

	// The event stays eligible for the next attempt.
	forwarded, err = w.Forward(context.Background(), eventAt(100), func(context.Context) error { return nil })
	require.NoError(t, err)
	assert.True(t, forwarded)
}

func TestForwardPublishBeforeAdvance(t *testing.T) {
	repo := newMemoryRepository()
	w := New(repo, "bridged")

	_, err := w.Forward(context.Background(), eventAt(100), func(context.Context) error {
		repo.ops = append(repo.ops, "publish")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"get", "publish", "set"}, repo.ops)
}

func TestKeysNamespacedByScreenName(t *testing.T) {
	repo := newMemoryRepository()
	ctx := context.Background()
	noop := func(context.Context) error { return nil }

	a := New(repo, "first")
	b := New(repo, "second")

	_, err := a.Forward(ctx, eventAt(100), noop)
	require.NoError(t, err)

	// The other account's watermark is untouched.
	forwarded, err := b.Forward(ctx, eventAt(50), noop)
	require.NoError(t, err)
	assert.True(t, forwarded)

	assert.Equal(t, "100", repo.values["watermark:first:last_reply_timestamp"])
	assert.Equal(t, "50", repo.values["watermark:second:last_reply_timestamp"])
}

func TestForwardStoreErrors(t *testing.T) {
	t.Run("read failure", func(t *testing.T) {
		repo := newMemoryRepository()
		repo.getErr = errors.New("connection refused")
		w := New(repo, "bridged")

		forwarded, err := w.Forward(context.Background(), eventAt(100), func(context.Context) error {
			t.Fatal("publish must not run when the store is unreadable")
			return nil
		})
		assert.Error(t, err)
		assert.False(t, forwarded)
	})

	t.Run("write failure after publish", func(t *testing.T) {
		repo := newMemoryRepository()
		repo.setErr = errors.New("connection refused")
		w := New(repo, "bridged")

		published := false
		forwarded, err := w.Forward(context.Background(), eventAt(100), func(context.Context) error {
			published = true
			return nil
		})
		assert.Error(t, err)
		assert.True(t, forwarded)
		assert.True(t, published)
	})
}

func TestMalformedStoredWatermark(t *testing.T) {
	repo := newMemoryRepository()
	repo.values["watermark:bridged:last_reply_timestamp"] = "not-a-number"
	w := New(repo, "bridged")

	_, err := w.ShouldForward(context.Background(), eventAt(100))
	assert.Error(t, err)
}
