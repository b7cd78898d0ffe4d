// Package watermark implements the persistent idempotency guard for the
// reply path: the timestamp of the last forwarded reply, stored per account.
package watermark

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"streambridge/internal/constants"
	"streambridge/internal/social"
	"streambridge/pkg/metrics"
)

// Watermark tracks the published-at timestamp of the most recently forwarded
// reply. Forward runs the check, the publish callback, and the advance as one
// critical section so overlapping dispatchers cannot interleave a
// read-then-write of the stored value.
type Watermark struct {
	repo Repository
	key  string

	mu sync.Mutex
}

// New builds the guard for one account. Keys are namespaced by screen name
// so multiple bridge instances never collide.
func New(repo Repository, screenName string) *Watermark {
	return &Watermark{
		repo: repo,
		key:  constants.WatermarkKeyPrefix + screenName + ":" + constants.WatermarkKeyField,
	}
}

// Forward publishes the event through the supplied callback iff it is newer
// than the stored watermark, then advances the watermark. The advance happens
// only after the publish succeeded: a crash in between re-forwards the event
// on restart (at-least-once). Returns whether the event was forwarded.
func (w *Watermark) Forward(ctx context.Context, ev social.RawEvent, publish func(context.Context) error) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	ok, err := w.shouldForward(ctx, ev)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if err := publish(ctx); err != nil {
		return false, err
	}
	if err := w.advance(ctx, ev); err != nil {
		return true, err
	}
	return true, nil
}

// ShouldForward reports whether the event is newer than the stored watermark.
// Equal timestamps count as already seen; duplicate-timestamp events within
// the same second are dropped. Known limitation, inherited deliberately.
func (w *Watermark) ShouldForward(ctx context.Context, ev social.RawEvent) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.shouldForward(ctx, ev)
}

// Advance persists the event's timestamp as the new watermark, overwriting
// unconditionally.
func (w *Watermark) Advance(ctx context.Context, ev social.RawEvent) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.advance(ctx, ev)
}

func (w *Watermark) shouldForward(ctx context.Context, ev social.RawEvent) (bool, error) {
	start := time.Now()
	stored, exists, err := w.repo.Get(ctx, w.key)
	metrics.ObserveWatermarkStoreDuration(time.Since(start), "get")
	if err != nil {
		return false, fmt.Errorf("watermark read failed: %w", err)
	}
	if !exists {
		return true, nil
	}
	last, err := strconv.ParseInt(stored, 10, 64)
	if err != nil {
		return false, fmt.Errorf("malformed stored watermark %q: %w", stored, err)
	}
	return ev.PublishedAt > last, nil
}

func (w *Watermark) advance(ctx context.Context, ev social.RawEvent) error {
	start := time.Now()
	err := w.repo.Set(ctx, w.key, strconv.FormatInt(ev.PublishedAt, 10))
	metrics.ObserveWatermarkStoreDuration(time.Since(start), "set")
	if err != nil {
		return fmt.Errorf("watermark write failed: %w", err)
	}
	return nil
}
