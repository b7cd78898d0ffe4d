package engine

import (
	"context"
	"time"

	"streambridge/internal/session"
	"streambridge/pkg/metrics"
	"streambridge/pkg/retry"
)

// supervise keeps one subscription alive for the engine's lifetime. The
// session itself treats a fault as terminal; the supervisor replaces it with
// a fresh session under exponential backoff, resetting the backoff after a
// successful connect.
func (e *Engine) supervise(ctx context.Context, kind session.Kind, build func() *session.StreamSession) {
	defer e.wg.Done()

	b := retry.ExponentialBackoff(time.Second, 30*time.Second, 2.0)

	for ctx.Err() == nil {
		sess := build()
		e.track(sess)

		if err := sess.Start(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			metrics.SessionRestartsTotal.WithLabelValues(string(kind)).Inc()
			e.logger.Warnw("Session start failed, backing off",
				"kind", kind,
				"error", err,
			)
			if !e.wait(ctx, b.NextBackOff()) {
				return
			}
			continue
		}

		b.Reset()

		select {
		case <-ctx.Done():
			return
		case err := <-sess.Faults():
			metrics.SessionRestartsTotal.WithLabelValues(string(kind)).Inc()
			e.logger.Warnw("Session faulted, restarting",
				"kind", kind,
				"error", err,
			)
			if !e.wait(ctx, b.NextBackOff()) {
				return
			}
		}
	}
}

func (e *Engine) wait(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
