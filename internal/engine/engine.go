// Package engine is the composition root of the bridge core: it owns the
// stream sessions, routes their events through translation and the reply
// watermark onto the bus, and turns outbound bus messages into social posts
// with exactly one ack or nack each.
package engine

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"streambridge/internal/bus"
	"streambridge/internal/config"
	"streambridge/internal/constants"
	"streambridge/internal/logger"
	"streambridge/internal/session"
	"streambridge/internal/social"
	"streambridge/internal/translate"
	"streambridge/internal/watermark"
	"streambridge/pkg/logging"
	"streambridge/pkg/metrics"
	"streambridge/pkg/models"
)

type Engine struct {
	account    config.AccountConfig
	stream     config.StreamConfig
	translator *translate.Translator
	watermark  *watermark.Watermark
	publisher  bus.Publisher
	client     social.Client
	limiter    *rate.Limiter
	logger     logger.Logger

	mu       sync.Mutex
	sessions []*session.StreamSession
	wg       sync.WaitGroup
}

func New(
	account config.AccountConfig,
	stream config.StreamConfig,
	translator *translate.Translator,
	wm *watermark.Watermark,
	publisher bus.Publisher,
	client social.Client,
	log logger.Logger,
) *Engine {
	var limiter *rate.Limiter
	if stream.PostRate.RPS > 0 {
		burst := stream.PostRate.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(stream.PostRate.RPS), burst)
	}

	return &Engine{
		account:    account,
		stream:     stream,
		translator: translator,
		watermark:  wm,
		publisher:  publisher,
		client:     client,
		limiter:    limiter,
		logger:     log,
	}
}

// Run starts the configured subscriptions and supervises them until ctx is
// canceled: a faulted session is replaced by a fresh one under exponential
// backoff. Blocks for the engine's lifetime.
func (e *Engine) Run(ctx context.Context) error {
	if len(e.stream.Terms) > 0 {
		trackHandler := e.DispatchTrack
		if e.translator.Strategy().Name() == translate.StrategyMention {
			trackHandler = e.DispatchStream
		}
		e.wg.Add(1)
		go e.supervise(ctx, session.KindTrackTerms, func() *session.StreamSession {
			return session.NewTrackSession(e.client, e.stream.Terms, trackHandler, e.logger)
		})
	}

	if e.stream.UserStream {
		e.wg.Add(1)
		go e.supervise(ctx, session.KindUserStream, func() *session.StreamSession {
			return session.NewUserStreamSession(e.client, e.DispatchStream, e.logger)
		})
	}

	if e.stream.CheckRepliesInterval > 0 {
		e.wg.Add(1)
		go e.supervise(ctx, session.KindReplyPoll, func() *session.StreamSession {
			return session.NewReplyPollSession(e.client, e.stream.CheckRepliesInterval, e.DispatchReply, e.logger)
		})
	}

	<-ctx.Done()
	e.StopAll()
	e.wg.Wait()
	return ctx.Err()
}

// DispatchTrack forwards a realtime term-matched event. The track stream is
// push-only and assumed not to redeliver, so no dedup applies.
func (e *Engine) DispatchTrack(ctx context.Context, ev social.RawEvent) {
	msg, err := e.translator.InboundFromTrack(ev)
	if err != nil {
		e.dropInvalid(ctx, "track", ev, err)
		return
	}
	e.publishInbound(ctx, "track", msg)
}

// DispatchReply forwards a polled reply iff it is newer than the persisted
// watermark. Check, publish, and advance run as one critical section; the
// watermark only moves after the bus accepted the message.
func (e *Engine) DispatchReply(ctx context.Context, ev social.RawEvent) {
	msg, err := e.translator.InboundFromReply(ev)
	if err != nil {
		e.dropInvalid(ctx, "reply", ev, err)
		return
	}
	msg.TraceID = uuid.NewString()
	msgCtx := logging.WithTraceID(logging.WithMessageID(ctx, msg.MessageID), msg.TraceID)
	msgCtx = logging.WithEventID(msgCtx, ev.ID)

	forwarded, err := e.watermark.Forward(msgCtx, ev, func(pubCtx context.Context) error {
		return e.publisher.PublishInbound(pubCtx, msg)
	})
	if err != nil {
		metrics.InboundMessagesTotal.WithLabelValues("reply", "error").Inc()
		e.logger.ErrorwCtx(msgCtx, "Reply dispatch failed", "error", err)
		return
	}
	if !forwarded {
		metrics.InboundMessagesTotal.WithLabelValues("reply", "dropped_duplicate").Inc()
		e.logger.DebugwCtx(msgCtx, "Reply already forwarded, dropping",
			"published_at", ev.PublishedAt,
		)
		return
	}
	metrics.InboundMessagesTotal.WithLabelValues("reply", "published").Inc()
}

// DispatchStream forwards a user-stream (or mention-convention track) event.
// The bridged account's own posts are suppressed so outbound updates never
// echo back as inbound messages.
func (e *Engine) DispatchStream(ctx context.Context, ev social.RawEvent) {
	msg, ok, err := e.translator.InboundFromStreamTweet(ev, e.account.ScreenName)
	if err != nil {
		e.dropInvalid(ctx, "stream", ev, err)
		return
	}
	if !ok {
		metrics.InboundMessagesTotal.WithLabelValues("stream", "dropped_self").Inc()
		e.logger.DebugwCtx(logging.WithEventID(ctx, ev.ID), "Suppressing own tweet")
		return
	}
	e.publishInbound(ctx, "stream", msg)
}

// HandleOutbound posts one outbound bus message to the social network.
// Every message gets exactly one delivery report: an ack carrying the posted
// status id, or a nack carrying the stringified failure reason. A returned
// error means the report itself could not be published.
func (e *Engine) HandleOutbound(ctx context.Context, msg models.CanonicalMessage) error {
	msgCtx := logging.WithMessageID(ctx, msg.MessageID)

	if !e.account.AllowPost {
		e.logger.InfowCtx(msgCtx, "Posting disabled, nacking outbound message")
		metrics.OutboundPostsTotal.WithLabelValues("nack").Inc()
		return e.publisher.PublishNack(msgCtx, msg.MessageID, msg.MessageID, constants.PostingDisabledReason)
	}

	req := e.translator.OutboundRequest(msg)

	if e.limiter != nil {
		if err := e.limiter.Wait(msgCtx); err != nil {
			return err
		}
	}

	result, err := e.client.Post(msgCtx, req)
	if err != nil {
		e.logger.WarnwCtx(msgCtx, "Social post failed, nacking",
			"error", err,
		)
		metrics.OutboundPostsTotal.WithLabelValues("nack").Inc()
		return e.publisher.PublishNack(msgCtx, msg.MessageID, msg.MessageID, err.Error())
	}

	metrics.OutboundPostsTotal.WithLabelValues("ack").Inc()
	return e.publisher.PublishAck(msgCtx, msg.MessageID, result.StatusID)
}

// StopAll stops every session, best-effort and in any order. Individual stop
// failures are logged and do not block the rest.
func (e *Engine) StopAll() {
	e.mu.Lock()
	sessions := make([]*session.StreamSession, len(e.sessions))
	copy(sessions, e.sessions)
	e.mu.Unlock()

	for _, sess := range sessions {
		if err := sess.Stop(); err != nil {
			e.logger.Warnw("Session stop failed", "kind", sess.Kind(), "error", err)
		}
	}
}

func (e *Engine) publishInbound(ctx context.Context, path string, msg models.CanonicalMessage) {
	msg.TraceID = uuid.NewString()
	msgCtx := logging.WithTraceID(logging.WithMessageID(ctx, msg.MessageID), msg.TraceID)

	if err := e.publisher.PublishInbound(msgCtx, msg); err != nil {
		metrics.InboundMessagesTotal.WithLabelValues(path, "error").Inc()
		e.logger.ErrorwCtx(msgCtx, "Failed to publish inbound message",
			"error", err,
			"path", path,
		)
		return
	}
	metrics.InboundMessagesTotal.WithLabelValues(path, "published").Inc()
	e.logger.InfowCtx(msgCtx, "Inbound message published",
		"path", path,
		"from_addr", msg.FromAddr,
		"to_addr", msg.ToAddr,
	)
}

func (e *Engine) dropInvalid(ctx context.Context, path string, ev social.RawEvent, err error) {
	metrics.InboundMessagesTotal.WithLabelValues(path, "dropped_invalid").Inc()
	e.logger.WarnwCtx(logging.WithEventID(ctx, ev.ID), "Dropping malformed event",
		"path", path,
		"error", err,
	)
}

func (e *Engine) track(sess *session.StreamSession) {
	e.mu.Lock()
	e.sessions = append(e.sessions, sess)
	e.mu.Unlock()
}
