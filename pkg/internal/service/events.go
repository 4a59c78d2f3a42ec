package service

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/casevault/pkg/configs"
	"github.com/yeisme/casevault/pkg/internal/model"
	"github.com/yeisme/casevault/pkg/queue"
)

// eventOpts 事件头：生产者、操作者与 trace id.
func eventOpts(ctx context.Context) []queue.Option {
	opts := []queue.Option{
		queue.WithProducer(configs.AppName),
		queue.WithActor(ActorFrom(ctx)),
	}

	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		opts = append(opts, queue.WithTraceID(sc.TraceID().String()))
	}

	return opts
}

func ownerPayload(ref model.OwnerRef) queue.OwnerRef {
	return queue.OwnerRef{Kind: string(ref.Kind), ID: ref.ID}
}

func (s *AttachmentService) publishStored(ctx context.Context, ref model.OwnerRef, entries []model.AttachmentEntry, keys []string, total int) {
	if s.pub == nil || !s.events.Enabled || !s.events.Attachment.Stored {
		return
	}

	refs := make([]queue.AttachmentRef, 0, len(entries))
	for i, e := range entries {
		refs = append(refs, queue.AttachmentRef{
			Filename:     e.Filename,
			OriginalName: e.OriginalName,
			Size:         e.Size,
			MimeType:     e.MimeType,
			Key:          keys[i],
		})
	}

	payload := queue.AttachmentStoredPayload{Owner: ownerPayload(ref), Attachments: refs, TotalFiles: total}
	if err := queue.PublishAttachmentStored(ctx, s.pub, payload, eventOpts(ctx)...); err != nil {
		s.l.Warn().Err(err).Str("topic", queue.TopicAttachmentStored).Msg("publish event failed")
	}
}

func (s *AttachmentService) publishRemoved(ctx context.Context, ref model.OwnerRef, filename, key string, remaining int) {
	if s.pub == nil || !s.events.Enabled || !s.events.Attachment.Removed {
		return
	}

	payload := queue.AttachmentRemovedPayload{
		Owner:          ownerPayload(ref),
		Filename:       filename,
		Key:            key,
		RemainingFiles: remaining,
	}
	if err := queue.PublishAttachmentRemoved(ctx, s.pub, payload, eventOpts(ctx)...); err != nil {
		s.l.Warn().Err(err).Str("topic", queue.TopicAttachmentRemoved).Msg("publish event failed")
	}
}

func (s *AttachmentService) publishPurged(ctx context.Context, ref model.OwnerRef, prefix string, deleted int, reason string) {
	if s.pub == nil || !s.events.Enabled || !s.events.Attachment.Purged {
		return
	}

	payload := queue.AttachmentPurgedPayload{Owner: ownerPayload(ref), Prefix: prefix, Deleted: deleted, Reason: reason}
	if err := queue.PublishAttachmentPurged(ctx, s.pub, payload, eventOpts(ctx)...); err != nil {
		s.l.Warn().Err(err).Str("topic", queue.TopicAttachmentPurged).Msg("publish event failed")
	}
}
