package webhook

import (
	"context"

	"github.com/rs/zerolog/log"

	dm "shoplink-backend/internal/domain/messenger"
	domain "shoplink-backend/internal/domain/user"
	"shoplink-backend/internal/observability"
	"shoplink-backend/internal/service/conversation"
)

// UserRecorder stores the sender and reports whether it was new. It must
// not fail: storage problems are handled behind it.
type UserRecorder interface {
	Record(ctx context.Context, externalID string) (*domain.User, bool)
}

// Sender delivers one response to a recipient.
type Sender interface {
	Send(ctx context.Context, recipientID string, msg dm.OutboundResponse) (*dm.SendResult, error)
}

// Processor runs the per-entry pipeline: record the sender, dispatch the
// event, send the replies in order.
type Processor struct {
	users   UserRecorder
	sender  Sender
	metrics *observability.Metrics
}

func NewProcessor(users UserRecorder, sender Sender, metrics *observability.Metrics) *Processor {
	return &Processor{users: users, sender: sender, metrics: metrics}
}

// Process handles one normalized event. Send failures are logged and the
// remaining replies are still attempted.
func (p *Processor) Process(ctx context.Context, ev dm.InboundEvent) {
	p.metrics.EventNormalized(string(ev.Kind))
	logger := log.With().Str("sender_id", ev.SenderID).Str("kind", string(ev.Kind)).Logger()

	_, isNew := p.users.Record(ctx, ev.SenderID)
	logger.Debug().Bool("is_new", isNew).Msg("Sender recorded")

	if ev.Kind == dm.EventPostback {
		logger.Info().Str("payload", ev.Payload).Msg("Button clicked")
	}

	replies := conversation.Dispatch(ev)
	for i, reply := range replies {
		if _, err := p.sender.Send(ctx, ev.SenderID, reply); err != nil {
			logger.Error().Err(err).Int("reply", i).Msg("Unable to send message")
		}
	}
}
