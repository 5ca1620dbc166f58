package identity

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "shoplink-backend/internal/common/errors"
	domain "shoplink-backend/internal/domain/user"
	"shoplink-backend/internal/events"
	"shoplink-backend/internal/observability"
)

// Service records every sender the webhook sees.
type Service struct {
	repo      domain.Repository
	publisher events.Publisher
	metrics   *observability.Metrics
	now       func() time.Time
}

func NewService(repo domain.Repository, publisher events.Publisher, metrics *observability.Metrics) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{repo: repo, publisher: publisher, metrics: metrics, now: time.Now}
}

// Upsert finds or creates the user for externalID. Storage failures are
// returned as *apperrors.AppError with code DATABASE_ERROR.
func (s *Service) Upsert(ctx context.Context, externalID string) (*domain.User, bool, error) {
	u, created, err := s.repo.Upsert(ctx, externalID)
	if err != nil {
		s.metrics.UserUpserted(observability.ResultError)
		return nil, false, apperrors.NewDatabaseError("upsert user", err).
			WithDetail("external_id", externalID)
	}
	if created {
		s.metrics.UserUpserted(observability.ResultCreated)
		s.publishSignup(ctx, u)
	} else {
		s.metrics.UserUpserted(observability.ResultExisting)
	}
	return u, created, nil
}

// Record is the best-effort form of Upsert used on the event path: errors
// are logged and swallowed so the conversation continues without storage.
// isNew is reported for observation only.
func (s *Service) Record(ctx context.Context, externalID string) (u *domain.User, isNew bool) {
	u, isNew, err := s.Upsert(ctx, externalID)
	if err != nil {
		log.Error().Err(err).Str("external_id", externalID).Msg("Database error while recording user")
		return nil, false
	}
	if isNew {
		log.Info().Str("external_id", externalID).Msg("New user saved")
	} else {
		log.Debug().Str("external_id", externalID).Msg("User found")
	}
	return u, isNew
}

// Get returns the stored user or nil.
func (s *Service) Get(ctx context.Context, externalID string) (*domain.User, error) {
	u, err := s.repo.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, apperrors.NewDatabaseError("get user", err).WithDetail("external_id", externalID)
	}
	return u, nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func (s *Service) publishSignup(ctx context.Context, u *domain.User) {
	ev := events.NewUserSignup(u.ExternalID, s.now())
	if err := s.publisher.PublishUserSignup(ctx, ev); err != nil {
		appErr := apperrors.NewEventPublishError(ev.Event, err).WithDetail("external_id", u.ExternalID)
		log.Warn().Err(appErr).Str("external_id", u.ExternalID).Msg("Failed to publish user signup")
	}
}
