package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/reefdir/session-service/internal/pkg/log"
	"github.com/reefdir/session-service/internal/storage"
)

// enforceSessionLimit поддерживает кап одновременных активных сессий
// пользователя: при count >= MaxActiveSessions отзывается самая старая
// (created_at ASC) активная сессия.
//
// Кап best-effort: count и insert не накрыты одной транзакцией, поэтому
// конкурентные выдачи для одного пользователя могут кратковременно
// превысить лимит. Результат (ok, err) вызывающие сознательно отбрасывают.
func (s *Service) enforceSessionLimit(ctx context.Context, userID uuid.UUID, now time.Time) (bool, error) {
	const op = "service.eviction.enforceSessionLimit"

	if s.cfg.MaxActiveSessions <= 0 {
		return true, nil
	}

	lg := log.From(ctx)

	count, err := s.storage.CountActiveSessions(ctx, userID, now)
	if err != nil {
		lg.Warn("session_count_failed",
			slog.String("op", op),
			slog.String("user_id", userID.String()),
			slog.String("err", err.Error()),
		)
		return false, err
	}

	if count < s.cfg.MaxActiveSessions {
		return true, nil
	}

	oldest, err := s.storage.OldestActiveSession(ctx, userID, now)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return true, nil
		}

		lg.Warn("oldest_session_lookup_failed",
			slog.String("op", op),
			slog.String("user_id", userID.String()),
			slog.String("err", err.Error()),
		)
		return false, err
	}

	revoked, err := s.storage.RevokeSession(ctx, oldest)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		lg.Warn("session_eviction_failed",
			slog.String("op", op),
			slog.String("session_id", oldest.String()),
			slog.String("err", err.Error()),
		)
		return false, err
	}

	if revoked {
		lg.Info("session_evicted",
			slog.String("user_id", userID.String()),
			slog.String("session_id", oldest.String()),
		)
		s.cacheMarkRevoked(ctx, oldest)
	}

	return true, nil
}
