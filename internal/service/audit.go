package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/reefdir/session-service/internal/models"
	"github.com/reefdir/session-service/internal/pkg/log"
)

// audit добавляет запись в журнал аутентификационных событий.
// Fire-and-forget: любая ошибка записи логируется и проглатывается —
// наблюдаемость не должна стать новым отказом аутентификации.
// Результат (ok, err) вызывающие сознательно отбрасывают.
//
// userID nil, когда личность на момент отказа ещё неизвестна
// (малформенный или просроченный по replay-окну секрет).
// detail содержит конкретную причину отказа; наружу она не отдаётся.
func (s *Service) audit(ctx context.Context, userID *uuid.UUID, action string, rc models.RequestContext, success bool, detail string) (bool, error) {
	const op = "service.audit.audit"

	if !s.cfg.AuditEnabled {
		return true, nil
	}

	entry := &models.AuditEntry{
		UserID:     userID,
		Action:     action,
		OriginAddr: rc.OriginAddr,
		UserAgent:  rc.UserAgent,
		Timestamp:  time.Now().UTC(),
		Success:    success,
		Detail:     detail,
	}

	if err := s.storage.SaveAuditEntry(ctx, entry); err != nil {
		log.From(ctx).Warn("audit_write_failed",
			slog.String("op", op),
			slog.String("action", action),
			slog.String("err", err.Error()),
		)
		return false, err
	}

	return true, nil
}
