package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/reefdir/session-service/internal/cache"
	"github.com/reefdir/session-service/internal/models"
	"github.com/reefdir/session-service/internal/pkg/log"
	"github.com/reefdir/session-service/internal/pkg/redact"
	"github.com/reefdir/session-service/internal/storage"
)

// IssuePair выпускает пару access+refresh для уже аутентифицированного
// пользователя. Проверка пароля — зона внешнего слоя, сюда приходит
// проверенная личность.
//
// Порядок: очистка просроченных сессий и кап активных (оба best-effort,
// внутри CreateRefreshSecret) → создание refresh-сессии → выпуск
// access-токена → запись аудита session-created.
func (s *Service) IssuePair(ctx context.Context, user *models.User, rc models.RequestContext) (*models.TokenPair, error) {
	const op = "service.manager.IssuePair"

	now := time.Now().UTC()

	refreshSecret, err := s.CreateRefreshSecret(ctx, user, rc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	accessToken, err := s.generateAccessToken(ctx, user.Username, now)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	_, _ = s.audit(ctx, &user.ID, models.AuditSessionCreated, rc, true, "")

	return &models.TokenPair{
		AccessToken:   accessToken,
		RefreshSecret: refreshSecret,
		TokenType:     "bearer",
		ExpiresIn:     int64(s.cfg.AccessTokenTTL.Seconds()),
	}, nil
}

// IssueForUsername — вариант IssuePair для транспорта: разрешает username
// в пользователя и выпускает пару. storage.ErrNotFound поднимается как есть,
// транспорт маппит его в 404.
func (s *Service) IssueForUsername(ctx context.Context, username string, rc models.RequestContext) (*models.TokenPair, error) {
	const op = "service.manager.IssueForUsername"

	user, err := s.storage.UserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			log.From(ctx).Warn("issue_unknown_user",
				slog.String("op", op),
				slog.String("username", redact.Username(username)),
			)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s.IssuePair(ctx, user, rc)
}

// CreateRefreshSecret создаёт новую refresh-сессию и возвращает plaintext
// составного секрета — единственный момент, когда он существует вне рук
// клиента. Вызывается из IssuePair и Rotate, но пригоден и как
// самостоятельная операция: очистка и кап сессий выполняются здесь же.
func (s *Service) CreateRefreshSecret(ctx context.Context, user *models.User, rc models.RequestContext) (string, error) {
	const op = "service.manager.CreateRefreshSecret"

	lg := log.From(ctx)
	now := time.Now().UTC()

	// Best-effort обслуживание: ошибки очистки/эвикции не роняют выдачу.
	_, _ = s.cleanupExpired(ctx, user.ID, now)
	_, _ = s.enforceSessionLimit(ctx, user.ID, now)

	sessionID := uuid.New()
	plain := buildRefreshSecret(user.Username, sessionID, now.Unix())

	session := &models.RefreshSession{
		ID:                sessionID,
		UserID:            user.ID,
		SecretFingerprint: fingerprintSecret(plain),
		CreatedAt:         now,
		ExpiresAt:         now.Add(s.cfg.RefreshTokenTTL),
		DeviceInfo:        rc.UserAgent,
		OriginAddr:        rc.OriginAddr,
		Revoked:           false,
	}

	if err := s.storage.SaveSession(ctx, session); err != nil {
		lg.Error("save_session_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return "", fmt.Errorf("%s: %w", op, err)
	}

	s.cacheSet(ctx, session)

	return plain, nil
}

// Refresh выпускает новый access-токен по предъявленному refresh-секрету.
// Операция идемпотентна относительно last_used_at: повтор с тем же ещё
// валидным секретом снова успешен.
func (s *Service) Refresh(ctx context.Context, secret string, rc models.RequestContext) (string, error) {
	const op = "service.manager.Refresh"

	accessToken, _, err := s.refresh(ctx, secret, rc)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return accessToken, nil
}

// refresh — общая валидация+выпуск для Refresh и Rotate; возвращает также
// владельца сессии, чтобы ротация не делала повторный lookup.
//
// Ожидаемые отказы (малформенный/просроченный секрет, неактивная сессия,
// несовпадение личности) пишутся в аудит с конкретной причиной и
// возвращаются как ErrInvalidSecret-класс; ошибки хранилища поднимаются
// как есть и в аудит не попадают.
func (s *Service) refresh(ctx context.Context, secret string, rc models.RequestContext) (string, *models.User, error) {
	const op = "service.manager.refresh"

	lg := log.From(ctx)
	now := time.Now().UTC()

	parts, err := parseRefreshSecret(secret)
	if err != nil {
		_, _ = s.audit(ctx, nil, models.AuditSessionRefreshFailed, rc, false, "malformed secret")
		return "", nil, fmt.Errorf("%s: %w", op, ErrMalformedSecret)
	}

	// Replay-потолок: ограничивает возраст ПРЕДЪЯВЛЕННОГО секрета по вшитому
	// таймстемпу, независимо от expires_at самой сессии.
	if now.Unix()-parts.CreatedAt > int64(s.cfg.ReplayWindow.Seconds()) {
		_, _ = s.audit(ctx, nil, models.AuditSessionRefreshFailed, rc, false, "secret older than replay window")
		return "", nil, fmt.Errorf("%s: %w", op, ErrStaleSecret)
	}

	// Кэш — негативный авторитет: отозванная/истёкшая запись отклоняет
	// refresh без похода в БД. Положительный ответ всё равно подтверждается
	// хранилищем ниже.
	if s.scache != nil {
		if e, ok, cerr := s.scache.Get(ctx, parts.SessionID); cerr == nil && ok {
			if e.Revoked || !e.ExpiresAt.After(now) {
				_, _ = s.audit(ctx, nil, models.AuditSessionRefreshFailed, rc, false, "session revoked or expired (cache)")
				return "", nil, fmt.Errorf("%s: %w", op, ErrSessionNotActive)
			}
		}
	}

	session, err := s.storage.ActiveSessionByID(ctx, parts.SessionID, now)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			lg.Warn("refresh_session_not_active",
				slog.String("op", op),
			)
			_, _ = s.audit(ctx, nil, models.AuditSessionRefreshFailed, rc, false, "session not found, revoked or expired")
			return "", nil, fmt.Errorf("%s: %w", op, ErrSessionNotActive)
		}

		lg.Error("refresh_session_lookup_failed",
			slog.String("op", op),
			slog.String("err", err.Error()),
		)
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}

	user, err := s.storage.UserByUsername(ctx, parts.Username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			_, _ = s.audit(ctx, &session.UserID, models.AuditSessionRefreshFailed, rc, false, "unknown username in secret")
			return "", nil, fmt.Errorf("%s: %w", op, ErrIdentityMismatch)
		}

		return "", nil, fmt.Errorf("%s: %w", op, err)
	}

	if user.ID != session.UserID {
		_, _ = s.audit(ctx, &session.UserID, models.AuditSessionRefreshFailed, rc, false, "username does not own session")
		return "", nil, fmt.Errorf("%s: %w", op, ErrIdentityMismatch)
	}

	if err := s.storage.TouchSession(ctx, session.ID, now); err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}

	_, _ = s.audit(ctx, &user.ID, models.AuditSessionRefreshed, rc, true, "")

	accessToken, err := s.generateAccessToken(ctx, user.Username, now)
	if err != nil {
		return "", nil, fmt.Errorf("%s: %w", op, err)
	}

	s.cacheSet(ctx, session)

	return accessToken, user, nil
}

// Rotate атомарно (с точки зрения клиента) заменяет refresh-сессию:
// валидирует старый секрет как Refresh, отзывает старую сессию и
// выпускает новую пару. Старый секрет после успешной ротации одноразово
// мёртв: повторный Refresh по нему отклоняется.
func (s *Service) Rotate(ctx context.Context, oldSecret string, rc models.RequestContext) (*models.TokenPair, error) {
	const op = "service.manager.Rotate"

	if !s.cfg.RotationEnabled {
		return nil, fmt.Errorf("%s: %w", op, ErrRotationDisabled)
	}

	accessToken, user, err := s.refresh(ctx, oldSecret, rc)
	if err != nil {
		// refresh уже записал свой failed-аудит для ожидаемых отказов.
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	parts, err := parseRefreshSecret(oldSecret)
	if err != nil {
		// Секрет только что прошёл parse внутри refresh; сюда не попадаем.
		_, _ = s.audit(ctx, &user.ID, models.AuditSessionRotationFailed, rc, false, "re-parse of old secret failed")
		return nil, fmt.Errorf("%s: %w", op, ErrMalformedSecret)
	}

	if _, err := s.storage.RevokeSession(ctx, parts.SessionID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		_, _ = s.audit(ctx, &user.ID, models.AuditSessionRotationFailed, rc, false, "revoke of old session failed")
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.cacheMarkRevoked(ctx, parts.SessionID)

	newSecret, err := s.CreateRefreshSecret(ctx, user, rc)
	if err != nil {
		_, _ = s.audit(ctx, &user.ID, models.AuditSessionRotationFailed, rc, false, "creation of replacement session failed")
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	_, _ = s.audit(ctx, &user.ID, models.AuditSessionRotated, rc, true, "")

	return &models.TokenPair{
		AccessToken:   accessToken,
		RefreshSecret: newSecret,
		TokenType:     "bearer",
		ExpiresIn:     int64(s.cfg.AccessTokenTTL.Seconds()),
	}, nil
}

// RevokeOne отзывает сессию, на которую указывает секрет.
// Возвращает, была ли строка найдена и переведена в revoked.
// Отзыв терминален: обратного перехода нет.
func (s *Service) RevokeOne(ctx context.Context, secret string) (bool, error) {
	const op = "service.manager.RevokeOne"

	parts, err := parseRefreshSecret(secret)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, ErrMalformedSecret)
	}

	revoked, err := s.storage.RevokeSession(ctx, parts.SessionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return false, nil
		}

		return false, fmt.Errorf("%s: %w", op, err)
	}

	s.cacheMarkRevoked(ctx, parts.SessionID)

	return revoked, nil
}

// RevokeAll безусловно отзывает все активные сессии пользователя.
func (s *Service) RevokeAll(ctx context.Context, userID uuid.UUID) (int64, error) {
	const op = "service.manager.RevokeAll"

	n, err := s.storage.RevokeAllSessions(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return n, nil
}

// cleanupExpired жёстко удаляет просроченные сессии пользователя.
// Best-effort: результат (ok, err) вызывающие сознательно отбрасывают,
// обслуживание не должно стать причиной отказа выдачи.
func (s *Service) cleanupExpired(ctx context.Context, userID uuid.UUID, now time.Time) (bool, error) {
	const op = "service.manager.cleanupExpired"

	if err := s.storage.DeleteExpiredSessions(ctx, userID, now); err != nil {
		log.From(ctx).Warn("expired_cleanup_failed",
			slog.String("op", op),
			slog.String("user_id", userID.String()),
			slog.String("err", err.Error()),
		)
		return false, err
	}

	return true, nil
}

// cacheSet кладёт состояние сессии в кэш (best-effort).
func (s *Service) cacheSet(ctx context.Context, session *models.RefreshSession) {
	if s.scache == nil {
		return
	}

	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return
	}

	entry := &cache.SessionEntry{
		UserID:    session.UserID,
		Revoked:   session.Revoked,
		ExpiresAt: session.ExpiresAt,
	}
	if err := s.scache.Set(ctx, session.ID, entry, ttl); err != nil {
		log.From(ctx).Warn("session_cache_set_failed",
			slog.String("session_id", session.ID.String()),
			slog.String("err", err.Error()),
		)
	}
}

// cacheMarkRevoked помечает сессию отозванной в кэше (best-effort).
func (s *Service) cacheMarkRevoked(ctx context.Context, sessionID uuid.UUID) {
	if s.scache == nil {
		return
	}

	if err := s.scache.MarkRevoked(ctx, sessionID); err != nil {
		log.From(ctx).Warn("session_cache_revoke_failed",
			slog.String("session_id", sessionID.String()),
			slog.String("err", err.Error()),
		)
	}
}
