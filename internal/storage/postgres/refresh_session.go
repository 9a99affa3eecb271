package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/reefdir/session-service/internal/models"
	"github.com/reefdir/session-service/internal/storage"
)

// SaveSession сохраняет новую refresh-сессию в БД.
func (s *Storage) SaveSession(ctx context.Context, session *models.RefreshSession) error {
	const op = "storage.postgres.SaveSession"

	query := `
        INSERT INTO refresh_sessions(id, user_id, secret_fingerprint, created_at, expires_at, last_used_at, device_info, origin_addr, revoked)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `

	_, err := s.db.Exec(ctx, query,
		session.ID,
		session.UserID,
		session.SecretFingerprint,
		session.CreatedAt,
		session.ExpiresAt,
		session.LastUsedAt,
		session.DeviceInfo,
		session.OriginAddr,
		session.Revoked,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// ActiveSessionByID находит сессию по id среди неотозванных и неистёкших.
// Отозванная, истёкшая и отсутствующая сессии неразличимы для вызывающего:
// во всех трёх случаях возвращается storage.ErrNotFound.
func (s *Storage) ActiveSessionByID(ctx context.Context, id uuid.UUID, now time.Time) (*models.RefreshSession, error) {
	const op = "storage.postgres.ActiveSessionByID"

	query := `
        SELECT id, user_id, secret_fingerprint, created_at, expires_at, last_used_at, device_info, origin_addr, revoked
        FROM refresh_sessions
        WHERE id = $1 AND revoked = FALSE AND expires_at > $2
    `

	var session models.RefreshSession
	err := s.db.QueryRow(ctx, query, id, now).Scan(
		&session.ID,
		&session.UserID,
		&session.SecretFingerprint,
		&session.CreatedAt,
		&session.ExpiresAt,
		&session.LastUsedAt,
		&session.DeviceInfo,
		&session.OriginAddr,
		&session.Revoked,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &session, nil
}

// TouchSession проставляет last_used_at = now.
func (s *Storage) TouchSession(ctx context.Context, id uuid.UUID, now time.Time) error {
	const op = "storage.postgres.TouchSession"

	query := `
        UPDATE refresh_sessions
        SET last_used_at = $2
        WHERE id = $1
    `

	cmdTag, err := s.db.Exec(ctx, query, id, now)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}

// RevokeSession пытается отозвать сессию, если она ещё не была отозвана.
// Возвращает:
//
//	(true, nil)  — сессия была активна и успешно отозвана сейчас;
//	(false, nil) — сессия существует, но уже была отозвана;
//	(false, ErrNotFound) — сессия не найдена.
func (s *Storage) RevokeSession(ctx context.Context, id uuid.UUID) (bool, error) {
	const op = "storage.postgres.RevokeSession"

	const upd = `
		UPDATE refresh_sessions
		SET revoked = TRUE
		WHERE id = $1 AND revoked = FALSE
		RETURNING user_id
	`

	var userID uuid.UUID
	err := s.db.QueryRow(ctx, upd, id).Scan(&userID)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	const sel = `
		SELECT revoked
		FROM refresh_sessions
		WHERE id = $1
	`

	var revoked bool
	err = s.db.QueryRow(ctx, sel, id).Scan(&revoked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return false, fmt.Errorf("%s: %w", op, err)
	}

	return false, nil
}

// RevokeAllSessions отзывает все неотозванные сессии пользователя.
func (s *Storage) RevokeAllSessions(ctx context.Context, userID uuid.UUID) (int64, error) {
	const op = "storage.postgres.RevokeAllSessions"

	query := `
        UPDATE refresh_sessions
        SET revoked = TRUE
        WHERE user_id = $1 AND revoked = FALSE
    `

	cmdTag, err := s.db.Exec(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return cmdTag.RowsAffected(), nil
}

// DeleteExpiredSessions жёстко удаляет просроченные сессии пользователя.
// Удаление не зависит от revoked: истёкшая строка исчезает в любом случае.
func (s *Storage) DeleteExpiredSessions(ctx context.Context, userID uuid.UUID, now time.Time) error {
	const op = "storage.postgres.DeleteExpiredSessions"

	query := `
        DELETE FROM refresh_sessions
        WHERE user_id = $1 AND expires_at <= $2
    `

	_, err := s.db.Exec(ctx, query, userID, now)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// CountActiveSessions возвращает число активных сессий пользователя.
func (s *Storage) CountActiveSessions(ctx context.Context, userID uuid.UUID, now time.Time) (int, error) {
	const op = "storage.postgres.CountActiveSessions"

	query := `
        SELECT COUNT(*)
        FROM refresh_sessions
        WHERE user_id = $1 AND revoked = FALSE AND expires_at > $2
    `

	var count int
	if err := s.db.QueryRow(ctx, query, userID, now).Scan(&count); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return count, nil
}

// OldestActiveSession возвращает id самой старой активной сессии пользователя.
func (s *Storage) OldestActiveSession(ctx context.Context, userID uuid.UUID, now time.Time) (uuid.UUID, error) {
	const op = "storage.postgres.OldestActiveSession"

	query := `
        SELECT id
        FROM refresh_sessions
        WHERE user_id = $1 AND revoked = FALSE AND expires_at > $2
        ORDER BY created_at ASC
        LIMIT 1
    `

	var id uuid.UUID
	err := s.db.QueryRow(ctx, query, userID, now).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}
