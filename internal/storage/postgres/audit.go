package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/reefdir/session-service/internal/models"
)

// SaveAuditEntry добавляет запись в журнал аудита.
// Таблица append-only: UPDATE/DELETE по ней в коде подсистемы отсутствуют.
func (s *Storage) SaveAuditEntry(ctx context.Context, entry *models.AuditEntry) error {
	const op = "storage.postgres.SaveAuditEntry"

	query := `
        INSERT INTO auth_audit_log(user_id, action, origin_addr, user_agent, ts, success, detail)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `

	_, err := s.db.Exec(ctx, query,
		entry.UserID,
		entry.Action,
		entry.OriginAddr,
		entry.UserAgent,
		entry.Timestamp,
		entry.Success,
		entry.Detail,
	)

	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// ListAuditEntries возвращает последние записи журнала по пользователю.
func (s *Storage) ListAuditEntries(ctx context.Context, userID uuid.UUID, limit int) ([]models.AuditEntry, error) {
	const op = "storage.postgres.ListAuditEntries"

	if limit <= 0 {
		limit = 100
	}

	query := `
        SELECT id, user_id, action, origin_addr, user_agent, ts, success, detail
        FROM auth_audit_log
        WHERE user_id = $1
        ORDER BY ts DESC, id DESC
        LIMIT $2
    `

	rows, err := s.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(
			&e.ID,
			&e.UserID,
			&e.Action,
			&e.OriginAddr,
			&e.UserAgent,
			&e.Timestamp,
			&e.Success,
			&e.Detail,
		); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return entries, nil
}
