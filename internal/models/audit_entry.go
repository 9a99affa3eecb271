package models

import (
	"time"

	"github.com/google/uuid"
)

// Audit-действия подсистемы сессий. Записи append-only: подсистема
// никогда не изменяет и не удаляет строки журнала.
const (
	AuditSessionCreated        = "session-created"
	AuditSessionRefreshed      = "session-refreshed"
	AuditSessionRefreshFailed  = "session-refresh-failed"
	AuditSessionRotated        = "session-rotated"
	AuditSessionRotationFailed = "session-rotation-failed"
)

// AuditEntry — запись журнала аутентификационных событий.
//
// UserID nullable: часть отказов происходит до того, как личность известна
// (например, малформенный секрет). Detail содержит конкретную причину отказа,
// которая наружу (вызывающему) никогда не отдаётся.
type AuditEntry struct {
	ID         int64
	UserID     *uuid.UUID
	Action     string
	OriginAddr string
	UserAgent  string
	Timestamp  time.Time
	Success    bool
	Detail     string
}
