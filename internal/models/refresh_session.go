package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshSession — серверная запись refresh-сессии, одна строка на выданный
// refresh-секрет.
//
// Описание:
//   - ID — непрозрачный идентификатор сессии, генерируется сервером;
//   - SecretFingerprint — односторонний хэш (sha256 → base64url) plaintext-секрета;
//     сам секрет в БД не попадает никогда; поле неизменяемо после создания;
//   - Revoked — монотонный флаг false→true, обратного перехода нет;
//   - LastUsedAt — nil до первого успешного refresh;
//   - DeviceInfo/OriginAddr — неаутентифицированные advisory-метаданные запроса,
//     в решениях авторизации не участвуют.
//
// Сессия активна тогда и только тогда, когда Revoked=false и ExpiresAt > now.
type RefreshSession struct {
	ID                uuid.UUID
	UserID            uuid.UUID
	SecretFingerprint string
	CreatedAt         time.Time
	ExpiresAt         time.Time
	LastUsedAt        *time.Time
	DeviceInfo        string
	OriginAddr        string
	Revoked           bool
}

// Active сообщает, активна ли сессия на момент now.
func (s *RefreshSession) Active(now time.Time) bool {
	return !s.Revoked && s.ExpiresAt.After(now)
}
