package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/reefdir/session-service/internal/models"
)

var (
	// ErrNotFound — запись не найдена (пользователь/сессия).
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (id сессии/username).
	ErrAlreadyExists = errors.New("already exists")
)

// UserStorage выполняет операции над пользователями.
// Регистрация/аутентификация — зона внешнего CRUD-слоя; здесь нужен
// только поиск личности для сверки принадлежности сессии.
type UserStorage interface {
	// UserByUsername находит пользователя по username.
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// SaveUser создает пользователя (используется внешним слоем и тестами).
	SaveUser(ctx context.Context, user *models.User) error
}

// SessionStorage выполняет операции над refresh-сессиями.
type SessionStorage interface {
	// SaveSession сохраняет новую активную refresh-сессию.
	SaveSession(ctx context.Context, session *models.RefreshSession) error
	// ActiveSessionByID возвращает сессию по id, только если она
	// не отозвана и не истекла на момент now; иначе ErrNotFound.
	// Это единственный lookup, используемый при refresh.
	ActiveSessionByID(ctx context.Context, id uuid.UUID, now time.Time) (*models.RefreshSession, error)
	// TouchSession проставляет last_used_at = now.
	TouchSession(ctx context.Context, id uuid.UUID, now time.Time) error
	// RevokeSession пытается отозвать сессию.
	// Возвращает:
	//	(true, nil)  — сессия была активна и отозвана сейчас;
	//	(false, nil) — сессия существует, но уже была отозвана;
	//	(false, ErrNotFound) — сессия не найдена.
	RevokeSession(ctx context.Context, id uuid.UUID) (bool, error)
	// RevokeAllSessions отзывает все неотозванные сессии пользователя,
	// возвращает число затронутых строк.
	RevokeAllSessions(ctx context.Context, userID uuid.UUID) (int64, error)
	// DeleteExpiredSessions жёстко удаляет просроченные сессии пользователя.
	DeleteExpiredSessions(ctx context.Context, userID uuid.UUID, now time.Time) error
	// CountActiveSessions возвращает число активных сессий пользователя.
	CountActiveSessions(ctx context.Context, userID uuid.UUID, now time.Time) (int, error)
	// OldestActiveSession возвращает id самой старой (created_at ASC)
	// активной сессии пользователя; ErrNotFound, если активных нет.
	OldestActiveSession(ctx context.Context, userID uuid.UUID, now time.Time) (uuid.UUID, error)
}

// AuditStorage выполняет операции над журналом аудита.
// Журнал append-only: изменение и удаление записей не предусмотрены контрактом.
type AuditStorage interface {
	// SaveAuditEntry добавляет запись в журнал.
	SaveAuditEntry(ctx context.Context, entry *models.AuditEntry) error
	// ListAuditEntries возвращает последние записи пользователя (timestamp DESC).
	ListAuditEntries(ctx context.Context, userID uuid.UUID, limit int) ([]models.AuditEntry, error)
}

// Storage задает контракт работы с БД.
type Storage interface {
	UserStorage
	SessionStorage
	AuditStorage
	Close()
}
