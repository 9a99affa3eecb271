// service содержит бизнес-логику управления учётными данными сессий:
// выпуск пары access/refresh, обновление и ротацию по refresh-секрету,
// отзыв сессий и журналирование событий через интерфейсы пакета storage.
//
// Основные аспекты:
//   - Пакет не хранит состояние запроса внутри Service; экземпляр Service
//     безопасен для конкурентного использования из разных горутин при условии,
//     что переданное хранилище (storage.Storage) потокобезопасно.
//   - Четыре ожидаемых класса отказов refresh-потока (малформенный секрет,
//     просроченный по replay-окну секрет, неактивная сессия, несовпадение
//     личности) оборачивают один ErrInvalidSecret: транспорту достаточно
//     errors.Is(err, ErrInvalidSecret), конкретная причина уходит только
//     в журнал аудита и наружу не отдаётся.
//   - Ошибки хранилища и подписи НЕ сворачиваются в ErrInvalidSecret —
//     они инфраструктурные и поднимаются к вызывающему слою как есть.
package service

import (
	"errors"
	"fmt"

	"github.com/reefdir/session-service/internal/cache"
	"github.com/reefdir/session-service/internal/config"
	"github.com/reefdir/session-service/internal/storage"
)

var (
	// ErrInvalidSecret — единый «invalid»-исход refresh-потока.
	// Транспорт: HTTP 401. Причина отказа наружу не раскрывается.
	ErrInvalidSecret = errors.New("invalid refresh secret")

	// ErrMalformedSecret — секрет не состоит из трёх полей через ':'
	// или таймстемп/id сессии не парсится.
	ErrMalformedSecret = fmt.Errorf("%w: malformed", ErrInvalidSecret)

	// ErrStaleSecret — вшитый в секрет таймстемп создания старше replay-окна,
	// независимо от срока жизни самой сессии.
	ErrStaleSecret = fmt.Errorf("%w: stale", ErrInvalidSecret)

	// ErrSessionNotActive — сессия не найдена, отозвана или истекла.
	// Три случая неразличимы для вызывающего.
	ErrSessionNotActive = fmt.Errorf("%w: session not active", ErrInvalidSecret)

	// ErrIdentityMismatch — username из секрета не находится или
	// не владеет сессией.
	ErrIdentityMismatch = fmt.Errorf("%w: identity mismatch", ErrInvalidSecret)

	// ErrInvalidToken — access-токен не прошёл проверку; подпись, срок,
	// алгоритм и малформенность наружу не различаются.
	// Транспорт: HTTP 401 (либо {valid:false} на /tokens/validate).
	ErrInvalidToken = errors.New("invalid token")

	// ErrRotationDisabled — ротация выключена конфигурацией.
	// Транспорт: HTTP 501.
	ErrRotationDisabled = errors.New("rotation disabled")
)

// Service описывает бизнес-логику управления сессиями.
type Service struct {
	storage storage.Storage
	cfg     config.AuthConfig
	scache  cache.SessionCache // может быть nil, если кэш не сконфигурирован
}

// New создаёт новый экземпляр Service.
func New(storage storage.Storage, cfg config.AuthConfig) *Service {
	return &Service{
		storage: storage,
		cfg:     cfg,
	}
}

// SetSessionCache устанавливает кэш состояния сессий (опционально).
func (s *Service) SetSessionCache(c cache.SessionCache) {
	s.scache = c
}

// AccessTokenTTLSeconds — срок жизни access-токена для поля expires_in
// в ответах транспорта.
func (s *Service) AccessTokenTTLSeconds() int64 {
	return int64(s.cfg.AccessTokenTTL.Seconds())
}
