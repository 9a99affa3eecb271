package models

import (
	"time"

	"github.com/google/uuid"
)

// User - модель пользователя в системе.
// Аутентификация (проверка пароля) выполняется внешним слоем;
// здесь пользователь — уже проверенная личность, нужная для выпуска
// токенов и сверки принадлежности сессии.
type User struct {
	ID        uuid.UUID
	Username  string
	CreatedAt time.Time
	UpdatedAt time.Time
}
