package models

// TokenPair — пара учётных данных, выдаваемая при создании/ротации сессии.
//
// Описание:
//   - AccessToken — короткоживущий подписанный JWT (stateless);
//   - RefreshSecret — plaintext составного refresh-секрета; вне рук клиента
//     существует только в момент выдачи, на сервере хранится лишь отпечаток;
//   - TokenType — всегда "bearer";
//   - ExpiresIn — срок жизни access-токена в секундах.
type TokenPair struct {
	// AccessToken — JWT для авторизации запросов.
	AccessToken string
	// RefreshSecret — составной секрет для обновления пары.
	RefreshSecret string
	// TokenType — тип учётных данных ("bearer").
	TokenType string
	// ExpiresIn — время жизни access-токена, сек.
	ExpiresIn int64
}
