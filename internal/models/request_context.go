package models

// RequestContext — advisory-метаданные вызова, передаваемые транспортным слоем.
// Используются только для журнала аудита и описания устройства сессии;
// в решениях авторизации не участвуют (вход неаутентифицирован).
type RequestContext struct {
	// UserAgent — свободный текст клиента.
	UserAgent string
	// OriginAddr — сетевой адрес источника, best-effort.
	OriginAddr string
}
