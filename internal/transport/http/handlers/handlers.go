package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/reefdir/session-service/internal/models"
	"github.com/reefdir/session-service/internal/service"
	apierrors "github.com/reefdir/session-service/internal/transport/http/errors"
)

// Handlers агрегирует зависимости (сервисный слой).
type Handlers struct {
	Service *service.Service
}

func New(s *service.Service) *Handlers {
	return &Handlers{Service: s}
}

// writeJSON — единый ответ JSON с нужным Content-Type.
// Ошибки выводим через apierrors.WriteError.
func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// decodeStrict — строгий JSON-декодер: запрещаем неизвестные поля.
func decodeStrict(r *http.Request, value any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(value)
}

// invalidArgument — вспомогалка: локальная ошибка парсинга -> 400.
func invalidArgument(msg string) error {
	return fmt.Errorf("%w: %s", apierrors.ErrInvalidArgument, msg)
}

// requestContext собирает метаданные запроса для аудита и refresh-сессий.
// User-Agent из тела (если клиент действует от лица устройства) имеет
// приоритет над заголовком.
func requestContext(r *http.Request, bodyUserAgent string) models.RequestContext {
	ua := bodyUserAgent
	if ua == "" {
		ua = r.UserAgent()
	}

	return models.RequestContext{
		UserAgent:  ua,
		OriginAddr: r.RemoteAddr,
	}
}
