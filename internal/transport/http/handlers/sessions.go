package handlers

import (
	"net/http"

	"github.com/google/uuid"

	apierrors "github.com/reefdir/session-service/internal/transport/http/errors"
)

type issueSessionRequest struct {
	Username  string `json:"username"`
	UserAgent string `json:"user_agent,omitempty"`
}

type tokenPairResponse struct {
	AccessToken   string `json:"access_token"`
	RefreshSecret string `json:"refresh_secret"`
	TokenType     string `json:"token_type"`
	ExpiresIn     int64  `json:"expires_in"`
}

// IssueSession выпускает пару access+refresh для уже аутентифицированного
// пользователя. Неизвестный username — 404.
func (h *Handlers) IssueSession(w http.ResponseWriter, r *http.Request) {
	var in issueSessionRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, invalidArgument("bad json"))
		return
	}
	if in.Username == "" {
		apierrors.WriteError(w, r, invalidArgument("username is required"))
		return
	}

	pair, err := h.Service.IssueForUsername(r.Context(), in.Username, requestContext(r, in.UserAgent))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenPairResponse{
		AccessToken:   pair.AccessToken,
		RefreshSecret: pair.RefreshSecret,
		TokenType:     pair.TokenType,
		ExpiresIn:     pair.ExpiresIn,
	})
}

type refreshRequest struct {
	RefreshSecret string `json:"refresh_secret"`
}

type refreshResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// RefreshSession выпускает новый access-токен по refresh-секрету.
// Любая причина отказа (малформенный секрет, просрочка, отзыв,
// несовпадение личности) — единообразный 401.
func (h *Handlers) RefreshSession(w http.ResponseWriter, r *http.Request) {
	var in refreshRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, invalidArgument("bad json"))
		return
	}
	if in.RefreshSecret == "" {
		apierrors.WriteError(w, r, invalidArgument("refresh_secret is required"))
		return
	}

	accessToken, err := h.Service.Refresh(r.Context(), in.RefreshSecret, requestContext(r, ""))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, refreshResponse{
		AccessToken: accessToken,
		TokenType:   "bearer",
		ExpiresIn:   h.Service.AccessTokenTTLSeconds(),
	})
}

// RotateSession заменяет refresh-сессию: отзывает старую и выдаёт полную
// новую пару. При выключенной ротации — 501.
func (h *Handlers) RotateSession(w http.ResponseWriter, r *http.Request) {
	var in refreshRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, invalidArgument("bad json"))
		return
	}
	if in.RefreshSecret == "" {
		apierrors.WriteError(w, r, invalidArgument("refresh_secret is required"))
		return
	}

	pair, err := h.Service.Rotate(r.Context(), in.RefreshSecret, requestContext(r, ""))
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenPairResponse{
		AccessToken:   pair.AccessToken,
		RefreshSecret: pair.RefreshSecret,
		TokenType:     pair.TokenType,
		ExpiresIn:     pair.ExpiresIn,
	})
}

type revokeResponse struct {
	Revoked bool `json:"revoked"`
}

// RevokeSession отзывает одну сессию по секрету. Отсутствующая или уже
// отозванная сессия — не ошибка: revoked=false.
func (h *Handlers) RevokeSession(w http.ResponseWriter, r *http.Request) {
	var in refreshRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, invalidArgument("bad json"))
		return
	}
	if in.RefreshSecret == "" {
		apierrors.WriteError(w, r, invalidArgument("refresh_secret is required"))
		return
	}

	revoked, err := h.Service.RevokeOne(r.Context(), in.RefreshSecret)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, revokeResponse{Revoked: revoked})
}

type revokeAllRequest struct {
	UserID string `json:"user_id"`
}

type revokeAllResponse struct {
	Revoked int64 `json:"revoked"`
}

// RevokeAllSessions отзывает все активные сессии пользователя.
func (h *Handlers) RevokeAllSessions(w http.ResponseWriter, r *http.Request) {
	var in revokeAllRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, invalidArgument("bad json"))
		return
	}

	userID, err := uuid.Parse(in.UserID)
	if err != nil {
		apierrors.WriteError(w, r, invalidArgument("user_id must be a uuid"))
		return
	}

	n, err := h.Service.RevokeAll(r.Context(), userID)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, revokeAllResponse{Revoked: n})
}
