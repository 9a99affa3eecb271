package handlers

import (
	"errors"
	"net/http"

	"github.com/reefdir/session-service/internal/service"
	apierrors "github.com/reefdir/session-service/internal/transport/http/errors"
)

type validateTokenRequest struct {
	AccessToken string `json:"access_token"`
}

type validateTokenResponse struct {
	Valid   bool   `json:"valid"`
	Subject string `json:"subject,omitempty"`
}

// ValidateToken проверяет access-токен и возвращает subject при успехе.
// Невалидный токен — не 401, а valid=false: эндпойнт спрашивает "валиден ли",
// отрицательный ответ — штатный исход.
func (h *Handlers) ValidateToken(w http.ResponseWriter, r *http.Request) {
	var in validateTokenRequest
	if err := decodeStrict(r, &in); err != nil {
		apierrors.WriteError(w, r, invalidArgument("bad json"))
		return
	}
	if in.AccessToken == "" {
		apierrors.WriteError(w, r, invalidArgument("access_token is required"))
		return
	}

	subject, err := h.Service.ValidateToken(r.Context(), in.AccessToken)
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			writeJSON(w, http.StatusOK, validateTokenResponse{Valid: false})
			return
		}

		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, validateTokenResponse{Valid: true, Subject: subject})
}
