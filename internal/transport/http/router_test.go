package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/reefdir/session-service/internal/config"
	"github.com/reefdir/session-service/internal/models"
	"github.com/reefdir/session-service/internal/service"
	"github.com/reefdir/session-service/internal/storage"
	"github.com/reefdir/session-service/mocks"
)

func testAuthCfg() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:         "router-secret",
		AccessTokenTTL:    time.Minute,
		RefreshTokenTTL:   24 * time.Hour,
		ReplayWindow:      168 * time.Hour,
		MaxActiveSessions: 5,
		Issuer:            "session-service",
		Audience:          []string{"api-gateway"},
		RotationEnabled:   true,
		AuditEnabled:      false, // аудит-поток проверяется юнит-тестами сервиса
	}
}

func newTestRouter(t *testing.T, cfg config.AuthConfig) (http.Handler, *mocks.MockStorage) {
	t.Helper()

	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)
	st := mocks.NewMockStorage(ctrl)

	svc := service.New(st, cfg)
	return NewRouter(svc, Options{Timeout: 5 * time.Second}), st
}

func doJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	b, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "router-test-agent")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), out))
}

type errEnvelope struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id,omitempty"`
	} `json:"error"`
}

func TestRouter_IssueSession_OK(t *testing.T) {
	t.Parallel()

	h, st := newTestRouter(t, testAuthCfg())

	user := &models.User{ID: uuid.New(), Username: "alice"}
	var saved *models.RefreshSession

	st.EXPECT().UserByUsername(gomock.Any(), "alice").Return(user, nil)
	st.EXPECT().DeleteExpiredSessions(gomock.Any(), user.ID, gomock.Any()).Return(nil)
	st.EXPECT().CountActiveSessions(gomock.Any(), user.ID, gomock.Any()).Return(0, nil)
	st.EXPECT().SaveSession(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, s *models.RefreshSession) error {
			saved = s
			return nil
		})

	rr := doJSON(t, h, "/sessions", map[string]string{"username": "alice"})
	require.Equal(t, http.StatusOK, rr.Code)

	var out struct {
		AccessToken   string `json:"access_token"`
		RefreshSecret string `json:"refresh_secret"`
		TokenType     string `json:"token_type"`
		ExpiresIn     int64  `json:"expires_in"`
	}
	decodeBody(t, rr, &out)
	require.NotEmpty(t, out.AccessToken)
	require.NotEmpty(t, out.RefreshSecret)
	require.Equal(t, "bearer", out.TokenType)
	require.EqualValues(t, 60, out.ExpiresIn)

	// User-Agent запроса попал в метаданные сессии.
	require.NotNil(t, saved)
	require.Equal(t, "router-test-agent", saved.DeviceInfo)
}

func TestRouter_IssueSession_UnknownUser_404(t *testing.T) {
	t.Parallel()

	h, st := newTestRouter(t, testAuthCfg())
	st.EXPECT().UserByUsername(gomock.Any(), "ghost").Return(nil, storage.ErrNotFound)

	rr := doJSON(t, h, "/sessions", map[string]string{"username": "ghost"})
	require.Equal(t, http.StatusNotFound, rr.Code)

	var env errEnvelope
	decodeBody(t, rr, &env)
	require.Equal(t, "not_found", env.Error.Code)
}

func TestRouter_IssueSession_BadRequest(t *testing.T) {
	t.Parallel()

	h, _ := newTestRouter(t, testAuthCfg())

	// Пустой username.
	rr := doJSON(t, h, "/sessions", map[string]string{"username": ""})
	require.Equal(t, http.StatusBadRequest, rr.Code)

	// Неизвестное поле — decodeStrict отвергает.
	rr = doJSON(t, h, "/sessions", map[string]string{"username": "alice", "password": "nope"})
	require.Equal(t, http.StatusBadRequest, rr.Code)

	// Битый JSON.
	req := httptest.NewRequest(http.MethodPost, "/sessions", bytes.NewReader([]byte("{broken")))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_Refresh_OK(t *testing.T) {
	t.Parallel()

	h, st := newTestRouter(t, testAuthCfg())

	user := &models.User{ID: uuid.New(), Username: "alice"}
	sessionID := uuid.New()
	now := time.Now().UTC()
	secret := "alice:" + sessionID.String() + ":" + unixStr(now.Unix())

	session := &models.RefreshSession{
		ID:        sessionID,
		UserID:    user.ID,
		CreatedAt: now.Add(-time.Minute),
		ExpiresAt: now.Add(time.Hour),
	}

	st.EXPECT().ActiveSessionByID(gomock.Any(), sessionID, gomock.Any()).Return(session, nil)
	st.EXPECT().UserByUsername(gomock.Any(), "alice").Return(user, nil)
	st.EXPECT().TouchSession(gomock.Any(), sessionID, gomock.Any()).Return(nil)

	rr := doJSON(t, h, "/sessions/refresh", map[string]string{"refresh_secret": secret})
	require.Equal(t, http.StatusOK, rr.Code)

	var out struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	decodeBody(t, rr, &out)
	require.NotEmpty(t, out.AccessToken)
	require.Equal(t, "bearer", out.TokenType)
	require.EqualValues(t, 60, out.ExpiresIn)
}

func TestRouter_Refresh_InvalidSecret_401_Uniform(t *testing.T) {
	t.Parallel()

	h, st := newTestRouter(t, testAuthCfg())

	// Неактивная сессия.
	sessionID := uuid.New()
	secret := "alice:" + sessionID.String() + ":" + unixStr(time.Now().Unix())
	st.EXPECT().ActiveSessionByID(gomock.Any(), sessionID, gomock.Any()).Return(nil, storage.ErrNotFound)

	for _, body := range []map[string]string{
		{"refresh_secret": "garbage"}, // малформенный
		{"refresh_secret": secret},    // неактивная сессия
	} {
		rr := doJSON(t, h, "/sessions/refresh", body)
		require.Equal(t, http.StatusUnauthorized, rr.Code)

		var env errEnvelope
		decodeBody(t, rr, &env)
		// Единый ответ: причина отказа не различима снаружи.
		require.Equal(t, "unauthenticated", env.Error.Code)
		require.Equal(t, "unauthenticated", env.Error.Message)
	}
}

func TestRouter_Refresh_StorageError_500_NoLeak(t *testing.T) {
	t.Parallel()

	h, st := newTestRouter(t, testAuthCfg())

	sessionID := uuid.New()
	secret := "alice:" + sessionID.String() + ":" + unixStr(time.Now().Unix())
	st.EXPECT().ActiveSessionByID(gomock.Any(), sessionID, gomock.Any()).
		Return(nil, errors.New("pq: connection refused at 10.1.2.3"))

	rr := doJSON(t, h, "/sessions/refresh", map[string]string{"refresh_secret": secret})
	require.Equal(t, http.StatusInternalServerError, rr.Code)

	var env errEnvelope
	decodeBody(t, rr, &env)
	require.Equal(t, "internal", env.Error.Code)
	require.NotContains(t, rr.Body.String(), "10.1.2.3")
}

func TestRouter_Rotate_Disabled_501(t *testing.T) {
	t.Parallel()

	cfg := testAuthCfg()
	cfg.RotationEnabled = false
	h, _ := newTestRouter(t, cfg)

	rr := doJSON(t, h, "/sessions/rotate", map[string]string{"refresh_secret": "whatever"})
	require.Equal(t, http.StatusNotImplemented, rr.Code)

	var env errEnvelope
	decodeBody(t, rr, &env)
	require.Equal(t, "unimplemented", env.Error.Code)
}

func TestRouter_Rotate_OK_ReturnsNewPair(t *testing.T) {
	t.Parallel()

	h, st := newTestRouter(t, testAuthCfg())

	user := &models.User{ID: uuid.New(), Username: "alice"}
	oldID := uuid.New()
	now := time.Now().UTC()
	oldSecret := "alice:" + oldID.String() + ":" + unixStr(now.Unix())

	session := &models.RefreshSession{
		ID:        oldID,
		UserID:    user.ID,
		CreatedAt: now.Add(-time.Minute),
		ExpiresAt: now.Add(time.Hour),
	}

	st.EXPECT().ActiveSessionByID(gomock.Any(), oldID, gomock.Any()).Return(session, nil)
	st.EXPECT().UserByUsername(gomock.Any(), "alice").Return(user, nil)
	st.EXPECT().TouchSession(gomock.Any(), oldID, gomock.Any()).Return(nil)
	st.EXPECT().RevokeSession(gomock.Any(), oldID).Return(true, nil)
	st.EXPECT().DeleteExpiredSessions(gomock.Any(), user.ID, gomock.Any()).Return(nil)
	st.EXPECT().CountActiveSessions(gomock.Any(), user.ID, gomock.Any()).Return(1, nil)
	st.EXPECT().SaveSession(gomock.Any(), gomock.Any()).Return(nil)

	rr := doJSON(t, h, "/sessions/rotate", map[string]string{"refresh_secret": oldSecret})
	require.Equal(t, http.StatusOK, rr.Code)

	var out struct {
		AccessToken   string `json:"access_token"`
		RefreshSecret string `json:"refresh_secret"`
	}
	decodeBody(t, rr, &out)
	require.NotEmpty(t, out.AccessToken)
	require.NotEmpty(t, out.RefreshSecret)
	require.NotEqual(t, oldSecret, out.RefreshSecret)
}

func TestRouter_Revoke_OK(t *testing.T) {
	t.Parallel()

	h, st := newTestRouter(t, testAuthCfg())

	sessionID := uuid.New()
	secret := "alice:" + sessionID.String() + ":" + unixStr(time.Now().Unix())
	st.EXPECT().RevokeSession(gomock.Any(), sessionID).Return(true, nil)

	rr := doJSON(t, h, "/sessions/revoke", map[string]string{"refresh_secret": secret})
	require.Equal(t, http.StatusOK, rr.Code)

	var out struct {
		Revoked bool `json:"revoked"`
	}
	decodeBody(t, rr, &out)
	require.True(t, out.Revoked)
}

func TestRouter_Revoke_MissingSession_RevokedFalse(t *testing.T) {
	t.Parallel()

	h, st := newTestRouter(t, testAuthCfg())

	sessionID := uuid.New()
	secret := "alice:" + sessionID.String() + ":" + unixStr(time.Now().Unix())
	st.EXPECT().RevokeSession(gomock.Any(), sessionID).Return(false, storage.ErrNotFound)

	rr := doJSON(t, h, "/sessions/revoke", map[string]string{"refresh_secret": secret})
	require.Equal(t, http.StatusOK, rr.Code)

	var out struct {
		Revoked bool `json:"revoked"`
	}
	decodeBody(t, rr, &out)
	require.False(t, out.Revoked)
}

func TestRouter_RevokeAll_OK(t *testing.T) {
	t.Parallel()

	h, st := newTestRouter(t, testAuthCfg())

	userID := uuid.New()
	st.EXPECT().RevokeAllSessions(gomock.Any(), userID).Return(int64(4), nil)

	rr := doJSON(t, h, "/sessions/revoke_all", map[string]string{"user_id": userID.String()})
	require.Equal(t, http.StatusOK, rr.Code)

	var out struct {
		Revoked int64 `json:"revoked"`
	}
	decodeBody(t, rr, &out)
	require.EqualValues(t, 4, out.Revoked)
}

func TestRouter_RevokeAll_BadUUID_400(t *testing.T) {
	t.Parallel()

	h, _ := newTestRouter(t, testAuthCfg())

	rr := doJSON(t, h, "/sessions/revoke_all", map[string]string{"user_id": "not-a-uuid"})
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRouter_ValidateToken_ValidAndInvalid(t *testing.T) {
	t.Parallel()

	cfg := testAuthCfg()
	h, st := newTestRouter(t, cfg)

	// Валидный токен получаем через issue-поток.
	user := &models.User{ID: uuid.New(), Username: "alice"}
	st.EXPECT().UserByUsername(gomock.Any(), "alice").Return(user, nil)
	st.EXPECT().DeleteExpiredSessions(gomock.Any(), user.ID, gomock.Any()).Return(nil)
	st.EXPECT().CountActiveSessions(gomock.Any(), user.ID, gomock.Any()).Return(0, nil)
	st.EXPECT().SaveSession(gomock.Any(), gomock.Any()).Return(nil)

	issued := doJSON(t, h, "/sessions", map[string]string{"username": "alice"})
	require.Equal(t, http.StatusOK, issued.Code)

	var pair struct {
		AccessToken string `json:"access_token"`
	}
	decodeBody(t, issued, &pair)

	rr := doJSON(t, h, "/tokens/validate", map[string]string{"access_token": pair.AccessToken})
	require.Equal(t, http.StatusOK, rr.Code)

	var out struct {
		Valid   bool   `json:"valid"`
		Subject string `json:"subject"`
	}
	decodeBody(t, rr, &out)
	require.True(t, out.Valid)
	require.Equal(t, "alice", out.Subject)

	// Невалидный токен — не 401, а valid=false.
	rr = doJSON(t, h, "/tokens/validate", map[string]string{"access_token": "garbage"})
	require.Equal(t, http.StatusOK, rr.Code)
	out = struct {
		Valid   bool   `json:"valid"`
		Subject string `json:"subject"`
	}{}
	decodeBody(t, rr, &out)
	require.False(t, out.Valid)
	require.Empty(t, out.Subject)
}

func TestRouter_RequestID_InResponseAndErrorBody(t *testing.T) {
	t.Parallel()

	h, _ := newTestRouter(t, testAuthCfg())

	body, _ := json.Marshal(map[string]string{"refresh_secret": "garbage"})
	req := httptest.NewRequest(http.MethodPost, "/sessions/refresh", bytes.NewReader(body))
	req.Header.Set("X-Request-Id", "rid-789")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Equal(t, "rid-789", rr.Header().Get("X-Request-Id"))

	var env errEnvelope
	decodeBody(t, rr, &env)
	require.Equal(t, "rid-789", env.Error.RequestID)
}

// unixStr — unix-таймстемп строкой для сборки секрета в тестах.
func unixStr(v int64) string {
	return strconv.FormatInt(v, 10)
}
