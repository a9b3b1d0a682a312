package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/burhanit11/youtubechannel-backend/pkg/errors"
	"github.com/burhanit11/youtubechannel-backend/pkg/middleware"
)

// ============================================================================
// ContentTypeJSON
// ============================================================================

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestContentTypeJSON_ValidJSON_Passes(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{"key":"value"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	ContentTypeJSON(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestContentTypeJSON_WithCharset_Passes(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rec := httptest.NewRecorder()

	ContentTypeJSON(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestContentTypeJSON_WrongContentType_Rejected(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader("key=value"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	ContentTypeJSON(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	var body map[string]map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "UNSUPPORTED_MEDIA_TYPE", body["error"]["code"])
}

func TestContentTypeJSON_MissingContentType_Rejected(t *testing.T) {
	// Mutating methods must declare a JSON body even when it is empty.
	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodPatch} {
		t.Run(method, func(t *testing.T) {
			req := httptest.NewRequest(method, "/test", nil)
			rec := httptest.NewRecorder()

			ContentTypeJSON(okHandler()).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
		})
	}
}

func TestContentTypeJSON_GetWithoutBody_Passes(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()

	ContentTypeJSON(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestContentTypeJSON_DeleteWithoutBody_Passes(t *testing.T) {
	req := httptest.NewRequest(http.MethodDelete, "/test", nil)
	rec := httptest.NewRecorder()

	ContentTypeJSON(okHandler()).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

// ============================================================================
// CORS
// ============================================================================

func TestCORS_Development_Wildcard(t *testing.T) {
	handler := CORS(CORSConfig{Environment: "development"})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Origin", "https://anywhere.example.com")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_Production_AllowedOrigin(t *testing.T) {
	handler := CORS(CORSConfig{
		Environment:    "production",
		AllowedOrigins: []string{"https://vidtube.example.com"},
	})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Origin", "https://vidtube.example.com")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, "https://vidtube.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Equal(t, "Origin", rec.Header().Get("Vary"))
}

func TestCORS_Production_DisallowedOrigin(t *testing.T) {
	handler := CORS(CORSConfig{
		Environment:    "production",
		AllowedOrigins: []string{"https://vidtube.example.com"},
	})(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_Preflight_NoContent(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	handler := CORS(CORSConfig{Environment: "development"})(next)

	req := httptest.NewRequest(http.MethodOptions, "/test", nil)
	req.Header.Set("Origin", "https://vidtube.example.com")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, called, "preflight must not reach the handler")
	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Methods"))
}

// ============================================================================
// Authenticate / OptionalAuthenticate
// ============================================================================

// userIDCapture records the user ID the middleware placed on the context.
func userIDCapture(captured *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = middleware.UserIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthenticate_BearerHeader(t *testing.T) {
	repo := new(mockUserRepo)
	tokens := handlerTestTokens()
	user := sampleUser()
	repo.On("GetByID", mock.Anything, user.ID).Return(user, nil)

	accessToken, err := tokens.GenerateAccessToken(user.ID, user.Username, user.Email)
	require.NoError(t, err)

	var captured string
	handler := Authenticate(tokens, repo, handlerTestLogger())(userIDCapture(&captured))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, user.ID, captured)
}

func TestAuthenticate_CookieWinsOverHeader(t *testing.T) {
	repo := new(mockUserRepo)
	tokens := handlerTestTokens()
	user := sampleUser()
	repo.On("GetByID", mock.Anything, user.ID).Return(user, nil)

	accessToken, err := tokens.GenerateAccessToken(user.ID, user.Username, user.Email)
	require.NoError(t, err)

	var captured string
	handler := Authenticate(tokens, repo, handlerTestLogger())(userIDCapture(&captured))

	// The header carries garbage; the cookie must be the one consulted.
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.AddCookie(&http.Cookie{Name: accessTokenCookie, Value: accessToken})
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, user.ID, captured)
}

func TestAuthenticate_MissingToken(t *testing.T) {
	repo := new(mockUserRepo)
	handler := Authenticate(handlerTestTokens(), repo, handlerTestLogger())(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "UNAUTHORIZED", resp.Error.Code)
}

func TestAuthenticate_InvalidToken(t *testing.T) {
	repo := new(mockUserRepo)
	handler := Authenticate(handlerTestTokens(), repo, handlerTestLogger())(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer not.a.token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_TOKEN", resp.Error.Code)
}

func TestAuthenticate_RefreshTokenRejected(t *testing.T) {
	// A refresh token is signed with a different secret and must not grant
	// access.
	repo := new(mockUserRepo)
	tokens := handlerTestTokens()

	refreshToken, err := tokens.GenerateRefreshToken(testUserID)
	require.NoError(t, err)

	handler := Authenticate(tokens, repo, handlerTestLogger())(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer "+refreshToken)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_TOKEN", resp.Error.Code)
}

func TestAuthenticate_DeletedAccount(t *testing.T) {
	repo := new(mockUserRepo)
	tokens := handlerTestTokens()
	repo.On("GetByID", mock.Anything, testUserID).Return(nil, apperrors.ErrNotFound)

	accessToken, err := tokens.GenerateAccessToken(testUserID, "johndoe", "john@example.com")
	require.NoError(t, err)

	handler := Authenticate(tokens, repo, handlerTestLogger())(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_TOKEN", resp.Error.Code)
}

func TestOptionalAuthenticate_Anonymous(t *testing.T) {
	repo := new(mockUserRepo)

	var captured string
	handler := OptionalAuthenticate(handlerTestTokens(), repo)(userIDCapture(&captured))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, captured)
}

func TestOptionalAuthenticate_BadTokenFallsThrough(t *testing.T) {
	repo := new(mockUserRepo)

	var captured string
	handler := OptionalAuthenticate(handlerTestTokens(), repo)(userIDCapture(&captured))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, captured)
	repo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestOptionalAuthenticate_ValidToken(t *testing.T) {
	repo := new(mockUserRepo)
	tokens := handlerTestTokens()
	user := sampleUser()
	repo.On("GetByID", mock.Anything, user.ID).Return(user, nil)

	accessToken, err := tokens.GenerateAccessToken(user.ID, user.Username, user.Email)
	require.NoError(t, err)

	var captured string
	handler := OptionalAuthenticate(tokens, repo)(userIDCapture(&captured))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.AddCookie(&http.Cookie{Name: accessTokenCookie, Value: accessToken})
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, user.ID, captured)
}
