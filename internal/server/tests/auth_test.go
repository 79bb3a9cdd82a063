package tests

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/azaliaz/grimoire/internal/config"
	"github.com/azaliaz/grimoire/internal/server"
	"github.com/azaliaz/grimoire/internal/server/mocks"
	storerrros "github.com/azaliaz/grimoire/internal/storage/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newServer(t *testing.T) (*server.Server, *mocks.MockStorage, string) {
	t.Helper()
	ctrl := gomock.NewController(t)
	t.Cleanup(ctrl.Finish)

	mockStorage := mocks.NewMockStorage(ctrl)
	cfg := config.Config{
		Addr:     ":8080",
		ImageDir: t.TempDir(),
	}
	return server.New(cfg, mockStorage), mockStorage, cfg.ImageDir
}

func setupAuthRouter(s *server.Server) *gin.Engine {
	r := gin.New()
	r.POST("/api/auth/signup", s.SignUp)
	r.POST("/api/auth/login", s.Login)
	return r
}

func TestSignUp_Success(t *testing.T) {
	s, mockStorage, _ := newServer(t)

	mockStorage.EXPECT().
		SaveUser(gomock.Any()).
		Return("some_id", nil).
		Times(1)

	router := setupAuthRouter(s)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", strings.NewReader(`{"email":"a@x.com","password":"pw1"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "user created")
}

func TestSignUp_BadRequest(t *testing.T) {
	s, _, _ := newServer(t)

	router := setupAuthRouter(s)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", strings.NewReader(`invalid json`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSignUp_UserAlreadyExists(t *testing.T) {
	s, mockStorage, _ := newServer(t)

	mockStorage.EXPECT().SaveUser(gomock.Any()).Return("", storerrros.ErrUserExists)

	router := setupAuthRouter(s)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", strings.NewReader(`{"email":"exists@x.com","password":"pw1"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), storerrros.ErrUserExists.Error())
}

func TestLogin_Success(t *testing.T) {
	s, mockStorage, _ := newServer(t)

	mockStorage.EXPECT().ValidUser(gomock.Any()).Return("user-uuid-1", nil)

	router := setupAuthRouter(s)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"a@x.com","password":"pw1"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		UserID string `json:"userId"`
		Token  string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "user-uuid-1", resp.UserID)
	assert.NotEmpty(t, resp.Token)
}

// unknown email and wrong password must be indistinguishable to the client
func TestLogin_BadCredentialsIdentical(t *testing.T) {
	s, mockStorage, _ := newServer(t)
	router := setupAuthRouter(s)

	call := func(storErr error) *httptest.ResponseRecorder {
		mockStorage.EXPECT().ValidUser(gomock.Any()).Return("", storErr)
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"a@x.com","password":"nope"}`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	unknownEmail := call(storerrros.ErrUserNotFound)
	wrongPass := call(storerrros.ErrInvalidPassword)

	assert.Equal(t, http.StatusUnauthorized, unknownEmail.Code)
	assert.Equal(t, http.StatusUnauthorized, wrongPass.Code)
	assert.Equal(t, unknownEmail.Body.String(), wrongPass.Body.String())
}

func TestLogin_InternalError(t *testing.T) {
	s, mockStorage, _ := newServer(t)

	mockStorage.EXPECT().ValidUser(gomock.Any()).Return("", assert.AnError)

	router := setupAuthRouter(s)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"a@x.com","password":"pw1"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestJWTMiddleware(t *testing.T) {
	s, mockStorage, _ := newServer(t)

	mockStorage.EXPECT().ValidUser(gomock.Any()).Return("user-uuid-1", nil)

	router := setupAuthRouter(s)
	router.GET("/protected", s.JWTAuthMiddleware(), func(ctx *gin.Context) {
		ctx.String(http.StatusOK, ctx.GetString("uid"))
	})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"a@x.com","password":"pw1"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+resp.Token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "user-uuid-1", w.Body.String())
	})

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", resp.Token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer not.a.token")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
