package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"medi-chat-go/internal/model"
	"medi-chat-go/pkg/log"
	"medi-chat-go/pkg/token"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	log.Init("error", "json", "")
	m.Run()
}

// fakeUserService 只实现认证中间件用到的 GetByID，其余方法返回错误。
type fakeUserService struct {
	user *model.User
}

func (f *fakeUserService) Register(_, _, _ string) (*model.User, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeUserService) Login(_, _ string) (*model.User, string, string, error) {
	return nil, "", "", errors.New("not implemented")
}

func (f *fakeUserService) RefreshToken(_ string) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeUserService) GetByID(_ uint) (*model.User, error) {
	if f.user == nil {
		return nil, errors.New("user not found")
	}
	return f.user, nil
}

func newAuthTestRouter(jwtManager *token.JWTManager, userService *fakeUserService) *gin.Engine {
	r := gin.New()
	r.GET("/protected", AuthMiddleware(jwtManager, userService), func(c *gin.Context) {
		user := c.MustGet("user").(*model.User)
		c.JSON(http.StatusOK, gin.H{"username": user.Username})
	})
	return r
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	jwtManager := token.NewJWTManager("test-secret", 1, 30)
	r := newAuthTestRouter(jwtManager, &fakeUserService{user: &model.User{ID: 1, Username: "alice"}})

	tokenString, err := jwtManager.GenerateToken(1, "alice")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "alice")
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	jwtManager := token.NewJWTManager("test-secret", 1, 30)
	r := newAuthTestRouter(jwtManager, &fakeUserService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_MalformedHeader(t *testing.T) {
	jwtManager := token.NewJWTManager("test-secret", 1, 30)
	r := newAuthTestRouter(jwtManager, &fakeUserService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Token abc")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	jwtManager := token.NewJWTManager("test-secret", 1, 30)
	r := newAuthTestRouter(jwtManager, &fakeUserService{user: &model.User{ID: 1}})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-valid-token")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddleware_DeletedUser(t *testing.T) {
	jwtManager := token.NewJWTManager("test-secret", 1, 30)
	// token 有效但用户已不存在
	r := newAuthTestRouter(jwtManager, &fakeUserService{user: nil})

	tokenString, err := jwtManager.GenerateToken(1, "ghost")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+tokenString)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
