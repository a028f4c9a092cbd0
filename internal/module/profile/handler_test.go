package profile

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/thevvip/server/internal/shared/middleware"
)

type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) GetByID(ctx context.Context, id string) (*Profile, error) {
	args := m.Called(ctx, id)
	if p := args.Get(0); p != nil {
		return p.(*Profile), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepository) SetVerificationDoc(ctx context.Context, id, key string) error {
	return m.Called(ctx, id, key).Error(0)
}

func (m *mockRepository) UpdateVerification(ctx context.Context, id, status string) error {
	return m.Called(ctx, id, status).Error(0)
}

type mockObjectStore struct {
	mock.Mock
}

func (m *mockObjectStore) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, key, expiry)
	return args.String(0), args.Error(1)
}

func (m *mockObjectStore) PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, key, contentType, expiry)
	return args.String(0), args.Error(1)
}

func newUploadServer(repo Repository, store *mockObjectStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserID, "user-1")
		c.Next()
	})
	NewHandler(repo, store, zap.NewNop()).RegisterRoutes(router.Group("/api/v1"))
	return router
}

func postUploadURL(router *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/profile/verification/upload-url", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestVerificationUploadURL(t *testing.T) {
	t.Run("presigns and records the document key", func(t *testing.T) {
		repo := new(mockRepository)
		store := new(mockObjectStore)

		store.On("PresignPut", mock.Anything, mock.MatchedBy(func(key string) bool {
			return strings.HasPrefix(key, "verification/user-1/") && strings.HasSuffix(key, ".jpg")
		}), "image/jpeg", 15*time.Minute).Return("https://bucket.example.com/put", nil)
		repo.On("SetVerificationDoc", mock.Anything, "user-1", mock.Anything).Return(nil)

		w := postUploadURL(newUploadServer(repo, store), `{"content_type":"image/jpeg"}`)

		require.Equal(t, http.StatusOK, w.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "https://bucket.example.com/put", body["upload_url"])
		assert.Contains(t, body["key"], "verification/user-1/")
		assert.EqualValues(t, 900, body["expires_in"])
		repo.AssertExpectations(t)
		store.AssertExpectations(t)
	})

	t.Run("rejects unsupported content types", func(t *testing.T) {
		store := new(mockObjectStore)
		w := postUploadURL(newUploadServer(new(mockRepository), store), `{"content_type":"application/pdf"}`)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		store.AssertNotCalled(t, "PresignPut", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing content type", func(t *testing.T) {
		w := postUploadURL(newUploadServer(new(mockRepository), new(mockObjectStore)), `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown profile", func(t *testing.T) {
		repo := new(mockRepository)
		store := new(mockObjectStore)

		store.On("PresignPut", mock.Anything, mock.Anything, "image/png", 15*time.Minute).
			Return("https://bucket.example.com/put", nil)
		repo.On("SetVerificationDoc", mock.Anything, "user-1", mock.Anything).Return(ErrNotFound)

		w := postUploadURL(newUploadServer(repo, store), `{"content_type":"image/png"}`)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
