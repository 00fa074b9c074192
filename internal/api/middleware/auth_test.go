package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ck3fence/ck3fence/internal/api/middleware"
	"github.com/ck3fence/ck3fence/internal/auth"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddlewarePassesThroughWhenNotRequired(t *testing.T) {
	os.Unsetenv("CK3FENCE_REQUIRE_AUTH")
	os.Unsetenv("CK3FENCE_API_KEYS")

	chain := auth.NewProviderChain()
	chain.RegisterProvider(auth.NewAPIKeyProvider())
	am := middleware.NewAuthMiddleware(chain)
	handler := am.Handler(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/mods", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthMiddlewareValidKeyBearer(t *testing.T) {
	os.Setenv("CK3FENCE_API_KEYS", "test-key-1,test-key-2")
	defer os.Unsetenv("CK3FENCE_API_KEYS")

	chain := auth.NewProviderChain()
	provider := auth.NewAPIKeyProvider()
	require.True(t, provider.Enabled())
	chain.RegisterProvider(provider)
	am := middleware.NewAuthMiddleware(chain)
	handler := am.Handler(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/mods", nil)
	req.Header.Set("Authorization", "Bearer test-key-1")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthMiddlewareValidKeyHeader(t *testing.T) {
	os.Setenv("CK3FENCE_API_KEYS", "test-key-2")
	defer os.Unsetenv("CK3FENCE_API_KEYS")

	chain := auth.NewProviderChain()
	chain.RegisterProvider(auth.NewAPIKeyProvider())
	am := middleware.NewAuthMiddleware(chain)
	handler := am.Handler(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/mods", nil)
	req.Header.Set("X-API-Key", "test-key-2")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthMiddlewareInvalidKeyRejected(t *testing.T) {
	os.Setenv("CK3FENCE_API_KEYS", "valid-key")
	defer os.Unsetenv("CK3FENCE_API_KEYS")
	os.Setenv("CK3FENCE_REQUIRE_AUTH", "true")
	defer os.Unsetenv("CK3FENCE_REQUIRE_AUTH")

	chain := auth.NewProviderChain()
	chain.RegisterProvider(auth.NewAPIKeyProvider())
	am := middleware.NewAuthMiddleware(chain)
	handler := am.Handler(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/mods", nil)
	req.Header.Set("Authorization", "Bearer wrong-key")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareRequiredButMissingKeyRejected(t *testing.T) {
	os.Setenv("CK3FENCE_API_KEYS", "valid-key")
	defer os.Unsetenv("CK3FENCE_API_KEYS")
	os.Setenv("CK3FENCE_REQUIRE_AUTH", "true")
	defer os.Unsetenv("CK3FENCE_REQUIRE_AUTH")

	chain := auth.NewProviderChain()
	chain.RegisterProvider(auth.NewAPIKeyProvider())
	am := middleware.NewAuthMiddleware(chain)
	handler := am.Handler(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/mods", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewarePublicPathsSkipAuth(t *testing.T) {
	os.Setenv("CK3FENCE_API_KEYS", "valid-key")
	defer os.Unsetenv("CK3FENCE_API_KEYS")
	os.Setenv("CK3FENCE_REQUIRE_AUTH", "true")
	defer os.Unsetenv("CK3FENCE_REQUIRE_AUTH")

	chain := auth.NewProviderChain()
	chain.RegisterProvider(auth.NewAPIKeyProvider())
	am := middleware.NewAuthMiddleware(chain)
	handler := am.Handler(okHandler())

	for _, path := range []string{"/health", "/version", "/health/ready"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, "public path %q", path)
	}
}
