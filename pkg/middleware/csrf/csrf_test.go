package csrf

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func newEcho() *echo.Echo {
	e := echo.New()
	e.Use(Middleware(Config{SkipPaths: []string{"/hook"}}))
	ok := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }
	e.GET("/cart", ok)
	e.POST("/checkout", ok)
	e.POST("/hook", ok)
	return e
}

func TestCSRF(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		method   string
		path     string
		prepare  func(r *http.Request)
		wantCode int
	}{
		{name: "safe method issues token", method: http.MethodGet, path: "/cart", prepare: func(r *http.Request) {}, wantCode: http.StatusNoContent},
		{
			name: "matching token same origin", method: http.MethodPost, path: "/checkout",
			prepare: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: "XSRF-TOKEN", Value: "tok"})
				r.AddCookie(&http.Cookie{Name: "accessToken", Value: "a"})
				r.Header.Set("X-CSRF-Token", "tok")
				r.Header.Set("Origin", "http://example.com")
			},
			wantCode: http.StatusNoContent,
		},
		{
			name: "mismatched token", method: http.MethodPost, path: "/checkout",
			prepare: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: "XSRF-TOKEN", Value: "tok"})
				r.AddCookie(&http.Cookie{Name: "accessToken", Value: "a"})
				r.Header.Set("X-CSRF-Token", "other")
				r.Header.Set("Origin", "http://example.com")
			},
			wantCode: http.StatusForbidden,
		},
		{
			name: "foreign origin", method: http.MethodPost, path: "/checkout",
			prepare: func(r *http.Request) {
				r.AddCookie(&http.Cookie{Name: "XSRF-TOKEN", Value: "tok"})
				r.AddCookie(&http.Cookie{Name: "accessToken", Value: "a"})
				r.Header.Set("X-CSRF-Token", "tok")
				r.Header.Set("Origin", "http://evil.test")
			},
			wantCode: http.StatusForbidden,
		},
		{
			name: "bearer client exempt", method: http.MethodPost, path: "/checkout",
			prepare: func(r *http.Request) {
				r.Header.Set(echo.HeaderAuthorization, "Bearer abc")
			},
			wantCode: http.StatusNoContent,
		},
		{name: "skip path", method: http.MethodPost, path: "/hook", prepare: func(r *http.Request) {}, wantCode: http.StatusNoContent},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(tt.method, "http://example.com"+tt.path, nil)
			tt.prepare(req)
			rec := httptest.NewRecorder()
			newEcho().ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.method == http.MethodGet {
				assert.NotEmpty(t, rec.Header().Get("X-CSRF-Token"))
			}
		})
	}
}
