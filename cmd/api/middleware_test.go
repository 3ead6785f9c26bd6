package main

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func strptr(s string) *string {
	return &s
}

func TestRecoverPanic(t *testing.T) {
	app := &application{
		config: &Config{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("something went wrong")
	})

	middleware := app.recoverPanic(handler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	res := httptest.NewRecorder()

	middleware.ServeHTTP(res, req)

	assert.Equal(t, http.StatusInternalServerError, res.Code)
	assert.Equal(t, "close", res.Header().Get("Connection"))
}

func TestAuthenticate(t *testing.T) {
	app, db := newTestApplication(t)

	_, validToken := registerActivatedUser(t, app, db, "authuser")

	tests := []struct {
		name           string
		token          *string
		expectedStatus int
	}{
		{
			name:           "no authentication header",
			token:          nil,
			expectedStatus: http.StatusOK,
		},
		{
			name:           "malformed token",
			token:          strptr("invalid-token"),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "unknown token",
			token:          strptr(strings.Repeat("A", 26)),
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "valid token",
			token:          &validToken,
			expectedStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})

			middleware := app.authenticate(handler)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.token != nil {
				req.Header.Set("Authorization", "Bearer "+*tt.token)
			}

			res := httptest.NewRecorder()
			middleware.ServeHTTP(res, req)

			assert.Equal(t, tt.expectedStatus, res.Code)
		})
	}
}

func TestRateLimit(t *testing.T) {
	app := &application{
		config: &Config{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	app.config.Limiter.RPS = 2
	app.config.Limiter.Burst = 4
	app.config.Limiter.Enabled = true

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	middleware := app.rateLimit(handler)

	server := httptest.NewServer(middleware)
	defer server.Close()

	var lastStatusCode int
	for i := 0; i < 6; i++ {
		res, err := http.Get(server.URL)
		assert.NoError(t, err)
		res.Body.Close()

		lastStatusCode = res.StatusCode
	}

	assert.Equal(t, http.StatusTooManyRequests, lastStatusCode)
}
