package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/blurblog/blur/internal/blogservice"
	"github.com/blurblog/blur/internal/common"
	"github.com/blurblog/blur/internal/engageservice"
	"github.com/blurblog/blur/internal/userservice"
)

type testServer struct {
	*httptest.Server
}

func newTestServer(t *testing.T, h http.Handler) *testServer {
	ts := httptest.NewServer(h)

	t.Cleanup(ts.Close)

	return &testServer{ts}
}

func newTestApplication(t *testing.T) (*application, *sql.DB) {
	db := common.TestDB("file://../../migrations", t)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	blobs, err := common.NewFileStore(t.TempDir())
	require.NoError(t, err)

	cache := common.NewCache(time.Minute, 5*time.Minute)
	blogService := blogservice.NewBlogService(db, cache, blobs, logger)

	cfg := &Config{
		Port:        ":0",
		Environment: "test",
		Version:     "test",
	}

	app := &application{
		config:        cfg,
		logger:        logger,
		userService:   userservice.NewUserService(db, nil, cache),
		blogService:   blogService,
		engageService: engageservice.NewEngageService(db, blogService, nil),
	}

	return app, db
}

func readResponse(t *testing.T, res *http.Response) (int, http.Header, envelope) {
	defer res.Body.Close()

	responseBody, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatal(err)
	}

	var envelope envelope
	err = json.Unmarshal(responseBody, &envelope)
	if err != nil {
		t.Fatal(err)
	}

	return res.StatusCode, res.Header, envelope
}

func (ts *testServer) request(t *testing.T, method, path string, payload any, token *string) (int, http.Header, envelope) {
	var body io.Reader

	if payload != nil {
		jsonPayload, err := json.Marshal(payload)
		if err != nil {
			t.Fatal(err)
		}
		body = bytes.NewReader(jsonPayload)
	}

	req, err := http.NewRequest(method, ts.URL+path, body)
	if err != nil {
		t.Fatal(err)
	}

	req.Header.Set("Content-Type", "application/json")
	if token != nil {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", *token))
	}

	res, err := ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}

	return readResponse(t, res)
}

func (ts *testServer) get(t *testing.T, path string, token *string) (int, http.Header, envelope) {
	return ts.request(t, http.MethodGet, path, nil, token)
}

func (ts *testServer) post(t *testing.T, path string, payload any, token *string) (int, http.Header, envelope) {
	return ts.request(t, http.MethodPost, path, payload, token)
}

func (ts *testServer) put(t *testing.T, path string, payload any, token *string) (int, http.Header, envelope) {
	return ts.request(t, http.MethodPut, path, payload, token)
}

func (ts *testServer) patch(t *testing.T, path string, payload any, token *string) (int, http.Header, envelope) {
	return ts.request(t, http.MethodPatch, path, payload, token)
}

func (ts *testServer) delete(t *testing.T, path string, token *string) (int, http.Header, envelope) {
	return ts.request(t, http.MethodDelete, path, nil, token)
}

// registerActivatedUser seeds an activated user with the blog:write permission
// and returns its id and a live access token.
func registerActivatedUser(t *testing.T, app *application, db *sql.DB, username string) (int, string) {
	t.Helper()

	_, err := app.userService.CreateUser(context.Background(), username, username+"@example.com", "Test_1234!")
	require.NoError(t, err)

	var userId int
	err = db.QueryRow("UPDATE users SET activated = true WHERE username = $1 RETURNING id", username).Scan(&userId)
	require.NoError(t, err)

	_, err = db.Exec("INSERT INTO user_permissions (user_id, permission) VALUES ($1, $2)", userId, userservice.PermissionWriteBlog)
	require.NoError(t, err)

	token, err := app.userService.LoginUser(context.Background(), username, "Test_1234!")
	require.NoError(t, err)

	return userId, token.AccessTokenPlain
}
