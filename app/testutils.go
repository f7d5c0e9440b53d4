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

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yqhuang/forumist/internal/analyticsservice"
	"github.com/yqhuang/forumist/internal/categoryservice"
	"github.com/yqhuang/forumist/internal/commentservice"
	"github.com/yqhuang/forumist/internal/common"
	"github.com/yqhuang/forumist/internal/mailservice"
	"github.com/yqhuang/forumist/internal/postservice"
	"github.com/yqhuang/forumist/internal/userservice"
)

type testServer struct {
	*httptest.Server
}

func newTestServer(t *testing.T, h http.Handler) *testServer {
	ts := httptest.NewServer(h)

	t.Cleanup(ts.Close)

	return &testServer{ts}
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

func newTestApplication(t *testing.T) (*application, *sql.DB) {
	db := common.TestDB("file://../migrations", t)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	rabbitURI := common.TestRabbitMQ(t)
	rabbitmq, err := common.NewMessageBroker(rabbitURI)
	assert.NoError(t, err)

	err = common.SetupUserExchange(rabbitmq)
	assert.NoError(t, err)

	cfg := &Config{
		Environment:      "test",
		Version:          "test",
		RateLimitRPS:     100,
		RateLimitBurst:   200,
		RateLimitEnabled: true,
	}

	cache := common.NewCache(common.DefaultCacheTTL, 10*time.Minute)

	app := &application{
		config:           cfg,
		logger:           logger,
		cache:            cache,
		userService:      userservice.NewUserService(db, rabbitmq, cache),
		analyticsService: analyticsservice.NewAnalyticsService(db, cache),
		postService:      postservice.NewPostService(db, cache),
		categoryService:  categoryservice.NewCategoryService(db, cache),
		commentService:   commentservice.NewCommentService(db, cache),
		mailService:      mailservice.NewMailService(rabbitmq, "localhost", "test", "test", "test@example.com", 1025, logger),
		broker:           rabbitmq,
	}

	return app, db
}

// registerActivatedUser creates an activated account through the service layer
// and returns an access token for it.
func registerActivatedUser(t *testing.T, app *application, username, email, password string) string {
	t.Helper()

	ctx := context.Background()

	token, err := app.userService.CreateUser(ctx, username, email, password)
	require.NoError(t, err)

	require.NoError(t, app.userService.ActivateUser(ctx, *token))

	authToken, err := app.userService.LoginUser(ctx, username, password)
	require.NoError(t, err)

	return authToken.AccessTokenPlain
}

// grantAdmin adds the admin permission directly since there is no endpoint
// that does it.
func grantAdmin(t *testing.T, db *sql.DB, username string) {
	t.Helper()

	_, err := db.Exec(`
		INSERT INTO user_permissions (user_id, permission)
		SELECT id, 'admin' FROM users WHERE username = $1`, username)
	require.NoError(t, err)
}

func insertTestCategory(t *testing.T, db *sql.DB, name string) int {
	t.Helper()

	var id int
	err := db.QueryRow(`
		INSERT INTO categories (name, description)
		VALUES ($1, $2)
		RETURNING id`, name, "category for "+name).Scan(&id)
	require.NoError(t, err)

	return id
}

func (ts *testServer) post(t *testing.T, path string, data any, token *string) (int, http.Header, envelope) {
	jsonPayload, err := json.Marshal(data)
	if err != nil {
		t.Fatal(err)
	}

	body := bytes.NewReader(jsonPayload)
	req, err := http.NewRequest(http.MethodPost, ts.URL+path, body)
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
	req, err := http.NewRequest(http.MethodGet, ts.URL+path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if token != nil {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", *token))
	}
	res, err := ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}

	return readResponse(t, res)
}

func (ts *testServer) put(t *testing.T, path string, token *string, payload any) (int, http.Header, envelope) {
	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}

	body := bytes.NewReader(jsonPayload)
	req, err := http.NewRequest(http.MethodPut, ts.URL+path, body)
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

func (ts *testServer) delete(t *testing.T, path string, token *string) (int, http.Header, envelope) {
	req, err := http.NewRequest(http.MethodDelete, ts.URL+path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if token != nil {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", *token))
	}
	res, err := ts.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}

	return readResponse(t, res)
}
