package userservice

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yqhuang/forumist/internal/common"
)

func strptr(s string) *string {
	return &s
}

func testUserData() (username, email, password string) {
	return "testuser", "testuser@example.com", "TestPassword123!"
}

func setupTestEnvironment(t *testing.T) (*UserService, *sql.DB, func() error, error) {
	db := common.TestDB("file://../../migrations", t)
	connURL := common.TestRabbitMQ(t)
	mb, err := common.NewMessageBroker(connURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("could not create message broker: %w", err)
	}

	err = common.SetupUserExchange(mb)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("could not setup user exchange: %w", err)
	}

	c := common.NewCache(common.DefaultCacheTTL, 10*time.Minute)

	cleanup := func() error {
		_, err := db.Exec("DELETE FROM tokens")
		if err != nil {
			return err
		}

		_, err = db.Exec("DELETE FROM auth_tokens")
		if err != nil {
			return err
		}

		_, err = db.Exec("DELETE FROM users")
		if err != nil {
			return err
		}

		c.Flush()

		return nil
	}

	return NewUserService(db, mb, c), db, cleanup, nil
}

func createActivatedUser(t *testing.T, s *UserService) {
	t.Helper()

	ctx := context.Background()
	username, email, password := testUserData()

	token, err := s.CreateUser(ctx, username, email, password)
	require.NoError(t, err)
	require.NotNil(t, token)

	require.NoError(t, s.ActivateUser(ctx, *token))
}

func TestCreateUser(t *testing.T) {
	s, db, cleanup, err := setupTestEnvironment(t)
	assert.NoError(t, err)

	username, email, password := testUserData()

	testCases := []struct {
		name        string
		username    string
		email       string
		password    string
		expectedErr string
	}{
		{
			name:        "valid user",
			username:    username,
			email:       email,
			password:    password,
			expectedErr: "",
		},
		{
			name:        "empty username",
			email:       email,
			password:    password,
			expectedErr: "validation errors: map[username:must be provided]",
		},
		{
			name:        "empty email",
			username:    username,
			password:    password,
			expectedErr: "validation errors: map[email:must be provided]",
		},
		{
			name:        "empty password",
			username:    username,
			email:       email,
			expectedErr: "validation errors: map[password:must be provided]",
		},
		{
			name:        "empty payload",
			expectedErr: "validation errors: map[email:must be provided password:must be provided username:must be provided]",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			token, err := s.CreateUser(ctx, tc.username, tc.email, tc.password)
			if tc.expectedErr == "" {
				assert.NoError(t, err)
			} else {
				assert.EqualError(t, err, tc.expectedErr)
			}

			var count int

			if err == nil {
				assert.NotNil(t, token)

				err = db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count)
				assert.NoError(t, err)
				assert.Equal(t, 1, count)

				err = db.QueryRow("SELECT COUNT(*) FROM tokens").Scan(&count)
				assert.NoError(t, err)
				assert.Equal(t, 1, count)
			} else {
				err = db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count)
				assert.NoError(t, err)
				assert.Equal(t, 0, count)
			}

			t.Cleanup(func() {
				err := cleanup()
				assert.NoError(t, err)
			})
		})
	}
}

func TestActivateUser(t *testing.T) {
	s, db, cleanup, err := setupTestEnvironment(t)
	assert.NoError(t, err)

	setup := func(ctx context.Context, s *UserService) (*string, error) {
		username, email, password := testUserData()
		return s.CreateUser(ctx, username, email, password)
	}

	testCases := []struct {
		name        string
		token       func(context.Context, *UserService) (*string, error)
		expectedErr string
	}{
		{
			name:        "valid token",
			token:       setup,
			expectedErr: "",
		},
		{
			name: "invalid token",
			token: func(ctx context.Context, s *UserService) (*string, error) {
				return strptr("invalid token"), nil
			},
			expectedErr: "validation errors: map[token:invalid token]",
		},
		{
			name: "empty token",
			token: func(ctx context.Context, s *UserService) (*string, error) {
				return strptr(""), nil
			},
			expectedErr: "validation errors: map[token:must be provided]",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()

			token, err := tc.token(ctx, s)
			assert.NoError(t, err)
			assert.NotNil(t, token)

			err = s.ActivateUser(ctx, *token)
			if tc.expectedErr == "" {
				assert.NoError(t, err)
			} else {
				assert.EqualError(t, err, tc.expectedErr)
			}

			var count int

			if err == nil {
				err = db.QueryRow("SELECT COUNT(*) FROM tokens").Scan(&count)
				assert.NoError(t, err)
				assert.Equal(t, 0, count)

				err = db.QueryRow("SELECT COUNT(*) FROM users WHERE activated = true").Scan(&count)
				assert.NoError(t, err)
				assert.Equal(t, 1, count)

				// activation grants the write permissions
				err = db.QueryRow("SELECT COUNT(*) FROM user_permissions").Scan(&count)
				assert.NoError(t, err)
				assert.Equal(t, 2, count)
			} else {
				err = db.QueryRow("SELECT COUNT(*) FROM users WHERE activated = true").Scan(&count)
				assert.NoError(t, err)
				assert.Equal(t, 0, count)
			}

			t.Cleanup(func() {
				err := cleanup()
				assert.NoError(t, err)
			})
		})
	}
}

func TestLoginUser(t *testing.T) {
	s, _, cleanup, err := setupTestEnvironment(t)
	assert.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, cleanup())
	})

	ctx := context.Background()
	createActivatedUser(t, s)

	username, _, password := testUserData()

	t.Run("wrong password", func(t *testing.T) {
		_, err := s.LoginUser(ctx, username, "WrongPassword123!")
		assert.Equal(t, ErrAuthenticationFailure, err)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := s.LoginUser(ctx, "nobody", password)
		assert.Equal(t, ErrAuthenticationFailure, err)
	})

	t.Run("valid login rotates the token pair", func(t *testing.T) {
		first, err := s.LoginUser(ctx, username, password)
		require.NoError(t, err)
		require.NotNil(t, first)
		assert.NotEmpty(t, first.AccessTokenPlain)
		assert.NotEmpty(t, first.RefreshTokenPlain)

		second, err := s.LoginUser(ctx, username, password)
		require.NoError(t, err)
		require.NotNil(t, second)
		assert.NotEmpty(t, second.AccessTokenPlain)
		assert.NotEqual(t, first.AccessTokenPlain, second.AccessTokenPlain)

		// the old pair is gone once a new one is issued
		_, err = s.GetUserByAccessToken(ctx, first.AccessTokenPlain)
		assert.Equal(t, ErrNotFound, err)
	})
}

func TestGetUserByAccessToken(t *testing.T) {
	s, db, cleanup, err := setupTestEnvironment(t)
	assert.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, cleanup())
	})

	ctx := context.Background()
	createActivatedUser(t, s)

	username, _, password := testUserData()

	authToken, err := s.LoginUser(ctx, username, password)
	require.NoError(t, err)

	user, err := s.GetUserByAccessToken(ctx, authToken.AccessTokenPlain)
	require.NoError(t, err)
	assert.Equal(t, username, user.Username)
	assert.Contains(t, user.Permissions, PermissionWritePost)

	// drop the row behind the cache; the cached lookup must still resolve
	_, err = db.Exec("DELETE FROM auth_tokens")
	require.NoError(t, err)

	cached, err := s.GetUserByAccessToken(ctx, authToken.AccessTokenPlain)
	require.NoError(t, err)
	assert.Equal(t, user.ID, cached.ID)
}

func TestLogoutUser(t *testing.T) {
	s, db, cleanup, err := setupTestEnvironment(t)
	assert.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, cleanup())
	})

	ctx := context.Background()
	createActivatedUser(t, s)

	username, _, password := testUserData()

	authToken, err := s.LoginUser(ctx, username, password)
	require.NoError(t, err)

	// warm the token cache
	user, err := s.GetUserByAccessToken(ctx, authToken.AccessTokenPlain)
	require.NoError(t, err)

	require.NoError(t, s.LogoutUser(ctx, user.ID, authToken.AccessTokenPlain))

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM auth_tokens").Scan(&count)
	assert.NoError(t, err)
	assert.Equal(t, 0, count)

	// the cached lookup is evicted as well, so the token is dead immediately
	_, err = s.GetUserByAccessToken(ctx, authToken.AccessTokenPlain)
	assert.Equal(t, ErrNotFound, err)
}

func TestResetPassword(t *testing.T) {
	s, db, cleanup, err := setupTestEnvironment(t)
	assert.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, cleanup())
	})

	ctx := context.Background()
	createActivatedUser(t, s)

	username, _, password := testUserData()

	authToken, err := s.LoginUser(ctx, username, password)
	require.NoError(t, err)
	require.NotNil(t, authToken)

	user, err := s.m.getUserByUsername(ctx, username)
	require.NoError(t, err)

	require.NoError(t, s.ResetPassword(ctx, user.ID))

	// the old password no longer works and the token pair is revoked
	_, err = s.LoginUser(ctx, username, password)
	assert.Equal(t, ErrAuthenticationFailure, err)

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM auth_tokens").Scan(&count)
	assert.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestUpdateAvatar(t *testing.T) {
	s, db, cleanup, err := setupTestEnvironment(t)
	assert.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, cleanup())
	})

	ctx := context.Background()
	createActivatedUser(t, s)

	username, _, _ := testUserData()

	user, err := s.m.getUserByUsername(ctx, username)
	require.NoError(t, err)

	require.NoError(t, s.UpdateAvatar(ctx, user.ID, "avatars/1.png"))

	var path string
	err = db.QueryRow("SELECT avatar_path FROM users WHERE id = $1", user.ID).Scan(&path)
	assert.NoError(t, err)
	assert.Equal(t, "avatars/1.png", path)

	err = s.UpdateAvatar(ctx, user.ID, "../secret")
	assert.EqualError(t, err, "validation errors: map[avatar_path:must not contain path traversal]")
}

func TestListUsers(t *testing.T) {
	s, _, cleanup, err := setupTestEnvironment(t)
	assert.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, cleanup())
	})

	ctx := context.Background()
	createActivatedUser(t, s)

	_, err = s.CreateUser(ctx, "otheruser", "otheruser@example.com", "TestPassword123!")
	require.NoError(t, err)

	page, err := s.ListUsers(ctx, common.NewPageable(1, 10, common.Sort{Property: "username"}))
	require.NoError(t, err)

	assert.Equal(t, 2, page.TotalCount)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "otheruser", page.Items[0].Username)
	assert.Equal(t, "testuser", page.Items[1].Username)
	assert.True(t, page.Items[1].Activated)
	assert.False(t, page.Items[0].Activated)

	_, err = s.ListUsers(ctx, common.NewPageable(1, 10, common.Sort{Property: "email"}))
	assert.EqualError(t, err, "validation errors: map[sort:must be one of created_at or username]")
}

func TestDeleteUser(t *testing.T) {
	s, db, cleanup, err := setupTestEnvironment(t)
	assert.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, cleanup())
	})

	ctx := context.Background()
	createActivatedUser(t, s)

	username, _, password := testUserData()

	user, err := s.m.getUserByUsername(ctx, username)
	require.NoError(t, err)

	auth, err := s.LoginUser(ctx, username, password)
	require.NoError(t, err)

	_, err = s.GetUserByAccessToken(ctx, auth.AccessTokenPlain)
	require.NoError(t, err)

	require.NoError(t, s.DeleteUser(ctx, user.ID))

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count)
	assert.NoError(t, err)
	assert.Equal(t, 0, count)

	// the cached token lookup does not survive the delete
	_, err = s.GetUserByAccessToken(ctx, auth.AccessTokenPlain)
	assert.Equal(t, ErrNotFound, err)

	assert.Equal(t, ErrNotFound, s.DeleteUser(ctx, user.ID))
}
