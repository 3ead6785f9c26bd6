package userservice

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/blurblog/blur/internal/common"
)

func strptr(s string) *string {
	return &s
}

func testUser() User {
	return User{
		Username: "testuser",
		Email:    "testuser@example.com",
		Password: Password{
			Plain: "TestPassword123!",
		},
	}
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

		return nil
	}

	return NewUserService(db, mb, nil), db, cleanup, nil
}

func TestCreateUser(t *testing.T) {
	s, db, cleanup, err := setupTestEnvironment(t)
	assert.NoError(t, err)

	testCases := []struct {
		name        string
		payload     User
		expectedErr error
	}{
		{
			name:        "valid user",
			payload:     testUser(),
			expectedErr: nil,
		},
		{
			name: "empty username",
			payload: User{
				Email:    testUser().Email,
				Password: testUser().Password,
			},
			expectedErr: common.ValidationError{Errors: map[string]string{"username": "must be provided"}},
		},
		{
			name: "empty email",
			payload: User{
				Username: testUser().Username,
				Password: testUser().Password,
			},
			expectedErr: common.ValidationError{Errors: map[string]string{"email": "must be provided"}},
		},
		{
			name: "empty password",
			payload: User{
				Username: testUser().Username,
				Email:    testUser().Email,
			},
			expectedErr: common.ValidationError{Errors: map[string]string{"password": "must be provided"}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			token, err := s.CreateUser(ctx, tc.payload.Username, tc.payload.Email, tc.payload.Password.Plain)
			assert.Equal(t, tc.expectedErr, err)

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

func TestDuplicateUser(t *testing.T) {
	s, _, cleanup, err := setupTestEnvironment(t)
	assert.NoError(t, err)

	t.Cleanup(func() {
		err := cleanup()
		assert.NoError(t, err)
	})

	ctx := context.Background()
	u := testUser()

	_, err = s.CreateUser(ctx, u.Username, u.Email, u.Password.Plain)
	assert.NoError(t, err)

	_, err = s.CreateUser(ctx, u.Username, "other@example.com", u.Password.Plain)
	assert.ErrorIs(t, err, ErrDuplicateUsername)

	_, err = s.CreateUser(ctx, "otheruser", u.Email, u.Password.Plain)
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestActivateUser(t *testing.T) {
	s, db, cleanup, err := setupTestEnvironment(t)
	assert.NoError(t, err)

	setup := func(ctx context.Context, s *UserService, u User) (*string, error) {
		return s.CreateUser(ctx, u.Username, u.Email, u.Password.Plain)
	}

	testCases := []struct {
		name        string
		token       func(context.Context, *UserService, User) (*string, error)
		expectedErr error
	}{
		{
			name:        "valid token",
			token:       setup,
			expectedErr: nil,
		},
		{
			name: "invalid token",
			token: func(ctx context.Context, s *UserService, u User) (*string, error) {
				return strptr("invalid token"), nil
			},
			expectedErr: common.ValidationError{Errors: map[string]string{"token": "invalid token"}},
		},
		{
			name: "empty token",
			token: func(ctx context.Context, s *UserService, u User) (*string, error) {
				return strptr(""), nil
			},
			expectedErr: common.ValidationError{Errors: map[string]string{"token": "must be provided"}},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()

			token, err := tc.token(ctx, s, testUser())
			assert.NoError(t, err)
			assert.NotNil(t, token)

			err = s.ActivateUser(ctx, *token)
			assert.Equal(t, tc.expectedErr, err)

			var count int

			err = db.QueryRow("SELECT COUNT(*) FROM tokens").Scan(&count)
			assert.NoError(t, err)
			assert.Equal(t, 0, count)

			err = db.QueryRow("SELECT COUNT(*) FROM users WHERE activated = true").Scan(&count)
			assert.NoError(t, err)

			if tc.expectedErr == nil {
				assert.Equal(t, 1, count)
			} else {
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
		err := cleanup()
		assert.NoError(t, err)
	})

	ctx := context.Background()
	u := testUser()

	token, err := s.CreateUser(ctx, u.Username, u.Email, u.Password.Plain)
	assert.NoError(t, err)

	err = s.ActivateUser(ctx, *token)
	assert.NoError(t, err)

	authToken, err := s.LoginUser(ctx, u.Username, u.Password.Plain)
	assert.NoError(t, err)
	assert.NotEmpty(t, authToken.AccessTokenPlain)

	user, err := s.GetUserByAccessToken(ctx, authToken.AccessTokenPlain)
	assert.NoError(t, err)
	assert.Equal(t, u.Username, user.Username)
	assert.True(t, user.HasPermission(PermissionWriteBlog))

	_, err = s.LoginUser(ctx, u.Username, "WrongPassword123!")
	assert.ErrorIs(t, err, ErrAuthenticationFailure)

	err = s.LogoutUser(ctx, user.ID)
	assert.NoError(t, err)
}
