package userservice

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base32"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/yqhuang/forumist/internal/common"
)

var (
	ErrAuthenticationFailure = fmt.Errorf("unauthorized access")
)

func NewUserService(db *sql.DB, mb common.MessageProducer, c *common.Cache) *UserService {
	return &UserService{
		m:  newUserModel(db),
		mb: mb,
		c:  c,
	}
}

// CreateUser creates a new user account and publishes a user.created event.
func (s *UserService) CreateUser(ctx context.Context, username, email, password string) (*string, error) {
	v := common.NewValidator()
	validateUsername(v, username)
	validateEmail(v, email)
	validatePassword(v, password)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	u := User{
		Username: username,
		Email:    email,
		Password: Password{Plain: password},
	}

	err := u.Password.set(u.Password.Plain)
	if err != nil {
		return nil, err
	}

	err = s.m.insertUser(ctx, &u)
	if err != nil {
		return nil, err
	}

	token, err := s.m.createToken(ctx, u.ID, ActivationTokenTime, TokenScopeActivate)
	if err != nil {
		return nil, err
	}

	data := struct {
		Username string
		Email    string
		Token    string
	}{
		Username: u.Username,
		Email:    u.Email,
		Token:    token.Plain,
	}

	emailData, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	err = s.mb.Publish(ctx, emailData, common.UserCreatedKey, common.UserExchange)
	if err != nil {
		return nil, err
	}

	return &token.Plain, nil
}

// ActivateUser activates a user account using the token, deletes the token
// and grants the post and comment write permissions.
func (s *UserService) ActivateUser(ctx context.Context, token string) error {
	v := common.NewValidator()
	ValidateToken(v, token)
	if !v.Valid() {
		return v.ValidationError()
	}

	hash := hashToken(token)

	user, err := s.m.getUser(ctx, TokenScopeActivate, hash)
	if err != nil {
		return err
	}

	tx, err := s.m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	err = s.m.activateUserAccount(tx, ctx, user.ID, user.Version)
	if err != nil {
		_ = tx.Rollback()
		return err
	}

	err = s.m.deleteToken(tx, ctx, user.ID, TokenScopeActivate)
	if err != nil {
		_ = tx.Rollback()
		return err
	}

	err = s.m.addUserPermission(tx, ctx, user.ID, PermissionWritePost, PermissionWriteComment)
	if err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

// LoginUser logs in a user and returns the access token and refresh token.
func (s *UserService) LoginUser(ctx context.Context, username, password string) (*AuthToken, error) {
	v := common.NewValidator()
	validateUsername(v, username)
	validatePassword(v, password)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	user, err := s.m.getUserByUsername(ctx, username)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return nil, ErrAuthenticationFailure
		default:
			return nil, err
		}
	}

	ok, err := user.Password.compare(password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrAuthenticationFailure
	}

	// a login always rotates the pair; only the hashes are stored, so an
	// existing row cannot be handed back to the client
	tx, err := s.m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	err = s.m.deleteAuthToken(tx, ctx, user.ID)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	authToken, err := s.m.createAuthToken(tx, ctx, user.ID)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return authToken, nil
}

// GetUserByAccessToken resolves the user behind an access token. Lookups are
// cached briefly since every authenticated request performs one.
func (s *UserService) GetUserByAccessToken(ctx context.Context, token string) (*User, error) {
	v := common.NewValidator()
	ValidateToken(v, token)
	if !v.Valid() {
		return nil, v.ValidationError()
	}

	hash := hashToken(token)

	key := common.CacheKeyUserByAccessToken(hash)
	if cached, ok := s.c.Get(key); ok {
		return cached.(*User), nil
	}

	user, err := s.m.getToken(ctx, hash)
	if err != nil {
		return nil, err
	}

	s.c.Set(key, user, tokenCacheTTL)

	return user, nil
}

func (s *UserService) LogoutUser(ctx context.Context, userID int, accessToken string) error {
	v := common.NewValidator()
	validateInt(v, userID, "user_id")
	if !v.Valid() {
		return v.ValidationError()
	}

	tx, err := s.m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	err = s.m.deleteAuthToken(tx, ctx, userID)
	if err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	if accessToken != "" {
		s.c.Delete(common.CacheKeyUserByAccessToken(hashToken(accessToken)))
	}

	return nil
}

// UpdateAvatar stores the path of an uploaded avatar image on the user row.
func (s *UserService) UpdateAvatar(ctx context.Context, userID int, avatarPath string) error {
	v := common.NewValidator()
	validateInt(v, userID, "user_id")
	validateAvatarPath(v, avatarPath)
	if !v.Valid() {
		return v.ValidationError()
	}

	return s.m.updateUserAvatar(ctx, userID, avatarPath)
}

// ListUsers returns a page of accounts for the admin user views. Listings are
// never cached: they back moderation decisions and must reflect the latest
// registrations.
func (s *UserService) ListUsers(ctx context.Context, pg common.Pageable) (common.Page[User], error) {
	v := common.NewValidator()
	v.Check(common.PermittedValue(pg.Sort.Property, "created_at", "username"), "sort", "must be one of created_at or username")
	if !v.Valid() {
		return common.Page[User]{}, v.ValidationError()
	}

	return s.m.getUserPage(ctx, pg)
}

// DeleteUser removes an account. The user's posts and comments cascade with
// the row, which can touch cached entries of ids this call never sees, so the
// whole cache is dropped.
func (s *UserService) DeleteUser(ctx context.Context, id int) error {
	v := common.NewValidator()
	validateInt(v, id, "user_id")
	if !v.Valid() {
		return v.ValidationError()
	}

	if err := s.m.deleteUser(ctx, id); err != nil {
		return err
	}

	s.c.Flush()

	return nil
}

// ResetPassword generates a temporary password for the target user, replaces
// the stored hash, revokes any live token pair and publishes a
// user.password_reset event for the mail service.
func (s *UserService) ResetPassword(ctx context.Context, targetUserID int) error {
	v := common.NewValidator()
	validateInt(v, targetUserID, "user_id")
	if !v.Valid() {
		return v.ValidationError()
	}

	user, err := s.m.getUserByID(ctx, targetUserID)
	if err != nil {
		return err
	}

	temp, err := newTemporaryPassword()
	if err != nil {
		return err
	}

	pwd := Password{}
	if err := pwd.set(temp); err != nil {
		return err
	}

	if err := s.m.updateUserPassword(ctx, pwd, user.ID, user.Version); err != nil {
		return err
	}

	tx, err := s.m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := s.m.deleteAuthToken(tx, ctx, user.ID); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	data := struct {
		Username     string
		Email        string
		TempPassword string
	}{
		Username:     user.Username,
		Email:        user.Email,
		TempPassword: temp,
	}

	emailData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	return s.mb.Publish(ctx, emailData, common.PasswordResetKey, common.UserExchange)
}

// newTemporaryPassword builds a random password that satisfies the login
// password policy.
func newTemporaryPassword() (string, error) {
	randomBytes := make([]byte, 10)
	_, err := rand.Read(randomBytes)
	if err != nil {
		return "", err
	}

	encoded := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(randomBytes)

	return "aZ1!" + encoded, nil
}

func (u *User) IsAnonymous() bool {
	return u == &AnonymousUser
}

func (u *User) IsActivated() bool {
	return u.Activated
}

func (u *User) HasPermission(permission Permission) bool {
	for _, p := range u.Permissions {
		if p == permission {
			return true
		}
	}

	return false
}
