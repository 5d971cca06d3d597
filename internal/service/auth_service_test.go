package service

import (
	"context"
	"testing"

	"go-scan-pos/internal/apperr"
	"go-scan-pos/internal/model"
	"go-scan-pos/internal/repository/memory"
	"go-scan-pos/pkg/jwt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminEmail    = "manager@store.test"
	adminPassword = "s3cret-pass"
)

func newAuthFixture(t *testing.T) (*memory.Store, AuthService, UserService) {
	t.Helper()
	store := memory.New(0)
	auth := NewAuthService(store.Users(), store.Roles())
	require.NoError(t, auth.EnsureAdmin(context.Background(), adminEmail, adminPassword))
	return store, auth, NewUserService(store.Users(), store.Roles())
}

func TestEnsureAdmin_IsIdempotent(t *testing.T) {
	store, auth, _ := newAuthFixture(t)
	require.NoError(t, auth.EnsureAdmin(context.Background(), adminEmail, "another-pass"))

	users, err := store.Users().List(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.NotNil(t, users[0].Role)
	assert.Equal(t, model.RoleManager, users[0].Role.Code)
	assert.True(t, users[0].CheckPassword(adminPassword))
}

func TestLogin(t *testing.T) {
	_, auth, _ := newAuthFixture(t)
	ctx := context.Background()

	resp, err := auth.Login(ctx, " Manager@Store.test ", adminPassword)
	require.NoError(t, err)
	assert.Equal(t, adminEmail, resp.User.Email)
	assert.Contains(t, resp.Privileges, model.PrivInventoryAdjust)

	claims, err := jwt.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.Equal(t, model.RoleManager, claims.RoleCode)

	_, err = auth.Login(ctx, adminEmail, "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = auth.Login(ctx, "nobody@store.test", adminPassword)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestChangeAndResetPassword(t *testing.T) {
	_, auth, _ := newAuthFixture(t)
	ctx := context.Background()

	resp, err := auth.Login(ctx, adminEmail, adminPassword)
	require.NoError(t, err)
	id := resp.User.ID.String()

	assert.ErrorIs(t, auth.ChangePassword(ctx, id, "not-it", "new-password"), ErrWrongPassword)
	assert.True(t, apperr.Is(auth.ChangePassword(ctx, id, adminPassword, "short"), apperr.KindValidation))
	require.NoError(t, auth.ChangePassword(ctx, id, adminPassword, "new-password"))

	_, err = auth.Login(ctx, adminEmail, "new-password")
	require.NoError(t, err)

	require.NoError(t, auth.ResetPassword(ctx, adminEmail, "reset-password"))
	_, err = auth.Login(ctx, adminEmail, "reset-password")
	require.NoError(t, err)

	profile, err := auth.Profile(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, adminEmail, profile.Email)
}

func TestOperators(t *testing.T) {
	_, auth, users := newAuthFixture(t)
	ctx := context.Background()

	admin, err := auth.Login(ctx, adminEmail, adminPassword)
	require.NoError(t, err)
	adminID := admin.User.ID.String()

	cashier, err := users.CreateUser(ctx, CreateUserRequest{
		Email:    "Cashier@Store.test",
		Password: "cashier-pass",
		FullName: "Front Desk",
		RoleCode: model.RoleCashier,
	}, adminID)
	require.NoError(t, err)
	assert.Equal(t, "cashier@store.test", cashier.Email)
	assert.Contains(t, cashier.Privileges, model.PrivOrderCreate)
	assert.NotContains(t, cashier.Privileges, model.PrivInventoryAdjust)

	_, err = users.CreateUser(ctx, CreateUserRequest{
		Email: "cashier@store.test", Password: "cashier-pass", FullName: "Twin", RoleCode: model.RoleCashier,
	}, adminID)
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = users.CreateUser(ctx, CreateUserRequest{
		Email: "x@store.test", Password: "cashier-pass", FullName: "X", RoleCode: "OWNER",
	}, adminID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	_, err = users.CreateUser(ctx, CreateUserRequest{Email: "not-an-email", Password: "short"}, adminID)
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	assert.True(t, apperr.Is(users.SetActive(ctx, adminID, false, adminID), apperr.KindValidation))
	require.NoError(t, users.SetActive(ctx, cashier.ID.String(), false, adminID))

	_, err = auth.Login(ctx, "cashier@store.test", "cashier-pass")
	assert.ErrorIs(t, err, ErrUserInactive)

	all, err := users.GetAllUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
