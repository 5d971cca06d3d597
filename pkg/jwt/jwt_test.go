package jwt

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	Configure("test-secret", time.Hour)
	id := uuid.New()

	token, err := GenerateToken(id, "cashier@example.com", "Cashier", "CASHIER", []string{"order:create"})
	require.NoError(t, err)

	claims, err := ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, id, claims.UserID)
	assert.Equal(t, "CASHIER", claims.RoleCode)
	assert.Equal(t, []string{"order:create"}, claims.Privileges)
}

func TestValidateToken_Rejects(t *testing.T) {
	Configure("test-secret", time.Hour)

	_, err := ValidateToken("")
	assert.ErrorIs(t, err, ErrMissingToken)

	_, err = ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	token, err := GenerateToken(uuid.New(), "a@example.com", "A", "MANAGER", nil)
	require.NoError(t, err)
	Configure("rotated-secret", 0)
	_, err = ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
