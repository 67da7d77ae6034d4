package identity

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUser(t *testing.T) {
	user, err := NewUser("Owner@Example.COM", "password123", UserRoleOwner)
	require.NoError(t, err)

	assert.Equal(t, "owner@example.com", user.Email)
	assert.Equal(t, UserRoleOwner, user.Role)
	assert.False(t, user.EmailVerified)
	assert.False(t, user.OnboardingCompleted)
	assert.True(t, user.VerifyPassword("password123"))
	assert.False(t, user.VerifyPassword("wrong"))
	assert.Len(t, user.GetDomainEvents(), 1)
}

func TestNewUserValidation(t *testing.T) {
	_, err := NewUser("", "password123", UserRoleOwner)
	assert.Error(t, err)

	_, err = NewUser("bad-email", "password123", UserRoleOwner)
	assert.Error(t, err)

	_, err = NewUser("a@b.nl", "short", UserRoleOwner)
	assert.Error(t, err)
}

func TestNewInvitedUser(t *testing.T) {
	user, err := NewInvitedUser("Accountant@Firm.NL", UserRoleAccountant)
	require.NoError(t, err)

	assert.Equal(t, "accountant@firm.nl", user.Email)
	assert.True(t, user.EmailVerified)
	assert.True(t, user.OnboardingCompleted)
	assert.Empty(t, user.PasswordHash)
	assert.False(t, user.VerifyPassword(""))
}

func TestUserSetPassword(t *testing.T) {
	user, err := NewInvitedUser("a@b.nl", UserRoleAccountant)
	require.NoError(t, err)

	require.NoError(t, user.SetPassword("newpassword"))
	assert.True(t, user.VerifyPassword("newpassword"))

	assert.Error(t, user.SetPassword("short"))
}

func TestUserLoginTracking(t *testing.T) {
	user, err := NewUser("a@b.nl", "password123", UserRoleOwner)
	require.NoError(t, err)

	locked := false
	for i := 0; i < 5; i++ {
		locked = user.RecordLoginFailure(5, 15*time.Minute)
	}
	assert.True(t, locked)
	assert.True(t, user.IsLocked())

	user.LockedUntil = nil
	user.RecordLoginSuccess()
	assert.Equal(t, 0, user.FailedAttempts)
	assert.NotNil(t, user.LastLoginAt)
	assert.False(t, user.IsLocked())
}

func TestUserIsAccountant(t *testing.T) {
	for _, role := range []UserRole{UserRoleAccountant, UserRoleAccountantView, UserRoleAccountantEdit} {
		u := &User{Role: role}
		assert.True(t, u.IsAccountant())
	}
	for _, role := range []UserRole{UserRoleOwner, UserRoleStaff, UserRoleSuperadmin} {
		u := &User{Role: role}
		assert.False(t, u.IsAccountant())
	}
}

func TestNewCompany(t *testing.T) {
	ownerID := uuid.New()

	company, err := NewCompany("  Bakkerij Jansen BV ", ownerID)
	require.NoError(t, err)

	assert.Equal(t, "Bakkerij Jansen BV", company.Name)
	assert.Equal(t, ownerID, company.OwnerUserID)
	assert.True(t, company.IsOwnedBy(ownerID))
	assert.False(t, company.IsOwnedBy(uuid.New()))
	assert.True(t, company.IsActive())

	_, err = NewCompany("", ownerID)
	assert.Error(t, err)
	_, err = NewCompany("Naam", uuid.Nil)
	assert.Error(t, err)
}

func TestCompanySuspend(t *testing.T) {
	company, err := NewCompany("Bedrijf", uuid.New())
	require.NoError(t, err)

	require.NoError(t, company.Suspend())
	assert.False(t, company.IsActive())
	assert.Error(t, company.Suspend())
}
