package access

import (
	"testing"
	"time"

	"github.com/finbook/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInvite(t *testing.T) *Invite {
	t.Helper()
	invite, err := NewInvite(uuid.New(), "Books@Example.COM", uuid.New(), FullPermissions(), "token-hash", "hash", DefaultInviteTTL, DefaultOTPTTL)
	require.NoError(t, err)
	return invite
}

func TestNewInvite(t *testing.T) {
	companyID := uuid.New()
	invitedBy := uuid.New()

	invite, err := NewInvite(companyID, "  Accountant@Firm.NL ", invitedBy, FullPermissions(), "token-hash", "otp-hash", 0, 0)
	require.NoError(t, err)

	assert.Equal(t, "accountant@firm.nl", invite.Email)
	assert.Equal(t, "token-hash", invite.TokenHash)
	assert.Equal(t, InviteStatusPending, invite.Status)
	assert.Equal(t, companyID, invite.CompanyID)
	assert.Equal(t, 1, invite.SendCount)
	assert.True(t, invite.OTPExpiresAt.Before(invite.ExpiresAt))
	assert.Len(t, invite.GetDomainEvents(), 1)
}

func TestNewInviteValidation(t *testing.T) {
	tests := []struct {
		name      string
		companyID uuid.UUID
		email     string
		invitedBy uuid.UUID
		perms     PermissionSet
		wantCode  string
	}{
		{"missing company", uuid.Nil, "a@b.nl", uuid.New(), FullPermissions(), "VALIDATION_ERROR"},
		{"missing inviter", uuid.New(), "a@b.nl", uuid.Nil, FullPermissions(), "VALIDATION_ERROR"},
		{"empty email", uuid.New(), "   ", uuid.New(), FullPermissions(), "EMAIL_REQUIRED"},
		{"malformed email", uuid.New(), "not-an-email", uuid.New(), FullPermissions(), "EMAIL_INVALID"},
		{"no read permission", uuid.New(), "a@b.nl", uuid.New(), PermissionSet{CanEdit: true}, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewInvite(tt.companyID, tt.email, tt.invitedBy, tt.perms, "token-hash", "hash", 0, 0)
			require.Error(t, err)
			var domainErr *shared.DomainError
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, tt.wantCode, domainErr.Code)
		})
	}
}

func TestNewInviteRequiresTokenHash(t *testing.T) {
	_, err := NewInvite(uuid.New(), "a@b.nl", uuid.New(), FullPermissions(), "", "hash", 0, 0)
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VALIDATION_ERROR", domainErr.Code)
}

func TestGenerateInviteToken(t *testing.T) {
	token, digest, err := GenerateInviteToken()
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, HashInviteToken(token), digest)
	assert.Len(t, digest, 64)

	_, other, err := GenerateInviteToken()
	require.NoError(t, err)
	assert.NotEqual(t, digest, other)
}

func TestInviteEffectiveStatus(t *testing.T) {
	invite := newTestInvite(t)
	now := time.Now()

	assert.Equal(t, InviteStatusPending, invite.EffectiveStatus(now))
	assert.Equal(t, InviteStatusExpired, invite.EffectiveStatus(invite.ExpiresAt.Add(time.Second)))

	// A terminal status is returned as stored, even past the deadline
	require.NoError(t, invite.Accept(uuid.New(), now))
	assert.Equal(t, InviteStatusAccepted, invite.EffectiveStatus(invite.ExpiresAt.Add(time.Hour)))
}

func TestInviteAccept(t *testing.T) {
	invite := newTestInvite(t)
	userID := uuid.New()
	now := time.Now()

	require.NoError(t, invite.Accept(userID, now))
	assert.Equal(t, InviteStatusAccepted, invite.Status)
	require.NotNil(t, invite.AcceptedBy)
	assert.Equal(t, userID, *invite.AcceptedBy)
	assert.NotNil(t, invite.AcceptedAt)
}

func TestInviteAcceptRejectsTerminalStates(t *testing.T) {
	now := time.Now()

	t.Run("already accepted", func(t *testing.T) {
		invite := newTestInvite(t)
		require.NoError(t, invite.Accept(uuid.New(), now))

		err := invite.Accept(uuid.New(), now)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVITE_USED", domainErr.Code)
	})

	t.Run("expired", func(t *testing.T) {
		invite := newTestInvite(t)

		err := invite.Accept(uuid.New(), invite.ExpiresAt.Add(time.Minute))
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVITE_EXPIRED", domainErr.Code)
	})

	t.Run("revoked", func(t *testing.T) {
		invite := newTestInvite(t)
		require.NoError(t, invite.Revoke(now))

		err := invite.Accept(uuid.New(), now)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVITE_REVOKED", domainErr.Code)
	})
}

func TestInviteRevoke(t *testing.T) {
	invite := newTestInvite(t)
	now := time.Now()

	require.NoError(t, invite.Revoke(now))
	assert.Equal(t, InviteStatusRevoked, invite.Status)
	assert.NotNil(t, invite.RevokedAt)

	err := invite.Revoke(now)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVITE_REVOKED", domainErr.Code)
}

func TestInviteMarkExpired(t *testing.T) {
	invite := newTestInvite(t)

	err := invite.MarkExpired(time.Now())
	require.Error(t, err)

	require.NoError(t, invite.MarkExpired(invite.ExpiresAt.Add(time.Second)))
	assert.Equal(t, InviteStatusExpired, invite.Status)
}

func TestInviteRefreshOTP(t *testing.T) {
	invite := newTestInvite(t)
	now := time.Now()
	oldExpiry := invite.OTPExpiresAt

	require.NoError(t, invite.RefreshOTP("new-hash", time.Hour, now))
	assert.Equal(t, "new-hash", invite.OTPHash)
	assert.Equal(t, 2, invite.SendCount)
	assert.True(t, invite.OTPExpiresAt.After(oldExpiry))

	require.NoError(t, invite.Revoke(now))
	err := invite.RefreshOTP("another", time.Hour, now)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVITE_REVOKED", domainErr.Code)
}

func TestInviteOTPWindowIndependentOfInviteWindow(t *testing.T) {
	invite := newTestInvite(t)

	afterOTP := invite.OTPExpiresAt.Add(time.Minute)
	assert.True(t, invite.IsOTPExpired(afterOTP))
	assert.Equal(t, InviteStatusPending, invite.EffectiveStatus(afterOTP))
}

func TestInviteMatchesEmail(t *testing.T) {
	invite := newTestInvite(t)

	assert.True(t, invite.MatchesEmail("books@example.com"))
	assert.True(t, invite.MatchesEmail("  BOOKS@Example.Com "))
	assert.False(t, invite.MatchesEmail("other@example.com"))
	assert.False(t, invite.MatchesEmail("not-an-email"))
}
