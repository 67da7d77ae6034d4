package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/finbook/backend/internal/domain/access"
	"github.com/finbook/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockMembershipRepository creates a GormMembershipRepository with a mocked SQL connection
func newMockMembershipRepository(t *testing.T) (*GormMembershipRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormMembershipRepository(gormDB), mock, mockDB
}

func testMembership(t *testing.T) *access.Membership {
	t.Helper()
	membership, err := access.NewMembership(
		uuid.New(), uuid.New(), access.MembershipRoleAccountant,
		access.PermissionSet{CanRead: true, CanExport: true},
	)
	require.NoError(t, err)
	return membership
}

func TestGormMembershipRepository_FindByUserAndCompany(t *testing.T) {
	t.Run("finds membership for pair", func(t *testing.T) {
		repo, mock, mockDB := newMockMembershipRepository(t)
		defer mockDB.Close()

		userID := uuid.New()
		companyID := uuid.New()

		rows := sqlmock.NewRows([]string{"id", "user_id", "company_id", "role", "status", "can_read"}).
			AddRow(uuid.New(), userID, companyID, "ACCOUNTANT", "ACTIVE", true)

		mock.ExpectQuery(`SELECT \* FROM "company_memberships" WHERE user_id = \$1 AND company_id = \$2 ORDER BY .* LIMIT .*`).
			WithArgs(userID, companyID, 1).
			WillReturnRows(rows)

		membership, err := repo.FindByUserAndCompany(context.Background(), userID, companyID)

		assert.NoError(t, err)
		assert.NotNil(t, membership)
		assert.Equal(t, access.MembershipRoleAccountant, membership.Role)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns not found when pair has no membership", func(t *testing.T) {
		repo, mock, mockDB := newMockMembershipRepository(t)
		defer mockDB.Close()

		userID := uuid.New()
		companyID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "company_memberships" WHERE user_id = \$1 AND company_id = \$2 ORDER BY .* LIMIT .*`).
			WithArgs(userID, companyID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		membership, err := repo.FindByUserAndCompany(context.Background(), userID, companyID)

		assert.Nil(t, membership)
		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormMembershipRepository_ListByUser(t *testing.T) {
	t.Run("lists memberships oldest first", func(t *testing.T) {
		repo, mock, mockDB := newMockMembershipRepository(t)
		defer mockDB.Close()

		userID := uuid.New()

		rows := sqlmock.NewRows([]string{"id", "user_id", "company_id", "role", "status"}).
			AddRow(uuid.New(), userID, uuid.New(), "ACCOUNTANT", "ACTIVE").
			AddRow(uuid.New(), userID, uuid.New(), "ACCOUNTANT", "SUSPENDED")

		mock.ExpectQuery(`SELECT \* FROM "company_memberships" WHERE user_id = \$1 ORDER BY created_at ASC`).
			WithArgs(userID).
			WillReturnRows(rows)

		memberships, err := repo.ListByUser(context.Background(), userID)

		assert.NoError(t, err)
		assert.Len(t, memberships, 2)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormMembershipRepository_Upsert(t *testing.T) {
	t.Run("inserts with conflict clause on user and company", func(t *testing.T) {
		repo, mock, mockDB := newMockMembershipRepository(t)
		defer mockDB.Close()

		mock.ExpectExec(`INSERT INTO "company_memberships" .* ON CONFLICT \("user_id","company_id"\) DO UPDATE SET`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Upsert(context.Background(), testMembership(t))

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormMembershipRepository_Update(t *testing.T) {
	t.Run("updates membership guarded by previous version", func(t *testing.T) {
		repo, mock, mockDB := newMockMembershipRepository(t)
		defer mockDB.Close()

		mock.ExpectExec(`UPDATE "company_memberships" SET .* WHERE id = \$\d+ AND version = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Update(context.Background(), testMembership(t))

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns not found when the row is gone", func(t *testing.T) {
		repo, mock, mockDB := newMockMembershipRepository(t)
		defer mockDB.Close()

		mock.ExpectExec(`UPDATE "company_memberships" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT count\(\*\) FROM "company_memberships" WHERE id = \$1`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		err := repo.Update(context.Background(), testMembership(t))

		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports conflict when the stored version moved on", func(t *testing.T) {
		repo, mock, mockDB := newMockMembershipRepository(t)
		defer mockDB.Close()

		mock.ExpectExec(`UPDATE "company_memberships" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT count\(\*\) FROM "company_memberships" WHERE id = \$1`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		err := repo.Update(context.Background(), testMembership(t))

		assert.Equal(t, shared.ErrConcurrencyConflict, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormMembershipRepository_Delete(t *testing.T) {
	t.Run("hard-deletes membership row", func(t *testing.T) {
		repo, mock, mockDB := newMockMembershipRepository(t)
		defer mockDB.Close()

		id := uuid.New()

		mock.ExpectExec(`DELETE FROM "company_memberships" WHERE id = \$1`).
			WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.Delete(context.Background(), id)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns not found for unknown membership", func(t *testing.T) {
		repo, mock, mockDB := newMockMembershipRepository(t)
		defer mockDB.Close()

		id := uuid.New()

		mock.ExpectExec(`DELETE FROM "company_memberships" WHERE id = \$1`).
			WithArgs(id).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Delete(context.Background(), id)

		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormMembershipRepository_InterfaceCompliance(t *testing.T) {
	t.Run("implements MembershipRepository interface", func(t *testing.T) {
		repo, _, mockDB := newMockMembershipRepository(t)
		defer mockDB.Close()

		var _ access.MembershipRepository = repo
	})
}
