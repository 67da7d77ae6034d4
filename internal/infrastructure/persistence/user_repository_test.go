package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/finbook/backend/internal/domain/identity"
	"github.com/finbook/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockUserRepository creates a GormUserRepository with a mocked SQL connection
func newMockUserRepository(t *testing.T) (*GormUserRepository, sqlmock.Sqlmock, *sql.DB) {
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

	return NewGormUserRepository(gormDB), mock, mockDB
}

func TestGormUserRepository_FindByEmail(t *testing.T) {
	t.Run("matches case-insensitively", func(t *testing.T) {
		repo, mock, mockDB := newMockUserRepository(t)
		defer mockDB.Close()

		userID := uuid.New()

		rows := sqlmock.NewRows([]string{"id", "email", "role", "display_name"}).
			AddRow(userID, "jan@example.nl", "owner", "Jan")

		mock.ExpectQuery(`SELECT \* FROM "users" WHERE LOWER\(email\) = \$1 ORDER BY .* LIMIT .*`).
			WithArgs("jan@example.nl", 1).
			WillReturnRows(rows)

		user, err := repo.FindByEmail(context.Background(), "Jan@Example.NL")

		assert.NoError(t, err)
		assert.NotNil(t, user)
		assert.Equal(t, userID, user.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns not found for empty email", func(t *testing.T) {
		repo, _, mockDB := newMockUserRepository(t)
		defer mockDB.Close()

		user, err := repo.FindByEmail(context.Background(), "")

		assert.Nil(t, user)
		assert.Equal(t, shared.ErrNotFound, err)
	})
}

func TestGormUserRepository_ExistsByEmail(t *testing.T) {
	t.Run("returns true when email is taken", func(t *testing.T) {
		repo, mock, mockDB := newMockUserRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT count\(\*\) FROM "users" WHERE LOWER\(email\) = \$1`).
			WithArgs("jan@example.nl").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		exists, err := repo.ExistsByEmail(context.Background(), "jan@example.nl")

		assert.NoError(t, err)
		assert.True(t, exists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormUserRepository_Update(t *testing.T) {
	t.Run("updates user guarded by previous version", func(t *testing.T) {
		repo, mock, mockDB := newMockUserRepository(t)
		defer mockDB.Close()

		user, err := identity.NewUser("jan@example.nl", "wachtwoord123", identity.UserRoleOwner)
		require.NoError(t, err)

		mock.ExpectExec(`UPDATE "users" SET .* WHERE id = \$\d+ AND version = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err = repo.Update(context.Background(), user)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns not found when the row is gone", func(t *testing.T) {
		repo, mock, mockDB := newMockUserRepository(t)
		defer mockDB.Close()

		user, err := identity.NewUser("jan@example.nl", "wachtwoord123", identity.UserRoleOwner)
		require.NoError(t, err)

		mock.ExpectExec(`UPDATE "users" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT count\(\*\) FROM "users" WHERE id = \$1`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		err = repo.Update(context.Background(), user)

		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports conflict when the stored version moved on", func(t *testing.T) {
		repo, mock, mockDB := newMockUserRepository(t)
		defer mockDB.Close()

		user, err := identity.NewUser("jan@example.nl", "wachtwoord123", identity.UserRoleOwner)
		require.NoError(t, err)

		mock.ExpectExec(`UPDATE "users" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(`SELECT count\(\*\) FROM "users" WHERE id = \$1`).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		err = repo.Update(context.Background(), user)

		assert.Equal(t, shared.ErrConcurrencyConflict, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormCompanyRepository_FindByOwner(t *testing.T) {
	t.Run("lists companies oldest first", func(t *testing.T) {
		mockDB, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer mockDB.Close()

		gormDB, err := gorm.Open(postgres.New(postgres.Config{
			Conn:       mockDB,
			DriverName: "postgres",
		}), &gorm.Config{SkipDefaultTransaction: true})
		require.NoError(t, err)

		repo := NewGormCompanyRepository(gormDB)
		ownerID := uuid.New()

		rows := sqlmock.NewRows([]string{"id", "name", "owner_user_id", "status"}).
			AddRow(uuid.New(), "Bakkerij Jansen", ownerID, "active").
			AddRow(uuid.New(), "Jansen Holding", ownerID, "active")

		mock.ExpectQuery(`SELECT \* FROM "companies" WHERE owner_user_id = \$1 ORDER BY created_at ASC`).
			WithArgs(ownerID).
			WillReturnRows(rows)

		companies, err := repo.FindByOwner(context.Background(), ownerID)

		assert.NoError(t, err)
		require.Len(t, companies, 2)
		assert.Equal(t, "Bakkerij Jansen", companies[0].Name)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
