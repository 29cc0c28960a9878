package repository_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	repository "github.com/honeynil/photomarket/internal/repository/postgres"
	pkgerrors "github.com/honeynil/photomarket/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestPostgresUserRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresUserRepository(db)
	ctx := context.Background()

	columns := []string{"id", "name", "email", "username", "created_at"}
	query := regexp.QuoteMeta(`SELECT id, name, email, username, created_at FROM users WHERE id = $1`)

	t.Run("EmptyID", func(t *testing.T) {
		user, err := repo.GetByID(ctx, "")
		assert.Nil(t, user)
		assert.Error(t, err)
	})

	t.Run("NotFound", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("user-404").WillReturnRows(sqlmock.NewRows(columns))

		user, err := repo.GetByID(ctx, "user-404")
		assert.Nil(t, user)
		assert.ErrorIs(t, err, pkgerrors.ErrUserNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Success", func(t *testing.T) {
		now := time.Now().UTC()
		mock.ExpectQuery(query).WithArgs("user-1").
			WillReturnRows(sqlmock.NewRows(columns).AddRow("user-1", "Buyer", "buyer@example.com", "buyer", now))

		user, err := repo.GetByID(ctx, "user-1")
		assert.NoError(t, err)
		assert.Equal(t, "user-1", user.ID)
		assert.Equal(t, "buyer@example.com", user.Email)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
