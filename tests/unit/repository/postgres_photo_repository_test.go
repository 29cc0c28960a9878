package repository_test

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/honeynil/photomarket/internal/models"
	repository "github.com/honeynil/photomarket/internal/repository/postgres"
	pkgerrors "github.com/honeynil/photomarket/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestPostgresPhotoRepository_FindUnsoldByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresPhotoRepository(db)
	ctx := context.Background()

	columns := []string{"id", "user_id", "buyer_id", "price", "status", "created_at", "updated_at"}
	query := regexp.QuoteMeta(`SELECT id, user_id, COALESCE(buyer_id::text, ''), price, status, created_at, updated_at FROM photos WHERE id = $1 AND status = $2`)

	t.Run("Available", func(t *testing.T) {
		now := time.Now().UTC()
		mock.ExpectQuery(query).WithArgs("photo-1", models.PhotoAvailable).
			WillReturnRows(sqlmock.NewRows(columns).AddRow("photo-1", "seller-1", "", 100.0, "AVAILABLE", now, now))

		photo, err := repo.FindUnsoldByID(ctx, "photo-1")
		assert.NoError(t, err)
		assert.Equal(t, "photo-1", photo.ID)
		assert.Equal(t, "seller-1", photo.UserID)
		assert.Equal(t, models.PhotoAvailable, photo.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("SoldOrMissing", func(t *testing.T) {
		mock.ExpectQuery(query).WithArgs("photo-2", models.PhotoAvailable).
			WillReturnRows(sqlmock.NewRows(columns))

		photo, err := repo.FindUnsoldByID(ctx, "photo-2")
		assert.Nil(t, photo)
		assert.ErrorIs(t, err, pkgerrors.ErrPhotoNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresPhotoRepository_Update(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresPhotoRepository(db)
	ctx := context.Background()

	query := regexp.QuoteMeta(`UPDATE photos SET status = $2, buyer_id = $3, updated_at = $4 WHERE id = $1`)

	t.Run("NilPhoto", func(t *testing.T) {
		affected, err := repo.Update(ctx, nil)
		assert.Zero(t, affected)
		assert.ErrorIs(t, err, pkgerrors.ErrNilPhoto)
	})

	t.Run("Reserve", func(t *testing.T) {
		now := time.Now().UTC()
		photo := &models.Photo{
			ID:        "photo-1",
			UserID:    "seller-1",
			BuyerID:   "buyer-1",
			Status:    models.PhotoWaiting,
			UpdatedAt: now,
		}
		mock.ExpectExec(query).
			WithArgs("photo-1", models.PhotoWaiting, "buyer-1", now).
			WillReturnResult(sqlmock.NewResult(0, 1))

		affected, err := repo.Update(ctx, photo)
		assert.NoError(t, err)
		assert.Equal(t, int64(1), affected)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ReleaseClearsBuyer", func(t *testing.T) {
		now := time.Now().UTC()
		photo := &models.Photo{
			ID:        "photo-1",
			UserID:    "seller-1",
			Status:    models.PhotoAvailable,
			UpdatedAt: now,
		}
		mock.ExpectExec(query).
			WithArgs("photo-1", models.PhotoAvailable, nil, now).
			WillReturnResult(sqlmock.NewResult(0, 1))

		affected, err := repo.Update(ctx, photo)
		assert.NoError(t, err)
		assert.Equal(t, int64(1), affected)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
