package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/honeynil/photomarket/internal/infrastructure/observability"
	"github.com/honeynil/photomarket/internal/models"
	pkgerrors "github.com/honeynil/photomarket/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type PostgresPhotoRepository struct {
	db *sql.DB
}

func NewPostgresPhotoRepository(db *sql.DB) *PostgresPhotoRepository {
	return &PostgresPhotoRepository{db: db}
}

// FindUnsoldByID matches on AVAILABLE status so a reserved or sold photo
// reads the same as a missing one.
func (r *PostgresPhotoRepository) FindUnsoldByID(ctx context.Context, id string) (*models.Photo, error) {
	var err error
	tracer := otel.Tracer("photo-repository")
	ctx, span := tracer.Start(ctx, "FindUnsoldPhotoByID")
	span.SetAttributes(attribute.String("photo_id", id))
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("FindUnsoldPhotoByID", status).Inc()
		observability.RepositoryDuration.WithLabelValues("FindUnsoldPhotoByID").Observe(time.Since(start).Seconds())
	}()

	query := `SELECT id, user_id, COALESCE(buyer_id::text, ''), price, status, created_at, updated_at FROM photos WHERE id = $1 AND status = $2`
	photo, err := r.scanPhoto(r.db.QueryRowContext(ctx, query, id, models.PhotoAvailable))
	if stderrors.Is(err, sql.ErrNoRows) {
		err = pkgerrors.ErrPhotoNotFound
		slog.Warn("photo not found or already sold", "method", "FindUnsoldByID", "photo_id", id)
		return nil, err
	}
	if err != nil {
		slog.Error("failed to find unsold photo", "method", "FindUnsoldByID", "photo_id", id, "error", err)
		return nil, fmt.Errorf("failed to find unsold photo: %w", err)
	}

	return photo, nil
}

func (r *PostgresPhotoRepository) GetByID(ctx context.Context, id string) (*models.Photo, error) {
	var err error
	tracer := otel.Tracer("photo-repository")
	ctx, span := tracer.Start(ctx, "GetPhotoByID")
	span.SetAttributes(attribute.String("photo_id", id))
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("GetPhotoByID", status).Inc()
		observability.RepositoryDuration.WithLabelValues("GetPhotoByID").Observe(time.Since(start).Seconds())
	}()

	query := `SELECT id, user_id, COALESCE(buyer_id::text, ''), price, status, created_at, updated_at FROM photos WHERE id = $1`
	photo, err := r.scanPhoto(r.db.QueryRowContext(ctx, query, id))
	if stderrors.Is(err, sql.ErrNoRows) {
		err = pkgerrors.ErrPhotoNotFound
		slog.Warn("photo not found", "method", "GetByID", "photo_id", id)
		return nil, err
	}
	if err != nil {
		slog.Error("failed to get photo", "method", "GetByID", "photo_id", id, "error", err)
		return nil, fmt.Errorf("failed to get photo: %w", err)
	}

	return photo, nil
}

func (r *PostgresPhotoRepository) Update(ctx context.Context, photo *models.Photo) (int64, error) {
	var err error
	tracer := otel.Tracer("photo-repository")
	ctx, span := tracer.Start(ctx, "UpdatePhoto")
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("UpdatePhoto", status).Inc()
		observability.RepositoryDuration.WithLabelValues("UpdatePhoto").Observe(time.Since(start).Seconds())
	}()

	if photo == nil {
		err = pkgerrors.ErrNilPhoto
		slog.Error("failed to update photo", "method", "Update", "error", err)
		return 0, err
	}

	span.SetAttributes(
		attribute.String("photo_id", photo.ID),
		attribute.String("status", string(photo.Status)),
	)

	var buyerID interface{}
	if photo.BuyerID != "" {
		buyerID = photo.BuyerID
	}

	query := `UPDATE photos SET status = $2, buyer_id = $3, updated_at = $4 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, photo.ID, photo.Status, buyerID, photo.UpdatedAt)
	if err != nil {
		slog.Error("failed to update photo", "method", "Update", "photo_id", photo.ID, "error", err)
		return 0, fmt.Errorf("failed to update photo: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Error("failed to read rows affected", "method", "Update", "photo_id", photo.ID, "error", err)
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}

	slog.Info("photo updated", "method", "Update", "photo_id", photo.ID, "status", photo.Status, "rows_affected", affected)
	return affected, nil
}

func (r *PostgresPhotoRepository) scanPhoto(row *sql.Row) (*models.Photo, error) {
	var photo models.Photo
	err := row.Scan(&photo.ID, &photo.UserID, &photo.BuyerID, &photo.Price, &photo.Status, &photo.CreatedAt, &photo.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &photo, nil
}
