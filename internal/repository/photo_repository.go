package repository

import (
	"context"

	"github.com/honeynil/photomarket/internal/models"
)

type PhotoRepository interface {
	// FindUnsoldByID returns the photo only while it is still AVAILABLE.
	FindUnsoldByID(ctx context.Context, id string) (*models.Photo, error)
	GetByID(ctx context.Context, id string) (*models.Photo, error)
	Update(ctx context.Context, photo *models.Photo) (int64, error)
}
