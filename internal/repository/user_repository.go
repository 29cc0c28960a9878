package repository

import (
	"context"

	"github.com/honeynil/photomarket/internal/models"
)

type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}
