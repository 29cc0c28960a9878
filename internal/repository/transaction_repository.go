package repository

import (
	"context"

	"github.com/honeynil/photomarket/internal/models"
)

type TransactionRepository interface {
	Create(ctx context.Context, tx *models.Transaction) (string, error)
	GetByID(ctx context.Context, id string) (*models.Transaction, error)
	Update(ctx context.Context, tx *models.Transaction) (int64, error)
	ListByBuyer(ctx context.Context, buyerID string, page, size int) ([]models.Transaction, int64, error)
	ListBySeller(ctx context.Context, sellerID string, page, size int) ([]models.Transaction, int64, error)
}
