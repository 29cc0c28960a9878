package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/honeynil/photomarket/internal/infrastructure/observability"
	"github.com/honeynil/photomarket/internal/models"
	pkgerrors "github.com/honeynil/photomarket/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type PostgresTransactionRepository struct {
	db *sql.DB
}

func NewPostgresTransactionRepository(db *sql.DB) *PostgresTransactionRepository {
	return &PostgresTransactionRepository{db: db}
}

func (r *PostgresTransactionRepository) Create(ctx context.Context, tx *models.Transaction) (string, error) {
	var err error
	tracer := otel.Tracer("transaction-repository")
	ctx, span := tracer.Start(ctx, "CreateTransaction")
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("CreateTransaction", status).Inc()
		observability.RepositoryDuration.WithLabelValues("CreateTransaction").Observe(time.Since(start).Seconds())
	}()

	if tx == nil {
		err = pkgerrors.ErrNilTransaction
		slog.Error("failed to create transaction", "method", "Create", "error", err)
		return "", err
	}

	if tx.Total <= 0 {
		err = fmt.Errorf("total must be positive")
		slog.Error("total must be positive", "method", "Create", "total", tx.Total, "error", err)
		return "", err
	}

	if tx.Status == "" {
		tx.Status = models.StatusPending
	}
	if tx.Status != models.StatusPending && tx.Status != models.StatusPaid &&
		tx.Status != models.StatusExpired && tx.Status != models.StatusCancelled {
		err = pkgerrors.ErrInvalidTransactionStatus
		slog.Error("invalid transaction status", "method", "Create", "status", tx.Status, "error", err)
		return "", err
	}

	detailsJSON, err := json.Marshal(tx.Details)
	if err != nil {
		slog.Error("failed to marshal details", "method", "Create", "error", err)
		return "", fmt.Errorf("failed to marshal details: %w", err)
	}

	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}

	span.SetAttributes(
		attribute.String("transaction_id", tx.ID),
		attribute.String("buyer_id", tx.BuyerID),
		attribute.Float64("total", tx.Total),
		attribute.String("status", string(tx.Status)),
	)

	query := `INSERT INTO transactions (id, buyer_id, details, total, status) VALUES ($1, $2, $3, $4, $5) RETURNING created_at, updated_at`
	err = r.db.QueryRowContext(ctx, query, tx.ID, tx.BuyerID, detailsJSON, tx.Total, tx.Status).Scan(&tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		slog.Error("failed to create transaction", "method", "Create", "buyer_id", tx.BuyerID, "total", tx.Total, "error", err)
		return "", fmt.Errorf("failed to create transaction: %w", err)
	}

	slog.Info("transaction created", "method", "Create", "id", tx.ID, "buyer_id", tx.BuyerID, "total", tx.Total, "status", tx.Status)
	return tx.ID, nil
}

func (r *PostgresTransactionRepository) GetByID(ctx context.Context, id string) (*models.Transaction, error) {
	var err error
	tracer := otel.Tracer("transaction-repository")
	ctx, span := tracer.Start(ctx, "GetTransactionByID")
	span.SetAttributes(attribute.String("transaction_id", id))
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("GetTransactionByID", status).Inc()
		observability.RepositoryDuration.WithLabelValues("GetTransactionByID").Observe(time.Since(start).Seconds())
	}()

	query := `SELECT id, buyer_id, details, total, status, payment, created_at, updated_at FROM transactions WHERE id = $1`
	tx, err := scanTransaction(r.db.QueryRowContext(ctx, query, id))
	if stderrors.Is(err, sql.ErrNoRows) {
		err = pkgerrors.ErrTransactionNotFound
		slog.Error("transaction not found", "method", "GetByID", "transaction_id", id)
		return nil, err
	}
	if err != nil {
		slog.Error("failed to get transaction by id", "method", "GetByID", "transaction_id", id, "error", err)
		return nil, fmt.Errorf("failed to get transaction by id: %w", err)
	}

	slog.Info("transaction retrieved", "method", "GetByID", "transaction_id", id, "buyer_id", tx.BuyerID, "status", tx.Status)
	return tx, nil
}

// Update rewrites the mutable fields only: details stay as written at creation.
func (r *PostgresTransactionRepository) Update(ctx context.Context, tx *models.Transaction) (int64, error) {
	var err error
	tracer := otel.Tracer("transaction-repository")
	ctx, span := tracer.Start(ctx, "UpdateTransaction")
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("UpdateTransaction", status).Inc()
		observability.RepositoryDuration.WithLabelValues("UpdateTransaction").Observe(time.Since(start).Seconds())
	}()

	if tx == nil {
		err = pkgerrors.ErrNilTransaction
		slog.Error("failed to update transaction", "method", "Update", "error", err)
		return 0, err
	}

	span.SetAttributes(
		attribute.String("transaction_id", tx.ID),
		attribute.String("status", string(tx.Status)),
	)

	var paymentJSON []byte
	if tx.Payment != nil {
		paymentJSON, err = json.Marshal(tx.Payment)
		if err != nil {
			slog.Error("failed to marshal payment", "method", "Update", "transaction_id", tx.ID, "error", err)
			return 0, fmt.Errorf("failed to marshal payment: %w", err)
		}
	}

	query := `UPDATE transactions SET status = $2, payment = $3, updated_at = $4 WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, tx.ID, tx.Status, paymentJSON, tx.UpdatedAt)
	if err != nil {
		slog.Error("failed to update transaction", "method", "Update", "transaction_id", tx.ID, "error", err)
		return 0, fmt.Errorf("failed to update transaction: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Error("failed to read rows affected", "method", "Update", "transaction_id", tx.ID, "error", err)
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}

	slog.Info("transaction updated", "method", "Update", "transaction_id", tx.ID, "status", tx.Status, "rows_affected", affected)
	return affected, nil
}

func (r *PostgresTransactionRepository) ListByBuyer(ctx context.Context, buyerID string, page, size int) ([]models.Transaction, int64, error) {
	var err error
	tracer := otel.Tracer("transaction-repository")
	ctx, span := tracer.Start(ctx, "ListTransactionsByBuyer")
	span.SetAttributes(attribute.String("buyer_id", buyerID))
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("ListTransactionsByBuyer", status).Inc()
		observability.RepositoryDuration.WithLabelValues("ListTransactionsByBuyer").Observe(time.Since(start).Seconds())
	}()

	query := `SELECT id, buyer_id, details, total, status, payment, created_at, updated_at FROM transactions WHERE buyer_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	transactions, err := r.queryTransactions(ctx, query, buyerID, size, offset(page, size))
	if err != nil {
		slog.Error("failed to list transactions by buyer", "method", "ListByBuyer", "buyer_id", buyerID, "error", err)
		return nil, 0, err
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM transactions WHERE buyer_id = $1`
	if err = r.db.QueryRowContext(ctx, countQuery, buyerID).Scan(&total); err != nil {
		slog.Error("failed to count transactions by buyer", "method", "ListByBuyer", "buyer_id", buyerID, "error", err)
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	slog.Info("transactions listed", "method", "ListByBuyer", "buyer_id", buyerID, "count", len(transactions), "total", total)
	return transactions, total, nil
}

func (r *PostgresTransactionRepository) ListBySeller(ctx context.Context, sellerID string, page, size int) ([]models.Transaction, int64, error) {
	var err error
	tracer := otel.Tracer("transaction-repository")
	ctx, span := tracer.Start(ctx, "ListTransactionsBySeller")
	span.SetAttributes(attribute.String("seller_id", sellerID))
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("ListTransactionsBySeller", status).Inc()
		observability.RepositoryDuration.WithLabelValues("ListTransactionsBySeller").Observe(time.Since(start).Seconds())
	}()

	// JSONB containment on the details array
	match, err := json.Marshal([]map[string]string{{"seller_id": sellerID}})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to marshal seller match: %w", err)
	}

	query := `SELECT id, buyer_id, details, total, status, payment, created_at, updated_at FROM transactions WHERE details @> $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	transactions, err := r.queryTransactions(ctx, query, match, size, offset(page, size))
	if err != nil {
		slog.Error("failed to list transactions by seller", "method", "ListBySeller", "seller_id", sellerID, "error", err)
		return nil, 0, err
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM transactions WHERE details @> $1`
	if err = r.db.QueryRowContext(ctx, countQuery, match).Scan(&total); err != nil {
		slog.Error("failed to count transactions by seller", "method", "ListBySeller", "seller_id", sellerID, "error", err)
		return nil, 0, fmt.Errorf("failed to count transactions: %w", err)
	}

	slog.Info("transactions listed", "method", "ListBySeller", "seller_id", sellerID, "count", len(transactions), "total", total)
	return transactions, total, nil
}

func (r *PostgresTransactionRepository) queryTransactions(ctx context.Context, query string, args ...interface{}) ([]models.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, *tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return transactions, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row rowScanner) (*models.Transaction, error) {
	var tx models.Transaction
	var detailsJSON []byte
	var paymentJSON []byte
	err := row.Scan(&tx.ID, &tx.BuyerID, &detailsJSON, &tx.Total, &tx.Status, &paymentJSON, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(detailsJSON, &tx.Details); err != nil {
		return nil, fmt.Errorf("failed to unmarshal details: %w", err)
	}
	if len(paymentJSON) > 0 {
		tx.Payment = &models.Payment{}
		if err := json.Unmarshal(paymentJSON, tx.Payment); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payment: %w", err)
		}
	}
	return &tx, nil
}

func offset(page, size int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * size
}
