package service

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/honeynil/photomarket/internal/infrastructure/kafka"
	"github.com/honeynil/photomarket/internal/infrastructure/midtrans"
	"github.com/honeynil/photomarket/internal/models"
	"github.com/honeynil/photomarket/internal/repository"
	pkgerrors "github.com/honeynil/photomarket/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

type CreateTransactionRequest struct {
	BuyerID string          `json:"buyer_id"`
	Details []models.Detail `json:"details"`
	Total   float64         `json:"total"`
}

// WebhookRequest is the signed notification envelope sent by the gateway.
type WebhookRequest struct {
	OrderID           string `json:"order_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	Signature         string `json:"signature_key"`
	TransactionStatus string `json:"transaction_status"`
}

type TransactionService interface {
	Create(ctx context.Context, req *CreateTransactionRequest) (*models.Transaction, error)
	Get(ctx context.Context, id, userID string) (*models.Transaction, error)
	ListByBuyer(ctx context.Context, userID string, page, size int) ([]models.Transaction, int64, error)
	ListBySeller(ctx context.Context, userID string, page, size int) ([]models.Transaction, int64, error)
	GetPayment(ctx context.Context, id, userID string) (json.RawMessage, error)
	VerifyPayment(ctx context.Context, req *WebhookRequest) (*models.Transaction, error)
}

type transactionService struct {
	transactionRepo repository.TransactionRepository
	photoRepo       repository.PhotoRepository
	userRepo        repository.UserRepository
	payments        midtrans.PaymentClient
	kafkaProducer   kafka.KafkaProducer
	serverKey       string
}

func NewTransactionService(
	transactionRepo repository.TransactionRepository,
	photoRepo repository.PhotoRepository,
	userRepo repository.UserRepository,
	payments midtrans.PaymentClient,
	kafkaProducer kafka.KafkaProducer,
	serverKey string,
) *transactionService {
	return &transactionService{
		transactionRepo: transactionRepo,
		photoRepo:       photoRepo,
		userRepo:        userRepo,
		payments:        payments,
		kafkaProducer:   kafkaProducer,
		serverKey:       serverKey,
	}
}

// Create runs the full purchase flow: validate, reserve photos, persist the
// transaction, charge the gateway and attach the resulting payment. Photo
// reservations are committed best-effort after the transaction insert; the
// flow is not idempotent, a repeated request creates a second transaction and
// a second charge.
func (s *transactionService) Create(ctx context.Context, req *CreateTransactionRequest) (*models.Transaction, error) {
	tracer := otel.Tracer("transaction-service")
	ctx, span := tracer.Start(ctx, "CreateTransaction")
	defer span.End()

	validation := pkgerrors.NewValidationError()
	if req.BuyerID == "" {
		validation.Add("buyer_id", "buyer ID is required")
	}
	if len(req.Details) == 0 {
		validation.Add("details", "details are required")
	}
	if req.Total == 0 {
		validation.Add("total", "total is required")
	}
	if validation.HasErrors() {
		span.SetStatus(codes.Error, "validation failed")
		slog.Error("validation error", "fields", validation.Fields)
		return nil, validation
	}

	if _, err := s.userRepo.GetByID(ctx, req.BuyerID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "buyer not found")
		slog.Error("buyer not found", "buyer_id", req.BuyerID, "error", err)
		return nil, pkgerrors.ErrUserNotFound
	}

	// Scan every detail before touching anything: violations accumulate per
	// photo id and the whole request is rejected together.
	photoErrors := pkgerrors.NewValidationError()
	var staged []*models.Photo
	now := time.Now().UTC()
	for _, detail := range req.Details {
		seller, err := s.userRepo.GetByID(ctx, detail.SellerID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "seller not found")
			slog.Error("seller not found", "seller_id", detail.SellerID, "error", err)
			return nil, pkgerrors.ErrSellerNotFound
		}
		for _, photoID := range detail.PhotoIDs {
			photo, err := s.photoRepo.FindUnsoldByID(ctx, photoID)
			if err != nil {
				photoErrors.Add(photoID, "Photo not found or already sold")
				continue
			}
			if photo.UserID != seller.ID {
				photoErrors.Add(photoID, "Photo not owned by seller")
				continue
			}
			photo.Status = models.PhotoWaiting
			photo.BuyerID = req.BuyerID
			photo.UpdatedAt = now
			staged = append(staged, photo)
		}
	}
	if photoErrors.HasErrors() {
		span.SetStatus(codes.Error, "photo validation failed")
		slog.Error("validation error", "fields", photoErrors.Fields)
		return nil, photoErrors
	}

	transaction := &models.Transaction{
		BuyerID: req.BuyerID,
		Details: req.Details,
		Total:   req.Total,
		Status:  models.StatusPending,
	}
	transactionID, err := s.transactionRepo.Create(ctx, transaction)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transaction creation failed")
		slog.Error("failed to create transaction", "buyer_id", req.BuyerID, "error", err)
		return nil, fmt.Errorf("%w: failed to create transaction", pkgerrors.ErrInternal)
	}
	slog.Info("transaction created", "transaction_id", transactionID, "buyer_id", req.BuyerID, "total", req.Total)

	// Reservations are committed one by one; a failed photo update is logged
	// and skipped, the transaction itself stays.
	for _, photo := range staged {
		if _, err := s.photoRepo.Update(ctx, photo); err != nil {
			span.RecordError(err)
			slog.Error("failed to reserve photo", "photo_id", photo.ID, "transaction_id", transactionID, "error", err)
			continue
		}
		slog.Info("photo reserved", "photo_id", photo.ID, "transaction_id", transactionID)
	}

	// The gateway only takes whole units.
	grossAmount := int64(math.Ceil(transaction.Total))
	charge, err := s.payments.Charge(ctx, transactionID, grossAmount)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "charge failed")
		slog.Error("failed to charge payment", "transaction_id", transactionID, "error", err)
		return nil, fmt.Errorf("%w: failed to charge payment", pkgerrors.ErrInternal)
	}

	payment := &models.Payment{
		ID:        charge.TransactionID,
		Status:    charge.TransactionStatus,
		ExpiredAt: charge.ExpiryTime,
	}
	if len(charge.Actions) > 0 {
		payment.URL = charge.Actions[0].URL
	}
	transaction.Payment = payment
	transaction.UpdatedAt = time.Now().UTC()

	affected, err := s.transactionRepo.Update(ctx, transaction)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transaction update failed")
		slog.Error("failed to attach payment", "transaction_id", transactionID, "error", err)
		return nil, fmt.Errorf("%w: failed to update transaction", pkgerrors.ErrInternal)
	}
	if affected == 0 {
		span.SetStatus(codes.Error, "transaction update affected no rows")
		slog.Error("transaction update affected no rows", "transaction_id", transactionID)
		return nil, fmt.Errorf("%w: failed to update transaction", pkgerrors.ErrInternal)
	}

	s.publishEvent(ctx, "transactions", transactionID, map[string]interface{}{
		"event_type":     "transaction_created",
		"transaction_id": transactionID,
		"buyer_id":       req.BuyerID,
		"total":          transaction.Total,
		"status":         transaction.Status,
		"created_at":     time.Now().UTC().Format(time.RFC3339),
	})

	updated, err := s.transactionRepo.GetByID(ctx, transactionID)
	if err != nil {
		span.RecordError(err)
		slog.Error("failed to reload transaction", "transaction_id", transactionID, "error", err)
		return nil, fmt.Errorf("%w: failed to reload transaction", pkgerrors.ErrInternal)
	}

	slog.Info("transaction ready", "transaction_id", updated.ID, "payment_id", payment.ID, "payment_status", payment.Status)
	return updated, nil
}

func (s *transactionService) Get(ctx context.Context, id, userID string) (*models.Transaction, error) {
	tracer := otel.Tracer("transaction-service")
	ctx, span := tracer.Start(ctx, "GetTransaction")
	defer span.End()

	validation := pkgerrors.NewValidationError()
	if id == "" {
		validation.Add("id", "transaction ID is required")
	}
	if userID == "" {
		validation.Add("user_id", "user ID is required")
	}
	if validation.HasErrors() {
		span.SetStatus(codes.Error, "validation failed")
		slog.Error("validation error", "fields", validation.Fields)
		return nil, validation
	}

	transaction, err := s.transactionRepo.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transaction not found")
		slog.Error("failed to get transaction", "transaction_id", id, "user_id", userID, "error", err)
		return nil, err
	}

	slog.Info("transaction retrieved", "transaction_id", id, "user_id", userID)
	return transaction, nil
}

func (s *transactionService) ListByBuyer(ctx context.Context, userID string, page, size int) ([]models.Transaction, int64, error) {
	tracer := otel.Tracer("transaction-service")
	ctx, span := tracer.Start(ctx, "ListTransactionsByBuyer")
	defer span.End()

	transactions, total, err := s.transactionRepo.ListByBuyer(ctx, userID, page, size)
	if err != nil {
		span.RecordError(err)
		slog.Error("failed to list transactions by buyer", "user_id", userID, "error", err)
		return nil, 0, err
	}

	slog.Info("transactions listed", "user_id", userID, "role", "buyer", "count", len(transactions), "total", total)
	return transactions, total, nil
}

func (s *transactionService) ListBySeller(ctx context.Context, userID string, page, size int) ([]models.Transaction, int64, error) {
	tracer := otel.Tracer("transaction-service")
	ctx, span := tracer.Start(ctx, "ListTransactionsBySeller")
	defer span.End()

	transactions, total, err := s.transactionRepo.ListBySeller(ctx, userID, page, size)
	if err != nil {
		span.RecordError(err)
		slog.Error("failed to list transactions by seller", "user_id", userID, "error", err)
		return nil, 0, err
	}

	slog.Info("transactions listed", "user_id", userID, "role", "seller", "count", len(transactions), "total", total)
	return transactions, total, nil
}

// GetPayment proxies the gateway's status response without interpretation.
func (s *transactionService) GetPayment(ctx context.Context, id, userID string) (json.RawMessage, error) {
	tracer := otel.Tracer("transaction-service")
	ctx, span := tracer.Start(ctx, "GetPayment")
	defer span.End()

	validation := pkgerrors.NewValidationError()
	if id == "" {
		validation.Add("id", "transaction ID is required")
	}
	if userID == "" {
		validation.Add("user_id", "user ID is required")
	}
	if validation.HasErrors() {
		span.SetStatus(codes.Error, "validation failed")
		slog.Error("validation error", "fields", validation.Fields)
		return nil, validation
	}

	status, err := s.payments.Status(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "status query failed")
		slog.Error("failed to get payment status", "transaction_id", id, "user_id", userID, "error", err)
		return nil, fmt.Errorf("%w: failed to get payment status", pkgerrors.ErrInternal)
	}

	slog.Info("payment status retrieved", "transaction_id", id, "user_id", userID)
	return status, nil
}

// VerifyPayment authenticates a gateway webhook and applies the reported
// status. The signature covers order id, status code, gross amount and the
// server key; nothing is written on a mismatch.
func (s *transactionService) VerifyPayment(ctx context.Context, req *WebhookRequest) (*models.Transaction, error) {
	tracer := otel.Tracer("transaction-service")
	ctx, span := tracer.Start(ctx, "VerifyPayment")
	defer span.End()

	calculated := s.signature(req.OrderID, req.StatusCode, req.GrossAmount)
	if calculated != req.Signature {
		span.SetStatus(codes.Error, "invalid signature")
		slog.Error("invalid webhook signature", "order_id", req.OrderID)
		return nil, pkgerrors.ErrInvalidSignature
	}

	transaction, err := s.transactionRepo.GetByID(ctx, req.OrderID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transaction not found")
		slog.Error("webhook for unknown transaction", "order_id", req.OrderID, "error", err)
		return nil, err
	}

	// The gateway may re-deliver notifications in any order; the last write
	// wins, there is no guard on the current status.
	var status models.StatusType
	switch req.TransactionStatus {
	case "settlement":
		status = models.StatusPaid
	case "expire":
		status = models.StatusExpired
	case "cancel", "deny":
		status = models.StatusCancelled
	case "pending":
		status = models.StatusPending
	default:
		span.SetStatus(codes.Error, "unknown transaction status")
		slog.Error("unknown webhook transaction status", "order_id", req.OrderID, "transaction_status", req.TransactionStatus)
		return nil, pkgerrors.ErrInvalidTransactionStatus
	}

	transaction.Status = status
	transaction.UpdatedAt = time.Now().UTC()
	if transaction.Payment != nil {
		transaction.Payment.Status = req.TransactionStatus
	}

	affected, err := s.transactionRepo.Update(ctx, transaction)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transaction update failed")
		slog.Error("failed to apply webhook", "order_id", req.OrderID, "error", err)
		return nil, fmt.Errorf("%w: failed to update transaction", pkgerrors.ErrInternal)
	}
	if affected == 0 {
		span.SetStatus(codes.Error, "transaction update affected no rows")
		slog.Error("webhook update affected no rows", "order_id", req.OrderID)
		return nil, fmt.Errorf("%w: failed to update transaction", pkgerrors.ErrInternal)
	}

	s.publishEvent(ctx, "payments", transaction.ID, map[string]interface{}{
		"event_type":     "payment_" + req.TransactionStatus,
		"transaction_id": transaction.ID,
		"status":         string(status),
		"created_at":     time.Now().UTC().Format(time.RFC3339),
	})

	updated, err := s.transactionRepo.GetByID(ctx, req.OrderID)
	if err != nil {
		span.RecordError(err)
		slog.Error("failed to reload transaction", "order_id", req.OrderID, "error", err)
		return nil, fmt.Errorf("%w: failed to reload transaction", pkgerrors.ErrInternal)
	}

	slog.Info("webhook applied", "order_id", req.OrderID, "status", status, "payment_status", req.TransactionStatus)
	return updated, nil
}

func (s *transactionService) signature(orderID, statusCode, grossAmount string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + s.serverKey))
	return hex.EncodeToString(sum[:])
}

func (s *transactionService) publishEvent(ctx context.Context, topic, key string, event map[string]interface{}) {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal Kafka event", "topic", topic, "key", key, "error", err)
		return
	}
	if err := s.kafkaProducer.Send(ctx, topic, key, eventBytes); err != nil {
		slog.Error("failed to send Kafka event", "topic", topic, "key", key, "error", err)
	}
}
