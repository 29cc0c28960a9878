package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/honeynil/photomarket/internal/models"
	"github.com/honeynil/photomarket/internal/repository"
	"github.com/segmentio/kafka-go"
)

// Consumer finalizes photo reservations after a payment event: photos of a
// paid transaction become SOLD, photos of an expired or cancelled one are
// released back to AVAILABLE.
type Consumer struct {
	reader          *kafka.Reader
	transactionRepo repository.TransactionRepository
	photoRepo       repository.PhotoRepository
}

func NewConsumer(brokers []string, topic, groupID string, transactionRepo repository.TransactionRepository, photoRepo repository.PhotoRepository) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 10e3,
			MaxBytes: 10e6,
		}),
		transactionRepo: transactionRepo,
		photoRepo:       photoRepo,
	}
}

func (c *Consumer) Consume(ctx context.Context) {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			slog.Error("failed to read Kafka message", "topic", c.reader.Config().Topic, "error", err)
			continue
		}

		slog.Info("Kafka message received", "topic", msg.Topic, "key", string(msg.Key), "value", string(msg.Value))

		var event struct {
			TransactionID string `json:"transaction_id"`
			Status        string `json:"status"`
			CreatedAt     string `json:"created_at"`
		}
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			slog.Error("failed to unmarshal payment event", "error", err)
			continue
		}

		if event.TransactionID == "" {
			slog.Error("invalid payment event: missing transaction_id")
			continue
		}

		var photoStatus models.PhotoStatus
		keepBuyer := false
		switch models.StatusType(event.Status) {
		case models.StatusPaid:
			photoStatus = models.PhotoSold
			keepBuyer = true
		case models.StatusExpired, models.StatusCancelled:
			photoStatus = models.PhotoAvailable
		default:
			// pending events need no photo change
			continue
		}

		transaction, err := c.transactionRepo.GetByID(ctx, event.TransactionID)
		if err != nil {
			slog.Error("failed to load transaction for payment event", "transaction_id", event.TransactionID, "error", err)
			// TODO: Send to dead-letter queue
			continue
		}

		for _, detail := range transaction.Details {
			for _, photoID := range detail.PhotoIDs {
				photo, err := c.photoRepo.GetByID(ctx, photoID)
				if err != nil {
					slog.Error("failed to load photo for finalization", "photo_id", photoID, "transaction_id", transaction.ID, "error", err)
					continue
				}

				photo.Status = photoStatus
				if !keepBuyer {
					photo.BuyerID = ""
				}
				photo.UpdatedAt = time.Now().UTC()

				if _, err := c.photoRepo.Update(ctx, photo); err != nil {
					slog.Error("failed to finalize photo", "photo_id", photoID, "transaction_id", transaction.ID, "error", err)
					continue
				}

				slog.Info("photo finalized", "photo_id", photoID, "transaction_id", transaction.ID, "status", photoStatus)
			}
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
