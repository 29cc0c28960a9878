package models

import "time"

type Photo struct {
	ID        string      `json:"id"`
	UserID    string      `json:"user_id"`
	BuyerID   string      `json:"buyer_id,omitempty"`
	Price     float64     `json:"price"`
	Status    PhotoStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type PhotoStatus string

const (
	PhotoAvailable PhotoStatus = "AVAILABLE"
	PhotoWaiting   PhotoStatus = "WAITING"
	PhotoSold      PhotoStatus = "SOLD"
)
