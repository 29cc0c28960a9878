package models

import "time"

type Transaction struct {
	ID        string     `json:"id"`
	BuyerID   string     `json:"buyer_id"`
	Details   []Detail   `json:"details"`
	Total     float64    `json:"total"`
	Status    StatusType `json:"status"`
	Payment   *Payment   `json:"payment,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Detail binds one seller to the set of photos bought from them.
type Detail struct {
	SellerID string   `json:"seller_id"`
	PhotoIDs []string `json:"photo_id"`
}

// Payment mirrors the gateway's charge response; present only after a
// successful charge. Status carries the gateway vocabulary verbatim.
type Payment struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	URL       string `json:"url"`
	ExpiredAt string `json:"expired_at"`
}

type StatusType string

const (
	StatusPending   StatusType = "PENDING"
	StatusPaid      StatusType = "PAID"
	StatusExpired   StatusType = "EXPIRED"
	StatusCancelled StatusType = "CANCELLED"
)
