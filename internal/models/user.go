package models

import "time"

type User struct {
	ID        string
	Name      string
	Email     string
	Username  string
	CreatedAt time.Time
}
