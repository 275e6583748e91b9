package models

import (
	"time"

	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users"`

	UserID       string    `bun:"user_id,pk" json:"user_id"`
	Name         string    `bun:"user_name,notnull" json:"user_name"`
	Email        string    `bun:"user_email,unique,notnull" json:"user_email"`
	PasswordHash string    `bun:"password_hash,notnull" json:"-"`
	Address      string    `bun:"user_address,nullzero" json:"user_address,omitempty"`
	City         string    `bun:"user_city,nullzero" json:"user_city,omitempty"`
	CreatedAt    time.Time `bun:"user_creation_date,notnull" json:"user_creation_date"`
}
