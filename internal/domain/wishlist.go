package domain

import (
	"time"

	"github.com/google/uuid"
)

// WishlistEntry is one saved product for a user; (UserID, ProductID) is unique
type WishlistEntry struct {
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	ProductID string    `json:"product_id" db:"product_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
