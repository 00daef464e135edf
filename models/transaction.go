package models

import (
	"time"
)

// Transaction type constants
const (
	TransactionTypeDeposit = "deposit"
	TransactionTypeOrder   = "order"
)

// Transaction is one append-only wallet ledger entry. Deposits carry positive
// amounts, order debits negative ones; in both cases the owning user's cached
// WalletBalance moves by exactly Amount when the row is created. Ledger rows
// are never updated or deleted.
type Transaction struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	TransactionType string `json:"transaction_type"`
	UserID          uint   `json:"user_id" gorm:"index"`
	User            User   `json:"-" gorm:"foreignKey:UserID"`
	Amount          int64  `json:"amount"`
	Description     string `json:"description"`
	RelatedOrderID  *uint  `json:"related_order_id"`

	CreatedByID *uint     `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}
