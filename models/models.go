package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a customer or staff member. WalletBalance is a cached
// materialized view of the user's Transaction ledger and must only be
// mutated alongside a Transaction row in the same database transaction.
type User struct {
	gorm.Model
	Username        string             `gorm:"uniqueIndex;not null" json:"username"`
	Email           string             `gorm:"uniqueIndex;not null" json:"email"`
	Password        string             `json:"-"`
	FirstName       string             `json:"first_name"`
	LastName        string             `json:"last_name"`
	Phone           string             `json:"phone"`
	Phone2          string             `json:"phone_2"`
	Country         string             `json:"country"`
	City            string             `json:"city"`
	IsAdmin         bool               `json:"is_admin" gorm:"default:false"`
	IsBlocked       bool               `json:"is_blocked" gorm:"default:false"`
	WholesaleTypeID *uint              `json:"wholesale_type_id"`
	WholesaleType   *WholesaleUserType `json:"wholesale_type,omitempty" gorm:"foreignKey:WholesaleTypeID"`
	WalletBalance   int64              `json:"wallet_balance" gorm:"default:0"`

	Transactions []Transaction `json:"-" gorm:"foreignKey:UserID"`
}

// IsWholesale reports whether the user belongs to a wholesale tier.
func (u *User) IsWholesale() bool {
	return u.WholesaleTypeID != nil
}

// FullName returns the display name used on invoices and emails.
func (u *User) FullName() string {
	if u.FirstName == "" && u.LastName == "" {
		return u.Username
	}
	return u.FirstName + " " + u.LastName
}

// WholesaleUserType is a named wholesale tier. NegativeLimit is the maximum
// amount the tier's wallet balance may go below zero.
type WholesaleUserType struct {
	gorm.Model
	Title         string `json:"title"`
	NegativeLimit int64  `json:"negative_limit"`
}

// Sequence backs gap-free monotonic counters such as the order number.
// The row is read under a row lock and incremented in the caller's
// transaction.
type Sequence struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
	Value     int64     `gorm:"not null;default:0" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
