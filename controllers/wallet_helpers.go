package controllers

import (
	"github.com/hayder-jabbar/softstore/models"
	"github.com/hayder-jabbar/softstore/utils"
	"gorm.io/gorm"
)

// walletNegativeLimit is how far below zero the user's balance may go.
// Zero for everyone outside a wholesale tier.
func walletNegativeLimit(user *models.User) int64 {
	if user.WholesaleType != nil {
		return user.WholesaleType.NegativeLimit
	}
	return 0
}

// walletSpendable is the amount the user can still put towards an order:
// balance plus the tier's negative headroom, never negative.
func walletSpendable(user *models.User) int64 {
	spendable := user.WalletBalance + walletNegativeLimit(user)
	if spendable < 0 {
		return 0
	}
	return spendable
}

// createTransaction appends one ledger row and moves the user's cached
// balance by exactly the row's amount, both inside the caller's transaction.
// Debits are validated against the negative limit before anything is
// written; an overdraft attempt leaves ledger and balance untouched.
func createTransaction(tx *gorm.DB, user *models.User, transactionType string, amount int64, description string, relatedOrderID *uint, createdByID *uint) (*models.Transaction, error) {
	if amount == 0 {
		return nil, utils.NewValidationError("amount", "amount must not be zero")
	}
	if amount < 0 {
		if user.WalletBalance+amount < -walletNegativeLimit(user) {
			return nil, utils.DomainError("insufficient wallet balance")
		}
	}

	entry := models.Transaction{
		TransactionType: transactionType,
		UserID:          user.ID,
		Amount:          amount,
		Description:     description,
		RelatedOrderID:  relatedOrderID,
		CreatedByID:     createdByID,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return nil, utils.WrapError(err, "failed to create wallet transaction")
	}

	if err := tx.Model(&models.User{}).Where("id = ?", user.ID).
		Update("wallet_balance", gorm.Expr("wallet_balance + ?", amount)).Error; err != nil {
		return nil, utils.WrapError(err, "failed to update wallet balance")
	}
	user.WalletBalance += amount
	return &entry, nil
}
