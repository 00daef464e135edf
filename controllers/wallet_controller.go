package controllers

import (
	"fmt"
	"strconv"
	"time"

	"github.com/hayder-jabbar/softstore/config"
	"github.com/hayder-jabbar/softstore/models"
	"github.com/hayder-jabbar/softstore/utils"
	"github.com/gin-gonic/gin"
	"github.com/tealeg/xlsx"
)

// WalletDepositRequest is the admin deposit payload. Negative amounts make
// manual corrections possible; the negative limit still applies.
type WalletDepositRequest struct {
	UserID      uint   `json:"user_id" binding:"required"`
	Amount      int64  `json:"amount" binding:"required"`
	Description string `json:"description"`
}

// WalletDeposit lets an admin credit or correct a customer's wallet.
func WalletDeposit(c *gin.Context) {
	utils.LogInfo("WalletDeposit called")

	actorVal, _ := c.Get("user")
	actor := actorVal.(models.User)

	var req WalletDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request format", err.Error())
		return
	}

	tx := config.DB.Begin()
	if tx.Error != nil {
		utils.InternalServerError(c, "Failed to process deposit", tx.Error.Error())
		return
	}

	var user models.User
	if err := lockForUpdate(tx).Preload("WholesaleType").First(&user, req.UserID).Error; err != nil {
		tx.Rollback()
		utils.NotFound(c, "User not found")
		return
	}

	description := req.Description
	if description == "" {
		description = "Wallet deposit"
	}
	entry, err := createTransaction(tx, &user, models.TransactionTypeDeposit,
		req.Amount, description, nil, &actor.ID)
	if err != nil {
		tx.Rollback()
		utils.LogError("Deposit failed for user %d: %v", req.UserID, err)
		utils.HandleError(c, err)
		return
	}
	if err := tx.Commit().Error; err != nil {
		utils.InternalServerError(c, "Failed to process deposit", err.Error())
		return
	}

	utils.LogInfo("Admin %d deposited %d to user %d wallet", actor.ID, req.Amount, user.ID)
	utils.Created(c, "Deposit recorded successfully", gin.H{
		"transaction_id": entry.ID,
		"user_id":        user.ID,
		"amount":         entry.Amount,
		"balance":        user.WalletBalance,
	})
}

// GetWalletBalance returns the viewer's cached balance with the spendable
// amount after the tier's negative headroom.
func GetWalletBalance(c *gin.Context) {
	userVal, _ := c.Get("user")
	user := userVal.(models.User)

	utils.Success(c, "Wallet retrieved successfully", gin.H{
		"balance":        user.WalletBalance,
		"spendable":      walletSpendable(&user),
		"negative_limit": walletNegativeLimit(&user),
	})
}

// ListWalletTransactions returns the viewer's ledger, newest first. Admins
// may read any user's ledger via ?user_id=.
func ListWalletTransactions(c *gin.Context) {
	utils.LogInfo("ListWalletTransactions called")

	userVal, _ := c.Get("user")
	user := userVal.(models.User)

	targetID := user.ID
	if user.IsAdmin {
		if param := c.Query("user_id"); param != "" {
			id, err := strconv.ParseUint(param, 10, 64)
			if err != nil {
				utils.BadRequest(c, "Invalid user_id", nil)
				return
			}
			targetID = uint(id)
		}
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	query := config.DB.Model(&models.Transaction{}).Where("user_id = ?", targetID)
	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch transactions", err.Error())
		return
	}

	var entries []models.Transaction
	if err := query.Order("id DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&entries).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch transactions", err.Error())
		return
	}

	data := make([]gin.H, 0, len(entries))
	for _, e := range entries {
		data = append(data, gin.H{
			"id":               e.ID,
			"transaction_type": e.TransactionType,
			"amount":           e.Amount,
			"description":      e.Description,
			"related_order_id": e.RelatedOrderID,
			"created_at":       e.CreatedAt,
		})
	}
	utils.SuccessWithPagination(c, "Transactions retrieved successfully", data, total, page, perPage)
}

// ExportWalletTransactions streams the full ledger as an xlsx workbook,
// optionally bounded by ?from=/&to= dates (YYYY-MM-DD).
func ExportWalletTransactions(c *gin.Context) {
	utils.LogInfo("ExportWalletTransactions called")

	query := config.DB.Model(&models.Transaction{}).Preload("User")
	if from := c.Query("from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			utils.BadRequest(c, "Invalid from date", nil)
			return
		}
		query = query.Where("created_at >= ?", t)
	}
	if to := c.Query("to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			utils.BadRequest(c, "Invalid to date", nil)
			return
		}
		query = query.Where("created_at < ?", t.AddDate(0, 0, 1))
	}

	var entries []models.Transaction
	if err := query.Order("id ASC").Find(&entries).Error; err != nil {
		utils.LogError("Failed to fetch transactions for export: %v", err)
		utils.InternalServerError(c, "Failed to fetch transactions", err.Error())
		return
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Wallet Transactions")
	if err != nil {
		utils.LogError("Failed to create Excel sheet: %v", err)
		utils.InternalServerError(c, "Failed to create Excel sheet", err.Error())
		return
	}

	headers := []string{"ID", "Date", "User", "Type", "Amount (IQD)", "Description", "Related Order"}
	headerRow := sheet.AddRow()
	for _, h := range headers {
		cell := headerRow.AddCell()
		cell.SetString(h)
		style := xlsx.NewStyle()
		font := xlsx.DefaultFont()
		font.Bold = true
		style.Font = *font
		cell.SetStyle(style)
	}

	for _, e := range entries {
		row := sheet.AddRow()
		row.AddCell().SetInt64(int64(e.ID))
		row.AddCell().SetString(e.CreatedAt.Format("2006-01-02 15:04:05"))
		row.AddCell().SetString(e.User.Username)
		row.AddCell().SetString(e.TransactionType)
		row.AddCell().SetInt64(e.Amount)
		row.AddCell().SetString(e.Description)
		if e.RelatedOrderID != nil {
			row.AddCell().SetInt64(int64(*e.RelatedOrderID))
		} else {
			row.AddCell().SetString("")
		}
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=wallet_transactions_%s.xlsx", time.Now().Format("2006-01-02")))
	if err := file.Write(c.Writer); err != nil {
		utils.LogError("Failed to write Excel file: %v", err)
		utils.InternalServerError(c, "Failed to write Excel file", err.Error())
		return
	}
}
