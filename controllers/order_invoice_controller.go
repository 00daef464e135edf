package controllers

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/hayder-jabbar/softstore/config"
	"github.com/hayder-jabbar/softstore/models"
	"github.com/hayder-jabbar/softstore/utils"
	"github.com/gin-gonic/gin"
	"github.com/jung-kurt/gofpdf"
)

// DownloadInvoice generates and returns a PDF invoice for the order.
func DownloadInvoice(c *gin.Context) {
	utils.LogInfo("DownloadInvoice called for order %s", c.Param("id"))

	userVal, _ := c.Get("user")
	user := userVal.(models.User)

	orderID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		utils.BadRequest(c, "Invalid order ID", nil)
		return
	}

	query := config.DB.Preload("OrderLines.Product").Preload("User")
	if !user.IsAdmin {
		query = query.Where("user_id = ?", user.ID)
	}
	var order models.Order
	if err := query.First(&order, orderID).Error; err != nil {
		utils.LogError("Order not found for invoice - Order ID: %d, User ID: %d", orderID, user.ID)
		utils.NotFound(c, "Order not found")
		return
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	// Store info
	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(100, 10, "SoftStore")
	pdf.SetFont("Arial", "", 12)
	pdf.Ln(8)
	pdf.Cell(100, 8, "Baghdad, Iraq")
	pdf.Ln(8)
	pdf.Cell(100, 8, "Email: support@softstore.example")
	pdf.Ln(12)

	// Invoice title and order info
	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(100, 10, "INVOICE")
	pdf.Ln(12)
	pdf.SetFont("Arial", "", 12)
	pdf.Cell(60, 8, "Order: "+order.OrderNumber)
	pdf.Cell(60, 8, "Date: "+order.CreatedAt.Format("2006-01-02 15:04:05"))
	pdf.Ln(8)
	pdf.Cell(60, 8, "Payment Method: "+order.PaymentMethod)
	pdf.Cell(60, 8, "Status: "+order.Status)
	pdf.Ln(8)
	pdf.Cell(60, 8, "Payment Status: "+order.PaymentStatus)
	pdf.Ln(10)

	// Customer info
	pdf.SetFont("Arial", "B", 13)
	pdf.Cell(100, 8, "Billed To:")
	pdf.Ln(7)
	pdf.SetFont("Arial", "", 12)
	pdf.Cell(100, 8, order.User.FullName())
	pdf.Ln(6)
	pdf.Cell(100, 8, order.User.Email)
	pdf.Ln(6)
	if order.User.Phone != "" {
		pdf.Cell(100, 8, "Phone: "+order.User.Phone)
		pdf.Ln(6)
	}
	if order.Address != "" {
		pdf.Cell(100, 8, order.Address)
		pdf.Ln(6)
	}
	pdf.Ln(4)

	// Items table
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(70, 8, "Product", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 8, "Qty", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 8, "Unit Price", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 8, "Total", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 12)
	for _, line := range order.OrderLines {
		pdf.CellFormat(70, 8, line.Product.Name, "1", 0, "L", false, 0, "")
		pdf.CellFormat(20, 8, strconv.Itoa(line.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 8, fmt.Sprintf("%d IQD", line.UnitPrice), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 8, fmt.Sprintf("%d IQD", line.SubTotal()), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	// Summary section
	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 12)
	pdf.CellFormat(120, 8, "Total:", "", 0, "L", false, 0, "")
	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(30, 8, fmt.Sprintf("%d IQD", order.TotalPrice), "", 1, "R", false, 0, "")
	if order.PaidAmountFromWallet > 0 {
		pdf.SetFont("Arial", "B", 12)
		pdf.CellFormat(120, 8, "Paid from wallet:", "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 12)
		pdf.CellFormat(30, 8, fmt.Sprintf("%d IQD", order.PaidAmountFromWallet), "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Arial", "B", 13)
	pdf.CellFormat(120, 10, "Amount Due:", "", 0, "L", false, 0, "")
	pdf.CellFormat(30, 10, fmt.Sprintf("%d IQD", order.TotalPriceMinusWallet()), "", 1, "R", false, 0, "")

	pdf.Ln(10)
	pdf.SetFont("Arial", "I", 12)
	pdf.Cell(0, 10, "Thank you for shopping with SoftStore!")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		utils.LogError("Failed to generate invoice PDF for order %d: %v", orderID, err)
		utils.InternalServerError(c, "Failed to generate invoice", err.Error())
		return
	}

	utils.LogInfo("Invoice generated for order %s", order.OrderNumber)
	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=invoice_%s.pdf", order.OrderNumber))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
