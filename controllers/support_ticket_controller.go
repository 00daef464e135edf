package controllers

import (
	"fmt"
	"strconv"

	"github.com/hayder-jabbar/softstore/config"
	"github.com/hayder-jabbar/softstore/models"
	"github.com/hayder-jabbar/softstore/utils"
	"github.com/gin-gonic/gin"
)

// CreateSupportTicketRequest is the contact form payload.
type CreateSupportTicketRequest struct {
	FullName    string `json:"full_name" binding:"required"`
	Email       string `json:"email" binding:"required,email"`
	Phone       string `json:"phone"`
	Description string `json:"description" binding:"required"`
}

// CreateSupportTicket records a contact request. Works for both anonymous
// visitors and logged-in users; the latter get the ticket linked to their
// account and a confirmation notification.
func CreateSupportTicket(c *gin.Context) {
	utils.LogInfo("CreateSupportTicket called")

	var req CreateSupportTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request format", err.Error())
		return
	}

	ticket := models.SupportTicket{
		FullName:    req.FullName,
		Email:       req.Email,
		Phone:       req.Phone,
		Description: req.Description,
	}
	var userID *uint
	if userVal, exists := c.Get("user"); exists {
		user := userVal.(models.User)
		userID = &user.ID
		ticket.CreatedByID = userID
	}

	if err := config.DB.Create(&ticket).Error; err != nil {
		utils.LogError("Failed to create support ticket: %v", err)
		utils.InternalServerError(c, "Failed to create support ticket", err.Error())
		return
	}

	if userID != nil {
		notification := models.SupportTicketNotification(*userID, ticket.ID,
			fmt.Sprintf("We received your request #%d and will get back to you", ticket.ID))
		if err := config.DB.Create(&notification).Error; err != nil {
			utils.LogError("Failed to create ticket notification: %v", err)
		}
	}

	utils.LogInfo("Support ticket %d created", ticket.ID)
	utils.Created(c, "Support ticket created successfully", gin.H{"id": ticket.ID})
}

// ListSupportTickets returns all tickets for admins, newest first.
func ListSupportTickets(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	var total int64
	if err := config.DB.Model(&models.SupportTicket{}).Count(&total).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch support tickets", err.Error())
		return
	}

	var tickets []models.SupportTicket
	if err := config.DB.Order("id DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&tickets).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch support tickets", err.Error())
		return
	}

	utils.SuccessWithPagination(c, "Support tickets retrieved successfully",
		tickets, total, page, perPage)
}
