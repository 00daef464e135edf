package controllers

import (
	"strconv"

	"github.com/hayder-jabbar/softstore/config"
	"github.com/hayder-jabbar/softstore/models"
	"github.com/hayder-jabbar/softstore/utils"
	"github.com/gin-gonic/gin"
)

// ListNotifications returns the viewer's notifications, newest first.
func ListNotifications(c *gin.Context) {
	userVal, _ := c.Get("user")
	user := userVal.(models.User)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	query := config.DB.Model(&models.Notification{}).
		Where("related_user_id = ? AND hidden = ?", user.ID, false)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch notifications", err.Error())
		return
	}

	var notifications []models.Notification
	if err := query.Order("id DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&notifications).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch notifications", err.Error())
		return
	}

	utils.SuccessWithPagination(c, "Notifications retrieved successfully",
		notifications, total, page, perPage)
}

// HideNotification hides one of the viewer's notifications.
func HideNotification(c *gin.Context) {
	userVal, _ := c.Get("user")
	user := userVal.(models.User)

	result := config.DB.Model(&models.Notification{}).
		Where("id = ? AND related_user_id = ?", c.Param("id"), user.ID).
		Update("hidden", true)
	if result.Error != nil {
		utils.InternalServerError(c, "Failed to hide notification", result.Error.Error())
		return
	}
	if result.RowsAffected == 0 {
		utils.NotFound(c, "Notification not found")
		return
	}
	utils.Success(c, "Notification hidden", nil)
}
