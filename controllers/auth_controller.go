package controllers

import (
	"time"

	"github.com/hayder-jabbar/softstore/config"
	"github.com/hayder-jabbar/softstore/models"
	"github.com/hayder-jabbar/softstore/utils"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// LoginRequest is the login payload. Username accepts the email too.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login checks credentials and issues a bearer token.
func Login(c *gin.Context) {
	utils.LogInfo("Login called")

	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request format", err.Error())
		return
	}

	var user models.User
	if err := config.DB.Preload("WholesaleType").
		Where("username = ? OR email = ?", req.Username, req.Username).
		First(&user).Error; err != nil {
		utils.LogError("Login failed, user not found: %s", req.Username)
		utils.Unauthorized(c, "Invalid credentials")
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		utils.LogError("Login failed, wrong password for user %d", user.ID)
		utils.Unauthorized(c, "Invalid credentials")
		return
	}

	if user.IsBlocked {
		utils.Forbidden(c, "Your account has been blocked")
		return
	}

	token, err := IssueToken(user.ID)
	if err != nil {
		utils.LogError("Failed to sign token for user %d: %v", user.ID, err)
		utils.InternalServerError(c, "Failed to create session", nil)
		return
	}

	utils.LogInfo("User %d logged in", user.ID)
	utils.Success(c, "Login successful", gin.H{
		"token": token,
		"user": gin.H{
			"id":             user.ID,
			"username":       user.Username,
			"email":          user.Email,
			"name":           user.FullName(),
			"is_admin":       user.IsAdmin,
			"is_wholesale":   user.IsWholesale(),
			"wallet_balance": user.WalletBalance,
		},
	})
}

// IssueToken signs a 7 day bearer token for the user.
func IssueToken(userID uint) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"iat":     time.Now().Unix(),
		"exp":     time.Now().Add(7 * 24 * time.Hour).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte(config.App.JWTSecret))
}

// CreateSampleAdmin seeds an initial admin account when none exists.
// Called once on boot.
func CreateSampleAdmin(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.User{}).Where("is_admin = ?", true).Count(&count).Error; err != nil {
		return utils.WrapError(err, "failed to count admins")
	}
	if count > 0 {
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	if err != nil {
		return utils.WrapError(err, "failed to hash admin password")
	}
	admin := models.User{
		Username:  "admin",
		Email:     "admin@softstore.example",
		Password:  string(hashed),
		FirstName: "Store",
		LastName:  "Admin",
		IsAdmin:   true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return utils.WrapError(err, "failed to seed admin")
	}
	utils.LogInfo("Seeded initial admin account")
	return nil
}
