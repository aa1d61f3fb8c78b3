package api

import (
	"errors"
	"net/http"
	"regexp"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/bsrmarket/marketplace/internal/audit"
	"github.com/bsrmarket/marketplace/internal/auth"
	"github.com/bsrmarket/marketplace/internal/storage"
)

// auditEntry builds a user-action audit entry carrying the request's
// client IP and user agent. A nil userID attributes it to nobody.
func auditEntry(userID *uint, action, details string, c *gin.Context) audit.Entry {
	return audit.Entry{
		UserID:    userID,
		Type:      audit.TypeUserAction,
		Action:    action,
		Details:   details,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// auditSystem builds an admin-action audit entry; adminID may be nil for
// automated moderation.
func auditSystem(adminID *uint, action, details string, metadata map[string]any) audit.Entry {
	return audit.Entry{
		AdminID:  adminID,
		Type:     audit.TypeAdminAction,
		Action:   action,
		Details:  details,
		Metadata: metadata,
	}
}

var (
	emailRe  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe  = regexp.MustCompile(`^[+]?[1-9]?\d{1,3}[\s.-]?\d{3,4}[\s.-]?\d{3,4}$`)
	letterRe = regexp.MustCompile(`[A-Za-z]`)
	digitRe  = regexp.MustCompile(`\d`)
)

func validEmail(s string) bool { return emailRe.MatchString(s) }
func validPhone(s string) bool { return phoneRe.MatchString(s) }

// validPassword requires at least 8 characters with a letter and a digit.
func validPassword(s string) bool {
	return len(s) >= 8 && letterRe.MatchString(s) && digitRe.MatchString(s)
}

func (h *Handler) usersGet(c *gin.Context) {
	switch c.Query("action") {
	case "profile":
		h.getProfile(c)
	default:
		invalidAction(c)
	}
}

func (h *Handler) usersPost(c *gin.Context) {
	switch c.Query("action") {
	case "register":
		h.register(c)
	case "login":
		h.login(c)
	default:
		invalidAction(c)
	}
}

func (h *Handler) usersPut(c *gin.Context) {
	switch c.Query("action") {
	case "update_profile":
		h.updateProfile(c)
	case "change_password":
		h.changePassword(c)
	default:
		invalidAction(c)
	}
}

type registerRequest struct {
	Name        string  `json:"name" binding:"required"`
	Email       string  `json:"email" binding:"required"`
	Password    string  `json:"password" binding:"required"`
	AccountType string  `json:"account_type" binding:"required"`
	PhoneNumber *string `json:"phone_number"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req) {
		return
	}
	if !validEmail(req.Email) {
		fail(c, http.StatusBadRequest, "Invalid email address")
		return
	}
	if !validPassword(req.Password) {
		fail(c, http.StatusBadRequest, "Password must be at least 8 characters with letters and numbers")
		return
	}
	if req.AccountType != "buyer" && req.AccountType != "seller" {
		fail(c, http.StatusBadRequest, "Invalid account type")
		return
	}

	email := sanitize(req.Email)
	var existing storage.User
	err := h.db.DB.Where("email = ?", email).First(&existing).Error
	if err == nil {
		fail(c, http.StatusBadRequest, "Email already registered")
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		failInternal(c, "register", err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		failInternal(c, "register", err)
		return
	}

	user := storage.User{
		Name:        sanitize(req.Name),
		Email:       email,
		Password:    hash,
		AccountType: req.AccountType,
		Status:      "active",
	}
	if req.PhoneNumber != nil {
		p := sanitize(*req.PhoneNumber)
		user.PhoneNumber = &p
	}
	if err := h.db.DB.Create(&user).Error; err != nil {
		failInternal(c, "register", err)
		return
	}

	h.audit.UserAction(user.ID, "register", "User registered (verification disabled)",
		c.ClientIP(), c.Request.UserAgent(), nil)

	respond(c, gin.H{
		"user": gin.H{
			"id":                 user.ID,
			"name":               user.Name,
			"email":              user.Email,
			"account_type":       user.AccountType,
			"phone_number":       user.PhoneNumber,
			"phone_verified":     false,
			"is_verified_seller": false,
			"seller_rating":      0.0,
		},
		"message": "Account created successfully",
	})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}
	if !validEmail(req.Email) {
		fail(c, http.StatusBadRequest, "Invalid email address")
		return
	}

	var user storage.User
	err := h.db.DB.Where("email = ?", sanitize(req.Email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		h.audit.Record(auditEntry(nil, "failed_login", "Login email not found: "+req.Email, c))
		fail(c, http.StatusNotFound, "Account not found")
		return
	}
	if err != nil {
		failInternal(c, "login", err)
		return
	}

	if !auth.CheckPassword(user.Password, req.Password) {
		h.audit.UserAction(user.ID, "failed_login", "Invalid password",
			c.ClientIP(), c.Request.UserAgent(), nil)
		fail(c, http.StatusUnauthorized, "Invalid password")
		return
	}

	if user.Status != "active" {
		h.audit.UserAction(user.ID, "blocked_login", "Login blocked for "+user.Status+" account",
			c.ClientIP(), c.Request.UserAgent(), nil)
		fail(c, http.StatusForbidden, "Account is suspended or banned")
		return
	}

	h.audit.UserAction(user.ID, "login", "User logged in successfully",
		c.ClientIP(), c.Request.UserAgent(), nil)

	if err := h.db.DB.Model(&user).Update("updated_at", gorm.Expr("CURRENT_TIMESTAMP")).Error; err != nil {
		failInternal(c, "login", err)
		return
	}

	token, err := auth.IssueToken(h.cfg.JWTSecret, user.ID, user.Email)
	if err != nil {
		failInternal(c, "login", err)
		return
	}

	respond(c, gin.H{
		"user": gin.H{
			"id":                 user.ID,
			"name":               user.Name,
			"email":              user.Email,
			"account_type":       user.AccountType,
			"phone_number":       user.PhoneNumber,
			"phone_verified":     user.PhoneVerified,
			"is_verified_seller": user.IsVerifiedSeller,
			"seller_rating":      user.SellerRating,
			"total_sales":        user.TotalSales,
			"is_flagged":         user.IsFlagged,
			"status":             user.Status,
		},
		"token": token,
	})
}

func (h *Handler) getProfile(c *gin.Context) {
	userID, ok := queryID(c, "user_id", "User ID required")
	if !ok {
		return
	}

	var user storage.User
	err := h.db.DB.Where("id = ? AND status = ?", userID, "active").First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fail(c, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		failInternal(c, "profile", err)
		return
	}

	respond(c, gin.H{
		"user": gin.H{
			"id":                 user.ID,
			"name":               user.Name,
			"email":              user.Email,
			"account_type":       user.AccountType,
			"phone_number":       user.PhoneNumber,
			"phone_verified":     user.PhoneVerified,
			"is_verified_seller": user.IsVerifiedSeller,
			"seller_rating":      user.SellerRating,
			"total_sales":        user.TotalSales,
			"created_at":         user.CreatedAt,
		},
	})
}

type updateProfileRequest struct {
	UserID      uint    `json:"user_id" binding:"required"`
	Name        *string `json:"name"`
	PhoneNumber *string `json:"phone_number"`
}

func (h *Handler) updateProfile(c *gin.Context) {
	var req updateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	updates := map[string]any{}
	if req.Name != nil && sanitize(*req.Name) != "" {
		updates["name"] = sanitize(*req.Name)
	}
	if req.PhoneNumber != nil && sanitize(*req.PhoneNumber) != "" {
		phone := sanitize(*req.PhoneNumber)
		if !validPhone(*req.PhoneNumber) {
			fail(c, http.StatusBadRequest, "Invalid phone number format")
			return
		}
		var other storage.User
		err := h.db.DB.Where("phone_number = ? AND id != ?", phone, req.UserID).First(&other).Error
		if err == nil {
			fail(c, http.StatusBadRequest, "Phone number already in use")
			return
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			failInternal(c, "update_profile", err)
			return
		}
		updates["phone_number"] = phone
		// A new number has to be verified again.
		updates["phone_verified"] = false
		updates["is_verified_seller"] = false
	}

	if len(updates) == 0 {
		fail(c, http.StatusBadRequest, "No valid fields to update")
		return
	}

	if err := h.db.DB.Model(&storage.User{}).Where("id = ?", req.UserID).Updates(updates).Error; err != nil {
		failInternal(c, "update_profile", err)
		return
	}

	h.audit.UserAction(req.UserID, "profile_updated", "User profile updated",
		c.ClientIP(), c.Request.UserAgent(), nil)

	respond(c, gin.H{"message": "Profile updated successfully"})
}

type changePasswordRequest struct {
	UserID          uint   `json:"user_id" binding:"required"`
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
}

func (h *Handler) changePassword(c *gin.Context) {
	var req changePasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if !validPassword(req.NewPassword) {
		fail(c, http.StatusBadRequest, "New password must be at least 8 characters with letters and numbers")
		return
	}

	var user storage.User
	err := h.db.DB.First(&user, req.UserID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && !auth.CheckPassword(user.Password, req.CurrentPassword)) {
		fail(c, http.StatusUnauthorized, "Current password is incorrect")
		return
	}
	if err != nil {
		failInternal(c, "change_password", err)
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		failInternal(c, "change_password", err)
		return
	}
	if err := h.db.DB.Model(&user).Update("password", hash).Error; err != nil {
		failInternal(c, "change_password", err)
		return
	}

	h.audit.UserAction(req.UserID, "password_changed", "User changed password",
		c.ClientIP(), c.Request.UserAgent(), nil)

	respond(c, gin.H{"message": "Password changed successfully"})
}

// queryID parses a required numeric query parameter, answering 400 with
// msg when missing or malformed.
func queryID(c *gin.Context, name, msg string) (uint, bool) {
	raw := c.Query(name)
	if raw == "" {
		fail(c, http.StatusBadRequest, msg)
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		fail(c, http.StatusBadRequest, msg)
		return 0, false
	}
	return uint(id), true
}
