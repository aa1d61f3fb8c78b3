package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bsrmarket/marketplace/internal/storage"
)

type messageRow struct {
	ID           uint
	FromID       uint
	FromName     string
	ToID         uint
	ToName       string
	Message      string
	ListingTitle *string
	IsRead       bool
	CreatedAt    time.Time
}

// messagePayload renders a message for the client. Timestamps go out in
// epoch milliseconds.
func messagePayload(row messageRow) gin.H {
	return gin.H{
		"id":            row.ID,
		"from_id":       row.FromID,
		"from_name":     row.FromName,
		"to_id":         row.ToID,
		"to_name":       row.ToName,
		"message":       row.Message,
		"listing_title": row.ListingTitle,
		"read":          row.IsRead,
		"timestamp":     row.CreatedAt.UnixMilli(),
	}
}

const messageSelect = "messages.id, messages.from_id, fu.name AS from_name, " +
	"messages.to_id, tu.name AS to_name, messages.message, " +
	"messages.listing_title, messages.is_read, messages.created_at"

func (h *Handler) listMessages(c *gin.Context) {
	userID, ok := queryID(c, "user_id", "User ID required")
	if !ok {
		return
	}

	var rows []messageRow
	err := h.db.DB.Table("messages").
		Select(messageSelect).
		Joins("JOIN users fu ON fu.id = messages.from_id").
		Joins("JOIN users tu ON tu.id = messages.to_id").
		Where("messages.from_id = ? OR messages.to_id = ?", userID, userID).
		Order("messages.created_at DESC").
		Scan(&rows).Error
	if err != nil {
		failInternal(c, "list_messages", err)
		return
	}

	messages := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		messages = append(messages, messagePayload(row))
	}
	respond(c, gin.H{"messages": messages})
}

type sendMessageRequest struct {
	FromID       uint    `json:"from_id" binding:"required"`
	ToID         uint    `json:"to_id" binding:"required"`
	Message      string  `json:"message" binding:"required"`
	ListingTitle *string `json:"listing_title"`
}

func (h *Handler) sendMessage(c *gin.Context) {
	var req sendMessageRequest
	if !bindJSON(c, &req) {
		return
	}

	msg := storage.Message{
		FromID:       req.FromID,
		ToID:         req.ToID,
		ListingTitle: req.ListingTitle,
		Body:         sanitize(req.Message),
	}
	if err := h.db.DB.Create(&msg).Error; err != nil {
		failInternal(c, "send_message", err)
		return
	}

	var row messageRow
	err := h.db.DB.Table("messages").
		Select(messageSelect).
		Joins("JOIN users fu ON fu.id = messages.from_id").
		Joins("JOIN users tu ON tu.id = messages.to_id").
		Where("messages.id = ?", msg.ID).
		Scan(&row).Error
	if err != nil {
		failInternal(c, "send_message", err)
		return
	}

	respond(c, gin.H{"messageData": messagePayload(row)})
}

type markReadRequest struct {
	ID     uint `json:"id" binding:"required"`
	UserID uint `json:"user_id" binding:"required"`
}

// markMessageRead flips is_read, but only when the caller is the
// recipient; anyone else's request is a silent no-op, as is an unknown id.
func (h *Handler) markMessageRead(c *gin.Context) {
	var req markReadRequest
	if !bindJSON(c, &req) {
		return
	}

	err := h.db.DB.Model(&storage.Message{}).
		Where("id = ? AND to_id = ?", req.ID, req.UserID).
		Update("is_read", true).Error
	if err != nil {
		failInternal(c, "mark_message_read", err)
		return
	}

	respond(c, gin.H{"message": "Message marked as read"})
}
