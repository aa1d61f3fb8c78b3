package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/bsrmarket/marketplace/internal/storage"
)

type bookmarkRow struct {
	ListingRow   `gorm:"embedded"`
	BookmarkedAt time.Time
}

// listBookmarks returns the user's bookmarked listings that have not
// expired yet, newest bookmark first.
func (h *Handler) listBookmarks(c *gin.Context) {
	userID, ok := queryID(c, "user_id", "User ID required")
	if !ok {
		return
	}
	now := time.Now()

	var rows []bookmarkRow
	err := h.db.DB.Table("bookmarks").
		Select("listings.id, listings.user_id, listings.title, listings.description, "+
			"listings.price, listings.category, listings.type, listings.location, "+
			"listings.phone, listings.duration_hours, listings.images, listings.status, "+
			"listings.created_at, users.name AS user_name, users.email AS user_email, "+
			"bookmarks.created_at AS bookmarked_at").
		Joins("JOIN listings ON bookmarks.listing_id = listings.id").
		Joins("JOIN users ON listings.user_id = users.id").
		Where("bookmarks.user_id = ?", userID).
		Where("datetime(listings.created_at, '+' || listings.duration_hours || ' hours') > ?", now).
		Order("bookmarks.created_at DESC").
		Scan(&rows).Error
	if err != nil {
		failInternal(c, "list_bookmarks", err)
		return
	}

	bookmarks := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		payload := listingPayload(row.ListingRow, now)
		payload["bookmarked_at"] = row.BookmarkedAt
		bookmarks = append(bookmarks, payload)
	}
	respond(c, gin.H{"bookmarks": bookmarks})
}

type toggleBookmarkRequest struct {
	UserID    uint `json:"user_id" binding:"required"`
	ListingID uint `json:"listing_id" binding:"required"`
}

// toggleBookmark adds the bookmark when absent and removes it when
// present.
func (h *Handler) toggleBookmark(c *gin.Context) {
	var req toggleBookmarkRequest
	if !bindJSON(c, &req) {
		return
	}

	var existing storage.Bookmark
	err := h.db.DB.Where("user_id = ? AND listing_id = ?", req.UserID, req.ListingID).
		First(&existing).Error
	if err == nil {
		if err := h.db.DB.Delete(&existing).Error; err != nil {
			failInternal(c, "toggle_bookmark", err)
			return
		}
		respond(c, gin.H{"action": "removed", "message": "Removed from bookmarks"})
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		failInternal(c, "toggle_bookmark", err)
		return
	}

	var listing storage.Listing
	err = h.db.DB.First(&listing, req.ListingID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fail(c, http.StatusNotFound, "Listing not found")
		return
	}
	if err != nil {
		failInternal(c, "toggle_bookmark", err)
		return
	}

	if err := h.db.DB.Create(&storage.Bookmark{UserID: req.UserID, ListingID: req.ListingID}).Error; err != nil {
		failInternal(c, "toggle_bookmark", err)
		return
	}
	respond(c, gin.H{"action": "added", "message": "Added to bookmarks"})
}
