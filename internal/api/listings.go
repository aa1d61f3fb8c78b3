package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/bsrmarket/marketplace/internal/storage"
)

// decodeImages parses the stored JSON image list, returning an empty
// slice for null or malformed values.
func decodeImages(raw *string) []string {
	if raw == nil || *raw == "" {
		return []string{}
	}
	var images []string
	if err := json.Unmarshal([]byte(*raw), &images); err != nil {
		return []string{}
	}
	return images
}

func encodeImages(images []string) *string {
	if images == nil {
		return nil
	}
	raw, err := json.Marshal(images)
	if err != nil {
		return nil
	}
	s := string(raw)
	return &s
}

// sweepExpiredListings flips active listings past their duration to
// expired. It runs synchronously before every listing read; there is no
// background scheduler.
func (h *Handler) sweepExpiredListings(now time.Time) {
	var rows []storage.Listing
	if err := h.db.DB.Select("id", "created_at", "duration_hours").
		Where("status = ?", "active").Find(&rows).Error; err != nil {
		log.WithField("error", err.Error()).Error("Expiry sweep query failed")
		return
	}

	var expired []uint
	for _, l := range rows {
		if l.CreatedAt.Add(time.Duration(l.DurationHours) * time.Hour).Before(now) {
			expired = append(expired, l.ID)
		}
	}
	if len(expired) == 0 {
		return
	}
	if err := h.db.DB.Model(&storage.Listing{}).Where("id IN ?", expired).
		Update("status", "expired").Error; err != nil {
		log.WithField("error", err.Error()).Error("Expiry sweep update failed")
	}
}

// ListingRow is one listing joined with its owner.
type ListingRow struct {
	ID            uint
	UserID        uint
	Title         string
	Description   string
	Price         float64
	Category      string
	Type          string
	Location      string
	Phone         *string
	DurationHours int
	Images        *string
	Status        string
	CreatedAt     time.Time
	UserName      string
	UserEmail     string
}

func listingPayload(row ListingRow, now time.Time) gin.H {
	return gin.H{
		"id":             row.ID,
		"user_id":        row.UserID,
		"title":          row.Title,
		"description":    row.Description,
		"price":          row.Price,
		"category":       row.Category,
		"type":           row.Type,
		"location":       row.Location,
		"phone":          row.Phone,
		"duration_hours": row.DurationHours,
		"images":         decodeImages(row.Images),
		"created_at":     row.CreatedAt,
		"user_name":      row.UserName,
		"user_email":     row.UserEmail,
		"posted":         relativeTime(row.CreatedAt, now),
		"expiry":         expiryInfo(row.CreatedAt, row.DurationHours, now),
	}
}

func (h *Handler) listListings(c *gin.Context) {
	now := time.Now()
	h.sweepExpiredListings(now)

	q := h.db.DB.Table("listings").
		Select("listings.id, listings.user_id, listings.title, listings.description, " +
			"listings.price, listings.category, listings.type, listings.location, " +
			"listings.phone, listings.duration_hours, listings.images, listings.status, " +
			"listings.created_at, users.name AS user_name, users.email AS user_email").
		Joins("JOIN users ON listings.user_id = users.id")

	if v := c.Query("category"); v != "" {
		q = q.Where("listings.category = ?", v)
	}
	if v := c.Query("type"); v != "" {
		q = q.Where("listings.type = ?", v)
	}
	if v := c.Query("user_id"); v != "" {
		q = q.Where("listings.user_id = ?", v)
	}
	if v := c.Query("search"); v != "" {
		term := "%" + v + "%"
		q = q.Where("(listings.title LIKE ? OR listings.description LIKE ? OR listings.location LIKE ?)",
			term, term, term)
	}

	switch c.Query("sort") {
	case "oldest":
		q = q.Order("listings.created_at ASC")
	case "price-low":
		q = q.Order("listings.price ASC")
	case "price-high":
		q = q.Order("listings.price DESC")
	case "expiry":
		q = q.Order("datetime(listings.created_at, '+' || listings.duration_hours || ' hours') ASC")
	default:
		q = q.Order("listings.created_at DESC")
	}

	var rows []ListingRow
	if err := q.Scan(&rows).Error; err != nil {
		failInternal(c, "list_listings", err)
		return
	}

	listings := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		listings = append(listings, listingPayload(row, now))
	}
	respond(c, gin.H{"listings": listings})
}

type createListingRequest struct {
	UserID      uint     `json:"user_id" binding:"required"`
	Title       string   `json:"title" binding:"required"`
	Description string   `json:"description" binding:"required"`
	Price       *float64 `json:"price" binding:"required"`
	Category    string   `json:"category" binding:"required"`
	Type        string   `json:"type" binding:"required"`
	Location    string   `json:"location" binding:"required"`
	Phone       *string  `json:"phone"`
	Duration    int      `json:"duration" binding:"required"`
	Images      []string `json:"images"`
}

func (h *Handler) createListing(c *gin.Context) {
	var req createListingRequest
	if !bindJSON(c, &req) {
		return
	}

	var owner storage.User
	err := h.db.DB.First(&owner, req.UserID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fail(c, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		failInternal(c, "create_listing", err)
		return
	}

	listing := storage.Listing{
		UserID:            req.UserID,
		Title:             sanitize(req.Title),
		Description:       sanitize(req.Description),
		Price:             *req.Price,
		Category:          req.Category,
		Type:              req.Type,
		Location:          sanitize(req.Location),
		Phone:             req.Phone,
		DurationHours:     req.Duration,
		Images:            encodeImages(req.Images),
		QuantityAvailable: 1,
		Status:            "active",
	}
	if err := h.db.DB.Create(&listing).Error; err != nil {
		failInternal(c, "create_listing", err)
		return
	}

	h.audit.UserAction(req.UserID, "listing_created", "Listing created",
		c.ClientIP(), c.Request.UserAgent(), map[string]any{"listing_id": listing.ID})

	respond(c, gin.H{
		"listing": gin.H{
			"id":             listing.ID,
			"user_id":        listing.UserID,
			"title":          listing.Title,
			"description":    listing.Description,
			"price":          listing.Price,
			"category":       listing.Category,
			"type":           listing.Type,
			"location":       listing.Location,
			"phone":          listing.Phone,
			"duration_hours": listing.DurationHours,
			"images":         decodeImages(listing.Images),
			"created_at":     listing.CreatedAt,
			"user_name":      owner.Name,
			"user_email":     owner.Email,
			"posted":         "Just now",
		},
		"message": "Listing created successfully",
	})
}

type deleteListingRequest struct {
	UserID uint `json:"user_id"`
}

func (h *Handler) deleteListing(c *gin.Context) {
	listingID, ok := queryID(c, "id", "Listing ID required")
	if !ok {
		return
	}

	var req deleteListingRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == 0 {
		fail(c, http.StatusUnauthorized, "User ID required")
		return
	}

	var listing storage.Listing
	err := h.db.DB.First(&listing, listingID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fail(c, http.StatusNotFound, "Listing not found")
		return
	}
	if err != nil {
		failInternal(c, "delete_listing", err)
		return
	}

	if listing.UserID != req.UserID {
		fail(c, http.StatusForbidden, "Unauthorized")
		return
	}

	if err := h.db.DB.Delete(&listing).Error; err != nil {
		failInternal(c, "delete_listing", err)
		return
	}

	h.audit.UserAction(req.UserID, "listing_deleted", "Listing deleted",
		c.ClientIP(), c.Request.UserAgent(), map[string]any{"listing_id": listingID})

	respond(c, gin.H{"message": "Listing deleted successfully"})
}
