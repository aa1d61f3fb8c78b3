package api

import (
	"errors"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/bsrmarket/marketplace/internal/lifecycle"
	"github.com/bsrmarket/marketplace/internal/metrics"
	"github.com/bsrmarket/marketplace/internal/storage"
)

var errAlreadyRated = errors.New("rating already present")

func (h *Handler) transactionsGet(c *gin.Context) {
	switch c.Query("action") {
	case "user_transactions":
		h.userTransactions(c)
	case "transaction_details":
		h.transactionDetails(c)
	case "transaction_history":
		h.transactionHistory(c)
	default:
		invalidAction(c)
	}
}

func (h *Handler) transactionsPost(c *gin.Context) {
	switch c.Query("action") {
	case "update_shipping":
		h.updateShipping(c)
	case "mark_shipped":
		h.markShipped(c)
	case "mark_delivered":
		h.markDelivered(c)
	case "rate_transaction":
		h.rateTransaction(c)
	case "initiate_dispute":
		h.initiateDispute(c)
	default:
		invalidAction(c)
	}
}

func (h *Handler) transactionsPut(c *gin.Context) {
	switch c.Query("action") {
	case "cancel_transaction":
		h.cancelTransaction(c)
	default:
		invalidAction(c)
	}
}

// loadSnapshot reads the transaction row plus its listing title and
// converts it into the engine's snapshot form.
func (h *Handler) loadSnapshot(id uint) (lifecycle.Transaction, storage.Transaction, error) {
	var row storage.Transaction
	if err := h.db.DB.First(&row, id).Error; err != nil {
		return lifecycle.Transaction{}, storage.Transaction{}, err
	}
	var listing storage.Listing
	if err := h.db.DB.Select("title").First(&listing, row.ListingID).Error; err != nil {
		return lifecycle.Transaction{}, storage.Transaction{}, err
	}
	return lifecycle.Transaction{
		ID:           row.ID,
		ListingID:    row.ListingID,
		ListingTitle: listing.Title,
		BuyerID:      row.BuyerID,
		SellerID:     row.SellerID,
		Quantity:     row.Quantity,
		Status:       lifecycle.Status(row.Status),
		PaymentID:    row.PaymentID,
		BuyerRating:  row.BuyerRating,
		SellerRating: row.SellerRating,
	}, row, nil
}

// failLifecycle maps an engine refusal onto the HTTP error envelope.
func failLifecycle(c *gin.Context, err error) {
	var lcErr *lifecycle.Error
	if errors.As(err, &lcErr) {
		if lcErr.Forbidden {
			fail(c, http.StatusForbidden, lcErr.Message)
		} else {
			fail(c, http.StatusBadRequest, lcErr.Message)
		}
		return
	}
	fail(c, http.StatusBadRequest, err.Error())
}

// applyOutcome commits one accepted lifecycle operation: the column
// updates, the dispute report, refund and restock intents and the
// notification rows all land in a single database transaction. Webhook
// fan-out happens only after the commit.
func (h *Handler) applyOutcome(snap lifecycle.Transaction, row storage.Transaction, out lifecycle.Outcome) error {
	var pending []storage.Notification

	err := h.db.DB.Transaction(func(tx *gorm.DB) error {
		status := row.Status

		if out.RatingColumn != "" {
			res := tx.Model(&storage.Transaction{}).
				Where("id = ? AND "+out.RatingColumn+" IS NULL", row.ID).
				Updates(map[string]any{
					out.RatingColumn: out.Rating,
					out.ReviewColumn: out.Review,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return errAlreadyRated
			}

			var fresh storage.Transaction
			if err := tx.First(&fresh, row.ID).Error; err != nil {
				return err
			}
			if fresh.BuyerRating != nil && fresh.SellerRating != nil {
				if err := tx.Model(&fresh).Update("status", string(lifecycle.StatusCompleted)).Error; err != nil {
					return err
				}
				status = string(lifecycle.StatusCompleted)
			}
		} else if len(out.Updates) > 0 {
			if err := tx.Model(&storage.Transaction{}).Where("id = ?", row.ID).
				Updates(out.Updates).Error; err != nil {
				return err
			}
			if out.NewStatus != "" {
				status = string(out.NewStatus)
			}
		}

		if out.Dispute != nil {
			reportedUser := out.Dispute.ReportedUserID
			txID := row.ID
			report := storage.Report{
				ReporterUserID:        snapActor(snap, out.ActorRole),
				ReportedUserID:        &reportedUser,
				ReportedTransactionID: &txID,
				ReportType:            "transaction",
				Reason:                "other",
				Description:           out.Dispute.Description,
				Status:                "pending",
			}
			if err := tx.Create(&report).Error; err != nil {
				return err
			}
		}

		if out.RefundPayment && row.PaymentID != nil {
			if err := tx.Model(&storage.Payment{}).Where("id = ?", *row.PaymentID).
				Update("status", "refunded").Error; err != nil {
				return err
			}
		}
		if out.RestockListing {
			if err := tx.Model(&storage.Listing{}).Where("id = ?", row.ListingID).
				Updates(map[string]any{
					"quantity_available": gorm.Expr("quantity_available + ?", row.Quantity),
					"status":             gorm.Expr("CASE WHEN status = 'sold' THEN 'active' ELSE status END"),
				}).Error; err != nil {
				return err
			}
		}

		for _, n := range out.Notifications {
			created, err := h.notifier.Insert(tx, n.UserID, n.Type, n.Title, n.Body, n.Priority)
			if err != nil {
				return err
			}
			pending = append(pending, created)
		}

		metrics.TransactionTransitions.WithLabelValues(out.Op, status).Inc()
		return nil
	})
	if err != nil {
		return err
	}

	h.notifier.Publish(pending)
	return nil
}

// snapActor resolves the acting party's user id from its role.
func snapActor(snap lifecycle.Transaction, role lifecycle.Role) uint {
	if role == lifecycle.RoleSeller {
		return snap.SellerID
	}
	return snap.BuyerID
}

type updateShippingRequest struct {
	TransactionID  uint   `json:"transaction_id" binding:"required"`
	UserID         uint   `json:"user_id" binding:"required"`
	TrackingNumber string `json:"tracking_number" binding:"required"`
	Notes          string `json:"notes"`
}

func (h *Handler) updateShipping(c *gin.Context) {
	var req updateShippingRequest
	if !bindJSON(c, &req) {
		return
	}

	snap, row, err := h.loadSnapshot(req.TransactionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fail(c, http.StatusNotFound, "Transaction not found")
		return
	}
	if err != nil {
		failInternal(c, "update_shipping", err)
		return
	}

	out, err := lifecycle.UpdateShipping(snap, req.UserID, sanitize(req.TrackingNumber), sanitize(req.Notes))
	if err != nil {
		failLifecycle(c, err)
		return
	}
	if err := h.applyOutcome(snap, row, out); err != nil {
		failInternal(c, "update_shipping", err)
		return
	}

	h.audit.UserAction(req.UserID, "shipping_updated", "Shipping information updated",
		c.ClientIP(), c.Request.UserAgent(), map[string]any{
			"transaction_id":  req.TransactionID,
			"tracking_number": req.TrackingNumber,
		})

	respond(c, gin.H{"message": "Shipping information updated successfully"})
}

type markShippedRequest struct {
	TransactionID  uint   `json:"transaction_id" binding:"required"`
	UserID         uint   `json:"user_id" binding:"required"`
	TrackingNumber string `json:"tracking_number" binding:"required"`
}

func (h *Handler) markShipped(c *gin.Context) {
	var req markShippedRequest
	if !bindJSON(c, &req) {
		return
	}

	snap, row, err := h.loadSnapshot(req.TransactionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fail(c, http.StatusNotFound, "Transaction not found")
		return
	}
	if err != nil {
		failInternal(c, "mark_shipped", err)
		return
	}

	out, err := lifecycle.MarkShipped(snap, req.UserID, sanitize(req.TrackingNumber))
	if err != nil {
		failLifecycle(c, err)
		return
	}
	if err := h.applyOutcome(snap, row, out); err != nil {
		failInternal(c, "mark_shipped", err)
		return
	}

	h.audit.UserAction(req.UserID, "item_shipped", "Item marked as shipped",
		c.ClientIP(), c.Request.UserAgent(), map[string]any{
			"transaction_id":  req.TransactionID,
			"tracking_number": req.TrackingNumber,
		})

	respond(c, gin.H{"message": "Item marked as shipped successfully"})
}

type markDeliveredRequest struct {
	TransactionID uint `json:"transaction_id" binding:"required"`
	UserID        uint `json:"user_id" binding:"required"`
}

func (h *Handler) markDelivered(c *gin.Context) {
	var req markDeliveredRequest
	if !bindJSON(c, &req) {
		return
	}

	snap, row, err := h.loadSnapshot(req.TransactionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fail(c, http.StatusNotFound, "Transaction not found")
		return
	}
	if err != nil {
		failInternal(c, "mark_delivered", err)
		return
	}

	out, err := lifecycle.MarkDelivered(snap, req.UserID, time.Now())
	if err != nil {
		failLifecycle(c, err)
		return
	}
	if err := h.applyOutcome(snap, row, out); err != nil {
		failInternal(c, "mark_delivered", err)
		return
	}

	h.audit.UserAction(req.UserID, "item_delivered", "Item marked as delivered",
		c.ClientIP(), c.Request.UserAgent(), map[string]any{
			"transaction_id": req.TransactionID,
			"marked_by":      out.ActorRole.String(),
		})

	respond(c, gin.H{"message": "Item marked as delivered successfully"})
}

type rateTransactionRequest struct {
	TransactionID uint   `json:"transaction_id" binding:"required"`
	UserID        uint   `json:"user_id" binding:"required"`
	Rating        *int   `json:"rating" binding:"required"`
	Review        string `json:"review"`
}

func (h *Handler) rateTransaction(c *gin.Context) {
	var req rateTransactionRequest
	if !bindJSON(c, &req) {
		return
	}

	snap, row, err := h.loadSnapshot(req.TransactionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fail(c, http.StatusNotFound, "Transaction not found")
		return
	}
	if err != nil {
		failInternal(c, "rate_transaction", err)
		return
	}

	out, err := lifecycle.Rate(snap, req.UserID, *req.Rating, sanitize(req.Review))
	if err != nil {
		failLifecycle(c, err)
		return
	}
	if err := h.applyOutcome(snap, row, out); err != nil {
		// Two concurrent ratings for the same role: the guarded write
		// lets exactly one through.
		if errors.Is(err, errAlreadyRated) {
			fail(c, http.StatusBadRequest, "You have already rated this transaction")
			return
		}
		failInternal(c, "rate_transaction", err)
		return
	}

	h.audit.UserAction(req.UserID, "transaction_rated", "Transaction rated",
		c.ClientIP(), c.Request.UserAgent(), map[string]any{
			"transaction_id": req.TransactionID,
			"rating":         *req.Rating,
			"role":           out.ActorRole.String(),
		})

	respond(c, gin.H{"message": "Rating submitted successfully"})
}

type disputeRequest struct {
	TransactionID uint   `json:"transaction_id" binding:"required"`
	UserID        uint   `json:"user_id" binding:"required"`
	Reason        string `json:"reason" binding:"required"`
}

func (h *Handler) initiateDispute(c *gin.Context) {
	var req disputeRequest
	if !bindJSON(c, &req) {
		return
	}

	snap, row, err := h.loadSnapshot(req.TransactionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fail(c, http.StatusNotFound, "Transaction not found")
		return
	}
	if err != nil {
		failInternal(c, "initiate_dispute", err)
		return
	}

	out, err := lifecycle.Dispute(snap, req.UserID, sanitize(req.Reason))
	if err != nil {
		failLifecycle(c, err)
		return
	}
	if err := h.applyOutcome(snap, row, out); err != nil {
		failInternal(c, "initiate_dispute", err)
		return
	}

	h.audit.UserAction(req.UserID, "dispute_initiated", "Transaction dispute initiated",
		c.ClientIP(), c.Request.UserAgent(), map[string]any{
			"transaction_id": req.TransactionID,
			"reason":         req.Reason,
		})

	respond(c, gin.H{"message": "Dispute initiated successfully. Our support team will review this case."})
}

type cancelRequest struct {
	TransactionID uint   `json:"transaction_id" binding:"required"`
	UserID        uint   `json:"user_id" binding:"required"`
	Reason        string `json:"reason" binding:"required"`
}

func (h *Handler) cancelTransaction(c *gin.Context) {
	var req cancelRequest
	if !bindJSON(c, &req) {
		return
	}

	snap, row, err := h.loadSnapshot(req.TransactionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fail(c, http.StatusNotFound, "Transaction not found")
		return
	}
	if err != nil {
		failInternal(c, "cancel_transaction", err)
		return
	}

	out, err := lifecycle.Cancel(snap, req.UserID, sanitize(req.Reason))
	if err != nil {
		failLifecycle(c, err)
		return
	}
	if err := h.applyOutcome(snap, row, out); err != nil {
		failInternal(c, "cancel_transaction", err)
		return
	}

	h.audit.UserAction(req.UserID, "transaction_cancelled", "Transaction cancelled",
		c.ClientIP(), c.Request.UserAgent(), map[string]any{
			"transaction_id": req.TransactionID,
			"reason":         req.Reason,
			"cancelled_by":   out.ActorRole.String(),
		})

	respond(c, gin.H{"message": "Transaction cancelled successfully"})
}

type transactionRow struct {
	storage.Transaction `gorm:"embedded"`
	ListingTitle        string
	ListingImages       *string
	BuyerName           string
	BuyerEmail          string
	SellerName          string
	SellerEmail         string
	SellerUserRating    float64
	PaymentStatusDetail *string
}

func transactionPayload(row transactionRow, viewerID uint, now time.Time) gin.H {
	payload := gin.H{
		"id":                    row.ID,
		"listing_id":            row.ListingID,
		"buyer_id":              row.BuyerID,
		"seller_id":             row.SellerID,
		"quantity":              row.Quantity,
		"unit_price":            row.UnitPrice,
		"total_amount":          row.TotalAmount,
		"platform_fee":          row.PlatformFee,
		"status":                row.Status,
		"tracking_number":       row.TrackingNumber,
		"notes":                 row.Notes,
		"delivery_date":         row.DeliveryDate,
		"dispute_reason":        row.DisputeReason,
		"buyer_rating":          row.BuyerRating,
		"buyer_review":          row.BuyerReview,
		"seller_rating":         row.Transaction.SellerRating,
		"seller_review":         row.SellerReview,
		"payment_id":            row.PaymentID,
		"created_at":            row.CreatedAt,
		"listing_title":         row.ListingTitle,
		"listing_images":        decodeImages(row.ListingImages),
		"buyer_name":            row.BuyerName,
		"buyer_email":           row.BuyerEmail,
		"seller_name":           row.SellerName,
		"seller_email":          row.SellerEmail,
		"seller_user_rating":    row.SellerUserRating,
		"payment_status_detail": row.PaymentStatusDetail,
		"days_since":            int(now.Sub(row.CreatedAt).Hours() / 24),
		"status_display":        lifecycle.Status(row.Status).Display(),
		"created_at_formatted":  formatTimestamp(row.CreatedAt),
	}
	if viewerID == row.BuyerID {
		payload["user_role"] = "buyer"
	} else {
		payload["user_role"] = "seller"
	}
	if row.DeliveryDate != nil {
		payload["delivery_date_formatted"] = formatDate(*row.DeliveryDate)
	}
	return payload
}

const transactionSelect = "transactions.*, l.title AS listing_title, l.images AS listing_images, " +
	"buyer.name AS buyer_name, buyer.email AS buyer_email, " +
	"seller.name AS seller_name, seller.email AS seller_email, " +
	"seller.seller_rating AS seller_user_rating, p.status AS payment_status_detail"

func (h *Handler) transactionJoins() *gorm.DB {
	return h.db.DB.Table("transactions").
		Joins("JOIN listings l ON transactions.listing_id = l.id").
		Joins("JOIN users buyer ON transactions.buyer_id = buyer.id").
		Joins("JOIN users seller ON transactions.seller_id = seller.id").
		Joins("LEFT JOIN payments p ON transactions.payment_id = p.id")
}

func (h *Handler) userTransactions(c *gin.Context) {
	userID, ok := queryID(c, "user_id", "User ID required")
	if !ok {
		return
	}

	q := h.transactionJoins().Select(transactionSelect)
	switch c.Query("type") {
	case "buyer":
		q = q.Where("transactions.buyer_id = ?", userID)
	case "seller":
		q = q.Where("transactions.seller_id = ?", userID)
	default:
		q = q.Where("transactions.buyer_id = ? OR transactions.seller_id = ?", userID, userID)
	}

	var rows []transactionRow
	if err := q.Order("transactions.created_at DESC").Limit(50).Scan(&rows).Error; err != nil {
		failInternal(c, "user_transactions", err)
		return
	}

	now := time.Now()
	transactions := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		transactions = append(transactions, transactionPayload(row, userID, now))
	}
	respond(c, gin.H{"transactions": transactions})
}

type transactionDetailRow struct {
	transactionRow        `gorm:"embedded"`
	ListingDescription    string
	ListingCategory       string
	BuyerPhone            *string
	SellerPhone           *string
	SellerTotalSales      int
	ProviderTransactionID *string
	PaymentMethod         *string
}

func (h *Handler) transactionDetails(c *gin.Context) {
	txID, ok := queryID(c, "transaction_id", "Transaction ID required")
	if !ok {
		return
	}

	var row transactionDetailRow
	res := h.transactionJoins().
		Select(transactionSelect+", l.description AS listing_description, "+
			"l.category AS listing_category, buyer.phone_number AS buyer_phone, "+
			"seller.phone_number AS seller_phone, seller.total_sales AS seller_total_sales, "+
			"p.provider_transaction_id, p.payment_method").
		Where("transactions.id = ?", txID).
		Limit(1).
		Scan(&row)
	if res.Error != nil {
		failInternal(c, "transaction_details", res.Error)
		return
	}
	if res.RowsAffected == 0 {
		fail(c, http.StatusNotFound, "Transaction not found")
		return
	}

	now := time.Now()
	payload := transactionPayload(row.transactionRow, row.BuyerID, now)
	payload["listing_description"] = row.ListingDescription
	payload["listing_category"] = row.ListingCategory
	payload["buyer_phone"] = row.BuyerPhone
	payload["seller_phone"] = row.SellerPhone
	payload["seller_total_sales"] = row.SellerTotalSales
	payload["provider_transaction_id"] = row.ProviderTransactionID
	payload["payment_method"] = row.PaymentMethod
	delete(payload, "user_role")

	// Timeline events carry the transaction id inside their JSON metadata.
	var events []storage.ActivityLog
	if err := h.db.DB.
		Where("metadata LIKE ?", "%\"transaction_id\":"+c.Query("transaction_id")+"%").
		Order("created_at ASC").
		Find(&events).Error; err != nil {
		failInternal(c, "transaction_details", err)
		return
	}

	timeline := make([]gin.H, 0, len(events))
	for _, ev := range events {
		timeline = append(timeline, gin.H{
			"action":               ev.Action,
			"description":          ev.Description,
			"created_at":           ev.CreatedAt,
			"created_at_formatted": formatTimestamp(ev.CreatedAt),
		})
	}
	payload["timeline"] = timeline

	respond(c, gin.H{"transaction": payload})
}

type historyStats struct {
	TotalTransactions int64
	TotalSpent        float64
	TotalEarned       float64
	Purchases         int64
	Sales             int64
	AvgRatingGiven    *float64
	AvgRatingReceived *float64
}

func (h *Handler) transactionHistory(c *gin.Context) {
	userID, ok := queryID(c, "user_id", "User ID required")
	if !ok {
		return
	}

	var stats historyStats
	err := h.db.DB.Raw(`
		SELECT
			COUNT(*) AS total_transactions,
			COALESCE(SUM(CASE WHEN buyer_id = @id THEN total_amount ELSE 0 END), 0) AS total_spent,
			COALESCE(SUM(CASE WHEN seller_id = @id THEN total_amount ELSE 0 END), 0) AS total_earned,
			COUNT(CASE WHEN buyer_id = @id THEN 1 END) AS purchases,
			COUNT(CASE WHEN seller_id = @id THEN 1 END) AS sales,
			AVG(CASE WHEN buyer_id = @id AND seller_rating IS NOT NULL THEN seller_rating END) AS avg_rating_given,
			AVG(CASE WHEN seller_id = @id AND buyer_rating IS NOT NULL THEN buyer_rating END) AS avg_rating_received
		FROM transactions
		WHERE buyer_id = @id OR seller_id = @id`,
		map[string]any{"id": userID}).Scan(&stats).Error
	if err != nil {
		failInternal(c, "transaction_history", err)
		return
	}

	respond(c, gin.H{
		"stats": gin.H{
			"total_transactions":  stats.TotalTransactions,
			"total_spent":         stats.TotalSpent,
			"total_earned":        stats.TotalEarned,
			"purchases":           stats.Purchases,
			"sales":               stats.Sales,
			"avg_rating_given":    roundRating(stats.AvgRatingGiven),
			"avg_rating_received": roundRating(stats.AvgRatingReceived),
		},
	})
}

func roundRating(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := math.Round(*v*10) / 10
	return &r
}
