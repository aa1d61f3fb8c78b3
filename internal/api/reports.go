package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/bsrmarket/marketplace/internal/metrics"
	"github.com/bsrmarket/marketplace/internal/storage"
)

var userReportReasons = map[string]bool{
	"fraud": true, "fake_listing": true, "inappropriate_content": true,
	"spam": true, "scam": true, "harassment": true, "counterfeit": true,
	"other": true,
}

var listingReportReasons = map[string]bool{
	"fraud": true, "fake_listing": true, "inappropriate_content": true,
	"spam": true, "scam": true, "counterfeit": true, "other": true,
}

func (h *Handler) reportsGet(c *gin.Context) {
	switch c.Query("action") {
	case "user_reports":
		h.userReports(c)
	case "report_details":
		h.reportDetails(c)
	case "moderation_queue":
		h.moderationQueue(c)
	default:
		invalidAction(c)
	}
}

func (h *Handler) reportsPost(c *gin.Context) {
	switch c.Query("action") {
	case "report_user":
		h.reportUser(c)
	case "report_listing":
		h.reportListing(c)
	case "report_transaction":
		h.reportTransaction(c)
	case "flag_user":
		h.flagUser(c)
	default:
		invalidAction(c)
	}
}

func (h *Handler) reportsPut(c *gin.Context) {
	switch c.Query("action") {
	case "update_report_status":
		h.updateReportStatus(c)
	case "resolve_report":
		h.resolveReport(c)
	default:
		invalidAction(c)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func encodeEvidence(evidence map[string]any) *string {
	if len(evidence) == 0 {
		return nil
	}
	raw, err := json.Marshal(evidence)
	if err != nil {
		return nil
	}
	s := string(raw)
	return &s
}

func decodeEvidence(raw *string) any {
	if raw == nil || *raw == "" {
		return []any{}
	}
	var v any
	if err := json.Unmarshal([]byte(*raw), &v); err != nil {
		return []any{}
	}
	return v
}

type reportUserRequest struct {
	ReporterUserID uint           `json:"reporter_user_id" binding:"required"`
	ReportedUserID uint           `json:"reported_user_id" binding:"required"`
	Reason         string         `json:"reason" binding:"required"`
	Description    string         `json:"description" binding:"required"`
	Evidence       map[string]any `json:"evidence"`
}

func (h *Handler) reportUser(c *gin.Context) {
	var req reportUserRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.ReporterUserID == req.ReportedUserID {
		fail(c, http.StatusBadRequest, "Cannot report yourself")
		return
	}
	if !userReportReasons[req.Reason] {
		fail(c, http.StatusBadRequest, "Invalid report reason")
		return
	}

	var reported storage.User
	err := h.db.DB.First(&reported, req.ReportedUserID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fail(c, http.StatusNotFound, "Reported user not found")
		return
	}
	if err != nil {
		failInternal(c, "report_user", err)
		return
	}

	// Same reporter against the same user: at most 3 reports per day.
	var recent int64
	if err := h.db.DB.Model(&storage.Report{}).
		Where("reporter_user_id = ? AND reported_user_id = ? AND created_at > ?",
			req.ReporterUserID, req.ReportedUserID, time.Now().Add(-24*time.Hour)).
		Count(&recent).Error; err != nil {
		failInternal(c, "report_user", err)
		return
	}
	if recent >= 3 {
		fail(c, http.StatusTooManyRequests,
			"You have already reported this user recently. Please wait before submitting another report.")
		return
	}

	flagged := false
	var report storage.Report
	err = h.db.DB.Transaction(func(tx *gorm.DB) error {
		reportedID := req.ReportedUserID
		report = storage.Report{
			ReporterUserID: req.ReporterUserID,
			ReportedUserID: &reportedID,
			ReportType:     "user",
			Reason:         req.Reason,
			Description:    sanitize(req.Description),
			Evidence:       encodeEvidence(req.Evidence),
			Status:         "pending",
		}
		if err := tx.Create(&report).Error; err != nil {
			return err
		}
		flagged = h.checkAutoFlagging(tx, req.ReportedUserID, req.Reason)
		return nil
	})
	if err != nil {
		failInternal(c, "report_user", err)
		return
	}

	metrics.ReportsTotal.WithLabelValues("user", req.Reason).Inc()
	if flagged {
		h.audit.SystemEvent("user_auto_flagged", "User automatically flagged after report",
			map[string]any{"flagged_user_id": req.ReportedUserID, "report_id": report.ID})
	}
	h.audit.UserAction(req.ReporterUserID, "user_reported", "User reported another user",
		c.ClientIP(), c.Request.UserAgent(), map[string]any{
			"report_id":        report.ID,
			"reported_user_id": req.ReportedUserID,
			"reason":           req.Reason,
		})

	msg := "Report submitted successfully. Our moderation team will review this case."
	if flagged {
		msg += " The reported user has been automatically flagged for review."
	}
	respond(c, gin.H{"report_id": report.ID, "message": msg})
}

type reportListingRequest struct {
	ReporterUserID    uint           `json:"reporter_user_id" binding:"required"`
	ReportedListingID uint           `json:"reported_listing_id" binding:"required"`
	Reason            string         `json:"reason" binding:"required"`
	Description       string         `json:"description" binding:"required"`
	Evidence          map[string]any `json:"evidence"`
}

func (h *Handler) reportListing(c *gin.Context) {
	var req reportListingRequest
	if !bindJSON(c, &req) {
		return
	}
	if !listingReportReasons[req.Reason] {
		fail(c, http.StatusBadRequest, "Invalid report reason")
		return
	}

	var listing storage.Listing
	err := h.db.DB.First(&listing, req.ReportedListingID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fail(c, http.StatusNotFound, "Listing not found")
		return
	}
	if err != nil {
		failInternal(c, "report_listing", err)
		return
	}
	if listing.UserID == req.ReporterUserID {
		fail(c, http.StatusBadRequest, "Cannot report your own listing")
		return
	}

	// One report per reporter per listing per hour.
	var recent int64
	if err := h.db.DB.Model(&storage.Report{}).
		Where("reporter_user_id = ? AND reported_listing_id = ? AND created_at > ?",
			req.ReporterUserID, req.ReportedListingID, time.Now().Add(-time.Hour)).
		Count(&recent).Error; err != nil {
		failInternal(c, "report_listing", err)
		return
	}
	if recent >= 1 {
		fail(c, http.StatusTooManyRequests, "You have already reported this listing recently.")
		return
	}

	suspended := false
	var report storage.Report
	err = h.db.DB.Transaction(func(tx *gorm.DB) error {
		ownerID := listing.UserID
		listingID := req.ReportedListingID
		report = storage.Report{
			ReporterUserID:    req.ReporterUserID,
			ReportedUserID:    &ownerID,
			ReportedListingID: &listingID,
			ReportType:        "listing",
			Reason:            req.Reason,
			Description:       sanitize(req.Description),
			Evidence:          encodeEvidence(req.Evidence),
			Status:            "pending",
		}
		if err := tx.Create(&report).Error; err != nil {
			return err
		}
		suspended = h.checkListingSuspension(tx, req.ReportedListingID, req.Reason)
		return nil
	})
	if err != nil {
		failInternal(c, "report_listing", err)
		return
	}

	metrics.ReportsTotal.WithLabelValues("listing", req.Reason).Inc()
	if suspended {
		h.audit.SystemEvent("listing_auto_suspended", "Listing automatically suspended after report",
			map[string]any{"listing_id": req.ReportedListingID, "report_id": report.ID})
	}
	h.audit.UserAction(req.ReporterUserID, "listing_reported", "Listing reported",
		c.ClientIP(), c.Request.UserAgent(), map[string]any{
			"report_id":  report.ID,
			"listing_id": req.ReportedListingID,
			"reason":     req.Reason,
		})

	msg := "Report submitted successfully. Our moderation team will review this listing."
	if suspended {
		msg += " The listing has been temporarily suspended pending review."
	}
	respond(c, gin.H{"report_id": report.ID, "message": msg})
}

type reportTransactionRequest struct {
	ReporterUserID        uint           `json:"reporter_user_id" binding:"required"`
	ReportedTransactionID uint           `json:"reported_transaction_id" binding:"required"`
	Reason                string         `json:"reason" binding:"required"`
	Description           string         `json:"description" binding:"required"`
	Evidence              map[string]any `json:"evidence"`
}

func (h *Handler) reportTransaction(c *gin.Context) {
	var req reportTransactionRequest
	if !bindJSON(c, &req) {
		return
	}

	var txRow storage.Transaction
	err := h.db.DB.First(&txRow, req.ReportedTransactionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fail(c, http.StatusNotFound, "Transaction not found")
		return
	}
	if err != nil {
		failInternal(c, "report_transaction", err)
		return
	}

	if txRow.BuyerID != req.ReporterUserID && txRow.SellerID != req.ReporterUserID {
		fail(c, http.StatusForbidden, "You can only report transactions you are involved in")
		return
	}
	reportedUserID := txRow.SellerID
	if txRow.SellerID == req.ReporterUserID {
		reportedUserID = txRow.BuyerID
	}

	var report storage.Report
	err = h.db.DB.Transaction(func(tx *gorm.DB) error {
		txID := req.ReportedTransactionID
		report = storage.Report{
			ReporterUserID:        req.ReporterUserID,
			ReportedUserID:        &reportedUserID,
			ReportedTransactionID: &txID,
			ReportType:            "transaction",
			Reason:                req.Reason,
			Description:           sanitize(req.Description),
			Evidence:              encodeEvidence(req.Evidence),
			Status:                "pending",
		}
		if err := tx.Create(&report).Error; err != nil {
			return err
		}
		// Fraud and scam allegations jump the queue.
		if req.Reason == "fraud" || req.Reason == "scam" {
			return tx.Model(&report).Updates(map[string]any{
				"status":      "investigating",
				"admin_notes": "Auto-escalated due to fraud/scam allegation",
			}).Error
		}
		return nil
	})
	if err != nil {
		failInternal(c, "report_transaction", err)
		return
	}

	metrics.ReportsTotal.WithLabelValues("transaction", req.Reason).Inc()
	h.audit.UserAction(req.ReporterUserID, "transaction_reported", "Transaction reported",
		c.ClientIP(), c.Request.UserAgent(), map[string]any{
			"report_id":      report.ID,
			"transaction_id": req.ReportedTransactionID,
			"reason":         req.Reason,
		})

	respond(c, gin.H{
		"report_id": report.ID,
		"message":   "Transaction report submitted successfully. Our support team will investigate.",
	})
}

// checkAutoFlagging applies the automatic moderation rules after a user
// report: three or more open reports inside a week, or a fraud/scam
// allegation, flag the user for review. Failures here never fail the
// report itself.
func (h *Handler) checkAutoFlagging(tx *gorm.DB, userID uint, reason string) bool {
	var count int64
	err := tx.Model(&storage.Report{}).
		Where("reported_user_id = ? AND status IN ? AND created_at > ?",
			userID, []string{"pending", "investigating"}, time.Now().Add(-7*24*time.Hour)).
		Count(&count).Error
	if err != nil {
		log.WithField("error", err.Error()).Error("Auto-flag check failed")
		return false
	}

	if count >= 3 {
		autoReason := fmt.Sprintf("Automatically flagged due to multiple reports (%d reports in 7 days)", count)
		flag := storage.UserFlag{
			UserID:        userID,
			FlagType:      "warning",
			Reason:        autoReason,
			Severity:      3,
			AutoGenerated: true,
		}
		if err := tx.Create(&flag).Error; err != nil {
			log.WithField("error", err.Error()).Error("Auto-flagging failed")
			return false
		}
		if err := tx.Model(&storage.User{}).Where("id = ?", userID).Updates(map[string]any{
			"is_flagged":  true,
			"flag_reason": autoReason,
		}).Error; err != nil {
			log.WithField("error", err.Error()).Error("Auto-flagging failed")
			return false
		}
		return true
	}

	if reason == "fraud" || reason == "scam" {
		flag := storage.UserFlag{
			UserID:        userID,
			FlagType:      "warning",
			Reason:        "Automatically flagged due to serious allegation: " + reason,
			Severity:      7,
			AutoGenerated: true,
		}
		if err := tx.Create(&flag).Error; err != nil {
			log.WithField("error", err.Error()).Error("Auto-flagging for serious allegation failed")
			return false
		}
		return true
	}

	return false
}

// checkListingSuspension suspends a listing for serious reasons or when
// it has drawn two or more reports within a day.
func (h *Handler) checkListingSuspension(tx *gorm.DB, listingID uint, reason string) bool {
	var count int64
	err := tx.Model(&storage.Report{}).
		Where("reported_listing_id = ? AND created_at > ?", listingID, time.Now().Add(-24*time.Hour)).
		Count(&count).Error
	if err != nil {
		log.WithField("error", err.Error()).Error("Listing suspension check failed")
		return false
	}

	serious := reason == "fraud" || reason == "scam" || reason == "counterfeit"
	if !serious && count < 2 {
		return false
	}

	if err := tx.Model(&storage.Listing{}).Where("id = ?", listingID).
		Update("status", "suspended").Error; err != nil {
		log.WithField("error", err.Error()).Error("Auto-suspension failed")
		return false
	}
	return true
}

type flagUserRequest struct {
	UserID          uint   `json:"user_id" binding:"required"`
	FlagType        string `json:"flag_type" binding:"required"`
	Reason          string `json:"reason" binding:"required"`
	Severity        *int   `json:"severity"`
	AutoGenerated   bool   `json:"auto_generated"`
	DurationHours   int    `json:"duration_hours"`
	RelatedReportID *uint  `json:"related_report_id"`
	AdminID         *uint  `json:"admin_id"`
}

var flagMessages = map[string]string{
	"warning":    "You have received a warning for violating our community guidelines.",
	"suspension": "Your account has been suspended due to violations of our terms of service.",
	"ban":        "Your account has been permanently banned due to serious violations.",
}

func (h *Handler) flagUser(c *gin.Context) {
	var req flagUserRequest
	if !bindJSON(c, &req) {
		return
	}
	if _, ok := flagMessages[req.FlagType]; !ok {
		fail(c, http.StatusBadRequest, "Invalid flag type")
		return
	}

	var user storage.User
	err := h.db.DB.First(&user, req.UserID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fail(c, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		failInternal(c, "flag_user", err)
		return
	}

	severity := 5
	if req.Severity != nil {
		severity = *req.Severity
	}

	var pending []storage.Notification
	var flag storage.UserFlag
	err = h.db.DB.Transaction(func(tx *gorm.DB) error {
		flag = storage.UserFlag{
			UserID:          req.UserID,
			FlagType:        req.FlagType,
			Reason:          sanitize(req.Reason),
			Severity:        severity,
			AutoGenerated:   req.AutoGenerated,
			RelatedReportID: req.RelatedReportID,
		}
		if req.DurationHours > 0 {
			expires := time.Now().Add(time.Duration(req.DurationHours) * time.Hour)
			flag.ExpiresAt = &expires
		}
		if err := tx.Create(&flag).Error; err != nil {
			return err
		}

		newStatus := ""
		switch req.FlagType {
		case "suspension":
			newStatus = "suspended"
		case "ban":
			newStatus = "banned"
		}
		if newStatus != "" {
			if err := tx.Model(&storage.User{}).Where("id = ?", req.UserID).Updates(map[string]any{
				"status":      newStatus,
				"is_flagged":  true,
				"flag_reason": sanitize(req.Reason),
			}).Error; err != nil {
				return err
			}
			// A suspended or banned seller takes their listings with them.
			if err := tx.Model(&storage.Listing{}).
				Where("user_id = ? AND status = ?", req.UserID, "active").
				Update("status", "suspended").Error; err != nil {
				return err
			}
		}

		title := capitalize(req.FlagType) + " Notice"
		body := flagMessages[req.FlagType] + " Reason: " + req.Reason
		created, err := h.notifier.Insert(tx, req.UserID, "system", title, body, "urgent")
		if err != nil {
			return err
		}
		pending = append(pending, created)
		return nil
	})
	if err != nil {
		failInternal(c, "flag_user", err)
		return
	}

	h.notifier.Publish(pending)
	h.audit.Record(auditSystem(req.AdminID, "user_flagged",
		fmt.Sprintf("User %s applied", req.FlagType), map[string]any{
			"flagged_user_id": req.UserID,
			"flag_type":       req.FlagType,
			"flag_id":         flag.ID,
		}))

	respond(c, gin.H{
		"flag_id": flag.ID,
		"message": fmt.Sprintf("User %s applied successfully", req.FlagType),
	})
}

type reportListRow struct {
	storage.Report       `gorm:"embedded"`
	ReportedUserName     *string
	ReportedListingTitle *string
	ReporterName         *string
}

func reportPayload(row reportListRow) gin.H {
	return gin.H{
		"id":                      row.ID,
		"reporter_user_id":        row.ReporterUserID,
		"reported_user_id":        row.Report.ReportedUserID,
		"reported_listing_id":     row.ReportedListingID,
		"reported_transaction_id": row.ReportedTransactionID,
		"report_type":             row.ReportType,
		"reason":                  row.Reason,
		"description":             row.Description,
		"evidence":                decodeEvidence(row.Evidence),
		"status":                  row.Report.Status,
		"resolution":              row.Resolution,
		"admin_notes":             row.AdminNotes,
		"created_at":              row.CreatedAt,
		"created_at_formatted":    formatTimestamp(row.CreatedAt),
		"reported_user_name":      row.ReportedUserName,
		"reported_listing_title":  row.ReportedListingTitle,
	}
}

func (h *Handler) userReports(c *gin.Context) {
	userID, ok := queryID(c, "user_id", "User ID required")
	if !ok {
		return
	}

	var rows []reportListRow
	err := h.db.DB.Table("reports").
		Select("reports.*, u.name AS reported_user_name, l.title AS reported_listing_title").
		Joins("LEFT JOIN users u ON reports.reported_user_id = u.id").
		Joins("LEFT JOIN listings l ON reports.reported_listing_id = l.id").
		Where("reports.reporter_user_id = ?", userID).
		Order("reports.created_at DESC").
		Limit(20).
		Scan(&rows).Error
	if err != nil {
		failInternal(c, "user_reports", err)
		return
	}

	reports := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		payload := reportPayload(row)
		payload["status_display"] = capitalize(row.Report.Status)
		reports = append(reports, payload)
	}
	respond(c, gin.H{"reports": reports})
}

func (h *Handler) reportDetails(c *gin.Context) {
	reportID, ok := queryID(c, "report_id", "Report ID required")
	if !ok {
		return
	}

	var row reportListRow
	res := h.db.DB.Table("reports").
		Select("reports.*, reporter.name AS reporter_name, reported.name AS reported_user_name, "+
			"l.title AS reported_listing_title").
		Joins("JOIN users reporter ON reports.reporter_user_id = reporter.id").
		Joins("LEFT JOIN users reported ON reports.reported_user_id = reported.id").
		Joins("LEFT JOIN listings l ON reports.reported_listing_id = l.id").
		Where("reports.id = ?", reportID).
		Limit(1).
		Scan(&row)
	if res.Error != nil {
		failInternal(c, "report_details", res.Error)
		return
	}
	if res.RowsAffected == 0 {
		fail(c, http.StatusNotFound, "Report not found")
		return
	}

	payload := reportPayload(row)
	payload["reporter_name"] = row.ReporterName
	payload["updated_at_formatted"] = formatTimestamp(row.UpdatedAt)

	respond(c, gin.H{"report": payload})
}

// reportPriority ranks a queue entry: serious reasons, transaction
// reports and age all push it up.
func reportPriority(reason, reportType string, createdAt, now time.Time) int {
	priority := 1
	switch reason {
	case "fraud", "scam":
		priority += 5
	case "harassment", "counterfeit":
		priority += 3
	}
	if reportType == "transaction" {
		priority += 2
	}
	age := now.Sub(createdAt)
	if age > 24*time.Hour {
		priority += 2
	} else if age > 12*time.Hour {
		priority += 1
	}
	return priority
}

func (h *Handler) moderationQueue(c *gin.Context) {
	status := c.DefaultQuery("status", "pending")
	switch status {
	case "pending", "investigating", "resolved", "dismissed":
	default:
		status = "pending"
	}

	var rows []reportListRow
	err := h.db.DB.Table("reports").
		Select("reports.*, reporter.name AS reporter_name, reported.name AS reported_user_name, "+
			"l.title AS reported_listing_title").
		Joins("JOIN users reporter ON reports.reporter_user_id = reporter.id").
		Joins("LEFT JOIN users reported ON reports.reported_user_id = reported.id").
		Joins("LEFT JOIN listings l ON reports.reported_listing_id = l.id").
		Where("reports.status = ?", status).
		Order("reports.created_at ASC").
		Limit(50).
		Scan(&rows).Error
	if err != nil {
		failInternal(c, "moderation_queue", err)
		return
	}

	now := time.Now()
	reports := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		payload := reportPayload(row)
		payload["reporter_name"] = row.ReporterName
		payload["priority"] = reportPriority(row.Reason, row.ReportType, row.CreatedAt, now)
		reports = append(reports, payload)
	}
	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i]["priority"].(int) > reports[j]["priority"].(int)
	})

	respond(c, gin.H{"reports": reports, "status": status})
}

type updateReportStatusRequest struct {
	ReportID   uint   `json:"report_id" binding:"required"`
	Status     string `json:"status" binding:"required"`
	AdminNotes string `json:"admin_notes"`
	AdminID    *uint  `json:"admin_id"`
}

func (h *Handler) updateReportStatus(c *gin.Context) {
	var req updateReportStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	switch req.Status {
	case "pending", "investigating", "resolved", "dismissed":
	default:
		fail(c, http.StatusBadRequest, "Invalid status")
		return
	}

	res := h.db.DB.Model(&storage.Report{}).Where("id = ?", req.ReportID).
		Updates(map[string]any{
			"status":              req.Status,
			"admin_notes":         sanitize(req.AdminNotes),
			"handled_by_admin_id": req.AdminID,
		})
	if res.Error != nil {
		failInternal(c, "update_report_status", res.Error)
		return
	}
	if res.RowsAffected == 0 {
		fail(c, http.StatusNotFound, "Report not found")
		return
	}

	h.audit.Record(auditSystem(req.AdminID, "report_status_updated", "Report status updated",
		map[string]any{"report_id": req.ReportID, "new_status": req.Status}))

	respond(c, gin.H{"message": "Report status updated successfully"})
}

type resolveReportRequest struct {
	ReportID   uint   `json:"report_id" binding:"required"`
	Resolution string `json:"resolution" binding:"required"`
	AdminNotes string `json:"admin_notes"`
	AdminID    *uint  `json:"admin_id"`
}

func (h *Handler) resolveReport(c *gin.Context) {
	var req resolveReportRequest
	if !bindJSON(c, &req) {
		return
	}

	var pending []storage.Notification
	err := h.db.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&storage.Report{}).Where("id = ?", req.ReportID).
			Updates(map[string]any{
				"status":              "resolved",
				"resolution":          sanitize(req.Resolution),
				"admin_notes":         sanitize(req.AdminNotes),
				"handled_by_admin_id": req.AdminID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		var report storage.Report
		if err := tx.First(&report, req.ReportID).Error; err != nil {
			return err
		}
		created, err := h.notifier.Insert(tx, report.ReporterUserID, "report",
			"Report Resolved",
			fmt.Sprintf("Your %s report has been resolved by our moderation team.", report.ReportType),
			"medium")
		if err != nil {
			return err
		}
		pending = append(pending, created)
		return nil
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		fail(c, http.StatusNotFound, "Report not found")
		return
	}
	if err != nil {
		failInternal(c, "resolve_report", err)
		return
	}

	h.notifier.Publish(pending)
	h.audit.Record(auditSystem(req.AdminID, "report_resolved", "Report resolved",
		map[string]any{"report_id": req.ReportID}))

	respond(c, gin.H{"message": "Report resolved successfully"})
}
