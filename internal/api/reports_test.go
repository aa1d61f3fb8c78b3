package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bsrmarket/marketplace/internal/storage"
)

func TestReportUser_SelfAndInvalidReason(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser(t, "Alice", "alice@example.com", "buyer")
	other := env.seedUser(t, "Bob", "bob@example.com", "seller")

	w := env.request(t, http.MethodPost, "/api/reports?action=report_user", map[string]any{
		"reporter_user_id": user.ID,
		"reported_user_id": user.ID,
		"reason":           "spam",
		"description":      "self report",
	})
	body := assertStatus(t, w, http.StatusBadRequest)
	assert.Equal(t, "Cannot report yourself", body["error"])

	w = env.request(t, http.MethodPost, "/api/reports?action=report_user", map[string]any{
		"reporter_user_id": user.ID,
		"reported_user_id": other.ID,
		"reason":           "being_annoying",
		"description":      "not a real reason",
	})
	body = assertStatus(t, w, http.StatusBadRequest)
	assert.Equal(t, "Invalid report reason", body["error"])
}

func TestReportUser_ThrottleAfterThree(t *testing.T) {
	env := newTestEnv(t)
	reporter := env.seedUser(t, "Alice", "alice@example.com", "buyer")
	target := env.seedUser(t, "Bob", "bob@example.com", "seller")

	for i := 0; i < 3; i++ {
		w := env.request(t, http.MethodPost, "/api/reports?action=report_user", map[string]any{
			"reporter_user_id": reporter.ID,
			"reported_user_id": target.ID,
			"reason":           "spam",
			"description":      "spamming my inbox",
		})
		assertStatus(t, w, http.StatusOK)
	}

	w := env.request(t, http.MethodPost, "/api/reports?action=report_user", map[string]any{
		"reporter_user_id": reporter.ID,
		"reported_user_id": target.ID,
		"reason":           "spam",
		"description":      "still spamming",
	})
	assertStatus(t, w, http.StatusTooManyRequests)
}

func TestReportUser_AutoFlagOnThirdOpenReport(t *testing.T) {
	env := newTestEnv(t)
	target := env.seedUser(t, "Bob", "bob@example.com", "seller")

	var reporters []storage.User
	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		reporters = append(reporters, env.seedUser(t, "Reporter", email, "buyer"))
	}

	for i, reporter := range reporters {
		w := env.request(t, http.MethodPost, "/api/reports?action=report_user", map[string]any{
			"reporter_user_id": reporter.ID,
			"reported_user_id": target.ID,
			"reason":           "spam",
			"description":      "spam account",
		})
		body := assertStatus(t, w, http.StatusOK)
		if i == 2 {
			assert.Contains(t, body["message"], "automatically flagged")
		}
	}

	var fresh storage.User
	require.NoError(t, env.db.DB.First(&fresh, target.ID).Error)
	assert.True(t, fresh.IsFlagged)

	var flag storage.UserFlag
	require.NoError(t, env.db.DB.Where("user_id = ?", target.ID).First(&flag).Error)
	assert.Equal(t, "warning", flag.FlagType)
	assert.Equal(t, 3, flag.Severity)
	assert.True(t, flag.AutoGenerated)

	var event storage.ActivityLog
	require.NoError(t, env.db.DB.
		Where("activity_type = ? AND action = ?", "system_event", "user_auto_flagged").
		First(&event).Error)
	assert.Contains(t, *event.Metadata, "\"flagged_user_id\":"+itoa(target.ID))
}

func TestReportUser_FraudFlagsImmediately(t *testing.T) {
	env := newTestEnv(t)
	reporter := env.seedUser(t, "Alice", "alice@example.com", "buyer")
	target := env.seedUser(t, "Bob", "bob@example.com", "seller")

	w := env.request(t, http.MethodPost, "/api/reports?action=report_user", map[string]any{
		"reporter_user_id": reporter.ID,
		"reported_user_id": target.ID,
		"reason":           "fraud",
		"description":      "took my money",
	})
	body := assertStatus(t, w, http.StatusOK)
	assert.Contains(t, body["message"], "automatically flagged")

	var flag storage.UserFlag
	require.NoError(t, env.db.DB.Where("user_id = ?", target.ID).First(&flag).Error)
	assert.Equal(t, 7, flag.Severity)
	assert.True(t, flag.AutoGenerated)
}

func TestReportListing_OwnListingAndSuspension(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedUser(t, "Bob", "bob@example.com", "seller")
	reporter := env.seedUser(t, "Alice", "alice@example.com", "buyer")
	listing := env.seedListing(t, owner.ID, "Designer Bag")

	w := env.request(t, http.MethodPost, "/api/reports?action=report_listing", map[string]any{
		"reporter_user_id":    owner.ID,
		"reported_listing_id": listing.ID,
		"reason":              "spam",
		"description":         "my own listing",
	})
	body := assertStatus(t, w, http.StatusBadRequest)
	assert.Equal(t, "Cannot report your own listing", body["error"])

	// Counterfeit reports suspend the listing right away.
	w = env.request(t, http.MethodPost, "/api/reports?action=report_listing", map[string]any{
		"reporter_user_id":    reporter.ID,
		"reported_listing_id": listing.ID,
		"reason":              "counterfeit",
		"description":         "fake designer goods",
	})
	body = assertStatus(t, w, http.StatusOK)
	assert.Contains(t, body["message"], "temporarily suspended")

	var fresh storage.Listing
	require.NoError(t, env.db.DB.First(&fresh, listing.ID).Error)
	assert.Equal(t, "suspended", fresh.Status)

	var event storage.ActivityLog
	require.NoError(t, env.db.DB.
		Where("activity_type = ? AND action = ?", "system_event", "listing_auto_suspended").
		First(&event).Error)
	assert.Contains(t, *event.Metadata, "\"listing_id\":"+itoa(listing.ID))

	// The same reporter is throttled for an hour.
	w = env.request(t, http.MethodPost, "/api/reports?action=report_listing", map[string]any{
		"reporter_user_id":    reporter.ID,
		"reported_listing_id": listing.ID,
		"reason":              "counterfeit",
		"description":         "still fake",
	})
	assertStatus(t, w, http.StatusTooManyRequests)
}

func TestReportTransaction_FraudAutoEscalates(t *testing.T) {
	env := newTestEnv(t)
	buyer := env.seedUser(t, "Alice", "alice@example.com", "buyer")
	seller := env.seedUser(t, "Bob", "bob@example.com", "seller")
	outsider := env.seedUser(t, "Mallory", "mallory@example.com", "buyer")
	listing := env.seedListing(t, seller.ID, "Bike")
	tx := env.seedTransaction(t, listing, buyer.ID, seller.ID, "paid")

	w := env.request(t, http.MethodPost, "/api/reports?action=report_transaction", map[string]any{
		"reporter_user_id":        outsider.ID,
		"reported_transaction_id": tx.ID,
		"reason":                  "fraud",
		"description":             "not my transaction",
	})
	assertStatus(t, w, http.StatusForbidden)

	w = env.request(t, http.MethodPost, "/api/reports?action=report_transaction", map[string]any{
		"reporter_user_id":        buyer.ID,
		"reported_transaction_id": tx.ID,
		"reason":                  "fraud",
		"description":             "seller took the money and ran",
	})
	body := assertStatus(t, w, http.StatusOK)

	var report storage.Report
	require.NoError(t, env.db.DB.First(&report, uint(intField(body, "report_id"))).Error)
	assert.Equal(t, "investigating", report.Status)
	require.NotNil(t, report.AdminNotes)
	assert.Contains(t, *report.AdminNotes, "Auto-escalated")
	require.NotNil(t, report.ReportedUserID)
	assert.Equal(t, seller.ID, *report.ReportedUserID)
}

func TestFlagUser_SuspensionCascades(t *testing.T) {
	env := newTestEnv(t)
	target := env.seedUser(t, "Bob", "bob@example.com", "seller")
	listing := env.seedListing(t, target.ID, "Bike")

	w := env.request(t, http.MethodPost, "/api/reports?action=flag_user", map[string]any{
		"user_id":   target.ID,
		"flag_type": "suspension",
		"reason":    "repeated violations",
	})
	body := assertStatus(t, w, http.StatusOK)
	assert.Equal(t, "User suspension applied successfully", body["message"])

	var fresh storage.User
	require.NoError(t, env.db.DB.First(&fresh, target.ID).Error)
	assert.Equal(t, "suspended", fresh.Status)
	assert.True(t, fresh.IsFlagged)

	var freshListing storage.Listing
	require.NoError(t, env.db.DB.First(&freshListing, listing.ID).Error)
	assert.Equal(t, "suspended", freshListing.Status)

	var note storage.Notification
	require.NoError(t, env.db.DB.Where("user_id = ?", target.ID).First(&note).Error)
	assert.Equal(t, "Suspension Notice", note.Title)
	assert.Equal(t, "urgent", note.Priority)
	assert.Contains(t, note.Body, "repeated violations")
	assert.True(t, note.SendEmail)
}

func TestModerationQueue_PriorityOrdering(t *testing.T) {
	env := newTestEnv(t)
	reporter := env.seedUser(t, "Alice", "alice@example.com", "buyer")
	target := env.seedUser(t, "Bob", "bob@example.com", "seller")

	spamID := target.ID
	old := time.Now().Add(-30 * time.Hour)
	reports := []storage.Report{
		{ReporterUserID: reporter.ID, ReportedUserID: &spamID, ReportType: "user",
			Reason: "spam", Description: "spam", Status: "pending"},
		{ReporterUserID: reporter.ID, ReportedUserID: &spamID, ReportType: "user",
			Reason: "fraud", Description: "fraud", Status: "pending"},
		{ReporterUserID: reporter.ID, ReportedUserID: &spamID, ReportType: "user",
			Reason: "harassment", Description: "harassment", Status: "pending"},
	}
	for i := range reports {
		require.NoError(t, env.db.DB.Create(&reports[i]).Error)
	}
	// Age the spam report past 24 hours: base 1 + 2 = 3, still below
	// fraud (6) and harassment (4).
	require.NoError(t, env.db.DB.Model(&storage.Report{}).Where("id = ?", reports[0].ID).
		Update("created_at", old).Error)

	w := env.request(t, http.MethodGet, "/api/reports?action=moderation_queue", nil)
	body := assertStatus(t, w, http.StatusOK)
	assert.Equal(t, "pending", body["status"])

	list, ok := body["reports"].([]any)
	require.True(t, ok)
	require.Len(t, list, 3)

	first := list[0].(map[string]any)
	second := list[1].(map[string]any)
	third := list[2].(map[string]any)
	assert.Equal(t, "fraud", first["reason"])
	assert.Equal(t, "harassment", second["reason"])
	assert.Equal(t, "spam", third["reason"])
	assert.Equal(t, float64(6), first["priority"])
}

func TestResolveReport_NotifiesReporter(t *testing.T) {
	env := newTestEnv(t)
	reporter := env.seedUser(t, "Alice", "alice@example.com", "buyer")
	target := env.seedUser(t, "Bob", "bob@example.com", "seller")

	targetID := target.ID
	report := storage.Report{
		ReporterUserID: reporter.ID,
		ReportedUserID: &targetID,
		ReportType:     "user",
		Reason:         "spam",
		Description:    "spam",
		Status:         "pending",
	}
	require.NoError(t, env.db.DB.Create(&report).Error)

	w := env.request(t, http.MethodPut, "/api/reports?action=resolve_report", map[string]any{
		"report_id":  report.ID,
		"resolution": "warning issued",
	})
	assertStatus(t, w, http.StatusOK)

	var fresh storage.Report
	require.NoError(t, env.db.DB.First(&fresh, report.ID).Error)
	assert.Equal(t, "resolved", fresh.Status)
	require.NotNil(t, fresh.Resolution)
	assert.Equal(t, "warning issued", *fresh.Resolution)

	var note storage.Notification
	require.NoError(t, env.db.DB.Where("user_id = ?", reporter.ID).First(&note).Error)
	assert.Equal(t, "Report Resolved", note.Title)
	assert.Contains(t, note.Body, "user report")
}

func TestUpdateReportStatus_Validation(t *testing.T) {
	env := newTestEnv(t)

	w := env.request(t, http.MethodPut, "/api/reports?action=update_report_status", map[string]any{
		"report_id": 1,
		"status":    "archived",
	})
	body := assertStatus(t, w, http.StatusBadRequest)
	assert.Equal(t, "Invalid status", body["error"])

	w = env.request(t, http.MethodPut, "/api/reports?action=update_report_status", map[string]any{
		"report_id": 999,
		"status":    "investigating",
	})
	assertStatus(t, w, http.StatusNotFound)
}

func TestCapitalize(t *testing.T) {
	assert.Equal(t, "", capitalize(""))
	assert.Equal(t, "Pending", capitalize("pending"))
	assert.Equal(t, "Suspension", capitalize("suspension"))
}
