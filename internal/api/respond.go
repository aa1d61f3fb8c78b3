// Package api implements the marketplace HTTP surface: users, listings,
// bookmarks, messages, transactions and moderation reports, all served
// under /api with method plus action-parameter dispatch.
package api

import (
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"
)

const (
	timestampFormat = "Jan 2, 2006 3:04 PM"
	dateFormat      = "Jan 2, 2006"
)

// respond writes a success body. Every success response carries
// success: true alongside the handler's payload.
func respond(c *gin.Context, body gin.H) {
	body["success"] = true
	c.JSON(http.StatusOK, body)
}

// fail writes the error envelope for the given status.
func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// failInternal logs the cause and returns a generic 500 message; the
// underlying error never reaches the client.
func failInternal(c *gin.Context, action string, err error) {
	log.WithFields(log.Fields{
		"action": action,
		"path":   c.Request.URL.Path,
		"error":  err.Error(),
	}).Error("Request failed")
	fail(c, http.StatusInternalServerError, "An unexpected error occurred")
}

// bindJSON binds the request body into req. Binding failures answer with
// a 400 naming the first offending field and return false.
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fail(c, http.StatusBadRequest, fmt.Sprintf("Field '%s' is required", verrs[0].Field()))
			return false
		}
		fail(c, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// sanitize trims and HTML-escapes user supplied text before storage.
func sanitize(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}

func formatTimestamp(t time.Time) string {
	return t.Format(timestampFormat)
}

func formatDate(t time.Time) string {
	return t.Format(dateFormat)
}

// relativeTime renders "Just now" under an hour, then "Xh ago" and
// "Xd ago".
func relativeTime(t, now time.Time) string {
	diff := now.Sub(t)
	switch {
	case diff < time.Hour:
		return "Just now"
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	}
}

// expiryInfo describes how much listing lifetime remains.
func expiryInfo(createdAt time.Time, durationHours int, now time.Time) gin.H {
	expiresAt := createdAt.Add(time.Duration(durationHours) * time.Hour)
	left := expiresAt.Sub(now)

	if left <= 0 {
		return gin.H{"expired": true, "display": "Expired"}
	}
	hours := int(left.Hours())
	switch {
	case hours < 1:
		return gin.H{"expired": false, "display": fmt.Sprintf("%dm left", int(left.Minutes()))}
	case hours < 24:
		return gin.H{"expired": false, "display": fmt.Sprintf("%dh left", hours)}
	default:
		return gin.H{"expired": false, "display": fmt.Sprintf("%dd left", hours/24)}
	}
}
