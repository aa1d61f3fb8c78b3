// Package audit records user, admin and system activity in the activity
// log table. Logging is best-effort: a failed insert is reported through
// the structured logger and never fails the request that triggered it.
package audit

import (
	"encoding/json"

	log "github.com/sirupsen/logrus"

	"github.com/bsrmarket/marketplace/internal/storage"
)

const (
	TypeUserAction  = "user_action"
	TypeAdminAction = "admin_action"
	TypeSystemEvent = "system_event"
)

// Entry is one activity to record. Metadata is marshalled to JSON; UserID
// and AdminID are optional so system events can be attributed to nobody.
type Entry struct {
	UserID    *uint
	AdminID   *uint
	Type      string
	Action    string
	Details   string
	IPAddress string
	UserAgent string
	Metadata  map[string]any
}

// Logger writes activity entries against the injected database handle.
type Logger struct {
	db *storage.Database
}

func New(db *storage.Database) *Logger {
	return &Logger{db: db}
}

// Record inserts one activity row. Errors are logged, not returned.
func (l *Logger) Record(e Entry) {
	row := storage.ActivityLog{
		UserID:       e.UserID,
		AdminID:      e.AdminID,
		ActivityType: e.Type,
		Action:       e.Action,
		Description:  e.Details,
	}
	if e.IPAddress != "" {
		row.IPAddress = &e.IPAddress
	}
	if e.UserAgent != "" {
		row.UserAgent = &e.UserAgent
	}
	if len(e.Metadata) > 0 {
		raw, err := json.Marshal(e.Metadata)
		if err == nil {
			s := string(raw)
			row.Metadata = &s
		}
	}

	if err := l.db.DB.Create(&row).Error; err != nil {
		log.WithFields(log.Fields{
			"action": e.Action,
			"type":   e.Type,
			"error":  err.Error(),
		}).Error("Failed to record activity")
	}
}

// UserAction records an action performed by a regular user.
func (l *Logger) UserAction(userID uint, action, details, ip, userAgent string, metadata map[string]any) {
	l.Record(Entry{
		UserID:    &userID,
		Type:      TypeUserAction,
		Action:    action,
		Details:   details,
		IPAddress: ip,
		UserAgent: userAgent,
		Metadata:  metadata,
	})
}

// SystemEvent records an action taken automatically by the platform.
func (l *Logger) SystemEvent(action, details string, metadata map[string]any) {
	l.Record(Entry{
		Type:     TypeSystemEvent,
		Action:   action,
		Details:  details,
		Metadata: metadata,
	})
}
