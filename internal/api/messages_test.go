package api

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bsrmarket/marketplace/internal/storage"
)

func TestSendMessage(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedUser(t, "Alice", "alice@example.com", "buyer")
	bob := env.seedUser(t, "Bob", "bob@example.com", "seller")

	before := time.Now().Add(-time.Second).UnixMilli()
	w := env.request(t, http.MethodPost, "/api/messages", map[string]any{
		"from_id":       alice.ID,
		"to_id":         bob.ID,
		"message":       "  Is the bike still available? ",
		"listing_title": "Mountain Bike",
	})
	body := assertStatus(t, w, http.StatusOK)

	msg, ok := body["messageData"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Is the bike still available?", msg["message"])
	assert.Equal(t, "Alice", msg["from_name"])
	assert.Equal(t, "Bob", msg["to_name"])
	assert.Equal(t, "Mountain Bike", msg["listing_title"])
	assert.Equal(t, false, msg["read"])

	ts, ok := msg["timestamp"].(float64)
	require.True(t, ok)
	assert.GreaterOrEqual(t, int64(ts), before, "timestamp is epoch milliseconds")

	w = env.request(t, http.MethodPost, "/api/messages", map[string]any{
		"from_id": alice.ID,
		"to_id":   bob.ID,
	})
	body = assertStatus(t, w, http.StatusBadRequest)
	assert.Equal(t, "Field 'message' is required", body["error"])
}

func TestListMessages_BothDirections(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedUser(t, "Alice", "alice@example.com", "buyer")
	bob := env.seedUser(t, "Bob", "bob@example.com", "seller")
	carol := env.seedUser(t, "Carol", "carol@example.com", "buyer")

	for _, m := range []storage.Message{
		{FromID: alice.ID, ToID: bob.ID, Body: "hi bob"},
		{FromID: bob.ID, ToID: alice.ID, Body: "hi alice"},
		{FromID: bob.ID, ToID: carol.ID, Body: "hi carol"},
	} {
		require.NoError(t, env.db.DB.Create(&m).Error)
	}

	w := env.request(t, http.MethodGet, "/api/messages?user_id="+itoa(alice.ID), nil)
	body := assertStatus(t, w, http.StatusOK)
	messages := body["messages"].([]any)
	require.Len(t, messages, 2)
	for _, raw := range messages {
		m := raw.(map[string]any)
		assert.NotEqual(t, "hi carol", m["message"])
	}
}

func TestMarkMessageRead_RecipientOnly(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedUser(t, "Alice", "alice@example.com", "buyer")
	bob := env.seedUser(t, "Bob", "bob@example.com", "seller")

	msg := storage.Message{FromID: alice.ID, ToID: bob.ID, Body: "hi bob"}
	require.NoError(t, env.db.DB.Create(&msg).Error)

	// The sender cannot mark it; the call succeeds without effect.
	w := env.request(t, http.MethodPut, "/api/messages",
		map[string]any{"id": msg.ID, "user_id": alice.ID})
	assertStatus(t, w, http.StatusOK)

	var stored storage.Message
	require.NoError(t, env.db.DB.First(&stored, msg.ID).Error)
	assert.False(t, stored.IsRead)

	w = env.request(t, http.MethodPut, "/api/messages",
		map[string]any{"id": msg.ID, "user_id": bob.ID})
	body := assertStatus(t, w, http.StatusOK)
	assert.Equal(t, "Message marked as read", body["message"])

	require.NoError(t, env.db.DB.First(&stored, msg.ID).Error)
	assert.True(t, stored.IsRead)
}
