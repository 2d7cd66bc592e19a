package handlers_test

import (
	"net/http"
	"testing"

	"github.com/ptdewey/shutter"
	"github.com/stretchr/testify/require"
)

// TestMeResponse_Snapshot pins the /api/me response format.
func TestMeResponse_Snapshot(t *testing.T) {
	ts := newTestServer(t)
	user := ts.createUser(t, "snapuser", false)
	token := ts.tokenFor(t, user)

	rec := ts.request(t, "GET", "/api/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	shutter.SnapJSON(t, "api_me", rec.Body.String(),
		shutter.ScrubTimestamp(),
		shutter.IgnoreKey("created_at"),
	)
}

// TestViolationCreate_Snapshot pins the successful flagging response.
func TestViolationCreate_Snapshot(t *testing.T) {
	ts := newTestServer(t)
	author := ts.createUser(t, "snapauthor", false)
	admin := ts.createUser(t, "snapadmin", true)
	post := ts.seedPost(t, author)
	token := ts.tokenFor(t, admin)

	rec := ts.request(t, "POST", "/api/moderation/violations", token, map[string]any{
		"content_type": "post",
		"content_id":   post.ID,
		"reason":       "off topic",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	shutter.SnapJSON(t, "violation_create_success", rec.Body.String(),
		shutter.IgnoreKey("violation_id"),
	)
}

// TestViolationDuplicate_Snapshot pins the conflict body returned when
// the same moderator flags the same content twice.
func TestViolationDuplicate_Snapshot(t *testing.T) {
	ts := newTestServer(t)
	author := ts.createUser(t, "snapauthor", false)
	admin := ts.createUser(t, "snapadmin", true)
	post := ts.seedPost(t, author)
	token := ts.tokenFor(t, admin)

	body := map[string]any{
		"content_type": "post",
		"content_id":   post.ID,
		"reason":       "off topic",
	}
	rec := ts.request(t, "POST", "/api/moderation/violations", token, body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.request(t, "POST", "/api/moderation/violations", token, body)
	require.Equal(t, http.StatusConflict, rec.Code)

	shutter.SnapJSON(t, "violation_duplicate_conflict", rec.Body.String())
}
