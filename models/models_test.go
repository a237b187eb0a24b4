package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to AppStatus
		want     bool
	}{
		{AppStatusCreated, AppStatusReady, true},
		{AppStatusCreated, AppStatusTerminated, true},
		{AppStatusCreated, AppStatusActive, false},
		{AppStatusReady, AppStatusActive, true},
		{AppStatusReady, AppStatusCreated, false},
		{AppStatusActive, AppStatusActive, true},
		{AppStatusActive, AppStatusReady, false},
		{AppStatusActive, AppStatusTerminated, true},
		{AppStatusTerminated, AppStatusReady, false},
		{AppStatusTerminated, AppStatusActive, false},
		{AppStatusTerminated, AppStatusTerminated, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransition(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestAppStatusEditable(t *testing.T) {
	assert.False(t, AppStatusCreated.Editable())
	assert.True(t, AppStatusReady.Editable())
	assert.True(t, AppStatusActive.Editable())
	assert.False(t, AppStatusTerminated.Editable())
	assert.True(t, AppStatusTerminated.IsTerminal())
}

func TestParseAppStatus(t *testing.T) {
	s, err := ParseAppStatus("ready")
	require.NoError(t, err)
	assert.Equal(t, AppStatusReady, s)

	_, err = ParseAppStatus("READY")
	assert.Error(t, err)
}

func TestAppMetadataTouch(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m := NewAppMetadata("sb-1", "https://u2", "a red button", t0)
	assert.Equal(t, AppStatusCreated, m.Status)

	m.Touch(t0.Add(-time.Minute))
	assert.Equal(t, t0, m.UpdatedAt)

	m.Touch(t0.Add(time.Minute))
	assert.Equal(t, t0.Add(time.Minute), m.UpdatedAt)
	assert.Equal(t, t0, m.CreatedAt)
}

func TestAppMetadataJSONLayout(t *testing.T) {
	t0 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m := NewAppMetadata("sb-1", "https://u2", "", t0)

	raw, err := json.Marshal(m)
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, "created", fields["status"])
	assert.Equal(t, "2025-06-01T12:00:00Z", fields["created_at"])
	assert.Equal(t, "https://u2", fields["sandbox_user_tunnel_url"])
	assert.Contains(t, fields, "is_featured")
	assert.Contains(t, fields, "title")
}
