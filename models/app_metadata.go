package models

import "time"

// AppMetadata catalogue entry for one sandbox app
type AppMetadata struct {
	ID                   string    `json:"id"`                      // provisioner-assigned sandbox identity
	CreatedAt            time.Time `json:"created_at"`              // creation time
	UpdatedAt            time.Time `json:"updated_at"`              // last transition or edit
	Status               AppStatus `json:"status"`                  // lifecycle status
	SandboxUserTunnelURL string    `json:"sandbox_user_tunnel_url"` // user-facing URL
	Title                string    `json:"title"`                   // display title, defaults to the creation prompt
	IsFeatured           bool      `json:"is_featured"`             // shown in the featured list
}

// NewAppMetadata metadata in CREATED state stamped with now
func NewAppMetadata(id, userURL, title string, now time.Time) *AppMetadata {
	return &AppMetadata{
		ID:                   id,
		CreatedAt:            now,
		UpdatedAt:            now,
		Status:               AppStatusCreated,
		SandboxUserTunnelURL: userURL,
		Title:                title,
	}
}

// Touch advances UpdatedAt to now, never backwards
func (m *AppMetadata) Touch(now time.Time) {
	if now.After(m.UpdatedAt) {
		m.UpdatedAt = now
	}
}

// Clone returns a copy safe to mutate
func (m *AppMetadata) Clone() *AppMetadata {
	c := *m
	return &c
}
