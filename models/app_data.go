package models

// MessageType speaker of one conversation turn
type MessageType string

const (
	MessageTypeUser      MessageType = "user"
	MessageTypeAssistant MessageType = "assistant"
)

// Message one conversation turn, immutable once appended
type Message struct {
	Content string      `json:"content"`
	Type    MessageType `json:"type"`
}

// AppData per-app payload stored under app_{id}
type AppData struct {
	ID                   string     `json:"id"`
	MessageHistory       []*Message `json:"message_history"`         // chronological, append-only
	CurrentComponent     string     `json:"current_component"`       // latest artifact, replaced on each edit
	SandboxTunnelURL     string     `json:"sandbox_tunnel_url"`      // control endpoint
	SandboxUserTunnelURL string     `json:"sandbox_user_tunnel_url"` // user-facing endpoint
	SandboxObjectID      string     `json:"sandbox_object_id"`       // provisioner identifier
}

// AppendMessage appends one turn to the history
func (d *AppData) AppendMessage(t MessageType, content string) {
	d.MessageHistory = append(d.MessageHistory, &Message{Content: content, Type: t})
}
