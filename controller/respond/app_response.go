package respond

import (
	"time"

	model "sandbox-app-service/models"
	"sandbox-app-service/service/sandbox_service"
)

// CreateAppResponse result of app creation
type CreateAppResponse struct {
	AppID  string `json:"app_id" example:"sb-01J9Z"`
	Status string `json:"status" example:"ready"`
}

// AppListItem catalogue entry as listed to clients
type AppListItem struct {
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	Title      string    `json:"title"`
	IsFeatured bool      `json:"is_featured"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// AppListResponse list of apps
type AppListResponse struct {
	Apps  []AppListItem `json:"apps"`
	Total int           `json:"total"`
}

// AppDetailResponse details of one app
type AppDetailResponse struct {
	AppListItem
	MessageCount int `json:"message_count"`
}

// EditAppResponse reply relayed from the sandbox after an edit
type EditAppResponse struct {
	Status     string `json:"status" example:"ok"`
	Message    string `json:"message,omitempty"`
	HttpStatus int    `json:"http_status" example:"200"`
}

// AppStatusResponse stored status of an app
type AppStatusResponse struct {
	AppID  string `json:"app_id"`
	Status string `json:"status"`
}

// PingResponse live probe result
type PingResponse struct {
	AppID string `json:"app_id"`
	Alive bool   `json:"alive"`
}

// TerminateResponse result of a single termination
type TerminateResponse struct {
	AppID      string `json:"app_id"`
	Terminated bool   `json:"terminated"`
}

// FeatureResponse featured flag after a toggle
type FeatureResponse struct {
	AppID      string `json:"app_id"`
	IsFeatured bool   `json:"is_featured"`
}

// ToAppListItem convert catalogue metadata
func ToAppListItem(meta *model.AppMetadata) AppListItem {
	return AppListItem{
		ID:         meta.ID,
		URL:        meta.SandboxUserTunnelURL,
		Title:      meta.Title,
		IsFeatured: meta.IsFeatured,
		Status:     string(meta.Status),
		CreatedAt:  meta.CreatedAt,
		UpdatedAt:  meta.UpdatedAt,
	}
}

// ToAppListResponse convert a catalogue listing
func ToAppListResponse(metas []*model.AppMetadata) AppListResponse {
	items := make([]AppListItem, 0, len(metas))
	for _, m := range metas {
		items = append(items, ToAppListItem(m))
	}
	return AppListResponse{Apps: items, Total: len(items)}
}

// ToAppDetailResponse convert a reconstructed app
func ToAppDetailResponse(app *sandbox_service.SandboxApp) AppDetailResponse {
	return AppDetailResponse{
		AppListItem:  ToAppListItem(app.Metadata),
		MessageCount: len(app.Data.MessageHistory),
	}
}
