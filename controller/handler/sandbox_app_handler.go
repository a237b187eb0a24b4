package handler

import (
	"errors"
	"fmt"

	"sandbox-app-service/controller/respond"
	"sandbox-app-service/service/sandbox_service"

	"github.com/gin-gonic/gin"
)

// SandboxAppHandler sandbox app handler
type SandboxAppHandler struct {
	appService *sandbox_service.SandboxAppService
}

// NewSandboxAppHandler create sandbox app handler instance
func NewSandboxAppHandler(appService *sandbox_service.SandboxAppService) *SandboxAppHandler {
	return &SandboxAppHandler{appService: appService}
}

// CreateAppRequest create app request
type CreateAppRequest struct {
	Prompt string `json:"prompt" binding:"required" example:"a red button that counts clicks"`
}

// WriteRequest edit request
type WriteRequest struct {
	Text string `json:"text" binding:"required" example:"make it blue"`
}

// CreateApp create a sandbox app from a prompt
// @Summary Create app
// @Description Provision a sandbox, generate the first component and deliver it
// @Tags App
// @Accept json
// @Produce json
// @Param request body CreateAppRequest true "Prompt"
// @Success 200 {object} respond.Response{data=respond.CreateAppResponse}
// @Router /api/v1/apps [post]
func (h *SandboxAppHandler) CreateApp(c *gin.Context) {
	var req CreateAppRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.InvalidParam(c, "prompt is required")
		return
	}

	app, err := h.appService.CreateApp(c.Request.Context(), req.Prompt)
	if err != nil {
		respondAppError(c, err)
		return
	}

	respond.Success(c, respond.CreateAppResponse{AppID: app.ID, Status: string(app.Status())})
}

// ListApps list the catalogue
// @Summary List apps
// @Description Reload the catalogue and list every app, newest first
// @Tags App
// @Produce json
// @Success 200 {object} respond.Response{data=respond.AppListResponse}
// @Router /api/v1/apps [get]
func (h *SandboxAppHandler) ListApps(c *gin.Context) {
	respond.Success(c, respond.ToAppListResponse(h.appService.ListApps()))
}

// GetApp get app details
// @Summary Get app
// @Tags App
// @Produce json
// @Param appId path string true "App ID"
// @Success 200 {object} respond.Response{data=respond.AppDetailResponse}
// @Router /api/v1/apps/{appId} [get]
func (h *SandboxAppHandler) GetApp(c *gin.Context) {
	app, err := h.appService.GetApp(c.Param("appId"))
	if err != nil {
		respondAppError(c, err)
		return
	}
	respond.Success(c, respond.ToAppDetailResponse(app))
}

// Write apply an edit instruction
// @Summary Edit app
// @Description Regenerate the component from the instruction and deliver it to the sandbox.
// @Description The sandbox reply is relayed as is.
// @Tags App
// @Accept json
// @Produce json
// @Param appId path string true "App ID"
// @Param request body WriteRequest true "Instruction"
// @Success 200 {object} respond.Response{data=respond.EditAppResponse}
// @Router /api/v1/apps/{appId}/write [post]
func (h *SandboxAppHandler) Write(c *gin.Context) {
	var req WriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.InvalidParam(c, "text is required")
		return
	}

	res, err := h.appService.EditApp(c.Request.Context(), c.Param("appId"), req.Text)
	if err != nil {
		respondAppError(c, err)
		return
	}

	respond.Success(c, respond.EditAppResponse{
		Status:     res.Status,
		Message:    res.Message,
		HttpStatus: res.StatusCode,
	})
}

// History get the conversation
// @Summary App history
// @Tags App
// @Produce json
// @Param appId path string true "App ID"
// @Success 200 {object} respond.Response{data=[]model.Message}
// @Router /api/v1/apps/{appId}/history [get]
func (h *SandboxAppHandler) History(c *gin.Context) {
	history, err := h.appService.History(c.Param("appId"))
	if err != nil {
		respondAppError(c, err)
		return
	}

	c.Header("Cache-Control", "no-cache, no-store, must-revalidate")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
	respond.Success(c, history)
}

// Status get the stored status
// @Summary App status
// @Description Stored lifecycle status, the sandbox is not probed
// @Tags App
// @Produce json
// @Param appId path string true "App ID"
// @Success 200 {object} respond.Response{data=respond.AppStatusResponse}
// @Router /api/v1/apps/{appId}/status [get]
func (h *SandboxAppHandler) Status(c *gin.Context) {
	id := c.Param("appId")
	status, err := h.appService.Status(id)
	if err != nil {
		respondAppError(c, err)
		return
	}
	respond.Success(c, respond.AppStatusResponse{AppID: id, Status: string(status)})
}

// Ping probe the sandbox
// @Summary Ping app
// @Tags App
// @Produce json
// @Param appId path string true "App ID"
// @Success 200 {object} respond.Response{data=respond.PingResponse}
// @Router /api/v1/apps/{appId}/ping [get]
func (h *SandboxAppHandler) Ping(c *gin.Context) {
	id := c.Param("appId")
	alive, err := h.appService.Ping(c.Request.Context(), id)
	if err != nil {
		respondAppError(c, err)
		return
	}
	respond.Success(c, respond.PingResponse{AppID: id, Alive: alive})
}

// ServiceStatus catalogue size and cleanup totals
// @Summary Service status
// @Tags App
// @Produce json
// @Success 200 {object} respond.Response{data=sandbox_service.ServiceStatus}
// @Router /api/v1/status [get]
func (h *SandboxAppHandler) ServiceStatus(c *gin.Context) {
	st, err := h.appService.ServiceStatus()
	if err != nil {
		respond.ServerError(c, err.Error())
		return
	}
	respond.Success(c, st)
}

// respondAppError maps service errors to response codes
func respondAppError(c *gin.Context, err error) {
	var de *sandbox_service.DeliveryError
	switch {
	case errors.Is(err, sandbox_service.ErrAppNotFound):
		respond.NotFound(c, err.Error())
	case errors.Is(err, sandbox_service.ErrInvalidState):
		respond.InvalidState(c, err.Error())
	case errors.As(err, &de):
		respond.ErrorWithData(c, respond.CodeServerError, err.Error(), gin.H{"http_status": de.StatusCode})
	default:
		respond.ServerError(c, fmt.Sprintf("%v", err))
	}
}
