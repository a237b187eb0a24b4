package handler

import (
	"crypto/subtle"

	"sandbox-app-service/conf"
	"sandbox-app-service/controller/respond"
	"sandbox-app-service/logging"
	"sandbox-app-service/service/sandbox_service"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// AdminRequest body of every admin operation
type AdminRequest struct {
	AdminSecret string `json:"admin_secret" example:"s3cret"`
}

// AdminVerifier checks admin secrets against a bcrypt hash or a plain secret
type AdminVerifier struct {
	hash   []byte
	secret []byte
}

// NewAdminVerifier build verifier; the hash wins when both are set
func NewAdminVerifier(cfg conf.AdminConfig) *AdminVerifier {
	v := &AdminVerifier{}
	if cfg.SecretHash != "" {
		v.hash = []byte(cfg.SecretHash)
	} else if cfg.Secret != "" {
		v.secret = []byte(cfg.Secret)
	}
	return v
}

// Configured reports whether any secret is set
func (v *AdminVerifier) Configured() bool {
	return len(v.hash) > 0 || len(v.secret) > 0
}

// Verify compares given with the configured secret
func (v *AdminVerifier) Verify(given string) bool {
	if given == "" {
		return false
	}
	if len(v.hash) > 0 {
		return bcrypt.CompareHashAndPassword(v.hash, []byte(given)) == nil
	}
	if len(v.secret) > 0 {
		return subtle.ConstantTimeCompare(v.secret, []byte(given)) == 1
	}
	return false
}

// AdminHandler admin operations guarded by the admin secret
type AdminHandler struct {
	appService *sandbox_service.SandboxAppService
	verifier   *AdminVerifier
}

// NewAdminHandler create admin handler instance
func NewAdminHandler(appService *sandbox_service.SandboxAppService, verifier *AdminVerifier) *AdminHandler {
	return &AdminHandler{appService: appService, verifier: verifier}
}

// authorize binds the request and checks the secret, responding on failure
func (h *AdminHandler) authorize(c *gin.Context) bool {
	if !h.verifier.Configured() {
		respond.Unavailable(c, "admin secret not configured")
		return false
	}

	var req AdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.InvalidParam(c, "invalid request body: "+err.Error())
		return false
	}
	if !h.verifier.Verify(req.AdminSecret) {
		logging.Warn("rejected admin request", "path", c.FullPath(), "client_ip", c.ClientIP())
		respond.Unauthorized(c, "invalid admin secret")
		return false
	}
	return true
}

// TerminateApp terminate one app and remove it
// @Summary Terminate app
// @Tags Admin
// @Accept json
// @Produce json
// @Param appId path string true "App ID"
// @Param request body AdminRequest true "Admin secret"
// @Success 200 {object} respond.Response{data=respond.TerminateResponse}
// @Router /api/v1/apps/{appId}/terminate [post]
func (h *AdminHandler) TerminateApp(c *gin.Context) {
	if !h.authorize(c) {
		return
	}

	id := c.Param("appId")
	ok, err := h.appService.TerminateApp(c.Request.Context(), id)
	if err != nil {
		respondAppError(c, err)
		return
	}
	if !ok {
		respond.ErrorWithData(c, respond.CodeServerError, "failed to terminate sandbox", respond.TerminateResponse{AppID: id})
		return
	}
	respond.Success(c, respond.TerminateResponse{AppID: id, Terminated: true})
}

// ToggleFeature flip the featured flag
// @Summary Toggle featured
// @Tags Admin
// @Accept json
// @Produce json
// @Param appId path string true "App ID"
// @Param request body AdminRequest true "Admin secret"
// @Success 200 {object} respond.Response{data=respond.FeatureResponse}
// @Router /api/v1/apps/{appId}/toggle-feature [post]
func (h *AdminHandler) ToggleFeature(c *gin.Context) {
	if !h.authorize(c) {
		return
	}

	id := c.Param("appId")
	featured, err := h.appService.ToggleFeature(id)
	if err != nil {
		respondAppError(c, err)
		return
	}
	respond.Success(c, respond.FeatureResponse{AppID: id, IsFeatured: featured})
}

// TerminateAll terminate and remove every catalogued app
// @Summary Terminate all apps
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body AdminRequest true "Admin secret"
// @Success 200 {object} respond.Response{data=sandbox_service.TerminateAllResult}
// @Router /api/v1/admin/terminate-all [post]
func (h *AdminHandler) TerminateAll(c *gin.Context) {
	if !h.authorize(c) {
		return
	}
	respond.Success(c, h.appService.TerminateAll(c.Request.Context(), nil))
}

// Cleanup run one reconciliation pass
// @Summary Cleanup dead apps
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body AdminRequest true "Admin secret"
// @Success 200 {object} respond.Response{data=sandbox_service.CleanupReport}
// @Router /api/v1/admin/cleanup [post]
func (h *AdminHandler) Cleanup(c *gin.Context) {
	if !h.authorize(c) {
		return
	}
	respond.Success(c, h.appService.Cleanup(c.Request.Context()))
}
