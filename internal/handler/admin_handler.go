package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"whispr-go/internal/middleware"
	"whispr-go/internal/model"
	"whispr-go/internal/service"
	"whispr-go/pkg/log"
	"whispr-go/pkg/token"

	"github.com/gin-gonic/gin"
)

const (
	adminDashboardPath = "/admin/dashboard"
	adminLoginPath     = "/admin/login"
	loginErrorRedirect = adminLoginPath + "?error=Invalid%20email%20or%20password."
	defaultActionLimit = 50
)

// AdminHandler 负责处理所有管理员相关的 API 请求。
type AdminHandler struct {
	authService       service.AdminAuthService
	moderationService service.ModerationService
	searchService     service.SearchService
	exportService     service.ExportService
	secureCookie      bool
}

// NewAdminHandler 创建一个新的 AdminHandler 实例。secureCookie 在 release 模式下为 true。
func NewAdminHandler(
	authService service.AdminAuthService,
	moderationService service.ModerationService,
	searchService service.SearchService,
	exportService service.ExportService,
	secureCookie bool,
) *AdminHandler {
	return &AdminHandler{
		authService:       authService,
		moderationService: moderationService,
		searchService:     searchService,
		exportService:     exportService,
		secureCookie:      secureCookie,
	}
}

// LoginRequest 定义了管理员登录的请求体结构，同时支持 JSON 与表单。
type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func wantsJSON(c *gin.Context) bool {
	return c.ContentType() == gin.MIMEJSON || strings.Contains(c.GetHeader("Accept"), gin.MIMEJSON)
}

// Login 处理管理员登录。表单提交成功后 303 跳转到后台首页，失败跳回登录页；
// JSON 请求分别返回 200 和 401。
func (h *AdminHandler) Login(c *gin.Context) {
	isJSON := wantsJSON(c)
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		log.Warnf("Login: Invalid request payload, error: %v", err)
	}

	session, err := h.authService.Login(strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		if !errors.Is(err, service.ErrInvalidCredentials) {
			log.Error("Login: 管理员登录失败", err)
		}
		if isJSON {
			respondError(c, http.StatusUnauthorized, "Invalid email or password.")
			return
		}
		c.Redirect(http.StatusSeeOther, loginErrorRedirect)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(service.AdminSessionCookie, session.Token, int(h.authService.MaxAge().Seconds()), "/", "", h.secureCookie, true)
	if isJSON {
		respondOK(c, "Login successful", session)
		return
	}
	c.Redirect(http.StatusSeeOther, adminDashboardPath)
}

// Logout 删除会话 cookie。
func (h *AdminHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(service.AdminSessionCookie, "", -1, "/", "", h.secureCookie, true)
	if wantsJSON(c) {
		respondOK(c, "Logged out", nil)
		return
	}
	c.Redirect(http.StatusSeeOther, adminLoginPath)
}

// Session 返回当前管理员会话信息。
func (h *AdminHandler) Session(c *gin.Context) {
	v, _ := c.Get(middleware.ContextAdminClaims)
	claims, ok := v.(*token.SessionClaims)
	if !ok {
		respondError(c, http.StatusUnauthorized, "Admin login required.")
		return
	}
	respondOK(c, "success", gin.H{
		"adminId":    claims.AdminID,
		"email":      claims.Email,
		"loggedInAt": claims.LoggedInAt,
	})
}

// ListPosts 返回全部 whisper（包括已隐藏的）。
func (h *AdminHandler) ListPosts(c *gin.Context) {
	posts, err := h.moderationService.ListPosts(c.Request.Context())
	if err != nil {
		log.Error("ListPosts: 获取 whisper 列表失败", err)
		respondError(c, http.StatusInternalServerError, "Could not load posts.")
		return
	}
	respondOK(c, "success", posts)
}

// SearchPosts 全文检索 whisper。
func (h *AdminHandler) SearchPosts(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	posts, err := h.searchService.Search(c.Request.Context(), c.Query("q"), limit)
	if errors.Is(err, service.ErrSearchUnavailable) {
		respondError(c, http.StatusServiceUnavailable, "Search is not enabled.")
		return
	}
	if err != nil {
		log.Error("SearchPosts: 检索失败", err)
		respondError(c, http.StatusInternalServerError, "Search failed. Please try again.")
		return
	}
	respondOK(c, "success", posts)
}

// RelabelRequest 定义了修改标签的请求体结构。
type RelabelRequest struct {
	Label string `json:"label" binding:"required"`
}

// Relabel 修改 whisper 的 AI 标签。
func (h *AdminHandler) Relabel(c *gin.Context) {
	var req RelabelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "A label is required.")
		return
	}
	post, err := h.moderationService.Relabel(c.Request.Context(), c.GetString(middleware.ContextAdminID), c.Param("id"), model.AILabel(req.Label))
	h.respondModeration(c, post, err, "Label updated.")
}

// ToggleVisibility 隐藏或恢复 whisper。
func (h *AdminHandler) ToggleVisibility(c *gin.Context) {
	post, err := h.moderationService.ToggleVisibility(c.Request.Context(), c.GetString(middleware.ContextAdminID), c.Param("id"))
	h.respondModeration(c, post, err, "Visibility updated.")
}

// GenerateReply 让 AI 为 whisper 生成回复。
func (h *AdminHandler) GenerateReply(c *gin.Context) {
	post, err := h.moderationService.GenerateReply(c.Request.Context(), c.GetString(middleware.ContextAdminID), c.Param("id"))
	h.respondModeration(c, post, err, "Reply generated.")
}

func (h *AdminHandler) respondModeration(c *gin.Context, post *model.Post, err error, message string) {
	switch {
	case err == nil:
		respondOK(c, message, post)
	case errors.Is(err, service.ErrInvalidLabel):
		respondError(c, http.StatusBadRequest, "Label must be one of normal, stressed, need_help.")
	case errors.Is(err, service.ErrPostNotFound):
		respondError(c, http.StatusNotFound, "Post not found.")
	case errors.Is(err, service.ErrAIUnavailable):
		respondError(c, http.StatusBadGateway, "Could not generate a reply. Please try again.")
	case errors.Is(err, service.ErrAuditLogFailed):
		respondError(c, http.StatusInternalServerError, "The change was saved but could not be recorded in the action log.")
	default:
		log.Error("审核操作失败", err)
		respondError(c, http.StatusInternalServerError, "Something went wrong. Please try again.")
	}
}

// ListActions 返回最近的审计日志。
func (h *AdminHandler) ListActions(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultActionLimit)))
	if err != nil || limit <= 0 {
		limit = defaultActionLimit
	}
	actions, err := h.moderationService.ListActions(c.Request.Context(), limit)
	if err != nil {
		log.Error("ListActions: 获取审计日志失败", err)
		respondError(c, http.StatusInternalServerError, "Could not load the action log.")
		return
	}
	respondOK(c, "success", actions)
}

// Export 导出全部 whisper 与审计日志，返回限时下载链接。
func (h *AdminHandler) Export(c *gin.Context) {
	result, err := h.exportService.Export(c.Request.Context(), c.GetString(middleware.ContextAdminID))
	if errors.Is(err, service.ErrExportUnavailable) {
		respondError(c, http.StatusServiceUnavailable, "Export is not enabled.")
		return
	}
	if err != nil {
		log.Error("Export: 导出失败", err)
		respondError(c, http.StatusInternalServerError, "Export failed. Please try again.")
		return
	}
	respondOK(c, "success", result)
}
