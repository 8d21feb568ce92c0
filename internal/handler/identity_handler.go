package handler

import (
	"net/http"

	"whispr-go/internal/middleware"
	"whispr-go/internal/service"
	"whispr-go/pkg/log"

	"github.com/gin-gonic/gin"
)

// IdentityHandler 负责签发匿名身份。
type IdentityHandler struct {
	identityService service.IdentityService
}

// NewIdentityHandler 创建一个新的 IdentityHandler 实例。
func NewIdentityHandler(identityService service.IdentityService) *IdentityHandler {
	return &IdentityHandler{identityService: identityService}
}

// Issue 签发匿名身份。请求携带仍然有效的 token 时返回同一个用户 ID。
func (h *IdentityHandler) Issue(c *gin.Context) {
	identity, err := h.identityService.Issue(middleware.BearerToken(c))
	if err != nil {
		log.Error("Issue: 签发匿名身份失败", err)
		respondError(c, http.StatusInternalServerError, "Could not create an anonymous identity. Please try again.")
		return
	}
	respondOK(c, "success", identity)
}
