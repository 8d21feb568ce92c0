package handler

import (
	"whispr-go/internal/config"

	"github.com/gin-gonic/gin"
)

// HelplineHandler 返回危机求助热线列表。
type HelplineHandler struct {
	helplines []config.Helpline
}

func NewHelplineHandler(helplines []config.Helpline) *HelplineHandler {
	return &HelplineHandler{helplines: helplines}
}

func (h *HelplineHandler) List(c *gin.Context) {
	respondOK(c, "success", h.helplines)
}
