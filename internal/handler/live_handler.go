package handler

import (
	"context"
	"net/http"
	"time"

	"whispr-go/internal/service"
	"whispr-go/pkg/log"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源
	},
}

const writeWait = 10 * time.Second

// LiveHandler 通过 WebSocket 推送实时快照。
type LiveHandler struct {
	liveService     service.LiveService
	identityService service.IdentityService
}

// NewLiveHandler 创建一个新的 LiveHandler。
func NewLiveHandler(liveService service.LiveService, identityService service.IdentityService) *LiveHandler {
	return &LiveHandler{liveService: liveService, identityService: identityService}
}

// Feed 订阅公开 feed 以及当前用户的反馈通知。浏览器无法为 WebSocket 设置请求头，token 放在路径中。
func (h *LiveHandler) Feed(c *gin.Context) {
	userID, ok := h.resolve(c)
	if !ok {
		return
	}
	h.serve(c, func(ctx context.Context) (<-chan service.LiveEvent, error) {
		return h.liveService.WatchFeed(ctx, userID)
	})
}

// Chat 订阅当前用户的聊天会话。
func (h *LiveHandler) Chat(c *gin.Context) {
	userID, ok := h.resolve(c)
	if !ok {
		return
	}
	h.serve(c, func(ctx context.Context) (<-chan service.LiveEvent, error) {
		return h.liveService.WatchChat(ctx, userID)
	})
}

// Admin 订阅管理后台数据，需位于 AdminAuthMiddleware 之后。
func (h *LiveHandler) Admin(c *gin.Context) {
	h.serve(c, h.liveService.WatchAdmin)
}

func (h *LiveHandler) resolve(c *gin.Context) (string, bool) {
	userID, err := h.identityService.Resolve(c.Param("token"))
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Invalid or expired identity token.")
		return "", false
	}
	return userID, true
}

func (h *LiveHandler) serve(c *gin.Context, watch func(ctx context.Context) (<-chan service.LiveEvent, error)) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()

	// 连接被劫持后请求的 ctx 不再可靠，使用独立的 ctx 并在连接断开时取消
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := watch(ctx)
	if err != nil {
		log.Error("建立实时订阅失败", err)
		msg := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscription unavailable")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		return
	}
	log.Infof("WebSocket 实时订阅已建立: %s", c.Request.URL.Path)

	// 客户端只读；读循环用于感知断开
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for ev := range events {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(ev); err != nil {
			log.Warnf("写入 WebSocket 失败: %v", err)
			return
		}
	}
	log.Infof("WebSocket 实时订阅已结束: %s", c.Request.URL.Path)
}
