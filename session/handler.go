package session

import (
	"log/slog"
	"net/http"
	"slices"
	"wordchain/auth"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type Handler struct {
	hub      *Hub
	bans     BanRepo
	upgrader websocket.Upgrader
}

func NewHandler(hub *Hub, bans BanRepo, allowedOrigins []string) *Handler {
	return &Handler{
		hub:  hub,
		bans: bans,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

// WebsocketHandler upgrades an authenticated request and serves the game
// session until the socket closes.
func (h *Handler) WebsocketHandler(ctx *gin.Context) {
	userId, ok := auth.UserId(ctx)
	if !ok {
		slog.Error("Unexpected error, id not found. What is the middleware doing?",
			"ip", ctx.ClientIP(),
			"user_agent", ctx.Request.UserAgent(),
		)
		ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": ErrUnknown.Error()})
		return
	}

	banned, err := h.bans.IsBanned(ctx.Request.Context(), userId)
	if err != nil {
		slog.Error("Ban lookup failed", "user_id", userId, "error", err.Error())
		ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": ErrUnknown.Error()})
		return
	}
	if banned {
		ctx.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": PacketBanned})
		return
	}
	if h.hub.IsConnected(userId) {
		ctx.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": ErrAlreadyConnected.Error()})
		return
	}

	conn, err := h.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		slog.Warn("WS upgrade failed", "user_id", userId, "error", err.Error())
		return
	}

	_ = h.hub.Serve(userId, NewWebsocketConnection(conn))
}

// RoomsHandler lists the rooms for clients that poll over HTTP.
func (h *Handler) RoomsHandler(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, roomListData(h.hub.lobby.ListRooms()))
}
