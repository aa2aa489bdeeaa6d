package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yukikurage/taskboard-api/internal/constants"
	apierrors "github.com/yukikurage/taskboard-api/internal/errors"
	"github.com/yukikurage/taskboard-api/internal/middleware"
	"github.com/yukikurage/taskboard-api/internal/realtime"
	"github.com/yukikurage/taskboard-api/internal/repository"
	"github.com/yukikurage/taskboard-api/internal/visibility"
)

const (
	authFrameWait = 10 * time.Second
	readWait      = 90 * time.Second

	maxFrameSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// clientFrame is the envelope for everything a client sends over the socket.
type clientFrame struct {
	Type   string `json:"type"`
	Token  string `json:"token,omitempty"`
	TaskID uint64 `json:"task_id,omitempty"`
}

// WSHandler owns the realtime channel surface: minting channel tokens for
// authenticated sessions and upgrading websocket connections into registered
// delivery channels.
type WSHandler struct {
	channelSecret string
	registry      *realtime.Registry
	evaluator     *visibility.Evaluator
	userRepo      repository.UserRepository
	taskRepo      repository.TaskRepository
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(
	channelSecret string,
	registry *realtime.Registry,
	evaluator *visibility.Evaluator,
	userRepo repository.UserRepository,
	taskRepo repository.TaskRepository,
) *WSHandler {
	return &WSHandler{
		channelSecret: channelSecret,
		registry:      registry,
		evaluator:     evaluator,
		userRepo:      userRepo,
		taskRepo:      taskRepo,
	}
}

// ChannelToken mints a short-lived token the client presents when opening a
// websocket. The token is bound to the session user, so the socket endpoint
// itself never reads the session cookie.
func (h *WSHandler) ChannelToken(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	ttl := time.Duration(constants.ChannelTokenTTLSeconds) * time.Second
	token, err := realtime.GenerateChannelToken(h.channelSecret, userID, ttl)
	if err != nil {
		apierrors.InternalError(c, "Failed to issue channel token")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_in": constants.ChannelTokenTTLSeconds,
	})
}

// Serve upgrades the request to a websocket. The first frame must be an auth
// frame carrying a valid channel token; until it arrives the connection is
// anonymous and delivers nothing.
func (h *WSHandler) Serve(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}
	ws.SetReadLimit(maxFrameSize)

	userID, err := h.awaitAuth(ws)
	if err != nil {
		_ = ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication required"),
			time.Now().Add(authFrameWait),
		)
		_ = ws.Close()
		return
	}

	conn := realtime.NewConnection(userID, ws)
	h.registry.Register(conn)
	defer func() {
		h.registry.Unregister(conn)
		conn.Close(websocket.CloseNormalClosure, "")
	}()

	if err := conn.Send(readyFrame()); err != nil {
		return
	}

	_ = ws.SetReadDeadline(time.Now().Add(readWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(readWait))
	})

	h.readLoop(ws, conn)
}

// awaitAuth reads the first frame and verifies its channel token.
func (h *WSHandler) awaitAuth(ws *websocket.Conn) (uint64, error) {
	_ = ws.SetReadDeadline(time.Now().Add(authFrameWait))

	_, data, err := ws.ReadMessage()
	if err != nil {
		return 0, err
	}

	var frame clientFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return 0, realtime.ErrInvalidToken
	}
	if frame.Type != "auth" {
		return 0, realtime.ErrInvalidToken
	}

	return realtime.VerifyChannelToken(h.channelSecret, frame.Token)
}

func (h *WSHandler) readLoop(ws *websocket.Conn, conn *realtime.Connection) {
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return
		}
		_ = ws.SetReadDeadline(time.Now().Add(readWait))

		var frame clientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}

		switch frame.Type {
		case "watch":
			h.handleWatch(conn, frame.TaskID)
		case "unwatch":
			h.registry.Unwatch(frame.TaskID, conn)
		}
	}
}

// handleWatch subscribes the connection to a task's live-update stream if the
// user is allowed to see the task. A denied or missing task is silently
// ignored so the socket does not leak task existence.
func (h *WSHandler) handleWatch(conn *realtime.Connection, taskID uint64) {
	if taskID == 0 {
		return
	}

	user, err := h.userRepo.FindByID(conn.UserID)
	if err != nil {
		return
	}
	task, err := h.taskRepo.FindByID(taskID)
	if err != nil {
		return
	}

	allowed, err := h.evaluator.CanViewTask(user, task)
	if err != nil || !allowed {
		return
	}

	h.registry.Watch(taskID, conn)
}

func readyFrame() []byte {
	payload, _ := json.Marshal(gin.H{"type": "ready"})
	return payload
}
